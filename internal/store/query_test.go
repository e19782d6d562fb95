package store

import (
	"context"
	"reflect"
	"testing"
)

func TestCompileRunQuery(t *testing.T) {
	tests := []struct {
		name       string
		filter     RunFilter
		wantWhere  string
		wantParams []any
	}{
		{
			name:       "empty filter",
			filter:     RunFilter{},
			wantWhere:  "",
			wantParams: []any{},
		},
		{
			name:       "single term",
			filter:     RunFilter{RulesetHash: "abc"},
			wantWhere:  " WHERE ruleset_hash = ?",
			wantParams: []any{"abc"},
		},
		{
			name:       "all terms in column order",
			filter:     RunFilter{EngineVersion: "v1", Height: 2, Width: 3, RulesetHash: "abc"},
			wantWhere:  " WHERE ruleset_hash = ? AND width = ? AND height = ? AND engine_version = ?",
			wantParams: []any{"abc", 3, 2, "v1"},
		},
	}

	const head = "SELECT id, ruleset_hash, width, height, initial_hash, engine_version, ir_version FROM runs"
	const order = " ORDER BY seq ASC, id ASC COLLATE BINARY"

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, params := compileRunQuery(tt.filter)
			if want := head + tt.wantWhere + order; query != want {
				t.Errorf("query = %q\nwant    %q", query, want)
			}
			if !reflect.DeepEqual(params, tt.wantParams) {
				t.Errorf("params = %v, want %v", params, tt.wantParams)
			}
		})
	}
}

func TestFindRuns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	writeTestRun(t, s, "a")
	wide := createTestRun("b")
	wide.Width = 10
	if err := s.WriteRun(ctx, wide); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	writeTestRun(t, s, "c")

	ids := func(f RunFilter) []string {
		t.Helper()
		runs, err := s.FindRuns(ctx, f)
		if err != nil {
			t.Fatalf("FindRuns(%+v) failed: %v", f, err)
		}
		out := []string{}
		for _, r := range runs {
			out = append(out, r.ID)
		}
		return out
	}

	if got := ids(RunFilter{}); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("no filter = %v", got)
	}
	if got := ids(RunFilter{Width: 3}); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("width 3 = %v", got)
	}
	if got := ids(RunFilter{RulesetHash: "ruleset-b", Width: 10}); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("ruleset-b = %v", got)
	}
	if got := ids(RunFilter{Height: 7}); len(got) != 0 {
		t.Errorf("height 7 = %v, want none", got)
	}
}
