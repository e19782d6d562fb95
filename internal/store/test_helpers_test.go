package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/cellsim/internal/ir"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run header with minimal required fields.
func createTestRun(id string) ir.RunRecord {
	return ir.RunRecord{
		ID:            id,
		RulesetHash:   "ruleset-" + id,
		Width:         3,
		Height:        2,
		InitialHash:   "initial-" + id,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
}

func writeTestRun(t *testing.T, s *Store, id string) ir.RunRecord {
	t.Helper()
	run := createTestRun(id)
	if err := s.WriteRun(context.Background(), run); err != nil {
		t.Fatalf("WriteRun(%s) failed: %v", id, err)
	}
	return run
}
