package compiler

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/roach88/cellsim/internal/ir"
)

// Format identifies a ruleset source format.
type Format string

const (
	FormatCUE  Format = "cue"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf picks a format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return FormatCUE, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported ruleset file extension %q (want .cue, .yaml, .yml or .toml)", filepath.Ext(path))
	}
}

// Decode compiles ruleset source in the format implied by filename.
func Decode(filename string, data []byte) (*ir.RulesetDecl, error) {
	format, err := FormatOf(filename)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatCUE:
		return CompileCUE(filename, data)
	case FormatYAML:
		return DecodeYAML(data)
	default:
		return DecodeTOML(data)
	}
}

// rawRuleset is the document shape shared by the YAML and TOML formats.
type rawRuleset struct {
	Name     string    `yaml:"name" toml:"name"`
	Boundary string    `yaml:"boundary" toml:"boundary"`
	Cells    []rawCell `yaml:"cells" toml:"cells"`
	Rules    []rawRule `yaml:"rules" toml:"rules"`
}

type rawCell struct {
	Name     string         `yaml:"name" toml:"name"`
	Color    string         `yaml:"color" toml:"color"`
	States   map[string]any `yaml:"states" toml:"states"`
	Defaults map[string]any `yaml:"defaults" toml:"defaults"`
}

type rawRule struct {
	In         string         `yaml:"in" toml:"in"`
	Out        string         `yaml:"out" toml:"out"`
	Conditions []rawCondition `yaml:"conditions" toml:"conditions"`
}

type rawCondition struct {
	Dirs  *string `yaml:"dirs" toml:"dirs"`
	Type  string  `yaml:"type" toml:"type"`
	Count any     `yaml:"count" toml:"count"`
}

// DecodeYAML compiles a YAML ruleset document.
func DecodeYAML(data []byte) (*ir.RulesetDecl, error) {
	var raw rawRuleset
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, &CompileError{Field: "yaml", Message: err.Error()}
	}
	return raw.compile()
}

// DecodeTOML compiles a TOML ruleset document using [[cells]] and [[rules]]
// arrays of tables.
func DecodeTOML(data []byte) (*ir.RulesetDecl, error) {
	var raw rawRuleset
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, &CompileError{Field: "toml", Message: err.Error()}
	}
	return raw.compile()
}

func (raw *rawRuleset) compile() (*ir.RulesetDecl, error) {
	decl := &ir.RulesetDecl{
		Name:     strings.TrimSpace(raw.Name),
		Boundary: nfc(raw.Boundary),
	}

	for i, c := range raw.Cells {
		field := fmt.Sprintf("cells[%d]", i)
		axes, err := buildAxes(c.States)
		if err != nil {
			return nil, &CompileError{Field: field + ".states", Message: err.Error()}
		}
		defaults, err := buildDefaults(c.Defaults)
		if err != nil {
			return nil, &CompileError{Field: field + ".defaults", Message: err.Error()}
		}
		decl.Cells = append(decl.Cells, ir.CellDecl{
			Name:     nfc(c.Name),
			Color:    strings.TrimSpace(c.Color),
			States:   axes,
			Defaults: defaults,
		})
	}

	for i, r := range raw.Rules {
		field := fmt.Sprintf("rules[%d]", i)
		conds := make([]ir.ConditionDecl, 0, len(r.Conditions))
		for j, c := range r.Conditions {
			cond, err := buildCondition(c.Dirs, c.Type, c.Count)
			if err != nil {
				return nil, &CompileError{Field: fmt.Sprintf("%s.conditions[%d]", field, j), Message: err.Error()}
			}
			conds = append(conds, cond)
		}
		rule, err := buildRule(r.In, r.Out, conds)
		if err != nil {
			return nil, &CompileError{Field: field, Message: err.Error()}
		}
		decl.Rules = append(decl.Rules, rule)
	}

	return decl, nil
}

// DecodeGrid parses a YAML grid document of the form {rows: [...]}.
func DecodeGrid(data []byte) (*ir.GridDecl, error) {
	var grid ir.GridDecl
	if err := yaml.Unmarshal(data, &grid); err != nil {
		return nil, &CompileError{Field: "grid", Message: err.Error()}
	}
	if len(grid.Rows) == 0 {
		return nil, &CompileError{Field: "grid.rows", Message: "at least one row is required"}
	}
	return &grid, nil
}
