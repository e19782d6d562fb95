package cli

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue/token"

	"github.com/roach88/cellsim/internal/compiler"
	"github.com/roach88/cellsim/internal/engine"
	"github.com/roach88/cellsim/internal/ir"
	"github.com/roach88/cellsim/internal/rules"
)

// LoadedRuleset is a compiled, validated and loaded ruleset file.
type LoadedRuleset struct {
	Path     string
	Decl     *ir.RulesetDecl
	Registry *rules.Registry
	Table    *rules.Table
	Hash     string
}

// LoadError represents an error that occurred while loading a ruleset or grid.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeCompile     = "E004" // Ruleset source did not compile
	ErrCodeInvalid     = "E006" // Ruleset failed validation
	ErrCodeLoad        = "E008" // Ruleset failed to load into a rule table
	ErrCodeGrid        = "E009" // Grid file or dimensions invalid
	ErrCodeWriteFailed = "E007" // File write error
)

// LoadRuleset reads, compiles, validates and loads a ruleset file.
// Validation stops at the first error; use ValidateRulesetFile to collect
// all of them.
func LoadRuleset(path string) (*LoadedRuleset, error) {
	decl, err := compileRulesetFile(path)
	if err != nil {
		return nil, err
	}
	if errs := compiler.Validate(decl); len(errs) > 0 {
		return nil, &LoadError{Code: ErrCodeInvalid, Message: errs[0].Error()}
	}
	return loadDecl(path, decl)
}

// compileRulesetFile reads and compiles a ruleset in any supported format.
func compileRulesetFile(path string) (*ir.RulesetDecl, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("ruleset not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("reading ruleset: %v", err)}
	}

	decl, err := compiler.Decode(path, data)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return decl, nil
}

// loadDecl builds the registry and rule table for a validated declaration.
func loadDecl(path string, decl *ir.RulesetDecl) (*LoadedRuleset, error) {
	reg, table, err := rules.LoadRuleset(decl)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoad, Message: err.Error()}
	}
	hash, err := ir.RulesetHash(*decl)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("hashing ruleset: %v", err)}
	}
	return &LoadedRuleset{Path: path, Decl: decl, Registry: reg, Table: table, Hash: hash}, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeCompile,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeCompile, Message: err.Error()}
}

// GridSource selects how the initial grid is built: from a grid file, or
// as a seeded random fill of Width x Height.
type GridSource struct {
	File   string
	Width  int
	Height int
	Seed   uint64
	Types  []string // restrict the random fill to these types
}

// Build creates the initial grid for a ruleset.
func (g GridSource) Build(rs *LoadedRuleset) (*engine.Grid, error) {
	boundary := rs.Table.Boundary()
	if g.File != "" {
		data, err := os.ReadFile(g.File)
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("grid file not found: %s", g.File)}
		}
		if err != nil {
			return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("reading grid: %v", err)}
		}
		decl, err := compiler.DecodeGrid(data)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeGrid, Message: err.Error()}
		}
		grid, err := engine.GridFromDecl(rs.Registry, decl, boundary)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeGrid, Message: err.Error()}
		}
		return grid, nil
	}

	if g.Width <= 0 || g.Height <= 0 {
		return nil, &LoadError{Code: ErrCodeGrid, Message: "either --grid or a positive --width and --height is required"}
	}
	grid, err := engine.NewGrid(g.Width, g.Height, boundary, boundary)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGrid, Message: err.Error()}
	}
	if err := engine.Randomize(grid, rs.Registry, g.Seed, g.Types...); err != nil {
		return nil, &LoadError{Code: ErrCodeGrid, Message: err.Error()}
	}
	return grid, nil
}

// loadErrorCode returns the LoadError code of err, or ErrCodeGeneric.
func loadErrorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return ErrCodeGeneric
}
