package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainRuleset    = "cellsim/ruleset/v1"
	DomainGeneration = "cellsim/generation/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RulesetHash computes the content-addressed identity of a ruleset.
// Rule order is part of the identity; cell and axis declaration order is not
// significant for engine behavior but is hashed as declared.
func RulesetHash(decl RulesetDecl) (string, error) {
	canonical, err := MarshalCanonical(rulesetObject(decl))
	if err != nil {
		return "", fmt.Errorf("RulesetHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRuleset, canonical), nil
}

// GenerationHash computes the identity of one settled generation from the
// textual form of its cells in row-major order.
func GenerationHash(width, height int, cells []string) (string, error) {
	if len(cells) != width*height {
		return "", fmt.Errorf("GenerationHash: %d cells for %dx%d grid", len(cells), width, height)
	}
	canonical, err := MarshalCanonical(map[string]any{
		"width":  width,
		"height": height,
		"cells":  cells,
	})
	if err != nil {
		return "", fmt.Errorf("GenerationHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainGeneration, canonical), nil
}

// MustGenerationHash is like GenerationHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustGenerationHash(width, height int, cells []string) string {
	h, err := GenerationHash(width, height, cells)
	if err != nil {
		panic(err)
	}
	return h
}

func rulesetObject(decl RulesetDecl) map[string]any {
	cells := make([]any, len(decl.Cells))
	for i, c := range decl.Cells {
		states := make([]any, len(c.States))
		for j, a := range c.States {
			states[j] = map[string]any{"name": a.Name, "values": a.Values}
		}
		defaults := make(map[string]any, len(c.Defaults))
		for k, v := range c.Defaults {
			defaults[k] = v
		}
		cells[i] = map[string]any{
			"name":     c.Name,
			"color":    c.Color,
			"states":   states,
			"defaults": defaults,
		}
	}

	rules := make([]any, len(decl.Rules))
	for i, r := range decl.Rules {
		conds := make([]any, len(r.Conditions))
		for j, c := range r.Conditions {
			cond := map[string]any{
				"dirs": FormatDirections(c.Dirs),
				"type": c.Pattern.String(),
			}
			if c.Count != nil {
				cond["count"] = map[string]any{
					"kind":   string(c.Count.Kind),
					"values": c.Count.Values,
					"min":    c.Count.Min,
					"max":    c.Count.Max,
				}
			}
			conds[j] = cond
		}
		rules[i] = map[string]any{
			"in":         r.In.String(),
			"out":        r.Out.String(),
			"conditions": conds,
		}
	}

	return map[string]any{
		"name":     decl.Name,
		"boundary": decl.Boundary,
		"cells":    cells,
		"rules":    rules,
	}
}
