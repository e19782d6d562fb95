package ir

import (
	"fmt"
	"strings"
)

// NegationMarker prefixes a condition pattern to negate it as a whole.
const NegationMarker = "!"

// Wildcard stands in for the type name to match a state of any type.
// "*[axis:value]" matches any type that declares axis and holds value on it.
const Wildcard = "*"

// PatternRef is a parsed pattern: a type name (or Wildcard), optional axis
// constraints and a negation flag. Format: "type", "type[axis:value]",
// "type[a:x,b:y]", "*", "*[axis:value]", optionally prefixed with "!".
type PatternRef struct {
	Type        string           `json:"type"`
	Constraints []AxisConstraint `json:"constraints,omitempty"`
	Negated     bool             `json:"negated,omitempty"`
}

// AxisConstraint pins one axis to one value.
type AxisConstraint struct {
	Axis  string `json:"axis"`
	Value string `json:"value"`
}

// PatternError reports malformed pattern text.
type PatternError struct {
	Input   string
	Message string
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %s", e.Input, e.Message)
}

// ParsePattern parses pattern text.
func ParsePattern(text string) (PatternRef, error) {
	var p PatternRef
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, NegationMarker) {
		p.Negated = true
		s = strings.TrimSpace(strings.TrimPrefix(s, NegationMarker))
	}

	name, rest, hasBracket := strings.Cut(s, "[")
	name = strings.TrimSpace(name)
	if name != Wildcard && !ValidName(name) {
		return PatternRef{}, &PatternError{Input: text, Message: fmt.Sprintf("invalid type name %q", name)}
	}
	p.Type = name
	if !hasBracket {
		return p, nil
	}

	body, ok := strings.CutSuffix(strings.TrimSpace(rest), "]")
	if !ok {
		return PatternRef{}, &PatternError{Input: text, Message: "missing closing ']'"}
	}
	if strings.TrimSpace(body) == "" {
		return PatternRef{}, &PatternError{Input: text, Message: "empty axis constraint list"}
	}
	for _, part := range strings.Split(body, ",") {
		axis, value, ok := strings.Cut(part, ":")
		axis, value = strings.TrimSpace(axis), strings.TrimSpace(value)
		if !ok || !ValidName(axis) || !ValidName(value) {
			return PatternRef{}, &PatternError{Input: text, Message: fmt.Sprintf("constraint %q must be axis:value", strings.TrimSpace(part))}
		}
		p.Constraints = append(p.Constraints, AxisConstraint{Axis: axis, Value: value})
	}
	return p, nil
}

// IsWildcard reports whether the pattern matches states of any type.
func (p PatternRef) IsWildcard() bool { return p.Type == Wildcard }

// MustParsePattern is like ParsePattern but panics on error.
// Use only in tests or with literal input.
func MustParsePattern(text string) PatternRef {
	p, err := ParsePattern(text)
	if err != nil {
		panic(err)
	}
	return p
}

// String renders the pattern in its textual form.
func (p PatternRef) String() string {
	var b strings.Builder
	if p.Negated {
		b.WriteString(NegationMarker)
	}
	b.WriteString(p.Type)
	if len(p.Constraints) > 0 {
		b.WriteByte('[')
		for i, c := range p.Constraints {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(c.Axis)
			b.WriteByte(':')
			b.WriteString(c.Value)
		}
		b.WriteByte(']')
	}
	return b.String()
}

// MarshalText implements encoding.TextMarshaler.
func (p PatternRef) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PatternRef) UnmarshalText(data []byte) error {
	parsed, err := ParsePattern(string(data))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ValidName reports whether s is usable as a type, axis or value name.
func ValidName(s string) bool {
	if s == "" {
		return false
	}
	return !strings.ContainsAny(s, "[]:,!* \t\r\n")
}
