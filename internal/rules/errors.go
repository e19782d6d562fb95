package rules

import (
	"errors"
	"fmt"
)

// LoadErrorCode classifies structural ruleset errors.
type LoadErrorCode string

const (
	CodeDuplicateType           LoadErrorCode = "DUPLICATE_TYPE"
	CodeInvalidAxis             LoadErrorCode = "INVALID_AXIS"
	CodeUnknownType             LoadErrorCode = "UNKNOWN_TYPE"
	CodeUnknownAxis             LoadErrorCode = "UNKNOWN_AXIS"
	CodeInvalidAxisValue        LoadErrorCode = "INVALID_AXIS_VALUE"
	CodeIncompleteOutputPattern LoadErrorCode = "INCOMPLETE_OUTPUT_PATTERN"
	CodeInvalidPattern          LoadErrorCode = "INVALID_PATTERN"
	CodeInvalidCondition        LoadErrorCode = "INVALID_CONDITION"
	CodeEmptyRegistry           LoadErrorCode = "EMPTY_REGISTRY"
	CodeStateSpaceTooLarge      LoadErrorCode = "STATE_SPACE_TOO_LARGE"
	CodeRegistryFrozen          LoadErrorCode = "REGISTRY_FROZEN"
)

// Sentinels for errors.Is. Every *LoadError unwraps to the sentinel of its code.
var (
	ErrDuplicateType           = errors.New("duplicate type")
	ErrInvalidAxis             = errors.New("invalid axis")
	ErrUnknownType             = errors.New("unknown type")
	ErrUnknownAxis             = errors.New("unknown axis")
	ErrInvalidAxisValue        = errors.New("invalid axis value")
	ErrIncompleteOutputPattern = errors.New("incomplete output pattern")
	ErrInvalidPattern          = errors.New("invalid pattern")
	ErrInvalidCondition        = errors.New("invalid condition")
	ErrEmptyRegistry           = errors.New("empty registry")
	ErrStateSpaceTooLarge      = errors.New("state space too large")
	ErrRegistryFrozen          = errors.New("registry frozen")
)

var sentinels = map[LoadErrorCode]error{
	CodeDuplicateType:           ErrDuplicateType,
	CodeInvalidAxis:             ErrInvalidAxis,
	CodeUnknownType:             ErrUnknownType,
	CodeUnknownAxis:             ErrUnknownAxis,
	CodeInvalidAxisValue:        ErrInvalidAxisValue,
	CodeIncompleteOutputPattern: ErrIncompleteOutputPattern,
	CodeInvalidPattern:          ErrInvalidPattern,
	CodeInvalidCondition:        ErrInvalidCondition,
	CodeEmptyRegistry:           ErrEmptyRegistry,
	CodeStateSpaceTooLarge:      ErrStateSpaceTooLarge,
	CodeRegistryFrozen:          ErrRegistryFrozen,
}

// LoadError reports a structural problem found while loading a ruleset.
// Rule and Condition are -1 when the error is not tied to one.
type LoadError struct {
	Code      LoadErrorCode
	Type      string // cell type involved, if any
	Rule      int
	Condition int
	Message   string
}

func (e *LoadError) Error() string {
	switch {
	case e.Rule >= 0 && e.Condition >= 0:
		return fmt.Sprintf("%s: rule %d condition %d: %s", e.Code, e.Rule, e.Condition, e.Message)
	case e.Rule >= 0:
		return fmt.Sprintf("%s: rule %d: %s", e.Code, e.Rule, e.Message)
	case e.Type != "":
		return fmt.Sprintf("%s: type %q: %s", e.Code, e.Type, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Unwrap returns the sentinel for the error's code.
func (e *LoadError) Unwrap() error {
	return sentinels[e.Code]
}

// IsLoadError returns true if err is a LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

func typeError(code LoadErrorCode, typeName, format string, args ...any) *LoadError {
	return &LoadError{Code: code, Type: typeName, Rule: -1, Condition: -1, Message: fmt.Sprintf(format, args...)}
}
