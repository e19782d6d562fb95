package rules

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cellsim/internal/ir"
)

func lampDecl() ir.CellDecl {
	return ir.CellDecl{
		Name:  "lamp",
		Color: "#ffffff",
		States: []ir.AxisDecl{
			{Name: "lit", Values: []string{"no", "yes"}},
			{Name: "level", Values: []string{"0", "1", "2"}},
		},
		Defaults: map[string]string{"level": "1"},
	}
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(ir.CellDecl{Name: "air"}))
	require.NoError(t, reg.Register(lampDecl()))

	lamp, err := reg.Lookup("lamp")
	require.NoError(t, err)
	assert.Equal(t, 1, lamp.Index())
	assert.Equal(t, 6, lamp.NumStates())
	assert.Equal(t, 7, reg.NumStates())
	assert.Equal(t, "level", lamp.Axes[0].Name, "axes are sorted by name")
	assert.Equal(t, "lit", lamp.Axes[1].Name)

	_, err = reg.Lookup("torch")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownType))
}

func TestRegistryRegisterErrors(t *testing.T) {
	tests := []struct {
		name     string
		decl     ir.CellDecl
		sentinel error
	}{
		{"duplicate type", ir.CellDecl{Name: "air"}, ErrDuplicateType},
		{"empty axis", ir.CellDecl{Name: "x", States: []ir.AxisDecl{{Name: "a"}}}, ErrInvalidAxis},
		{"duplicate axis", ir.CellDecl{Name: "x", States: []ir.AxisDecl{
			{Name: "a", Values: []string{"1"}},
			{Name: "a", Values: []string{"2"}},
		}}, ErrInvalidAxis},
		{"duplicate value", ir.CellDecl{Name: "x", States: []ir.AxisDecl{{Name: "a", Values: []string{"1", "1"}}}}, ErrInvalidAxis},
		{"reserved character", ir.CellDecl{Name: "x", States: []ir.AxisDecl{{Name: "a", Values: []string{"b:c"}}}}, ErrInvalidAxis},
		{"bad type name", ir.CellDecl{Name: "x[y]"}, ErrInvalidPattern},
		{"default unknown axis", ir.CellDecl{Name: "x", Defaults: map[string]string{"a": "1"}}, ErrUnknownAxis},
		{"default unknown value", ir.CellDecl{Name: "x", States: []ir.AxisDecl{{Name: "a", Values: []string{"1"}}}, Defaults: map[string]string{"a": "2"}}, ErrInvalidAxisValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			require.NoError(t, reg.Register(ir.CellDecl{Name: "air"}))

			err := reg.Register(tt.decl)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.True(t, IsLoadError(err))
		})
	}
}

func TestRegistryStateSpaceTooLarge(t *testing.T) {
	values := make([]string, 1024)
	for i := range values {
		values[i] = fmt.Sprintf("v%d", i)
	}
	reg := NewRegistry()
	err := reg.Register(ir.CellDecl{Name: "huge", States: []ir.AxisDecl{
		{Name: "x", Values: values},
		{Name: "y", Values: values},
		{Name: "z", Values: values[:2]},
	}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStateSpaceTooLarge)
}

func TestRegistryFrozen(t *testing.T) {
	reg := NewRegistry()
	reg.Freeze()
	assert.True(t, reg.Frozen())

	err := reg.Register(ir.CellDecl{Name: "air"})
	assert.ErrorIs(t, err, ErrRegistryFrozen)
}

func TestRegistryStatesRoundTrip(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(ir.CellDecl{Name: "air"}))
	require.NoError(t, reg.Register(lampDecl()))

	seen := make(map[State]bool)
	for s := State(0); int(s) < reg.NumStates(); s++ {
		text := reg.String(s)
		parsed, err := reg.ParseState(text)
		require.NoError(t, err, text)
		assert.Equal(t, s, parsed, text)
		assert.False(t, seen[s])
		seen[s] = true
	}
	assert.Equal(t, "air", reg.String(0))
}

func TestRegistryMakeAndValue(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(lampDecl()))

	s, err := reg.Make("lamp", map[string]string{"lit": "yes", "level": "2"})
	require.NoError(t, err)
	assert.Equal(t, "lamp[level:2,lit:yes]", reg.String(s))

	v, err := reg.Value(s, "lit")
	require.NoError(t, err)
	assert.Equal(t, "yes", v)

	_, err = reg.Value(s, "hue")
	assert.ErrorIs(t, err, ErrUnknownAxis)

	_, err = reg.Make("lamp", map[string]string{"lit": "maybe"})
	assert.ErrorIs(t, err, ErrInvalidAxisValue)

	_, err = reg.Make("lamp", map[string]string{"hue": "red"})
	assert.ErrorIs(t, err, ErrUnknownAxis)
}

func TestRegistryDefault(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(lampDecl()))

	s, err := reg.Default("lamp")
	require.NoError(t, err)
	// declared default for level, first value for lit
	assert.Equal(t, "lamp[level:1,lit:no]", reg.String(s))

	partial, err := reg.ParseState("lamp[lit:yes]")
	require.NoError(t, err)
	assert.Equal(t, "lamp[level:1,lit:yes]", reg.String(partial))
}

func TestRegistryParseStateErrors(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(lampDecl()))

	for _, text := range []string{"!lamp", "lamp[lit:yes,lit:no]", "torch", "lamp[", "lamp[hue:red]"} {
		t.Run(text, func(t *testing.T) {
			_, err := reg.ParseState(text)
			require.Error(t, err)
		})
	}
}

func TestRegistryTypeOf(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(ir.CellDecl{Name: "air"}))
	require.NoError(t, reg.Register(lampDecl()))

	assert.Equal(t, "air", reg.TypeOf(0).Name)
	assert.Equal(t, "lamp", reg.TypeOf(6).Name)
	assert.Nil(t, reg.TypeOf(7))
	assert.Contains(t, reg.String(99), "invalid state")

	types := reg.Types()
	require.Len(t, types, 2)
	types[0] = nil
	assert.NotNil(t, reg.Types()[0], "Types returns a copy")
}
