package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRuleset() RulesetDecl {
	return RulesetDecl{
		Name: "circuit",
		Cells: []CellDecl{
			{Name: "air", Color: "#000000"},
			{Name: "wire", Color: "#888888"},
			{Name: "power", Color: "#ffff00", States: []AxisDecl{{Name: "source", Values: []string{"north", "south", "east", "west"}}}},
		},
		Rules: []RuleDecl{{
			In:  MustParsePattern("wire"),
			Out: MustParsePattern("power[source:west]"),
			Conditions: []ConditionDecl{
				{Dirs: []Direction{West}, Pattern: MustParsePattern("power")},
			},
		}},
	}
}

func TestRulesetHashDeterminism(t *testing.T) {
	h1, err := RulesetHash(sampleRuleset())
	require.NoError(t, err)
	h2, err := RulesetHash(sampleRuleset())
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "RulesetHash must be deterministic")
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestRulesetHashChangesWithRuleOrder(t *testing.T) {
	a := sampleRuleset()
	a.Rules = append(a.Rules, RuleDecl{In: MustParsePattern("power"), Out: MustParsePattern("wire")})

	b := sampleRuleset()
	b.Rules = append([]RuleDecl{{In: MustParsePattern("power"), Out: MustParsePattern("wire")}}, b.Rules...)

	ha, err := RulesetHash(a)
	require.NoError(t, err)
	hb, err := RulesetHash(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb, "rule order is part of ruleset identity")
}

func TestRulesetHashChangesWithCount(t *testing.T) {
	a := sampleRuleset()
	b := sampleRuleset()
	b.Rules[0].Conditions[0].Count = &CountSpec{Kind: CountExact, Values: []int{1}}

	assert.NotEqual(t, mustRulesetHash(t, a), mustRulesetHash(t, b))
}

func TestGenerationHash(t *testing.T) {
	cells := []string{"battery", "wire", "air"}

	h1 := MustGenerationHash(3, 1, cells)
	h2 := MustGenerationHash(3, 1, []string{"battery", "wire", "air"})
	assert.Equal(t, h1, h2)

	assert.NotEqual(t, h1, MustGenerationHash(1, 3, cells), "shape is part of identity")
	assert.NotEqual(t, h1, MustGenerationHash(3, 1, []string{"battery", "power[source:west]", "air"}))
}

func TestGenerationHashRejectsBadShape(t *testing.T) {
	_, err := GenerationHash(2, 2, []string{"air"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 cells for 2x2 grid")
}

func TestHashDomainSeparation(t *testing.T) {
	data := []byte(`{"a":1}`)
	assert.NotEqual(t,
		hashWithDomain(DomainRuleset, data),
		hashWithDomain(DomainGeneration, data),
		"same data under different domains must hash differently")
}

func mustRulesetHash(t *testing.T, decl RulesetDecl) string {
	t.Helper()
	h, err := RulesetHash(decl)
	require.NoError(t, err)
	return h
}
