package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cellsim/internal/ir"
)

func rule(in, out string, conds ...ir.ConditionDecl) ir.RuleDecl {
	return ir.RuleDecl{In: ir.MustParsePattern(in), Out: ir.MustParsePattern(out), Conditions: conds}
}

func cond(dirs, pattern string) ir.ConditionDecl {
	d, err := ir.ParseDirections(dirs)
	if err != nil {
		panic(err)
	}
	return ir.ConditionDecl{Dirs: d, Pattern: ir.MustParsePattern(pattern)}
}

func TestAnalyzeRulesEmpty(t *testing.T) {
	warnings := AnalyzeRules(&ir.RulesetDecl{})
	assert.Empty(t, warnings)
	assert.NotNil(t, warnings)
}

func TestAnalyzeRulesAcyclic(t *testing.T) {
	decl := &ir.RulesetDecl{Rules: []ir.RuleDecl{
		rule("sand", "glass", cond("n", "fire")),
		rule("glass", "shard", cond("s", "rock")),
	}}
	assert.Empty(t, AnalyzeRules(decl))
}

func TestAnalyzeRulesShadowed(t *testing.T) {
	decl := &ir.RulesetDecl{Rules: []ir.RuleDecl{
		rule("power", "wire"),
		rule("power[source:west]", "wire", cond("w", "battery")),
		rule("wire", "power[source:west]", cond("w", "battery")),
	}}

	var shadowed []RuleWarning
	for _, w := range AnalyzeRules(decl) {
		if w.Level == "warning" {
			shadowed = append(shadowed, w)
		}
	}
	require.Len(t, shadowed, 1)
	assert.Equal(t, []int{0, 1}, shadowed[0].Rules)
	assert.Contains(t, shadowed[0].Message, "rule 1")
}

func TestAnalyzeRulesConditionalRuleDoesNotShadow(t *testing.T) {
	decl := &ir.RulesetDecl{Rules: []ir.RuleDecl{
		rule("wire", "power[source:west]", cond("w", "battery")),
		rule("wire", "power[source:east]", cond("e", "battery")),
	}}
	for _, w := range AnalyzeRules(decl) {
		assert.NotEqual(t, "warning", w.Level)
	}
}

func TestAnalyzeRulesTransitionCycle(t *testing.T) {
	decl := &ir.RulesetDecl{Rules: []ir.RuleDecl{
		rule("wire", "power[source:west]", cond("w", "battery")),
		rule("power[source:west]", "wire", cond("w", "!battery")),
	}}

	warnings := AnalyzeRules(decl)
	require.Len(t, warnings, 1)
	assert.Equal(t, "info", warnings[0].Level)
	assert.Equal(t, []string{"power", "wire", "power"}, warnings[0].Path)
	assert.Contains(t, warnings[0].Message, "power -> wire -> power")
}

func TestAnalyzeRulesSelfLoop(t *testing.T) {
	decl := &ir.RulesetDecl{Rules: []ir.RuleDecl{
		rule("power[source:west]", "power[source:east]", cond("e", "battery")),
		rule("air", "air"),
	}}

	warnings := AnalyzeRules(decl)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"power", "power"}, warnings[0].Path)
}
