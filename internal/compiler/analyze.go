package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/cellsim/internal/ir"
)

// RuleWarning reports a static finding about a rule table.
//
// Findings are warnings, not errors: a shadowed rule is usually a mistake,
// while a transition cycle is how oscillators and signal wires work.
type RuleWarning struct {
	Rules   []int    `json:"rules,omitempty"` // rule indices involved
	Path    []string `json:"path,omitempty"`  // transition cycle: ["wire", "power", "wire"]
	Message string   `json:"message"`
	Level   string   `json:"level"` // "warning" or "info"
}

// AnalyzeRules performs static analysis on an ordered rule list.
//
//  1. Shadowing: rule j can never fire when an earlier unconditional rule i
//     matches every state rule j matches.
//  2. Transition cycles: build a type -> type graph from in/out patterns and
//     report strongly connected components (Tarjan) as info.
//
// An acyclic table with no shadowed rules returns an empty list.
func AnalyzeRules(decl *ir.RulesetDecl) []RuleWarning {
	warnings := []RuleWarning{}
	if len(decl.Rules) == 0 {
		return warnings
	}

	warnings = append(warnings, findShadowedRules(decl.Rules)...)

	graph := buildTransitionGraph(decl.Rules)
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}

	return warnings
}

// findShadowedRules reports rules hidden behind an earlier catch-all.
func findShadowedRules(rules []ir.RuleDecl) []RuleWarning {
	var warnings []RuleWarning
	for j := range rules {
		for i := 0; i < j; i++ {
			if len(rules[i].Conditions) == 0 && subsumes(rules[i].In, rules[j].In) {
				warnings = append(warnings, RuleWarning{
					Rules:   []int{i, j},
					Message: fmt.Sprintf("rule %d (%s) is unreachable: rule %d (%s) always fires first", j, rules[j].In, i, rules[i].In),
					Level:   "warning",
				})
				break
			}
		}
	}
	return warnings
}

// subsumes reports whether every state matched by b is matched by a.
// Both are input patterns, so neither is negated.
func subsumes(a, b ir.PatternRef) bool {
	if a.Type != b.Type {
		return false
	}
	for _, ca := range a.Constraints {
		if !slices.Contains(b.Constraints, ca) {
			return false
		}
	}
	return true
}

// transitionGraph maps type -> types it can be rewritten into.
type transitionGraph map[string][]string

// buildTransitionGraph adds an edge in.Type -> out.Type for each rule that
// changes the cell. Nodes are visited in rule order for stable output.
func buildTransitionGraph(rules []ir.RuleDecl) transitionGraph {
	graph := make(transitionGraph)
	for _, r := range rules {
		from, to := r.In.Type, r.Out.Type
		if graph[from] == nil {
			graph[from] = []string{}
		}
		if graph[to] == nil {
			graph[to] = []string{}
		}
		if from == to && slices.Equal(r.In.Constraints, r.Out.Constraints) {
			continue // identity rewrite
		}
		if !slices.Contains(graph[from], to) {
			graph[from] = append(graph[from], to)
		}
	}
	return graph
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph transitionGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Returns a list of SCCs, where each SCC is a list of type names.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph transitionGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack and emit an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	// Sorted visit order keeps the report deterministic.
	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cycleSCCToWarning converts an SCC to an info-level RuleWarning.
func cycleSCCToWarning(scc []string, graph transitionGraph) RuleWarning {
	if len(scc) == 1 {
		name := scc[0]
		return RuleWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("type %s rewrites into itself", name),
			Level:   "info",
		}
	}

	path := reconstructCyclePath(scc, graph)
	return RuleWarning{
		Path:    path,
		Message: fmt.Sprintf("transition cycle: %s", strings.Join(path, " -> ")),
		Level:   "info",
	}
}

// reconstructCyclePath walks edges inside the SCC from its first member
// until it returns to the start.
func reconstructCyclePath(scc []string, graph transitionGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}
