package parse

import (
	"fmt"
	"strings"
	"testing"

	"github.com/dhamidi/ixml/grammar"
)

func analyzeGrammar(t *testing.T, src string) *Analysis {
	t.Helper()
	g, err := grammar.ParseString("test", src)
	if err != nil {
		t.Fatalf("parse grammar: %v", err)
	}
	return Analyze(g)
}

func TestNullableRules(t *testing.T) {
	a := analyzeGrammar(t, `
		empty: .
		stars: "x"*.
		opt: "x"?.
		chain: empty, stars.
		hard: "x", stars.
		insert: +"out".
		class: ["a"].
	`)

	wantNullable := []string{"empty", "stars", "opt", "chain", "insert"}
	for _, name := range wantNullable {
		if !a.Nullable[name] {
			t.Errorf("rule %q should be nullable", name)
		}
	}
	for _, name := range []string{"hard", "class"} {
		if a.Nullable[name] {
			t.Errorf("rule %q should not be nullable", name)
		}
	}
}

func TestNullableThroughGroups(t *testing.T) {
	a := analyzeGrammar(t, `
		top: ("x"? | "y").
		blocked: ("x" | "y").
	`)
	if !a.Nullable["top"] {
		t.Error("group with a nullable alternative should make the rule nullable")
	}
	if a.Nullable["blocked"] {
		t.Error("group with no nullable alternative must not be nullable")
	}
}

func TestRecursionDetection(t *testing.T) {
	a := analyzeGrammar(t, `
		expr: expr, "+", term | term.
		term: "(", expr, ")" | "x".
		flat: "y".
		tail: "a", tail | "a".
	`)

	for _, name := range []string{"expr", "term", "tail"} {
		if !a.Recursive[name] {
			t.Errorf("rule %q should be recursive", name)
		}
	}
	if a.Recursive["flat"] {
		t.Error("rule flat should not be recursive")
	}

	if !a.LeftRecursive["expr"] {
		t.Error("rule expr should be left-recursive")
	}
	if a.LeftRecursive["term"] {
		t.Error("rule term should not be left-recursive")
	}
	if a.LeftRecursive["tail"] {
		t.Error("right recursion must not count as left recursion")
	}
}

func TestIndirectLeftRecursion(t *testing.T) {
	a := analyzeGrammar(t, `
		a: b, "x".
		b: c | "y".
		c: a.
	`)
	for _, name := range []string{"a", "b", "c"} {
		if !a.LeftRecursive[name] {
			t.Errorf("rule %q should be left-recursive through the cycle", name)
		}
	}
}

func TestLeftRecursionThroughNullablePrefix(t *testing.T) {
	a := analyzeGrammar(t, `
		expr: ws, expr, "+" | "x".
		ws: " "*.
	`)
	if !a.LeftRecursive["expr"] {
		t.Error("nullable prefix must not hide left recursion")
	}
}

func TestLeftRecursionBlockedByTerminal(t *testing.T) {
	a := analyzeGrammar(t, `
		expr: "(", expr, ")" | "x".
	`)
	if a.LeftRecursive["expr"] {
		t.Error("a leading terminal blocks left recursion")
	}
	if !a.Recursive["expr"] {
		t.Error("expr is still recursive")
	}
}

func TestDenselyMutualRecursion(t *testing.T) {
	// A cycle long enough to blow a native recursive traversal if one
	// sneaks back into the analyzer.
	const n = 2000
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "r%d: r%d.\n", i, (i+1)%n)
	}
	a := analyzeGrammar(t, b.String())
	if !a.LeftRecursive["r0"] || !a.Recursive["r1000"] {
		t.Error("cycle through the whole chain should mark every rule recursive")
	}
}

func TestAmbiguityNullableAlternatives(t *testing.T) {
	a := analyzeGrammar(t, `top: "a"* | "b"*.`)
	if !a.Ambiguous {
		t.Error("two nullable alternatives should raise suspicion")
	}
}

func TestAmbiguitySharedNullableLeader(t *testing.T) {
	a := analyzeGrammar(t, `
		top: spaces, "x" | spaces, "y".
		spaces: " "*.
	`)
	if !a.Ambiguous {
		t.Error("alternatives led by the same nullable nonterminal should raise suspicion")
	}
}

func TestAmbiguityIdenticalAlternatives(t *testing.T) {
	a := analyzeGrammar(t, `a: "x" | "x".`)
	if !a.Ambiguous {
		t.Error("identical alternatives should raise suspicion")
	}
	if len(a.AmbiguousRules) != 1 || a.AmbiguousRules[0] != "a" {
		t.Errorf("AmbiguousRules = %v, want [a]", a.AmbiguousRules)
	}
}

func TestUnambiguousGrammar(t *testing.T) {
	a := analyzeGrammar(t, `
		date: year, "-", month.
		year: digit, digit, digit, digit.
		month: digit, digit.
		digit: ["0"-"9"].
	`)
	if a.Ambiguous {
		t.Errorf("no suspicion expected, got rules %v", a.AmbiguousRules)
	}
}

func TestComplexityScores(t *testing.T) {
	a := analyzeGrammar(t, `
		simple: "x".
		busy: "a", ("b" | "c"), "d" | "e" | "f".
	`)
	if a.Complexity["simple"] >= a.Complexity["busy"] {
		t.Errorf("complexity simple=%d busy=%d; busy should score higher",
			a.Complexity["simple"], a.Complexity["busy"])
	}
}

func TestAnalysisReport(t *testing.T) {
	a := analyzeGrammar(t, `
		expr: expr, "+", "x" | "x" | "x".
	`)
	report := a.Report()
	if !strings.Contains(report, "ambiguous") {
		t.Errorf("report should mention ambiguity:\n%s", report)
	}
	if !strings.Contains(report, "left-recursive") {
		t.Errorf("report should list left-recursive rules:\n%s", report)
	}
	if !strings.Contains(report, "expr") {
		t.Errorf("report should name the rule:\n%s", report)
	}

	clean := analyzeGrammar(t, `a: "x".`)
	if got := clean.Report(); !strings.Contains(got, "no issues") {
		t.Errorf("clean grammar report = %q", got)
	}
}
