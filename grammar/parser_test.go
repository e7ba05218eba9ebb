package grammar

import (
	"strings"
	"testing"
)

func mustParse(t *testing.T, src string) *Grammar {
	t.Helper()
	g, err := ParseString("test", src)
	if err != nil {
		t.Fatalf("parse grammar: %v", err)
	}
	return g
}

func TestParseRuleWithLiteral(t *testing.T) {
	g := mustParse(t, `rule: "hello".`)

	if len(g.Rules) != 1 {
		t.Fatalf("got %d rules, want 1", len(g.Rules))
	}
	rule := g.Rules[0]
	if rule.Name != "rule" || rule.Mark != NoMark {
		t.Errorf("rule = %q mark %v", rule.Name, rule.Mark)
	}
	lit, ok := rule.Alts[0][0].Term.(*Literal)
	if !ok {
		t.Fatalf("term is %T, want *Literal", rule.Alts[0][0].Term)
	}
	if lit.Value != "hello" || lit.Insertion {
		t.Errorf("literal = %+v", lit)
	}
}

func TestParseAlternatives(t *testing.T) {
	g := mustParse(t, `rule: "hello" | "world"; other.`)
	if len(g.Rules[0].Alts) != 3 {
		t.Errorf("got %d alternatives, want 3", len(g.Rules[0].Alts))
	}
}

func TestParseMultipleRules(t *testing.T) {
	g := mustParse(t, `
		rule1: "hello".
		rule2: "world".
	`)
	if len(g.Rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(g.Rules))
	}
	if g.Start().Name != "rule1" {
		t.Errorf("start rule = %q, want rule1", g.Start().Name)
	}
	if g.Get("rule2") == nil {
		t.Error("Get(rule2) returned nil")
	}
}

func TestParseDuplicateRule(t *testing.T) {
	_, err := ParseString("test", `a: "x". a: "y".`)
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("expected duplicate rule error, got %v", err)
	}
}

func TestParseRepetitions(t *testing.T) {
	tests := []struct {
		src     string
		rep     Repetition
		sepLen  int
	}{
		{`list: item?.`, RepOptional, 0},
		{`list: item*.`, RepZeroOrMore, 0},
		{`list: item+.`, RepOneOrMore, 0},
		{`list: item**", ".`, RepSepZeroOrMore, 1},
		{`list: item++(-",", sp).`, RepSepOneOrMore, 2},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			g := mustParse(t, tt.src)
			f := g.Rules[0].Alts[0][0]
			if f.Rep != tt.rep {
				t.Errorf("repetition = %v, want %v", f.Rep, tt.rep)
			}
			if len(f.Sep) != tt.sepLen {
				t.Errorf("separator length = %d, want %d", len(f.Sep), tt.sepLen)
			}
		})
	}
}

func TestParseMarks(t *testing.T) {
	g := mustParse(t, `element: @id, -sep, ^content.`)

	factors := g.Rules[0].Alts[0]
	wantMarks := []Mark{MarkAttribute, MarkHidden, MarkPromoted}
	for i, want := range wantMarks {
		nt, ok := factors[i].Term.(*Nonterminal)
		if !ok {
			t.Fatalf("factor %d is %T, want *Nonterminal", i, factors[i].Term)
		}
		if nt.Mark != want {
			t.Errorf("factor %d mark = %v, want %v", i, nt.Mark, want)
		}
	}
}

func TestParseRuleLevelMarks(t *testing.T) {
	g := mustParse(t, `
		-hidden: "a".
		@attr: "b".
		^promoted: "c".
	`)
	wantMarks := map[string]Mark{"hidden": MarkHidden, "attr": MarkAttribute, "promoted": MarkPromoted}
	for name, want := range wantMarks {
		if got := g.Get(name).Mark; got != want {
			t.Errorf("rule %q mark = %v, want %v", name, got, want)
		}
	}
}

func TestParseInsertion(t *testing.T) {
	g := mustParse(t, `tag: +"<".`)
	lit, ok := g.Rules[0].Alts[0][0].Term.(*Literal)
	if !ok || !lit.Insertion {
		t.Fatalf("term = %#v, want insertion literal", g.Rules[0].Alts[0][0].Term)
	}
	if lit.Value != "<" {
		t.Errorf("insertion value = %q, want %q", lit.Value, "<")
	}
}

func TestParseCharClass(t *testing.T) {
	g := mustParse(t, `digit: ["0"-"9"]. other: ~[Lu; "x"].`)

	cls := g.Get("digit").Alts[0][0].Term.(*CharClass)
	if cls.Spec != `"0"-"9"` || cls.Negated {
		t.Errorf("class = %+v", cls)
	}
	neg := g.Get("other").Alts[0][0].Term.(*CharClass)
	if !neg.Negated {
		t.Errorf("expected negated class, got %+v", neg)
	}
}

func TestParseHexLiteral(t *testing.T) {
	g := mustParse(t, `nl: #A. ins: +#2E.`)
	if lit := g.Get("nl").Alts[0][0].Term.(*Literal); lit.Value != "\n" {
		t.Errorf("hex literal = %q, want newline", lit.Value)
	}
	if lit := g.Get("ins").Alts[0][0].Term.(*Literal); lit.Value != "." || !lit.Insertion {
		t.Errorf("hex insertion = %+v", lit)
	}
}

func TestParseGrouping(t *testing.T) {
	g := mustParse(t, `rule: ("a" | "b")+.`)
	f := g.Rules[0].Alts[0][0]
	if f.Rep != RepOneOrMore {
		t.Errorf("repetition = %v, want one-or-more", f.Rep)
	}
	group, ok := f.Term.(*Group)
	if !ok {
		t.Fatalf("term is %T, want *Group", f.Term)
	}
	if len(group.Alts) != 2 {
		t.Errorf("group has %d alternatives, want 2", len(group.Alts))
	}
}

func TestParseEmptyAlternative(t *testing.T) {
	g := mustParse(t, `ws: ; " ".`)
	if len(g.Rules[0].Alts) != 2 {
		t.Fatalf("got %d alternatives, want 2", len(g.Rules[0].Alts))
	}
	if len(g.Rules[0].Alts[0]) != 0 {
		t.Errorf("first alternative has %d factors, want 0", len(g.Rules[0].Alts[0]))
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing period", `rule: "hello"`},
		{"missing colon", `rule "hello".`},
		{"dangling mark", `rule: @.`},
		{"empty input", ``},
		{"unclosed group", `rule: ("a" | "b".`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseString("test", tt.src); err == nil {
				t.Errorf("expected error for %q", tt.src)
			}
		})
	}
}

func TestParseReader(t *testing.T) {
	g, err := Parse("test.ixml", strings.NewReader(`greeting: "hi".`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if g.Start().Name != "greeting" {
		t.Errorf("start = %q", g.Start().Name)
	}
}
