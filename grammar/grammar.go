// Package grammar defines the AST for Invisible XML grammars and parses
// the ixml grammar notation into it.
package grammar

import "fmt"

// Mark controls how matched content is shaped into the output tree.
type Mark int

const (
	NoMark       Mark = iota // matched content becomes a visible element
	MarkAttribute            // @ - content becomes an attribute of the enclosing element
	MarkHidden               // - - content is consumed but produces no wrapper
	MarkPromoted             // ^ - content is forced visible, overriding other marks
)

func (m Mark) String() string {
	switch m {
	case MarkAttribute:
		return "@"
	case MarkHidden:
		return "-"
	case MarkPromoted:
		return "^"
	default:
		return ""
	}
}

// Repetition is the repeat operator attached to a factor.
type Repetition int

const (
	RepNone       Repetition = iota
	RepOptional              // ?
	RepZeroOrMore            // *
	RepOneOrMore             // +
	RepSepZeroOrMore         // **sep
	RepSepOneOrMore          // ++sep
)

// Separated reports whether the repetition carries a separator sequence.
func (r Repetition) Separated() bool {
	return r == RepSepZeroOrMore || r == RepSepOneOrMore
}

// PermitsZero reports whether the repetition allows zero occurrences.
func (r Repetition) PermitsZero() bool {
	return r == RepOptional || r == RepZeroOrMore || r == RepSepZeroOrMore
}

// Term is a base factor: a nonterminal reference, a terminal literal,
// a character class, or a parenthesized group.
type Term interface {
	term()
}

// Nonterminal references another rule by name.
type Nonterminal struct {
	Name string
	Mark Mark
}

// Literal matches (or, for insertions, produces) a fixed string.
type Literal struct {
	Value     string
	Insertion bool // +"text": output without consuming input
	Mark      Mark
}

// CharClass matches a single codepoint against a set specification.
// Spec is the raw text between the brackets; it is interpreted by the
// parse package when the grammar is prepared for interpretation.
type CharClass struct {
	Spec    string
	Negated bool // ~[...]
	Mark    Mark
}

// Group is a parenthesized set of alternatives, equivalent to an
// anonymous inlined rule.
type Group struct {
	Alts Alternatives
}

func (*Nonterminal) term() {}
func (*Literal) term()     {}
func (*CharClass) term()   {}
func (*Group) term()       {}

// Factor is a term with an optional repetition. Sep is the separator
// sequence for the ** and ++ forms and nil otherwise.
type Factor struct {
	Term Term
	Rep  Repetition
	Sep  Sequence
}

// Sequence is an ordered run of factors, all of which must match.
type Sequence []Factor

// Alternatives is an ordered set of sequences, one of which must match.
type Alternatives []Sequence

// Rule is a named production with a rule-level mark.
type Rule struct {
	Name string
	Mark Mark
	Alts Alternatives
}

// Grammar is an ordered set of uniquely named rules. The first rule is
// the start rule. A Grammar is immutable after construction and safe
// for concurrent use.
type Grammar struct {
	Rules  []*Rule
	byName map[string]*Rule
}

// New builds a grammar from rules, indexing them by name.
// Duplicate rule names and empty grammars are errors.
func New(rules []*Rule) (*Grammar, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("grammar has no rules")
	}
	byName := make(map[string]*Rule, len(rules))
	for _, r := range rules {
		if _, dup := byName[r.Name]; dup {
			return nil, fmt.Errorf("duplicate rule %q", r.Name)
		}
		byName[r.Name] = r
	}
	return &Grammar{Rules: rules, byName: byName}, nil
}

// Get returns the named rule, or nil.
func (g *Grammar) Get(name string) *Rule {
	return g.byName[name]
}

// Start returns the start rule (the first rule declared).
func (g *Grammar) Start() *Rule {
	return g.Rules[0]
}
