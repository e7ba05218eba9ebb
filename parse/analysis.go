package parse

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dhamidi/ixml/grammar"
)

// Analysis is the one-time static report over a grammar. It is
// computed by New, immutable afterwards, and consulted by the engine
// to route left-recursive rules through seed growing. All traversals
// over the rule dependency graph are iterative; a densely mutually
// recursive grammar must never be able to blow the analyzer's stack.
type Analysis struct {
	// Nullable holds the rules able to match empty input.
	Nullable map[string]bool

	// Recursive holds the rules that can reach themselves at any
	// position; LeftRecursive the subset reachable at the leftmost
	// position through nullable prefixes.
	Recursive     map[string]bool
	LeftRecursive map[string]bool

	// Ambiguous is a heuristic suspicion flag, not a soundness
	// guarantee. AmbiguousRules names the rules that triggered it.
	Ambiguous      bool
	AmbiguousRules []string

	// Complexity scores each rule by alternative count, sequence
	// length and nested group size.
	Complexity map[string]int
}

// Analyze runs the full static analysis over g.
func Analyze(g *grammar.Grammar) *Analysis {
	a := &Analysis{
		Nullable:      make(map[string]bool),
		Recursive:     make(map[string]bool),
		LeftRecursive: make(map[string]bool),
		Complexity:    make(map[string]int),
	}
	a.computeNullable(g)
	a.computeRecursion(g)
	a.computeAmbiguity(g)
	for _, r := range g.Rules {
		a.Complexity[r.Name] = complexity(r.Alts)
	}
	return a
}

// computeNullable iterates to a fixpoint: a rule is nullable when some
// alternative has every factor nullable.
func (a *Analysis) computeNullable(g *grammar.Grammar) {
	for changed := true; changed; {
		changed = false
		for _, r := range g.Rules {
			if a.Nullable[r.Name] {
				continue
			}
			if a.altsNullable(r.Alts) {
				a.Nullable[r.Name] = true
				changed = true
			}
		}
	}
}

func (a *Analysis) altsNullable(alts grammar.Alternatives) bool {
	for _, seq := range alts {
		if a.seqNullable(seq) {
			return true
		}
	}
	return false
}

func (a *Analysis) seqNullable(seq grammar.Sequence) bool {
	for _, f := range seq {
		if !a.factorNullable(f) {
			return false
		}
	}
	return true
}

func (a *Analysis) factorNullable(f grammar.Factor) bool {
	if f.Rep.PermitsZero() {
		return true
	}
	return a.termNullable(f.Term)
}

func (a *Analysis) termNullable(t grammar.Term) bool {
	switch t := t.(type) {
	case *grammar.Nonterminal:
		return a.Nullable[t.Name]
	case *grammar.Literal:
		// Insertions consume nothing; empty literals match anywhere.
		return t.Insertion || t.Value == ""
	case *grammar.CharClass:
		return false
	case *grammar.Group:
		return a.altsNullable(t.Alts)
	default:
		return false
	}
}

// computeRecursion runs two explicit-worklist reachability closures per
// rule: one over every nonterminal reference (general recursion) and
// one over leftmost references only, where a reference counts as
// leftmost when every factor before it can be skipped (nullable base
// or zero-permitting repetition).
func (a *Analysis) computeRecursion(g *grammar.Grammar) {
	allRefs := make(map[string][]string, len(g.Rules))
	leftRefs := make(map[string][]string, len(g.Rules))
	for _, r := range g.Rules {
		allRefs[r.Name] = a.references(r.Alts, false)
		leftRefs[r.Name] = a.references(r.Alts, true)
	}
	for _, r := range g.Rules {
		if reaches(r.Name, allRefs) {
			a.Recursive[r.Name] = true
		}
		if reaches(r.Name, leftRefs) {
			a.LeftRecursive[r.Name] = true
		}
	}
}

// reaches reports whether target can reach itself through the given
// edge map, using an explicit stack.
func reaches(target string, refs map[string][]string) bool {
	seen := make(map[string]bool)
	stack := append([]string(nil), refs[target]...)
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if name == target {
			return true
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		stack = append(stack, refs[name]...)
	}
	return false
}

// references collects the nonterminals referenced by alts. When
// leftOnly is set, collection stops in each sequence at the first
// factor that cannot match empty input; separators are ignored since
// a separator never parses before its element.
func (a *Analysis) references(alts grammar.Alternatives, leftOnly bool) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	type frame struct {
		seq grammar.Sequence
	}
	var work []frame
	for _, seq := range alts {
		work = append(work, frame{seq})
	}
	for len(work) > 0 {
		f := work[len(work)-1]
		work = work[:len(work)-1]
		for _, factor := range f.seq {
			switch t := factor.Term.(type) {
			case *grammar.Nonterminal:
				add(t.Name)
			case *grammar.Group:
				for _, inner := range t.Alts {
					work = append(work, frame{inner})
				}
			}
			if !leftOnly {
				if factor.Rep.Separated() {
					work = append(work, frame{factor.Sep})
				}
				continue
			}
			if !a.factorNullable(factor) {
				break
			}
		}
	}
	return names
}

// computeAmbiguity applies three incomplete heuristics per rule:
// several independently nullable alternatives, several alternatives
// led by the same nullable nonterminal, and structurally identical
// alternatives. Static general ambiguity detection is undecidable, so
// this is a diagnostic signal only.
func (a *Analysis) computeAmbiguity(g *grammar.Grammar) {
	for _, r := range g.Rules {
		if len(r.Alts) < 2 {
			continue
		}
		if a.suspicious(r.Alts) {
			a.Ambiguous = true
			a.AmbiguousRules = append(a.AmbiguousRules, r.Name)
		}
	}
	sort.Strings(a.AmbiguousRules)
}

func (a *Analysis) suspicious(alts grammar.Alternatives) bool {
	nullableAlts := 0
	leaders := make(map[string]int)
	shapes := make(map[string]bool)
	for _, seq := range alts {
		if a.seqNullable(seq) {
			nullableAlts++
		}
		if len(seq) > 0 {
			if nt, ok := seq[0].Term.(*grammar.Nonterminal); ok && a.Nullable[nt.Name] {
				leaders[nt.Name]++
			}
		}
		shape := seq.String()
		if shapes[shape] {
			return true
		}
		shapes[shape] = true
	}
	if nullableAlts > 1 {
		return true
	}
	for _, count := range leaders {
		if count > 1 {
			return true
		}
	}
	return false
}

func complexity(alts grammar.Alternatives) int {
	score := len(alts)
	for _, seq := range alts {
		score += len(seq)
		for _, f := range seq {
			if g, ok := f.Term.(*grammar.Group); ok {
				score += complexity(g.Alts)
			} else {
				score++
			}
		}
	}
	return score
}

// Report renders the analysis for humans, in the order issues matter:
// ambiguity, left recursion, plain recursion, then high complexity.
func (a *Analysis) Report() string {
	var sb strings.Builder

	if a.Ambiguous {
		sb.WriteString("warning: grammar may be ambiguous (multiple parse trees possible)\n")
		for _, name := range a.AmbiguousRules {
			fmt.Fprintf(&sb, "  - %s\n", name)
		}
		sb.WriteString("  parse output will carry ixml:state=\"ambiguous\"\n\n")
	}

	if names := sortedKeys(a.LeftRecursive); len(names) > 0 {
		sb.WriteString("note: left-recursive rules (resolved by iterative seed growing):\n")
		for _, name := range names {
			fmt.Fprintf(&sb, "  - %s\n", name)
		}
		sb.WriteByte('\n')
	}

	var plain []string
	for _, name := range sortedKeys(a.Recursive) {
		if !a.LeftRecursive[name] {
			plain = append(plain, name)
		}
	}
	if len(plain) > 0 {
		sb.WriteString("note: recursive rules:\n")
		for _, name := range plain {
			fmt.Fprintf(&sb, "  - %s\n", name)
		}
		sb.WriteByte('\n')
	}

	var complex []string
	for name, score := range a.Complexity {
		if score > 10 {
			complex = append(complex, fmt.Sprintf("  - %s (complexity %d)", name, score))
		}
	}
	if len(complex) > 0 {
		sort.Strings(complex)
		sb.WriteString("note: high-complexity rules (may parse slowly):\n")
		sb.WriteString(strings.Join(complex, "\n"))
		sb.WriteString("\n\n")
	}

	if sb.Len() == 0 {
		return "no issues detected\n"
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func sortedKeys(set map[string]bool) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
