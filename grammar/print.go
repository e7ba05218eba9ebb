package grammar

import "strings"

// String renders the grammar back to notation, one rule per line.
func (g *Grammar) String() string {
	var sb strings.Builder
	for _, r := range g.Rules {
		sb.WriteString(r.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (r *Rule) String() string {
	return r.Mark.String() + r.Name + ": " + r.Alts.String() + "."
}

func (a Alternatives) String() string {
	parts := make([]string, len(a))
	for i, seq := range a {
		parts[i] = seq.String()
	}
	return strings.Join(parts, " | ")
}

func (s Sequence) String() string {
	parts := make([]string, len(s))
	for i, f := range s {
		parts[i] = f.String()
	}
	return strings.Join(parts, ", ")
}

func (f Factor) String() string {
	s := termString(f.Term)
	switch f.Rep {
	case RepOptional:
		s += "?"
	case RepZeroOrMore:
		s += "*"
	case RepOneOrMore:
		s += "+"
	case RepSepZeroOrMore:
		s += "**(" + f.Sep.String() + ")"
	case RepSepOneOrMore:
		s += "++(" + f.Sep.String() + ")"
	}
	return s
}

func termString(t Term) string {
	switch t := t.(type) {
	case *Nonterminal:
		return t.Mark.String() + t.Name
	case *Literal:
		if t.Insertion {
			return "+" + quote(t.Value)
		}
		return t.Mark.String() + quote(t.Value)
	case *CharClass:
		s := t.Mark.String()
		if t.Negated {
			s += "~"
		}
		return s + "[" + t.Spec + "]"
	case *Group:
		return "(" + t.Alts.String() + ")"
	default:
		return ""
	}
}

// quote renders a literal in notation form, doubling embedded quotes.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
