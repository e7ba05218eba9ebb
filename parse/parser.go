package parse

import (
	"fmt"

	"github.com/dhamidi/ixml/grammar"
	"github.com/dhamidi/ixml/xml"
)

const (
	// DefaultMaxDepth bounds rule-call nesting as a defense against
	// pathological grammars.
	DefaultMaxDepth = 1024

	// DefaultSeedLimit bounds the left-recursion seed-growing loop.
	// Each growth step consumes at least one more codepoint, so a
	// genuine parse never needs more iterations than input length;
	// hitting the cap means the grammar is defective.
	DefaultSeedLimit = 4096
)

// Option configures a Parser.
type Option func(*Parser)

// WithMaxDepth overrides the maximum rule-call depth.
func WithMaxDepth(n int) Option {
	return func(p *Parser) { p.maxDepth = n }
}

// WithSeedLimit overrides the seed-growing iteration cap.
func WithSeedLimit(n int) Option {
	return func(p *Parser) { p.seedLimit = n }
}

// Parser interprets one grammar against inputs. It runs static
// analysis and compiles the grammar's character classes when built,
// then walks the grammar afresh for every Parse call. A Parser is
// immutable and safe for concurrent use; each Parse owns its own
// cursor and context.
type Parser struct {
	grammar   *grammar.Grammar
	analysis  *Analysis
	classes   map[*grammar.CharClass]*RangeSet
	maxDepth  int
	seedLimit int
}

// New builds a Parser for g.
func New(g *grammar.Grammar, opts ...Option) (*Parser, error) {
	p := &Parser{
		grammar:   g,
		analysis:  Analyze(g),
		classes:   make(map[*grammar.CharClass]*RangeSet),
		maxDepth:  DefaultMaxDepth,
		seedLimit: DefaultSeedLimit,
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.compileClasses(); err != nil {
		return nil, err
	}
	return p, nil
}

// Analysis returns the static analysis report for the grammar.
func (p *Parser) Analysis() *Analysis { return p.analysis }

// Grammar returns the grammar the parser interprets.
func (p *Parser) Grammar() *grammar.Grammar { return p.grammar }

// compileClasses walks the grammar once and compiles every character
// class to a RangeSet, so matching never re-parses a class spec.
func (p *Parser) compileClasses() error {
	work := make([]grammar.Alternatives, 0, len(p.grammar.Rules))
	for _, r := range p.grammar.Rules {
		work = append(work, r.Alts)
	}
	for len(work) > 0 {
		alts := work[len(work)-1]
		work = work[:len(work)-1]
		for _, seq := range alts {
			for _, f := range seq {
				switch t := f.Term.(type) {
				case *grammar.CharClass:
					set, err := compileClass(t.Spec, t.Negated)
					if err != nil {
						return err
					}
					p.classes[t] = set
				case *grammar.Group:
					work = append(work, t.Alts)
				}
				if f.Rep.Separated() {
					work = append(work, grammar.Alternatives{f.Sep})
				}
			}
		}
	}
	return nil
}

// Parse interprets the grammar against input, starting at the first
// rule. A successful parse that leaves input unconsumed returns the
// tree together with a *TrailingInputError so callers can decide how
// strict to be.
func (p *Parser) Parse(input string) (xml.Node, error) {
	in := NewInput(input)
	ctx := newContext()

	res, err := p.parseRule(p.grammar.Start(), in, ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Nodes) == 0 {
		return nil, fmt.Errorf("parse succeeded but produced no output (fully suppressed)")
	}
	if len(res.Nodes) > 1 {
		return nil, fmt.Errorf("parse produced %d root nodes; the start rule must yield exactly one", len(res.Nodes))
	}
	node := res.Nodes[0]

	if p.analysis.Ambiguous {
		if elem, ok := node.(*xml.Element); ok {
			elem.SetAttr("ixml:state", "ambiguous")
		}
	}

	if !in.EOF() {
		return node, &TrailingInputError{
			Node:      node,
			Consumed:  res.Consumed,
			Remaining: in.Slice(in.Pos(), in.Len()),
		}
	}
	return node, nil
}

// parseRule dispatches one rule invocation: seed value or recursion
// signal on re-entry, seed growing for left-recursive rules, plain
// memoized descent for everything else. The rule-level mark is applied
// before a result is cached, so memo entries are always finished
// results.
func (p *Parser) parseRule(rule *grammar.Rule, in *Input, ctx *context) (Result, error) {
	key := memoKey{rule: rule.Name, pos: in.Pos()}

	if ctx.active[key] {
		if entry, ok := ctx.memo[key]; ok {
			return p.replay(entry, key, in)
		}
		// No seed yet: this failure is the seed.
		return Result{}, &Error{Kind: ErrLeftRecursion, Rule: rule.Name, Pos: key.pos}
	}

	ctx.depth++
	defer func() { ctx.depth-- }()
	if ctx.depth > p.maxDepth {
		return Result{}, &Error{Kind: ErrDepthExceeded, Rule: rule.Name, Pos: key.pos}
	}

	if entry, ok := ctx.memo[key]; ok {
		return p.replay(entry, key, in)
	}

	if p.analysis.LeftRecursive[rule.Name] {
		return p.growSeed(rule, key, in, ctx)
	}

	ctx.enter(key)
	res, err := p.parseRuleBody(rule, in, ctx)
	ctx.exit(key)

	if err != nil {
		if pe, ok := err.(*Error); ok && !pe.Fatal() && pe.Kind != ErrLeftRecursion {
			ctx.memo[key] = &memoEntry{err: pe}
		}
		return Result{}, err
	}
	ctx.memo[key] = &memoEntry{result: res}
	return res, nil
}

// replay restores a memoized outcome, repositioning the cursor after
// the consumed input.
func (p *Parser) replay(entry *memoEntry, key memoKey, in *Input) (Result, error) {
	if entry.err != nil {
		return Result{}, entry.err
	}
	in.SetPos(key.pos + entry.result.Consumed)
	return entry.result, nil
}

// growSeed resolves left recursion by fixed-point iteration: the memo
// entry starts as a failure, and each pass re-parses the rule with
// inner self-calls reading the current seed. A strictly longer result
// (or the first success) becomes the new seed; anything else is the
// fixed point. The iteration cap turns a non-converging grammar into
// a deterministic fatal error instead of wrong output.
func (p *Parser) growSeed(rule *grammar.Rule, key memoKey, in *Input, ctx *context) (Result, error) {
	ctx.memo[key] = &memoEntry{err: &Error{Kind: ErrLeftRecursion, Rule: rule.Name, Pos: key.pos}}
	ctx.enter(key)
	defer ctx.exit(key)

	// Results memoized during a growth pass were derived from the seed
	// that pass saw. Other rules in the same recursion cycle must be
	// re-derived once the seed grows, so each pass starts by evicting
	// what earlier passes recorded. Only the seed entry survives.
	outside := make(map[memoKey]bool, len(ctx.memo))
	for k := range ctx.memo {
		outside[k] = true
	}
	evict := func() {
		for k := range ctx.memo {
			if k != key && !outside[k] {
				delete(ctx.memo, k)
			}
		}
	}
	defer evict()

	var (
		best     Result
		haveBest bool
	)
	for i := 0; ; i++ {
		if i >= p.seedLimit {
			return Result{}, &Error{Kind: ErrSeedLimit, Rule: rule.Name, Pos: key.pos}
		}
		evict()
		in.SetPos(key.pos)
		res, err := p.parseRuleBody(rule, in, ctx)
		if err != nil {
			if pe, ok := err.(*Error); ok && pe.Fatal() {
				return Result{}, err
			}
			if !haveBest {
				delete(ctx.memo, key)
				return Result{}, err
			}
			break
		}
		if haveBest && res.Consumed <= best.Consumed {
			break
		}
		best, haveBest = res, true
		ctx.memo[key] = &memoEntry{result: best}
	}

	in.SetPos(key.pos + best.Consumed)
	return best, nil
}

// parseRuleBody parses the rule's alternatives and applies the
// rule-level mark to the outcome.
func (p *Parser) parseRuleBody(rule *grammar.Rule, in *Input, ctx *context) (Result, error) {
	prev := ctx.rule
	ctx.rule = rule.Name
	res, err := p.parseAlternatives(rule.Alts, in, ctx)
	ctx.rule = prev
	if err != nil {
		return Result{}, err
	}
	return p.applyRuleMark(rule, res), nil
}

// applyRuleMark shapes a rule's raw children per its mark. NoMark
// wraps them in an element named after the rule, lifting Attr nodes
// into the attribute list. Hidden passes the children through with no
// element layer, letting Attr nodes float to the next visible
// element. Attribute collapses the children's text into a single Attr
// node. Promoted wraps like NoMark; its force-visible override
// matters at the call site (applyFactorMark), not here.
func (p *Parser) applyRuleMark(rule *grammar.Rule, res Result) Result {
	switch rule.Mark {
	case grammar.MarkHidden:
		return res
	case grammar.MarkAttribute:
		return Result{
			Nodes:    []xml.Node{xml.Attr{Name: rule.Name, Value: textContent(res.Nodes)}},
			Consumed: res.Consumed,
		}
	default:
		return Result{
			Nodes:    []xml.Node{wrapElement(rule.Name, res.Nodes)},
			Consumed: res.Consumed,
		}
	}
}

// wrapElement builds an element from a child list, lifting Attr nodes
// into the attribute list.
func wrapElement(name string, nodes []xml.Node) *xml.Element {
	elem := &xml.Element{Name: name}
	for _, node := range nodes {
		if attr, ok := node.(xml.Attr); ok {
			elem.SetAttr(attr.Name, attr.Value)
			continue
		}
		elem.Children = append(elem.Children, node)
	}
	return elem
}

func textContent(nodes []xml.Node) string {
	var s string
	for _, node := range nodes {
		s += node.TextContent()
	}
	return s
}

// parseAlternatives tries every alternative from the same start
// position and commits to the one that consumed the most input;
// declaration order breaks ties. Fatal errors abort immediately.
func (p *Parser) parseAlternatives(alts grammar.Alternatives, in *Input, ctx *context) (Result, error) {
	start := in.Pos()
	var (
		best     Result
		bestEnd  int
		haveBest bool
	)

	for _, seq := range alts {
		in.SetPos(start)
		res, err := p.parseSequence(seq, in, ctx)
		if err != nil {
			if pe, ok := err.(*Error); ok && pe.Fatal() {
				return Result{}, err
			}
			continue
		}
		if end := in.Pos(); !haveBest || end > bestEnd {
			best, bestEnd, haveBest = res, end, true
		}
	}

	if !haveBest {
		return Result{}, &Error{
			Kind:     ErrNoAlternative,
			Rule:     ctx.rule,
			Pos:      start,
			Attempts: len(alts),
		}
	}
	in.SetPos(bestEnd)
	return best, nil
}

// parseSequence parses factors left to right. Any failure restores
// the sequence's start position, making the whole sequence atomic.
func (p *Parser) parseSequence(seq grammar.Sequence, in *Input, ctx *context) (Result, error) {
	start := in.Pos()
	var out Result
	for i := range seq {
		res, err := p.parseFactor(&seq[i], in, ctx)
		if err != nil {
			in.SetPos(start)
			return Result{}, err
		}
		out.Nodes = append(out.Nodes, res.Nodes...)
		out.Consumed += res.Consumed
	}
	return out, nil
}

func (p *Parser) parseFactor(f *grammar.Factor, in *Input, ctx *context) (Result, error) {
	switch f.Rep {
	case grammar.RepNone:
		return p.parseTerm(f.Term, in, ctx)
	case grammar.RepOptional:
		return p.parseOptional(f.Term, in, ctx)
	case grammar.RepZeroOrMore:
		return p.parseRepeat(f.Term, in, ctx, false)
	case grammar.RepOneOrMore:
		return p.parseRepeat(f.Term, in, ctx, true)
	case grammar.RepSepZeroOrMore:
		return p.parseSeparated(f.Term, f.Sep, in, ctx, false)
	case grammar.RepSepOneOrMore:
		return p.parseSeparated(f.Term, f.Sep, in, ctx, true)
	default:
		return Result{}, fmt.Errorf("unknown repetition %d", f.Rep)
	}
}

func (p *Parser) parseTerm(term grammar.Term, in *Input, ctx *context) (Result, error) {
	switch t := term.(type) {
	case *grammar.Literal:
		return p.parseLiteral(t, in)
	case *grammar.CharClass:
		return p.parseCharClass(t, in)
	case *grammar.Nonterminal:
		return p.parseNonterminal(t, in, ctx)
	case *grammar.Group:
		// A group is an anonymous inlined rule; no mark applies at
		// its boundary.
		return p.parseAlternatives(t.Alts, in, ctx)
	default:
		return Result{}, fmt.Errorf("unknown term %T", term)
	}
}

// parseLiteral matches a terminal codepoint by codepoint. Insertions
// always succeed, produce their text, and consume nothing, even at
// end of input.
func (p *Parser) parseLiteral(lit *grammar.Literal, in *Input) (Result, error) {
	start := in.Pos()

	if lit.Insertion {
		if lit.Mark == grammar.MarkHidden {
			return Result{}, nil
		}
		return Result{Nodes: []xml.Node{xml.Text(lit.Value)}}, nil
	}

	for _, want := range lit.Value {
		got, ok := in.Current()
		if !ok {
			in.SetPos(start)
			return Result{}, &Error{
				Kind:     ErrUnexpectedEOF,
				Pos:      start,
				Expected: fmt.Sprintf("%q", lit.Value),
			}
		}
		if got != want {
			in.SetPos(start)
			return Result{}, &Error{
				Kind:     ErrTerminalMismatch,
				Pos:      start,
				Expected: lit.Value,
				Found:    string(got),
			}
		}
		in.Advance()
	}

	res := Result{Consumed: in.Pos() - start}
	if lit.Mark != grammar.MarkHidden {
		res.Nodes = []xml.Node{xml.Text(lit.Value)}
	}
	return res, nil
}

// parseCharClass matches exactly one codepoint against the class's
// precompiled set.
func (p *Parser) parseCharClass(cls *grammar.CharClass, in *Input) (Result, error) {
	set := p.classes[cls]
	pos := in.Pos()

	ch, ok := in.Current()
	if !ok {
		return Result{}, &Error{
			Kind:     ErrUnexpectedEOF,
			Pos:      pos,
			Expected: "character matching " + set.String(),
		}
	}
	if !set.Contains(ch) {
		return Result{}, &Error{
			Kind:     ErrCharClassMismatch,
			Pos:      pos,
			Expected: set.String(),
			Found:    string(ch),
		}
	}

	in.Advance()
	res := Result{Consumed: 1}
	if cls.Mark != grammar.MarkHidden {
		res.Nodes = []xml.Node{xml.Text(string(ch))}
	}
	return res, nil
}

// parseNonterminal calls into the referenced rule and then reshapes
// its finished result per the factor-level mark. The factor mark only
// changes how the result joins the caller; the called rule assembled
// its own children under its own mark.
func (p *Parser) parseNonterminal(nt *grammar.Nonterminal, in *Input, ctx *context) (Result, error) {
	rule := p.grammar.Get(nt.Name)
	if rule == nil {
		return Result{}, &Error{Kind: ErrUndefinedRule, Rule: nt.Name, Pos: in.Pos()}
	}
	res, err := p.parseRule(rule, in, ctx)
	if err != nil {
		return Result{}, err
	}
	return applyFactorMark(nt, rule, res), nil
}

func applyFactorMark(nt *grammar.Nonterminal, rule *grammar.Rule, res Result) Result {
	switch nt.Mark {
	case grammar.MarkHidden:
		// Discard the rule's wrapper element, if it produced one,
		// splicing its attributes and children into the caller.
		if elem, ok := singleElement(res.Nodes, rule.Name); ok {
			nodes := make([]xml.Node, 0, len(elem.Attributes)+len(elem.Children))
			for _, a := range elem.Attributes {
				nodes = append(nodes, a)
			}
			nodes = append(nodes, elem.Children...)
			return Result{Nodes: nodes, Consumed: res.Consumed}
		}
		return res

	case grammar.MarkAttribute:
		return Result{
			Nodes:    []xml.Node{xml.Attr{Name: nt.Name, Value: textContent(res.Nodes)}},
			Consumed: res.Consumed,
		}

	case grammar.MarkPromoted:
		// Force an element wrapper, overriding a hiding mark on the
		// rule itself.
		if _, ok := singleElement(res.Nodes, rule.Name); ok {
			return res
		}
		return Result{
			Nodes:    []xml.Node{wrapElement(rule.Name, res.Nodes)},
			Consumed: res.Consumed,
		}

	default:
		return res
	}
}

// singleElement reports whether nodes is exactly one element carrying
// the given name.
func singleElement(nodes []xml.Node, name string) (*xml.Element, bool) {
	if len(nodes) != 1 {
		return nil, false
	}
	elem, ok := nodes[0].(*xml.Element)
	if !ok || elem.Name != name {
		return nil, false
	}
	return elem, true
}

// parseOptional never fails: a mismatch restores the position and
// yields an empty result.
func (p *Parser) parseOptional(term grammar.Term, in *Input, ctx *context) (Result, error) {
	start := in.Pos()
	res, err := p.parseTerm(term, in, ctx)
	if err != nil {
		if pe, ok := err.(*Error); ok && pe.Fatal() {
			return Result{}, err
		}
		in.SetPos(start)
		return Result{}, nil
	}
	return res, nil
}

// parseRepeat handles * and +. A successful zero-consumption match is
// kept but ends the loop; without this guard a nullable body would
// loop forever.
func (p *Parser) parseRepeat(term grammar.Term, in *Input, ctx *context, atLeastOne bool) (Result, error) {
	var out Result

	if atLeastOne {
		res, err := p.parseTerm(term, in, ctx)
		if err != nil {
			return Result{}, err
		}
		out.Nodes = append(out.Nodes, res.Nodes...)
		out.Consumed += res.Consumed
		if res.Consumed == 0 {
			out.Nodes = mergeText(out.Nodes)
			return out, nil
		}
	}

	for {
		loopStart := in.Pos()
		res, err := p.parseTerm(term, in, ctx)
		if err != nil {
			if pe, ok := err.(*Error); ok && pe.Fatal() {
				return Result{}, err
			}
			in.SetPos(loopStart)
			break
		}
		out.Nodes = append(out.Nodes, res.Nodes...)
		out.Consumed += res.Consumed
		if res.Consumed == 0 {
			break
		}
	}

	out.Nodes = mergeText(out.Nodes)
	return out, nil
}

// parseSeparated handles ** and ++: element, then (separator,
// element) repeated. Separator nodes are collected like element nodes;
// a Hidden separator contributes nothing. An element failure after a
// matched separator backtracks the separator too.
func (p *Parser) parseSeparated(term grammar.Term, sep grammar.Sequence, in *Input, ctx *context, atLeastOne bool) (Result, error) {
	start := in.Pos()
	var out Result

	res, err := p.parseTerm(term, in, ctx)
	if err != nil {
		if pe, ok := err.(*Error); ok && pe.Fatal() {
			return Result{}, err
		}
		if atLeastOne {
			return Result{}, err
		}
		in.SetPos(start)
		return Result{}, nil
	}
	out.Nodes = append(out.Nodes, res.Nodes...)
	out.Consumed += res.Consumed
	if res.Consumed == 0 {
		out.Nodes = mergeText(out.Nodes)
		return out, nil
	}

	for {
		loopStart := in.Pos()

		sepRes, err := p.parseSequence(sep, in, ctx)
		if err != nil {
			if pe, ok := err.(*Error); ok && pe.Fatal() {
				return Result{}, err
			}
			in.SetPos(loopStart)
			break
		}

		elemRes, err := p.parseTerm(term, in, ctx)
		if err != nil {
			if pe, ok := err.(*Error); ok && pe.Fatal() {
				return Result{}, err
			}
			in.SetPos(loopStart)
			break
		}

		out.Nodes = append(out.Nodes, sepRes.Nodes...)
		out.Nodes = append(out.Nodes, elemRes.Nodes...)
		out.Consumed += sepRes.Consumed + elemRes.Consumed
		if elemRes.Consumed == 0 {
			break
		}
	}

	out.Nodes = mergeText(out.Nodes)
	return out, nil
}

// mergeText joins adjacent Text nodes produced inside one repetition.
func mergeText(nodes []xml.Node) []xml.Node {
	if len(nodes) < 2 {
		return nodes
	}
	merged := make([]xml.Node, 0, len(nodes))
	var buf xml.Text
	flush := func() {
		if buf != "" {
			merged = append(merged, buf)
			buf = ""
		}
	}
	for _, node := range nodes {
		if text, ok := node.(xml.Text); ok {
			buf += text
			continue
		}
		flush()
		merged = append(merged, node)
	}
	flush()
	return merged
}
