package parse

import "github.com/dhamidi/ixml/xml"

// Result is the outcome of parsing one construct: the output nodes it
// produced (empty when fully suppressed) and how many input codepoints
// it consumed. Nodes is a flat list; the enclosing rule decides how to
// wrap it.
type Result struct {
	Nodes    []xml.Node
	Consumed int
}

// memoKey identifies one rule invocation site.
type memoKey struct {
	rule string
	pos  int
}

// memoEntry is a cached invocation outcome: a result or an error,
// never both. During seed growing the entry for the growing rule is
// replaced with successively longer results, never shorter ones.
type memoEntry struct {
	result Result
	err    *Error
}

// context is the per-parse mutable state. Each Parse call creates its
// own context, so a Parser can serve concurrent parses.
type context struct {
	active map[memoKey]bool
	memo   map[memoKey]*memoEntry
	depth  int

	// rule currently being parsed, for error reporting.
	rule string
}

func newContext() *context {
	return &context{
		active: make(map[memoKey]bool),
		memo:   make(map[memoKey]*memoEntry),
	}
}

// enter marks a (rule, position) pair active. It returns false when
// the pair is already on the stack, signalling recursion without
// progress.
func (c *context) enter(key memoKey) bool {
	if c.active[key] {
		return false
	}
	c.active[key] = true
	return true
}

func (c *context) exit(key memoKey) {
	delete(c.active, key)
}
