package parse

import (
	"fmt"
	"strings"

	"github.com/dhamidi/ixml/xml"
)

// ErrorKind classifies a parse failure.
type ErrorKind int

const (
	// Structural failures, recoverable by backtracking.
	ErrUnexpectedEOF ErrorKind = iota
	ErrTerminalMismatch
	ErrCharClassMismatch
	ErrNoAlternative

	// Grammar-definition failures, fatal to the whole parse.
	ErrUndefinedRule
	ErrSeedLimit
	ErrDepthExceeded

	// Internal signal raised when an active (rule, position) pair is
	// re-entered with no seed available. Consumed by seed growing;
	// never surfaced on its own.
	ErrLeftRecursion
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnexpectedEOF:
		return "unexpected end of input"
	case ErrTerminalMismatch:
		return "terminal mismatch"
	case ErrCharClassMismatch:
		return "character class mismatch"
	case ErrNoAlternative:
		return "no alternative matched"
	case ErrUndefinedRule:
		return "undefined rule"
	case ErrSeedLimit:
		return "left recursion limit exceeded"
	case ErrDepthExceeded:
		return "recursion depth exceeded"
	case ErrLeftRecursion:
		return "left recursion"
	default:
		return fmt.Sprintf("error(%d)", int(k))
	}
}

// Error is a parse failure at a known input position.
type Error struct {
	Kind     ErrorKind
	Pos      int
	Rule     string // rule being parsed when the failure occurred
	Expected string // literal or class description for mismatches
	Found    string // actual input at Pos, empty at end of input
	Attempts int    // alternatives tried, for ErrNoAlternative
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrUnexpectedEOF:
		return fmt.Sprintf("unexpected end of input, expected %s", e.Expected)
	case ErrTerminalMismatch:
		return fmt.Sprintf("expected %q but found %q", e.Expected, e.Found)
	case ErrCharClassMismatch:
		return fmt.Sprintf("expected %s but found %q", e.Expected, e.Found)
	case ErrNoAlternative:
		return fmt.Sprintf("no alternative matched in rule %q (%d tried)", e.Rule, e.Attempts)
	case ErrUndefinedRule:
		return fmt.Sprintf("undefined rule %q", e.Rule)
	case ErrSeedLimit:
		return fmt.Sprintf("left recursion in rule %q did not reach a fixed point", e.Rule)
	case ErrDepthExceeded:
		return fmt.Sprintf("recursion depth exceeded in rule %q", e.Rule)
	case ErrLeftRecursion:
		return fmt.Sprintf("left recursion in rule %q", e.Rule)
	default:
		return e.Kind.String()
	}
}

// Fatal reports whether the failure aborts the whole parse instead of
// being recoverable through backtracking.
func (e *Error) Fatal() bool {
	switch e.Kind {
	case ErrUndefinedRule, ErrSeedLimit, ErrDepthExceeded:
		return true
	}
	return false
}

// FormatWithInput renders err with line/column, the offending input
// line, and a caret under the failing column. Errors without a
// position render as err.Error().
func FormatWithInput(err error, input string) string {
	e, ok := err.(*Error)
	if !ok {
		return err.Error()
	}
	in := NewInput(input)
	line, col := in.LineCol(e.Pos)
	msg := fmt.Sprintf("parse error at line %d, column %d: %s", line, col, e.Error())

	if text := in.Line(e.Pos); text != "" {
		msg += fmt.Sprintf("\ncontext: %s\n         %s^", text, strings.Repeat(" ", col-1))
	}
	return msg
}

// TrailingInputError reports a parse that succeeded without consuming
// the whole input. It carries the tree so callers may still use it.
type TrailingInputError struct {
	Node      xml.Node
	Consumed  int
	Remaining string
}

func (e *TrailingInputError) Error() string {
	return fmt.Sprintf("parse succeeded but %d codepoints of trailing input remain after position %d",
		len([]rune(e.Remaining)), e.Consumed)
}
