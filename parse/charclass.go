package parse

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// charRange is an inclusive codepoint range.
type charRange struct {
	lo, hi rune
}

// RangeSet matches single codepoints against a compiled character
// class: sorted merged literal ranges plus Unicode category tables,
// with optional whole-set negation. Compiled once per class spec when
// the Parser is built, never per input character.
type RangeSet struct {
	spec    string
	negated bool
	ranges  []charRange
	tables  []*unicode.RangeTable
}

// Contains reports whether ch is matched by the set, honoring negation.
func (s *RangeSet) Contains(ch rune) bool {
	return s.member(ch) != s.negated
}

func (s *RangeSet) member(ch rune) bool {
	// Binary search over the merged literal ranges.
	lo, hi := 0, len(s.ranges)
	for lo < hi {
		mid := (lo + hi) / 2
		r := s.ranges[mid]
		switch {
		case ch < r.lo:
			hi = mid
		case ch > r.hi:
			lo = mid + 1
		default:
			return true
		}
	}
	for _, t := range s.tables {
		if unicode.Is(t, ch) {
			return true
		}
	}
	return false
}

// String describes the set for error messages.
func (s *RangeSet) String() string {
	if s.negated {
		return "~[" + s.spec + "]"
	}
	return "[" + s.spec + "]"
}

// compileClass interprets a class spec: quoted characters and ranges
// ("a"-"z"), hex codepoints and ranges (#30, #30-#39, #1-"z"), and
// Unicode general category codes, separated by ';', ',' or '|'.
func compileClass(spec string, negated bool) (*RangeSet, error) {
	set := &RangeSet{spec: spec, negated: negated}
	for _, item := range splitClass(spec) {
		if err := set.addItem(item); err != nil {
			return nil, fmt.Errorf("character class [%s]: %w", spec, err)
		}
	}
	set.normalize()
	return set, nil
}

// splitClass splits a class spec on ';', ',' and '|', respecting
// quoted sections.
func splitClass(spec string) []string {
	var items []string
	var current strings.Builder
	var quote rune

	flush := func() {
		if item := strings.TrimSpace(current.String()); item != "" {
			items = append(items, item)
		}
		current.Reset()
	}

	for _, ch := range spec {
		switch {
		case quote != 0:
			current.WriteRune(ch)
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
			current.WriteRune(ch)
		case ch == ';' || ch == ',' || ch == '|':
			flush()
		default:
			current.WriteRune(ch)
		}
	}
	flush()
	return items
}

func (s *RangeSet) addItem(item string) error {
	switch item[0] {
	case '#', '"', '\'':
		if lo, hi, ok := parseClassRange(item); ok {
			if hi < lo {
				return fmt.Errorf("range end U+%04X below start U+%04X", hi, lo)
			}
			s.ranges = append(s.ranges, charRange{lo, hi})
			return nil
		}
		if item[0] == '#' {
			ch, rest, err := classEndpoint(item)
			if err != nil {
				return err
			}
			if strings.TrimSpace(rest) != "" {
				return fmt.Errorf("unexpected %q after hex codepoint", rest)
			}
			s.ranges = append(s.ranges, charRange{ch, ch})
			return nil
		}
		// A bare quoted string contributes each of its characters.
		for _, ch := range unquoteClassItem(item) {
			s.ranges = append(s.ranges, charRange{ch, ch})
		}
		return nil
	default:
		tables, err := categoryTables(item)
		if err != nil {
			return err
		}
		s.tables = append(s.tables, tables...)
		return nil
	}
}

// parseClassRange recognizes the endpoint-dash-endpoint range form.
func parseClassRange(item string) (lo, hi rune, ok bool) {
	lo, rest, err := classEndpoint(item)
	if err != nil {
		return 0, 0, false
	}
	rest = strings.TrimSpace(rest)
	if rest == "" || rest[0] != '-' {
		return 0, 0, false
	}
	hi, tail, err := classEndpoint(strings.TrimSpace(rest[1:]))
	if err != nil || strings.TrimSpace(tail) != "" {
		return 0, 0, false
	}
	return lo, hi, true
}

// classEndpoint reads one range endpoint (quoted single character or
// hex codepoint) off the front of item, returning it and the remainder.
func classEndpoint(item string) (rune, string, error) {
	runes := []rune(item)
	switch runes[0] {
	case '"', '\'':
		quote := runes[0]
		for i := 1; i < len(runes); i++ {
			if runes[i] == quote {
				inner := runes[1:i]
				if len(inner) != 1 {
					// Callers fall back to the multi-character reading.
					return 0, "", fmt.Errorf("range endpoint %q must be a single character", string(inner))
				}
				return inner[0], string(runes[i+1:]), nil
			}
		}
		return 0, "", fmt.Errorf("unterminated quote in %q", item)
	case '#':
		i := 1
		for i < len(runes) && isHexDigit(runes[i]) {
			i++
		}
		if i == 1 {
			return 0, "", fmt.Errorf("missing hex digits in %q", item)
		}
		code, err := strconv.ParseUint(string(runes[1:i]), 16, 32)
		if err != nil || code > 0x10FFFF {
			return 0, "", fmt.Errorf("invalid hex codepoint %q", string(runes[:i]))
		}
		return rune(code), string(runes[i:]), nil
	default:
		return 0, "", fmt.Errorf("invalid range endpoint %q", item)
	}
}

// unquoteClassItem strips the surrounding quotes from a bare quoted
// string, returning its characters.
func unquoteClassItem(item string) []rune {
	runes := []rune(item)
	quote := runes[0]
	if len(runes) >= 2 && runes[len(runes)-1] == quote {
		runes = runes[1 : len(runes)-1]
	} else {
		runes = runes[1:]
	}
	return runes
}

func isHexDigit(ch rune) bool {
	return ch >= '0' && ch <= '9' || ch >= 'a' && ch <= 'f' || ch >= 'A' && ch <= 'F'
}

// lcTables is the composite cased-letter category, absent from
// unicode.Categories.
var lcTables = []*unicode.RangeTable{unicode.Lu, unicode.Ll, unicode.Lt}

// categoryTables resolves a Unicode general category code to its
// membership tables. The stdlib tables are built once at link time, so
// no codepoint-space scan ever runs here.
func categoryTables(name string) ([]*unicode.RangeTable, error) {
	if name == "LC" {
		return lcTables, nil
	}
	if t, ok := unicode.Categories[name]; ok {
		return []*unicode.RangeTable{t}, nil
	}
	return nil, fmt.Errorf("unknown Unicode category %q", name)
}

// normalize sorts and merges the literal ranges so that membership is
// a binary search.
func (s *RangeSet) normalize() {
	if len(s.ranges) < 2 {
		return
	}
	ranges := s.ranges
	for i := 1; i < len(ranges); i++ {
		for j := i; j > 0 && ranges[j].lo < ranges[j-1].lo; j-- {
			ranges[j], ranges[j-1] = ranges[j-1], ranges[j]
		}
	}
	merged := ranges[:1]
	for _, r := range ranges[1:] {
		last := &merged[len(merged)-1]
		if r.lo <= last.hi+1 {
			if r.hi > last.hi {
				last.hi = r.hi
			}
			continue
		}
		merged = append(merged, r)
	}
	s.ranges = merged
}
