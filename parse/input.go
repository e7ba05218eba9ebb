// Package parse interprets an Invisible XML grammar directly against
// input text, producing an output tree. The grammar is walked afresh
// for every input; nothing is compiled into an intermediate parser.
package parse

// Input is a backtrackable cursor over input text, indexed by
// codepoint. The text is decoded once up front so every access is O(1).
type Input struct {
	runes []rune
	pos   int
}

// NewInput creates a cursor positioned at the start of text.
func NewInput(text string) *Input {
	return &Input{runes: []rune(text)}
}

// Current returns the codepoint at the cursor, or false at end of input.
func (in *Input) Current() (rune, bool) {
	if in.pos >= len(in.runes) {
		return 0, false
	}
	return in.runes[in.pos], true
}

// Advance returns the codepoint at the cursor and moves past it.
func (in *Input) Advance() (rune, bool) {
	ch, ok := in.Current()
	if ok {
		in.pos++
	}
	return ch, ok
}

// Peek returns the codepoint offset positions ahead of the cursor
// without moving it.
func (in *Input) Peek(offset int) (rune, bool) {
	i := in.pos + offset
	if i < 0 || i >= len(in.runes) {
		return 0, false
	}
	return in.runes[i], true
}

// Pos returns the current position, always in [0, Len].
func (in *Input) Pos() int { return in.pos }

// SetPos moves the cursor to a position previously returned by Pos.
// Out-of-range positions are clamped into [0, Len].
func (in *Input) SetPos(pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(in.runes) {
		pos = len(in.runes)
	}
	in.pos = pos
}

// EOF reports whether the cursor is past the last codepoint.
func (in *Input) EOF() bool { return in.pos >= len(in.runes) }

// Len returns the input length in codepoints.
func (in *Input) Len() int { return len(in.runes) }

// Slice returns the text between two positions. The bounds are clamped
// into range.
func (in *Input) Slice(start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(in.runes) {
		end = len(in.runes)
	}
	if start >= end {
		return ""
	}
	return string(in.runes[start:end])
}

// LineCol converts a position to 1-based line and column numbers for
// error rendering.
func (in *Input) LineCol(pos int) (line, col int) {
	if pos > len(in.runes) {
		pos = len(in.runes)
	}
	line, col = 1, 1
	for i := 0; i < pos; i++ {
		if in.runes[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

// Line returns the full text of the 1-based line containing pos.
func (in *Input) Line(pos int) string {
	if pos > len(in.runes) {
		pos = len(in.runes)
	}
	start := pos
	for start > 0 && in.runes[start-1] != '\n' {
		start--
	}
	end := pos
	for end < len(in.runes) && in.runes[end] != '\n' {
		end++
	}
	return string(in.runes[start:end])
}
