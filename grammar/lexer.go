package grammar

import (
	"fmt"
	"unicode"
)

// TokenKind identifies a notation token.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenIdent
	TokenString    // "..." or '...' with doubled-quote escapes
	TokenCharClass // raw content between [ and ]
	TokenHexChar   // #XX codepoint
	TokenColon
	TokenPeriod
	TokenSemicolon
	TokenPipe
	TokenPlus
	TokenStar
	TokenQuestion
	TokenAt
	TokenMinus
	TokenCaret
	TokenTilde
	TokenLParen
	TokenRParen
	TokenComma
	TokenEquals
	TokenDoubleStar // **
	TokenDoublePlus // ++
)

var tokenNames = map[TokenKind]string{
	TokenEOF:        "end of input",
	TokenIdent:      "identifier",
	TokenString:     "string",
	TokenCharClass:  "character class",
	TokenHexChar:    "hex character",
	TokenColon:      "':'",
	TokenPeriod:     "'.'",
	TokenSemicolon:  "';'",
	TokenPipe:       "'|'",
	TokenPlus:       "'+'",
	TokenStar:       "'*'",
	TokenQuestion:   "'?'",
	TokenAt:         "'@'",
	TokenMinus:      "'-'",
	TokenCaret:      "'^'",
	TokenTilde:      "'~'",
	TokenLParen:     "'('",
	TokenRParen:     "')'",
	TokenComma:      "','",
	TokenEquals:     "'='",
	TokenDoubleStar: "'**'",
	TokenDoublePlus: "'++'",
}

func (k TokenKind) String() string {
	if s, ok := tokenNames[k]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(k))
}

// Position is a location in a grammar source file.
type Position struct {
	Filename string
	Line     int // 1-based
	Column   int // 1-based, in codepoints
}

func (p Position) String() string {
	if p.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is a lexical token of the grammar notation.
type Token struct {
	Kind     TokenKind
	Text     string // payload for Ident, String, CharClass, HexChar
	Position Position
}

func (t Token) String() string {
	switch t.Kind {
	case TokenIdent, TokenString, TokenCharClass, TokenHexChar:
		return fmt.Sprintf("%s %s %q", t.Position, t.Kind, t.Text)
	default:
		return fmt.Sprintf("%s %s", t.Position, t.Kind)
	}
}

// Lexer tokenizes ixml grammar notation. Whitespace and nested {...}
// comments are skipped between tokens.
type Lexer struct {
	input    []rune
	filename string
	pos      int
	line     int
	column   int
}

// NewLexer creates a lexer over src. The filename is used only in
// positions and error messages.
func NewLexer(filename, src string) *Lexer {
	return &Lexer{
		input:    []rune(src),
		filename: filename,
		line:     1,
		column:   1,
	}
}

// Tokenize reads the whole input, returning the token stream terminated
// by an EOF token.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token
	for {
		if err := l.skipTrivia(); err != nil {
			return tokens, err
		}
		if l.pos >= len(l.input) {
			tokens = append(tokens, Token{Kind: TokenEOF, Position: l.position()})
			return tokens, nil
		}
		tok, err := l.next()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
	}
}

func (l *Lexer) position() Position {
	return Position{Filename: l.filename, Line: l.line, Column: l.column}
}

func (l *Lexer) peek() (rune, bool) {
	if l.pos >= len(l.input) {
		return 0, false
	}
	return l.input[l.pos], true
}

func (l *Lexer) peekAt(offset int) (rune, bool) {
	if l.pos+offset >= len(l.input) {
		return 0, false
	}
	return l.input[l.pos+offset], true
}

func (l *Lexer) advance() (rune, bool) {
	if l.pos >= len(l.input) {
		return 0, false
	}
	ch := l.input[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return ch, true
}

func (l *Lexer) errorf(format string, args ...any) error {
	return fmt.Errorf("%s: %s", l.position(), fmt.Sprintf(format, args...))
}

func (l *Lexer) skipTrivia() error {
	for {
		ch, ok := l.peek()
		if !ok {
			return nil
		}
		switch {
		case unicode.IsSpace(ch):
			l.advance()
		case ch == '{':
			if err := l.skipComment(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// Comments are {like this} and nest.
func (l *Lexer) skipComment() error {
	start := l.position()
	l.advance() // consume '{'
	depth := 1
	for depth > 0 {
		ch, ok := l.advance()
		if !ok {
			return fmt.Errorf("%s: unclosed comment", start)
		}
		switch ch {
		case '{':
			depth++
		case '}':
			depth--
		}
	}
	return nil
}

func (l *Lexer) next() (Token, error) {
	pos := l.position()
	ch, _ := l.peek()

	single := map[rune]TokenKind{
		':': TokenColon, '.': TokenPeriod, ';': TokenSemicolon,
		'|': TokenPipe, '?': TokenQuestion, '@': TokenAt,
		'-': TokenMinus, '~': TokenTilde, '^': TokenCaret,
		'(': TokenLParen, ')': TokenRParen, ',': TokenComma,
		'=': TokenEquals,
	}

	switch {
	case ch == '"' || ch == '\'':
		return l.readString(pos, ch)
	case ch == '[':
		return l.readCharClass(pos)
	case ch == '#':
		return l.readHexChar(pos)
	case ch == '*':
		l.advance()
		if next, ok := l.peek(); ok && next == '*' {
			l.advance()
			return Token{Kind: TokenDoubleStar, Position: pos}, nil
		}
		return Token{Kind: TokenStar, Position: pos}, nil
	case ch == '+':
		l.advance()
		if next, ok := l.peek(); ok && next == '+' {
			l.advance()
			return Token{Kind: TokenDoublePlus, Position: pos}, nil
		}
		return Token{Kind: TokenPlus, Position: pos}, nil
	case ch == ']':
		return Token{}, l.errorf("unexpected ']' outside character class")
	case unicode.IsLetter(ch) || ch == '_':
		return l.readIdent(pos), nil
	default:
		if kind, ok := single[ch]; ok {
			l.advance()
			return Token{Kind: kind, Position: pos}, nil
		}
		return Token{}, l.errorf("unexpected character %q", ch)
	}
}

// Strings use doubled quotes as escapes: "say ""hi""" is the text say "hi".
func (l *Lexer) readString(pos Position, quote rune) (Token, error) {
	l.advance() // opening quote
	var text []rune
	for {
		ch, ok := l.advance()
		if !ok {
			return Token{}, fmt.Errorf("%s: unterminated string", pos)
		}
		if ch == quote {
			if next, ok := l.peek(); ok && next == quote {
				text = append(text, quote)
				l.advance()
				continue
			}
			return Token{Kind: TokenString, Text: string(text), Position: pos}, nil
		}
		text = append(text, ch)
	}
}

func (l *Lexer) readIdent(pos Position) Token {
	var text []rune
	for {
		ch, ok := l.peek()
		if !ok || !(unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' || ch == '-') {
			break
		}
		// A '-' followed by whitespace or punctuation belongs to the
		// notation, not the name (e.g. "a-b" is one name, "a -b" is not).
		if ch == '-' {
			next, ok := l.peekAt(1)
			if !ok || !(unicode.IsLetter(next) || unicode.IsDigit(next) || next == '_') {
				break
			}
		}
		text = append(text, ch)
		l.advance()
	}
	return Token{Kind: TokenIdent, Text: string(text), Position: pos}
}

// The class body is captured raw; the parse package interprets it.
func (l *Lexer) readCharClass(pos Position) (Token, error) {
	l.advance() // '['
	var text []rune
	inQuote := rune(0)
	for {
		ch, ok := l.advance()
		if !ok {
			return Token{}, fmt.Errorf("%s: unterminated character class", pos)
		}
		if inQuote != 0 {
			if ch == inQuote {
				inQuote = 0
			}
			text = append(text, ch)
			continue
		}
		switch ch {
		case ']':
			return Token{Kind: TokenCharClass, Text: string(text), Position: pos}, nil
		case '"', '\'':
			inQuote = ch
			text = append(text, ch)
		default:
			text = append(text, ch)
		}
	}
}

func (l *Lexer) readHexChar(pos Position) (Token, error) {
	l.advance() // '#'
	var text []rune
	for {
		ch, ok := l.peek()
		if !ok || !isHexDigit(ch) {
			break
		}
		text = append(text, ch)
		l.advance()
	}
	if len(text) == 0 {
		return Token{}, fmt.Errorf("%s: expected hex digits after '#'", pos)
	}
	return Token{Kind: TokenHexChar, Text: string(text), Position: pos}, nil
}

func isHexDigit(ch rune) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
