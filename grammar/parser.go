package grammar

import (
	"fmt"
	"io"
	"strconv"
)

// Parse reads ixml grammar notation from r and builds the grammar AST.
// The filename is used in error messages only.
func Parse(filename string, r io.Reader) (*Grammar, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read grammar: %w", err)
	}
	return ParseString(filename, string(src))
}

// ParseString parses ixml grammar notation from a string.
func ParseString(filename, src string) (*Grammar, error) {
	tokens, err := NewLexer(filename, src).Tokenize()
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	return p.parseGrammar()
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *parser) at(kind TokenKind) bool {
	return p.tokens[p.pos].Kind == kind
}

func (p *parser) consume() Token {
	tok := p.tokens[p.pos]
	if tok.Kind != TokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(kind TokenKind) (Token, error) {
	tok := p.peek()
	if tok.Kind != kind {
		return tok, fmt.Errorf("%s: expected %s, found %s", tok.Position, kind, tok.Kind)
	}
	return p.consume(), nil
}

// grammar = rule+
func (p *parser) parseGrammar() (*Grammar, error) {
	var rules []*Rule
	for !p.at(TokenEOF) {
		rule, err := p.parseRule()
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("grammar must contain at least one rule")
	}
	return New(rules)
}

// rule = [mark] name (':' | '=') alternatives '.'
func (p *parser) parseRule() (*Rule, error) {
	mark := p.parseMark()

	name, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	if !p.at(TokenColon) && !p.at(TokenEquals) {
		tok := p.peek()
		return nil, fmt.Errorf("%s: expected ':' after rule name %q, found %s", tok.Position, name.Text, tok.Kind)
	}
	p.consume()

	alts, err := p.parseAlternatives()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenPeriod); err != nil {
		return nil, fmt.Errorf("in rule %q: %w", name.Text, err)
	}

	return &Rule{Name: name.Text, Mark: mark, Alts: alts}, nil
}

func (p *parser) parseMark() Mark {
	switch p.peek().Kind {
	case TokenAt:
		p.consume()
		return MarkAttribute
	case TokenMinus:
		p.consume()
		return MarkHidden
	case TokenCaret:
		p.consume()
		return MarkPromoted
	default:
		return NoMark
	}
}

// alternatives = sequence (('|' | ';') sequence)*
func (p *parser) parseAlternatives() (Alternatives, error) {
	seq, err := p.parseSequence()
	if err != nil {
		return nil, err
	}
	alts := Alternatives{seq}
	for p.at(TokenPipe) || p.at(TokenSemicolon) {
		p.consume()
		seq, err := p.parseSequence()
		if err != nil {
			return nil, err
		}
		alts = append(alts, seq)
	}
	return alts, nil
}

// sequence = factor (',' factor)* | factor+ | ε
func (p *parser) parseSequence() (Sequence, error) {
	// Empty sequences occur in rules like "ws: ; blank." and in "()".
	if p.atSequenceEnd() {
		return Sequence{}, nil
	}

	factor, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	seq := Sequence{factor}

	if p.at(TokenComma) {
		for p.at(TokenComma) {
			p.consume()
			factor, err := p.parseFactor()
			if err != nil {
				return nil, err
			}
			seq = append(seq, factor)
		}
		return seq, nil
	}

	// Whitespace-separated factors.
	for !p.atSequenceEnd() {
		factor, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		seq = append(seq, factor)
	}
	return seq, nil
}

func (p *parser) atSequenceEnd() bool {
	switch p.peek().Kind {
	case TokenPeriod, TokenPipe, TokenSemicolon, TokenRParen, TokenEOF:
		return true
	}
	return false
}

// factor = term ['?' | '*' | '+' | '**' separator | '++' separator]
func (p *parser) parseFactor() (Factor, error) {
	term, err := p.parseTerm()
	if err != nil {
		return Factor{}, err
	}

	switch p.peek().Kind {
	case TokenQuestion:
		p.consume()
		return Factor{Term: term, Rep: RepOptional}, nil
	case TokenStar:
		p.consume()
		return Factor{Term: term, Rep: RepZeroOrMore}, nil
	case TokenPlus:
		p.consume()
		return Factor{Term: term, Rep: RepOneOrMore}, nil
	case TokenDoubleStar:
		p.consume()
		sep, err := p.parseSeparator()
		if err != nil {
			return Factor{}, err
		}
		return Factor{Term: term, Rep: RepSepZeroOrMore, Sep: sep}, nil
	case TokenDoublePlus:
		p.consume()
		sep, err := p.parseSeparator()
		if err != nil {
			return Factor{}, err
		}
		return Factor{Term: term, Rep: RepSepOneOrMore, Sep: sep}, nil
	default:
		return Factor{Term: term}, nil
	}
}

// separator = '(' sequence ')' | term
func (p *parser) parseSeparator() (Sequence, error) {
	if p.at(TokenLParen) {
		p.consume()
		seq, err := p.parseSequence()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return seq, nil
	}
	term, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	return Sequence{{Term: term}}, nil
}

// term = [mark] (name | string | hexchar | charclass) |
//
//	'+' (string | hexchar) | ['mark'] '~' charclass | '(' alternatives ')'
func (p *parser) parseTerm() (Term, error) {
	tok := p.peek()

	switch tok.Kind {
	case TokenAt, TokenMinus, TokenCaret:
		mark := p.parseMark()
		return p.parseMarkedTerm(mark)

	case TokenPlus:
		// Insertion: +"text" or +#hex.
		p.consume()
		switch next := p.peek(); next.Kind {
		case TokenString:
			p.consume()
			return &Literal{Value: next.Text, Insertion: true}, nil
		case TokenHexChar:
			p.consume()
			ch, err := hexToRune(next)
			if err != nil {
				return nil, err
			}
			return &Literal{Value: string(ch), Insertion: true}, nil
		default:
			return nil, fmt.Errorf("%s: expected string after '+', found %s", next.Position, next.Kind)
		}

	case TokenTilde:
		p.consume()
		cls, err := p.expect(TokenCharClass)
		if err != nil {
			return nil, fmt.Errorf("after '~': %w", err)
		}
		return &CharClass{Spec: cls.Text, Negated: true}, nil

	case TokenLParen:
		p.consume()
		alts, err := p.parseAlternatives()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return &Group{Alts: alts}, nil

	default:
		return p.parseMarkedTerm(NoMark)
	}
}

func (p *parser) parseMarkedTerm(mark Mark) (Term, error) {
	tok := p.peek()
	switch tok.Kind {
	case TokenIdent:
		p.consume()
		return &Nonterminal{Name: tok.Text, Mark: mark}, nil
	case TokenString:
		p.consume()
		return &Literal{Value: tok.Text, Mark: mark}, nil
	case TokenHexChar:
		p.consume()
		ch, err := hexToRune(tok)
		if err != nil {
			return nil, err
		}
		return &Literal{Value: string(ch), Mark: mark}, nil
	case TokenCharClass:
		p.consume()
		return &CharClass{Spec: tok.Text, Mark: mark}, nil
	case TokenTilde:
		p.consume()
		cls, err := p.expect(TokenCharClass)
		if err != nil {
			return nil, fmt.Errorf("after '~': %w", err)
		}
		return &CharClass{Spec: cls.Text, Negated: true, Mark: mark}, nil
	default:
		return nil, fmt.Errorf("%s: expected factor, found %s", tok.Position, tok.Kind)
	}
}

func hexToRune(tok Token) (rune, error) {
	code, err := strconv.ParseUint(tok.Text, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid hex character #%s", tok.Position, tok.Text)
	}
	ch := rune(code)
	if !isValidRune(ch) {
		return 0, fmt.Errorf("%s: #%s is not a Unicode codepoint", tok.Position, tok.Text)
	}
	return ch, nil
}

func isValidRune(ch rune) bool {
	return ch >= 0 && ch <= 0x10FFFF && !(ch >= 0xD800 && ch <= 0xDFFF)
}
