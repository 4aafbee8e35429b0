package query

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Call is one parsed verb invocation in a chain. Args hold Go natives
// (string, int64, float64, bool, nil) or a Placeholder awaiting Bind.
type Call struct {
	Verb string
	Args []any
}

// Placeholder is a named argument slot (`:key`) in a stored expression.
// It must be bound to a concrete value before planning.
type Placeholder struct {
	Key string
}

// ParseError reports an expression the chain grammar cannot accept.
// Cannot-parse always means reject, never best-effort accept.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at position %d: %s", e.Pos, e.Msg)
}

// Parse reads a verb chain of the form
//
//	verb(arg, ...)->verb(arg, ...)->...
//
// where arguments are single- or double-quoted strings, integers, floats,
// booleans, or null. Anything outside this grammar is rejected.
func Parse(expr string) ([]Call, error) {
	p := &parser{input: expr}
	p.skipSpaces()
	if p.eof() {
		return nil, &ParseError{Pos: p.pos, Msg: "empty expression"}
	}

	var calls []Call
	for {
		call, err := p.parseCall()
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)

		p.skipSpaces()
		if p.eof() {
			return calls, nil
		}
		if !p.consume("->") {
			return nil, &ParseError{Pos: p.pos, Msg: "expected '->' or end of expression"}
		}
		p.skipSpaces()
	}
}

type parser struct {
	input string
	pos   int
}

func (p *parser) eof() bool {
	return p.pos >= len(p.input)
}

func (p *parser) peek() byte {
	return p.input[p.pos]
}

func (p *parser) skipSpaces() {
	for !p.eof() && (p.peek() == ' ' || p.peek() == '\t' || p.peek() == '\n' || p.peek() == '\r') {
		p.pos++
	}
}

func (p *parser) consume(s string) bool {
	if strings.HasPrefix(p.input[p.pos:], s) {
		p.pos += len(s)
		return true
	}
	return false
}

func (p *parser) parseCall() (Call, error) {
	verb, err := p.parseIdent()
	if err != nil {
		return Call{}, err
	}

	p.skipSpaces()
	if p.eof() || p.peek() != '(' {
		return Call{}, &ParseError{Pos: p.pos, Msg: "expected '(' after verb " + verb}
	}
	p.pos++

	call := Call{Verb: verb}
	p.skipSpaces()
	if !p.eof() && p.peek() == ')' {
		p.pos++
		return call, nil
	}

	for {
		arg, err := p.parseArg()
		if err != nil {
			return Call{}, err
		}
		call.Args = append(call.Args, arg)

		p.skipSpaces()
		if p.eof() {
			return Call{}, &ParseError{Pos: p.pos, Msg: "unterminated argument list"}
		}
		switch p.peek() {
		case ',':
			p.pos++
			p.skipSpaces()
		case ')':
			p.pos++
			return call, nil
		default:
			return Call{}, &ParseError{Pos: p.pos, Msg: "expected ',' or ')'"}
		}
	}
}

func (p *parser) parseIdent() (string, error) {
	start := p.pos
	for !p.eof() {
		c := rune(p.peek())
		if unicode.IsLetter(c) || c == '_' || (p.pos > start && unicode.IsDigit(c)) {
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		return "", &ParseError{Pos: p.pos, Msg: "expected identifier"}
	}
	return p.input[start:p.pos], nil
}

func (p *parser) parseArg() (any, error) {
	if p.eof() {
		return nil, &ParseError{Pos: p.pos, Msg: "expected argument"}
	}

	switch c := p.peek(); {
	case c == '\'' || c == '"':
		return p.parseString(c)
	case c == ':':
		p.pos++
		key, err := p.parseIdent()
		if err != nil {
			return nil, &ParseError{Pos: p.pos, Msg: "expected placeholder name after ':'"}
		}
		return Placeholder{Key: key}, nil
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	default:
		word, err := p.parseIdent()
		if err != nil {
			return nil, &ParseError{Pos: p.pos, Msg: "unexpected argument"}
		}
		switch strings.ToLower(word) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "null", "nil":
			return nil, nil
		}
		return nil, &ParseError{Pos: p.pos, Msg: "bare identifiers are not valid arguments: " + word}
	}
}

func (p *parser) parseString(quote byte) (string, error) {
	p.pos++ // opening quote
	var b strings.Builder
	for !p.eof() {
		c := p.peek()
		switch c {
		case quote:
			p.pos++
			return b.String(), nil
		case '\\':
			p.pos++
			if p.eof() {
				return "", &ParseError{Pos: p.pos, Msg: "unterminated escape"}
			}
			esc := p.peek()
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '\\', '\'', '"':
				b.WriteByte(esc)
			default:
				return "", &ParseError{Pos: p.pos, Msg: "unknown escape sequence"}
			}
			p.pos++
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return "", &ParseError{Pos: p.pos, Msg: "unterminated string literal"}
}

func (p *parser) parseNumber() (any, error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	digits := 0
	dot := false
	for !p.eof() {
		c := p.peek()
		if c >= '0' && c <= '9' {
			digits++
			p.pos++
			continue
		}
		if c == '.' && !dot {
			dot = true
			p.pos++
			continue
		}
		break
	}
	if digits == 0 {
		return nil, &ParseError{Pos: start, Msg: "malformed number"}
	}
	text := p.input[start:p.pos]
	if dot {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, &ParseError{Pos: start, Msg: "malformed number"}
		}
		return f, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, &ParseError{Pos: start, Msg: "malformed number"}
	}
	return n, nil
}
