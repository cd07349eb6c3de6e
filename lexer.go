package main

import (
	"fmt"
	"strconv"
	"strings"
)

// Lex splits source text into tokens. The result always ends with EOF.
func Lex(source string) ([]Token, error) {
	l := &lexer{input: source, line: 1}
	for {
		tok, err := l.next()
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", l.line, err)
		}
		if tok.Type == "" {
			continue
		}
		l.tokens = append(l.tokens, tok)
		if tok.Type == EOF {
			return l.tokens, nil
		}
	}
}

type lexer struct {
	input  string
	pos    int
	line   int
	tokens []Token
}

// next scans one token. A zero Token means the scanned text produced
// nothing (a line continuation or a comment).
func (l *lexer) next() (Token, error) {
	l.skipWhitespace()
	if l.pos >= len(l.input) {
		return Token{Type: EOF, Line: l.line}, nil
	}

	c := l.input[l.pos]
	switch {
	case c == '\n':
		l.pos++
		tok := Token{Type: NEWLINE, Line: l.line}
		l.line++
		return tok, nil

	case c == '#':
		for l.pos < len(l.input) && l.input[l.pos] != '\n' {
			l.pos++
		}
		return Token{}, nil

	case c == '\\':
		// Line continuation: swallow the backslash and the next newline.
		l.pos++
		l.skipWhitespace()
		if l.pos < len(l.input) && l.input[l.pos] == '\n' {
			l.pos++
			l.line++
		}
		return Token{}, nil

	case c == '"':
		return l.readString()

	case isDigit(c):
		return l.readNumber()

	case isLetter(c):
		word := l.readWord()
		if tt, ok := keywords[word]; ok {
			return Token{Type: tt, Line: l.line}, nil
		}
		return Token{Type: IDENT, Text: word, Line: l.line}, nil

	case isSymbolChar(c):
		return l.readSymbol()

	default:
		return Token{}, fmt.Errorf("unexpected character: %q", c)
	}
}

func (l *lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ', '\t', '\r', '\v', '\f':
			l.pos++
		default:
			return
		}
	}
}

func (l *lexer) readString() (Token, error) {
	l.pos++ // opening quote
	start := l.pos
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case '\n':
			return Token{}, fmt.Errorf("unexpected newline encountered in string literal")
		case '"':
			text := l.input[start:l.pos]
			l.pos++
			return Token{Type: LITERAL_STRING, Text: text, Line: l.line}, nil
		}
		l.pos++
	}
	return Token{}, fmt.Errorf("unterminated string literal")
}

func (l *lexer) readNumber() (Token, error) {
	start := l.pos
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
	text := l.input[start:l.pos]
	// Literals must fit the widest target type, u32.
	value, err := strconv.ParseUint(text, 10, 32)
	if err != nil {
		return Token{}, fmt.Errorf("integer literal %s overflows u32", text)
	}
	return Token{Type: LITERAL_INT, Integer: int64(value), Line: l.line}, nil
}

func (l *lexer) readWord() string {
	start := l.pos
	for l.pos < len(l.input) && (isLetter(l.input[l.pos]) || isDigit(l.input[l.pos])) {
		l.pos++
	}
	return l.input[start:l.pos]
}

// readSymbol takes the longest known symbol at the current position.
func (l *lexer) readSymbol() (Token, error) {
	rest := l.input[l.pos:]
	for _, sym := range symbols {
		if strings.HasPrefix(rest, string(sym)) {
			l.pos += len(sym)
			return Token{Type: sym, Line: l.line}, nil
		}
	}
	return Token{}, fmt.Errorf("unknown symbol: %q", rest[0])
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isSymbolChar(c byte) bool {
	switch c {
	case '+', '-', '*', '/', '.', '(', ')', '[', ']', '=', '>', '<', ',', '!':
		return true
	}
	return false
}
