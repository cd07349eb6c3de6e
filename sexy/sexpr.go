// Package sexy reads the s-expressions used by the Markdown test corpus
// and extracts test cases from it.
package sexy

import (
	"fmt"
	"strings"
	"unicode"
)

// NodeType represents the type of a Node
type NodeType int

const (
	NodeSymbol NodeType = iota
	NodeString
	NodeInteger
	NodeEllipsis
	NodeList
	NodeArray
)

func (t NodeType) String() string {
	switch t {
	case NodeSymbol:
		return "symbol"
	case NodeString:
		return "string"
	case NodeInteger:
		return "integer"
	case NodeEllipsis:
		return "ellipsis"
	case NodeList:
		return "list"
	case NodeArray:
		return "array"
	default:
		return fmt.Sprintf("NodeType(%d)", int(t))
	}
}

// Node is one datum: an atom, (a list) or [an array].
type Node struct {
	Type  NodeType
	Text  string  // NodeSymbol, NodeString, NodeInteger
	Items []*Node // NodeList, NodeArray
}

func (n *Node) String() string {
	switch n.Type {
	case NodeString:
		escaped := strings.ReplaceAll(n.Text, "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
		return "\"" + escaped + "\""
	case NodeEllipsis:
		return "..."
	case NodeList, NodeArray:
		parts := make([]string, len(n.Items))
		for i, item := range n.Items {
			parts[i] = item.String()
		}
		if n.Type == NodeList {
			return "(" + strings.Join(parts, " ") + ")"
		}
		return "[" + strings.Join(parts, " ") + "]"
	default:
		return n.Text
	}
}

func NewSymbol(name string) *Node {
	return &Node{Type: NodeSymbol, Text: name}
}

func NewString(value string) *Node {
	return &Node{Type: NodeString, Text: value}
}

func NewInteger(text string) *Node {
	return &Node{Type: NodeInteger, Text: text}
}

func NewList(items []*Node) *Node {
	return &Node{Type: NodeList, Items: items}
}

func NewArray(items []*Node) *Node {
	return &Node{Type: NodeArray, Items: items}
}

// Match checks actual against pattern. In a pattern, the symbol _ matches
// any datum and a trailing ... in a list or array matches any remaining
// items. The error names the path of the first mismatch.
func Match(pattern, actual *Node) error {
	return match(pattern, actual, "root")
}

func match(pattern, actual *Node, path string) error {
	if pattern.Type == NodeSymbol && pattern.Text == "_" {
		return nil
	}
	if pattern.Type != actual.Type {
		return fmt.Errorf("at %s: expected %s %s, got %s %s", path, pattern.Type, pattern, actual.Type, actual)
	}
	switch pattern.Type {
	case NodeList, NodeArray:
		for i, item := range pattern.Items {
			if item.Type == NodeEllipsis {
				return nil
			}
			if i >= len(actual.Items) {
				return fmt.Errorf("at %s: expected %s, got %s (too few items)", path, pattern, actual)
			}
			if err := match(item, actual.Items[i], fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		if len(actual.Items) > len(pattern.Items) {
			return fmt.Errorf("at %s: expected %s, got %s (too many items)", path, pattern, actual)
		}
		return nil
	default:
		if pattern.Text != actual.Text {
			return fmt.Errorf("at %s: expected %s, got %s", path, pattern, actual)
		}
		return nil
	}
}

type parser struct {
	lexer        *lexer
	currentToken token
}

// Parse parses the entire input and returns the top-level datum
func Parse(input string) (*Node, error) {
	p := &parser{lexer: newLexer(input)}
	p.nextToken()

	result, err := p.parseDatum()
	if len(p.lexer.errors) > 0 {
		// Lexer errors take priority because they might cause confusing parser errors.
		return nil, fmt.Errorf("%s", p.lexer.errors[0])
	}
	if err != nil {
		return nil, err
	}
	if p.currentToken.Type != tokenEOF {
		return nil, fmt.Errorf("expected EOF but got %s", p.currentToken.Type)
	}
	return result, nil
}

func (p *parser) nextToken() {
	p.currentToken = p.lexer.nextToken()
}

func (p *parser) parseDatum() (*Node, error) {
	tok := p.currentToken
	switch tok.Type {
	case tokenSymbol:
		p.nextToken()
		return NewSymbol(tok.Value), nil
	case tokenString:
		p.nextToken()
		return NewString(tok.Value), nil
	case tokenInteger:
		p.nextToken()
		return NewInteger(tok.Value), nil
	case tokenEllipsis:
		p.nextToken()
		return &Node{Type: NodeEllipsis}, nil
	case tokenLParen:
		items, err := p.parseItems(tokenRParen)
		if err != nil {
			return nil, err
		}
		return NewList(items), nil
	case tokenLBracket:
		items, err := p.parseItems(tokenRBracket)
		if err != nil {
			return nil, err
		}
		return NewArray(items), nil
	default:
		return nil, fmt.Errorf("unexpected token: %s", tok.Type)
	}
}

// parseItems parses data up to the closing token.
func (p *parser) parseItems(closing tokenType) ([]*Node, error) {
	p.nextToken() // consume opening bracket
	items := []*Node{}
	for p.currentToken.Type != closing {
		if p.currentToken.Type == tokenEOF {
			return nil, fmt.Errorf("expected %s but got EOF", closing)
		}
		item, err := p.parseDatum()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	p.nextToken() // consume closing bracket
	return items, nil
}

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenSymbol
	tokenString
	tokenInteger
	tokenEllipsis
	tokenLParen
	tokenRParen
	tokenLBracket
	tokenRBracket
)

func (t tokenType) String() string {
	switch t {
	case tokenEOF:
		return "EOF"
	case tokenSymbol:
		return "symbol"
	case tokenString:
		return "string"
	case tokenInteger:
		return "integer"
	case tokenEllipsis:
		return "ellipsis"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	case tokenLBracket:
		return "'['"
	case tokenRBracket:
		return "']'"
	default:
		return fmt.Sprintf("unknown token %d", int(t))
	}
}

type token struct {
	Type  tokenType
	Value string
}

type lexer struct {
	input    string
	position int
	errors   []string
}

func newLexer(input string) *lexer {
	return &lexer{input: input}
}

func (l *lexer) peek(offset int) byte {
	if l.position+offset >= len(l.input) {
		return 0
	}
	return l.input[l.position+offset]
}

func (l *lexer) nextToken() token {
	for {
		for l.position < len(l.input) && unicode.IsSpace(rune(l.input[l.position])) {
			l.position++
		}
		c := l.peek(0)
		switch {
		case c == 0:
			return token{Type: tokenEOF}
		case c == ';':
			for l.peek(0) != '\n' && l.peek(0) != 0 {
				l.position++
			}
			continue
		case c == '(':
			l.position++
			return token{Type: tokenLParen, Value: "("}
		case c == ')':
			l.position++
			return token{Type: tokenRParen, Value: ")"}
		case c == '[':
			l.position++
			return token{Type: tokenLBracket, Value: "["}
		case c == ']':
			l.position++
			return token{Type: tokenRBracket, Value: "]"}
		case c == '"':
			str, err := l.readString()
			if err != nil {
				l.errors = append(l.errors, err.Error())
				return token{Type: tokenEOF}
			}
			return token{Type: tokenString, Value: str}
		case c == '.':
			if l.peek(1) == '.' && l.peek(2) == '.' {
				l.position += 3
				return token{Type: tokenEllipsis, Value: "..."}
			}
			l.errors = append(l.errors, "unexpected character '.'")
			return token{Type: tokenEOF}
		case isDigit(c) || ((c == '-' || c == '+') && isDigit(l.peek(1))):
			start := l.position
			l.position++
			for isDigit(l.peek(0)) {
				l.position++
			}
			return token{Type: tokenInteger, Value: l.input[start:l.position]}
		case isSymbolChar(c):
			start := l.position
			for isSymbolChar(l.peek(0)) {
				l.position++
			}
			return token{Type: tokenSymbol, Value: l.input[start:l.position]}
		default:
			l.errors = append(l.errors, fmt.Sprintf("unexpected character '%c'", c))
			return token{Type: tokenEOF}
		}
	}
}

func (l *lexer) readString() (string, error) {
	var sb strings.Builder
	l.position++ // opening quote
	for {
		c := l.peek(0)
		switch c {
		case 0:
			return "", fmt.Errorf("unterminated string")
		case '"':
			l.position++
			return sb.String(), nil
		case '\\':
			switch l.peek(1) {
			case '"', '\\':
				sb.WriteByte(l.peek(1))
				l.position += 2
			default:
				return "", fmt.Errorf("invalid escape sequence: \\%c", l.peek(1))
			}
		default:
			sb.WriteByte(c)
			l.position++
		}
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// isSymbolChar accepts the characters of symbols like var-decl, _ and the
// operator names +, -, * and /.
func isSymbolChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || isDigit(c) ||
		c == '-' || c == '_' || c == '+' || c == '*' || c == '/'
}
