package main

import "fmt"

// Parser builds a Program from a token stream. Statement-level errors are
// collected in Errors and parsing resumes at the next line.
type Parser struct {
	tokens []Token
	pos    int
	Errors ErrorCollection
}

func NewParser(tokens []Token) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != EOF {
		tokens = append(tokens, Token{Type: EOF})
	}
	return &Parser{tokens: tokens}
}

// ParseExpression lexes and parses a single expression. Trailing tokens
// other than newlines are an error.
func ParseExpression(source string) (Expression, error) {
	tokens, err := Lex(source)
	if err != nil {
		return nil, err
	}
	p := NewParser(tokens)
	p.skipNewlines()
	expr, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	p.skipNewlines()
	if p.peek().Type != EOF {
		return nil, p.errorf("unexpected %s after expression", p.peek())
	}
	return expr, nil
}

// ParseSource lexes and parses a whole program.
func ParseSource(source string) (*Program, error) {
	tokens, err := Lex(source)
	if err != nil {
		return nil, err
	}
	p := NewParser(tokens)
	program := p.ParseProgram()
	if p.Errors.HasErrors() {
		return program, fmt.Errorf("parsing errors:\n%s", p.Errors.String())
	}
	return program, nil
}

func (p *Parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *Parser) advance() Token {
	tok := p.tokens[p.pos]
	if tok.Type != EOF {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(tt TokenType) (Token, error) {
	if p.peek().Type != tt {
		return Token{}, p.errorf("expected %s but got %s", tt, p.peek())
	}
	return p.advance(), nil
}

func (p *Parser) errorf(format string, args ...any) error {
	return CompileError{Message: fmt.Sprintf(format, args...), Line: p.peek().Line}
}

func (p *Parser) skipNewlines() {
	for p.peek().Type == NEWLINE {
		p.advance()
	}
}

// skipLine discards tokens up to and including the next newline.
func (p *Parser) skipLine() {
	for p.peek().Type != NEWLINE && p.peek().Type != EOF {
		p.advance()
	}
	p.skipNewlines()
}

// skipBlock discards tokens through the `end` closing a function or type.
// Blocks do not nest.
func (p *Parser) skipBlock() {
	for p.peek().Type != END && p.peek().Type != EOF {
		p.advance()
	}
	p.advance()
	p.skipLine()
}

// ParseProgram parses statements until EOF.
func (p *Parser) ParseProgram() *Program {
	program := &Program{}
	p.skipNewlines()
	for p.peek().Type != EOF {
		start := p.peek().Type
		stmt, err := p.parseStatement(true)
		if err != nil {
			p.recordError(err)
			if start == FUNCTION || start == TYPE {
				p.skipBlock()
			} else {
				p.skipLine()
			}
			continue
		}
		program.Statements = append(program.Statements, stmt)
		if err := p.endOfStatement(); err != nil {
			p.recordError(err)
			p.skipLine()
		}
	}
	return program
}

func (p *Parser) recordError(err error) {
	if ce, ok := err.(CompileError); ok {
		p.Errors.Add(fmt.Errorf("%s", ce.Message), ce.Line)
		return
	}
	p.Errors.Add(err, p.peek().Line)
}

func (p *Parser) endOfStatement() error {
	switch p.peek().Type {
	case NEWLINE:
		p.skipNewlines()
		return nil
	case EOF:
		return nil
	default:
		return p.errorf("expected end of line but got %s", p.peek())
	}
}

func (p *Parser) parseStatement(topLevel bool) (Statement, error) {
	line := p.peek().Line
	switch p.peek().Type {
	case IMPORT:
		if !topLevel {
			return nil, p.errorf("import is only allowed at the top level")
		}
		p.advance()
		path, err := p.expect(LITERAL_STRING)
		if err != nil {
			return nil, err
		}
		return &ImportStatement{Path: path.Text, Line: line}, nil

	case DEF:
		name, typeID, err := p.parseDeclarator()
		if err != nil {
			return nil, err
		}
		decl := &VarDeclaration{Name: name, TypeID: typeID, Line: line}
		if p.peek().Type == ASSIGN {
			p.advance()
			decl.Value, err = p.ParseExpression()
			if err != nil {
				return nil, err
			}
		}
		return decl, nil

	case TYPE:
		if !topLevel {
			return nil, p.errorf("type declarations are only allowed at the top level")
		}
		return p.parseTypeDeclaration()

	case FUNCTION:
		if !topLevel {
			return nil, p.errorf("nested function declarations are not allowed")
		}
		return p.parseFunctionDeclaration()

	case RETURN:
		p.advance()
		stmt := &ReturnStatement{Line: line}
		if p.peek().Type != NEWLINE && p.peek().Type != EOF {
			value, err := p.ParseExpression()
			if err != nil {
				return nil, err
			}
			stmt.Value = value
		}
		return stmt, nil

	default:
		expr, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		return &ExpressionStatement{Expression: expr, Line: line}, nil
	}
}

// parseDeclarator parses `def IDENT as TYPE`.
func (p *Parser) parseDeclarator() (string, string, error) {
	if _, err := p.expect(DEF); err != nil {
		return "", "", err
	}
	name, err := p.expect(IDENT)
	if err != nil {
		return "", "", err
	}
	if _, err := p.expect(AS); err != nil {
		return "", "", err
	}
	typeID, err := p.parseType()
	if err != nil {
		return "", "", err
	}
	return name.Text, typeID, nil
}

func (p *Parser) parseType() (string, error) {
	id, ok := TokenToTypeID(p.peek())
	if !ok {
		return "", p.errorf("expected type but got %s", p.peek())
	}
	p.advance()
	return id, nil
}

func (p *Parser) parseTypeDeclaration() (Statement, error) {
	line := p.advance().Line // type
	name, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	decl := &TypeDeclaration{Name: name.Text, Line: line}
	if err := p.endOfStatement(); err != nil {
		return nil, err
	}
	for p.peek().Type != END {
		if p.peek().Type == EOF {
			return nil, p.errorf("expected end to close type %s", decl.Name)
		}
		fieldName, fieldType, err := p.parseDeclarator()
		if err != nil {
			return nil, err
		}
		decl.Fields = append(decl.Fields, FieldDeclaration{Name: fieldName, TypeID: fieldType})
		if err := p.endOfStatement(); err != nil {
			return nil, err
		}
	}
	p.advance() // end
	return decl, nil
}

func (p *Parser) parseFunctionDeclaration() (Statement, error) {
	line := p.advance().Line // function
	name, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	decl := &FunctionDeclaration{Name: name.Text, Line: line}
	if p.peek().Type == DOT {
		p.advance()
		method, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		decl.Receiver = decl.Name
		decl.Name = method.Text
	}

	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	for p.peek().Type != RPAREN {
		if len(decl.Parameters) > 0 {
			if _, err := p.expect(COMMA); err != nil {
				return nil, err
			}
		}
		paramName, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(AS); err != nil {
			return nil, err
		}
		paramType, err := p.parseType()
		if err != nil {
			return nil, err
		}
		decl.Parameters = append(decl.Parameters, Parameter{Name: paramName.Text, TypeID: paramType})
	}
	p.advance() // )

	if p.peek().Type == AS {
		p.advance()
		decl.ReturnTypeID, err = p.parseType()
		if err != nil {
			return nil, err
		}
	}
	if err := p.endOfStatement(); err != nil {
		return nil, err
	}

	for p.peek().Type != END {
		if p.peek().Type == EOF {
			return nil, p.errorf("expected end to close function %s", decl.Name)
		}
		stmt, err := p.parseStatement(false)
		if err != nil {
			return nil, err
		}
		decl.Body = append(decl.Body, stmt)
		if err := p.endOfStatement(); err != nil {
			return nil, err
		}
	}
	p.advance() // end
	return decl, nil
}

// ParseExpression parses one expression starting at the current token.
func (p *Parser) ParseExpression() (Expression, error) {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() (Expression, error) {
	lhs, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	if p.peek().Type != ASSIGN {
		return lhs, nil
	}

	target, ok := assignmentTarget(lhs)
	if !ok {
		return nil, p.errorf("invalid assignment target")
	}
	p.advance() // =
	value, err := p.parseAssignment() // right-associative
	if err != nil {
		return nil, err
	}
	return &AssignmentExpression{Target: target, Value: value}, nil
}

// assignmentTarget wraps an identifier, this, or field access as a Primary.
func assignmentTarget(expr Expression) (*Primary, bool) {
	switch n := expr.(type) {
	case *Primary:
		if n.Expression != nil {
			if _, ok := assignmentTarget(n.Expression); ok {
				return n, true
			}
			return nil, false
		}
		return n, n.Token.Type == IDENT || n.Token.Type == THIS
	case *BinaryExpression:
		if operatorType(n.Op) == DOT {
			return &Primary{Expression: n}, true
		}
	}
	return nil, false
}

func (p *Parser) parseTerm() (Expression, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == PLUS || p.peek().Type == MINUS {
		op := p.advance()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpression{LHS: left, Op: &Primary{Token: op}, RHS: right}
	}
	return left, nil
}

func (p *Parser) parseFactor() (Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == ASTERISK || p.peek().Type == FORWARD_SLASH {
		op := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpression{LHS: left, Op: &Primary{Token: op}, RHS: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Expression, error) {
	if p.peek().Type == MINUS || p.peek().Type == NOT {
		op := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpression{Op: &Primary{Token: op}, Value: operand}, nil
	}
	return p.parseCall()
}

// parseCall handles the postfix chain of argument lists and field accesses.
func (p *Parser) parseCall() (Expression, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Type {
		case LPAREN:
			p.advance()
			call := &CallExpression{Callee: expr}
			for p.peek().Type != RPAREN {
				if len(call.Arguments) > 0 {
					if _, err := p.expect(COMMA); err != nil {
						return nil, err
					}
				}
				arg, err := p.ParseExpression()
				if err != nil {
					return nil, err
				}
				call.Arguments = append(call.Arguments, arg)
			}
			p.advance() // )
			expr = call

		case DOT:
			dot := p.advance()
			field, err := p.expect(IDENT)
			if err != nil {
				return nil, err
			}
			expr = &BinaryExpression{
				LHS: expr,
				Op:  &Primary{Token: dot},
				RHS: &Primary{Token: field},
			}

		default:
			return expr, nil
		}
	}
}

func (p *Parser) parsePrimary() (Expression, error) {
	switch p.peek().Type {
	case LITERAL_INT, LITERAL_STRING, IDENT, THIS:
		return &Primary{Token: p.advance()}, nil

	case LPAREN:
		p.advance()
		inner, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return &Primary{Expression: inner}, nil

	default:
		return nil, p.errorf("expected expression but got %s", p.peek())
	}
}
