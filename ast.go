package main

import (
	"strconv"
	"strings"
)

// Expression is one of *Primary, *UnaryExpression, *BinaryExpression,
// *CallExpression or *AssignmentExpression. Each node exclusively owns its
// children; the tree is never mutated after parsing.
type Expression interface {
	expressionNode()
}

// Primary holds either a Token or, when Expression is non-nil, a nested
// (parenthesized) sub-expression.
//
//	(1 + 2)
//	^^^^^^^  Primary{Expression: BinaryExpression{...}}
//	 ^       Primary{Token: INT(1)}
type Primary struct {
	Token      Token
	Expression Expression
}

// UnaryExpression is Op Value, e.g. -x or not x.
type UnaryExpression struct {
	Op    *Primary
	Value Expression
}

// BinaryExpression is LHS Op RHS. Field access is a BinaryExpression whose
// operator is DOT and whose RHS is a bare identifier.
type BinaryExpression struct {
	LHS Expression
	Op  *Primary
	RHS Expression
}

// CallExpression is Callee(Arguments...).
type CallExpression struct {
	Callee    Expression
	Arguments []Expression
}

// AssignmentExpression is Target = Value.
type AssignmentExpression struct {
	Target *Primary
	Value  Expression
}

func (*Primary) expressionNode()              {}
func (*UnaryExpression) expressionNode()      {}
func (*BinaryExpression) expressionNode()     {}
func (*CallExpression) expressionNode()       {}
func (*AssignmentExpression) expressionNode() {}

// Statement is a top-level or function-body statement.
type Statement interface {
	statementNode()
	StatementLine() int
}

// ExpressionStatement evaluates an expression for its effect.
type ExpressionStatement struct {
	Expression Expression
	Line       int
}

// VarDeclaration is `def Name as TypeID [= Value]`.
type VarDeclaration struct {
	Name   string
	TypeID string
	Value  Expression // nil when uninitialized
	Line   int
}

// FieldDeclaration is one `def` line inside a type block.
type FieldDeclaration struct {
	Name   string
	TypeID string
}

// TypeDeclaration is a `type Name ... end` block.
type TypeDeclaration struct {
	Name   string
	Fields []FieldDeclaration
	Line   int
}

// Parameter is a function argument declaration.
type Parameter struct {
	Name   string
	TypeID string
}

// FunctionDeclaration is `function [Receiver.]Name(...) [as ReturnTypeID] ... end`.
// Receiver is empty for free functions; ReturnTypeID is empty when the
// function returns nothing.
type FunctionDeclaration struct {
	Name         string
	Receiver     string
	Parameters   []Parameter
	ReturnTypeID string
	Body         []Statement
	Line         int
}

// ReturnStatement is `return [Value]`.
type ReturnStatement struct {
	Value Expression
	Line  int
}

// ImportStatement is `import "Path"`.
type ImportStatement struct {
	Path string
	Line int
}

func (*ExpressionStatement) statementNode() {}
func (*VarDeclaration) statementNode()      {}
func (*TypeDeclaration) statementNode()     {}
func (*FunctionDeclaration) statementNode() {}
func (*ReturnStatement) statementNode()     {}
func (*ImportStatement) statementNode()     {}

func (s *ExpressionStatement) StatementLine() int { return s.Line }
func (s *VarDeclaration) StatementLine() int      { return s.Line }
func (s *TypeDeclaration) StatementLine() int     { return s.Line }
func (s *FunctionDeclaration) StatementLine() int { return s.Line }
func (s *ReturnStatement) StatementLine() int     { return s.Line }
func (s *ImportStatement) StatementLine() int     { return s.Line }

// Program is the top-level container produced by the parser.
type Program struct {
	Statements []Statement
}

// Label returns the assembly label of a function.
func (f *FunctionDeclaration) Label() string {
	return FunctionLabel(f.Receiver, f.Name)
}

// FunctionLabel mangles a function name into an assembly label. Free
// functions get a gs_ prefix, so they never collide with register names or
// the generator's own labels. Methods carry the length of their type name,
// so Point.scale (gs5_Point_scale) stays apart from Point_s.cale.
func FunctionLabel(receiver, name string) string {
	if receiver != "" {
		return "gs" + strconv.Itoa(len(receiver)) + "_" + receiver + "_" + name
	}
	return "gs_" + name
}

// operatorType returns the token type of an operator Primary. An operator
// that does not hold a Token is a parser bug.
func operatorType(op *Primary) TokenType {
	if op == nil || op.Expression != nil {
		internalError("operator Primary does not contain a Token")
	}
	return op.Token.Type
}

// IdentifierName returns the name of expr when it is a bare identifier.
func IdentifierName(expr Expression) (string, bool) {
	p, ok := expr.(*Primary)
	if !ok || p.Expression != nil || p.Token.Type != IDENT {
		return "", false
	}
	return p.Token.Text, true
}

// unwrapPrimary strips nested Primary wrappers.
func unwrapPrimary(expr Expression) Expression {
	for {
		p, ok := expr.(*Primary)
		if !ok || p.Expression == nil {
			return expr
		}
		expr = p.Expression
	}
}

// ToSExpr converts an expression to its s-expression representation.
func ToSExpr(expr Expression) string {
	switch n := expr.(type) {
	case *Primary:
		if n.Expression != nil {
			return ToSExpr(n.Expression)
		}
		switch n.Token.Type {
		case LITERAL_INT:
			return "(integer " + strconv.FormatInt(n.Token.Integer, 10) + ")"
		case LITERAL_STRING:
			return "(string " + strconv.Quote(n.Token.Text) + ")"
		case IDENT:
			return "(ident " + strconv.Quote(n.Token.Text) + ")"
		case THIS:
			return "(this)"
		default:
			return "(token " + strconv.Quote(string(n.Token.Type)) + ")"
		}
	case *UnaryExpression:
		return "(unary " + strconv.Quote(string(operatorType(n.Op))) + " " + ToSExpr(n.Value) + ")"
	case *BinaryExpression:
		op := operatorType(n.Op)
		if field, ok := IdentifierName(n.RHS); ok && op == DOT {
			return "(dot " + ToSExpr(n.LHS) + " " + strconv.Quote(field) + ")"
		}
		return "(binary " + strconv.Quote(string(op)) + " " + ToSExpr(n.LHS) + " " + ToSExpr(n.RHS) + ")"
	case *CallExpression:
		result := "(call " + ToSExpr(n.Callee)
		for _, arg := range n.Arguments {
			result += " " + ToSExpr(arg)
		}
		return result + ")"
	case *AssignmentExpression:
		return "(assign " + ToSExpr(n.Target) + " " + ToSExpr(n.Value) + ")"
	default:
		return ""
	}
}

// StatementToSExpr converts a statement to its s-expression representation.
func StatementToSExpr(stmt Statement) string {
	switch s := stmt.(type) {
	case *ExpressionStatement:
		return ToSExpr(s.Expression)
	case *VarDeclaration:
		result := "(var-decl " + strconv.Quote(s.Name) + " " + strconv.Quote(s.TypeID)
		if s.Value != nil {
			result += " " + ToSExpr(s.Value)
		}
		return result + ")"
	case *TypeDeclaration:
		fields := make([]string, len(s.Fields))
		for i, f := range s.Fields {
			fields[i] = "(field " + strconv.Quote(f.Name) + " " + strconv.Quote(f.TypeID) + ")"
		}
		return "(type " + strconv.Quote(s.Name) + " [" + strings.Join(fields, " ") + "])"
	case *FunctionDeclaration:
		name := s.Name
		if s.Receiver != "" {
			name = s.Receiver + "." + s.Name
		}
		params := make([]string, len(s.Parameters))
		for i, p := range s.Parameters {
			params[i] = "(param " + strconv.Quote(p.Name) + " " + strconv.Quote(p.TypeID) + ")"
		}
		result := "(func " + strconv.Quote(name) + " [" + strings.Join(params, " ") + "] " + strconv.Quote(s.ReturnTypeID) + " (block"
		for _, body := range s.Body {
			result += " " + StatementToSExpr(body)
		}
		return result + "))"
	case *ReturnStatement:
		if s.Value == nil {
			return "(return)"
		}
		return "(return " + ToSExpr(s.Value) + ")"
	case *ImportStatement:
		return "(import " + strconv.Quote(s.Path) + ")"
	default:
		return ""
	}
}

// ProgramToSExpr renders a whole program as a bracketed statement list.
func ProgramToSExpr(program *Program) string {
	parts := make([]string, len(program.Statements))
	for i, stmt := range program.Statements {
		parts[i] = StatementToSExpr(stmt)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
