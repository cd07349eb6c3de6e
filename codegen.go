package main

import (
	"fmt"

	"github.com/strager/goldscorpion/m68k"
)

// Segment base labels.
const (
	dataLabel  = "data"
	constLabel = "const"
)

// accumulator is d0: every expression leaves its value there. a0 is the
// scratch address register for pointer dereferences.
const (
	accumulator    = 0
	scratchAddress = 0
)

// StringConstant is a string literal stored in the constant segment.
type StringConstant struct {
	Offset int
	Text   string
}

// Generator lowers typed expressions and statements to m68k instructions.
//
// The runtime stack mirrors the tracker's stack segment, except for
// temporaries: bytes pushed while an expression is being evaluated.
// Stack addressing adds those to every displacement.
type Generator struct {
	memory *MemoryTracker

	code        []m68k.Instruction
	temporaries int

	strings []StringConstant
	pending []StringConstant

	frame *frame

	init      []m68k.Instruction
	functions []m68k.Instruction

	Errors ErrorCollection
}

func NewGenerator(memory *MemoryTracker) *Generator {
	return &Generator{memory: memory}
}

// begin starts a scratch buffer for one expression or statement.
func (g *Generator) begin() {
	g.code = nil
	g.temporaries = 0
	g.pending = nil
}

// commit makes the scratch buffer's side effects permanent and returns its
// instructions.
func (g *Generator) commit() []m68k.Instruction {
	for _, s := range g.pending {
		element := MemoryElement{ID: fmt.Sprintf("string#%d", len(g.strings)), Type: ValueType{ID: TypeString}, Size: len(s.Text) + 1}
		query, err := g.memory.Insert(element, true)
		if err != nil || query.Offset != s.Offset {
			internalError("string constant %q placed inconsistently", s.Text)
		}
		g.strings = append(g.strings, s)
	}
	code := g.code
	g.begin()
	return code
}

func (g *Generator) emit(op m68k.Operator, size int, src, dst m68k.Operand) {
	var sz m68k.Size
	if size != 0 {
		sz = m68k.SizeOf(size)
	}
	g.code = append(g.code, m68k.Instruction{Operator: op, Size: sz, Source: src, Destination: dst})
}

func (g *Generator) pushed(bytes int) {
	g.temporaries += bytes
}

func (g *Generator) popped(bytes int) {
	g.temporaries -= bytes
	if g.temporaries < 0 {
		internalError("temporary stack underflow")
	}
}

// GenerateExpression lowers expr, leaving its value in d0. On error no
// instructions are returned and the tracker is unchanged.
func (g *Generator) GenerateExpression(expr Expression) ([]m68k.Instruction, error) {
	g.begin()
	if _, err := g.expression(expr); err != nil {
		g.begin()
		return nil, err
	}
	return g.commit(), nil
}

// operandWidth returns the primitive id and register width of a value of
// type t. Aggregates and functions do not fit in a register.
func operandWidth(t MemoryDataType, node string) (string, int, error) {
	id, ok := isPrimitive(t)
	if !ok {
		return "", 0, fmt.Errorf("error: unsupported operand for %s code generation: %s", node, TypeToString(t))
	}
	return id, PrimitiveTypeSize(id), nil
}

// expression generates expr into d0 and returns its type.
func (g *Generator) expression(expr Expression) (MemoryDataType, error) {
	switch n := expr.(type) {
	case *Primary:
		return g.primary(n)
	case *BinaryExpression:
		if operatorType(n.Op) == DOT {
			return g.load(n, "field access")
		}
		return g.binary(n)
	case *UnaryExpression:
		return g.unary(n)
	case *CallExpression:
		t, err := GetType(n, g.memory)
		if err != nil {
			return nil, err
		}
		if _, _, err := operandWidth(t, "CallExpression"); err != nil {
			return nil, err
		}
		fn, err := ResolveCall(n, g.memory)
		if err != nil {
			return nil, err
		}
		return t, g.call(n, fn)
	case *AssignmentExpression:
		return g.assignment(n)
	default:
		internalError("expression: unknown node %T", expr)
		return nil, nil
	}
}

func (g *Generator) primary(n *Primary) (MemoryDataType, error) {
	if n.Expression != nil {
		return g.expression(n.Expression)
	}
	t, err := GetType(n, g.memory)
	if err != nil {
		return nil, err
	}
	switch n.Token.Type {
	case LITERAL_INT:
		g.emit(m68k.Move, PrimitiveTypeSize(t.(ValueType).ID), m68k.Imm(n.Token.Integer), m68k.D(accumulator))
		return t, nil
	case LITERAL_STRING:
		offset := g.internString(n.Token.Text)
		g.emit(m68k.Move, 4, m68k.ImmLabel(constLabel, int64(offset)), m68k.D(accumulator))
		return t, nil
	default:
		return g.load(n, "Primary")
	}
}

// load reads an addressable primitive into d0.
func (g *Generator) load(expr Expression, node string) (MemoryDataType, error) {
	t, err := GetType(expr, g.memory)
	if err != nil {
		return nil, err
	}
	_, size, err := operandWidth(t, node)
	if err != nil {
		return nil, err
	}
	location, err := g.address(expr)
	if err != nil {
		return nil, err
	}
	g.emit(m68k.Move, size, location, m68k.D(accumulator))
	return t, nil
}

// internString returns the constant segment offset of text, allocating it
// on first use. Allocation becomes permanent on commit.
func (g *Generator) internString(text string) int {
	for _, s := range g.strings {
		if s.Text == text {
			return s.Offset
		}
	}
	offset := g.memory.ConstSize()
	for _, s := range g.pending {
		if s.Text == text {
			return s.Offset
		}
		offset += len(s.Text) + 1
	}
	g.pending = append(g.pending, StringConstant{Offset: offset, Text: text})
	return offset
}

// locate returns the operand addressing a placed element.
func (g *Generator) locate(query MemoryQuery) m68k.Operand {
	switch query.Class {
	case StorageStack:
		// The stack grows down: the most recent push is at 0(sp).
		displacement := g.temporaries + g.memory.StackSize() - query.Offset - query.Element.Size
		return m68k.Disp(int64(displacement), m68k.SP)
	case StorageGlobal:
		return m68k.Abs(dataLabel, int64(query.Offset))
	case StorageConst:
		return m68k.Abs(constLabel, int64(query.Offset))
	default:
		internalError("locate: unknown storage class %s", query.Class)
		return m68k.Operand{}
	}
}

// address returns an operand for the storage behind an identifier or a
// field access chain. It may emit a load of the this pointer into a0.
func (g *Generator) address(expr Expression) (m68k.Operand, error) {
	switch n := expr.(type) {
	case *Primary:
		if n.Expression != nil {
			return g.address(n.Expression)
		}
		if n.Token.Type != IDENT {
			return m68k.Operand{}, fmt.Errorf("error: unsupported operand for Primary code generation: %s", n.Token)
		}
		query, ok := g.memory.Find(n.Token.Text, false)
		if !ok {
			return m68k.Operand{}, fmt.Errorf("error: undefined variable %s", n.Token.Text)
		}
		if _, isFunction := query.Element.Type.(FunctionType); isFunction {
			return m68k.Operand{}, fmt.Errorf("error: unsupported operand for Primary code generation: function %s", n.Token.Text)
		}
		return g.locate(query), nil

	case *BinaryExpression:
		if operatorType(n.Op) != DOT {
			break
		}
		if _, err := GetType(n, g.memory); err != nil {
			return m68k.Operand{}, err
		}
		fieldID, _ := IdentifierName(unwrapPrimary(n.RHS))
		owner, err := GetType(n.LHS, g.memory)
		if err != nil {
			return m68k.Operand{}, err
		}
		offset, err := g.memory.FieldOffset(owner.(ValueType).ID, fieldID)
		if err != nil {
			return m68k.Operand{}, err
		}
		if base, ok := unwrapPrimary(n.LHS).(*Primary); ok && base.Token.Type == THIS {
			this, _ := g.memory.Find(thisID, false)
			g.emit(m68k.Move, 4, g.locate(this), m68k.A(scratchAddress))
			return m68k.Disp(int64(offset), scratchAddress), nil
		}
		base, err := g.address(n.LHS)
		if err != nil {
			return m68k.Operand{}, err
		}
		return offsetOperand(base, offset), nil
	}
	return m68k.Operand{}, fmt.Errorf("error: expression is not addressable")
}

func offsetOperand(o m68k.Operand, offset int) m68k.Operand {
	switch o.Mode {
	case m68k.ModeDisplacement, m68k.ModeAbsolute:
		o.Value += int64(offset)
		return o
	default:
		internalError("cannot offset operand %s", o)
		return o
	}
}

// widen extends d0 from one width to a larger one.
func (g *Generator) widen(from, to int, signed bool) {
	if from >= to {
		return
	}
	if signed {
		if from == 1 {
			g.emit(m68k.Ext, 2, m68k.Operand{}, m68k.D(accumulator))
		}
		if to == 4 {
			g.emit(m68k.Ext, 4, m68k.Operand{}, m68k.D(accumulator))
		}
		return
	}
	g.emit(m68k.And, to, m68k.Imm(int64(1)<<(8*from)-1), m68k.D(accumulator))
}

// pushOperand evaluates expr onto the runtime stack at the given width.
// Integer literals are pushed as immediates.
func (g *Generator) pushOperand(expr Expression, size int) error {
	if lit, ok := unwrapPrimary(expr).(*Primary); ok && lit.Token.Type == LITERAL_INT {
		g.emit(m68k.Move, size, m68k.Imm(lit.Token.Integer), m68k.Push())
		g.pushed(size)
		return nil
	}
	t, err := g.expression(expr)
	if err != nil {
		return err
	}
	id, width, err := operandWidth(t, "operand")
	if err != nil {
		return err
	}
	g.widen(width, size, IsSignedType(id))
	g.emit(m68k.Move, size, m68k.D(accumulator), m68k.Push())
	g.pushed(size)
	return nil
}

// binary pushes the right operand, then the left, pops the left into d0
// and combines it with the right.
func (g *Generator) binary(n *BinaryExpression) (MemoryDataType, error) {
	t, err := GetType(n, g.memory)
	if err != nil {
		return nil, err
	}
	id, size, err := operandWidth(t, "BinaryExpression")
	if err != nil {
		return nil, err
	}
	if err := g.pushOperand(n.RHS, size); err != nil {
		return nil, err
	}
	if err := g.pushOperand(n.LHS, size); err != nil {
		return nil, err
	}
	g.emit(m68k.Move, size, m68k.Pop(), m68k.D(accumulator))
	g.popped(size)

	signed := IsSignedType(id)
	var op m68k.Operator
	switch operatorType(n.Op) {
	case PLUS:
		op = m68k.Add
	case MINUS:
		op = m68k.Sub
	case ASTERISK:
		op = m68k.Mulu
		if signed {
			op = m68k.Muls
		}
	case FORWARD_SLASH:
		op = m68k.Divu
		if signed {
			op = m68k.Divs
		}
	default:
		internalError("no instruction for binary operator %s", operatorType(n.Op))
	}
	g.emit(op, size, m68k.Pop(), m68k.D(accumulator))
	g.popped(size)
	return t, nil
}

func (g *Generator) unary(n *UnaryExpression) (MemoryDataType, error) {
	t, err := GetType(n, g.memory)
	if err != nil {
		return nil, err
	}
	_, size, err := operandWidth(t, "UnaryExpression")
	if err != nil {
		return nil, err
	}
	op := m68k.Not
	if operatorType(n.Op) == MINUS {
		op = m68k.Neg
		if lit, ok := unwrapPrimary(n.Value).(*Primary); ok && lit.Token.Type == LITERAL_INT {
			g.emit(m68k.Move, size, m68k.Imm(-lit.Token.Integer), m68k.D(accumulator))
			return t, nil
		}
	}
	operand, err := g.expression(n.Value)
	if err != nil {
		return nil, err
	}
	id, width, err := operandWidth(operand, "UnaryExpression")
	if err != nil {
		return nil, err
	}
	g.widen(width, size, IsSignedType(id))
	g.emit(op, size, m68k.Operand{}, m68k.D(accumulator))
	return t, nil
}

// assignment evaluates the value into d0 and stores it. The stored value
// stays in d0.
func (g *Generator) assignment(n *AssignmentExpression) (MemoryDataType, error) {
	t, err := GetType(n, g.memory)
	if err != nil {
		return nil, err
	}
	_, size, err := operandWidth(t, "AssignmentExpression")
	if err != nil {
		return nil, err
	}
	value, err := g.expression(n.Value)
	if err != nil {
		return nil, err
	}
	id, width, err := operandWidth(value, "AssignmentExpression")
	if err != nil {
		return nil, err
	}
	g.widen(width, size, IsSignedType(id))
	location, err := g.address(n.Target)
	if err != nil {
		return nil, err
	}
	g.emit(m68k.Move, size, m68k.D(accumulator), location)
	return t, nil
}

// call pushes the arguments right to left, then the receiver of a method,
// and jumps to the function. The caller releases the pushed bytes; a
// returned value is in d0.
func (g *Generator) call(n *CallExpression, fn FunctionType) error {
	label, receiver, err := callTarget(n.Callee, fn)
	if err != nil {
		return err
	}
	released := 0
	for i := len(n.Arguments) - 1; i >= 0; i-- {
		size := PrimitiveTypeSize(fn.Arguments[i].TypeID)
		if err := g.pushOperand(n.Arguments[i], size); err != nil {
			return err
		}
		released += size
	}
	if receiver != nil {
		if err := g.pushReceiver(receiver); err != nil {
			return err
		}
		released += 4
	}
	g.emit(m68k.Jsr, 0, m68k.Lbl(label), m68k.Operand{})
	if released > 0 {
		g.emit(m68k.Add, 4, m68k.Imm(int64(released)), m68k.A(m68k.SP))
		g.popped(released)
	}
	return nil
}

// callTarget returns the label of a call and, for methods, the receiver
// expression.
func callTarget(callee Expression, fn FunctionType) (string, Expression, error) {
	callee = unwrapPrimary(callee)
	if name, ok := IdentifierName(callee); ok {
		return FunctionLabel("", name), nil, nil
	}
	if dot, ok := callee.(*BinaryExpression); ok && operatorType(dot.Op) == DOT && fn.UdtID != "" {
		method, _ := IdentifierName(unwrapPrimary(dot.RHS))
		return FunctionLabel(fn.UdtID, method), dot.LHS, nil
	}
	return "", nil, fmt.Errorf("error: unsupported call target")
}

// pushReceiver pushes the address of the object a method is called on.
func (g *Generator) pushReceiver(receiver Expression) error {
	if p, ok := unwrapPrimary(receiver).(*Primary); ok && p.Token.Type == THIS {
		this, _ := g.memory.Find(thisID, false)
		g.emit(m68k.Move, 4, g.locate(this), m68k.Push())
		g.pushed(4)
		return nil
	}
	location, err := g.address(receiver)
	if err != nil {
		return err
	}
	g.emit(m68k.Lea, 0, location, m68k.A(scratchAddress))
	g.emit(m68k.Move, 4, m68k.A(scratchAddress), m68k.Push())
	g.pushed(4)
	return nil
}
