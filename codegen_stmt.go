package main

import (
	"fmt"

	"github.com/strager/goldscorpion/m68k"
)

// InitLabel names the routine holding a file's top-level statements.
const InitLabel = "__init"

// returnAddressID names the tracker element standing for the return address
// pushed by jsr. It is a keyword, so no identifier can refer to it.
const returnAddressID = "return"

// frame describes the function whose body is being generated.
type frame struct {
	decl *FunctionDeclaration
	fn   FunctionType
}

// GenerateProgram lowers a whole program. Types and function signatures
// are declared before any code is generated so that functions may be called
// before their definition. Statements that fail are reported in g.Errors
// and skipped.
func (g *Generator) GenerateProgram(program *Program) *Assembly {
	declared := map[*FunctionDeclaration]FunctionType{}
	for _, stmt := range program.Statements {
		switch s := stmt.(type) {
		case *TypeDeclaration:
			if err := g.declareType(s); err != nil {
				g.Errors.Add(err, s.Line)
			}
		case *FunctionDeclaration:
			fn, err := g.declareFunction(s)
			if err != nil {
				g.Errors.Add(err, s.Line)
				continue
			}
			declared[s] = fn
		}
	}

	for _, stmt := range program.Statements {
		var err error
		switch s := stmt.(type) {
		case *ImportStatement, *TypeDeclaration:
			// handled by the driver and the declaration pass
		case *FunctionDeclaration:
			if fn, ok := declared[s]; ok {
				g.function(s, fn)
			}
		case *VarDeclaration:
			err = g.global(s)
		case *ExpressionStatement:
			var code []m68k.Instruction
			code, err = g.expressionStatement(s)
			g.init = append(g.init, code...)
		case *ReturnStatement:
			err = fmt.Errorf("error: return outside of a function")
		default:
			internalError("GenerateProgram: unknown statement %T", stmt)
		}
		if err != nil {
			g.Errors.Add(err, stmt.StatementLine())
		}
	}

	return &Assembly{
		Init:      g.init,
		Functions: g.functions,
		DataSize:  g.memory.DataSize(),
		ConstSize: g.memory.ConstSize(),
		Strings:   g.strings,
	}
}

func (g *Generator) declareType(decl *TypeDeclaration) error {
	if _, ok := g.memory.FindUdt(decl.Name, false); ok {
		return fmt.Errorf("error: type %s is already defined", decl.Name)
	}
	udt := UserDefinedType{ID: decl.Name}
	for _, field := range decl.Fields {
		if field.TypeID == decl.Name || !g.memory.KnownType(field.TypeID) {
			return fmt.Errorf("error: unknown type %s for field %s", field.TypeID, field.Name)
		}
		for _, existing := range udt.Fields {
			if existing.ID == field.Name {
				return fmt.Errorf("error: type %s already has a field named %s", decl.Name, field.Name)
			}
		}
		udt.Fields = append(udt.Fields, UdtField{ID: field.Name, Type: ValueType{ID: field.TypeID}})
	}
	g.memory.AddUdt(udt)
	return nil
}

// declareFunction records a function's signature. Free functions live in
// the constant segment; methods become fields of their type.
func (g *Generator) declareFunction(decl *FunctionDeclaration) (FunctionType, error) {
	fn := FunctionType{UdtID: decl.Receiver, ReturnTypeID: decl.ReturnTypeID}
	for _, param := range decl.Parameters {
		if !IsPrimitiveType(param.TypeID) {
			return FunctionType{}, fmt.Errorf("error: parameter %s must have a primitive type, got %s", param.Name, param.TypeID)
		}
		for _, existing := range fn.Arguments {
			if existing.ID == param.Name {
				return FunctionType{}, fmt.Errorf("error: duplicate parameter %s", param.Name)
			}
		}
		fn.Arguments = append(fn.Arguments, FunctionTypeParameter{ID: param.Name, TypeID: param.TypeID})
	}
	if decl.ReturnTypeID != "" && !IsPrimitiveType(decl.ReturnTypeID) {
		return FunctionType{}, fmt.Errorf("error: return type must be primitive, got %s", decl.ReturnTypeID)
	}

	if decl.Receiver != "" {
		if _, ok := g.memory.FindUdt(decl.Receiver, false); !ok {
			return FunctionType{}, fmt.Errorf("error: unknown type %s", decl.Receiver)
		}
		if err := g.memory.AddUdtField(decl.Receiver, UdtField{ID: decl.Name, Type: fn}); err != nil {
			return FunctionType{}, err
		}
		return fn, nil
	}
	if _, exists := g.memory.Find(decl.Name, false); exists {
		return FunctionType{}, fmt.Errorf("error: %s is already defined", decl.Name)
	}
	if _, err := g.memory.Insert(MemoryElement{ID: decl.Name, Type: fn}, true); err != nil {
		return FunctionType{}, err
	}
	return fn, nil
}

// function generates a function body. On entry the stack holds the
// arguments (first argument nearest the top), the receiver for methods and
// the return address.
func (g *Generator) function(decl *FunctionDeclaration, fn FunctionType) {
	g.memory.OpenScope()
	for i := len(decl.Parameters) - 1; i >= 0; i-- {
		param := decl.Parameters[i]
		g.memory.Push(MemoryElement{ID: param.Name, Type: ValueType{ID: param.TypeID}, Size: PrimitiveTypeSize(param.TypeID)})
	}
	if decl.Receiver != "" {
		g.memory.Push(MemoryElement{ID: thisID, Type: ValueType{ID: decl.Receiver}, Size: 4})
	}
	g.memory.Push(MemoryElement{ID: returnAddressID, Type: ValueType{ID: TypeU32}, Size: 4})
	g.frame = &frame{decl: decl, fn: fn}

	code := []m68k.Instruction{m68k.LabelAt(decl.Label())}
	returned := false
	for _, stmt := range decl.Body {
		stmtCode, err := g.localStatement(stmt)
		if err != nil {
			g.Errors.Add(err, stmt.StatementLine())
			continue
		}
		code = append(code, stmtCode...)
		_, returned = stmt.(*ReturnStatement)
	}
	frameItems := g.memory.CloseScope()
	if !returned {
		code = append(code, epilogue(frameItems)...)
	}

	g.frame = nil
	g.functions = append(g.functions, code...)
}

// epilogue releases the locals pushed after the return address and
// returns. The caller releases the arguments and the receiver.
func epilogue(frameItems []MemoryQuery) []m68k.Instruction {
	locals := 0
	for i := len(frameItems) - 1; i >= 0 && frameItems[i].Element.ID != returnAddressID; i-- {
		locals += frameItems[i].Element.Size
	}
	var code []m68k.Instruction
	if locals > 0 {
		code = append(code, m68k.Instruction{Operator: m68k.Add, Size: m68k.Long, Source: m68k.Imm(int64(locals)), Destination: m68k.A(m68k.SP)})
	}
	return append(code, m68k.Instruction{Operator: m68k.Rts})
}

func (g *Generator) localStatement(stmt Statement) ([]m68k.Instruction, error) {
	switch s := stmt.(type) {
	case *VarDeclaration:
		return g.local(s)
	case *ExpressionStatement:
		return g.expressionStatement(s)
	case *ReturnStatement:
		return g.returnStatement(s)
	default:
		internalError("statement %T inside a function body", stmt)
		return nil, nil
	}
}

// checkThis rejects this outside of methods, where it is not bound.
func (g *Generator) checkThis(expr Expression) error {
	if usesThis(expr) && (g.frame == nil || g.frame.decl.Receiver == "") {
		return fmt.Errorf("error: this used outside of a method")
	}
	return nil
}

func usesThis(expr Expression) bool {
	switch n := expr.(type) {
	case *Primary:
		if n.Expression != nil {
			return usesThis(n.Expression)
		}
		return n.Token.Type == THIS
	case *UnaryExpression:
		return usesThis(n.Value)
	case *BinaryExpression:
		return usesThis(n.LHS) || usesThis(n.RHS)
	case *CallExpression:
		if usesThis(n.Callee) {
			return true
		}
		for _, arg := range n.Arguments {
			if usesThis(arg) {
				return true
			}
		}
		return false
	case *AssignmentExpression:
		return usesThis(n.Target) || usesThis(n.Value)
	}
	return false
}

// expressionStatement evaluates an expression and discards its value.
// Calls to functions without a return type are allowed here.
func (g *Generator) expressionStatement(s *ExpressionStatement) ([]m68k.Instruction, error) {
	if err := g.checkThis(s.Expression); err != nil {
		return nil, err
	}
	g.begin()
	var err error
	if call, ok := unwrapPrimary(s.Expression).(*CallExpression); ok {
		var fn FunctionType
		fn, err = ResolveCall(call, g.memory)
		if err == nil {
			err = g.call(call, fn)
		}
	} else {
		_, err = g.expression(s.Expression)
	}
	if err != nil {
		g.begin()
		return nil, err
	}
	return g.commit(), nil
}

// initializer checks that value may initialize a variable of type t.
func (g *Generator) initializer(name string, t ValueType, value Expression) error {
	if err := g.checkThis(value); err != nil {
		return err
	}
	if !IsPrimitiveType(t.ID) {
		return fmt.Errorf("error: cannot initialize %s of type %s", name, t.ID)
	}
	valueType, err := GetType(value, g.memory)
	if err != nil {
		return err
	}
	if !isAssignable(t, valueType) {
		return fmt.Errorf("error: cannot assign %s to %s", TypeToString(valueType), t.ID)
	}
	return nil
}

// global declares a data segment variable. Its initializer runs in the
// init routine.
func (g *Generator) global(decl *VarDeclaration) error {
	if _, exists := g.memory.Find(decl.Name, false); exists {
		return fmt.Errorf("error: %s is already defined", decl.Name)
	}
	if !g.memory.KnownType(decl.TypeID) {
		return fmt.Errorf("error: unknown type %s", decl.TypeID)
	}
	t := ValueType{ID: decl.TypeID}
	size, err := g.memory.TypeSize(t)
	if err != nil {
		return err
	}

	var code []m68k.Instruction
	if decl.Value != nil {
		if err := g.initializer(decl.Name, t, decl.Value); err != nil {
			return err
		}
		g.begin()
		location := m68k.Abs(dataLabel, int64(g.memory.DataSize()))
		if lit, ok := unwrapPrimary(decl.Value).(*Primary); ok && lit.Token.Type == LITERAL_INT {
			g.emit(m68k.Move, size, m68k.Imm(lit.Token.Integer), location)
		} else {
			valueType, err := g.expression(decl.Value)
			if err != nil {
				g.begin()
				return err
			}
			id, width, _ := operandWidth(valueType, "initializer")
			g.widen(width, size, IsSignedType(id))
			g.emit(m68k.Move, size, m68k.D(accumulator), location)
		}
		code = g.commit()
	}

	if _, err := g.memory.Insert(MemoryElement{ID: decl.Name, Type: t, Size: size}, false); err != nil {
		return err
	}
	g.init = append(g.init, code...)
	return nil
}

// local declares a stack variable by pushing its initial value and
// adopting that slot.
func (g *Generator) local(decl *VarDeclaration) ([]m68k.Instruction, error) {
	if _, exists := g.memory.Find(decl.Name, true); exists {
		return nil, fmt.Errorf("error: %s is already declared in this scope", decl.Name)
	}
	if !g.memory.KnownType(decl.TypeID) {
		return nil, fmt.Errorf("error: unknown type %s", decl.TypeID)
	}
	t := ValueType{ID: decl.TypeID}
	size, err := g.memory.TypeSize(t)
	if err != nil {
		return nil, err
	}

	g.begin()
	switch {
	case decl.Value != nil:
		if err := g.initializer(decl.Name, t, decl.Value); err != nil {
			return nil, err
		}
		if err := g.pushOperand(decl.Value, size); err != nil {
			g.begin()
			return nil, err
		}
	case IsPrimitiveType(t.ID):
		g.emit(m68k.Clr, size, m68k.Operand{}, m68k.Push())
	case size > 0:
		g.emit(m68k.Sub, 4, m68k.Imm(int64(size)), m68k.A(m68k.SP))
	}
	code := g.commit()
	g.memory.Push(MemoryElement{ID: decl.Name, Type: t, Size: size})
	return code, nil
}

// returnStatement leaves the return value in d0 and runs the epilogue.
func (g *Generator) returnStatement(s *ReturnStatement) ([]m68k.Instruction, error) {
	fn := g.frame.fn
	name := g.frame.decl.Name
	switch {
	case s.Value == nil && fn.ReturnTypeID != "":
		return nil, fmt.Errorf("error: function %s must return %s", name, fn.ReturnTypeID)
	case s.Value != nil && fn.ReturnTypeID == "":
		return nil, fmt.Errorf("error: function %s does not return a value", name)
	}

	g.begin()
	if s.Value != nil {
		if err := g.checkThis(s.Value); err != nil {
			return nil, err
		}
		returnType := ValueType{ID: fn.ReturnTypeID}
		valueType, err := GetType(s.Value, g.memory)
		if err != nil {
			return nil, err
		}
		if !isAssignable(returnType, valueType) {
			return nil, fmt.Errorf("error: cannot return %s from function %s returning %s", TypeToString(valueType), name, fn.ReturnTypeID)
		}
		if _, err := g.expression(s.Value); err != nil {
			g.begin()
			return nil, err
		}
		id, width, _ := operandWidth(valueType, "return")
		g.widen(width, PrimitiveTypeSize(fn.ReturnTypeID), IsSignedType(id))
	}
	code := g.commit()
	return append(code, epilogue(g.memory.ScopeItems())...), nil
}
