package main

import "fmt"

// thisID is the reserved identifier bound to the receiver inside methods.
const thisID = "this"

// GetType computes the semantic type of expr. The tracker is only read.
// Invalid programs produce an error; malformed trees panic with an
// InternalError.
func GetType(expr Expression, memory *MemoryTracker) (MemoryDataType, error) {
	switch n := expr.(type) {
	case *Primary:
		return primaryType(n, memory)
	case *BinaryExpression:
		if operatorType(n.Op) == DOT {
			return dotType(n, memory)
		}
		return binaryType(n, memory)
	case *CallExpression:
		fn, err := resolveCallee(n, memory)
		if err != nil {
			return nil, err
		}
		if fn.ReturnTypeID == "" {
			return nil, fmt.Errorf("error: cannot call function with no return type")
		}
		if err := checkArguments(n, fn, memory); err != nil {
			return nil, err
		}
		return ValueType{ID: fn.ReturnTypeID}, nil
	case *UnaryExpression:
		return unaryType(n, memory)
	case *AssignmentExpression:
		return assignmentType(n, memory)
	default:
		internalError("GetType: unknown expression %T", expr)
		return nil, nil
	}
}

func primaryType(n *Primary, memory *MemoryTracker) (MemoryDataType, error) {
	if n.Expression != nil {
		return GetType(n.Expression, memory)
	}
	switch n.Token.Type {
	case LITERAL_INT:
		return ValueType{ID: LiteralTypeID(n.Token.Integer)}, nil
	case LITERAL_STRING:
		return ValueType{ID: TypeString}, nil
	case THIS:
		query, ok := memory.Find(thisID, false)
		if !ok {
			internalError("this is not bound")
		}
		return UnwrapValue(query).Type, nil
	case IDENT:
		query, ok := memory.Find(n.Token.Text, false)
		if !ok {
			return nil, fmt.Errorf("error: undefined variable %s", n.Token.Text)
		}
		return UnwrapValue(query).Type, nil
	default:
		internalError("unexpected token %s in Primary", n.Token)
		return nil, nil
	}
}

func dotType(n *BinaryExpression, memory *MemoryTracker) (MemoryDataType, error) {
	fieldID, ok := IdentifierName(unwrapPrimary(n.RHS))
	if !ok {
		return nil, fmt.Errorf("error: right-hand side of . must be an identifier")
	}
	lhs, err := GetType(n.LHS, memory)
	if err != nil {
		return nil, err
	}
	value, ok := lhs.(ValueType)
	if !ok {
		return nil, fmt.Errorf("error: cannot access field %s of %s", fieldID, TypeToString(lhs))
	}
	if _, ok := memory.FindUdt(value.ID, false); !ok {
		return nil, fmt.Errorf("error: unknown type %s", value.ID)
	}
	field, ok := memory.FindUdtField(value.ID, fieldID)
	if !ok {
		return nil, fmt.Errorf("error: type %s does not have field %s", value.ID, fieldID)
	}
	return field.Type, nil
}

func binaryType(n *BinaryExpression, memory *MemoryTracker) (MemoryDataType, error) {
	lhs, err := GetType(n.LHS, memory)
	if err != nil {
		return nil, err
	}
	rhs, err := GetType(n.RHS, memory)
	if err != nil {
		return nil, err
	}
	lhsID, lhsPrimitive := isPrimitive(lhs)
	rhsID, rhsPrimitive := isPrimitive(rhs)
	if !lhsPrimitive || !rhsPrimitive {
		if !TypesMatch(lhs, rhs) {
			return nil, fmt.Errorf("error: type mismatch: %s %s %s", TypeToString(lhs), operatorType(n.Op), TypeToString(rhs))
		}
		return lhs, nil
	}
	return ValueType{ID: PromotePrimitiveTypes(lhsID, rhsID)}, nil
}

func unaryType(n *UnaryExpression, memory *MemoryTracker) (MemoryDataType, error) {
	op := operatorType(n.Op)
	if op != MINUS && op != NOT {
		internalError("unexpected unary operator %s", op)
	}
	if lit, ok := unwrapPrimary(n.Value).(*Primary); ok && op == MINUS && lit.Token.Type == LITERAL_INT {
		return ValueType{ID: LiteralTypeID(-lit.Token.Integer)}, nil
	}
	operand, err := GetType(n.Value, memory)
	if err != nil {
		return nil, err
	}
	id, ok := isPrimitive(operand)
	if !ok || !IsIntegerType(id) {
		return nil, fmt.Errorf("error: operator %s requires an integer operand, got %s", op, TypeToString(operand))
	}
	if op == MINUS {
		return ValueType{ID: signedOf(id)}, nil
	}
	return operand, nil
}

func assignmentType(n *AssignmentExpression, memory *MemoryTracker) (MemoryDataType, error) {
	target, err := GetType(n.Target, memory)
	if err != nil {
		return nil, err
	}
	value, err := GetType(n.Value, memory)
	if err != nil {
		return nil, err
	}
	if !isAssignable(target, value) {
		return nil, fmt.Errorf("error: cannot assign %s to %s", TypeToString(value), TypeToString(target))
	}
	return target, nil
}

// ResolveCall checks a call's callee and arguments and returns the callee's
// function type. Unlike GetType it accepts functions without a return type,
// which are valid as statements.
func ResolveCall(n *CallExpression, memory *MemoryTracker) (FunctionType, error) {
	fn, err := resolveCallee(n, memory)
	if err != nil {
		return FunctionType{}, err
	}
	if err := checkArguments(n, fn, memory); err != nil {
		return FunctionType{}, err
	}
	return fn, nil
}

func resolveCallee(n *CallExpression, memory *MemoryTracker) (FunctionType, error) {
	callee, err := GetType(n.Callee, memory)
	if err != nil {
		return FunctionType{}, err
	}
	fn, ok := callee.(FunctionType)
	if !ok {
		return FunctionType{}, fmt.Errorf("error: cannot call non-function of type %s", TypeToString(callee))
	}
	return fn, nil
}

func checkArguments(n *CallExpression, fn FunctionType, memory *MemoryTracker) error {
	if len(n.Arguments) != len(fn.Arguments) {
		return fmt.Errorf("error: function expects %d arguments but got %d", len(fn.Arguments), len(n.Arguments))
	}
	for i, arg := range n.Arguments {
		argType, err := GetType(arg, memory)
		if err != nil {
			return err
		}
		param := fn.Arguments[i]
		if !isAssignable(ValueType{ID: param.TypeID}, argType) {
			return fmt.Errorf("error: argument %s expects %s but got %s", param.ID, param.TypeID, TypeToString(argType))
		}
	}
	return nil
}
