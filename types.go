package main

import (
	"fmt"
	"strings"
)

// Primitive type identifiers.
const (
	TypeU8     = "u8"
	TypeU16    = "u16"
	TypeU32    = "u32"
	TypeS8     = "s8"
	TypeS16    = "s16"
	TypeS32    = "s32"
	TypeString = "string"
)

func IsIntegerType(id string) bool {
	switch id {
	case TypeU8, TypeU16, TypeU32, TypeS8, TypeS16, TypeS32:
		return true
	}
	return false
}

func IsSignedType(id string) bool {
	return id == TypeS8 || id == TypeS16 || id == TypeS32
}

// IsPrimitiveType reports whether id is an integer kind or string.
func IsPrimitiveType(id string) bool {
	return IsIntegerType(id) || id == TypeString
}

// isPrimitive reports whether t is a ValueType naming a primitive.
func isPrimitive(t MemoryDataType) (string, bool) {
	v, ok := t.(ValueType)
	if !ok || !IsPrimitiveType(v.ID) {
		return "", false
	}
	return v.ID, true
}

// typeRank orders primitives by width: 0 for bytes, 1 for words, 2 for
// longs. string ranks as a long.
func typeRank(id string) int {
	switch id {
	case TypeU8, TypeS8:
		return 0
	case TypeU16, TypeS16:
		return 1
	case TypeU32, TypeS32, TypeString:
		return 2
	default:
		internalError("typeRank of non-primitive type %s", id)
		return 0
	}
}

func unsignedOf(id string) string {
	switch id {
	case TypeS8:
		return TypeU8
	case TypeS16:
		return TypeU16
	case TypeS32:
		return TypeU32
	}
	return id
}

func signedOf(id string) string {
	switch id {
	case TypeU8:
		return TypeS8
	case TypeU16:
		return TypeS16
	case TypeU32:
		return TypeS32
	}
	return id
}

// LiteralTypeID returns the narrowest integer kind that holds value.
func LiteralTypeID(value int64) string {
	if value < 0 {
		switch {
		case value >= -127:
			return TypeS8
		case value >= -32767:
			return TypeS16
		default:
			return TypeS32
		}
	}
	switch {
	case value <= 255:
		return TypeU8
	case value <= 65535:
		return TypeU16
	default:
		return TypeU32
	}
}

// PromotePrimitiveTypes returns the result type of a binary operation on
// two primitives. The wider operand wins; when exactly one operand is
// signed the result is the unsigned kind of that width. A string operand
// makes the result a string.
func PromotePrimitiveTypes(lhs, rhs string) string {
	if lhs == TypeString || rhs == TypeString {
		return TypeString
	}
	result := lhs
	if typeRank(rhs) >= typeRank(lhs) {
		result = rhs
	}
	if IsSignedType(lhs) != IsSignedType(rhs) {
		result = unsignedOf(result)
	}
	return result
}

// TypesMatch compares two types of the same kind. A ValueType never matches
// a FunctionType.
func TypesMatch(a, b MemoryDataType) bool {
	switch a := a.(type) {
	case ValueType:
		b, ok := b.(ValueType)
		return ok && a.ID == b.ID
	case FunctionType:
		b, ok := b.(FunctionType)
		if !ok || a.UdtID != b.UdtID || a.ReturnTypeID != b.ReturnTypeID {
			return false
		}
		if len(a.Arguments) != len(b.Arguments) {
			return false
		}
		for i := range a.Arguments {
			if a.Arguments[i].TypeID != b.Arguments[i].TypeID {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// isAssignable reports whether a value of type value may be stored into a
// location of type target. Integers convert freely between widths.
func isAssignable(target, value MemoryDataType) bool {
	if TypesMatch(target, value) {
		return true
	}
	targetID, ok := isPrimitive(target)
	if !ok {
		return false
	}
	valueID, ok := isPrimitive(value)
	if !ok {
		return false
	}
	if IsIntegerType(valueID) {
		return IsIntegerType(targetID) || targetID == TypeString
	}
	return false
}

// TypeToString renders a type the way diagnostics print it.
func TypeToString(t MemoryDataType) string {
	switch t := t.(type) {
	case ValueType:
		return t.ID
	case FunctionType:
		var sb strings.Builder
		sb.WriteString("function")
		if t.UdtID != "" {
			sb.WriteString(" " + t.UdtID + ".")
		}
		sb.WriteString("(")
		for i, arg := range t.Arguments {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(arg.TypeID)
		}
		sb.WriteString(")")
		if t.ReturnTypeID != "" {
			sb.WriteString(" as " + t.ReturnTypeID)
		}
		return sb.String()
	case nil:
		return "<nil>"
	default:
		return fmt.Sprintf("%T", t)
	}
}

// PrimitiveTypeSize returns the size in bytes of a primitive. A string is
// held as a 4-byte address.
func PrimitiveTypeSize(id string) int {
	switch id {
	case TypeU8, TypeS8:
		return 1
	case TypeU16, TypeS16:
		return 2
	case TypeU32, TypeS32, TypeString:
		return 4
	default:
		internalError("PrimitiveTypeSize of non-primitive type %s", id)
		return 0
	}
}

// TypeSize returns the flattened size of t. Functions occupy no space.
func (m *MemoryTracker) TypeSize(t MemoryDataType) (int, error) {
	switch t := t.(type) {
	case FunctionType:
		return 0, nil
	case ValueType:
		if IsPrimitiveType(t.ID) {
			return PrimitiveTypeSize(t.ID), nil
		}
		udt, ok := m.FindUdt(t.ID, false)
		if !ok {
			return 0, fmt.Errorf("error: unknown type %s", t.ID)
		}
		size := 0
		for _, field := range udt.Fields {
			fieldSize, err := m.TypeSize(field.Type)
			if err != nil {
				return 0, err
			}
			size += fieldSize
		}
		return size, nil
	default:
		internalError("TypeSize of %T", t)
		return 0, nil
	}
}

// FieldOffset returns the byte offset of fieldID within udtID: the total
// size of every field declared before it.
func (m *MemoryTracker) FieldOffset(udtID, fieldID string) (int, error) {
	udt, ok := m.FindUdt(udtID, false)
	if !ok {
		return 0, fmt.Errorf("error: unknown type %s", udtID)
	}
	offset := 0
	for _, field := range udt.Fields {
		if field.ID == fieldID {
			return offset, nil
		}
		size, err := m.TypeSize(field.Type)
		if err != nil {
			return 0, err
		}
		offset += size
	}
	return 0, fmt.Errorf("error: type %s does not have field %s", udtID, fieldID)
}

// KnownType reports whether id names a primitive or a registered UDT.
func (m *MemoryTracker) KnownType(id string) bool {
	if IsPrimitiveType(id) {
		return true
	}
	_, ok := m.FindUdt(id, false)
	return ok
}
