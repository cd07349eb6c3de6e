package main

import (
	"fmt"
	"strings"

	"github.com/strager/goldscorpion/m68k"
)

// Memory map used when executing generated code.
const (
	dataBase   = 0x1000
	memorySize = 0x10000
)

// evalLabel names the routine wrapping a single evaluated expression.
const evalLabel = "__eval"

// NewMachine loads asm into an emulator with its segments placed and its
// string constants written.
func NewMachine(asm *Assembly) (*m68k.Machine, error) {
	if dataBase+asm.DataSize+asm.ConstSize >= memorySize/2 {
		return nil, fmt.Errorf("program needs %d bytes of data, more than the emulator provides", asm.DataSize+asm.ConstSize)
	}
	m := m68k.NewMachine(memorySize)
	constBase := uint32(dataBase + asm.DataSize)
	m.Define(dataLabel, dataBase)
	m.Define(constLabel, constBase)
	for _, s := range asm.Strings {
		copy(m.Memory[constBase+uint32(s.Offset):], s.Text)
	}
	if err := m.Load(asm.Code()); err != nil {
		return nil, err
	}
	return m, nil
}

// Run executes the init routine of asm.
func Run(asm *Assembly) (*m68k.Machine, error) {
	m, err := NewMachine(asm)
	if err != nil {
		return nil, err
	}
	if err := m.Call(InitLabel); err != nil {
		return m, err
	}
	return m, nil
}

// FormatValue renders a register or memory value of a primitive type.
func FormatValue(m *m68k.Machine, value uint32, typeID string) string {
	switch {
	case typeID == TypeString:
		if value == 0 {
			return `""`
		}
		s, err := m.ReadString(value)
		if err != nil {
			return fmt.Sprintf("<%v>", err)
		}
		return fmt.Sprintf("%q", s)
	case IsSignedType(typeID):
		return fmt.Sprint(m68k.SignExtend(value, m68k.SizeOf(PrimitiveTypeSize(typeID))))
	default:
		return fmt.Sprint(value)
	}
}

// FormatGlobals prints every data segment variable, one per line, with
// aggregates flattened to their fields.
func FormatGlobals(m *m68k.Machine, memory *MemoryTracker) (string, error) {
	var sb strings.Builder
	for _, query := range memory.Globals() {
		if err := formatMemory(&sb, m, memory, query.Element.ID, dataBase+uint32(query.Offset), query.Element.Type); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

func formatMemory(sb *strings.Builder, m *m68k.Machine, memory *MemoryTracker, name string, address uint32, t MemoryDataType) error {
	value, ok := t.(ValueType)
	if !ok {
		return nil
	}
	if IsPrimitiveType(value.ID) {
		v, err := m.Read(address, m68k.SizeOf(PrimitiveTypeSize(value.ID)))
		if err != nil {
			return err
		}
		fmt.Fprintf(sb, "%s = %s\n", name, FormatValue(m, v, value.ID))
		return nil
	}
	udt, ok := memory.FindUdt(value.ID, false)
	if !ok {
		internalError("global %s has unknown type %s", name, value.ID)
	}
	offset := uint32(0)
	for _, field := range udt.Fields {
		if _, isMethod := field.Type.(FunctionType); isMethod {
			continue
		}
		if err := formatMemory(sb, m, memory, name+"."+field.ID, address+offset, field.Type); err != nil {
			return err
		}
		size, err := memory.TypeSize(field.Type)
		if err != nil {
			return err
		}
		offset += uint32(size)
	}
	return nil
}

// EvalExpression compiles and runs a single expression with no variables
// in scope and returns its formatted value.
func EvalExpression(source string) (string, error) {
	expr, err := ParseExpression(source)
	if err != nil {
		return "", err
	}
	memory := NewMemoryTracker()
	t, err := GetType(expr, memory)
	if err != nil {
		return "", err
	}
	id, width, err := operandWidth(t, "expression")
	if err != nil {
		return "", err
	}
	g := NewGenerator(memory)
	code, err := g.GenerateExpression(expr)
	if err != nil {
		return "", err
	}
	routine := append([]m68k.Instruction{m68k.LabelAt(evalLabel)}, code...)
	routine = append(routine, m68k.Instruction{Operator: m68k.Rts})
	asm := &Assembly{Functions: routine, ConstSize: memory.ConstSize(), Strings: g.strings}
	m, err := NewMachine(asm)
	if err != nil {
		return "", err
	}
	if err := m.Call(evalLabel); err != nil {
		return "", err
	}
	value := m.D[accumulator] & (uint32(1)<<(8*width) - 1)
	return FormatValue(m, value, id), nil
}
