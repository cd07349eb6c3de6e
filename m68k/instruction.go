// Package m68k models the subset of the Motorola 68000 instruction set that
// the compiler emits, prints it in Motorola syntax, and executes it.
package m68k

// Size is an operation width in bytes. Unsized instructions use 0.
type Size int

const (
	Unsized Size = 0
	Byte    Size = 1
	Word    Size = 2
	Long    Size = 4
)

// SizeOf converts a byte count to a Size.
func SizeOf(bytes int) Size {
	switch bytes {
	case 1:
		return Byte
	case 2:
		return Word
	case 4:
		return Long
	}
	panic("m68k: no operation size for width")
}

// Operator is an instruction mnemonic without its size suffix.
type Operator string

const (
	Move Operator = "move"
	Add  Operator = "add"
	Sub  Operator = "sub"
	Muls Operator = "muls"
	Mulu Operator = "mulu"
	Divs Operator = "divs"
	Divu Operator = "divu"
	And  Operator = "and"
	Neg  Operator = "neg"
	Not  Operator = "not"
	Clr  Operator = "clr"
	Ext  Operator = "ext"
	Lea  Operator = "lea"
	Jsr  Operator = "jsr"
	Rts  Operator = "rts"

	// Label marks the position of Source.Label. It emits no code.
	Label Operator = "label"
)

// Mode is an operand addressing mode.
type Mode int

const (
	ModeNone            Mode = iota
	ModeImmediate            // #Value, or #Label+Value when Label is set
	ModeDataRegister         // dIndex
	ModeAddressRegister      // aIndex
	ModeIndirect             // (aIndex)
	ModePreDecrement         // -(aIndex)
	ModePostIncrement        // (aIndex)+
	ModeDisplacement         // Value(aIndex)
	ModeAbsolute             // Label+Value
	ModeLabel                // Label, a code address
)

// SP is the index of the stack pointer among the address registers.
const SP = 7

// Operand is one instruction argument. Index selects the register, Value
// holds immediates and displacements.
type Operand struct {
	Index int
	Mode  Mode
	Value int64
	Label string
}

// Instruction is one operation. Source and Destination are ModeNone when
// the operator takes fewer operands.
type Instruction struct {
	Operator    Operator
	Size        Size
	Source      Operand
	Destination Operand
}

func Imm(value int64) Operand {
	return Operand{Mode: ModeImmediate, Value: value}
}

// ImmLabel is the address of label plus offset as an immediate.
func ImmLabel(label string, offset int64) Operand {
	return Operand{Mode: ModeImmediate, Label: label, Value: offset}
}

func D(n int) Operand {
	return Operand{Mode: ModeDataRegister, Index: n}
}

func A(n int) Operand {
	return Operand{Mode: ModeAddressRegister, Index: n}
}

// Push is -(sp).
func Push() Operand {
	return Operand{Mode: ModePreDecrement, Index: SP}
}

// Pop is (sp)+.
func Pop() Operand {
	return Operand{Mode: ModePostIncrement, Index: SP}
}

// Disp is displacement(aN).
func Disp(displacement int64, register int) Operand {
	return Operand{Mode: ModeDisplacement, Index: register, Value: displacement}
}

// Abs is the memory at label plus offset.
func Abs(label string, offset int64) Operand {
	return Operand{Mode: ModeAbsolute, Label: label, Value: offset}
}

// Lbl names a code address, as taken by jsr.
func Lbl(name string) Operand {
	return Operand{Mode: ModeLabel, Label: name}
}

// LabelAt returns the pseudo-instruction defining name.
func LabelAt(name string) Instruction {
	return Instruction{Operator: Label, Source: Lbl(name)}
}
