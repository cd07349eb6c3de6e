package m68k

import (
	"errors"
	"testing"

	"github.com/nalgeon/be"
)

func inst(op Operator, size Size, src, dst Operand) Instruction {
	return Instruction{Operator: op, Size: size, Source: src, Destination: dst}
}

func run(t *testing.T, program ...Instruction) *Machine {
	t.Helper()
	m := NewMachine(0x1000)
	m.Define("data", 0x100)
	routine := append([]Instruction{LabelAt("main")}, program...)
	routine = append(routine, Instruction{Operator: Rts})
	be.Err(t, m.Load(routine), nil)
	be.Err(t, m.Call("main"), nil)
	return m
}

func TestMachineByteAddition(t *testing.T) {
	m := run(t,
		inst(Move, Byte, Imm(4), Push()),
		inst(Move, Byte, Imm(3), Push()),
		inst(Move, Byte, Pop(), D(0)),
		inst(Add, Byte, Pop(), D(0)),
	)
	be.Equal(t, m.D[0], uint32(7))
	be.Equal(t, m.A[SP], uint32(0x1000))
	be.Equal(t, m.Steps, 6)
}

func TestMachineSizedRegisterWrites(t *testing.T) {
	m := run(t,
		inst(Move, Long, Imm(0x12345678), D(0)),
		inst(Move, Byte, Imm(0xFF), D(0)),
		inst(Move, Long, Imm(0x1000), D(1)),
		inst(Add, Word, Imm(0xF001), D(1)),
	)
	be.Equal(t, m.D[0], uint32(0x123456FF))
	be.Equal(t, m.D[1], uint32(0x1))
}

func TestMachineMemoryIsBigEndian(t *testing.T) {
	m := run(t,
		inst(Move, Long, Imm(0x11223344), Abs("data", 0)),
		inst(Move, Word, Abs("data", 1), D(0)),
	)
	be.Equal(t, m.Memory[0x100:0x104], []byte{0x11, 0x22, 0x33, 0x44})
	be.Equal(t, m.D[0], uint32(0x2233))
}

func TestMachineArithmetic(t *testing.T) {
	tests := []struct {
		name string
		op   Operator
		size Size
		dst  int64
		src  int64
		want uint32
	}{
		{"sub wraps", Sub, Byte, 7, 10, 253},
		{"mulu truncates", Mulu, Byte, 200, 2, 144},
		{"muls", Muls, Word, -3, 7, 0xFFEB},
		{"divu", Divu, Word, 1000, 7, 142},
		{"divs", Divs, Byte, -9, 2, 0xFC},
		{"and", And, Long, 0x1FF, 0xFF, 0xFF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := run(t,
				inst(Move, tt.size, Imm(tt.dst), D(0)),
				inst(tt.op, tt.size, Imm(tt.src), D(0)),
			)
			be.Equal(t, m.D[0]&mask(tt.size), tt.want)
		})
	}
}

func TestMachineUnary(t *testing.T) {
	m := run(t,
		inst(Move, Byte, Imm(5), D(0)),
		inst(Neg, Byte, Operand{}, D(0)),
		inst(Move, Byte, Imm(0x80), D(1)),
		inst(Ext, Word, Operand{}, D(1)),
		inst(Ext, Long, Operand{}, D(1)),
		inst(Move, Byte, Imm(0x0F), D(2)),
		inst(Not, Byte, Operand{}, D(2)),
		inst(Move, Long, Imm(-1), D(3)),
		inst(Clr, Word, Operand{}, D(3)),
	)
	be.Equal(t, m.D[0], uint32(0xFB))
	be.Equal(t, m.D[1], uint32(0xFFFFFF80))
	be.Equal(t, m.D[2], uint32(0xF0))
	be.Equal(t, m.D[3], uint32(0xFFFF0000))
}

func TestMachineDivisionByZero(t *testing.T) {
	m := NewMachine(0x100)
	be.Err(t, m.Load([]Instruction{
		LabelAt("main"),
		inst(Move, Byte, Imm(1), D(0)),
		inst(Divu, Byte, Imm(0), D(0)),
		{Operator: Rts},
	}), nil)
	err := m.Call("main")
	be.True(t, errors.Is(err, ErrDivisionByZero))
}

func TestMachineCallAndReturn(t *testing.T) {
	m := NewMachine(0x1000)
	m.Define("data", 0x100)
	program := []Instruction{
		LabelAt("main"),
		inst(Move, Word, Imm(20), Push()),
		inst(Move, Word, Imm(22), Push()),
		{Operator: Jsr, Source: Lbl("add")},
		inst(Add, Long, Imm(4), A(SP)),
		inst(Move, Word, D(0), Abs("data", 0)),
		{Operator: Rts},

		LabelAt("add"),
		inst(Move, Word, Disp(4, SP), D(0)),
		inst(Add, Word, Disp(6, SP), D(0)),
		{Operator: Rts},
	}
	be.Err(t, m.Load(program), nil)
	be.Err(t, m.Call("main"), nil)

	v, err := m.Read(0x100, Word)
	be.Err(t, err, nil)
	be.Equal(t, v, uint32(42))
	be.Equal(t, m.A[SP], uint32(0x1000))
}

func TestMachineAddressRegisters(t *testing.T) {
	m := run(t,
		inst(Move, Byte, Imm(9), Abs("data", 3)),
		inst(Lea, Unsized, Abs("data", 2), A(0)),
		inst(Move, Byte, Disp(1, 0), D(0)),
		inst(Move, Byte, Operand{Mode: ModeIndirect, Index: 0}, D(2)),
		inst(Move, Long, A(0), Push()),
		inst(Move, Long, Operand{Mode: ModeIndirect, Index: SP}, A(1)),
		inst(Add, Long, Imm(4), A(SP)),
	)
	be.Equal(t, m.A[0], uint32(0x102))
	be.Equal(t, m.A[1], uint32(0x102))
	be.Equal(t, m.D[0], uint32(9))
	be.Equal(t, m.D[2], uint32(0))
}

func TestMachineSymbols(t *testing.T) {
	m := run(t, inst(Move, Long, ImmLabel("data", 8), D(0)))
	be.Equal(t, m.D[0], uint32(0x108))
}

func TestMachineErrors(t *testing.T) {
	m := NewMachine(0x100)
	be.Err(t, m.Load([]Instruction{LabelAt("a"), LabelAt("a")}), "duplicate label a")

	be.Err(t, m.Load([]Instruction{LabelAt("main"), {Operator: Jsr, Source: Lbl("nowhere")}}), nil)
	be.Err(t, m.Call("main"), "undefined label nowhere")
	be.Err(t, m.Call("missing"), "undefined label missing")

	m = NewMachine(0x100)
	be.Err(t, m.Load([]Instruction{LabelAt("main"), inst(Move, Byte, Abs("nothing", 0), D(0))}), nil)
	be.Err(t, m.Call("main"), "undefined symbol nothing")

	m = NewMachine(0x100)
	be.Err(t, m.Load([]Instruction{LabelAt("main"), inst(Move, Byte, D(0), D(1))}), nil)
	be.Err(t, m.Call("main"), "ran past the end of the program")

	m = NewMachine(0x100)
	m.MaxSteps = 10
	be.Err(t, m.Load([]Instruction{LabelAt("loop"), {Operator: Jsr, Source: Lbl("loop")}}), nil)
	be.Err(t, m.Call("loop"), "step limit of 10 exceeded")
}

func TestMachineReadWriteBounds(t *testing.T) {
	m := NewMachine(8)
	be.Err(t, m.Write(6, Long, 1), "out of bounds")
	_, err := m.Read(7, Word)
	be.Err(t, err, "out of bounds")

	be.Err(t, m.Write(0, Word, 0x4142), nil)
	_, err = m.ReadString(0)
	be.Err(t, err, nil)
	s, _ := m.ReadString(0)
	be.Equal(t, s, "AB")
}

func TestSignExtend(t *testing.T) {
	be.Equal(t, SignExtend(0xFF, Byte), int64(-1))
	be.Equal(t, SignExtend(0x7F, Byte), int64(127))
	be.Equal(t, SignExtend(0x8000, Word), int64(-32768))
	be.Equal(t, SignExtend(0xFFFFFFFE, Long), int64(-2))
}
