package main

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/strager/goldscorpion/m68k"
)

func generate(t *testing.T, source string, memory *MemoryTracker) ([]m68k.Instruction, error) {
	t.Helper()
	expr, err := ParseExpression(source)
	be.Err(t, err, nil)
	return NewGenerator(memory).GenerateExpression(expr)
}

func TestGenerateByteAddition(t *testing.T) {
	code, err := generate(t, "3 + 4", NewMemoryTracker())
	be.Err(t, err, nil)
	be.Equal(t, len(code), 4)
	for _, inst := range code {
		be.Equal(t, inst.Size, m68k.Byte)
	}
	be.Equal(t, code[3].Operator, m68k.Add)
	be.Equal(t, code[3].Destination, m68k.D(accumulator))
}

func TestGenerateOperatorSelection(t *testing.T) {
	tests := []struct {
		input string
		op    m68k.Operator
		size  m68k.Size
	}{
		{"1 - 2", m68k.Sub, m68k.Byte},
		{"1 * 2", m68k.Mulu, m68k.Byte},
		{"-1 * -2", m68k.Muls, m68k.Byte},
		{"1000 / 2", m68k.Divu, m68k.Word},
		{"-1000 / -2", m68k.Divs, m68k.Word},
		{"70000 + 1", m68k.Add, m68k.Long},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			code, err := generate(t, tt.input, NewMemoryTracker())
			be.Err(t, err, nil)
			last := code[len(code)-1]
			be.Equal(t, last.Operator, tt.op)
			be.Equal(t, last.Size, tt.size)
		})
	}
}

func TestGenerateStackOperands(t *testing.T) {
	memory := NewMemoryTracker()
	memory.Push(MemoryElement{ID: "a", Type: ValueType{ID: TypeU8}, Size: 1})
	memory.Push(MemoryElement{ID: "b", Type: ValueType{ID: TypeU16}, Size: 2})

	code, err := generate(t, "a + b", memory)
	be.Err(t, err, nil)
	be.Equal(t, m68k.Listing(code), "\tmove.w 0(sp),d0\n"+
		"\tmove.w d0,-(sp)\n"+
		"\tmove.b 4(sp),d0\n"+
		"\tand.w #255,d0\n"+
		"\tmove.w d0,-(sp)\n"+
		"\tmove.w (sp)+,d0\n"+
		"\tadd.w (sp)+,d0\n")
	be.Equal(t, memory.StackSize(), 3)
}

func TestGenerateGlobalAssignment(t *testing.T) {
	memory := NewMemoryTracker()
	_, err := memory.Insert(MemoryElement{ID: "h", Type: ValueType{ID: TypeU16}, Size: 2}, false)
	be.Err(t, err, nil)
	_, err = memory.Insert(MemoryElement{ID: "g", Type: ValueType{ID: TypeU32}, Size: 4}, false)
	be.Err(t, err, nil)

	code, err := generate(t, "g = 5", memory)
	be.Err(t, err, nil)
	be.Equal(t, m68k.Listing(code), "\tmove.b #5,d0\n\tand.l #255,d0\n\tmove.l d0,data+2\n")
}

func TestGenerateSignedWidening(t *testing.T) {
	memory := NewMemoryTracker()
	_, err := memory.Insert(MemoryElement{ID: "b", Type: ValueType{ID: TypeS8}, Size: 1}, false)
	be.Err(t, err, nil)
	_, err = memory.Insert(MemoryElement{ID: "l", Type: ValueType{ID: TypeS32}, Size: 4}, false)
	be.Err(t, err, nil)

	code, err := generate(t, "l = b", memory)
	be.Err(t, err, nil)
	be.Equal(t, m68k.Listing(code), "\tmove.b data,d0\n\text.w d0\n\text.l d0\n\tmove.l d0,data+1\n")
}

func TestGenerateFieldAccess(t *testing.T) {
	memory := pointTracker()
	_, err := memory.Insert(MemoryElement{ID: "l", Type: ValueType{ID: "Line"}, Size: 10}, false)
	be.Err(t, err, nil)

	code, err := generate(t, "l.finish.y", memory)
	be.Err(t, err, nil)
	be.Equal(t, m68k.Listing(code), "\tmove.w data+8,d0\n")
}

func TestGenerateThisField(t *testing.T) {
	memory := pointTracker()
	memory.OpenScope()
	memory.Push(MemoryElement{ID: thisID, Type: ValueType{ID: "Point"}, Size: 4})
	memory.Push(MemoryElement{ID: returnAddressID, Type: ValueType{ID: TypeU32}, Size: 4})

	code, err := generate(t, "this.y", memory)
	be.Err(t, err, nil)
	be.Equal(t, m68k.Listing(code), "\tmove.l 4(sp),a0\n\tmove.w 1(a0),d0\n")
}

func TestGenerateStringInterning(t *testing.T) {
	memory := NewMemoryTracker()
	g := NewGenerator(memory)

	expr, err := ParseExpression(`"abc"`)
	be.Err(t, err, nil)
	_, err = g.GenerateExpression(expr)
	be.Err(t, err, nil)
	_, err = g.GenerateExpression(expr)
	be.Err(t, err, nil)
	be.Equal(t, memory.ConstSize(), 4)

	expr, err = ParseExpression(`"de" + "abc"`)
	be.Err(t, err, nil)
	code, err := g.GenerateExpression(expr)
	be.Err(t, err, nil)
	be.Equal(t, memory.ConstSize(), 7)
	be.Equal(t, code[0].Source, m68k.ImmLabel(constLabel, 0))
	be.Equal(t, code[2].Source, m68k.ImmLabel(constLabel, 4))
	be.Equal(t, g.strings, []StringConstant{{Offset: 0, Text: "abc"}, {Offset: 4, Text: "de"}})
}

func TestGenerateFailureLeavesTrackerUnchanged(t *testing.T) {
	memory := pointTracker()
	err := memory.AddUdtField("Point", UdtField{ID: "label", Type: FunctionType{
		UdtID:        "Point",
		Arguments:    []FunctionTypeParameter{{ID: "text", TypeID: TypeString}},
		ReturnTypeID: TypeU8,
	}})
	be.Err(t, err, nil)
	_, err = memory.Insert(MemoryElement{ID: "origin", Type: FunctionType{ReturnTypeID: "Point"}}, true)
	be.Err(t, err, nil)
	before := memory.String()

	// The string argument is generated before the receiver turns out not
	// to be addressable.
	code, err := generate(t, `origin().label("text")`, memory)
	be.Err(t, err, "error: expression is not addressable")
	be.Equal(t, len(code), 0)
	be.Equal(t, memory.String(), before)
	be.Equal(t, memory.ConstSize(), 0)
}

func TestGenerateUnsupportedOperands(t *testing.T) {
	memory := pointTracker()
	_, err := memory.Insert(MemoryElement{ID: "p", Type: ValueType{ID: "Point"}, Size: 3}, false)
	be.Err(t, err, nil)

	tests := []struct {
		input   string
		message string
	}{
		{"p", "error: unsupported operand for Primary code generation: Point"},
		{"p + p", "error: unsupported operand for BinaryExpression code generation: Point"},
		{"p = p", "error: unsupported operand for AssignmentExpression code generation: Point"},
		{"q", "error: undefined variable q"},
	}
	for _, tt := range tests {
		_, err := generate(t, tt.input, memory)
		be.Err(t, err, tt.message)
	}
}

func TestGenerateUnknownOperatorPanics(t *testing.T) {
	expr := &BinaryExpression{
		LHS: &Primary{Token: Token{Type: LITERAL_INT, Integer: 1}},
		Op:  &Primary{Token: Token{Type: EQ}},
		RHS: &Primary{Token: Token{Type: LITERAL_INT, Integer: 2}},
	}
	defer func() {
		r := recover()
		ie, ok := r.(InternalError)
		be.True(t, ok)
		be.Equal(t, ie.Message, "no instruction for binary operator ==")
	}()
	_, _ = NewGenerator(NewMemoryTracker()).GenerateExpression(expr)
	t.Fatal("GenerateExpression did not panic")
}

func TestGenerateMethodCall(t *testing.T) {
	memory := pointTracker()
	err := memory.AddUdtField("Point", UdtField{ID: "scale", Type: FunctionType{
		UdtID:        "Point",
		Arguments:    []FunctionTypeParameter{{ID: "by", TypeID: TypeU16}},
		ReturnTypeID: TypeU16,
	}})
	be.Err(t, err, nil)
	_, err = memory.Insert(MemoryElement{ID: "n", Type: ValueType{ID: TypeU8}, Size: 1}, false)
	be.Err(t, err, nil)
	_, err = memory.Insert(MemoryElement{ID: "p", Type: ValueType{ID: "Point"}, Size: 3}, false)
	be.Err(t, err, nil)

	code, err := generate(t, "p.scale(2)", memory)
	be.Err(t, err, nil)
	be.Equal(t, m68k.Listing(code), "\tmove.w #2,-(sp)\n"+
		"\tlea data+1,a0\n"+
		"\tmove.l a0,-(sp)\n"+
		"\tjsr gs5_Point_scale\n"+
		"\tadd.l #6,sp\n")
}

func TestGenerateEpilogueReleasesOnlyLocals(t *testing.T) {
	tests := []struct {
		name   string
		source string
		tail   string
	}{
		{"falls off the end", "function f(a as u8)\n  def b as u16 = 1\n  def c as u8\nend\n", "\tadd.l #3,sp\n\trts\n"},
		{"returns", "function f(a as u32) as u8\n  def q as u32\n  return 4\nend\n", "\tmove.b #4,d0\n\tadd.l #4,sp\n\trts\n"},
		{"no locals", "function f(a as u32) as u8\n  return 4\nend\n", "gs_f:\n\tmove.b #4,d0\n\trts\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, err := CompileSource("frame.gs", tt.source, Settings{})
			be.Err(t, err, nil)
			listing := m68k.Listing(unit.Assembly.Code())
			be.True(t, strings.HasSuffix(listing, tt.tail))
		})
	}
}
