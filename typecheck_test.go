package main

import (
	"testing"

	"github.com/nalgeon/be"
)

func typeOf(t *testing.T, source string, memory *MemoryTracker) (MemoryDataType, error) {
	t.Helper()
	expr, err := ParseExpression(source)
	be.Err(t, err, nil)
	return GetType(expr, memory)
}

// checkerTracker holds p as Point, a u8, a signed word and a few functions.
func checkerTracker(t *testing.T) *MemoryTracker {
	memory := pointTracker()
	err := memory.AddUdtField("Point", UdtField{ID: "scale", Type: FunctionType{
		UdtID:        "Point",
		Arguments:    []FunctionTypeParameter{{ID: "by", TypeID: TypeU8}},
		ReturnTypeID: TypeU16,
	}})
	be.Err(t, err, nil)

	globals := []MemoryElement{
		{ID: "p", Type: ValueType{ID: "Point"}, Size: 3},
		{ID: "l", Type: ValueType{ID: "Line"}, Size: 10},
		{ID: "n", Type: ValueType{ID: TypeU8}, Size: 1},
		{ID: "w", Type: ValueType{ID: TypeS16}, Size: 2},
		{ID: "s", Type: ValueType{ID: TypeString}, Size: 4},
	}
	for _, g := range globals {
		_, err := memory.Insert(g, false)
		be.Err(t, err, nil)
	}
	functions := []MemoryElement{
		{ID: "sum", Type: FunctionType{
			Arguments:    []FunctionTypeParameter{{ID: "a", TypeID: TypeU8}, {ID: "b", TypeID: TypeU8}},
			ReturnTypeID: TypeU8,
		}},
		{ID: "log", Type: FunctionType{
			Arguments: []FunctionTypeParameter{{ID: "text", TypeID: TypeString}},
		}},
	}
	for _, f := range functions {
		_, err := memory.Insert(f, true)
		be.Err(t, err, nil)
	}
	return memory
}

func TestGetType(t *testing.T) {
	memory := checkerTracker(t)
	tests := []struct {
		input string
		want  string
	}{
		{"n", "u8"},
		{"p", "Point"},
		{"p.x", "u8"},
		{"p.y", "u16"},
		{"(p).x", "u8"},
		{"l.finish.y", "u16"},
		{"n + w", "u16"},
		{"w + w", "s16"},
		{"-n", "s8"},
		{"not w", "s16"},
		{"-(70000)", "s32"},
		{"s + 1", "string"},
		{"sum(1, n)", "u8"},
		{"sum(w, 300)", "u8"},
		{"p.scale(2)", "u16"},
		{"n = 5", "u8"},
		{"p.x = n", "u8"},
		{"s = 0", "string"},
		{"p = p", "Point"},
		{"sum", "function(u8, u8) as u8"},
		{"p.scale", "function Point.(u8) as u16"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			typ, err := typeOf(t, tt.input, memory)
			be.Err(t, err, nil)
			be.Equal(t, TypeToString(typ), tt.want)
		})
	}
}

func TestGetTypeErrors(t *testing.T) {
	memory := checkerTracker(t)
	tests := []struct {
		input   string
		message string
	}{
		{"missing", "error: undefined variable missing"},
		{"p.z", "error: type Point does not have field z"},
		{"n.x", "error: unknown type u8"},
		{"sum.x", "error: cannot access field x of function(u8, u8) as u8"},
		{"p + 1", "error: type mismatch: Point + u8"},
		{"p + l", "error: type mismatch: Point + Line"},
		{"-p", "error: operator - requires an integer operand, got Point"},
		{"-s", "requires an integer operand, got string"},
		{"n = s", "error: cannot assign string to u8"},
		{"p = n", "error: cannot assign u8 to Point"},
		{"log(s)", "error: cannot call function with no return type"},
		{"log()", "error: cannot call function with no return type"},
		{"log(n, n)", "error: cannot call function with no return type"},
		{"log(missing)", "error: cannot call function with no return type"},
		{"n(1)", "error: cannot call non-function of type u8"},
		{"sum(1)", "error: function expects 2 arguments but got 1"},
		{"sum(1, s)", "error: argument b expects u8 but got string"},
		{"sum(missing, 1)", "error: undefined variable missing"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := typeOf(t, tt.input, memory)
			be.Err(t, err, tt.message)
		})
	}
}

func TestResolveCallAllowsVoid(t *testing.T) {
	memory := checkerTracker(t)
	expr, err := ParseExpression(`log("hi")`)
	be.Err(t, err, nil)

	fn, err := ResolveCall(expr.(*CallExpression), memory)
	be.Err(t, err, nil)
	be.Equal(t, fn.ReturnTypeID, "")
	be.Equal(t, len(fn.Arguments), 1)
}

func TestGetTypeDoesNotModifyTracker(t *testing.T) {
	memory := checkerTracker(t)
	before := memory.String()
	for _, input := range []string{"n + 1", `s = "new"`, "p.scale(n)", "missing"} {
		_, _ = typeOf(t, input, memory)
	}
	be.Equal(t, memory.String(), before)
}

func TestGetTypeThis(t *testing.T) {
	memory := pointTracker()
	memory.OpenScope()
	memory.Push(MemoryElement{ID: thisID, Type: ValueType{ID: "Point"}, Size: 4})

	typ, err := typeOf(t, "this.y", memory)
	be.Err(t, err, nil)
	be.Equal(t, TypeToString(typ), "u16")
}
