package main

import (
	"fmt"
	"strings"

	"github.com/strager/goldscorpion/m68k"
)

// Assembly is the generated output of one source file.
type Assembly struct {
	Init      []m68k.Instruction // top-level statements, in source order
	Functions []m68k.Instruction // function bodies, each starting with its label
	DataSize  int
	ConstSize int
	Strings   []StringConstant
}

// Code returns the complete instruction stream: the init routine followed
// by every function.
func (a *Assembly) Code() []m68k.Instruction {
	code := make([]m68k.Instruction, 0, len(a.Init)+len(a.Functions)+2)
	code = append(code, m68k.LabelAt(InitLabel))
	code = append(code, a.Init...)
	code = append(code, m68k.Instruction{Operator: m68k.Rts})
	return append(code, a.Functions...)
}

// Listing renders the segments and the code as assembler source.
func (a *Assembly) Listing() string {
	var sb strings.Builder
	sb.WriteString(dataLabel + ":\n")
	if a.DataSize > 0 {
		fmt.Fprintf(&sb, "\tds.b %d\n", a.DataSize)
	}
	sb.WriteString(constLabel + ":\n")
	for _, s := range a.Strings {
		fmt.Fprintf(&sb, "\tdc.b \"%s\",0\n", s.Text)
	}
	sb.WriteString("code:\n")
	sb.WriteString(m68k.Listing(a.Code()))
	return sb.String()
}
