package m68k

import (
	"fmt"
	"strings"
)

func (s Size) Suffix() string {
	switch s {
	case Byte:
		return ".b"
	case Word:
		return ".w"
	case Long:
		return ".l"
	default:
		return ""
	}
}

func registerName(n int) string {
	if n == SP {
		return "sp"
	}
	return fmt.Sprintf("a%d", n)
}

func labelOffset(label string, offset int64) string {
	switch {
	case label == "":
		return fmt.Sprint(offset)
	case offset > 0:
		return fmt.Sprintf("%s+%d", label, offset)
	case offset < 0:
		return fmt.Sprintf("%s%d", label, offset)
	default:
		return label
	}
}

func (o Operand) String() string {
	switch o.Mode {
	case ModeNone:
		return ""
	case ModeImmediate:
		return "#" + labelOffset(o.Label, o.Value)
	case ModeDataRegister:
		return fmt.Sprintf("d%d", o.Index)
	case ModeAddressRegister:
		return registerName(o.Index)
	case ModeIndirect:
		return "(" + registerName(o.Index) + ")"
	case ModePreDecrement:
		return "-(" + registerName(o.Index) + ")"
	case ModePostIncrement:
		return "(" + registerName(o.Index) + ")+"
	case ModeDisplacement:
		return fmt.Sprintf("%d(%s)", o.Value, registerName(o.Index))
	case ModeAbsolute:
		return labelOffset(o.Label, o.Value)
	case ModeLabel:
		return o.Label
	default:
		return fmt.Sprintf("<mode %d>", o.Mode)
	}
}

// String formats the instruction in Motorola syntax without indentation,
// e.g. "move.b #3,-(sp)". A label prints as "name:".
func (i Instruction) String() string {
	if i.Operator == Label {
		return i.Source.Label + ":"
	}
	var sb strings.Builder
	sb.WriteString(string(i.Operator))
	sb.WriteString(i.Size.Suffix())
	operands := make([]string, 0, 2)
	if i.Source.Mode != ModeNone {
		operands = append(operands, i.Source.String())
	}
	if i.Destination.Mode != ModeNone {
		operands = append(operands, i.Destination.String())
	}
	if len(operands) > 0 {
		sb.WriteString(" ")
		sb.WriteString(strings.Join(operands, ","))
	}
	return sb.String()
}

// Listing formats a program with labels flush left and instructions
// indented by a tab.
func Listing(program []Instruction) string {
	var sb strings.Builder
	for _, inst := range program {
		if inst.Operator != Label {
			sb.WriteString("\t")
		}
		sb.WriteString(inst.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
