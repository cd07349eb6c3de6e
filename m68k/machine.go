package m68k

import (
	"errors"
	"fmt"
)

// returnSentinel is the return address pushed by Call. Returning to it ends
// execution.
const returnSentinel = 0xFFFFFFFF

// DefaultMaxSteps bounds execution so runaway recursion terminates.
const DefaultMaxSteps = 1_000_000

var ErrDivisionByZero = errors.New("division by zero")

// Machine executes instruction lists directly, without encoding them.
//
// Memory is byte addressed and big endian. Stack operations move the stack
// pointer by exactly the operand size, so byte pushes are not padded to a
// word as on real hardware. Multiply and divide operate on both operands at
// the instruction size and leave a result of that size.
type Machine struct {
	D      [8]uint32
	A      [8]uint32
	Memory []byte

	MaxSteps int
	Steps    int

	symbols map[string]uint32
	program []Instruction
	labels  map[string]int
	pc      int
}

// NewMachine returns a machine with memorySize bytes of RAM and the stack
// pointer at the top of memory.
func NewMachine(memorySize int) *Machine {
	m := &Machine{
		Memory:   make([]byte, memorySize),
		MaxSteps: DefaultMaxSteps,
		symbols:  map[string]uint32{},
		labels:   map[string]int{},
	}
	m.A[SP] = uint32(memorySize)
	return m
}

// Define binds a data symbol, such as a segment base, to an address.
func (m *Machine) Define(symbol string, address uint32) {
	m.symbols[symbol] = address
}

// Load installs program, replacing any previous one.
func (m *Machine) Load(program []Instruction) error {
	labels := map[string]int{}
	for i, inst := range program {
		if inst.Operator != Label {
			continue
		}
		if _, exists := labels[inst.Source.Label]; exists {
			return fmt.Errorf("duplicate label %s", inst.Source.Label)
		}
		labels[inst.Source.Label] = i
	}
	m.program = program
	m.labels = labels
	return nil
}

// Call runs the routine at label until it returns.
func (m *Machine) Call(label string) error {
	start, ok := m.labels[label]
	if !ok {
		return fmt.Errorf("undefined label %s", label)
	}
	if err := m.push(Long, returnSentinel); err != nil {
		return err
	}
	m.pc = start
	for m.pc >= 0 {
		if m.pc >= len(m.program) {
			return fmt.Errorf("ran past the end of the program")
		}
		if m.Steps >= m.MaxSteps {
			return fmt.Errorf("step limit of %d exceeded", m.MaxSteps)
		}
		m.Steps++
		inst := m.program[m.pc]
		m.pc++
		if err := m.execute(inst); err != nil {
			return fmt.Errorf("%s: %w", inst, err)
		}
	}
	return nil
}

func mask(size Size) uint32 {
	switch size {
	case Byte:
		return 0xFF
	case Word:
		return 0xFFFF
	default:
		return 0xFFFFFFFF
	}
}

// SignExtend interprets the low size bytes of v as a signed integer.
func SignExtend(v uint32, size Size) int64 {
	switch size {
	case Byte:
		return int64(int8(v))
	case Word:
		return int64(int16(v))
	default:
		return int64(int32(v))
	}
}

// Read loads size bytes at address.
func (m *Machine) Read(address uint32, size Size) (uint32, error) {
	if int64(address)+int64(size) > int64(len(m.Memory)) {
		return 0, fmt.Errorf("read of %d bytes at %#x is out of bounds", size, address)
	}
	var v uint32
	for i := 0; i < int(size); i++ {
		v = v<<8 | uint32(m.Memory[address+uint32(i)])
	}
	return v, nil
}

// Write stores the low size bytes of value at address.
func (m *Machine) Write(address uint32, size Size, value uint32) error {
	if int64(address)+int64(size) > int64(len(m.Memory)) {
		return fmt.Errorf("write of %d bytes at %#x is out of bounds", size, address)
	}
	for i := int(size) - 1; i >= 0; i-- {
		m.Memory[address+uint32(i)] = byte(value)
		value >>= 8
	}
	return nil
}

// ReadString reads a NUL-terminated string at address.
func (m *Machine) ReadString(address uint32) (string, error) {
	for end := address; int(end) < len(m.Memory); end++ {
		if m.Memory[end] == 0 {
			return string(m.Memory[address:end]), nil
		}
	}
	return "", fmt.Errorf("unterminated string at %#x", address)
}

func (m *Machine) push(size Size, value uint32) error {
	m.A[SP] -= uint32(size)
	return m.Write(m.A[SP], size, value)
}

func (m *Machine) pop(size Size) (uint32, error) {
	v, err := m.Read(m.A[SP], size)
	m.A[SP] += uint32(size)
	return v, err
}

type locationKind int

const (
	locImmediate locationKind = iota
	locData
	locAddress
	locMemory
)

// location is a resolved operand. Resolving applies any pre-decrement or
// post-increment, so each operand is resolved exactly once.
type location struct {
	kind    locationKind
	index   int
	address uint32
	value   uint32
}

func (m *Machine) symbol(name string) (uint32, error) {
	if name == "" {
		return 0, nil
	}
	address, ok := m.symbols[name]
	if !ok {
		return 0, fmt.Errorf("undefined symbol %s", name)
	}
	return address, nil
}

func (m *Machine) resolve(o Operand, size Size) (location, error) {
	switch o.Mode {
	case ModeImmediate:
		base, err := m.symbol(o.Label)
		if err != nil {
			return location{}, err
		}
		return location{kind: locImmediate, value: base + uint32(o.Value)}, nil
	case ModeDataRegister:
		return location{kind: locData, index: o.Index}, nil
	case ModeAddressRegister:
		return location{kind: locAddress, index: o.Index}, nil
	case ModeIndirect:
		return location{kind: locMemory, address: m.A[o.Index]}, nil
	case ModePreDecrement:
		m.A[o.Index] -= uint32(size)
		return location{kind: locMemory, address: m.A[o.Index]}, nil
	case ModePostIncrement:
		address := m.A[o.Index]
		m.A[o.Index] += uint32(size)
		return location{kind: locMemory, address: address}, nil
	case ModeDisplacement:
		return location{kind: locMemory, address: m.A[o.Index] + uint32(o.Value)}, nil
	case ModeAbsolute:
		base, err := m.symbol(o.Label)
		if err != nil {
			return location{}, err
		}
		return location{kind: locMemory, address: base + uint32(o.Value)}, nil
	default:
		return location{}, fmt.Errorf("operand %s cannot be used here", o)
	}
}

func (m *Machine) load(l location, size Size) (uint32, error) {
	switch l.kind {
	case locImmediate:
		return l.value & mask(size), nil
	case locData:
		return m.D[l.index] & mask(size), nil
	case locAddress:
		return m.A[l.index] & mask(size), nil
	default:
		return m.Read(l.address, size)
	}
}

func (m *Machine) store(l location, size Size, v uint32) error {
	switch l.kind {
	case locData:
		m.D[l.index] = m.D[l.index]&^mask(size) | v&mask(size)
		return nil
	case locAddress:
		// Address registers always take the whole long.
		if size != Long {
			v = uint32(SignExtend(v, size))
		}
		m.A[l.index] = v
		return nil
	case locMemory:
		return m.Write(l.address, size, v)
	default:
		return fmt.Errorf("cannot write to an immediate")
	}
}

// binary resolves source then destination and stores f(dst, src).
func (m *Machine) binary(inst Instruction, f func(dst, src uint32) (uint32, error)) error {
	src, err := m.resolve(inst.Source, inst.Size)
	if err != nil {
		return err
	}
	s, err := m.load(src, inst.Size)
	if err != nil {
		return err
	}
	dst, err := m.resolve(inst.Destination, inst.Size)
	if err != nil {
		return err
	}
	d, err := m.load(dst, inst.Size)
	if err != nil {
		return err
	}
	if dst.kind == locAddress {
		// Address arithmetic is always performed on the whole register.
		d = m.A[dst.index]
		s = uint32(SignExtend(s, inst.Size))
		r, err := f(d, s)
		if err != nil {
			return err
		}
		m.A[dst.index] = r
		return nil
	}
	r, err := f(d, s)
	if err != nil {
		return err
	}
	return m.store(dst, inst.Size, r)
}

// unary applies f to the destination in place.
func (m *Machine) unary(inst Instruction, f func(v uint32) uint32) error {
	dst, err := m.resolve(inst.Destination, inst.Size)
	if err != nil {
		return err
	}
	v, err := m.load(dst, inst.Size)
	if err != nil {
		return err
	}
	return m.store(dst, inst.Size, f(v))
}

func (m *Machine) execute(inst Instruction) error {
	size := inst.Size
	switch inst.Operator {
	case Label:
		return nil

	case Move:
		src, err := m.resolve(inst.Source, size)
		if err != nil {
			return err
		}
		v, err := m.load(src, size)
		if err != nil {
			return err
		}
		dst, err := m.resolve(inst.Destination, size)
		if err != nil {
			return err
		}
		return m.store(dst, size, v)

	case Add:
		return m.binary(inst, func(d, s uint32) (uint32, error) { return d + s, nil })
	case Sub:
		return m.binary(inst, func(d, s uint32) (uint32, error) { return d - s, nil })
	case And:
		return m.binary(inst, func(d, s uint32) (uint32, error) { return d & s, nil })
	case Mulu:
		return m.binary(inst, func(d, s uint32) (uint32, error) { return d * s, nil })
	case Muls:
		return m.binary(inst, func(d, s uint32) (uint32, error) {
			return uint32(SignExtend(d, size) * SignExtend(s, size)), nil
		})
	case Divu:
		return m.binary(inst, func(d, s uint32) (uint32, error) {
			if s == 0 {
				return 0, ErrDivisionByZero
			}
			return d / s, nil
		})
	case Divs:
		return m.binary(inst, func(d, s uint32) (uint32, error) {
			if s == 0 {
				return 0, ErrDivisionByZero
			}
			return uint32(SignExtend(d, size) / SignExtend(s, size)), nil
		})

	case Neg:
		return m.unary(inst, func(v uint32) uint32 { return -v })
	case Not:
		return m.unary(inst, func(v uint32) uint32 { return ^v })
	case Clr:
		return m.unary(inst, func(uint32) uint32 { return 0 })
	case Ext:
		// ext.w widens a byte to a word, ext.l a word to a long.
		return m.unary(inst, func(v uint32) uint32 {
			if size == Word {
				return uint32(SignExtend(v, Byte))
			}
			return uint32(SignExtend(v, Word))
		})

	case Lea:
		src, err := m.resolve(inst.Source, Long)
		if err != nil {
			return err
		}
		if src.kind != locMemory || inst.Destination.Mode != ModeAddressRegister {
			return fmt.Errorf("lea needs a memory source and an address register destination")
		}
		m.A[inst.Destination.Index] = src.address
		return nil

	case Jsr:
		target, ok := m.labels[inst.Source.Label]
		if !ok {
			return fmt.Errorf("undefined label %s", inst.Source.Label)
		}
		if err := m.push(Long, uint32(m.pc)); err != nil {
			return err
		}
		m.pc = target
		return nil

	case Rts:
		ret, err := m.pop(Long)
		if err != nil {
			return err
		}
		if ret == returnSentinel {
			m.pc = -1
		} else {
			m.pc = int(ret)
		}
		return nil

	default:
		return fmt.Errorf("unsupported operator %s", inst.Operator)
	}
}
