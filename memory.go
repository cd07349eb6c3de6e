package main

import (
	"fmt"
	"strings"
)

// MemoryDataType is the semantic type of a memory element: either a
// ValueType or a FunctionType.
type MemoryDataType interface {
	memoryDataType()
}

// ValueType names a primitive (u8, u16, u32, s8, s16, s32, string) or a
// user-defined type.
type ValueType struct {
	ID string
}

// FunctionTypeParameter is one declared argument of a function.
type FunctionTypeParameter struct {
	ID     string
	TypeID string
}

// FunctionType describes a callable. UdtID is non-empty for methods bound to
// a user-defined type; ReturnTypeID is empty when nothing is returned.
type FunctionType struct {
	UdtID        string
	Arguments    []FunctionTypeParameter
	ReturnTypeID string
}

func (ValueType) memoryDataType()    {}
func (FunctionType) memoryDataType() {}

// UdtField is one named member of a user-defined type. Methods are stored as
// fields with a FunctionType and occupy no space.
type UdtField struct {
	ID   string
	Type MemoryDataType
}

// UserDefinedType is a named aggregate whose field order determines its
// flattened layout.
type UserDefinedType struct {
	ID     string
	Fields []UdtField
}

// MemoryElement is anything that occupies a memory slot.
type MemoryElement struct {
	ID    string
	Type  MemoryDataType
	Size  int   // bytes
	Value int64 // literal value or placeholder
}

// StorageClass identifies the address space an element lives in.
type StorageClass int

const (
	StorageGlobal StorageClass = iota
	StorageConst
	StorageStack
)

func (c StorageClass) String() string {
	switch c {
	case StorageGlobal:
		return "global"
	case StorageConst:
		return "const"
	case StorageStack:
		return "stack"
	default:
		return fmt.Sprintf("StorageClass(%d)", int(c))
	}
}

// MemoryQuery is a placed element: the element, the segment holding it and
// its byte offset from that segment's base. A query belongs to exactly one
// storage class.
type MemoryQuery struct {
	Class   StorageClass
	Element MemoryElement
	Offset  int
}

// Scope is a checkpoint of the stack and UDT registry sizes taken by
// OpenScope.
type Scope struct {
	StackItems int
	UdtItems   int
}

// MemoryTracker records where every identifier lives. It is owned by a
// single compilation pass and is not safe for concurrent use.
type MemoryTracker struct {
	globals   []MemoryQuery
	constants []MemoryQuery
	stack     []MemoryQuery
	udts      []UserDefinedType
	scopes    []Scope
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{}
}

func segmentSize(segment []MemoryQuery) int {
	if len(segment) == 0 {
		return 0
	}
	last := segment[len(segment)-1]
	return last.Offset + last.Element.Size
}

// Insert appends element to the data segment, or to the constant segment
// when constant is set. An identifier may appear once per segment.
func (m *MemoryTracker) Insert(element MemoryElement, constant bool) (MemoryQuery, error) {
	class := StorageGlobal
	segment := &m.globals
	if constant {
		class = StorageConst
		segment = &m.constants
	}
	for _, existing := range *segment {
		if existing.Element.ID == element.ID {
			return MemoryQuery{}, fmt.Errorf("error: %s is already defined in the %s segment", element.ID, class)
		}
	}
	query := MemoryQuery{Class: class, Element: element, Offset: segmentSize(*segment)}
	*segment = append(*segment, query)
	return query, nil
}

// Push appends element to the stack. Its offset is the number of stack bytes
// already in use.
func (m *MemoryTracker) Push(element MemoryElement) MemoryQuery {
	query := MemoryQuery{Class: StorageStack, Element: element, Offset: segmentSize(m.stack)}
	m.stack = append(m.stack, query)
	return query
}

// Pop removes the most recently pushed stack element.
func (m *MemoryTracker) Pop() (MemoryQuery, bool) {
	if len(m.stack) == 0 {
		return MemoryQuery{}, false
	}
	query := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return query, true
}

func (m *MemoryTracker) OpenScope() {
	m.scopes = append(m.scopes, Scope{StackItems: len(m.stack), UdtItems: len(m.udts)})
}

// CloseScope unwinds everything introduced since the matching OpenScope and
// returns the stack elements it removed, in push order.
func (m *MemoryTracker) CloseScope() []MemoryQuery {
	if len(m.scopes) == 0 {
		internalError("CloseScope called with no open scope")
	}
	removed := m.ScopeItems()
	scope := m.scopes[len(m.scopes)-1]
	m.scopes = m.scopes[:len(m.scopes)-1]
	m.stack = m.stack[:scope.StackItems]
	m.udts = m.udts[:scope.UdtItems]
	return removed
}

// ScopeItems returns a copy of the stack elements pushed since the innermost
// OpenScope, in push order. With no scope open it returns the whole stack.
func (m *MemoryTracker) ScopeItems() []MemoryQuery {
	floor := 0
	if len(m.scopes) > 0 {
		floor = m.scopes[len(m.scopes)-1].StackItems
	}
	items := make([]MemoryQuery, len(m.stack)-floor)
	copy(items, m.stack[floor:])
	return items
}

// Find looks id up in the stack (innermost first), then the data segment,
// then the constant segment. With currentScopeOnly, only stack entries
// pushed since the innermost open scope are searched; with no scope open
// the whole tracker is the current scope.
func (m *MemoryTracker) Find(id string, currentScopeOnly bool) (MemoryQuery, bool) {
	floor := 0
	if currentScopeOnly && len(m.scopes) > 0 {
		floor = m.scopes[len(m.scopes)-1].StackItems
	}
	for i := len(m.stack) - 1; i >= floor; i-- {
		if m.stack[i].Element.ID == id {
			return m.stack[i], true
		}
	}
	if currentScopeOnly && len(m.scopes) > 0 {
		return MemoryQuery{}, false
	}
	for _, query := range m.globals {
		if query.Element.ID == id {
			return query, true
		}
	}
	for _, query := range m.constants {
		if query.Element.ID == id {
			return query, true
		}
	}
	return MemoryQuery{}, false
}

// AddUdt registers a user-defined type. Registering the same name twice is
// an internal error: declarations must be checked with FindUdt first.
func (m *MemoryTracker) AddUdt(udt UserDefinedType) {
	if _, ok := m.FindUdt(udt.ID, false); ok {
		internalError("user-defined type %s registered twice", udt.ID)
	}
	m.udts = append(m.udts, udt)
}

func (m *MemoryTracker) udtIndex(id string, currentScopeOnly bool) int {
	floor := 0
	if currentScopeOnly && len(m.scopes) > 0 {
		floor = m.scopes[len(m.scopes)-1].UdtItems
	}
	for i := len(m.udts) - 1; i >= floor; i-- {
		if m.udts[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *MemoryTracker) FindUdt(id string, currentScopeOnly bool) (UserDefinedType, bool) {
	i := m.udtIndex(id, currentScopeOnly)
	if i < 0 {
		return UserDefinedType{}, false
	}
	return m.udts[i], true
}

// AddUdtField appends field to the named type.
func (m *MemoryTracker) AddUdtField(udtID string, field UdtField) error {
	i := m.udtIndex(udtID, false)
	if i < 0 {
		return fmt.Errorf("error: unknown type %s", udtID)
	}
	for _, existing := range m.udts[i].Fields {
		if existing.ID == field.ID {
			return fmt.Errorf("error: type %s already has a field named %s", udtID, field.ID)
		}
	}
	// Copy so that values returned earlier by FindUdt stay unchanged.
	fields := make([]UdtField, len(m.udts[i].Fields), len(m.udts[i].Fields)+1)
	copy(fields, m.udts[i].Fields)
	m.udts[i].Fields = append(fields, field)
	return nil
}

func (m *MemoryTracker) FindUdtField(udtID, fieldID string) (UdtField, bool) {
	udt, ok := m.FindUdt(udtID, false)
	if !ok {
		return UdtField{}, false
	}
	for _, field := range udt.Fields {
		if field.ID == fieldID {
			return field, true
		}
	}
	return UdtField{}, false
}

// UnwrapValue returns the element held by query regardless of its segment.
func UnwrapValue(query MemoryQuery) MemoryElement {
	return query.Element
}

// UnwrapOffset returns the offset of query within its segment.
func UnwrapOffset(query MemoryQuery) int {
	return query.Offset
}

// StackSize is the number of bytes currently pushed.
func (m *MemoryTracker) StackSize() int {
	return segmentSize(m.stack)
}

func (m *MemoryTracker) DataSize() int {
	return segmentSize(m.globals)
}

func (m *MemoryTracker) ConstSize() int {
	return segmentSize(m.constants)
}

// Globals returns the data segment in offset order.
func (m *MemoryTracker) Globals() []MemoryQuery {
	return append([]MemoryQuery(nil), m.globals...)
}

// Constants returns the constant segment in offset order.
func (m *MemoryTracker) Constants() []MemoryQuery {
	return append([]MemoryQuery(nil), m.constants...)
}

// String dumps the segments and the UDT registry.
func (m *MemoryTracker) String() string {
	var sb strings.Builder
	dump := func(name string, segment []MemoryQuery) {
		fmt.Fprintf(&sb, "%s (%d bytes):\n", name, segmentSize(segment))
		for _, q := range segment {
			fmt.Fprintf(&sb, "  %4d  %-12s %-10s %d\n", q.Offset, q.Element.ID, TypeToString(q.Element.Type), q.Element.Size)
		}
	}
	dump("data", m.globals)
	dump("const", m.constants)
	dump("stack", m.stack)
	sb.WriteString("types:\n")
	for _, udt := range m.udts {
		fmt.Fprintf(&sb, "  %s\n", udt.ID)
		for _, field := range udt.Fields {
			fmt.Fprintf(&sb, "    %-12s %s\n", field.ID, TypeToString(field.Type))
		}
	}
	return sb.String()
}
