package insn

import (
	"fmt"
	"io"
)

// Access flags
const (
	AccPublic = 0x0001
	AccStatic = 0x0008
)

// Method is a decoded method body. Code is never mutated after NewMethod.
type Method struct {
	Name        string
	Descriptor  string
	AccessFlags uint16
	MaxStack    int
	MaxLocals   int
	Code        []Node

	labels map[*Label]int
}

// NewMethod returns a Method over code and indexes its labels.
func NewMethod(name, descriptor string, access uint16, maxStack, maxLocals int, code []Node) *Method {
	m := &Method{
		Name:        name,
		Descriptor:  descriptor,
		AccessFlags: access,
		MaxStack:    maxStack,
		MaxLocals:   maxLocals,
		Code:        code,
		labels:      make(map[*Label]int),
	}
	for i, n := range code {
		if l, ok := n.(*Label); ok {
			m.labels[l] = i
		}
	}
	return m
}

// First returns a cursor at the first executable instruction, or the zero
// Ref if the method has none.
func (m *Method) First() Ref {
	return m.skip(0)
}

// At returns a cursor at the first executable instruction at or after
// index i.
func (m *Method) At(i int) Ref {
	if i < 0 {
		return Ref{}
	}
	return m.skip(i)
}

// Resolve returns a cursor at the first executable instruction following
// label l, or the zero Ref if l is not part of m or nothing follows it.
func (m *Method) Resolve(l *Label) Ref {
	i, ok := m.labels[l]
	if !ok {
		return Ref{}
	}
	return m.skip(i + 1)
}

// IndexOf returns the position of label l in m.Code, or -1.
func (m *Method) IndexOf(l *Label) int {
	if i, ok := m.labels[l]; ok {
		return i
	}
	return -1
}

func (m *Method) skip(i int) Ref {
	for ; i < len(m.Code); i++ {
		if !IsMarker(m.Code[i]) {
			return Ref{method: m, index: i}
		}
	}
	return Ref{}
}

// Disassemble writes one line per node of m.Code to w.
func (m *Method) Disassemble(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s%s  stack=%d, locals=%d\n", m.Name, m.Descriptor, m.MaxStack, m.MaxLocals); err != nil {
		return err
	}
	for i, n := range m.Code {
		var err error
		if IsMarker(n) {
			_, err = fmt.Fprintf(w, "      %s\n", Format(n))
		} else {
			_, err = fmt.Fprintf(w, "%4d:   %s\n", i, Format(n))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Ref points at one executable instruction of a method. The zero Ref
// points at nothing and stands for "end of program".
type Ref struct {
	method *Method
	index  int
}

// Valid reports whether r points at an instruction.
func (r Ref) Valid() bool { return r.method != nil }

// Method returns the method r points into, or nil.
func (r Ref) Method() *Method { return r.method }

// Index returns the position of r in its method's code, or -1.
func (r Ref) Index() int {
	if r.method == nil {
		return -1
	}
	return r.index
}

// Node returns the instruction r points at, or nil.
func (r Ref) Node() Node {
	if r.method == nil {
		return nil
	}
	return r.method.Code[r.index]
}

// Next returns a cursor at the next executable instruction after r, or the
// zero Ref if r is the last one.
func (r Ref) Next() Ref {
	if r.method == nil {
		return Ref{}
	}
	return r.method.skip(r.index + 1)
}

func (r Ref) String() string {
	if r.method == nil {
		return "<end>"
	}
	return fmt.Sprintf("%s@%d", r.method.Name, r.index)
}
