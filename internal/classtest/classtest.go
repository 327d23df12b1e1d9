// Package classtest writes minimal .class files for tests. It covers what
// the decoder reads: the constant pool, methods with a Code attribute and an
// optional StackMapTable, and a SourceFile attribute.
package classtest

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
)

// Access flags
const (
	AccPublic = 0x0001
	AccStatic = 0x0008
)

// MainDescriptor is the descriptor of an entry point.
const MainDescriptor = "([Ljava/lang/String;)V"

// Method is one method of a generated class. A nil Code omits the Code
// attribute, as for abstract methods.
type Method struct {
	Access     uint16
	Name       string
	Descriptor string
	MaxStack   uint16
	MaxLocals  uint16
	Code       []byte
	// Frames are raw stack_map_frame entries. A non-empty list adds a
	// StackMapTable attribute.
	Frames [][]byte
}

// Class is a class file under construction.
type Class struct {
	Name       string
	SourceFile string
	Methods    []Method

	pool  bytes.Buffer
	next  uint16
	utf8s map[string]uint16
}

// New returns a class named name, a binary name such as "pkg/Main".
func New(name string) *Class {
	return &Class{Name: name, next: 1, utf8s: make(map[string]uint16)}
}

// Main adds a public static main method with the given code.
func (c *Class) Main(maxStack, maxLocals uint16, code []byte, frames ...[]byte) *Class {
	c.Methods = append(c.Methods, Method{
		Access:     AccPublic | AccStatic,
		Name:       "main",
		Descriptor: MainDescriptor,
		MaxStack:   maxStack,
		MaxLocals:  maxLocals,
		Code:       code,
		Frames:     frames,
	})
	return c
}

// Utf8 adds a CONSTANT_Utf8 entry, reusing an existing one.
func (c *Class) Utf8(s string) uint16 {
	if i, ok := c.utf8s[s]; ok {
		return i
	}
	c.pool.WriteByte(1)
	binary.Write(&c.pool, binary.BigEndian, uint16(len(s)))
	c.pool.WriteString(s)
	i := c.add(1)
	c.utf8s[s] = i
	return i
}

// ClassRef adds a CONSTANT_Class entry.
func (c *Class) ClassRef(name string) uint16 {
	n := c.Utf8(name)
	c.pool.WriteByte(7)
	binary.Write(&c.pool, binary.BigEndian, n)
	return c.add(1)
}

// Int adds a CONSTANT_Integer entry.
func (c *Class) Int(v int32) uint16 {
	c.pool.WriteByte(3)
	binary.Write(&c.pool, binary.BigEndian, v)
	return c.add(1)
}

// Float adds a CONSTANT_Float entry.
func (c *Class) Float(v float32) uint16 {
	c.pool.WriteByte(4)
	binary.Write(&c.pool, binary.BigEndian, math.Float32bits(v))
	return c.add(1)
}

// Long adds a CONSTANT_Long entry, which takes two pool slots.
func (c *Class) Long(v int64) uint16 {
	c.pool.WriteByte(5)
	binary.Write(&c.pool, binary.BigEndian, v)
	return c.add(2)
}

// String adds a CONSTANT_String entry.
func (c *Class) String(s string) uint16 {
	n := c.Utf8(s)
	c.pool.WriteByte(8)
	binary.Write(&c.pool, binary.BigEndian, n)
	return c.add(1)
}

func (c *Class) add(slots uint16) uint16 {
	i := c.next
	c.next += slots
	return i
}

// Bytes encodes the class file.
func (c *Class) Bytes() []byte {
	this := c.ClassRef(c.Name)
	super := c.ClassRef("java/lang/Object")
	codeName := c.Utf8("Code")
	var stackMapName, sourceName, sourceValue uint16
	for _, m := range c.Methods {
		c.Utf8(m.Name)
		c.Utf8(m.Descriptor)
		if len(m.Frames) > 0 {
			stackMapName = c.Utf8("StackMapTable")
		}
	}
	if c.SourceFile != "" {
		sourceName = c.Utf8("SourceFile")
		sourceValue = c.Utf8(c.SourceFile)
	}

	var b bytes.Buffer
	w := func(v any) { binary.Write(&b, binary.BigEndian, v) }

	w(uint32(0xCAFEBABE))
	w(uint16(0))  // minor
	w(uint16(52)) // major, Java 8
	w(c.next)
	b.Write(c.pool.Bytes())
	w(uint16(AccPublic | 0x0020))
	w(this)
	w(super)
	w(uint16(0)) // interfaces
	w(uint16(0)) // fields

	w(uint16(len(c.Methods)))
	for _, m := range c.Methods {
		w(m.Access)
		w(c.utf8s[m.Name])
		w(c.utf8s[m.Descriptor])
		if m.Code == nil {
			w(uint16(0))
			continue
		}
		w(uint16(1))
		code := codeAttribute(m, stackMapName)
		w(codeName)
		w(uint32(len(code)))
		b.Write(code)
	}

	if c.SourceFile == "" {
		w(uint16(0))
	} else {
		w(uint16(1))
		w(sourceName)
		w(uint32(2))
		w(sourceValue)
	}
	return b.Bytes()
}

func codeAttribute(m Method, stackMapName uint16) []byte {
	var b bytes.Buffer
	w := func(v any) { binary.Write(&b, binary.BigEndian, v) }

	w(m.MaxStack)
	w(m.MaxLocals)
	w(uint32(len(m.Code)))
	b.Write(m.Code)
	w(uint16(0)) // exception table
	if len(m.Frames) == 0 {
		w(uint16(0))
		return b.Bytes()
	}

	var table bytes.Buffer
	binary.Write(&table, binary.BigEndian, uint16(len(m.Frames)))
	for _, f := range m.Frames {
		table.Write(f)
	}
	w(uint16(1))
	w(stackMapName)
	w(uint32(table.Len()))
	b.Write(table.Bytes())
	return b.Bytes()
}

// WriteFile writes the class to dir, creating package directories, and
// returns the path of the .class file.
func (c *Class) WriteFile(dir string) (string, error) {
	path := filepath.Join(dir, filepath.FromSlash(c.Name)+".class")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	return path, os.WriteFile(path, c.Bytes(), 0o644)
}
