package classfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

const classMagic = 0xCAFEBABE

// ErrMethodNotFound is returned when a class has no method matching a lookup.
var ErrMethodNotFound = errors.New("method not found")

// ParseFile opens and parses a .class file from the given path.
func ParseFile(path string) (*ClassFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBytes(data)
}

// Parse reads a .class file from the given reader and returns a ClassFile.
func Parse(r io.Reader) (*ClassFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading class file: %w", err)
	}
	return ParseBytes(data)
}

// ParseBytes parses the contents of a .class file.
func ParseBytes(data []byte) (*ClassFile, error) {
	r := newReader(data)

	magic := r.u4("magic number")
	if r.err == nil && magic != classMagic {
		return nil, fmt.Errorf("invalid magic number: 0x%X (expected 0xCAFEBABE)", magic)
	}
	cf := &ClassFile{}
	cf.MinorVersion = r.u2("minor version")
	cf.MajorVersion = r.u2("major version")
	if r.err != nil {
		return nil, r.err
	}

	pool, err := parseConstantPool(r)
	if err != nil {
		return nil, fmt.Errorf("parsing constant pool: %w", err)
	}
	cf.ConstantPool = pool

	cf.AccessFlags = r.u2("access flags")
	cf.ThisClass = r.u2("this_class")
	cf.SuperClass = r.u2("super_class")
	cf.Interfaces = make([]uint16, r.u2("interfaces count"))
	for i := range cf.Interfaces {
		cf.Interfaces[i] = r.u2("interface index")
	}
	if r.err != nil {
		return nil, r.err
	}

	cf.Fields, err = parseMembers(r, pool, "field")
	if err != nil {
		return nil, fmt.Errorf("parsing fields: %w", err)
	}

	members, err := parseMembers(r, pool, "method")
	if err != nil {
		return nil, fmt.Errorf("parsing methods: %w", err)
	}
	cf.Methods = make([]MethodInfo, len(members))
	for i, m := range members {
		cf.Methods[i].MemberInfo = m
		for _, attr := range m.Attributes {
			if attr.Name != "Code" {
				continue
			}
			cf.Methods[i].Code, err = parseCodeAttribute(pool, attr.Data)
			if err != nil {
				return nil, fmt.Errorf("parsing Code attribute for method %s: %w", m.Name, err)
			}
			break
		}
	}

	attrs, err := parseAttributes(r, pool)
	if err != nil {
		return nil, fmt.Errorf("parsing class attributes: %w", err)
	}
	for _, attr := range attrs {
		if attr.Name != "SourceFile" {
			continue
		}
		if len(attr.Data) != 2 {
			return nil, fmt.Errorf("SourceFile attribute has %d bytes, want 2", len(attr.Data))
		}
		cf.SourceFile, err = GetUtf8(pool, binary.BigEndian.Uint16(attr.Data))
		if err != nil {
			return nil, fmt.Errorf("resolving SourceFile: %w", err)
		}
	}

	if n := r.remaining(); n != 0 {
		return nil, fmt.Errorf("%d trailing bytes after class attributes", n)
	}
	return cf, nil
}

// parseMembers reads a fields or methods table; kind names the table in
// errors.
func parseMembers(r *reader, pool []ConstantPoolEntry, kind string) ([]MemberInfo, error) {
	count := r.u2(kind + "s count")
	if r.err != nil {
		return nil, r.err
	}

	members := make([]MemberInfo, count)
	for i := range members {
		m := &members[i]
		m.AccessFlags = r.u2(kind + " access flags")
		nameIndex := r.u2(kind + " name index")
		descIndex := r.u2(kind + " descriptor index")
		if r.err != nil {
			return nil, r.err
		}

		var err error
		if m.Name, err = GetUtf8(pool, nameIndex); err != nil {
			return nil, fmt.Errorf("resolving %s %d name: %w", kind, i, err)
		}
		if m.Descriptor, err = GetUtf8(pool, descIndex); err != nil {
			return nil, fmt.Errorf("resolving %s %s descriptor: %w", kind, m.Name, err)
		}
		if m.Attributes, err = parseAttributes(r, pool); err != nil {
			return nil, fmt.Errorf("parsing %s %s attributes: %w", kind, m.Name, err)
		}
	}
	return members, nil
}

// parseAttributes reads an attributes count and that many raw attributes.
func parseAttributes(r *reader, pool []ConstantPoolEntry) ([]AttributeInfo, error) {
	count := r.u2("attributes count")
	if r.err != nil {
		return nil, r.err
	}

	attrs := make([]AttributeInfo, count)
	for i := range attrs {
		nameIndex := r.u2("attribute name index")
		length := r.u4("attribute length")
		attrs[i].Data = r.bytes(int(length), "attribute data")
		if r.err != nil {
			return nil, r.err
		}

		var err error
		if attrs[i].Name, err = GetUtf8(pool, nameIndex); err != nil {
			return nil, fmt.Errorf("resolving attribute %d name: %w", i, err)
		}
	}
	return attrs, nil
}

func parseCodeAttribute(pool []ConstantPoolEntry, data []byte) (*CodeAttribute, error) {
	r := newReader(data)

	ca := &CodeAttribute{}
	ca.MaxStack = r.u2("max_stack")
	ca.MaxLocals = r.u2("max_locals")
	codeLength := r.u4("code_length")
	ca.Code = r.bytes(int(codeLength), "code")

	ca.ExceptionHandlers = make([]ExceptionHandler, r.u2("exception table length"))
	for i := range ca.ExceptionHandlers {
		h := &ca.ExceptionHandlers[i]
		h.StartPC = r.u2("start_pc")
		h.EndPC = r.u2("end_pc")
		h.HandlerPC = r.u2("handler_pc")
		h.CatchType = r.u2("catch_type")
	}
	if r.err != nil {
		return nil, r.err
	}

	attrs, err := parseAttributes(r, pool)
	if err != nil {
		return nil, fmt.Errorf("parsing Code attributes: %w", err)
	}
	for _, attr := range attrs {
		if attr.Name != "StackMapTable" {
			continue
		}
		ca.FrameOffsets, err = parseStackMapTable(attr.Data)
		if err != nil {
			return nil, fmt.Errorf("parsing StackMapTable: %w", err)
		}
	}

	if n := r.remaining(); n != 0 {
		return nil, fmt.Errorf("%d trailing bytes in Code attribute", n)
	}
	return ca, nil
}

// ClassName returns the fully qualified name of this class.
func (cf *ClassFile) ClassName() (string, error) {
	return GetClassName(cf.ConstantPool, cf.ThisClass)
}

// FindMethod finds a method by name and descriptor.
func (cf *ClassFile) FindMethod(name, descriptor string) *MethodInfo {
	for i := range cf.Methods {
		if cf.Methods[i].Name == name && cf.Methods[i].Descriptor == descriptor {
			return &cf.Methods[i]
		}
	}
	return nil
}

// FindMethodByName finds a method by name only (first match).
func (cf *ClassFile) FindMethodByName(name string) *MethodInfo {
	for i := range cf.Methods {
		if cf.Methods[i].Name == name {
			return &cf.Methods[i]
		}
	}
	return nil
}

// FindEntryMethod returns the first method called name that is both public
// and static, whatever its descriptor.
func (cf *ClassFile) FindEntryMethod(name string) (*MethodInfo, error) {
	for i := range cf.Methods {
		if cf.Methods[i].Name == name && cf.Methods[i].IsPublicStatic() {
			return &cf.Methods[i], nil
		}
	}
	return nil, fmt.Errorf("%w: no public static method %q", ErrMethodNotFound, name)
}
