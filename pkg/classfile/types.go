package classfile

// Access flags
const (
	AccPublic   = 0x0001
	AccStatic   = 0x0008
	AccAbstract = 0x0400
)

// ClassFile represents a parsed .class file.
type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	ConstantPool []ConstantPoolEntry
	AccessFlags  uint16
	ThisClass    uint16
	SuperClass   uint16
	Interfaces   []uint16
	Fields       []MemberInfo
	Methods      []MethodInfo
	SourceFile   string
}

// SuperClassName returns the binary name of the super class, or "" for
// java/lang/Object.
func (cf *ClassFile) SuperClassName() string {
	if cf.SuperClass == 0 {
		return ""
	}
	name, err := GetClassName(cf.ConstantPool, cf.SuperClass)
	if err != nil {
		return ""
	}
	return name
}

// ConstantPoolEntry is an interface implemented by all constant pool types.
type ConstantPoolEntry interface {
	Tag() uint8
}

type ConstantUtf8 struct{ Value string }

type ConstantInteger struct{ Value int32 }

type ConstantFloat struct{ Value float32 }

type ConstantLong struct{ Value int64 }

type ConstantDouble struct{ Value float64 }

type ConstantClass struct{ NameIndex uint16 }

type ConstantString struct{ StringIndex uint16 }

// ConstantMemberRef is a Fieldref, Methodref or InterfaceMethodref; Kind
// holds the tag.
type ConstantMemberRef struct {
	Kind             uint8
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

type ConstantNameAndType struct {
	NameIndex       uint16
	DescriptorIndex uint16
}

type ConstantMethodHandle struct {
	ReferenceKind  uint8
	ReferenceIndex uint16
}

type ConstantMethodType struct{ DescriptorIndex uint16 }

// ConstantDynamic is a Dynamic or InvokeDynamic entry; Kind holds the tag.
type ConstantDynamic struct {
	Kind                 uint8
	BootstrapMethodIndex uint16
	NameAndTypeIndex     uint16
}

// ConstantNamed is a Module or Package entry; Kind holds the tag.
type ConstantNamed struct {
	Kind      uint8
	NameIndex uint16
}

func (*ConstantUtf8) Tag() uint8         { return TagUtf8 }
func (*ConstantInteger) Tag() uint8      { return TagInteger }
func (*ConstantFloat) Tag() uint8        { return TagFloat }
func (*ConstantLong) Tag() uint8         { return TagLong }
func (*ConstantDouble) Tag() uint8       { return TagDouble }
func (*ConstantClass) Tag() uint8        { return TagClass }
func (*ConstantString) Tag() uint8       { return TagString }
func (c *ConstantMemberRef) Tag() uint8  { return c.Kind }
func (*ConstantNameAndType) Tag() uint8  { return TagNameAndType }
func (*ConstantMethodHandle) Tag() uint8 { return TagMethodHandle }
func (*ConstantMethodType) Tag() uint8   { return TagMethodType }
func (c *ConstantDynamic) Tag() uint8    { return c.Kind }
func (c *ConstantNamed) Tag() uint8      { return c.Kind }

// MemberInfo is a field or method of a class.
type MemberInfo struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Attributes  []AttributeInfo
}

// MethodInfo is a method with its decoded Code attribute, if it has one.
type MethodInfo struct {
	MemberInfo
	Code *CodeAttribute
}

// IsPublicStatic reports whether m is both public and static.
func (m *MethodInfo) IsPublicStatic() bool {
	return m.AccessFlags&AccPublic != 0 && m.AccessFlags&AccStatic != 0
}

// AttributeInfo represents a raw attribute.
type AttributeInfo struct {
	Name string
	Data []byte
}

// ExceptionHandler represents an entry in the exception table.
type ExceptionHandler struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16
}

// CodeAttribute represents the Code attribute of a method.
type CodeAttribute struct {
	MaxStack          uint16
	MaxLocals         uint16
	Code              []byte
	ExceptionHandlers []ExceptionHandler
	// FrameOffsets holds the bytecode offset of every StackMapTable entry,
	// in increasing order.
	FrameOffsets []int
}
