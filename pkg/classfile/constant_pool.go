package classfile

import (
	"fmt"
	"math"
)

// Constant pool tags
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagDynamic            = 17
	TagInvokeDynamic      = 18
	TagModule             = 19
	TagPackage            = 20
)

// parseConstantPool reads the constant pool count and its entries. The
// returned slice is indexed like the pool itself: index 0 and the slot after
// every Long or Double are nil.
func parseConstantPool(r *reader) ([]ConstantPoolEntry, error) {
	count := r.u2("constant pool count")
	if r.err != nil {
		return nil, r.err
	}

	pool := make([]ConstantPoolEntry, count)
	for i := 1; i < int(count); i++ {
		tag := r.u1("constant pool tag")
		entry, err := parseConstant(r, tag)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		pool[i] = entry
		if tag == TagLong || tag == TagDouble {
			i++
		}
	}
	return pool, nil
}

func parseConstant(r *reader, tag uint8) (ConstantPoolEntry, error) {
	if r.err != nil {
		return nil, r.err
	}

	var c ConstantPoolEntry
	switch tag {
	case TagUtf8:
		n := r.u2("Utf8 length")
		c = &ConstantUtf8{Value: string(r.take(int(n), "Utf8 bytes"))}
	case TagInteger:
		c = &ConstantInteger{Value: int32(r.u4("Integer"))}
	case TagFloat:
		c = &ConstantFloat{Value: math.Float32frombits(r.u4("Float"))}
	case TagLong:
		c = &ConstantLong{Value: int64(r.u8("Long"))}
	case TagDouble:
		c = &ConstantDouble{Value: math.Float64frombits(r.u8("Double"))}
	case TagClass:
		c = &ConstantClass{NameIndex: r.u2("Class name_index")}
	case TagString:
		c = &ConstantString{StringIndex: r.u2("String string_index")}
	case TagFieldref, TagMethodref, TagInterfaceMethodref:
		ref := &ConstantMemberRef{Kind: tag}
		ref.ClassIndex = r.u2("class_index")
		ref.NameAndTypeIndex = r.u2("name_and_type_index")
		c = ref
	case TagNameAndType:
		nt := &ConstantNameAndType{}
		nt.NameIndex = r.u2("NameAndType name_index")
		nt.DescriptorIndex = r.u2("NameAndType descriptor_index")
		c = nt
	case TagMethodHandle:
		mh := &ConstantMethodHandle{}
		mh.ReferenceKind = r.u1("MethodHandle reference_kind")
		mh.ReferenceIndex = r.u2("MethodHandle reference_index")
		c = mh
	case TagMethodType:
		c = &ConstantMethodType{DescriptorIndex: r.u2("MethodType descriptor_index")}
	case TagDynamic, TagInvokeDynamic:
		dyn := &ConstantDynamic{Kind: tag}
		dyn.BootstrapMethodIndex = r.u2("bootstrap_method_attr_index")
		dyn.NameAndTypeIndex = r.u2("name_and_type_index")
		c = dyn
	case TagModule, TagPackage:
		c = &ConstantNamed{Kind: tag, NameIndex: r.u2("name_index")}
	default:
		return nil, fmt.Errorf("unknown constant pool tag %d", tag)
	}
	if r.err != nil {
		return nil, r.err
	}
	return c, nil
}

// GetEntry returns the constant pool entry at index.
func GetEntry(pool []ConstantPoolEntry, index uint16) (ConstantPoolEntry, error) {
	if int(index) >= len(pool) || pool[index] == nil {
		return nil, fmt.Errorf("invalid constant pool index %d", index)
	}
	return pool[index], nil
}

func entryAs[T ConstantPoolEntry](pool []ConstantPoolEntry, index uint16, kind string) (T, error) {
	var zero T
	entry, err := GetEntry(pool, index)
	if err != nil {
		return zero, err
	}
	c, ok := entry.(T)
	if !ok {
		return zero, fmt.Errorf("constant pool index %d is not %s (tag=%d)", index, kind, entry.Tag())
	}
	return c, nil
}

// GetUtf8 returns the Utf8 string at the given constant pool index.
func GetUtf8(pool []ConstantPoolEntry, index uint16) (string, error) {
	c, err := entryAs[*ConstantUtf8](pool, index, "Utf8")
	if err != nil {
		return "", err
	}
	return c.Value, nil
}

// GetClassName returns the class name referenced by a CONSTANT_Class entry.
func GetClassName(pool []ConstantPoolEntry, index uint16) (string, error) {
	c, err := entryAs[*ConstantClass](pool, index, "Class")
	if err != nil {
		return "", err
	}
	return GetUtf8(pool, c.NameIndex)
}

// GetString returns the text of the CONSTANT_String entry at index.
func GetString(pool []ConstantPoolEntry, index uint16) (string, error) {
	c, err := entryAs[*ConstantString](pool, index, "String")
	if err != nil {
		return "", err
	}
	return GetUtf8(pool, c.StringIndex)
}
