package vm

import "strconv"

// Kind is the type tag of a Value.
type Kind uint8

const (
	// KindInt tags a 32-bit integer.
	KindInt Kind = iota + 1
	// KindLong tags a 64-bit integer.
	KindLong
)

// Descriptor returns the field descriptor character of k: 'I' or 'J'.
func (k Kind) Descriptor() byte {
	switch k {
	case KindInt:
		return 'I'
	case KindLong:
		return 'J'
	}
	return '?'
}

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindLong:
		return "long"
	}
	return "none"
}

// Value represents a value on the operand stack or in local variables.
// Only IntValue and LongValue produce valid values; the zero Value marks
// an empty local slot.
type Value struct {
	Kind Kind
	Int  int32
	Long int64
}

// IntValue creates an int Value.
func IntValue(v int32) Value {
	return Value{Kind: KindInt, Int: v}
}

// LongValue creates a long Value.
func LongValue(v int64) Value {
	return Value{Kind: KindLong, Long: v}
}

// IsValid reports whether v holds an int or a long.
func (v Value) IsValid() bool {
	return v.Kind == KindInt || v.Kind == KindLong
}

// String returns the decimal form of v.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(int64(v.Int), 10)
	case KindLong:
		return strconv.FormatInt(v.Long, 10)
	}
	return ""
}
