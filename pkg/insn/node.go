// Package insn models decoded method bodies as ordered instruction
// sequences. Branches refer to Label nodes in the same sequence, and
// structural markers (labels, stack map frames) are kept in place but
// skipped by every cursor that walks executable code.
package insn

import (
	"fmt"
	"strconv"
)

// Node is one entry of a method's instruction sequence.
type Node interface {
	// Opcode returns the instruction opcode, or NoOpcode for markers.
	Opcode() Opcode
	node()
}

// Label marks a position in the sequence. It never executes.
type Label struct {
	ID int
}

// FrameMarker records a stack map frame at a bytecode offset. It never
// executes.
type FrameMarker struct {
	Offset int
}

// Insn is an instruction without operands.
type Insn struct {
	Op Opcode
}

// IntInsn is bipush or sipush with its sign-extended immediate.
type IntInsn struct {
	Op      Opcode
	Operand int32
}

// VarInsn is a load or store of a local variable slot.
type VarInsn struct {
	Op  Opcode
	Var int
}

// IincInsn increments a local int by a signed constant.
type IincInsn struct {
	Var  int
	Incr int32
}

// JumpInsn is a conditional or unconditional branch to Target.
type JumpInsn struct {
	Op     Opcode
	Target *Label
}

// LdcInsn pushes a constant pool entry. ldc, ldc_w and ldc2_w all decode to
// this node.
type LdcInsn struct {
	Const Constant
}

func (*Label) Opcode() Opcode       { return NoOpcode }
func (*FrameMarker) Opcode() Opcode { return NoOpcode }
func (n *Insn) Opcode() Opcode      { return n.Op }
func (n *IntInsn) Opcode() Opcode   { return n.Op }
func (n *VarInsn) Opcode() Opcode   { return n.Op }
func (*IincInsn) Opcode() Opcode    { return IINC }
func (n *JumpInsn) Opcode() Opcode  { return n.Op }
func (*LdcInsn) Opcode() Opcode     { return LDC }

func (*Label) node()       {}
func (*FrameMarker) node() {}
func (*Insn) node()        {}
func (*IntInsn) node()     {}
func (*VarInsn) node()     {}
func (*IincInsn) node()    {}
func (*JumpInsn) node()    {}
func (*LdcInsn) node()     {}

// IsMarker reports whether n is a structural marker.
func IsMarker(n Node) bool {
	switch n.(type) {
	case *Label, *FrameMarker:
		return true
	}
	return false
}

// ConstKind identifies the type of a loadable constant.
type ConstKind int

const (
	ConstInt ConstKind = iota
	ConstLong
	ConstString
)

// Constant is an int, long or string constant pool entry.
type Constant struct {
	Kind ConstKind
	Int  int32
	Long int64
	Str  string
}

// IntConst returns an int constant.
func IntConst(v int32) Constant { return Constant{Kind: ConstInt, Int: v} }

// LongConst returns a long constant.
func LongConst(v int64) Constant { return Constant{Kind: ConstLong, Long: v} }

// StringConst returns a string constant.
func StringConst(s string) Constant { return Constant{Kind: ConstString, Str: s} }

func (c Constant) String() string {
	switch c.Kind {
	case ConstInt:
		return strconv.FormatInt(int64(c.Int), 10)
	case ConstLong:
		return strconv.FormatInt(c.Long, 10)
	default:
		return strconv.Quote(c.Str)
	}
}

// Format returns the disassembled form of n: the mnemonic followed by its
// operands. A nil node formats as the empty string.
func Format(n Node) string {
	switch n := n.(type) {
	case nil:
		return ""
	case *Label:
		return fmt.Sprintf("L%d:", n.ID)
	case *FrameMarker:
		return fmt.Sprintf("FRAME @%d", n.Offset)
	case *Insn:
		return n.Op.String()
	case *IntInsn:
		return fmt.Sprintf("%s %d", n.Op, n.Operand)
	case *VarInsn:
		return fmt.Sprintf("%s %d", n.Op, n.Var)
	case *IincInsn:
		return fmt.Sprintf("IINC %d, %d", n.Var, n.Incr)
	case *JumpInsn:
		if n.Target == nil {
			return fmt.Sprintf("%s <nil>", n.Op)
		}
		return fmt.Sprintf("%s L%d", n.Op, n.Target.ID)
	case *LdcInsn:
		return "LDC " + n.Const.String()
	}
	return fmt.Sprintf("%T", n)
}
