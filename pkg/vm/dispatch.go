package vm

import (
	"fmt"
	"slices"

	"github.com/daimatz/minijvm/pkg/insn"
)

// Actions is the executable meaning of every supported opcode. The
// dispatch table is written in terms of these methods, so a new opcode
// needs both an entry here and an implementation before anything compiles.
type Actions interface {
	Bipush(operand int32) error
	Sipush(operand int32) error
	Ldc(c insn.Constant) error

	I2b() error
	I2s() error
	I2l() error
	L2i() error

	Iadd() error
	Ladd() error
	Isub() error
	Lsub() error
	Imul() error
	Lmul() error
	Ineg() error
	Lneg() error

	Iload(index int) error
	Lload(index int) error
	Istore(index int) error
	Lstore(index int) error
	Iinc(index int, increment int32) error

	Lcmp() error

	IfIcmpeq(target insn.Ref) error
	IfIcmpne(target insn.Ref) error
	IfIcmplt(target insn.Ref) error
	IfIcmple(target insn.Ref) error
	IfIcmpgt(target insn.Ref) error
	IfIcmpge(target insn.Ref) error
	Ifeq(target insn.Ref) error
	Ifne(target insn.Ref) error
	Iflt(target insn.Ref) error
	Ifle(target insn.Ref) error
	Ifgt(target insn.Ref) error
	Ifge(target insn.Ref) error
	Goto(target insn.Ref) error

	Return() error
}

// Descriptor describes one supported opcode.
type Descriptor struct {
	op   insn.Opcode
	exec func(a Actions, at insn.Ref) error
}

// Mnemonic returns the display name of the opcode.
func (d Descriptor) Mnemonic() string { return d.op.String() }

// Opcode returns the opcode d describes.
func (d Descriptor) Opcode() insn.Opcode { return d.op }

// Execute decodes the operands of the instruction at and runs its action.
func (d Descriptor) Execute(a Actions, at insn.Ref) error {
	return d.exec(a, at)
}

var dispatchTable = map[insn.Opcode]Descriptor{}

func init() {
	intOp(insn.BIPUSH, Actions.Bipush)
	intOp(insn.SIPUSH, Actions.Sipush)
	register(insn.LDC, func(a Actions, at insn.Ref) error {
		n, ok := at.Node().(*insn.LdcInsn)
		if !ok {
			return malformed(at)
		}
		return a.Ldc(n.Const)
	})

	simpleOp(insn.I2B, Actions.I2b)
	simpleOp(insn.I2S, Actions.I2s)
	simpleOp(insn.I2L, Actions.I2l)
	simpleOp(insn.L2I, Actions.L2i)
	simpleOp(insn.IADD, Actions.Iadd)
	simpleOp(insn.LADD, Actions.Ladd)
	simpleOp(insn.ISUB, Actions.Isub)
	simpleOp(insn.LSUB, Actions.Lsub)
	simpleOp(insn.IMUL, Actions.Imul)
	simpleOp(insn.LMUL, Actions.Lmul)
	simpleOp(insn.INEG, Actions.Ineg)
	simpleOp(insn.LNEG, Actions.Lneg)
	simpleOp(insn.LCMP, Actions.Lcmp)
	simpleOp(insn.RETURN, Actions.Return)

	varOp(insn.ILOAD, Actions.Iload)
	varOp(insn.LLOAD, Actions.Lload)
	varOp(insn.ISTORE, Actions.Istore)
	varOp(insn.LSTORE, Actions.Lstore)
	register(insn.IINC, func(a Actions, at insn.Ref) error {
		n, ok := at.Node().(*insn.IincInsn)
		if !ok {
			return malformed(at)
		}
		return a.Iinc(n.Var, n.Incr)
	})

	jumpOp(insn.IF_ICMPEQ, Actions.IfIcmpeq)
	jumpOp(insn.IF_ICMPNE, Actions.IfIcmpne)
	jumpOp(insn.IF_ICMPLT, Actions.IfIcmplt)
	jumpOp(insn.IF_ICMPLE, Actions.IfIcmple)
	jumpOp(insn.IF_ICMPGT, Actions.IfIcmpgt)
	jumpOp(insn.IF_ICMPGE, Actions.IfIcmpge)
	jumpOp(insn.IFEQ, Actions.Ifeq)
	jumpOp(insn.IFNE, Actions.Ifne)
	jumpOp(insn.IFLT, Actions.Iflt)
	jumpOp(insn.IFLE, Actions.Ifle)
	jumpOp(insn.IFGT, Actions.Ifgt)
	jumpOp(insn.IFGE, Actions.Ifge)
	jumpOp(insn.GOTO, Actions.Goto)
}

// Lookup returns the descriptor of op.
func Lookup(op insn.Opcode) (Descriptor, error) {
	d, ok := dispatchTable[op]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrUnsupportedOpcode, op)
	}
	return d, nil
}

// Supported returns the opcodes in the dispatch table in numeric order.
func Supported() []insn.Opcode {
	ops := make([]insn.Opcode, 0, len(dispatchTable))
	for op := range dispatchTable {
		ops = append(ops, op)
	}
	slices.Sort(ops)
	return ops
}

func register(op insn.Opcode, exec func(Actions, insn.Ref) error) {
	if _, dup := dispatchTable[op]; dup {
		panic(fmt.Sprintf("vm: opcode %s registered twice", op))
	}
	dispatchTable[op] = Descriptor{op: op, exec: exec}
}

func simpleOp(op insn.Opcode, action func(Actions) error) {
	register(op, func(a Actions, at insn.Ref) error {
		if _, ok := at.Node().(*insn.Insn); !ok {
			return malformed(at)
		}
		return action(a)
	})
}

func intOp(op insn.Opcode, action func(Actions, int32) error) {
	register(op, func(a Actions, at insn.Ref) error {
		n, ok := at.Node().(*insn.IntInsn)
		if !ok {
			return malformed(at)
		}
		return action(a, n.Operand)
	})
}

func varOp(op insn.Opcode, action func(Actions, int) error) {
	register(op, func(a Actions, at insn.Ref) error {
		n, ok := at.Node().(*insn.VarInsn)
		if !ok {
			return malformed(at)
		}
		return action(a, n.Var)
	})
}

// jumpOp resolves the branch target past any markers before the action
// runs, so the action only ever sees an executable instruction or the zero
// Ref.
func jumpOp(op insn.Opcode, action func(Actions, insn.Ref) error) {
	register(op, func(a Actions, at insn.Ref) error {
		n, ok := at.Node().(*insn.JumpInsn)
		if !ok {
			return malformed(at)
		}
		return action(a, at.Method().Resolve(n.Target))
	})
}

func malformed(at insn.Ref) error {
	n := at.Node()
	if n == nil {
		return fmt.Errorf("%w: no instruction at %s", ErrMalformedInstruction, at)
	}
	return fmt.Errorf("%w: %T for %s", ErrMalformedInstruction, n, n.Opcode())
}
