package vm

import (
	"fmt"

	"github.com/daimatz/minijvm/pkg/insn"
)

// executor implements Actions against a Machine.
type executor struct {
	m *Machine
}

var _ Actions = (*executor)(nil)

// NewActions returns the semantic actions bound to m.
func NewActions(m *Machine) Actions {
	return &executor{m: m}
}

// --- Constants ---

func (e *executor) Bipush(operand int32) error { return e.m.PushOperand(IntValue(operand)) }
func (e *executor) Sipush(operand int32) error { return e.m.PushOperand(IntValue(operand)) }

func (e *executor) Ldc(c insn.Constant) error {
	switch c.Kind {
	case insn.ConstInt:
		return e.m.PushOperand(IntValue(c.Int))
	case insn.ConstLong:
		return e.m.PushOperand(LongValue(c.Long))
	}
	return fmt.Errorf("%w: ldc of non-numeric constant %s", ErrTypeMismatch, c)
}

// --- Type conversions ---

func (e *executor) I2b() error { return e.intUnary(func(v int32) int32 { return int32(int8(v)) }) }
func (e *executor) I2s() error { return e.intUnary(func(v int32) int32 { return int32(int16(v)) }) }

func (e *executor) I2l() error {
	v, err := e.m.PopInt()
	if err != nil {
		return err
	}
	return e.m.PushOperand(LongValue(int64(v)))
}

func (e *executor) L2i() error {
	v, err := e.m.PopLong()
	if err != nil {
		return err
	}
	return e.m.PushOperand(IntValue(int32(v)))
}

// --- Arithmetic ---
// Go integer arithmetic wraps on overflow, matching the JVM.

func (e *executor) Iadd() error { return e.intBinary(func(v1, v2 int32) int32 { return v1 + v2 }) }
func (e *executor) Ladd() error { return e.longBinary(func(v1, v2 int64) int64 { return v1 + v2 }) }
func (e *executor) Isub() error { return e.intBinary(func(v1, v2 int32) int32 { return v1 - v2 }) }
func (e *executor) Lsub() error { return e.longBinary(func(v1, v2 int64) int64 { return v1 - v2 }) }
func (e *executor) Imul() error { return e.intBinary(func(v1, v2 int32) int32 { return v1 * v2 }) }
func (e *executor) Lmul() error { return e.longBinary(func(v1, v2 int64) int64 { return v1 * v2 }) }
func (e *executor) Ineg() error { return e.intUnary(func(v int32) int32 { return -v }) }

func (e *executor) Lneg() error {
	v, err := e.m.PopLong()
	if err != nil {
		return err
	}
	return e.m.PushOperand(LongValue(-v))
}

// --- Local variables ---

func (e *executor) Iload(index int) error {
	v, err := e.m.LoadInt(index)
	if err != nil {
		return err
	}
	return e.m.PushOperand(IntValue(v))
}

func (e *executor) Lload(index int) error {
	v, err := e.m.LoadLong(index)
	if err != nil {
		return err
	}
	return e.m.PushOperand(LongValue(v))
}

func (e *executor) Istore(index int) error {
	v, err := e.m.PopInt()
	if err != nil {
		return err
	}
	return e.m.StoreLocal(index, IntValue(v))
}

func (e *executor) Lstore(index int) error {
	v, err := e.m.PopLong()
	if err != nil {
		return err
	}
	return e.m.StoreLocal(index, LongValue(v))
}

func (e *executor) Iinc(index int, increment int32) error {
	v, err := e.m.LoadInt(index)
	if err != nil {
		return err
	}
	return e.m.StoreLocal(index, IntValue(v+increment))
}

// --- Comparisons ---

func (e *executor) Lcmp() error {
	v2, err := e.m.PopLong()
	if err != nil {
		return err
	}
	v1, err := e.m.PopLong()
	if err != nil {
		return err
	}
	switch {
	case v1 > v2:
		return e.m.PushOperand(IntValue(1))
	case v1 < v2:
		return e.m.PushOperand(IntValue(-1))
	}
	return e.m.PushOperand(IntValue(0))
}

// --- Comparison and branch ---

func (e *executor) IfIcmpeq(t insn.Ref) error { return e.branchBinary(t, func(v1, v2 int32) bool { return v1 == v2 }) }
func (e *executor) IfIcmpne(t insn.Ref) error { return e.branchBinary(t, func(v1, v2 int32) bool { return v1 != v2 }) }
func (e *executor) IfIcmplt(t insn.Ref) error { return e.branchBinary(t, func(v1, v2 int32) bool { return v1 < v2 }) }
func (e *executor) IfIcmple(t insn.Ref) error { return e.branchBinary(t, func(v1, v2 int32) bool { return v1 <= v2 }) }
func (e *executor) IfIcmpgt(t insn.Ref) error { return e.branchBinary(t, func(v1, v2 int32) bool { return v1 > v2 }) }
func (e *executor) IfIcmpge(t insn.Ref) error { return e.branchBinary(t, func(v1, v2 int32) bool { return v1 >= v2 }) }

func (e *executor) Ifeq(t insn.Ref) error { return e.branchUnary(t, func(v int32) bool { return v == 0 }) }
func (e *executor) Ifne(t insn.Ref) error { return e.branchUnary(t, func(v int32) bool { return v != 0 }) }
func (e *executor) Iflt(t insn.Ref) error { return e.branchUnary(t, func(v int32) bool { return v < 0 }) }
func (e *executor) Ifle(t insn.Ref) error { return e.branchUnary(t, func(v int32) bool { return v <= 0 }) }
func (e *executor) Ifgt(t insn.Ref) error { return e.branchUnary(t, func(v int32) bool { return v > 0 }) }
func (e *executor) Ifge(t insn.Ref) error { return e.branchUnary(t, func(v int32) bool { return v >= 0 }) }

func (e *executor) Goto(t insn.Ref) error { return e.m.Jump(t) }

// --- Return ---

func (e *executor) Return() error { return e.m.PopFrame() }

func (e *executor) intUnary(f func(int32) int32) error {
	v, err := e.m.PopInt()
	if err != nil {
		return err
	}
	return e.m.PushOperand(IntValue(f(v)))
}

// intBinary pops v2 then v1 and pushes f(v1, v2).
func (e *executor) intBinary(f func(v1, v2 int32) int32) error {
	v2, err := e.m.PopInt()
	if err != nil {
		return err
	}
	v1, err := e.m.PopInt()
	if err != nil {
		return err
	}
	return e.m.PushOperand(IntValue(f(v1, v2)))
}

func (e *executor) longBinary(f func(v1, v2 int64) int64) error {
	v2, err := e.m.PopLong()
	if err != nil {
		return err
	}
	v1, err := e.m.PopLong()
	if err != nil {
		return err
	}
	return e.m.PushOperand(LongValue(f(v1, v2)))
}

// branchUnary handles ifeq, ifne and friends.
func (e *executor) branchUnary(target insn.Ref, cond func(int32) bool) error {
	v, err := e.m.PopInt()
	if err != nil {
		return err
	}
	if cond(v) {
		return e.m.Jump(target)
	}
	return nil
}

// branchBinary handles if_icmpeq and friends.
func (e *executor) branchBinary(target insn.Ref, cond func(v1, v2 int32) bool) error {
	v2, err := e.m.PopInt()
	if err != nil {
		return err
	}
	v1, err := e.m.PopInt()
	if err != nil {
		return err
	}
	if cond(v1, v2) {
		return e.m.Jump(target)
	}
	return nil
}
