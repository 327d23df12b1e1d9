package vm

import (
	"fmt"
	"strings"

	"github.com/daimatz/minijvm/pkg/insn"
)

// noFrame is the previous-frame handle of the outermost frame.
const noFrame = -1

// Frame represents a stack frame for method execution. Both the operand
// stack and the local variables are sized at creation and never grow.
type Frame struct {
	operands      []Value
	sp            int
	locals        []Value
	prev          int
	returnAddress insn.Ref
}

// NewFrame creates a Frame. prev is the arena index of the calling frame
// (-1 for none) and returnAddress the instruction to resume at once this
// frame is popped; it may be the zero Ref.
func NewFrame(maxStack, maxLocals, prev int, returnAddress insn.Ref) (*Frame, error) {
	if maxStack < 0 || maxLocals < 0 {
		return nil, fmt.Errorf("%w: max_stack=%d, max_locals=%d", ErrInvalidFrameSize, maxStack, maxLocals)
	}
	return &Frame{
		operands:      make([]Value, maxStack),
		locals:        make([]Value, maxLocals),
		prev:          prev,
		returnAddress: returnAddress,
	}, nil
}

// Push pushes a value onto the operand stack. Only int and long values
// are accepted.
func (f *Frame) Push(v Value) error {
	if !v.IsValid() {
		return fmt.Errorf("%w: cannot push %s", ErrTypeMismatch, v.Kind)
	}
	if f.sp >= len(f.operands) {
		return fmt.Errorf("%w: SP=%d, max=%d", ErrStackOverflow, f.sp, len(f.operands))
	}
	f.operands[f.sp] = v
	f.sp++
	return nil
}

// Pop pops a value of the given kind from the operand stack. On a kind
// mismatch the value stays on the stack.
func (f *Frame) Pop(kind Kind) (Value, error) {
	if f.sp <= 0 {
		return Value{}, fmt.Errorf("%w: SP=0", ErrStackUnderflow)
	}
	v := f.operands[f.sp-1]
	if v.Kind != kind {
		return Value{}, fmt.Errorf("%w: popped %s, want %s", ErrTypeMismatch, v.Kind, kind)
	}
	f.sp--
	f.operands[f.sp] = Value{}
	return v, nil
}

// Peek returns the top operand without popping it. ok is false if the
// stack is empty.
func (f *Frame) Peek() (v Value, ok bool) {
	if f.sp == 0 {
		return Value{}, false
	}
	return f.operands[f.sp-1], true
}

// Store sets the local variable at index to an int or long value.
func (f *Frame) Store(index int, v Value) error {
	if index < 0 || index >= len(f.locals) {
		return fmt.Errorf("%w: index=%d, max=%d", ErrOutOfBounds, index, len(f.locals))
	}
	if !v.IsValid() {
		return fmt.Errorf("%w: cannot store %s in local %d", ErrTypeMismatch, v.Kind, index)
	}
	f.locals[index] = v
	return nil
}

// Load returns the local variable at index, which must hold a value of
// the given kind.
func (f *Frame) Load(index int, kind Kind) (Value, error) {
	if index < 0 || index >= len(f.locals) {
		return Value{}, fmt.Errorf("%w: index=%d, max=%d", ErrOutOfBounds, index, len(f.locals))
	}
	v := f.locals[index]
	if !v.IsValid() {
		return Value{}, fmt.Errorf("%w: index=%d", ErrUninitializedSlot, index)
	}
	if v.Kind != kind {
		return Value{}, fmt.Errorf("%w: local %d holds %s, want %s", ErrTypeMismatch, index, v.Kind, kind)
	}
	return v, nil
}

// Size returns the number of operands on the stack.
func (f *Frame) Size() int { return f.sp }

// MaxStack returns the operand stack capacity.
func (f *Frame) MaxStack() int { return len(f.operands) }

// MaxLocals returns the number of local variable slots.
func (f *Frame) MaxLocals() int { return len(f.locals) }

// Previous returns the arena index of the calling frame, or -1.
func (f *Frame) Previous() int { return f.prev }

// ReturnAddress returns the instruction to resume at after this frame.
func (f *Frame) ReturnAddress() insn.Ref { return f.returnAddress }

// OperandTypes returns one descriptor character per operand, bottom to top.
func (f *Frame) OperandTypes() string {
	var b strings.Builder
	for _, v := range f.operands[:f.sp] {
		b.WriteByte(v.Kind.Descriptor())
	}
	return b.String()
}

// Locals returns a copy of the local variable slots. Empty slots are zero
// Values.
func (f *Frame) Locals() []Value {
	return append([]Value(nil), f.locals...)
}
