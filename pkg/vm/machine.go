package vm

import (
	"fmt"

	"github.com/daimatz/minijvm/pkg/insn"
)

// Machine holds the runtime state of one interpretation: the call stack
// and the program counter. Frames live in an arena indexed by position;
// the current frame is frames[top] and each frame links to its caller by
// index. Machines share nothing, so independent machines may run on
// separate goroutines.
type Machine struct {
	frames []*Frame
	top    int
	pc     insn.Ref
}

// NewMachine returns a Machine with an empty call stack.
func NewMachine() *Machine {
	return &Machine{top: noFrame}
}

// Enter pushes the entry frame for method with no arguments and points the
// program counter at its first instruction.
func (m *Machine) Enter(method *insn.Method) error {
	if err := m.PushFrame(method.MaxStack, method.MaxLocals); err != nil {
		return fmt.Errorf("entering %s: %w", method.Name, err)
	}
	if err := m.Jump(method.First()); err != nil {
		return fmt.Errorf("entering %s: %w", method.Name, err)
	}
	return nil
}

// PushFrame pushes a new frame that returns to the current program counter
// and pushes args onto its operand stack in order. Nothing changes if the
// frame cannot be built.
func (m *Machine) PushFrame(maxStack, maxLocals int, args ...Value) error {
	f, err := NewFrame(maxStack, maxLocals, m.top, m.pc)
	if err != nil {
		return err
	}
	for _, arg := range args {
		if err := f.Push(arg); err != nil {
			return err
		}
	}
	m.frames = append(m.frames, f)
	m.top = len(m.frames) - 1
	return nil
}

// PopFrame discards the current frame and resumes at its return address,
// which is the zero Ref when the outermost frame returns.
func (m *Machine) PopFrame() error {
	if m.top == noFrame {
		return ErrEmptyCallStack
	}
	f := m.frames[m.top]
	m.frames[m.top] = nil
	m.frames = m.frames[:m.top]
	m.top = f.prev
	m.pc = f.returnAddress
	return nil
}

// Depth returns the number of frames on the call stack.
func (m *Machine) Depth() int { return len(m.frames) }

// ReadInstruction returns the instruction at the program counter and
// advances the counter past any structural markers. ok is false at the
// end of the program.
func (m *Machine) ReadInstruction() (n insn.Node, ok bool) {
	if !m.pc.Valid() {
		return nil, false
	}
	n = m.pc.Node()
	m.pc = m.pc.Next()
	return n, true
}

// Jump sets the program counter to target.
func (m *Machine) Jump(target insn.Ref) error {
	if !target.Valid() {
		return ErrInvalidTarget
	}
	m.pc = target
	return nil
}

// PC returns the program counter.
func (m *Machine) PC() insn.Ref { return m.pc }

func (m *Machine) current() (*Frame, error) {
	if m.top == noFrame {
		return nil, ErrNoActiveFrame
	}
	return m.frames[m.top], nil
}

// PushOperand pushes v onto the current operand stack.
func (m *Machine) PushOperand(v Value) error {
	f, err := m.current()
	if err != nil {
		return err
	}
	return f.Push(v)
}

// PopInt pops an int from the current operand stack.
func (m *Machine) PopInt() (int32, error) {
	f, err := m.current()
	if err != nil {
		return 0, err
	}
	v, err := f.Pop(KindInt)
	return v.Int, err
}

// PopLong pops a long from the current operand stack.
func (m *Machine) PopLong() (int64, error) {
	f, err := m.current()
	if err != nil {
		return 0, err
	}
	v, err := f.Pop(KindLong)
	return v.Long, err
}

// StoreLocal stores v in local variable index of the current frame.
func (m *Machine) StoreLocal(index int, v Value) error {
	f, err := m.current()
	if err != nil {
		return err
	}
	return f.Store(index, v)
}

// LoadInt loads the int in local variable index of the current frame.
func (m *Machine) LoadInt(index int) (int32, error) {
	f, err := m.current()
	if err != nil {
		return 0, err
	}
	v, err := f.Load(index, KindInt)
	return v.Int, err
}

// LoadLong loads the long in local variable index of the current frame.
func (m *Machine) LoadLong(index int) (int64, error) {
	f, err := m.current()
	if err != nil {
		return 0, err
	}
	v, err := f.Load(index, KindLong)
	return v.Long, err
}

// === Debugging ===
// None of the methods below change the machine.

// PeekInstruction returns the next instruction to execute. ok is false if
// there is none.
func (m *Machine) PeekInstruction() (n insn.Node, ok bool) {
	if !m.pc.Valid() {
		return nil, false
	}
	return m.pc.Node(), true
}

// PeekOperand returns the textual form of the top operand, or "" if the
// stack is empty or there is no frame.
func (m *Machine) PeekOperand() string {
	f, err := m.current()
	if err != nil {
		return ""
	}
	v, ok := f.Peek()
	if !ok {
		return ""
	}
	return v.String()
}

// OperandTypes returns the descriptor characters of the current operand
// stack, bottom to top.
func (m *Machine) OperandTypes() string {
	f, err := m.current()
	if err != nil {
		return ""
	}
	return f.OperandTypes()
}

// Locals returns a copy of the current frame's local variables, or nil if
// there is no frame.
func (m *Machine) Locals() []Value {
	f, err := m.current()
	if err != nil {
		return nil
	}
	return f.Locals()
}
