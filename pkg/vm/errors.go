package vm

import (
	"errors"
	"fmt"

	"github.com/daimatz/minijvm/pkg/insn"
)

// Failure kinds. Every error returned by this package wraps exactly one of
// them, so callers can tell kinds apart with errors.Is.
var (
	ErrStackOverflow        = errors.New("operand stack overflow")
	ErrStackUnderflow       = errors.New("operand stack underflow")
	ErrTypeMismatch         = errors.New("type mismatch")
	ErrOutOfBounds          = errors.New("local variable index out of range")
	ErrUninitializedSlot    = errors.New("uninitialized local variable")
	ErrInvalidFrameSize     = errors.New("invalid frame size")
	ErrEmptyCallStack       = errors.New("empty call stack")
	ErrInvalidTarget        = errors.New("invalid jump target")
	ErrNoActiveFrame        = errors.New("no active frame")
	ErrUnsupportedOpcode    = errors.New("unsupported opcode")
	ErrMalformedInstruction = errors.New("malformed instruction")

	// ErrHalted is returned by Next when there is no instruction left.
	ErrHalted = errors.New("execution finished")
	// ErrStepLimit is returned by Run when the step budget is used up.
	ErrStepLimit = errors.New("step limit exceeded")
)

// ExecError reports the instruction whose execution failed.
type ExecError struct {
	Pos int
	Op  insn.Opcode
	Err error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s at %d: %v", e.Op, e.Pos, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }
