package trace

import (
	"github.com/google/uuid"

	"github.com/daimatz/minijvm/pkg/insn"
	"github.com/daimatz/minijvm/pkg/vm"
)

// Capture reads the state of m before its next instruction runs.
func Capture(step int, m *vm.Machine) Snapshot {
	s := Snapshot{
		Step:         step,
		Pos:          m.PC().Index(),
		OperandTypes: m.OperandTypes(),
		Top:          m.PeekOperand(),
		Depth:        m.Depth(),
	}
	if n, ok := m.PeekInstruction(); ok {
		s.Insn = insn.Format(n)
	}
	return s
}

// Recorder collects snapshots from an interpreter. Attach it with
// vm.WithObserver(r.Observe).
type Recorder struct {
	steps []Snapshot
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Observe is a vm.Observer.
func (r *Recorder) Observe(step int, m *vm.Machine) {
	r.steps = append(r.steps, Capture(step, m))
}

// Snapshots returns the snapshots recorded so far.
func (r *Recorder) Snapshots() []Snapshot {
	return r.steps
}

// Trace builds a Trace of the recorded run. runErr is the error returned
// by the run, if any.
func (r *Recorder) Trace(class, method string, runErr error) *Trace {
	t := &Trace{
		RunID:   uuid.New(),
		Class:   class,
		Method:  method,
		Steps:   r.steps,
		Outcome: OutcomeOf(runErr),
	}
	if runErr != nil {
		t.Error = runErr.Error()
	}
	return t
}
