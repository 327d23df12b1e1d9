// Package trace records and replays the per-step state of an interpreter
// run. Traces are stored as canonical CBOR so that two identical runs
// produce identical files apart from their run IDs.
package trace

import (
	"errors"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/daimatz/minijvm/pkg/vm"
)

// Outcome describes how a run ended.
type Outcome uint8

const (
	OutcomeCompleted Outcome = 1
	OutcomeFailed    Outcome = 2
	OutcomeStepLimit Outcome = 3
	OutcomeAborted   Outcome = 4
)

// ErrAborted marks a run that was stopped by its user while instructions
// remained.
var ErrAborted = errors.New("run aborted")

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeFailed:
		return "failed"
	case OutcomeStepLimit:
		return "step limit"
	case OutcomeAborted:
		return "aborted"
	default:
		return fmt.Sprintf("Outcome(%d)", uint8(o))
	}
}

// OutcomeOf classifies the error returned by vm.Interpreter.Run.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeCompleted
	case errors.Is(err, vm.ErrStepLimit):
		return OutcomeStepLimit
	case errors.Is(err, ErrAborted):
		return OutcomeAborted
	default:
		return OutcomeFailed
	}
}

// Snapshot is the machine state observed before one instruction runs.
type Snapshot struct {
	Step         int    `cbor:"1,keyasint"`
	Pos          int    `cbor:"2,keyasint"`
	Insn         string `cbor:"3,keyasint"`
	OperandTypes string `cbor:"4,keyasint,omitempty"`
	Top          string `cbor:"5,keyasint,omitempty"`
	Depth        int    `cbor:"6,keyasint"`
}

// Trace is a complete recorded run.
type Trace struct {
	RunID   uuid.UUID  `cbor:"1,keyasint"`
	Class   string     `cbor:"2,keyasint"`
	Method  string     `cbor:"3,keyasint"`
	Steps   []Snapshot `cbor:"4,keyasint"`
	Outcome Outcome    `cbor:"5,keyasint"`
	Error   string     `cbor:"6,keyasint,omitempty"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("trace: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes a Trace to CBOR bytes.
func Marshal(t *Trace) ([]byte, error) {
	return cborEncMode.Marshal(t)
}

// Unmarshal deserializes a Trace from CBOR bytes.
func Unmarshal(data []byte) (*Trace, error) {
	var t Trace
	if err := cbor.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("trace: unmarshal: %w", err)
	}
	return &t, nil
}

// WriteFile writes t to path.
func WriteFile(path string, t *Trace) error {
	data, err := Marshal(t)
	if err != nil {
		return fmt.Errorf("trace: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("trace: writing %s: %w", path, err)
	}
	return nil
}

// ReadFile reads a trace written by WriteFile.
func ReadFile(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("trace: reading %s: %w", path, err)
	}
	return Unmarshal(data)
}
