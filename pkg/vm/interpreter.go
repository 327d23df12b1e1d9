package vm

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/daimatz/minijvm/pkg/insn"
)

// Observer is called before each instruction is executed, with the number
// of instructions executed so far. Observers must not modify the machine.
type Observer func(step int, m *Machine)

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLogger sets the logger step events are written to at debug level.
func WithLogger(l *log.Logger) Option {
	return func(it *Interpreter) { it.logger = l }
}

// WithMaxSteps makes Run fail with ErrStepLimit after n instructions.
// Zero means no limit.
func WithMaxSteps(n int) Option {
	return func(it *Interpreter) { it.maxSteps = n }
}

// WithObserver adds an observer.
func WithObserver(o Observer) Option {
	return func(it *Interpreter) { it.observers = append(it.observers, o) }
}

// Interpreter executes a Machine one instruction at a time.
type Interpreter struct {
	machine   *Machine
	actions   Actions
	logger    *log.Logger
	observers []Observer
	maxSteps  int
	steps     int
}

// NewInterpreter returns an Interpreter driving m.
func NewInterpreter(m *Machine, opts ...Option) *Interpreter {
	it := &Interpreter{
		machine: m,
		actions: NewActions(m),
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(it)
	}
	return it
}

// Machine returns the machine being driven.
func (it *Interpreter) Machine() *Machine { return it.machine }

// Steps returns the number of instructions executed successfully.
func (it *Interpreter) Steps() int { return it.steps }

// HasNext reports whether there is an instruction left to execute.
func (it *Interpreter) HasNext() bool {
	_, ok := it.machine.PeekInstruction()
	return ok
}

// Next executes one instruction. It returns ErrHalted when there is
// nothing left and an *ExecError when the instruction fails. An
// unsupported opcode is rejected before the program counter moves.
func (it *Interpreter) Next() error {
	at := it.machine.PC()
	node, ok := it.machine.PeekInstruction()
	if !ok {
		return ErrHalted
	}

	for _, o := range it.observers {
		o(it.steps, it.machine)
	}
	it.logger.Debug("step",
		"pos", at.Index(),
		"insn", insn.Format(node),
		"types", it.machine.OperandTypes(),
		"top", it.machine.PeekOperand(),
		"depth", it.machine.Depth())

	d, err := Lookup(node.Opcode())
	if err != nil {
		return &ExecError{Pos: at.Index(), Op: node.Opcode(), Err: err}
	}

	it.machine.ReadInstruction()
	if err := d.Execute(it.actions, at); err != nil {
		return &ExecError{Pos: at.Index(), Op: node.Opcode(), Err: err}
	}
	it.steps++
	return nil
}

// Run executes instructions until the program ends or one fails.
func (it *Interpreter) Run() error {
	for it.HasNext() {
		if it.maxSteps > 0 && it.steps >= it.maxSteps {
			return ErrStepLimit
		}
		if err := it.Next(); err != nil {
			it.logger.Error("execution failed", "error", err)
			return err
		}
	}
	it.logger.Debug("execution finished", "steps", it.steps)
	return nil
}
