package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/muesli/termenv"
	"github.com/peterh/liner"

	"github.com/daimatz/minijvm/pkg/insn"
	"github.com/daimatz/minijvm/pkg/trace"
	"github.com/daimatz/minijvm/pkg/vm"
)

const prompt = "(minijvm) "

var commands = []string{"step", "until", "continue", "state", "list", "help", "quit"}

const usage = `step [n]   execute n instructions (default 1)
until i    run until the instruction at list index i is next
continue   run until the program ends
state      show the current frame
list       disassemble the method
help       show this message
quit       leave the debugger
An empty line repeats the last command.`

// debugger single-steps an interpreter under user control.
type debugger struct {
	it      *vm.Interpreter
	method  *insn.Method
	out     io.Writer
	printer *trace.Printer
	last    string
	err     error
}

func newDebugger(it *vm.Interpreter, method *insn.Method, out io.Writer, profile termenv.Profile) *debugger {
	return &debugger{
		it:      it,
		method:  method,
		out:     out,
		printer: trace.NewPrinter(out, profile),
	}
}

// interact reads commands with liner until quit, end of input or Ctrl-C.
// It returns the result of the session; see result.
func (d *debugger) interact(histPath string) error {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(complete)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	d.showNext()
	for {
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(d.out)
			break
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) != "" {
			ln.AppendHistory(line)
		}
		if d.exec(line) {
			break
		}
	}
	return d.result()
}

// result returns the error the program stopped with, trace.ErrAborted if
// the session ended while instructions remained, or nil.
func (d *debugger) result() error {
	if d.err == nil && d.it.HasNext() {
		return fmt.Errorf("%w at step %d", trace.ErrAborted, d.it.Steps())
	}
	return d.err
}

func complete(line string) []string {
	var out []string
	for _, c := range commands {
		if strings.HasPrefix(c, strings.TrimSpace(line)) {
			out = append(out, c)
		}
	}
	return out
}

// exec runs one command line and reports whether the debugger should exit.
func (d *debugger) exec(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		line = d.last
	}
	if line == "" {
		return false
	}
	d.last = line

	fields := strings.Fields(line)
	switch fields[0] {
	case "s", "step":
		n := 1
		if len(fields) > 1 {
			v, err := strconv.Atoi(fields[1])
			if err != nil || v < 1 {
				fmt.Fprintf(d.out, "invalid step count %q\n", fields[1])
				return false
			}
			n = v
		}
		d.step(n)
	case "u", "until":
		if len(fields) != 2 {
			fmt.Fprintln(d.out, "usage: until <index>")
			return false
		}
		i, err := strconv.Atoi(fields[1])
		target := d.method.At(i)
		if err != nil || !target.Valid() {
			fmt.Fprintf(d.out, "invalid instruction index %q\n", fields[1])
			return false
		}
		d.until(target)
	case "c", "continue":
		if d.stopped() {
			return false
		}
		d.err = d.it.Run()
		d.report()
	case "p", "state":
		d.state()
	case "l", "list":
		d.list()
	case "h", "help":
		fmt.Fprintln(d.out, usage)
	case "q", "quit":
		return true
	default:
		fmt.Fprintf(d.out, "unknown command %q, type help for a list\n", fields[0])
	}
	return false
}

// stopped reports whether nothing more can run, printing why.
func (d *debugger) stopped() bool {
	if d.err != nil {
		fmt.Fprintf(d.out, "program stopped: %v\n", d.err)
		return true
	}
	if !d.it.HasNext() {
		fmt.Fprintf(d.out, "program finished after %d steps\n", d.it.Steps())
		return true
	}
	return false
}

func (d *debugger) step(n int) {
	for i := 0; i < n; i++ {
		if d.stopped() {
			return
		}
		if err := d.it.Next(); err != nil {
			d.err = err
			d.report()
			return
		}
	}
	d.showNext()
}

// until steps at least once and stops when target is the next
// instruction.
func (d *debugger) until(target insn.Ref) {
	for {
		if d.stopped() {
			return
		}
		if err := d.it.Next(); err != nil {
			d.err = err
			d.report()
			return
		}
		if d.it.Machine().PC() == target {
			break
		}
	}
	d.showNext()
}

func (d *debugger) report() {
	if d.err != nil {
		fmt.Fprintf(d.out, "error: %v\n", d.err)
		return
	}
	fmt.Fprintf(d.out, "program finished after %d steps\n", d.it.Steps())
}

// showNext prints the state before the next instruction.
func (d *debugger) showNext() {
	m := d.it.Machine()
	if _, ok := m.PeekInstruction(); !ok {
		fmt.Fprintf(d.out, "program finished after %d steps\n", d.it.Steps())
		return
	}
	d.printer.Print(trace.Capture(d.it.Steps(), m))
}

func (d *debugger) state() {
	m := d.it.Machine()
	fmt.Fprintf(d.out, "pc:     %s\n", m.PC())
	fmt.Fprintf(d.out, "steps:  %d\n", d.it.Steps())
	fmt.Fprintf(d.out, "depth:  %d\n", m.Depth())
	fmt.Fprintf(d.out, "stack:  %s\n", m.OperandTypes())
	fmt.Fprintf(d.out, "top:    %s\n", m.PeekOperand())
	locals := m.Locals()
	parts := make([]string, len(locals))
	for i, v := range locals {
		if v.IsValid() {
			parts[i] = fmt.Sprintf("%d=%s", i, v)
		} else {
			parts[i] = fmt.Sprintf("%d=-", i)
		}
	}
	fmt.Fprintf(d.out, "locals: [%s]\n", strings.Join(parts, " "))
}

func (d *debugger) list() {
	pc := d.it.Machine().PC().Index()
	for i, n := range d.method.Code {
		mark := "  "
		if i == pc {
			mark = "=>"
		}
		fmt.Fprintf(d.out, "%s %4d  %s\n", mark, i, insn.Format(n))
	}
}
