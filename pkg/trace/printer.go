package trace

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"

	"github.com/daimatz/minijvm/pkg/vm"
)

// Printer writes one line per step: operand types, top of stack and the
// instruction about to run.
type Printer struct {
	w       io.Writer
	profile termenv.Profile
	err     error
}

// NewPrinter returns a Printer writing to w with the given colour profile.
// Use termenv.Ascii for plain text.
func NewPrinter(w io.Writer, profile termenv.Profile) *Printer {
	return &Printer{w: w, profile: profile}
}

// Observe is a vm.Observer.
func (p *Printer) Observe(step int, m *vm.Machine) {
	p.Print(Capture(step, m))
}

// Print writes s. After a write error Print does nothing; see Err.
func (p *Printer) Print(s Snapshot) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintln(p.w,
		p.style(fmt.Sprintf("%15s ", s.OperandTypes), "6")+
			p.style(fmt.Sprintf("%20s    ", s.Top), "3")+
			p.style(s.Insn, "2"))
}

// PrintTrace writes every step of t followed by a summary line.
func (p *Printer) PrintTrace(t *Trace) error {
	for _, s := range t.Steps {
		p.Print(s)
	}
	if p.err != nil {
		return p.err
	}
	summary := fmt.Sprintf("%s.%s: %s after %d steps", t.Class, t.Method, t.Outcome, len(t.Steps))
	if t.Error != "" {
		summary += ": " + t.Error
	}
	_, err := fmt.Fprintln(p.w, summary)
	return err
}

// Err returns the first write error.
func (p *Printer) Err() error { return p.err }

func (p *Printer) style(s, color string) string {
	if p.profile == termenv.Ascii {
		return s
	}
	return p.profile.String(s).Foreground(p.profile.Color(color)).String()
}
