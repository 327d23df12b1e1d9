package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"

	"github.com/daimatz/minijvm/internal/logger"
	"github.com/daimatz/minijvm/pkg/config"
	"github.com/daimatz/minijvm/pkg/insn"
	"github.com/daimatz/minijvm/pkg/loader"
	"github.com/daimatz/minijvm/pkg/trace"
	"github.com/daimatz/minijvm/pkg/vm"
)

const historyFile = ".minijvm_history"

type options struct {
	Help        bool
	Verbose     bool
	NoColor     bool
	Interactive bool
	ConfigFile  string
	ClassPath   string
	Method      string
	Trace       bool
	TraceOut    string
	MaxSteps    int
	Replay      string
	Disasm      bool
}

func main() {
	opts := options{}

	flag.BoolVar(&opts.Help, "h", false, "Show help")
	flag.BoolVar(&opts.Verbose, "v", false, "Verbose mode")
	flag.BoolVar(&opts.NoColor, "no-color", false, "No color")
	flag.BoolVar(&opts.Interactive, "i", false, "Step through the program interactively")
	flag.StringVar(&opts.ConfigFile, "config", "", "Configuration file (default: nearest "+config.FileName+")")
	flag.StringVar(&opts.ClassPath, "cp", "", "Class path: directories and .jar/.jmod files")
	flag.StringVar(&opts.Method, "m", "", "Entry method name (default: main)")
	flag.BoolVar(&opts.Trace, "trace", false, "Print the machine state before every step")
	flag.StringVar(&opts.TraceOut, "trace-out", "", "Write a CBOR trace of the run to this file")
	flag.IntVar(&opts.MaxSteps, "max-steps", 0, "Stop after this many steps (0: no limit)")
	flag.StringVar(&opts.Replay, "replay", "", "Print a trace written by -trace-out and exit")
	flag.BoolVar(&opts.Disasm, "disasm", false, "Disassemble the entry method instead of running it")

	flag.Parse()
	args := flag.Args()

	l := logger.Init(opts.Verbose, opts.NoColor)
	if opts.Help {
		fmt.Printf("Usage: %s [options] <class name | file.class>\n", os.Args[0])
		fmt.Println("Options:")
		flag.PrintDefaults()
		fmt.Println("Supported instructions:")
		fmt.Println(supportedList(vm.Supported()))
		return
	}

	cfg, err := loadConfig(opts.ConfigFile)
	if err != nil {
		log.Fatal("Cannot load configuration", "error", err)
	}
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if err := applyFlags(cfg, opts, set); err != nil {
		log.Fatal("Invalid flags", "error", err)
	}

	r := &runner{cfg: cfg, out: os.Stdout, logger: l, noColor: cfg.Trace.NoColor}
	if opts.Replay != "" {
		if err := r.replay(opts.Replay); err != nil {
			log.Fatal("Cannot replay trace", "error", err)
		}
		return
	}

	target := cfg.Entry.Class
	if len(args) > 0 {
		target = args[0]
	}
	if target == "" {
		log.Fatal("No class provided", "help", fmt.Sprintf("%s -h", os.Args[0]))
	}

	if opts.Disasm {
		if err := r.disassemble(target); err != nil {
			log.Fatal("Cannot disassemble", "error", err)
		}
		return
	}
	if opts.Interactive {
		home, _ := os.UserHomeDir()
		r.interactive = func(d *debugger) error {
			return d.interact(filepath.Join(home, historyFile))
		}
	}
	if err := r.run(target); err != nil {
		log.Fatal("Execution failed", "error", err)
	}
}

// loadConfig reads path if given, otherwise the nearest minijvm.toml,
// otherwise the defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	cfg, err := config.FindAndLoad(".")
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg, nil
}

// applyFlags overrides cfg with the flags that were set on the command line.
// Paths given as flags are made absolute against the working directory, so
// they do not resolve against the directory of the configuration file.
func applyFlags(cfg *config.Config, opts options, set map[string]bool) error {
	if set["cp"] {
		entries := filepath.SplitList(opts.ClassPath)
		for i, e := range entries {
			abs, err := filepath.Abs(e)
			if err != nil {
				return fmt.Errorf("class path entry %s: %w", e, err)
			}
			entries[i] = abs
		}
		cfg.Run.ClassPath = entries
	}
	if set["m"] {
		cfg.Entry.Method = opts.Method
	}
	if set["max-steps"] {
		if opts.MaxSteps < 0 {
			return fmt.Errorf("-max-steps must not be negative, got %d", opts.MaxSteps)
		}
		cfg.Run.MaxSteps = opts.MaxSteps
	}
	if set["trace"] {
		cfg.Trace.Enabled = opts.Trace
	}
	if set["trace-out"] {
		cfg.Trace.Output = opts.TraceOut
		if opts.TraceOut != "" {
			abs, err := filepath.Abs(opts.TraceOut)
			if err != nil {
				return fmt.Errorf("trace output %s: %w", opts.TraceOut, err)
			}
			cfg.Trace.Output = abs
		}
	}
	if set["no-color"] {
		cfg.Trace.NoColor = opts.NoColor
	}
	return nil
}

func supportedList(ops []insn.Opcode) string {
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.String()
	}
	return strings.Join(names, " ")
}

type runner struct {
	cfg         *config.Config
	out         io.Writer
	logger      *log.Logger
	noColor     bool
	interactive func(*debugger) error
}

func (r *runner) profile() termenv.Profile {
	if r.noColor {
		return termenv.Ascii
	}
	return termenv.ANSI256
}

// load decodes the entry method of target, which is either a class name
// looked up on the class path or the path of a .class file.
func (r *runner) load(target string) (string, *insn.Method, error) {
	method := r.cfg.Entry.Method
	if strings.HasSuffix(target, ".class") {
		cf, m, err := loader.LoadFile(target, method)
		if err != nil {
			return "", nil, err
		}
		name, err := cf.ClassName()
		if err != nil {
			name = strings.TrimSuffix(filepath.Base(target), ".class")
		}
		return name, m, nil
	}

	cp := loader.NewClassPath(r.cfg.ClassPathList())
	m, err := loader.LoadEntry(cp, target, method)
	if err != nil {
		return "", nil, err
	}
	return loader.BinaryName(target), m, nil
}

// replay prints the trace stored at path.
func (r *runner) replay(path string) error {
	t, err := trace.ReadFile(path)
	if err != nil {
		return err
	}
	r.logger.Debug("replaying", "run", t.RunID, "steps", len(t.Steps))
	return trace.NewPrinter(r.out, r.profile()).PrintTrace(t)
}

// disassemble prints the entry method of target.
func (r *runner) disassemble(target string) error {
	_, method, err := r.load(target)
	if err != nil {
		return err
	}
	return method.Disassemble(r.out)
}

func (r *runner) run(target string) error {
	class, method, err := r.load(target)
	if err != nil {
		return err
	}
	r.logger.Debug("loaded", "class", class, "method", method.Name, "maxStack", method.MaxStack, "maxLocals", method.MaxLocals)

	machine := vm.NewMachine()
	if err := machine.Enter(method); err != nil {
		return err
	}

	vmOpts := []vm.Option{
		vm.WithLogger(r.logger),
		vm.WithMaxSteps(r.cfg.Run.MaxSteps),
	}
	if r.cfg.Trace.Enabled && r.interactive == nil {
		vmOpts = append(vmOpts, vm.WithObserver(trace.NewPrinter(r.out, r.profile()).Observe))
	}
	var rec *trace.Recorder
	if path := r.cfg.TraceOutputPath(); path != "" {
		rec = trace.NewRecorder()
		vmOpts = append(vmOpts, vm.WithObserver(rec.Observe))
	}
	it := vm.NewInterpreter(machine, vmOpts...)

	var runErr error
	if r.interactive != nil {
		runErr = r.interactive(newDebugger(it, method, r.out, r.profile()))
	} else {
		runErr = it.Run()
	}

	if rec != nil {
		path := r.cfg.TraceOutputPath()
		if err := trace.WriteFile(path, rec.Trace(class, method.Name, runErr)); err != nil {
			return err
		}
		r.logger.Info("trace written", "path", path, "steps", len(rec.Snapshots()))
	}
	if errors.Is(runErr, trace.ErrAborted) {
		r.logger.Info("run aborted", "class", class, "steps", it.Steps())
		return nil
	}
	if runErr != nil {
		return runErr
	}
	r.logger.Debug("finished", "class", class, "steps", it.Steps())
	return nil
}
