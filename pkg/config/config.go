// Package config handles minijvm.toml run configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the configuration file.
const FileName = "minijvm.toml"

// DefaultMethod is the entry method used when none is configured.
const DefaultMethod = "main"

// Config represents a minijvm.toml configuration.
type Config struct {
	Entry Entry `toml:"entry"`
	Run   Run   `toml:"run"`
	Trace Trace `toml:"trace"`

	// Dir is the directory containing the configuration file (set at load
	// time). It is empty for a default configuration.
	Dir string `toml:"-"`
}

// Entry selects the method to interpret.
type Entry struct {
	Class  string `toml:"class"`
	Method string `toml:"method"`
}

// Run configures execution.
type Run struct {
	ClassPath []string `toml:"classpath"`
	MaxSteps  int      `toml:"max-steps"`
}

// Trace configures step tracing.
type Trace struct {
	Enabled bool   `toml:"enabled"`
	Output  string `toml:"output"`
	NoColor bool   `toml:"no-color"`
}

// Default returns the configuration used when there is no file.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Entry.Method == "" {
		c.Entry.Method = DefaultMethod
	}
	if len(c.Run.ClassPath) == 0 {
		c.Run.ClassPath = []string{"."}
	}
}

// Load parses the minijvm.toml file in dir.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile parses the configuration file at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	if c.Run.MaxSteps < 0 {
		return nil, fmt.Errorf("%s: run.max-steps must not be negative, got %d", path, c.Run.MaxSteps)
	}

	c.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	c.applyDefaults()
	return &c, nil
}

// FindAndLoad walks up from startDir to find a minijvm.toml file, then
// loads and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// ClassPathList returns the class path entries joined with
// os.PathListSeparator. Relative entries are resolved against Dir.
func (c *Config) ClassPathList() string {
	paths := make([]string, len(c.Run.ClassPath))
	for i, p := range c.Run.ClassPath {
		if c.Dir != "" && !filepath.IsAbs(p) {
			p = filepath.Join(c.Dir, p)
		}
		paths[i] = p
	}
	return strings.Join(paths, string(os.PathListSeparator))
}

// TraceOutputPath returns the trace output path resolved against Dir, or ""
// if no output is configured.
func (c *Config) TraceOutputPath() string {
	if c.Trace.Output == "" || c.Dir == "" || filepath.IsAbs(c.Trace.Output) {
		return c.Trace.Output
	}
	return filepath.Join(c.Dir, c.Trace.Output)
}
