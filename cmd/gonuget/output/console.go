package output

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// Verbosity levels
type Verbosity int

const (
	// VerbosityQuiet shows errors and results only
	VerbosityQuiet Verbosity = iota
	// VerbosityNormal adds warnings and status lines (default)
	VerbosityNormal
	// VerbosityDetailed adds per-step details
	VerbosityDetailed
)

// Console writes results to out and diagnostics to err, so structured
// output on out stays machine readable.
type Console struct {
	out       io.Writer
	err       io.Writer
	verbosity Verbosity
	mu        sync.Mutex
	colors    bool
}

// NewConsole creates a new console
func NewConsole(out, err io.Writer, verbosity Verbosity) *Console {
	c := &Console{
		out:       out,
		err:       err,
		verbosity: verbosity,
		colors:    IsColorEnabled(),
	}
	if !c.colors {
		DisableColors()
	}
	return c
}

// DefaultConsole creates a console with stdout/stderr and normal verbosity
func DefaultConsole() *Console {
	return NewConsole(os.Stdout, os.Stderr, VerbosityNormal)
}

// Out returns the result writer.
func (c *Console) Out() io.Writer { return c.out }

// SetVerbosity sets the verbosity level
func (c *Console) SetVerbosity(v Verbosity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verbosity = v
}

// SetColors enables or disables color output
func (c *Console) SetColors(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.colors = enabled
	if enabled {
		EnableColors()
	} else {
		DisableColors()
	}
}

// Println writes line to output
func (c *Console) Println(a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintln(c.out, a...)
}

// Printf writes formatted output
func (c *Console) Printf(format string, a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.out, format, a...)
}

// Success writes a green line to out.
func (c *Console) Success(format string, a ...any) {
	c.line(VerbosityNormal, c.out, ColorSuccess, "", format, a...)
}

// Error writes a red line to err regardless of verbosity.
func (c *Console) Error(format string, a ...any) {
	c.line(VerbosityQuiet, c.err, ColorError, "Error: ", format, a...)
}

// Warning writes a yellow line to err.
func (c *Console) Warning(format string, a ...any) {
	c.line(VerbosityNormal, c.err, ColorWarning, "Warning: ", format, a...)
}

// Info writes a cyan line to err.
func (c *Console) Info(format string, a ...any) {
	c.line(VerbosityNormal, c.err, ColorInfo, "", format, a...)
}

// Detail writes a plain line to err at detailed verbosity.
func (c *Console) Detail(format string, a ...any) {
	c.line(VerbosityDetailed, c.err, nil, "", format, a...)
}

func (c *Console) line(min Verbosity, w io.Writer, col *color.Color, prefix, format string, a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.verbosity < min {
		return
	}
	if c.colors && col != nil {
		_, _ = col.Fprintf(w, prefix+format+"\n", a...)
		return
	}
	_, _ = fmt.Fprintf(w, prefix+format+"\n", a...)
}
