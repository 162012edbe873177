// Package presenter provides consistent CLI output for user-facing
// messages with color support and a quiet mode. Structured logging goes
// through pkg/logger; this package is only for human-facing command
// output.
package presenter

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

var (
	mu     sync.Mutex
	out    io.Writer = os.Stdout
	errOut io.Writer = os.Stderr
	quiet  bool

	successColor = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
)

// SetQuiet suppresses Success, Info, and Warning output. Errors are
// always shown.
func SetQuiet(q bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = q
}

// SetOutput redirects normal and error output, mainly for tests.
func SetOutput(stdout, stderr io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = stdout
	errOut = stderr
}

// Success prints a green success message.
func Success(message string) {
	mu.Lock()
	defer mu.Unlock()
	if quiet {
		return
	}
	successColor.Fprintf(out, "✓ %s\n", message)
}

// Info prints a plain informational message.
func Info(message string) {
	mu.Lock()
	defer mu.Unlock()
	if quiet {
		return
	}
	fmt.Fprintln(out, message)
}

// Warning prints a yellow warning message.
func Warning(message string) {
	mu.Lock()
	defer mu.Unlock()
	if quiet {
		return
	}
	warningColor.Fprintf(out, "⚠ %s\n", message)
}

// Error prints a red error with context to stderr. It is never
// suppressed by quiet mode.
func Error(err error, context string) {
	mu.Lock()
	defer mu.Unlock()
	if err != nil {
		errorColor.Fprintf(errOut, "✗ %s: %v\n", context, err)
		return
	}
	errorColor.Fprintf(errOut, "✗ %s\n", context)
}
