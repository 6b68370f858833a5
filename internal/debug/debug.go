// Package debug provides env-gated diagnostic logging.
package debug

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	mu      sync.Mutex
	enabled = os.Getenv("LOADTIME_DEBUG") == "1"
	out     io.Writer = os.Stderr
)

// Logf writes a debug message to stderr if LOADTIME_DEBUG=1
func Logf(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if !enabled {
		return
	}
	timestamp := time.Now().Format("15:04:05.000")
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(out, "[DEBUG %s] %s\n", timestamp, msg)
}

// Enabled returns true if debug logging is enabled
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// Redirect sends debug output to w and forces logging on or off. It returns
// a function restoring the previous state.
func Redirect(w io.Writer, on bool) func() {
	mu.Lock()
	defer mu.Unlock()
	prevOut, prevOn := out, enabled
	out, enabled = w, on
	return func() {
		mu.Lock()
		defer mu.Unlock()
		out, enabled = prevOut, prevOn
	}
}
