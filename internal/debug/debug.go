// Package debug provides verbose and quiet output helpers for dm.
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var (
	enabled     = os.Getenv("DM_DEBUG") != ""
	verboseMode = false
	quietMode   = false
	logMutex    sync.Mutex

	// stderr and stdout are swapped out by tests.
	stderr io.Writer = os.Stderr
	stdout io.Writer = os.Stdout
)

func Enabled() bool {
	return enabled || verboseMode
}

// SetVerbose enables verbose/debug output
func SetVerbose(verbose bool) {
	verboseMode = verbose
}

// SetQuiet enables quiet mode (suppress non-essential output)
func SetQuiet(quiet bool) {
	quietMode = quiet
}

// IsQuiet returns true if quiet mode is enabled
func IsQuiet() bool {
	return quietMode
}

// Logf writes to stderr when debug output is enabled. A trailing newline is
// added if the format does not end in one.
func Logf(format string, args ...interface{}) {
	if !Enabled() {
		return
	}
	if !strings.HasSuffix(format, "\n") {
		format += "\n"
	}
	logMutex.Lock()
	defer logMutex.Unlock()
	fmt.Fprintf(stderr, format, args...)
}

// PrintNormal prints output unless quiet mode is enabled
func PrintNormal(format string, args ...interface{}) {
	if !quietMode {
		fmt.Fprintf(stdout, format, args...)
	}
}

// PrintlnNormal prints a line unless quiet mode is enabled
func PrintlnNormal(args ...interface{}) {
	if !quietMode {
		fmt.Fprintln(stdout, args...)
	}
}

// Warnf prints a warning to stderr. Warnings are shown even in quiet mode.
func Warnf(format string, args ...interface{}) {
	logMutex.Lock()
	defer logMutex.Unlock()
	fmt.Fprintf(stderr, "Warning: "+format, args...)
	if !strings.HasSuffix(format, "\n") {
		fmt.Fprintln(stderr)
	}
}

// LogEvent appends an event to <dir>/events.log.
// Format: TIMESTAMP|EVENT_CODE|SUBJECT|ACTOR|DETAILS
// Failures are silent; event logging must never interrupt a merge.
func LogEvent(dir, eventCode, subject, details string) {
	if dir == "" {
		return
	}
	if subject == "" {
		subject = "none"
	}
	actor := os.Getenv("DM_ACTOR")
	if actor == "" {
		actor = os.Getenv("USER")
		if actor == "" {
			actor = "unknown"
		}
	}

	timestamp := time.Now().UTC().Format(time.RFC3339)
	entry := fmt.Sprintf("%s|%s|%s|%s|%s\n", timestamp, eventCode, subject, actor, details)

	logMutex.Lock()
	defer logMutex.Unlock()

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return
	}
	file, err := os.OpenFile(filepath.Join(dir, "events.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) // #nosec G304 -- dir comes from config
	if err != nil {
		return
	}
	defer file.Close()

	_, _ = file.WriteString(entry)
}
