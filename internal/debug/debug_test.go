package debug

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	oldOut, oldErr := stdout, stderr
	stdout, stderr = &out, &errOut
	t.Cleanup(func() { stdout, stderr = oldOut, oldErr })
	return &out, &errOut
}

func TestLogf(t *testing.T) {
	tests := []struct {
		name       string
		enabled    bool
		verbose    bool
		wantOutput string
	}{
		{"outputs when enabled", true, false, "test message: hello\n"},
		{"outputs when verbose", false, true, "test message: hello\n"},
		{"no output when disabled", false, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldEnabled, oldVerbose := enabled, verboseMode
			defer func() { enabled, verboseMode = oldEnabled, oldVerbose }()
			enabled, verboseMode = tt.enabled, tt.verbose

			_, errOut := capture(t)
			Logf("test message: %s", "hello")

			if got := errOut.String(); got != tt.wantOutput {
				t.Errorf("Logf() output = %q, want %q", got, tt.wantOutput)
			}
		})
	}
}

func TestPrintNormalRespectsQuiet(t *testing.T) {
	defer SetQuiet(false)

	out, _ := capture(t)
	PrintNormal("a %d\n", 1)
	SetQuiet(true)
	PrintNormal("b %d\n", 2)
	PrintlnNormal("c")

	if got := out.String(); got != "a 1\n" {
		t.Errorf("output = %q, want %q", got, "a 1\n")
	}
	if !IsQuiet() {
		t.Error("IsQuiet() = false after SetQuiet(true)")
	}
}

func TestWarnfShownInQuietMode(t *testing.T) {
	defer SetQuiet(false)
	SetQuiet(true)

	_, errOut := capture(t)
	Warnf("bad value %q", "x")

	if got := errOut.String(); got != "Warning: bad value \"x\"\n" {
		t.Errorf("Warnf() output = %q", got)
	}
}

func TestLogEvent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".docmerge")
	t.Setenv("DM_ACTOR", "tester")

	LogEvent(dir, "RESOLVE", "c-abc", "strategy=local")
	LogEvent(dir, "UNDO", "", "")

	data, err := os.ReadFile(filepath.Join(dir, "events.log"))
	if err != nil {
		t.Fatalf("read events.log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), data)
	}
	if !strings.HasSuffix(lines[0], "|RESOLVE|c-abc|tester|strategy=local") {
		t.Errorf("unexpected first event: %q", lines[0])
	}
	if !strings.Contains(lines[1], "|UNDO|none|tester|") {
		t.Errorf("unexpected second event: %q", lines[1])
	}
}

func TestLogEventNoDir(t *testing.T) {
	// Must not panic or create anything.
	LogEvent("", "X", "y", "z")
}
