package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// outputJSON writes v as pretty-printed JSON.
func outputJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// outputJSONError writes an error as JSON to stderr.
func outputJSONError(err error) {
	encoder := json.NewEncoder(os.Stderr)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(map[string]string{"error": err.Error()}) // Best effort: exit status still reports the failure
}

// warnError writes a warning to stderr for failures that should not stop the command.
func warnError(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "Warning: "+format+"\n", args...)
}
