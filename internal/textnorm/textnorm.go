// Package textnorm turns raw document text into normalized lines.
//
// Normalization converts CRLF line endings to LF, rejects content that does
// not look like text, and splits on LF. It never fails on long lines: a line
// of any length is kept as one opaque Line.
package textnorm

import (
	"strings"
	"unicode/utf8"

	"github.com/steveyegge/docmerge/internal/types"
)

const (
	// SampleSize is how many leading bytes are inspected for non-text content.
	SampleSize = 8000

	// MaxNonTextRatio is the share of non-text bytes in the sample above
	// which a document is treated as binary.
	MaxNonTextRatio = 0.30

	// LongLineThreshold is the length above which a line is considered long.
	// Long lines are accepted as-is; the constant exists for diagnostics.
	LongLineThreshold = 10000
)

// Normalize converts text to a sequence of lines.
// The empty string yields no lines. A trailing newline yields a final empty
// line, so Join(Normalize(x)) == x for any LF-only text.
func Normalize(text string) ([]types.Line, error) {
	return NormalizeVersion(text, "")
}

// NormalizeVersion is Normalize with the version label recorded on errors.
func NormalizeVersion(text string, source types.VersionLabel) ([]types.Line, error) {
	if reason, ok := detectBinary(text); ok {
		return nil, &types.BinaryFileError{Source: source, Reason: reason}
	}

	text = NormalizeEOL(text)
	if text == "" {
		return []types.Line{}, nil
	}

	n := strings.Count(text, "\n") + 1
	lines := make([]types.Line, 0, n)
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, types.Line{Index: len(lines), Content: text[start:i]})
			start = i + 1
		}
	}
	lines = append(lines, types.Line{Index: len(lines), Content: text[start:]})
	return lines, nil
}

// NormalizeDocument normalizes text into a DocumentVersion.
func NormalizeDocument(text string, source types.VersionLabel) (types.DocumentVersion, error) {
	lines, err := NormalizeVersion(text, source)
	if err != nil {
		return types.DocumentVersion{}, err
	}
	return types.DocumentVersion{Lines: lines, Source: source}, nil
}

// NormalizeEOL converts CRLF line endings to LF. Lone CR bytes are kept.
func NormalizeEOL(text string) string {
	if !strings.Contains(text, "\r\n") {
		return text
	}
	return strings.ReplaceAll(text, "\r\n", "\n")
}

// IsEmpty reports whether text is a true empty document.
// A document holding a single empty line ("\n") is not empty.
func IsEmpty(text string) bool {
	return len(text) == 0
}

// Join is the inverse of Normalize.
func Join(lines []types.Line) string {
	return types.JoinLines(lines)
}

// Contents returns the content of each line.
func Contents(lines []types.Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Content
	}
	return out
}

// HasLongLines reports whether any line exceeds LongLineThreshold characters.
func HasLongLines(lines []types.Line) bool {
	for _, l := range lines {
		if len(l.Content) > LongLineThreshold {
			return true
		}
	}
	return false
}

// IsBinary reports whether text would be rejected by Normalize.
func IsBinary(text string) bool {
	_, ok := detectBinary(text)
	return ok
}

// detectBinary returns a reason and true when text looks binary.
// Any NUL byte anywhere is decisive; otherwise only the leading sample is scanned.
func detectBinary(text string) (string, bool) {
	if strings.IndexByte(text, 0) >= 0 {
		return "contains NUL byte", true
	}

	sample := text
	if len(sample) > SampleSize {
		// Cut on a rune boundary so a split rune is not counted as invalid.
		cut := SampleSize
		for i := 0; i < utf8.UTFMax-1 && cut > 0 && !utf8.RuneStart(text[cut]); i++ {
			cut--
		}
		sample = text[:cut]
	}
	if sample == "" {
		return "", false
	}

	// Both counts are in bytes. Valid multi-byte runes add all their bytes
	// to the text side.
	nonText := 0
	for i := 0; i < len(sample); {
		r, size := utf8.DecodeRuneInString(sample[i:])
		switch {
		case r == utf8.RuneError && size <= 1,
			r < 0x20 && !isTextControl(r),
			r == 0x7f:
			nonText += size
		}
		i += size
	}

	if float64(nonText)/float64(len(sample)) > MaxNonTextRatio {
		return "too many non-text bytes", true
	}
	return "", false
}

func isTextControl(r rune) bool {
	switch r {
	case '\t', '\n', '\r', '\f', '\b', 0x1b:
		return true
	}
	return false
}
