// Package render formats documents, diffs and conflicts for terminals.
//
// Every function is read-only over its inputs and returns a string; nothing
// here writes to stdout. Colour is opt-in and comes from internal/ui styles.
package render

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/steveyegge/docmerge/internal/textnorm"
	"github.com/steveyegge/docmerge/internal/types"
	"github.com/steveyegge/docmerge/internal/ui"
)

// Defaults for zero-valued options.
const (
	DefaultColumnWidth  = 60
	DefaultContextLines = 3
	// ContextSeparator is printed between disjoint context windows.
	ContextSeparator = "--"
)

type settings struct {
	color bool
}

// Option configures HighlightConflicts and RenderContext.
type Option func(*settings)

// WithColor styles annotations and target lines.
func WithColor(enabled bool) Option {
	return func(s *settings) { s.color = enabled }
}

func apply(opts []Option) settings {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// splitLines splits normalized text into lines. "" has no lines.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(textnorm.NormalizeEOL(text), "\n")
}

// HighlightConflicts wraps each conflict's span in annotation lines.
// Spans are the conflicts' StartLine..EndLine positions in text; spans past
// the end of text are annotated after the last line. Lines of text are
// emitted unchanged, and an empty conflict list returns text as is.
func HighlightConflicts(text string, conflicts []types.Conflict, opts ...Option) string {
	if len(conflicts) == 0 {
		return text
	}
	s := apply(opts)

	var lines []string
	if text != "" {
		lines = strings.Split(text, "\n")
	}

	opening := make(map[int][]types.Conflict)
	closing := make(map[int][]types.Conflict)
	var tail []types.Conflict
	for _, c := range conflicts {
		if c.StartLine >= len(lines) {
			tail = append(tail, c)
			continue
		}
		end := min(max(c.EndLine, c.StartLine), len(lines)-1)
		opening[c.StartLine] = append(opening[c.StartLine], c)
		closing[end] = append(closing[end], c)
	}

	out := make([]string, 0, len(lines)+2*len(conflicts))
	for i, l := range lines {
		for _, c := range opening[i] {
			out = append(out, s.annotate(openAnnotation(c)))
		}
		out = append(out, l)
		// Close innermost (latest opened) first.
		cs := closing[i]
		for j := len(cs) - 1; j >= 0; j-- {
			out = append(out, s.annotate(closeAnnotation(cs[j])))
		}
	}
	for _, c := range tail {
		out = append(out, s.annotate(openAnnotation(c)), s.annotate(closeAnnotation(c)))
	}
	return strings.Join(out, "\n")
}

func openAnnotation(c types.Conflict) string {
	section := c.Section
	if section == "" {
		section = types.SectionBody
	}
	return fmt.Sprintf(">>>> conflict %s [%s] lines %d-%d (local %d, remote %d)",
		c.ID, section, c.StartLine+1, c.EndLine+1, len(c.Local), len(c.Remote))
}

func closeAnnotation(c types.Conflict) string {
	return "<<<< end " + c.ID
}

func (s settings) annotate(line string) string {
	if s.color {
		return ui.RenderConflict(line)
	}
	return line
}

// RenderContext prints contextLines lines around each zero-based line
// number. Overlapping or adjacent windows are merged; disjoint windows are
// separated by "--". Target lines are flagged with ">".
func RenderContext(text string, lineNumbers []int, contextLines int, opts ...Option) string {
	lines := splitLines(text)
	if len(lines) == 0 || len(lineNumbers) == 0 {
		return ""
	}
	if contextLines < 0 {
		contextLines = 0
	}
	s := apply(opts)

	targets := make(map[int]bool, len(lineNumbers))
	sorted := make([]int, 0, len(lineNumbers))
	for _, n := range lineNumbers {
		if n < 0 || n >= len(lines) || targets[n] {
			continue
		}
		targets[n] = true
		sorted = append(sorted, n)
	}
	if len(sorted) == 0 {
		return ""
	}
	sort.Ints(sorted)

	type window struct{ start, end int }
	var windows []window
	for _, n := range sorted {
		w := window{max(0, n-contextLines), min(len(lines)-1, n+contextLines)}
		if k := len(windows) - 1; k >= 0 && w.start <= windows[k].end+1 {
			windows[k].end = max(windows[k].end, w.end)
			continue
		}
		windows = append(windows, w)
	}

	width := len(strconv.Itoa(windows[len(windows)-1].end + 1))
	var out []string
	for i, w := range windows {
		if i > 0 {
			out = append(out, s.muted(ContextSeparator))
		}
		for n := w.start; n <= w.end; n++ {
			mark := "  "
			if targets[n] {
				mark = "> "
			}
			row := fmt.Sprintf("%s%*d | %s", mark, width, n+1, lines[n])
			if targets[n] && s.color {
				row = ui.RenderChanged(row)
			}
			out = append(out, row)
		}
	}
	return strings.Join(out, "\n")
}

func (s settings) muted(text string) string {
	if s.color {
		return ui.RenderMuted(text)
	}
	return text
}

// GetStats compares two texts position by position: a line only on the
// right is an addition, only on the left a deletion, and a differing line
// at the same position a modification.
func GetStats(left, right string) types.DiffStats {
	l, r := splitLines(left), splitLines(right)
	var st types.DiffStats
	for i := 0; i < max(len(l), len(r)); i++ {
		switch {
		case i >= len(l):
			st.Additions++
		case i >= len(r):
			st.Deletions++
		case l[i] != r[i]:
			st.Modifications++
		}
	}
	return st
}

// FormatStats renders stats as "+a -d ~m".
func FormatStats(st types.DiffStats, color bool) string {
	add := fmt.Sprintf("+%d", st.Additions)
	del := fmt.Sprintf("-%d", st.Deletions)
	mod := fmt.Sprintf("~%d", st.Modifications)
	if color {
		add, del, mod = ui.RenderAdded(add), ui.RenderRemoved(del), ui.RenderChanged(mod)
	}
	return add + " " + del + " " + mod
}
