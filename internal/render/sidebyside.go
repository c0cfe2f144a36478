package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/steveyegge/docmerge/internal/ui"
)

// Gutter marks between the two columns.
const (
	MarkSame      = ' '
	MarkChanged   = '|'
	MarkLeftOnly  = '<'
	MarkRightOnly = '>'
)

// tabWidth is how many spaces a tab expands to in a column.
const tabWidth = 4

// SideBySideOptions configures SideBySide.
type SideBySideOptions struct {
	// ColumnWidth is the display width of each text column. Zero uses DefaultColumnWidth.
	ColumnWidth     int
	ShowLineNumbers bool
	// Wrap continues long lines on extra rows instead of truncating them.
	Wrap  bool
	Color bool
}

// SideBySide renders left and right in two columns, one row per position.
// The shorter side is padded with blank cells so both columns always have
// the same number of rows.
func SideBySide(left, right string, opts SideBySideOptions) string {
	width := opts.ColumnWidth
	if width <= 0 {
		width = DefaultColumnWidth
	}
	l, r := splitLines(left), splitLines(right)
	rows := max(len(l), len(r))
	if rows == 0 {
		return ""
	}
	numWidth := len(strconv.Itoa(rows))

	var out []string
	for i := 0; i < rows; i++ {
		lt, lok := cellText(l, i)
		rt, rok := cellText(r, i)
		mark := gutterMark(lt, lok, rt, rok)

		lparts := fitCell(lt, width, opts.Wrap)
		rparts := fitCell(rt, width, opts.Wrap)
		for j := 0; j < max(len(lparts), len(rparts)); j++ {
			lcell := runewidth.FillRight(partAt(lparts, j), width)
			rcell := partAt(rparts, j)
			if opts.ShowLineNumbers {
				lcell = lineNumber(i, j, lok, numWidth) + lcell
				rcell = lineNumber(i, j, rok, numWidth) + rcell
			}
			if opts.Color {
				lcell, rcell = colorCells(mark, lcell, rcell)
			}
			out = append(out, strings.TrimRight(fmt.Sprintf("%s %c %s", lcell, mark, rcell), " "))
		}
	}
	return strings.Join(out, "\n")
}

func cellText(lines []string, i int) (string, bool) {
	if i < len(lines) {
		return strings.ReplaceAll(lines[i], "\t", strings.Repeat(" ", tabWidth)), true
	}
	return "", false
}

func gutterMark(lt string, lok bool, rt string, rok bool) rune {
	switch {
	case lok && !rok:
		return MarkLeftOnly
	case rok && !lok:
		return MarkRightOnly
	case lt != rt:
		return MarkChanged
	default:
		return MarkSame
	}
}

// fitCell truncates s to width, or splits it into width-sized parts when wrapping.
func fitCell(s string, width int, wrap bool) []string {
	if runewidth.StringWidth(s) <= width {
		return []string{s}
	}
	if !wrap {
		return []string{runewidth.Truncate(s, width, "…")}
	}
	var parts []string
	var cur strings.Builder
	curWidth := 0
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if curWidth+w > width && curWidth > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
			curWidth = 0
		}
		cur.WriteRune(r)
		curWidth += w
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

func partAt(parts []string, j int) string {
	if j < len(parts) {
		return parts[j]
	}
	return ""
}

// lineNumber prints the 1-based number on the first row of a present line.
func lineNumber(i, part int, present bool, width int) string {
	if !present || part > 0 {
		return strings.Repeat(" ", width+1)
	}
	return fmt.Sprintf("%*d ", width, i+1)
}

func colorCells(mark rune, lcell, rcell string) (string, string) {
	switch mark {
	case MarkChanged:
		return ui.RenderChanged(lcell), ui.RenderChanged(rcell)
	case MarkLeftOnly:
		return ui.RenderRemoved(lcell), rcell
	case MarkRightOnly:
		return lcell, ui.RenderAdded(rcell)
	}
	return lcell, rcell
}
