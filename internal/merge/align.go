package merge

import "github.com/steveyegge/docmerge/internal/types"

// Cell is one version's line at an aligned row. Present is false when the
// version has no line there (deleted, or never inserted).
type Cell struct {
	Content string
	Present bool
}

// Text returns the content used for comparison: an absent cell compares as "".
func (c Cell) Text() string {
	if !c.Present {
		return ""
	}
	return c.Content
}

// Row is one aligned position across the three versions.
type Row struct {
	Base   Cell
	Local  Cell
	Remote Cell
}

// Aligner pairs up lines of the three versions into rows.
// Conflict detection, resolution and history only ever see rows, so a
// smarter aligner can be swapped in without touching them.
type Aligner interface {
	Align(base, local, remote []types.Line) []Row
}

// PositionalAligner aligns lines by raw index: row i holds line i of every
// version. Independent insertions at different points shift everything after
// them and are reported as a conflicting region.
type PositionalAligner struct{}

// Align implements Aligner.
func (PositionalAligner) Align(base, local, remote []types.Line) []Row {
	n := max(len(base), len(local), len(remote))
	rows := make([]Row, n)
	for i := 0; i < n; i++ {
		rows[i] = Row{
			Base:   cellAt(base, i),
			Local:  cellAt(local, i),
			Remote: cellAt(remote, i),
		}
	}
	return rows
}

func cellAt(lines []types.Line, i int) Cell {
	if i < len(lines) {
		return Cell{Content: lines[i].Content, Present: true}
	}
	return Cell{}
}
