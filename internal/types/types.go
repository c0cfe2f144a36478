// Package types defines core data structures for docmerge.
package types

import (
	"fmt"
	"time"
)

// Line is a single normalized line of a document.
// Index is the zero-based position within its version.
type Line struct {
	Index   int    `json:"index"`
	Content string `json:"content"`
}

// VersionLabel names one of the three inputs of a merge.
type VersionLabel string

const (
	VersionBase   VersionLabel = "base"
	VersionLocal  VersionLabel = "local"
	VersionRemote VersionLabel = "remote"
)

// DocumentVersion is a normalized document tagged with where it came from.
type DocumentVersion struct {
	Lines  []Line       `json:"lines"`
	Source VersionLabel `json:"source"`
}

// Contents returns the line contents of the version in order.
func (d DocumentVersion) Contents() []string {
	out := make([]string, len(d.Lines))
	for i, l := range d.Lines {
		out[i] = l.Content
	}
	return out
}

// Section classifies where in a Markdown document a line lives.
type Section string

const (
	SectionFrontmatter Section = "frontmatter"
	SectionCodeBlock   Section = "code"
	SectionBody        Section = "body"
)

// IsValid checks if the section value is one of the known sections.
func (s Section) IsValid() bool {
	switch s {
	case SectionFrontmatter, SectionCodeBlock, SectionBody:
		return true
	}
	return false
}

// ConflictContext holds auto-merged lines surrounding a conflict.
type ConflictContext struct {
	Before []string `json:"before"`
	After  []string `json:"after"`
}

// Conflict is a contiguous run of positions where base, local and remote all differ.
type Conflict struct {
	ID        string          `json:"id"`
	StartLine int             `json:"startLine"`
	EndLine   int             `json:"endLine"`
	Base      []string        `json:"base"`
	Local     []string        `json:"local"`
	Remote    []string        `json:"remote"`
	Section   Section         `json:"section"`
	Context   ConflictContext `json:"context"`

	// Positions in [StartLine, EndLine] where a side has no line at all.
	// A position listed here was deleted, not changed to an empty line.
	LocalDeleted  []int `json:"localDeleted,omitempty"`
	RemoteDeleted []int `json:"remoteDeleted,omitempty"`
	BaseMissing   []int `json:"baseMissing,omitempty"`

	// Inclusive range of the conflict's marker block within MergeResult.Merged.
	MergedStart int `json:"mergedStart"`
	MergedEnd   int `json:"mergedEnd"`

	// Optional modification times used by the newest strategy.
	LocalModified  *time.Time `json:"localModified,omitempty"`
	RemoteModified *time.Time `json:"remoteModified,omitempty"`
}

// Validate checks the structural invariants of a conflict.
func (c *Conflict) Validate() error {
	if c.ID == "" {
		return &InvalidInputError{Field: "conflict.id", Reason: "must not be empty"}
	}
	if c.StartLine < 0 || c.EndLine < c.StartLine {
		return &InvalidInputError{
			Field:  "conflict.endLine",
			Reason: fmt.Sprintf("invalid span %d-%d", c.StartLine, c.EndLine),
		}
	}
	if c.Section != "" && !c.Section.IsValid() {
		return &InvalidInputError{Field: "conflict.section", Reason: fmt.Sprintf("unknown section %q", c.Section)}
	}
	return nil
}

// Clone returns a deep copy so callers never share slices with a store.
func (c Conflict) Clone() Conflict {
	out := c
	out.Base = cloneStrings(c.Base)
	out.Local = cloneStrings(c.Local)
	out.Remote = cloneStrings(c.Remote)
	out.Context.Before = cloneStrings(c.Context.Before)
	out.Context.After = cloneStrings(c.Context.After)
	out.LocalDeleted = cloneInts(c.LocalDeleted)
	out.RemoteDeleted = cloneInts(c.RemoteDeleted)
	out.BaseMissing = cloneInts(c.BaseMissing)
	out.LocalModified = cloneTime(c.LocalModified)
	out.RemoteModified = cloneTime(c.RemoteModified)
	return out
}

// Lines returns the number of positions the conflict spans.
func (c Conflict) Lines() int {
	return c.EndLine - c.StartLine + 1
}

// MergeResult is the outcome of one three-way merge.
type MergeResult struct {
	Merged       []Line     `json:"merged"`
	Conflicts    []Conflict `json:"conflicts"`
	HasConflicts bool       `json:"hasConflicts"`
}

// Text joins the merged lines back into a document.
func (r MergeResult) Text() string {
	return JoinLines(r.Merged)
}

// JoinLines joins line contents with "\n".
func JoinLines(lines []Line) string {
	if len(lines) == 0 {
		return ""
	}
	n := len(lines) - 1
	for _, l := range lines {
		n += len(l.Content)
	}
	buf := make([]byte, 0, n)
	for i, l := range lines {
		if i > 0 {
			buf = append(buf, '\n')
		}
		buf = append(buf, l.Content...)
	}
	return string(buf)
}

// Strategy names a policy for collapsing a conflict into one outcome.
type Strategy string

const (
	StrategyNewest     Strategy = "newest"
	StrategyLocal      Strategy = "local"
	StrategyRemote     Strategy = "remote"
	StrategyRulesBased Strategy = "rules"
	StrategyManual     Strategy = "manual"
)

// Strategies lists every known strategy in display order.
var Strategies = []Strategy{
	StrategyNewest,
	StrategyLocal,
	StrategyRemote,
	StrategyRulesBased,
	StrategyManual,
}

// IsValid checks if the strategy is one of the known strategies.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyNewest, StrategyLocal, StrategyRemote, StrategyRulesBased, StrategyManual:
		return true
	}
	return false
}

// Side picks one of the two edited versions.
type Side string

const (
	SideLocal  Side = "local"
	SideRemote Side = "remote"
)

// IsValid checks if the side is local or remote.
func (s Side) IsValid() bool {
	return s == SideLocal || s == SideRemote
}

// Resolution is the outcome of applying a strategy to one conflict.
type Resolution struct {
	ConflictID    string    `json:"conflictId"`
	Strategy      Strategy  `json:"strategy"`
	ResolvedLines []string  `json:"resolvedLines"`
	ResolvedAt    time.Time `json:"resolvedAt"`
	// Side is set when the strategy picked one side wholesale.
	Side Side `json:"side,omitempty"`
}

// Clone returns a deep copy of the resolution.
func (r Resolution) Clone() Resolution {
	out := r
	out.ResolvedLines = cloneStrings(r.ResolvedLines)
	return out
}

// HistoryEntry records a conflict together with how it was resolved.
type HistoryEntry struct {
	LogID      string     `json:"logId"`
	FilePath   string     `json:"filePath,omitempty"`
	Conflict   Conflict   `json:"conflict"`
	Resolution Resolution `json:"resolution"`
	LoggedAt   time.Time  `json:"loggedAt"`
	Reverted   bool       `json:"reverted,omitempty"`
	RevertedAt *time.Time `json:"revertedAt,omitempty"`
	// ReplayOf is the log ID this entry was replayed from, if any.
	ReplayOf string `json:"replayOf,omitempty"`
}

// Clone returns a deep copy of the entry.
func (e HistoryEntry) Clone() HistoryEntry {
	out := e
	out.Conflict = e.Conflict.Clone()
	out.Resolution = e.Resolution.Clone()
	out.RevertedAt = cloneTime(e.RevertedAt)
	return out
}

// DiffStats summarizes a positional comparison of two texts.
type DiffStats struct {
	Additions     int `json:"additions"`
	Deletions     int `json:"deletions"`
	Modifications int `json:"modifications"`
}

// Total returns the number of changed positions.
func (s DiffStats) Total() int {
	return s.Additions + s.Deletions + s.Modifications
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneInts(in []int) []int {
	if in == nil {
		return nil
	}
	out := make([]int, len(in))
	copy(out, in)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
