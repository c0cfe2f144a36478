// Package merge implements line-based three-way merging of text documents.
//
// The three inputs are normalized, aligned into rows by an Aligner, and each
// row is reconciled independently:
//
//	local == remote                  -> take it (unchanged, or same edit on both sides)
//	local == base, remote != base    -> take remote (remote-only change or deletion)
//	remote == base, local != base    -> take local (local-only change or deletion)
//	all three differ                 -> conflict
//
// Contiguous conflicting rows form one Conflict. The merged output carries
// git-style markers at each conflict.
package merge

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/steveyegge/docmerge/internal/debug"
	"github.com/steveyegge/docmerge/internal/idgen"
	"github.com/steveyegge/docmerge/internal/telemetry"
	"github.com/steveyegge/docmerge/internal/textnorm"
	"github.com/steveyegge/docmerge/internal/types"
)

// Conflict marker lines written into merged output.
const (
	MarkerLocal  = "<<<<<<< local"
	MarkerBase   = "||||||| base"
	MarkerSep    = "======="
	MarkerRemote = ">>>>>>> remote"
)

// DefaultContextLines is how many auto-merged lines are captured on each side of a conflict.
const DefaultContextLines = 3

// Style selects the marker layout.
type Style string

const (
	// StyleMerge writes local and remote sides only.
	StyleMerge Style = "merge"
	// StyleDiff3 also writes the base side between ||||||| and =======.
	StyleDiff3 Style = "diff3"
)

// IsValid checks if the style is known.
func (s Style) IsValid() bool {
	return s == StyleMerge || s == StyleDiff3
}

type options struct {
	label        string
	style        Style
	aligner      Aligner
	contextLines int
	localTime    *time.Time
	remoteTime   *time.Time
}

// Option configures a merge.
type Option func(*options)

// WithLabel names the document being merged, usually its path.
// The label is mixed into conflict IDs.
func WithLabel(label string) Option {
	return func(o *options) { o.label = label }
}

// WithStyle selects the marker layout.
func WithStyle(style Style) Option {
	return func(o *options) {
		if style.IsValid() {
			o.style = style
		}
	}
}

// WithAligner replaces the default positional aligner.
func WithAligner(a Aligner) Option {
	return func(o *options) {
		if a != nil {
			o.aligner = a
		}
	}
}

// WithContextLines sets how many context lines are captured per side.
func WithContextLines(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.contextLines = n
		}
	}
}

// WithTimestamps records modification times of the two sides on every
// conflict so the newest strategy can use them later.
func WithTimestamps(local, remote time.Time) Option {
	return func(o *options) {
		if !local.IsZero() {
			o.localTime = &local
		}
		if !remote.IsZero() {
			o.remoteTime = &remote
		}
	}
}

// ThreeWayMerge merges local and remote edits of base.
// A nil argument is absent input and fails with *types.InvalidInputError;
// an empty string is a valid empty document.
func ThreeWayMerge(base, local, remote *string, opts ...Option) (types.MergeResult, error) {
	switch {
	case base == nil:
		return types.MergeResult{}, &types.InvalidInputError{Field: "base"}
	case local == nil:
		return types.MergeResult{}, &types.InvalidInputError{Field: "local"}
	case remote == nil:
		return types.MergeResult{}, &types.InvalidInputError{Field: "remote"}
	}
	return Merge(*base, *local, *remote, opts...)
}

// Merge is ThreeWayMerge for callers that always have all three texts.
func Merge(base, local, remote string, opts ...Option) (result types.MergeResult, err error) {
	o := options{
		style:        StyleMerge,
		aligner:      PositionalAligner{},
		contextLines: DefaultContextLines,
	}
	for _, opt := range opts {
		opt(&o)
	}

	inst := telemetry.NewInstrument("merge", "conflicts", "binary")
	_, op := inst.Start(context.Background(), "merge",
		attribute.String("dm.merge.style", string(o.style)),
		attribute.String("dm.document", o.label),
	)
	defer func() {
		var binErr *types.BinaryFileError
		if errors.As(err, &binErr) {
			op.Add("binary", 1)
		}
		op.Add("conflicts", int64(len(result.Conflicts)))
		op.End(err)
	}()

	baseLines, err := textnorm.NormalizeVersion(base, types.VersionBase)
	if err != nil {
		return types.MergeResult{}, err
	}
	localLines, err := textnorm.NormalizeVersion(local, types.VersionLocal)
	if err != nil {
		return types.MergeResult{}, err
	}
	remoteLines, err := textnorm.NormalizeVersion(remote, types.VersionRemote)
	if err != nil {
		return types.MergeResult{}, err
	}

	if textnorm.HasLongLines(localLines) || textnorm.HasLongLines(remoteLines) {
		debug.Logf("merge %q: lines over %d chars compared as opaque units", o.label, textnorm.LongLineThreshold)
	}

	rows := o.aligner.Align(baseLines, localLines, remoteLines)
	m := &merger{
		opts:        o,
		rows:        rows,
		baseSecs:    DetectSections(textnorm.Contents(baseLines)),
		localSecs:   DetectSections(textnorm.Contents(localLines)),
		remoteSecs:  DetectSections(textnorm.Contents(remoteLines)),
		merged:      make([]types.Line, 0, max(len(localLines), len(remoteLines))),
		blockEnd:    -1,
		pendingNext: -1,
	}
	m.run()

	result = types.MergeResult{
		Merged:       m.merged,
		Conflicts:    m.conflicts,
		HasConflicts: len(m.conflicts) > 0,
	}
	if result.Conflicts == nil {
		result.Conflicts = []types.Conflict{}
	}
	debug.Logf("merge %q: %d rows, %d merged lines, %d conflicts",
		o.label, len(rows), len(result.Merged), len(result.Conflicts))
	return result, nil
}

// rowOutcome is the reconciliation of one row.
type rowOutcome int

const (
	outcomeTake rowOutcome = iota
	outcomeConflict
)

// reconcile decides one row. For outcomeTake the returned cell is the line
// to emit; an absent cell means the position produces no output.
func reconcile(r Row) (rowOutcome, Cell) {
	b, l, rm := r.Base.Text(), r.Local.Text(), r.Remote.Text()
	switch {
	case l == rm:
		// Prefer whichever side still has a line so "deleted" and
		// "emptied" on opposite sides keep the empty line.
		if r.Local.Present {
			return outcomeTake, r.Local
		}
		return outcomeTake, r.Remote
	case l == b:
		return outcomeTake, r.Remote
	case rm == b:
		return outcomeTake, r.Local
	default:
		return outcomeConflict, Cell{}
	}
}

type merger struct {
	opts                            options
	rows                            []Row
	baseSecs, localSecs, remoteSecs []types.Section

	merged    []types.Line
	conflicts []types.Conflict

	// blockEnd is the merged index of the last marker line written, so
	// "before" context never reaches into a previous conflict block.
	blockEnd int
	// pendingNext is the index of the conflict still collecting "after" context.
	pendingNext int
}

func (m *merger) run() {
	for i := 0; i < len(m.rows); {
		outcome, cell := reconcile(m.rows[i])
		if outcome == outcomeTake {
			if cell.Present {
				m.emit(cell.Content)
			}
			i++
			continue
		}

		j := i
		for j+1 < len(m.rows) {
			if next, _ := reconcile(m.rows[j+1]); next != outcomeConflict {
				break
			}
			j++
		}
		m.conflict(i, j)
		i = j + 1
	}
}

func (m *merger) emit(content string) {
	m.merged = append(m.merged, types.Line{Index: len(m.merged), Content: content})

	if m.pendingNext >= 0 {
		c := &m.conflicts[m.pendingNext]
		if len(c.Context.After) < m.opts.contextLines {
			c.Context.After = append(c.Context.After, content)
		}
		if len(c.Context.After) >= m.opts.contextLines {
			m.pendingNext = -1
		}
	}
}

func (m *merger) conflict(start, end int) {
	c := types.Conflict{
		StartLine:      start,
		EndLine:        end,
		Base:           []string{},
		Local:          []string{},
		Remote:         []string{},
		Section:        sectionAt(start, m.rows[start], m.baseSecs, m.localSecs, m.remoteSecs),
		LocalModified:  copyTime(m.opts.localTime),
		RemoteModified: copyTime(m.opts.remoteTime),
		Context: types.ConflictContext{
			Before: m.beforeContext(),
			After:  []string{},
		},
	}

	for i := start; i <= end; i++ {
		r := m.rows[i]
		if r.Base.Present {
			c.Base = append(c.Base, r.Base.Content)
		} else {
			c.BaseMissing = append(c.BaseMissing, i)
		}
		if r.Local.Present {
			c.Local = append(c.Local, r.Local.Content)
		} else {
			c.LocalDeleted = append(c.LocalDeleted, i)
		}
		if r.Remote.Present {
			c.Remote = append(c.Remote, r.Remote.Content)
		} else {
			c.RemoteDeleted = append(c.RemoteDeleted, i)
		}
	}
	c.ID = idgen.GenerateConflictID(m.opts.label, start, end, c.Base, c.Local, c.Remote)

	c.MergedStart = len(m.merged)
	for _, l := range MarkerBlock(c, m.opts.style) {
		m.merged = append(m.merged, types.Line{Index: len(m.merged), Content: l})
	}
	c.MergedEnd = len(m.merged) - 1
	m.blockEnd = c.MergedEnd

	m.conflicts = append(m.conflicts, c)
	m.pendingNext = -1
	if m.opts.contextLines > 0 {
		m.pendingNext = len(m.conflicts) - 1
	}
}

func (m *merger) beforeContext() []string {
	from := max(m.blockEnd+1, len(m.merged)-m.opts.contextLines)
	out := make([]string, 0, len(m.merged)-from)
	for _, l := range m.merged[from:] {
		out = append(out, l.Content)
	}
	return out
}

// MarkerBlock renders a conflict as marker-delimited lines.
func MarkerBlock(c types.Conflict, style Style) []string {
	n := len(c.Local) + len(c.Remote) + 3
	if style == StyleDiff3 {
		n += len(c.Base) + 1
	}
	out := make([]string, 0, n)
	out = append(out, MarkerLocal)
	out = append(out, c.Local...)
	if style == StyleDiff3 {
		out = append(out, MarkerBase)
		out = append(out, c.Base...)
	}
	out = append(out, MarkerSep)
	out = append(out, c.Remote...)
	out = append(out, MarkerRemote)
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
