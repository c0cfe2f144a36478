// Package docmerge provides a minimal public API for merging documents
// three ways from Go programs.
//
// The dm command is built on the same packages. This package exports only
// the types and functions a caller needs to merge, resolve, record and
// render; everything else stays internal.
package docmerge

import (
	"context"

	"github.com/steveyegge/docmerge/internal/history"
	"github.com/steveyegge/docmerge/internal/merge"
	"github.com/steveyegge/docmerge/internal/render"
	"github.com/steveyegge/docmerge/internal/resolve"
	"github.com/steveyegge/docmerge/internal/types"
)

// Core types
type (
	Conflict      = types.Conflict
	MergeResult   = types.MergeResult
	Resolution    = types.Resolution
	HistoryEntry  = types.HistoryEntry
	Strategy      = types.Strategy
	Side          = types.Side
	Section       = types.Section
	DiffStats     = types.DiffStats
	RuleSet       = resolve.RuleSet
	Rule          = resolve.Rule
	History       = history.Store
	HistoryFilter = history.Filter
	MergeOption   = merge.Option
	MarkerStyle   = merge.Style
)

// Strategy constants
const (
	StrategyNewest     = types.StrategyNewest
	StrategyLocal      = types.StrategyLocal
	StrategyRemote     = types.StrategyRemote
	StrategyRulesBased = types.StrategyRulesBased
	StrategyManual     = types.StrategyManual
)

// Marker styles
const (
	StyleMerge = merge.StyleMerge
	StyleDiff3 = merge.StyleDiff3
)

// Sentinel errors for errors.Is checks
var (
	ErrInvalidInput        = types.ErrInvalidInput
	ErrBinaryFile          = types.ErrBinaryFile
	ErrMissingTimestamp    = types.ErrMissingTimestamp
	ErrNoMatchingRule      = types.ErrNoMatchingRule
	ErrUnsupportedStrategy = types.ErrUnsupportedStrategy
	ErrHistoryNotFound     = types.ErrHistoryNotFound
)

// Merge options
var (
	WithLabel        = merge.WithLabel
	WithStyle        = merge.WithStyle
	WithContextLines = merge.WithContextLines
	WithTimestamps   = merge.WithTimestamps
)

// ThreeWayMerge merges local and remote edits of base. A nil argument is
// absent input and fails with ErrInvalidInput.
func ThreeWayMerge(base, local, remote *string, opts ...MergeOption) (MergeResult, error) {
	return merge.ThreeWayMerge(base, local, remote, opts...)
}

// ResolveConflict applies strategy to one conflict. rules is only used by
// StrategyRulesBased.
func ResolveConflict(c Conflict, strategy Strategy, rules *RuleSet) (Resolution, error) {
	return resolve.ResolveConflict(c, strategy, rules)
}

// Apply splices resolutions into a merge result and returns the text plus
// the conflicts that still carry markers.
func Apply(result MergeResult, resolutions []Resolution) (string, []Conflict, error) {
	return resolve.Apply(result, resolutions)
}

// LoadRules reads a rule set from a .yaml, .yml or .toml file.
func LoadRules(path string) (*RuleSet, error) {
	return resolve.LoadRules(path)
}

// NewMemoryHistory returns a history that lives as long as the process.
func NewMemoryHistory() *History {
	return history.NewMemoryStore()
}

// OpenHistory opens a history backed by the JSON file at path. The file is
// locked for every write, so several processes can share it.
func OpenHistory(ctx context.Context, path string) (*History, error) {
	return history.OpenFileStore(ctx, path)
}

// HighlightConflicts annotates each conflict's lines in text.
func HighlightConflicts(text string, conflicts []Conflict) string {
	return render.HighlightConflicts(text, conflicts)
}

// SideBySide renders left and right in two columns of the given width.
func SideBySide(left, right string, width int) string {
	return render.SideBySide(left, right, render.SideBySideOptions{ColumnWidth: width})
}

// GetStats counts positional additions, deletions and modifications.
func GetStats(left, right string) DiffStats {
	return render.GetStats(left, right)
}
