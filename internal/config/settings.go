package config

import (
	"strings"
	"time"

	"github.com/steveyegge/docmerge/internal/debug"
	"github.com/steveyegge/docmerge/internal/merge"
	"github.com/steveyegge/docmerge/internal/resolve"
	"github.com/steveyegge/docmerge/internal/types"
)

// HistoryMode selects where the conflict history is kept.
type HistoryMode string

const (
	// HistoryModeFile keeps history in a JSON file (default)
	HistoryModeFile HistoryMode = "file"
	// HistoryModeMemory keeps history for the lifetime of the process only
	HistoryModeMemory HistoryMode = "memory"
)

// GetMergeStyle returns the marker style, or merge.StyleMerge if not set or invalid.
//
// Config key: merge.style
// Valid values: merge, diff3
func GetMergeStyle() merge.Style {
	value := GetString(KeyMergeStyle)
	if value == "" {
		return merge.StyleMerge
	}
	style := merge.Style(strings.ToLower(strings.TrimSpace(value)))
	if !style.IsValid() {
		debug.Warnf("invalid %s %q in config (valid: merge, diff3), using default 'merge'", KeyMergeStyle, value)
		return merge.StyleMerge
	}
	return style
}

// GetConflictStrategy returns the default resolution strategy, or manual
// if not set or invalid. Accepts the same aliases as the --strategy flag.
//
// Config key: conflict.strategy
// Valid values: newest, local (ours), remote (theirs), rules, manual
func GetConflictStrategy() types.Strategy {
	value := GetString(KeyConflictStrategy)
	if value == "" {
		return types.StrategyManual
	}
	s, err := resolve.ParseStrategy(value)
	if err != nil {
		debug.Warnf("invalid %s %q in config (valid: newest, local, remote, rules, manual), using default 'manual'", KeyConflictStrategy, value)
		return types.StrategyManual
	}
	return s
}

// GetHistoryMode returns the history storage mode, or file if not set or invalid.
//
// Config key: history.mode
// Valid values: file, memory
func GetHistoryMode() HistoryMode {
	value := GetString(KeyHistoryMode)
	if value == "" {
		return HistoryModeFile
	}
	mode := HistoryMode(strings.ToLower(strings.TrimSpace(value)))
	if mode != HistoryModeFile && mode != HistoryModeMemory {
		debug.Warnf("invalid %s %q in config (valid: file, memory), using default 'file'", KeyHistoryMode, value)
		return HistoryModeFile
	}
	return mode
}

// GetHistoryLockTimeout returns how long to wait for the history file lock.
func GetHistoryLockTimeout() time.Duration {
	d := GetDuration(KeyHistoryLockWait)
	if d < 0 {
		debug.Warnf("negative %s in config, using 0", KeyHistoryLockWait)
		return 0
	}
	return d
}

// positiveInt reads key and falls back to def when the value is not positive.
func positiveInt(key string, def int) int {
	n := GetInt(key)
	if n <= 0 {
		return def
	}
	return n
}

// GetContextLines returns the context captured around each conflict.
// Zero is allowed and disables context.
func GetContextLines() int {
	n := GetInt(KeyMergeContextLines)
	if n < 0 {
		return merge.DefaultContextLines
	}
	return n
}

// GetColumnWidth returns the side-by-side column width.
func GetColumnWidth() int {
	return positiveInt(KeyRenderColumnWidth, 60)
}

// GetRenderContext returns the context lines used by `dm diff --context`.
// Zero is allowed and prints changed lines only.
func GetRenderContext() int {
	n := GetInt(KeyRenderContext)
	if n < 0 {
		return 3
	}
	return n
}

// GetBatchWorkers returns the batch worker pool size.
func GetBatchWorkers() int {
	return positiveInt(KeyBatchWorkers, 1)
}
