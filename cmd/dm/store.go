package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/steveyegge/docmerge/internal/config"
	"github.com/steveyegge/docmerge/internal/history"
	"github.com/steveyegge/docmerge/internal/resolve"
	"github.com/steveyegge/docmerge/internal/types"
)

// openHistory opens the history store selected by history.mode.
func openHistory(ctx context.Context) (*history.Store, error) {
	opts := []history.Option{history.WithLockTimeout(config.GetHistoryLockTimeout())}
	if config.GetHistoryMode() == config.HistoryModeMemory {
		return history.NewMemoryStore(opts...), nil
	}
	return history.OpenFileStore(ctx, config.GetString(config.KeyHistoryPath), opts...)
}

// eventDir is where debug.LogEvent appends events: next to the history file,
// or nowhere for in-memory history.
func eventDir(store *history.Store) string {
	if store == nil || store.Path() == "" {
		return ""
	}
	return filepath.Dir(store.Path())
}

// loadRuleSet loads the rules file named by flag, falling back to
// conflict.rules-file. No file means no rules.
func loadRuleSet(flag string) (*resolve.RuleSet, error) {
	path := flag
	if path == "" {
		path = config.GetString(config.KeyConflictRulesFile)
	}
	if path == "" {
		return nil, nil
	}
	return resolve.LoadRules(path)
}

// strategyFlag parses --strategy, defaulting to conflict.strategy.
func strategyFlag(name string) (types.Strategy, error) {
	if name == "" {
		return config.GetConflictStrategy(), nil
	}
	return resolve.ParseStrategy(name)
}

// readVersion reads one side of a merge. A missing file is an absent
// version (nil) when allowMissing is set.
func readVersion(path string, allowMissing bool) (*string, time.Time, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from the command line
	if err != nil {
		if allowMissing && errors.Is(err, fs.ErrNotExist) {
			return nil, time.Time{}, nil
		}
		return nil, time.Time{}, fmt.Errorf("read %s: %w", path, err)
	}
	var mtime time.Time
	if info, err := os.Stat(path); err == nil {
		mtime = info.ModTime()
	}
	text := string(data)
	return &text, mtime, nil
}

// writeOutput writes text to path, creating parent directories.
func writeOutput(path, text string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil { // #nosec G306 - merged documents are not secret
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
