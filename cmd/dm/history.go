package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/steveyegge/docmerge/internal/debug"
	"github.com/steveyegge/docmerge/internal/history"
	"github.com/steveyegge/docmerge/internal/resolve"
	"github.com/steveyegge/docmerge/internal/timeparsing"
	"github.com/steveyegge/docmerge/internal/types"
	"github.com/steveyegge/docmerge/internal/ui"
)

// watchDebounce coalesces bursts of writes to the history file.
const watchDebounce = 200 * time.Millisecond

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "history",
		GroupID: groupHistory,
		Short:   "Review, undo and replay conflict resolutions",
	}
	cmd.AddCommand(
		newHistoryListCmd(),
		newHistoryUndoCmd(),
		newHistoryReplayCmd(),
		newHistoryClearCmd(),
	)
	return cmd
}

func newHistoryListCmd() *cobra.Command {
	var (
		strategyName    string
		file            string
		since           string
		until           string
		excludeReverted bool
		watch           bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded resolutions, oldest first",
		Long: `List recorded resolutions, oldest first.

--since and --until accept RFC3339 timestamps, dates (2026-01-15),
compact durations (7d, -2h, +1w) and natural language ("last monday").
An unsigned duration in --since counts back from now.`,
		Example: `  dm history list --since 7d
  dm history list --strategy newest --file notes.md
  dm history list --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := historyFilter(strategyName, file, since, until, time.Now())
			if err != nil {
				return err
			}
			f.ExcludeReverted = excludeReverted

			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			if watch {
				if jsonOutput {
					return &types.InvalidInputError{Field: "--watch", Reason: "cannot be combined with --json"}
				}
				return watchHistory(ctx, store, f, cmd.OutOrStdout(), cmd.ErrOrStderr())
			}

			entries := store.GetHistory(f)
			if jsonOutput {
				return outputJSON(cmd.OutOrStdout(), entries)
			}
			printHistory(cmd.OutOrStdout(), entries)
			return nil
		},
	}

	cmd.Flags().StringVarP(&strategyName, "strategy", "s", "", "Only entries resolved with this strategy")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Only entries for this document")
	cmd.Flags().StringVar(&since, "since", "", "Only entries logged at or after this time")
	cmd.Flags().StringVar(&until, "until", "", "Only entries logged at or before this time")
	cmd.Flags().BoolVar(&excludeReverted, "exclude-reverted", false, "Hide entries that were undone")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-list whenever the history file changes")
	return cmd
}

// historyFilter builds a store filter from list flags.
func historyFilter(strategyName, file, since, until string, now time.Time) (history.Filter, error) {
	var f history.Filter
	if strategyName != "" {
		s, err := resolve.ParseStrategy(strategyName)
		if err != nil {
			return f, err
		}
		f.Strategy = s
	}
	f.FilePath = file
	if since != "" {
		t, err := timeparsing.ParsePast(since, now)
		if err != nil {
			return f, &types.InvalidInputError{Field: "--since", Reason: err.Error()}
		}
		f.From = t
	}
	if until != "" {
		t, err := timeparsing.ParseRelativeTime(until, now)
		if err != nil {
			return f, &types.InvalidInputError{Field: "--until", Reason: err.Error()}
		}
		f.To = t
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return f, &types.InvalidInputError{Field: "--until", Reason: "is before --since"}
	}
	return f, nil
}

func printHistory(w io.Writer, entries []types.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, ui.RenderMuted("No history entries."))
		return
	}
	for _, e := range entries {
		icon := ui.RenderPassIcon()
		if e.Reverted {
			icon = ui.RenderRevertedIcon()
		}
		line := fmt.Sprintf("%s %s  %s  %-7s %s %s",
			icon,
			ui.RenderAccent(e.LogID),
			e.LoggedAt.Local().Format("2006-01-02 15:04:05"),
			e.Resolution.Strategy,
			e.FilePath,
			ui.RenderMuted(fmt.Sprintf("%s lines %d-%d", e.Conflict.ID, e.Conflict.StartLine+1, e.Conflict.EndLine+1)),
		)
		if e.ReplayOf != "" {
			line += ui.RenderMuted(" replay of " + e.ReplayOf)
		}
		if e.Reverted {
			line += " " + ui.RenderMuted("(reverted)")
		}
		fmt.Fprintln(w, line)
	}
}

// watchHistory lists entries, then lists them again every time the history
// file is rewritten, until ctx is cancelled.
func watchHistory(ctx context.Context, store *history.Store, f history.Filter, w, errw io.Writer) error {
	if store.Path() == "" {
		return &types.InvalidInputError{Field: "--watch", Reason: "needs file-backed history (history.mode=file)"}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }() // Best effort cleanup

	// Watch the directory: atomic rewrites replace the file, which drops a
	// watch on the file itself.
	dir := filepath.Dir(store.Path())
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	name := filepath.Base(store.Path())

	render := func() {
		if err := store.Reload(ctx); err != nil {
			warnError(errw, "reload history: %v", err)
			return
		}
		printHistory(w, store.GetHistory(f))
		if !debug.IsQuiet() {
			fmt.Fprintf(errw, "\nWatching %s for changes... (Press Ctrl+C to exit)\n", store.Path())
		}
	}
	render()

	debounce := time.NewTimer(watchDebounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(watchDebounce)
		case <-debounce.C:
			fmt.Fprintln(w, ui.RenderSeparator())
			render()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			warnError(errw, "watcher: %v", err)
		}
	}
}

func newHistoryUndoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo LOG_ID",
		Short: "Mark a resolution as reverted",
		Long: `Mark a resolution as reverted. The entry stays in the history and the
conflict it resolved is printed so it can be resolved again. Undoing an
entry twice is harmless.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			c, err := store.Undo(ctx, args[0])
			if err != nil {
				return err
			}
			debug.LogEvent(eventDir(store), "history.undo", args[0], c.ID)

			if jsonOutput {
				return outputJSON(cmd.OutOrStdout(), c)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s Reverted %s\n", ui.RenderRevertedIcon(), args[0])
			if !debug.IsQuiet() {
				fmt.Fprintf(w, "Conflict %s (%s, lines %d-%d) is open again:\n\n", c.ID, c.Section, c.StartLine+1, c.EndLine+1)
				fmt.Fprintln(w, strings.Join(conflictMarkers(c), "\n"))
			}
			return nil
		},
	}
}

func newHistoryReplayCmd() *cobra.Command {
	var (
		strategyName string
		rulesFile    string
	)

	cmd := &cobra.Command{
		Use:   "replay LOG_ID",
		Short: "Resolve a recorded conflict again with another strategy",
		Long: `Resolve the conflict recorded under LOG_ID again and log the outcome as a
new entry. The original entry is not changed.`,
		Example: `  dm history replay 0192f7c4-... --strategy remote`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			strategy, err := resolve.ParseStrategy(strategyName)
			if err != nil {
				return err
			}
			rules, err := loadRuleSet(rulesFile)
			if err != nil {
				return err
			}
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			r, err := store.Replay(ctx, args[0], strategy, rules)
			if err != nil {
				return err
			}
			debug.LogEvent(eventDir(store), "history.replay", args[0], string(strategy))

			if jsonOutput {
				return outputJSON(cmd.OutOrStdout(), r)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s Replayed %s with %s\n", ui.RenderPassIcon(), args[0], r.Strategy)
			if !debug.IsQuiet() {
				fmt.Fprintln(w, strings.Join(r.ResolvedLines, "\n"))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&strategyName, "strategy", "s", "", "Strategy to resolve with (required)")
	cmd.Flags().StringVar(&rulesFile, "rules", "", "Rules file for the rules strategy (default: conflict.rules-file)")
	_ = cmd.MarkFlagRequired("strategy")
	return cmd
}

func newHistoryClearCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every history entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			n := store.Count()
			if !force {
				return fmt.Errorf("refusing to delete %d history entries without --force", n)
			}
			if err := store.Clear(ctx); err != nil {
				return err
			}
			debug.LogEvent(eventDir(store), "history.clear", "", fmt.Sprintf("%d entries", n))

			if jsonOutput {
				return outputJSON(cmd.OutOrStdout(), map[string]int{"deleted": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d history entries\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Actually delete")
	return cmd
}
