package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/docmerge/internal/config"
	"github.com/steveyegge/docmerge/internal/merge"
	"github.com/steveyegge/docmerge/internal/types"
	"github.com/steveyegge/docmerge/internal/ui"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "show LOG_ID",
		GroupID: groupView,
		Short:   "Show one recorded resolution in full",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			e, err := store.Get(args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(cmd.OutOrStdout(), e)
			}
			report := entryMarkdown(e)
			if useColor() {
				report = ui.RenderMarkdown(report)
			}
			return page(cmd, report)
		},
	}
}

// page writes long output through the pager when writing to the terminal.
func page(cmd *cobra.Command, content string) error {
	if out := cmd.OutOrStdout(); out != os.Stdout {
		_, err := fmt.Fprint(out, content)
		return err
	}
	return ui.ToPager(content, ui.PagerOptions{NoPager: noPagerFlag})
}

// entryMarkdown formats a history entry as a Markdown report.
func entryMarkdown(e types.HistoryEntry) string {
	c, r := e.Conflict, e.Resolution
	var b strings.Builder

	fmt.Fprintf(&b, "# Conflict %s\n\n", c.ID)
	fmt.Fprintf(&b, "- **Log ID:** %s\n", e.LogID)
	if e.FilePath != "" {
		fmt.Fprintf(&b, "- **File:** %s\n", e.FilePath)
	}
	fmt.Fprintf(&b, "- **Section:** %s, lines %d-%d\n", c.Section, c.StartLine+1, c.EndLine+1)
	fmt.Fprintf(&b, "- **Logged:** %s\n", e.LoggedAt.Local().Format("2006-01-02 15:04:05 MST"))
	strategy := string(r.Strategy)
	if r.Side != "" {
		strategy += fmt.Sprintf(" (took %s)", r.Side)
	}
	fmt.Fprintf(&b, "- **Strategy:** %s\n", strategy)
	if e.ReplayOf != "" {
		fmt.Fprintf(&b, "- **Replay of:** %s\n", e.ReplayOf)
	}
	if e.Reverted {
		status := "reverted"
		if e.RevertedAt != nil {
			status += " at " + e.RevertedAt.Local().Format("2006-01-02 15:04:05 MST")
		}
		fmt.Fprintf(&b, "- **Status:** %s\n", status)
	}

	writeBlock(&b, "Base", c.Base, nil)
	writeBlock(&b, "Local", c.Local, c.LocalModified)
	writeBlock(&b, "Remote", c.Remote, c.RemoteModified)
	writeBlock(&b, "Resolved", r.ResolvedLines, nil)

	if len(c.Context.Before) > 0 || len(c.Context.After) > 0 {
		b.WriteString("\n## Context\n\n")
		around := append(append(append([]string{}, c.Context.Before...), "…"), c.Context.After...)
		b.WriteString(fenced(around))
	}
	return b.String()
}

func writeBlock(b *strings.Builder, title string, lines []string, modified *time.Time) {
	fmt.Fprintf(b, "\n## %s\n\n", title)
	if modified != nil {
		fmt.Fprintf(b, "_modified %s_\n\n", modified.Local().Format("2006-01-02 15:04:05 MST"))
	}
	b.WriteString(fenced(lines))
}

// fenced wraps lines in a code fence longer than any backtick run inside them.
func fenced(lines []string) string {
	longest := 0
	for _, l := range lines {
		run := 0
		for _, r := range l {
			if r == '`' {
				run++
				longest = max(longest, run)
			} else {
				run = 0
			}
		}
	}
	fence := strings.Repeat("`", max(3, longest+1))
	if len(lines) == 0 {
		return fence + "\n" + fence + "\n"
	}
	return fence + "\n" + strings.Join(lines, "\n") + "\n" + fence + "\n"
}

// conflictMarkers renders c as a marker block in the configured style.
func conflictMarkers(c types.Conflict) []string {
	return merge.MarkerBlock(c, config.GetMergeStyle())
}
