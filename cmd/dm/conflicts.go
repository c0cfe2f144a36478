package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/docmerge/internal/config"
	"github.com/steveyegge/docmerge/internal/merge"
	"github.com/steveyegge/docmerge/internal/render"
	"github.com/steveyegge/docmerge/internal/types"
	"github.com/steveyegge/docmerge/internal/ui"
)

func newConflictsCmd() *cobra.Command {
	var (
		contextN int
		full     bool
	)

	cmd := &cobra.Command{
		Use:     "conflicts BASE LOCAL REMOTE",
		GroupID: groupView,
		Short:   "Preview where LOCAL and REMOTE conflict, without merging",
		Long: `Preview where LOCAL and REMOTE conflict. Nothing is written and no
history is recorded.

By default each conflicting line of LOCAL is shown with --context lines
around it. --full prints all of LOCAL with every conflict annotated.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, _, err := readVersion(args[0], false)
			if err != nil {
				return err
			}
			local, _, err := readVersion(args[1], false)
			if err != nil {
				return err
			}
			remote, _, err := readVersion(args[2], false)
			if err != nil {
				return err
			}

			result, err := merge.ThreeWayMerge(base, local, remote,
				merge.WithLabel(args[1]),
				merge.WithContextLines(config.GetContextLines()),
			)
			if err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(cmd.OutOrStdout(), result.Conflicts)
			}
			if !result.HasConflicts {
				fmt.Fprintf(cmd.OutOrStdout(), "%s no conflicts\n", ui.RenderPassIcon())
				return nil
			}

			color := useColor()
			if full {
				return page(cmd, render.HighlightConflicts(*local, result.Conflicts, render.WithColor(color))+"\n")
			}
			if !cmd.Flags().Changed("context") {
				contextN = config.GetRenderContext()
			}
			return page(cmd, conflictSummary(*local, result.Conflicts, contextN, color))
		},
	}

	cmd.Flags().IntVarP(&contextN, "context", "C", render.DefaultContextLines, "Lines of context around each conflict (default: render.context)")
	cmd.Flags().BoolVar(&full, "full", false, "Print the whole document with conflicts annotated")
	return cmd
}

// conflictSummary lists each conflict with the surrounding lines of text.
func conflictSummary(text string, conflicts []types.Conflict, contextLines int, color bool) string {
	var lines []int
	out := fmt.Sprintf("%d conflict(s):\n", len(conflicts))
	for _, c := range conflicts {
		id := c.ID
		if color {
			id = ui.RenderConflict(id)
		}
		out += fmt.Sprintf("  %s %s lines %d-%d\n", id, c.Section, c.StartLine+1, c.EndLine+1)
		for i := c.StartLine; i <= c.EndLine; i++ {
			lines = append(lines, i)
		}
	}
	if ctx := render.RenderContext(text, lines, contextLines, render.WithColor(color)); ctx != "" {
		out += "\n" + ctx + "\n"
	}
	return out
}
