package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/docmerge/internal/config"
	"github.com/steveyegge/docmerge/internal/render"
	"github.com/steveyegge/docmerge/internal/types"
)

func newDiffCmd() *cobra.Command {
	var (
		sideBySide  bool
		stats       bool
		contextN    int
		width       int
		wrap        bool
		lineNumbers bool
	)

	cmd := &cobra.Command{
		Use:     "diff LEFT RIGHT",
		GroupID: groupView,
		Short:   "Show differences between two documents",
		Long: `Show differences between two documents as a unified diff (default), two
columns (--side-by-side), or change counts (--stats).

Side-by-side rows compare line by line at the same position: '|' marks a
changed line, '<' a line only on the left, '>' a line only on the right.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if sideBySide && stats {
				return &types.InvalidInputError{Field: "--side-by-side", Reason: "cannot be combined with --stats"}
			}
			left, _, err := readVersion(args[0], false)
			if err != nil {
				return err
			}
			right, _, err := readVersion(args[1], false)
			if err != nil {
				return err
			}
			color := useColor() && !jsonOutput

			switch {
			case stats:
				st := render.GetStats(*left, *right)
				if jsonOutput {
					return outputJSON(cmd.OutOrStdout(), st)
				}
				fmt.Fprintln(cmd.OutOrStdout(), render.FormatStats(st, color))
				return nil

			case sideBySide:
				if width <= 0 {
					width = config.GetColumnWidth()
				}
				out := render.SideBySide(*left, *right, render.SideBySideOptions{
					ColumnWidth:     width,
					ShowLineNumbers: lineNumbers,
					Wrap:            wrap,
					Color:           color,
				})
				if out == "" {
					return nil
				}
				return page(cmd, out+"\n")

			default:
				if !cmd.Flags().Changed("context") {
					contextN = config.GetRenderContext()
				}
				out, err := render.Unified(*left, *right, render.UnifiedOptions{
					FromLabel: args[0],
					ToLabel:   args[1],
					Context:   contextN,
					Color:     color,
				})
				if err != nil {
					return err
				}
				if jsonOutput {
					return outputJSON(cmd.OutOrStdout(), map[string]string{"diff": out})
				}
				return page(cmd, out)
			}
		},
	}

	cmd.Flags().BoolVarP(&sideBySide, "side-by-side", "y", false, "Two-column output")
	cmd.Flags().BoolVar(&stats, "stats", false, "Only count additions, deletions and modifications")
	cmd.Flags().IntVarP(&contextN, "context", "U", render.DefaultContextLines, "Unified diff context lines (default: render.context)")
	cmd.Flags().IntVarP(&width, "width", "W", 0, "Side-by-side column width (default: render.column-width)")
	cmd.Flags().BoolVar(&wrap, "wrap", false, "Wrap long lines in side-by-side output instead of truncating")
	cmd.Flags().BoolVarP(&lineNumbers, "line-numbers", "n", false, "Show line numbers in side-by-side output")
	return cmd
}
