// Command dm merges Markdown documents three ways and keeps a history of
// how each conflict was resolved.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/steveyegge/docmerge/internal/config"
	"github.com/steveyegge/docmerge/internal/debug"
	"github.com/steveyegge/docmerge/internal/telemetry"
	"github.com/steveyegge/docmerge/internal/ui"
)

var (
	// Version is the current version of dm (overridden by ldflags at build time)
	Version = "0.3.0"
	// Build can be set via ldflags at compile time
	Build = "dev"
)

var (
	jsonOutput  bool
	verboseFlag bool
	quietFlag   bool
	noColorFlag bool
	noPagerFlag bool
	configPath  string
)

// Command groups shown in help output.
const (
	groupMerge   = "merge"
	groupHistory = "history"
	groupView    = "view"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dm",
		Short: "dm - Three-way merge for Markdown documents",
		Long: `Merges independently edited copies of a Markdown document against their
common base, resolves conflicts by strategy, and records every resolution so
it can be reviewed, undone or replayed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintf(cmd.OutOrStdout(), "dm version %s (%s)\n", Version, Build)
				return
			}
			_ = cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug.SetVerbose(verboseFlag)
			debug.SetQuiet(quietFlag)
			if noColorFlag {
				ui.SetColor(false)
			}
			if err := config.InitializeWithFile(configPath); err != nil {
				return err
			}
			if err := telemetry.Init(cmd.Context(), "dm", Version); err != nil {
				debug.Warnf("telemetry disabled: %v", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			telemetry.Shutdown(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output (errors only)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&noPagerFlag, "no-pager", false, "Disable pager for long output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: nearest .docmerge/config.yaml)")
	rootCmd.Flags().Bool("version", false, "Print version information")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupMerge, Title: "Merging:"},
		&cobra.Group{ID: groupHistory, Title: "History:"},
		&cobra.Group{ID: groupView, Title: "Viewing:"},
	)

	rootCmd.AddCommand(
		newMergeCmd(),
		newBatchCmd(),
		newHistoryCmd(),
		newShowCmd(),
		newDiffCmd(),
		newConflictsCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// useColor reports whether command output should be styled.
func useColor() bool {
	return !noColorFlag && ui.ShouldUseColor()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if jsonOutput {
			outputJSONError(err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}
