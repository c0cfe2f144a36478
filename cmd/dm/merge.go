package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/steveyegge/docmerge/internal/config"
	"github.com/steveyegge/docmerge/internal/debug"
	"github.com/steveyegge/docmerge/internal/history"
	"github.com/steveyegge/docmerge/internal/merge"
	"github.com/steveyegge/docmerge/internal/resolve"
	"github.com/steveyegge/docmerge/internal/types"
	"github.com/steveyegge/docmerge/internal/ui"
)

// errUnresolved is returned when conflict markers were left in the output.
var errUnresolved = errors.New("unresolved conflicts")

// resolvePolicy is how conflicts from a merge get resolved and recorded.
type resolvePolicy struct {
	strategy       types.Strategy
	rules          *resolve.RuleSet
	style          merge.Style
	fallbackManual bool
	store          *history.Store
}

// resolveReport is the outcome of resolving one document's conflicts.
type resolveReport struct {
	File       string             `json:"file"`
	Output     string             `json:"output,omitempty"`
	Merged     string             `json:"merged,omitempty"`
	Conflicts  int                `json:"conflicts"`
	Resolved   []types.Resolution `json:"resolved"`
	Unresolved []types.Conflict   `json:"unresolved"`
	LogIDs     []string           `json:"logIds"`

	text string
}

// resolveAll applies the policy to every conflict in result, logs each
// applied resolution, and splices them into the merged text. Manual
// resolutions leave their markers in place.
func resolveAll(ctx context.Context, file string, result types.MergeResult, p resolvePolicy) (resolveReport, error) {
	rep := resolveReport{
		File:       file,
		Conflicts:  len(result.Conflicts),
		Resolved:   []types.Resolution{},
		Unresolved: []types.Conflict{},
		LogIDs:     []string{},
	}

	// A strategy error aborts before anything is logged.
	resolutions := make([]types.Resolution, 0, len(result.Conflicts))
	for _, c := range result.Conflicts {
		r, err := resolve.ResolveConflict(c, p.strategy, p.rules, resolve.WithStyle(p.style))
		if err != nil {
			if !p.fallbackManual || !(errors.Is(err, types.ErrNoMatchingRule) || errors.Is(err, types.ErrMissingTimestamp)) {
				return rep, fmt.Errorf("%s: %w", file, err)
			}
			debug.Logf("merge: %s: %v, leaving conflict for manual resolution", c.ID, err)
			if r, err = resolve.ResolveConflict(c, types.StrategyManual, nil, resolve.WithStyle(p.style)); err != nil {
				return rep, fmt.Errorf("%s: %w", file, err)
			}
		}
		resolutions = append(resolutions, r)
	}

	for i, r := range resolutions {
		if r.Strategy == types.StrategyManual || p.store == nil {
			continue
		}
		c := result.Conflicts[i]
		logID, err := p.store.Log(ctx, c, r, file)
		if err != nil {
			return rep, fmt.Errorf("%s: record resolution: %w", file, err)
		}
		rep.LogIDs = append(rep.LogIDs, logID)
		debug.LogEvent(eventDir(p.store), "merge.resolved", c.ID, fmt.Sprintf("%s %s %s", file, r.Strategy, logID))
	}

	text, unresolved, err := resolve.Apply(result, resolutions)
	if err != nil {
		return rep, fmt.Errorf("%s: %w", file, err)
	}
	for _, r := range resolutions {
		if r.Strategy != types.StrategyManual {
			rep.Resolved = append(rep.Resolved, r)
		}
	}
	rep.Unresolved = append(rep.Unresolved, unresolved...)
	rep.text = text
	return rep, nil
}

// policyFromFlags builds a resolvePolicy from merge/batch flags and config.
func policyFromFlags(ctx context.Context, strategyName, rulesFile, styleName string, fallbackManual, noHistory bool) (resolvePolicy, error) {
	strategy, err := strategyFlag(strategyName)
	if err != nil {
		return resolvePolicy{}, err
	}
	rules, err := loadRuleSet(rulesFile)
	if err != nil {
		return resolvePolicy{}, err
	}
	if strategy == types.StrategyRulesBased && rules == nil {
		return resolvePolicy{}, &types.InvalidInputError{Field: "--rules", Reason: "is required for the rules strategy"}
	}
	style := config.GetMergeStyle()
	if styleName != "" {
		style = merge.Style(styleName)
		if !style.IsValid() {
			return resolvePolicy{}, &types.InvalidInputError{Field: "--style", Reason: fmt.Sprintf("must be merge or diff3, got %q", styleName)}
		}
	}
	p := resolvePolicy{strategy: strategy, rules: rules, style: style, fallbackManual: fallbackManual}
	if strategy != types.StrategyManual && !noHistory {
		if p.store, err = openHistory(ctx); err != nil {
			return resolvePolicy{}, err
		}
	}
	return p, nil
}

// printReport writes the human summary for one merged document.
func printReport(w io.Writer, rep resolveReport) {
	if debug.IsQuiet() {
		return
	}
	switch {
	case rep.Conflicts == 0:
		fmt.Fprintf(w, "%s %s merged cleanly\n", ui.RenderPassIcon(), rep.File)
	case len(rep.Unresolved) == 0:
		fmt.Fprintf(w, "%s %s: resolved %d conflict(s)\n", ui.RenderPassIcon(), rep.File, len(rep.Resolved))
	default:
		fmt.Fprintf(w, "%s %s: %d of %d conflict(s) need manual resolution\n",
			ui.RenderConflictIcon(), rep.File, len(rep.Unresolved), rep.Conflicts)
		for _, c := range rep.Unresolved {
			fmt.Fprintf(w, "  %s %s lines %d-%d\n", ui.RenderConflict(c.ID), c.Section, c.StartLine+1, c.EndLine+1)
		}
	}
}

func newMergeCmd() *cobra.Command {
	var (
		outPath        string
		strategyName   string
		rulesFile      string
		styleName      string
		label          string
		fallbackManual bool
		noHistory      bool
	)

	cmd := &cobra.Command{
		Use:     "merge BASE LOCAL REMOTE",
		GroupID: groupMerge,
		Short:   "Three-way merge one document",
		Long: `Merge LOCAL and REMOTE against their common BASE.

Conflicts are resolved with --strategy (newest, local, remote, rules, manual).
Manual leaves git-style conflict markers in the output. Every automatic
resolution is recorded in the conflict history.

Exits 1 if conflict markers remain in the output.`,
		Example: `  dm merge base.md mine.md theirs.md -o merged.md
  dm merge base.md mine.md theirs.md --strategy newest
  dm merge base.md mine.md theirs.md --strategy rules --rules rules.yaml --fallback-manual`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			base, _, err := readVersion(args[0], false)
			if err != nil {
				return err
			}
			local, localTime, err := readVersion(args[1], false)
			if err != nil {
				return err
			}
			remote, remoteTime, err := readVersion(args[2], false)
			if err != nil {
				return err
			}

			p, err := policyFromFlags(ctx, strategyName, rulesFile, styleName, fallbackManual, noHistory)
			if err != nil {
				return err
			}
			if label == "" {
				label = args[1]
			}

			result, err := merge.ThreeWayMerge(base, local, remote,
				merge.WithLabel(label),
				merge.WithStyle(p.style),
				merge.WithContextLines(config.GetContextLines()),
				merge.WithTimestamps(localTime, remoteTime),
			)
			if err != nil {
				return err
			}
			rep, err := resolveAll(ctx, label, result, p)
			if err != nil {
				return err
			}

			if outPath != "" {
				if err := writeOutput(outPath, rep.text); err != nil {
					return err
				}
				rep.Output = outPath
			}

			switch {
			case jsonOutput:
				if outPath == "" {
					rep.Merged = rep.text
				}
				if err := outputJSON(cmd.OutOrStdout(), rep); err != nil {
					return err
				}
			case outPath == "":
				fmt.Fprint(cmd.OutOrStdout(), rep.text)
				printReport(cmd.ErrOrStderr(), rep)
			default:
				printReport(cmd.OutOrStdout(), rep)
			}

			if n := len(rep.Unresolved); n > 0 {
				return fmt.Errorf("%w: %d in %s", errUnresolved, n, label)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Write the merged document here (default: stdout)")
	cmd.Flags().StringVarP(&strategyName, "strategy", "s", "", "Conflict strategy: newest, local, remote, rules, manual (default: conflict.strategy)")
	cmd.Flags().StringVar(&rulesFile, "rules", "", "Rules file (.yaml or .toml) for the rules strategy")
	cmd.Flags().StringVar(&styleName, "style", "", "Conflict marker style: merge or diff3 (default: merge.style)")
	cmd.Flags().StringVar(&label, "label", "", "Document name recorded in history (default: LOCAL path)")
	cmd.Flags().BoolVar(&fallbackManual, "fallback-manual", false, "Leave markers instead of failing when a strategy cannot decide")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record resolutions")
	return cmd
}
