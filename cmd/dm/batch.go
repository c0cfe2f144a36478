package main

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/docmerge/internal/batch"
	"github.com/steveyegge/docmerge/internal/config"
	"github.com/steveyegge/docmerge/internal/debug"
	"github.com/steveyegge/docmerge/internal/merge"
	"github.com/steveyegge/docmerge/internal/ui"
)

// dirSource serves document versions from three parallel directory trees.
// Document IDs are slash-separated paths relative to each root.
type dirSource struct {
	baseDir, localDir, remoteDir string
}

func (s dirSource) Base(_ context.Context, id string) (*string, error) {
	v, _, err := readVersion(filepath.Join(s.baseDir, filepath.FromSlash(id)), true)
	return v, err
}

func (s dirSource) Local(_ context.Context, id string) (*string, error) {
	v, _, err := readVersion(filepath.Join(s.localDir, filepath.FromSlash(id)), true)
	return v, err
}

func (s dirSource) Remote(_ context.Context, id string) (*string, error) {
	v, _, err := readVersion(filepath.Join(s.remoteDir, filepath.FromSlash(id)), true)
	return v, err
}

// ModTimes implements batch.Timestamper from file modification times.
func (s dirSource) ModTimes(_ context.Context, id string) (time.Time, time.Time, error) {
	_, lt, err := readVersion(filepath.Join(s.localDir, filepath.FromSlash(id)), false)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	_, rt, err := readVersion(filepath.Join(s.remoteDir, filepath.FromSlash(id)), false)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return lt, rt, nil
}

// documentIDs lists files with one of exts under the local and remote
// roots, deduplicated and sorted.
func (s dirSource) documentIDs(exts []string) ([]string, error) {
	seen := make(map[string]bool)
	for _, root := range []string{s.localDir, s.remoteDir} {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if !hasExt(path, exts) {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			seen[filepath.ToSlash(rel)] = true
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", root, err)
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func hasExt(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// batchFile is one document in the batch JSON report.
type batchFile struct {
	resolveReport
	Error string `json:"error,omitempty"`
}

type batchReport struct {
	Summary batch.Summary `json:"summary"`
	Files   []batchFile   `json:"files"`
}

func newBatchCmd() *cobra.Command {
	var (
		outDir         string
		strategyName   string
		rulesFile      string
		styleName      string
		workers        int
		exts           []string
		fallbackManual bool
		noHistory      bool
	)

	cmd := &cobra.Command{
		Use:     "batch BASEDIR LOCALDIR REMOTEDIR",
		GroupID: groupMerge,
		Short:   "Merge every document in three directory trees",
		Long: `Merge each document found under LOCALDIR or REMOTEDIR against the file at
the same relative path under BASEDIR, writing results under --output.

A document missing from any of the three trees fails on its own without
stopping the others.`,
		Example: `  dm batch base/ mine/ theirs/ -o merged/ --strategy newest`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			src := dirSource{baseDir: args[0], localDir: args[1], remoteDir: args[2]}

			normalized := make([]string, len(exts))
			for i, e := range exts {
				normalized[i] = "." + strings.TrimPrefix(strings.ToLower(e), ".")
			}
			ids, err := src.documentIDs(normalized)
			if err != nil {
				return err
			}

			p, err := policyFromFlags(ctx, strategyName, rulesFile, styleName, fallbackManual, noHistory)
			if err != nil {
				return err
			}
			if workers <= 0 {
				workers = config.GetBatchWorkers()
			}

			results, err := batch.Run(ctx, src, ids, batch.Options{
				Workers: workers,
				MergeOptions: []merge.Option{
					merge.WithStyle(p.style),
					merge.WithContextLines(config.GetContextLines()),
				},
			})
			if err != nil {
				return err
			}

			report := batchReport{Summary: batch.Summarize(results), Files: make([]batchFile, 0, len(results))}
			unresolved := 0
			for _, r := range results {
				f := batchFile{resolveReport: resolveReport{File: r.ID}}
				if r.Err != nil {
					f.Error = r.Err.Error()
					report.Files = append(report.Files, f)
					continue
				}
				rep, err := resolveAll(ctx, r.ID, r.Merge, p)
				if err != nil {
					f.Error = err.Error()
					report.Summary.Failed++
					report.Files = append(report.Files, f)
					continue
				}
				out := filepath.Join(outDir, filepath.FromSlash(r.ID))
				if err := writeOutput(out, rep.text); err != nil {
					return err
				}
				rep.Output = out
				unresolved += len(rep.Unresolved)
				f.resolveReport = rep
				report.Files = append(report.Files, f)
				debug.Logf("batch: %s done in %v", r.ID, r.Elapsed)
			}

			w := cmd.OutOrStdout()
			if jsonOutput {
				if err := outputJSON(w, report); err != nil {
					return err
				}
			} else {
				for _, f := range report.Files {
					if f.Error != "" {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", ui.RenderFailIcon(), f.Error)
						continue
					}
					printReport(w, f.resolveReport)
				}
				if s := report.Summary; !debug.IsQuiet() {
					fmt.Fprintf(w, "\n%d file(s): %d clean, %d with conflicts, %d failed\n", s.Files, s.Clean, s.Conflicted, s.Failed)
				}
			}

			switch {
			case report.Summary.Failed > 0:
				return fmt.Errorf("%d of %d document(s) failed", report.Summary.Failed, report.Summary.Files)
			case unresolved > 0:
				return fmt.Errorf("%w: %d across %d document(s)", errUnresolved, unresolved, report.Summary.Conflicted)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "output", "o", "", "Directory for merged documents (required)")
	cmd.Flags().StringVarP(&strategyName, "strategy", "s", "", "Conflict strategy (default: conflict.strategy)")
	cmd.Flags().StringVar(&rulesFile, "rules", "", "Rules file (.yaml or .toml) for the rules strategy")
	cmd.Flags().StringVar(&styleName, "style", "", "Conflict marker style: merge or diff3")
	cmd.Flags().IntVarP(&workers, "workers", "j", 0, "Concurrent merges (default: batch.workers)")
	cmd.Flags().StringSliceVar(&exts, "ext", []string{".md", ".markdown"}, "File extensions to merge")
	cmd.Flags().BoolVar(&fallbackManual, "fallback-manual", false, "Leave markers instead of failing when a strategy cannot decide")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record resolutions")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
