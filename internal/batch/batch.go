// Package batch merges many documents concurrently with a bounded worker pool.
//
// Merges share no state, so workers need no coordination beyond the pool
// limit. A failed document does not stop the others; its error is reported
// on its own Result.
package batch

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/docmerge/internal/debug"
	"github.com/steveyegge/docmerge/internal/merge"
	"github.com/steveyegge/docmerge/internal/telemetry"
	"github.com/steveyegge/docmerge/internal/types"
)

// VersionSource supplies the three versions of a document. A nil string
// means the version is absent, which fails that document with
// *types.InvalidInputError.
type VersionSource interface {
	Base(ctx context.Context, id string) (*string, error)
	Local(ctx context.Context, id string) (*string, error)
	Remote(ctx context.Context, id string) (*string, error)
}

// Timestamper is implemented by sources that know when each side was last
// modified. The times are recorded on conflicts for the newest strategy.
type Timestamper interface {
	ModTimes(ctx context.Context, id string) (local, remote time.Time, err error)
}

// Options configures Run.
type Options struct {
	// Workers bounds concurrent merges. Zero uses runtime.NumCPU().
	Workers int
	// MergeOptions are applied to every merge, after the per-document label.
	MergeOptions []merge.Option
}

// Result is the outcome for one document.
type Result struct {
	ID      string
	Merge   types.MergeResult
	Err     error
	Elapsed time.Duration
}

// Summary counts outcomes across a batch.
type Summary struct {
	Files      int
	Clean      int
	Conflicted int
	Failed     int
	Conflicts  int
}

// Summarize tallies results.
func Summarize(results []Result) Summary {
	s := Summary{Files: len(results)}
	for _, r := range results {
		switch {
		case r.Err != nil:
			s.Failed++
		case r.Merge.HasConflicts:
			s.Conflicted++
			s.Conflicts += len(r.Merge.Conflicts)
		default:
			s.Clean++
		}
	}
	return s
}

// Run merges every id from src and returns results in the order of ids.
// The returned error is non-nil only when ctx is cancelled, in which case
// documents that never started have a zero Result.
func Run(ctx context.Context, src VersionSource, ids []string, opts Options) (results []Result, err error) {
	inst := telemetry.NewInstrument("batch", "files", "conflicts")
	ctx, op := inst.Start(ctx, "run", attribute.Int("dm.batch.size", len(ids)))
	defer func() { op.End(err) }()

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results = make([]Result, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	start := time.Now()
	for i, id := range ids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = mergeOne(gctx, src, id, opts.MergeOptions)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}

	sum := Summarize(results)
	op.Add("files", int64(sum.Files))
	op.Add("conflicts", int64(sum.Conflicts))
	debug.Logf("batch: %d files in %v with %d workers (%d clean, %d conflicted, %d failed)",
		sum.Files, time.Since(start), workers, sum.Clean, sum.Conflicted, sum.Failed)
	return results, nil
}

func mergeOne(ctx context.Context, src VersionSource, id string, extra []merge.Option) Result {
	start := time.Now()
	res := Result{ID: id}

	base, err := src.Base(ctx, id)
	if err != nil {
		res.Err = fmt.Errorf("%s: read base: %w", id, err)
		return res
	}
	local, err := src.Local(ctx, id)
	if err != nil {
		res.Err = fmt.Errorf("%s: read local: %w", id, err)
		return res
	}
	remote, err := src.Remote(ctx, id)
	if err != nil {
		res.Err = fmt.Errorf("%s: read remote: %w", id, err)
		return res
	}

	opts := []merge.Option{merge.WithLabel(id)}
	if ts, ok := src.(Timestamper); ok {
		lt, rt, err := ts.ModTimes(ctx, id)
		if err != nil {
			debug.Logf("batch: %s: no modification times: %v", id, err)
		} else {
			opts = append(opts, merge.WithTimestamps(lt, rt))
		}
	}
	opts = append(opts, extra...)

	res.Merge, res.Err = merge.ThreeWayMerge(base, local, remote, opts...)
	if res.Err != nil {
		res.Err = fmt.Errorf("%s: %w", id, res.Err)
	}
	res.Elapsed = time.Since(start)
	return res
}
