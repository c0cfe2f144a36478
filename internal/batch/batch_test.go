package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/docmerge/internal/merge"
	"github.com/steveyegge/docmerge/internal/types"
)

type doc struct {
	base, local, remote *string
}

// mapSource serves documents from memory and tracks peak concurrency.
type mapSource struct {
	docs    map[string]doc
	failIDs map[string]bool
	delay   time.Duration

	inFlight atomic.Int32
	peak     atomic.Int32
}

func str(s string) *string { return &s }

func (m *mapSource) enter() func() {
	n := m.inFlight.Add(1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	return func() { m.inFlight.Add(-1) }
}

func (m *mapSource) Base(ctx context.Context, id string) (*string, error) {
	defer m.enter()()
	if m.failIDs[id] {
		return nil, errors.New("disk on fire")
	}
	return m.docs[id].base, nil
}

func (m *mapSource) Local(ctx context.Context, id string) (*string, error) {
	return m.docs[id].local, nil
}

func (m *mapSource) Remote(ctx context.Context, id string) (*string, error) {
	return m.docs[id].remote, nil
}

type timedSource struct {
	*mapSource
	local, remote time.Time
}

func (s timedSource) ModTimes(ctx context.Context, id string) (time.Time, time.Time, error) {
	return s.local, s.remote, nil
}

func TestRunMixedOutcomes(t *testing.T) {
	src := &mapSource{
		docs: map[string]doc{
			"clean.md":    {str("a\nb"), str("a\nB"), str("a\nb")},
			"conflict.md": {str("a\nb"), str("a\nX"), str("a\nY")},
			"absent.md":   {str("a"), nil, str("a")},
			"binary.md":   {str("a"), str("a\x00b"), str("a")},
			"broken.md":   {},
		},
		failIDs: map[string]bool{"broken.md": true},
	}
	ids := []string{"clean.md", "conflict.md", "absent.md", "binary.md", "broken.md"}

	results, err := Run(context.Background(), src, ids, Options{Workers: 2})
	require.NoError(t, err)
	require.Len(t, results, len(ids))
	for i, r := range results {
		assert.Equal(t, ids[i], r.ID)
	}

	assert.NoError(t, results[0].Err)
	assert.Equal(t, "a\nB", results[0].Merge.Text())

	require.NoError(t, results[1].Err)
	assert.True(t, results[1].Merge.HasConflicts)

	assert.True(t, errors.Is(results[2].Err, types.ErrInvalidInput))
	assert.True(t, errors.Is(results[3].Err, types.ErrBinaryFile))
	assert.ErrorContains(t, results[4].Err, "read base")

	sum := Summarize(results)
	assert.Equal(t, Summary{Files: 5, Clean: 1, Conflicted: 1, Failed: 3, Conflicts: 1}, sum)
}

func TestRunLabelsConflictIDs(t *testing.T) {
	src := &mapSource{docs: map[string]doc{
		"a.md": {str("x"), str("L"), str("R")},
		"b.md": {str("x"), str("L"), str("R")},
	}}
	results, err := Run(context.Background(), src, []string{"a.md", "b.md"}, Options{})
	require.NoError(t, err)
	assert.NotEqual(t, results[0].Merge.Conflicts[0].ID, results[1].Merge.Conflicts[0].ID)
}

func TestRunRespectsWorkerLimit(t *testing.T) {
	docs := make(map[string]doc)
	var ids []string
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("doc-%02d.md", i)
		docs[id] = doc{str("a"), str("b"), str("a")}
		ids = append(ids, id)
	}
	src := &mapSource{docs: docs, delay: 5 * time.Millisecond}

	results, err := Run(context.Background(), src, ids, Options{Workers: 3})
	require.NoError(t, err)
	assert.Len(t, results, 20)
	assert.LessOrEqual(t, src.peak.Load(), int32(3))
	assert.Equal(t, 20, Summarize(results).Clean)
}

func TestRunPassesMergeOptionsAndTimestamps(t *testing.T) {
	lt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rt := lt.Add(time.Hour)
	src := timedSource{
		mapSource: &mapSource{docs: map[string]doc{"a.md": {str("x"), str("L"), str("R")}}},
		local:     lt,
		remote:    rt,
	}
	results, err := Run(context.Background(), src, []string{"a.md"}, Options{
		MergeOptions: []merge.Option{merge.WithStyle(merge.StyleDiff3)},
	})
	require.NoError(t, err)
	require.NoError(t, results[0].Err)

	c := results[0].Merge.Conflicts[0]
	require.NotNil(t, c.LocalModified)
	require.NotNil(t, c.RemoteModified)
	assert.True(t, c.LocalModified.Equal(lt))
	assert.True(t, c.RemoteModified.Equal(rt))
	assert.Contains(t, results[0].Merge.Text(), merge.MarkerBase)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &mapSource{docs: map[string]doc{"a.md": {str("a"), str("a"), str("a")}}}
	_, err := Run(ctx, src, []string{"a.md"}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunEmpty(t *testing.T) {
	results, err := Run(context.Background(), &mapSource{}, nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRunConcurrentSafety(t *testing.T) {
	// Many small batches at once must not interfere with each other.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("%d.md", i)
			src := &mapSource{docs: map[string]doc{id: {str("a\nb"), str("a\nL"), str("a\nb")}}}
			results, err := Run(context.Background(), src, []string{id}, Options{Workers: 1})
			assert.NoError(t, err)
			assert.Equal(t, "a\nL", results[0].Merge.Text())
		}(i)
	}
	wg.Wait()
}
