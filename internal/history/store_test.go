package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/docmerge/internal/resolve"
	"github.com/steveyegge/docmerge/internal/types"
)

func testConflict(id string) types.Conflict {
	return types.Conflict{
		ID:      id,
		Base:    []string{"b"},
		Local:   []string{"X"},
		Remote:  []string{"Y"},
		Section: types.SectionBody,
	}
}

func testResolution(t *testing.T, c types.Conflict, s types.Strategy) types.Resolution {
	t.Helper()
	r, err := resolve.ResolveConflict(c, s, nil)
	require.NoError(t, err)
	return r
}

// stepClock returns a clock that advances one minute per call.
func stepClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := cur
		cur = cur.Add(time.Minute)
		return t
	}
}

func TestLogUndoGetHistory(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	c1 := testConflict("c-1")
	id, err := s.Log(ctx, c1, testResolution(t, c1, types.StrategyLocal), "")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.Undo(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, c1, got)

	entries := s.GetHistory(Filter{})
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].LogID)
	assert.True(t, entries[0].Reverted)
	assert.NotNil(t, entries[0].RevertedAt)
	assert.Equal(t, 1, s.Count())
}

func TestUndoIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(WithClock(stepClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))))
	c := testConflict("c-1")
	id, err := s.Log(ctx, c, testResolution(t, c, types.StrategyRemote), "")
	require.NoError(t, err)

	_, err = s.Undo(ctx, id)
	require.NoError(t, err)
	first, err := s.Get(id)
	require.NoError(t, err)

	_, err = s.Undo(ctx, id)
	require.NoError(t, err)
	second, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, first.RevertedAt, second.RevertedAt)
}

func TestUnknownLogID(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Undo(ctx, "nope")
	assert.True(t, errors.Is(err, types.ErrHistoryNotFound))

	_, err = s.Replay(ctx, "nope", types.StrategyLocal, nil)
	var hnf *types.HistoryNotFoundError
	require.True(t, errors.As(err, &hnf))
	assert.Equal(t, "nope", hnf.LogID)

	_, err = s.Get("nope")
	assert.True(t, errors.Is(err, types.ErrHistoryNotFound))
}

func TestReplayDoesNotMutateOriginal(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c := testConflict("c-1")
	id, err := s.Log(ctx, c, testResolution(t, c, types.StrategyLocal), "doc.md")
	require.NoError(t, err)

	before := s.GetHistory(Filter{})
	require.Len(t, before, 1)

	res, err := s.Replay(ctx, id, types.StrategyRemote, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Y"}, res.ResolvedLines)

	after := s.GetHistory(Filter{})
	require.Len(t, after, 2)
	assert.Equal(t, before[0], after[0])

	replayed := after[1]
	assert.NotEqual(t, id, replayed.LogID)
	assert.Equal(t, id, replayed.ReplayOf)
	assert.Equal(t, "doc.md", replayed.FilePath)
	assert.Equal(t, types.StrategyRemote, replayed.Resolution.Strategy)
	assert.Equal(t, c, replayed.Conflict)
}

func TestReplayResolverErrorLogsNothing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c := testConflict("c-1")
	id, err := s.Log(ctx, c, testResolution(t, c, types.StrategyLocal), "")
	require.NoError(t, err)

	_, err = s.Replay(ctx, id, types.StrategyNewest, nil)
	assert.True(t, errors.Is(err, types.ErrMissingTimestamp))
	_, err = s.Replay(ctx, id, types.StrategyRulesBased, &resolve.RuleSet{})
	assert.True(t, errors.Is(err, types.ErrNoMatchingRule))
	assert.Equal(t, 1, s.Count())
}

func TestLogRejectsMalformedInput(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Log(ctx, types.Conflict{}, types.Resolution{Strategy: types.StrategyLocal}, "")
	assert.True(t, errors.Is(err, types.ErrInvalidInput))

	_, err = s.Log(ctx, testConflict("c-1"), types.Resolution{Strategy: "bogus"}, "")
	assert.True(t, errors.Is(err, types.ErrUnsupportedStrategy))
	assert.Zero(t, s.Count())
}

func TestGetHistoryFilters(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(WithClock(stepClock(start)))

	logs := []struct {
		file     string
		strategy types.Strategy
	}{
		{"a.md", types.StrategyLocal},  // 00:00
		{"b.md", types.StrategyRemote}, // 00:01
		{"a.md", types.StrategyRemote}, // 00:02
		{"a.md", types.StrategyLocal},  // 00:03
	}
	var ids []string
	for i, l := range logs {
		c := testConflict(fmt.Sprintf("c-%d", i))
		id, err := s.Log(ctx, c, testResolution(t, c, l.strategy), l.file)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	_, err := s.Undo(ctx, ids[3])
	require.NoError(t, err)

	tests := []struct {
		name string
		f    Filter
		want []string
	}{
		{name: "empty", f: Filter{}, want: ids},
		{name: "strategy", f: Filter{Strategy: types.StrategyRemote}, want: []string{ids[1], ids[2]}},
		{name: "file", f: Filter{FilePath: "a.md"}, want: []string{ids[0], ids[2], ids[3]}},
		{name: "strategy and file", f: Filter{Strategy: types.StrategyLocal, FilePath: "a.md"}, want: []string{ids[0], ids[3]}},
		{name: "from", f: Filter{From: start.Add(2 * time.Minute)}, want: []string{ids[2], ids[3]}},
		{name: "to", f: Filter{To: start.Add(time.Minute)}, want: []string{ids[0], ids[1]}},
		{name: "window", f: Filter{From: start.Add(time.Minute), To: start.Add(2 * time.Minute)}, want: []string{ids[1], ids[2]}},
		{name: "exclude reverted", f: Filter{FilePath: "a.md", ExcludeReverted: true}, want: []string{ids[0], ids[2]}},
		{name: "no match", f: Filter{FilePath: "c.md"}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := []string{}
			for _, e := range s.GetHistory(tt.f) {
				got = append(got, e.LogID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoggedAtIsMonotonic(t *testing.T) {
	ctx := context.Background()
	frozen := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(WithClock(func() time.Time { return frozen }))

	for i := 0; i < 5; i++ {
		c := testConflict(fmt.Sprintf("c-%d", i))
		_, err := s.Log(ctx, c, testResolution(t, c, types.StrategyLocal), "")
		require.NoError(t, err)
	}
	entries := s.GetHistory(Filter{})
	for i := 1; i < len(entries); i++ {
		assert.True(t, entries[i].LoggedAt.After(entries[i-1].LoggedAt))
	}
}

func TestReturnedEntriesAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c := testConflict("c-1")
	id, err := s.Log(ctx, c, testResolution(t, c, types.StrategyLocal), "")
	require.NoError(t, err)

	entries := s.GetHistory(Filter{})
	entries[0].Conflict.Local[0] = "mutated"
	entries[0].Resolution.ResolvedLines[0] = "mutated"

	e, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "X", e.Conflict.Local[0])
	assert.Equal(t, "X", e.Resolution.ResolvedLines[0])
}

func TestDuplicateIDRejected(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(WithIDGenerator(func() (string, error) { return "same", nil }))
	c := testConflict("c-1")
	_, err := s.Log(ctx, c, testResolution(t, c, types.StrategyLocal), "")
	require.NoError(t, err)
	_, err = s.Log(ctx, c, testResolution(t, c, types.StrategyLocal), "")
	assert.Error(t, err)
	assert.Equal(t, 1, s.Count())
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c := testConflict("c-1")
	id, err := s.Log(ctx, c, testResolution(t, c, types.StrategyLocal), "a.md")
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx))
	assert.Zero(t, s.Count())
	assert.Empty(t, s.GetHistory(Filter{FilePath: "a.md"}))
	_, err = s.Get(id)
	assert.True(t, errors.Is(err, types.ErrHistoryNotFound))
}

func TestConcurrentLog(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	const workers, perWorker = 8, 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				c := testConflict(fmt.Sprintf("c-%d-%d", w, i))
				_, err := s.Log(ctx, c, types.Resolution{ConflictID: c.ID, Strategy: types.StrategyLocal}, "")
				assert.NoError(t, err)
				_ = s.GetHistory(Filter{})
			}
		}(w)
	}
	wg.Wait()

	entries := s.GetHistory(Filter{})
	require.Len(t, entries, workers*perWorker)
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		assert.False(t, seen[e.LogID], "duplicate log id %s", e.LogID)
		seen[e.LogID] = true
		if i > 0 {
			assert.True(t, e.LoggedAt.After(entries[i-1].LoggedAt))
		}
	}
}
