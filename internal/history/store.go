// Package history keeps an append-only ledger of conflicts and their resolutions.
//
// A Store is either in-memory or backed by a single JSON file; the mode is
// fixed when the store is constructed. Entries are never removed except by
// Clear. Undo flags an entry as reverted and Replay appends a new entry, so
// the ledger always shows what happened.
package history

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/steveyegge/docmerge/internal/debug"
	"github.com/steveyegge/docmerge/internal/resolve"
	"github.com/steveyegge/docmerge/internal/telemetry"
	"github.com/steveyegge/docmerge/internal/types"
)

// DefaultLockTimeout bounds how long file-backed stores wait for the file lock.
const DefaultLockTimeout = 10 * time.Second

// Filter selects history entries. Every non-zero field must match.
type Filter struct {
	Strategy types.Strategy
	FilePath string
	// From and To bound LoggedAt inclusively. Zero means unbounded.
	From time.Time
	To   time.Time
	// ExcludeReverted hides entries that were undone.
	ExcludeReverted bool
}

// Store is a conflict history ledger. It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	entries    []types.HistoryEntry
	byID       map[string]int
	byStrategy map[types.Strategy][]int
	byFile     map[string][]int
	lastLogged time.Time

	// file mode only
	path        string
	lock        *fileLock
	lockTimeout time.Duration
	write       func(path string, entries []types.HistoryEntry) error

	now   func() time.Time
	newID func() (string, error)
	inst  *telemetry.Instrument
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for LoggedAt and RevertedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces the UUIDv7 log ID generator.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithLockTimeout sets how long a file-backed store waits for its lock.
// Zero means try once.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d >= 0 {
			s.lockTimeout = d
		}
	}
}

func newStore(opts []Option) *Store {
	s := &Store{
		now:         time.Now,
		newID:       newLogID,
		lockTimeout: DefaultLockTimeout,
		write:       writeEntries,
		inst:        telemetry.NewInstrument("history", "entries"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reindex(nil)
	return s
}

// NewMemoryStore returns a store that lives for the lifetime of the process.
func NewMemoryStore(opts ...Option) *Store {
	return newStore(opts)
}

func newLogID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Path returns the backing file, or "" for an in-memory store.
func (s *Store) Path() string {
	return s.path
}

// Log appends a conflict and its resolution and returns the new log ID.
func (s *Store) Log(ctx context.Context, c types.Conflict, r types.Resolution, filePath string) (logID string, err error) {
	ctx, op := s.inst.Start(ctx, "log", attribute.String("dm.strategy", string(r.Strategy)))
	defer func() { op.End(err) }()

	if err := c.Validate(); err != nil {
		return "", err
	}
	if !r.Strategy.IsValid() {
		return "", &types.UnsupportedStrategyError{Name: string(r.Strategy)}
	}

	err = s.mutate(ctx, func() error {
		e, err := s.appendLocked(c, r, filePath, "")
		if err != nil {
			return err
		}
		logID = e.LogID
		return nil
	})
	if err != nil {
		return "", err
	}
	op.Add("entries", 1)
	debug.Logf("history: logged %s (conflict %s, strategy %s)", logID, c.ID, r.Strategy)
	return logID, nil
}

// appendLocked must be called with s.mu held for writing.
func (s *Store) appendLocked(c types.Conflict, r types.Resolution, filePath, replayOf string) (types.HistoryEntry, error) {
	id, err := s.newID()
	if err != nil {
		return types.HistoryEntry{}, fmt.Errorf("history: generate log id: %w", err)
	}
	if _, dup := s.byID[id]; dup {
		return types.HistoryEntry{}, fmt.Errorf("history: duplicate log id %s", id)
	}

	e := types.HistoryEntry{
		LogID:      id,
		FilePath:   filePath,
		Conflict:   c.Clone(),
		Resolution: r.Clone(),
		LoggedAt:   s.nextTimestamp(),
		ReplayOf:   replayOf,
	}
	s.entries = append(s.entries, e)
	s.index(len(s.entries) - 1)
	return e, nil
}

// nextTimestamp returns a LoggedAt strictly after every earlier entry.
func (s *Store) nextTimestamp() time.Time {
	t := s.now().UTC()
	if !t.After(s.lastLogged) {
		t = s.lastLogged.Add(time.Nanosecond)
	}
	s.lastLogged = t
	return t
}

// GetHistory returns copies of the entries matching f, oldest first.
func (s *Store) GetHistory(f Filter) []types.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := s.candidates(f)
	out := make([]types.HistoryEntry, 0, len(candidates))
	for _, i := range candidates {
		e := s.entries[i]
		if f.matches(e) {
			out = append(out, e.Clone())
		}
	}
	return out
}

// candidates narrows the scan using the smallest applicable index.
func (s *Store) candidates(f Filter) []int {
	var best []int
	have := false
	if f.Strategy != "" {
		best, have = s.byStrategy[f.Strategy], true
	}
	if f.FilePath != "" {
		if idx := s.byFile[f.FilePath]; !have || len(idx) < len(best) {
			best, have = idx, true
		}
	}
	if have {
		return best
	}
	all := make([]int, len(s.entries))
	for i := range all {
		all[i] = i
	}
	return all
}

func (f Filter) matches(e types.HistoryEntry) bool {
	if f.Strategy != "" && e.Resolution.Strategy != f.Strategy {
		return false
	}
	if f.FilePath != "" && e.FilePath != f.FilePath {
		return false
	}
	if !f.From.IsZero() && e.LoggedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.LoggedAt.After(f.To) {
		return false
	}
	if f.ExcludeReverted && e.Reverted {
		return false
	}
	return true
}

// Get returns a copy of one entry.
func (s *Store) Get(logID string) (types.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[logID]
	if !ok {
		return types.HistoryEntry{}, &types.HistoryNotFoundError{LogID: logID}
	}
	return s.entries[i].Clone(), nil
}

// Undo marks an entry reverted and returns its conflict, which is
// considered unresolved again. Undoing a reverted entry is a no-op.
func (s *Store) Undo(ctx context.Context, logID string) (c types.Conflict, err error) {
	ctx, op := s.inst.Start(ctx, "undo")
	defer func() { op.End(err) }()

	err = s.mutate(ctx, func() error {
		i, ok := s.byID[logID]
		if !ok {
			return &types.HistoryNotFoundError{LogID: logID}
		}
		e := &s.entries[i]
		if !e.Reverted {
			at := s.now().UTC()
			e.Reverted = true
			e.RevertedAt = &at
		}
		c = e.Conflict.Clone()
		return nil
	})
	if err != nil {
		return types.Conflict{}, err
	}
	debug.Logf("history: reverted %s", logID)
	return c, nil
}

// Replay resolves the conflict of an existing entry again with strategy and
// logs the outcome as a new entry. The original entry is left untouched.
func (s *Store) Replay(ctx context.Context, logID string, strategy types.Strategy, rules *resolve.RuleSet, opts ...resolve.Option) (res types.Resolution, err error) {
	ctx, op := s.inst.Start(ctx, "replay", attribute.String("dm.strategy", string(strategy)))
	defer func() { op.End(err) }()

	err = s.mutate(ctx, func() error {
		i, ok := s.byID[logID]
		if !ok {
			return &types.HistoryNotFoundError{LogID: logID}
		}
		orig := s.entries[i]

		r, err := resolve.ResolveConflict(orig.Conflict, strategy, rules, opts...)
		if err != nil {
			return err
		}
		if _, err := s.appendLocked(orig.Conflict, r, orig.FilePath, orig.LogID); err != nil {
			return err
		}
		res = r.Clone()
		return nil
	})
	if err != nil {
		return types.Resolution{}, err
	}
	op.Add("entries", 1)
	debug.Logf("history: replayed %s with %s", logID, strategy)
	return res, nil
}

// Count returns the number of entries, reverted ones included.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear removes every entry. It cannot be undone.
func (s *Store) Clear(ctx context.Context) (err error) {
	ctx, op := s.inst.Start(ctx, "clear")
	defer func() { op.End(err) }()

	return s.mutate(ctx, func() error {
		s.entries = nil
		s.reindex(nil)
		return nil
	})
}

// mutate runs fn under the write lock. In file mode the file is locked,
// re-read before fn and rewritten after it, so writers in other processes
// are not lost. If fn or the write fails the store keeps what was on disk.
func (s *Store) mutate(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return fn()
	}

	if err := s.lock.acquire(ctx, true, s.lockTimeout); err != nil {
		return err
	}
	defer func() { _ = s.lock.release() }()

	entries, err := readEntries(s.path)
	if err != nil {
		return err
	}
	s.reindex(entries)
	snapshot := cloneEntries(entries)

	if err := fn(); err != nil {
		s.reindex(snapshot)
		return err
	}
	if err := s.write(s.path, s.entries); err != nil {
		s.reindex(snapshot)
		return err
	}
	return nil
}

func cloneEntries(entries []types.HistoryEntry) []types.HistoryEntry {
	out := make([]types.HistoryEntry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}

// reindex replaces the entries and rebuilds every index.
func (s *Store) reindex(entries []types.HistoryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].LoggedAt.Before(entries[j].LoggedAt)
	})
	s.entries = entries
	s.byID = make(map[string]int, len(entries))
	s.byStrategy = make(map[types.Strategy][]int)
	s.byFile = make(map[string][]int)
	s.lastLogged = time.Time{}
	for i := range entries {
		s.index(i)
	}
}

func (s *Store) index(i int) {
	e := s.entries[i]
	s.byID[e.LogID] = i
	s.byStrategy[e.Resolution.Strategy] = append(s.byStrategy[e.Resolution.Strategy], i)
	if e.FilePath != "" {
		s.byFile[e.FilePath] = append(s.byFile[e.FilePath], i)
	}
	if e.LoggedAt.After(s.lastLogged) {
		s.lastLogged = e.LoggedAt
	}
}
