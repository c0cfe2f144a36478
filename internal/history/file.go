package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gofrs/flock"

	"github.com/steveyegge/docmerge/internal/debug"
	"github.com/steveyegge/docmerge/internal/types"
)

// lockSuffix is appended to the history path to name its lock file.
const lockSuffix = ".lock"

// OpenFileStore opens (or creates on first write) a store backed by the JSON
// file at path. The file holds a single array of entries.
func OpenFileStore(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, &types.InvalidInputError{Field: "path"}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("history: resolve %s: %w", path, err)
	}

	s := newStore(opts)
	s.path = abs
	s.lock = newFileLock(abs + lockSuffix)

	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	debug.Logf("history: opened %s (%d entries)", abs, len(s.entries))
	return s, nil
}

// Reload re-reads the backing file under a shared lock. It is a no-op for
// in-memory stores.
func (s *Store) Reload(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.acquire(ctx, false, s.lockTimeout); err != nil {
		return err
	}
	defer func() { _ = s.lock.release() }()

	entries, err := readEntries(s.path)
	if err != nil {
		return err
	}
	s.reindex(entries)
	return nil
}

// readEntries loads the history file. A missing or empty file is an empty history.
func readEntries(path string) ([]types.HistoryEntry, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is the configured history file
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var entries []types.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("history: parse %s: %w", path, err)
	}
	return entries, nil
}

// writeEntries replaces the history file atomically via a temp file and rename.
func writeEntries(path string, entries []types.HistoryEntry) error {
	if entries == nil {
		entries = []types.HistoryEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("history: encode: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("history: create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("history: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("history: write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("history: sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("history: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("history: replace %s: %w", path, err)
	}
	return nil
}

var errLockBusy = errors.New("lock held by another process")

// fileLock coordinates history file access between processes.
// Writers take it exclusively, readers shared.
type fileLock struct {
	flock *flock.Flock
}

func newFileLock(path string) *fileLock {
	return &fileLock{flock: flock.New(path)}
}

func newLockBackoff(timeout time.Duration) backoff.BackOff {
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 25 * time.Millisecond
	bo.MaxInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = timeout
	return bo
}

// acquire polls for the lock until it is held, the timeout elapses or ctx is done.
func (l *fileLock) acquire(ctx context.Context, exclusive bool, timeout time.Duration) error {
	lockType := "shared"
	if exclusive {
		lockType = "exclusive"
	}
	if err := os.MkdirAll(filepath.Dir(l.flock.Path()), 0o750); err != nil {
		return fmt.Errorf("history: create lock dir: %w", err)
	}

	try := func() error {
		var locked bool
		var err error
		if exclusive {
			locked, err = l.flock.TryLock()
		} else {
			locked, err = l.flock.TryRLock()
		}
		if err != nil {
			return backoff.Permanent(fmt.Errorf("history: acquire %s lock: %w", lockType, err))
		}
		if !locked {
			return errLockBusy
		}
		return nil
	}

	start := time.Now()
	var err error
	if timeout <= 0 {
		err = try()
	} else {
		err = backoff.Retry(try, backoff.WithContext(newLockBackoff(timeout), ctx))
	}
	if errors.Is(err, errLockBusy) {
		return fmt.Errorf("history: timeout waiting for %s lock on %s after %v (another process may be writing - try again in a moment)",
			lockType, l.flock.Path(), time.Since(start).Round(time.Millisecond))
	}
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return perm.Err
		}
		return err
	}
	debug.Logf("history: acquired %s lock %s after %v", lockType, l.flock.Path(), time.Since(start))
	return nil
}

func (l *fileLock) release() error {
	return l.flock.Unlock()
}
