package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"video-creator/internal/logging"
	"video-creator/internal/metrics"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const lockFileName = ".lock"

// Release reasons, used as metric labels.
const (
	ReasonRequest  = "request"
	ReasonJanitor  = "janitor"
	ReasonOrphan   = "orphan"
	ReasonShutdown = "shutdown"
)

// StorageError reports that session storage could not be created or written.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("session storage: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Session is one request's private working directory.
type Session struct {
	ID        string
	Root      string
	CreatedAt time.Time

	mu        sync.Mutex
	artifacts []string
}

// Path returns the absolute path of name inside the session root.
func (s *Session) Path(name string) string {
	return filepath.Join(s.Root, name)
}

// Register records name as an artifact of this session and returns its path.
func (s *Session) Register(name string) string {
	s.mu.Lock()
	s.artifacts = append(s.artifacts, name)
	s.mu.Unlock()
	return s.Path(name)
}

// Artifacts returns the registered artifact names in registration order.
func (s *Session) Artifacts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.artifacts))
	copy(out, s.artifacts)
	return out
}

// Entry is a registry view of one session.
type Entry struct {
	ID        string
	Root      string
	CreatedAt time.Time
}

// Age returns how old the entry is at now.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}

// Store allocates and reclaims sessions under a single work root and keeps
// the process-wide registry of live sessions.
type Store struct {
	root string
	lock *flock.Flock

	mu   sync.Mutex
	live map[string]Entry

	now   func() time.Time
	newID func() string
}

// NewStore creates root if needed and takes an exclusive lock on it.
// It fails if another process already owns root.
func NewStore(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, &StorageError{Op: "resolve", Path: root, Err: err}
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, &StorageError{Op: "mkdir", Path: abs, Err: err}
	}

	lock := flock.New(filepath.Join(abs, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, &StorageError{Op: "lock", Path: abs, Err: err}
	}
	if !locked {
		return nil, &StorageError{Op: "lock", Path: abs, Err: fmt.Errorf("work directory is in use by another process")}
	}

	return &Store{
		root:  abs,
		lock:  lock,
		live:  make(map[string]Entry),
		now:   time.Now,
		newID: uuid.NewString,
	}, nil
}

// Root returns the absolute work root.
func (s *Store) Root() string {
	return s.root
}

// Close releases the work root lock. Live sessions are left on disk for the
// next process's janitor.
func (s *Store) Close() error {
	return s.lock.Unlock()
}

// Open allocates a fresh session directory and registers it.
func (s *Store) Open() (*Session, error) {
	id := s.newID()
	root := filepath.Join(s.root, id)

	s.mu.Lock()
	if _, exists := s.live[id]; exists {
		s.mu.Unlock()
		return nil, &StorageError{Op: "open", Path: root, Err: fmt.Errorf("session id collision")}
	}
	// Mkdir, not MkdirAll: an existing directory means the id is not fresh.
	if err := os.Mkdir(root, 0o755); err != nil {
		s.mu.Unlock()
		return nil, &StorageError{Op: "mkdir", Path: root, Err: err}
	}
	created := s.now()
	s.live[id] = Entry{ID: id, Root: root, CreatedAt: created}
	s.mu.Unlock()

	metrics.SessionsOpenedTotal.Inc()
	metrics.SessionsActive.Inc()
	logging.Debug("Opened session %s at %s", id, root)

	return &Session{ID: id, Root: root, CreatedAt: created}, nil
}

// Release removes the session identified by an ID or its root path.
// It is safe to call any number of times; only the call that actually
// unregisters the session returns true. Removal errors are logged and never
// returned to the caller.
func (s *Store) Release(idOrRoot string, reason string) bool {
	id, ok := s.resolve(idOrRoot)
	if !ok {
		return false
	}

	s.mu.Lock()
	entry, registered := s.live[id]
	delete(s.live, id)
	s.mu.Unlock()

	if !registered {
		return false
	}

	s.remove(entry.Root)

	metrics.SessionsActive.Dec()
	metrics.SessionsReleasedTotal.WithLabelValues(reason).Inc()
	metrics.SessionAgeAtRelease.Observe(entry.Age(s.now()).Seconds())
	logging.Debug("Released session %s (%s)", id, reason)
	return true
}

// ReleaseOrphan removes a session directory that is not in the registry.
func (s *Store) ReleaseOrphan(e Entry) bool {
	s.mu.Lock()
	_, registered := s.live[e.ID]
	s.mu.Unlock()
	if registered {
		return false
	}
	if _, err := os.Lstat(e.Root); os.IsNotExist(err) {
		return false
	}

	s.remove(e.Root)
	metrics.SessionsReleasedTotal.WithLabelValues(ReasonOrphan).Inc()
	logging.Info("Removed orphaned session directory %s", e.Root)
	return true
}

func (s *Store) remove(root string) {
	if err := os.RemoveAll(root); err != nil {
		metrics.SessionReleaseErrors.Inc()
		logging.Error("Failed to fully remove session directory %s: %v", root, err)
	}
}

// resolve maps an ID or a root path under the work root to a session ID.
func (s *Store) resolve(idOrRoot string) (string, bool) {
	if idOrRoot == "" {
		return "", false
	}
	if !filepath.IsAbs(idOrRoot) && filepath.Base(idOrRoot) == idOrRoot {
		return idOrRoot, true
	}

	abs, err := filepath.Abs(idOrRoot)
	if err != nil {
		return "", false
	}
	if filepath.Dir(abs) != s.root {
		return "", false
	}
	return filepath.Base(abs), true
}

// Snapshot returns a copy of the registry.
func (s *Store) Snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.live))
	for _, e := range s.live {
		out = append(out, e)
	}
	return out
}

// Len returns the number of registered sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// Exists reports whether the session is registered.
func (s *Store) Exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.live[id]
	return ok
}

// Orphans lists session-shaped directories under the work root that are not
// registered, using the directory modification time as their creation time.
// Directories that vanish while being listed are skipped.
func (s *Store) Orphans() ([]Entry, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, &StorageError{Op: "readdir", Path: s.root, Err: err}
	}

	s.mu.Lock()
	registered := make(map[string]bool, len(s.live))
	for id := range s.live {
		registered[id] = true
	}
	s.mu.Unlock()

	var orphans []Entry
	for _, entry := range entries {
		if !entry.IsDir() || registered[entry.Name()] {
			continue
		}
		if _, err := uuid.Parse(entry.Name()); err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		orphans = append(orphans, Entry{
			ID:        entry.Name(),
			Root:      filepath.Join(s.root, entry.Name()),
			CreatedAt: info.ModTime(),
		})
	}
	return orphans, nil
}

// DiskUsage returns the total size of regular files under the work root.
func (s *Store) DiskUsage() int64 {
	var size int64
	_ = filepath.WalkDir(s.root, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			// Sessions may be released mid-walk
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				size += info.Size()
			}
		}
		return nil
	})
	return size
}
