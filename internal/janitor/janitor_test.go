package janitor

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"video-creator/internal/session"

	"github.com/google/uuid"
)

func newStore(t *testing.T) *session.Store {
	t.Helper()
	store, err := session.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSweepReclaimsExpiredSessions(t *testing.T) {
	store := newStore(t)
	old, err := store.Open()
	if err != nil {
		t.Fatal(err)
	}

	j := New(store, time.Hour, time.Minute)
	j.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	report := j.Sweep()

	if report.Scanned != 1 || report.Expired != 1 || report.Reclaimed != 1 {
		t.Errorf("Sweep() = %+v, want one session scanned, expired and reclaimed", report)
	}
	if _, err := os.Stat(old.Root); !os.IsNotExist(err) {
		t.Error("expired session directory still exists")
	}
	if store.Exists(old.ID) {
		t.Error("expired session still registered")
	}
}

func TestSweepKeepsFreshSessions(t *testing.T) {
	store := newStore(t)
	fresh, err := store.Open()
	if err != nil {
		t.Fatal(err)
	}

	report := New(store, time.Hour, time.Minute).Sweep()

	if report.Reclaimed != 0 || report.OrphansReclaimed != 0 {
		t.Errorf("Sweep() = %+v, want nothing reclaimed", report)
	}
	if !store.Exists(fresh.ID) {
		t.Error("fresh session was released")
	}
	if _, err := os.Stat(fresh.Root); err != nil {
		t.Errorf("fresh session directory missing: %v", err)
	}
}

func TestSweepReclaimsOrphans(t *testing.T) {
	store := newStore(t)

	orphan := filepath.Join(store.Root(), uuid.NewString())
	if err := os.MkdirAll(orphan, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(orphan, "output.mp4"), []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}
	stale := time.Now().Add(-3 * time.Hour)
	if err := os.Chtimes(orphan, stale, stale); err != nil {
		t.Fatal(err)
	}

	// Not session-shaped: must be left alone
	foreign := filepath.Join(store.Root(), "keep-me")
	if err := os.MkdirAll(foreign, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(foreign, stale, stale); err != nil {
		t.Fatal(err)
	}

	report := New(store, time.Hour, time.Minute).Sweep()

	if report.OrphansReclaimed != 1 {
		t.Errorf("OrphansReclaimed = %d, want 1", report.OrphansReclaimed)
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Error("orphaned session directory still exists")
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Errorf("foreign directory removed: %v", err)
	}
}

// racingStore releases the session out from under the janitor between the
// snapshot and the release, as a finishing request would.
type racingStore struct {
	*session.Store
	once sync.Once
}

func (r *racingStore) Snapshot() []session.Entry {
	entries := r.Store.Snapshot()
	r.once.Do(func() {
		for _, e := range entries {
			r.Store.Release(e.ID, session.ReasonRequest)
		}
	})
	return entries
}

func TestSweepToleratesConcurrentRelease(t *testing.T) {
	store := newStore(t)
	if _, err := store.Open(); err != nil {
		t.Fatal(err)
	}

	j := New(&racingStore{Store: store}, time.Hour, time.Minute)
	j.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	report := j.Sweep()

	if report.Expired != 1 {
		t.Errorf("Expired = %d, want 1", report.Expired)
	}
	if report.Reclaimed != 0 {
		t.Errorf("Reclaimed = %d, the owner already released the session", report.Reclaimed)
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0", store.Len())
	}
}

type failingOrphans struct {
	*session.Store
}

func (failingOrphans) Orphans() ([]session.Entry, error) {
	return nil, errors.New("permission denied")
}

func TestSweepContinuesWhenListingFails(t *testing.T) {
	store := newStore(t)
	if _, err := store.Open(); err != nil {
		t.Fatal(err)
	}

	j := New(failingOrphans{Store: store}, time.Hour, time.Minute)
	j.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	if report := j.Sweep(); report.Reclaimed != 1 {
		t.Errorf("Reclaimed = %d, want 1 despite the listing error", report.Reclaimed)
	}
}

func TestStartSweepsImmediately(t *testing.T) {
	store := newStore(t)
	sess, err := store.Open()
	if err != nil {
		t.Fatal(err)
	}

	j := New(store, time.Hour, time.Hour)
	j.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	j.Start()

	deadline := time.Now().Add(5 * time.Second)
	for store.Exists(sess.ID) {
		if time.Now().After(deadline) {
			t.Fatal("initial sweep did not run")
		}
		time.Sleep(10 * time.Millisecond)
	}

	j.Stop()
	j.Stop() // second call is a no-op
}

func TestPeriodicSweep(t *testing.T) {
	store := newStore(t)

	j := New(store, 20*time.Millisecond, 10*time.Millisecond)
	j.Start()
	defer j.Stop()

	sess, err := store.Open()
	if err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for store.Exists(sess.ID) {
		if time.Now().After(deadline) {
			t.Fatal("session older than retention was never reclaimed")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := os.Stat(sess.Root); !os.IsNotExist(err) {
		t.Error("reclaimed session directory still exists")
	}
}
