package janitor

import (
	"sync"
	"time"

	"video-creator/internal/logging"
	"video-creator/internal/metrics"
	"video-creator/internal/session"
)

// Store is the part of *session.Store the janitor needs.
type Store interface {
	Snapshot() []session.Entry
	Release(idOrRoot string, reason string) bool
	Orphans() ([]session.Entry, error)
	ReleaseOrphan(e session.Entry) bool
}

// Report summarizes one sweep.
type Report struct {
	Scanned          int
	Expired          int
	Reclaimed        int
	OrphansScanned   int
	OrphansReclaimed int
}

// Janitor periodically reclaims sessions older than the retention period,
// independently of the requests that own them.
type Janitor struct {
	store     Store
	retention time.Duration
	interval  time.Duration
	now       func() time.Time

	sweepMu  sync.Mutex
	stopOnce sync.Once
	stopChan chan struct{}
	doneChan chan struct{}
}

// New creates a janitor. Call Start to begin sweeping.
func New(store Store, retention, interval time.Duration) *Janitor {
	return &Janitor{
		store:     store,
		retention: retention,
		interval:  interval,
		now:       time.Now,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// Start sweeps once immediately, then every interval until Stop.
func (j *Janitor) Start() {
	logging.Info("Session janitor started (retention %v, every %v)", j.retention, j.interval)
	go j.loop()
}

// Stop ends the sweep loop and waits for it to exit. It must only be
// called after Start; further calls are no-ops.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() {
		close(j.stopChan)
		<-j.doneChan
		logging.Info("Session janitor stopped")
	})
}

func (j *Janitor) loop() {
	defer close(j.doneChan)

	// Sweep immediately to recover directories left by a previous process
	j.Sweep()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.Sweep()
		case <-j.stopChan:
			return
		}
	}
}

// Sweep releases every registered session and every orphaned session
// directory whose age exceeds the retention period. Sessions released
// concurrently by their owners are skipped without error.
func (j *Janitor) Sweep() Report {
	j.sweepMu.Lock()
	defer j.sweepMu.Unlock()

	now := j.now()
	var report Report

	for _, entry := range j.store.Snapshot() {
		report.Scanned++
		if entry.Age(now) <= j.retention {
			continue
		}
		report.Expired++
		if j.store.Release(entry.ID, session.ReasonJanitor) {
			report.Reclaimed++
			logging.Info("Janitor reclaimed session %s (age %v)", entry.ID, entry.Age(now).Round(time.Second))
		}
	}

	orphans, err := j.store.Orphans()
	if err != nil {
		logging.Warn("Janitor could not list work directory: %v", err)
	}
	for _, entry := range orphans {
		report.OrphansScanned++
		if entry.Age(now) <= j.retention {
			continue
		}
		if j.store.ReleaseOrphan(entry) {
			report.OrphansReclaimed++
		}
	}

	metrics.JanitorSweepsTotal.Inc()
	metrics.JanitorReclaimedTotal.WithLabelValues("registry").Add(float64(report.Reclaimed))
	metrics.JanitorReclaimedTotal.WithLabelValues("orphan").Add(float64(report.OrphansReclaimed))
	metrics.JanitorLastSweepTimestamp.Set(float64(now.Unix()))

	if report.Reclaimed > 0 || report.OrphansReclaimed > 0 {
		logging.Info("Janitor sweep: reclaimed %d of %d sessions, %d orphaned directories",
			report.Reclaimed, report.Scanned, report.OrphansReclaimed)
	} else {
		logging.Debug("Janitor sweep: %d sessions, %d unregistered directories, nothing expired",
			report.Scanned, report.OrphansScanned)
	}

	return report
}
