// internal/app/system/workers/spoolcleanup.go
package workers

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SpoolCleanup is a background worker that removes upload spool files
// left behind by requests that never finished (a crash mid-submission).
// Only regular files named with the spool prefix and older than maxAge
// are touched.
type SpoolCleanup struct {
	dir      string
	prefix   string
	maxAge   time.Duration
	interval time.Duration
	log      *zap.Logger
	now      func() time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewSpoolCleanup creates a spool cleanup worker.
//
// Parameters:
//   - dir: the spool directory (blank means os.TempDir())
//   - prefix: file name prefix the submission workflow spools with
//   - interval: how often to scan (e.g., 10 minutes)
//   - maxAge: how old a file must be before it is removed; keep this well
//     above the submission timeout
func NewSpoolCleanup(dir, prefix string, interval, maxAge time.Duration, logger *zap.Logger) *SpoolCleanup {
	if dir == "" {
		dir = os.TempDir()
	}
	return &SpoolCleanup{
		dir:      dir,
		prefix:   prefix,
		maxAge:   maxAge,
		interval: interval,
		log:      logger,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background cleanup loop.
func (w *SpoolCleanup) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("spool cleanup worker started",
		zap.String("dir", w.dir),
		zap.Duration("interval", w.interval),
		zap.Duration("max_age", w.maxAge))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *SpoolCleanup) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("spool cleanup worker stopped")
}

func (w *SpoolCleanup) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Sweep()
		}
	}
}

// Sweep runs one scan and returns how many files it removed.
func (w *SpoolCleanup) Sweep() int {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.log.Error("read spool dir failed", zap.String("dir", w.dir), zap.Error(err))
		return 0
	}

	cutoff := w.now().Add(-w.maxAge)
	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasPrefix(e.Name(), w.prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(w.dir, e.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			w.log.Warn("remove stale spool file failed", zap.String("path", path), zap.Error(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		w.log.Info("removed stale spool files", zap.Int("count", removed))
	}
	return removed
}
