// Package daemon holds background loops the presenter daemon runs beside
// its transports.
package daemon

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/1broseidon/presenter/internal/config"
	"github.com/1broseidon/presenter/internal/platform"
	"github.com/1broseidon/presenter/internal/projector"
)

// MonitorsChangedEvent is emitted to the control window with the new
// monitor labels whenever the attached monitors change.
const MonitorsChangedEvent = "monitors-changed"

// MonitorLister returns the current monitors.
type MonitorLister func() ([]platform.Monitor, error)

// Emitter publishes a named event to a window label.
type Emitter interface {
	Emit(label, name string, payload any) (int, error)
}

// WatcherConfig holds configuration for the monitor watcher.
type WatcherConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// MonitorWatcher periodically re-queries monitors and reports hot-plug
// changes to the control window.
type MonitorWatcher struct {
	interval time.Duration
	list     MonitorLister
	emitter  Emitter
	logger   *slog.Logger

	mu     sync.Mutex
	last   []platform.Monitor
	primed bool
}

// NewMonitorWatcher creates a watcher. A non-positive interval defaults to
// five seconds.
func NewMonitorWatcher(cfg WatcherConfig, list MonitorLister, emitter Emitter) *MonitorWatcher {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &MonitorWatcher{
		interval: interval,
		list:     list,
		emitter:  emitter,
		logger:   logger,
	}
}

// Run starts the polling loop. Blocks until ctx is cancelled.
func (w *MonitorWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("monitor watcher started", "interval", w.interval)
	w.CheckNow()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("monitor watcher stopped")
			return
		case <-ticker.C:
			w.CheckNow()
		}
	}
}

// CheckNow performs a single query and reports whether the monitor set
// changed since the previous successful query. The first query only
// records a baseline.
func (w *MonitorWatcher) CheckNow() (changed bool) {
	// A misbehaving X server must not take the daemon down.
	defer func() {
		if err := recover(); err != nil {
			w.logger.Error("monitor watcher panic recovered", "error", err)
			changed = false
		}
	}()

	monitors, err := w.list()
	if err != nil {
		w.logger.Warn("monitor query failed", "error", err)
		return false
	}

	w.mu.Lock()
	primed := w.primed
	same := slices.Equal(w.last, monitors)
	w.last = monitors
	w.primed = true
	w.mu.Unlock()

	if !primed || same {
		return false
	}

	labels := projector.Labels(monitors)
	w.logger.Info("monitors changed", "count", len(monitors), "labels", labels)
	if _, err := w.emitter.Emit(config.MainLabel, MonitorsChangedEvent, labels); err != nil {
		w.logger.Warn("failed to emit monitor change", "error", err)
	}
	return true
}
