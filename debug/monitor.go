// Package debug provides runtime monitoring and diagnostics.
package debug

import (
	"context"
	"os"
	"time"

	"pkt.systems/pslog"

	"github.com/drake/tailpane/session"
)

// Enabled returns true if debug mode is active (TAILPANE_DEBUG=1).
func Enabled() bool {
	return os.Getenv("TAILPANE_DEBUG") == "1"
}

// StatsSource is what the monitor samples.
type StatsSource interface {
	Stats() session.Stats
	Done() <-chan struct{}
}

// Monitor periodically logs session statistics when debug mode is enabled.
type Monitor struct {
	source   StatsSource
	interval time.Duration
	logger   pslog.Logger
}

// NewMonitor creates a new monitor for the given session.
// If debug mode is not enabled, returns nil.
func NewMonitor(logger pslog.Logger, src StatsSource) *Monitor {
	if !Enabled() {
		return nil
	}
	return newMonitor(logger, src, 5*time.Second)
}

func newMonitor(logger pslog.Logger, src StatsSource, interval time.Duration) *Monitor {
	return &Monitor{
		source:   src,
		interval: interval,
		logger:   logger.With("component", "monitor"),
	}
}

// Start begins the monitoring loop in a goroutine.
func (m *Monitor) Start(ctx context.Context) {
	if m == nil {
		return
	}
	go m.run(ctx)
}

func (m *Monitor) run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Debug("monitor started", "interval", m.interval.String())
	for {
		select {
		case <-ctx.Done():
			m.logger.Debug("monitor stopped")
			return
		case <-m.source.Done():
			m.logger.Debug("monitor stopped")
			return
		case <-ticker.C:
			m.logStats()
		}
	}
}

func (m *Monitor) logStats() {
	s := m.source.Stats()
	m.logger.Debug("session stats",
		"panes", s.Panes,
		"timers", s.Timers,
		"streams", s.Streams,
		"event_queue", s.EventQueueLen,
		"event_queue_cap", s.EventQueueCap,
		"timer_queue", s.TimerQueueLen,
		"timer_queue_cap", s.TimerQueueCap,
		"goroutines", s.Goroutines,
	)
}
