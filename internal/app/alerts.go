package app

import (
	"context"
	"sync"
	"time"

	"github.com/ayusman/safedistance/internal/alert"
	"github.com/ayusman/safedistance/internal/monitoring"
	"github.com/ayusman/safedistance/internal/pipeline"
	"github.com/ayusman/safedistance/internal/plugin"
	"github.com/ayusman/safedistance/internal/settings"
	"github.com/ayusman/safedistance/internal/store"
	"github.com/google/uuid"
)

// alertTracker turns the per-frame state into alert events. An event starts
// on the first Alert frame and ends on the first frame that is not Alert.
type alertTracker struct {
	store   *store.Store
	plugins *plugin.Manager
	exec    *plugin.Executor

	mu     sync.Mutex
	active *store.AlertEvent
	peak   float64
	hooks  sync.WaitGroup
}

func newAlertTracker(s *store.Store, plugins *plugin.Manager, exec *plugin.Executor) *alertTracker {
	return &alertTracker{store: s, plugins: plugins, exec: exec}
}

// current returns a copy of the open alert event, or nil.
func (t *alertTracker) current() *store.AlertEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		return nil
	}
	e := *t.active
	e.PeakSpan = t.peak
	return &e
}

func (t *alertTracker) observe(res pipeline.Result, cfg settings.Settings, now time.Time) {
	if res.Skipped {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if res.State != alert.Alert {
		t.endLocked(now)
		return
	}

	span := peakSpan(res)
	if t.active != nil {
		if span > t.peak {
			t.peak = span
		}
		return
	}

	e := &store.AlertEvent{
		StartedAt:       now,
		PeakSpan:        span,
		SafeDistance:    cfg.SafeDistance.Value,
		Unit:            cfg.SafeDistance.Unit,
		ThresholdMeters: res.ThresholdMeters,
	}
	if t.store != nil {
		if err := t.store.Alerts().Create(e); err != nil {
			monitoring.Logf("Error recording alert: %v", err)
		}
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	t.active = e
	t.peak = span

	monitoring.Logf("Safe distance alert started (span %.1f, threshold %.2fm)", span, res.ThresholdMeters)
	t.dispatch(&plugin.Request{
		Event:           plugin.EventAlertStarted,
		AlertID:         e.ID,
		Timestamp:       now,
		Span:            span,
		PeakSpan:        span,
		SafeDistance:    e.SafeDistance,
		Unit:            e.Unit,
		ThresholdMeters: e.ThresholdMeters,
	})
}

// reset ends any open event.
func (t *alertTracker) reset(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.endLocked(now)
}

func (t *alertTracker) endLocked(now time.Time) {
	if t.active == nil {
		return
	}
	e, peak := t.active, t.peak
	t.active, t.peak = nil, 0

	if t.store != nil {
		if err := t.store.Alerts().End(e.ID, now, peak); err != nil {
			monitoring.Logf("Error closing alert %s: %v", e.ID, err)
		}
	}

	monitoring.Logf("Safe distance alert ended after %s (peak span %.1f)", now.Sub(e.StartedAt).Round(time.Millisecond), peak)
	t.dispatch(&plugin.Request{
		Event:           plugin.EventAlertEnded,
		AlertID:         e.ID,
		Timestamp:       now,
		PeakSpan:        peak,
		SafeDistance:    e.SafeDistance,
		Unit:            e.Unit,
		ThresholdMeters: e.ThresholdMeters,
	})
}

// dispatch runs the hooks subscribed to req.Event in the background.
func (t *alertTracker) dispatch(req *plugin.Request) {
	if t.plugins == nil || t.exec == nil {
		return
	}
	plugins := t.plugins.ForEvent(req.Event)
	if len(plugins) == 0 {
		return
	}

	t.hooks.Add(1)
	go func() {
		defer t.hooks.Done()
		for _, r := range t.exec.Dispatch(context.Background(), plugins, req) {
			if r.Err != nil {
				monitoring.Logf("Plugin %s failed on %s: %v", r.Plugin, req.Event, r.Err)
			}
		}
	}()
}

// wait blocks until every dispatched hook has finished.
func (t *alertTracker) wait() {
	t.hooks.Wait()
}

// peakSpan returns the largest span among alerting bodies.
func peakSpan(res pipeline.Result) float64 {
	var peak float64
	for _, b := range res.Bodies {
		if b.HasSpan && b.State == alert.Alert && b.Span > peak {
			peak = b.Span
		}
	}
	return peak
}
