package loader

import "time"

// DefaultReportInterval is the minimum time between two progress callback
// invocations, matching original_source/whip/util.py's
// DEFAULT_CALLBACK_INTERVAL.
const DefaultReportInterval = 10 * time.Second

// ProgressReporter is a time-gated ticker: Tick only invokes the callback
// once at least Interval has elapsed since the last invocation, or when
// forced. A direct port of whip's PeriodicCallback.
type ProgressReporter struct {
	callback   func()
	interval   time.Duration
	lastReport time.Time
}

// NewProgressReporter builds a reporter. If interval is zero,
// DefaultReportInterval is used. A nil callback makes Tick a no-op.
func NewProgressReporter(callback func(), interval time.Duration) *ProgressReporter {
	if interval <= 0 {
		interval = DefaultReportInterval
	}
	return &ProgressReporter{callback: callback, interval: interval}
}

// Tick invokes the callback if enough time has elapsed since the last
// invocation, or unconditionally when force is true.
func (r *ProgressReporter) Tick(force bool) {
	if r.callback == nil {
		return
	}
	if force || time.Since(r.lastReport) > r.interval {
		r.callback()
		r.lastReport = time.Now()
	}
}
