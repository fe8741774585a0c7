package refiner

import (
	"sync"
	"time"
)

// DefaultQuietPeriod is how long input must settle before a refinement is sent.
const DefaultQuietPeriod = time.Second

// Debouncer runs the most recently triggered function once input has been
// quiet for the configured period.
type Debouncer struct {
	mu    sync.Mutex
	quiet time.Duration
	timer *time.Timer
}

func NewDebouncer(quiet time.Duration) *Debouncer {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Debouncer{quiet: quiet}
}

// Trigger schedules fn, cancelling anything scheduled before.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.quiet, fn)
}

// Stop cancels the pending call, if any. It reports whether one was cancelled.
func (d *Debouncer) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer == nil {
		return false
	}
	stopped := d.timer.Stop()
	d.timer = nil
	return stopped
}
