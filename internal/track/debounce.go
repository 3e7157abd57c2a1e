package track

import (
	"sync"
	"time"
)

// Debounce delays for the capture channels. Clicks are not debounced;
// every click is significant.
const (
	KeystrokeDebounce = 400 * time.Millisecond
	ScrollDebounce    = 200 * time.Millisecond
)

// Debouncer collapses rapid repeated signals from one logical source
// into a single emission after a quiet interval. Each call cancels the
// pending timer and re-arms it with the latest signal, so only the final
// signal of a burst reaches the downstream function. Intermediate
// signals are discarded silently; that is the volume-control contract
// for high-frequency channels, not an error.
type Debouncer struct {
	clock Clock
	delay time.Duration
	fn    func(Signal)

	mu      sync.Mutex
	timer   Timer
	stopped bool
}

// NewDebouncer creates a debouncer emitting into fn after delay of
// quiescence.
func NewDebouncer(clock Clock, delay time.Duration, fn func(Signal)) *Debouncer {
	return &Debouncer{clock: clock, delay: delay, fn: fn}
}

// Call schedules sig for emission, replacing any signal still pending.
func (d *Debouncer) Call(sig Signal) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.clock.AfterFunc(d.delay, func() { d.emit(sig) })
}

// Stop cancels any pending emission and rejects further calls. A stopped
// debouncer is never reused; the lifecycle controller builds fresh ones
// on enable.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Pending reports whether an emission is armed.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

func (d *Debouncer) emit(sig Signal) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()
	d.fn(sig)
}
