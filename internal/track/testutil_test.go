package track

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakeClock drives AfterFunc timers manually. Advance moves the clock
// forward and fires due timers in order, outside the clock lock so
// callbacks may re-arm.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	deadline := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at.After(deadline) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			c.now = deadline
			c.mu.Unlock()
			return
		}
		next.fired = true
		if next.at.After(c.now) {
			c.now = next.at
		}
		fn := next.fn
		c.mu.Unlock()
		fn()
	}
}

func (c *fakeClock) activeTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// fakeDoc is a Document double that lets tests push signals by hand.
type fakeDoc struct {
	mu       sync.Mutex
	fn       func(Signal)
	detached int
	infoErr  error
}

func (d *fakeDoc) Info(context.Context) (PageInfo, error) {
	if d.infoErr != nil {
		return PageInfo{}, d.infoErr
	}
	return PageInfo{URL: "https://example.test/page", UserAgent: "test-agent/1.0"}, nil
}

func (d *fakeDoc) Observe(_ context.Context, fn func(Signal)) (func(), error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fn = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.fn = nil
		d.detached++
	}, nil
}

func (d *fakeDoc) emit(sig Signal) {
	d.mu.Lock()
	fn := d.fn
	d.mu.Unlock()
	if fn != nil {
		fn(sig)
	}
}

func (d *fakeDoc) detachCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.detached
}

// captureSender records batches and can be told to fail.
type captureSender struct {
	mu      sync.Mutex
	batches [][]Event
	fail    bool
	sent    chan []Event
}

func newCaptureSender() *captureSender {
	return &captureSender{sent: make(chan []Event, 16)}
}

func (s *captureSender) Send(_ context.Context, events []Event) error {
	s.mu.Lock()
	fail := s.fail
	if !fail {
		batch := make([]Event, len(events))
		copy(batch, events)
		s.batches = append(s.batches, batch)
	}
	s.mu.Unlock()
	if fail {
		return errors.New("collector unreachable")
	}
	select {
	case s.sent <- events:
	default:
	}
	return nil
}

func (s *captureSender) setFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

func (s *captureSender) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func (s *captureSender) waitBatch(timeout time.Duration) ([]Event, bool) {
	select {
	case batch := <-s.sent:
		return batch, true
	case <-time.After(timeout):
		return nil, false
	}
}

func keystrokeSignal(value string) Signal {
	return Signal{
		Kind:   SignalKeystroke,
		Target: &Target{Tag: "input", Type: "text", Name: "comment"},
		Text:   value,
	}
}

func makeEvent(id string) Event {
	return Event{
		Type:      EventKeystroke,
		Timestamp: 1,
		Data:      KeystrokePayload{Element: "input", Value: id},
		SessionID: "s",
	}
}
