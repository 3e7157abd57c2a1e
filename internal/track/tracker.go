package track

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

type state int

const (
	stateDisabled state = iota
	stateEnabled
	stateDestroyed
)

// Tracker owns the capture pipeline: session identity, enable/disable
// state, observer handles, debounce schedulers, the event buffer and the
// delivery engine. One tracker serves one observed document.
type Tracker struct {
	clock   Clock
	doc     Document
	buffer  *Buffer
	deliver *Deliverer

	mu         sync.Mutex
	opts       Options
	state      state
	sessionID  string
	page       PageInfo
	detach     []func()
	keyDeb     *Debouncer
	scrollDeb  *Debouncer
	flushTimer Timer
}

// New constructs a tracker, generates its session identifier, evaluates
// the consent predicate and, when consent is granted (or in local mode,
// where no data leaves the process), enables capture. Invalid capacity
// or interval values fail fast; consent or observer-setup failures do
// not: the tracker is returned disabled and the failure is logged.
func New(ctx context.Context, doc Document, clock Clock, opts Options) (*Tracker, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = WallClock()
	}

	t := &Tracker{
		clock:     clock,
		doc:       doc,
		opts:      opts,
		state:     stateDisabled,
		sessionID: uuid.NewString(),
	}
	t.buffer = NewBuffer(opts.BufferCapacity, t.overflow)
	t.deliver = NewDeliverer(t.buffer, t.resolveSender(opts), opts.OnFlush, opts.Debug)

	if opts.Mode == ModeLocal || t.consentGranted() {
		if err := t.Enable(ctx); err != nil {
			slog.Warn("tracking setup failed, staying disabled", "session", t.sessionID, "error", err)
		}
	} else {
		slog.Debug("consent not granted, tracking disabled", "session", t.sessionID)
	}
	return t, nil
}

func (t *Tracker) resolveSender(opts Options) Sender {
	if opts.Sender != nil {
		return opts.Sender
	}
	if endpoint, ok := ResolveEndpoint(opts); ok {
		return NewHTTPSender(endpoint, opts.Client)
	}
	return LogSender{}
}

// consentGranted evaluates the injected predicate behind a recover
// boundary: a panicking predicate reads as "no consent" and the
// pipeline stays disabled.
func (t *Tracker) consentGranted() (granted bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("consent check panicked, tracking stays disabled", "panic", r)
			granted = false
		}
	}()
	if t.opts.ConsentCheck == nil {
		return true
	}
	return t.opts.ConsentCheck()
}

// Enable attaches page observers and starts the periodic flush timer.
// Idempotent when already enabled.
func (t *Tracker) Enable(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case stateEnabled:
		return nil
	case stateDestroyed:
		return fmt.Errorf("tracker destroyed")
	}

	if t.doc != nil {
		info, err := t.doc.Info(ctx)
		if err != nil {
			return fmt.Errorf("resolve page info: %w", err)
		}
		t.page = info
	}

	t.keyDeb = NewDebouncer(t.clock, KeystrokeDebounce, t.recordKeystroke)
	t.scrollDeb = NewDebouncer(t.clock, ScrollDebounce, t.recordScroll)

	if t.doc != nil {
		detach, err := t.doc.Observe(ctx, t.route)
		if err != nil {
			t.keyDeb.Stop()
			t.scrollDeb.Stop()
			t.keyDeb, t.scrollDeb = nil, nil
			return fmt.Errorf("attach observers: %w", err)
		}
		t.detach = append(t.detach, detach)
	}

	t.flushTimer = t.clock.AfterFunc(t.opts.FlushInterval, t.flushTick)
	t.state = stateEnabled
	slog.Info("tracking enabled", "session", t.sessionID, "url", t.page.URL)
	return nil
}

// Disable detaches every retained observer handle, cancels pending
// debounce emissions and stops the periodic flush timer. Idempotent when
// already disabled. An in-flight delivery is allowed to complete and its
// outcome still applies to the buffer.
func (t *Tracker) Disable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disableLocked()
}

func (t *Tracker) disableLocked() {
	if t.state != stateEnabled {
		return
	}
	for _, fn := range t.detach {
		fn()
	}
	t.detach = nil
	t.keyDeb.Stop()
	t.scrollDeb.Stop()
	t.keyDeb, t.scrollDeb = nil, nil
	t.flushTimer.Stop()
	t.flushTimer = nil
	t.state = stateDisabled
	slog.Info("tracking disabled", "session", t.sessionID)
}

// Destroy forces disable, discards buffered events and invalidates the
// session. The tracker accepts no further operations afterwards.
func (t *Tracker) Destroy() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == stateDestroyed {
		return
	}
	t.disableLocked()
	t.buffer.Clear()
	t.sessionID = ""
	t.state = stateDestroyed
}

// Configure replaces the options snapshot wholesale and re-resolves the
// delivery endpoint. Buffered events are retained.
func (t *Tracker) Configure(opts Options) error {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == stateDestroyed {
		return fmt.Errorf("tracker destroyed")
	}
	t.opts = opts
	t.deliver = NewDeliverer(t.buffer, t.resolveSender(opts), opts.OnFlush, opts.Debug)
	return nil
}

// Track records a caller-supplied custom event. Dropped when the tracker
// is not enabled.
func (t *Tracker) Track(eventType string, data map[string]any) {
	if eventType == "" {
		return
	}
	t.record(eventType, CustomPayload(data))
}

// Flush forces one delivery cycle; exposed for shutdown paths.
func (t *Tracker) Flush(ctx context.Context) error {
	return t.deliver.Flush(ctx)
}

// SessionID returns the session identifier, or "" once destroyed.
func (t *Tracker) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}

// Enabled reports whether capture is active.
func (t *Tracker) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == stateEnabled
}

// BufferLen returns the number of events awaiting delivery.
func (t *Tracker) BufferLen() int {
	return t.buffer.Len()
}

// HandleCount returns the number of live observer handles and timers.
// Zero after Disable.
func (t *Tracker) HandleCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.detach)
	if t.keyDeb != nil {
		n++
	}
	if t.scrollDeb != nil {
		n++
	}
	if t.flushTimer != nil {
		n++
	}
	return n
}

// flushTick runs one periodic delivery cycle and re-arms the timer.
func (t *Tracker) flushTick() {
	t.mu.Lock()
	if t.state != stateEnabled {
		t.mu.Unlock()
		return
	}
	t.flushTimer = t.clock.AfterFunc(t.opts.FlushInterval, t.flushTick)
	t.mu.Unlock()

	// Unbounded retry on failure is deliberate; failed batches sit at
	// the buffer front and ride the next tick.
	_ = t.deliver.Flush(context.Background())
}

// overflow is the buffer's capacity-crossing callback.
func (t *Tracker) overflow() {
	t.mu.Lock()
	d := t.deliver
	t.mu.Unlock()
	d.TriggerFlush()
}

func (t *Tracker) record(eventType string, data Payload) {
	t.mu.Lock()
	if t.state != stateEnabled {
		t.mu.Unlock()
		return
	}
	ev := Event{
		Type:      eventType,
		Timestamp: t.clock.Now().UnixMilli(),
		Data:      data,
		SessionID: t.sessionID,
		URL:       t.page.URL,
		UserAgent: t.page.UserAgent,
	}
	t.mu.Unlock()

	t.buffer.Append(ev)
}
