package track

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Sender delivers one batch to the collector. A nil error commits the
// batch; any error means the whole batch will be retried.
type Sender interface {
	Send(ctx context.Context, events []Event) error
}

// Deliverer drains the buffer and pushes batches through the Sender.
// A failed delivery restores the batch to the front of the buffer, to be
// retried on the next timer tick or overflow trigger. At-least-once:
// the receiver must tolerate duplicate batches.
type Deliverer struct {
	buffer  *Buffer
	sender  Sender
	onFlush func([]Event)
	debug   bool

	// pending guards against multiple scheduled flushes for a single
	// overflow crossing. Cleared at drain time so appends arriving
	// during a send can arm the next flush.
	pending atomic.Bool
}

// NewDeliverer wires a buffer to a sender. onFlush, when set, is invoked
// synchronously with each drained batch before the send.
func NewDeliverer(buffer *Buffer, sender Sender, onFlush func([]Event), debug bool) *Deliverer {
	return &Deliverer{buffer: buffer, sender: sender, onFlush: onFlush, debug: debug}
}

// TriggerFlush starts an asynchronous flush unless one is already
// scheduled. Fire-and-forget: delivery failures are handled internally.
func (d *Deliverer) TriggerFlush() {
	if !d.pending.CompareAndSwap(false, true) {
		return
	}
	go func() { _ = d.Flush(context.Background()) }()
}

// Flush runs one delivery cycle: drain, pre-send hook, send, then commit
// or requeue. A flush with an empty buffer is a no-op. Two flushes can
// never carry the same event because DrainAll is the only boundary that
// empties the buffer.
func (d *Deliverer) Flush(ctx context.Context) error {
	batch := d.buffer.DrainAll()
	d.pending.Store(false)
	if len(batch) == 0 {
		return nil
	}

	if err := d.send(ctx, batch); err != nil {
		d.buffer.RequeueFront(batch)
		if d.debug {
			slog.Debug("flush failed, batch requeued", "events", len(batch), "error", err)
		}
		return err
	}

	if d.debug {
		slog.Debug("batch delivered", "events", len(batch))
	}
	return nil
}

func (d *Deliverer) send(ctx context.Context, batch []Event) error {
	if d.onFlush != nil {
		// A hook failure aborts the send so the batch is retried
		// rather than lost; identical handling to a network failure.
		if err := d.callHook(batch); err != nil {
			return err
		}
	}
	return d.sender.Send(ctx, batch)
}

func (d *Deliverer) callHook(batch []Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("flush hook panicked: %v", r)
		}
	}()
	d.onFlush(batch)
	return nil
}
