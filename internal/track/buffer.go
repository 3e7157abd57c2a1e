package track

import "sync"

// Buffer is the append-only queue of records awaiting delivery.
// Capacity is the auto-flush trigger, not a hard cap: a failed flush
// requeues its batch at the front, which may transiently push the buffer
// above capacity rather than drop data.
type Buffer struct {
	mu         sync.Mutex
	events     []Event
	capacity   int
	onOverflow func()
}

// NewBuffer creates a buffer that invokes onOverflow whenever an append
// brings the size to capacity or beyond. onOverflow must not block.
func NewBuffer(capacity int, onOverflow func()) *Buffer {
	return &Buffer{capacity: capacity, onOverflow: onOverflow}
}

// Append adds an event to the tail, triggering the overflow callback when
// the buffer reaches capacity. Failures downstream are never surfaced to
// the caller.
func (b *Buffer) Append(ev Event) {
	b.mu.Lock()
	b.events = append(b.events, ev)
	full := len(b.events) >= b.capacity
	b.mu.Unlock()

	if full && b.onOverflow != nil {
		b.onOverflow()
	}
}

// DrainAll atomically removes and returns every buffered event. Events
// appended while a drained batch is in flight accumulate for the next
// drain, so no event is ever part of two flushes.
func (b *Buffer) DrainAll() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	events := b.events
	b.events = nil
	return events
}

// RequeueFront reinserts a previously drained batch at the head,
// preserving its relative order, so older events are retried before
// newer ones.
func (b *Buffer) RequeueFront(events []Event) {
	if len(events) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	merged := make([]Event, 0, len(events)+len(b.events))
	merged = append(merged, events...)
	merged = append(merged, b.events...)
	b.events = merged
}

// Len returns the current number of buffered events.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Clear discards all buffered events.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}
