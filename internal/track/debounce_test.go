package track

import (
	"testing"
	"time"
)

func TestDebouncerCollapsesBurst(t *testing.T) {
	clock := newFakeClock()
	var emitted []Signal
	deb := NewDebouncer(clock, 400*time.Millisecond, func(sig Signal) {
		emitted = append(emitted, sig)
	})

	// Calls at t=0, 100, 150, 200; quiet afterwards.
	deb.Call(keystrokeSignal("a"))
	clock.Advance(100 * time.Millisecond)
	deb.Call(keystrokeSignal("ab"))
	clock.Advance(50 * time.Millisecond)
	deb.Call(keystrokeSignal("abc"))
	clock.Advance(50 * time.Millisecond)
	deb.Call(keystrokeSignal("abcd"))

	clock.Advance(399 * time.Millisecond)
	if len(emitted) != 0 {
		t.Fatalf("emitted before quiet interval elapsed: %d", len(emitted))
	}

	clock.Advance(1 * time.Millisecond)
	if len(emitted) != 1 {
		t.Fatalf("expected exactly one emission, got %d", len(emitted))
	}
	if emitted[0].Text != "abcd" {
		t.Fatalf("expected final payload %q, got %q", "abcd", emitted[0].Text)
	}
}

func TestDebouncerSeparateBursts(t *testing.T) {
	clock := newFakeClock()
	var emitted []string
	deb := NewDebouncer(clock, 400*time.Millisecond, func(sig Signal) {
		emitted = append(emitted, sig.Text)
	})

	deb.Call(keystrokeSignal("first"))
	clock.Advance(400 * time.Millisecond)
	deb.Call(keystrokeSignal("second"))
	clock.Advance(400 * time.Millisecond)

	if len(emitted) != 2 || emitted[0] != "first" || emitted[1] != "second" {
		t.Fatalf("expected [first second], got %v", emitted)
	}
}

func TestDebouncerStopCancelsPending(t *testing.T) {
	clock := newFakeClock()
	emissions := 0
	deb := NewDebouncer(clock, 400*time.Millisecond, func(Signal) { emissions++ })

	deb.Call(keystrokeSignal("a"))
	if !deb.Pending() {
		t.Fatalf("expected pending emission after Call")
	}
	deb.Stop()
	clock.Advance(time.Second)

	if emissions != 0 {
		t.Fatalf("stopped debouncer emitted %d times", emissions)
	}

	// A stopped debouncer rejects further calls.
	deb.Call(keystrokeSignal("b"))
	clock.Advance(time.Second)
	if emissions != 0 {
		t.Fatalf("stopped debouncer accepted a call")
	}
}
