package track

import (
	"context"
	"time"
)

// Clock abstracts timer scheduling so the pipeline can be driven
// deterministically in tests without real waits.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a cancellable one-shot timer handle.
type Timer interface {
	Stop() bool
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

func (wallClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// WallClock returns the production Clock backed by the time package.
func WallClock() Clock { return wallClock{} }

// PageInfo describes the observed page; embedded into every event.
type PageInfo struct {
	URL       string
	UserAgent string
}

// Document is the page observation port. Implementations deliver raw
// Signals from a live page (or a test double) to a single callback.
// The detach function must stop all deliveries deterministically.
type Document interface {
	Info(ctx context.Context) (PageInfo, error)
	Observe(ctx context.Context, fn func(Signal)) (detach func(), err error)
}
