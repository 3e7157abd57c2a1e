package track

// SignalKind identifies the capture channel a raw observation came from.
type SignalKind string

const (
	SignalKeystroke SignalKind = "keystroke"
	SignalMutation  SignalKind = "mutation"
	SignalClick     SignalKind = "click"
	SignalScroll    SignalKind = "scroll"
)

// Target describes the element a signal originated from. It is read-only
// input for sensitivity classification and is never stored in an event.
type Target struct {
	Tag          string
	Type         string
	Name         string
	Autocomplete string
}

// Signal is a raw observation emitted by a Document, before sensitivity
// filtering, redaction and debouncing. Target is nil when the source
// element could not be resolved; such signals are dropped.
type Signal struct {
	Kind   SignalKind
	Target *Target

	// Keystroke/mutation channel.
	Text string

	// Click channel.
	X float64
	Y float64

	// Scroll channel. MaxScrollTop may be zero or negative when the
	// page fits the viewport.
	ScrollTop    float64
	MaxScrollTop float64
}
