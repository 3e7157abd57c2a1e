package track

// Built-in event types produced by the capture pipeline. Caller-supplied
// custom types are also accepted by Track.
const (
	EventKeystroke  = "keystroke"
	EventMouseClick = "mouse-click"
	EventScroll     = "scroll"
)

// Event is a single telemetry record. Immutable once constructed; owned
// by the buffer until delivered or discarded.
type Event struct {
	Type      string  `json:"type"`
	Timestamp int64   `json:"timestamp"` // epoch milliseconds
	Data      Payload `json:"data"`
	SessionID string  `json:"sessionId"`
	URL       string  `json:"url"`
	UserAgent string  `json:"userAgent"`
}

// Payload is the closed set of event data variants. CustomPayload is the
// generic fallback for caller-supplied event types.
type Payload interface {
	isPayload()
}

// KeystrokePayload carries a redacted input value descriptor. Value never
// contains original page text.
type KeystrokePayload struct {
	Element string `json:"element"`
	Value   string `json:"value"`
}

// MousePayload carries the clicked element and viewport coordinates.
type MousePayload struct {
	Element string  `json:"element"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// ScrollPayload carries scroll depth as a percentage of the maximum
// scrollable extent.
type ScrollPayload struct {
	DepthPercent float64 `json:"depthPercent"`
}

// CustomPayload holds arbitrary fields for caller-defined event types.
type CustomPayload map[string]any

func (KeystrokePayload) isPayload() {}
func (MousePayload) isPayload()     {}
func (ScrollPayload) isPayload()    {}
func (CustomPayload) isPayload()    {}
