package track

import "math"

// route fans raw document signals into the capture channels. Nil-target
// and sensitive-target signals are dropped before they reach the
// debounce schedulers: nothing derived from a sensitive element ever
// enters the buffer. Keystrokes and content mutations share one
// scheduler (they are the same logical "typing" channel); scrolls have
// their own; clicks bypass debouncing entirely.
func (t *Tracker) route(sig Signal) {
	t.mu.Lock()
	if t.state != stateEnabled {
		t.mu.Unlock()
		return
	}
	keyDeb, scrollDeb := t.keyDeb, t.scrollDeb
	maxText := t.opts.MaxTextBytes
	t.mu.Unlock()

	switch sig.Kind {
	case SignalKeystroke, SignalMutation:
		if sig.Target == nil || Classify(sig.Target) {
			return
		}
		sig.Text = capText(sig.Text, maxText)
		keyDeb.Call(sig)
	case SignalClick:
		element := ""
		if sig.Target != nil {
			element = sig.Target.Tag
		}
		t.record(EventMouseClick, MousePayload{Element: element, X: sig.X, Y: sig.Y})
	case SignalScroll:
		scrollDeb.Call(sig)
	}
}

func (t *Tracker) recordKeystroke(sig Signal) {
	element := ""
	if sig.Target != nil {
		element = sig.Target.Tag
	}
	t.record(EventKeystroke, KeystrokePayload{Element: element, Value: Redact(sig.Text)})
}

func (t *Tracker) recordScroll(sig Signal) {
	t.record(EventScroll, ScrollPayload{
		DepthPercent: scrollDepthPercent(sig.ScrollTop, sig.MaxScrollTop),
	})
}

// scrollDepthPercent computes scroll position as a percentage of the
// maximum scrollable extent. A zero or negative extent (viewport at
// least as tall as the document) yields 0, never NaN.
func scrollDepthPercent(top, maxTop float64) float64 {
	if maxTop <= 0 {
		return 0
	}
	pct := math.Round(top / maxTop * 100)
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// capText bounds captured text before redaction so a pathological
// mutation cannot hold megabytes in flight. The cap is applied on byte
// length; the redacted descriptor then reflects the capped text.
func capText(s string, maxBytes int) string {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s
	}
	capped := s[:maxBytes]
	// Back off a partial UTF-8 sequence at the cut point.
	for len(capped) > 0 && capped[len(capped)-1]&0xC0 == 0x80 {
		capped = capped[:len(capped)-1]
	}
	if len(capped) > 0 && capped[len(capped)-1] >= 0xC0 {
		capped = capped[:len(capped)-1]
	}
	return capped
}
