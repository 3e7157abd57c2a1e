package track

import (
	"fmt"
	"regexp"
	"strings"
)

// sensitiveNameWords flags elements whose name attribute suggests the
// field holds credentials or payment data.
var sensitiveNameWords = []string{"card", "cvv", "password", "ssn", "secret", "token"}

var (
	allDigitsRe  = regexp.MustCompile(`^[0-9]+$`)
	descriptorRe = regexp.MustCompile(`^\[redacted [0-9]+ (digits|chars)\]$`)
)

// Classify reports whether a capture target must never be observed or
// logged. A nil target is not sensitive; callers drop nil-target signals
// before they reach the pipeline.
func Classify(t *Target) bool {
	if t == nil {
		return false
	}
	switch strings.ToLower(t.Type) {
	case "password", "hidden":
		return true
	}
	name := strings.ToLower(t.Name)
	for _, word := range sensitiveNameWords {
		if strings.Contains(name, word) {
			return true
		}
	}
	return strings.HasPrefix(strings.ToLower(t.Autocomplete), "cc-")
}

// Redact reduces raw text to a length-only descriptor. The mapping is
// one-way: no substring of the input survives into the descriptor.
// Applying Redact to its own output returns the descriptor unchanged.
func Redact(text string) string {
	if text == "" {
		return ""
	}
	if descriptorRe.MatchString(text) {
		return text
	}
	n := len([]rune(text))
	if allDigitsRe.MatchString(text) {
		return fmt.Sprintf("[redacted %d digits]", n)
	}
	return fmt.Sprintf("[redacted %d chars]", n)
}
