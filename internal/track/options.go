package track

import (
	"fmt"
	"net/http"
	"time"
)

// Mode selects how the delivery endpoint is resolved.
type Mode string

const (
	// ModeLocal captures without a network: batches are committed via
	// the LogSender and nothing leaves the process. Capture is always
	// enabled in this mode regardless of consent.
	ModeLocal Mode = "local"
	// ModeDirect delivers to an explicitly configured endpoint URL.
	ModeDirect Mode = "direct"
	// ModeHosted delivers to the hosted collector keyed by SiteKey.
	ModeHosted Mode = "hosted"
)

const (
	defaultBufferCapacity = 10
	defaultFlushInterval  = 10 * time.Second
	defaultMaxTextBytes   = 2048
)

// Options is the configuration snapshot consulted by the tracker. It is
// never partially mutated: Configure replaces the whole snapshot and
// re-resolves the delivery endpoint.
type Options struct {
	Mode     Mode
	Endpoint string // delivery endpoint for ModeDirect
	SiteKey  string // hosted-collector key for ModeHosted

	Debug          bool
	BufferCapacity int           // flush trigger; zero means default
	FlushInterval  time.Duration // periodic flush cadence; zero means default
	MaxTextBytes   int           // cap on captured text before redaction

	// OnFlush is a best-effort instrumentation hook invoked with each
	// drained batch before the send.
	OnFlush func([]Event)

	// ConsentCheck gates capture at construction. Nil means the
	// embedder handles consent elsewhere and capture is permitted.
	ConsentCheck func() bool

	// Sender overrides endpoint resolution entirely when set.
	Sender Sender
	// Client is used by the HTTP sender; nil means http.DefaultClient.
	Client *http.Client
}

func (o Options) withDefaults() Options {
	if o.BufferCapacity == 0 {
		o.BufferCapacity = defaultBufferCapacity
	}
	if o.FlushInterval == 0 {
		o.FlushInterval = defaultFlushInterval
	}
	if o.MaxTextBytes == 0 {
		o.MaxTextBytes = defaultMaxTextBytes
	}
	return o
}

func (o Options) validate() error {
	if o.BufferCapacity <= 0 {
		return fmt.Errorf("buffer capacity must be positive, got %d", o.BufferCapacity)
	}
	if o.FlushInterval <= 0 {
		return fmt.Errorf("flush interval must be positive, got %s", o.FlushInterval)
	}
	if o.MaxTextBytes <= 0 {
		return fmt.Errorf("max text bytes must be positive, got %d", o.MaxTextBytes)
	}
	return nil
}

// hostedEndpointTemplate is the keyed hosted-collector ingest URL.
const hostedEndpointTemplate = "https://in.dompulse.dev/api/v1/%s/events"

// ResolveEndpoint maps an options snapshot to the delivery endpoint.
// ok is false when the mode delivers nowhere (local mode, or a direct
// mode with no endpoint configured).
func ResolveEndpoint(opts Options) (endpoint string, ok bool) {
	switch opts.Mode {
	case ModeDirect:
		if opts.Endpoint == "" {
			return "", false
		}
		return opts.Endpoint, true
	case ModeHosted:
		if opts.SiteKey == "" {
			return "", false
		}
		return fmt.Sprintf(hostedEndpointTemplate, opts.SiteKey), true
	default:
		return "", false
	}
}
