package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/bitpeek/dompulse/internal/track"
)

// Connector dials a browser's CDP endpoint and hands out one Document
// per page target matching the URL filter.
type Connector struct {
	cdpURL      string
	tabFilter   string
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewConnector creates a connector for the given CDP HTTP endpoint. An
// empty tabFilter matches every page target.
func NewConnector(cdpURL, tabFilter string) *Connector {
	return &Connector{cdpURL: cdpURL, tabFilter: strings.ToLower(strings.TrimSpace(tabFilter))}
}

// Connect attaches to the browser and returns a Document per matching
// open tab.
func (c *Connector) Connect(ctx context.Context) ([]*Document, error) {
	_ = ctx
	slog.Info("connecting to browser", "url", c.cdpURL)
	c.allocCtx, c.allocCancel = chromedp.NewRemoteAllocator(context.Background(), c.cdpURL)

	tempCtx, tempCancel := chromedp.NewContext(c.allocCtx)
	defer tempCancel()

	if err := chromedp.Run(tempCtx); err != nil {
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	targets, err := chromedp.Targets(tempCtx)
	if err != nil {
		return nil, fmt.Errorf("enumerate targets: %w", err)
	}

	var docs []*Document
	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		if !c.matchesTab(t.URL) {
			slog.Debug("skipping tab (url filter)", "url", t.URL)
			continue
		}
		docs = append(docs, &Document{
			allocCtx: c.allocCtx,
			targetID: t.TargetID,
			url:      t.URL,
		})
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no tabs found matching filter %q", c.tabFilter)
	}
	slog.Info("found matching tabs", "count", len(docs), "tab_filter", c.tabFilter)
	return docs, nil
}

// Close tears down the allocator and every tab context derived from it.
func (c *Connector) Close() error {
	if c.allocCancel != nil {
		c.allocCancel()
	}
	slog.Info("browser connector closed")
	return nil
}

func (c *Connector) matchesTab(url string) bool {
	if c.tabFilter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(url), c.tabFilter)
}

// Document implements track.Document for one browser tab: it injects the
// observer script and translates runtime binding calls into signals.
type Document struct {
	allocCtx context.Context
	targetID target.ID
	url      string

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// URL returns the tab URL seen at connect time.
func (d *Document) URL() string { return d.url }

// Info resolves the page URL and user agent for event construction.
// Usable before Observe; a temporary tab session is used when no
// observation session exists yet.
func (d *Document) Info(ctx context.Context) (track.PageInfo, error) {
	d.mu.Lock()
	tabCtx := d.ctx
	d.mu.Unlock()

	if tabCtx == nil {
		var tempCancel context.CancelFunc
		tabCtx, tempCancel = chromedp.NewContext(d.allocCtx, chromedp.WithTargetID(d.targetID))
		defer tempCancel()
	}
	evalCtx, cancel := context.WithTimeout(tabCtx, 10*time.Second)
	defer cancel()

	var userAgent string
	if err := chromedp.Run(evalCtx, chromedp.Evaluate(`navigator.userAgent`, &userAgent)); err != nil {
		return track.PageInfo{}, fmt.Errorf("read user agent: %w", err)
	}
	var url string
	if err := chromedp.Run(evalCtx, chromedp.Evaluate(`window.location.href`, &url)); err != nil {
		return track.PageInfo{}, fmt.Errorf("read location: %w", err)
	}
	return track.PageInfo{URL: url, UserAgent: userAgent}, nil
}

// Observe installs the in-page signal sources and routes every binding
// call into fn. The observer script is also registered for new documents
// so SPA navigations keep emitting. The returned detach stops delivery
// and disconnects the in-page observers.
func (d *Document) Observe(ctx context.Context, fn func(track.Signal)) (func(), error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctx != nil {
		return nil, fmt.Errorf("document already observed")
	}

	tabCtx, cancel := chromedp.NewContext(d.allocCtx, chromedp.WithTargetID(d.targetID))

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if e, ok := ev.(*runtime.EventBindingCalled); ok && e.Name == bindingName {
			dispatch(fn, e.Payload)
		}
	})

	installCtx, installCancel := context.WithTimeout(tabCtx, 15*time.Second)
	defer installCancel()
	err := chromedp.Run(installCtx,
		runtime.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if err := runtime.AddBinding(bindingName).Do(ctx); err != nil {
				return err
			}
			_, err := page.AddScriptToEvaluateOnNewDocument(observeScript).Do(ctx)
			return err
		}),
		chromedp.Evaluate(observeScript, nil),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("install observers: %w", err)
	}

	d.ctx, d.cancel = tabCtx, cancel
	slog.Info("observers attached", "target_id", d.targetID, "url", truncateURL(d.url))

	return func() { d.detach() }, nil
}

func (d *Document) detach() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctx == nil {
		return
	}
	teardownCtx, teardownCancel := context.WithTimeout(d.ctx, 5*time.Second)
	if err := chromedp.Run(teardownCtx, chromedp.Evaluate(teardownScript, nil)); err != nil {
		slog.Debug("observer teardown script failed", "target_id", d.targetID, "error", err)
	}
	teardownCancel()
	d.cancel()
	d.ctx, d.cancel = nil, nil
	slog.Info("observers detached", "target_id", d.targetID)
}

// wireSignal is the JSON shape posted through the runtime binding.
type wireSignal struct {
	Kind         string  `json:"kind"`
	HasTarget    bool    `json:"hasTarget"`
	Tag          string  `json:"tag"`
	Type         string  `json:"type"`
	Name         string  `json:"name"`
	Autocomplete string  `json:"autocomplete"`
	Text         string  `json:"text"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	ScrollTop    float64 `json:"scrollTop"`
	MaxScrollTop float64 `json:"maxScrollTop"`
}

// dispatch runs inside chromedp's event callback; this is a host-driven
// delivery path, so failures are logged and swallowed rather than
// allowed to escape into the CDP listener.
func dispatch(fn func(track.Signal), payload string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("observer dispatch panicked", "panic", r)
		}
	}()

	var msg wireSignal
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		slog.Debug("observer payload decode failed", "error", err)
		return
	}
	fn(msg.toSignal())
}

func (w wireSignal) toSignal() track.Signal {
	sig := track.Signal{
		Kind:         track.SignalKind(w.Kind),
		Text:         w.Text,
		X:            w.X,
		Y:            w.Y,
		ScrollTop:    w.ScrollTop,
		MaxScrollTop: w.MaxScrollTop,
	}
	if w.HasTarget {
		sig.Target = &track.Target{
			Tag:          w.Tag,
			Type:         w.Type,
			Name:         w.Name,
			Autocomplete: w.Autocomplete,
		}
	}
	return sig
}

func truncateURL(url string) string {
	if len(url) > 120 {
		return url[:120] + "..."
	}
	return url
}
