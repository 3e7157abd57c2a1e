package track

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

type batchBody struct {
	Events []Event `json:"events"`
}

// HTTPSender posts each batch to the delivery endpoint as a single JSON
// payload `{"events": [...]}`. Any 2xx status commits the batch; the
// response body is ignored. No timeout is imposed here; callers supply a
// client with transport-level limits when they want them.
type HTTPSender struct {
	endpoint string
	client   *http.Client
}

// NewHTTPSender creates a sender for the given endpoint. A nil client
// falls back to http.DefaultClient.
func NewHTTPSender(endpoint string, client *http.Client) *HTTPSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSender{endpoint: endpoint, client: client}
}

func (s *HTTPSender) Send(ctx context.Context, events []Event) error {
	body, err := json.Marshal(batchBody{Events: events})
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build batch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post batch: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("collector rejected batch: status=%d", resp.StatusCode)
	}
	return nil
}

// LogSender is the no-network sender used in local mode: batches are
// committed after being summarized to the log. No data leaves the
// process.
type LogSender struct{}

func (LogSender) Send(_ context.Context, events []Event) error {
	slog.Info("batch captured (local mode)", "events", len(events))
	return nil
}
