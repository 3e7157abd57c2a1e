//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

var env *Env

// Env holds shared state for all integration tests. Tests require a
// running collector; set DOMPULSE_COLLECTOR_URL to point at it.
type Env struct {
	BaseURL string
	Client  *http.Client
}

// WSURL converts the base HTTP URL into the tail WebSocket URL.
func (e *Env) WSURL() string {
	ws := strings.Replace(e.BaseURL, "http://", "ws://", 1)
	ws = strings.Replace(ws, "https://", "wss://", 1)
	return ws + "/api/v1/tail"
}

// checkHealth verifies the collector is reachable.
func (e *Env) checkHealth() error {
	resp, err := e.Client.Get(e.BaseURL + "/health")
	if err != nil {
		return fmt.Errorf("collector not reachable at %s: %w", e.BaseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check: status %d", resp.StatusCode)
	}
	return nil
}

func TestMain(m *testing.M) {
	baseURL := os.Getenv("DOMPULSE_COLLECTOR_URL")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8090"
	}

	env = &Env{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}

	if err := env.checkHealth(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, "integration: using collector at %s\n", env.BaseURL)

	os.Exit(m.Run())
}

// --- HTTP helpers ---

func (e *Env) GET(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := e.Client.Get(e.BaseURL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func (e *Env) POST(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("POST %s: marshal body: %v", path, err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(http.MethodPost, e.BaseURL+path, r)
	if err != nil {
		t.Fatalf("POST %s: new request: %v", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.Client.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

// --- Assertion helpers ---

func requireStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want %d; body: %s", resp.StatusCode, want, body)
	}
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

// eventBatch builds a minimal valid batch payload with n events sharing
// one session ID.
func eventBatch(session string, n int) map[string]any {
	events := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, map[string]any{
			"type":      "keystroke",
			"timestamp": time.Now().UnixMilli(),
			"data":      map[string]any{"element": "input", "value": "[redacted 4 chars]"},
			"sessionId": session,
			"url":       "https://example.test/form",
			"userAgent": "integration-test/1.0",
		})
	}
	return map[string]any{"events": events}
}
