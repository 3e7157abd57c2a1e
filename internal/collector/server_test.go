package collector

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestServer(t *testing.T) (*httptest.Server, *Store, *Broker) {
	t.Helper()
	store := NewStore(t.TempDir(), 100, 10)
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("store close failed: %v", err)
		}
	})
	broker := NewBroker()
	srv := httptest.NewServer(NewServer(store, broker))
	t.Cleanup(srv.Close)
	return srv, store, broker
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestIngestAcceptsBatch(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body := `{"events":[
		{"type":"keystroke","timestamp":1700000000000,"data":{"element":"input","value":"[redacted 5 chars]"},"sessionId":"s-1","url":"https://example.test","userAgent":"ua"},
		{"type":"scroll","timestamp":1700000000100,"data":{"depthPercent":40},"sessionId":"s-1"}
	]}`
	resp := postJSON(t, srv.URL+"/api/v1/events", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d; want 200", resp.StatusCode)
	}
}

func TestIngestAcceptsDuplicateBatches(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body := `{"events":[{"type":"mouse-click","timestamp":1,"data":{"x":1,"y":2},"sessionId":"s-1"}]}`
	for i := 0; i < 2; i++ {
		resp := postJSON(t, srv.URL+"/api/v1/events", body)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("replayed batch rejected: status=%d", resp.StatusCode)
		}
	}
}

func TestIngestRejectsMalformedBatches(t *testing.T) {
	srv, _, _ := newTestServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"not_an_array", `{"events":{"type":"keystroke"}}`},
		{"empty_batch", `{"events":[]}`},
		{"missing_type", `{"events":[{"timestamp":1,"sessionId":"s-1"}]}`},
		{"missing_session", `{"events":[{"type":"keystroke","timestamp":1}]}`},
		{"not_json", `events=1`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/v1/events", tc.body)
			if resp.StatusCode < 400 || resp.StatusCode >= 500 {
				t.Fatalf("status = %d; want 4xx", resp.StatusCode)
			}
		})
	}
}

func TestIngestRejectsOversizedBatch(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var sb strings.Builder
	sb.WriteString(`{"events":[`)
	for i := 0; i <= MaxBatchEvents; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(`{"type":"keystroke","timestamp":1,"sessionId":"s-1"}`)
	}
	sb.WriteString(`]}`)

	resp := postJSON(t, srv.URL+"/api/v1/events", sb.String())
	if resp.StatusCode < 400 || resp.StatusCode >= 500 {
		t.Fatalf("status = %d; want 4xx", resp.StatusCode)
	}
}

func TestIngestPublishesToTailSubscribers(t *testing.T) {
	srv, _, broker := newTestServer(t)

	id, ch := broker.Subscribe()
	defer broker.Unsubscribe(id)

	body := `{"events":[{"type":"keystroke","timestamp":1,"sessionId":"s-9"}]}`
	resp := postJSON(t, srv.URL+"/api/v1/events", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d; want 200", resp.StatusCode)
	}

	select {
	case payload := <-ch:
		if !strings.Contains(payload, `"s-9"`) {
			t.Fatalf("published payload missing session: %s", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for tail publish")
	}
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d; want 200", resp.StatusCode)
	}
}
