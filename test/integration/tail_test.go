//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

func TestTailReceivesIngestedEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, _, err := ws.Dial(ctx, env.WSURL())
	if err != nil {
		t.Fatalf("dial tail: %v", err)
	}
	defer conn.Close()

	// Give the broker a moment to register the subscriber before posting.
	time.Sleep(200 * time.Millisecond)

	session := fmt.Sprintf("it-tail-%d", time.Now().UnixNano())
	resp := env.POST(t, "/api/v1/events", eventBatch(session, 1))
	requireStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err := conn.SetReadDeadline(deadline); err != nil {
			t.Fatalf("set read deadline: %v", err)
		}
		msg, err := wsutil.ReadServerText(conn)
		if err != nil {
			t.Fatalf("read tail: %v", err)
		}

		var rec struct {
			BatchID string `json:"batchId"`
			Event   struct {
				SessionID string `json:"sessionId"`
				Type      string `json:"type"`
			} `json:"event"`
		}
		if err := json.Unmarshal(msg, &rec); err != nil {
			t.Fatalf("decode tail message: %v", err)
		}
		// Other tests may be ingesting concurrently; match on our session.
		if rec.Event.SessionID != session {
			continue
		}
		if rec.Event.Type != "keystroke" {
			t.Fatalf("event type = %q, want %q", rec.Event.Type, "keystroke")
		}
		if rec.BatchID == "" {
			t.Fatal("tail record has no batch ID")
		}
		return
	}
	t.Fatal("tail never delivered the ingested event")
}
