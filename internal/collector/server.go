package collector

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// MaxBatchEvents caps one ingested batch. The agent flushes far smaller
// batches; anything beyond this is malformed or abusive.
const MaxBatchEvents = 500

// WireEvent mirrors the agent's event JSON. Data stays schemaless here:
// the collector validates the envelope, not payload internals.
type WireEvent struct {
	Type      string         `json:"type" minLength:"1" maxLength:"64" doc:"Event type, e.g. keystroke, mouse-click, scroll, or a custom type"`
	Timestamp int64          `json:"timestamp" doc:"Client epoch milliseconds"`
	Data      map[string]any `json:"data,omitempty"`
	SessionID string         `json:"sessionId" minLength:"1" maxLength:"128"`
	URL       string         `json:"url,omitempty"`
	UserAgent string         `json:"userAgent,omitempty"`
}

// Server handles event ingestion: validate, persist, fan out.
type Server struct {
	store  *Store
	broker *Broker
}

// NewServer builds the collector HTTP handler: a typed ingest API plus
// the live-tail WebSocket endpoint.
func NewServer(store *Store, broker *Broker) http.Handler {
	s := &Server{store: store, broker: broker}

	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("dompulse collector", "1.0.0")
	api := humachi.New(router, cfg)

	registerIngestHandlers(api, s)
	registerHealthHandlers(api, s)

	router.Get("/api/v1/tail", TailHandler(broker))

	return router
}

func registerIngestHandlers(api huma.API, s *Server) {
	type ingestInput struct {
		Body struct {
			Events []WireEvent `json:"events" maxItems:"500" doc:"Event batch; duplicate batches are accepted idempotently"`
		}
	}
	type ingestOutput struct {
		Body struct {
			BatchID  string `json:"batchId"`
			Accepted int    `json:"accepted"`
		}
	}

	huma.Register(api, huma.Operation{OperationID: "ingest-events", Method: http.MethodPost, Path: "/api/v1/events", Summary: "Ingest an event batch", Tags: []string{"Events"}},
		func(ctx context.Context, input *ingestInput) (*ingestOutput, error) {
			accepted, batchID, err := s.accept(input.Body.Events)
			if err != nil {
				return nil, err
			}
			out := &ingestOutput{}
			out.Body.BatchID = batchID
			out.Body.Accepted = accepted
			return out, nil
		})
}

func registerHealthHandlers(api huma.API, s *Server) {
	type healthOutput struct {
		Body struct {
			Status      string `json:"status"`
			TailClients int    `json:"tailClients"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			out.Body.TailClients = s.broker.ClientCount()
			return out, nil
		})
}

// accept validates the batch, persists each event and publishes it to
// tail subscribers. The sender retries failed batches unchanged, so a
// replayed batch simply lands again; dedup is the downstream consumer's
// concern.
func (s *Server) accept(events []WireEvent) (int, string, error) {
	if len(events) == 0 {
		return 0, "", huma.Error400BadRequest("events must not be empty")
	}
	if len(events) > MaxBatchEvents {
		return 0, "", huma.Error400BadRequest("batch exceeds maximum size")
	}
	for i, ev := range events {
		if ev.Type == "" {
			return 0, "", huma.Error422UnprocessableEntity("event missing type", &huma.ErrorDetail{Location: locationOf(i), Message: "type is required"})
		}
		if ev.SessionID == "" {
			return 0, "", huma.Error422UnprocessableEntity("event missing session", &huma.ErrorDetail{Location: locationOf(i), Message: "sessionId is required"})
		}
	}

	batchID := uuid.NewString()
	now := time.Now().UTC()
	for _, ev := range events {
		rec := StoredEvent{ReceivedAt: now, BatchID: batchID, Event: ev}
		if err := s.store.Write(rec); err != nil {
			slog.Warn("event dropped by store", "batch_id", batchID, "error", err)
			continue
		}
		if payload, err := json.Marshal(rec); err == nil {
			s.broker.Publish(string(payload))
		}
	}

	slog.Debug("batch accepted", "batch_id", batchID, "events", len(events))
	return len(events), batchID, nil
}

func locationOf(i int) string {
	return "body.events[" + strconv.Itoa(i) + "]"
}
