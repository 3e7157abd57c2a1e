package collector

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// StoredEvent is the persisted form of one received event: the wire
// event plus receive-side metadata.
type StoredEvent struct {
	ReceivedAt time.Time `json:"receivedAt"`
	BatchID    string    `json:"batchId"`
	Event      WireEvent `json:"event"`
}

// Store writes received events as JSON lines into date-organized files
// under baseDir, rotated by lumberjack. Writes are asynchronous; when
// the queue is full the record is dropped with a warning rather than
// blocking the ingest path.
type Store struct {
	baseDir     string
	maxSizeMB   int
	writeCh     chan StoredEvent
	done        chan struct{}
	wg          sync.WaitGroup
	currentDate string
	logger      *lumberjack.Logger
	mu          sync.Mutex
}

// NewStore creates an async event store with the given queue size and
// per-file size cap in megabytes.
func NewStore(baseDir string, queueSize, maxSizeMB int) *Store {
	s := &Store{
		baseDir:   baseDir,
		maxSizeMB: maxSizeMB,
		writeCh:   make(chan StoredEvent, queueSize),
		done:      make(chan struct{}),
	}
	s.wg.Add(1)
	go s.writeLoop()
	return s
}

// Write queues one event for persistence.
func (s *Store) Write(rec StoredEvent) error {
	select {
	case s.writeCh <- rec:
		return nil
	case <-s.done:
		return fmt.Errorf("store is closed")
	default:
		slog.Warn("event store queue full, dropping record", "batch_id", rec.BatchID)
		return fmt.Errorf("queue full")
	}
}

// Close shuts down the writer and flushes pending records.
func (s *Store) Close() error {
	close(s.done)

	timeout := time.After(5 * time.Second)
	for {
		select {
		case rec := <-s.writeCh:
			s.writeRecord(rec)
		case <-timeout:
			slog.Warn("event store close timeout, some records may be lost")
			goto done
		default:
			goto done
		}
	}

done:
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logger != nil {
		return s.logger.Close()
	}
	return nil
}

func (s *Store) writeLoop() {
	defer s.wg.Done()
	for {
		select {
		case rec := <-s.writeCh:
			s.writeRecord(rec)
		case <-s.done:
			return
		}
	}
}

func (s *Store) writeRecord(rec StoredEvent) {
	data, err := json.Marshal(rec)
	if err != nil {
		slog.Error("failed to marshal stored event", "batch_id", rec.BatchID, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	currentDate := time.Now().UTC().Format("2006-01-02")
	if s.logger == nil || currentDate != s.currentDate {
		s.rotateForDate(currentDate)
	}
	if s.logger == nil {
		return
	}

	if _, err := s.logger.Write(append(data, '\n')); err != nil {
		slog.Error("failed to write stored event", "batch_id", rec.BatchID, "error", err)
	}
}

func (s *Store) rotateForDate(date string) {
	if s.logger != nil {
		s.logger.Close()
	}

	dir := filepath.Join(s.baseDir, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("failed to create event store directory", "dir", dir, "error", err)
		s.logger = nil
		return
	}

	s.logger = &lumberjack.Logger{
		Filename:   filepath.Join(dir, "events.jsonl"),
		MaxSize:    s.maxSizeMB,
		MaxBackups: 100,
		MaxAge:     30,
		Compress:   false,
		LocalTime:  false,
	}
	s.currentDate = date
	slog.Info("opened event store file", "file", s.logger.Filename)
}
