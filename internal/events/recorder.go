package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/bookline/bookline/pkg/logging"
)

// OutboxRecorder writes appointment events into the outbox table.
type OutboxRecorder struct {
	store *OutboxStore
}

func NewOutboxRecorder(store *OutboxStore) *OutboxRecorder {
	if store == nil {
		panic("events: outbox store required")
	}
	return &OutboxRecorder{store: store}
}

func (r *OutboxRecorder) Record(ctx context.Context, orgID, eventType string, payload any) error {
	_, err := r.store.Insert(ctx, orgID, eventType, payload)
	return err
}

// MemoryRecorder keeps events in memory; used with the in-memory store in
// development and tests.
type MemoryRecorder struct {
	mu      sync.Mutex
	entries []OutboxEntry
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (r *MemoryRecorder) Record(_ context.Context, orgID, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, OutboxEntry{OrgID: orgID, Type: eventType, Payload: data})
	return nil
}

// Entries returns a snapshot of recorded events.
func (r *MemoryRecorder) Entries() []OutboxEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]OutboxEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// LogHandler is the default delivery target when no downstream consumer is
// configured: it just logs each event.
type LogHandler struct {
	logger *logging.Logger
}

func NewLogHandler(logger *logging.Logger) *LogHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogHandler{logger: logger}
}

func (h *LogHandler) Handle(_ context.Context, entry OutboxEntry) error {
	h.logger.Info("appointment event", "event_id", entry.ID, "org_id", entry.OrgID, "type", entry.Type)
	return nil
}
