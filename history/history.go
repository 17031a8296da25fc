// Package history keeps an audit trail of planning runs.
package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mkarasev/daytrip/planner"
)

// Record is one completed planning run.
type Record struct {
	ID        string                 `bson:"_id" json:"id"`
	Owner     string                 `bson:"owner" json:"owner"`
	Query     string                 `bson:"query" json:"query"`
	Result    *planner.OutputResult  `bson:"result" json:"result"`
	Logs      []string               `bson:"logs,omitempty" json:"logs,omitempty"`
	Metadata  map[string]any         `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt time.Time              `bson:"created_at" json:"created_at"`
}

// Store persists planning-run records.
type Store interface {
	// Add saves a record, assigning ID and CreatedAt when missing.
	Add(ctx context.Context, rec *Record) error
	// ListByOwner returns the owner's records, newest first, up to limit.
	ListByOwner(ctx context.Context, owner string, limit int) ([]*Record, error)
	// Close releases the underlying connection.
	Close(ctx context.Context) error
}

func prepare(rec *Record) {
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("run:%d", time.Now().UnixNano())
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
}

// InMemory is a process-local Store. All operations are thread-safe.
type InMemory struct {
	mu      sync.RWMutex
	records []*Record
}

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Add(_ context.Context, rec *Record) error {
	prepare(rec)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *InMemory) ListByOwner(_ context.Context, owner string, limit int) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Record
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].Owner != owner {
			continue
		}
		out = append(out, s.records[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *InMemory) Close(context.Context) error {
	return nil
}

var _ Store = (*InMemory)(nil)
