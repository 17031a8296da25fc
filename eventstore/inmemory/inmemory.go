// Package inmemory provides an embedder-backed event store kept entirely in
// process memory. It is the development and test backend.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mkarasev/daytrip/event"
	"github.com/mkarasev/daytrip/eventstore"
	"github.com/mkarasev/daytrip/vector"
)

type entry struct {
	event     event.Event
	embedding []float32
}

// Store keeps events and their embeddings in memory.
// All operations are thread-safe.
type Store struct {
	embedder vector.Embedder

	mu      sync.RWMutex
	entries map[string]entry
	order   []string
}

// New creates an empty in-memory store over the given embedder.
func New(embedder vector.Embedder) *Store {
	return &Store{
		embedder: embedder,
		entries:  make(map[string]entry),
	}
}

// Upsert embeds and stores events, replacing earlier versions of the same
// (title, date, owner) record.
func (s *Store) Upsert(ctx context.Context, events []event.Event) error {
	if len(events) == 0 {
		return nil
	}

	texts := make([]string, len(events))
	for i := range events {
		texts[i] = events[i].Text()
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed events: %w", err)
	}
	if len(vectors) != len(events) {
		return fmt.Errorf("expected %d embeddings, got %d", len(events), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range events {
		key := dedupKey(e)
		if _, exists := s.entries[key]; !exists {
			s.order = append(s.order, key)
		}
		s.entries[key] = entry{event: e, embedding: vector.Normalize(vectors[i])}
	}
	return nil
}

// Search embeds the query and returns the closest events by cosine distance.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]eventstore.Candidate, error) {
	if limit <= 0 {
		return nil, nil
	}
	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	queryVec = vector.Normalize(queryVec)

	s.mu.RLock()
	candidates := make([]eventstore.Candidate, 0, len(s.order))
	for _, key := range s.order {
		ent := s.entries[key]
		candidates = append(candidates, eventstore.Candidate{
			Event:    ent.event,
			Distance: vector.CosineDistance(queryVec, ent.embedding),
		})
	}
	s.mu.RUnlock()

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// Count returns the number of stored events.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

func dedupKey(e event.Event) string {
	return strings.ToLower(strings.Join([]string{e.Title, e.Date, e.Owner}, "|"))
}

var _ eventstore.Store = (*Store)(nil)
