// Package eventstore defines the vector-search contract for event records.
package eventstore

import (
	"context"

	"github.com/mkarasev/daytrip/event"
)

// Candidate is an event returned from similarity search together with its
// cosine distance from the query (0 = identical direction).
type Candidate struct {
	Event    event.Event
	Distance float32
}

// Store is a similarity-searchable event collection.
type Store interface {
	// Search returns up to limit candidates ordered by ascending distance.
	Search(ctx context.Context, query string, limit int) ([]Candidate, error)

	// Upsert inserts or replaces events, deduplicating on (title, date, owner).
	Upsert(ctx context.Context, events []event.Event) error

	// Close releases the underlying resources.
	Close() error
}
