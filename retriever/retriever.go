// Package retriever layers owner, city and date post-filtering on top of
// vector similarity search over the event store.
package retriever

import (
	"context"
	"log/slog"
	"time"

	"github.com/mkarasev/daytrip/event"
	"github.com/mkarasev/daytrip/eventstore"
	"github.com/mkarasev/daytrip/pkg/logging"
)

// DefaultSimilarityThreshold is the maximum cosine distance a candidate may
// have from the query to be accepted.
const DefaultSimilarityThreshold = 0.4

// overFetchMultiplier compensates for candidates lost to post-filtering.
const overFetchMultiplier = 3

// Filter narrows a retrieval beyond plain similarity.
type Filter struct {
	// Owner restricts candidates to an exact owner match when non-empty.
	Owner string
	// City restricts shared-pool candidates to a location/country mentioning
	// the city (declined forms included) when non-empty.
	City string
	// Date restricts candidates to a calendar day: "DD.MM.YYYY", "сегодня",
	// "завтра", "послезавтра" or "выходные".
	Date string
	// SimilarityThreshold overrides DefaultSimilarityThreshold when > 0.
	SimilarityThreshold float32
}

// Retriever runs filtered similarity searches against a Store.
type Retriever struct {
	store eventstore.Store
	log   *slog.Logger
	now   func() time.Time
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithClock overrides the wall clock used for relative-date resolution.
func WithClock(now func() time.Time) Option {
	return func(r *Retriever) {
		if now != nil {
			r.now = now
		}
	}
}

// New creates a Retriever over the given store.
func New(store eventstore.Store, opts ...Option) *Retriever {
	r := &Retriever{
		store: store,
		log:   logging.WithComponent("retriever"),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve searches the store and applies the post-filter pipeline in order:
// similarity threshold, owner, city, date. Any failed check excludes the
// candidate. Collection stops once limit events are accepted.
func (r *Retriever) Retrieve(ctx context.Context, query string, limit int, filter Filter) ([]event.Event, error) {
	if limit <= 0 {
		return nil, nil
	}

	threshold := filter.SimilarityThreshold
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}

	candidates, err := r.store.Search(ctx, query, limit*overFetchMultiplier)
	if err != nil {
		r.log.Warn("event search failed", "error", err)
		return nil, err
	}

	accepted := make([]event.Event, 0, limit)
	for _, c := range candidates {
		if c.Distance > threshold {
			continue
		}
		if filter.Owner != "" && c.Event.Owner != filter.Owner {
			continue
		}
		// City filtering applies only to shared-pool events: a user's
		// personal records are kept regardless of location text.
		if filter.City != "" && c.Event.Owner == event.OwnerShared {
			if !matchesCity(c.Event, filter.City) {
				continue
			}
		}
		if filter.Date != "" && !r.matchesDate(c.Event.Date, filter.Date) {
			continue
		}
		accepted = append(accepted, c.Event)
		if len(accepted) >= limit {
			break
		}
	}

	r.log.Debug("retrieval complete",
		"query", query,
		"candidates", len(candidates),
		"accepted", len(accepted))
	return accepted, nil
}

// Close releases the underlying store.
func (r *Retriever) Close() error {
	return r.store.Close()
}
