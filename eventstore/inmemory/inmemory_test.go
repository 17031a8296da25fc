package inmemory

import (
	"context"
	"strings"
	"testing"

	"github.com/mkarasev/daytrip/event"
)

// keywordEmbedder maps text onto a fixed keyword axis each. Texts sharing a
// keyword with the query end up close, everything else far away.
type keywordEmbedder struct {
	keywords []string
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, len(e.keywords)+1)
	lower := strings.ToLower(text)
	matched := false
	for i, kw := range e.keywords {
		if strings.Contains(lower, kw) {
			vec[i] = 1
			matched = true
		}
	}
	if !matched {
		vec[len(e.keywords)] = 1
	}
	return vec, nil
}

func (e *keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (e *keywordEmbedder) Dimension() int { return len(e.keywords) + 1 }

func newTestStore() *Store {
	return New(&keywordEmbedder{keywords: []string{"концерт", "выставка", "парк"}})
}

func TestSearchRanksByRelevance(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	err := store.Upsert(ctx, []event.Event{
		{Title: "Выставка Моне", Owner: event.OwnerShared},
		{Title: "Концерт в клубе", Owner: event.OwnerShared},
		{Title: "Прогулка по парку", Owner: event.OwnerShared},
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.Search(ctx, "какой концерт послушать", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	if got[0].Event.Title != "Концерт в клубе" {
		t.Errorf("best match = %q", got[0].Event.Title)
	}
	if got[0].Distance >= got[1].Distance {
		t.Errorf("distances not ascending: %f, %f", got[0].Distance, got[1].Distance)
	}
}

func TestUpsertDeduplicates(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	first := event.Event{Title: "Концерт", Date: "12.06.2026", Owner: event.OwnerShared, Location: "старый адрес"}
	updated := first
	updated.Location = "новый адрес"

	if err := store.Upsert(ctx, []event.Event{first}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := store.Upsert(ctx, []event.Event{updated}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if store.Count() != 1 {
		t.Fatalf("count = %d, want 1 after re-upsert", store.Count())
	}
	got, err := store.Search(ctx, "концерт", 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if got[0].Event.Location != "новый адрес" {
		t.Errorf("re-upsert did not replace the record: %+v", got[0].Event)
	}
}

func TestUpsertKeepsOwnersSeparate(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	err := store.Upsert(ctx, []event.Event{
		{Title: "Концерт", Date: "12.06.2026", Owner: event.OwnerShared},
		{Title: "Концерт", Date: "12.06.2026", Owner: "user-1"},
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if store.Count() != 2 {
		t.Errorf("count = %d, same title for different owners must not collapse", store.Count())
	}
}

func TestSearchZeroLimit(t *testing.T) {
	store := newTestStore()
	got, err := store.Search(context.Background(), "концерт", 0)
	if err != nil || got != nil {
		t.Errorf("zero limit: got %v, %v", got, err)
	}
}

func TestUpsertEmptyBatch(t *testing.T) {
	store := newTestStore()
	if err := store.Upsert(context.Background(), nil); err != nil {
		t.Errorf("empty batch should be a no-op: %v", err)
	}
}
