package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/mkarasev/daytrip/event"
	"github.com/mkarasev/daytrip/eventstore"
	"github.com/mkarasev/daytrip/gateway"
	"github.com/mkarasev/daytrip/history"
	"github.com/mkarasev/daytrip/memcheck"
	"github.com/mkarasev/daytrip/message"
	"github.com/mkarasev/daytrip/safety"
)

// scriptedClient replays canned responses in order.
type scriptedClient struct {
	responses []string
	calls     int
}

func (c *scriptedClient) Generate(context.Context, []*message.Message, []map[string]any) (*message.Message, error) {
	idx := c.calls
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	}
	c.calls++
	return message.New(message.RoleAssistant, c.responses[idx]), nil
}

type stubStore struct {
	candidates []eventstore.Candidate
	searches   int
	queries    []string
	upserted   []event.Event
}

func (s *stubStore) Search(_ context.Context, query string, _ int) ([]eventstore.Candidate, error) {
	s.searches++
	s.queries = append(s.queries, query)
	return s.candidates, nil
}

func (s *stubStore) Upsert(_ context.Context, events []event.Event) error {
	s.upserted = append(s.upserted, events...)
	return nil
}

func (s *stubStore) Close() error { return nil }

const (
	allowVerdict = `{"label": "allow", "reason": "ok"}`
	blockVerdict = `{"label": "block", "reason": "explicit threat"}`

	reasoningJSON = `{"analysis": "одно событие", "considerations": [], "challenges": [], "strategy": "простой план"}`
	planJSON      = `{"items": [{"event_name": "Выставка", "event_address": "Москва", "start_time": "11:00", "end_time": "13:00", "duration_minutes": 120, "transport_mode": "walking", "travel_time_minutes": null, "notes": ""}], "total_duration_minutes": 120, "total_travel_time_minutes": 0, "summary": "Короткий день", "included_events": ["Выставка"], "excluded_events": []}`
	critiqueJSON  = `{"overall_assessment": "ок", "strengths": [], "weaknesses": [], "suggestions": [], "critical_issues": [], "needs_revision": false}`
)

// fullScript covers one clean run: input moderation, city extraction,
// relevance, constraints, reasoning, plan, critique, output moderation.
func fullScript() []string {
	return []string{
		allowVerdict,
		"Москва",
		"YES",
		"{}",
		reasoningJSON,
		planJSON,
		critiqueJSON,
		allowVerdict,
	}
}

func userCandidates() []eventstore.Candidate {
	return []eventstore.Candidate{
		{
			Event:    event.Event{Title: "Выставка", Location: "выставка в Москве", Owner: "user-1"},
			Distance: 0.1,
		},
	}
}

func TestRunEndToEnd(t *testing.T) {
	store := &stubStore{candidates: userCandidates()}
	memory := memcheck.NewInMemory()
	runs := history.NewInMemory()

	p := New(gateway.New(&scriptedClient{responses: fullScript()}), store, Options{
		Memory:  memory,
		History: runs,
	})
	defer p.Close(context.Background())

	result, err := p.Run(context.Background(), "куда сходить в Москве", "user-1")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.FinalPlan == nil || len(result.FinalPlan.Items) != 1 {
		t.Fatalf("unexpected plan: %+v", result.FinalPlan)
	}
	if !strings.Contains(result.FinalText, "Выставка") {
		t.Errorf("final text should carry the itinerary:\n%s", result.FinalText)
	}

	// Retrieval logs come before planning logs.
	if len(result.Logs) == 0 || !strings.HasPrefix(result.Logs[0], "🔍") {
		t.Errorf("logs should start with the memory check: %v", result.Logs)
	}

	seen, err := memory.Seen(context.Background(), "user-1", "куда сходить в Москве")
	if err != nil || !seen {
		t.Errorf("query should be recorded in memory: seen=%v err=%v", seen, err)
	}
	records, err := runs.ListByOwner(context.Background(), "user-1", 10)
	if err != nil || len(records) != 1 {
		t.Fatalf("history records = %d, err = %v", len(records), err)
	}
	if records[0].Query != "куда сходить в Москве" || records[0].Result == nil {
		t.Errorf("history record incomplete: %+v", records[0])
	}
}

func TestRunBlockedInput(t *testing.T) {
	store := &stubStore{candidates: userCandidates()}
	runs := history.NewInMemory()

	p := New(gateway.New(&scriptedClient{responses: []string{blockVerdict}}), store, Options{History: runs})

	result, err := p.Run(context.Background(), "я взорву это здание", "user-1")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.FinalText != safety.RefusalMessage {
		t.Errorf("FinalText = %q, want refusal", result.FinalText)
	}
	if store.searches != 0 {
		t.Errorf("blocked input must not reach retrieval, got %d searches", store.searches)
	}
	records, _ := runs.ListByOwner(context.Background(), "user-1", 10)
	if len(records) != 0 {
		t.Errorf("blocked runs must not be recorded, got %d", len(records))
	}
}

func TestRunSoftInputSanitized(t *testing.T) {
	script := fullScript()
	script[0] = `{"label": "soft", "reason": "rude tone", "sanitized_text": "куда сходить вечером"}`

	store := &stubStore{candidates: userCandidates()}
	p := New(gateway.New(&scriptedClient{responses: script}), store, Options{})

	_, err := p.Run(context.Background(), "куда, бля, сходить вечером", "user-1")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(store.queries) == 0 || store.queries[0] != "куда сходить вечером" {
		t.Errorf("retrieval should see the sanitized query, got %v", store.queries)
	}
}

func TestRunOutputModeration(t *testing.T) {
	script := fullScript()
	script[len(script)-1] = `{"label": "soft", "reason": "rude tone", "sanitized_text": "смягчённый маршрут"}`

	p := New(gateway.New(&scriptedClient{responses: script}), &stubStore{candidates: userCandidates()}, Options{})

	result, err := p.Run(context.Background(), "куда сходить в Москве", "user-1")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.FinalText != "смягчённый маршрут" {
		t.Errorf("soft verdict should replace the final text, got %q", result.FinalText)
	}
}

func TestIndexEvents(t *testing.T) {
	store := &stubStore{}
	p := New(gateway.New(&scriptedClient{responses: []string{allowVerdict}}), store, Options{})

	events := []event.Event{{Title: "Концерт", Owner: event.OwnerShared}}
	if err := p.IndexEvents(context.Background(), events); err != nil {
		t.Fatalf("IndexEvents failed: %v", err)
	}
	if len(store.upserted) != 1 || store.upserted[0].Title != "Концерт" {
		t.Errorf("upserted = %v", store.upserted)
	}
}
