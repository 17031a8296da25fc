package planner

import (
	"context"
	"strings"
	"testing"

	"github.com/mkarasev/daytrip/event"
	"github.com/mkarasev/daytrip/gateway"
	"github.com/mkarasev/daytrip/message"
)

// scriptedClient returns canned responses in order and keeps what it saw.
type scriptedClient struct {
	responses []string
	calls     int
	prompts   []string
}

func (c *scriptedClient) Generate(_ context.Context, messages []*message.Message, _ []map[string]any) (*message.Message, error) {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(m.Text())
		b.WriteString("\n")
	}
	c.prompts = append(c.prompts, b.String())

	idx := c.calls
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	}
	c.calls++
	return message.New(message.RoleAssistant, c.responses[idx]), nil
}

const reasoningJSON = `{"analysis": "два события рядом", "considerations": ["пешком близко"], "challenges": [], "strategy": "идти по порядку"}`

const planJSON = `{"items": [
  {"event_name": "Музей", "event_address": "ул. Ленина, 1", "start_time": "10:00", "end_time": "12:00", "duration_minutes": 120, "transport_mode": "walking", "travel_time_minutes": null, "notes": ""},
  {"event_name": "Парк", "event_address": "ул. Мира, 5", "start_time": "12:30", "end_time": "14:00", "duration_minutes": 90, "transport_mode": "walking", "travel_time_minutes": 15, "notes": ""}
], "total_duration_minutes": 240, "total_travel_time_minutes": 15, "summary": "День в центре", "included_events": ["Музей", "Парк"], "excluded_events": []}`

const critiqueOKJSON = `{"overall_assessment": "хороший план", "strengths": ["логичный порядок"], "weaknesses": [], "suggestions": [], "critical_issues": [], "needs_revision": false}`

const critiqueReviseJSON = `{"overall_assessment": "есть проблемы", "strengths": [], "weaknesses": ["мало времени на обед"], "suggestions": ["добавить перерыв"], "critical_issues": [], "needs_revision": true}`

func testEvents() []event.Event {
	return []event.Event{
		{Title: "Музей", Location: "ул. Ленина, 1", Date: "12.06.2026", Owner: event.OwnerShared},
		{Title: "Парк", Location: "ул. Мира, 5", Date: "12.06.2026", Owner: event.OwnerShared},
	}
}

func TestPlanningRunHappyPath(t *testing.T) {
	client := &scriptedClient{responses: []string{reasoningJSON, planJSON, critiqueOKJSON}}
	g := NewPlanningGraph(gateway.New(client), nil)

	result, err := g.Run(context.Background(), InputData{
		Events:     testEvents(),
		UserPrompt: "хочу погулять в центре",
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.FinalPlan == nil {
		t.Fatalf("FinalPlan must never be nil")
	}
	if len(result.FinalPlan.Items) != 2 {
		t.Errorf("plan items = %d, want 2", len(result.FinalPlan.Items))
	}
	if result.Iterations != 1 {
		t.Errorf("iterations = %d, want 1", result.Iterations)
	}
	if result.Critique == nil || result.Critique.NeedsRevision {
		t.Errorf("critique should be present and accepting")
	}
	if !strings.Contains(result.FinalText, "Музей") {
		t.Errorf("final text should carry the itinerary:\n%s", result.FinalText)
	}
	if client.calls != 3 {
		t.Errorf("llm calls = %d, want 3 (reasoning, plan, critique)", client.calls)
	}
}

func TestPlanningRevisionLoop(t *testing.T) {
	client := &scriptedClient{responses: []string{
		reasoningJSON, planJSON, critiqueReviseJSON, planJSON, critiqueOKJSON,
	}}
	g := NewPlanningGraph(gateway.New(client), nil, WithMaxIterations(2))

	result, err := g.Run(context.Background(), InputData{
		Events:     testEvents(),
		UserPrompt: "день в городе",
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Iterations != 2 {
		t.Errorf("iterations = %d, want 2", result.Iterations)
	}
	if client.calls != 5 {
		t.Errorf("llm calls = %d, want 5", client.calls)
	}
}

func TestPlanningDefaultNeverRevises(t *testing.T) {
	// Revision is requested but the default iteration budget is already spent.
	client := &scriptedClient{responses: []string{reasoningJSON, planJSON, critiqueReviseJSON}}
	g := NewPlanningGraph(gateway.New(client), nil)

	result, err := g.Run(context.Background(), InputData{Events: testEvents()})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Iterations != 1 {
		t.Errorf("iterations = %d, want 1", result.Iterations)
	}
	if client.calls != 3 {
		t.Errorf("llm calls = %d, want 3", client.calls)
	}
}

func TestPlanningBrokenPlanOutput(t *testing.T) {
	client := &scriptedClient{responses: []string{reasoningJSON, "это не json", critiqueOKJSON}}
	g := NewPlanningGraph(gateway.New(client), nil)

	result, err := g.Run(context.Background(), InputData{
		Events:     testEvents(),
		UserPrompt: "план",
	})
	if err != nil {
		t.Fatalf("graph must absorb plan failures, got %v", err)
	}

	if result.FinalPlan == nil {
		t.Fatalf("FinalPlan must never be nil")
	}
	if len(result.FinalPlan.Items) != 0 {
		t.Errorf("broken output should yield an empty placeholder plan")
	}
	if !strings.Contains(result.FinalText, "Не получилось составить маршрут") {
		t.Errorf("final text should explain the failure:\n%s", result.FinalText)
	}
}

func TestPlanningNoEventsDiagnostic(t *testing.T) {
	client := &scriptedClient{responses: []string{
		reasoningJSON,
		`{"items": [], "total_duration_minutes": 0, "total_travel_time_minutes": 0, "summary": "", "included_events": [], "excluded_events": []}`,
		critiqueOKJSON,
	}}
	g := NewPlanningGraph(gateway.New(client), nil)

	result, err := g.Run(context.Background(), InputData{UserPrompt: "что-нибудь"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(result.FinalText, "подходящих событий не нашлось") {
		t.Errorf("empty retrieval should produce the no-events diagnostic:\n%s", result.FinalText)
	}
}

func TestPlanningMaxEventsTruncation(t *testing.T) {
	client := &scriptedClient{responses: []string{reasoningJSON, planJSON, critiqueOKJSON}}
	g := NewPlanningGraph(gateway.New(client), nil)

	maxEvents := 1
	result, err := g.Run(context.Background(), InputData{
		Events:      testEvents(),
		Constraints: Constraints{MaxEvents: &maxEvents},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.FinalPlan.Items) != 1 {
		t.Errorf("items = %d, want 1 after truncation", len(result.FinalPlan.Items))
	}
	if len(result.FinalPlan.ExcludedEvents) != 1 {
		t.Errorf("excluded = %v, want one cut event", result.FinalPlan.ExcludedEvents)
	}
}

func TestPlanPromptCarriesEventsAndConstraints(t *testing.T) {
	client := &scriptedClient{responses: []string{reasoningJSON, planJSON, critiqueOKJSON}}
	g := NewPlanningGraph(gateway.New(client), nil)

	start, _ := ParseTimeOfDay("10:00")
	_, err := g.Run(context.Background(), InputData{
		Events:      testEvents(),
		UserPrompt:  "день в центре",
		Constraints: Constraints{StartTime: &start},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	planPrompt := client.prompts[1]
	if !strings.Contains(planPrompt, "- Музей — (ул. Ленина, 1) — время: 12.06.2026") {
		t.Errorf("plan prompt missing event line:\n%s", planPrompt)
	}
	if !strings.Contains(planPrompt, "- Время начала: 10:00") {
		t.Errorf("plan prompt missing constraints block:\n%s", planPrompt)
	}
	if !strings.Contains(planPrompt, "Предыдущие рассуждения:") {
		t.Errorf("plan prompt should fold in reasoning:\n%s", planPrompt)
	}
}
