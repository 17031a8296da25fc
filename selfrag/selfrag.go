// Package selfrag runs the retrieval flow: memory check, city extraction,
// vector search, relevance evaluation with bounded query reformulation, and
// constraint extraction. The output is always a complete InputData, no matter
// which steps degraded along the way.
package selfrag

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mkarasev/daytrip/event"
	"github.com/mkarasev/daytrip/gateway"
	"github.com/mkarasev/daytrip/graph"
	"github.com/mkarasev/daytrip/memcheck"
	"github.com/mkarasev/daytrip/pkg/logging"
	"github.com/mkarasev/daytrip/planner"
	"github.com/mkarasev/daytrip/retriever"
)

// MaxIterations bounds the reformulate-retrieve loop.
const MaxIterations = 3

// DefaultRetrieveLimit is how many events one retrieval pass may return.
const DefaultRetrieveLimit = 5

// eventsContextTokenBudget caps formatted event context fed into relevance
// and reformulation prompts.
const eventsContextTokenBudget = 2000

const (
	nodeCheckMemory        = "check_memory"
	nodeExtractCity        = "extract_city"
	nodeRetrieveEvents     = "retrieve_events"
	nodeEvaluateRelevance  = "evaluate_relevance"
	nodeReformulateQueries = "reformulate_queries"
	nodeExtractConstraints = "extract_constraints"
	nodeBuildInputData     = "build_input_data"

	stateKey = "selfrag"
)

// State accumulates one retrieval run.
type State struct {
	UserQuery string
	Owner     string
	City      string

	RetrievedEvents     []event.Event
	ReformulatedQueries []string
	IterationCount      int
	CurrentQuery        string

	MemoryFound bool
	IsRelevant  bool

	Constraints *planner.Constraints
	Response    *planner.InputData

	Logs []string
}

func (s *State) logf(format string, args ...any) {
	s.Logs = append(s.Logs, fmt.Sprintf(format, args...))
}

// Graph is the retrieval state machine.
type Graph struct {
	gw            *gateway.Gateway
	retriever     *retriever.Retriever
	memory        memcheck.Checker
	retrieveLimit int
	maxIterations int
	graph         *graph.Graph
	log           *slog.Logger
}

// Option configures a Graph.
type Option func(*Graph)

// WithRetrieveLimit overrides the per-pass retrieval limit.
func WithRetrieveLimit(n int) Option {
	return func(g *Graph) {
		if n > 0 {
			g.retrieveLimit = n
		}
	}
}

// WithMaxIterations overrides the reformulation bound.
func WithMaxIterations(n int) Option {
	return func(g *Graph) {
		if n > 0 {
			g.maxIterations = n
		}
	}
}

// New wires the retrieval graph. The memory checker may be nil; the memory
// step is then skipped.
func New(gw *gateway.Gateway, r *retriever.Retriever, memory memcheck.Checker, opts ...Option) *Graph {
	g := &Graph{
		gw:            gw,
		retriever:     r,
		memory:        memory,
		retrieveLimit: DefaultRetrieveLimit,
		maxIterations: MaxIterations,
		log:           logging.WithComponent("selfrag"),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.graph = g.build()
	return g
}

func (g *Graph) build() *graph.Graph {
	return graph.NewBuilder().
		AddNode(nodeCheckMemory, g.checkMemoryNode).
		AddNode(nodeExtractCity, g.extractCityNode).
		AddNode(nodeRetrieveEvents, g.retrieveEventsNode).
		AddNode(nodeEvaluateRelevance, g.evaluateRelevanceNode).
		AddNode(nodeReformulateQueries, g.reformulateQueriesNode).
		AddNode(nodeExtractConstraints, g.extractConstraintsNode).
		AddNode(nodeBuildInputData, g.buildInputDataNode).
		AddConditionNode("should_reformulate_or_finish", g.shouldReformulateOrFinish, map[string]string{
			"reformulate": nodeReformulateQueries,
			"finish":      nodeExtractConstraints,
		}).
		AddEdge(nodeCheckMemory, nodeExtractCity).
		AddEdge(nodeExtractCity, nodeRetrieveEvents).
		AddEdge(nodeRetrieveEvents, nodeEvaluateRelevance).
		AddEdge(nodeEvaluateRelevance, "should_reformulate_or_finish").
		AddEdge(nodeReformulateQueries, nodeRetrieveEvents).
		AddEdge(nodeExtractConstraints, nodeBuildInputData).
		AddEdge(nodeBuildInputData, graph.End).
		SetStart(nodeCheckMemory).
		Build()
}

// Run executes the retrieval flow. The returned InputData is never nil: every
// degraded path still produces one, worst case with zero events and empty
// constraints.
func (g *Graph) Run(ctx context.Context, userQuery, owner string) (*planner.InputData, []string, error) {
	state := &State{
		UserQuery:    userQuery,
		Owner:        owner,
		CurrentQuery: userQuery,
	}
	g.log.Info("retrieval started", "owner", owner)

	if _, err := g.graph.Execute(ctx, graph.State{stateKey: state}); err != nil {
		return nil, state.Logs, err
	}

	input := state.Response
	if input == nil {
		input = &planner.InputData{
			Events:     state.RetrievedEvents,
			UserPrompt: userQuery,
		}
		state.logf("⚠️ Ответ графа пуст → собран InputData напрямую")
	}

	g.log.Info("retrieval finished",
		"events", len(input.Events), "iterations", state.IterationCount)
	return input, state.Logs, nil
}

func selfragState(s graph.State) *State {
	state, _ := s[stateKey].(*State)
	return state
}

// checkMemoryNode only observes: the answer is logged and never gates the run.
func (g *Graph) checkMemoryNode(ctx context.Context, s graph.State) (graph.State, error) {
	state := selfragState(s)
	if g.memory == nil {
		return s, nil
	}
	found, err := g.memory.Seen(ctx, state.Owner, state.UserQuery)
	if err != nil {
		g.log.Warn("memory check failed", "error", err)
		state.logf("🔍 Проверка памяти: ошибка (%v)", err)
		return s, nil
	}
	state.MemoryFound = found
	if found {
		state.logf("🔍 Проверка памяти: найдено")
	} else {
		state.logf("🔍 Проверка памяти: не найдено")
	}
	return s, nil
}

func (g *Graph) extractCityNode(ctx context.Context, s graph.State) (graph.State, error) {
	state := selfragState(s)
	raw, err := g.gw.Complete(ctx, cityExtractionSystem, state.UserQuery)
	if err != nil {
		g.log.Warn("city extraction failed", "error", err)
		state.logf("🏙️ Ошибка извлечения города: %v", err)
		return s, nil
	}

	city := strings.TrimSpace(raw)
	switch strings.ToLower(city) {
	case "null", "", "none", "не указан":
		state.City = ""
		state.logf("🏙️ Город не указан в запросе")
	default:
		state.City = city
		state.logf("🏙️ Извлечён город: %s", city)
	}
	return s, nil
}

func (g *Graph) retrieveEventsNode(ctx context.Context, s graph.State) (graph.State, error) {
	state := selfragState(s)
	query := state.CurrentQuery
	if query == "" {
		query = state.UserQuery
	}

	events, err := g.retriever.Retrieve(ctx, query, g.retrieveLimit, retriever.Filter{
		Owner: state.Owner,
		City:  state.City,
	})
	if err != nil {
		// Vector store trouble is the one failure this graph cannot paper
		// over with a fallback value.
		return s, fmt.Errorf("event retrieval failed: %w", err)
	}

	state.RetrievedEvents = events
	cityInfo := ""
	if state.City != "" {
		cityInfo = fmt.Sprintf(", город='%s'", state.City)
	}
	state.logf("🔎 Поиск событий: запрос='%s', владелец='%s'%s, найдено=%d",
		query, state.Owner, cityInfo, len(events))
	return s, nil
}

func (g *Graph) evaluateRelevanceNode(ctx context.Context, s graph.State) (graph.State, error) {
	state := selfragState(s)
	eventsContext := gateway.TrimToTokenBudget(
		event.FormatForContext(state.RetrievedEvents), eventsContextTokenBudget)

	raw, err := g.gw.Complete(ctx, relevanceEvaluationSystem,
		fmt.Sprintf(relevanceEvaluationUser, state.UserQuery, eventsContext))
	if err != nil {
		g.log.Warn("relevance evaluation failed", "error", err)
		state.IsRelevant = false
		state.logf("📊 Оценка релевантности: ошибка (%v)", err)
		return s, nil
	}

	verdict := strings.ToUpper(strings.TrimSpace(raw))
	state.IsRelevant = strings.HasPrefix(verdict, "YES")
	label := "не релевантно"
	if state.IsRelevant {
		label = "релевантно"
	}
	state.logf("📊 Оценка релевантности: %s (%s)", firstLine(verdict), label)
	state.logf("   Найдено событий: %d", len(state.RetrievedEvents))
	return s, nil
}

func (g *Graph) reformulateQueriesNode(ctx context.Context, s graph.State) (graph.State, error) {
	state := selfragState(s)
	eventsContext := gateway.TrimToTokenBudget(
		event.FormatForContext(state.RetrievedEvents), eventsContextTokenBudget)
	state.IterationCount++

	raw, err := g.gw.Complete(ctx, queryReformulationSystem,
		fmt.Sprintf(queryReformulationUser, state.UserQuery, eventsContext))
	if err != nil {
		g.log.Warn("query reformulation failed", "error", err)
		state.logf("🔄 Переформулировка не удалась (итерация %d): %v", state.IterationCount, err)
		return s, nil
	}

	var newQueries []string
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if q := strings.TrimSpace(line); q != "" {
			newQueries = append(newQueries, q)
		}
	}
	if len(newQueries) > 0 {
		state.CurrentQuery = newQueries[0]
	} else {
		state.CurrentQuery = state.UserQuery
	}
	state.ReformulatedQueries = append(state.ReformulatedQueries, newQueries...)

	state.logf("🔄 Переформулировка запроса (итерация %d):", state.IterationCount)
	for i, q := range newQueries {
		if i >= 3 {
			break
		}
		state.logf("   %d. %s", i+1, q)
	}
	return s, nil
}

// rawConstraints mirrors the extraction JSON contract where times are strings.
type rawConstraints struct {
	StartTime           *string  `json:"start_time"`
	EndTime             *string  `json:"end_time"`
	MaxTotalTimeMinutes *int     `json:"max_total_time_minutes"`
	PreferredTransport  *string  `json:"preferred_transport"`
	Budget              *float64 `json:"budget"`
	MaxEvents           *int     `json:"max_events"`
	OtherConstraints    []string `json:"other_constraints"`
}

func (g *Graph) extractConstraintsNode(ctx context.Context, s graph.State) (graph.State, error) {
	state := selfragState(s)

	constraints, err := g.extractConstraints(ctx, state)
	if err != nil {
		g.log.Warn("constraints extraction failed, using empty constraints", "error", err)
		state.logf("🧩 Не удалось извлечь ограничения → использую пустые (ошибка: %s)",
			truncateString(err.Error(), 100))
		constraints = &planner.Constraints{}
	}
	state.Constraints = constraints
	return s, nil
}

func (g *Graph) extractConstraints(ctx context.Context, state *State) (*planner.Constraints, error) {
	raw, err := g.gw.Complete(ctx, "", fmt.Sprintf(constraintsExtractionPrompt, state.UserQuery))
	if err != nil {
		return nil, err
	}

	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var parsed rawConstraints
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("invalid constraints json: %w", err)
	}

	constraints := &planner.Constraints{
		MaxTotalTimeMinutes: parsed.MaxTotalTimeMinutes,
		Budget:              parsed.Budget,
		MaxEvents:           parsed.MaxEvents,
		OtherConstraints:    parsed.OtherConstraints,
	}
	if parsed.PreferredTransport != nil {
		constraints.PreferredTransport = *parsed.PreferredTransport
	}
	constraints.StartTime = g.parseTimeField(state, "start_time", parsed.StartTime)
	constraints.EndTime = g.parseTimeField(state, "end_time", parsed.EndTime)

	var details []string
	if constraints.StartTime != nil {
		details = append(details, "start_time="+constraints.StartTime.String())
	}
	if constraints.EndTime != nil {
		details = append(details, "end_time="+constraints.EndTime.String())
	}
	if constraints.MaxEvents != nil {
		details = append(details, fmt.Sprintf("max_events=%d", *constraints.MaxEvents))
	}
	if constraints.MaxTotalTimeMinutes != nil {
		details = append(details, fmt.Sprintf("max_total_time=%dмин", *constraints.MaxTotalTimeMinutes))
	}
	if len(details) > 0 {
		state.logf("🧩 Ограничения извлечены: %s", strings.Join(details, ", "))
	} else {
		state.logf("🧩 Ограничения извлечены (пустые)")
	}
	return constraints, nil
}

// parseTimeField drops unparseable times instead of failing the extraction.
func (g *Graph) parseTimeField(state *State, name string, value *string) *planner.TimeOfDay {
	if value == nil || *value == "" {
		return nil
	}
	t, err := planner.ParseTimeOfDay(*value)
	if err != nil {
		state.logf("⚠️ Не удалось распарсить %s: %s", name, *value)
		return nil
	}
	return &t
}

func (g *Graph) buildInputDataNode(_ context.Context, s graph.State) (graph.State, error) {
	state := selfragState(s)
	constraints := state.Constraints
	if constraints == nil {
		constraints = &planner.Constraints{}
	}
	state.Response = &planner.InputData{
		Events:      state.RetrievedEvents,
		UserPrompt:  state.UserQuery,
		Constraints: *constraints,
	}
	state.logf("✅ Сформирован InputData")
	return s, nil
}

func (g *Graph) shouldReformulateOrFinish(_ context.Context, s graph.State) (string, error) {
	state := selfragState(s)
	if state.IsRelevant || state.IterationCount >= g.maxIterations {
		return "finish", nil
	}
	return "reformulate", nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

func truncateString(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
