package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mkarasev/daytrip/gateway"
	"github.com/mkarasev/daytrip/graph"
	"github.com/mkarasev/daytrip/pkg/logging"
	"github.com/mkarasev/daytrip/tool"
)

const (
	nodeReasoning = "planner_reasoning"
	nodeCreate    = "planner_create"
	nodeCritic    = "critic"
	nodeRevise    = "planner_revise"

	stateKey = "planning"
)

// DefaultMaxIterations bounds the critic loop. One pass means the critic runs
// exactly once and the plan is never revised.
const DefaultMaxIterations = 1

const errorSummaryLimit = 300

// PlanningGraph runs the planner/critic loop as a state machine.
type PlanningGraph struct {
	planner       *Agent
	critic        *Critic
	graph         *graph.Graph
	maxIterations int
	log           *slog.Logger
}

// PlanningOption configures a PlanningGraph.
type PlanningOption func(*PlanningGraph)

// WithMaxIterations overrides the critic-loop bound.
func WithMaxIterations(n int) PlanningOption {
	return func(g *PlanningGraph) {
		if n > 0 {
			g.maxIterations = n
		}
	}
}

// NewPlanningGraph wires the planner and critic over a shared gateway and tool
// registry.
func NewPlanningGraph(gw *gateway.Gateway, registry *tool.Registry, opts ...PlanningOption) *PlanningGraph {
	g := &PlanningGraph{
		planner:       NewAgent(gw, registry),
		critic:        NewCritic(gw, registry),
		maxIterations: DefaultMaxIterations,
		log:           logging.WithComponent("planning-graph"),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.graph = g.build()
	return g
}

func (g *PlanningGraph) build() *graph.Graph {
	return graph.NewBuilder().
		AddNode(nodeReasoning, g.reasoningNode).
		AddNode(nodeCreate, g.createNode).
		AddNode(nodeCritic, g.criticNode).
		AddNode(nodeRevise, g.reviseNode).
		AddConditionNode("should_revise", g.shouldRevise, map[string]string{
			"revise": nodeRevise,
			"finish": graph.End,
		}).
		AddEdge(nodeReasoning, nodeCreate).
		AddEdge(nodeCreate, nodeCritic).
		AddEdge(nodeCritic, "should_revise").
		AddEdge(nodeRevise, nodeCritic).
		SetStart(nodeReasoning).
		Build()
}

// Run executes the planning flow to completion and assembles the result.
// The returned OutputResult always carries a non-nil FinalPlan.
func (g *PlanningGraph) Run(ctx context.Context, input InputData) (*OutputResult, error) {
	state := &GraphState{
		InputData:     input,
		Iteration:     0,
		MaxIterations: g.maxIterations,
	}
	g.log.Info("planning started",
		"events", len(input.Events), "max_iterations", state.MaxIterations)

	if _, err := g.graph.Execute(ctx, graph.State{stateKey: state}); err != nil {
		return nil, err
	}

	plan := state.Plan
	if plan == nil {
		plan = &Plan{Summary: planningDiagnostic(state)}
	}
	if maxEvents := input.Constraints.MaxEvents; maxEvents != nil {
		plan.Truncate(*maxEvents)
	}

	finalText := RenderTelegramMessage(plan)
	if len(plan.Items) == 0 {
		finalText = planningDiagnostic(state)
	}

	g.log.Info("planning finished",
		"iterations", state.Iteration, "items", len(plan.Items))

	return &OutputResult{
		FinalPlan:   plan,
		Reasoning:   state.Reasoning,
		Critique:    state.Critique,
		Iterations:  state.Iteration,
		WeatherInfo: state.WeatherInfo,
		MapsInfo:    state.MapsInfo,
		WebInfo:     state.WebInfo,
		FinalText:   finalText,
		Logs:        state.Logs,
	}, nil
}

func planningState(s graph.State) *GraphState {
	state, _ := s[stateKey].(*GraphState)
	return state
}

// reasoningNode is best-effort: a failed analysis never blocks plan creation.
func (g *PlanningGraph) reasoningNode(ctx context.Context, s graph.State) (graph.State, error) {
	state := planningState(s)
	reasoning, err := g.planner.CreateReasoning(ctx, state)
	if err != nil {
		g.log.Warn("reasoning failed, planning without it", "error", err)
		state.Logs = append(state.Logs, fmt.Sprintf("reasoning failed: %v", err))
		return s, nil
	}
	state.Reasoning = reasoning
	return s, nil
}

// createNode never propagates an error: every failure class degrades to a
// placeholder plan whose summary carries the diagnostic.
func (g *PlanningGraph) createNode(ctx context.Context, s graph.State) (graph.State, error) {
	state := planningState(s)
	plan, err := g.planner.CreatePlan(ctx, state)
	switch {
	case err != nil:
		var schemaErr *gateway.SchemaError
		kind := "plan creation failed"
		if errors.As(err, &schemaErr) {
			kind = "plan validation failed"
		}
		g.log.Warn(kind, "error", err)
		state.Logs = append(state.Logs, fmt.Sprintf("%s: %v", kind, err))
		state.Plan = &Plan{
			Summary: fmt.Sprintf("Не удалось создать план: %s", truncateString(err.Error(), errorSummaryLimit)),
		}
	case plan == nil:
		state.Plan = &Plan{Summary: "Не удалось создать план: модель не вернула план."}
	case len(plan.Items) == 0:
		plan.Summary = firstNonEmpty(plan.Summary, "План не содержит событий.")
		state.Plan = plan
	default:
		state.Plan = plan
	}
	return s, nil
}

// criticNode degrades to a neutral critique so a broken critic cannot spin
// the revision loop.
func (g *PlanningGraph) criticNode(ctx context.Context, s graph.State) (graph.State, error) {
	state := planningState(s)
	g.log.Info("critic pass", "iteration", state.Iteration+1, "max_iterations", state.MaxIterations)

	critique, err := g.critic.CritiquePlan(ctx, state)
	if err != nil {
		g.log.Warn("critique failed, accepting plan as-is", "error", err)
		state.Logs = append(state.Logs, fmt.Sprintf("critique failed: %v", err))
		critique = &Critique{
			OverallAssessment: "Критика недоступна, план принят без проверки.",
			NeedsRevision:     false,
		}
	}
	state.Critique = critique
	state.Iteration++
	return s, nil
}

func (g *PlanningGraph) reviseNode(ctx context.Context, s graph.State) (graph.State, error) {
	state := planningState(s)
	plan, err := g.planner.RevisePlan(ctx, state)
	if err != nil {
		g.log.Warn("revision failed, keeping previous plan", "error", err)
		state.Logs = append(state.Logs, fmt.Sprintf("revision failed: %v", err))
		return s, nil
	}
	state.Plan = plan
	return s, nil
}

func (g *PlanningGraph) shouldRevise(_ context.Context, s graph.State) (string, error) {
	state := planningState(s)
	if state.Critique == nil {
		g.log.Info("no critique, finishing")
		return "finish", nil
	}
	if state.Critique.NeedsRevision && state.Iteration < state.MaxIterations {
		g.log.Info("revision requested",
			"iteration", state.Iteration, "max_iterations", state.MaxIterations)
		return "revise", nil
	}
	if state.Iteration >= state.MaxIterations {
		g.log.Info("iteration budget reached", "max_iterations", state.MaxIterations)
		return "finish", nil
	}
	g.log.Info("plan accepted")
	return "finish", nil
}

// planningDiagnostic tells the user why there is no itinerary, distinguishing
// an empty retrieval from a planning failure.
func planningDiagnostic(state *GraphState) string {
	if len(state.InputData.Events) == 0 {
		return "К сожалению, подходящих событий не нашлось, поэтому маршрут составить не из чего. Попробуй изменить запрос или выбрать другую дату."
	}
	if state.Plan != nil && state.Plan.Summary != "" {
		return fmt.Sprintf("Не получилось составить маршрут из найденных событий. %s", state.Plan.Summary)
	}
	return "Не получилось составить маршрут из найденных событий. Попробуй переформулировать запрос."
}

func truncateString(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
