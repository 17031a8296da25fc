// Package pipeline runs a user query end to end: retrieval, planning,
// moderation, and bookkeeping.
package pipeline

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mkarasev/daytrip/event"
	"github.com/mkarasev/daytrip/eventstore"
	"github.com/mkarasev/daytrip/gateway"
	"github.com/mkarasev/daytrip/history"
	"github.com/mkarasev/daytrip/memcheck"
	"github.com/mkarasev/daytrip/pkg/logging"
	"github.com/mkarasev/daytrip/pkg/telemetry"
	"github.com/mkarasev/daytrip/planner"
	"github.com/mkarasev/daytrip/retriever"
	"github.com/mkarasev/daytrip/safety"
	"github.com/mkarasev/daytrip/selfrag"
	"github.com/mkarasev/daytrip/tool"
)

// Pipeline wires the retrieval and planning flows behind one entry point.
type Pipeline struct {
	store     eventstore.Store
	retriever *retriever.Retriever
	selfrag   *selfrag.Graph
	planning  *planner.PlanningGraph
	moderator *safety.Moderator
	memory    memcheck.Checker
	history   history.Store
	tracer    trace.Tracer
	log       *slog.Logger
}

// Options configures optional pipeline collaborators and bounds.
type Options struct {
	// Registry provides the planner/critic tools. Empty by default.
	Registry *tool.Registry
	// Memory enables the repeated-question check. Nil disables it.
	Memory memcheck.Checker
	// History records completed runs. Nil disables recording.
	History history.Store
	// RetrieveLimit caps events per retrieval pass.
	RetrieveLimit int
	// SelfRAGIterations bounds query reformulation.
	SelfRAGIterations int
	// PlanningIterations bounds the critic loop.
	PlanningIterations int
}

// New assembles a pipeline over the given gateway and event store.
func New(gw *gateway.Gateway, store eventstore.Store, opts Options) *Pipeline {
	r := retriever.New(store)

	var selfragOpts []selfrag.Option
	if opts.RetrieveLimit > 0 {
		selfragOpts = append(selfragOpts, selfrag.WithRetrieveLimit(opts.RetrieveLimit))
	}
	if opts.SelfRAGIterations > 0 {
		selfragOpts = append(selfragOpts, selfrag.WithMaxIterations(opts.SelfRAGIterations))
	}

	var planningOpts []planner.PlanningOption
	if opts.PlanningIterations > 0 {
		planningOpts = append(planningOpts, planner.WithMaxIterations(opts.PlanningIterations))
	}

	return &Pipeline{
		store:     store,
		retriever: r,
		selfrag:   selfrag.New(gw, r, opts.Memory, selfragOpts...),
		planning:  planner.NewPlanningGraph(gw, opts.Registry, planningOpts...),
		moderator: safety.New(gw),
		memory:    opts.Memory,
		history:   opts.History,
		tracer:    telemetry.Tracer("pipeline"),
		log:       logging.WithComponent("pipeline"),
	}
}

// Run executes the full flow for one user query. The result always carries a
// user-deliverable FinalText.
func (p *Pipeline) Run(ctx context.Context, userQuery, owner string) (result *planner.OutputResult, err error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.String("owner", owner)))
	defer func() { telemetry.End(span, err) }()

	verdict := p.moderator.Moderate(ctx, userQuery)
	if verdict.Label == safety.LabelBlock {
		p.log.Warn("user query blocked", "reason", verdict.Reason)
		return &planner.OutputResult{
			FinalPlan: &planner.Plan{Summary: verdict.Reason},
			FinalText: safety.RefusalMessage,
		}, nil
	}
	query := safety.Apply(userQuery, verdict)
	if query != userQuery {
		p.log.Info("user query sanitized", "reason", verdict.Reason)
	}

	input, logs, err := p.runRetrieval(ctx, query, owner)
	if err != nil {
		return nil, err
	}

	result, err = p.runPlanning(ctx, input)
	if err != nil {
		return nil, err
	}
	result.Logs = append(logs, result.Logs...)

	outVerdict := p.moderator.Moderate(ctx, result.FinalText)
	result.FinalText = safety.Apply(result.FinalText, outVerdict)
	if outVerdict.Label != safety.LabelAllow {
		p.log.Info("final text moderated", "label", outVerdict.Label, "reason", outVerdict.Reason)
	}

	p.record(ctx, userQuery, owner, result)
	return result, nil
}

func (p *Pipeline) runRetrieval(ctx context.Context, userQuery, owner string) (input *planner.InputData, logs []string, err error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.retrieval")
	defer func() { telemetry.End(span, err) }()

	input, logs, err = p.selfrag.Run(ctx, userQuery, owner)
	if err != nil {
		return nil, logs, err
	}
	span.SetAttributes(attribute.Int("events", len(input.Events)))
	return input, logs, nil
}

func (p *Pipeline) runPlanning(ctx context.Context, input *planner.InputData) (result *planner.OutputResult, err error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.planning",
		trace.WithAttributes(attribute.Int("events", len(input.Events))))
	defer func() { telemetry.End(span, err) }()

	result, err = p.planning.Run(ctx, *input)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("iterations", result.Iterations))
	return result, nil
}

// record is best-effort: bookkeeping failures never fail the run.
func (p *Pipeline) record(ctx context.Context, userQuery, owner string, result *planner.OutputResult) {
	if p.memory != nil {
		if err := p.memory.Record(ctx, owner, userQuery); err != nil {
			p.log.Warn("memory record failed", "error", err)
		}
	}
	if p.history != nil {
		err := p.history.Add(ctx, &history.Record{
			Owner:  owner,
			Query:  userQuery,
			Result: result,
			Logs:   result.Logs,
		})
		if err != nil {
			p.log.Warn("history record failed", "error", err)
		}
	}
}

// IndexEvents bulk-imports events into the store.
func (p *Pipeline) IndexEvents(ctx context.Context, events []event.Event) (err error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.index_events",
		trace.WithAttributes(attribute.Int("events", len(events))))
	defer func() { telemetry.End(span, err) }()

	return p.store.Upsert(ctx, events)
}

// Close releases every resource the pipeline owns. All closers run even when
// an earlier one fails; the first error wins.
func (p *Pipeline) Close(ctx context.Context) error {
	var firstErr error
	if err := p.retriever.Close(); err != nil {
		firstErr = err
	}
	if p.memory != nil {
		if err := p.memory.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if p.history != nil {
		if err := p.history.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
