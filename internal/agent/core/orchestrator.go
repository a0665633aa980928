package core

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mohammad-safakhou/careergraph/internal/logger"
	cgruntime "github.com/mohammad-safakhou/careergraph/internal/runtime"
)

var orchestratorTracer trace.Tracer = otel.Tracer("careergraph/internal/agent/orchestrator")

// maxSteps bounds stage executions per run. The router can never need more.
const maxSteps = 3

type runIDKey struct{}

// Orchestrator runs the fixed validation, research, structure pipeline.
// It holds no per-request state and is safe for concurrent use.
type Orchestrator struct {
	completer  Completer
	discoverer Discoverer
	opts       Options
	log        *logger.Logger
	metrics    *cgruntime.Metrics
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(l *logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

func WithMetrics(m *cgruntime.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// NewOrchestrator wires the pipeline. discoverer may be nil, in which case
// research always falls back to placeholder resources.
func NewOrchestrator(completer Completer, discoverer Discoverer, opts Options, options ...Option) (*Orchestrator, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	o := &Orchestrator{
		completer:  completer,
		discoverer: discoverer,
		opts:       opts.normalized(),
		log:        logger.Nop(),
	}
	for _, opt := range options {
		opt(o)
	}
	return o, nil
}

// Run executes the pipeline for query and returns the terminal state. It never
// panics; every failure ends up in State.Error. ctx is checked between stages.
func (o *Orchestrator) Run(ctx context.Context, query string) State {
	runID := uuid.NewString()
	ctx = context.WithValue(ctx, runIDKey{}, runID)
	ctx, span := orchestratorTracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.Int("query.length", len(query)),
	))
	defer span.End()

	log := o.logFor(ctx)
	log.Info("pipeline started", "query_len", len(query))
	started := time.Now()

	state := NewState(query)
	for steps := 0; ; steps++ {
		next := Route(state)
		if next == AgentEnd {
			break
		}
		if steps >= maxSteps {
			state = state.Fail(newStageError(next, KindPanic, fmt.Errorf("exceeded %d stage executions", maxSteps), "", 0))
			break
		}
		if err := ctx.Err(); err != nil {
			state = state.Fail(newStageError(next, KindCancelled, err, "", 0))
			break
		}
		state = o.runStage(ctx, next, state)
	}

	outcome := state.Outcome()
	o.metrics.RunFinished(string(outcome))
	span.SetAttributes(
		attribute.String("pipeline.outcome", string(outcome)),
		attribute.Int("roadmap.nodes", len(state.Nodes)),
	)
	if state.Failed() {
		span.SetStatus(codes.Error, state.Error)
		log.Warn("pipeline failed", "stage", state.FailedStage, "last_completed", state.CurrentAgent, "kind", state.ErrorKind, "error", state.Error, "elapsed", time.Since(started))
		if state.ErrorKind == KindCancelled {
			o.metrics.StageFailed(string(state.FailedStage), string(state.ErrorKind))
		}
	} else {
		log.Info("pipeline finished", "outcome", outcome, "nodes", len(state.Nodes), "elapsed", time.Since(started))
	}
	return state
}

func (o *Orchestrator) runStage(ctx context.Context, stage Agent, in State) State {
	ctx, span := orchestratorTracer.Start(ctx, "stage."+string(stage))
	defer span.End()
	started := time.Now()

	var out State
	switch stage {
	case AgentValidation:
		out = o.ValidationStage(ctx, in)
	case AgentResearch:
		out = o.ResearchStage(ctx, in)
	case AgentStructure:
		out = o.StructureStage(ctx, in)
	default:
		out = in.Fail(newStageError(stage, KindPanic, fmt.Errorf("unknown stage %q", stage), "", 0))
	}

	o.metrics.ObserveStage(string(stage), time.Since(started))
	if out.Failed() {
		o.metrics.StageFailed(string(stage), string(out.ErrorKind))
		span.RecordError(fmt.Errorf("%s", out.Error))
		span.SetStatus(codes.Error, string(out.ErrorKind))
	}
	return out
}

// recoverStage converts a panic inside a stage into a failed state derived
// from the stage input. It must be deferred directly by the stage.
func (o *Orchestrator) recoverStage(stage Agent, in State, out *State) {
	r := recover()
	if r == nil {
		return
	}
	o.log.Error("stage panicked", "stage", stage, "panic", r, "stack", string(debug.Stack()))
	failed := in.Fail(newStageError(stage, KindPanic, fmt.Errorf("%v", r), "", o.opts.ErrorExcerptLen))
	if stage == AgentValidation {
		failed.IsValid = false
		failed.ValidationMessage = "Error validating query: " + fmt.Sprint(r)
	}
	if stage == AgentStructure {
		failed.Nodes = nil
	}
	*out = failed
}

func (o *Orchestrator) logFor(ctx context.Context) *logger.Logger {
	if id, ok := ctx.Value(runIDKey{}).(string); ok {
		return o.log.With("run_id", id)
	}
	return o.log
}
