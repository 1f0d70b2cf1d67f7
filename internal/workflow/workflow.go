package workflow

import (
	"context"
	"errors"
	"time"

	"FactorySense/internal/agent"
	"FactorySense/internal/models"
)

// ErrNoAgents is returned by Build when the chain would be empty.
var ErrNoAgents = errors.New("workflow requires at least one agent")

// StepObserver receives progress events while a run executes. Entries carry
// the run id, agent name, status and a short message; observers fill in
// anything request-scoped (such as the machine id) themselves.
type StepObserver func(ctx context.Context, entry *models.StepLogEntry)

// Options tunes how a Workflow executes.
type Options struct {
	// StepTimeout bounds each agent invocation. Zero means DefaultStepTimeout.
	StepTimeout time.Duration
	// HaltOnError stops the chain after a failed step instead of forwarding
	// the synthetic error text to the next agent. The default keeps the
	// best-effort behavior: the error string becomes the next step's input
	// and every configured agent still appears in the trace.
	HaltOnError bool
	// Observer, when set, is called for run and step lifecycle events.
	Observer StepObserver
}

// Builder assembles an ordered agent chain into a Workflow.
type Builder struct {
	agents []agent.Agent
	opts   Options
}

// NewBuilder creates a Builder with the given options.
func NewBuilder(opts Options) *Builder {
	return &Builder{opts: opts}
}

// AddAgent appends an agent to the end of the chain.
func (b *Builder) AddAgent(a agent.Agent) *Builder {
	b.agents = append(b.agents, a)
	return b
}

// Build wraps each agent in a StepExecutor in list order. The chain is a
// strict line: step i feeds step i+1 and nothing else.
func (b *Builder) Build() (*Workflow, error) {
	if len(b.agents) == 0 {
		return nil, ErrNoAgents
	}

	steps := make([]*StepExecutor, 0, len(b.agents))
	for _, a := range b.agents {
		steps = append(steps, NewStepExecutor(a, b.opts.StepTimeout))
	}
	return &Workflow{steps: steps, opts: b.opts}, nil
}

// Workflow is an ordered chain of step executors driven by Run.
type Workflow struct {
	steps []*StepExecutor
	opts  Options
}

// StepNames returns the agent names in chain order.
func (w *Workflow) StepNames() []string {
	names := make([]string, len(w.steps))
	for i, s := range w.steps {
		names[i] = s.AgentName()
	}
	return names
}

// Run executes the chain once as a strict sequential fold: each step's text
// output is the next step's only input. The trace is scoped to this call, so
// concurrent runs of the same Workflow are independent.
func (w *Workflow) Run(ctx context.Context, runID, inputText string) *models.WorkflowResponse {
	trace := NewTrace()

	w.observe(ctx, &models.StepLogEntry{
		RunID:     runID,
		Timestamp: time.Now().UTC(),
		Status:    models.StatusRunStarted,
		Message:   "workflow run started",
	})

	current := inputText
	for _, step := range w.steps {
		output, err := step.Execute(ctx, current, trace)
		current = output

		if err != nil {
			w.observe(ctx, &models.StepLogEntry{
				RunID:     runID,
				AgentName: step.AgentName(),
				Timestamp: time.Now().UTC(),
				Status:    models.StatusStepFailed,
				Message:   err.Error(),
			})
			if w.opts.HaltOnError {
				break
			}
			continue
		}

		w.observe(ctx, &models.StepLogEntry{
			RunID:     runID,
			AgentName: step.AgentName(),
			Timestamp: time.Now().UTC(),
			Status:    models.StatusStepFinished,
			Message:   output,
		})
	}

	entries := trace.Entries()

	var finalMessage *string
	if current != "" {
		finalMessage = &current
	} else if len(entries) > 0 {
		if last := entries[len(entries)-1].FinalMessage; last != "" {
			finalMessage = &last
		}
	}

	w.observe(ctx, &models.StepLogEntry{
		RunID:     runID,
		Timestamp: time.Now().UTC(),
		Status:    models.StatusRunFinished,
		Message:   "workflow run finished",
	})

	return &models.WorkflowResponse{
		AgentSteps:   entries,
		FinalMessage: finalMessage,
	}
}

func (w *Workflow) observe(ctx context.Context, entry *models.StepLogEntry) {
	if w.opts.Observer != nil {
		w.opts.Observer(ctx, entry)
	}
}
