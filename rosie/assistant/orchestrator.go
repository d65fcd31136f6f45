package assistant

import (
	"context"
	"time"

	ports "github.com/ZanzyTHEbar/rosie-cli/rosie/assistant/ports"
	"github.com/rs/zerolog"
)

// State is a step of one orchestration turn.
type State int

const (
	StateAwaitingFirstResponse State = iota
	StateExecutingActions
	StateAwaitingSummary
	StateDone
)

func (s State) String() string {
	switch s {
	case StateAwaitingFirstResponse:
		return "awaiting_first_response"
	case StateExecutingActions:
		return "executing_actions"
	case StateAwaitingSummary:
		return "awaiting_summary"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Result is the single answer of a turn plus the actions executed for it.
type Result struct {
	Answer  string
	Actions []ActionRequest
}

// Orchestrator runs one turn: first model call, actions in order, then at most one
// summary call.
type Orchestrator struct {
	gateway  *Gateway
	executor *Executor
	tracer   ports.Tracer
	logger   zerolog.Logger
	now      func() time.Time
}

// NewOrchestrator creates an orchestrator over a gateway and executor.
func NewOrchestrator(gateway *Gateway, executor *Executor, tracer ports.Tracer, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		gateway:  gateway,
		executor: executor,
		tracer:   tracer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run processes input on ec's conversation. An error means the turn aborted.
func (o *Orchestrator) Run(ctx context.Context, ec *ExecutionContext, input string) (res *Result, err error) {
	ctx, finish := o.tracer.StartSpan(ctx, "orchestrate", map[string]any{
		"conversation_id": ec.ConversationID(),
		"thinking":        ec.Params().Thinking,
	})
	defer func() { finish(err) }()

	state := StateAwaitingFirstResponse
	o.transition(ctx, state)

	first, err := o.gateway.Respond(ctx, ec, input, RespondOptions{Thinking: ec.Params().Thinking})
	if err != nil {
		return nil, err
	}
	o.record(ec, first.Answer, first.Actions)

	if first.Failed || len(first.Actions) == 0 {
		o.transition(ctx, StateDone)
		return &Result{Answer: first.Answer, Actions: first.Actions}, nil
	}

	state = StateExecutingActions
	o.transition(ctx, state)

	actions := first.Actions
	for i := range actions {
		outcome, err := o.executor.Execute(ctx, ec, &actions[i])
		if err != nil {
			o.logger.Debug().Err(err).Str("state", state.String()).Msg("turn aborted")
			return nil, err
		}
		if outcome.Done {
			// Remaining actions and the summary call are skipped.
			o.record(ec, outcome.Answer, actions[:i+1])
			o.transition(ctx, StateDone)
			return &Result{Answer: outcome.Answer, Actions: actions[:i+1]}, nil
		}
	}

	state = StateAwaitingSummary
	o.transition(ctx, state)

	prompt, err := SummaryPrompt(actions)
	if err != nil {
		return nil, err
	}
	summary, err := o.gateway.Respond(ctx, ec, prompt, RespondOptions{Thinking: false, Role: ports.RoleSystem})
	if err != nil {
		return nil, err
	}
	if len(summary.Actions) > 0 {
		o.tracer.Event(ctx, "summary_actions_ignored", map[string]any{"count": len(summary.Actions)})
	}
	o.record(ec, summary.Answer, actions)

	o.transition(ctx, StateDone)
	return &Result{Answer: summary.Answer, Actions: actions}, nil
}

func (o *Orchestrator) transition(ctx context.Context, to State) {
	o.tracer.Event(ctx, "state", map[string]any{"state": to.String()})
}

func (o *Orchestrator) record(ec *ExecutionContext, answer string, actions []ActionRequest) {
	ec.Update(ContextUpdate{Answer: Answer{Text: answer, TS: o.now()}, Actions: actions})
}
