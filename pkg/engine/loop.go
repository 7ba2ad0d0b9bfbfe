package engine

import (
	"context"
	"errors"
	"time"

	"github.com/opscart/k8s-scaling-advisor/pkg/metrics"
	"github.com/opscart/k8s-scaling-advisor/pkg/models"
	"github.com/opscart/k8s-scaling-advisor/pkg/reasoning"
	"github.com/opscart/k8s-scaling-advisor/pkg/tools"
	"go.uber.org/zap"
)

// MaxRounds bounds the number of assistant turns per conversation
const MaxRounds = 5

// State is a position in the orchestration loop
type State string

const (
	StateAwaitingAssistant State = "awaiting_assistant"
	StateExecutingTools    State = "executing_tools"
	StateSubmitted         State = "submitted"
	StateExhausted         State = "exhausted"
	StateAborted           State = "aborted"
)

// Terminal reports whether no further transition is possible
func (s State) Terminal() bool {
	return s == StateSubmitted || s == StateExhausted || s == StateAborted
}

// Executor runs tool calls. *tools.Catalog is the production implementation.
type Executor interface {
	Tools() []reasoning.Tool
	Execute(ctx context.Context, call reasoning.ToolCall) (*tools.Outcome, error)
}

// LoopResult is the terminal state of one conversation. Suggestion is set
// only when State is StateSubmitted; Err only when State is StateAborted.
type LoopResult struct {
	State      State
	Rounds     int
	Suggestion *models.ScalingSuggestion
	Confidence *float64
	Err        error
	Messages   []reasoning.Message
}

// Loop drives the tool-augmented conversation with a reasoning backend
type Loop struct {
	client    reasoning.Client
	executor  Executor
	maxRounds int
	logger    *zap.Logger
}

// NewLoop creates a loop with the default round budget
func NewLoop(client reasoning.Client, executor Executor, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{client: client, executor: executor, maxRounds: MaxRounds, logger: logger}
}

// Run converses until the model submits, stops calling tools, fails, or the
// round budget is spent. The conversation is owned by this call.
func (l *Loop) Run(ctx context.Context, prompt string) *LoopResult {
	res := &LoopResult{
		State:    StateAwaitingAssistant,
		Messages: []reasoning.Message{reasoning.UserMessage(prompt)},
	}
	toolDefs := l.executor.Tools()

	for res.Rounds < l.maxRounds && !res.State.Terminal() {
		if err := ctx.Err(); err != nil {
			l.abort(res, err)
			break
		}

		start := time.Now()
		turn, err := l.client.Respond(ctx, res.Messages, toolDefs)
		metrics.ReasoningRequestDuration.WithLabelValues(l.client.Name()).Observe(time.Since(start).Seconds())
		res.Rounds++
		if err != nil {
			l.abort(res, err)
			break
		}

		if len(turn.ToolCalls) == 0 {
			l.logger.Debug("assistant returned no tool calls",
				zap.Int("round", res.Rounds),
				zap.Int("content_length", len(turn.Content)))
			res.State = StateExhausted
			break
		}

		res.Messages = append(res.Messages, reasoning.AssistantMessage(turn.Content, turn.ToolCalls))
		res.State = StateExecutingTools
		l.executeTools(ctx, res, turn.ToolCalls)
		if res.State == StateExecutingTools {
			res.State = StateAwaitingAssistant
		}
	}

	if !res.State.Terminal() {
		res.State = StateExhausted
	}

	metrics.LoopOutcomesTotal.WithLabelValues(l.client.Name(), string(res.State)).Inc()
	metrics.LoopRounds.Observe(float64(res.Rounds))
	l.logger.Info("reasoning loop finished",
		zap.String("backend", l.client.Name()),
		zap.String("state", string(res.State)),
		zap.Int("rounds", res.Rounds))
	return res
}

// executeTools runs the calls of one turn in order. An accepted submission
// ends the turn; later calls in the same turn are not executed.
func (l *Loop) executeTools(ctx context.Context, res *LoopResult, calls []reasoning.ToolCall) {
	for _, call := range calls {
		outcome, err := l.executor.Execute(ctx, call)
		if err != nil {
			metrics.ToolExecutionsTotal.WithLabelValues(toolLabel(call.Name), metrics.StatusError).Inc()
			res.Messages = append(res.Messages, reasoning.ToolResultMessage(call, feedback(err)))
			l.logger.Info("tool call rejected",
				zap.Int("round", res.Rounds),
				zap.String("tool", call.Name),
				zap.String("call_id", call.ID),
				zap.Error(err))
			continue
		}

		metrics.ToolExecutionsTotal.WithLabelValues(toolLabel(call.Name), metrics.StatusOK).Inc()
		if outcome.Suggestion != nil {
			res.State = StateSubmitted
			res.Suggestion = outcome.Suggestion
			res.Confidence = outcome.Confidence
			return
		}
		res.Messages = append(res.Messages, reasoning.ToolResultMessage(call, outcome.Content))
	}
}

func (l *Loop) abort(res *LoopResult, err error) {
	res.State = StateAborted
	res.Err = err
	l.logger.Warn("reasoning loop aborted",
		zap.String("backend", l.client.Name()),
		zap.Int("round", res.Rounds),
		zap.Error(err))
}

func feedback(err error) string {
	var te *tools.ToolError
	if errors.As(err, &te) {
		return te.Feedback()
	}
	return "Error: " + err.Error()
}

// toolLabel keeps model-invented names out of metric labels
func toolLabel(name string) string {
	if _, ok := tools.Lookup(name); ok {
		return name
	}
	return "unknown"
}
