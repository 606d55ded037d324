// Package prompt implements the collect-one-value-then-act loop shared by the
// multi-step admin commands: prompt, validate, re-prompt on bad input, honor
// the cancellation keyword, then run the terminal action.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"tg_reels_bot/internal/conversation"
	"tg_reels_bot/internal/logging"
	"tg_reels_bot/internal/metrics"
)

// CancelKeyword ends any active flow. The match is exact and case-sensitive.
const CancelKeyword = "cancel"

const (
	canceledReply     = "canceled"
	invalidIDReply    = "Not valid id (only numbers required)\n(cancel - to exit)"
	genericErrorReply = "An error occurred, please try again later"
)

// Sender delivers a text reply to a chat.
type Sender func(ctx context.Context, chatID int64, text string) error

// Step describes one collection flow: the prompt to show, the validator for
// the reply, and the terminal action run on the parsed value. The action
// returns the user-facing outcome text.
type Step struct {
	Name     string
	Prompt   string
	Validate func(raw string) (int64, error)
	Action   func(ctx context.Context, value int64) (string, error)
}

// Engine drives Steps over the conversation registry.
type Engine struct {
	registry *conversation.Registry
	send     Sender
	logger   *logrus.Entry
	metrics  *metrics.Metrics
}

// NewEngine constructs an Engine.
func NewEngine(registry *conversation.Registry, send Sender, logger *logrus.Entry, m *metrics.Metrics) *Engine {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Engine{
		registry: registry,
		send:     send,
		logger:   logger,
		metrics:  m,
	}
}

// Begin sends the step's prompt and registers its continuation, superseding
// any pending flow for the chat.
func (e *Engine) Begin(ctx context.Context, chatID, userID int64, step Step) error {
	if e == nil || e.registry == nil || e.send == nil {
		return errors.New("prompt engine is not initialized")
	}
	if step.Validate == nil || step.Action == nil {
		return errors.New("step requires a validator and an action")
	}

	if err := e.send(ctx, chatID, step.Prompt); err != nil {
		return fmt.Errorf("send prompt: %w", err)
	}

	e.register(chatID, userID, step)
	return nil
}

func (e *Engine) register(chatID, userID int64, step Step) {
	e.registry.Register(chatID, func(ctx context.Context, text string) {
		e.resume(ctx, chatID, userID, step, text)
	})
}

// resume handles one reply for an active step. The flow terminates on the
// cancellation keyword and on action completion; validation failures
// re-register the same step, with no retry limit.
func (e *Engine) resume(ctx context.Context, chatID, userID int64, step Step, text string) {
	entry := e.logger.WithFields(logging.Fields{
		"flow":    step.Name,
		"chat_id": chatID,
		"user_id": userID,
	})

	if text == CancelKeyword {
		e.metrics.IncPromptCancel()
		entry.WithField("event", "flow_canceled").Info("flow canceled by user")
		e.reply(ctx, chatID, canceledReply)
		return
	}

	value, err := step.Validate(text)
	if err != nil {
		e.metrics.IncPromptRetry()
		entry.WithFields(logging.Fields{
			"event": "flow_invalid_input",
			"input": text,
		}).Warn("invalid input, re-prompting")
		e.reply(ctx, chatID, invalidIDReply)
		e.register(chatID, userID, step)
		return
	}

	outcome, err := step.Action(ctx, value)
	if err != nil {
		entry.WithField("event", "flow_action_error").WithError(err).Error("terminal action failed")
		e.reply(ctx, chatID, genericErrorReply)
		return
	}

	entry.WithFields(logging.Fields{
		"event": "flow_done",
		"value": value,
	}).Info("flow completed")
	e.reply(ctx, chatID, outcome)
}

func (e *Engine) reply(ctx context.Context, chatID int64, text string) {
	if err := e.send(ctx, chatID, text); err != nil {
		e.logger.WithFields(logging.Fields{
			"event":   "flow_send_error",
			"chat_id": chatID,
		}).WithError(err).Error("failed to send flow reply")
	}
}

// ValidateUserID is the validator shared by every admin flow: the raw text
// must be ASCII digits only and fit a non-negative int64.
func ValidateUserID(raw string) (int64, error) {
	if raw == "" {
		return 0, errors.New("empty input")
	}

	for _, ch := range raw {
		if ch < '0' || ch > '9' {
			return 0, fmt.Errorf("non-digit character %q", ch)
		}
	}

	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse user id: %w", err)
	}

	return value, nil
}
