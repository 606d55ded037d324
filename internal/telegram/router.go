package telegram

import (
	"context"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"tg_reels_bot/internal/access"
	"tg_reels_bot/internal/conversation"
	"tg_reels_bot/internal/domain"
	"tg_reels_bot/internal/logging"
	"tg_reels_bot/internal/metrics"
)

const commandErrorReply = "An error occurred, please try again later"

// Message is the routed subset of an incoming Telegram message.
type Message struct {
	ChatID int64
	UserID int64
	Text   string
}

// HandlerFunc executes one command for an incoming message.
type HandlerFunc func(ctx context.Context, msg Message) error

type command struct {
	minRole domain.Role
	handle  HandlerFunc
}

// Router dispatches incoming messages: slash commands go through the access
// gate to their handlers, anything else is offered to the pending
// conversation continuation for the chat.
type Router struct {
	gate     *access.Gate
	registry *conversation.Registry
	locks    *conversation.ChatLocks
	sender   Sender
	logger   *logrus.Entry
	metrics  *metrics.Metrics
	commands map[string]command
}

// NewRouter constructs a Router with an empty command table.
func NewRouter(gate *access.Gate, registry *conversation.Registry, locks *conversation.ChatLocks, sender Sender, logger *logrus.Entry, m *metrics.Metrics) *Router {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Router{
		gate:     gate,
		registry: registry,
		locks:    locks,
		sender:   sender,
		logger:   logger,
		metrics:  m,
		commands: make(map[string]command),
	}
}

// Register binds a command name (without the leading slash) to a handler and
// the minimum role allowed to run it.
func (r *Router) Register(name string, minRole domain.Role, fn HandlerFunc) {
	r.commands[name] = command{minRole: minRole, handle: fn}
}

// Handle processes one incoming message. Messages for the same chat are
// serialized so the take-then-act sequence on the conversation registry
// cannot interleave with a concurrent reply.
func (r *Router) Handle(ctx context.Context, msg Message) {
	if r == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	unlock := r.locks.Lock(msg.ChatID)
	defer unlock()

	if name, ok := parseCommand(msg.Text); ok {
		r.dispatch(ctx, name, msg)
		return
	}

	if cont, ok := r.registry.Take(msg.ChatID); ok {
		cont(ctx, msg.Text)
		return
	}

	r.logger.WithFields(logging.Fields{
		"event":   "message_ignored",
		"chat_id": msg.ChatID,
		"user_id": msg.UserID,
	}).Debug("no pending flow for chat, ignoring message")
}

func (r *Router) dispatch(ctx context.Context, name string, msg Message) {
	cmd, known := r.commands[name]
	if !known {
		r.logger.WithFields(logging.Fields{
			"event":   "unknown_command",
			"command": name,
			"user_id": msg.UserID,
		}).Debug("ignoring unknown command")
		return
	}

	r.metrics.IncCommand(name)

	err := r.gate.Require(ctx, msg.UserID, cmd.minRole, func(ctx context.Context) error {
		return cmd.handle(ctx, msg)
	})
	if err == nil {
		return
	}

	r.logger.WithFields(logging.Fields{
		"event":   "command_error",
		"command": name,
		"chat_id": msg.ChatID,
		"user_id": msg.UserID,
	}).WithError(err).Error("command handler failed")

	if sendErr := r.sender.SendText(ctx, msg.ChatID, commandErrorReply); sendErr != nil {
		r.logger.WithFields(logging.Fields{
			"event":   "command_error_reply_failed",
			"chat_id": msg.ChatID,
		}).WithError(sendErr).Error("failed to send command error reply")
	}
}

// parseCommand extracts the command name from a "/name" message. The name is
// the first token with any "@botname" mention suffix stripped, lowercased.
func parseCommand(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}

	token := text[1:]
	if i := strings.IndexFunc(token, unicode.IsSpace); i >= 0 {
		token = token[:i]
	}
	if at := strings.Index(token, "@"); at >= 0 {
		token = token[:at]
	}
	if token == "" {
		return "", false
	}

	return strings.ToLower(token), true
}
