// Package telegram hosts the Telegram client, command routing, and handlers.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"tg_reels_bot/internal/config"
	"tg_reels_bot/internal/logging"
)

// botAPI is the subset of the bot client the package uses. It matches
// *bot.Bot so the constructor can be stubbed in tests.
type botAPI interface {
	Start(ctx context.Context)
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
	SendVideo(ctx context.Context, params *bot.SendVideoParams) (*models.Message, error)
}

var (
	defaultAllowedUpdates = bot.AllowedUpdates{
		"message",
	}

	createBot = func(token string, options ...bot.Option) (botAPI, error) {
		return bot.New(token, options...)
	}
)

// Client wraps the Telegram bot instance, its router, and logging dependencies.
type Client struct {
	bot         botAPI
	router      *Router
	buildRouter func(Sender) *Router
	logger      *logrus.Entry
}

// Option customizes the Client.
type Option func(*Client)

// WithRouterFactory wires a message router. The factory receives the sender
// bound to the live bot instance, so handlers built inside it can reply.
func WithRouterFactory(build func(Sender) *Router) Option {
	return func(c *Client) {
		c.buildRouter = build
	}
}

// NewClient initializes the Telegram bot with long polling and the update handler.
func NewClient(cfg config.Config, logger *logrus.Entry, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.TelegramToken) == "" {
		return nil, errors.New("telegram token is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	c := &Client{logger: logger}
	for _, opt := range opts {
		opt(c)
	}

	tgBot, err := createBot(cfg.TelegramToken,
		bot.WithAllowedUpdates(defaultAllowedUpdates),
		bot.WithDefaultHandler(c.handleUpdate),
		bot.WithErrorsHandler(errorHandler(logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot client: %w", err)
	}

	c.bot = tgBot
	if c.buildRouter != nil {
		c.router = c.buildRouter(newBotSender(tgBot))
	}

	return c, nil
}

// Start begins receiving updates via long polling until the context is canceled.
func (c *Client) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger.WithFields(logging.Fields{
		"event":           "telegram_listen",
		"allowed_updates": defaultAllowedUpdates,
	}).Info("starting telegram long polling")

	c.bot.Start(ctx)

	c.logger.WithField("event", "telegram_stopped").Info("telegram polling stopped")
}

func (c *Client) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil {
		return
	}

	msg := update.Message
	if msg.From == nil {
		return
	}

	c.logger.WithFields(logging.Fields{
		"event":   "telegram_update",
		"chat_id": msg.Chat.ID,
		"user_id": msg.From.ID,
	}).Debug("telegram update received")

	if c.router == nil {
		return
	}

	c.router.Handle(ctx, Message{
		ChatID: msg.Chat.ID,
		UserID: msg.From.ID,
		Text:   strings.TrimSpace(msg.Text),
	})
}

func errorHandler(logger *logrus.Entry) bot.ErrorsHandler {
	if logger == nil {
		logger = logging.Logger()
	}

	return func(err error) {
		if err == nil {
			return
		}

		logger.WithField("event", "telegram_error").WithError(err).Error("telegram polling error")
	}
}
