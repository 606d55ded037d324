package telegram

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"tg_reels_bot/internal/config"
)

type fakeBot struct {
	startedWith context.Context
	messages    []string
}

func (f *fakeBot) Start(ctx context.Context) {
	f.startedWith = ctx
}

func (f *fakeBot) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.messages = append(f.messages, params.Text)
	return &models.Message{}, nil
}

func (f *fakeBot) SendDocument(context.Context, *bot.SendDocumentParams) (*models.Message, error) {
	return &models.Message{}, nil
}

func (f *fakeBot) SendVideo(context.Context, *bot.SendVideoParams) (*models.Message, error) {
	return &models.Message{}, nil
}

func TestNewClientCreatesBot(t *testing.T) {
	origCreateBot := createBot
	defer func() { createBot = origCreateBot }()

	var gotToken string
	var gotOptions []bot.Option
	b := &fakeBot{}

	createBot = func(token string, options ...bot.Option) (botAPI, error) {
		gotToken = token
		gotOptions = options
		return b, nil
	}

	cfg := config.Config{TelegramToken: "token-123"}
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	client, err := NewClient(cfg, logrus.NewEntry(logger))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	if client == nil || client.bot == nil {
		t.Fatalf("expected client and bot to be initialized")
	}

	if gotToken != cfg.TelegramToken {
		t.Fatalf("expected token %q, got %q", cfg.TelegramToken, gotToken)
	}

	if len(gotOptions) != 3 {
		t.Fatalf("expected 3 bot options (allowed updates, default handler, error handler), got %d", len(gotOptions))
	}
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient(config.Config{}, nil)
	if err == nil {
		t.Fatalf("expected error for empty token")
	}
}

func TestNewClientPropagatesBotError(t *testing.T) {
	origCreateBot := createBot
	defer func() { createBot = origCreateBot }()

	expected := errors.New("boom")
	createBot = func(string, ...bot.Option) (botAPI, error) {
		return nil, expected
	}

	_, err := NewClient(config.Config{TelegramToken: "token"}, nil)
	if !errors.Is(err, expected) {
		t.Fatalf("expected error %v, got %v", expected, err)
	}
}

func TestNewClientBuildsRouterWithLiveSender(t *testing.T) {
	origCreateBot := createBot
	defer func() { createBot = origCreateBot }()

	b := &fakeBot{}
	createBot = func(string, ...bot.Option) (botAPI, error) {
		return b, nil
	}

	var gotSender Sender
	client, err := NewClient(config.Config{TelegramToken: "token"}, nil,
		WithRouterFactory(func(s Sender) *Router {
			gotSender = s
			return NewRouter(nil, nil, nil, s, nil, nil)
		}),
	)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	if client.router == nil {
		t.Fatalf("expected router to be built")
	}
	if gotSender == nil {
		t.Fatalf("expected factory to receive a sender")
	}

	if err := gotSender.SendText(context.Background(), 1, "hi"); err != nil {
		t.Fatalf("SendText returned error: %v", err)
	}
	if len(b.messages) != 1 || b.messages[0] != "hi" {
		t.Fatalf("expected sender to deliver through the bot, got %v", b.messages)
	}
}

func TestClientStartLogsAndUsesContext(t *testing.T) {
	hookLogger, hook := logtest.NewNullLogger()
	client := &Client{
		bot:    &fakeBot{},
		logger: logrus.NewEntry(hookLogger),
	}

	ctx := context.Background()
	client.Start(ctx)

	if fb, ok := client.bot.(*fakeBot); ok {
		if fb.startedWith != ctx {
			t.Fatalf("expected bot to start with provided context")
		}
	}

	entries := hook.AllEntries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries (start/stop), got %d", len(entries))
	}

	if entries[0].Data["event"] != "telegram_listen" {
		t.Fatalf("expected start log event, got %v", entries[0].Data["event"])
	}
	if entries[1].Data["event"] != "telegram_stopped" {
		t.Fatalf("expected stop log event, got %v", entries[1].Data["event"])
	}
}

func TestHandleUpdateIgnoresNonMessages(t *testing.T) {
	hookLogger, hook := logtest.NewNullLogger()
	client := &Client{logger: logrus.NewEntry(hookLogger)}

	client.handleUpdate(context.Background(), nil, nil)
	client.handleUpdate(context.Background(), nil, &models.Update{})
	client.handleUpdate(context.Background(), nil, &models.Update{
		Message: &models.Message{Chat: models.Chat{ID: 1}},
	})

	if len(hook.AllEntries()) != 0 {
		t.Fatalf("expected no log entries for ignored updates, got %d", len(hook.AllEntries()))
	}
}
