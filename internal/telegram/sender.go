package telegram

import (
	"context"
	"fmt"
	"io"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Sender delivers outbound messages and files to a Telegram chat.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendDocument(ctx context.Context, chatID int64, filename, caption string, data io.Reader) error
	SendVideo(ctx context.Context, chatID int64, filename string, data io.Reader) error
}

type botSender struct {
	api botAPI
}

func newBotSender(api botAPI) *botSender {
	return &botSender{api: api}
}

func (s *botSender) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := s.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	return nil
}

func (s *botSender) SendDocument(ctx context.Context, chatID int64, filename, caption string, data io.Reader) error {
	_, err := s.api.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:   chatID,
		Document: &models.InputFileUpload{Filename: filename, Data: data},
		Caption:  caption,
	})
	if err != nil {
		return fmt.Errorf("send document: %w", err)
	}

	return nil
}

func (s *botSender) SendVideo(ctx context.Context, chatID int64, filename string, data io.Reader) error {
	_, err := s.api.SendVideo(ctx, &bot.SendVideoParams{
		ChatID: chatID,
		Video:  &models.InputFileUpload{Filename: filename, Data: data},
	})
	if err != nil {
		return fmt.Errorf("send video: %w", err)
	}

	return nil
}
