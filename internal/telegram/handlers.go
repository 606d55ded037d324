package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"tg_reels_bot/internal/conversation"
	"tg_reels_bot/internal/domain"
	"tg_reels_bot/internal/logging"
	"tg_reels_bot/internal/media"
	"tg_reels_bot/internal/metrics"
	"tg_reels_bot/internal/prompt"
)

// User-facing replies.
const (
	startReply          = "Hello, it's reels bot\n/reels - to download an instagram reels"
	enterURLPrompt      = "Enter URL"
	invalidURLReply     = "Its not valid url, try again"
	privateReelReply    = "It's private reels, i cant download it"
	downloadFailedReply = "An error occurred, while tried to download reels"
	noLogsReply         = "No logs found"
	logsErrorReply      = "Error retrieving logs"
	usersExportErrReply = "Error retrieving users data"
	userNotFoundReply   = "❌ User not found"
	userBlockedReply    = "✅ User blocked"
	userUnblockedReply  = "✅ User unblocked"
	adminAddedReply     = "✅ Admin added"
	adminDeletedReply   = "✅ Admin deleted"
	adminNotFoundReply  = "❌ Admin not found"
)

// roleStore is the persistence surface the handlers need.
type roleStore interface {
	Find(ctx context.Context, userID int64) (domain.User, bool, error)
	ListAll(ctx context.Context) ([]domain.User, error)
	SetRole(ctx context.Context, userID int64, role domain.Role) (bool, error)
}

// Handlers implements the bot commands.
type Handlers struct {
	store    roleStore
	engine   *prompt.Engine
	registry *conversation.Registry
	fetcher  media.Fetcher
	sender   Sender
	logger   *logrus.Entry
	metrics  *metrics.Metrics
	logFile  string
}

// NewHandlers constructs the command handlers. logFile may be empty when file
// logging is disabled.
func NewHandlers(store roleStore, engine *prompt.Engine, registry *conversation.Registry, fetcher media.Fetcher, sender Sender, logFile string, logger *logrus.Entry, m *metrics.Metrics) *Handlers {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Handlers{
		store:    store,
		engine:   engine,
		registry: registry,
		fetcher:  fetcher,
		sender:   sender,
		logger:   logger,
		metrics:  m,
		logFile:  logFile,
	}
}

// RegisterAll binds every command to the router with its minimum role.
func (h *Handlers) RegisterAll(r *Router) {
	r.Register("start", domain.RoleUser, h.Start)
	r.Register("reels", domain.RoleUser, h.Reels)
	r.Register("logs", domain.RoleAdmin, h.Logs)
	r.Register("all", domain.RoleSuperAdmin, h.AllUsers)
	r.Register("find", domain.RoleSuperAdmin, h.Find)
	r.Register("block", domain.RoleSuperAdmin, h.Block)
	r.Register("unblock", domain.RoleSuperAdmin, h.Unblock)
	r.Register("add_admin", domain.RoleSuperAdmin, h.AddAdmin)
	r.Register("delete_admin", domain.RoleSuperAdmin, h.DeleteAdmin)
}

// Start greets the user.
func (h *Handlers) Start(ctx context.Context, msg Message) error {
	h.logger.WithFields(logging.Fields{
		"event":   "start_command",
		"user_id": msg.UserID,
	}).Info("user started the bot")

	return h.sender.SendText(ctx, msg.ChatID, startReply)
}

// Reels asks for a reel URL and registers the download continuation.
func (h *Handlers) Reels(ctx context.Context, msg Message) error {
	h.logger.WithFields(logging.Fields{
		"event":   "reels_command",
		"user_id": msg.UserID,
	}).Info("user requested reels download")

	if err := h.sender.SendText(ctx, msg.ChatID, enterURLPrompt); err != nil {
		return fmt.Errorf("send url prompt: %w", err)
	}

	h.registerURLStep(msg.ChatID, msg.UserID)
	return nil
}

func (h *Handlers) registerURLStep(chatID, userID int64) {
	h.registry.Register(chatID, func(ctx context.Context, text string) {
		h.downloadReel(ctx, chatID, userID, text)
	})
}

// downloadReel resolves the shortcode, fetches the video, and delivers it.
// An unrecognized URL re-prompts; fetch failures terminate the flow.
func (h *Handlers) downloadReel(ctx context.Context, chatID, userID int64, url string) {
	entry := h.logger.WithFields(logging.Fields{
		"chat_id": chatID,
		"user_id": userID,
	})

	shortcode, ok := media.ExtractShortcode(url)
	if !ok {
		entry.WithFields(logging.Fields{
			"event": "reels_invalid_url",
			"url":   url,
		}).Warn("invalid reel url, re-prompting")
		h.reply(ctx, chatID, invalidURLReply)
		h.registerURLStep(chatID, userID)
		return
	}

	entry = entry.WithField("shortcode", shortcode)

	reel, err := h.fetcher.FetchReel(ctx, shortcode)
	if err != nil {
		switch {
		case errors.Is(err, media.ErrPrivateContent):
			h.metrics.IncFetchFailure("private")
			entry.WithField("event", "reels_private").Warn("reel is private")
			h.reply(ctx, chatID, privateReelReply)
		case errors.Is(err, media.ErrNotFound):
			h.metrics.IncFetchFailure("not_found")
			entry.WithField("event", "reels_not_found").Warn("reel not found")
			h.reply(ctx, chatID, downloadFailedReply)
		default:
			h.metrics.IncFetchFailure("error")
			entry.WithField("event", "reels_fetch_error").WithError(err).Error("reel download failed")
			h.reply(ctx, chatID, downloadFailedReply)
		}
		return
	}

	defer func() {
		if err := os.Remove(reel.Path); err != nil {
			entry.WithField("event", "reels_cleanup_error").WithError(err).Warn("failed to remove downloaded reel")
		}
	}()

	file, err := os.Open(reel.Path)
	if err != nil {
		entry.WithField("event", "reels_open_error").WithError(err).Error("failed to open downloaded reel")
		h.reply(ctx, chatID, downloadFailedReply)
		return
	}
	defer file.Close()

	if err := h.sender.SendVideo(ctx, chatID, filepath.Base(reel.Path), file); err != nil {
		entry.WithField("event", "reels_send_error").WithError(err).Error("failed to send reel video")
		h.reply(ctx, chatID, downloadFailedReply)
		return
	}

	entry.WithFields(logging.Fields{
		"event": "reels_sent",
		"size":  reel.Size,
	}).Info("reel delivered")
}

// Logs sends the log file as a document.
func (h *Handlers) Logs(ctx context.Context, msg Message) error {
	entry := h.logger.WithFields(logging.Fields{
		"event":   "logs_command",
		"user_id": msg.UserID,
	})
	entry.Info("admin requested logs")

	if h.logFile == "" {
		h.reply(ctx, msg.ChatID, noLogsReply)
		return nil
	}

	file, err := os.Open(h.logFile)
	if errors.Is(err, os.ErrNotExist) {
		entry.Warn("no log file found")
		h.reply(ctx, msg.ChatID, noLogsReply)
		return nil
	}
	if err != nil {
		entry.WithError(err).Error("failed to open log file")
		h.reply(ctx, msg.ChatID, logsErrorReply)
		return nil
	}
	defer file.Close()

	if err := h.sender.SendDocument(ctx, msg.ChatID, filepath.Base(h.logFile), "logs", file); err != nil {
		entry.WithError(err).Error("failed to send log file")
		h.reply(ctx, msg.ChatID, logsErrorReply)
		return nil
	}

	entry.Info("logs sent")
	return nil
}

type exportedUser struct {
	ID   int64       `json:"id"`
	Role domain.Role `json:"role"`
}

type usersExport struct {
	Users []exportedUser `json:"users"`
}

// AllUsers exports every known user and role as a users.json document.
func (h *Handlers) AllUsers(ctx context.Context, msg Message) error {
	entry := h.logger.WithFields(logging.Fields{
		"event":   "all_users_command",
		"user_id": msg.UserID,
	})
	entry.Info("super admin requested all users data")

	users, err := h.store.ListAll(ctx)
	if err != nil {
		entry.WithError(err).Error("failed to list users")
		h.reply(ctx, msg.ChatID, usersExportErrReply)
		return nil
	}

	export := usersExport{Users: make([]exportedUser, 0, len(users))}
	for _, u := range users {
		export.Users = append(export.Users, exportedUser{ID: u.UserID, Role: u.Role})
	}

	payload, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		entry.WithError(err).Error("failed to encode users export")
		h.reply(ctx, msg.ChatID, usersExportErrReply)
		return nil
	}

	if err := h.sender.SendDocument(ctx, msg.ChatID, "users.json", "", bytes.NewReader(payload)); err != nil {
		entry.WithError(err).Error("failed to send users export")
		h.reply(ctx, msg.ChatID, usersExportErrReply)
		return nil
	}

	entry.WithField("count", len(users)).Info("users export sent")
	return nil
}

// Find starts the lookup flow for a user id.
func (h *Handlers) Find(ctx context.Context, msg Message) error {
	return h.engine.Begin(ctx, msg.ChatID, msg.UserID, prompt.Step{
		Name:     "find_user",
		Prompt:   "Enter a user's id you want to find",
		Validate: prompt.ValidateUserID,
		Action: func(ctx context.Context, target int64) (string, error) {
			user, found, err := h.store.Find(ctx, target)
			if err != nil {
				return "", err
			}
			if !found {
				return userNotFoundReply, nil
			}
			return fmt.Sprintf("User found\nid: %d\nrole: %s", user.UserID, user.Role), nil
		},
	})
}

// Block starts the flow that sets a user's role to blocked.
func (h *Handlers) Block(ctx context.Context, msg Message) error {
	return h.engine.Begin(ctx, msg.ChatID, msg.UserID, h.roleStep(
		"block_user",
		"Enter a user's id you want to block",
		domain.RoleBlocked,
		userBlockedReply,
		userNotFoundReply,
	))
}

// Unblock starts the flow that resets a user's role to user.
func (h *Handlers) Unblock(ctx context.Context, msg Message) error {
	return h.engine.Begin(ctx, msg.ChatID, msg.UserID, h.roleStep(
		"unblock_user",
		"Enter a user's id you want to unblock",
		domain.RoleUser,
		userUnblockedReply,
		userNotFoundReply,
	))
}

// AddAdmin starts the flow that promotes a user to admin.
func (h *Handlers) AddAdmin(ctx context.Context, msg Message) error {
	return h.engine.Begin(ctx, msg.ChatID, msg.UserID, h.roleStep(
		"add_admin",
		"Enter a user's id you want to make admin",
		domain.RoleAdmin,
		adminAddedReply,
		userNotFoundReply,
	))
}

// DeleteAdmin starts the flow that demotes an admin back to user.
func (h *Handlers) DeleteAdmin(ctx context.Context, msg Message) error {
	return h.engine.Begin(ctx, msg.ChatID, msg.UserID, h.roleStep(
		"delete_admin",
		"Enter a user's id you want to remove from admins",
		domain.RoleUser,
		adminDeletedReply,
		adminNotFoundReply,
	))
}

func (h *Handlers) roleStep(name, promptText string, role domain.Role, okReply, missingReply string) prompt.Step {
	return prompt.Step{
		Name:     name,
		Prompt:   promptText,
		Validate: prompt.ValidateUserID,
		Action: func(ctx context.Context, target int64) (string, error) {
			updated, err := h.store.SetRole(ctx, target, role)
			if err != nil {
				return "", err
			}
			if !updated {
				return missingReply, nil
			}

			h.logger.WithFields(logging.Fields{
				"event":  "role_updated",
				"flow":   name,
				"target": target,
				"role":   role,
			}).Warn("user role changed")
			return okReply, nil
		},
	}
}

func (h *Handlers) reply(ctx context.Context, chatID int64, text string) {
	if err := h.sender.SendText(ctx, chatID, text); err != nil {
		h.logger.WithFields(logging.Fields{
			"event":   "reply_send_error",
			"chat_id": chatID,
		}).WithError(err).Error("failed to send reply")
	}
}
