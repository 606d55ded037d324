// Package access gates command handlers behind the fixed role hierarchy.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"tg_reels_bot/internal/domain"
	"tg_reels_bot/internal/logging"
	"tg_reels_bot/internal/metrics"
)

// RoleResolver resolves a user's current role, materializing a default row
// for users never seen before.
type RoleResolver interface {
	GetOrCreateRole(ctx context.Context, userID int64) (domain.Role, error)
}

// Gate performs role-rank checks in front of command handlers.
type Gate struct {
	roles   RoleResolver
	logger  *logrus.Entry
	metrics *metrics.Metrics
}

// NewGate constructs a Gate over the given resolver.
func NewGate(roles RoleResolver, logger *logrus.Entry, m *metrics.Metrics) *Gate {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Gate{
		roles:   roles,
		logger:  logger,
		metrics: m,
	}
}

// Require runs action only when the user's role ranks at or above minimum.
// A denial is silent toward the chat: nothing is invoked, nothing is sent,
// and Require returns nil. A stored role tag outside the hierarchy is a
// distinct loud failure, never treated as any tier.
func (g *Gate) Require(ctx context.Context, userID int64, minimum domain.Role, action func(context.Context) error) error {
	if g == nil || g.roles == nil {
		return errors.New("access gate is not initialized")
	}
	if action == nil {
		return errors.New("action is required")
	}

	role, err := g.roles.GetOrCreateRole(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve role for user %d: %w", userID, err)
	}

	rank, err := domain.RolePriority(role)
	if err != nil {
		g.metrics.IncUnknownRole()
		g.logger.WithFields(logging.Fields{
			"event":   "unknown_role",
			"user_id": userID,
			"role":    string(role),
		}).Error("stored role is outside the hierarchy")
		return fmt.Errorf("access check for user %d: %w", userID, err)
	}

	required, err := domain.RolePriority(minimum)
	if err != nil {
		return fmt.Errorf("required tier: %w", err)
	}

	if rank < required {
		g.metrics.IncAccessDenied(string(minimum))
		g.logger.WithFields(logging.Fields{
			"event":    "access_denied",
			"user_id":  userID,
			"required": string(minimum),
		}).Info("access denied")
		return nil
	}

	return action(ctx)
}
