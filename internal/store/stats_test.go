package store

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tg_reels_bot/internal/domain"
)

func TestStatsProviderCountsUsers(t *testing.T) {
	users := &stubCountCollection{count: 12}
	provider := NewStatsProvider(users)

	ctx := context.Background()

	userCount, err := provider.CountUsers(ctx)
	if err != nil {
		t.Fatalf("expected user count to succeed, got error: %v", err)
	}
	if userCount != 12 {
		t.Fatalf("expected 12 users, got %d", userCount)
	}
	if users.calls != 1 {
		t.Fatalf("expected users count to be called once, got %d", users.calls)
	}
}

func TestStatsProviderCountsByRole(t *testing.T) {
	users := &stubCountCollection{count: 3}
	provider := NewStatsProvider(users)

	count, err := provider.CountByRole(context.Background(), domain.RoleBlocked)
	if err != nil {
		t.Fatalf("expected role count to succeed, got error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 blocked users, got %d", count)
	}

	filter, ok := users.lastFilter.(bson.M)
	if !ok {
		t.Fatalf("expected bson.M filter, got %T", users.lastFilter)
	}
	if filter["role"] != domain.RoleBlocked {
		t.Fatalf("expected role filter, got %v", filter)
	}
}

func TestStatsProviderRejectsUnknownRole(t *testing.T) {
	provider := NewStatsProvider(&stubCountCollection{})

	if _, err := provider.CountByRole(context.Background(), "owner"); err == nil {
		t.Fatalf("expected error for role outside the hierarchy")
	}
}

func TestStatsProviderRequiresContext(t *testing.T) {
	provider := NewStatsProvider(&stubCountCollection{})

	if _, err := provider.CountUsers(nil); err == nil {
		t.Fatalf("expected error for nil context")
	}
	if _, err := provider.CountByRole(nil, domain.RoleUser); err == nil {
		t.Fatalf("expected error for nil context")
	}
}

func TestStatsProviderRequiresInitialization(t *testing.T) {
	var provider *StatsProvider

	if _, err := provider.CountUsers(context.Background()); err == nil {
		t.Fatalf("expected error for nil provider")
	}
	if _, err := provider.CountByRole(context.Background(), domain.RoleUser); err == nil {
		t.Fatalf("expected error for nil provider")
	}
}

func TestStatsProviderPropagatesErrors(t *testing.T) {
	expectedErr := errors.New("count failed")
	provider := NewStatsProvider(&stubCountCollection{err: expectedErr})

	if _, err := provider.CountUsers(context.Background()); err == nil {
		t.Fatalf("expected error from user count")
	}
	if _, err := provider.CountByRole(context.Background(), domain.RoleUser); err == nil {
		t.Fatalf("expected error from role count")
	}
}

type stubCountCollection struct {
	count      int64
	err        error
	calls      int
	lastFilter interface{}
}

func (s *stubCountCollection) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	s.calls++
	s.lastFilter = filter
	return s.count, s.err
}
