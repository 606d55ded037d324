package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"tg_reels_bot/internal/domain"
)

type stubMongoChecker struct {
	err error
}

func (s stubMongoChecker) Ping(context.Context) error {
	return s.err
}

type stubStats struct {
	users   int64
	blocked int64
	err     error
}

func (s stubStats) CountUsers(context.Context) (int64, error) {
	return s.users, s.err
}

func (s stubStats) CountByRole(_ context.Context, role domain.Role) (int64, error) {
	if role != domain.RoleBlocked {
		return 0, errors.New("unexpected role")
	}
	return s.blocked, s.err
}

func serveHealth(t *testing.T, server *Server) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthHandlerOK(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	server := NewServer(0, stubMongoChecker{}, stubStats{users: 7, blocked: 2}, nil, logrus.NewEntry(logger))

	rr := serveHealth(t, server)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected HTTP 200, got %d", rr.Code)
	}

	body := strings.TrimSpace(rr.Body.String())
	if body != `{"status":"ok","users":7,"blocked":2}` {
		t.Fatalf("unexpected body: %s", body)
	}

	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected content-type application/json, got %s", ct)
	}
}

func TestHealthHandlerNoStatsProvider(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	server := NewServer(0, stubMongoChecker{}, nil, nil, logrus.NewEntry(logger))

	rr := serveHealth(t, server)

	body := strings.TrimSpace(rr.Body.String())
	if body != `{"status":"ok"}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestHealthHandlerMongoError(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	server := NewServer(0, stubMongoChecker{err: errors.New("mongo down")}, stubStats{}, nil, logrus.NewEntry(logger))

	rr := serveHealth(t, server)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected HTTP 200, got %d", rr.Code)
	}

	body := strings.TrimSpace(rr.Body.String())
	if body != `{"status":"degraded","mongo":"error"}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestHealthHandlerMissingMongoChecker(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	server := NewServer(0, nil, nil, nil, logrus.NewEntry(logger))

	rr := serveHealth(t, server)

	body := strings.TrimSpace(rr.Body.String())
	if body != `{"status":"degraded","mongo":"error"}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestHealthHandlerStatsFailureKeepsStatusOK(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	server := NewServer(0, stubMongoChecker{}, stubStats{err: errors.New("count failed")}, nil, logrus.NewEntry(logger))

	rr := serveHealth(t, server)

	body := strings.TrimSpace(rr.Body.String())
	if body != `{"status":"ok"}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestMetricsRouteRegistered(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("metrics ok"))
	})
	server := NewServer(0, stubMongoChecker{}, nil, metricsHandler, logrus.NewEntry(logger))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(rr, req)

	if rr.Body.String() != "metrics ok" {
		t.Fatalf("expected metrics handler to serve, got %q", rr.Body.String())
	}
}
