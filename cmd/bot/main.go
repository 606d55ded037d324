package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tg_reels_bot/internal/access"
	"tg_reels_bot/internal/config"
	"tg_reels_bot/internal/conversation"
	"tg_reels_bot/internal/domain"
	"tg_reels_bot/internal/feature/owner"
	"tg_reels_bot/internal/health"
	"tg_reels_bot/internal/logging"
	"tg_reels_bot/internal/media"
	"tg_reels_bot/internal/metrics"
	"tg_reels_bot/internal/prompt"
	"tg_reels_bot/internal/store"
	"tg_reels_bot/internal/telegram"
)

const (
	mongoConnectTimeout     = 10 * time.Second
	mongoIndexTimeout       = 5 * time.Second
	mongoDisconnectTimeout  = 5 * time.Second
	ownerBootstrapTimeout   = 5 * time.Second
	telegramShutdownTimeout = 10 * time.Second
	healthShutdownTimeout   = 5 * time.Second
)

const metricsNamespace = "tg_reels_bot"

func main() {
	configOnly := flag.Bool("config-only", false, "load and print configuration then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Error("configuration error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Setup(cfg)
	if err != nil {
		logging.Error("logger setup error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "logger setup error: %v\n", err)
		os.Exit(1)
	}

	if *configOnly {
		logging.Info("configuration check", logging.Fields{"event": "config_only"})
		fmt.Println("configuration check: ok")
		fmt.Println(config.FormatRedacted(cfg))
		return
	}

	logger.WithFields(logging.Fields{
		"event":    "startup",
		"mongo_db": cfg.MongoDB,
	}).Info("configuration loaded")

	connectCtx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	mongoManager, err := store.NewManager(connectCtx, cfg)
	cancel()
	if err != nil {
		logger.WithError(err).Error("mongo connection error")
		fmt.Fprintf(os.Stderr, "mongo connection error: %v\n", err)
		os.Exit(1)
	}

	logger.WithField("event", "mongo_connect").Info("connected to mongo")

	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), mongoIndexTimeout)
	if err := mongoManager.EnsureBaseIndexes(indexCtx); err != nil {
		cancelIndexes()
		logger.WithError(err).Error("mongo index setup error")
		fmt.Fprintf(os.Stderr, "mongo index setup error: %v\n", err)
		os.Exit(1)
	}
	cancelIndexes()

	logger.WithField("event", "mongo_indexes").Info("ensured base mongo indexes")

	ownerRegistrar := owner.NewRegistrar(mongoManager.Users(), logger)
	ownerCtx, cancelOwner := context.WithTimeout(context.Background(), ownerBootstrapTimeout)
	if err := ownerRegistrar.EnsureOwner(ownerCtx, cfg.BotOwnerID); err != nil {
		cancelOwner()
		logger.WithError(err).Error("owner bootstrap error")
		fmt.Fprintf(os.Stderr, "owner bootstrap error: %v\n", err)
		os.Exit(1)
	}
	cancelOwner()

	botMetrics := metrics.New(metricsNamespace, prometheus.DefaultRegisterer)

	userRepository := domain.NewUserRepository(mongoManager.Users())
	statsProvider := store.NewStatsProvider(mongoManager.Users())
	gate := access.NewGate(userRepository, logger, botMetrics)
	registry := conversation.NewRegistry()
	chatLocks := conversation.NewChatLocks()
	fetcher := media.NewHTTPFetcher(cfg.MediaBaseURL, logger)

	tgClient, err := telegram.NewClient(cfg, logger,
		telegram.WithRouterFactory(func(s telegram.Sender) *telegram.Router {
			engine := prompt.NewEngine(registry, s.SendText, logger, botMetrics)
			handlers := telegram.NewHandlers(userRepository, engine, registry, fetcher, s, cfg.LogFile, logger, botMetrics)
			router := telegram.NewRouter(gate, registry, chatLocks, s, logger, botMetrics)
			handlers.RegisterAll(router)
			return router
		}),
	)
	if err != nil {
		logger.WithError(err).Error("telegram client setup error")
		fmt.Fprintf(os.Stderr, "telegram client setup error: %v\n", err)
		os.Exit(1)
	}

	logger.WithField("event", "telegram_ready").Info("telegram client initialized")

	healthServer := health.NewServer(cfg.HTTPPort, mongoManager, statsProvider, metrics.Handler(), logger)
	go func() {
		if err := healthServer.ListenAndServe(); err != nil {
			logger.WithError(err).Error("health server error")
		}
	}()

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telegramCtx, cancelTelegram := context.WithCancel(context.Background())
	tgDone := make(chan struct{})

	go func() {
		tgClient.Start(telegramCtx)
		close(tgDone)
	}()

	select {
	case <-signalCtx.Done():
		logger.WithField("event", "shutdown_signal").Info("received termination signal, stopping telegram polling")
	case <-tgDone:
		logger.WithField("event", "telegram_stopped_early").Warn("telegram client stopped before shutdown signal")
	}

	cancelTelegram()

	waitCtx, cancelWait := context.WithTimeout(context.Background(), telegramShutdownTimeout)
	select {
	case <-tgDone:
	case <-waitCtx.Done():
		logger.WithField("event", "telegram_shutdown_timeout").Warn("timed out waiting for telegram client to stop")
	}
	cancelWait()

	healthCtx, cancelHealth := context.WithTimeout(context.Background(), healthShutdownTimeout)
	if err := healthServer.Shutdown(healthCtx); err != nil {
		logger.WithError(err).Error("health server shutdown error")
	}
	cancelHealth()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), mongoDisconnectTimeout)
	if err := mongoManager.Close(shutdownCtx); err != nil {
		logger.WithError(err).Error("mongo disconnect error")
	} else {
		logger.WithField("event", "mongo_disconnect").Info("mongo client disconnected")
	}
	cancelShutdown()

	logger.WithField("event", "shutdown_complete").Info("shutdown complete")
}
