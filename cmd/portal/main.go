package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/SaiWorkProfile/manortha-website/internal/api"
	"github.com/SaiWorkProfile/manortha-website/internal/clients/genai"
	"github.com/SaiWorkProfile/manortha-website/internal/events"
	"github.com/SaiWorkProfile/manortha-website/internal/navigation"
	"github.com/SaiWorkProfile/manortha-website/internal/portal"
	"github.com/SaiWorkProfile/manortha-website/internal/repository"
	"github.com/SaiWorkProfile/manortha-website/internal/service"
	"github.com/SaiWorkProfile/manortha-website/pkg/broker"
	"github.com/SaiWorkProfile/manortha-website/pkg/config"
	"github.com/SaiWorkProfile/manortha-website/pkg/job"
	"github.com/SaiWorkProfile/manortha-website/pkg/logger"
	"github.com/SaiWorkProfile/manortha-website/pkg/metrics"
	"github.com/SaiWorkProfile/manortha-website/pkg/postgres"
)

const (
	readTimeout       = 20 * time.Second
	readHeaderTimeout = 2 * time.Second
	writeTimeout      = 60 * time.Second
)

//nolint:funlen
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.New(".env")
	panicOnErr("load config", err)

	l := logger.New(logger.ParseLevel(cfg.LogLevel))
	slog.SetDefault(l)

	metrics.Init()

	pool, err := postgres.ConnectToPostgres(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	panicOnErr("connect to postgres", err)
	defer pool.Close()

	err = postgres.UpMigrations(cfg.PostgresDSN)
	panicOnErr("up migrations", err)

	clock := clockwork.NewRealClock()

	var producer service.OutboundProducer

	if cfg.KafkaEnabled() {
		p := broker.NewProducer(l, cfg.Kafka.Brokers, cfg.Kafka.OutboundTopic)
		defer p.Close()

		producer = p
	}

	notifications := service.NewNotifications(cfg.Notifications, clock, producer)

	bus := events.NewBus(cfg.Notifications.BufferSize)

	err = bus.Subscribe(notifications.Handle)
	panicOnErr("subscribe notifications", err)

	s := service.NewService(
		cfg,
		clock,
		portal.NewGate(navigation.New()),
		repository.NewSessionRepository(pool),
		repository.NewAttemptRepository(pool),
		repository.NewCRMRepository(pool),
		genai.NewClient(cfg.GenAI),
		bus,
	)

	limiter := api.NewRateLimiter(cfg.Verification.RatePerSecond, cfg.Verification.RateBurst)

	handler := api.NewHandler(cfg.Session, s, notifications)
	mw := api.NewMiddleware(cfg, s, limiter)

	router := api.NewRouter(handler, mw)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		bus.Run(ctx)
	}()

	wg.Add(1)

	go func() {
		defer wg.Done()

		slog.InfoContext(ctx, "http server started", "port", cfg.HTTPPort)

		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Panicf("listen and serve: %s", err)
		}

		slog.DebugContext(ctx, "http server stopped")
	}()

	jobs := job.NewService(clock).
		RegisterJob("session_cleanup", cfg.Session.CleanupInterval, s.DeleteExpiredSessions).
		RegisterJob("rate_limiter_cleanup", cfg.Session.CleanupInterval, func(context.Context) error {
			limiter.Cleanup(clock.Now())
			return nil
		})
	jobs.Start(ctx)

	waitSignal(cancel, server)

	wg.Wait()
	jobs.Stop()

	s.Close()
	bus.Close()
	notifications.Dismiss()
}

func waitSignal(cancel context.CancelFunc, server *http.Server) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	sig := <-ch

	slog.Info("got OS signal", "signal", sig.String())

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	err := server.Shutdown(shutdownCtx)
	if err != nil {
		slog.ErrorContext(shutdownCtx, "server shutdown", "error", err)
	}
}

func panicOnErr(msg string, err error) {
	if err != nil {
		log.Panicf("%s: %s", msg, err)
	}
}
