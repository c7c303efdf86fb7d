package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/ytfeed/internal/api/handler"
	"github.com/hszk-dev/ytfeed/internal/api/middleware"
	"github.com/hszk-dev/ytfeed/internal/config"
	"github.com/hszk-dev/ytfeed/internal/domain/repository"
	"github.com/hszk-dev/ytfeed/internal/infrastructure/notify"
	"github.com/hszk-dev/ytfeed/internal/infrastructure/queue"
	"github.com/hszk-dev/ytfeed/internal/infrastructure/youtube"
	"github.com/hszk-dev/ytfeed/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))
	slog.SetDefault(logger)

	notifier, err := newNotifier(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if notifier != nil {
		defer notifier.Close()
	}

	// The fetcher itself never times out; the deadline lives on the client.
	httpClient := &http.Client{Timeout: cfg.Feed.FetchTimeout}
	fetcher := youtube.NewHTTPFetcher(httpClient)
	parser := youtube.NewAtomParser()

	services := make([]usecase.SnapshotService, 0, len(cfg.Feed.ChannelIDs))
	for _, channelID := range cfg.Feed.ChannelIDs {
		services = append(services, usecase.NewSnapshotService(fetcher, parser, notifier, usecase.SnapshotServiceConfig{
			ChannelID: channelID,
			FeedURL:   youtube.FeedURL(cfg.Feed.URLTemplate, channelID),
			Freshness: cfg.Feed.Freshness(),
		}))
	}
	logger.Info("monitoring channels",
		slog.Int("count", len(services)),
		slog.Duration("freshness", cfg.Feed.Freshness()),
	)

	r := setupRouter(logger, services)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// newNotifier connects the configured event backend. It returns a nil
// interface, not a typed nil, when notifications are disabled.
func newNotifier(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.SnapshotNotifier, error) {
	switch cfg.Notify.Backend {
	case config.NotifyRedis:
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Info("connected to Redis", slog.String("addr", cfg.Redis.Addr))
		return notify.NewRedisNotifier(redisClient), nil

	case config.NotifyRabbitMQ:
		queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		logger.Info("connected to RabbitMQ")
		return queueClient, nil

	default:
		return nil, nil
	}
}

func setupRouter(logger *slog.Logger, services []usecase.SnapshotService) *chi.Mux {
	index := make(map[string]usecase.SnapshotService, len(services))
	for _, svc := range services {
		index[svc.ChannelID()] = svc
	}

	channelHandler := handler.NewChannelHandler(services)
	healthHandler := handler.NewHealthHandler(services)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	r.Get("/health", healthHandler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/channels", channelHandler.List)
		r.With(middleware.ChannelSnapshot(index, logger)).
			Get("/channels/{channelID}/videos", channelHandler.Videos)
	})

	return r
}
