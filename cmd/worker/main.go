package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/ytfeed/internal/config"
	"github.com/hszk-dev/ytfeed/internal/domain/repository"
	"github.com/hszk-dev/ytfeed/internal/infrastructure/notify"
	"github.com/hszk-dev/ytfeed/internal/infrastructure/queue"
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

	watcher := usecase.NewUploadWatcher(cfg.Feed.ChannelIDs)

	// WaitGroup to track in-flight events
	var wg sync.WaitGroup

	handle := func(event repository.SnapshotEvent) error {
		wg.Add(1)
		defer wg.Done()

		outcome, err := watcher.HandleEvent(event)
		if err != nil {
			return err
		}
		logger.Debug("snapshot event handled",
			slog.String("channel_id", event.ChannelID),
			slog.String("revision", event.Revision.String()),
			slog.String("outcome", string(outcome)),
		)
		return nil
	}

	var consume func(ctx context.Context) error
	switch cfg.Notify.Backend {
	case config.NotifyRabbitMQ:
		queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()))
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		defer queueClient.Close()
		logger.Info("connected to RabbitMQ")

		consume = func(ctx context.Context) error {
			return queueClient.ConsumeSnapshotEvents(ctx, handle)
		}

	case config.NotifyRedis:
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		notifier := notify.NewRedisNotifier(redisClient)
		defer notifier.Close()
		logger.Info("connected to Redis", slog.String("addr", cfg.Redis.Addr))

		consume = func(ctx context.Context) error {
			return notifier.ConsumeSnapshotEvents(ctx, cfg.Feed.ChannelIDs, handle)
		}

	default:
		return errors.New("worker requires NOTIFY_BACKEND=redis or NOTIFY_BACKEND=rabbitmq")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting worker, consuming snapshot events",
			slog.String("backend", cfg.Notify.Backend),
			slog.Int("channels", len(cfg.Feed.ChannelIDs)),
		)
		if err := consume(ctx); err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("consumer error: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down worker", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	// Stop receiving new events
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("all in-flight events handled")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded, some events may not have been handled")
	}

	logger.Info("worker stopped")
	return nil
}
