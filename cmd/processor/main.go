package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/topcoder-platform/topcoder-x-processor-sub000/common/id"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/common/logger"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/common/otel"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/core/config"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/core/db"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/githost"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/processor"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/queue"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/store"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/topcoder"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/worker"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeProcessor)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	slog.InfoContext(ctx, "processor starting",
		"env", cfg.Env,
		"consumer_group", cfg.Pipeline.RedisGroup,
		"consumer_name", cfg.Pipeline.RedisConsumer)

	// Use a different node ID than the server
	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Pipeline.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Pipeline.RedisStream)

	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:    cfg.Pipeline.RedisStream,
		Group:     cfg.Pipeline.RedisGroup,
		Consumer:  cfg.Pipeline.RedisConsumer,
		DLQStream: cfg.Pipeline.RedisDLQStream,
		BatchSize: 1, // issue ordering depends on one event at a time
		Block:     5 * time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	stores := store.NewStores(database.Pool())
	resolver := githost.NewResolver(stores.UserMappings(), stores.Projects())
	hosts := githost.NewFactory(stores.Projects(), cfg.GitHub, cfg.GitLab)
	platform := topcoder.NewClient(cfg.Topcoder)
	locks := processor.NewLockManager(redisClient, 2*time.Minute)
	scheduler := queue.NewDelayScheduler(redisClient, cfg.Pipeline.RedisDelaySet, cfg.Pipeline.RedisStream)

	machine := processor.NewStateMachine(
		stores.Issues(),
		resolver,
		hosts,
		platform,
		locks,
		cfg.Labels,
		cfg.Topcoder,
	)
	eventProcessor := processor.NewProcessor(machine, scheduler, hosts, cfg.Labels, cfg.Retry)

	w := worker.New(consumer, eventProcessor, worker.Config{
		MaxRetries: cfg.Retry.MaxRetries,
	})

	reclaimer := worker.NewRedisReclaimer(redisClient, worker.RedisReclaimerConfig{
		Stream:    cfg.Pipeline.RedisStream,
		Group:     cfg.Pipeline.RedisGroup,
		Consumer:  cfg.Pipeline.RedisConsumer + "-reclaimer",
		MinIdle:   5 * time.Minute,
		Interval:  1 * time.Minute,
		BatchSize: 10,
	}, w)

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Run(runCtx)
	}()
	go reclaimer.Run(runCtx)
	go scheduler.Run(runCtx)

	slog.InfoContext(ctx, "processor initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down processor...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	reclaimer.Stop()
	w.Stop()
	cancelRun()

	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded")
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			slog.ErrorContext(ctx, "worker error during shutdown", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "processor shutdown complete")
}
