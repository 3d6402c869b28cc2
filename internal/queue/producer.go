package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/model"
)

type Producer interface {
	Enqueue(ctx context.Context, event model.Event, traceID string) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Enqueue(ctx context.Context, event model.Event, traceID string) error {
	values, err := messageValues(event, traceID)
	if err != nil {
		return err
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue event: %w", err)
	}

	p.logger.InfoContext(ctx, "enqueued event",
		"event_type", event.Type,
		"provider", event.Provider,
		"repository_id", event.RepositoryID,
		"issue_number", event.IssueNumber,
		"retry_count", event.RetryCount)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
