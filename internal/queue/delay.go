package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"github.com/topcoder-platform/topcoder-x-processor-sub000/common/logger"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/model"
)

// Scheduler defers an event for later redelivery.
type Scheduler interface {
	Schedule(ctx context.Context, event model.Event, delay time.Duration) error
}

type delayedEntry struct {
	Event   model.Event `json:"event"`
	TraceID string      `json:"traceId,omitempty"`
	Nonce   int64       `json:"nonce"`
}

// DelayScheduler parks events in a sorted set scored by their due time and
// drains due entries back onto the stream. Entries survive process restarts,
// unlike an in-process timer.
type DelayScheduler struct {
	client   *redis.Client
	delaySet string
	stream   string
	interval time.Duration
}

func NewDelayScheduler(client *redis.Client, delaySet, stream string) *DelayScheduler {
	return &DelayScheduler{
		client:   client,
		delaySet: delaySet,
		stream:   stream,
		interval: time.Second,
	}
}

func (s *DelayScheduler) Schedule(ctx context.Context, event model.Event, delay time.Duration) error {
	entry := delayedEntry{
		Event: event,
		// The nonce keeps otherwise-identical reschedules as distinct set
		// members so a second failure does not collapse into the first.
		Nonce: time.Now().UnixNano(),
	}
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		entry.TraceID = spanCtx.TraceID().String()
	}

	member, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding delayed event: %w", err)
	}

	due := time.Now().Add(delay)
	if err := s.client.ZAdd(ctx, s.delaySet, redis.Z{
		Score:  float64(due.UnixMilli()),
		Member: string(member),
	}).Err(); err != nil {
		return fmt.Errorf("scheduling delayed event: %w", err)
	}

	slog.InfoContext(ctx, "event scheduled for redelivery",
		"event_type", event.Type,
		"repository_id", event.RepositoryID,
		"issue_number", event.IssueNumber,
		"retry_count", event.RetryCount,
		"due_at", due.Format(time.RFC3339))
	return nil
}

// Run polls the delay set and moves due entries onto the stream. It blocks
// until ctx is cancelled.
func (s *DelayScheduler) Run(ctx context.Context) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "tcx.queue.delay",
	})
	slog.InfoContext(ctx, "delay drainer started", "delay_set", s.delaySet, "stream", s.stream)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "delay drainer stopped")
			return
		case <-ticker.C:
			if err := s.drainDue(ctx); err != nil {
				slog.ErrorContext(ctx, "draining delayed events", "error", err)
			}
		}
	}
}

func (s *DelayScheduler) drainDue(ctx context.Context) error {
	now := fmt.Sprintf("%d", time.Now().UnixMilli())
	members, err := s.client.ZRangeByScore(ctx, s.delaySet, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   now,
		Count: 100,
	}).Result()
	if err != nil {
		return fmt.Errorf("reading due entries: %w", err)
	}

	for _, member := range members {
		// Remove before enqueue: ZRem returning 0 means another drainer
		// already claimed this entry.
		removed, err := s.client.ZRem(ctx, s.delaySet, member).Result()
		if err != nil {
			return fmt.Errorf("claiming due entry: %w", err)
		}
		if removed == 0 {
			continue
		}

		var entry delayedEntry
		if err := json.Unmarshal([]byte(member), &entry); err != nil {
			slog.ErrorContext(ctx, "dropping malformed delayed entry", "error", err)
			continue
		}

		values, err := messageValues(entry.Event, entry.TraceID)
		if err != nil {
			slog.ErrorContext(ctx, "dropping unencodable delayed entry", "error", err)
			continue
		}

		if err := s.client.XAdd(ctx, &redis.XAddArgs{
			Stream: s.stream,
			Values: values,
		}).Err(); err != nil {
			// Put the entry back so it is retried on the next tick.
			_ = s.client.ZAdd(ctx, s.delaySet, redis.Z{Score: 0, Member: member}).Err()
			return fmt.Errorf("redelivering delayed event: %w", err)
		}

		slog.InfoContext(ctx, "delayed event redelivered",
			"event_type", entry.Event.Type,
			"repository_id", entry.Event.RepositoryID,
			"issue_number", entry.Event.IssueNumber,
			"retry_count", entry.Event.RetryCount)
	}

	return nil
}
