package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/topcoder-platform/topcoder-x-processor-sub000/common/logger"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/processor"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/queue"
)

type Config struct {
	// MaxRetries is the domain-level retry bound carried on the event. A
	// retryable failure at or beyond the bound is dead-lettered instead of
	// rescheduled.
	MaxRetries int
}

type Worker struct {
	consumer  Consumer
	processor EventProcessor
	cfg       Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer Consumer, eventProcessor EventProcessor, cfg Config) *Worker {
	return &Worker{
		consumer:  consumer,
		processor: eventProcessor,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				// Brief backoff on error
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		w.ProcessMessage(ctx, msg)
	}

	return nil
}

// ProcessMessage runs one message through the state machine and settles it on
// the stream. Exported so the reclaimer can reuse it for stale deliveries.
//
// Settlement policy: a domain failure is acked here because the retry
// subsystem already rescheduled it (or posted the terminal fallback); a
// retryable failure that has exhausted its retry budget also goes to the DLQ
// for operator inspection. Only a panic leaves the message to transport-level
// requeue.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		MessageID: logger.Ptr(msg.ID),
		Component: "tcx.worker",
	})

	slog.InfoContext(ctx, "processing message",
		"event_type", msg.Event.Type,
		"repository_id", msg.Event.RepositoryID,
		"issue_number", msg.Event.IssueNumber,
		"retry_count", msg.Event.RetryCount)

	err := w.processSafe(ctx, msg)
	if err == nil {
		w.ack(ctx, msg)
		return
	}

	if isPanic(err) {
		// The state machine never got to run cleanup; let the transport
		// redeliver immediately.
		if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
			slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
		}
		return
	}

	if processor.Retryable(err) && msg.Event.RetryCount >= w.cfg.MaxRetries {
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	w.ack(ctx, msg)
}

func (w *Worker) ack(ctx context.Context, msg queue.Message) {
	if err := w.consumer.Ack(ctx, msg); err != nil {
		// The message will be reclaimed, which is safe: transitions are
		// idempotent under redelivery.
		slog.WarnContext(ctx, "failed to ACK message", "error", err)
	}
}

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

func isPanic(err error) bool {
	_, ok := err.(*panicError)
	return ok
}

func (w *Worker) processSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing", "panic", r)
			err = &panicError{value: r}
		}
	}()
	return w.processor.Process(ctx, msg.Event)
}
