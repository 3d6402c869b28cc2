package processor

import (
	"context"
	"log/slog"

	"github.com/topcoder-platform/topcoder-x-processor-sub000/common/logger"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/core/config"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/githost"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/model"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/queue"
)

// TransitionHandler executes the transition for one event.
type TransitionHandler interface {
	Process(ctx context.Context, event model.Event) error
}

// Processor wraps the state machine with the retry policy. A retryable
// failure below the retry bound is rescheduled onto the delay queue with an
// incremented retry counter; at the bound a single explanatory comment is
// posted, and a failed payment additionally reopens the ticket for a human
// to re-trigger. The original error is always returned so the caller sees
// the attempt as failed either way.
type Processor struct {
	machine   TransitionHandler
	scheduler queue.Scheduler
	hosts     githost.Factory
	labels    config.LabelsConfig
	retry     config.RetryConfig
}

func NewProcessor(
	machine TransitionHandler,
	scheduler queue.Scheduler,
	hosts githost.Factory,
	labels config.LabelsConfig,
	retry config.RetryConfig,
) *Processor {
	return &Processor{
		machine:   machine,
		scheduler: scheduler,
		hosts:     hosts,
		labels:    labels,
		retry:     retry,
	}
}

func (p *Processor) Process(ctx context.Context, event model.Event) error {
	err := p.machine.Process(ctx, event)
	if err == nil {
		return nil
	}
	if !Retryable(err) {
		slog.ErrorContext(ctx, "event failed terminally", "error", err)
		return err
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "tcx.processor.retry",
	})

	if event.RetryCount < p.retry.MaxRetries {
		next := event
		next.RetryCount++
		// Derived flags must be recomputed from fresh state on redelivery.
		next.PaymentSuccessful = false
		next.ChallengeValid = false

		if schedErr := p.scheduler.Schedule(ctx, next, p.retry.Interval); schedErr != nil {
			// The delivery is acked either way, so a lost schedule would
			// silently drop the event. Treat it as exhausted instead.
			slog.ErrorContext(ctx, "scheduling retry", "error", schedErr)
			p.exhausted(ctx, event, err)
			return err
		}
		slog.WarnContext(ctx, "event rescheduled after failure",
			"error", err,
			"next_retry_count", next.RetryCount,
			"max_retries", p.retry.MaxRetries)
		return err
	}

	p.exhausted(ctx, event, err)
	return err
}

// exhausted performs the terminal fallback once retries run out. Fallback is
// best effort: its own failures are logged but never mask the original error.
func (p *Processor) exhausted(ctx context.Context, event model.Event, cause error) {
	slog.ErrorContext(ctx, "retries exhausted",
		"error", cause,
		"retry_count", event.RetryCount)

	host, err := p.hosts.ClientFor(ctx, event.Provider, event.RepositoryID)
	if err != nil {
		slog.ErrorContext(ctx, "building host client for fallback", "error", err)
		return
	}
	ref := githost.IssueRef{
		Provider:     event.Provider,
		RepositoryID: event.RepositoryID,
		Number:       event.IssueNumber,
	}

	payment := event.Type == model.EventIssueClosed
	if err := host.CreateComment(ctx, ref, retriesExhaustedComment(cause, payment)); err != nil {
		slog.ErrorContext(ctx, "posting fallback comment", "error", err)
	}

	if payment {
		if err := host.SetState(ctx, ref, githost.IssueStateOpen); err != nil {
			slog.ErrorContext(ctx, "reopening issue after failed payment", "error", err)
		}
		if err := host.SetLabels(ctx, ref, []string{p.labels.ReadyForReview}); err != nil {
			slog.ErrorContext(ctx, "resetting labels after failed payment", "error", err)
		}
	}
}
