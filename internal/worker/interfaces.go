// Package worker runs the processor's consume loop: it reads issue events
// from the stream, hands them to the retry-wrapped state machine and decides
// acknowledgement, dead-lettering and reclaim of stale deliveries.
package worker

import (
	"context"

	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/model"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/queue"
)

// Consumer abstracts the message queue for testability.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

// EventProcessor abstracts the retry-wrapped state machine for testability.
type EventProcessor interface {
	Process(ctx context.Context, event model.Event) error
}
