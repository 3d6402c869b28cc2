// Package queue moves issue events through Redis streams. Webhook events are
// enqueued by the ingest server, consumed by the processor through a consumer
// group, and rescheduled through a sorted-set delay queue when a transient
// failure needs another attempt later.
package queue

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/model"
)

// Message is an issue event as it travels on the stream. The event itself is
// carried as a JSON payload; a few fields are duplicated as flat stream values
// so they are greppable with XRANGE during incidents.
type Message struct {
	ID      string
	Event   model.Event
	TraceID string
	Raw     redis.XMessage
}

func ParseMessage(msg redis.XMessage) (Message, error) {
	payload, err := parseString(msg.Values, "payload")
	if err != nil {
		return Message{}, err
	}

	var event model.Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return Message{}, fmt.Errorf("decoding payload: %w", err)
	}

	// The flat retry_count field wins over the payload copy. Reschedules
	// bump the flat field without re-serializing the event.
	if count, err := parseOptionalInt(msg.Values, "retry_count"); err != nil {
		return Message{}, err
	} else if count > 0 {
		event.RetryCount = count
	}

	traceID, err := parseOptionalString(msg.Values, "trace_id")
	if err != nil {
		return Message{}, err
	}

	if err := event.Validate(); err != nil {
		return Message{}, fmt.Errorf("invalid event on stream: %w", err)
	}

	return Message{
		ID:      msg.ID,
		Event:   event,
		TraceID: traceID,
		Raw:     msg,
	}, nil
}

func messageValues(event model.Event, traceID string) (map[string]any, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encoding event: %w", err)
	}

	values := map[string]any{
		"payload":       string(payload),
		"event_type":    string(event.Type),
		"provider":      string(event.Provider),
		"repository_id": event.RepositoryID,
		"issue_number":  event.IssueNumber,
	}

	if event.RetryCount > 0 {
		values["retry_count"] = event.RetryCount
	}
	if traceID != "" {
		values["trace_id"] = traceID
	}

	return values, nil
}

func parseString(values map[string]any, key string) (string, error) {
	raw, ok := values[key]
	if !ok {
		return "", fmt.Errorf("missing %s", key)
	}
	return fmt.Sprint(raw), nil
}

func parseOptionalString(values map[string]any, key string) (string, error) {
	raw, ok := values[key]
	if !ok {
		return "", nil
	}
	return fmt.Sprint(raw), nil
}

func parseOptionalInt(values map[string]any, key string) (int, error) {
	raw, ok := values[key]
	if !ok {
		return 0, nil
	}
	str := fmt.Sprint(raw)
	num, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return num, nil
}
