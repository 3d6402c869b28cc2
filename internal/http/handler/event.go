// Package handler holds the gin handlers of the ingest server.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/model"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/parser"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/queue"
)

// EventHandler accepts translated webhook events and puts them on the stream.
type EventHandler struct {
	producer queue.Producer
}

func NewEventHandler(producer queue.Producer) *EventHandler {
	return &EventHandler{producer: producer}
}

func (h *EventHandler) Ingest(c *gin.Context) {
	ctx := c.Request.Context()

	var event model.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		slog.WarnContext(ctx, "malformed event payload", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := event.Validate(); err != nil {
		var validationErr *model.ValidationError
		if errors.As(err, &validationErr) {
			slog.WarnContext(ctx, "invalid event envelope",
				"field", validationErr.Field,
				"reason", validationErr.Reason)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Untracked issues never enter the pipeline.
	if event.Type == model.EventIssueCreated {
		if prizes, _ := parser.Parse(event.Title); len(prizes) == 0 {
			slog.InfoContext(ctx, "dropping issue without prize tag",
				"repository_id", event.RepositoryID,
				"issue_number", event.IssueNumber)
			c.JSON(http.StatusAccepted, gin.H{"enqueued": false, "reason": "no prize tag in title"})
			return
		}
	}

	var traceID string
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		traceID = spanCtx.TraceID().String()
	}

	if err := h.producer.Enqueue(ctx, event, traceID); err != nil {
		slog.ErrorContext(ctx, "failed to enqueue event", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue event"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"enqueued": true})
}
