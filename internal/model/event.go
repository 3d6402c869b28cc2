package model

import "fmt"

type Provider string

const (
	ProviderGitHub Provider = "github"
	ProviderGitLab Provider = "gitlab"
)

func (p Provider) Valid() bool {
	return p == ProviderGitHub || p == ProviderGitLab
}

type EventType string

const (
	EventIssueCreated      EventType = "issue.created"
	EventIssueUpdated      EventType = "issue.updated"
	EventIssueClosed       EventType = "issue.closed"
	EventIssueAssigned     EventType = "issue.assigned"
	EventIssueUnassigned   EventType = "issue.unassigned"
	EventIssueLabelUpdated EventType = "issue.labelUpdated"
	EventIssueRecreated    EventType = "issue.recreated"
	EventCommentCreated    EventType = "comment.created"
	EventCommentUpdated    EventType = "comment.updated"
)

var knownEventTypes = map[EventType]struct{}{
	EventIssueCreated:      {},
	EventIssueUpdated:      {},
	EventIssueClosed:       {},
	EventIssueAssigned:     {},
	EventIssueUnassigned:   {},
	EventIssueLabelUpdated: {},
	EventIssueRecreated:    {},
	EventCommentCreated:    {},
	EventCommentUpdated:    {},
}

// EventUser identifies a git-host user within an event payload.
type EventUser struct {
	ID int64 `json:"id"`
}

// EventComment carries the comment body for comment.* events.
type EventComment struct {
	ID   int64     `json:"id"`
	Body string    `json:"body"`
	User EventUser `json:"user"`
}

// Event is the immutable inbound message consumed from the pipeline. All
// fields except RetryCount are supplied by the upstream webhook translator;
// RetryCount is incremented by the retry subsystem on each redelivery.
type Event struct {
	Type         EventType     `json:"eventType"`
	Provider     Provider      `json:"provider"`
	RepositoryID string        `json:"repositoryId"`
	IssueNumber  int           `json:"issueNumber"`
	Title        string        `json:"title"`
	Body         string        `json:"body,omitempty"`
	Labels       []string      `json:"labels,omitempty"`
	Assignees    []EventUser   `json:"assignees,omitempty"`
	Comment      *EventComment `json:"comment,omitempty"`

	RetryCount        int  `json:"retryCount"`
	PaymentSuccessful bool `json:"paymentSuccessful"`
	ChallengeValid    bool `json:"challengeValid"`
}

// ValidationError marks a malformed envelope. It is terminal: events failing
// validation are logged and dropped, never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event: %s %s", e.Field, e.Reason)
}

// Validate checks the envelope constraints before the event reaches the
// state machine.
func (e *Event) Validate() error {
	if _, ok := knownEventTypes[e.Type]; !ok {
		return &ValidationError{Field: "eventType", Reason: fmt.Sprintf("unknown value %q", e.Type)}
	}
	if !e.Provider.Valid() {
		return &ValidationError{Field: "provider", Reason: fmt.Sprintf("unknown value %q", e.Provider)}
	}
	if e.RepositoryID == "" {
		return &ValidationError{Field: "repositoryId", Reason: "is required"}
	}
	if e.IssueNumber <= 0 {
		return &ValidationError{Field: "issueNumber", Reason: "must be a positive integer"}
	}
	if e.Title == "" {
		return &ValidationError{Field: "title", Reason: "is required"}
	}
	if e.RetryCount < 0 {
		return &ValidationError{Field: "retryCount", Reason: "must be >= 0"}
	}
	if (e.Type == EventCommentCreated || e.Type == EventCommentUpdated) && e.Comment == nil {
		return &ValidationError{Field: "comment", Reason: "is required for comment events"}
	}
	return nil
}
