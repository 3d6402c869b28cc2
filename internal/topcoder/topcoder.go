// Package topcoder is the REST client for the challenge platform. Every
// tracked issue maps 1:1 to a challenge; the processor creates, updates,
// activates and closes challenges through this client.
package topcoder

import (
	"context"
	"fmt"
)

// Member roles on a challenge.
const (
	RoleSubmitter = 1
	RoleCopilot   = 14
)

// Challenge statuses as reported by the platform.
const (
	StatusDraft     = "Draft"
	StatusActive    = "Active"
	StatusCompleted = "Completed"
	StatusCancelled = "Cancelled"
)

// ChallengeSpec describes a challenge to create.
type ChallengeSpec struct {
	Name      string   `json:"name"`
	Detail    string   `json:"detailedRequirements"`
	Prizes    []int    `json:"prizes"`
	ProjectID int64    `json:"projectId"`
	Tags      []string `json:"tags,omitempty"`
}

// ChallengePatch carries partial updates to an existing challenge. Nil
// fields are left untouched.
type ChallengePatch struct {
	Name   *string `json:"name,omitempty"`
	Detail *string `json:"detailedRequirements,omitempty"`
	Prizes []int   `json:"prizes,omitempty"`
}

// Ptr returns a pointer to v, for building patches inline.
func Ptr[T any](v T) *T {
	return &v
}

// Challenge is the platform's view of a contest.
type Challenge struct {
	ID     int64  `json:"id"`
	UUID   string `json:"uuid"`
	Status string `json:"status"`
	Prizes []int  `json:"prizes"`
}

// Client is the challenge platform capability used by the state machine.
type Client interface {
	CreateChallenge(ctx context.Context, spec ChallengeSpec) (*Challenge, error)
	UpdateChallenge(ctx context.Context, challengeID int64, patch ChallengePatch) error
	GetChallenge(ctx context.Context, challengeID int64) (*Challenge, error)
	ActivateChallenge(ctx context.Context, challengeID int64) error
	CloseChallenge(ctx context.Context, challengeID int64, winnerHandle string) error
	CancelChallenge(ctx context.Context, challengeID int64) error
	AddParticipant(ctx context.Context, challengeID int64, handle string, roleID int) error
	RemoveParticipant(ctx context.Context, challengeID int64, handle string, roleID int) error
	IsRoleAlreadySet(ctx context.Context, challengeID int64, roleID int) (bool, error)
	ResolveUserID(ctx context.Context, handle string) (int64, error)
}

// APIError marks a failure of the challenge platform API. Platform errors
// are retryable: the retry subsystem reschedules the event.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("topcoder api: %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}
