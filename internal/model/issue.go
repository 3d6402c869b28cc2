package model

import "time"

type IssueStatus string

// Issue lifecycle. Terminal states are payment_successful and cancelled; the
// *_pending states double as coarse optimistic locks across replicas.
const (
	StatusChallengeCreationPending    IssueStatus = "challenge_creation_pending"
	StatusChallengeCreationSuccessful IssueStatus = "challenge_creation_successful"
	StatusChallengeCreationFailed     IssueStatus = "challenge_creation_failed"
	StatusChallengePaymentPending     IssueStatus = "challenge_payment_pending"
	StatusChallengePaymentSuccessful  IssueStatus = "challenge_payment_successful"
	StatusChallengePaymentFailed      IssueStatus = "challenge_payment_failed"
	StatusChallengeCancelled          IssueStatus = "challenge_cancelled"
)

func (s IssueStatus) Terminal() bool {
	return s == StatusChallengePaymentSuccessful || s == StatusChallengeCancelled
}

// Issue is the durable projection of one tracker issue, unique on
// (provider, repository_id, number).
type Issue struct {
	ID           int64    `json:"id"`
	Provider     Provider `json:"provider"`
	RepositoryID string   `json:"repository_id"`
	Number       int      `json:"number"`

	Title  string   `json:"title"`
	Body   string   `json:"body,omitempty"`
	Prizes []int    `json:"prizes"` // first element is the primary prize
	Labels []string `json:"labels,omitempty"`

	Assignee   *string    `json:"assignee,omitempty"` // git-host username
	AssignedAt *time.Time `json:"assigned_at,omitempty"`

	ChallengeID   *int64  `json:"challenge_id,omitempty"`
	ChallengeUUID *string `json:"challenge_uuid,omitempty"`
	ProjectID     *int64  `json:"project_id,omitempty"`

	Status    IssueStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// PrimaryPrize returns the first prize or zero when none is set.
func (i *Issue) PrimaryPrize() int {
	if len(i.Prizes) == 0 {
		return 0
	}
	return i.Prizes[0]
}
