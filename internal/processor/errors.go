// Package processor holds the issue lifecycle state machine and its failure
// recovery: the per-event transition logic, the challenge creation lock and
// the retry policy applied when a transition fails.
package processor

import (
	"errors"

	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/githost"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/model"
)

// ErrIssueAlreadyExists rejects an issue.created replay for an issue that was
// already created. Retrying cannot change the outcome.
var ErrIssueAlreadyExists = errors.New("issue already exists")

// ErrChallengeCreating signals that another worker holds the creation lock
// for this issue. The attempt is abandoned and the event retried later.
var ErrChallengeCreating = errors.New("challenge creation already in progress")

// Retryable classifies a transition failure for the retry subsystem.
// Validation failures and replay rejections are terminal. Git host failures
// are surfaced without retry since redelivery cannot fix a tracker-side
// problem. Everything else, challenge platform errors and internal errors
// included, is retried.
func Retryable(err error) bool {
	var validationErr *model.ValidationError
	if errors.As(err, &validationErr) {
		return false
	}

	var hostErr *githost.Error
	if errors.As(err, &hostErr) {
		return false
	}

	if errors.Is(err, ErrIssueAlreadyExists) ||
		errors.Is(err, githost.ErrProjectNotFound) ||
		errors.Is(err, githost.ErrUserNotMapped) {
		return false
	}

	return true
}
