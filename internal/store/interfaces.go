package store

import (
	"context"
	"errors"
	"time"

	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a unique constraint rejects a write, e.g. two
// workers racing to create the record for the same issue.
var ErrConflict = errors.New("already exists")

// IssueStore defines the contract for issue record access. The status column
// is the concurrency discriminant: writers read-modify-write through these
// methods and degrade to no-ops when the record is already in-flight or
// terminal for their path.
type IssueStore interface {
	FindOne(ctx context.Context, provider model.Provider, repositoryID string, number int) (*model.Issue, error)
	Create(ctx context.Context, issue *model.Issue) (*model.Issue, error)
	Delete(ctx context.Context, provider model.Provider, repositoryID string, number int) error
	ListByProject(ctx context.Context, projectID int64) ([]model.Issue, error)

	UpdateStatus(ctx context.Context, id int64, status model.IssueStatus) error
	// UpdateStatusIf transitions the status only when it still matches from,
	// returning ErrConflict when another writer got there first.
	UpdateStatusIf(ctx context.Context, id int64, from, to model.IssueStatus) error
	UpdateContent(ctx context.Context, id int64, title, body string, prizes []int) error
	UpdateLabels(ctx context.Context, id int64, labels []string) error
	SetAssignee(ctx context.Context, id int64, assignee *string, assignedAt *time.Time) error
	SetChallenge(ctx context.Context, id int64, challengeID int64, challengeUUID string, status model.IssueStatus) error
}

// ProjectStore defines read access to repository-to-project mappings.
type ProjectStore interface {
	GetByRepository(ctx context.Context, provider model.Provider, repositoryID string) (*model.Project, error)
	GetByID(ctx context.Context, id int64) (*model.Project, error)
}

// UserMappingStore defines read access to git-host-to-Topcoder identity
// mappings.
type UserMappingStore interface {
	GetByGitID(ctx context.Context, provider model.Provider, gitUserID int64) (*model.UserMapping, error)
	GetByGitUsername(ctx context.Context, provider model.Provider, gitUsername string) (*model.UserMapping, error)
}
