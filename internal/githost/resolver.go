package githost

import (
	"context"
	"errors"
	"fmt"

	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/model"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/store"
)

// ErrUserNotMapped is returned when a git-host user has no Topcoder account
// mapping. The state machine rolls the triggering action back and asks the
// user to register instead of retrying.
var ErrUserNotMapped = errors.New("user has no platform mapping")

// ErrProjectNotFound is returned for repositories that are not tracked.
var ErrProjectNotFound = errors.New("repository has no project mapping")

// Resolver maps git-host identities to platform accounts and repositories to
// their billing project and copilot.
type Resolver struct {
	users    store.UserMappingStore
	projects store.ProjectStore
}

func NewResolver(users store.UserMappingStore, projects store.ProjectStore) *Resolver {
	return &Resolver{users: users, projects: projects}
}

// ResolveUser returns the Topcoder handle for a git-host user ID.
func (r *Resolver) ResolveUser(ctx context.Context, provider model.Provider, gitUserID int64) (string, error) {
	mapping, err := r.users.GetByGitID(ctx, provider, gitUserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("%w: %s user %d", ErrUserNotMapped, provider, gitUserID)
		}
		return "", fmt.Errorf("resolving user %d: %w", gitUserID, err)
	}
	return mapping.TopcoderHandle, nil
}

// ResolveUserByUsername returns the Topcoder handle for a git-host username.
func (r *Resolver) ResolveUserByUsername(ctx context.Context, provider model.Provider, gitUsername string) (string, error) {
	mapping, err := r.users.GetByGitUsername(ctx, provider, gitUsername)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("%w: %s user %q", ErrUserNotMapped, provider, gitUsername)
		}
		return "", fmt.Errorf("resolving user %q: %w", gitUsername, err)
	}
	return mapping.TopcoderHandle, nil
}

// ResolveProject returns the project record for a repository.
func (r *Resolver) ResolveProject(ctx context.Context, provider model.Provider, repositoryID string) (*model.Project, error) {
	project, err := r.projects.GetByRepository(ctx, provider, repositoryID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s repository %s", ErrProjectNotFound, provider, repositoryID)
		}
		return nil, fmt.Errorf("resolving project for %s: %w", repositoryID, err)
	}
	return project, nil
}
