// Package githost abstracts the issue-tracker side of the sync: comments,
// labels, assignment and state changes on GitHub or GitLab. One adapter per
// provider implements the Client capability; transitions never branch on the
// provider string themselves.
package githost

import (
	"context"
	"errors"
	"fmt"

	"github.com/topcoder-platform/topcoder-x-processor-sub000/core/config"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/model"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/store"
)

// IssueRef addresses one issue on a git host. RepositoryID is
// host-specific: "owner/repo" for GitHub, the numeric project ID rendered as
// a string for GitLab.
type IssueRef struct {
	Provider     model.Provider
	RepositoryID string
	Number       int
}

type IssueState string

const (
	IssueStateOpen   IssueState = "open"
	IssueStateClosed IssueState = "closed"
)

// Client is the per-provider capability used by the state machine. All
// operations authenticate with the repository's copilot credential.
type Client interface {
	CreateComment(ctx context.Context, ref IssueRef, text string) error
	UpdateTitle(ctx context.Context, ref IssueRef, title string) error
	Assign(ctx context.Context, ref IssueRef, userID int64) error
	Unassign(ctx context.Context, ref IssueRef, userID int64) error
	SetLabels(ctx context.Context, ref IssueRef, labels []string) error
	SetState(ctx context.Context, ref IssueRef, state IssueState) error
	ResolveUsernameByID(ctx context.Context, userID int64) (string, error)
	ResolveIDByUsername(ctx context.Context, username string) (int64, error)
}

// Error marks a failure on the git host side. Git host errors are surfaced
// to the caller but never retried by the processor.
type Error struct {
	Provider model.Provider
	Op       string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapErr(provider model.Provider, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Provider: provider, Op: op, Err: err}
}

// Factory builds the provider adapter for a repository, selected once per
// event.
type Factory interface {
	ClientFor(ctx context.Context, provider model.Provider, repositoryID string) (Client, error)
}

type factory struct {
	projects store.ProjectStore
	github   config.GitHubConfig
	gitlab   config.GitLabConfig
}

func NewFactory(projects store.ProjectStore, github config.GitHubConfig, gitlab config.GitLabConfig) Factory {
	return &factory{
		projects: projects,
		github:   github,
		gitlab:   gitlab,
	}
}

func (f *factory) ClientFor(ctx context.Context, provider model.Provider, repositoryID string) (Client, error) {
	token, err := f.copilotToken(ctx, provider, repositoryID)
	if err != nil {
		return nil, err
	}

	switch provider {
	case model.ProviderGitHub:
		return newGitHubClient(token, f.github.BaseURL)
	case model.ProviderGitLab:
		return newGitLabClient(token, f.gitlab.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
}

// copilotToken prefers the per-repository credential stored on the project
// record and falls back to the process-wide token.
func (f *factory) copilotToken(ctx context.Context, provider model.Provider, repositoryID string) (string, error) {
	project, err := f.projects.GetByRepository(ctx, provider, repositoryID)
	if err == nil && project.AccessToken != "" {
		return project.AccessToken, nil
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("fetching project credential: %w", err)
	}

	switch provider {
	case model.ProviderGitHub:
		return f.github.Token, nil
	case model.ProviderGitLab:
		return f.gitlab.Token, nil
	default:
		return "", fmt.Errorf("unsupported provider %q", provider)
	}
}
