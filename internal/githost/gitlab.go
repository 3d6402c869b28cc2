package githost

import (
	"context"
	"fmt"
	"strings"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/model"
)

type gitLabClient struct {
	gl *gitlab.Client
}

func newGitLabClient(token, baseURL string) (Client, error) {
	var (
		client *gitlab.Client
		err    error
	)
	if baseURL == "" {
		client, err = gitlab.NewClient(token)
	} else {
		apiURL := strings.TrimSuffix(baseURL, "/") + "/api/v4"
		client, err = gitlab.NewClient(token, gitlab.WithBaseURL(apiURL))
	}
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}
	return &gitLabClient{gl: client}, nil
}

func (c *gitLabClient) CreateComment(ctx context.Context, ref IssueRef, text string) error {
	_, _, err := c.gl.Notes.CreateIssueNote(ref.RepositoryID, int64(ref.Number), &gitlab.CreateIssueNoteOptions{
		Body: gitlab.Ptr(text),
	}, gitlab.WithContext(ctx))
	return wrapErr(model.ProviderGitLab, "create comment", err)
}

func (c *gitLabClient) UpdateTitle(ctx context.Context, ref IssueRef, title string) error {
	_, _, err := c.gl.Issues.UpdateIssue(ref.RepositoryID, int64(ref.Number), &gitlab.UpdateIssueOptions{
		Title: gitlab.Ptr(title),
	}, gitlab.WithContext(ctx))
	return wrapErr(model.ProviderGitLab, "update title", err)
}

func (c *gitLabClient) Assign(ctx context.Context, ref IssueRef, userID int64) error {
	_, _, err := c.gl.Issues.UpdateIssue(ref.RepositoryID, int64(ref.Number), &gitlab.UpdateIssueOptions{
		AssigneeIDs: &[]int64{userID},
	}, gitlab.WithContext(ctx))
	return wrapErr(model.ProviderGitLab, "assign", err)
}

func (c *gitLabClient) Unassign(ctx context.Context, ref IssueRef, _ int64) error {
	// GitLab clears assignment by replacing the assignee list.
	_, _, err := c.gl.Issues.UpdateIssue(ref.RepositoryID, int64(ref.Number), &gitlab.UpdateIssueOptions{
		AssigneeIDs: &[]int64{},
	}, gitlab.WithContext(ctx))
	return wrapErr(model.ProviderGitLab, "unassign", err)
}

func (c *gitLabClient) SetLabels(ctx context.Context, ref IssueRef, labels []string) error {
	labelOpts := gitlab.LabelOptions(labels)
	_, _, err := c.gl.Issues.UpdateIssue(ref.RepositoryID, int64(ref.Number), &gitlab.UpdateIssueOptions{
		Labels: &labelOpts,
	}, gitlab.WithContext(ctx))
	return wrapErr(model.ProviderGitLab, "set labels", err)
}

func (c *gitLabClient) SetState(ctx context.Context, ref IssueRef, state IssueState) error {
	stateEvent := "reopen"
	if state == IssueStateClosed {
		stateEvent = "close"
	}
	_, _, err := c.gl.Issues.UpdateIssue(ref.RepositoryID, int64(ref.Number), &gitlab.UpdateIssueOptions{
		StateEvent: gitlab.Ptr(stateEvent),
	}, gitlab.WithContext(ctx))
	return wrapErr(model.ProviderGitLab, "set state", err)
}

func (c *gitLabClient) ResolveUsernameByID(ctx context.Context, userID int64) (string, error) {
	user, _, err := c.gl.Users.GetUser(userID, gitlab.GetUsersOptions{}, gitlab.WithContext(ctx))
	if err != nil {
		return "", wrapErr(model.ProviderGitLab, "resolve username", err)
	}
	return user.Username, nil
}

func (c *gitLabClient) ResolveIDByUsername(ctx context.Context, username string) (int64, error) {
	users, _, err := c.gl.Users.ListUsers(&gitlab.ListUsersOptions{
		Username: gitlab.Ptr(username),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return 0, wrapErr(model.ProviderGitLab, "resolve user id", err)
	}
	if len(users) == 0 {
		return 0, wrapErr(model.ProviderGitLab, "resolve user id", fmt.Errorf("no user named %q", username))
	}
	return int64(users[0].ID), nil
}
