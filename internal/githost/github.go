package githost

import (
	"context"
	"fmt"
	"strings"

	gh "github.com/google/go-github/v68/github"

	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/model"
)

type gitHubClient struct {
	gh *gh.Client
}

func newGitHubClient(token, baseURL string) (Client, error) {
	client := gh.NewClient(nil).WithAuthToken(token)
	if baseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("configuring github enterprise urls: %w", err)
		}
	}
	return &gitHubClient{gh: client}, nil
}

// splitRepo decomposes an "owner/repo" repository ID.
func splitRepo(repositoryID string) (string, string, error) {
	parts := strings.SplitN(repositoryID, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed github repository id %q", repositoryID)
	}
	return parts[0], parts[1], nil
}

func (c *gitHubClient) CreateComment(ctx context.Context, ref IssueRef, text string) error {
	owner, repo, err := splitRepo(ref.RepositoryID)
	if err != nil {
		return wrapErr(model.ProviderGitHub, "create comment", err)
	}
	_, _, err = c.gh.Issues.CreateComment(ctx, owner, repo, ref.Number, &gh.IssueComment{
		Body: gh.Ptr(text),
	})
	return wrapErr(model.ProviderGitHub, "create comment", err)
}

func (c *gitHubClient) UpdateTitle(ctx context.Context, ref IssueRef, title string) error {
	owner, repo, err := splitRepo(ref.RepositoryID)
	if err != nil {
		return wrapErr(model.ProviderGitHub, "update title", err)
	}
	_, _, err = c.gh.Issues.Edit(ctx, owner, repo, ref.Number, &gh.IssueRequest{
		Title: gh.Ptr(title),
	})
	return wrapErr(model.ProviderGitHub, "update title", err)
}

func (c *gitHubClient) Assign(ctx context.Context, ref IssueRef, userID int64) error {
	owner, repo, err := splitRepo(ref.RepositoryID)
	if err != nil {
		return wrapErr(model.ProviderGitHub, "assign", err)
	}
	username, err := c.ResolveUsernameByID(ctx, userID)
	if err != nil {
		return err
	}
	_, _, err = c.gh.Issues.AddAssignees(ctx, owner, repo, ref.Number, []string{username})
	return wrapErr(model.ProviderGitHub, "assign", err)
}

func (c *gitHubClient) Unassign(ctx context.Context, ref IssueRef, userID int64) error {
	owner, repo, err := splitRepo(ref.RepositoryID)
	if err != nil {
		return wrapErr(model.ProviderGitHub, "unassign", err)
	}
	username, err := c.ResolveUsernameByID(ctx, userID)
	if err != nil {
		return err
	}
	_, _, err = c.gh.Issues.RemoveAssignees(ctx, owner, repo, ref.Number, []string{username})
	return wrapErr(model.ProviderGitHub, "unassign", err)
}

func (c *gitHubClient) SetLabels(ctx context.Context, ref IssueRef, labels []string) error {
	owner, repo, err := splitRepo(ref.RepositoryID)
	if err != nil {
		return wrapErr(model.ProviderGitHub, "set labels", err)
	}
	_, _, err = c.gh.Issues.ReplaceLabelsForIssue(ctx, owner, repo, ref.Number, labels)
	return wrapErr(model.ProviderGitHub, "set labels", err)
}

func (c *gitHubClient) SetState(ctx context.Context, ref IssueRef, state IssueState) error {
	owner, repo, err := splitRepo(ref.RepositoryID)
	if err != nil {
		return wrapErr(model.ProviderGitHub, "set state", err)
	}
	_, _, err = c.gh.Issues.Edit(ctx, owner, repo, ref.Number, &gh.IssueRequest{
		State: gh.Ptr(string(state)),
	})
	return wrapErr(model.ProviderGitHub, "set state", err)
}

func (c *gitHubClient) ResolveUsernameByID(ctx context.Context, userID int64) (string, error) {
	user, _, err := c.gh.Users.GetByID(ctx, userID)
	if err != nil {
		return "", wrapErr(model.ProviderGitHub, "resolve username", err)
	}
	return user.GetLogin(), nil
}

func (c *gitHubClient) ResolveIDByUsername(ctx context.Context, username string) (int64, error) {
	user, _, err := c.gh.Users.Get(ctx, username)
	if err != nil {
		return 0, wrapErr(model.ProviderGitHub, "resolve user id", err)
	}
	return user.GetID(), nil
}
