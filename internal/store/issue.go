package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/model"
)

type issueStore struct {
	db DBTX
}

func newIssueStore(db DBTX) IssueStore {
	return &issueStore{db: db}
}

const issueColumns = `id, provider, repository_id, number, title, body, prizes, labels,
	assignee, assigned_at, challenge_id, challenge_uuid, project_id, status, created_at, updated_at`

func (s *issueStore) FindOne(ctx context.Context, provider model.Provider, repositoryID string, number int) (*model.Issue, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+issueColumns+`
		FROM issues
		WHERE provider = $1 AND repository_id = $2 AND number = $3`,
		string(provider), repositoryID, number)
	return scanIssue(row)
}

func (s *issueStore) Create(ctx context.Context, issue *model.Issue) (*model.Issue, error) {
	prizesJSON, err := json.Marshal(issue.Prizes)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO issues (id, provider, repository_id, number, title, body, prizes, labels,
			assignee, assigned_at, challenge_id, challenge_uuid, project_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now(), now())
		RETURNING `+issueColumns,
		issue.ID, string(issue.Provider), issue.RepositoryID, issue.Number,
		issue.Title, issue.Body, prizesJSON, issue.Labels,
		issue.Assignee, issue.AssignedAt, issue.ChallengeID, issue.ChallengeUUID,
		issue.ProjectID, string(issue.Status))

	created, err := scanIssue(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return created, nil
}

func (s *issueStore) Delete(ctx context.Context, provider model.Provider, repositoryID string, number int) error {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM issues
		WHERE provider = $1 AND repository_id = $2 AND number = $3`,
		string(provider), repositoryID, number)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *issueStore) ListByProject(ctx context.Context, projectID int64) ([]model.Issue, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+issueColumns+`
		FROM issues
		WHERE project_id = $1
		ORDER BY updated_at DESC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var issues []model.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		issues = append(issues, *issue)
	}
	return issues, rows.Err()
}

func (s *issueStore) UpdateStatus(ctx context.Context, id int64, status model.IssueStatus) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE issues SET status = $2, updated_at = now() WHERE id = $1`,
		id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *issueStore) UpdateStatusIf(ctx context.Context, id int64, from, to model.IssueStatus) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE issues SET status = $3, updated_at = now() WHERE id = $1 AND status = $2`,
		id, string(from), string(to))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func (s *issueStore) UpdateContent(ctx context.Context, id int64, title, body string, prizes []int) error {
	prizesJSON, err := json.Marshal(prizes)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE issues SET title = $2, body = $3, prizes = $4, updated_at = now() WHERE id = $1`,
		id, title, body, prizesJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *issueStore) UpdateLabels(ctx context.Context, id int64, labels []string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE issues SET labels = $2, updated_at = now() WHERE id = $1`,
		id, labels)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *issueStore) SetAssignee(ctx context.Context, id int64, assignee *string, assignedAt *time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE issues SET assignee = $2, assigned_at = $3, updated_at = now() WHERE id = $1`,
		id, assignee, assignedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *issueStore) SetChallenge(ctx context.Context, id int64, challengeID int64, challengeUUID string, status model.IssueStatus) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE issues SET challenge_id = $2, challenge_uuid = $3, status = $4, updated_at = now() WHERE id = $1`,
		id, challengeID, challengeUUID, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanIssue(row pgx.Row) (*model.Issue, error) {
	var (
		issue      model.Issue
		provider   string
		status     string
		prizesJSON []byte
	)

	err := row.Scan(
		&issue.ID, &provider, &issue.RepositoryID, &issue.Number,
		&issue.Title, &issue.Body, &prizesJSON, &issue.Labels,
		&issue.Assignee, &issue.AssignedAt, &issue.ChallengeID, &issue.ChallengeUUID,
		&issue.ProjectID, &status, &issue.CreatedAt, &issue.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if len(prizesJSON) > 0 {
		if err := json.Unmarshal(prizesJSON, &issue.Prizes); err != nil {
			return nil, err
		}
	}

	issue.Provider = model.Provider(provider)
	issue.Status = model.IssueStatus(status)
	return &issue, nil
}
