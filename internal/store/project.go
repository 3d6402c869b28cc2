package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/model"
)

type projectStore struct {
	db DBTX
}

func newProjectStore(db DBTX) ProjectStore {
	return &projectStore{db: db}
}

const projectColumns = `id, provider, repository_id, repo_url, topcoder_project_id,
	copilot_handle, tags, access_token, created_at, updated_at`

func (s *projectStore) GetByRepository(ctx context.Context, provider model.Provider, repositoryID string) (*model.Project, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE provider = $1 AND repository_id = $2`,
		string(provider), repositoryID)
	return scanProject(row)
}

func (s *projectStore) GetByID(ctx context.Context, id int64) (*model.Project, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE id = $1`, id)
	return scanProject(row)
}

func scanProject(row pgx.Row) (*model.Project, error) {
	var (
		project  model.Project
		provider string
	)

	err := row.Scan(
		&project.ID, &provider, &project.RepositoryID, &project.RepoURL,
		&project.TopcoderProjectID, &project.CopilotHandle, &project.Tags,
		&project.AccessToken, &project.CreatedAt, &project.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	project.Provider = model.Provider(provider)
	return &project, nil
}
