package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/model"
)

type userMappingStore struct {
	db DBTX
}

func newUserMappingStore(db DBTX) UserMappingStore {
	return &userMappingStore{db: db}
}

const userMappingColumns = `id, provider, git_user_id, git_username, topcoder_handle, created_at, updated_at`

func (s *userMappingStore) GetByGitID(ctx context.Context, provider model.Provider, gitUserID int64) (*model.UserMapping, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+userMappingColumns+`
		FROM user_mappings
		WHERE provider = $1 AND git_user_id = $2`,
		string(provider), gitUserID)
	return scanUserMapping(row)
}

func (s *userMappingStore) GetByGitUsername(ctx context.Context, provider model.Provider, gitUsername string) (*model.UserMapping, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+userMappingColumns+`
		FROM user_mappings
		WHERE provider = $1 AND git_username = $2`,
		string(provider), gitUsername)
	return scanUserMapping(row)
}

func scanUserMapping(row pgx.Row) (*model.UserMapping, error) {
	var (
		mapping  model.UserMapping
		provider string
	)

	err := row.Scan(
		&mapping.ID, &provider, &mapping.GitUserID, &mapping.GitUsername,
		&mapping.TopcoderHandle, &mapping.CreatedAt, &mapping.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	mapping.Provider = model.Provider(provider)
	return &mapping, nil
}
