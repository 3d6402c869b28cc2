package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgxpool.Pool and pgx.Tx the stores need, so the same
// store implementations work inside and outside transactions.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Stores bundles the typed stores over a shared connection.
type Stores struct {
	issues       IssueStore
	projects     ProjectStore
	userMappings UserMappingStore
}

func NewStores(db DBTX) *Stores {
	return &Stores{
		issues:       newIssueStore(db),
		projects:     newProjectStore(db),
		userMappings: newUserMappingStore(db),
	}
}

func (s *Stores) Issues() IssueStore             { return s.issues }
func (s *Stores) Projects() ProjectStore         { return s.projects }
func (s *Stores) UserMappings() UserMappingStore { return s.userMappings }

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
