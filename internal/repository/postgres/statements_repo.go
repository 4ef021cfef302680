package postgres

import (
	"context"
	"errors"

	"bookkeeper-backend/internal/apperr"
	"bookkeeper-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type statementsRepo struct{ q Querier }

func (r *statementsRepo) Create(ctx context.Context, s models.Statement) (models.Statement, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = models.StatementPending
	}
	err := r.q.QueryRow(ctx, `
INSERT INTO statements (id, workspace_id, file_name, provider, status, rows_count)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id, workspace_id, file_name, provider, status, rows_count, created_at, deleted_at`,
		s.ID, s.WorkspaceID, s.FileName, s.Provider, s.Status, s.RowsCount,
	).Scan(&s.ID, &s.WorkspaceID, &s.FileName, &s.Provider, &s.Status, &s.RowsCount, &s.CreatedAt, &s.DeletedAt)
	return s, err
}

func (r *statementsRepo) GetByID(ctx context.Context, id string) (models.Statement, error) {
	var s models.Statement
	err := r.q.QueryRow(ctx, `
SELECT id, workspace_id, file_name, provider, status, rows_count, created_at, deleted_at
  FROM statements WHERE id=$1 AND deleted_at IS NULL`, id,
	).Scan(&s.ID, &s.WorkspaceID, &s.FileName, &s.Provider, &s.Status, &s.RowsCount, &s.CreatedAt, &s.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Statement{}, apperr.NotFoundf("statement %s not found", id)
	}
	return s, err
}

func (r *statementsRepo) UpdateStatus(ctx context.Context, id string, status models.StatementStatus, rowsCount int) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE statements SET status=$2, rows_count=$3 WHERE id=$1 AND deleted_at IS NULL`,
		id, status, rowsCount,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("statement %s not found", id)
	}
	return nil
}
