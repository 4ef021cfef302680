package postgres

import (
	"context"
	"errors"

	"bookkeeper-backend/internal/apperr"
	"bookkeeper-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type transactionsRepo struct{ q Querier }

func (r *transactionsRepo) Create(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	err := r.q.QueryRow(ctx, `
INSERT INTO transactions (id, workspace_id, date, amount, currency, description, category_id, statement_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING id, workspace_id, date, amount, currency, description, category_id, statement_id, created_at, updated_at`,
		t.ID, t.WorkspaceID, t.Date, t.Amount, t.Currency, t.Description, t.CategoryID, t.StatementID,
	).Scan(&t.ID, &t.WorkspaceID, &t.Date, &t.Amount, &t.Currency, &t.Description,
		&t.CategoryID, &t.StatementID, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (r *transactionsRepo) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	var t models.Transaction
	err := r.q.QueryRow(ctx, `
SELECT id, workspace_id, date, amount, currency, description, category_id, statement_id, created_at, updated_at
  FROM transactions WHERE id=$1`, id,
	).Scan(&t.ID, &t.WorkspaceID, &t.Date, &t.Amount, &t.Currency, &t.Description,
		&t.CategoryID, &t.StatementID, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Transaction{}, apperr.NotFoundf("transaction %s not found", id)
	}
	return t, err
}

func (r *transactionsRepo) ListByWorkspace(ctx context.Context, workspaceID string, limit, offset int) ([]models.Transaction, error) {
	rows, err := r.q.Query(ctx, `
SELECT id, workspace_id, date, amount, currency, description, category_id, statement_id, created_at, updated_at
  FROM transactions
 WHERE workspace_id=$1
 ORDER BY date DESC
 LIMIT $2 OFFSET $3`,
		workspaceID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.WorkspaceID, &t.Date, &t.Amount, &t.Currency, &t.Description,
			&t.CategoryID, &t.StatementID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *transactionsRepo) Update(ctx context.Context, t models.Transaction) error {
	tag, err := r.q.Exec(ctx, `
UPDATE transactions
   SET date=$2, amount=$3, currency=$4, description=$5, category_id=$6, updated_at=now()
 WHERE id=$1`,
		t.ID, t.Date, t.Amount, t.Currency, t.Description, t.CategoryID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("transaction %s not found", t.ID)
	}
	return nil
}

func (r *transactionsRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM transactions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("transaction %s not found", id)
	}
	return nil
}
