package postgres

import (
	"context"
	"errors"

	"bookkeeper-backend/internal/apperr"
	"bookkeeper-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type categoriesRepo struct{ q Querier }

func (r *categoriesRepo) Create(ctx context.Context, c models.Category) (models.Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	err := r.q.QueryRow(ctx, `
INSERT INTO categories (id, workspace_id, name, color, parent_id)
VALUES ($1,$2,$3,$4,$5)
RETURNING id, workspace_id, name, color, parent_id, created_at`,
		c.ID, c.WorkspaceID, c.Name, c.Color, c.ParentID,
	).Scan(&c.ID, &c.WorkspaceID, &c.Name, &c.Color, &c.ParentID, &c.CreatedAt)
	return c, err
}

func (r *categoriesRepo) GetByID(ctx context.Context, id string) (models.Category, error) {
	var c models.Category
	err := r.q.QueryRow(ctx, `
SELECT id, workspace_id, name, color, parent_id, created_at FROM categories WHERE id=$1`, id,
	).Scan(&c.ID, &c.WorkspaceID, &c.Name, &c.Color, &c.ParentID, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Category{}, apperr.NotFoundf("category %s not found", id)
	}
	return c, err
}

func (r *categoriesRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("category %s not found", id)
	}
	return nil
}
