package postgres

import (
	"context"

	"bookkeeper-backend/internal/models"
	"github.com/google/uuid"
)

type workspacesRepo struct{ q Querier }

func (r *workspacesRepo) Create(ctx context.Context, name string) (models.Workspace, error) {
	var w models.Workspace
	err := r.q.QueryRow(ctx,
		`INSERT INTO workspaces(id, name) VALUES($1,$2) RETURNING id, name, created_at`,
		uuid.NewString(), name,
	).Scan(&w.ID, &w.Name, &w.CreatedAt)
	return w, err
}

func (r *workspacesRepo) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM workspaces WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}
