package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"bookkeeper-backend/internal/apperr"
	"bookkeeper-backend/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// rowTables maps the entity types rollback can reconstruct to their tables
// and writable columns. Snapshot keys outside the column set are dropped, so
// diff content can never inject identifiers into the SQL.
type rowTable struct {
	name string
	cols map[string]struct{}
}

func columns(names ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

var rowTables = map[models.EntityType]rowTable{
	models.EntityTransaction: {"transactions", columns(
		"workspace_id", "date", "amount", "currency", "description",
		"category_id", "statement_id", "created_at", "updated_at")},
	models.EntityStatement: {"statements", columns(
		"workspace_id", "file_name", "provider", "status", "rows_count",
		"created_at", "deleted_at")},
	models.EntityCategory: {"categories", columns(
		"workspace_id", "name", "color", "parent_id", "created_at")},
	models.EntityTableRow: {"custom_table_rows", columns(
		"table_id", "position", "cells", "created_at")},
}

type rowsRepo struct {
	q     Querier
	table string
	cols  map[string]struct{}
}

func (r *rowsRepo) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id=$1)`, r.table), id,
	).Scan(&exists)
	return exists, err
}

func (r *rowsRepo) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	cols, vals := r.known(fields)
	if len(cols) == 0 {
		return apperr.Validationf("no recognized columns for %s", r.table)
	}
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s=$%d", c, i+2)
	}
	args := append([]any{id}, vals...)
	tag, err := r.q.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET %s WHERE id=$1`, r.table, strings.Join(sets, ", ")),
		args...,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("%s row %s not found", r.table, id)
	}
	return nil
}

func (r *rowsRepo) InsertRow(ctx context.Context, id string, fields map[string]any) error {
	cols, vals := r.known(fields)
	names := append([]string{"id"}, cols...)
	ph := make([]string, len(names))
	for i := range names {
		ph[i] = fmt.Sprintf("$%d", i+1)
	}
	args := append([]any{id}, vals...)
	_, err := r.q.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
			r.table, strings.Join(names, ", "), strings.Join(ph, ", ")),
		args...,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperr.Conflictf("%s row %s already exists", r.table, id)
	}
	return err
}

func (r *rowsRepo) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.q.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id=$1`, r.table), id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// known filters the snapshot down to this table's columns, in a stable
// order.
func (r *rowsRepo) known(fields map[string]any) ([]string, []any) {
	cols := make([]string, 0, len(fields))
	for k := range fields {
		if k == "id" {
			continue
		}
		if _, ok := r.cols[k]; ok {
			cols = append(cols, k)
		}
	}
	sort.Strings(cols)
	vals := make([]any, len(cols))
	for i, c := range cols {
		vals[i] = fields[c]
	}
	return cols, vals
}
