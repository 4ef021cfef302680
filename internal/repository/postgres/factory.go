package postgres

import (
	"context"

	"bookkeeper-backend/internal/models"
	repo "bookkeeper-backend/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx, so every repo can
// run against the pool or inside a shared transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool // nil when tx-bound
	q    Querier
}

func NewStore(pool *pgxpool.Pool) *Store { return &Store{pool: pool, q: pool} }

func (s *Store) AuditEvents() repo.AuditEvents   { return &auditEventsRepo{q: s.q} }
func (s *Store) Users() repo.Users               { return &usersRepo{q: s.q} }
func (s *Store) Workspaces() repo.Workspaces     { return &workspacesRepo{q: s.q} }
func (s *Store) Transactions() repo.Transactions { return &transactionsRepo{q: s.q} }
func (s *Store) Categories() repo.Categories     { return &categoriesRepo{q: s.q} }
func (s *Store) Statements() repo.Statements     { return &statementsRepo{q: s.q} }

func (s *Store) RowStore(entity models.EntityType) (repo.Rows, bool) {
	t, ok := rowTables[entity]
	if !ok {
		return nil, false
	}
	return &rowsRepo{q: s.q, table: t.name, cols: t.cols}, true
}

// WithTx runs fn on a tx-bound copy of the store. Nested calls reuse the
// surrounding transaction.
func (s *Store) WithTx(ctx context.Context, fn func(repo.Store) error) error {
	if s.pool == nil {
		return fn(s)
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}
	if err := fn(&Store{q: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
