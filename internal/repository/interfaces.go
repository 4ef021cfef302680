package repository

import (
	"context"
	"time"

	"bookkeeper-backend/internal/models"
)

// EventFilter narrows an audit event query. Nil fields are not applied; set
// fields combine with AND.
type EventFilter struct {
	WorkspaceID *string
	EntityType  *models.EntityType
	EntityID    *string
	ActorType   *models.ActorType
	ActorID     *string
	BatchID     *string
	Severity    *models.Severity
	DateFrom    *time.Time // inclusive
	DateTo      *time.Time // inclusive
	Page        int
	Limit       int
}

type EventPage struct {
	Data  []models.AuditEvent `json:"data"`
	Total int                 `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
}

type AuditEvents interface {
	Insert(ctx context.Context, e models.AuditEvent) (models.AuditEvent, error)
	Query(ctx context.Context, f EventFilter) (EventPage, error)
	GetByID(ctx context.Context, id string) (models.AuditEvent, error)
	ListByEntity(ctx context.Context, entityType models.EntityType, entityID string, workspaceID *string) ([]models.AuditEvent, error)
	ListByBatch(ctx context.Context, batchID string, workspaceID *string) ([]models.AuditEvent, error)
}

type Users interface {
	Create(ctx context.Context, username, email, passwordHash, role string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
}

type Workspaces interface {
	Create(ctx context.Context, name string) (models.Workspace, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// Rows is the uniform surface rollback handlers mutate a domain table
// through. Field keys are column names coming from diff snapshots;
// implementations must drop keys outside the table's column set.
type Rows interface {
	Exists(ctx context.Context, id string) (bool, error)
	// UpdateFields patches only the given columns on one row.
	UpdateFields(ctx context.Context, id string, fields map[string]any) error
	// InsertRow recreates a row under its original id from a full snapshot.
	InsertRow(ctx context.Context, id string, fields map[string]any) error
	// Delete removes the row and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)
}

type Transactions interface {
	Create(ctx context.Context, t models.Transaction) (models.Transaction, error)
	GetByID(ctx context.Context, id string) (models.Transaction, error)
	ListByWorkspace(ctx context.Context, workspaceID string, limit, offset int) ([]models.Transaction, error)
	Update(ctx context.Context, t models.Transaction) error
	Delete(ctx context.Context, id string) error
}

type Categories interface {
	Create(ctx context.Context, c models.Category) (models.Category, error)
	GetByID(ctx context.Context, id string) (models.Category, error)
	Delete(ctx context.Context, id string) error
}

type Statements interface {
	Create(ctx context.Context, s models.Statement) (models.Statement, error)
	GetByID(ctx context.Context, id string) (models.Statement, error)
	UpdateStatus(ctx context.Context, id string, status models.StatementStatus, rowsCount int) error
}

// Store bundles the repositories behind one handle so a unit of work can be
// re-bound to a single database transaction (see WithTx).
type Store interface {
	AuditEvents() AuditEvents
	Users() Users
	Workspaces() Workspaces
	Transactions() Transactions
	Categories() Categories
	Statements() Statements
	// RowStore returns the rollback row store for an entity type, or false
	// when the entity has no reconstructible table.
	RowStore(entity models.EntityType) (Rows, bool)
	// WithTx runs fn against a Store whose repositories share one
	// serializable transaction; fn returning an error rolls everything back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
