package models

import "time"

// Bookkeeping rows the rollback engine reconstructs. Only the columns the
// audit trail tracks live here; the full entities belong to their own
// services.

type Transaction struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	Date        time.Time `json:"date"`
	Amount      int64     `json:"amount"` // minor units
	Currency    string    `json:"currency"`
	Description string    `json:"description"`
	CategoryID  *string   `json:"category_id,omitempty"`
	StatementID *string   `json:"statement_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type StatementStatus string

const (
	StatementPending  StatementStatus = "pending"
	StatementParsed   StatementStatus = "parsed"
	StatementImported StatementStatus = "imported"
	StatementFailed   StatementStatus = "failed"
)

type Statement struct {
	ID          string          `json:"id"`
	WorkspaceID string          `json:"workspace_id"`
	FileName    string          `json:"file_name"`
	Provider    string          `json:"provider"`
	Status      StatementStatus `json:"status"`
	RowsCount   int             `json:"rows_count"`
	CreatedAt   time.Time       `json:"created_at"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty"` // soft delete
}

type Category struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	ParentID    *string   `json:"parent_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CustomTableRow cells are schemaless by design; the column set is defined
// per custom table at runtime.
type CustomTableRow struct {
	ID        string         `json:"id"`
	TableID   string         `json:"table_id"`
	Position  int            `json:"position"`
	Cells     map[string]any `json:"cells"`
	CreatedAt time.Time      `json:"created_at"`
}

type Workspace struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
