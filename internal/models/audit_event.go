package models

import "time"

type ActorType string

const (
	ActorUser        ActorType = "user"
	ActorSystem      ActorType = "system"
	ActorIntegration ActorType = "integration"
)

type EntityType string

const (
	EntityTransaction       EntityType = "transaction"
	EntityStatement         EntityType = "statement"
	EntityReceipt           EntityType = "receipt"
	EntityCategory          EntityType = "category"
	EntityRule              EntityType = "rule"
	EntityWorkspace         EntityType = "workspace"
	EntityIntegration       EntityType = "integration"
	EntityTableRow          EntityType = "table_row"
	EntityTableCell         EntityType = "table_cell"
	EntityBranch            EntityType = "branch"
	EntityWallet            EntityType = "wallet"
	EntityCustomTable       EntityType = "custom_table"
	EntityCustomTableColumn EntityType = "custom_table_column"
)

type AuditAction string

const (
	ActionCreate    AuditAction = "create"
	ActionUpdate    AuditAction = "update"
	ActionDelete    AuditAction = "delete"
	ActionImport    AuditAction = "import"
	ActionLink      AuditAction = "link"
	ActionUnlink    AuditAction = "unlink"
	ActionMatch     AuditAction = "match"
	ActionUnmatch   AuditAction = "unmatch"
	ActionApplyRule AuditAction = "apply_rule"
	ActionRollback  AuditAction = "rollback"
	ActionExport    AuditAction = "export"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarn     Severity = "warn"
	SeverityCritical Severity = "critical"
)

// Diff carries the before/after snapshots attached to an event. A nil map on
// either side means "no state" (e.g. before is nil for a create). Patch-op
// lists may also arrive under the diff column; they are kept verbatim in Ops
// and never interpreted by rollback.
type Diff struct {
	Before map[string]any `json:"before,omitempty"`
	After  map[string]any `json:"after,omitempty"`
	Ops    []PatchOp      `json:"ops,omitempty"`
}

type PatchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
	From  string `json:"from,omitempty"`
}

// HasSnapshots reports whether the diff is in the before/after form rollback
// understands.
func (d *Diff) HasSnapshots() bool {
	return d != nil && (d.Before != nil || d.After != nil)
}

// Meta keys with reserved meaning across the system. Everything else in the
// bag is action-specific context.
const (
	MetaRollbackOf     = "rollbackOf"
	MetaOriginalAction = "originalAction"
	MetaRuleID         = "ruleId"
	MetaSource         = "source"
)

// AuditEvent is one immutable record of a mutation. Written once, never
// updated; a rollback references the original through meta[rollbackOf]
// instead of touching it.
type AuditEvent struct {
	ID          string         `json:"id"`
	WorkspaceID *string        `json:"workspace_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	ActorType   ActorType      `json:"actor_type"`
	ActorID     *string        `json:"actor_id,omitempty"`
	ActorLabel  string         `json:"actor_label"`
	EntityType  EntityType     `json:"entity_type"`
	EntityID    string         `json:"entity_id"`
	Action      AuditAction    `json:"action"`
	Diff        *Diff          `json:"diff,omitempty"`
	Meta        map[string]any `json:"meta,omitempty"`
	BatchID     *string        `json:"batch_id,omitempty"`
	Severity    Severity       `json:"severity"`
	IsUndoable  bool           `json:"is_undoable"`
}

var validEntityTypes = map[EntityType]struct{}{
	EntityTransaction: {}, EntityStatement: {}, EntityReceipt: {},
	EntityCategory: {}, EntityRule: {}, EntityWorkspace: {},
	EntityIntegration: {}, EntityTableRow: {}, EntityTableCell: {},
	EntityBranch: {}, EntityWallet: {}, EntityCustomTable: {},
	EntityCustomTableColumn: {},
}

var validActions = map[AuditAction]struct{}{
	ActionCreate: {}, ActionUpdate: {}, ActionDelete: {}, ActionImport: {},
	ActionLink: {}, ActionUnlink: {}, ActionMatch: {}, ActionUnmatch: {},
	ActionApplyRule: {}, ActionRollback: {}, ActionExport: {},
}

func (t EntityType) Valid() bool { _, ok := validEntityTypes[t]; return ok }
func (a AuditAction) Valid() bool { _, ok := validActions[a]; return ok }

func (t ActorType) Valid() bool {
	return t == ActorUser || t == ActorSystem || t == ActorIntegration
}

func (s Severity) Valid() bool {
	return s == SeverityInfo || s == SeverityWarn || s == SeverityCritical
}

// DefaultUndoable is the fallback consulted when the emitting service does
// not say whether an event can be reversed. Rollback events never are; row
// creation is only mechanically reversible for custom table rows/cells.
func DefaultUndoable(action AuditAction, entity EntityType) bool {
	switch action {
	case ActionRollback:
		return false
	case ActionUpdate, ActionDelete:
		return true
	case ActionCreate:
		return entity == EntityTableRow || entity == EntityTableCell
	default:
		return false
	}
}
