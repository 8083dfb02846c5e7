/*
store.go - Persistence interfaces for the training domain

PURPOSE:
  Defines the read side every report consumes and the write side the
  scheduler, scenarios and seed command use. Every call is tenant-scoped:
  implementations MUST filter by the tenant id they are given and MUST skip
  soft-deleted rows, so no report can ever see another tenant's data.

STREAMING:
  StreamAssignments calls fn once per row instead of returning a slice.
  Aggregations over a large tenant only keep counters in memory. Returning
  an error from fn stops the iteration and is returned unchanged.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite (sqlx)
  - store/memory: In-memory, for tests

SEE ALSO:
  - status.go: What the reports do with the rows
  - reports/service.go: The consumer
*/
package training

import (
	"context"
	"time"

	"github.com/warp/compliance-engine/generic"
)

// =============================================================================
// FILTERS
// =============================================================================

// EmployeeFilter scopes the employee population. Deleted employees are never
// returned; inactive ones only with IncludeInactive.
type EmployeeFilter struct {
	SiteID          *generic.SiteID
	EmployeeIDs     []generic.EmployeeID // nil = all; empty non-nil = none
	IncludeInactive bool
}

// AssignmentFilter scopes assignment rows. Rows of deleted employees and of
// deleted learning items are always excluded. Rows of inactive employees are
// excluded only when SiteID or EmployeeIDs narrows the employee scope.
type AssignmentFilter struct {
	RequiredDate     generic.DateRange
	SiteID           *generic.SiteID
	EmployeeIDs      []generic.EmployeeID
	LearningItemID   *generic.LearningItemID
	Category         *string
	Statuses         []Status // nil = all
	IncludeCancelled bool
}

// CompletionFilter scopes completion rows joined through their assignment.
type CompletionFilter struct {
	CompletedAt    generic.DateRange
	SiteID         *generic.SiteID
	EmployeeIDs    []generic.EmployeeID
	LearningItemID *generic.LearningItemID
}

// AssignmentRow is an assignment with its completion (if any) attached.
type AssignmentRow struct {
	Assignment Assignment
	Completion *Completion
}

// CompletionRow is a completion with its assignment attached.
type CompletionRow struct {
	Assignment Assignment
	Completion Completion
}

// =============================================================================
// STORE
// =============================================================================

// Reader is everything the reports need.
type Reader interface {
	ListSites(ctx context.Context, tenant generic.TenantID) ([]Site, error)
	ListEmployees(ctx context.Context, tenant generic.TenantID, filter EmployeeFilter) ([]Employee, error)
	GetEmployee(ctx context.Context, tenant generic.TenantID, id generic.EmployeeID) (*Employee, error)
	ListLearningItems(ctx context.Context, tenant generic.TenantID, ids []generic.LearningItemID) ([]LearningItem, error)
	GetLearningItem(ctx context.Context, tenant generic.TenantID, id generic.LearningItemID) (*LearningItem, error)
	StreamAssignments(ctx context.Context, tenant generic.TenantID, filter AssignmentFilter, fn func(AssignmentRow) error) error

	// ListCompletions returns one page sorted by completedAt desc, plus the
	// total number of matching rows.
	ListCompletions(ctx context.Context, tenant generic.TenantID, filter CompletionFilter, page generic.PageRequest) ([]CompletionRow, int, error)
}

// Writer mutates assignment state. Reports never use it.
type Writer interface {
	SaveSite(ctx context.Context, s Site) error
	SaveEmployee(ctx context.Context, e Employee) error
	SaveLearningItem(ctx context.Context, item LearningItem) error
	SaveAssignment(ctx context.Context, a Assignment) error

	// StartAssignment moves a pending/overdue row to in progress.
	StartAssignment(ctx context.Context, tenant generic.TenantID, id generic.AssignmentID, at *GeoPoint) error

	// CompleteAssignment sets status completed and inserts the completion in
	// one transaction. A second completion for the same row fails with
	// generic.ErrDuplicate.
	CompleteAssignment(ctx context.Context, tenant generic.TenantID, c Completion) error

	CancelAssignment(ctx context.Context, tenant generic.TenantID, id generic.AssignmentID) error
	MarkOverdue(ctx context.Context, tenant generic.TenantID, ids []generic.AssignmentID) (int, error)
	RecordReminder(ctx context.Context, tenant generic.TenantID, id generic.AssignmentID, at time.Time) error
}

// Store is the full training persistence surface.
type Store interface {
	Reader
	Writer
	ListTenants(ctx context.Context) ([]generic.TenantID, error)
}
