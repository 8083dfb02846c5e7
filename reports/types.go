package reports

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/compliance-engine/generic"
	"github.com/warp/compliance-engine/training"
)

// =============================================================================
// FILTERS
// =============================================================================

// ComplianceFilter scopes the compliance report. DateFrom/DateTo bound the
// assignment required date. EmployeeIDs == nil means no restriction; an
// empty non-nil slice matches nobody ("my team" with no members).
type ComplianceFilter struct {
	DateFrom    *time.Time
	DateTo      *time.Time
	SiteID      *generic.SiteID
	EmployeeIDs []generic.EmployeeID
}

func (f ComplianceFilter) dateRange() generic.DateRange {
	return generic.DateRange{From: f.DateFrom, To: f.DateTo}
}

// ExtractFilter scopes the overdue and completion lists. For the overdue
// list the dates bound the required date, for completions the completion time.
type ExtractFilter struct {
	DateFrom       *time.Time
	DateTo         *time.Time
	SiteID         *generic.SiteID
	LearningItemID *generic.LearningItemID
	EmployeeIDs    []generic.EmployeeID
}

func (f ExtractFilter) dateRange() generic.DateRange {
	return generic.DateRange{From: f.DateFrom, To: f.DateTo}
}

// MatrixFilter scopes the skills matrix. A nil EmployeeIDs selects the
// administrative view (whole active workforce as rows).
type MatrixFilter struct {
	EmployeeIDs []generic.EmployeeID
	Category    *string
}

// =============================================================================
// COMPLIANCE REPORT
// =============================================================================

type ComplianceReport struct {
	TenantID             generic.TenantID   `json:"tenant_id"`
	GeneratedAt          time.Time          `json:"generated_at"`
	DateFrom             *time.Time         `json:"date_from,omitempty"`
	DateTo               *time.Time         `json:"date_to,omitempty"`
	TotalEmployees       int                `json:"total_employees"`
	AssignedCount        int                `json:"assigned_count"`
	CompletedCount       int                `json:"completed_count"`
	OverdueCount         int                `json:"overdue_count"`
	PendingCount         int                `json:"pending_count"`
	InProgressCount      int                `json:"in_progress_count"`
	CompliancePercentage decimal.Decimal    `json:"compliance_percentage"`
	BySite               []SiteCompliance   `json:"by_site"`
	ByLearningItem       []ItemCompliance   `json:"by_learning_item"`
}

type SiteCompliance struct {
	SiteID               generic.SiteID  `json:"site_id"`
	SiteName             string          `json:"site_name"`
	EmployeeCount        int             `json:"employee_count"`
	AssignedCount        int             `json:"assigned_count"`
	CompletedCount       int             `json:"completed_count"`
	OverdueCount         int             `json:"overdue_count"`
	PendingCount         int             `json:"pending_count"`
	InProgressCount      int             `json:"in_progress_count"`
	CompliancePercentage decimal.Decimal `json:"compliance_percentage"`
}

type ItemCompliance struct {
	LearningItemID       generic.LearningItemID `json:"learning_item_id"`
	Code                 string                 `json:"code"`
	Title                string                 `json:"title"`
	Category             string                 `json:"category"`
	AssignedCount        int                    `json:"assigned_count"`
	CompletedCount       int                    `json:"completed_count"`
	OverdueCount         int                    `json:"overdue_count"`
	PendingCount         int                    `json:"pending_count"`
	InProgressCount      int                    `json:"in_progress_count"`
	CompliancePercentage decimal.Decimal        `json:"compliance_percentage"`

	// Quiz metrics cover completions with a usable score only; nil when
	// no completion qualifies.
	AverageQuizScore *decimal.Decimal `json:"average_quiz_score"`
	QuizPassRate     *decimal.Decimal `json:"quiz_pass_rate"`
}

// =============================================================================
// OVERDUE LIST
// =============================================================================

type OverdueList struct {
	TenantID    generic.TenantID `json:"tenant_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Count       int              `json:"count"`
	Rows        []OverdueRow     `json:"rows"`
}

// OverdueRow is one overdue assignment. An employee overdue on several items
// appears once per item.
type OverdueRow struct {
	AssignmentID   generic.AssignmentID   `json:"assignment_id"`
	EmployeeID     generic.EmployeeID     `json:"employee_id"`
	EmployeeCode   string                 `json:"employee_code"`
	EmployeeName   string                 `json:"employee_name"`
	Department     string                 `json:"department,omitempty"`
	SiteID         *generic.SiteID        `json:"site_id,omitempty"`
	SiteName       string                 `json:"site_name,omitempty"`
	LearningItemID generic.LearningItemID `json:"learning_item_id"`
	ItemCode       string                 `json:"item_code"`
	ItemTitle      string                 `json:"item_title"`
	Category       string                 `json:"category"`
	RequiredDate   time.Time              `json:"required_date"`
	DueDate        time.Time              `json:"due_date"`
	Status         training.Status        `json:"status"`
	DaysOverdue    int                    `json:"days_overdue"`
	ReminderCount  int                    `json:"reminder_count"`
	LastReminderAt *time.Time             `json:"last_reminder_at,omitempty"`
}

// =============================================================================
// COMPLETION LIST
// =============================================================================

type CompletionRow struct {
	AssignmentID      generic.AssignmentID   `json:"assignment_id"`
	EmployeeID        generic.EmployeeID     `json:"employee_id"`
	EmployeeCode      string                 `json:"employee_code"`
	EmployeeName      string                 `json:"employee_name"`
	SiteID            *generic.SiteID        `json:"site_id,omitempty"`
	SiteName          string                 `json:"site_name,omitempty"`
	LearningItemID    generic.LearningItemID `json:"learning_item_id"`
	ItemCode          string                 `json:"item_code"`
	ItemTitle         string                 `json:"item_title"`
	DueDate           time.Time              `json:"due_date"`
	CompletedAt       time.Time              `json:"completed_at"`
	CompletedOnTime   bool                   `json:"completed_on_time"`
	TimeSpentSeconds  int                    `json:"time_spent_seconds"`
	VideoWatchPercent int                    `json:"video_watch_percent"`
	QuizScore         *int                   `json:"quiz_score,omitempty"`
	QuizMaxScore      *int                   `json:"quiz_max_score,omitempty"`
	QuizPassed        *bool                  `json:"quiz_passed,omitempty"`
	QuizPercentage    *decimal.Decimal       `json:"quiz_percentage"`
	SignedBy          string                 `json:"signed_by,omitempty"`
}

// =============================================================================
// SKILLS MATRIX
// =============================================================================

type SkillsMatrix struct {
	TenantID      generic.TenantID `json:"tenant_id"`
	GeneratedAt   time.Time        `json:"generated_at"`
	Employees     []MatrixEmployee `json:"employees"`
	LearningItems []MatrixItem     `json:"learning_items"`
	Cells         []MatrixCell     `json:"cells"`
}

type MatrixEmployee struct {
	ID         generic.EmployeeID `json:"id"`
	Code       string             `json:"code"`
	FullName   string             `json:"full_name"`
	Department string             `json:"department,omitempty"`
	JobTitle   string             `json:"job_title,omitempty"`
	SiteID     *generic.SiteID    `json:"site_id,omitempty"`
}

type MatrixItem struct {
	ID           generic.LearningItemID `json:"id"`
	Code         string                 `json:"code"`
	Title        string                 `json:"title"`
	Category     string                 `json:"category"`
	CategoryName string                 `json:"category_name"`
}

type MatrixCell struct {
	EmployeeID     generic.EmployeeID     `json:"employee_id"`
	LearningItemID generic.LearningItemID `json:"learning_item_id"`
	Status         training.CellStatus    `json:"status"`
	AssignmentID   *generic.AssignmentID  `json:"assignment_id,omitempty"`
	Score          *int                   `json:"score,omitempty"`
	CompletedAt    *time.Time             `json:"completed_at,omitempty"`
	DueDate        *time.Time             `json:"due_date,omitempty"`
	IsOverdue      bool                   `json:"is_overdue"`
	DaysOverdue    int                    `json:"days_overdue,omitempty"`
}

// Cell returns the cell for a pair, or nil if the pair is not in the grid.
func (m *SkillsMatrix) Cell(emp generic.EmployeeID, item generic.LearningItemID) *MatrixCell {
	for i := range m.Cells {
		if m.Cells[i].EmployeeID == emp && m.Cells[i].LearningItemID == item {
			return &m.Cells[i]
		}
	}
	return nil
}
