// Package training holds the compliance-training domain: employees, learning
// items, assignments and completions, and the single status resolver every
// report shares.
package training

import (
	"time"

	"github.com/warp/compliance-engine/generic"
)

// =============================================================================
// ORGANIZATION
// =============================================================================

// Site is the organizational unit used for compliance breakdowns.
type Site struct {
	ID       generic.SiteID
	TenantID generic.TenantID
	Name     string
}

// Employee is an identity row within a tenant. Never hard-deleted.
type Employee struct {
	ID         generic.EmployeeID
	TenantID   generic.TenantID
	Code       string
	FullName   string
	Department string
	JobTitle   string
	SiteID     *generic.SiteID
	IsActive   bool
	DeletedAt  *time.Time
	CreatedAt  time.Time
}

// InScope reports whether the employee counts toward the current workforce.
func (e Employee) InScope() bool {
	return e.IsActive && e.DeletedAt == nil
}

// =============================================================================
// LEARNING ITEMS
// =============================================================================

type Frequency string

const (
	FrequencyOnce     Frequency = "once"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyMonthly  Frequency = "monthly"
	FrequencyAnnually Frequency = "annually"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyOnce, FrequencyWeekly, FrequencyMonthly, FrequencyAnnually:
		return true
	}
	return false
}

// IsRecurring is false only for one-off items.
func (f Frequency) IsRecurring() bool {
	return f.Valid() && f != FrequencyOnce
}

// Advance moves t forward by one cycle. Once returns t unchanged.
func (f Frequency) Advance(t time.Time) time.Time {
	switch f {
	case FrequencyWeekly:
		return t.AddDate(0, 0, 7)
	case FrequencyMonthly:
		return t.AddDate(0, 1, 0)
	case FrequencyAnnually:
		return t.AddDate(1, 0, 0)
	default:
		return t
	}
}

// LearningItem is a safety talk or course. Edits apply to the live row.
type LearningItem struct {
	ID                generic.LearningItemID
	TenantID          generic.TenantID
	Code              string
	Title             string
	Category          string
	Frequency         Frequency
	QuizPassThreshold int // percent
	QuizQuestionCount int
	DeletedAt         *time.Time
	CreatedAt         time.Time
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

// Status is the persisted lifecycle status. Reports treat it as a hint:
// overdue-ness is always re-derived from the due date with IsOverdue.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusOverdue    Status = "overdue"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

// Open is true for statuses that can still become overdue.
func (s Status) Open() bool {
	return s != StatusCompleted && s != StatusCancelled
}

type GeoPoint struct {
	Latitude  float64
	Longitude float64
}

// Assignment is one scheduled instance of a learning item for one employee.
// Recurrence produces a new row per cycle, so a pair may have many.
type Assignment struct {
	ID             generic.AssignmentID
	TenantID       generic.TenantID
	EmployeeID     generic.EmployeeID
	LearningItemID generic.LearningItemID
	RequiredDate   time.Time
	DueDate        time.Time
	Status         Status
	ReminderCount  int
	LastReminderAt *time.Time
	StartLocation  *GeoPoint
	CreatedAt      time.Time
}

func (a Assignment) Pair() generic.PairKey {
	return generic.PairKey{EmployeeID: a.EmployeeID, LearningItemID: a.LearningItemID}
}

// Signature is the sign-off captured on completion.
type Signature struct {
	SignedBy string
	SignedAt time.Time
	Ref      string
}

// Completion is created exactly once, when an assignment is completed.
type Completion struct {
	AssignmentID       generic.AssignmentID
	CompletedAt        time.Time
	TimeSpentSeconds   int
	VideoWatchPercent  int
	QuizScore          *int
	QuizMaxScore       *int
	QuizPassed         *bool
	Signature          *Signature
	CompletionLocation *GeoPoint
}

// HasQuiz is true when both score fields are present and usable.
func (c Completion) HasQuiz() bool {
	return c.QuizScore != nil && c.QuizMaxScore != nil && *c.QuizMaxScore > 0
}

// CompletedOnTime compares the completion instant with the assignment due date.
func (c Completion) CompletedOnTime(due time.Time) bool {
	return !c.CompletedAt.After(due)
}
