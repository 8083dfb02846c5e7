/*
status.go - The overdue predicate and the assignment status resolver

PURPOSE:
  Every read site (compliance counts, overdue list, skills matrix, sweep
  scheduler) decides "is this overdue?" through IsOverdue and derives a
  per-pair status through Resolve. Nothing else in the repository
  re-implements either rule.

RESOLUTION ORDER (first match wins, cancelled rows ignored throughout):
  1. Any assignment with a completion        -> Completed (score, completedAt)
  2. Any assignment in progress              -> InProgress (due date)
  3. Pending/Overdue with the latest due date -> Overdue or Assigned
  4. Nothing left                            -> NotAssigned

EXAMPLE:
  cell := training.Resolve(rows, completions, now)
  if cell.Status == training.CellOverdue {
      fmt.Println(cell.DaysOverdue)
  }
*/
package training

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/compliance-engine/generic"
)

// =============================================================================
// OVERDUE PREDICATE
// =============================================================================

// IsOverdue is the one overdue test. A row is overdue when its persisted
// status says so, or when it is still open and its due date has passed.
func IsOverdue(status Status, due, now time.Time) bool {
	if status == StatusOverdue {
		return true
	}
	return status.Open() && due.Before(now)
}

// =============================================================================
// CELL STATUS
// =============================================================================

type CellStatus string

const (
	CellCompleted   CellStatus = "completed"
	CellInProgress  CellStatus = "in_progress"
	CellOverdue     CellStatus = "overdue"
	CellAssigned    CellStatus = "assigned"
	CellNotAssigned CellStatus = "not_assigned"
)

// Cell is the resolved state of one employee × learning item pair.
type Cell struct {
	Status       CellStatus
	AssignmentID *generic.AssignmentID // the row that decided the status
	Score        *int                  // percent, completed cells with a quiz only
	CompletedAt  *time.Time
	DueDate      *time.Time
	IsOverdue    bool
	DaysOverdue  int
}

// Resolve derives the canonical status for the assignments of one pair.
// completions may contain entries for unrelated assignments; only those
// matching the given rows are consulted.
func Resolve(assignments []Assignment, completions map[generic.AssignmentID]Completion, now time.Time) Cell {
	var (
		live       []Assignment
		completed  *Completion
		completedA Assignment
	)
	for _, a := range assignments {
		if a.Status == StatusCancelled {
			continue
		}
		live = append(live, a)
		if c, ok := completions[a.ID]; ok {
			if completed == nil || c.CompletedAt.After(completed.CompletedAt) {
				cc := c
				completed = &cc
				completedA = a
			}
		}
	}

	if len(live) == 0 {
		return Cell{Status: CellNotAssigned}
	}

	// 1. Completed
	if completed != nil {
		id := completedA.ID
		at := completed.CompletedAt
		due := completedA.DueDate
		return Cell{
			Status:       CellCompleted,
			AssignmentID: &id,
			Score:        quizScore(*completed),
			CompletedAt:  &at,
			DueDate:      &due,
		}
	}

	// 2. In progress
	if a, ok := latestDue(live, StatusInProgress); ok {
		return openCell(CellInProgress, a, now)
	}

	// 3. Pending / Overdue
	if a, ok := latestDue(live, StatusPending, StatusOverdue); ok {
		if IsOverdue(a.Status, a.DueDate, now) {
			return openCell(CellOverdue, a, now)
		}
		return openCell(CellAssigned, a, now)
	}

	// Only rows persisted as Completed without a completion record remain.
	// The completion invariant is broken; report the pair as not assigned
	// rather than inventing a completion date.
	return Cell{Status: CellNotAssigned}
}

func openCell(status CellStatus, a Assignment, now time.Time) Cell {
	id := a.ID
	due := a.DueDate
	cell := Cell{
		Status:       status,
		AssignmentID: &id,
		DueDate:      &due,
		IsOverdue:    IsOverdue(a.Status, a.DueDate, now),
	}
	if cell.IsOverdue {
		cell.DaysOverdue = generic.DaysOverdue(a.DueDate, now)
	}
	return cell
}

// latestDue picks the row with the latest due date among the given statuses.
func latestDue(rows []Assignment, statuses ...Status) (Assignment, bool) {
	var (
		best  Assignment
		found bool
	)
	for _, a := range rows {
		if !hasStatus(a.Status, statuses) {
			continue
		}
		if !found || a.DueDate.After(best.DueDate) {
			best = a
			found = true
		}
	}
	return best, found
}

func hasStatus(s Status, set []Status) bool {
	for _, x := range set {
		if s == x {
			return true
		}
	}
	return false
}

// quizScore is round(score / max × 100), nil without quiz data.
func quizScore(c Completion) *int {
	pct := generic.ScorePercent(c.QuizScore, c.QuizMaxScore, 0)
	if pct == nil {
		return nil
	}
	v := int(pct.IntPart())
	return &v
}

// =============================================================================
// ROW CLASSIFIER - Used by the aggregator for per-row counts
// =============================================================================

// Bucket is the count a single assignment row contributes to.
type Bucket string

const (
	BucketCompleted  Bucket = "completed"
	BucketOverdue    Bucket = "overdue"
	BucketInProgress Bucket = "in_progress"
	BucketPending    Bucket = "pending"
	BucketCancelled  Bucket = "cancelled"
)

// Classify assigns one row to exactly one bucket using IsOverdue.
func Classify(a Assignment, now time.Time) Bucket {
	switch {
	case a.Status == StatusCancelled:
		return BucketCancelled
	case a.Status == StatusCompleted:
		return BucketCompleted
	case IsOverdue(a.Status, a.DueDate, now):
		return BucketOverdue
	case a.Status == StatusInProgress:
		return BucketInProgress
	default:
		return BucketPending
	}
}

// Counts accumulates bucket totals for a set of rows.
type Counts struct {
	Assigned   int
	Completed  int
	Overdue    int
	Pending    int
	InProgress int
}

// Add records one row. Cancelled rows are not counted.
func (c *Counts) Add(b Bucket) {
	if b == BucketCancelled {
		return
	}
	c.Assigned++
	switch b {
	case BucketCompleted:
		c.Completed++
	case BucketOverdue:
		c.Overdue++
	case BucketInProgress:
		c.InProgress++
	default:
		c.Pending++
	}
}

// CompliancePercent is completed / assigned × 100, zero for no assignments.
func (c Counts) CompliancePercent() decimal.Decimal {
	return generic.Percentage(int64(c.Completed), int64(c.Assigned))
}
