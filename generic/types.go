/*
Package generic provides the tenant-agnostic kernel shared by every package.

PURPOSE:
  This package contains the identifiers, caller context, error taxonomy,
  time arithmetic and decimal percentage helpers that the training, lookup
  and reports packages all build on. It has no knowledge of learning items,
  lookups or reports.

KEY CONCEPTS IN THIS FILE (types.go):
  - Typed identifiers: TenantID, EmployeeID, SiteID, ... (never mix them up)
  - Caller: explicit tenant/user context threaded through every operation
  - Percentage: exact decimal percentages with explicit rounding

DESIGN PRINCIPLES:
  1. Explicit context: no ambient "current tenant", every call carries a Caller
  2. Precision: uses decimal.Decimal so displayed percentages never drift
  3. Type Safety: strong typing for IDs prevents passing an item ID as an employee

USAGE:
  caller := generic.Caller{TenantID: "acme", UserID: "u-1"}
  pct := generic.Percentage(42, 50) // 84.00

SEE ALSO:
  - errors.go: NotFound / Validation / Infrastructure taxonomy
  - time.go: Clock, DaysOverdue, DateRange
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type TenantID string
type EmployeeID string
type SiteID string
type LearningItemID string
type AssignmentID string

// PairKey identifies one employee × learning item cell.
type PairKey struct {
	EmployeeID     EmployeeID
	LearningItemID LearningItemID
}

// =============================================================================
// CALLER - Who is asking, for which tenant
// =============================================================================

// Caller is the identity an operation runs as. It replaces any ambient
// "current user" accessor: handlers build it once per request and pass it down.
type Caller struct {
	TenantID    TenantID
	UserID      string
	IsSuperUser bool

	// EmployeeID is the caller's own employee row, used for "my team" scoping.
	EmployeeID *EmployeeID
}

// Validate reports whether the caller carries a tenant.
func (c Caller) Validate() error {
	if c.TenantID == "" {
		return &ValidationError{Field: "tenant_id", Message: "tenant id is required"}
	}
	return nil
}

// =============================================================================
// PERCENTAGES - Exact decimal arithmetic
// =============================================================================

var hundred = decimal.NewFromInt(100)

// PercentPlaces is the number of decimals every displayed percentage keeps.
const PercentPlaces = 2

// Percentage returns part/whole × 100 rounded to two decimals.
// A zero (or negative) whole yields exactly zero.
func Percentage(part, whole int64) decimal.Decimal {
	if whole <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(part).
		Mul(hundred).
		Div(decimal.NewFromInt(whole)).
		Round(PercentPlaces)
}

// ScoreRatio converts a quiz score into an unrounded percentage. It returns
// nil when either side is missing or the max score is not positive.
func ScoreRatio(score, maxScore *int) *decimal.Decimal {
	if score == nil || maxScore == nil || *maxScore <= 0 {
		return nil
	}
	pct := decimal.NewFromInt(int64(*score)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(*maxScore)))
	return &pct
}

// ScorePercent is ScoreRatio rounded to places.
func ScorePercent(score, maxScore *int, places int32) *decimal.Decimal {
	pct := ScoreRatio(score, maxScore)
	if pct == nil {
		return nil
	}
	rounded := pct.Round(places)
	return &rounded
}

// Average returns the mean of values rounded to two decimals, or nil if
// empty. Values should be unrounded so the mean is rounded once.
func Average(values []decimal.Decimal) *decimal.Decimal {
	if len(values) == 0 {
		return nil
	}
	avg := decimal.Sum(decimal.Zero, values...).
		Div(decimal.NewFromInt(int64(len(values)))).
		Round(PercentPlaces)
	return &avg
}
