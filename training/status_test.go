package training_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/compliance-engine/generic"
	"github.com/warp/compliance-engine/training"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var now = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func row(id string, status training.Status, due time.Time) training.Assignment {
	return training.Assignment{
		ID:             generic.AssignmentID(id),
		TenantID:       "t1",
		EmployeeID:     "emp-1",
		LearningItemID: "fs-001",
		RequiredDate:   due.AddDate(0, 0, -7),
		DueDate:        due,
		Status:         status,
	}
}

func intp(v int) *int { return &v }

func completion(id string, at time.Time, score, max *int) training.Completion {
	return training.Completion{
		AssignmentID: generic.AssignmentID(id),
		CompletedAt:  at,
		QuizScore:    score,
		QuizMaxScore: max,
	}
}

// =============================================================================
// OVERDUE PREDICATE
// =============================================================================

func TestIsOverdue(t *testing.T) {
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name   string
		status training.Status
		due    time.Time
		want   bool
	}{
		{"persisted overdue, future due", training.StatusOverdue, future, true},
		{"pending past due", training.StatusPending, past, true},
		{"pending future due", training.StatusPending, future, false},
		{"in progress past due", training.StatusInProgress, past, true},
		{"completed past due", training.StatusCompleted, past, false},
		{"cancelled past due", training.StatusCancelled, past, false},
		{"due exactly now", training.StatusPending, now, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, training.IsOverdue(tt.status, tt.due, now))
		})
	}
}

// =============================================================================
// RESOLVER PRIORITY
// =============================================================================

func TestResolve_NoAssignments_NotAssigned(t *testing.T) {
	cell := training.Resolve(nil, nil, now)
	assert.Equal(t, training.CellNotAssigned, cell.Status)
	assert.Nil(t, cell.AssignmentID)
}

func TestResolve_OnlyCancelled_NotAssigned(t *testing.T) {
	rows := []training.Assignment{row("a1", training.StatusCancelled, now.AddDate(0, 0, -3))}
	cell := training.Resolve(rows, nil, now)
	assert.Equal(t, training.CellNotAssigned, cell.Status)
}

func TestResolve_CompletedWinsOverEverything(t *testing.T) {
	// GIVEN: One completed row plus pending, overdue and in-progress rows
	// WHEN: Resolving the pair
	// THEN: Completed, regardless of the other rows

	rows := []training.Assignment{
		row("a1", training.StatusOverdue, now.AddDate(0, 0, -30)),
		row("a2", training.StatusPending, now.AddDate(0, 0, -2)),
		row("a3", training.StatusInProgress, now.AddDate(0, 0, 5)),
		row("a4", training.StatusCompleted, now.AddDate(0, 0, -60)),
	}
	at := now.AddDate(0, 0, -61)
	completions := map[generic.AssignmentID]training.Completion{
		"a4": completion("a4", at, intp(8), intp(10)),
	}

	cell := training.Resolve(rows, completions, now)

	require.Equal(t, training.CellCompleted, cell.Status)
	require.NotNil(t, cell.Score)
	assert.Equal(t, 80, *cell.Score)
	assert.Equal(t, at, *cell.CompletedAt)
	assert.Equal(t, generic.AssignmentID("a4"), *cell.AssignmentID)
	assert.False(t, cell.IsOverdue)
}

func TestResolve_CompletedWithoutQuiz_NoScore(t *testing.T) {
	rows := []training.Assignment{row("a1", training.StatusCompleted, now)}
	completions := map[generic.AssignmentID]training.Completion{
		"a1": completion("a1", now.Add(-time.Hour), nil, nil),
	}

	cell := training.Resolve(rows, completions, now)
	assert.Equal(t, training.CellCompleted, cell.Status)
	assert.Nil(t, cell.Score)
}

func TestResolve_ScoreRounding(t *testing.T) {
	// 2/3 = 66.666.. -> 67
	rows := []training.Assignment{row("a1", training.StatusCompleted, now)}
	completions := map[generic.AssignmentID]training.Completion{
		"a1": completion("a1", now, intp(2), intp(3)),
	}

	cell := training.Resolve(rows, completions, now)
	require.NotNil(t, cell.Score)
	assert.Equal(t, 67, *cell.Score)
}

func TestResolve_LatestCompletionWins(t *testing.T) {
	rows := []training.Assignment{
		row("old", training.StatusCompleted, now.AddDate(-1, 0, 0)),
		row("new", training.StatusCompleted, now),
	}
	completions := map[generic.AssignmentID]training.Completion{
		"old": completion("old", now.AddDate(-1, 0, 0), intp(5), intp(10)),
		"new": completion("new", now.AddDate(0, 0, -1), intp(9), intp(10)),
	}

	cell := training.Resolve(rows, completions, now)
	assert.Equal(t, generic.AssignmentID("new"), *cell.AssignmentID)
	assert.Equal(t, 90, *cell.Score)
}

func TestResolve_InProgressBeatsOverdue(t *testing.T) {
	// GIVEN: An overdue row and an in-progress row
	// THEN: InProgress, carrying the in-progress row's due date

	inProgressDue := now.AddDate(0, 0, 3)
	rows := []training.Assignment{
		row("a1", training.StatusOverdue, now.AddDate(0, 0, -10)),
		row("a2", training.StatusInProgress, inProgressDue),
	}

	cell := training.Resolve(rows, nil, now)
	assert.Equal(t, training.CellInProgress, cell.Status)
	assert.Equal(t, inProgressDue, *cell.DueDate)
	assert.False(t, cell.IsOverdue)
}

func TestResolve_InProgressPastDue_FlagsOverdue(t *testing.T) {
	rows := []training.Assignment{row("a1", training.StatusInProgress, now.Add(-36*time.Hour))}

	cell := training.Resolve(rows, nil, now)
	assert.Equal(t, training.CellInProgress, cell.Status)
	assert.True(t, cell.IsOverdue)
	assert.Equal(t, 2, cell.DaysOverdue)
}

func TestResolve_PicksLatestDueAmongPending(t *testing.T) {
	// GIVEN: Last cycle overdue, this cycle pending with a future due date
	// THEN: The newest row decides -> Assigned

	rows := []training.Assignment{
		row("cycle-1", training.StatusOverdue, now.AddDate(0, -1, 0)),
		row("cycle-2", training.StatusPending, now.AddDate(0, 0, 14)),
	}

	cell := training.Resolve(rows, nil, now)
	assert.Equal(t, training.CellAssigned, cell.Status)
	assert.Equal(t, generic.AssignmentID("cycle-2"), *cell.AssignmentID)
	assert.Zero(t, cell.DaysOverdue)
}

func TestResolve_StalePendingPastDue_IsOverdue(t *testing.T) {
	// GIVEN: Persisted status still Pending but due yesterday
	// THEN: Overdue by exactly one day

	rows := []training.Assignment{row("a1", training.StatusPending, now.Add(-24*time.Hour))}

	cell := training.Resolve(rows, nil, now)
	assert.Equal(t, training.CellOverdue, cell.Status)
	assert.True(t, cell.IsOverdue)
	assert.Equal(t, 1, cell.DaysOverdue)
}

func TestResolve_PersistedOverdueFutureDue_IsOverdue(t *testing.T) {
	rows := []training.Assignment{row("a1", training.StatusOverdue, now.Add(48*time.Hour))}

	cell := training.Resolve(rows, nil, now)
	assert.Equal(t, training.CellOverdue, cell.Status)
	assert.Zero(t, cell.DaysOverdue)
}

func TestResolve_CancelledCompletionIgnored(t *testing.T) {
	rows := []training.Assignment{
		row("a1", training.StatusCancelled, now),
		row("a2", training.StatusPending, now.AddDate(0, 0, 1)),
	}
	completions := map[generic.AssignmentID]training.Completion{
		"a1": completion("a1", now, nil, nil),
	}

	cell := training.Resolve(rows, completions, now)
	assert.Equal(t, training.CellAssigned, cell.Status)
}

// =============================================================================
// CLASSIFIER / COUNTS
// =============================================================================

func TestClassify_AgreesWithPredicate(t *testing.T) {
	for _, s := range []training.Status{
		training.StatusPending, training.StatusInProgress, training.StatusOverdue,
	} {
		for _, due := range []time.Time{now.Add(-time.Minute), now.Add(time.Minute)} {
			a := row("a", s, due)
			isOverdueBucket := training.Classify(a, now) == training.BucketOverdue
			assert.Equal(t, training.IsOverdue(s, due, now), isOverdueBucket, "status=%s due=%s", s, due)
		}
	}
}

func TestCounts_CompliancePercentBoundaries(t *testing.T) {
	var empty training.Counts
	assert.True(t, empty.CompliancePercent().IsZero())

	all := training.Counts{}
	for i := 0; i < 3; i++ {
		all.Add(training.BucketCompleted)
	}
	assert.Equal(t, "100", all.CompliancePercent().String())

	mixed := training.Counts{}
	mixed.Add(training.BucketCompleted)
	mixed.Add(training.BucketPending)
	mixed.Add(training.BucketOverdue)
	mixed.Add(training.BucketCancelled)
	assert.Equal(t, 3, mixed.Assigned)
	assert.Equal(t, "33.33", mixed.CompliancePercent().String())
}

func TestFrequency_Advance(t *testing.T) {
	base := generic.NewDate(2026, time.January, 31)
	assert.Equal(t, generic.NewDate(2026, time.February, 7), training.FrequencyWeekly.Advance(base))
	assert.Equal(t, generic.NewDate(2027, time.January, 31), training.FrequencyAnnually.Advance(base))
	assert.Equal(t, base, training.FrequencyOnce.Advance(base))
	assert.False(t, training.FrequencyOnce.IsRecurring())
	assert.True(t, training.FrequencyMonthly.IsRecurring())
}
