package api

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/compliance-engine/generic"
	"github.com/warp/compliance-engine/store/memory"
	"github.com/warp/compliance-engine/training"
)

type recordingNotifier struct {
	mu        sync.Mutex
	reminders []Reminder
	failFor   generic.TenantID
}

func (n *recordingNotifier) Remind(_ context.Context, r Reminder) error {
	if r.TenantID == n.failFor {
		return errors.New("mail server down")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reminders = append(n.reminders, r)
	return nil
}

func seedSweep(t *testing.T, store *memory.Store, tenant generic.TenantID) {
	t.Helper()
	ctx := context.Background()
	site := generic.SiteID(string(tenant) + "-site")

	require.NoError(t, store.SaveSite(ctx, training.Site{ID: site, TenantID: tenant, Name: "Main"}))
	require.NoError(t, store.SaveEmployee(ctx, training.Employee{
		ID: generic.EmployeeID(string(tenant) + "-emp"), TenantID: tenant, FullName: "Pat Doe", SiteID: &site, IsActive: true,
	}))
	for _, item := range []training.LearningItem{
		{ID: generic.LearningItemID(string(tenant) + "-fs"), Code: "FS", Title: "Fire Safety", Frequency: training.FrequencyAnnually},
		{ID: generic.LearningItemID(string(tenant) + "-tb"), Code: "TB", Title: "Toolbox Talk", Frequency: training.FrequencyWeekly},
		{ID: generic.LearningItemID(string(tenant) + "-fa"), Code: "FA", Title: "First Aid", Frequency: training.FrequencyOnce},
	} {
		item.TenantID = tenant
		require.NoError(t, store.SaveLearningItem(ctx, item))
	}

	emp := generic.EmployeeID(string(tenant) + "-emp")
	day := func(n int) time.Time { return testNow.AddDate(0, 0, n) }
	rows := []training.Assignment{
		// pending, 3 days past due
		{ID: "late", LearningItemID: generic.LearningItemID(string(tenant) + "-fs"), RequiredDate: day(-30), DueDate: day(-3), Status: training.StatusPending},
		// in progress past due: never marked, never reminded
		{ID: "busy", LearningItemID: generic.LearningItemID(string(tenant) + "-fa"), RequiredDate: day(-30), DueDate: day(-3), Status: training.StatusInProgress},
		// weekly talk completed last cycle
		{ID: "talk", LearningItemID: generic.LearningItemID(string(tenant) + "-tb"), RequiredDate: day(-8), DueDate: day(-6), Status: training.StatusPending},
	}
	for _, a := range rows {
		a.ID = generic.AssignmentID(string(tenant) + "-" + string(a.ID))
		a.TenantID = tenant
		a.EmployeeID = emp
		require.NoError(t, store.SaveAssignment(ctx, a))
	}
	require.NoError(t, store.CompleteAssignment(ctx, tenant, training.Completion{
		AssignmentID: generic.AssignmentID(string(tenant) + "-talk"),
		CompletedAt:  day(-7),
	}))
}

func newTestScheduler(store *memory.Store, n Notifier) *SweepScheduler {
	return NewSweepScheduler(store, n, generic.FixedClock{At: testNow})
}

func streamAll(t *testing.T, store *memory.Store, tenant generic.TenantID) map[generic.AssignmentID]training.Assignment {
	t.Helper()
	out := make(map[generic.AssignmentID]training.Assignment)
	err := store.StreamAssignments(context.Background(), tenant, training.AssignmentFilter{}, func(row training.AssignmentRow) error {
		out[row.Assignment.ID] = row.Assignment
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestSweep_MarksRemindsAndRecurs(t *testing.T) {
	// GIVEN: A pending row 3 days late, an in-progress row past due, and a
	//        completed weekly talk whose next cycle started yesterday
	// WHEN: Sweeping once
	// THEN: Only the pending row turns overdue and is reminded; one new cycle

	store := memory.New()
	seedSweep(t, store, "acme")
	notifier := &recordingNotifier{}
	s := newTestScheduler(store, notifier)

	summary, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Tenants)
	assert.Equal(t, 1, summary.MarkedOverdue)
	assert.Equal(t, 1, summary.RemindersSent)
	assert.Equal(t, 1, summary.CyclesCreated)
	assert.Empty(t, summary.Errors)

	rows := streamAll(t, store, "acme")
	assert.Equal(t, training.StatusOverdue, rows["acme-late"].Status)
	assert.Equal(t, 1, rows["acme-late"].ReminderCount)
	assert.Equal(t, training.StatusInProgress, rows["acme-busy"].Status)
	assert.Zero(t, rows["acme-busy"].ReminderCount)

	require.Len(t, notifier.reminders, 1)
	r := notifier.reminders[0]
	assert.Equal(t, "Pat Doe", r.EmployeeName)
	assert.Equal(t, "Fire Safety", r.ItemTitle)
	assert.Equal(t, 3, r.DaysOverdue)
	assert.Equal(t, 1, r.Number)

	require.Len(t, rows, 4)
	var next *training.Assignment
	for id, a := range rows {
		if id != "acme-late" && id != "acme-busy" && id != "acme-talk" {
			a := a
			next = &a
		}
	}
	require.NotNil(t, next)
	assert.Equal(t, training.StatusPending, next.Status)
	assert.Equal(t, testNow.AddDate(0, 0, -1), next.RequiredDate)
	assert.Equal(t, testNow.AddDate(0, 0, 1), next.DueDate)
}

func TestSweep_Idempotent(t *testing.T) {
	store := memory.New()
	seedSweep(t, store, "acme")
	s := newTestScheduler(store, &recordingNotifier{})

	_, err := s.Sweep(context.Background())
	require.NoError(t, err)

	summary, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.MarkedOverdue)
	assert.Zero(t, summary.RemindersSent, "reminder interval not elapsed")
	assert.Zero(t, summary.CyclesCreated, "next cycle is now the latest row")
}

func TestSweep_ReminderIntervalAndCap(t *testing.T) {
	// GIVEN: An overdue row and a 3-reminder cap every 72 hours
	// WHEN: Sweeping every 3 days for twelve days
	// THEN: Exactly 3 reminders go out

	store := memory.New()
	seedSweep(t, store, "acme")
	notifier := &recordingNotifier{}
	s := newTestScheduler(store, notifier)

	for i := 0; i < 5; i++ {
		s.Clock = generic.FixedClock{At: testNow.Add(time.Duration(i) * 72 * time.Hour)}
		_, err := s.Sweep(context.Background())
		require.NoError(t, err)
	}

	// The weekly talk's new cycle goes overdue too, so only count reminders
	// for the original row.
	count := 0
	for _, r := range notifier.reminders {
		if r.AssignmentID == "acme-late" {
			count++
			assert.Equal(t, count, r.Number)
		}
	}
	assert.Equal(t, 3, count)
}

func TestSweep_DeactivatedEmployee(t *testing.T) {
	// GIVEN: The usual rows, but the employee has been deactivated
	// WHEN: Sweeping
	// THEN: The late row is still marked overdue; no reminder, no next cycle

	store := memory.New()
	seedSweep(t, store, "acme")
	ctx := context.Background()
	emp, err := store.GetEmployee(ctx, "acme", "acme-emp")
	require.NoError(t, err)
	require.NotNil(t, emp)
	emp.IsActive = false
	require.NoError(t, store.SaveEmployee(ctx, *emp))

	notifier := &recordingNotifier{}
	summary, err := newTestScheduler(store, notifier).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.MarkedOverdue)
	assert.Zero(t, summary.RemindersSent)
	assert.Zero(t, summary.CyclesCreated)
	assert.Empty(t, notifier.reminders)
	assert.Equal(t, training.StatusOverdue, streamAll(t, store, "acme")["acme-late"].Status)
}

func TestSweep_TenantFailureIsolated(t *testing.T) {
	store := memory.New()
	seedSweep(t, store, "acme")
	seedSweep(t, store, "broken")
	notifier := &recordingNotifier{failFor: "broken"}
	s := newTestScheduler(store, notifier)

	summary, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Tenants)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], "broken")

	require.Len(t, notifier.reminders, 1)
	assert.Equal(t, generic.TenantID("acme"), notifier.reminders[0].TenantID)
}

func TestSweep_CancelledContext(t *testing.T) {
	store := memory.New()
	seedSweep(t, store, "acme")
	s := newTestScheduler(store, &recordingNotifier{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Sweep(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNextCycles(t *testing.T) {
	items := map[generic.LearningItemID]training.LearningItem{
		"monthly": {ID: "monthly", Frequency: training.FrequencyMonthly},
		"once":    {ID: "once", Frequency: training.FrequencyOnce},
	}
	jan := generic.NewDate(2026, time.January, 15)
	now := generic.NewDate(2026, time.February, 20)

	rows := []training.Assignment{
		{ID: "m1", EmployeeID: "e1", LearningItemID: "monthly", RequiredDate: jan, DueDate: jan.AddDate(0, 0, 5), Status: training.StatusCompleted},
		{ID: "o1", EmployeeID: "e1", LearningItemID: "once", RequiredDate: jan, DueDate: jan, Status: training.StatusCompleted},
		// e2's latest cycle is still open
		{ID: "m2", EmployeeID: "e2", LearningItemID: "monthly", RequiredDate: jan, DueDate: jan, Status: training.StatusCompleted},
		{ID: "m3", EmployeeID: "e2", LearningItemID: "monthly", RequiredDate: jan.AddDate(0, 1, 0), DueDate: jan.AddDate(0, 1, 0), Status: training.StatusPending},
	}

	next := nextCycles(rows, items, now)
	require.Len(t, next, 1)
	assert.Equal(t, generic.EmployeeID("e1"), next[0].EmployeeID)
	assert.Equal(t, generic.NewDate(2026, time.February, 15), next[0].RequiredDate)
	assert.Equal(t, generic.NewDate(2026, time.February, 20), next[0].DueDate)

	again := nextCycles(rows, items, now)
	assert.Equal(t, next[0].ID, again[0].ID, "ids are derived from the previous cycle")

	assert.Empty(t, nextCycles(rows, items, generic.NewDate(2026, time.February, 1)))
}

func TestScheduler_StartStop(t *testing.T) {
	store := memory.New()
	s := newTestScheduler(store, &recordingNotifier{})
	s.CheckInterval = time.Hour

	s.Start()
	s.Start()
	s.Stop()
	s.Stop()

	s.Enabled = false
	s.Start()
	s.Stop()
}
