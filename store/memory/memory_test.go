package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/compliance-engine/generic"
	"github.com/warp/compliance-engine/store/memory"
	"github.com/warp/compliance-engine/training"
)

var now = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	ctx := context.Background()
	north := generic.SiteID("north")
	deleted := now.AddDate(0, 0, -1)

	for _, e := range []training.Employee{
		{ID: "e3", FullName: "Sam Lee", SiteID: &north, IsActive: true},
		{ID: "e1", FullName: "Sam Lee", IsActive: true},
		{ID: "e2", FullName: "Ada Park", SiteID: &north, IsActive: true},
		{ID: "old", FullName: "Old Timer", SiteID: &north, IsActive: false},
		{ID: "gone", FullName: "Gone Away", IsActive: true, DeletedAt: &deleted},
	} {
		e.TenantID = "acme"
		require.NoError(t, store.SaveEmployee(ctx, e))
	}
	require.NoError(t, store.SaveLearningItem(ctx, training.LearningItem{ID: "fs", TenantID: "acme", Code: "FS-001", Title: "Fire Safety"}))
	for _, a := range []training.Assignment{
		{ID: "a1", EmployeeID: "e1"},
		{ID: "a2", EmployeeID: "old"},
		{ID: "a3", EmployeeID: "gone"},
	} {
		a.TenantID = "acme"
		a.LearningItemID = "fs"
		a.RequiredDate = now
		a.DueDate = now.AddDate(0, 0, 7)
		a.Status = training.StatusPending
		require.NoError(t, store.SaveAssignment(ctx, a))
	}
	return store
}

func employeeIDs(employees []training.Employee) []generic.EmployeeID {
	out := make([]generic.EmployeeID, len(employees))
	for i, e := range employees {
		out[i] = e.ID
	}
	return out
}

func streamIDs(t *testing.T, store *memory.Store, filter training.AssignmentFilter) []generic.AssignmentID {
	t.Helper()
	var ids []generic.AssignmentID
	err := store.StreamAssignments(context.Background(), "acme", filter, func(row training.AssignmentRow) error {
		ids = append(ids, row.Assignment.ID)
		return nil
	})
	require.NoError(t, err)
	return ids
}

func TestListEmployees_OrderedByNameThenID(t *testing.T) {
	// GIVEN: Two employees sharing a full name
	// WHEN: Listing employees repeatedly
	// THEN: The order is always name, then id

	store := seed(t)
	for i := 0; i < 20; i++ {
		employees, err := store.ListEmployees(context.Background(), "acme", training.EmployeeFilter{})
		require.NoError(t, err)
		assert.Equal(t, []generic.EmployeeID{"e2", "e1", "e3"}, employeeIDs(employees))
	}
}

func TestListEmployees_IncludeInactive(t *testing.T) {
	store := seed(t)
	north := generic.SiteID("north")

	employees, err := store.ListEmployees(context.Background(), "acme", training.EmployeeFilter{IncludeInactive: true})
	require.NoError(t, err)
	assert.Equal(t, []generic.EmployeeID{"e2", "old", "e1", "e3"}, employeeIDs(employees), "deleted employees never appear")

	employees, err = store.ListEmployees(context.Background(), "acme", training.EmployeeFilter{SiteID: &north})
	require.NoError(t, err)
	assert.Equal(t, []generic.EmployeeID{"e2", "e3"}, employeeIDs(employees))
}

func TestStreamAssignments_EmployeeScope(t *testing.T) {
	// GIVEN: Rows for an active, a deactivated and a deleted employee
	// WHEN: Streaming with and without a narrowed employee scope
	// THEN: The deactivated employee's row appears only unscoped; the
	//       deleted employee's row never does

	store := seed(t)
	north := generic.SiteID("north")

	assert.Equal(t, []generic.AssignmentID{"a1", "a2"}, streamIDs(t, store, training.AssignmentFilter{}))
	assert.Empty(t, streamIDs(t, store, training.AssignmentFilter{SiteID: &north}))
	assert.Empty(t, streamIDs(t, store, training.AssignmentFilter{EmployeeIDs: []generic.EmployeeID{"old"}}))
	assert.Equal(t, []generic.AssignmentID{"a1"}, streamIDs(t, store, training.AssignmentFilter{EmployeeIDs: []generic.EmployeeID{"e1", "old"}}))
}
