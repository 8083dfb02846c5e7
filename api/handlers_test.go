/*
handlers_test.go - HTTP tests for the API handlers

Tests run the full router against an in-memory SQLite store loaded with the
compliance-demo scenario at a fixed clock, so every number below can be
derived by hand from scenarios.go.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/compliance-engine/factory"
	"github.com/warp/compliance-engine/generic"
	"github.com/warp/compliance-engine/lookup"
	"github.com/warp/compliance-engine/reports"
	"github.com/warp/compliance-engine/store/sqlite"
)

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func setupTestHandler(t *testing.T) *Handler {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return NewHandler(store, generic.FixedClock{At: testNow})
}

func setupDemoRouter(t *testing.T) (*Handler, *chi.Mux) {
	t.Helper()
	h := setupTestHandler(t)
	require.NoError(t, h.loadScenario(context.Background(), "compliance-demo"))
	return h, NewRouter(h, nil)
}

type request struct {
	method string
	path   string
	body   any
	tenant string
	super  bool
}

func do(t *testing.T, router http.Handler, req request) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if req.body != nil {
		switch b := req.body.(type) {
		case string:
			body.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&body).Encode(b))
		}
	}
	r := httptest.NewRequest(req.method, req.path, &body)
	r.Header.Set("Content-Type", "application/json")
	if req.tenant != "" {
		r.Header.Set(HeaderTenantID, req.tenant)
	}
	if req.super {
		r.Header.Set(HeaderSuperUser, "true")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Equal(t, want, got.StringFixed(2))
}

// =============================================================================
// CALLER
// =============================================================================

func TestReports_RequireTenant(t *testing.T) {
	_, router := setupDemoRouter(t)

	for _, path := range []string{
		"/api/reports/compliance",
		"/api/reports/overdue",
		"/api/reports/completions",
		"/api/reports/matrix",
		"/api/lookups/TrainingCategory",
	} {
		t.Run(path, func(t *testing.T) {
			w := do(t, router, request{method: http.MethodGet, path: path})
			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeBody[ErrorResponse](t, w)
			assert.Equal(t, "validation", resp.Code)
		})
	}
}

func TestCallerFromHeaders(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderTenantID, " acme ")
	h.Set(HeaderUserID, "u-1")
	h.Set(HeaderEmployeeID, "emp-1")
	h.Set(HeaderSuperUser, "1")

	caller, err := callerFromHeaders(h)
	require.NoError(t, err)
	assert.Equal(t, generic.TenantID("acme"), caller.TenantID)
	assert.Equal(t, "u-1", caller.UserID)
	require.NotNil(t, caller.EmployeeID)
	assert.Equal(t, generic.EmployeeID("emp-1"), *caller.EmployeeID)
	assert.True(t, caller.IsSuperUser)

	h.Set(HeaderSuperUser, "maybe")
	_, err = callerFromHeaders(h)
	assert.True(t, generic.IsClientError(err))
}

// =============================================================================
// REPORTS
// =============================================================================

func TestComplianceReport_Endpoint(t *testing.T) {
	// GIVEN: The compliance demo (11 live assignments, 1 cancelled)
	// WHEN: Requesting the tenant-wide report
	// THEN: 5 of 11 completed, in-progress past due counts as overdue

	_, router := setupDemoRouter(t)
	w := do(t, router, request{method: http.MethodGet, path: "/api/reports/compliance", tenant: "demo"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	report := decodeBody[reports.ComplianceReport](t, w)
	assert.Equal(t, 6, report.TotalEmployees)
	assert.Equal(t, 11, report.AssignedCount)
	assert.Equal(t, 5, report.CompletedCount)
	assert.Equal(t, 3, report.OverdueCount)
	assert.Equal(t, 2, report.PendingCount)
	assert.Equal(t, 1, report.InProgressCount)
	assertDecimal(t, "45.45", report.CompliancePercentage)

	require.Len(t, report.BySite, 2)
	assert.Equal(t, "North Plant", report.BySite[0].SiteName)
	assertDecimal(t, "50.00", report.BySite[0].CompliancePercentage)
	assert.Equal(t, "South Plant", report.BySite[1].SiteName)
	assertDecimal(t, "40.00", report.BySite[1].CompliancePercentage)

	var fire *reports.ItemCompliance
	for i := range report.ByLearningItem {
		if report.ByLearningItem[i].Code == "FS-001" {
			fire = &report.ByLearningItem[i]
		}
	}
	require.NotNil(t, fire)
	assert.Equal(t, 5, fire.AssignedCount)
	assert.Equal(t, 3, fire.CompletedCount)
	require.NotNil(t, fire.AverageQuizScore)
	assertDecimal(t, "80.00", *fire.AverageQuizScore)
	require.NotNil(t, fire.QuizPassRate)
	assertDecimal(t, "66.67", *fire.QuizPassRate)
}

func TestComplianceReport_Filters(t *testing.T) {
	_, router := setupDemoRouter(t)

	t.Run("site", func(t *testing.T) {
		w := do(t, router, request{method: http.MethodGet, path: "/api/reports/compliance?site_id=plant-south", tenant: "demo"})
		require.Equal(t, http.StatusOK, w.Code)
		report := decodeBody[reports.ComplianceReport](t, w)
		assert.Equal(t, 3, report.TotalEmployees)
		assert.Equal(t, 5, report.AssignedCount)
		assertDecimal(t, "40.00", report.CompliancePercentage)
	})

	t.Run("empty team selects nobody", func(t *testing.T) {
		w := do(t, router, request{method: http.MethodGet, path: "/api/reports/compliance?employee_ids=", tenant: "demo"})
		require.Equal(t, http.StatusOK, w.Code)
		report := decodeBody[reports.ComplianceReport](t, w)
		assert.Zero(t, report.TotalEmployees)
		assert.Zero(t, report.AssignedCount)
		assertDecimal(t, "0.00", report.CompliancePercentage)
	})

	t.Run("employee ids", func(t *testing.T) {
		w := do(t, router, request{method: http.MethodGet, path: "/api/reports/compliance?employee_ids=emp-alice,emp-emma", tenant: "demo"})
		require.Equal(t, http.StatusOK, w.Code)
		report := decodeBody[reports.ComplianceReport](t, w)
		assert.Equal(t, 2, report.TotalEmployees)
		assert.Equal(t, 4, report.AssignedCount)
		assert.Equal(t, 2, report.CompletedCount)
	})

	t.Run("invalid date", func(t *testing.T) {
		w := do(t, router, request{method: http.MethodGet, path: "/api/reports/compliance?date_from=yesterday", tenant: "demo"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("inverted range", func(t *testing.T) {
		w := do(t, router, request{method: http.MethodGet, path: "/api/reports/compliance?date_from=2026-03-01&date_to=2026-02-01", tenant: "demo"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("other tenant sees nothing", func(t *testing.T) {
		w := do(t, router, request{method: http.MethodGet, path: "/api/reports/compliance", tenant: "globex"})
		require.Equal(t, http.StatusOK, w.Code)
		report := decodeBody[reports.ComplianceReport](t, w)
		assert.Zero(t, report.AssignedCount)
	})
}

func TestOverdueReport_Endpoint(t *testing.T) {
	// GIVEN: Two assignments 10 days past due and one 2 days past due
	// WHEN: Requesting the overdue list
	// THEN: Most overdue first, ties broken by employee name

	_, router := setupDemoRouter(t)
	w := do(t, router, request{method: http.MethodGet, path: "/api/reports/overdue", tenant: "demo"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	list := decodeBody[reports.OverdueList](t, w)
	require.Equal(t, 3, list.Count)
	require.Len(t, list.Rows, 3)

	assert.Equal(t, generic.AssignmentID("demo-asg-05"), list.Rows[0].AssignmentID)
	assert.Equal(t, "Chloe Park", list.Rows[0].EmployeeName)
	assert.Equal(t, 10, list.Rows[0].DaysOverdue)
	assert.Equal(t, generic.AssignmentID("demo-asg-07"), list.Rows[1].AssignmentID)
	assert.Equal(t, 10, list.Rows[1].DaysOverdue)
	assert.Equal(t, generic.AssignmentID("demo-asg-04"), list.Rows[2].AssignmentID)
	assert.Equal(t, 2, list.Rows[2].DaysOverdue)

	w = do(t, router, request{method: http.MethodGet, path: "/api/reports/overdue?site_id=plant-south", tenant: "demo"})
	require.Equal(t, http.StatusOK, w.Code)
	list = decodeBody[reports.OverdueList](t, w)
	require.Len(t, list.Rows, 1)
	assert.Equal(t, "Diego Silva", list.Rows[0].EmployeeName)
}

func TestCompletionReport_Paging(t *testing.T) {
	_, router := setupDemoRouter(t)

	w := do(t, router, request{method: http.MethodGet, path: "/api/reports/completions?page=1&page_size=2", tenant: "demo"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page := decodeBody[generic.Page[reports.CompletionRow]](t, w)
	assert.Equal(t, 5, page.TotalCount)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 2)
	// Newest first: Chloe's toolbox talk yesterday
	assert.Equal(t, generic.AssignmentID("demo-asg-06"), page.Items[0].AssignmentID)
	assert.False(t, page.Items[1].CompletedOnTime, "Ben completed five days late")

	w = do(t, router, request{method: http.MethodGet, path: "/api/reports/completions?page_size=500", tenant: "demo"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, request{method: http.MethodGet, path: "/api/reports/completions?page=abc", tenant: "demo"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSkillsMatrix_Endpoint(t *testing.T) {
	_, router := setupDemoRouter(t)

	w := do(t, router, request{method: http.MethodGet, path: "/api/reports/matrix", tenant: "demo"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	matrix := decodeBody[reports.SkillsMatrix](t, w)

	assert.Len(t, matrix.Employees, 6)
	assert.Len(t, matrix.LearningItems, 5)
	assert.Len(t, matrix.Cells, len(matrix.Employees)*len(matrix.LearningItems))

	fs := factory.LearningItemID(DemoTenant, "FS-001")
	cell := matrix.Cell("emp-alice", fs)
	require.NotNil(t, cell)
	assert.Equal(t, "completed", string(cell.Status))
	assert.NotNil(t, cell.Score)

	cell = matrix.Cell("emp-chloe", fs)
	require.NotNil(t, cell)
	assert.Equal(t, "in_progress", string(cell.Status))
	assert.True(t, cell.IsOverdue)

	cell = matrix.Cell("emp-farid", factory.LearningItemID(DemoTenant, "TB-001"))
	require.NotNil(t, cell)
	assert.Equal(t, "not_assigned", string(cell.Status), "cancelled assignments leave the grid")

	w = do(t, router, request{method: http.MethodGet, path: "/api/reports/matrix?employee_ids=emp-diego", tenant: "demo"})
	require.Equal(t, http.StatusOK, w.Code)
	matrix = decodeBody[reports.SkillsMatrix](t, w)
	require.Len(t, matrix.Employees, 1)
	assert.Len(t, matrix.LearningItems, 2)
}

// =============================================================================
// LOOKUPS
// =============================================================================

func TestLookups_OverrideRoundTrip(t *testing.T) {
	// GIVEN: The default TrainingCategory with 5 global values
	// WHEN: The tenant disables hazmat
	// THEN: It disappears from the default view and shows as disabled with include_disabled

	_, router := setupDemoRouter(t)
	path := "/api/lookups/TrainingCategory"

	w := do(t, router, request{method: http.MethodGet, path: path, tenant: "demo"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decodeBody[EffectiveValuesResponse](t, w).Values, 5)

	hazmat := factory.ValueID(lookup.CategoryTrainingCategory, "hazmat")
	w = do(t, router, request{method: http.MethodPut, path: path + "/overrides/" + hazmat, tenant: "demo", body: map[string]bool{"is_enabled": false}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	dto := decodeBody[TenantValueDTO](t, w)
	assert.Equal(t, "override", dto.Kind)
	require.NotNil(t, dto.OverriddenGlobalID)
	assert.Equal(t, hazmat, *dto.OverriddenGlobalID)

	w = do(t, router, request{method: http.MethodGet, path: path, tenant: "demo"})
	values := decodeBody[EffectiveValuesResponse](t, w).Values
	require.Len(t, values, 4)
	for _, v := range values {
		assert.NotEqual(t, "hazmat", v.Code)
	}

	w = do(t, router, request{method: http.MethodGet, path: path + "?include_disabled=true", tenant: "demo"})
	values = decodeBody[EffectiveValuesResponse](t, w).Values
	require.Len(t, values, 5)

	// Another tenant is unaffected
	w = do(t, router, request{method: http.MethodGet, path: path, tenant: "globex"})
	assert.Len(t, decodeBody[EffectiveValuesResponse](t, w).Values, 5)

	// Overrides cannot be deleted
	w = do(t, router, request{method: http.MethodDelete, path: path + "/values/" + dto.ID, tenant: "demo"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLookups_CustomValues(t *testing.T) {
	_, router := setupDemoRouter(t)
	path := "/api/lookups/TrainingCategory/values"

	w := do(t, router, request{method: http.MethodPost, path: path, tenant: "demo",
		body: lookup.CreateCustomValueInput{Code: "forklift", Name: "Forklift"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeBody[TenantValueDTO](t, w)
	assert.Equal(t, "custom", created.Kind)
	assert.Nil(t, created.OverriddenGlobalID)

	w = do(t, router, request{method: http.MethodPost, path: path, tenant: "demo",
		body: lookup.CreateCustomValueInput{Code: "forklift", Name: "Again"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, request{method: http.MethodPost, path: path, tenant: "demo", body: `{"code": "Bad Code", "name": "x"}`})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "code", decodeBody[ErrorResponse](t, w).Details)

	renamed := "Forklift Safety"
	w = do(t, router, request{method: http.MethodPatch, path: path + "/" + created.ID, tenant: "demo",
		body: lookup.UpdateTenantValueInput{Name: &renamed}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, renamed, decodeBody[TenantValueDTO](t, w).Name)

	w = do(t, router, request{method: http.MethodDelete, path: path + "/" + created.ID, tenant: "demo"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, request{method: http.MethodPost, path: "/api/lookups/Language/values", tenant: "demo",
		body: lookup.CreateCustomValueInput{Code: "fr", Name: "French"}})
	assert.Equal(t, http.StatusBadRequest, w.Code, "Language does not allow custom values")
}

func TestLookups_UnknownCategory(t *testing.T) {
	_, router := setupDemoRouter(t)
	w := do(t, router, request{method: http.MethodGet, path: "/api/lookups/Nope", tenant: "demo"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeBody[ErrorResponse](t, w).Code)

	w = do(t, router, request{method: http.MethodGet, path: "/api/lookups", tenant: "demo"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody[[]CategoryDTO](t, w), 4)
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

func TestAssignments_CompleteOnce(t *testing.T) {
	_, router := setupDemoRouter(t)
	path := "/api/assignments/demo-asg-02/complete"
	body := CompleteAssignmentRequest{
		TimeSpentSeconds:  600,
		VideoWatchPercent: 100,
		QuizScore:         intPtr(7),
		QuizMaxScore:      intPtr(8),
		SignedBy:          "Alice Moreno",
	}

	w := do(t, router, request{method: http.MethodPost, path: path, tenant: "globex", body: body})
	assert.Equal(t, http.StatusNotFound, w.Code, "other tenants cannot touch the row")

	w = do(t, router, request{method: http.MethodPost, path: path, tenant: "demo", body: body})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, router, request{method: http.MethodPost, path: path, tenant: "demo", body: body})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, router, request{method: http.MethodGet, path: "/api/reports/compliance", tenant: "demo"})
	report := decodeBody[reports.ComplianceReport](t, w)
	assert.Equal(t, 6, report.CompletedCount)
}

func TestAssignments_CompleteValidation(t *testing.T) {
	_, router := setupDemoRouter(t)
	path := "/api/assignments/demo-asg-02/complete"

	tests := []struct {
		name string
		body any
	}{
		{"watch percent", CompleteAssignmentRequest{VideoWatchPercent: 150}},
		{"negative time", CompleteAssignmentRequest{TimeSpentSeconds: -1}},
		{"score without max", CompleteAssignmentRequest{QuizScore: intPtr(3)}},
		{"score above max", CompleteAssignmentRequest{QuizScore: intPtr(9), QuizMaxScore: intPtr(8)}},
		{"bad timestamp", `{"completed_at": "today"}`},
		{"bad latitude", CompleteAssignmentRequest{Location: &LocationDTO{Latitude: 120}}},
		{"malformed", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, request{method: http.MethodPost, path: path, tenant: "demo", body: tt.body})
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestAssignments_StartAndCancel(t *testing.T) {
	_, router := setupDemoRouter(t)

	w := do(t, router, request{method: http.MethodPost, path: "/api/assignments/demo-asg-08/start", tenant: "demo"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, router, request{method: http.MethodPost, path: "/api/assignments/demo-asg-08/start", tenant: "demo"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "already in progress")

	w = do(t, router, request{method: http.MethodPost, path: "/api/assignments/demo-asg-04/cancel", tenant: "demo"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, request{method: http.MethodGet, path: "/api/reports/overdue", tenant: "demo"})
	list := decodeBody[reports.OverdueList](t, w)
	assert.Equal(t, 2, list.Count, "cancelled rows leave the overdue list")
}

// =============================================================================
// ADMIN
// =============================================================================

func TestImportCatalog(t *testing.T) {
	h, router := setupDemoRouter(t)
	catalog := `{"learning_items": [{"code": "CS-001", "title": "Confined Spaces", "category": "hazmat", "frequency": "annually"}]}`

	w := do(t, router, request{method: http.MethodPost, path: "/api/admin/catalog", tenant: "demo", body: catalog})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, router, request{method: http.MethodPost, path: "/api/admin/catalog", tenant: "demo", super: true, body: `{"learning_items": [{"code": ""}]}`})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, request{method: http.MethodPost, path: "/api/admin/catalog", tenant: "demo", super: true, body: catalog})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, factory.ApplySummary{LearningItems: 1}, decodeBody[factory.ApplySummary](t, w))

	item, err := h.Store.GetLearningItem(context.Background(), DemoTenant, factory.LearningItemID(DemoTenant, "CS-001"))
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "Confined Spaces", item.Title)
}

func TestRunSweep_Endpoint(t *testing.T) {
	// GIVEN: The compliance demo
	// WHEN: Triggering a sweep
	// THEN: Ben's hazmat row turns overdue, both stored-overdue rows are reminded,
	//       and Chloe's weekly toolbox talk gets its next cycle

	_, router := setupDemoRouter(t)
	w := do(t, router, request{method: http.MethodPost, path: "/api/admin/sweep", tenant: "demo", super: true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	summary := decodeBody[SweepSummary](t, w)
	assert.Equal(t, 1, summary.Tenants)
	assert.Equal(t, 1, summary.MarkedOverdue)
	assert.Equal(t, 2, summary.RemindersSent)
	assert.Equal(t, 1, summary.CyclesCreated)
	assert.Empty(t, summary.Errors)

	// Reports are unchanged by the stored status: overdue was already derived
	w = do(t, router, request{method: http.MethodGet, path: "/api/reports/overdue", tenant: "demo"})
	list := decodeBody[reports.OverdueList](t, w)
	assert.Equal(t, 3, list.Count)
	for _, row := range list.Rows {
		if row.Status == "overdue" {
			assert.Equal(t, 1, row.ReminderCount)
		}
	}
}

func TestAdmin_RequiresSuperUser(t *testing.T) {
	// GIVEN: The compliance demo
	// WHEN: Calling sweep or reset without a tenant, or without the
	//       super-user header
	// THEN: The request is rejected and the data is untouched

	_, router := setupDemoRouter(t)

	for _, path := range []string{"/api/admin/sweep", "/api/admin/reset"} {
		w := do(t, router, request{method: http.MethodPost, path: path})
		assert.Equal(t, http.StatusBadRequest, w.Code, path)

		w = do(t, router, request{method: http.MethodPost, path: path, tenant: "demo"})
		assert.Equal(t, http.StatusForbidden, w.Code, path)
	}

	w := do(t, router, request{method: http.MethodGet, path: "/api/reports/compliance", tenant: "demo"})
	report := decodeBody[reports.ComplianceReport](t, w)
	assert.NotZero(t, report.TotalEmployees)

	w = do(t, router, request{method: http.MethodGet, path: "/api/reports/overdue", tenant: "demo"})
	for _, row := range decodeBody[reports.OverdueList](t, w).Rows {
		assert.Zero(t, row.ReminderCount, "no sweep ran")
	}
}

func TestReset(t *testing.T) {
	_, router := setupDemoRouter(t)

	w := do(t, router, request{method: http.MethodPost, path: "/api/admin/reset", tenant: "demo", super: true})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, request{method: http.MethodGet, path: "/api/reports/compliance", tenant: "demo"})
	report := decodeBody[reports.ComplianceReport](t, w)
	assert.Zero(t, report.TotalEmployees)

	w = do(t, router, request{method: http.MethodGet, path: "/api/scenarios/current"})
	assert.Equal(t, "null", string(bytes.TrimSpace(w.Body.Bytes())))
}

func TestHealth(t *testing.T) {
	router := NewRouter(setupTestHandler(t), nil)
	w := do(t, router, request{method: http.MethodGet, path: "/api/health"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func intPtr(v int) *int { return &v }
