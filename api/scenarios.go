/*
scenarios.go - Pre-configured demo scenarios

PURPOSE:
  Provides ready-to-use scenarios for demonstrating the reports. Each
  scenario resets the database, applies the default catalog, and creates a
  tenant with sites, employees and assignments in a known mix of states.
  Dates are relative to the handler clock, so the data never goes stale.

SCENARIOS:
  1. compliance-demo:  Two plants, six employees, every assignment state
  2. overdue-backlog:  Past-due work for the sweep (reminders, recurrence)
  3. tenant-lookups:   Tenant overrides and custom values in TrainingCategory

USAGE (API):
  GET  /api/scenarios           - List available scenarios
  POST /api/scenarios/load      - Load a scenario by ID
  GET  /api/scenarios/current   - Get currently loaded scenario

SEE ALSO:
  - factory/catalog.go: DefaultCatalogJSON
  - handlers.go: Handler struct
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/compliance-engine/factory"
	"github.com/warp/compliance-engine/generic"
	"github.com/warp/compliance-engine/lookup"
	"github.com/warp/compliance-engine/training"
)

// DemoTenant owns the scenario data.
const DemoTenant generic.TenantID = "demo"

var scenarios = []ScenarioDTO{
	{
		ID:          "compliance-demo",
		Name:        "Compliance Dashboard",
		Description: "Two plants and six employees with completed, late, in-progress, overdue and cancelled training",
		TenantID:    string(DemoTenant),
	},
	{
		ID:          "overdue-backlog",
		Name:        "Overdue Backlog",
		Description: "Past-due assignments waiting for the sweep, plus a weekly talk ready for its next cycle",
		TenantID:    string(DemoTenant),
	},
	{
		ID:          "tenant-lookups",
		Name:        "Tenant Lookups",
		Description: "A disabled global category, a renamed override and a tenant-only category used by a learning item",
		TenantID:    string(DemoTenant),
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := h.decode(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.loadScenario(r.Context(), req.ScenarioID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// loadScenario resets the store and loads one scenario.
func (h *Handler) loadScenario(ctx context.Context, id string) error {
	loaders := map[string]func(context.Context, *scenarioBuilder) error{
		"compliance-demo": h.loadComplianceDemo,
		"overdue-backlog": h.loadOverdueBacklog,
		"tenant-lookups":  h.loadTenantLookups,
	}
	load, ok := loaders[id]
	if !ok {
		return generic.NewValidation("scenario_id", "unknown scenario %q", id)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	h.currentScenario = ""

	catalog, err := h.Catalog.ParseCatalog(factory.DefaultCatalogJSON)
	if err != nil {
		return err
	}
	now := h.Clock.Now()
	if _, err := h.Catalog.Apply(ctx, catalog, h.Store, h.Store, DemoTenant, now); err != nil {
		return fmt.Errorf("apply catalog: %w", err)
	}

	b := &scenarioBuilder{ctx: ctx, store: h.Store, tenant: DemoTenant, now: now}
	if err := load(ctx, b); err != nil {
		return err
	}
	if b.err != nil {
		return b.err
	}

	h.currentScenario = id
	return nil
}

// =============================================================================
// SCENARIO 1: COMPLIANCE DEMO
// =============================================================================

func (h *Handler) loadComplianceDemo(_ context.Context, b *scenarioBuilder) error {
	north := b.site("plant-north", "North Plant")
	south := b.site("plant-south", "South Plant")

	alice := b.employee("emp-alice", "Alice Moreno", north, "operations", "operator")
	ben := b.employee("emp-ben", "Ben Okafor", north, "maintenance", "technician")
	chloe := b.employee("emp-chloe", "Chloe Park", north, "operations", "supervisor")
	diego := b.employee("emp-diego", "Diego Silva", south, "logistics", "operator")
	emma := b.employee("emp-emma", "Emma Wright", south, "maintenance", "technician")
	farid := b.employee("emp-farid", "Farid Haddad", south, "logistics", "supervisor")

	// Completed on time, passed
	b.complete(b.assign("asg-01", alice, "FS-001", -40, -10), -12, quiz(9, 10))
	b.assign("asg-02", alice, "PPE-001", -20, 10)

	// Completed late, failed the quiz
	b.complete(b.assign("asg-03", ben, "FS-001", -40, -10), -5, quiz(7, 10))
	b.assign("asg-04", ben, "HZ-001", -30, -2)

	// In progress past the due date
	b.start(b.assign("asg-05", chloe, "FS-001", -40, -10))
	b.complete(b.assign("asg-06", chloe, "TB-001", -7, 3), -1, nil)

	b.assign("asg-07", diego, "FS-001", -40, -10)
	b.assign("asg-08", diego, "PPE-001", -5, 25)

	b.complete(b.assign("asg-09", emma, "FA-001", -60, -30), -35, quiz(5, 5))
	b.start(b.assign("asg-10", emma, "HZ-001", -10, 20))

	b.complete(b.assign("asg-11", farid, "FS-001", -40, -10), -15, quiz(8, 10))
	b.cancel(b.assign("asg-12", farid, "TB-001", -14, -7))

	return b.markOverdue()
}

// =============================================================================
// SCENARIO 2: OVERDUE BACKLOG
// =============================================================================

func (h *Handler) loadOverdueBacklog(_ context.Context, b *scenarioBuilder) error {
	yard := b.site("yard", "Distribution Yard")

	crew := []generic.EmployeeID{
		b.employee("emp-gina", "Gina Rossi", yard, "logistics", "operator"),
		b.employee("emp-hugo", "Hugo Brandt", yard, "logistics", "operator"),
		b.employee("emp-ivy", "Ivy Chen", yard, "maintenance", "technician"),
		b.employee("emp-jon", "Jon Bakker", yard, "logistics", "supervisor"),
	}

	dueOffsets := map[string]int{"FS-001": -1, "PPE-001": -6, "HZ-001": -21}
	n := 0
	for _, emp := range crew {
		for _, code := range []string{"FS-001", "PPE-001", "HZ-001"} {
			n++
			due := dueOffsets[code]
			b.assign(fmt.Sprintf("asg-%02d", n), emp, code, due-30, due)
		}
	}

	// Weekly talk from last week: its next cycle starts yesterday
	b.complete(b.assign("asg-talk", crew[3], "TB-001", -8, -6), -7, nil)

	return nil
}

// =============================================================================
// SCENARIO 3: TENANT LOOKUPS
// =============================================================================

func (h *Handler) loadTenantLookups(ctx context.Context, b *scenarioBuilder) error {
	caller := generic.Caller{TenantID: b.tenant, UserID: "scenario"}

	forklift, err := h.Lookups.CreateCustomValue(ctx, caller, lookup.CategoryTrainingCategory, lookup.CreateCustomValueInput{
		Code:      "forklift",
		Name:      "Forklift Operation",
		SortOrder: 6,
		Metadata:  lookup.Metadata{"color": "orange"},
	})
	if err != nil {
		return err
	}

	hazmatID := factory.ValueID(lookup.CategoryTrainingCategory, "hazmat")
	if _, err := h.Lookups.ToggleGlobalOverride(ctx, caller, lookup.CategoryTrainingCategory, hazmatID, false); err != nil {
		return err
	}

	fireID := factory.ValueID(lookup.CategoryTrainingCategory, "fire")
	fire, err := h.Lookups.ToggleGlobalOverride(ctx, caller, lookup.CategoryTrainingCategory, fireID, true)
	if err != nil {
		return err
	}
	renamed := "Fire & Evacuation"
	if _, err := h.Lookups.UpdateTenantValue(ctx, caller, lookup.CategoryTrainingCategory, fire.ID, lookup.UpdateTenantValueInput{
		Name: &renamed,
	}); err != nil {
		return err
	}

	b.item(training.LearningItem{
		Code:              "FL-001",
		Title:             "Forklift Pre-Use Inspection",
		Category:          forklift.Code,
		Frequency:         training.FrequencyMonthly,
		QuizPassThreshold: 75,
		QuizQuestionCount: 8,
	})

	site := b.site("warehouse", "Central Warehouse")
	kim := b.employee("emp-kim", "Kim Laurent", site, "logistics", "operator")
	leo := b.employee("emp-leo", "Leo Novak", site, "logistics", "operator")

	b.complete(b.assign("asg-01", kim, "FL-001", -20, -5), -6, quiz(8, 8))
	b.assign("asg-02", leo, "FL-001", -20, -5)
	b.assign("asg-03", kim, "FS-001", -10, 20)
	b.assign("asg-04", leo, "HZ-001", -10, 20)

	return nil
}

// =============================================================================
// BUILDER
// =============================================================================

// scenarioBuilder writes rows for one tenant. The first error sticks and
// turns every later call into a no-op.
type scenarioBuilder struct {
	ctx    context.Context
	store  Store
	tenant generic.TenantID
	now    time.Time
	err    error
}

type quizResult struct{ score, maxScore int }

func quiz(score, maxScore int) *quizResult { return &quizResult{score: score, maxScore: maxScore} }

func (b *scenarioBuilder) days(n int) time.Time {
	return b.now.AddDate(0, 0, n)
}

func (b *scenarioBuilder) site(id, name string) generic.SiteID {
	sid := generic.SiteID(id)
	if b.err == nil {
		b.err = b.store.SaveSite(b.ctx, training.Site{ID: sid, TenantID: b.tenant, Name: name})
	}
	return sid
}

func (b *scenarioBuilder) employee(id, name string, site generic.SiteID, department, title string) generic.EmployeeID {
	eid := generic.EmployeeID(id)
	if b.err == nil {
		b.err = b.store.SaveEmployee(b.ctx, training.Employee{
			ID:         eid,
			TenantID:   b.tenant,
			Code:       id,
			FullName:   name,
			Department: department,
			JobTitle:   title,
			SiteID:     &site,
			IsActive:   true,
			CreatedAt:  b.days(-365),
		})
	}
	return eid
}

func (b *scenarioBuilder) item(item training.LearningItem) {
	if b.err != nil {
		return
	}
	item.ID = factory.LearningItemID(b.tenant, item.Code)
	item.TenantID = b.tenant
	item.CreatedAt = b.days(-365)
	b.err = b.store.SaveLearningItem(b.ctx, item)
}

// assign creates a pending assignment. Offsets are days relative to now.
func (b *scenarioBuilder) assign(id string, emp generic.EmployeeID, itemCode string, requiredIn, dueIn int) generic.AssignmentID {
	aid := generic.AssignmentID(string(b.tenant) + "-" + id)
	if b.err == nil {
		b.err = b.store.SaveAssignment(b.ctx, training.Assignment{
			ID:             aid,
			TenantID:       b.tenant,
			EmployeeID:     emp,
			LearningItemID: factory.LearningItemID(b.tenant, itemCode),
			RequiredDate:   generic.StartOfDay(b.days(requiredIn)),
			DueDate:        generic.EndOfDay(b.days(dueIn)),
			Status:         training.StatusPending,
			CreatedAt:      b.days(requiredIn),
		})
	}
	return aid
}

func (b *scenarioBuilder) start(id generic.AssignmentID) {
	if b.err == nil {
		b.err = b.store.StartAssignment(b.ctx, b.tenant, id, &training.GeoPoint{Latitude: 51.5072, Longitude: -0.1276})
	}
}

func (b *scenarioBuilder) complete(id generic.AssignmentID, completedIn int, q *quizResult) {
	if b.err != nil {
		return
	}
	at := b.days(completedIn)
	c := training.Completion{
		AssignmentID:      id,
		CompletedAt:       at,
		TimeSpentSeconds:  900,
		VideoWatchPercent: 100,
		Signature:         &training.Signature{SignedBy: "supervisor", SignedAt: at},
	}
	if q != nil {
		score, maxScore := q.score, q.maxScore
		c.QuizScore = &score
		c.QuizMaxScore = &maxScore
	}
	b.err = b.store.CompleteAssignment(b.ctx, b.tenant, c)
}

func (b *scenarioBuilder) cancel(id generic.AssignmentID) {
	if b.err == nil {
		b.err = b.store.CancelAssignment(b.ctx, b.tenant, id)
	}
}

// markOverdue persists the overdue status the sweep would set, so the demo
// shows both stored and derived overdue rows.
func (b *scenarioBuilder) markOverdue() error {
	if b.err != nil {
		return b.err
	}
	var ids []generic.AssignmentID
	err := b.store.StreamAssignments(b.ctx, b.tenant, training.AssignmentFilter{
		Statuses: []training.Status{training.StatusPending},
	}, func(row training.AssignmentRow) error {
		if row.Assignment.LearningItemID == factory.LearningItemID(b.tenant, "FS-001") &&
			training.IsOverdue(row.Assignment.Status, row.Assignment.DueDate, b.now) {
			ids = append(ids, row.Assignment.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	_, err = b.store.MarkOverdue(b.ctx, b.tenant, ids)
	return err
}
