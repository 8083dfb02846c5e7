/*
handlers.go - HTTP API handlers for the compliance engine

PURPOSE:
  Exposes the report, lookup and assignment operations via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to the
  reports and lookup services.

ENDPOINTS:
  Reports (query: date_from, date_to, site_id, employee_ids, learning_item_id,
  category, page, page_size):
    GET    /api/reports/compliance       Compliance percentages and breakdowns
    GET    /api/reports/overdue          Overdue assignments, most overdue first
    GET    /api/reports/completions      Paginated completion history
    GET    /api/reports/matrix           Employee x learning item grid

  Lookups:
    GET    /api/lookups                           Active categories
    GET    /api/lookups/{category}                Effective values (?include_disabled)
    POST   /api/lookups/{category}/values         Create custom value
    PATCH  /api/lookups/{category}/values/{id}    Edit override or custom value
    DELETE /api/lookups/{category}/values/{id}    Soft-delete custom value
    PUT    /api/lookups/{category}/overrides/{id} Enable/disable a global value

  Assignments:
    POST   /api/assignments/{id}/start     Mark in progress
    POST   /api/assignments/{id}/complete  Record completion
    POST   /api/assignments/{id}/cancel    Cancel

  Admin:
    POST   /api/admin/catalog   Import a catalog (super user)
    POST   /api/admin/sweep     Run the overdue, reminder and recurrence sweep now (super user)
    POST   /api/admin/reset     Drop all data (super user)

  Scenarios:
    GET    /api/scenarios       List demo scenarios
    POST   /api/scenarios/load  Load a demo scenario

ERROR HANDLING:
  Service errors are mapped by kind:
  - 400: generic.ErrValidation (missing tenant, bad filter, bad input)
  - 404: generic.ErrNotFound
  - 409: generic.ErrDuplicate
  - 500: everything else, details withheld

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/warp/compliance-engine/factory"
	"github.com/warp/compliance-engine/generic"
	"github.com/warp/compliance-engine/lookup"
	"github.com/warp/compliance-engine/reports"
	"github.com/warp/compliance-engine/training"
)

// maxCatalogBytes bounds an imported catalog body.
const maxCatalogBytes = 1 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is the persistence surface the API needs. Both store/sqlite and
// store/memory satisfy it.
type Store interface {
	training.Store
	lookup.Store
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   Store
	Reports *reports.Service
	Lookups *lookup.Service
	Catalog *factory.CatalogFactory
	Sweeper *SweepScheduler
	Clock   generic.Clock

	validate *validator.Validate

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler with the given store. The sweeper uses
// default settings and a log notifier until replaced.
func NewHandler(store Store, clock generic.Clock) *Handler {
	if clock == nil {
		clock = generic.SystemClock{}
	}
	lookups := lookup.NewService(store, clock)
	return &Handler{
		Store:    store,
		Reports:  reports.NewService(store, lookups.Engine, clock),
		Lookups:  lookups,
		Catalog:  factory.NewCatalogFactory(),
		Sweeper:  NewSweepScheduler(store, LogNotifier{}, clock),
		Clock:    clock,
		validate: generic.NewValidator(),
	}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// GetComplianceReport returns compliance percentages for the caller's tenant.
func (h *Handler) GetComplianceReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := parseDateRange(q.Get("date_from"), q.Get("date_to"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	filter := reports.ComplianceFilter{
		DateFrom:    from,
		DateTo:      to,
		SiteID:      optionalID[generic.SiteID](q.Get("site_id")),
		EmployeeIDs: parseEmployeeIDs(q, "employee_ids"),
	}

	report, err := h.Reports.ComplianceReport(r.Context(), callerFrom(r), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetOverdueReport lists overdue assignments.
func (h *Handler) GetOverdueReport(w http.ResponseWriter, r *http.Request) {
	filter, err := parseExtractFilter(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	list, err := h.Reports.OverdueReport(r.Context(), callerFrom(r), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetCompletionReport returns one page of completion history.
func (h *Handler) GetCompletionReport(w http.ResponseWriter, r *http.Request) {
	filter, err := parseExtractFilter(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	q := r.URL.Query()
	page, err := parseInt(q.Get("page"), "page")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pageSize, err := parseInt(q.Get("page_size"), "page_size")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	result, err := h.Reports.CompletionReport(r.Context(), callerFrom(r), filter,
		generic.PageRequest{Page: page, PageSize: pageSize})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetSkillsMatrix returns the employee x learning item grid.
func (h *Handler) GetSkillsMatrix(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := reports.MatrixFilter{
		EmployeeIDs: parseEmployeeIDs(q, "employee_ids"),
	}
	if c := strings.TrimSpace(q.Get("category")); c != "" {
		filter.Category = &c
	}

	matrix, err := h.Reports.SkillsMatrix(r.Context(), callerFrom(r), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matrix)
}

// =============================================================================
// LOOKUP HANDLERS
// =============================================================================

// ListLookupCategories returns the active categories.
func (h *Handler) ListLookupCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Lookups.ListCategories(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryDTOs(cats))
}

// GetEffectiveValues returns the merged values of one category.
func (h *Handler) GetEffectiveValues(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	includeDisabled := false
	if v := r.URL.Query().Get("include_disabled"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeServiceError(w, generic.NewValidation("include_disabled", "must be a boolean"))
			return
		}
		includeDisabled = b
	}

	caller := callerFrom(r)
	values, err := h.Lookups.Engine.ResolveEffectiveValues(r.Context(), caller.TenantID, category, includeDisabled)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, EffectiveValuesResponse{
		Category:        category,
		IncludeDisabled: includeDisabled,
		Values:          values,
	})
}

// CreateCustomValue adds a tenant-only value.
func (h *Handler) CreateCustomValue(w http.ResponseWriter, r *http.Request) {
	var req lookup.CreateCustomValueInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	value, err := h.Lookups.CreateCustomValue(r.Context(), callerFrom(r), chi.URLParam(r, "category"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTenantValueDTO(value))
}

// UpdateTenantValue edits an override or custom value.
func (h *Handler) UpdateTenantValue(w http.ResponseWriter, r *http.Request) {
	var req lookup.UpdateTenantValueInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	value, err := h.Lookups.UpdateTenantValue(r.Context(), callerFrom(r),
		chi.URLParam(r, "category"), chi.URLParam(r, "valueId"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTenantValueDTO(value))
}

// DeleteCustomValue soft-deletes a custom value.
func (h *Handler) DeleteCustomValue(w http.ResponseWriter, r *http.Request) {
	err := h.Lookups.DeleteCustomValue(r.Context(), callerFrom(r),
		chi.URLParam(r, "category"), chi.URLParam(r, "valueId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ToggleGlobalOverride enables or disables a global value for the tenant.
func (h *Handler) ToggleGlobalOverride(w http.ResponseWriter, r *http.Request) {
	var req ToggleOverrideRequest
	if err := h.decode(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	value, err := h.Lookups.ToggleGlobalOverride(r.Context(), callerFrom(r),
		chi.URLParam(r, "category"), chi.URLParam(r, "globalId"), *req.IsEnabled)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTenantValueDTO(value))
}

// =============================================================================
// ASSIGNMENT HANDLERS
// =============================================================================

// StartAssignment moves an assignment to in progress.
func (h *Handler) StartAssignment(w http.ResponseWriter, r *http.Request) {
	var req StartAssignmentRequest
	if err := h.decodeOptional(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	caller := callerFrom(r)
	id := generic.AssignmentID(chi.URLParam(r, "assignmentId"))
	if err := h.Store.StartAssignment(r.Context(), caller.TenantID, id, req.Location.toGeoPoint()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AssignmentActionResponse{AssignmentID: string(id), Status: string(training.StatusInProgress)})
}

// CompleteAssignment records the completion. A second completion is a 409.
func (h *Handler) CompleteAssignment(w http.ResponseWriter, r *http.Request) {
	var req CompleteAssignmentRequest
	if err := h.decode(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	caller := callerFrom(r)
	id := generic.AssignmentID(chi.URLParam(r, "assignmentId"))
	completion, err := req.toCompletion(id, h.Clock.Now())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.Store.CompleteAssignment(r.Context(), caller.TenantID, completion); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AssignmentActionResponse{AssignmentID: string(id), Status: string(training.StatusCompleted)})
}

// CancelAssignment cancels an assignment. Cancelled rows leave every report.
func (h *Handler) CancelAssignment(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)
	id := generic.AssignmentID(chi.URLParam(r, "assignmentId"))
	if err := h.Store.CancelAssignment(r.Context(), caller.TenantID, id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AssignmentActionResponse{AssignmentID: string(id), Status: string(training.StatusCancelled)})
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// ImportCatalog applies a JSON catalog: global lookups plus the caller
// tenant's learning items. Global rows are shared, so super users only.
func (h *Handler) ImportCatalog(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)
	if !caller.IsSuperUser {
		writeError(w, http.StatusForbidden, "Catalog import requires a super user", nil)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCatalogBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	catalog, err := h.Catalog.ParseCatalog(string(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid catalog", err)
		return
	}

	summary, err := h.Catalog.Apply(r.Context(), catalog, h.Store, h.Store, caller.TenantID, h.Clock.Now())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// RunSweep runs one scheduler pass synchronously.
func (h *Handler) RunSweep(w http.ResponseWriter, r *http.Request) {
	if !callerFrom(r).IsSuperUser {
		writeError(w, http.StatusForbidden, "Sweep requires a super user", nil)
		return
	}
	summary, err := h.Sweeper.Sweep(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Reset clears all data.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if !callerFrom(r).IsSuperUser {
		writeError(w, http.StatusForbidden, "Reset requires a super user", nil)
		return
	}
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// QUERY PARSING
// =============================================================================

func parseExtractFilter(r *http.Request) (reports.ExtractFilter, error) {
	q := r.URL.Query()
	from, to, err := parseDateRange(q.Get("date_from"), q.Get("date_to"))
	if err != nil {
		return reports.ExtractFilter{}, err
	}
	return reports.ExtractFilter{
		DateFrom:       from,
		DateTo:         to,
		SiteID:         optionalID[generic.SiteID](q.Get("site_id")),
		LearningItemID: optionalID[generic.LearningItemID](q.Get("learning_item_id")),
		EmployeeIDs:    parseEmployeeIDs(q, "employee_ids"),
	}, nil
}

// parseDateRange accepts YYYY-MM-DD (whole days, inclusive) or RFC 3339.
func parseDateRange(fromStr, toStr string) (*time.Time, *time.Time, error) {
	from, err := parseDate(fromStr, "date_from", generic.StartOfDay)
	if err != nil {
		return nil, nil, err
	}
	to, err := parseDate(toStr, "date_to", generic.EndOfDay)
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func parseDate(s, field string, day func(time.Time) time.Time) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		d := day(t)
		return &d, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, generic.NewValidation(field, "invalid date %q (use YYYY-MM-DD)", s)
	}
	t = t.UTC()
	return &t, nil
}

// parseEmployeeIDs returns nil when the parameter is absent and an empty
// slice when it is present but empty, which selects nobody.
func parseEmployeeIDs(q map[string][]string, name string) []generic.EmployeeID {
	raw, ok := q[name]
	if !ok {
		return nil
	}
	ids := []generic.EmployeeID{}
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				ids = append(ids, generic.EmployeeID(part))
			}
		}
	}
	return ids
}

func optionalID[T ~string](s string) *T {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	id := T(s)
	return &id
}

func parseInt(s, field string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, generic.NewValidation(field, "must be an integer")
	}
	return n, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads a JSON body and validates it.
func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return generic.NewValidation("body", "invalid JSON: %v", err)
	}
	return generic.CheckStruct(h.validate, dst)
}

// decodeOptional is decode for endpoints whose body may be empty.
func (h *Handler) decodeOptional(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return generic.NewValidation("body", "invalid JSON: %v", err)
	}
	return generic.CheckStruct(h.validate, dst)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeServiceError maps the error taxonomy to a status code. Infrastructure
// details are not sent to the client.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		verr *generic.ValidationError
		nerr *generic.NotFoundError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: verr.Message, Code: "validation", Details: verr.Field})
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	case errors.As(err, &nerr):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Not found", Code: "not_found", Details: nerr.Kind + " " + nerr.Key})
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case generic.IsDuplicate(err):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "Conflict", Code: "duplicate", Details: err.Error()})
	default:
		log.Error().Err(err).Msg("Request failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal error", Code: "internal"})
	}
}
