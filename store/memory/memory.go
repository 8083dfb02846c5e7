// Package memory provides an in-memory implementation of training.Store and
// lookup.Store (for testing/dev). It mirrors the SQLite store's semantics:
// tenant filtering, soft deletes and unique-code enforcement.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/compliance-engine/generic"
	"github.com/warp/compliance-engine/lookup"
	"github.com/warp/compliance-engine/training"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Store struct {
	mu sync.RWMutex

	sites       map[generic.SiteID]training.Site
	employees   map[generic.EmployeeID]training.Employee
	items       map[generic.LearningItemID]training.LearningItem
	assignments map[generic.AssignmentID]training.Assignment
	completions map[generic.AssignmentID]training.Completion
	order       []generic.AssignmentID // insertion order, for stable streaming

	categories   map[string]lookup.Category
	globals      map[string]lookup.Value
	tenantValues map[string]lookup.TenantValue
}

func New() *Store {
	return &Store{
		sites:        make(map[generic.SiteID]training.Site),
		employees:    make(map[generic.EmployeeID]training.Employee),
		items:        make(map[generic.LearningItemID]training.LearningItem),
		assignments:  make(map[generic.AssignmentID]training.Assignment),
		completions:  make(map[generic.AssignmentID]training.Completion),
		categories:   make(map[string]lookup.Category),
		globals:      make(map[string]lookup.Value),
		tenantValues: make(map[string]lookup.TenantValue),
	}
}

var (
	_ training.Store = (*Store)(nil)
	_ lookup.Store   = (*Store)(nil)
)

// =============================================================================
// TRAINING - READ
// =============================================================================

func (m *Store) ListTenants(_ context.Context) ([]generic.TenantID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[generic.TenantID]bool)
	for _, e := range m.employees {
		seen[e.TenantID] = true
	}
	out := make([]generic.TenantID, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *Store) ListSites(_ context.Context, tenant generic.TenantID) ([]training.Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []training.Site
	for _, s := range m.sites {
		if s.TenantID == tenant {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Store) ListEmployees(_ context.Context, tenant generic.TenantID, filter training.EmployeeFilter) ([]training.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := idSet(filter.EmployeeIDs)
	var out []training.Employee
	for _, e := range m.employees {
		if !m.employeeInScope(e, tenant, filter.SiteID, filter.EmployeeIDs != nil, ids, !filter.IncludeInactive) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FullName != out[j].FullName {
			return out[i].FullName < out[j].FullName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Store) GetEmployee(_ context.Context, tenant generic.TenantID, id generic.EmployeeID) (*training.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.employees[id]
	if !ok || e.TenantID != tenant || e.DeletedAt != nil {
		return nil, nil
	}
	return &e, nil
}

func (m *Store) ListLearningItems(_ context.Context, tenant generic.TenantID, ids []generic.LearningItemID) ([]training.LearningItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	want := make(map[generic.LearningItemID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []training.LearningItem
	for _, item := range m.items {
		if item.TenantID != tenant || item.DeletedAt != nil {
			continue
		}
		if ids != nil && !want[item.ID] {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *Store) GetLearningItem(_ context.Context, tenant generic.TenantID, id generic.LearningItemID) (*training.LearningItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[id]
	if !ok || item.TenantID != tenant || item.DeletedAt != nil {
		return nil, nil
	}
	return &item, nil
}

func (m *Store) StreamAssignments(ctx context.Context, tenant generic.TenantID, filter training.AssignmentFilter, fn func(training.AssignmentRow) error) error {
	rows := m.snapshotAssignments(tenant, filter)
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

// snapshotAssignments copies matching rows under the read lock so fn may
// call back into the store.
func (m *Store) snapshotAssignments(tenant generic.TenantID, filter training.AssignmentFilter) []training.AssignmentRow {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := idSet(filter.EmployeeIDs)
	var out []training.AssignmentRow
	for _, id := range m.order {
		a := m.assignments[id]
		if a.TenantID != tenant {
			continue
		}
		if a.Status == training.StatusCancelled && !filter.IncludeCancelled {
			continue
		}
		if filter.Statuses != nil && !containsStatus(filter.Statuses, a.Status) {
			continue
		}
		if !filter.RequiredDate.Contains(a.RequiredDate) {
			continue
		}
		if filter.LearningItemID != nil && a.LearningItemID != *filter.LearningItemID {
			continue
		}
		item, ok := m.items[a.LearningItemID]
		if !ok || item.TenantID != tenant || item.DeletedAt != nil {
			continue
		}
		if filter.Category != nil && item.Category != *filter.Category {
			continue
		}
		e, ok := m.employees[a.EmployeeID]
		narrowed := filter.SiteID != nil || filter.EmployeeIDs != nil
		if !ok || !m.employeeInScope(e, tenant, filter.SiteID, filter.EmployeeIDs != nil, ids, narrowed) {
			continue
		}
		row := training.AssignmentRow{Assignment: a}
		if c, ok := m.completions[a.ID]; ok {
			cc := c
			row.Completion = &cc
		}
		out = append(out, row)
	}
	return out
}

func (m *Store) ListCompletions(_ context.Context, tenant generic.TenantID, filter training.CompletionFilter, page generic.PageRequest) ([]training.CompletionRow, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := idSet(filter.EmployeeIDs)
	var all []training.CompletionRow
	for aid, c := range m.completions {
		a, ok := m.assignments[aid]
		if !ok || a.TenantID != tenant {
			continue
		}
		if !filter.CompletedAt.Contains(c.CompletedAt) {
			continue
		}
		if filter.LearningItemID != nil && a.LearningItemID != *filter.LearningItemID {
			continue
		}
		item, ok := m.items[a.LearningItemID]
		if !ok || item.DeletedAt != nil {
			continue
		}
		e, ok := m.employees[a.EmployeeID]
		if !ok || e.TenantID != tenant || e.DeletedAt != nil {
			continue
		}
		if filter.SiteID != nil && (e.SiteID == nil || *e.SiteID != *filter.SiteID) {
			continue
		}
		if filter.EmployeeIDs != nil && !ids[e.ID] {
			continue
		}
		all = append(all, training.CompletionRow{Assignment: a, Completion: c})
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].Completion.CompletedAt.Equal(all[j].Completion.CompletedAt) {
			return all[i].Completion.CompletedAt.After(all[j].Completion.CompletedAt)
		}
		return all[i].Assignment.ID < all[j].Assignment.ID
	})
	p := generic.NewPage(all, page)
	return p.Items, p.TotalCount, nil
}

func (m *Store) employeeInScope(e training.Employee, tenant generic.TenantID, site *generic.SiteID, restrict bool, ids map[generic.EmployeeID]bool, activeOnly bool) bool {
	if e.TenantID != tenant || e.DeletedAt != nil {
		return false
	}
	if activeOnly && !e.IsActive {
		return false
	}
	if site != nil && (e.SiteID == nil || *e.SiteID != *site) {
		return false
	}
	if restrict && !ids[e.ID] {
		return false
	}
	return true
}

// =============================================================================
// TRAINING - WRITE
// =============================================================================

func (m *Store) SaveSite(_ context.Context, s training.Site) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sites[s.ID] = s
	return nil
}

func (m *Store) SaveEmployee(_ context.Context, e training.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[e.ID] = e
	return nil
}

func (m *Store) SaveLearningItem(_ context.Context, item training.LearningItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, other := range m.items {
		if other.ID != item.ID && other.TenantID == item.TenantID && other.Code == item.Code && other.DeletedAt == nil {
			return generic.ErrDuplicate
		}
	}
	m.items[item.ID] = item
	return nil
}

func (m *Store) SaveAssignment(_ context.Context, a training.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.employees[a.EmployeeID]
	if !ok || e.TenantID != a.TenantID {
		return generic.NewValidation("employee_id", "unknown employee %s", a.EmployeeID)
	}
	item, ok := m.items[a.LearningItemID]
	if !ok || item.TenantID != a.TenantID {
		return generic.NewValidation("learning_item_id", "unknown learning item %s", a.LearningItemID)
	}
	if _, exists := m.assignments[a.ID]; !exists {
		m.order = append(m.order, a.ID)
	}
	m.assignments[a.ID] = a
	return nil
}

func (m *Store) StartAssignment(_ context.Context, tenant generic.TenantID, id generic.AssignmentID, at *training.GeoPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.assignments[id]
	if !ok || a.TenantID != tenant {
		return generic.NewNotFound("assignment", string(id))
	}
	if a.Status != training.StatusPending && a.Status != training.StatusOverdue {
		return generic.NewValidation("status", "cannot start an assignment in status %s", a.Status)
	}
	a.Status = training.StatusInProgress
	a.StartLocation = at
	m.assignments[id] = a
	return nil
}

func (m *Store) CompleteAssignment(_ context.Context, tenant generic.TenantID, c training.Completion) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.assignments[c.AssignmentID]
	if !ok || a.TenantID != tenant {
		return generic.NewNotFound("assignment", string(c.AssignmentID))
	}
	if _, done := m.completions[c.AssignmentID]; done {
		return generic.ErrDuplicate
	}
	if a.Status == training.StatusCancelled {
		return generic.NewValidation("status", "cannot complete a cancelled assignment")
	}
	a.Status = training.StatusCompleted
	m.assignments[a.ID] = a
	m.completions[a.ID] = c
	return nil
}

func (m *Store) CancelAssignment(_ context.Context, tenant generic.TenantID, id generic.AssignmentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.assignments[id]
	if !ok || a.TenantID != tenant {
		return generic.NewNotFound("assignment", string(id))
	}
	if a.Status == training.StatusCompleted {
		return generic.NewValidation("status", "cannot cancel a completed assignment")
	}
	a.Status = training.StatusCancelled
	m.assignments[id] = a
	return nil
}

func (m *Store) MarkOverdue(_ context.Context, tenant generic.TenantID, ids []generic.AssignmentID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, id := range ids {
		a, ok := m.assignments[id]
		if !ok || a.TenantID != tenant || a.Status != training.StatusPending {
			continue
		}
		a.Status = training.StatusOverdue
		m.assignments[id] = a
		n++
	}
	return n, nil
}

func (m *Store) RecordReminder(_ context.Context, tenant generic.TenantID, id generic.AssignmentID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.assignments[id]
	if !ok || a.TenantID != tenant {
		return generic.NewNotFound("assignment", string(id))
	}
	a.ReminderCount++
	a.LastReminderAt = &at
	m.assignments[id] = a
	return nil
}

// =============================================================================
// LOOKUP
// =============================================================================

func (m *Store) GetCategoryByName(_ context.Context, name string) (*lookup.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.categories {
		if c.Name == name {
			return &c, nil
		}
	}
	return nil, nil
}

func (m *Store) ListCategories(_ context.Context) ([]lookup.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]lookup.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Store) SaveCategory(_ context.Context, c lookup.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, other := range m.categories {
		if other.ID != c.ID && other.Name == c.Name {
			return generic.ErrDuplicate
		}
	}
	m.categories[c.ID] = c
	return nil
}

func (m *Store) ListGlobalValues(_ context.Context, categoryID string) ([]lookup.Value, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []lookup.Value
	for _, v := range m.globals {
		if v.CategoryID == categoryID && v.IsActive {
			v.Metadata = v.Metadata.Clone()
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (m *Store) GetGlobalValue(_ context.Context, categoryID, id string) (*lookup.Value, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.globals[id]
	if !ok || v.CategoryID != categoryID {
		return nil, nil
	}
	v.Metadata = v.Metadata.Clone()
	return &v, nil
}

func (m *Store) SaveGlobalValue(_ context.Context, v lookup.Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, other := range m.globals {
		if other.ID != v.ID && other.CategoryID == v.CategoryID && other.Code == v.Code {
			return generic.ErrDuplicate
		}
	}
	m.globals[v.ID] = v
	return nil
}

func (m *Store) ListTenantValues(_ context.Context, tenant generic.TenantID, categoryID string) ([]lookup.TenantValue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []lookup.TenantValue
	for _, v := range m.tenantValues {
		if v.TenantID == tenant && v.CategoryID == categoryID && v.DeletedAt == nil {
			v.Metadata = v.Metadata.Clone()
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *Store) GetTenantValue(_ context.Context, tenant generic.TenantID, categoryID, id string) (*lookup.TenantValue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.tenantValues[id]
	if !ok || v.TenantID != tenant || v.CategoryID != categoryID {
		return nil, nil
	}
	v.Metadata = v.Metadata.Clone()
	return &v, nil
}

func (m *Store) FindOverride(_ context.Context, tenant generic.TenantID, categoryID, globalID string) (*lookup.TenantValue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, v := range m.tenantValues {
		if v.TenantID != tenant || v.CategoryID != categoryID || v.DeletedAt != nil {
			continue
		}
		if gid, ok := v.Kind.GlobalID(); ok && gid == globalID {
			v.Metadata = v.Metadata.Clone()
			return &v, nil
		}
	}
	return nil, nil
}

func (m *Store) InsertTenantValue(_ context.Context, v lookup.TenantValue) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.codeTakenLocked(v) {
		return generic.ErrDuplicate
	}
	if _, exists := m.tenantValues[v.ID]; exists {
		return generic.ErrDuplicate
	}
	m.tenantValues[v.ID] = v
	return nil
}

func (m *Store) UpdateTenantValue(_ context.Context, v lookup.TenantValue) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tenantValues[v.ID]; !exists {
		return generic.NewNotFound("tenant_lookup_value", v.ID)
	}
	if v.DeletedAt == nil && m.codeTakenLocked(v) {
		return generic.ErrDuplicate
	}
	m.tenantValues[v.ID] = v
	return nil
}

func (m *Store) codeTakenLocked(v lookup.TenantValue) bool {
	for _, other := range m.tenantValues {
		if other.ID == v.ID || other.DeletedAt != nil {
			continue
		}
		if other.TenantID == v.TenantID && other.CategoryID == v.CategoryID && other.Code == v.Code {
			return true
		}
	}
	return false
}

// =============================================================================
// HELPERS
// =============================================================================

func idSet(ids []generic.EmployeeID) map[generic.EmployeeID]bool {
	set := make(map[generic.EmployeeID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func containsStatus(set []training.Status, s training.Status) bool {
	for _, x := range set {
		if x == s {
			return true
		}
	}
	return false
}

// Reset drops all rows.
func (m *Store) Reset(_ context.Context) error {
	fresh := New()
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sites = fresh.sites
	m.employees = fresh.employees
	m.items = fresh.items
	m.assignments = fresh.assignments
	m.completions = fresh.completions
	m.order = nil
	m.categories = fresh.categories
	m.globals = fresh.globals
	m.tenantValues = fresh.tenantValues
	return nil
}
