/*
Package reports builds the read models of the compliance engine.

PURPOSE:
  Four reports over one tenant's assignment population:
    - ComplianceReport:  totals, percentages, breakdowns by site and item
    - OverdueReport:     flat list of overdue assignments
    - CompletionReport:  paginated completion details
    - SkillsMatrix:      dense employee × learning item grid

  Every report classifies rows through training.IsOverdue / training.Resolve,
  so "overdue" means the same thing everywhere. No report writes.

CALLER:
  Every operation takes a generic.Caller. Only its tenant id scopes the data;
  "my team" views are expressed by the caller passing EmployeeIDs.

SEE ALSO:
  - training/status.go: The shared resolver
  - api/handlers.go: HTTP surface
*/
package reports

import (
	"context"

	"github.com/warp/compliance-engine/generic"
	"github.com/warp/compliance-engine/lookup"
	"github.com/warp/compliance-engine/training"
)

type Service struct {
	Training training.Reader
	Lookups  *lookup.Engine
	Clock    generic.Clock
}

func NewService(store training.Reader, lookups *lookup.Engine, clock generic.Clock) *Service {
	if clock == nil {
		clock = generic.SystemClock{}
	}
	return &Service{Training: store, Lookups: lookups, Clock: clock}
}

// =============================================================================
// SHARED LOADERS
// =============================================================================

// directory holds the reference rows reports join against.
type directory struct {
	employees map[generic.EmployeeID]training.Employee
	sites     map[generic.SiteID]training.Site
	items     map[generic.LearningItemID]training.LearningItem
}

func (s *Service) loadSites(ctx context.Context, tenant generic.TenantID) (map[generic.SiteID]training.Site, error) {
	sites, err := s.Training.ListSites(ctx, tenant)
	if err != nil {
		return nil, generic.Infrastructure("reports.list_sites", err)
	}
	out := make(map[generic.SiteID]training.Site, len(sites))
	for _, site := range sites {
		out[site.ID] = site
	}
	return out, nil
}

func (s *Service) loadItems(ctx context.Context, tenant generic.TenantID, ids []generic.LearningItemID) (map[generic.LearningItemID]training.LearningItem, error) {
	items, err := s.Training.ListLearningItems(ctx, tenant, ids)
	if err != nil {
		return nil, generic.Infrastructure("reports.list_learning_items", err)
	}
	out := make(map[generic.LearningItemID]training.LearningItem, len(items))
	for _, item := range items {
		out[item.ID] = item
	}
	return out, nil
}

func (s *Service) loadEmployees(ctx context.Context, tenant generic.TenantID, filter training.EmployeeFilter) ([]training.Employee, error) {
	employees, err := s.Training.ListEmployees(ctx, tenant, filter)
	if err != nil {
		return nil, generic.Infrastructure("reports.list_employees", err)
	}
	return employees, nil
}

func begin(caller generic.Caller, ranges ...generic.DateRange) error {
	if err := caller.Validate(); err != nil {
		return err
	}
	for _, r := range ranges {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func siteName(sites map[generic.SiteID]training.Site, id *generic.SiteID) string {
	if id == nil {
		return ""
	}
	return sites[*id].Name
}
