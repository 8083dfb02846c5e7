/*
extract.go - Overdue and completion lists

PURPOSE:
  Flat read models over the same assignment population as the compliance
  report, independent of it but using the same overdue predicate.

  OverdueReport:    one row per overdue assignment, most overdue first
  CompletionReport: completions newest first, paginated
*/
package reports

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/warp/compliance-engine/generic"
	"github.com/warp/compliance-engine/training"
)

var openStatuses = []training.Status{
	training.StatusPending,
	training.StatusInProgress,
	training.StatusOverdue,
}

// =============================================================================
// OVERDUE LIST
// =============================================================================

// OverdueReport lists every overdue assignment in scope, sorted by days
// overdue descending, then due date ascending, then employee name.
func (s *Service) OverdueReport(ctx context.Context, caller generic.Caller, filter ExtractFilter) (list *OverdueList, err error) {
	defer generic.Recover("reports.overdue", &err)
	defer func() { generic.LogFailure("reports.overdue", caller.TenantID, err) }()

	if err := begin(caller, filter.dateRange()); err != nil {
		return nil, err
	}
	tenant := caller.TenantID
	now := s.Clock.Now()

	dir, err := s.loadDirectory(ctx, tenant, filter)
	if err != nil {
		return nil, err
	}

	rows := []OverdueRow{}
	err = s.Training.StreamAssignments(ctx, tenant, training.AssignmentFilter{
		RequiredDate:   filter.dateRange(),
		SiteID:         filter.SiteID,
		EmployeeIDs:    filter.EmployeeIDs,
		LearningItemID: filter.LearningItemID,
		Statuses:       openStatuses,
	}, func(row training.AssignmentRow) error {
		a := row.Assignment
		if !training.IsOverdue(a.Status, a.DueDate, now) {
			return nil
		}
		e := dir.employees[a.EmployeeID]
		item := dir.items[a.LearningItemID]
		rows = append(rows, OverdueRow{
			AssignmentID:   a.ID,
			EmployeeID:     a.EmployeeID,
			EmployeeCode:   e.Code,
			EmployeeName:   e.FullName,
			Department:     e.Department,
			SiteID:         e.SiteID,
			SiteName:       siteName(dir.sites, e.SiteID),
			LearningItemID: a.LearningItemID,
			ItemCode:       item.Code,
			ItemTitle:      item.Title,
			Category:       item.Category,
			RequiredDate:   a.RequiredDate,
			DueDate:        a.DueDate,
			Status:         a.Status,
			DaysOverdue:    generic.DaysOverdue(a.DueDate, now),
			ReminderCount:  a.ReminderCount,
			LastReminderAt: a.LastReminderAt,
		})
		return nil
	})
	if err != nil {
		return nil, generic.Infrastructure("reports.stream_assignments", err)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].DaysOverdue != rows[j].DaysOverdue {
			return rows[i].DaysOverdue > rows[j].DaysOverdue
		}
		if !rows[i].DueDate.Equal(rows[j].DueDate) {
			return rows[i].DueDate.Before(rows[j].DueDate)
		}
		return rows[i].EmployeeName < rows[j].EmployeeName
	})

	return &OverdueList{
		TenantID:    tenant,
		GeneratedAt: now,
		Count:       len(rows),
		Rows:        rows,
	}, nil
}

// loadDirectory fetches employees, sites and items concurrently.
func (s *Service) loadDirectory(ctx context.Context, tenant generic.TenantID, filter ExtractFilter) (*directory, error) {
	dir := &directory{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		employees, err := s.loadEmployees(gctx, tenant, training.EmployeeFilter{
			SiteID:          filter.SiteID,
			EmployeeIDs:     filter.EmployeeIDs,
			IncludeInactive: true,
		})
		if err != nil {
			return err
		}
		dir.employees = make(map[generic.EmployeeID]training.Employee, len(employees))
		for _, e := range employees {
			dir.employees[e.ID] = e
		}
		return nil
	})
	g.Go(func() (err error) {
		dir.sites, err = s.loadSites(gctx, tenant)
		return err
	})
	g.Go(func() (err error) {
		var ids []generic.LearningItemID
		if filter.LearningItemID != nil {
			ids = []generic.LearningItemID{*filter.LearningItemID}
		}
		dir.items, err = s.loadItems(gctx, tenant, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dir, nil
}

// =============================================================================
// COMPLETION LIST
// =============================================================================

// CompletionReport returns one page of completions, newest first.
func (s *Service) CompletionReport(ctx context.Context, caller generic.Caller, filter ExtractFilter, page generic.PageRequest) (result *generic.Page[CompletionRow], err error) {
	defer generic.Recover("reports.completions", &err)
	defer func() { generic.LogFailure("reports.completions", caller.TenantID, err) }()

	if err := begin(caller, filter.dateRange()); err != nil {
		return nil, err
	}
	if page.PageSize > generic.MaxPageSize {
		return nil, generic.NewValidation("page_size", "must be at most %d", generic.MaxPageSize)
	}
	page = page.Normalize()
	tenant := caller.TenantID

	found, total, err := s.Training.ListCompletions(ctx, tenant, training.CompletionFilter{
		CompletedAt:    filter.dateRange(),
		SiteID:         filter.SiteID,
		EmployeeIDs:    filter.EmployeeIDs,
		LearningItemID: filter.LearningItemID,
	}, page)
	if err != nil {
		return nil, generic.Infrastructure("reports.list_completions", err)
	}

	employees, sites, items, err := s.joinCompletions(ctx, tenant, found)
	if err != nil {
		return nil, err
	}

	rows := make([]CompletionRow, 0, len(found))
	for _, r := range found {
		a, c := r.Assignment, r.Completion
		e := employees[a.EmployeeID]
		item := items[a.LearningItemID]
		row := CompletionRow{
			AssignmentID:      a.ID,
			EmployeeID:        a.EmployeeID,
			EmployeeCode:      e.Code,
			EmployeeName:      e.FullName,
			SiteID:            e.SiteID,
			SiteName:          siteName(sites, e.SiteID),
			LearningItemID:    a.LearningItemID,
			ItemCode:          item.Code,
			ItemTitle:         item.Title,
			DueDate:           a.DueDate,
			CompletedAt:       c.CompletedAt,
			CompletedOnTime:   c.CompletedOnTime(a.DueDate),
			TimeSpentSeconds:  c.TimeSpentSeconds,
			VideoWatchPercent: c.VideoWatchPercent,
			QuizScore:         c.QuizScore,
			QuizMaxScore:      c.QuizMaxScore,
			QuizPassed:        c.QuizPassed,
			QuizPercentage:    generic.ScorePercent(c.QuizScore, c.QuizMaxScore, generic.PercentPlaces),
		}
		if c.Signature != nil {
			row.SignedBy = c.Signature.SignedBy
		}
		rows = append(rows, row)
	}

	p := generic.PageOf(rows, total, page)
	return &p, nil
}

// joinCompletions loads only the employees and items referenced by one page.
// Employees are fetched by id so inactive employees keep their history.
func (s *Service) joinCompletions(ctx context.Context, tenant generic.TenantID, rows []training.CompletionRow) (
	map[generic.EmployeeID]training.Employee,
	map[generic.SiteID]training.Site,
	map[generic.LearningItemID]training.LearningItem,
	error,
) {
	employeeIDs := make(map[generic.EmployeeID]bool)
	itemIDs := make(map[generic.LearningItemID]bool)
	var items []generic.LearningItemID
	for _, r := range rows {
		employeeIDs[r.Assignment.EmployeeID] = true
		if !itemIDs[r.Assignment.LearningItemID] {
			itemIDs[r.Assignment.LearningItemID] = true
			items = append(items, r.Assignment.LearningItemID)
		}
	}

	employees := make(map[generic.EmployeeID]training.Employee, len(employeeIDs))
	for id := range employeeIDs {
		e, err := s.Training.GetEmployee(ctx, tenant, id)
		if err != nil {
			return nil, nil, nil, generic.Infrastructure("reports.get_employee", err)
		}
		if e != nil {
			employees[id] = *e
		}
	}

	sites, err := s.loadSites(ctx, tenant)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(items) == 0 {
		return employees, sites, map[generic.LearningItemID]training.LearningItem{}, nil
	}
	itemMap, err := s.loadItems(ctx, tenant, items)
	if err != nil {
		return nil, nil, nil, err
	}
	return employees, sites, itemMap, nil
}
