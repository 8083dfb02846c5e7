/*
matrix.go - Skills matrix builder

PURPOSE:
  Builds a dense employee × learning item grid with one resolved cell per
  pair, including pairs that were never assigned.

POPULATION:
  Columns: learning items that have at least one non-cancelled assignment in
  scope. Never the full catalog.
  Rows (administrative, EmployeeIDs == nil): employees with assignments in
  scope, plus every other active employee.
  Rows (scoped, EmployeeIDs != nil): only employees that appear in the
  filtered assignments.

ALGORITHM:
  Pass 1 indexes the streamed assignments by (employee, item).
  Pass 2 walks rows × columns and resolves each pair from the index.

  index := map[PairKey][]Assignment
  for each row, for each column:
      cell = training.Resolve(index[pair], completions, now)
*/
package reports

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/warp/compliance-engine/generic"
	"github.com/warp/compliance-engine/lookup"
	"github.com/warp/compliance-engine/training"
)

// pairIndex is pass 1 of the matrix build.
type pairIndex struct {
	byPair      map[generic.PairKey][]training.Assignment
	completions map[generic.AssignmentID]training.Completion
	employees   map[generic.EmployeeID]bool
	items       []generic.LearningItemID
	seenItems   map[generic.LearningItemID]bool
}

func newPairIndex() *pairIndex {
	return &pairIndex{
		byPair:      make(map[generic.PairKey][]training.Assignment),
		completions: make(map[generic.AssignmentID]training.Completion),
		employees:   make(map[generic.EmployeeID]bool),
		seenItems:   make(map[generic.LearningItemID]bool),
	}
}

func (x *pairIndex) add(row training.AssignmentRow) {
	a := row.Assignment
	if a.Status == training.StatusCancelled {
		return
	}
	key := a.Pair()
	x.byPair[key] = append(x.byPair[key], a)
	if row.Completion != nil {
		x.completions[a.ID] = *row.Completion
	}
	x.employees[a.EmployeeID] = true
	if !x.seenItems[a.LearningItemID] {
		x.seenItems[a.LearningItemID] = true
		x.items = append(x.items, a.LearningItemID)
	}
}

// SkillsMatrix builds the grid for the caller's tenant.
func (s *Service) SkillsMatrix(ctx context.Context, caller generic.Caller, filter MatrixFilter) (matrix *SkillsMatrix, err error) {
	defer generic.Recover("reports.matrix", &err)
	defer func() { generic.LogFailure("reports.matrix", caller.TenantID, err) }()

	if err := begin(caller); err != nil {
		return nil, err
	}
	tenant := caller.TenantID
	now := s.Clock.Now()
	scoped := filter.EmployeeIDs != nil

	var (
		employees  []training.Employee
		index      = newPairIndex()
		categories map[string]string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		employees, err = s.loadEmployees(gctx, tenant, training.EmployeeFilter{
			EmployeeIDs:     filter.EmployeeIDs,
			IncludeInactive: true,
		})
		return err
	})
	g.Go(func() error {
		err := s.Training.StreamAssignments(gctx, tenant, training.AssignmentFilter{
			EmployeeIDs: filter.EmployeeIDs,
			Category:    filter.Category,
		}, func(row training.AssignmentRow) error {
			index.add(row)
			return nil
		})
		return generic.Infrastructure("reports.stream_assignments", err)
	})
	g.Go(func() (err error) {
		categories, err = s.categoryNames(gctx, tenant)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items, err := s.matrixItems(ctx, tenant, index.items, categories)
	if err != nil {
		return nil, err
	}
	rows := matrixRows(employees, index, scoped)

	// Pass 2: cross-product with O(1) lookups.
	cells := make([]MatrixCell, 0, len(rows)*len(items))
	for _, e := range rows {
		for _, item := range items {
			key := generic.PairKey{EmployeeID: e.ID, LearningItemID: item.ID}
			cell := training.Resolve(index.byPair[key], index.completions, now)
			cells = append(cells, MatrixCell{
				EmployeeID:     e.ID,
				LearningItemID: item.ID,
				Status:         cell.Status,
				AssignmentID:   cell.AssignmentID,
				Score:          cell.Score,
				CompletedAt:    cell.CompletedAt,
				DueDate:        cell.DueDate,
				IsOverdue:      cell.IsOverdue,
				DaysOverdue:    cell.DaysOverdue,
			})
		}
	}

	return &SkillsMatrix{
		TenantID:      tenant,
		GeneratedAt:   now,
		Employees:     rows,
		LearningItems: items,
		Cells:         cells,
	}, nil
}

// categoryNames maps category codes to display names. A tenant without the
// TrainingCategory lookup still gets a matrix with raw category text.
func (s *Service) categoryNames(ctx context.Context, tenant generic.TenantID) (map[string]string, error) {
	if s.Lookups == nil {
		return map[string]string{}, nil
	}
	names, err := s.Lookups.NameIndex(ctx, tenant, lookup.CategoryTrainingCategory)
	if generic.IsNotFound(err) {
		log.Debug().Str("tenant", string(tenant)).Msg("No TrainingCategory lookup, using raw categories")
		return map[string]string{}, nil
	}
	return names, err
}

func (s *Service) matrixItems(ctx context.Context, tenant generic.TenantID, ids []generic.LearningItemID, categories map[string]string) ([]MatrixItem, error) {
	if len(ids) == 0 {
		return []MatrixItem{}, nil
	}
	found, err := s.loadItems(ctx, tenant, ids)
	if err != nil {
		return nil, err
	}
	items := make([]MatrixItem, 0, len(found))
	for _, item := range found {
		name, ok := categories[item.Category]
		if !ok {
			name = item.Category
		}
		items = append(items, MatrixItem{
			ID:           item.ID,
			Code:         item.Code,
			Title:        item.Title,
			Category:     item.Category,
			CategoryName: name,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Code != items[j].Code {
			return items[i].Code < items[j].Code
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

// matrixRows picks the row population from the non-deleted employee list.
// Scoped: employees in the index. Administrative: employees in the index
// plus every other active employee.
func matrixRows(employees []training.Employee, index *pairIndex, scoped bool) []MatrixEmployee {
	rows := make([]MatrixEmployee, 0, len(employees))
	for _, e := range employees {
		if !index.employees[e.ID] && (scoped || !e.InScope()) {
			continue
		}
		rows = append(rows, MatrixEmployee{
			ID:         e.ID,
			Code:       e.Code,
			FullName:   e.FullName,
			Department: e.Department,
			JobTitle:   e.JobTitle,
			SiteID:     e.SiteID,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].FullName != rows[j].FullName {
			return rows[i].FullName < rows[j].FullName
		}
		return rows[i].ID < rows[j].ID
	})
	return rows
}
