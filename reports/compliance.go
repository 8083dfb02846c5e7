/*
compliance.go - Compliance aggregator

PURPOSE:
  Counts assignment rows in scope into completed / overdue / in progress /
  pending buckets, overall and per site and per learning item.

SCOPE:
  Employees: active, non-deleted, optional site and id list.
  Assignments: required date within [DateFrom, DateTo], cancelled rows
  excluded. A site or id filter restricts them to the employee scope;
  without one, rows of deactivated employees still count. Rows are
  streamed; only counters are kept.

PERCENTAGES:
  completed / assigned × 100, two decimals, exactly 0 with no assignments.
  Quiz metrics per item are computed over completions that carry a score and
  a positive max score, and are nil when none do.
*/
package reports

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/warp/compliance-engine/generic"
	"github.com/warp/compliance-engine/training"
)

// itemTally accumulates one learning item's counts and quiz results.
type itemTally struct {
	counts     training.Counts
	quizScores []decimal.Decimal
	quizPassed int
}

func (t *itemTally) addQuiz(item training.LearningItem, c *training.Completion) {
	if c == nil || !c.HasQuiz() {
		return
	}
	// Unrounded, so the item average is rounded once.
	pct := generic.ScoreRatio(c.QuizScore, c.QuizMaxScore)
	t.quizScores = append(t.quizScores, *pct)
	if quizPassed(item, c, *pct) {
		t.quizPassed++
	}
}

// quizPassed trusts the recorded flag, falling back to the item threshold.
func quizPassed(item training.LearningItem, c *training.Completion, pct decimal.Decimal) bool {
	if c.QuizPassed != nil {
		return *c.QuizPassed
	}
	return pct.GreaterThanOrEqual(decimal.NewFromInt(int64(item.QuizPassThreshold)))
}

// ComplianceReport aggregates the tenant's assignment population.
func (s *Service) ComplianceReport(ctx context.Context, caller generic.Caller, filter ComplianceFilter) (report *ComplianceReport, err error) {
	defer generic.Recover("reports.compliance", &err)
	defer func() { generic.LogFailure("reports.compliance", caller.TenantID, err) }()

	if err := begin(caller, filter.dateRange()); err != nil {
		return nil, err
	}
	tenant := caller.TenantID
	now := s.Clock.Now()

	var (
		employees []training.Employee
		sites     map[generic.SiteID]training.Site
		items     map[generic.LearningItemID]training.LearningItem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		employees, err = s.loadEmployees(gctx, tenant, training.EmployeeFilter{
			SiteID:          filter.SiteID,
			EmployeeIDs:     filter.EmployeeIDs,
			IncludeInactive: true,
		})
		return err
	})
	g.Go(func() (err error) {
		sites, err = s.loadSites(gctx, tenant)
		return err
	})
	g.Go(func() (err error) {
		items, err = s.loadItems(gctx, tenant, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Inactive employees are loaded only for site attribution.
	headcount := 0
	siteOf := make(map[generic.EmployeeID]generic.SiteID, len(employees))
	siteHeadcount := make(map[generic.SiteID]int)
	for _, e := range employees {
		if e.IsActive {
			headcount++
		}
		if e.SiteID == nil {
			continue
		}
		siteOf[e.ID] = *e.SiteID
		if e.IsActive {
			siteHeadcount[*e.SiteID]++
		}
	}

	var total training.Counts
	bySite := make(map[generic.SiteID]*training.Counts)
	byItem := make(map[generic.LearningItemID]*itemTally)

	err = s.Training.StreamAssignments(ctx, tenant, training.AssignmentFilter{
		RequiredDate: filter.dateRange(),
		SiteID:       filter.SiteID,
		EmployeeIDs:  filter.EmployeeIDs,
	}, func(row training.AssignmentRow) error {
		a := row.Assignment
		bucket := training.Classify(a, now)
		if bucket == training.BucketCancelled {
			return nil
		}
		total.Add(bucket)

		if site, ok := siteOf[a.EmployeeID]; ok {
			c := bySite[site]
			if c == nil {
				c = &training.Counts{}
				bySite[site] = c
			}
			c.Add(bucket)
		}

		t := byItem[a.LearningItemID]
		if t == nil {
			t = &itemTally{}
			byItem[a.LearningItemID] = t
		}
		t.counts.Add(bucket)
		if bucket == training.BucketCompleted {
			t.addQuiz(items[a.LearningItemID], row.Completion)
		}
		return nil
	})
	if err != nil {
		return nil, generic.Infrastructure("reports.stream_assignments", err)
	}

	report = &ComplianceReport{
		TenantID:             tenant,
		GeneratedAt:          now,
		DateFrom:             filter.DateFrom,
		DateTo:               filter.DateTo,
		TotalEmployees:       headcount,
		AssignedCount:        total.Assigned,
		CompletedCount:       total.Completed,
		OverdueCount:         total.Overdue,
		PendingCount:         total.Pending,
		InProgressCount:      total.InProgress,
		CompliancePercentage: total.CompliancePercent(),
		BySite:               siteBreakdown(bySite, sites, siteHeadcount),
		ByLearningItem:       itemBreakdown(byItem, items),
	}
	return report, nil
}

func siteBreakdown(bySite map[generic.SiteID]*training.Counts, sites map[generic.SiteID]training.Site, headcount map[generic.SiteID]int) []SiteCompliance {
	out := make([]SiteCompliance, 0, len(bySite))
	for id, c := range bySite {
		name := sites[id].Name
		if name == "" {
			name = string(id)
		}
		out = append(out, SiteCompliance{
			SiteID:               id,
			SiteName:             name,
			EmployeeCount:        headcount[id],
			AssignedCount:        c.Assigned,
			CompletedCount:       c.Completed,
			OverdueCount:         c.Overdue,
			PendingCount:         c.Pending,
			InProgressCount:      c.InProgress,
			CompliancePercentage: c.CompliancePercent(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if cmp := out[i].CompliancePercentage.Cmp(out[j].CompliancePercentage); cmp != 0 {
			return cmp > 0
		}
		return out[i].SiteName < out[j].SiteName
	})
	return out
}

func itemBreakdown(byItem map[generic.LearningItemID]*itemTally, items map[generic.LearningItemID]training.LearningItem) []ItemCompliance {
	out := make([]ItemCompliance, 0, len(byItem))
	for id, t := range byItem {
		item := items[id]
		row := ItemCompliance{
			LearningItemID:       id,
			Code:                 item.Code,
			Title:                item.Title,
			Category:             item.Category,
			AssignedCount:        t.counts.Assigned,
			CompletedCount:       t.counts.Completed,
			OverdueCount:         t.counts.Overdue,
			PendingCount:         t.counts.Pending,
			InProgressCount:      t.counts.InProgress,
			CompliancePercentage: t.counts.CompliancePercent(),
			AverageQuizScore:     generic.Average(t.quizScores),
		}
		if n := len(t.quizScores); n > 0 {
			rate := generic.Percentage(int64(t.quizPassed), int64(n))
			row.QuizPassRate = &rate
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AssignedCount != out[j].AssignedCount {
			return out[i].AssignedCount > out[j].AssignedCount
		}
		return out[i].Title < out[j].Title
	})
	return out
}
