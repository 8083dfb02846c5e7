/*
scheduler.go - Overdue, reminder and recurrence sweep

PURPOSE:
  Periodically walks every tenant's assignments and keeps the persisted
  state in line with the calendar:
  1. Pending rows past their due date get status "overdue"
  2. Overdue rows get a reminder, at most MaxReminders times and no more
     often than ReminderInterval
  3. Recurring items whose latest cycle is completed get their next cycle
     once its required date has arrived

  Reports never depend on the sweep: they re-derive overdue-ness from the
  due date. The sweep only keeps the stored status and reminders current.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Rows are collected from the stream first and mutated afterwards, so no
    store call happens while a stream is open
  - One tenant failing does not stop the others; failures land in
    SweepSummary.Errors
  - Next-cycle ids are derived from the previous cycle's id, so two sweeps
    racing on the same row write the same assignment

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - ReminderInterval: Minimum gap between reminders (default: 72 hours)
  - MaxReminders: Reminders per assignment (default: 3)
  - Enabled: Whether the background loop runs (default: true)

USAGE:
  scheduler := NewSweepScheduler(store, LogNotifier{}, clock)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RunSweep endpoint (manual sweep)
  - training/status.go: IsOverdue
*/
package api

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/warp/compliance-engine/generic"
	"github.com/warp/compliance-engine/training"
)

// =============================================================================
// NOTIFIER
// =============================================================================

// Reminder is one overdue notice for one assignment.
type Reminder struct {
	TenantID       generic.TenantID
	AssignmentID   generic.AssignmentID
	EmployeeID     generic.EmployeeID
	EmployeeName   string
	LearningItemID generic.LearningItemID
	ItemTitle      string
	DueDate        time.Time
	DaysOverdue    int
	Number         int // 1 for the first reminder
}

// Notifier delivers reminders.
type Notifier interface {
	Remind(ctx context.Context, r Reminder) error
}

// LogNotifier writes reminders to the log.
type LogNotifier struct{}

func (LogNotifier) Remind(_ context.Context, r Reminder) error {
	log.Info().
		Str("component", "scheduler").
		Str("tenant", string(r.TenantID)).
		Str("assignment", string(r.AssignmentID)).
		Str("employee", r.EmployeeName).
		Str("item", r.ItemTitle).
		Int("days_overdue", r.DaysOverdue).
		Int("reminder", r.Number).
		Msg("Overdue training reminder")
	return nil
}

// =============================================================================
// SCHEDULER
// =============================================================================

// SweepSummary counts what one sweep changed.
type SweepSummary struct {
	StartedAt     time.Time `json:"started_at"`
	Tenants       int       `json:"tenants"`
	MarkedOverdue int       `json:"marked_overdue"`
	RemindersSent int       `json:"reminders_sent"`
	CyclesCreated int       `json:"cycles_created"`
	Errors        []string  `json:"errors,omitempty"`
}

// SweepScheduler runs the sweep on a ticker.
type SweepScheduler struct {
	Store            training.Store
	Notifier         Notifier
	Clock            generic.Clock
	CheckInterval    time.Duration
	ReminderInterval time.Duration
	MaxReminders     int
	Enabled          bool

	ticker  *time.Ticker
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	sweepMu sync.Mutex
}

// NewSweepScheduler creates a scheduler with default settings.
func NewSweepScheduler(store training.Store, notifier Notifier, clock generic.Clock) *SweepScheduler {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	if clock == nil {
		clock = generic.SystemClock{}
	}
	return &SweepScheduler{
		Store:            store,
		Notifier:         notifier,
		Clock:            clock,
		CheckInterval:    time.Hour,
		ReminderInterval: 72 * time.Hour,
		MaxReminders:     3,
		Enabled:          true,
	}
}

// Start begins the background loop.
func (s *SweepScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		log.Info().Str("component", "scheduler").Msg("Disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan struct{})
	s.wg.Add(1)

	go s.run(s.ticker.C, s.stop)

	log.Info().Str("component", "scheduler").Dur("interval", s.CheckInterval).Msg("Started")
}

// Stop stops the loop and waits for a running sweep to finish.
func (s *SweepScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.ticker = nil
		log.Info().Str("component", "scheduler").Msg("Stopped")
	}
}

func (s *SweepScheduler) run(tick <-chan time.Time, stop <-chan struct{}) {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	// Run immediately on start
	s.sweepAndLog(ctx)

	for {
		select {
		case <-tick:
			s.sweepAndLog(ctx)
		case <-stop:
			return
		}
	}
}

func (s *SweepScheduler) sweepAndLog(ctx context.Context) {
	summary, err := s.Sweep(ctx)
	if err != nil {
		log.Error().Str("component", "scheduler").Err(err).Msg("Sweep failed")
		return
	}
	ev := log.Info()
	if len(summary.Errors) > 0 {
		ev = log.Warn().Strs("errors", summary.Errors)
	}
	ev.Str("component", "scheduler").
		Int("tenants", summary.Tenants).
		Int("marked_overdue", summary.MarkedOverdue).
		Int("reminders", summary.RemindersSent).
		Int("cycles", summary.CyclesCreated).
		Msg("Sweep completed")
}

// Sweep runs one pass over every tenant. Overlapping calls are serialized.
func (s *SweepScheduler) Sweep(ctx context.Context) (summary SweepSummary, err error) {
	defer generic.Recover("scheduler.sweep", &err)

	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	now := s.Clock.Now()
	summary.StartedAt = now

	tenants, err := s.Store.ListTenants(ctx)
	if err != nil {
		return summary, generic.Infrastructure("scheduler.list_tenants", err)
	}

	for _, tenant := range tenants {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Tenants++
		if err := s.sweepTenant(ctx, tenant, now, &summary); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", tenant, err))
		}
	}
	return summary, nil
}

// =============================================================================
// PER-TENANT PASS
// =============================================================================

func (s *SweepScheduler) sweepTenant(ctx context.Context, tenant generic.TenantID, now time.Time, summary *SweepSummary) error {
	var rows []training.Assignment
	err := s.Store.StreamAssignments(ctx, tenant, training.AssignmentFilter{}, func(row training.AssignmentRow) error {
		rows = append(rows, row.Assignment)
		return nil
	})
	if err != nil {
		return fmt.Errorf("stream assignments: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	// 1. Persist overdue status
	var pastDue []generic.AssignmentID
	for i := range rows {
		if rows[i].Status == training.StatusPending && training.IsOverdue(rows[i].Status, rows[i].DueDate, now) {
			pastDue = append(pastDue, rows[i].ID)
			rows[i].Status = training.StatusOverdue
		}
	}
	if len(pastDue) > 0 {
		n, err := s.Store.MarkOverdue(ctx, tenant, pastDue)
		if err != nil {
			return fmt.Errorf("mark overdue: %w", err)
		}
		summary.MarkedOverdue += n
	}

	employees, items, err := s.directory(ctx, tenant)
	if err != nil {
		return err
	}

	// Deactivated employees keep their overdue status but get no reminders
	// and no new cycles.
	active := make([]training.Assignment, 0, len(rows))
	for _, a := range rows {
		if _, ok := employees[a.EmployeeID]; ok {
			active = append(active, a)
		}
	}

	// 2. Reminders
	for _, a := range active {
		if !s.reminderDue(a, now) {
			continue
		}
		r := Reminder{
			TenantID:       tenant,
			AssignmentID:   a.ID,
			EmployeeID:     a.EmployeeID,
			EmployeeName:   employees[a.EmployeeID].FullName,
			LearningItemID: a.LearningItemID,
			ItemTitle:      items[a.LearningItemID].Title,
			DueDate:        a.DueDate,
			DaysOverdue:    generic.DaysOverdue(a.DueDate, now),
			Number:         a.ReminderCount + 1,
		}
		if err := s.Notifier.Remind(ctx, r); err != nil {
			return fmt.Errorf("remind %s: %w", a.ID, err)
		}
		if err := s.Store.RecordReminder(ctx, tenant, a.ID, now); err != nil {
			return fmt.Errorf("record reminder %s: %w", a.ID, err)
		}
		summary.RemindersSent++
	}

	// 3. Recurrence
	for _, next := range nextCycles(active, items, now) {
		if err := s.Store.SaveAssignment(ctx, next); err != nil {
			return fmt.Errorf("create next cycle %s: %w", next.ID, err)
		}
		summary.CyclesCreated++
	}
	return nil
}

func (s *SweepScheduler) reminderDue(a training.Assignment, now time.Time) bool {
	if a.Status != training.StatusOverdue || a.ReminderCount >= s.MaxReminders {
		return false
	}
	return a.LastReminderAt == nil || !a.LastReminderAt.Add(s.ReminderInterval).After(now)
}

func (s *SweepScheduler) directory(ctx context.Context, tenant generic.TenantID) (
	map[generic.EmployeeID]training.Employee,
	map[generic.LearningItemID]training.LearningItem,
	error,
) {
	emps, err := s.Store.ListEmployees(ctx, tenant, training.EmployeeFilter{})
	if err != nil {
		return nil, nil, fmt.Errorf("list employees: %w", err)
	}
	list, err := s.Store.ListLearningItems(ctx, tenant, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("list learning items: %w", err)
	}

	employees := make(map[generic.EmployeeID]training.Employee, len(emps))
	for _, e := range emps {
		employees[e.ID] = e
	}
	items := make(map[generic.LearningItemID]training.LearningItem, len(list))
	for _, it := range list {
		items[it.ID] = it
	}
	return employees, items, nil
}

var cycleNamespace = uuid.MustParse("0b8f3a52-4d7e-4f55-8d0a-9e61c2f7d4b3")

// nextCycles returns the assignments to create for recurring items: one per
// pair whose latest row (by due date) is completed and whose next required
// date is not in the future.
func nextCycles(rows []training.Assignment, items map[generic.LearningItemID]training.LearningItem, now time.Time) []training.Assignment {
	latest := make(map[generic.PairKey]training.Assignment)
	for _, a := range rows {
		cur, ok := latest[a.Pair()]
		if !ok || a.DueDate.After(cur.DueDate) {
			latest[a.Pair()] = a
		}
	}

	var out []training.Assignment
	for _, a := range latest {
		item, ok := items[a.LearningItemID]
		if !ok || !item.Frequency.IsRecurring() || a.Status != training.StatusCompleted {
			continue
		}
		required := item.Frequency.Advance(a.RequiredDate)
		if required.After(now) {
			continue
		}
		out = append(out, training.Assignment{
			ID:             generic.AssignmentID(uuid.NewSHA1(cycleNamespace, []byte(a.ID)).String()),
			TenantID:       a.TenantID,
			EmployeeID:     a.EmployeeID,
			LearningItemID: a.LearningItemID,
			RequiredDate:   required,
			DueDate:        item.Frequency.Advance(a.DueDate),
			Status:         training.StatusPending,
			CreatedAt:      now,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
