package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/warp/compliance-engine/generic"
	"github.com/warp/compliance-engine/training"
)

// =============================================================================
// ROW TYPES
// =============================================================================

type siteRow struct {
	ID       string `db:"id"`
	TenantID string `db:"tenant_id"`
	Name     string `db:"name"`
}

type employeeRow struct {
	ID         string         `db:"id"`
	TenantID   string         `db:"tenant_id"`
	Code       string         `db:"code"`
	FullName   string         `db:"full_name"`
	Department string         `db:"department"`
	JobTitle   string         `db:"job_title"`
	SiteID     sql.NullString `db:"site_id"`
	IsActive   bool           `db:"is_active"`
	DeletedAt  sql.NullString `db:"deleted_at"`
	CreatedAt  string         `db:"created_at"`
}

func (r employeeRow) toDomain() training.Employee {
	e := training.Employee{
		ID:         generic.EmployeeID(r.ID),
		TenantID:   generic.TenantID(r.TenantID),
		Code:       r.Code,
		FullName:   r.FullName,
		Department: r.Department,
		JobTitle:   r.JobTitle,
		IsActive:   r.IsActive,
		DeletedAt:  timePtr(r.DeletedAt),
		CreatedAt:  parseTime(r.CreatedAt),
	}
	if r.SiteID.Valid {
		site := generic.SiteID(r.SiteID.String)
		e.SiteID = &site
	}
	return e
}

type learningItemRow struct {
	ID                string         `db:"id"`
	TenantID          string         `db:"tenant_id"`
	Code              string         `db:"code"`
	Title             string         `db:"title"`
	Category          string         `db:"category"`
	Frequency         string         `db:"frequency"`
	QuizPassThreshold int            `db:"quiz_pass_threshold"`
	QuizQuestionCount int            `db:"quiz_question_count"`
	DeletedAt         sql.NullString `db:"deleted_at"`
	CreatedAt         string         `db:"created_at"`
}

func (r learningItemRow) toDomain() training.LearningItem {
	return training.LearningItem{
		ID:                generic.LearningItemID(r.ID),
		TenantID:          generic.TenantID(r.TenantID),
		Code:              r.Code,
		Title:             r.Title,
		Category:          r.Category,
		Frequency:         training.Frequency(r.Frequency),
		QuizPassThreshold: r.QuizPassThreshold,
		QuizQuestionCount: r.QuizQuestionCount,
		DeletedAt:         timePtr(r.DeletedAt),
		CreatedAt:         parseTime(r.CreatedAt),
	}
}

// assignmentRow is an assignment LEFT JOINed with its completion.
type assignmentRow struct {
	ID             string          `db:"id"`
	TenantID       string          `db:"tenant_id"`
	EmployeeID     string          `db:"employee_id"`
	LearningItemID string          `db:"learning_item_id"`
	RequiredDate   string          `db:"required_date"`
	DueDate        string          `db:"due_date"`
	Status         string          `db:"status"`
	ReminderCount  int             `db:"reminder_count"`
	LastReminderAt sql.NullString  `db:"last_reminder_at"`
	StartLatitude  sql.NullFloat64 `db:"start_latitude"`
	StartLongitude sql.NullFloat64 `db:"start_longitude"`
	CreatedAt      string          `db:"created_at"`

	CompletedAt       sql.NullString  `db:"completed_at"`
	TimeSpentSeconds  sql.NullInt64   `db:"time_spent_seconds"`
	VideoWatchPercent sql.NullInt64   `db:"video_watch_percent"`
	QuizScore         sql.NullInt64   `db:"quiz_score"`
	QuizMaxScore      sql.NullInt64   `db:"quiz_max_score"`
	QuizPassed        sql.NullBool    `db:"quiz_passed"`
	SignedBy          sql.NullString  `db:"signed_by"`
	SignedAt          sql.NullString  `db:"signed_at"`
	SignatureRef      sql.NullString  `db:"signature_ref"`
	Latitude          sql.NullFloat64 `db:"latitude"`
	Longitude         sql.NullFloat64 `db:"longitude"`
}

func (r assignmentRow) assignment() training.Assignment {
	a := training.Assignment{
		ID:             generic.AssignmentID(r.ID),
		TenantID:       generic.TenantID(r.TenantID),
		EmployeeID:     generic.EmployeeID(r.EmployeeID),
		LearningItemID: generic.LearningItemID(r.LearningItemID),
		RequiredDate:   parseTime(r.RequiredDate),
		DueDate:        parseTime(r.DueDate),
		Status:         training.Status(r.Status),
		ReminderCount:  r.ReminderCount,
		LastReminderAt: timePtr(r.LastReminderAt),
		CreatedAt:      parseTime(r.CreatedAt),
	}
	if r.StartLatitude.Valid && r.StartLongitude.Valid {
		a.StartLocation = &training.GeoPoint{Latitude: r.StartLatitude.Float64, Longitude: r.StartLongitude.Float64}
	}
	return a
}

func (r assignmentRow) completion() *training.Completion {
	if !r.CompletedAt.Valid {
		return nil
	}
	c := &training.Completion{
		AssignmentID:      generic.AssignmentID(r.ID),
		CompletedAt:       parseTime(r.CompletedAt.String),
		TimeSpentSeconds:  int(r.TimeSpentSeconds.Int64),
		VideoWatchPercent: int(r.VideoWatchPercent.Int64),
		QuizScore:         intPtr(r.QuizScore),
		QuizMaxScore:      intPtr(r.QuizMaxScore),
		QuizPassed:        boolPtr(r.QuizPassed),
	}
	if r.SignedBy.Valid {
		c.Signature = &training.Signature{
			SignedBy: r.SignedBy.String,
			Ref:      r.SignatureRef.String,
		}
		if at := timePtr(r.SignedAt); at != nil {
			c.Signature.SignedAt = *at
		}
	}
	if r.Latitude.Valid && r.Longitude.Valid {
		c.CompletionLocation = &training.GeoPoint{Latitude: r.Latitude.Float64, Longitude: r.Longitude.Float64}
	}
	return c
}

const assignmentColumns = `
	a.id, a.tenant_id, a.employee_id, a.learning_item_id, a.required_date, a.due_date,
	a.status, a.reminder_count, a.last_reminder_at, a.start_latitude, a.start_longitude,
	a.created_at,
	c.completed_at, c.time_spent_seconds, c.video_watch_percent, c.quiz_score,
	c.quiz_max_score, c.quiz_passed, c.signed_by, c.signed_at, c.signature_ref,
	c.latitude, c.longitude`

// =============================================================================
// TRAINING - READ
// =============================================================================

func (s *Store) ListTenants(ctx context.Context) ([]generic.TenantID, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, `
		SELECT DISTINCT tenant_id FROM employees WHERE deleted_at IS NULL ORDER BY tenant_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	out := make([]generic.TenantID, len(ids))
	for i, id := range ids {
		out[i] = generic.TenantID(id)
	}
	return out, nil
}

func (s *Store) ListSites(ctx context.Context, tenant generic.TenantID) ([]training.Site, error) {
	var rows []siteRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, tenant_id, name FROM sites WHERE tenant_id = ? ORDER BY name
	`, tenant)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	out := make([]training.Site, len(rows))
	for i, r := range rows {
		out[i] = training.Site{ID: generic.SiteID(r.ID), TenantID: generic.TenantID(r.TenantID), Name: r.Name}
	}
	return out, nil
}

func (s *Store) ListEmployees(ctx context.Context, tenant generic.TenantID, filter training.EmployeeFilter) ([]training.Employee, error) {
	if filter.EmployeeIDs != nil && len(filter.EmployeeIDs) == 0 {
		return nil, nil
	}

	w := &where{}
	w.add("tenant_id = ?", tenant)
	w.add("deleted_at IS NULL")
	if !filter.IncludeInactive {
		w.add("is_active = TRUE")
	}
	if filter.SiteID != nil {
		w.add("site_id = ?", *filter.SiteID)
	}
	if filter.EmployeeIDs != nil {
		w.add("id IN (?)", employeeIDStrings(filter.EmployeeIDs))
	}

	query, args, err := s.expand(`SELECT * FROM employees`+w.String()+` ORDER BY full_name, id`, w.args)
	if err != nil {
		return nil, err
	}
	var rows []employeeRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	out := make([]training.Employee, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *Store) GetEmployee(ctx context.Context, tenant generic.TenantID, id generic.EmployeeID) (*training.Employee, error) {
	var r employeeRow
	err := s.db.GetContext(ctx, &r, `
		SELECT * FROM employees WHERE tenant_id = ? AND id = ? AND deleted_at IS NULL
	`, tenant, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	e := r.toDomain()
	return &e, nil
}

func (s *Store) ListLearningItems(ctx context.Context, tenant generic.TenantID, ids []generic.LearningItemID) ([]training.LearningItem, error) {
	if ids != nil && len(ids) == 0 {
		return nil, nil
	}

	w := &where{}
	w.add("tenant_id = ?", tenant)
	w.add("deleted_at IS NULL")
	if ids != nil {
		strs := make([]string, len(ids))
		for i, id := range ids {
			strs[i] = string(id)
		}
		w.add("id IN (?)", strs)
	}

	query, args, err := s.expand(`SELECT * FROM learning_items`+w.String()+` ORDER BY code`, w.args)
	if err != nil {
		return nil, err
	}
	var rows []learningItemRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list learning items: %w", err)
	}
	out := make([]training.LearningItem, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *Store) GetLearningItem(ctx context.Context, tenant generic.TenantID, id generic.LearningItemID) (*training.LearningItem, error) {
	var r learningItemRow
	err := s.db.GetContext(ctx, &r, `
		SELECT * FROM learning_items WHERE tenant_id = ? AND id = ? AND deleted_at IS NULL
	`, tenant, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get learning item: %w", err)
	}
	item := r.toDomain()
	return &item, nil
}

// StreamAssignments iterates matching rows with a server-side cursor. fn
// must not call back into the store: the cursor may hold the only connection.
func (s *Store) StreamAssignments(ctx context.Context, tenant generic.TenantID, filter training.AssignmentFilter, fn func(training.AssignmentRow) error) error {
	if filter.EmployeeIDs != nil && len(filter.EmployeeIDs) == 0 {
		return nil
	}

	w := &where{}
	w.add("a.tenant_id = ?", tenant)
	w.add("e.deleted_at IS NULL")
	if filter.SiteID != nil || filter.EmployeeIDs != nil {
		w.add("e.is_active = TRUE")
	}
	w.add("i.deleted_at IS NULL")
	if !filter.IncludeCancelled {
		w.add("a.status <> ?", training.StatusCancelled)
	}
	if filter.Statuses != nil {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		if len(statuses) == 0 {
			return nil
		}
		w.add("a.status IN (?)", statuses)
	}
	w.addRange("a.required_date", filter.RequiredDate)
	if filter.SiteID != nil {
		w.add("e.site_id = ?", *filter.SiteID)
	}
	if filter.EmployeeIDs != nil {
		w.add("a.employee_id IN (?)", employeeIDStrings(filter.EmployeeIDs))
	}
	if filter.LearningItemID != nil {
		w.add("a.learning_item_id = ?", *filter.LearningItemID)
	}
	if filter.Category != nil {
		w.add("i.category = ?", *filter.Category)
	}

	query, args, err := s.expand(`
		SELECT `+assignmentColumns+`
		FROM assignments a
		JOIN employees e ON e.id = a.employee_id AND e.tenant_id = a.tenant_id
		JOIN learning_items i ON i.id = a.learning_item_id AND i.tenant_id = a.tenant_id
		LEFT JOIN completions c ON c.assignment_id = a.id
	`+w.String()+` ORDER BY a.created_at, a.id`, w.args)
	if err != nil {
		return err
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r assignmentRow
		if err := rows.StructScan(&r); err != nil {
			return fmt.Errorf("failed to scan assignment: %w", err)
		}
		if err := fn(training.AssignmentRow{Assignment: r.assignment(), Completion: r.completion()}); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *Store) ListCompletions(ctx context.Context, tenant generic.TenantID, filter training.CompletionFilter, page generic.PageRequest) ([]training.CompletionRow, int, error) {
	if filter.EmployeeIDs != nil && len(filter.EmployeeIDs) == 0 {
		return nil, 0, nil
	}
	page = page.Normalize()

	w := &where{}
	w.add("a.tenant_id = ?", tenant)
	w.add("e.deleted_at IS NULL")
	w.add("i.deleted_at IS NULL")
	w.addRange("c.completed_at", filter.CompletedAt)
	if filter.SiteID != nil {
		w.add("e.site_id = ?", *filter.SiteID)
	}
	if filter.EmployeeIDs != nil {
		w.add("a.employee_id IN (?)", employeeIDStrings(filter.EmployeeIDs))
	}
	if filter.LearningItemID != nil {
		w.add("a.learning_item_id = ?", *filter.LearningItemID)
	}

	from := `
		FROM completions c
		JOIN assignments a ON a.id = c.assignment_id
		JOIN employees e ON e.id = a.employee_id AND e.tenant_id = a.tenant_id
		JOIN learning_items i ON i.id = a.learning_item_id AND i.tenant_id = a.tenant_id
	` + w.String()

	countQuery, countArgs, err := s.expand(`SELECT COUNT(*) `+from, w.args)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := s.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to count completions: %w", err)
	}

	args := append(append([]any{}, w.args...), page.PageSize, page.Offset())
	query, args, err := s.expand(`SELECT `+assignmentColumns+` `+from+`
		ORDER BY c.completed_at DESC, a.id LIMIT ? OFFSET ?`, args)
	if err != nil {
		return nil, 0, err
	}
	var rows []assignmentRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list completions: %w", err)
	}

	out := make([]training.CompletionRow, len(rows))
	for i, r := range rows {
		out[i] = training.CompletionRow{Assignment: r.assignment(), Completion: *r.completion()}
	}
	return out, total, nil
}

// =============================================================================
// TRAINING - WRITE
// =============================================================================

func (s *Store) SaveSite(ctx context.Context, site training.Site) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sites (id, tenant_id, name) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, site.ID, site.TenantID, site.Name)
	return translate("failed to save site", err)
}

func (s *Store) SaveEmployee(ctx context.Context, e training.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	var site sql.NullString
	if e.SiteID != nil {
		site = nullString(string(*e.SiteID))
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees
		(id, tenant_id, code, full_name, department, job_title, site_id, is_active, deleted_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code, full_name = excluded.full_name,
			department = excluded.department, job_title = excluded.job_title,
			site_id = excluded.site_id, is_active = excluded.is_active,
			deleted_at = excluded.deleted_at
	`, e.ID, e.TenantID, e.Code, e.FullName, e.Department, e.JobTitle, site, e.IsActive,
		nullTime(e.DeletedAt), formatTime(createdAt))
	return translate("failed to save employee", err)
}

func (s *Store) SaveLearningItem(ctx context.Context, item training.LearningItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO learning_items
		(id, tenant_id, code, title, category, frequency, quiz_pass_threshold, quiz_question_count, deleted_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code, title = excluded.title, category = excluded.category,
			frequency = excluded.frequency, quiz_pass_threshold = excluded.quiz_pass_threshold,
			quiz_question_count = excluded.quiz_question_count, deleted_at = excluded.deleted_at
	`, item.ID, item.TenantID, item.Code, item.Title, item.Category, item.Frequency,
		item.QuizPassThreshold, item.QuizQuestionCount, nullTime(item.DeletedAt), formatTime(createdAt))
	return translate("failed to save learning item", err)
}

func (s *Store) SaveAssignment(ctx context.Context, a training.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Cross-tenant references are rejected here; the foreign keys only
	// check existence.
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM employees WHERE id = ? AND tenant_id = ?`, a.EmployeeID, a.TenantID); err != nil {
		return fmt.Errorf("failed to check employee: %w", err)
	}
	if n == 0 {
		return generic.NewValidation("employee_id", "unknown employee %s", a.EmployeeID)
	}
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM learning_items WHERE id = ? AND tenant_id = ?`, a.LearningItemID, a.TenantID); err != nil {
		return fmt.Errorf("failed to check learning item: %w", err)
	}
	if n == 0 {
		return generic.NewValidation("learning_item_id", "unknown learning item %s", a.LearningItemID)
	}

	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	var lat, lng sql.NullFloat64
	if a.StartLocation != nil {
		lat = sql.NullFloat64{Float64: a.StartLocation.Latitude, Valid: true}
		lng = sql.NullFloat64{Float64: a.StartLocation.Longitude, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assignments
		(id, tenant_id, employee_id, learning_item_id, required_date, due_date, status,
		 reminder_count, last_reminder_at, start_latitude, start_longitude, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			required_date = excluded.required_date, due_date = excluded.due_date,
			status = excluded.status, reminder_count = excluded.reminder_count,
			last_reminder_at = excluded.last_reminder_at,
			start_latitude = excluded.start_latitude, start_longitude = excluded.start_longitude
	`, a.ID, a.TenantID, a.EmployeeID, a.LearningItemID, formatTime(a.RequiredDate), formatTime(a.DueDate),
		a.Status, a.ReminderCount, nullTime(a.LastReminderAt), lat, lng, formatTime(createdAt))
	return translate("failed to save assignment", err)
}

func (s *Store) StartAssignment(ctx context.Context, tenant generic.TenantID, id generic.AssignmentID, at *training.GeoPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, err := s.statusOf(ctx, s.db, tenant, id)
	if err != nil {
		return err
	}
	if status != training.StatusPending && status != training.StatusOverdue {
		return generic.NewValidation("status", "cannot start an assignment in status %s", status)
	}
	var lat, lng sql.NullFloat64
	if at != nil {
		lat = sql.NullFloat64{Float64: at.Latitude, Valid: true}
		lng = sql.NullFloat64{Float64: at.Longitude, Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE assignments SET status = ?, start_latitude = ?, start_longitude = ?
		WHERE tenant_id = ? AND id = ?
	`, training.StatusInProgress, lat, lng, tenant, id)
	return translate("failed to start assignment", err)
}

// CompleteAssignment writes the status change and the completion row in one
// transaction so a completion never exists without a completed assignment.
func (s *Store) CompleteAssignment(ctx context.Context, tenant generic.TenantID, c training.Completion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	status, err := s.statusOf(ctx, tx, tenant, c.AssignmentID)
	if err != nil {
		return err
	}
	if status == training.StatusCancelled {
		return generic.NewValidation("status", "cannot complete a cancelled assignment")
	}

	if _, err := tx.ExecContext(ctx, `UPDATE assignments SET status = ? WHERE tenant_id = ? AND id = ?`,
		training.StatusCompleted, tenant, c.AssignmentID); err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}

	var (
		signedBy, signedAt, ref sql.NullString
		lat, lng                sql.NullFloat64
	)
	if c.Signature != nil {
		signedBy = nullString(c.Signature.SignedBy)
		signedAt = nullTime(&c.Signature.SignedAt)
		ref = nullString(c.Signature.Ref)
	}
	if c.CompletionLocation != nil {
		lat = sql.NullFloat64{Float64: c.CompletionLocation.Latitude, Valid: true}
		lng = sql.NullFloat64{Float64: c.CompletionLocation.Longitude, Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO completions
		(assignment_id, completed_at, time_spent_seconds, video_watch_percent, quiz_score,
		 quiz_max_score, quiz_passed, signed_by, signed_at, signature_ref, latitude, longitude)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.AssignmentID, formatTime(c.CompletedAt), c.TimeSpentSeconds, c.VideoWatchPercent,
		nullInt(c.QuizScore), nullInt(c.QuizMaxScore), nullBool(c.QuizPassed),
		signedBy, signedAt, ref, lat, lng)
	if err != nil {
		return translate("failed to insert completion", err)
	}
	return tx.Commit()
}

func (s *Store) CancelAssignment(ctx context.Context, tenant generic.TenantID, id generic.AssignmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, err := s.statusOf(ctx, s.db, tenant, id)
	if err != nil {
		return err
	}
	if status == training.StatusCompleted {
		return generic.NewValidation("status", "cannot cancel a completed assignment")
	}
	_, err = s.db.ExecContext(ctx, `UPDATE assignments SET status = ? WHERE tenant_id = ? AND id = ?`,
		training.StatusCancelled, tenant, id)
	return translate("failed to cancel assignment", err)
}

// MarkOverdue flips pending rows to overdue. Rows in any other status are
// left alone, so a concurrent completion is never overwritten.
func (s *Store) MarkOverdue(ctx context.Context, tenant generic.TenantID, ids []generic.AssignmentID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = string(id)
	}
	query, args, err := s.expand(`
		UPDATE assignments SET status = ?
		WHERE tenant_id = ? AND status = ? AND id IN (?)
	`, []any{training.StatusOverdue, tenant, training.StatusPending, strs})
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) RecordReminder(ctx context.Context, tenant generic.TenantID, id generic.AssignmentID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE assignments SET reminder_count = reminder_count + 1, last_reminder_at = ?
		WHERE tenant_id = ? AND id = ?
	`, formatTime(at), tenant, id)
	if err != nil {
		return fmt.Errorf("failed to record reminder: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.NewNotFound("assignment", string(id))
	}
	return nil
}

type getter interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

func (s *Store) statusOf(ctx context.Context, db getter, tenant generic.TenantID, id generic.AssignmentID) (training.Status, error) {
	var status string
	err := db.GetContext(ctx, &status, `SELECT status FROM assignments WHERE tenant_id = ? AND id = ?`, tenant, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", generic.NewNotFound("assignment", string(id))
	}
	if err != nil {
		return "", fmt.Errorf("failed to read assignment status: %w", err)
	}
	return training.Status(status), nil
}
