/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements training.Store and lookup.Store on SQLite through sqlx. In
  production the same schema ports to PostgreSQL with minor dialect changes
  (partial unique indexes are supported by both).

INTERFACES IMPLEMENTED:
  training.Store: sites, employees, learning items, assignments, completions
  lookup.Store:   lookup categories, global values, tenant values

TENANT ISOLATION:
  Every training query carries "tenant_id = ?" and skips soft-deleted rows.
  There is no unscoped read path.

KEY TABLES:
  assignments:          One row per scheduled instance; many per pair
  completions:          0..1 per assignment, written with the status change
  tenant_lookup_values: Overrides (lookup_value_id set) and customs (NULL)

INDEXES:
  - idx_tenant_lookup_code:     unique (tenant, category, code), live rows
  - idx_tenant_lookup_override: unique (tenant, category, lookup_value_id),
                                live override rows
  - idx_learning_items_code:    unique (tenant, code), live rows
  - idx_assignments_*:          report hot paths

TIMESTAMPS:
  Stored as fixed-width UTC text so string comparison orders correctly.

CONCURRENCY:
  Writes are serialized with a mutex. ":memory:" databases are pinned to one
  connection because each SQLite connection would otherwise see its own
  empty database.

USAGE:
  store, err := sqlite.New("./data/compliance.db")
  if err != nil {
      log.Fatal().Err(err).Msg("open store")
  }
  defer store.Close()

SEE ALSO:
  - training/store.go, lookup/types.go: Interface definitions
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/compliance-engine/generic"
	"github.com/warp/compliance-engine/lookup"
	"github.com/warp/compliance-engine/training"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sqlx.DB
	mu sync.Mutex
}

var (
	_ training.Store = (*Store)(nil)
	_ lookup.Store   = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Organization
	CREATE TABLE IF NOT EXISTS sites (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		name TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sites_tenant
		ON sites(tenant_id);

	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		code TEXT NOT NULL,
		full_name TEXT NOT NULL,
		department TEXT NOT NULL DEFAULT '',
		job_title TEXT NOT NULL DEFAULT '',
		site_id TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		deleted_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_tenant_site
		ON employees(tenant_id, site_id) WHERE deleted_at IS NULL;

	-- Catalog
	CREATE TABLE IF NOT EXISTS learning_items (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		code TEXT NOT NULL,
		title TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		frequency TEXT NOT NULL DEFAULT 'once',
		quiz_pass_threshold INTEGER NOT NULL DEFAULT 0,
		quiz_question_count INTEGER NOT NULL DEFAULT 0,
		deleted_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_learning_items_code
		ON learning_items(tenant_id, code) WHERE deleted_at IS NULL;

	-- Assignments: several rows per (employee, item) over time
	CREATE TABLE IF NOT EXISTS assignments (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		learning_item_id TEXT NOT NULL REFERENCES learning_items(id),
		required_date TEXT NOT NULL,
		due_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		reminder_count INTEGER NOT NULL DEFAULT 0,
		last_reminder_at TEXT,
		start_latitude REAL,
		start_longitude REAL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_tenant_required
		ON assignments(tenant_id, required_date);
	CREATE INDEX IF NOT EXISTS idx_assignments_pair
		ON assignments(tenant_id, employee_id, learning_item_id);
	CREATE INDEX IF NOT EXISTS idx_assignments_status_due
		ON assignments(tenant_id, status, due_date);

	-- Completions: created exactly once per assignment
	CREATE TABLE IF NOT EXISTS completions (
		assignment_id TEXT PRIMARY KEY REFERENCES assignments(id),
		completed_at TEXT NOT NULL,
		time_spent_seconds INTEGER NOT NULL DEFAULT 0,
		video_watch_percent INTEGER NOT NULL DEFAULT 0,
		quiz_score INTEGER,
		quiz_max_score INTEGER,
		quiz_passed BOOLEAN,
		signed_by TEXT,
		signed_at TEXT,
		signature_ref TEXT,
		latitude REAL,
		longitude REAL
	);

	CREATE INDEX IF NOT EXISTS idx_completions_completed_at
		ON completions(completed_at DESC);

	-- Lookups
	CREATE TABLE IF NOT EXISTS lookup_categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		allow_custom BOOLEAN NOT NULL DEFAULT FALSE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS lookup_values (
		id TEXT PRIMARY KEY,
		category_id TEXT NOT NULL REFERENCES lookup_categories(id),
		code TEXT NOT NULL,
		name TEXT NOT NULL,
		metadata_json TEXT,
		sort_order INTEGER NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		UNIQUE(category_id, code)
	);

	CREATE TABLE IF NOT EXISTS tenant_lookup_values (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		category_id TEXT NOT NULL REFERENCES lookup_categories(id),
		lookup_value_id TEXT REFERENCES lookup_values(id),
		code TEXT NOT NULL,
		name TEXT NOT NULL,
		metadata_json TEXT,
		sort_order INTEGER NOT NULL DEFAULT 0,
		is_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		deleted_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_tenant_lookup_code
		ON tenant_lookup_values(tenant_id, category_id, code)
		WHERE deleted_at IS NULL;

	-- At most one live override per global value and tenant
	CREATE UNIQUE INDEX IF NOT EXISTS idx_tenant_lookup_override
		ON tenant_lookup_values(tenant_id, category_id, lookup_value_id)
		WHERE deleted_at IS NULL AND lookup_value_id IS NOT NULL;
	`

	_, err := s.db.Exec(schema)
	return err
}

// Reset drops all rows. Used by the demo scenarios.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"completions", "assignments", "learning_items", "employees", "sites",
		"tenant_lookup_values", "lookup_values", "lookup_categories",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// Rows written by other tools may use plain RFC 3339.
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t.UTC()
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func timePtr(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}

func boolPtr(b sql.NullBool) *bool {
	if !b.Valid {
		return nil
	}
	v := b.Bool
	return &v
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// translate maps driver errors onto the generic taxonomy.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if isUniqueConstraintError(err) {
		return generic.ErrDuplicate
	}
	return fmt.Errorf("%s: %w", op, err)
}

// where accumulates AND-ed conditions and their arguments.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, args ...any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *where) addRange(column string, r generic.DateRange) {
	if r.From != nil {
		w.add(column+" >= ?", formatTime(*r.From))
	}
	if r.To != nil {
		w.add(column+" <= ?", formatTime(*r.To))
	}
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// expand rewrites IN (?) placeholders for slice arguments.
func (s *Store) expand(query string, args []any) (string, []any, error) {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}
	return s.db.Rebind(query), args, nil
}

func employeeIDStrings(ids []generic.EmployeeID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
