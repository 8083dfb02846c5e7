package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/warp/compliance-engine/generic"
	"github.com/warp/compliance-engine/lookup"
)

// =============================================================================
// ROW TYPES
// =============================================================================

type categoryRow struct {
	ID          string `db:"id"`
	Name        string `db:"name"`
	AllowCustom bool   `db:"allow_custom"`
	IsActive    bool   `db:"is_active"`
}

func (r categoryRow) toDomain() lookup.Category {
	return lookup.Category{ID: r.ID, Name: r.Name, AllowCustom: r.AllowCustom, IsActive: r.IsActive}
}

type valueRow struct {
	ID           string         `db:"id"`
	CategoryID   string         `db:"category_id"`
	Code         string         `db:"code"`
	Name         string         `db:"name"`
	MetadataJSON sql.NullString `db:"metadata_json"`
	SortOrder    int            `db:"sort_order"`
	IsActive     bool           `db:"is_active"`
}

func (r valueRow) toDomain() (lookup.Value, error) {
	meta, err := decodeMetadata(r.MetadataJSON)
	if err != nil {
		return lookup.Value{}, err
	}
	return lookup.Value{
		ID:         r.ID,
		CategoryID: r.CategoryID,
		Code:       r.Code,
		Name:       r.Name,
		Metadata:   meta,
		SortOrder:  r.SortOrder,
		IsActive:   r.IsActive,
	}, nil
}

type tenantValueRow struct {
	ID            string         `db:"id"`
	TenantID      string         `db:"tenant_id"`
	CategoryID    string         `db:"category_id"`
	LookupValueID sql.NullString `db:"lookup_value_id"`
	Code          string         `db:"code"`
	Name          string         `db:"name"`
	MetadataJSON  sql.NullString `db:"metadata_json"`
	SortOrder     int            `db:"sort_order"`
	IsEnabled     bool           `db:"is_enabled"`
	DeletedAt     sql.NullString `db:"deleted_at"`
	CreatedAt     string         `db:"created_at"`
	UpdatedAt     string         `db:"updated_at"`
}

func (r tenantValueRow) toDomain() (lookup.TenantValue, error) {
	meta, err := decodeMetadata(r.MetadataJSON)
	if err != nil {
		return lookup.TenantValue{}, err
	}
	kind := lookup.Custom()
	if r.LookupValueID.Valid {
		kind = lookup.Override(r.LookupValueID.String)
	}
	return lookup.TenantValue{
		ID:         r.ID,
		TenantID:   generic.TenantID(r.TenantID),
		CategoryID: r.CategoryID,
		Kind:       kind,
		Code:       r.Code,
		Name:       r.Name,
		Metadata:   meta,
		SortOrder:  r.SortOrder,
		IsEnabled:  r.IsEnabled,
		DeletedAt:  timePtr(r.DeletedAt),
		CreatedAt:  parseTime(r.CreatedAt),
		UpdatedAt:  parseTime(r.UpdatedAt),
	}, nil
}

func decodeMetadata(ns sql.NullString) (lookup.Metadata, error) {
	if !ns.Valid || ns.String == "" || ns.String == "null" {
		return nil, nil
	}
	var meta lookup.Metadata
	if err := json.Unmarshal([]byte(ns.String), &meta); err != nil {
		return nil, fmt.Errorf("failed to decode lookup metadata: %w", err)
	}
	return meta, nil
}

func encodeMetadata(meta lookup.Metadata) (sql.NullString, error) {
	if meta == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode lookup metadata: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// =============================================================================
// CATEGORIES
// =============================================================================

func (s *Store) GetCategoryByName(ctx context.Context, name string) (*lookup.Category, error) {
	var r categoryRow
	err := s.db.GetContext(ctx, &r, `SELECT * FROM lookup_categories WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lookup category: %w", err)
	}
	c := r.toDomain()
	return &c, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]lookup.Category, error) {
	var rows []categoryRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM lookup_categories ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list lookup categories: %w", err)
	}
	out := make([]lookup.Category, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *Store) SaveCategory(ctx context.Context, c lookup.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lookup_categories (id, name, allow_custom, is_active) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, allow_custom = excluded.allow_custom, is_active = excluded.is_active
	`, c.ID, c.Name, c.AllowCustom, c.IsActive)
	return translate("failed to save lookup category", err)
}

// =============================================================================
// GLOBAL VALUES
// =============================================================================

func (s *Store) ListGlobalValues(ctx context.Context, categoryID string) ([]lookup.Value, error) {
	var rows []valueRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM lookup_values WHERE category_id = ? AND is_active = TRUE ORDER BY sort_order, name
	`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lookup values: %w", err)
	}
	out := make([]lookup.Value, 0, len(rows))
	for _, r := range rows {
		v, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Store) GetGlobalValue(ctx context.Context, categoryID, id string) (*lookup.Value, error) {
	var r valueRow
	err := s.db.GetContext(ctx, &r, `SELECT * FROM lookup_values WHERE category_id = ? AND id = ?`, categoryID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lookup value: %w", err)
	}
	v, err := r.toDomain()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Store) SaveGlobalValue(ctx context.Context, v lookup.Value) error {
	meta, err := encodeMetadata(v.Metadata)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO lookup_values (id, category_id, code, name, metadata_json, sort_order, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code, name = excluded.name, metadata_json = excluded.metadata_json,
			sort_order = excluded.sort_order, is_active = excluded.is_active
	`, v.ID, v.CategoryID, v.Code, v.Name, meta, v.SortOrder, v.IsActive)
	return translate("failed to save lookup value", err)
}

// =============================================================================
// TENANT VALUES
// =============================================================================

func (s *Store) ListTenantValues(ctx context.Context, tenant generic.TenantID, categoryID string) ([]lookup.TenantValue, error) {
	return s.queryTenantValues(ctx, `
		SELECT * FROM tenant_lookup_values
		WHERE tenant_id = ? AND category_id = ? AND deleted_at IS NULL
		ORDER BY code
	`, tenant, categoryID)
}

func (s *Store) GetTenantValue(ctx context.Context, tenant generic.TenantID, categoryID, id string) (*lookup.TenantValue, error) {
	rows, err := s.queryTenantValues(ctx, `
		SELECT * FROM tenant_lookup_values WHERE tenant_id = ? AND category_id = ? AND id = ?
	`, tenant, categoryID, id)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func (s *Store) FindOverride(ctx context.Context, tenant generic.TenantID, categoryID, globalID string) (*lookup.TenantValue, error) {
	rows, err := s.queryTenantValues(ctx, `
		SELECT * FROM tenant_lookup_values
		WHERE tenant_id = ? AND category_id = ? AND lookup_value_id = ? AND deleted_at IS NULL
	`, tenant, categoryID, globalID)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func (s *Store) queryTenantValues(ctx context.Context, query string, args ...any) ([]lookup.TenantValue, error) {
	var rows []tenantValueRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query tenant lookup values: %w", err)
	}
	out := make([]lookup.TenantValue, 0, len(rows))
	for _, r := range rows {
		v, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Store) InsertTenantValue(ctx context.Context, v lookup.TenantValue) error {
	meta, err := encodeMetadata(v.Metadata)
	if err != nil {
		return err
	}
	var globalID sql.NullString
	if id, ok := v.Kind.GlobalID(); ok {
		globalID = nullString(id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tenant_lookup_values
		(id, tenant_id, category_id, lookup_value_id, code, name, metadata_json, sort_order,
		 is_enabled, deleted_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, v.ID, v.TenantID, v.CategoryID, globalID, v.Code, v.Name, meta, v.SortOrder,
		v.IsEnabled, nullTime(v.DeletedAt), formatTime(v.CreatedAt), formatTime(v.UpdatedAt))
	return translate("failed to insert tenant lookup value", err)
}

// UpdateTenantValue rewrites the mutable columns. The kind of a row never
// changes after insert.
func (s *Store) UpdateTenantValue(ctx context.Context, v lookup.TenantValue) error {
	meta, err := encodeMetadata(v.Metadata)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE tenant_lookup_values SET
			code = ?, name = ?, metadata_json = ?, sort_order = ?, is_enabled = ?,
			deleted_at = ?, updated_at = ?
		WHERE id = ? AND tenant_id = ?
	`, v.Code, v.Name, meta, v.SortOrder, v.IsEnabled, nullTime(v.DeletedAt), formatTime(v.UpdatedAt),
		v.ID, v.TenantID)
	if err != nil {
		return translate("failed to update tenant lookup value", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.NewNotFound("tenant_lookup_value", v.ID)
	}
	return nil
}
