/*
service.go - Tenant-side mutations of lookup values

PURPOSE:
  Creating custom values and toggling overrides of global values. Both are
  tenant-scoped writes guarded by the (tenant, category, code) unique index.

UPSERT:
  ToggleGlobalOverride is a find-or-create. Two concurrent toggles for the
  same global value may both miss on the find; the loser's insert fails with
  generic.ErrDuplicate, and it retries the find exactly once and updates the
  row the winner created. No explicit lock is taken.

VALIDATION:
  Inputs are validated with go-playground/validator. Failures come back as
  *generic.ValidationError with the JSON field name.

SEE ALSO:
  - engine.go: How the rows written here are merged
  - store/sqlite/lookup.go: The unique index
*/
package lookup

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/warp/compliance-engine/generic"
)

// =============================================================================
// INPUTS
// =============================================================================

type CreateCustomValueInput struct {
	Code      string   `json:"code" validate:"required,max=64,lookupcode"`
	Name      string   `json:"name" validate:"required,max=200"`
	Metadata  Metadata `json:"metadata"`
	SortOrder int      `json:"sort_order" validate:"gte=0"`
}

// UpdateTenantValueInput edits a tenant row. Nil fields are left unchanged.
// Code may only be changed on custom rows.
type UpdateTenantValueInput struct {
	Code      *string   `json:"code" validate:"omitempty,max=64,lookupcode"`
	Name      *string   `json:"name" validate:"omitempty,min=1,max=200"`
	Metadata  *Metadata `json:"metadata"`
	SortOrder *int      `json:"sort_order" validate:"omitempty,gte=0"`
	IsEnabled *bool     `json:"is_enabled"`
}

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Store    Store
	Engine   *Engine
	Clock    generic.Clock
	validate *validator.Validate
}

func NewService(store Store, clock generic.Clock) *Service {
	if clock == nil {
		clock = generic.SystemClock{}
	}
	return &Service{
		Store:    store,
		Engine:   NewEngine(store),
		Clock:    clock,
		validate: newValidator(),
	}
}

func newValidator() *validator.Validate {
	v := generic.NewValidator()
	_ = v.RegisterValidation("lookupcode", func(fl validator.FieldLevel) bool {
		return isLookupCode(fl.Field().String())
	})
	return v
}

// isLookupCode accepts lowercase letters, digits, '-' and '_'.
func isLookupCode(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// ListCategories returns the active categories sorted by name.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	all, err := s.Store.ListCategories(ctx)
	if err != nil {
		return nil, generic.Infrastructure("lookup.list_categories", err)
	}
	active := make([]Category, 0, len(all))
	for _, c := range all {
		if c.IsActive {
			active = append(active, c)
		}
	}
	return active, nil
}

// CreateCustomValue adds a tenant-only value to a category that allows it.
func (s *Service) CreateCustomValue(
	ctx context.Context,
	caller generic.Caller,
	categoryName string,
	input CreateCustomValueInput,
) (value *TenantValue, err error) {
	defer generic.Recover("lookup.create_custom_value", &err)
	defer func() { generic.LogFailure("lookup.create_custom_value", caller.TenantID, err) }()

	if err := caller.Validate(); err != nil {
		return nil, err
	}
	if err := s.validateStruct(input); err != nil {
		return nil, err
	}

	category, err := s.Engine.activeCategory(ctx, categoryName)
	if err != nil {
		return nil, err
	}
	if !category.AllowCustom {
		return nil, generic.NewValidation("code", "category %s does not allow custom values", category.Name)
	}
	if err := s.ensureCodeFree(ctx, caller.TenantID, category.ID, input.Code, ""); err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	row := TenantValue{
		ID:         uuid.NewString(),
		TenantID:   caller.TenantID,
		CategoryID: category.ID,
		Kind:       Custom(),
		Code:       input.Code,
		Name:       input.Name,
		Metadata:   input.Metadata.Clone(),
		SortOrder:  input.SortOrder,
		IsEnabled:  true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Store.InsertTenantValue(ctx, row); err != nil {
		if generic.IsDuplicate(err) {
			return nil, duplicateCode(input.Code)
		}
		return nil, generic.Infrastructure("lookup.insert_tenant_value", err)
	}

	log.Info().
		Str("tenant", string(caller.TenantID)).
		Str("category", category.Name).
		Str("code", row.Code).
		Msg("Custom lookup value created")
	return &row, nil
}

// ToggleGlobalOverride enables or disables a global value for one tenant.
// The first call creates the override row; later calls reuse it.
func (s *Service) ToggleGlobalOverride(
	ctx context.Context,
	caller generic.Caller,
	categoryName string,
	globalValueID string,
	isEnabled bool,
) (value *TenantValue, err error) {
	defer generic.Recover("lookup.toggle_override", &err)
	defer func() { generic.LogFailure("lookup.toggle_override", caller.TenantID, err) }()

	if err := caller.Validate(); err != nil {
		return nil, err
	}
	category, err := s.Engine.activeCategory(ctx, categoryName)
	if err != nil {
		return nil, err
	}
	global, err := s.Store.GetGlobalValue(ctx, category.ID, globalValueID)
	if err != nil && !generic.IsNotFound(err) {
		return nil, generic.Infrastructure("lookup.get_global_value", err)
	}
	if global == nil || !global.IsActive {
		return nil, generic.NewNotFound("lookup_value", globalValueID)
	}

	for attempt := 0; attempt < 2; attempt++ {
		existing, err := s.Store.FindOverride(ctx, caller.TenantID, category.ID, global.ID)
		if err != nil && !generic.IsNotFound(err) {
			return nil, generic.Infrastructure("lookup.find_override", err)
		}
		if existing != nil {
			return s.setEnabled(ctx, *existing, isEnabled)
		}

		now := s.Clock.Now()
		row := TenantValue{
			ID:         uuid.NewString(),
			TenantID:   caller.TenantID,
			CategoryID: category.ID,
			Kind:       Override(global.ID),
			Code:       global.Code,
			Name:       global.Name,
			Metadata:   global.Metadata.Clone(),
			SortOrder:  global.SortOrder,
			IsEnabled:  isEnabled,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		err = s.Store.InsertTenantValue(ctx, row)
		if err == nil {
			log.Info().
				Str("tenant", string(caller.TenantID)).
				Str("category", category.Name).
				Str("global", global.ID).
				Bool("enabled", isEnabled).
				Msg("Lookup override created")
			return &row, nil
		}
		if !generic.IsDuplicate(err) {
			return nil, generic.Infrastructure("lookup.insert_tenant_value", err)
		}
		log.Debug().
			Str("tenant", string(caller.TenantID)).
			Str("global", global.ID).
			Int("attempt", attempt).
			Msg("Override insert hit unique index, retrying find")
	}

	// The code is held by a row that is not an override of this value
	// (a custom value, or an override whose code was changed outside the API).
	return nil, duplicateCode(global.Code)
}

// UpdateTenantValue edits an override or custom row.
func (s *Service) UpdateTenantValue(
	ctx context.Context,
	caller generic.Caller,
	categoryName string,
	id string,
	input UpdateTenantValueInput,
) (value *TenantValue, err error) {
	defer generic.Recover("lookup.update_tenant_value", &err)
	defer func() { generic.LogFailure("lookup.update_tenant_value", caller.TenantID, err) }()

	if err := caller.Validate(); err != nil {
		return nil, err
	}
	if err := s.validateStruct(input); err != nil {
		return nil, err
	}
	category, err := s.Engine.activeCategory(ctx, categoryName)
	if err != nil {
		return nil, err
	}
	row, err := s.tenantRow(ctx, caller.TenantID, category.ID, id)
	if err != nil {
		return nil, err
	}

	if input.Code != nil && *input.Code != row.Code {
		if row.Kind.IsOverride() {
			return nil, generic.NewValidation("code", "the code of an override follows its global value")
		}
		if err := s.ensureCodeFree(ctx, caller.TenantID, category.ID, *input.Code, row.ID); err != nil {
			return nil, err
		}
		row.Code = *input.Code
	}
	if input.Name != nil {
		row.Name = *input.Name
	}
	if input.Metadata != nil {
		row.Metadata = input.Metadata.Clone()
	}
	if input.SortOrder != nil {
		row.SortOrder = *input.SortOrder
	}
	if input.IsEnabled != nil {
		row.IsEnabled = *input.IsEnabled
	}
	row.UpdatedAt = s.Clock.Now()

	if err := s.Store.UpdateTenantValue(ctx, *row); err != nil {
		if generic.IsDuplicate(err) {
			return nil, duplicateCode(row.Code)
		}
		return nil, generic.Infrastructure("lookup.update_tenant_value", err)
	}
	return row, nil
}

// DeleteCustomValue soft-deletes a custom row. Overrides cannot be deleted;
// disable them instead.
func (s *Service) DeleteCustomValue(ctx context.Context, caller generic.Caller, categoryName, id string) (err error) {
	defer generic.Recover("lookup.delete_custom_value", &err)
	defer func() { generic.LogFailure("lookup.delete_custom_value", caller.TenantID, err) }()

	if err := caller.Validate(); err != nil {
		return err
	}
	category, err := s.Engine.activeCategory(ctx, categoryName)
	if err != nil {
		return err
	}
	row, err := s.tenantRow(ctx, caller.TenantID, category.ID, id)
	if err != nil {
		return err
	}
	if row.Kind.IsOverride() {
		return generic.NewValidation("id", "overrides cannot be deleted, disable them instead")
	}
	now := s.Clock.Now()
	row.DeletedAt = &now
	row.UpdatedAt = now
	if err := s.Store.UpdateTenantValue(ctx, *row); err != nil {
		return generic.Infrastructure("lookup.delete_custom_value", err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Service) setEnabled(ctx context.Context, row TenantValue, isEnabled bool) (*TenantValue, error) {
	if row.IsEnabled == isEnabled {
		return &row, nil
	}
	row.IsEnabled = isEnabled
	row.UpdatedAt = s.Clock.Now()
	if err := s.Store.UpdateTenantValue(ctx, row); err != nil {
		return nil, generic.Infrastructure("lookup.update_override", err)
	}
	return &row, nil
}

func (s *Service) tenantRow(ctx context.Context, tenant generic.TenantID, categoryID, id string) (*TenantValue, error) {
	row, err := s.Store.GetTenantValue(ctx, tenant, categoryID, id)
	if err != nil && !generic.IsNotFound(err) {
		return nil, generic.Infrastructure("lookup.get_tenant_value", err)
	}
	if row == nil || row.DeletedAt != nil {
		return nil, generic.NewNotFound("tenant_lookup_value", id)
	}
	return row, nil
}

// ensureCodeFree checks tenant rows (except exceptID) and global values for
// the code. Custom codes must not shadow a global code either, otherwise the
// global could never be overridden.
func (s *Service) ensureCodeFree(ctx context.Context, tenant generic.TenantID, categoryID, code, exceptID string) error {
	rows, err := s.Store.ListTenantValues(ctx, tenant, categoryID)
	if err != nil {
		return generic.Infrastructure("lookup.list_tenant_values", err)
	}
	for _, r := range rows {
		if r.DeletedAt == nil && r.ID != exceptID && strings.EqualFold(r.Code, code) {
			return duplicateCode(code)
		}
	}
	globals, err := s.Store.ListGlobalValues(ctx, categoryID)
	if err != nil {
		return generic.Infrastructure("lookup.list_global_values", err)
	}
	for _, g := range globals {
		if strings.EqualFold(g.Code, code) {
			return duplicateCode(code)
		}
	}
	return nil
}

func (s *Service) validateStruct(v any) error {
	return generic.CheckStruct(s.validate, v)
}

func duplicateCode(code string) error {
	return generic.NewValidation("code", "code %q already exists in this category", code)
}
