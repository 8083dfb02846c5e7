// Package lookup resolves tenant-aware classification values (training
// category, department, job title, language) from three tiers: global
// defaults, tenant overrides of those defaults, and tenant custom values.
package lookup

import (
	"context"
	"time"

	"github.com/warp/compliance-engine/generic"
)

// Well-known category names.
const (
	CategoryTrainingCategory = "TrainingCategory"
	CategoryDepartment       = "Department"
	CategoryJobTitle         = "JobTitle"
	CategoryLanguage         = "Language"
)

// Metadata is an opaque key-value blob stored as a JSON object.
type Metadata map[string]any

// Clone returns a shallow copy so callers cannot mutate stored rows.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// =============================================================================
// GLOBAL TIER
// =============================================================================

type Category struct {
	ID          string
	Name        string
	AllowCustom bool
	IsActive    bool
}

// Value is a global default value of a category.
type Value struct {
	ID         string
	CategoryID string
	Code       string
	Name       string
	Metadata   Metadata
	SortOrder  int
	IsActive   bool
}

// =============================================================================
// TENANT TIER - tagged variant
// =============================================================================

// Kind tells an override of a global value apart from a tenant-only value.
// The zero Kind is a Custom value.
type Kind struct {
	overrides string
}

// Override returns the Kind of a row that replaces global value globalID.
func Override(globalID string) Kind { return Kind{overrides: globalID} }

// Custom returns the Kind of a tenant-only row.
func Custom() Kind { return Kind{} }

// GlobalID returns the overridden global value, ok=false for custom rows.
func (k Kind) GlobalID() (string, bool) {
	return k.overrides, k.overrides != ""
}

func (k Kind) IsOverride() bool { return k.overrides != "" }

func (k Kind) String() string {
	if k.IsOverride() {
		return "override(" + k.overrides + ")"
	}
	return "custom"
}

// TenantValue is a tenant-scoped row: either an override or a custom value.
// Unique per (tenant, category, code) among non-deleted rows.
type TenantValue struct {
	ID         string
	TenantID   generic.TenantID
	CategoryID string
	Kind       Kind
	Code       string
	Name       string
	Metadata   Metadata
	SortOrder  int
	IsEnabled  bool
	DeletedAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// =============================================================================
// EFFECTIVE VALUE - result of the merge
// =============================================================================

type EffectiveValue struct {
	ID                 string   `json:"id"`
	CategoryID         string   `json:"category_id"`
	Code               string   `json:"code"`
	Name               string   `json:"name"`
	Metadata           Metadata `json:"metadata,omitempty"`
	SortOrder          int      `json:"sort_order"`
	IsEnabled          bool     `json:"is_enabled"`
	IsGlobal           bool     `json:"is_global"`
	OverriddenGlobalID *string  `json:"overridden_global_id,omitempty"`
}

// =============================================================================
// STORE
// =============================================================================

// Store persists the three tiers. Tenant rows are always filtered by tenant
// and exclude soft-deleted rows unless stated otherwise.
type Store interface {
	GetCategoryByName(ctx context.Context, name string) (*Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	SaveCategory(ctx context.Context, c Category) error

	ListGlobalValues(ctx context.Context, categoryID string) ([]Value, error)
	GetGlobalValue(ctx context.Context, categoryID, id string) (*Value, error)
	SaveGlobalValue(ctx context.Context, v Value) error

	ListTenantValues(ctx context.Context, tenant generic.TenantID, categoryID string) ([]TenantValue, error)
	GetTenantValue(ctx context.Context, tenant generic.TenantID, categoryID, id string) (*TenantValue, error)
	FindOverride(ctx context.Context, tenant generic.TenantID, categoryID, globalID string) (*TenantValue, error)

	// InsertTenantValue returns generic.ErrDuplicate when (tenant, category,
	// code) is already taken by a non-deleted row.
	InsertTenantValue(ctx context.Context, v TenantValue) error
	UpdateTenantValue(ctx context.Context, v TenantValue) error
}
