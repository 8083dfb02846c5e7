/*
engine.go - Three-tier merge of lookup values

PURPOSE:
  Computes the effective value list of one category for one tenant.

MERGE RULES:
  For each active global value G:
    - override O exists and O.IsEnabled      -> emit O (not G)
    - override O exists, disabled, includeDisabled -> emit O
    - override O exists, disabled            -> emit nothing (O hides G)
    - no override                            -> emit G
  If the category allows custom values:
    - every enabled custom row is emitted (includeDisabled does not apply)
  The result is sorted by name, then sort order.

EXAMPLE:
  engine := lookup.NewEngine(store)
  values, err := engine.ResolveEffectiveValues(ctx, "acme", "TrainingCategory", false)
*/
package lookup

import (
	"context"
	"sort"

	"github.com/warp/compliance-engine/generic"
)

// Engine resolves effective values. It is read-only.
type Engine struct {
	Store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{Store: store}
}

// ResolveEffectiveValues merges global, override and custom values.
func (e *Engine) ResolveEffectiveValues(
	ctx context.Context,
	tenant generic.TenantID,
	categoryName string,
	includeDisabled bool,
) (values []EffectiveValue, err error) {
	defer generic.Recover("lookup.resolve", &err)
	defer func() { generic.LogFailure("lookup.resolve", tenant, err) }()

	category, err := e.activeCategory(ctx, categoryName)
	if err != nil {
		return nil, err
	}

	globals, err := e.Store.ListGlobalValues(ctx, category.ID)
	if err != nil {
		return nil, generic.Infrastructure("lookup.list_global_values", err)
	}
	tenantRows, err := e.Store.ListTenantValues(ctx, tenant, category.ID)
	if err != nil {
		return nil, generic.Infrastructure("lookup.list_tenant_values", err)
	}

	return Merge(*category, globals, tenantRows, includeDisabled), nil
}

// NameIndex maps code to display name for the enabled values of a category.
// Callers use it to render classification names next to raw codes.
func (e *Engine) NameIndex(ctx context.Context, tenant generic.TenantID, categoryName string) (map[string]string, error) {
	values, err := e.ResolveEffectiveValues(ctx, tenant, categoryName, false)
	if err != nil {
		return nil, err
	}
	index := make(map[string]string, len(values))
	for _, v := range values {
		index[v.Code] = v.Name
	}
	return index, nil
}

func (e *Engine) activeCategory(ctx context.Context, name string) (*Category, error) {
	category, err := e.Store.GetCategoryByName(ctx, name)
	if err != nil {
		if generic.IsNotFound(err) {
			return nil, generic.NewNotFound("lookup_category", name)
		}
		return nil, generic.Infrastructure("lookup.get_category", err)
	}
	if category == nil || !category.IsActive {
		return nil, generic.NewNotFound("lookup_category", name)
	}
	return category, nil
}

// Merge is the pure part of ResolveEffectiveValues.
func Merge(category Category, globals []Value, tenantRows []TenantValue, includeDisabled bool) []EffectiveValue {
	overrides := make(map[string]TenantValue)
	var customs []TenantValue

	for _, row := range tenantRows {
		if row.DeletedAt != nil {
			continue
		}
		if globalID, ok := row.Kind.GlobalID(); ok {
			overrides[globalID] = row
		} else {
			customs = append(customs, row)
		}
	}

	result := make([]EffectiveValue, 0, len(globals)+len(customs))

	for _, g := range globals {
		if !g.IsActive {
			continue
		}
		o, overridden := overrides[g.ID]
		if !overridden {
			result = append(result, fromGlobal(g))
			continue
		}
		if o.IsEnabled || includeDisabled {
			result = append(result, fromOverride(o, g.ID))
		}
	}

	if category.AllowCustom {
		for _, c := range customs {
			if c.IsEnabled {
				result = append(result, fromCustom(c))
			}
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].SortOrder < result[j].SortOrder
	})
	return result
}

func fromGlobal(g Value) EffectiveValue {
	return EffectiveValue{
		ID:         g.ID,
		CategoryID: g.CategoryID,
		Code:       g.Code,
		Name:       g.Name,
		Metadata:   g.Metadata.Clone(),
		SortOrder:  g.SortOrder,
		IsEnabled:  true,
		IsGlobal:   true,
	}
}

func fromOverride(o TenantValue, globalID string) EffectiveValue {
	id := globalID
	return EffectiveValue{
		ID:                 o.ID,
		CategoryID:         o.CategoryID,
		Code:               o.Code,
		Name:               o.Name,
		Metadata:           o.Metadata.Clone(),
		SortOrder:          o.SortOrder,
		IsEnabled:          o.IsEnabled,
		IsGlobal:           false,
		OverriddenGlobalID: &id,
	}
}

func fromCustom(c TenantValue) EffectiveValue {
	return EffectiveValue{
		ID:         c.ID,
		CategoryID: c.CategoryID,
		Code:       c.Code,
		Name:       c.Name,
		Metadata:   c.Metadata.Clone(),
		SortOrder:  c.SortOrder,
		IsEnabled:  c.IsEnabled,
		IsGlobal:   false,
	}
}
