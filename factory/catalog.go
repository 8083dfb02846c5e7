/*
Package factory provides JSON to Go catalog conversion.

PURPOSE:
  Converts a JSON catalog (lookup categories with their global values, and
  a tenant's learning items) into lookup and training rows, and writes them
  through the store interfaces. Used by the seed command and the demo
  scenarios, so catalogs can change without code changes.

JSON SCHEMA:
  {
    "lookups": [
      {
        "name": "TrainingCategory",
        "allow_custom": true,
        "values": [
          {"code": "fire", "name": "Fire Safety", "sort_order": 1,
           "metadata": {"color": "red"}}
        ]
      }
    ],
    "learning_items": [
      {"code": "FS-001", "title": "Fire Safety Basics", "category": "fire",
       "frequency": "annually", "quiz_pass_threshold": 80, "quiz_question_count": 10}
    ]
  }

IDENTIFIERS:
  Row ids are derived from names and codes (UUID v5), so applying the same
  catalog twice updates rows in place instead of duplicating them.

USAGE:
  f := factory.NewCatalogFactory()
  catalog, err := f.ParseCatalog(factory.DefaultCatalogJSON)
  summary, err := f.Apply(ctx, catalog, lookupStore, trainingStore, "acme", clock.Now())

SEE ALSO:
  - lookup/types.go: Category, Value
  - training/types.go: LearningItem
  - cmd/server/commands/seed.go: CLI entry point
*/
package factory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/warp/compliance-engine/generic"
	"github.com/warp/compliance-engine/lookup"
	"github.com/warp/compliance-engine/training"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// CatalogJSON is the JSON representation of a catalog.
type CatalogJSON struct {
	Lookups       []CategoryJSON     `json:"lookups"`
	LearningItems []LearningItemJSON `json:"learning_items"`
}

// CategoryJSON is one lookup category with its global values.
type CategoryJSON struct {
	Name        string      `json:"name"`
	AllowCustom bool        `json:"allow_custom"`
	Inactive    bool        `json:"inactive,omitempty"`
	Values      []ValueJSON `json:"values"`
}

// ValueJSON is one global lookup value.
type ValueJSON struct {
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	SortOrder int             `json:"sort_order"`
	Metadata  lookup.Metadata `json:"metadata,omitempty"`
	Inactive  bool            `json:"inactive,omitempty"`
}

// LearningItemJSON is one learning item of a tenant catalog.
type LearningItemJSON struct {
	Code              string `json:"code"`
	Title             string `json:"title"`
	Category          string `json:"category"`
	Frequency         string `json:"frequency,omitempty"` // once (default), weekly, monthly, annually
	QuizPassThreshold int    `json:"quiz_pass_threshold,omitempty"`
	QuizQuestionCount int    `json:"quiz_question_count,omitempty"`
}

// =============================================================================
// CATALOG FACTORY
// =============================================================================

// CatalogFactory converts JSON catalogs to store rows.
type CatalogFactory struct{}

// NewCatalogFactory creates a new catalog factory.
func NewCatalogFactory() *CatalogFactory {
	return &CatalogFactory{}
}

// ParseCatalog parses and validates a JSON catalog.
func (f *CatalogFactory) ParseCatalog(jsonStr string) (*CatalogJSON, error) {
	var c CatalogJSON
	if err := json.Unmarshal([]byte(jsonStr), &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
	}
	if err := f.Validate(c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks names, codes and item settings.
func (f *CatalogFactory) Validate(c CatalogJSON) error {
	categories := make(map[string]bool)
	for _, cat := range c.Lookups {
		if cat.Name == "" {
			return generic.NewValidation("lookups.name", "category name is required")
		}
		if categories[cat.Name] {
			return generic.NewValidation("lookups.name", "duplicate category %q", cat.Name)
		}
		categories[cat.Name] = true

		codes := make(map[string]bool)
		for _, v := range cat.Values {
			if v.Code == "" || v.Name == "" {
				return generic.NewValidation("lookups.values", "category %q: code and name are required", cat.Name)
			}
			if codes[v.Code] {
				return generic.NewValidation("lookups.values.code", "category %q: duplicate code %q", cat.Name, v.Code)
			}
			codes[v.Code] = true
		}
	}

	codes := make(map[string]bool)
	for _, item := range c.LearningItems {
		if item.Code == "" || item.Title == "" {
			return generic.NewValidation("learning_items", "code and title are required")
		}
		if codes[item.Code] {
			return generic.NewValidation("learning_items.code", "duplicate code %q", item.Code)
		}
		codes[item.Code] = true
		if _, err := parseFrequency(item.Frequency); err != nil {
			return err
		}
		if item.QuizPassThreshold < 0 || item.QuizPassThreshold > 100 {
			return generic.NewValidation("learning_items.quiz_pass_threshold", "%s: must be between 0 and 100", item.Code)
		}
	}
	return nil
}

// =============================================================================
// CONVERSION
// =============================================================================

var catalogNamespace = uuid.MustParse("6f1c1b1e-8f0a-4c52-9a53-2f0d6f3b7a10")

// CategoryID is the stable id of a category name.
func CategoryID(name string) string {
	return uuid.NewSHA1(catalogNamespace, []byte("category/"+name)).String()
}

// ValueID is the stable id of a global value.
func ValueID(categoryName, code string) string {
	return uuid.NewSHA1(catalogNamespace, []byte("value/"+categoryName+"/"+code)).String()
}

// LearningItemID is the stable id of a tenant's learning item code.
func LearningItemID(tenant generic.TenantID, code string) generic.LearningItemID {
	return generic.LearningItemID(uuid.NewSHA1(catalogNamespace, []byte("item/"+string(tenant)+"/"+code)).String())
}

// Categories converts the lookup part of the catalog.
func (f *CatalogFactory) Categories(c CatalogJSON) ([]lookup.Category, []lookup.Value) {
	var (
		cats   []lookup.Category
		values []lookup.Value
	)
	for _, cj := range c.Lookups {
		cat := lookup.Category{
			ID:          CategoryID(cj.Name),
			Name:        cj.Name,
			AllowCustom: cj.AllowCustom,
			IsActive:    !cj.Inactive,
		}
		cats = append(cats, cat)
		for _, vj := range cj.Values {
			values = append(values, lookup.Value{
				ID:         ValueID(cj.Name, vj.Code),
				CategoryID: cat.ID,
				Code:       vj.Code,
				Name:       vj.Name,
				Metadata:   vj.Metadata,
				SortOrder:  vj.SortOrder,
				IsActive:   !vj.Inactive,
			})
		}
	}
	return cats, values
}

// LearningItems converts the item part of the catalog for one tenant.
func (f *CatalogFactory) LearningItems(c CatalogJSON, tenant generic.TenantID, now time.Time) ([]training.LearningItem, error) {
	items := make([]training.LearningItem, 0, len(c.LearningItems))
	for _, ij := range c.LearningItems {
		freq, err := parseFrequency(ij.Frequency)
		if err != nil {
			return nil, err
		}
		items = append(items, training.LearningItem{
			ID:                LearningItemID(tenant, ij.Code),
			TenantID:          tenant,
			Code:              ij.Code,
			Title:             ij.Title,
			Category:          ij.Category,
			Frequency:         freq,
			QuizPassThreshold: ij.QuizPassThreshold,
			QuizQuestionCount: ij.QuizQuestionCount,
			CreatedAt:         now,
		})
	}
	return items, nil
}

// ItemWriter is the part of training.Writer the catalog needs.
type ItemWriter interface {
	SaveLearningItem(ctx context.Context, item training.LearningItem) error
}

// ApplySummary counts what Apply wrote.
type ApplySummary struct {
	Categories    int `json:"categories"`
	Values        int `json:"values"`
	LearningItems int `json:"learning_items"`
}

// Apply upserts the catalog. Lookup rows are global; learning items belong
// to tenant. An empty tenant skips the learning items.
func (f *CatalogFactory) Apply(ctx context.Context, c *CatalogJSON, lookups lookup.Store, items ItemWriter, tenant generic.TenantID, now time.Time) (ApplySummary, error) {
	var summary ApplySummary

	cats, values := f.Categories(*c)
	for _, cat := range cats {
		if err := lookups.SaveCategory(ctx, cat); err != nil {
			return summary, fmt.Errorf("save category %s: %w", cat.Name, err)
		}
		summary.Categories++
	}
	for _, v := range values {
		if err := lookups.SaveGlobalValue(ctx, v); err != nil {
			return summary, fmt.Errorf("save lookup value %s: %w", v.Code, err)
		}
		summary.Values++
	}

	if tenant == "" {
		return summary, nil
	}
	learningItems, err := f.LearningItems(*c, tenant, now)
	if err != nil {
		return summary, err
	}
	for _, item := range learningItems {
		if err := items.SaveLearningItem(ctx, item); err != nil {
			return summary, fmt.Errorf("save learning item %s: %w", item.Code, err)
		}
		summary.LearningItems++
	}
	return summary, nil
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseFrequency(s string) (training.Frequency, error) {
	if s == "" {
		return training.FrequencyOnce, nil
	}
	f := training.Frequency(strings.ToLower(s))
	if !f.Valid() {
		return "", generic.NewValidation("learning_items.frequency", "unknown frequency %q", s)
	}
	return f, nil
}

// =============================================================================
// DEFAULT CATALOG
// =============================================================================

// DefaultCatalogJSON is the built-in catalog used when no file is given.
const DefaultCatalogJSON = `{
  "lookups": [
    {
      "name": "TrainingCategory",
      "allow_custom": true,
      "values": [
        {"code": "general-safety", "name": "General Safety", "sort_order": 1},
        {"code": "fire", "name": "Fire Safety", "sort_order": 2, "metadata": {"color": "red"}},
        {"code": "ppe", "name": "Personal Protective Equipment", "sort_order": 3},
        {"code": "hazmat", "name": "Hazardous Materials", "sort_order": 4},
        {"code": "first-aid", "name": "First Aid", "sort_order": 5}
      ]
    },
    {
      "name": "Department",
      "allow_custom": true,
      "values": [
        {"code": "operations", "name": "Operations", "sort_order": 1},
        {"code": "maintenance", "name": "Maintenance", "sort_order": 2},
        {"code": "logistics", "name": "Logistics", "sort_order": 3}
      ]
    },
    {
      "name": "JobTitle",
      "allow_custom": true,
      "values": [
        {"code": "operator", "name": "Operator", "sort_order": 1},
        {"code": "supervisor", "name": "Supervisor", "sort_order": 2},
        {"code": "technician", "name": "Technician", "sort_order": 3}
      ]
    },
    {
      "name": "Language",
      "allow_custom": false,
      "values": [
        {"code": "en", "name": "English", "sort_order": 1},
        {"code": "es", "name": "Spanish", "sort_order": 2}
      ]
    }
  ],
  "learning_items": [
    {"code": "FS-001", "title": "Fire Safety", "category": "fire", "frequency": "annually", "quiz_pass_threshold": 80, "quiz_question_count": 10},
    {"code": "PPE-001", "title": "PPE Basics", "category": "ppe", "frequency": "annually", "quiz_pass_threshold": 70, "quiz_question_count": 8},
    {"code": "HZ-001", "title": "Handling Hazardous Materials", "category": "hazmat", "frequency": "monthly", "quiz_pass_threshold": 80, "quiz_question_count": 12},
    {"code": "TB-001", "title": "Weekly Toolbox Talk", "category": "general-safety", "frequency": "weekly"},
    {"code": "FA-001", "title": "First Aid Refresher", "category": "first-aid", "frequency": "once", "quiz_pass_threshold": 60, "quiz_question_count": 5}
  ]
}`
