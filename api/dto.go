/*
dto.go - Data Transfer Objects for the HTTP API

PURPOSE:
  Defines the JSON request/response structures for the API. The report
  results (reports.ComplianceReport etc.) and lookup.EffectiveValue already
  carry JSON tags and are written as-is; the types here cover requests and
  the domain rows that have no wire shape of their own.

CONVENTIONS:
  - JSON field names use snake_case
  - Dates use ISO 8601 (YYYY-MM-DD) or RFC 3339 timestamps
  - Optional fields use pointers with omitempty
  - Request bodies are checked with go-playground/validator tags

SEE ALSO:
  - handlers.go: Uses these DTOs
  - reports/types.go: Report response shapes
*/
package api

import (
	"time"

	"github.com/warp/compliance-engine/generic"
	"github.com/warp/compliance-engine/lookup"
	"github.com/warp/compliance-engine/training"
)

// =============================================================================
// LOOKUP DTOs
// =============================================================================

// CategoryDTO represents a lookup category.
type CategoryDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AllowCustom bool   `json:"allow_custom"`
}

// EffectiveValuesResponse is the merged value list of one category.
type EffectiveValuesResponse struct {
	Category        string                  `json:"category"`
	IncludeDisabled bool                    `json:"include_disabled"`
	Values          []lookup.EffectiveValue `json:"values"`
}

// TenantValueDTO represents a tenant lookup row (override or custom).
type TenantValueDTO struct {
	ID                 string          `json:"id"`
	CategoryID         string          `json:"category_id"`
	Kind               string          `json:"kind"` // "override" or "custom"
	OverriddenGlobalID *string         `json:"overridden_global_id,omitempty"`
	Code               string          `json:"code"`
	Name               string          `json:"name"`
	Metadata           lookup.Metadata `json:"metadata,omitempty"`
	SortOrder          int             `json:"sort_order"`
	IsEnabled          bool            `json:"is_enabled"`
	UpdatedAt          string          `json:"updated_at"`
}

// ToggleOverrideRequest enables or disables a global value for the tenant.
type ToggleOverrideRequest struct {
	IsEnabled *bool `json:"is_enabled" validate:"required"`
}

// =============================================================================
// ASSIGNMENT DTOs
// =============================================================================

// LocationDTO is a GPS fix.
type LocationDTO struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// StartAssignmentRequest is the optional body of a start call.
type StartAssignmentRequest struct {
	Location *LocationDTO `json:"location,omitempty"`
}

// CompleteAssignmentRequest records a completion.
type CompleteAssignmentRequest struct {
	CompletedAt       *string      `json:"completed_at,omitempty"` // RFC 3339, defaults to now
	TimeSpentSeconds  int          `json:"time_spent_seconds" validate:"gte=0"`
	VideoWatchPercent int          `json:"video_watch_percent" validate:"gte=0,lte=100"`
	QuizScore         *int         `json:"quiz_score,omitempty" validate:"omitempty,gte=0"`
	QuizMaxScore      *int         `json:"quiz_max_score,omitempty" validate:"omitempty,gt=0"`
	QuizPassed        *bool        `json:"quiz_passed,omitempty"`
	SignedBy          string       `json:"signed_by,omitempty" validate:"max=200"`
	SignatureRef      string       `json:"signature_ref,omitempty" validate:"max=500"`
	Location          *LocationDTO `json:"location,omitempty"`
}

// AssignmentActionResponse acknowledges a state change.
type AssignmentActionResponse struct {
	AssignmentID string `json:"assignment_id"`
	Status       string `json:"status"`
}

// =============================================================================
// SCENARIO / ADMIN DTOs
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	TenantID    string `json:"tenant_id"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toCategoryDTOs(cats []lookup.Category) []CategoryDTO {
	dtos := make([]CategoryDTO, len(cats))
	for i, c := range cats {
		dtos[i] = CategoryDTO{ID: c.ID, Name: c.Name, AllowCustom: c.AllowCustom}
	}
	return dtos
}

func toTenantValueDTO(v *lookup.TenantValue) TenantValueDTO {
	dto := TenantValueDTO{
		ID:         v.ID,
		CategoryID: v.CategoryID,
		Kind:       "custom",
		Code:       v.Code,
		Name:       v.Name,
		Metadata:   v.Metadata,
		SortOrder:  v.SortOrder,
		IsEnabled:  v.IsEnabled,
		UpdatedAt:  v.UpdatedAt.Format(time.RFC3339),
	}
	if id, ok := v.Kind.GlobalID(); ok {
		dto.Kind = "override"
		dto.OverriddenGlobalID = &id
	}
	return dto
}

func (l *LocationDTO) toGeoPoint() *training.GeoPoint {
	if l == nil {
		return nil
	}
	return &training.GeoPoint{Latitude: l.Latitude, Longitude: l.Longitude}
}

// toCompletion converts the request. completedAt defaults to now.
func (req CompleteAssignmentRequest) toCompletion(id generic.AssignmentID, now time.Time) (training.Completion, error) {
	completedAt := now
	if req.CompletedAt != nil {
		t, err := time.Parse(time.RFC3339, *req.CompletedAt)
		if err != nil {
			return training.Completion{}, generic.NewValidation("completed_at", "must be an RFC 3339 timestamp")
		}
		completedAt = t.UTC()
	}
	if (req.QuizScore == nil) != (req.QuizMaxScore == nil) {
		return training.Completion{}, generic.NewValidation("quiz_score", "quiz_score and quiz_max_score go together")
	}
	if req.QuizScore != nil && *req.QuizScore > *req.QuizMaxScore {
		return training.Completion{}, generic.NewValidation("quiz_score", "must not exceed quiz_max_score")
	}

	c := training.Completion{
		AssignmentID:       id,
		CompletedAt:        completedAt,
		TimeSpentSeconds:   req.TimeSpentSeconds,
		VideoWatchPercent:  req.VideoWatchPercent,
		QuizScore:          req.QuizScore,
		QuizMaxScore:       req.QuizMaxScore,
		QuizPassed:         req.QuizPassed,
		CompletionLocation: req.Location.toGeoPoint(),
	}
	if req.SignedBy != "" {
		c.Signature = &training.Signature{SignedBy: req.SignedBy, SignedAt: completedAt, Ref: req.SignatureRef}
	}
	return c, nil
}
