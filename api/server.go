/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging through zerolog
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the dashboard frontend

CALLER HEADERS:
  Every /api/reports, /api/lookups, /api/assignments and /api/admin request
  must carry X-Tenant-ID. The /api/admin routes also need X-Super-User.
  X-User-ID, X-Employee-ID and X-Super-User are optional. The headers are
  turned into a generic.Caller once per request and passed down explicitly.

ROUTE GROUPS:
  /api/reports/*        Compliance, overdue, completions, skills matrix
  /api/lookups/*        Effective lookup values and tenant edits
  /api/assignments/*    Start, complete, cancel
  /api/scenarios/*      Demo scenarios
  /api/admin/*          Sweep, catalog import, reset

SECURITY NOTE:
  The caller headers are trusted as-is. An authenticating proxy is expected
  in front of the server.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/commands/serve.go: Server startup
*/
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
	"github.com/warp/compliance-engine/generic"
)

// Caller headers.
const (
	HeaderTenantID   = "X-Tenant-ID"
	HeaderUserID     = "X-User-ID"
	HeaderEmployeeID = "X-Employee-ID"
	HeaderSuperUser  = "X-Super-User"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, corsOrigins []string) *chi.Mux {
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", HeaderTenantID, HeaderUserID, HeaderEmployeeID, HeaderSuperUser},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			r.Use(requireCaller)

			r.Route("/reports", func(r chi.Router) {
				r.Get("/compliance", h.GetComplianceReport)
				r.Get("/overdue", h.GetOverdueReport)
				r.Get("/completions", h.GetCompletionReport)
				r.Get("/matrix", h.GetSkillsMatrix)
			})

			r.Route("/lookups", func(r chi.Router) {
				r.Get("/", h.ListLookupCategories)
				r.Route("/{category}", func(r chi.Router) {
					r.Get("/", h.GetEffectiveValues)
					r.Post("/values", h.CreateCustomValue)
					r.Patch("/values/{valueId}", h.UpdateTenantValue)
					r.Delete("/values/{valueId}", h.DeleteCustomValue)
					r.Put("/overrides/{globalId}", h.ToggleGlobalOverride)
				})
			})

			r.Route("/assignments/{assignmentId}", func(r chi.Router) {
				r.Post("/start", h.StartAssignment)
				r.Post("/complete", h.CompleteAssignment)
				r.Post("/cancel", h.CancelAssignment)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Post("/catalog", h.ImportCatalog)
				r.Post("/sweep", h.RunSweep)
				r.Post("/reset", h.Reset)
			})
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

type callerKey struct{}

// requireCaller rejects requests without a tenant and stores the caller on
// the request context for the handlers to pick up.
func requireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, err := callerFromHeaders(r.Header)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), callerKey{}, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func callerFromHeaders(h http.Header) (generic.Caller, error) {
	caller := generic.Caller{
		TenantID: generic.TenantID(strings.TrimSpace(h.Get(HeaderTenantID))),
		UserID:   h.Get(HeaderUserID),
	}
	if emp := strings.TrimSpace(h.Get(HeaderEmployeeID)); emp != "" {
		id := generic.EmployeeID(emp)
		caller.EmployeeID = &id
	}
	if su := h.Get(HeaderSuperUser); su != "" {
		v, err := strconv.ParseBool(su)
		if err != nil {
			return caller, generic.NewValidation("X-Super-User", "must be a boolean")
		}
		caller.IsSuperUser = v
	}
	return caller, caller.Validate()
}

// callerFrom returns the caller set by requireCaller.
func callerFrom(r *http.Request) generic.Caller {
	caller, _ := r.Context().Value(callerKey{}).(generic.Caller)
	return caller
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("tenant", r.Header.Get(HeaderTenantID)).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("HTTP request")
		}()
		next.ServeHTTP(ww, r)
	})
}
