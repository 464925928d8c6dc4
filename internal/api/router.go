package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/propertyflow/propertyflow/internal/auth"
	"github.com/propertyflow/propertyflow/internal/directory"
	"github.com/propertyflow/propertyflow/internal/identity"
	"github.com/propertyflow/propertyflow/internal/metrics"
	"github.com/propertyflow/propertyflow/internal/rbac"
	"github.com/propertyflow/propertyflow/internal/tenant"
)

// Pinger reports database reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterDeps holds all dependencies for the API router.
type RouterDeps struct {
	Logger     *slog.Logger
	Verifier   identity.Verifier
	Users      UserStore
	Companies  CompanyStore
	Properties PropertyStore
	AuditLog   AuditLog
	Auditor    EventRecorder
	Metrics    *metrics.Metrics
	DB         Pinger

	// LocalAuth enables the login/logout endpoints. Only set when the
	// identity provider is "local"; OIDC deployments authenticate upstream.
	LocalAuth      bool
	AllowedOrigins []string
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(secureHeaders)
	r.Use(corsMiddleware(deps.AllowedOrigins))
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}
	r.Use(slogRequestLogger(logger))

	gate := rbac.NewGate(func(req *http.Request, reason string) {
		if deps.Metrics != nil {
			deps.Metrics.IncAccessDenial(reason)
		}
		recordEvent(deps.Auditor, req, "access.denied", req.Method+" "+req.URL.Path, "denied", reason)
	})

	var onVerify func(provider string, ok bool)
	var onResolve func(source tenant.Source)
	if deps.Metrics != nil {
		onVerify = func(provider string, ok bool) {
			if ok {
				deps.Metrics.IncAuthSuccess(provider)
			} else {
				deps.Metrics.IncAuthFailure(provider)
			}
		}
		onResolve = func(source tenant.Source) {
			deps.Metrics.IncTenantResolution(string(source))
		}
	}

	// Handlers.
	authH := newAuthHandler(deps.Users, deps.Auditor)
	companies := newCompaniesHandler(deps.Companies, deps.Auditor)
	properties := newPropertiesHandler(deps.Properties, deps.Auditor)
	admin := newAdminHandler(deps.Users, deps.AuditLog, deps.Auditor)

	anyMember := []directory.Role{
		directory.RoleCompanyOwner,
		directory.RolePropertyManager,
		directory.RoleMaintenance,
		directory.RoleTenant,
	}
	managers := []directory.Role{
		directory.RoleCompanyOwner,
		directory.RolePropertyManager,
	}

	// Health check.
	r.Get("/health", healthHandler(deps.DB))

	// Metrics summary.
	if deps.Metrics != nil {
		r.Get("/metrics/summary", deps.Metrics.SummaryHandler())
	}

	// Local credential endpoints, outside the authenticated group.
	if deps.LocalAuth {
		r.Post("/api/v1/auth/login", authH.Login)
		r.Post("/api/v1/auth/logout", authH.Logout)
	}

	// Authenticated routes: verify, sync, resolve tenancy, then gate.
	r.Route("/api/v1", func(ar chi.Router) {
		ar.Use(auth.Middleware(deps.Verifier, deps.Users, logger, onVerify))
		ar.Use(tenant.Middleware(onResolve))

		ar.Get("/auth/me", authH.Me)

		ar.Get("/companies", companies.List)
		ar.Post("/companies", companies.Create)
		ar.Route("/companies/{companyID}", func(cr chi.Router) {
			cr.Use(companyResource)
			// Get answers 404 for non-members itself, hiding existence.
			cr.Get("/", companies.Get)
			cr.With(gate.Require(directory.RoleCompanyOwner)).Put("/", companies.Update)
			cr.With(gate.Require(managers...)).Get("/members", companies.ListMembers)
			cr.With(gate.Require(directory.RoleCompanyOwner)).Post("/members", companies.AddMember)
			cr.With(gate.Require(directory.RoleCompanyOwner)).Put("/members/{userID}", companies.UpdateMemberRole)
		})

		ar.With(gate.Require(anyMember...)).Get("/properties", properties.List)
		ar.With(gate.Require(managers...)).Post("/properties", properties.Create)
		ar.Route("/properties/{propertyID}", func(pr chi.Router) {
			pr.Use(properties.withProperty)
			pr.With(gate.Require(anyMember...)).Get("/", properties.Get)
			pr.With(gate.Require(managers...)).Put("/", properties.Update)
			pr.With(gate.Require(managers...)).Delete("/", properties.Delete)
			pr.With(gate.Require(anyMember...)).Get("/units", properties.ListUnits)
			pr.With(gate.Require(managers...)).Post("/units", properties.CreateUnit)
		})

		ar.Route("/admin", func(adm chi.Router) {
			adm.Use(gate.Require(directory.RolePlatformAdmin))
			adm.Get("/users", admin.ListUsers)
			adm.Post("/users", admin.CreateUser)
			adm.Get("/audit", admin.ListAuditEvents)
		})
	})

	return r
}

// healthHandler reports server liveness and database reachability.
func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		database := "connected"

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				status = "degraded"
				database = "unreachable"
			}
		}

		code := http.StatusOK
		if status != "ok" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]string{"status": status, "database": database})
	}
}

// slogRequestLogger is a simple structured logging middleware using slog.
func slogRequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"bytes", ww.BytesWritten(),
				"request_id", RequestIDFromContext(r.Context()),
			)
		})
	}
}
