package app

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/festa-erp/festa/internal/observability"
	"github.com/festa-erp/festa/internal/platform/httpx"
	"github.com/festa-erp/festa/internal/shared"
)

const (
	// CompanyHeader carries the tenant the request acts on.
	CompanyHeader = "X-Company-ID"
	// ActorHeader carries the acting user id recorded in audit logs.
	ActorHeader = "X-User-ID"
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics
}

// untenanted lists operational endpoints served without a tenant.
var untenanted = map[string]bool{
	"/healthz": true,
	"/metrics": true,
}

// TenantMiddleware resolves the tenant company and the acting user from request
// headers. Requests without a valid company are rejected before reaching handlers.
func TenantMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if untenanted[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		raw := strings.TrimSpace(r.Header.Get(CompanyHeader))
		if raw == "" {
			httpx.Problem(w, http.StatusBadRequest, "Missing Tenant", CompanyHeader+" header is required")
			return
		}
		companyID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || companyID <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Tenant", CompanyHeader+" must be a positive integer")
			return
		}
		ctx := shared.ContextWithCompany(r.Context(), companyID)
		if actor := strings.TrimSpace(r.Header.Get(ActorHeader)); actor != "" {
			userID, err := strconv.ParseInt(actor, 10, 64)
			if err != nil || userID <= 0 {
				httpx.Problem(w, http.StatusBadRequest, "Invalid Actor", ActorHeader+" must be a positive integer")
				return
			}
			ctx = shared.ContextWithActor(ctx, userID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// MiddlewareStack installs the Festa middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'none'",
		SSLRedirect:           cfg.Config.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !cfg.Config.IsProduction(),
	})

	timeout := 30 * time.Second
	rate := 120
	if cfg.Config != nil {
		if cfg.Config.AppRequestTimeout > 0 {
			timeout = cfg.Config.AppRequestTimeout
		}
		if cfg.Config.RateLimitPerMinute > 0 {
			rate = cfg.Config.RateLimitPerMinute
		}
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					logger.Warn("secure headers blocked request", slog.Any("error", err))
					return
				}
				next.ServeHTTP(w, r)
			})
		},
		httprate.Limit(rate, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
	}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, cfg.Metrics.Middleware)
	}
	return append(middlewares, TenantMiddleware)
}
