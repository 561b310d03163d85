package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/festa-erp/festa/internal/finance"
	"github.com/festa-erp/festa/internal/masterdata/categories"
	"github.com/festa-erp/festa/internal/observability"
	"github.com/festa-erp/festa/internal/platform/httpx"
	"github.com/festa-erp/festa/internal/sales/contracts"
	"github.com/festa-erp/festa/internal/sales/quotes"
	"github.com/festa-erp/festa/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	QuotesHandler     *quotes.Handler
	ContractsHandler  *contracts.Handler
	FinanceHandler    *finance.Handler
	CategoriesHandler *categories.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with Festa defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	if !InTestMode() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.QuotesHandler != nil {
		params.QuotesHandler.MountRoutes(r)
	}
	if params.ContractsHandler != nil {
		params.ContractsHandler.MountRoutes(r)
	}
	if params.FinanceHandler != nil {
		params.FinanceHandler.MountRoutes(r)
	}
	if params.CategoriesHandler != nil {
		params.CategoriesHandler.MountRoutes(r)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	return r
}
