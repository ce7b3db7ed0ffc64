package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/salesops-erp/salesops-erp/internal/auth"
	"github.com/salesops-erp/salesops-erp/internal/balance"
	"github.com/salesops-erp/salesops-erp/internal/observability"
	"github.com/salesops-erp/salesops-erp/internal/pricing"
	"github.com/salesops-erp/salesops-erp/internal/shared"
	"github.com/salesops-erp/salesops-erp/internal/workflow"
	"github.com/salesops-erp/salesops-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	SessionManager  *shared.SessionManager
	AuthHandler     *auth.Handler
	BalanceHandler  *balance.Handler
	WorkflowHandler *workflow.Handler
	PricingHandler  *pricing.Handler
	JobHandler      *jobs.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/worksheets", params.BalanceHandler.MountRoutes)
	r.Route("/sales", params.WorkflowHandler.MountRoutes)
	r.Route("/pricing", params.PricingHandler.MountRoutes)
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
