package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/condoledger/condoledger/internal/accounts"
	"github.com/condoledger/condoledger/internal/audit"
	"github.com/condoledger/condoledger/internal/ledger"
	"github.com/condoledger/condoledger/internal/mappings"
	"github.com/condoledger/condoledger/internal/periods"
	"github.com/condoledger/condoledger/internal/posting"
	"github.com/condoledger/condoledger/internal/reconciliation"
	"github.com/condoledger/condoledger/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger                *slog.Logger
	Config                *Config
	AccountsHandler       *accounts.Handler
	LedgerHandler         *ledger.Handler
	PeriodsHandler        *periods.Handler
	MappingsHandler       *mappings.Handler
	PostingHandler        *posting.Handler
	ReconciliationHandler *reconciliation.Handler
	AuditHandler          *audit.Handler
	JobHandler            *jobs.Handler
}

// NewRouter constructs the chi.Router with default middleware.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.JobHandler != nil {
		params.JobHandler.MountRoutes(r)
	}

	r.Group(func(r chi.Router) {
		r.Use(IdentityMiddleware)

		params.AccountsHandler.MountRoutes(r)
		params.LedgerHandler.MountRoutes(r)
		params.PeriodsHandler.MountRoutes(r)
		params.PostingHandler.MountRoutes(r)
		params.ReconciliationHandler.MountRoutes(r)
		params.AuditHandler.MountRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)

			params.LedgerHandler.MountAdminRoutes(r)
			params.PeriodsHandler.MountAdminRoutes(r)
			params.MappingsHandler.MountAdminRoutes(r)
			params.PostingHandler.MountAdminRoutes(r)
			if params.JobHandler != nil {
				params.JobHandler.MountAdminRoutes(r)
			}
		})
	})

	return r
}
