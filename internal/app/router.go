package app

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	ledgerhttp "github.com/cashdesk-erp/cashdesk/internal/ledger/http"
	"github.com/cashdesk-erp/cashdesk/internal/observability"
	"github.com/cashdesk-erp/cashdesk/internal/refdata"
	"github.com/cashdesk-erp/cashdesk/internal/shared"
	"github.com/cashdesk-erp/cashdesk/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	LedgerHandler  *ledgerhttp.Handler
	RefDataHandler *refdata.Handler
	JobsClient     *jobs.Client
	Pool           *pgxpool.Pool
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with Cashdesk defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Recoverer)
	r.Use(chimw.Logger)
	r.Use(actorMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if params.Pool != nil {
			if err := params.Pool.Ping(req.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		if params.RefDataHandler != nil {
			params.RefDataHandler.MountRoutes(r)
		}
		if params.LedgerHandler != nil {
			params.LedgerHandler.MountRoutes(r)
		}
		if params.JobsClient != nil {
			r.Post("/admin/integrity-scan", func(w http.ResponseWriter, req *http.Request) {
				info, err := params.JobsClient.EnqueueJournalIntegrity(req.Context(), jobs.JournalIntegrityPayload{Requested: "api"})
				if err != nil {
					params.Logger.Error("enqueue integrity scan", slog.Any("error", err))
					http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusAccepted)
				_, _ = w.Write([]byte(`{"task_id":"` + info.ID + `"}`))
			})
		}
	})

	return r
}

// actorMiddleware lifts the gateway's user id header into the request
// context so downstream code receives it as an explicit parameter.
func actorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor, err := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64); err == nil && actor > 0 {
			r = r.WithContext(shared.ContextWithActor(r.Context(), actor))
		}
		next.ServeHTTP(w, r)
	})
}
