package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/EcodiaTate/site-backend-sub000/internal/repos/targets"
	"github.com/EcodiaTate/site-backend-sub000/internal/services/claims"
	progressionsvc "github.com/EcodiaTate/site-backend-sub000/internal/services/progression"
	"github.com/EcodiaTate/site-backend-sub000/internal/services/wallet"
)

// NewRouter registers all endpoints. db may be nil (in-memory mode); then
// /healthz skips the ping.
func NewRouter(claimSvc *claims.Service, walletSvc *wallet.Service,
	progressionSvc *progressionsvc.Service, targetStore targets.Store, db *sql.DB,
) http.Handler {
	h := NewHandler(claimSvc, walletSvc, progressionSvc, targetStore)
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()

			err := db.PingContext(ctx)
			if err != nil {
				writeError(w, http.StatusServiceUnavailable, "db unreachable")
				return
			}
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/claims/{targetCode}", h.SubmitClaimHandler)

		r.Get("/wallet/{actorID}", h.GetWalletHandler)
		r.Post("/wallet/{actorID}/spend", h.SpendHandler)
		r.Post("/transactions/{txID}/void", h.VoidTransactionHandler)

		r.Get("/progression/{actorID}", h.GetProgressionHandler)
		r.Get("/leaderboard", h.GetLeaderboardHandler)

		r.Post("/actions/approved", h.IngestApprovedActionHandler)

		r.Put("/targets/{code}", h.UpsertTargetHandler)
		r.Delete("/targets/{code}", h.DeactivateTargetHandler)
	})

	return r
}
