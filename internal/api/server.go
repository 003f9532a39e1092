package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/EcodiaTate/site-backend-sub000/internal/repos/targets"
	"github.com/EcodiaTate/site-backend-sub000/internal/services/claims"
	progressionsvc "github.com/EcodiaTate/site-backend-sub000/internal/services/progression"
	"github.com/EcodiaTate/site-backend-sub000/internal/services/wallet"
)

// NewServer creates a configured *http.Server for the reward-economy API.
func NewServer(addr string, claimSvc *claims.Service, walletSvc *wallet.Service,
	progressionSvc *progressionsvc.Service, targetStore targets.Store, db *sql.DB,
) *http.Server {
	mux := NewRouter(claimSvc, walletSvc, progressionSvc, targetStore, db)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
