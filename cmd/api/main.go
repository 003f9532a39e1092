package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/EcodiaTate/site-backend-sub000/internal/api"
	"github.com/EcodiaTate/site-backend-sub000/internal/infra/logging"
	"github.com/EcodiaTate/site-backend-sub000/internal/infra/pgutils"
	actionspg "github.com/EcodiaTate/site-backend-sub000/internal/repos/actions/postgres"
	badgespg "github.com/EcodiaTate/site-backend-sub000/internal/repos/badges/postgres"
	deduppg "github.com/EcodiaTate/site-backend-sub000/internal/repos/dedup/postgres"
	ledgerpg "github.com/EcodiaTate/site-backend-sub000/internal/repos/ledger/postgres"
	targetspg "github.com/EcodiaTate/site-backend-sub000/internal/repos/targets/postgres"
	"github.com/EcodiaTate/site-backend-sub000/internal/rewards"
	"github.com/EcodiaTate/site-backend-sub000/internal/services/claims"
	"github.com/EcodiaTate/site-backend-sub000/internal/services/multipliers"
	progressionsvc "github.com/EcodiaTate/site-backend-sub000/internal/services/progression"
	"github.com/EcodiaTate/site-backend-sub000/internal/services/wallet"
	"github.com/EcodiaTate/site-backend-sub000/pkg/envconf"
	"github.com/EcodiaTate/site-backend-sub000/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	cfg := new(apiConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra ---
	dbConns, err := pgutils.OpenDB(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	shutdownqueue.Add("close db", func(context.Context) error {
		return dbConns.Close()
	})

	rewardsCfg, err := rewards.LoadConfig(cfg.RewardsConfig)
	if err != nil {
		return fmt.Errorf("load rewards config: %w", err)
	}

	// --- Stores & services ---
	ledgerStore := ledgerpg.New(dbConns)
	dedupStore := deduppg.New(dbConns)
	targetStore := targetspg.New(dbConns)
	actionStore := actionspg.New(dbConns)
	badgeStore := badgespg.New(dbConns)

	stack := multipliers.NewResolver(rewardsCfg, actionStore, badgeStore)

	claimSvc := claims.New(ledgerStore, dedupStore, targetStore, stack, rewardsCfg)
	walletSvc := wallet.New(ledgerStore)
	progressionSvc := progressionsvc.New(ledgerStore, actionStore, badgeStore, stack, rewardsCfg)

	// --- HTTP server ---
	srv := api.NewServer(cfg.HTTPAddr, claimSvc, walletSvc, progressionSvc, targetStore, dbConns)

	shutdownqueue.Add("http server", func(c context.Context) error {
		slog.Info("Shut down server")

		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	// Run server
	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("API started", "addr", cfg.HTTPAddr, "season", rewardsCfg.Season.Name)

	// --- Wait until either context cancels or server errors out ---
	select {
	case <-ctx.Done():
		// graceful path; deferred shutdownqueue.Shutdown will run
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}
