package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stellar/go/keypair"
	"github.com/urfave/cli/v2"

	"github.com/trustbridge/walletd/internal/api"
	"github.com/trustbridge/walletd/internal/config"
	"github.com/trustbridge/walletd/internal/database"
	"github.com/trustbridge/walletd/internal/gateway"
	"github.com/trustbridge/walletd/internal/horizon"
	"github.com/trustbridge/walletd/internal/lend"
	"github.com/trustbridge/walletd/internal/session"
	"github.com/trustbridge/walletd/internal/vault"
	"github.com/trustbridge/walletd/internal/worker"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	app := &cli.App{
		Name:  "walletd",
		Usage: "Stellar wallet daemon",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the wallet HTTP API",
				Action: func(c *cli.Context) error {
					return serve(c.Context)
				},
			},
			{
				Name:  "keygen",
				Usage: "generate a fresh Stellar keypair",
				Action: func(c *cli.Context) error {
					kp, err := keypair.Random()
					if err != nil {
						return fmt.Errorf("generating keypair: %w", err)
					}
					fmt.Printf("Public key: %s\n", kp.Address())
					fmt.Printf("Secret key: %s\n", kp.Seed())
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	migrationsSub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("creating migrations sub-fs: %w", err)
	}
	if err := database.RunMigrations(ctx, pool, migrationsSub); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// Ledger gateway
	horizonClient := horizon.NewClient(cfg.HorizonURL, cfg.HorizonRetryMax, cfg.HorizonRetryBaseDelay)
	faucet := gateway.NewFaucetClient(cfg.FriendbotURL, cfg.FriendbotFallbackURL, cfg.FriendbotTimeout)
	ledger := gateway.New(horizonClient, faucet, cfg.NetworkPassphrase, cfg.SubmitTimeout)

	// Wallet session
	store := session.NewStore(ledger, session.NewPgRepository(pool), cfg.RefreshInterval, cfg.FundingSettleDelay)
	defer store.StopAutoRefresh()
	if err := store.Restore(ctx); err != nil {
		slog.Warn("restoring wallet session failed", "error", err)
	}

	// Yield vault (needs an API key to authenticate)
	var vaultSvc *vault.Service
	if cfg.VaultAPIKey != "" {
		vaultClient := vault.NewClient(cfg.VaultAPIURL, cfg.VaultAPIKey, cfg.SubmitTimeout)
		vaultSvc = vault.NewService(vaultClient, vault.NewPgRepository(pool), ledger, store, cfg.VaultAddress)

		sync := worker.Schedule("vault-sync", cfg.VaultSyncInterval, vaultSvc.Sync)
		defer sync.Stop()
	} else {
		slog.Info("VAULT_API_KEY not set, vault endpoints disabled")
	}

	// Lending protocol
	var lendSvc *lend.Service
	if cfg.LendAPIURL != "" {
		lendClient := lend.NewClient(cfg.LendAPIURL, cfg.SubmitTimeout)
		lendSvc = lend.NewService(lendClient, ledger, store, cfg.LendPoolID)
	} else {
		slog.Info("LEND_API_URL not set, lending endpoints disabled")
	}

	if cfg.APIKey == "" {
		slog.Warn("API_KEY not set, mutating endpoints are unprotected")
	}

	handler := api.NewHandler(store, ledger)
	hist := api.NewHistoryHandler(store, ledger, cfg.HistoryPageSize)
	defi := api.NewDefiHandler(vaultSvc, lendSvc)
	srv := api.NewServer(cfg.HTTPPort, handler, hist, defi, cfg.APIKey)

	go func() {
		log.Printf("HTTP server listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}
