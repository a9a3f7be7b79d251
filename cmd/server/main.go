package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nucore/fincore-backend/internal/adapter/http/controller"
	"github.com/nucore/fincore-backend/internal/adapter/http/middleware"
	"github.com/nucore/fincore-backend/internal/adapter/http/router"
	"github.com/nucore/fincore-backend/internal/adapter/notify"
	"github.com/nucore/fincore-backend/internal/adapter/repository/postgres"
	"github.com/nucore/fincore-backend/internal/config"
	"github.com/nucore/fincore-backend/internal/usecase/account"
	"github.com/nucore/fincore-backend/internal/usecase/analytics"
	"github.com/nucore/fincore-backend/internal/usecase/ledger"
	"github.com/nucore/fincore-backend/internal/usecase/seeder"
)

const eventBufferSize = 16

func main() {
	cfg := config.Load()

	db, err := postgres.NewDB(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	accountRepo := postgres.NewAccountRepository(db, cfg.MutatorRetries)
	transactionRepo := postgres.NewTransactionRepository(db)

	registry := notify.NewRegistry(eventBufferSize)
	ledgerService := ledger.NewService(accountRepo, transactionRepo, registry, cfg.WorkflowTimeout, cfg.StalePendingAfter)
	accountService := account.NewService(accountRepo)
	analyticsService := analytics.NewService(transactionRepo)

	// Resolve transactions left pending by a previous crash before taking
	// traffic
	reconciled, err := ledgerService.ReconcileStalePending(ctx)
	if err != nil {
		log.Fatalf("Failed to reconcile stale pending transactions: %v", err)
	}
	if reconciled > 0 {
		log.Printf("Reconciled %d stale pending transactions", reconciled)
	}

	if cfg.SeedDemoData {
		demoSeeder := seeder.NewDemoSeeder(accountRepo)
		if err := demoSeeder.Seed(ctx); err != nil {
			log.Fatalf("Failed to seed demo accounts: %v", err)
		}
		log.Println("Demo accounts seeded successfully")
	}

	mux := router.New(
		middleware.BearerAuth(cfg.APIToken),
		controller.NewAccountController(accountService),
		controller.NewTransactionController(ledgerService),
		controller.NewAnalyticsController(analyticsService),
		controller.NewEventsController(registry),
	)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Periodic reconciliation sweep for rows orphaned while running
	sweepCtx, stopSweep := context.WithCancel(ctx)
	go reconcileLoop(sweepCtx, ledgerService, cfg.StalePendingAfter)

	go func() {
		log.Printf("HTTP server listening on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to serve HTTP server: %v", err)
		}
	}()

	waitForShutdown(server, stopSweep)
}

// reconcileLoop periodically fails pending transactions that outlived the
// stale threshold
func reconcileLoop(ctx context.Context, service *ledger.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := service.ReconcileStalePending(ctx); err != nil {
				log.Printf("Stale pending reconciliation failed: %v", err)
			}
		}
	}
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(server *http.Server, stopSweep context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Printf("Received signal: %v. Shutting down gracefully...", sig)

	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	log.Println("HTTP server stopped")
}
