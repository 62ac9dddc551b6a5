package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"reconcileai/internal/config"
	"reconcileai/internal/database"
	"reconcileai/internal/handlers"
	"reconcileai/internal/matching"
	"reconcileai/internal/repositories"
	"reconcileai/internal/services"
)

func main() {
	migrateCmd := flag.String("migrate", "", "Migration command (up/down/version)")
	steps := flag.Int("steps", 0, "Number of migration steps (0 means all)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("error loading config", "error", err)
		os.Exit(1)
	}

	// Configuration errors surface here, before anything starts.
	engine, err := matching.NewEngine(cfg.EngineConfig())
	if err != nil {
		slog.Error("invalid matching configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.NewConnection(cfg)
	if err != nil {
		slog.Error("error connecting to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if *migrateCmd != "" {
		if err := handleMigration(cfg, *migrateCmd, *steps); err != nil {
			slog.Error("migration failed", "error", err)
			os.Exit(1)
		}
		return
	}

	bankRepo := repositories.NewBankRepository(db)
	accountingRepo := repositories.NewAccountingRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)

	dataIngestion := services.NewDataIngestionService(db, bankRepo, accountingRepo, sessionRepo)
	reconciliation := services.NewReconciliationService(db, engine, bankRepo, accountingRepo, sessionRepo)

	router := handlers.SetupRouter(dataIngestion, reconciliation)

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		slog.Info("server is running", "address", cfg.ServerAddress)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}
	slog.Info("server exited gracefully")
}

func handleMigration(cfg *config.Config, command string, steps int) error {
	m, err := migrate.New(
		fmt.Sprintf("file://%s", cfg.Migration.Dir),
		cfg.GetMigrationDBURL(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "no change") {
			slog.Info("no migration changes to apply")
			return nil
		}
		return fmt.Errorf("failed to initialize migrate: %w", err)
	}
	defer m.Close()

	switch command {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	case "version":
		version, dirty, verErr := m.Version()
		if verErr != nil {
			if verErr == migrate.ErrNilVersion {
				slog.Info("no migrations have been applied yet")
				return nil
			}
			return fmt.Errorf("failed to get version: %w", verErr)
		}
		slog.Info("current migration version", "version", version, "dirty", dirty)
		return nil
	default:
		return fmt.Errorf("invalid migration command: %s", command)
	}

	if err != nil {
		if err == migrate.ErrNoChange {
			slog.Info("no migration changes to apply")
			return nil
		}
		return err
	}

	slog.Info("migration completed successfully")
	return nil
}
