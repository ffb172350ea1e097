package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/gametracker/internal/config"
	"github.com/JonMunkholm/gametracker/internal/core"
	"github.com/JonMunkholm/gametracker/internal/logging"
	"github.com/JonMunkholm/gametracker/internal/report"
	"github.com/JonMunkholm/gametracker/internal/session"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return 1
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	// SIGINT/SIGTERM cancel the run, including connection retries
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	log := logging.FromContext(ctx)

	log.Info("configuration loaded", "config", cfg.String())

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.ConnString())
	if err != nil {
		log.Error("failed to parse database connection settings", "error", err)
		return 1
	}

	// Scopes run one at a time; the report scope reuses the load connection.
	poolConfig.MaxConns = 1
	poolConfig.MinConns = 0

	// No connection is opened here; the session manager dials with retries.
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Error("failed to create connection pool", "error", err)
		return 1
	}
	defer pool.Close()

	sessions := session.New(session.PoolConnector(pool), session.Options{
		MaxAttempts: cfg.Database.ConnectMaxAttempts,
		Delay:       cfg.Database.ConnectDelay,
		OnTransition: func(from, to session.State) {
			log.Debug("session state", "from", from, "to", to)
		},
	})

	reporter := &report.Generator{Sessions: sessions, Path: cfg.Report.Path}

	service := core.NewService(sessions, reporter, core.ServiceConfig{
		PlayersPath:     cfg.Source.PlayersPath(),
		ScoresPath:      cfg.Source.ScoresPath(),
		BootstrapSchema: cfg.Database.BootstrapSchema,
		CopyThreshold:   cfg.Load.CopyThreshold,
	})

	summary, err := service.Run(ctx)
	if err != nil {
		log.Error("pipeline failed", "stage", core.FailedStage(err), "error", err)
		fmt.Fprintln(os.Stderr, core.FormatDiagnostic(err))
		return 1
	}

	log.Info("pipeline succeeded",
		"players_retained", summary.Players.Retained,
		"scores_retained", summary.Scores.Retained,
		"orphans", summary.Scores.Orphans,
		"report", cfg.Report.Path,
	)
	return 0
}
