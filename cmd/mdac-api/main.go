package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"mdac/internal/browser"
	"mdac/internal/config"
	"mdac/internal/engine"
	server "mdac/internal/http"
	"mdac/internal/jobs"
	"mdac/internal/migrate"
	"mdac/internal/services"
	"mdac/internal/store"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	role := flag.String("role", "all", "process role: api|worker|all")
	flag.Parse()

	cfg := config.Load(*configPath)

	// Run migrations on a short-lived connection
	if err := migrate.Run(cfg.Database.DSN, ""); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	// Create a shared *sql.DB with pooling for the Store
	db, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("open db failed: %v", err)
	}
	// Basic pool settings; adjust as needed
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	st := store.New(db)

	// Set up logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))

	// Browser session pool and job coordinator
	factory := browser.NewFactory(browser.Config{
		Headless:   cfg.Browser.Headless,
		ControlURL: cfg.Browser.ControlURL,
		Displays:   cfg.Browser.Displays,
	}, logger)

	maxSessions := cfg.Pool.MaxSessions
	if maxSessions <= 0 {
		maxSessions = 3
	}
	acquireTimeout := time.Duration(cfg.Pool.AcquireTimeoutMs) * time.Millisecond
	if acquireTimeout <= 0 {
		acquireTimeout = 30 * time.Second
	}
	pool := engine.NewPool(factory, maxSessions, acquireTimeout)

	gatePoll := time.Duration(cfg.Gate.PollIntervalMs) * time.Millisecond
	coord := engine.NewCoordinator(pool, engine.NewManualGate(), gatePoll, logger)
	defer coord.Shutdown()

	svc := services.NewJobService(cfg, st, coord, logger)

	rootCtx := context.Background()
	runner := jobs.NewRunner(cfg, st, jobs.Executors{Register: svc, Retrieve: svc}, logger)

	switch *role {
	case "api":
		// API-only: accept and persist jobs, leave execution to workers.
		s := server.NewServer(cfg, st, svc, coord, logger)
		if err := s.Listen(); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	case "worker":
		// Worker-only: claim and execute jobs, no HTTP surface.
		runner.Start(rootCtx)
	case "all":
		// Default: run both API and worker in one process.
		go runner.Start(rootCtx)
		s := server.NewServer(cfg, st, svc, coord, logger)
		if err := s.Listen(); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	default:
		log.Fatalf("invalid role: %s (expected api|worker|all)", *role)
	}
}
