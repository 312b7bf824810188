package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/openride/rideshare-api/internal/config"
	"github.com/openride/rideshare-api/internal/db"
	"github.com/openride/rideshare-api/internal/repo"
	"github.com/openride/rideshare-api/internal/scheduler"
)

func main() {

	// Optional .env for local development; real deployments set env vars.
	_ = godotenv.Load()

	cfg := config.Load()

	setupLogging(cfg.LogFormat)

	if cfg.Env == "prod" && cfg.JWTSecret == "supersecretkey" {
		log.Fatal("JWT_SECRET must be set in prod")
	}

	database, err := db.Connect(
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBName,
		cfg.DBUser,
		cfg.DBPass,
	)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	database.SetMaxOpenConns(cfg.DBMaxOpenConns)
	database.SetMaxIdleConns(cfg.DBMaxIdleConns)

	slog.Info("connected to database", "host", cfg.DBHost, "name", cfg.DBName)

	if err := db.Run(db.URL(cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBUser, cfg.DBPass)); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	userRepo := repo.NewUserRepo(database)
	if err := seedAdmin(context.Background(), userRepo, cfg); err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}

	if cfg.TripPurgeCron != "" {
		retention := time.Duration(cfg.TripRetentionDays) * 24 * time.Hour
		_, err := scheduler.Run(cfg.TripPurgeCron, retention,
			repo.NewDriverTripRepo(database),
			repo.NewPassengerTripRepo(database),
		)
		if err != nil {
			log.Fatalf("Failed to start trip purge job: %v", err)
		}
		slog.Info("trip purge job scheduled", "cron", cfg.TripPurgeCron, "retention_days", cfg.TripRetentionDays)
	}

	r := newRouter(database, cfg)

	addr := ":" + cfg.Port
	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		slog.Info("starting server with TLS", "addr", addr)
		err = http.ListenAndServeTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile, r)
	} else {
		slog.Info("starting server", "addr", addr)
		err = http.ListenAndServe(addr, r)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func setupLogging(format string) {
	if format == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
		return
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))
}
