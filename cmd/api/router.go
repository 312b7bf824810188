package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"

	"github.com/openride/rideshare-api/internal/auth"
	"github.com/openride/rideshare-api/internal/config"
	"github.com/openride/rideshare-api/internal/db"
	"github.com/openride/rideshare-api/internal/handlers"
	"github.com/openride/rideshare-api/internal/middleware"
	"github.com/openride/rideshare-api/internal/repo"
)

// newRouter builds the full HTTP handler chain. Split from main so the
// integration tests can build it against a mock database.
func newRouter(database *sql.DB, cfg config.Config) http.Handler {
	userRepo := repo.NewUserRepo(database)
	driverRepo := repo.NewDriverTripRepo(database)
	passengerRepo := repo.NewPassengerTripRepo(database)

	tokens := auth.NewTokenService(cfg.JWTSecret, time.Duration(cfg.JWTExpireHours)*time.Hour)

	authHandler := &handlers.AuthHandler{Users: userRepo, Tokens: tokens}
	userHandler := &handlers.UserHandler{
		Repo:       userRepo,
		Tokens:     tokens,
		BcryptCost: cfg.BcryptCost,
		Reset: func(ctx context.Context) error {
			if err := db.Reset(ctx, database); err != nil {
				return err
			}
			return seedAdmin(ctx, userRepo, cfg)
		},
	}
	driverHandler := &handlers.TripHandler{Repo: driverRepo, Ledger: "driver"}
	passengerHandler := &handlers.TripHandler{Repo: passengerRepo, Ledger: "passenger"}

	requireLogin := middleware.RequireLogin(userRepo, tokens)
	requireAdmin := middleware.RequireAdmin(userRepo, tokens)
	authLimiter := middleware.AuthRateLimiter()
	maxBytes := middleware.MaxBytes(middleware.DefaultMaxBodyBytes)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestLog)
	r.Use(middleware.Prometheus)
	r.Use(middleware.SecurityHeaders(cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			handlers.JSONMessage(w, "API is accessible", http.StatusOK)
		})

		r.With(authLimiter.Middleware, maxBytes).Post("/login", authHandler.Login)

		r.Route("/users", func(r chi.Router) {
			r.With(authLimiter.Middleware, maxBytes).Post("/", userHandler.CreateUser)
			r.Get("/{id}", userHandler.GetUser)
			r.With(requireAdmin).Get("/", userHandler.ListUsers)
			r.With(requireAdmin).Delete("/", userHandler.ResetDatabase)
			r.With(requireLogin, maxBytes).Put("/{id}", userHandler.UpdateUser)
			r.With(requireLogin).Delete("/{id}", userHandler.DeleteUser)
		})

		r.Route("/trips", func(r chi.Router) {
			r.Use(requireLogin)
			r.With(maxBytes).Post("/driver", driverHandler.CreateTrip)
			r.Get("/driver", driverHandler.ListTrips)
			r.Get("/driver/{tid}", driverHandler.GetTrip)
			r.With(maxBytes).Post("/passenger", passengerHandler.CreateTrip)
			r.Get("/passenger", passengerHandler.ListTrips)
			r.Get("/passenger/{tid}", passengerHandler.GetTrip)
		})
	})

	return r
}

// seedAdmin ensures the configured admin account exists (id 1 on a fresh
// database), so admin-gated routes are reachable from the start.
func seedAdmin(ctx context.Context, users *repo.UserRepo, cfg config.Config) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), cfg.BcryptCost)
	if err != nil {
		return err
	}
	return users.EnsureAdmin(ctx, cfg.AdminUsername, string(hash))
}
