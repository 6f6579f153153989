package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/batteryfi/batteryfi/internal/api"
	"github.com/batteryfi/batteryfi/internal/app"
	"github.com/batteryfi/batteryfi/internal/config"
	"github.com/batteryfi/batteryfi/internal/dashboard"
	"github.com/batteryfi/batteryfi/internal/metrics"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- Dependencies ---
	deps, err := app.Build(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer deps.Close()

	// --- Live dashboard ---
	var sim *dashboard.Simulator
	hub := dashboard.NewHub(func() any { return sim.Update() })
	sim = dashboard.NewSimulator(hub)
	go hub.Run(ctx)

	limiter := api.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)

	sched := dashboard.NewScheduler(ctx)
	if err := sim.Schedule(sched); err != nil {
		slog.Error("schedule SoC updates", "err", err)
		os.Exit(1)
	}
	// Idle per-client state is swept alongside the limiter.
	if _, err := sched.Add("@every 10m", func(context.Context) {
		limiter.Cleanup()
		deps.Wallets.Cleanup()
		deps.Sessions.Sweep()
	}); err != nil {
		slog.Error("schedule cleanup", "err", err)
		os.Exit(1)
	}
	sched.Start()

	svc := api.NewService(deps.Store, deps.Sessions, deps.Wallets, sim)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	// CORS middleware for the browser front-end.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+api.ClientHeader)
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"batteryfi"}`))
	})

	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(deps.Sessions.Middleware)
		if cfg.RateLimit > 0 {
			r.Use(limiter.Handler)
		}

		// The socket outlives any request timeout.
		r.Get("/dashboard/ws", hub.HandleWS)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			svc.Routes(r)
		})
	})

	// --- Server ---
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		slog.Info("batteryfi listening", "port", cfg.Port, "schema_tag", cfg.SchemaTag)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down batteryfi...")
	sched.Stop()
	stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("batteryfi stopped")
}
