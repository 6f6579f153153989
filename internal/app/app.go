// Package app wires configuration into the shared dependencies used by both
// the HTTP server and the terminal client.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/batteryfi/batteryfi/internal/config"
	"github.com/batteryfi/batteryfi/internal/session"
	"github.com/batteryfi/batteryfi/internal/store"
	"github.com/batteryfi/batteryfi/internal/supabase"
	"github.com/batteryfi/batteryfi/internal/wallet"
)

// Deps are the long-lived dependencies built from a Config.
type Deps struct {
	Store    store.Store
	Backend  *supabase.Client
	Sessions *session.Provider
	Wallets  *wallet.Registry

	cleanup []func()
}

// Close releases connections in reverse order of creation.
func (d *Deps) Close() {
	for i := len(d.cleanup) - 1; i >= 0; i-- {
		d.cleanup[i]()
	}
}

// Build connects to the configured backends.
//
// Collections are read from the hosted backend unless DATABASE_URL points
// at a self-hosted database; REDIS_URL adds a snapshot cache on top of
// either. Auth always goes through the hosted backend.
func Build(ctx context.Context, cfg *config.Config) (*Deps, error) {
	d := &Deps{}

	backend, err := supabase.New(supabase.Config{
		URL:               cfg.SupabaseURL,
		AnonKey:           cfg.SupabaseAnonKey,
		RequestsPerSecond: cfg.BackendRPS,
	})
	if err != nil {
		return nil, fmt.Errorf("backend client: %w", err)
	}
	d.Backend = backend
	if cfg.UsingDevBackend() {
		slog.Warn("using the embedded development backend; set SUPABASE_URL and SUPABASE_ANON_KEY")
	}

	cols := store.NewCollections(cfg.SchemaTag)
	var st store.Store = store.NewRemoteStore(backend, cols)

	if cfg.DatabaseURL != "" {
		if cfg.Migrate {
			if err := store.Migrate(cfg.DatabaseURL); err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("database connection: %w", err)
		}
		d.cleanup = append(d.cleanup, pool.Close)
		st = store.NewPostgresStore(pool, cols)
		slog.Info("connected to PostgreSQL")
	}

	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opt)
		d.cleanup = append(d.cleanup, func() { rdb.Close() })
		st = store.NewCachedStore(st, rdb, cfg.CacheTTL)
		slog.Info("Redis cache enabled", "ttl", cfg.CacheTTL)
	}
	d.Store = st

	d.Sessions = session.NewProvider(backend.Auth(), st, cfg.SupabaseJWTSecret)

	// A nil Extension means no wallet is installed.
	var ext wallet.Extension
	if cfg.WalletRPCURL != "" {
		ext = wallet.NewEthereumExtension(cfg.WalletRPCURL)
	}
	d.Wallets = wallet.NewRegistry(ext, d.Sessions)

	return d, nil
}
