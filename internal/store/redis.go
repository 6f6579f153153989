package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/batteryfi/batteryfi/internal/model"
)

// CachedStore wraps a primary Store with a Redis snapshot cache keyed by
// collection. Each entry holds the last fetched rows and when they were
// fetched; entries expire after ttl. Writes go to the primary and
// invalidate the affected keys.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

type snapshot[T any] struct {
	FetchedAt time.Time `json:"fetched_at"`
	Rows      T         `json:"rows"`
}

// WithAccessToken scopes the primary and keeps sharing the cache. Only
// public collections are cached, so scoped reads stay correct.
func (s *CachedStore) WithAccessToken(token string) Store {
	return &CachedStore{primary: ForToken(s.primary, token), rdb: s.rdb, ttl: s.ttl}
}

// --- Read-through ---

func (s *CachedStore) ListActiveListings(ctx context.Context) ([]model.Listing, error) {
	return readThrough(ctx, s, listingsKey, s.primary.ListActiveListings)
}

func (s *CachedStore) ListActivePools(ctx context.Context) ([]model.Pool, error) {
	return readThrough(ctx, s, poolsKey, s.primary.ListActivePools)
}

func (s *CachedStore) GetUserByAuthID(ctx context.Context, authUserID string) (*model.User, error) {
	return readThrough(ctx, s, userKey(authUserID), func(ctx context.Context) (*model.User, error) {
		return s.primary.GetUserByAuthID(ctx, authUserID)
	})
}

// --- Passthrough (per-user data changes outside this service) ---

func (s *CachedStore) ListActiveStakes(ctx context.Context, userID string) ([]model.Stake, error) {
	return s.primary.ListActiveStakes(ctx, userID)
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) LinkWallet(ctx context.Context, authUserID, address string) error {
	if err := s.primary.LinkWallet(ctx, authUserID, address); err != nil {
		return err
	}
	s.rdb.Del(ctx, userKey(authUserID))
	return nil
}

func readThrough[T any](ctx context.Context, s *CachedStore, key string, load func(context.Context) (T, error)) (T, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var snap snapshot[T]
		if json.Unmarshal(data, &snap) == nil {
			return snap.Rows, nil
		}
	} else if err != redis.Nil {
		slog.Warn("cache read failed", "key", key, "err", err)
	}

	rows, err := load(ctx)
	if err != nil {
		return rows, err
	}

	if data, err := json.Marshal(snapshot[T]{FetchedAt: time.Now().UTC(), Rows: rows}); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
	return rows, nil
}

const (
	listingsKey = "snapshot:listings"
	poolsKey    = "snapshot:pools"
)

func userKey(authUserID string) string { return fmt.Sprintf("snapshot:user:%s", authUserID) }
