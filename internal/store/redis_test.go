package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/batteryfi/batteryfi/internal/model"
)

type cacheEnv struct {
	mr      *miniredis.Miniredis
	primary *MemoryStore
	cached  *CachedStore
}

func newCacheEnv(t *testing.T) *cacheEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	ms := NewMemoryStore()
	ms.AddListing(model.Listing{ID: "l1", Title: "Solar", Status: model.ListingStatusActive, CreatedAt: time.Now()})
	ms.AddPool(model.Pool{ID: "p1", PoolName: "North", TotalStakedTokens: decimal.NewFromInt(10), IsActive: true})
	ms.AddUser(model.User{ID: "row-1", AuthUserID: "auth-1"})
	ms.AddStake(model.Stake{ID: "s1", UserID: "row-1", PoolID: "p1", IsActive: true})

	return &cacheEnv{mr: mr, primary: ms, cached: NewCachedStore(ms, rdb, time.Minute)}
}

func TestCachedStore_MissStoresSnapshot(t *testing.T) {
	e := newCacheEnv(t)

	got, err := e.cached.ListActiveListings(context.Background())
	if err != nil || len(got) != 1 {
		t.Fatalf("miss should load from primary: %v %v", got, err)
	}

	raw, err := e.mr.Get(listingsKey)
	if err != nil {
		t.Fatalf("snapshot not stored: %v", err)
	}
	var snap snapshot[[]model.Listing]
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.FetchedAt.IsZero() || len(snap.Rows) != 1 || snap.Rows[0].ID != "l1" {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if ttl := e.mr.TTL(listingsKey); ttl <= 0 || ttl > time.Minute {
		t.Errorf("unexpected ttl %v", ttl)
	}
}

func TestCachedStore_HitSkipsPrimary(t *testing.T) {
	e := newCacheEnv(t)
	ctx := context.Background()

	if _, err := e.cached.ListActivePools(ctx); err != nil {
		t.Fatal(err)
	}
	e.primary.Err = errors.New("backend down")

	pools, err := e.cached.ListActivePools(ctx)
	if err != nil || len(pools) != 1 || pools[0].ID != "p1" {
		t.Fatalf("hit should be served from cache: %v %v", pools, err)
	}
	if !pools[0].TotalStakedTokens.Equal(decimal.NewFromInt(10)) {
		t.Errorf("decimal lost in snapshot: %s", pools[0].TotalStakedTokens)
	}
}

func TestCachedStore_ExpiredSnapshotReloads(t *testing.T) {
	e := newCacheEnv(t)
	ctx := context.Background()

	if _, err := e.cached.ListActivePools(ctx); err != nil {
		t.Fatal(err)
	}
	e.mr.FastForward(time.Minute + time.Second)
	e.primary.Err = errors.New("backend down")

	if _, err := e.cached.ListActivePools(ctx); err == nil {
		t.Error("expired snapshot should fall through to the primary")
	}
}

func TestCachedStore_CorruptSnapshotFallsThrough(t *testing.T) {
	e := newCacheEnv(t)
	e.mr.Set(listingsKey, "not json")

	got, err := e.cached.ListActiveListings(context.Background())
	if err != nil || len(got) != 1 {
		t.Fatalf("expected primary rows, got %v %v", got, err)
	}
}

func TestCachedStore_StakesBypassCache(t *testing.T) {
	e := newCacheEnv(t)
	ctx := context.Background()

	stakes, err := e.cached.ListActiveStakes(ctx, "row-1")
	if err != nil || len(stakes) != 1 {
		t.Fatalf("stakes: %v %v", stakes, err)
	}
	if keys := e.mr.Keys(); len(keys) != 0 {
		t.Errorf("stakes must not be cached, keys=%v", keys)
	}

	e.primary.Err = errors.New("backend down")
	if _, err := e.cached.ListActiveStakes(ctx, "row-1"); err == nil {
		t.Error("stakes should always reach the primary")
	}
}

func TestCachedStore_LinkWalletInvalidatesUser(t *testing.T) {
	e := newCacheEnv(t)
	ctx := context.Background()

	if _, err := e.cached.GetUserByAuthID(ctx, "auth-1"); err != nil {
		t.Fatal(err)
	}
	if !e.mr.Exists("snapshot:user:auth-1") {
		t.Fatal("user snapshot should be cached")
	}

	if err := e.cached.LinkWallet(ctx, "auth-1", "0xabc"); err != nil {
		t.Fatalf("link wallet: %v", err)
	}
	if e.mr.Exists("snapshot:user:auth-1") {
		t.Error("link wallet should delete the user snapshot")
	}

	u, err := e.cached.GetUserByAuthID(ctx, "auth-1")
	if err != nil || u.WalletAddress != "0xabc" {
		t.Errorf("expected fresh profile, got %+v %v", u, err)
	}
}

func TestCachedStore_FailedLinkReturnsError(t *testing.T) {
	e := newCacheEnv(t)
	ctx := context.Background()

	if err := e.cached.LinkWallet(ctx, "missing", "0xabc"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
