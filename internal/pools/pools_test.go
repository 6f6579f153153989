package pools_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/batteryfi/batteryfi/internal/model"
	"github.com/batteryfi/batteryfi/internal/notify"
	"github.com/batteryfi/batteryfi/internal/pools"
	"github.com/batteryfi/batteryfi/internal/session"
	"github.com/batteryfi/batteryfi/internal/store"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// countingStore records how often each collection is read.
type countingStore struct {
	store.Store
	poolFetches  int
	stakeFetches int
}

func (c *countingStore) ListActivePools(ctx context.Context) ([]model.Pool, error) {
	c.poolFetches++
	return c.Store.ListActivePools(ctx)
}

func (c *countingStore) ListActiveStakes(ctx context.Context, userID string) ([]model.Stake, error) {
	c.stakeFetches++
	return c.Store.ListActiveStakes(ctx, userID)
}

func seeded() *store.MemoryStore {
	ms := store.NewMemoryStore()
	ms.AddPool(model.Pool{
		ID: "p1", PoolName: "Downtown Microgrid", PoolType: model.PoolCommunity,
		TotalStakedTokens: d("150000"), APYRate: d("12"), MinStakeAmount: d("100"), IsActive: true,
	})
	ms.AddPool(model.Pool{
		ID: "p2", PoolName: "Grid Backup", PoolType: model.PoolGridSupport,
		TotalStakedTokens: d("450000"), APYRate: d("8.5"), MinStakeAmount: d("50"), IsActive: true,
	})
	ms.AddPool(model.Pool{ID: "p3", PoolName: "Retired", IsActive: false})
	ms.AddUser(model.User{ID: "row-1", AuthUserID: "auth-1"})
	ms.AddStake(model.Stake{
		ID: "s1", UserID: "row-1", PoolID: "p1", StakedAmount: d("500"), RewardsEarned: d("12.5"),
		StakeDate: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), IsActive: true,
	})
	ms.AddStake(model.Stake{ID: "s2", UserID: "row-1", PoolID: "p2", StakedAmount: d("1"), IsActive: false})
	ms.AddStake(model.Stake{ID: "s3", UserID: "row-2", PoolID: "p2", StakedAmount: d("9"), IsActive: true})
	return ms
}

var alice = &session.Session{UserID: "auth-1", AccessToken: ""}

func mounted(t *testing.T, sess *session.Session) (*pools.View, *countingStore, *notify.Recorder) {
	t.Helper()
	cs := &countingStore{Store: seeded()}
	rec := notify.NewRecorder()
	v := pools.NewView(cs, sess, rec)
	v.Mount(context.Background())
	return v, cs, rec
}

func TestMount_OrdersActivePools(t *testing.T) {
	v, _, _ := mounted(t, nil)
	ps := v.Pools()
	if len(ps) != 2 || ps[0].ID != "p2" || ps[1].ID != "p1" {
		t.Errorf("expected [p2 p1], got %+v", ps)
	}
	if v.Loading() {
		t.Error("loading should clear")
	}
}

func TestMount_AnonymousSkipsStakes(t *testing.T) {
	v, cs, _ := mounted(t, nil)
	if cs.stakeFetches != 0 || len(v.Stakes()) != 0 {
		t.Error("anonymous visitors have no stakes")
	}
}

func TestMount_LoadsOwnActiveStakes(t *testing.T) {
	v, _, _ := mounted(t, alice)
	st := v.Stakes()
	if len(st) != 1 || st[0].ID != "s1" {
		t.Errorf("expected only s1, got %+v", st)
	}
}

func TestMount_StakeErrorsAreSilent(t *testing.T) {
	ms := seeded()
	rec := notify.NewRecorder()
	v := pools.NewView(ms, &session.Session{UserID: "nobody"}, rec)
	v.Mount(context.Background())

	if len(rec.All()) != 0 {
		t.Errorf("stake lookup failures should not notify, got %+v", rec.All())
	}
	if len(v.Pools()) != 2 {
		t.Error("pools should still load")
	}
}

func TestMount_PoolErrorNotifies(t *testing.T) {
	ms := store.NewMemoryStore()
	ms.Err = errors.New("timeout")
	rec := notify.NewRecorder()
	v := pools.NewView(ms, nil, rec)
	v.Mount(context.Background())

	last, _ := rec.Last()
	if last.Title != "Error Loading Pools" || last.Description != "timeout" {
		t.Errorf("unexpected notification %+v", last)
	}
	if v.Loading() {
		t.Error("loading should clear on failure")
	}
}

func TestStake_BelowMinimum(t *testing.T) {
	v, cs, rec := mounted(t, alice)

	err := v.Stake(context.Background(), "p1", "50")
	if !errors.Is(err, pools.ErrInsufficientStake) {
		t.Fatalf("expected ErrInsufficientStake, got %v", err)
	}
	all := rec.All()
	if len(all) != 1 || all[0].Title != "Insufficient Stake Amount" ||
		all[0].Description != "Minimum stake for this pool is 100 BATT" {
		t.Errorf("unexpected notifications %+v", all)
	}
	if cs.poolFetches != 1 || cs.stakeFetches != 1 {
		t.Errorf("rejected stake must not refetch: pools=%d stakes=%d", cs.poolFetches, cs.stakeFetches)
	}
}

func TestStake_AboveBalance(t *testing.T) {
	v, cs, rec := mounted(t, alice)

	err := v.Stake(context.Background(), "p1", "3000")
	if !errors.Is(err, pools.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	for _, n := range rec.All() {
		if n.Title == "Staking Successful" {
			t.Error("no success notification on rejection")
		}
	}
	last, _ := rec.Last()
	if last.Title != "Insufficient Balance" {
		t.Errorf("unexpected notification %+v", last)
	}
	if cs.poolFetches != 1 {
		t.Error("rejected stake must not refetch")
	}
}

func TestStake_ExactBalanceSucceeds(t *testing.T) {
	v, cs, rec := mounted(t, alice)

	if err := v.Stake(context.Background(), "p2", "2847.5"); err != nil {
		t.Fatalf("stake: %v", err)
	}
	last, _ := rec.Last()
	if last.Title != "Staking Successful" ||
		last.Description != "Successfully staked 2847.5 BATT tokens in Grid Backup" {
		t.Errorf("unexpected notification %+v", last)
	}
	if cs.poolFetches != 2 || cs.stakeFetches != 2 {
		t.Errorf("expected refetch of pools and stakes: pools=%d stakes=%d", cs.poolFetches, cs.stakeFetches)
	}
	if len(v.Stakes()) != 1 {
		t.Error("accepted stakes are not written")
	}
}

func TestStake_IncompleteIsNoop(t *testing.T) {
	tests := []struct {
		name   string
		sess   *session.Session
		pool   string
		amount string
	}{
		{"no session", nil, "p1", "200"},
		{"no pool", alice, "", "200"},
		{"unknown pool", alice, "p9", "200"},
		{"no amount", alice, "p1", " "},
		{"not a number", alice, "p1", "lots"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, cs, rec := mounted(t, tt.sess)
			before := len(rec.All())
			if err := v.Stake(context.Background(), tt.pool, tt.amount); !errors.Is(err, pools.ErrIncomplete) {
				t.Errorf("expected ErrIncomplete, got %v", err)
			}
			if len(rec.All()) != before || cs.poolFetches != 1 {
				t.Error("incomplete submission should do nothing")
			}
		})
	}
}

func TestExpectedReward(t *testing.T) {
	annual, monthly := pools.ExpectedReward(d("1200"), d("12"))
	if !annual.Equal(d("144")) || !monthly.Equal(d("12")) {
		t.Errorf("got annual=%s monthly=%s", annual, monthly)
	}
}

func TestFillPercent(t *testing.T) {
	if got := pools.FillPercent(model.Pool{TotalStakedTokens: d("150000")}); !got.Equal(d("50")) {
		t.Errorf("got %s", got)
	}
	if got := pools.FillPercent(model.Pool{TotalStakedTokens: d("450000")}); !got.Equal(d("100")) {
		t.Errorf("fill should cap at 100, got %s", got)
	}
}

func TestTypeLabel(t *testing.T) {
	if got := pools.TypeLabel(model.PoolGridSupport); got != "GRID SUPPORT" {
		t.Errorf("got %q", got)
	}
}

func TestSnapshot_JoinsStakesWithPools(t *testing.T) {
	v, _, _ := mounted(t, alice)
	snap := v.Snapshot()

	if !snap.Balance.Equal(pools.PlaceholderBalance) {
		t.Errorf("unexpected balance %s", snap.Balance)
	}
	if len(snap.Stakes) != 1 || snap.Stakes[0].PoolName != "Downtown Microgrid" {
		t.Errorf("unexpected stakes %+v", snap.Stakes)
	}
	if !snap.TotalStaked.Equal(d("500")) || !snap.TotalRewards.Equal(d("12.5")) {
		t.Errorf("unexpected totals %s %s", snap.TotalStaked, snap.TotalRewards)
	}
	if snap.Pools[0].TypeLabel != "GRID SUPPORT" {
		t.Errorf("unexpected label %s", snap.Pools[0].TypeLabel)
	}
}
