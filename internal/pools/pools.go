// Package pools implements the community staking view: list active pools,
// show the signed-in user's stakes and validate stake submissions against
// the pool minimum and the user's token balance.
package pools

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/batteryfi/batteryfi/internal/metrics"
	"github.com/batteryfi/batteryfi/internal/model"
	"github.com/batteryfi/batteryfi/internal/notify"
	"github.com/batteryfi/batteryfi/internal/session"
	"github.com/batteryfi/batteryfi/internal/store"
)

var (
	ErrInsufficientStake   = errors.New("pools: amount below pool minimum")
	ErrInsufficientBalance = errors.New("pools: amount exceeds balance")
	// ErrIncomplete marks a submission missing its session, pool or amount.
	// Nothing is notified for it.
	ErrIncomplete = errors.New("pools: incomplete stake submission")
)

// PlaceholderBalance is the BATT balance every user is shown until balances
// are read from chain.
var PlaceholderBalance = decimal.RequireFromString("2847.5")

// FillTarget is the staked total at which a pool renders as full.
var FillTarget = decimal.NewFromInt(300000)

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// View is one mounted staking view.
type View struct {
	store   store.Store
	sess    *session.Session
	n       notify.Notifier
	balance decimal.Decimal

	pools   []model.Pool
	stakes  []model.Stake
	loading bool
}

// NewView creates an unmounted view. sess may be nil.
func NewView(st store.Store, sess *session.Session, n notify.Notifier) *View {
	if sess != nil {
		st = store.ForToken(st, sess.AccessToken)
	}
	return &View{
		store:   st,
		sess:    sess,
		n:       n,
		balance: PlaceholderBalance,
		loading: true,
	}
}

// Mount fetches pools and, for a signed-in user, their stakes.
func (v *View) Mount(ctx context.Context) {
	v.fetchPools(ctx)
	v.fetchStakes(ctx)
}

func (v *View) fetchPools(ctx context.Context) {
	defer func() { v.loading = false }()

	start := time.Now()
	pools, err := v.store.ListActivePools(ctx)
	metrics.ObserveFetch("pools", start, err)
	if err != nil {
		slog.Error("fetch pools failed", "err", err)
		v.n.Notify(notify.Failure("Error Loading Pools", err.Error()))
		return
	}
	v.pools = pools
}

// fetchStakes resolves the profile row for the session, then its active
// stakes. Failures are logged only.
func (v *View) fetchStakes(ctx context.Context) {
	if v.sess == nil {
		return
	}

	start := time.Now()
	user, err := v.store.GetUserByAuthID(ctx, v.sess.UserID)
	if err != nil {
		metrics.ObserveFetch("stakes", start, err)
		slog.Warn("resolve user for stakes failed", "auth_user", v.sess.UserID, "err", err)
		return
	}
	stakes, err := v.store.ListActiveStakes(ctx, user.ID)
	metrics.ObserveFetch("stakes", start, err)
	if err != nil {
		slog.Warn("fetch stakes failed", "user", user.ID, "err", err)
		return
	}
	v.stakes = stakes
}

// Loading reports whether the pool fetch is still outstanding.
func (v *View) Loading() bool { return v.loading }

// Pools returns the fetched pools.
func (v *View) Pools() []model.Pool { return v.pools }

// Stakes returns the user's active stakes.
func (v *View) Stakes() []model.Stake { return v.stakes }

// Balance returns the user's spendable BATT.
func (v *View) Balance() decimal.Decimal { return v.balance }

func (v *View) pool(id string) (model.Pool, bool) {
	for _, p := range v.pools {
		if p.ID == id {
			return p, true
		}
	}
	return model.Pool{}, false
}

// Stake validates a stake of amount into poolID. Validation failures notify
// and return before anything else happens. A valid stake is acknowledged and
// the view refetches; no stake row is written.
func (v *View) Stake(ctx context.Context, poolID, amount string) error {
	amount = strings.TrimSpace(amount)
	if v.sess == nil || poolID == "" || amount == "" {
		return ErrIncomplete
	}
	p, ok := v.pool(poolID)
	if !ok {
		return ErrIncomplete
	}
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return ErrIncomplete
	}

	if amt.LessThan(p.MinStakeAmount) {
		metrics.StakeRejections.WithLabelValues("below_minimum").Inc()
		v.n.Notify(notify.Failure("Insufficient Stake Amount",
			"Minimum stake for this pool is "+p.MinStakeAmount.String()+" BATT"))
		return ErrInsufficientStake
	}
	if amt.GreaterThan(v.balance) {
		metrics.StakeRejections.WithLabelValues("balance").Inc()
		v.n.Notify(notify.Failure("Insufficient Balance", "You don't have enough BATT tokens"))
		return ErrInsufficientBalance
	}

	// TODO: submit the stake transaction and record it in the stakes collection.
	slog.Info("stake accepted", "user", v.sess.UserID, "pool", p.ID, "amount", amt.String())
	v.n.Notify(notify.Success("Staking Successful",
		"Successfully staked "+amt.String()+" BATT tokens in "+p.PoolName))

	v.fetchPools(ctx)
	v.fetchStakes(ctx)
	return nil
}

// ExpectedReward returns the annual and monthly BATT a stake would earn.
func ExpectedReward(amount, apy decimal.Decimal) (annual, monthly decimal.Decimal) {
	annual = amount.Mul(apy).Div(hundred)
	return annual, annual.Div(twelve)
}

// FillPercent is the share of FillTarget a pool has reached, capped at 100.
func FillPercent(p model.Pool) decimal.Decimal {
	pct := p.TotalStakedTokens.Div(FillTarget).Mul(hundred)
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}

// TypeLabel renders a pool type for badges: "grid_support" → "GRID SUPPORT".
func TypeLabel(poolType string) string {
	return strings.ToUpper(strings.Replace(poolType, "_", " ", 1))
}
