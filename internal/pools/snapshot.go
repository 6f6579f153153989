package pools

import (
	"github.com/shopspring/decimal"

	"github.com/batteryfi/batteryfi/internal/model"
)

// PoolCard is a pool with its display fields.
type PoolCard struct {
	model.Pool
	TypeLabel   string          `json:"type_label"`
	FillPercent decimal.Decimal `json:"fill_percent"`
}

// StakeCard is a stake joined with the pool it belongs to. PoolName is empty
// when the pool is no longer active.
type StakeCard struct {
	model.Stake
	PoolName string          `json:"pool_name"`
	APYRate  decimal.Decimal `json:"apy_rate"`
}

// Snapshot is the rendered state of a view.
type Snapshot struct {
	Loading      bool            `json:"loading"`
	Balance      decimal.Decimal `json:"balance"`
	TotalStaked  decimal.Decimal `json:"total_staked"`
	TotalRewards decimal.Decimal `json:"total_rewards"`
	Pools        []PoolCard      `json:"pools"`
	Stakes       []StakeCard     `json:"stakes"`
}

// Snapshot renders pools and stakes.
func (v *View) Snapshot() Snapshot {
	snap := Snapshot{
		Loading:      v.loading,
		Balance:      v.balance,
		TotalStaked:  decimal.Zero,
		TotalRewards: decimal.Zero,
		Pools:        make([]PoolCard, 0, len(v.pools)),
		Stakes:       make([]StakeCard, 0, len(v.stakes)),
	}

	byID := make(map[string]model.Pool, len(v.pools))
	for _, p := range v.pools {
		byID[p.ID] = p
		snap.Pools = append(snap.Pools, PoolCard{
			Pool:        p,
			TypeLabel:   TypeLabel(p.PoolType),
			FillPercent: FillPercent(p),
		})
	}

	for _, s := range v.stakes {
		card := StakeCard{Stake: s}
		if p, ok := byID[s.PoolID]; ok {
			card.PoolName = p.PoolName
			card.APYRate = p.APYRate
		}
		snap.Stakes = append(snap.Stakes, card)
		snap.TotalStaked = snap.TotalStaked.Add(s.StakedAmount)
		snap.TotalRewards = snap.TotalRewards.Add(s.RewardsEarned)
	}
	return snap
}
