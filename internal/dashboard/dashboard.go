// Package dashboard serves the energy overview: battery telemetry, reward
// history, energy allocation and the community heat map, plus a simulated
// live state of charge pushed over WebSocket.
package dashboard

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/batteryfi/batteryfi/internal/session"
)

// Headline figures shown until per-user telemetry exists.
var (
	BatteryHealth      = 94
	TotalRewards       = decimal.RequireFromString("2847.5")
	EnergyContribution = 1247
)

// Snapshot is the rendered dashboard.
type Snapshot struct {
	SoC                float64           `json:"soc"`
	SoCBand            Band              `json:"soc_band"`
	BatteryHealth      int               `json:"battery_health"`
	TotalRewards       decimal.Decimal   `json:"total_rewards"`
	EnergyContribution int               `json:"energy_contribution"`
	Username           string            `json:"username,omitempty"`
	Battery            []BatteryPoint    `json:"battery"`
	Rewards            []RewardPoint     `json:"rewards"`
	Allocation         []AllocationSlice `json:"allocation"`
	Community          []AreaStat        `json:"community"`
}

// View is one mounted dashboard. It reads the shared simulator but owns
// copies of every series.
type View struct {
	sim  *Simulator
	sess *session.Session
}

// NewView creates a dashboard view. sess may be nil.
func NewView(sim *Simulator, sess *session.Session) *View {
	return &View{sim: sim, sess: sess}
}

// Mount is a no-op: every series is local.
func (v *View) Mount(context.Context) {}

// Snapshot renders the dashboard.
func (v *View) Snapshot() Snapshot {
	soc := InitialSoC
	if v.sim != nil {
		soc = v.sim.SoC()
	}
	snap := Snapshot{
		SoC:                soc,
		SoCBand:            SoCBand(soc),
		BatteryHealth:      BatteryHealth,
		TotalRewards:       TotalRewards,
		EnergyContribution: EnergyContribution,
		Battery:            clone(batterySeries),
		Rewards:            clone(rewardSeries),
		Allocation:         clone(allocation),
		Community:          clone(communityHeatMap),
	}
	if v.sess != nil {
		snap.Username = v.sess.Email
	}
	return snap
}
