package dashboard

// BatteryPoint is one sample of the 24h battery flow chart. Energy values
// are kWh.
type BatteryPoint struct {
	Time      string  `json:"time"`
	SoC       float64 `json:"soc"`
	Exported  float64 `json:"exported"`
	Imported  float64 `json:"imported"`
	Demand    float64 `json:"demand"`
	Renewable float64 `json:"renewable"`
}

// RewardPoint is one month of token rewards and grid contribution.
type RewardPoint struct {
	Month        string  `json:"month"`
	Rewards      float64 `json:"rewards"`
	Contribution float64 `json:"contribution"`
}

// AllocationSlice is one share of the energy allocation pie.
type AllocationSlice struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// AreaStat is one neighbourhood in the community heat map.
type AreaStat struct {
	Area       string  `json:"area"`
	Usage      float64 `json:"usage"`
	Efficiency float64 `json:"efficiency"`
}

// Demonstration series until telemetry is wired to real devices.
var (
	batterySeries = []BatteryPoint{
		{"00:00", 45, 2.3, 1.8, 8.5, 12.2},
		{"04:00", 52, 1.9, 2.1, 6.2, 8.7},
		{"08:00", 68, 4.2, 0.8, 12.3, 18.5},
		{"12:00", 85, 8.1, 0.2, 15.7, 25.3},
		{"16:00", 78, 6.7, 1.2, 18.2, 22.1},
		{"20:00", 62, 3.4, 2.8, 14.6, 8.9},
	}

	rewardSeries = []RewardPoint{
		{"Jan", 245, 89},
		{"Feb", 312, 95},
		{"Mar", 289, 87},
		{"Apr", 378, 102},
		{"May", 425, 118},
		{"Jun", 398, 108},
	}

	allocation = []AllocationSlice{
		{"Home Consumption", 45, "#3b82f6"},
		{"Grid Export", 30, "#10b981"},
		{"Battery Storage", 20, "#f59e0b"},
		{"Emergency Reserve", 5, "#ef4444"},
	}

	communityHeatMap = []AreaStat{
		{"Downtown", 85, 92},
		{"Suburbs", 67, 88},
		{"Industrial", 95, 78},
		{"Residential", 72, 91},
	}
)

func clone[T any](s []T) []T {
	return append([]T(nil), s...)
}
