package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tier is a subscription level controlling the daily task quota and per-task reward.
type Tier string

const (
	TierNone Tier = "NONE"
	Tier1    Tier = "TIER_1"
	Tier2    Tier = "TIER_2"
	Tier3    Tier = "TIER_3"
)

// TierBenefits is one row of the static tier table.
type TierBenefits struct {
	DailyTaskLimit   int
	DailyTotalReward decimal.Decimal
	Duration         time.Duration // validity purchased with the tier
}

// tierTable is the static benefits table. Reward-per-task is derived, never stored.
var tierTable = map[Tier]TierBenefits{
	Tier1: {DailyTaskLimit: 5, DailyTotalReward: decimal.NewFromInt(60), Duration: 30 * 24 * time.Hour},
	Tier2: {DailyTaskLimit: 10, DailyTotalReward: decimal.NewFromInt(180), Duration: 30 * 24 * time.Hour},
	Tier3: {DailyTaskLimit: 20, DailyTotalReward: decimal.NewFromInt(500), Duration: 30 * 24 * time.Hour},
}

// Valid reports whether t names a purchasable tier.
func (t Tier) Valid() bool {
	_, ok := tierTable[t]
	return ok
}

// Benefits returns the static benefits for the tier. The zero value is
// returned for TierNone or unknown tiers.
func (t Tier) Benefits() TierBenefits {
	return tierTable[t]
}

// RewardPerTask derives the reward booked per completed task.
func (t Tier) RewardPerTask() decimal.Decimal {
	b, ok := tierTable[t]
	if !ok || b.DailyTaskLimit == 0 {
		return decimal.Zero
	}
	return b.DailyTotalReward.Div(decimal.NewFromInt(int64(b.DailyTaskLimit)))
}
