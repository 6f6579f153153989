// Package model defines the domain records shared by the BatteryFi views.
// All token and currency amounts use shopspring/decimal, never float64.
// The authoritative shapes live in the hosted backend; these mirror its columns.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Listing types offered in the marketplace.
const (
	ListingEnergyTrade     = "energy_trade"
	ListingEquipment       = "equipment"
	ListingTokenSwap       = "token_swap"
	ListingFuturesContract = "futures_contract"
)

// Units a listing can be priced in.
const (
	UnitKWh      = "kwh"
	UnitPiece    = "piece"
	UnitToken    = "token"
	UnitContract = "contract"
)

// ListingStatusActive is the only status the marketplace queries for.
const ListingStatusActive = "active"

// Pool types.
const (
	PoolCommunity   = "community"
	PoolEmergency   = "emergency"
	PoolGridSupport = "grid_support"
)

// Listing is a sellable unit in the marketplace. Listings are never mutated
// by this service once created.
type Listing struct {
	ID                 string          `json:"id" db:"id"`
	SellerID           string          `json:"seller_id" db:"seller_id"`
	ListingType        string          `json:"listing_type" db:"listing_type"`
	Title              string          `json:"title" db:"title"`
	Description        string          `json:"description" db:"description"`
	Price              decimal.Decimal `json:"price" db:"price"`
	Quantity           decimal.Decimal `json:"quantity" db:"quantity"`
	Unit               string          `json:"unit" db:"unit"`
	EnergyDeliveryTime *time.Time      `json:"energy_delivery_time" db:"energy_delivery_time"`
	LocationConstraint string          `json:"location_constraint" db:"location_constraint"`
	Status             string          `json:"status" db:"status"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	ExpiresAt          *time.Time      `json:"expires_at" db:"expires_at"`
}

// Pool is a staking vehicle with a fixed APY. Read-only for this service.
type Pool struct {
	ID                string          `json:"id" db:"id"`
	PoolName          string          `json:"pool_name" db:"pool_name"`
	Description       string          `json:"description" db:"description"`
	LocationArea      string          `json:"location_area" db:"location_area"`
	TotalStakedTokens decimal.Decimal `json:"total_staked_tokens" db:"total_staked_tokens"`
	TotalParticipants int             `json:"total_participants" db:"total_participants"`
	APYRate           decimal.Decimal `json:"apy_rate" db:"apy_rate"`
	MinStakeAmount    decimal.Decimal `json:"min_stake_amount" db:"min_stake_amount"`
	PoolType          string          `json:"pool_type" db:"pool_type"`
	IsActive          bool            `json:"is_active" db:"is_active"`
}

// Stake is a user's deposit into a pool.
type Stake struct {
	ID            string          `json:"id" db:"id"`
	UserID        string          `json:"user_id" db:"user_id"` // users row id, not the auth id
	PoolID        string          `json:"pool_id" db:"pool_id"`
	StakedAmount  decimal.Decimal `json:"staked_amount" db:"staked_amount"`
	RewardsEarned decimal.Decimal `json:"rewards_earned" db:"rewards_earned"`
	StakeDate     time.Time       `json:"stake_date" db:"stake_date"`
	IsActive      bool            `json:"is_active" db:"is_active"`
}

// User is the profile row keyed by the external auth identity.
type User struct {
	ID            string `json:"id" db:"id"`
	AuthUserID    string `json:"user_id" db:"user_id"`
	Username      string `json:"username,omitempty" db:"username"`
	FullName      string `json:"full_name,omitempty" db:"full_name"`
	WalletAddress string `json:"wallet_address,omitempty" db:"wallet_address"`
}
