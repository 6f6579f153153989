// Package store defines the collection-level persistence interface the
// BatteryFi views read from. Implementations include the hosted backend
// (PostgREST, the default), PostgreSQL via pgx for self-hosted deployments,
// a Redis snapshot cache, and in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/batteryfi/batteryfi/internal/model"
)

// ErrNotFound is returned when a keyed lookup matched no row.
var ErrNotFound = errors.New("store: not found")

// DefaultSchemaTag is the date-stamp suffix carried by every collection name.
// It acts as the schema version of the hosted backend.
const DefaultSchemaTag = "2025_10_22_14_48"

// Store is the persistence interface. Every read returns a fresh copy owned
// by the caller; nothing is shared between views.
type Store interface {
	// ListActiveListings returns listings with status "active", newest first.
	ListActiveListings(ctx context.Context) ([]model.Listing, error)

	// ListActivePools returns active pools ordered by total staked, descending.
	ListActivePools(ctx context.Context) ([]model.Pool, error)

	// GetUserByAuthID resolves the profile row for an external auth identity.
	GetUserByAuthID(ctx context.Context, authUserID string) (*model.User, error)

	// ListActiveStakes returns the active stakes owned by a users row id.
	ListActiveStakes(ctx context.Context, userID string) ([]model.Stake, error)

	// LinkWallet records a wallet address on the profile of authUserID.
	LinkWallet(ctx context.Context, authUserID, address string) error
}

// TokenScoped is implemented by stores that can authorize as a signed-in
// user instead of the public key.
type TokenScoped interface {
	WithAccessToken(token string) Store
}

// ForToken scopes st to the given access token when the store supports it.
func ForToken(st Store, token string) Store {
	if token == "" {
		return st
	}
	if ts, ok := st.(TokenScoped); ok {
		return ts.WithAccessToken(token)
	}
	return st
}

// Collections holds the backend collection names for one schema tag.
type Collections struct {
	Listings string
	Pools    string
	Stakes   string
	Users    string
}

// NewCollections derives collection names from a schema tag.
func NewCollections(tag string) Collections {
	if tag == "" {
		tag = DefaultSchemaTag
	}
	return Collections{
		Listings: "marketplace_listings_" + tag,
		Pools:    "community_pools_" + tag,
		Stakes:   "pool_stakes_" + tag,
		Users:    "users_" + tag,
	}
}
