package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/batteryfi/batteryfi/internal/model"
	"github.com/batteryfi/batteryfi/internal/supabase"
)

// RemoteStore implements Store against the hosted backend's REST interface.
type RemoteStore struct {
	client *supabase.Client
	cols   Collections
}

// NewRemoteStore creates a store reading the given collections through client.
func NewRemoteStore(client *supabase.Client, cols Collections) *RemoteStore {
	return &RemoteStore{client: client, cols: cols}
}

// WithAccessToken returns a store whose requests run as the signed-in user.
func (s *RemoteStore) WithAccessToken(token string) Store {
	return &RemoteStore{client: s.client.WithAccessToken(token), cols: s.cols}
}

func (s *RemoteStore) ListActiveListings(ctx context.Context) ([]model.Listing, error) {
	var listings []model.Listing
	err := s.client.From(s.cols.Listings).
		Select("*").
		Eq("status", model.ListingStatusActive).
		Order("created_at", false).
		Execute(ctx, &listings)
	if err != nil {
		return nil, err
	}
	return listings, nil
}

func (s *RemoteStore) ListActivePools(ctx context.Context) ([]model.Pool, error) {
	var pools []model.Pool
	err := s.client.From(s.cols.Pools).
		Select("*").
		Eq("is_active", true).
		Order("total_staked_tokens", false).
		Execute(ctx, &pools)
	if err != nil {
		return nil, err
	}
	return pools, nil
}

func (s *RemoteStore) GetUserByAuthID(ctx context.Context, authUserID string) (*model.User, error) {
	var u model.User
	err := s.client.From(s.cols.Users).
		Select("*").
		Eq("user_id", authUserID).
		Single().
		Execute(ctx, &u)
	if errors.Is(err, supabase.ErrNotFound) {
		return nil, fmt.Errorf("user %s: %w", authUserID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *RemoteStore) ListActiveStakes(ctx context.Context, userID string) ([]model.Stake, error) {
	var stakes []model.Stake
	err := s.client.From(s.cols.Stakes).
		Select("*").
		Eq("user_id", userID).
		Eq("is_active", true).
		Execute(ctx, &stakes)
	if err != nil {
		return nil, err
	}
	return stakes, nil
}

func (s *RemoteStore) LinkWallet(ctx context.Context, authUserID, address string) error {
	return s.client.From(s.cols.Users).
		Eq("user_id", authUserID).
		Update(ctx, map[string]string{"wallet_address": address})
}
