package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/batteryfi/batteryfi/internal/model"
)

// MemoryStore implements Store with in-memory slices. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu       sync.RWMutex
	listings []model.Listing
	pools    []model.Pool
	stakes   []model.Stake
	users    map[string]*model.User // auth user id → profile

	// Err, when set, is returned by every read. Lets tests exercise the
	// backend-failure path.
	Err error
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*model.User),
	}
}

// AddListing seeds a listing.
func (s *MemoryStore) AddListing(l model.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings = append(s.listings, l)
}

// AddPool seeds a pool.
func (s *MemoryStore) AddPool(p model.Pool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools = append(s.pools, p)
}

// AddStake seeds a stake.
func (s *MemoryStore) AddStake(st model.Stake) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stakes = append(s.stakes, st)
}

// AddUser seeds a profile row.
func (s *MemoryStore) AddUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := u
	s.users[u.AuthUserID] = &cp
}

func (s *MemoryStore) ListActiveListings(_ context.Context) ([]model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	var result []model.Listing
	for _, l := range s.listings {
		if l.Status == model.ListingStatusActive {
			result = append(result, l)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) ListActivePools(_ context.Context) ([]model.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	var result []model.Pool
	for _, p := range s.pools {
		if p.IsActive {
			result = append(result, p)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TotalStakedTokens.GreaterThan(result[j].TotalStakedTokens)
	})
	return result, nil
}

func (s *MemoryStore) GetUserByAuthID(_ context.Context, authUserID string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	u, ok := s.users[authUserID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", authUserID, ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) ListActiveStakes(_ context.Context, userID string) ([]model.Stake, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	var result []model.Stake
	for _, st := range s.stakes {
		if st.UserID == userID && st.IsActive {
			result = append(result, st)
		}
	}
	return result, nil
}

func (s *MemoryStore) LinkWallet(_ context.Context, authUserID, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[authUserID]
	if !ok {
		return fmt.Errorf("user %s: %w", authUserID, ErrNotFound)
	}
	u.WalletAddress = address
	return nil
}
