package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/batteryfi/batteryfi/internal/model"
)

// PostgresStore implements Store directly against a PostgreSQL database
// carrying the same tables as the hosted backend. Amounts are NUMERIC and
// travel as text to keep exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
	cols Collections
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool, cols Collections) *PostgresStore {
	return &PostgresStore{pool: pool, cols: cols}
}

func (s *PostgresStore) table(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func (s *PostgresStore) ListActiveListings(ctx context.Context) ([]model.Listing, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT id::TEXT, seller_id::TEXT, listing_type, title, COALESCE(description, ''),
		        price::TEXT, quantity::TEXT, unit,
		        energy_delivery_time, COALESCE(location_constraint, ''),
		        status, created_at, expires_at
		 FROM %s WHERE status = $1 ORDER BY created_at DESC`, s.table(s.cols.Listings)),
		model.ListingStatusActive)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	defer rows.Close()

	var listings []model.Listing
	for rows.Next() {
		var l model.Listing
		var priceS, qtyS string
		if err := rows.Scan(&l.ID, &l.SellerID, &l.ListingType, &l.Title, &l.Description,
			&priceS, &qtyS, &l.Unit,
			&l.EnergyDeliveryTime, &l.LocationConstraint,
			&l.Status, &l.CreatedAt, &l.ExpiresAt); err != nil {
			return nil, err
		}
		l.Price, _ = decimal.NewFromString(priceS)
		l.Quantity, _ = decimal.NewFromString(qtyS)
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (s *PostgresStore) ListActivePools(ctx context.Context) ([]model.Pool, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT id::TEXT, pool_name, COALESCE(description, ''), COALESCE(location_area, ''),
		        total_staked_tokens::TEXT, total_participants,
		        apy_rate::TEXT, min_stake_amount::TEXT,
		        pool_type, is_active
		 FROM %s WHERE is_active = TRUE ORDER BY total_staked_tokens DESC`, s.table(s.cols.Pools)))
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	defer rows.Close()

	var pools []model.Pool
	for rows.Next() {
		var p model.Pool
		var stakedS, apyS, minS string
		if err := rows.Scan(&p.ID, &p.PoolName, &p.Description, &p.LocationArea,
			&stakedS, &p.TotalParticipants,
			&apyS, &minS,
			&p.PoolType, &p.IsActive); err != nil {
			return nil, err
		}
		p.TotalStakedTokens, _ = decimal.NewFromString(stakedS)
		p.APYRate, _ = decimal.NewFromString(apyS)
		p.MinStakeAmount, _ = decimal.NewFromString(minS)
		pools = append(pools, p)
	}
	return pools, rows.Err()
}

func (s *PostgresStore) GetUserByAuthID(ctx context.Context, authUserID string) (*model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT id::TEXT, user_id::TEXT, COALESCE(username, ''), COALESCE(full_name, ''), COALESCE(wallet_address, '')
		 FROM %s WHERE user_id = $1`, s.table(s.cols.Users)), authUserID).
		Scan(&u.ID, &u.AuthUserID, &u.Username, &u.FullName, &u.WalletAddress)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", authUserID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", authUserID, err)
	}
	return &u, nil
}

func (s *PostgresStore) ListActiveStakes(ctx context.Context, userID string) ([]model.Stake, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT id::TEXT, user_id::TEXT, pool_id::TEXT, staked_amount::TEXT, rewards_earned::TEXT, stake_date, is_active
		 FROM %s WHERE user_id = $1 AND is_active = TRUE`, s.table(s.cols.Stakes)), userID)
	if err != nil {
		return nil, fmt.Errorf("list stakes: %w", err)
	}
	defer rows.Close()

	return scanStakes(rows)
}

func (s *PostgresStore) LinkWallet(ctx context.Context, authUserID, address string) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET wallet_address = $2, updated_at = $3 WHERE user_id = $1`, s.table(s.cols.Users)),
		authUserID, address, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("link wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", authUserID, ErrNotFound)
	}
	return nil
}

// pgxRows is the subset of pgx.Rows the scanners need.
type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanStakes(rows pgxRows) ([]model.Stake, error) {
	var stakes []model.Stake
	for rows.Next() {
		var st model.Stake
		var amountS, rewardsS string
		if err := rows.Scan(&st.ID, &st.UserID, &st.PoolID, &amountS, &rewardsS, &st.StakeDate, &st.IsActive); err != nil {
			return nil, err
		}
		st.StakedAmount, _ = decimal.NewFromString(amountS)
		st.RewardsEarned, _ = decimal.NewFromString(rewardsS)
		stakes = append(stakes, st)
	}
	return stakes, rows.Err()
}
