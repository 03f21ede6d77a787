package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/domain"
)

// TierRepository reads per-tier cooldown settings. Rows are seeded by the
// schema; a tier with no row falls back to the defaults given at construction.
type TierRepository struct {
	db       *pgxpool.Pool
	defaults map[domain.Tier]int
}

func NewTierRepository(db *pgxpool.Pool, defaults map[domain.Tier]int) *TierRepository {
	return &TierRepository{db: db, defaults: defaults}
}

// CooldownHours returns the configured cooldown for the tier, in hours.
func (r *TierRepository) CooldownHours(ctx context.Context, tier domain.Tier) (int, error) {
	const q = `select cooldown_hours from intelligence_tier_settings where tier = $1;`
	var hours int
	err := r.db.QueryRow(ctx, q, string(tier)).Scan(&hours)
	if errors.Is(err, pgx.ErrNoRows) {
		if h, ok := r.defaults[tier]; ok {
			return h, nil
		}
		return r.defaults[domain.TierAdventurer], nil
	}
	if err != nil {
		return 0, err
	}
	return hours, nil
}

// UserTier resolves a user's plan tier, defaulting to adventurer when the user
// has no settings row.
func (r *TierRepository) UserTier(ctx context.Context, userID string) (domain.Tier, error) {
	const q = `select tier from user_settings where user_id = $1;`
	var tier string
	err := r.db.QueryRow(ctx, q, userID).Scan(&tier)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TierAdventurer, nil
	}
	if err != nil {
		return "", err
	}
	return domain.Tier(tier), nil
}
