package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/domain"
)

const cooldownKeyPrefix = "intel:cooldown:" // intel:cooldown:{actor}:{kind}:{entity_id}

// CooldownRepository keeps generation run markers in Redis. Records carry no
// TTL: besides gating, LastRunAt doubles as the staleness cursor that tells
// the generator which sessions are new since the previous run, so an expired
// marker would silently widen the next run's input window.
type CooldownRepository struct {
	client *redis.Client
}

func NewCooldownRepository(client *redis.Client) *CooldownRepository {
	return &CooldownRepository{client: client}
}

// Get returns the stored record, or nil when the key has never been written.
func (r *CooldownRepository) Get(ctx context.Context, actor string, kind domain.CooldownKind, entityID string) (*domain.CooldownRecord, error) {
	data, err := r.client.Get(ctx, r.key(actor, kind, entityID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cooldown record: %w", err)
	}

	var rec domain.CooldownRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cooldown record: %w", err)
	}
	return &rec, nil
}

func (r *CooldownRepository) Set(ctx context.Context, rec *domain.CooldownRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal cooldown record: %w", err)
	}
	if err := r.client.Set(ctx, r.key(rec.Actor, rec.Kind, rec.EntityID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store cooldown record: %w", err)
	}
	return nil
}

func (r *CooldownRepository) Delete(ctx context.Context, actor string, kind domain.CooldownKind, entityID string) error {
	if err := r.client.Del(ctx, r.key(actor, kind, entityID)).Err(); err != nil {
		return fmt.Errorf("failed to delete cooldown record: %w", err)
	}
	return nil
}

func (r *CooldownRepository) key(actor string, kind domain.CooldownKind, entityID string) string {
	if entityID == "" {
		entityID = "-"
	}
	return fmt.Sprintf("%s%s:%s:%s", cooldownKeyPrefix, actor, kind, entityID)
}
