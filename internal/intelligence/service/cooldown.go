package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/domain"
)

// CooldownService is the generation gate. A key is (actor, kind, entity); the
// cooldown length comes from the actor's plan tier at the moment the run is
// recorded, so a plan change mid-cooldown does not shorten an active one.
type CooldownService struct {
	cooldowns CooldownStore
	tiers     TierStore
	now       func() time.Time
}

func NewCooldownService(cooldowns CooldownStore, tiers TierStore) *CooldownService {
	return &CooldownService{cooldowns: cooldowns, tiers: tiers, now: time.Now}
}

// Check reports whether the key is currently gated. A key with no record, or
// one whose window has elapsed, is available.
func (s *CooldownService) Check(ctx context.Context, actor string, kind domain.CooldownKind, entityID string) (*domain.CooldownStatus, error) {
	rec, err := s.cooldowns.Get(ctx, actor, kind, entityID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if rec == nil || !now.Before(rec.NextAvailableAt) {
		return &domain.CooldownStatus{OnCooldown: false}, nil
	}

	remaining := rec.NextAvailableAt.Sub(now)
	at := rec.NextAvailableAt
	return &domain.CooldownStatus{
		OnCooldown:         true,
		AvailableAt:        &at,
		Remaining:          remaining,
		RemainingFormatted: formatRemaining(remaining),
	}, nil
}

// RecordRun stamps a successful generation run, starting a fresh window sized
// by the actor's current tier. Only successful runs call this; a failed run
// must not consume the actor's window.
func (s *CooldownService) RecordRun(ctx context.Context, actor string, kind domain.CooldownKind, entityID string) (*domain.CooldownRecord, error) {
	tier, err := s.tiers.UserTier(ctx, actor)
	if err != nil {
		return nil, err
	}
	hours, err := s.tiers.CooldownHours(ctx, tier)
	if err != nil {
		return nil, err
	}

	now := s.now()
	rec := &domain.CooldownRecord{
		Actor:           actor,
		Kind:            kind,
		EntityID:        entityID,
		LastRunAt:       now,
		NextAvailableAt: now.Add(time.Duration(hours) * time.Hour),
		CooldownHours:   hours,
	}
	if err := s.cooldowns.Set(ctx, rec); err != nil {
		return nil, err
	}
	log.Printf("[intel] cooldown recorded actor=%s kind=%s entity=%s hours=%d", actor, kind, entityID, hours)
	return rec, nil
}

// LastRun returns the previous successful run time for the key, zero when the
// key has never run. Generation uses this as its staleness cursor.
func (s *CooldownService) LastRun(ctx context.Context, actor string, kind domain.CooldownKind, entityID string) (time.Time, error) {
	rec, err := s.cooldowns.Get(ctx, actor, kind, entityID)
	if err != nil {
		return time.Time{}, err
	}
	if rec == nil {
		return time.Time{}, nil
	}
	return rec.LastRunAt, nil
}

// Clear removes the key's record, releasing the gate and resetting the
// staleness cursor. Intended for support tooling.
func (s *CooldownService) Clear(ctx context.Context, actor string, kind domain.CooldownKind, entityID string) error {
	return s.cooldowns.Delete(ctx, actor, kind, entityID)
}

// formatRemaining renders a duration the way the review UI shows it: "2h 5m",
// or just minutes under an hour. Anything under a minute rounds up to "1m" so
// the gate never claims zero time left while still refusing.
func formatRemaining(d time.Duration) string {
	if d < time.Minute {
		return "1m"
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}
