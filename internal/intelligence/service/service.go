// Package service holds the suggestion engine's business logic: lifecycle
// transitions, bulk resolution, the generation cooldown gate, and generation
// runs. Handlers stay thin; everything stateful funnels through here.
package service

import (
	"context"
	"time"

	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/domain"
	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/registry"
	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/repository"
)

// SuggestionStore is the persistence surface the services need.
type SuggestionStore interface {
	Get(ctx context.Context, id string) (*domain.Suggestion, error)
	ListByCampaign(ctx context.Context, campaignID string, f repository.ListFilter) ([]domain.Suggestion, error)
	CountsByStatus(ctx context.Context, campaignID string) (domain.StatusCounts, error)
	Insert(ctx context.Context, s *domain.Suggestion) error
	InsertBatch(ctx context.Context, suggestions []domain.Suggestion) error
	MarkApplied(ctx context.Context, id string, finalValue map[string]any, currentValue any) error
	MarkRejected(ctx context.Context, id, reason string) error
	MarkPending(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	PurgeResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// HandlerResolver maps a suggestion type to its commit/revert behavior.
type HandlerResolver interface {
	Resolve(t domain.SuggestionType) (registry.Handler, error)
}

// CooldownStore persists generation run markers.
type CooldownStore interface {
	Get(ctx context.Context, actor string, kind domain.CooldownKind, entityID string) (*domain.CooldownRecord, error)
	Set(ctx context.Context, rec *domain.CooldownRecord) error
	Delete(ctx context.Context, actor string, kind domain.CooldownKind, entityID string) error
}

// TierStore resolves plan tiers and their cooldown settings.
type TierStore interface {
	CooldownHours(ctx context.Context, tier domain.Tier) (int, error)
	UserTier(ctx context.Context, userID string) (domain.Tier, error)
}
