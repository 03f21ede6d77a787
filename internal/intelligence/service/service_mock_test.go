package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/domain"
	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/registry"
	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/repository"
)

// memSuggestionRepo mimics the guarded status updates of the real repository:
// MarkApplied/MarkRejected require pending, MarkPending requires applied.
type memSuggestionRepo struct {
	mu          sync.Mutex
	suggestions map[string]*domain.Suggestion
	inserted    []domain.Suggestion

	failMarkApplied bool
	failInsertBatch bool
}

func newMemSuggestionRepo() *memSuggestionRepo {
	return &memSuggestionRepo{suggestions: make(map[string]*domain.Suggestion)}
}

func (r *memSuggestionRepo) put(s *domain.Suggestion) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.suggestions[s.ID] = &cp
}

func (r *memSuggestionRepo) Get(_ context.Context, id string) (*domain.Suggestion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.suggestions[id]
	if !ok {
		return nil, domain.ErrSuggestionNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memSuggestionRepo) ListByCampaign(_ context.Context, campaignID string, _ repository.ListFilter) ([]domain.Suggestion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Suggestion{}
	for _, s := range r.suggestions {
		if s.CampaignID == campaignID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *memSuggestionRepo) CountsByStatus(_ context.Context, campaignID string) (domain.StatusCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var c domain.StatusCounts
	for _, s := range r.suggestions {
		if s.CampaignID != campaignID {
			continue
		}
		switch s.Status {
		case domain.StatusPending:
			c.Pending++
		case domain.StatusApplied:
			c.Applied++
		case domain.StatusRejected:
			c.Rejected++
		}
	}
	return c, nil
}

func (r *memSuggestionRepo) Insert(_ context.Context, s *domain.Suggestion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.suggestions[s.ID] = &cp
	r.inserted = append(r.inserted, cp)
	return nil
}

func (r *memSuggestionRepo) InsertBatch(_ context.Context, suggestions []domain.Suggestion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failInsertBatch {
		return fmt.Errorf("insert refused")
	}
	r.inserted = append(r.inserted, suggestions...)
	return nil
}

func (r *memSuggestionRepo) MarkApplied(_ context.Context, id string, finalValue map[string]any, currentValue any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failMarkApplied {
		return fmt.Errorf("storage refused")
	}
	s, ok := r.suggestions[id]
	if !ok {
		return domain.ErrSuggestionNotFound
	}
	if s.Status != domain.StatusPending {
		return fmt.Errorf("%w: suggestion is %s", domain.ErrInvalidTransition, s.Status)
	}
	s.Status = domain.StatusApplied
	s.FinalValue = finalValue
	if currentValue != nil {
		s.CurrentValue = currentValue
	}
	return nil
}

func (r *memSuggestionRepo) MarkRejected(_ context.Context, id, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.suggestions[id]
	if !ok {
		return domain.ErrSuggestionNotFound
	}
	if s.Status != domain.StatusPending {
		return fmt.Errorf("%w: suggestion is %s", domain.ErrInvalidTransition, s.Status)
	}
	s.Status = domain.StatusRejected
	if reason != "" {
		s.FinalValue = map[string]any{"reject_reason": reason}
	}
	return nil
}

func (r *memSuggestionRepo) MarkPending(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.suggestions[id]
	if !ok {
		return domain.ErrSuggestionNotFound
	}
	if s.Status != domain.StatusApplied {
		return fmt.Errorf("%w: suggestion is %s", domain.ErrInvalidTransition, s.Status)
	}
	s.Status = domain.StatusPending
	s.FinalValue = nil
	return nil
}

func (r *memSuggestionRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.suggestions[id]; !ok {
		return domain.ErrSuggestionNotFound
	}
	delete(r.suggestions, id)
	return nil
}

func (r *memSuggestionRepo) PurgeResolvedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.suggestions {
		if s.Status != domain.StatusPending && s.CreatedAt.Before(cutoff) {
			delete(r.suggestions, id)
			n++
		}
	}
	return n, nil
}

// stubHandler counts commits and reverts and can be told to fail either.
type stubHandler struct {
	mu         sync.Mutex
	commits    int
	reverts    int
	commitErr  error
	revertErr  error
	lastValue  any
	finalValue map[string]any
	current    any
}

func (h *stubHandler) Commit(_ context.Context, _ *domain.Suggestion, value any) (*registry.Result, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.commitErr != nil {
		return nil, h.commitErr
	}
	h.commits++
	h.lastValue = value
	final := h.finalValue
	if final == nil {
		if m, ok := value.(map[string]any); ok {
			final = m
		} else {
			final = map[string]any{}
		}
	}
	return &registry.Result{FinalValue: final, CurrentValue: h.current, Message: "done"}, nil
}

func (h *stubHandler) Revert(_ context.Context, _ *domain.Suggestion) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.revertErr != nil {
		return h.revertErr
	}
	h.reverts++
	return nil
}

// stubRegistry resolves every type to the same handler.
type stubRegistry struct {
	handler registry.Handler
	err     error
}

func (r *stubRegistry) Resolve(_ domain.SuggestionType) (registry.Handler, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.handler, nil
}

// memCooldownStore is a map-backed CooldownStore.
type memCooldownStore struct {
	mu      sync.Mutex
	records map[string]*domain.CooldownRecord
	setErr  error
}

func newMemCooldownStore() *memCooldownStore {
	return &memCooldownStore{records: make(map[string]*domain.CooldownRecord)}
}

func cooldownKey(actor string, kind domain.CooldownKind, entityID string) string {
	return fmt.Sprintf("%s:%s:%s", actor, kind, entityID)
}

func (m *memCooldownStore) Get(_ context.Context, actor string, kind domain.CooldownKind, entityID string) (*domain.CooldownRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[cooldownKey(actor, kind, entityID)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *memCooldownStore) Set(_ context.Context, rec *domain.CooldownRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	cp := *rec
	m.records[cooldownKey(rec.Actor, rec.Kind, rec.EntityID)] = &cp
	return nil
}

func (m *memCooldownStore) Delete(_ context.Context, actor string, kind domain.CooldownKind, entityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, cooldownKey(actor, kind, entityID))
	return nil
}

// stubTierStore returns a fixed tier and per-tier hours.
type stubTierStore struct {
	tier  domain.Tier
	hours map[domain.Tier]int
}

func (s *stubTierStore) UserTier(_ context.Context, _ string) (domain.Tier, error) {
	return s.tier, nil
}

func (s *stubTierStore) CooldownHours(_ context.Context, tier domain.Tier) (int, error) {
	if h, ok := s.hours[tier]; ok {
		return h, nil
	}
	return 24, nil
}
