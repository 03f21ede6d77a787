package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/chroniclekeep/chronicle-backend/internal/generator"
	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/domain"
)

// GenerationService runs the gate-check → analyze → persist → stamp sequence
// for a generation request. The cooldown is only consumed after drafts are
// safely persisted: an upstream or storage failure leaves the gate open so
// the actor can retry immediately.
type GenerationService struct {
	gen       generator.Generator
	repo      SuggestionStore
	cooldowns *CooldownService
}

func NewGenerationService(gen generator.Generator, repo SuggestionStore, cooldowns *CooldownService) *GenerationService {
	return &GenerationService{gen: gen, repo: repo, cooldowns: cooldowns}
}

// GenerationResult summarizes a completed run.
type GenerationResult struct {
	Created  int                    `json:"created"`
	Cooldown *domain.CooldownRecord `json:"cooldown"`
}

// RequestGeneration triggers an analysis run for a campaign, or for a single
// character when characterID is set. fullAudit ignores the staleness cursor
// and re-reads the whole campaign history; it does not bypass the gate.
func (s *GenerationService) RequestGeneration(ctx context.Context, actor, campaignID, characterID string, fullAudit bool) (*GenerationResult, error) {
	kind := domain.CooldownCampaign
	entityID := campaignID
	if characterID != "" {
		kind = domain.CooldownCharacter
		entityID = characterID
	}

	status, err := s.cooldowns.Check(ctx, actor, kind, entityID)
	if err != nil {
		return nil, err
	}
	if status.OnCooldown {
		return nil, &domain.CooldownError{AvailableAt: *status.AvailableAt, Remaining: status.Remaining}
	}

	var cursor time.Time
	if !fullAudit {
		cursor, err = s.cooldowns.LastRun(ctx, actor, kind, entityID)
		if err != nil {
			return nil, err
		}
	}

	resp, err := s.gen.Analyze(ctx, generator.AnalyzeRequest{
		CampaignID:    campaignID,
		CharacterID:   characterID,
		SessionsAfter: cursor,
		FullAudit:     fullAudit,
	})
	if err != nil {
		return nil, fmt.Errorf("generation run: %w", err)
	}

	suggestions := make([]domain.Suggestion, 0, len(resp.Suggestions))
	for _, d := range resp.Suggestions {
		sg, err := draftToSuggestion(campaignID, d)
		if err != nil {
			log.Printf("[intel] skipping malformed draft campaign=%s type=%s err=%v", campaignID, d.SuggestionType, err)
			continue
		}
		suggestions = append(suggestions, *sg)
	}
	if err := s.repo.InsertBatch(ctx, suggestions); err != nil {
		return nil, err
	}

	rec, err := s.cooldowns.RecordRun(ctx, actor, kind, entityID)
	if err != nil {
		// the drafts are saved; a missing stamp only means the gate stays open
		log.Printf("[intel] cooldown stamp failed actor=%s kind=%s err=%v", actor, kind, err)
	}

	log.Printf("[intel] generation done campaign=%s character=%s drafts=%d full_audit=%t",
		campaignID, characterID, len(suggestions), fullAudit)
	return &GenerationResult{Created: len(suggestions), Cooldown: rec}, nil
}

func draftToSuggestion(campaignID string, d generator.Draft) (*domain.Suggestion, error) {
	t := domain.SuggestionType(d.SuggestionType)
	if d.SuggestionType == "" {
		return nil, fmt.Errorf("draft has no suggestion type")
	}
	if len(d.SuggestedValue) == 0 {
		return nil, fmt.Errorf("draft has no suggested value")
	}

	var suggested, current any
	if err := json.Unmarshal(d.SuggestedValue, &suggested); err != nil {
		return nil, fmt.Errorf("decode suggested value: %w", err)
	}
	if len(d.CurrentValue) > 0 {
		if err := json.Unmarshal(d.CurrentValue, &current); err != nil {
			return nil, fmt.Errorf("decode current value: %w", err)
		}
	}

	confidence := domain.Confidence(d.Confidence)
	switch confidence {
	case domain.ConfidenceHigh, domain.ConfidenceMedium, domain.ConfidenceLow:
	default:
		confidence = domain.ConfidenceLow
	}

	return &domain.Suggestion{
		CampaignID:     campaignID,
		SessionID:      d.SessionID,
		SessionNumber:  d.SessionNumber,
		CharacterID:    d.CharacterID,
		CharacterName:  d.CharacterName,
		Type:           t,
		FieldName:      d.FieldName,
		Confidence:     confidence,
		CurrentValue:   current,
		SuggestedValue: suggested,
		SourceExcerpt:  d.SourceExcerpt,
		AIReasoning:    d.Reasoning,
		Status:         domain.StatusPending,
	}, nil
}
