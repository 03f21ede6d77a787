package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/domain"
	"github.com/chroniclekeep/chronicle-backend/internal/worldstore"
)

type timelineEventHandler struct {
	store worldstore.Store
}

func (h *timelineEventHandler) Commit(ctx context.Context, s *domain.Suggestion, value any) (*Result, error) {
	m := asMap(value)
	title := str(m, "title")
	if title == "" {
		return nil, fmt.Errorf("timeline_event payload has no title")
	}

	characterIDs := strSlice(m, "character_ids")
	if len(characterIDs) == 0 {
		if names := strSlice(m, "character_names"); len(names) > 0 {
			characters, err := h.store.ListCharacters(ctx, s.CampaignID)
			if err != nil {
				return nil, err
			}
			for _, name := range names {
				if ch := matchCharacterName(characters, name); ch != nil {
					characterIDs = append(characterIDs, ch.ID)
				}
			}
		}
	}

	sessionID := str(m, "session_id")
	if sessionID == "" {
		sessionID = s.SessionID
	}

	id, err := h.store.CreateTimelineEvent(ctx, &worldstore.TimelineEvent{
		CampaignID:   s.CampaignID,
		Title:        title,
		Description:  str(m, "description"),
		Kind:         strOr(m, "event_type", "other"),
		EventDate:    eventDate(str(m, "event_date")),
		SessionID:    sessionID,
		Location:     str(m, "location"),
		Major:        boolOr(m, "is_major", false),
		CharacterIDs: characterIDs,
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		FinalValue: withLinkage(m, "timeline_event_id", id),
		Message:    "timeline event created",
	}, nil
}

func (h *timelineEventHandler) Revert(ctx context.Context, s *domain.Suggestion) error {
	return deleteLinkedEvent(ctx, h.store, s)
}

// itemHandler records a discovered item. There is no item table; the find is
// written to the timeline as a discovery event carrying the item details.
type itemHandler struct {
	store worldstore.Store
}

func (h *itemHandler) Commit(ctx context.Context, s *domain.Suggestion, value any) (*Result, error) {
	m := asMap(value)
	name := str(m, "name")
	if name == "" {
		return nil, fmt.Errorf("item_detected payload has no name")
	}

	ownerID := ""
	if ownerName := str(m, "owner_name"); ownerName != "" {
		if owner, err := h.store.FindCharacterByName(ctx, s.CampaignID, ownerName); err == nil {
			ownerID = owner.ID
		}
	}
	locationID := ""
	if locName := str(m, "location_name"); locName != "" {
		if loc, err := h.store.FindLocationByName(ctx, s.CampaignID, locName); err == nil {
			locationID = loc.ID
		}
	}

	lines := make([]string, 0, 5)
	if d := str(m, "description"); d != "" {
		lines = append(lines, d)
	}
	if v := str(m, "item_type"); v != "" {
		lines = append(lines, "Type: "+v)
	}
	rarity := str(m, "rarity")
	if rarity != "" {
		lines = append(lines, "Rarity: "+rarity)
	}
	if v := str(m, "owner_name"); v != "" {
		lines = append(lines, "Owner: "+v)
	}
	if v := str(m, "location_name"); v != "" {
		lines = append(lines, "Location: "+v)
	}

	var characterIDs []string
	if ownerID != "" {
		characterIDs = []string{ownerID}
	}
	id, err := h.store.CreateTimelineEvent(ctx, &worldstore.TimelineEvent{
		CampaignID:   s.CampaignID,
		Title:        "Item: " + name,
		Description:  strings.Join(lines, "\n"),
		Kind:         "discovery",
		EventDate:    time.Now().UTC(),
		Location:     str(m, "location_name"),
		Major:        rarity == "legendary" || rarity == "artifact",
		CharacterIDs: characterIDs,
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		FinalValue: withLinkage(m, "timeline_event_id", id, "owner_id", ownerID, "location_id", locationID),
		Message:    "item recorded as timeline event",
	}, nil
}

func (h *itemHandler) Revert(ctx context.Context, s *domain.Suggestion) error {
	return deleteLinkedEvent(ctx, h.store, s)
}

// combatOutcomeHandler writes a combat result to the timeline and, for deaths
// and injuries, flips the affected character's status.
type combatOutcomeHandler struct {
	store worldstore.Store
}

func (h *combatOutcomeHandler) Commit(ctx context.Context, s *domain.Suggestion, value any) (*Result, error) {
	m := asMap(value)
	outcome := str(m, "outcome_type")
	if outcome == "" {
		return nil, fmt.Errorf("combat_outcome payload has no outcome type")
	}

	characterID := ""
	characterName := str(m, "character_name")
	if characterName != "" {
		ch, err := h.store.FindCharacterByName(ctx, s.CampaignID, characterName)
		if err != nil && !errors.Is(err, worldstore.ErrNotFound) {
			return nil, err
		}
		if ch != nil {
			characterID = ch.ID
			if outcome == "death" || outcome == "injury" {
				status := "injured"
				if outcome == "death" {
					status = "dead"
				}
				if err := h.store.UpdateCharacterStatus(ctx, ch.ID, status, ""); err != nil {
					return nil, err
				}
			}
		}
	}

	title := capitalize(outcome)
	if characterName != "" {
		title += ": " + characterName
	}
	description := str(m, "description")
	if description == "" {
		description = "Combat outcome: " + outcome
	}
	eventType := "combat"
	if outcome == "death" {
		eventType = "death"
	}
	var characterIDs []string
	if characterID != "" {
		characterIDs = []string{characterID}
	}

	id, err := h.store.CreateTimelineEvent(ctx, &worldstore.TimelineEvent{
		CampaignID:   s.CampaignID,
		Title:        title,
		Description:  description,
		Kind:         eventType,
		EventDate:    time.Now().UTC(),
		SessionID:    s.SessionID,
		Major:        outcome == "death" || boolOr(m, "is_pc", false),
		CharacterIDs: characterIDs,
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		FinalValue: withLinkage(m, "timeline_event_id", id, "character_id", characterID),
		Message:    "combat outcome recorded",
	}, nil
}

func (h *combatOutcomeHandler) Revert(ctx context.Context, s *domain.Suggestion) error {
	if err := deleteLinkedEvent(ctx, h.store, s); err != nil {
		return err
	}
	outcome := str(s.FinalValue, "outcome_type")
	characterID := str(s.FinalValue, "character_id")
	if characterID != "" && (outcome == "death" || outcome == "injury") {
		return h.store.UpdateCharacterStatus(ctx, characterID, "alive", "")
	}
	return nil
}

func deleteLinkedEvent(ctx context.Context, store worldstore.TimelineStore, s *domain.Suggestion) error {
	id := str(s.FinalValue, "timeline_event_id")
	if id == "" {
		return nil
	}
	err := store.DeleteTimelineEvent(ctx, id)
	if errors.Is(err, worldstore.ErrNotFound) {
		return nil
	}
	return err
}

func eventDate(raw string) time.Time {
	if raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			return t
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
