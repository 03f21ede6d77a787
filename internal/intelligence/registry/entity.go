package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/domain"
	"github.com/chroniclekeep/chronicle-backend/internal/worldstore"
)

// Entity-creation handlers share the same shape: look up referenced entities by
// name, short-circuit when an entity with the suggested name already exists
// (marking the final value with existing_*_id so reversal leaves it alone),
// otherwise create and record the new id.

type npcHandler struct {
	store worldstore.Store
}

func (h *npcHandler) Commit(ctx context.Context, s *domain.Suggestion, value any) (*Result, error) {
	m := asMap(value)
	name := str(m, "name")
	if name == "" {
		return nil, fmt.Errorf("npc_detected payload has no name")
	}

	existing, err := h.store.FindCharacterByName(ctx, s.CampaignID, name)
	if err != nil && !errors.Is(err, worldstore.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return &Result{
			FinalValue: withLinkage(m, "existing_character_id", existing.ID, "note", "Character already existed"),
			Message:    "character already exists",
		}, nil
	}

	summary := str(m, "description")
	if summary == "" {
		summary = str(m, "role")
	}
	id, err := h.store.CreateCharacter(ctx, &worldstore.Character{
		CampaignID: s.CampaignID,
		Name:       name,
		Kind:       "npc",
		Summary:    summary,
		Race:       str(m, "race"),
		Class:      str(m, "class"),
		Status:     "alive",
	})
	if err != nil {
		return nil, err
	}

	// Membership is best effort; an unknown faction name is not a commit failure.
	if factionName := str(m, "faction_name"); factionName != "" {
		if faction, err := h.store.FindFactionByName(ctx, s.CampaignID, factionName); err == nil {
			_ = h.store.AddFactionMember(ctx, &worldstore.FactionMembership{
				FactionID:   faction.ID,
				CharacterID: id,
				Role:        str(m, "role"),
				Active:      true,
				Public:      true,
			})
		}
	}

	return &Result{
		FinalValue: withLinkage(m, "character_id", id),
		Message:    "NPC character created",
	}, nil
}

func (h *npcHandler) Revert(ctx context.Context, s *domain.Suggestion) error {
	id := str(s.FinalValue, "character_id")
	if id == "" || str(s.FinalValue, "existing_character_id") != "" {
		return nil
	}
	return h.store.DeleteCharacter(ctx, id)
}

type locationHandler struct {
	store worldstore.Store
}

func (h *locationHandler) Commit(ctx context.Context, s *domain.Suggestion, value any) (*Result, error) {
	m := asMap(value)
	name := str(m, "name")
	if name == "" {
		return nil, fmt.Errorf("location_detected payload has no name")
	}

	existing, err := h.store.FindLocationByName(ctx, s.CampaignID, name)
	if err != nil && !errors.Is(err, worldstore.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return &Result{
			FinalValue: withLinkage(m, "existing_location_id", existing.ID, "note", "Location already existed"),
			Message:    "location already exists",
		}, nil
	}

	parentID := ""
	if parentName := str(m, "parent_location_name"); parentName != "" {
		if parent, err := h.store.FindLocationByName(ctx, s.CampaignID, parentName); err == nil {
			parentID = parent.ID
		}
	}

	id, err := h.store.CreateLocation(ctx, &worldstore.Location{
		CampaignID:  s.CampaignID,
		Name:        name,
		Kind:        strOr(m, "location_type", "other"),
		Description: str(m, "description"),
		ParentID:    parentID,
		Visited:     false,
		Known:       true, // it was mentioned in play, so the party knows of it
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		FinalValue: withLinkage(m, "location_id", id),
		Message:    "location created",
	}, nil
}

func (h *locationHandler) Revert(ctx context.Context, s *domain.Suggestion) error {
	id := str(s.FinalValue, "location_id")
	if id == "" || str(s.FinalValue, "existing_location_id") != "" {
		return nil
	}
	return h.store.DeleteLocation(ctx, id)
}

type questHandler struct {
	store worldstore.Store
}

func (h *questHandler) Commit(ctx context.Context, s *domain.Suggestion, value any) (*Result, error) {
	m := asMap(value)
	name := str(m, "name")
	if name == "" {
		return nil, fmt.Errorf("quest_detected payload has no name")
	}

	existing, err := h.store.FindQuestByName(ctx, s.CampaignID, name)
	if err != nil && !errors.Is(err, worldstore.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return &Result{
			FinalValue: withLinkage(m, "existing_quest_id", existing.ID, "note", "Quest already existed"),
			Message:    "quest already exists",
		}, nil
	}

	giverID := ""
	giverName := str(m, "quest_giver_name")
	if giverName != "" {
		if giver, err := h.store.FindCharacterByName(ctx, s.CampaignID, giverName); err == nil {
			giverID = giver.ID
			giverName = "" // resolved; no need to keep the loose text
		}
	}
	objectiveID := ""
	if locName := str(m, "location_name"); locName != "" {
		if loc, err := h.store.FindLocationByName(ctx, s.CampaignID, locName); err == nil {
			objectiveID = loc.ID
		}
	}

	id, err := h.store.CreateQuest(ctx, &worldstore.Quest{
		CampaignID:          s.CampaignID,
		Name:                name,
		Kind:                strOr(m, "quest_type", "side_quest"),
		Description:         str(m, "description"),
		Status:              strOr(m, "status", "available"),
		GiverID:             giverID,
		GiverName:           giverName,
		ObjectiveLocationID: objectiveID,
		Visibility:          "party",
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		FinalValue: withLinkage(m, "quest_id", id),
		Message:    "quest created",
	}, nil
}

func (h *questHandler) Revert(ctx context.Context, s *domain.Suggestion) error {
	id := str(s.FinalValue, "quest_id")
	if id == "" || str(s.FinalValue, "existing_quest_id") != "" {
		return nil
	}
	return h.store.DeleteQuest(ctx, id)
}

type encounterHandler struct {
	store worldstore.Store
}

func (h *encounterHandler) Commit(ctx context.Context, s *domain.Suggestion, value any) (*Result, error) {
	m := asMap(value)
	name := str(m, "name")
	if name == "" {
		return nil, fmt.Errorf("encounter_detected payload has no name")
	}

	existing, err := h.store.FindEncounterByName(ctx, s.CampaignID, name)
	if err != nil && !errors.Is(err, worldstore.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return &Result{
			FinalValue: withLinkage(m, "existing_encounter_id", existing.ID, "note", "Encounter already existed"),
			Message:    "encounter already exists",
		}, nil
	}

	locationID := ""
	if locName := str(m, "location_name"); locName != "" {
		if loc, err := h.store.FindLocationByName(ctx, s.CampaignID, locName); err == nil {
			locationID = loc.ID
		}
	}
	questID := ""
	if questName := str(m, "quest_name"); questName != "" {
		if q, err := h.store.FindQuestByName(ctx, s.CampaignID, questName); err == nil {
			questID = q.ID
		}
	}

	id, err := h.store.CreateEncounter(ctx, &worldstore.Encounter{
		CampaignID:  s.CampaignID,
		Name:        name,
		Kind:        strOr(m, "encounter_type", "combat"),
		Description: str(m, "description"),
		Status:      strOr(m, "status", "used"),
		Difficulty:  str(m, "difficulty"),
		LocationID:  locationID,
		QuestID:     questID,
		Visibility:  "dm_only",
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		FinalValue: withLinkage(m, "encounter_id", id),
		Message:    "encounter created",
	}, nil
}

func (h *encounterHandler) Revert(ctx context.Context, s *domain.Suggestion) error {
	id := str(s.FinalValue, "encounter_id")
	if id == "" || str(s.FinalValue, "existing_encounter_id") != "" {
		return nil
	}
	return h.store.DeleteEncounter(ctx, id)
}

type factionHandler struct {
	store worldstore.Store
}

func (h *factionHandler) Commit(ctx context.Context, s *domain.Suggestion, value any) (*Result, error) {
	m := asMap(value)
	name := str(m, "name")
	if name == "" {
		return nil, fmt.Errorf("faction_detected payload has no name")
	}

	existing, err := h.store.FindFactionByName(ctx, s.CampaignID, name)
	if err != nil && !errors.Is(err, worldstore.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return &Result{
			FinalValue: withLinkage(m, "existing_faction_id", existing.ID, "note", "Faction already existed"),
			Message:    "faction already exists",
		}, nil
	}

	hqID := ""
	if hqName := str(m, "hq_location_name"); hqName != "" {
		if loc, err := h.store.FindLocationByName(ctx, s.CampaignID, hqName); err == nil {
			hqID = loc.ID
		}
	}

	id, err := h.store.CreateFaction(ctx, &worldstore.Faction{
		CampaignID:   s.CampaignID,
		Name:         name,
		Kind:         strOr(m, "faction_type", "guild"),
		Description:  str(m, "description"),
		KnownToParty: boolOr(m, "is_known_to_party", true),
		HQLocationID: hqID,
		Status:       "active",
		Color:        "#8B5CF6",
		Icon:         "shield",
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		FinalValue: withLinkage(m, "faction_id", id),
		Message:    "faction created",
	}, nil
}

func (h *factionHandler) Revert(ctx context.Context, s *domain.Suggestion) error {
	id := str(s.FinalValue, "faction_id")
	if id == "" || str(s.FinalValue, "existing_faction_id") != "" {
		return nil
	}
	return h.store.DeleteFaction(ctx, id)
}

// relationshipHandler links two characters referenced by name. Both endpoints
// must resolve; an unresolvable name fails the commit so the suggestion stays
// pending and the caller can fix the names and retry.
type relationshipHandler struct {
	store worldstore.Store
}

func (h *relationshipHandler) Commit(ctx context.Context, s *domain.Suggestion, value any) (*Result, error) {
	m := asMap(value)
	fromName := str(m, "from_character_name")
	toName := str(m, "to_character_name")
	if fromName == "" || toName == "" {
		return nil, fmt.Errorf("relationship payload needs both character names")
	}

	characters, err := h.store.ListCharacters(ctx, s.CampaignID)
	if err != nil {
		return nil, err
	}
	from := matchCharacterName(characters, fromName)
	to := matchCharacterName(characters, toName)
	if from == nil {
		return nil, fmt.Errorf("character not found: %s", fromName)
	}
	if to == nil {
		return nil, fmt.Errorf("character not found: %s", toName)
	}

	existing, err := h.store.FindRelationship(ctx, s.CampaignID, from.ID, to.ID)
	if err != nil && !errors.Is(err, worldstore.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return &Result{
			FinalValue: withLinkage(m, "existing_relationship_id", existing.ID, "note", "Relationship already existed"),
			Message:    "relationship already exists",
		}, nil
	}

	id, err := h.store.CreateRelationship(ctx, &worldstore.Relationship{
		CampaignID:      s.CampaignID,
		FromCharacterID: from.ID,
		ToCharacterID:   to.ID,
		Label:           strOr(m, "relationship_type", "Connected"),
		Description:     str(m, "description"),
		KnownToParty:    boolOr(m, "is_known_to_party", true),
		Primary:         true,
		Status:          "active",
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		FinalValue: withLinkage(m, "relationship_id", id),
		Message:    "relationship created",
	}, nil
}

func (h *relationshipHandler) Revert(ctx context.Context, s *domain.Suggestion) error {
	id := str(s.FinalValue, "relationship_id")
	if id == "" || str(s.FinalValue, "existing_relationship_id") != "" {
		return nil
	}
	return h.store.DeleteRelationship(ctx, id)
}

// sessionLinkHandler ties the suggestion's source session to a quest it
// progressed. When the link already exists only its progress type is updated,
// and reversal then leaves the link in place.
type sessionLinkHandler struct {
	store worldstore.Store
}

func (h *sessionLinkHandler) Commit(ctx context.Context, s *domain.Suggestion, value any) (*Result, error) {
	m := asMap(value)
	questName := str(m, "quest_name")
	if questName == "" {
		return nil, fmt.Errorf("quest_session_link payload has no quest name")
	}
	if s.SessionID == "" {
		return nil, fmt.Errorf("quest_session_link has no source session")
	}

	quest, err := h.store.FindQuestByName(ctx, s.CampaignID, questName)
	if errors.Is(err, worldstore.ErrNotFound) {
		return nil, fmt.Errorf("quest %q not found", questName)
	}
	if err != nil {
		return nil, err
	}

	progress := strOr(m, "progress_type", "progressed")

	existing, err := h.store.FindSessionQuestLink(ctx, s.SessionID, quest.ID)
	if err != nil && !errors.Is(err, worldstore.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		if err := h.store.UpdateSessionQuestProgress(ctx, existing.ID, progress); err != nil {
			return nil, err
		}
		return &Result{
			FinalValue: withLinkage(m, "session_quest_id", existing.ID, "note", "Updated existing link"),
			Message:    "session-quest link updated",
		}, nil
	}

	id, err := h.store.CreateSessionQuestLink(ctx, &worldstore.SessionQuestLink{
		SessionID:    s.SessionID,
		QuestID:      quest.ID,
		ProgressType: progress,
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		FinalValue: withLinkage(m, "session_quest_id", id),
		Message:    "session-quest link created",
	}, nil
}

func (h *sessionLinkHandler) Revert(ctx context.Context, s *domain.Suggestion) error {
	id := str(s.FinalValue, "session_quest_id")
	if id == "" || str(s.FinalValue, "note") == "Updated existing link" {
		return nil
	}
	return h.store.DeleteSessionQuestLink(ctx, id)
}

// matchCharacterName finds a character by loose name match: exact first
// (case-insensitive), then either name containing the other. Generated text
// often abbreviates ("Zara" for "Zara the Unbound"), so exact-only is too strict.
func matchCharacterName(characters []worldstore.Character, name string) *worldstore.Character {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil
	}
	for i := range characters {
		if strings.ToLower(characters[i].Name) == needle {
			return &characters[i]
		}
	}
	for i := range characters {
		have := strings.ToLower(characters[i].Name)
		if strings.Contains(have, needle) || strings.Contains(needle, have) {
			return &characters[i]
		}
	}
	return nil
}
