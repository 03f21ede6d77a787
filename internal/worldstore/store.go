// Package worldstore is the engine's boundary to persistent campaign entities.
// Suggestion commits and reversals go through the Store interface; the postgres
// subpackage provides the real implementation.
package worldstore

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("entity not found")

type Character struct {
	ID              string      `json:"id"`
	CampaignID      string      `json:"campaign_id"`
	Name            string      `json:"name"`
	Kind            string      `json:"type"` // pc, npc
	Summary         string      `json:"summary,omitempty"`
	Race            string      `json:"race,omitempty"`
	Class           string      `json:"class,omitempty"`
	Status          string      `json:"status"`
	StatusColor     string      `json:"status_color,omitempty"`
	Notes           string      `json:"notes,omitempty"`
	Quotes          []string    `json:"quotes,omitempty"`
	StoryHooks      []StoryHook `json:"story_hooks,omitempty"`
	ImportantPeople []Person    `json:"important_people,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

type StoryHook struct {
	Hook     string `json:"hook"`
	Notes    string `json:"notes,omitempty"`
	Resolved bool   `json:"resolved,omitempty"`
}

type Person struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Notes        string `json:"notes,omitempty"`
}

type Location struct {
	ID          string `json:"id"`
	CampaignID  string `json:"campaign_id"`
	Name        string `json:"name"`
	Kind        string `json:"location_type"`
	Description string `json:"description,omitempty"`
	ParentID    string `json:"parent_id,omitempty"`
	Visited     bool   `json:"is_visited"`
	Known       bool   `json:"is_known"`
}

type Quest struct {
	ID                  string `json:"id"`
	CampaignID          string `json:"campaign_id"`
	Name                string `json:"name"`
	Kind                string `json:"quest_type"`
	Description         string `json:"description,omitempty"`
	Status              string `json:"status"`
	GiverID             string `json:"quest_giver_id,omitempty"`
	GiverName           string `json:"quest_giver_name,omitempty"` // kept as text when unresolved
	ObjectiveLocationID string `json:"objective_location_id,omitempty"`
	Visibility          string `json:"visibility"`
}

type Encounter struct {
	ID          string `json:"id"`
	CampaignID  string `json:"campaign_id"`
	Name        string `json:"name"`
	Kind        string `json:"encounter_type"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	Difficulty  string `json:"difficulty,omitempty"`
	LocationID  string `json:"location_id,omitempty"`
	QuestID     string `json:"quest_id,omitempty"`
	Visibility  string `json:"visibility"`
}

type Faction struct {
	ID           string `json:"id"`
	CampaignID   string `json:"campaign_id"`
	Name         string `json:"name"`
	Kind         string `json:"faction_type"`
	Description  string `json:"description,omitempty"`
	KnownToParty bool   `json:"is_known_to_party"`
	HQLocationID string `json:"hq_location_id,omitempty"`
	Status       string `json:"status"`
	Color        string `json:"color,omitempty"`
	Icon         string `json:"icon,omitempty"`
}

type FactionMembership struct {
	FactionID   string `json:"faction_id"`
	CharacterID string `json:"character_id"`
	Role        string `json:"role,omitempty"`
	Active      bool   `json:"is_active"`
	Public      bool   `json:"is_public"`
}

type TimelineEvent struct {
	ID           string    `json:"id"`
	CampaignID   string    `json:"campaign_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Kind         string    `json:"event_type"`
	EventDate    time.Time `json:"event_date"`
	SessionID    string    `json:"session_id,omitempty"`
	Location     string    `json:"location,omitempty"`
	Major        bool      `json:"is_major"`
	CharacterIDs []string  `json:"character_ids,omitempty"`
}

type Relationship struct {
	ID              string `json:"id"`
	CampaignID      string `json:"campaign_id"`
	FromCharacterID string `json:"from_character_id"`
	ToCharacterID   string `json:"to_character_id"`
	Label           string `json:"custom_label"`
	Description     string `json:"description,omitempty"`
	KnownToParty    bool   `json:"is_known_to_party"`
	Primary         bool   `json:"is_primary"`
	Status          string `json:"status"`
}

type SessionQuestLink struct {
	ID           string `json:"id"`
	SessionID    string `json:"session_id"`
	QuestID      string `json:"quest_id"`
	ProgressType string `json:"progress_type"`
}

// CharacterStore covers character reads plus the narrow set of writes suggestion
// commits need. Name lookups are case-insensitive; missing entities return
// ErrNotFound rather than a nil pointer.
type CharacterStore interface {
	GetCharacter(ctx context.Context, id string) (*Character, error)
	FindCharacterByName(ctx context.Context, campaignID, name string) (*Character, error)
	ListCharacters(ctx context.Context, campaignID string) ([]Character, error)
	CreateCharacter(ctx context.Context, c *Character) (string, error)
	DeleteCharacter(ctx context.Context, id string) error
	UpdateCharacterStatus(ctx context.Context, id, status, statusColor string) error
	AppendCharacterNote(ctx context.Context, id, note string) error
	RemoveCharacterNote(ctx context.Context, id, note string) error
	SetCharacterQuotes(ctx context.Context, id string, quotes []string) error
	SetCharacterStoryHooks(ctx context.Context, id string, hooks []StoryHook) error
	SetCharacterImportantPeople(ctx context.Context, id string, people []Person) error
}

type LocationStore interface {
	FindLocationByName(ctx context.Context, campaignID, name string) (*Location, error)
	CreateLocation(ctx context.Context, l *Location) (string, error)
	DeleteLocation(ctx context.Context, id string) error
}

type QuestStore interface {
	FindQuestByName(ctx context.Context, campaignID, name string) (*Quest, error)
	CreateQuest(ctx context.Context, q *Quest) (string, error)
	DeleteQuest(ctx context.Context, id string) error
}

type EncounterStore interface {
	FindEncounterByName(ctx context.Context, campaignID, name string) (*Encounter, error)
	CreateEncounter(ctx context.Context, e *Encounter) (string, error)
	DeleteEncounter(ctx context.Context, id string) error
}

type FactionStore interface {
	FindFactionByName(ctx context.Context, campaignID, name string) (*Faction, error)
	CreateFaction(ctx context.Context, f *Faction) (string, error)
	DeleteFaction(ctx context.Context, id string) error
	AddFactionMember(ctx context.Context, m *FactionMembership) error
}

type TimelineStore interface {
	CreateTimelineEvent(ctx context.Context, ev *TimelineEvent) (string, error)
	DeleteTimelineEvent(ctx context.Context, id string) error
}

type RelationshipStore interface {
	FindRelationship(ctx context.Context, campaignID, fromID, toID string) (*Relationship, error)
	CreateRelationship(ctx context.Context, rel *Relationship) (string, error)
	DeleteRelationship(ctx context.Context, id string) error
}

type SessionQuestStore interface {
	FindSessionQuestLink(ctx context.Context, sessionID, questID string) (*SessionQuestLink, error)
	CreateSessionQuestLink(ctx context.Context, link *SessionQuestLink) (string, error)
	UpdateSessionQuestProgress(ctx context.Context, id, progressType string) error
	DeleteSessionQuestLink(ctx context.Context, id string) error
}

// Store is the full entity-store surface consumed by the type registry.
type Store interface {
	CharacterStore
	LocationStore
	QuestStore
	EncounterStore
	FactionStore
	TimelineStore
	RelationshipStore
	SessionQuestStore
}
