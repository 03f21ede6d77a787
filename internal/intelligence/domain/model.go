package domain

import "time"

// SuggestionType identifies the payload shape and commit behavior of a suggestion.
type SuggestionType string

const (
	TypeStatusChange      SuggestionType = "status_change"
	TypeSecretRevealed    SuggestionType = "secret_revealed"
	TypeStoryHook         SuggestionType = "story_hook"
	TypeQuote             SuggestionType = "quote"
	TypeImportantPerson   SuggestionType = "important_person"
	TypeRelationship      SuggestionType = "relationship"
	TypeNPCDetected       SuggestionType = "npc_detected"
	TypeLocationDetected  SuggestionType = "location_detected"
	TypeQuestDetected     SuggestionType = "quest_detected"
	TypeEncounterDetected SuggestionType = "encounter_detected"
	TypeFactionDetected   SuggestionType = "faction_detected"
	TypeTimelineEvent     SuggestionType = "timeline_event"
	TypeQuestSessionLink  SuggestionType = "quest_session_link"
	TypeItemDetected      SuggestionType = "item_detected"
	TypeCombatOutcome     SuggestionType = "combat_outcome"
)

// Confidence is assigned by the generator and never recomputed locally.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Status values for a suggestion's lifecycle.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApplied  Status = "applied"
	StatusRejected Status = "rejected"
)

// ResolveAction is the caller's intent when resolving a pending suggestion.
type ResolveAction string

const (
	ActionApprove ResolveAction = "approve"
	ActionReject  ResolveAction = "reject"
)

// Allowed rejection reasons. Free text is not accepted so feedback stays aggregable.
const (
	RejectIncorrect       = "incorrect"
	RejectAlreadyHandled  = "already_handled"
	RejectNotRelevant     = "not_relevant"
	RejectWillAddManually = "will_add_manually"
	RejectDuplicate       = "duplicate"
)

// ValidRejectReason reports whether reason is in the allowed vocabulary.
// Empty is allowed (no reason given).
func ValidRejectReason(reason string) bool {
	switch reason {
	case "", RejectIncorrect, RejectAlreadyHandled, RejectNotRelevant,
		RejectWillAddManually, RejectDuplicate:
		return true
	}
	return false
}

// Suggestion is the unit of work: an AI-proposed change awaiting human resolution.
// SuggestedValue is never mutated after creation; edits surface as FinalValue at
// resolution time. CurrentValue is a snapshot taken at generation time and is never
// refreshed, so it can go stale if the underlying record changes before resolution.
type Suggestion struct {
	ID            string         `json:"id"`
	CampaignID    string         `json:"campaign_id"`
	SessionID     string         `json:"session_id,omitempty"`
	SessionNumber int            `json:"session_number,omitempty"`
	CharacterID   string         `json:"character_id,omitempty"`
	CharacterName string         `json:"character_name,omitempty"`
	Type          SuggestionType `json:"suggestion_type"`
	FieldName     string         `json:"field_name,omitempty"`
	Confidence    Confidence     `json:"confidence"`

	CurrentValue   any            `json:"current_value,omitempty"`
	SuggestedValue any            `json:"suggested_value"`
	FinalValue     map[string]any `json:"final_value,omitempty"`

	SourceExcerpt string `json:"source_excerpt,omitempty"`
	AIReasoning   string `json:"ai_reasoning,omitempty"`

	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusCounts aggregates a campaign's suggestions by status.
type StatusCounts struct {
	Pending  int `json:"pending"`
	Applied  int `json:"applied"`
	Rejected int `json:"rejected"`
}

// CooldownKind distinguishes the generation flows that are throttled independently.
type CooldownKind string

const (
	CooldownCampaign  CooldownKind = "campaign_intelligence"
	CooldownCharacter CooldownKind = "character_intelligence"
)

// Tier is the actor's plan level; it determines cooldown hours.
type Tier string

const (
	TierAdventurer Tier = "adventurer"
	TierHero       Tier = "hero"
	TierLegend     Tier = "legend"
)

// CooldownRecord tracks the last successful generation run for an
// (actor, kind, entity) key. Written only by a successful run.
type CooldownRecord struct {
	Actor           string       `json:"actor"`
	Kind            CooldownKind `json:"kind"`
	EntityID        string       `json:"entity_id,omitempty"`
	LastRunAt       time.Time    `json:"last_run_at"`
	NextAvailableAt time.Time    `json:"next_available_at"`
	CooldownHours   int          `json:"cooldown_hours"`
}

// CooldownStatus is the gate-check result exposed to callers.
type CooldownStatus struct {
	OnCooldown         bool          `json:"on_cooldown"`
	AvailableAt        *time.Time    `json:"available_at,omitempty"`
	Remaining          time.Duration `json:"-"`
	RemainingFormatted string        `json:"remaining"`
}
