// Package query filters and groups in-memory suggestion collections for review
// screens. Everything here is pure: input order is creation-descending and
// filtering preserves it, grouping only re-buckets the already-filtered set.
package query

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/domain"
)

// typeLabels are the human-readable names shown in review UIs; search matches
// against these as well as the raw type string.
var typeLabels = map[domain.SuggestionType]string{
	domain.TypeStatusChange:      "Status Change",
	domain.TypeSecretRevealed:    "Secret Revealed",
	domain.TypeStoryHook:         "Story Hook",
	domain.TypeQuote:             "Quote",
	domain.TypeImportantPerson:   "Important Person",
	domain.TypeRelationship:      "Relationship",
	domain.TypeNPCDetected:       "NPC Detected",
	domain.TypeLocationDetected:  "Location",
	domain.TypeQuestDetected:     "Quest",
	domain.TypeEncounterDetected: "Encounter",
	domain.TypeFactionDetected:   "Faction",
	domain.TypeTimelineEvent:     "Timeline Event",
	domain.TypeQuestSessionLink:  "Quest Progress",
	domain.TypeItemDetected:      "Item",
	domain.TypeCombatOutcome:     "Combat Outcome",
}

// TypeLabel returns the display label for t, falling back to the raw type.
func TypeLabel(t domain.SuggestionType) string {
	if label, ok := typeLabels[t]; ok {
		return label
	}
	return string(t)
}

// Filter narrows a collection. Empty sets and zero values mean "no constraint";
// all present constraints compose as AND.
type Filter struct {
	Types       map[domain.SuggestionType]bool
	Confidences map[domain.Confidence]bool
	SessionID   string

	// History predicates, meaningful when browsing resolved items.
	Statuses      map[domain.Status]bool
	CreatedAfter  time.Time
	CreatedBefore time.Time
	Search        string
}

// Apply returns the matching subset in the input's order.
func (f Filter) Apply(suggestions []domain.Suggestion) []domain.Suggestion {
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]domain.Suggestion, 0, len(suggestions))
	for _, s := range suggestions {
		if len(f.Types) > 0 && !f.Types[s.Type] {
			continue
		}
		if len(f.Confidences) > 0 && !f.Confidences[s.Confidence] {
			continue
		}
		if f.SessionID != "" && s.SessionID != f.SessionID {
			continue
		}
		if len(f.Statuses) > 0 && !f.Statuses[s.Status] {
			continue
		}
		if !f.CreatedAfter.IsZero() && s.CreatedAt.Before(f.CreatedAfter) {
			continue
		}
		if !f.CreatedBefore.IsZero() && !s.CreatedAt.Before(f.CreatedBefore) {
			continue
		}
		if needle != "" && !matchesSearch(&s, needle) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// matchesSearch checks the needle against every text surface a reviewer might
// remember: who, what field, what kind, why, the quoted source, the proposed
// payload itself, and the rejection reason if any.
func matchesSearch(s *domain.Suggestion, needle string) bool {
	for _, hay := range []string{
		s.CharacterName,
		s.FieldName,
		string(s.Type),
		TypeLabel(s.Type),
		s.AIReasoning,
		s.SourceExcerpt,
	} {
		if strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	if s.SuggestedValue != nil {
		if b, err := json.Marshal(s.SuggestedValue); err == nil &&
			strings.Contains(strings.ToLower(string(b)), needle) {
			return true
		}
	}
	if reason, ok := s.FinalValue["reject_reason"].(string); ok {
		if strings.Contains(strings.ToLower(reason), needle) {
			return true
		}
	}
	return false
}

// GroupMode selects how a filtered collection is bucketed for display.
type GroupMode string

const (
	GroupFlat        GroupMode = "flat"
	GroupBySession   GroupMode = "by_session"
	GroupByType      GroupMode = "by_type"
	GroupByCharacter GroupMode = "by_character"
)

// ValidGroupMode reports whether mode is one of the supported bucketing modes.
func ValidGroupMode(mode GroupMode) bool {
	switch mode {
	case GroupFlat, GroupBySession, GroupByType, GroupByCharacter:
		return true
	}
	return false
}

// Group is one display bucket. Key is machine-usable, Label human-readable.
type Group struct {
	Key         string              `json:"key"`
	Label       string              `json:"label"`
	Suggestions []domain.Suggestion `json:"suggestions"`
}

const catchAllKey = "_other"

// GroupBy re-buckets a filtered collection. Within each bucket the input order
// is preserved. Bucket order depends on the mode: sessions sort by session
// number descending, types and characters by suggestion count descending. A
// catch-all bucket collects items without the group key and always sorts last.
func GroupBy(mode GroupMode, suggestions []domain.Suggestion) []Group {
	if mode == GroupFlat || mode == "" {
		return []Group{{Key: "all", Label: "All Suggestions", Suggestions: suggestions}}
	}

	type bucket struct {
		group      Group
		sessionNum int
	}
	order := make([]string, 0, 8)
	buckets := make(map[string]*bucket, 8)

	add := func(key, label string, sessionNum int, s domain.Suggestion) {
		b, ok := buckets[key]
		if !ok {
			b = &bucket{group: Group{Key: key, Label: label}, sessionNum: sessionNum}
			buckets[key] = b
			order = append(order, key)
		}
		b.group.Suggestions = append(b.group.Suggestions, s)
	}

	for _, s := range suggestions {
		switch mode {
		case GroupBySession:
			if s.SessionID == "" {
				add(catchAllKey, "No Session", -1, s)
			} else {
				add(s.SessionID, fmt.Sprintf("Session %d", s.SessionNumber), s.SessionNumber, s)
			}
		case GroupByType:
			add(string(s.Type), TypeLabel(s.Type), 0, s)
		case GroupByCharacter:
			if s.CharacterID == "" {
				add(catchAllKey, "Campaign-wide", 0, s)
			} else {
				add(s.CharacterID, s.CharacterName, 0, s)
			}
		}
	}

	out := make([]Group, 0, len(order))
	for _, key := range order {
		out = append(out, buckets[key].group)
	}
	sort.SliceStable(out, func(i, j int) bool {
		// catch-all sinks to the bottom regardless of size
		if out[i].Key == catchAllKey || out[j].Key == catchAllKey {
			return out[j].Key == catchAllKey
		}
		if mode == GroupBySession {
			return buckets[out[i].Key].sessionNum > buckets[out[j].Key].sessionNum
		}
		return len(out[i].Suggestions) > len(out[j].Suggestions)
	})
	return out
}
