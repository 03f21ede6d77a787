package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/domain"
	"github.com/chroniclekeep/chronicle-backend/internal/worldstore"
)

// statusColors are the display colors paired with common statuses when the
// payload does not name one.
var statusColors = map[string]string{
	"alive":    "#10B981",
	"dead":     "#EF4444",
	"missing":  "#F59E0B",
	"captured": "#8B5CF6",
	"unknown":  "#6B7280",
}

// statusChangeHandler updates a character's life status. The previous status is
// snapshotted into Result.CurrentValue so reversal can restore it exactly.
type statusChangeHandler struct {
	store worldstore.CharacterStore
}

func (h *statusChangeHandler) Commit(ctx context.Context, s *domain.Suggestion, value any) (*Result, error) {
	if s.CharacterID == "" {
		return nil, fmt.Errorf("status_change requires a character id")
	}
	m := asMap(value)
	newStatus := strOr(m, "status", str(m, "value"))
	if newStatus == "" {
		return nil, fmt.Errorf("status_change payload has no status")
	}

	color := str(m, "status_color")
	if color == "" {
		color = statusColors[strings.ToLower(newStatus)]
	}

	ch, err := h.store.GetCharacter(ctx, s.CharacterID)
	if err != nil {
		return nil, fmt.Errorf("load character: %w", err)
	}
	if err := h.store.UpdateCharacterStatus(ctx, s.CharacterID, newStatus, color); err != nil {
		return nil, err
	}
	return &Result{
		FinalValue:   m,
		CurrentValue: ch.Status,
		Message:      "character status updated",
	}, nil
}

func (h *statusChangeHandler) Revert(ctx context.Context, s *domain.Suggestion) error {
	if s.CharacterID == "" || s.CurrentValue == nil {
		return nil
	}
	prev := ""
	switch v := s.CurrentValue.(type) {
	case string:
		prev = v
	case map[string]any:
		prev = str(v, "status")
	}
	if prev == "" {
		return nil
	}
	return h.store.UpdateCharacterStatus(ctx, s.CharacterID, prev, "")
}

// noteAppendHandler records a revealed secret by appending it to the character's
// notes. The appended text is kept in the final value so reversal can strip it.
type noteAppendHandler struct {
	store worldstore.CharacterStore
}

func (h *noteAppendHandler) Commit(ctx context.Context, s *domain.Suggestion, value any) (*Result, error) {
	if s.CharacterID == "" {
		return nil, fmt.Errorf("secret_revealed requires a character id")
	}
	m := asMap(value)
	text := strOr(m, "secret", str(m, "value"))
	if text == "" {
		b, err := json.Marshal(m)
		if err != nil {
			return nil, err
		}
		text = string(b)
	}
	if err := h.store.AppendCharacterNote(ctx, s.CharacterID, text); err != nil {
		return nil, err
	}
	return &Result{
		FinalValue: withLinkage(m, "note_text", text),
		Message:    "secret recorded in character notes",
	}, nil
}

func (h *noteAppendHandler) Revert(ctx context.Context, s *domain.Suggestion) error {
	if s.CharacterID == "" {
		return nil
	}
	text := str(s.FinalValue, "note_text")
	if text == "" {
		return nil
	}
	return h.store.RemoveCharacterNote(ctx, s.CharacterID, text)
}

// quoteHandler appends a memorable line to the character's quote list. An
// already-recorded quote (case-insensitive) short-circuits so reversal leaves
// the original entry alone.
type quoteHandler struct {
	store worldstore.CharacterStore
}

func (h *quoteHandler) Commit(ctx context.Context, s *domain.Suggestion, value any) (*Result, error) {
	if s.CharacterID == "" {
		return nil, fmt.Errorf("quote requires a character id")
	}
	m := asMap(value)
	quote := strOr(m, "quote", str(m, "value"))
	if quote == "" {
		return nil, fmt.Errorf("quote payload is empty")
	}

	ch, err := h.store.GetCharacter(ctx, s.CharacterID)
	if err != nil {
		return nil, fmt.Errorf("load character: %w", err)
	}
	for _, have := range ch.Quotes {
		if strings.EqualFold(have, quote) {
			return &Result{
				FinalValue: withLinkage(m, "note", "Quote already recorded"),
				Message:    "quote already recorded",
			}, nil
		}
	}
	if err := h.store.SetCharacterQuotes(ctx, s.CharacterID, append(ch.Quotes, quote)); err != nil {
		return nil, err
	}
	return &Result{FinalValue: m, Message: "quote added"}, nil
}

func (h *quoteHandler) Revert(ctx context.Context, s *domain.Suggestion) error {
	if str(s.FinalValue, "note") != "" {
		return nil
	}
	return dropLastListEntry(ctx, h.store, s.CharacterID, func(ch *worldstore.Character) error {
		if len(ch.Quotes) == 0 {
			return nil
		}
		return h.store.SetCharacterQuotes(ctx, s.CharacterID, ch.Quotes[:len(ch.Quotes)-1])
	})
}

// storyHookHandler appends an unresolved thread to the character's hook list,
// or, when the payload asks for it, marks an existing hook resolved. Duplicate
// hook text (case-insensitive) short-circuits the append.
type storyHookHandler struct {
	store worldstore.CharacterStore
}

func (h *storyHookHandler) Commit(ctx context.Context, s *domain.Suggestion, value any) (*Result, error) {
	if s.CharacterID == "" {
		return nil, fmt.Errorf("story_hook requires a character id")
	}
	m := asMap(value)
	text := strOr(m, "hook", str(m, "value"))
	if text == "" {
		return nil, fmt.Errorf("story_hook payload has no hook text")
	}

	ch, err := h.store.GetCharacter(ctx, s.CharacterID)
	if err != nil {
		return nil, fmt.Errorf("load character: %w", err)
	}

	if boolOr(m, "resolve_hook", false) {
		return h.resolveHook(ctx, s, ch, m, text)
	}

	for _, have := range ch.StoryHooks {
		if strings.EqualFold(have.Hook, text) {
			return &Result{
				FinalValue: withLinkage(m, "note", "Hook already recorded"),
				Message:    "story hook already recorded",
			}, nil
		}
	}
	hook := worldstore.StoryHook{Hook: text, Notes: str(m, "notes")}
	if err := h.store.SetCharacterStoryHooks(ctx, s.CharacterID, append(ch.StoryHooks, hook)); err != nil {
		return nil, err
	}
	return &Result{FinalValue: m, Message: "story hook added"}, nil
}

func (h *storyHookHandler) resolveHook(ctx context.Context, s *domain.Suggestion, ch *worldstore.Character, m map[string]any, text string) (*Result, error) {
	for i := range ch.StoryHooks {
		if strings.EqualFold(ch.StoryHooks[i].Hook, text) {
			if ch.StoryHooks[i].Resolved {
				return &Result{
					FinalValue: withLinkage(m, "note", "Hook already resolved"),
					Message:    "story hook already resolved",
				}, nil
			}
			ch.StoryHooks[i].Resolved = true
			if err := h.store.SetCharacterStoryHooks(ctx, s.CharacterID, ch.StoryHooks); err != nil {
				return nil, err
			}
			return &Result{
				FinalValue: withLinkage(m, "resolved_hook", text),
				Message:    "story hook resolved",
			}, nil
		}
	}
	return nil, fmt.Errorf("story hook not found: %s", text)
}

func (h *storyHookHandler) Revert(ctx context.Context, s *domain.Suggestion) error {
	if str(s.FinalValue, "note") != "" {
		return nil
	}
	if resolved := str(s.FinalValue, "resolved_hook"); resolved != "" {
		return dropLastListEntry(ctx, h.store, s.CharacterID, func(ch *worldstore.Character) error {
			for i := range ch.StoryHooks {
				if strings.EqualFold(ch.StoryHooks[i].Hook, resolved) {
					ch.StoryHooks[i].Resolved = false
					return h.store.SetCharacterStoryHooks(ctx, s.CharacterID, ch.StoryHooks)
				}
			}
			return nil
		})
	}
	return dropLastListEntry(ctx, h.store, s.CharacterID, func(ch *worldstore.Character) error {
		if len(ch.StoryHooks) == 0 {
			return nil
		}
		return h.store.SetCharacterStoryHooks(ctx, s.CharacterID, ch.StoryHooks[:len(ch.StoryHooks)-1])
	})
}

// importantPersonHandler appends a named connection to the character's circle.
// A connection with the same name (case-insensitive) short-circuits the append.
type importantPersonHandler struct {
	store worldstore.CharacterStore
}

func (h *importantPersonHandler) Commit(ctx context.Context, s *domain.Suggestion, value any) (*Result, error) {
	if s.CharacterID == "" {
		return nil, fmt.Errorf("important_person requires a character id")
	}
	m := asMap(value)
	person := worldstore.Person{
		Name:         strOr(m, "name", str(m, "value")),
		Relationship: str(m, "relationship"),
		Notes:        str(m, "notes"),
	}
	if person.Name == "" {
		return nil, fmt.Errorf("important_person payload has no name")
	}

	ch, err := h.store.GetCharacter(ctx, s.CharacterID)
	if err != nil {
		return nil, fmt.Errorf("load character: %w", err)
	}
	for _, have := range ch.ImportantPeople {
		if strings.EqualFold(have.Name, person.Name) {
			return &Result{
				FinalValue: withLinkage(m, "note", "Person already recorded"),
				Message:    "important person already recorded",
			}, nil
		}
	}
	if err := h.store.SetCharacterImportantPeople(ctx, s.CharacterID, append(ch.ImportantPeople, person)); err != nil {
		return nil, err
	}
	return &Result{FinalValue: m, Message: "important person added"}, nil
}

func (h *importantPersonHandler) Revert(ctx context.Context, s *domain.Suggestion) error {
	if str(s.FinalValue, "note") != "" {
		return nil
	}
	return dropLastListEntry(ctx, h.store, s.CharacterID, func(ch *worldstore.Character) error {
		if len(ch.ImportantPeople) == 0 {
			return nil
		}
		return h.store.SetCharacterImportantPeople(ctx, s.CharacterID, ch.ImportantPeople[:len(ch.ImportantPeople)-1])
	})
}

// dropLastListEntry loads the character and lets the caller trim its list field.
// The last entry is assumed to be the one the commit appended; if the list was
// edited meanwhile the wrong entry can go, which is accepted as best effort.
func dropLastListEntry(ctx context.Context, store worldstore.CharacterStore, characterID string, trim func(*worldstore.Character) error) error {
	if characterID == "" {
		return nil
	}
	ch, err := store.GetCharacter(ctx, characterID)
	if err != nil {
		return fmt.Errorf("load character: %w", err)
	}
	return trim(ch)
}
