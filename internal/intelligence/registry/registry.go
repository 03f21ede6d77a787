// Package registry maps suggestion types to their commit and reversal behavior.
// The lifecycle controller never branches on type; it resolves a handler here and
// delegates. Registering a type is the only step needed to make it resolvable.
package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/domain"
	"github.com/chroniclekeep/chronicle-backend/internal/worldstore"
)

// Result is what a successful commit reports back: the enriched final value
// (payload plus linkage ids such as location_id) and a human-readable message.
// CurrentValue, when non-nil, is the pre-commit snapshot of the mutated field;
// the controller persists it so a later reversal can restore it.
type Result struct {
	FinalValue   map[string]any
	CurrentValue any
	Message      string
}

// Handler owns the side effects for one suggestion type. Commit receives the
// effective payload (the caller's edited value, or the stored suggested value)
// and must return linkage ids in Result.FinalValue so Revert can find what it
// created. Revert inspects the recorded final value and unwinds; it must skip
// entities the commit found pre-existing rather than created.
type Handler interface {
	Commit(ctx context.Context, s *domain.Suggestion, value any) (*Result, error)
	Revert(ctx context.Context, s *domain.Suggestion) error
}

type Registry struct {
	handlers map[domain.SuggestionType]Handler
}

func New() *Registry {
	return &Registry{handlers: make(map[domain.SuggestionType]Handler)}
}

func (r *Registry) Register(t domain.SuggestionType, h Handler) {
	r.handlers[t] = h
}

// Resolve returns the handler for t, or ErrUnknownSuggestionType.
func (r *Registry) Resolve(t domain.SuggestionType) (Handler, error) {
	h, ok := r.handlers[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownSuggestionType, t)
	}
	return h, nil
}

// Types returns the registered type set, for validation at intake.
func (r *Registry) Types() []domain.SuggestionType {
	out := make([]domain.SuggestionType, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	return out
}

// Default wires every built-in suggestion type against the given entity store.
func Default(store worldstore.Store) *Registry {
	r := New()
	r.Register(domain.TypeStatusChange, &statusChangeHandler{store: store})
	r.Register(domain.TypeSecretRevealed, &noteAppendHandler{store: store})
	r.Register(domain.TypeQuote, &quoteHandler{store: store})
	r.Register(domain.TypeStoryHook, &storyHookHandler{store: store})
	r.Register(domain.TypeImportantPerson, &importantPersonHandler{store: store})
	r.Register(domain.TypeRelationship, &relationshipHandler{store: store})
	r.Register(domain.TypeNPCDetected, &npcHandler{store: store})
	r.Register(domain.TypeLocationDetected, &locationHandler{store: store})
	r.Register(domain.TypeQuestDetected, &questHandler{store: store})
	r.Register(domain.TypeEncounterDetected, &encounterHandler{store: store})
	r.Register(domain.TypeFactionDetected, &factionHandler{store: store})
	r.Register(domain.TypeTimelineEvent, &timelineEventHandler{store: store})
	r.Register(domain.TypeQuestSessionLink, &sessionLinkHandler{store: store})
	r.Register(domain.TypeItemDetected, &itemHandler{store: store})
	r.Register(domain.TypeCombatOutcome, &combatOutcomeHandler{store: store})
	return r
}

// asMap normalizes a payload into map form. Legacy payloads are bare strings;
// they come back as {"value": s} so handlers have one shape to deal with.
func asMap(value any) map[string]any {
	switch v := value.(type) {
	case map[string]any:
		return v
	case string:
		return map[string]any{"value": v}
	case json.RawMessage:
		var m map[string]any
		if err := json.Unmarshal(v, &m); err == nil {
			return m
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return map[string]any{"value": s}
		}
		return map[string]any{}
	case nil:
		return map[string]any{}
	default:
		return map[string]any{"value": v}
	}
}

func str(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func boolOr(m map[string]any, key string, def bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return def
}

func strOr(m map[string]any, key, def string) string {
	if s := str(m, key); s != "" {
		return s
	}
	return def
}

func strSlice(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// withLinkage copies the payload and adds linkage entries, leaving the input alone.
func withLinkage(m map[string]any, kv ...any) map[string]any {
	out := make(map[string]any, len(m)+len(kv)/2)
	for k, v := range m {
		out[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i].(string)] = kv[i+1]
	}
	return out
}
