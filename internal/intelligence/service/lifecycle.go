package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/domain"
)

// linkage id fields written by commit handlers; they never count as user edits.
var correctionSkipFields = map[string]bool{
	"timeline_event_id":       true,
	"location_id":             true,
	"quest_id":                true,
	"encounter_id":            true,
	"faction_id":              true,
	"character_id":            true,
	"relationship_id":         true,
	"session_quest_id":        true,
	"existing_character_id":   true,
	"existing_location_id":    true,
	"existing_quest_id":       true,
	"existing_encounter_id":   true,
	"existing_faction_id":     true,
	"existing_relationship_id": true,
	"note":                    true,
	"note_text":               true,
	"owner_id":                true,
}

// LifecycleService drives suggestions through pending → applied/rejected and
// back via undo. Resolution of a given id is linearized two ways: a per-id
// lock serializes the commit work in this process, and the repository's
// guarded status updates reject a second writer that slipped past it.
type LifecycleService struct {
	repo     SuggestionStore
	registry HandlerResolver

	undoWindow time.Duration

	mu    sync.Mutex
	locks map[string]*idLock
}

type idLock struct {
	mu   sync.Mutex
	refs int
}

func NewLifecycleService(repo SuggestionStore, registry HandlerResolver, undoWindow time.Duration) *LifecycleService {
	if undoWindow <= 0 {
		undoWindow = 24 * time.Hour
	}
	return &LifecycleService{
		repo:       repo,
		registry:   registry,
		undoWindow: undoWindow,
		locks:      make(map[string]*idLock),
	}
}

func (s *LifecycleService) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &idLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

// ResolveResult reports what a resolution did.
type ResolveResult struct {
	Action     domain.ResolveAction `json:"action"`
	Message    string               `json:"message"`
	FinalValue map[string]any       `json:"final_value,omitempty"`
}

// Resolve approves or rejects a pending suggestion. For approvals, finalValue
// (when non-nil) is the caller's edited payload; the stored suggested value is
// never mutated, and edits are recorded as correction metadata on the final
// value. A commit failure leaves the suggestion pending so it can be retried.
func (s *LifecycleService) Resolve(ctx context.Context, id string, action domain.ResolveAction, finalValue map[string]any, rejectReason string) (*ResolveResult, error) {
	unlock := s.lock(id)
	defer unlock()

	sg, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sg.Status != domain.StatusPending {
		return nil, fmt.Errorf("%w: suggestion is %s", domain.ErrInvalidTransition, sg.Status)
	}

	switch action {
	case domain.ActionReject:
		if !domain.ValidRejectReason(rejectReason) {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRejectReason, rejectReason)
		}
		if err := s.repo.MarkRejected(ctx, id, rejectReason); err != nil {
			return nil, err
		}
		log.Printf("[intel] suggestion rejected id=%s reason=%q", id, rejectReason)
		return &ResolveResult{Action: domain.ActionReject, Message: "suggestion rejected"}, nil

	case domain.ActionApprove:
		handler, err := s.registry.Resolve(sg.Type)
		if err != nil {
			return nil, err
		}

		var effective any = sg.SuggestedValue
		edited := finalValue != nil
		if edited {
			effective = finalValue
		}

		res, err := handler.Commit(ctx, sg, effective)
		if err != nil {
			return nil, &domain.CommitError{Type: sg.Type, Err: err}
		}

		final := res.FinalValue
		if edited {
			final = trackCorrection(sg.SuggestedValue, final, sg.Type)
		}
		if err := s.repo.MarkApplied(ctx, id, final, res.CurrentValue); err != nil {
			return nil, err
		}
		log.Printf("[intel] suggestion applied id=%s type=%s edited=%t", id, sg.Type, edited)
		return &ResolveResult{Action: domain.ActionApprove, Message: res.Message, FinalValue: final}, nil

	default:
		return nil, fmt.Errorf("unknown resolve action %q", action)
	}
}

// Undo reverses an applied suggestion within the undo window, measured from
// the record's creation. The status reset to pending happens even when the
// entity reversal fails partway; that case surfaces as ReversalIncompleteError
// so the caller knows manual cleanup may be needed.
func (s *LifecycleService) Undo(ctx context.Context, id string) error {
	unlock := s.lock(id)
	defer unlock()

	sg, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if sg.Status != domain.StatusApplied {
		return fmt.Errorf("%w: only applied suggestions can be undone, got %s", domain.ErrInvalidTransition, sg.Status)
	}
	if time.Since(sg.CreatedAt) > s.undoWindow {
		return domain.ErrUndoWindowExpired
	}

	var revertErr error
	handler, err := s.registry.Resolve(sg.Type)
	if err != nil {
		revertErr = err
	} else {
		revertErr = handler.Revert(ctx, sg)
	}

	if err := s.repo.MarkPending(ctx, id); err != nil {
		return err
	}
	if revertErr != nil {
		log.Printf("[intel] undo incomplete id=%s type=%s err=%v", id, sg.Type, revertErr)
		return &domain.ReversalIncompleteError{Err: revertErr}
	}
	log.Printf("[intel] suggestion undone id=%s type=%s", id, sg.Type)
	return nil
}

// Delete removes a suggestion record outright. Applied suggestions keep their
// committed entities; deletion only forgets the record.
func (s *LifecycleService) Delete(ctx context.Context, id string) error {
	unlock := s.lock(id)
	defer unlock()
	return s.repo.Delete(ctx, id)
}

// trackCorrection compares the caller's edited payload against what was
// originally suggested and, when fields meaningfully differ, attaches the
// diff as metadata. This is the raw material for measuring generator quality.
func trackCorrection(suggested any, final map[string]any, t domain.SuggestionType) map[string]any {
	suggestedMap, ok := suggested.(map[string]any)
	if !ok {
		return final
	}

	type correction struct {
		Field     string `json:"field"`
		Original  any    `json:"original"`
		Corrected any    `json:"corrected"`
	}
	var corrections []correction

	for key, newVal := range final {
		if correctionSkipFields[key] {
			continue
		}
		origVal, ok := suggestedMap[key]
		if !ok || origVal == nil || newVal == nil {
			continue
		}
		origStr := normalizeForDiff(origVal)
		newStr := normalizeForDiff(newVal)
		if origStr != newStr && origStr != "" && newStr != "" {
			corrections = append(corrections, correction{Field: key, Original: origVal, Corrected: newVal})
		}
	}

	if len(corrections) == 0 {
		return final
	}
	out := make(map[string]any, len(final)+1)
	for k, v := range final {
		out[k] = v
	}
	out["_correction_metadata"] = map[string]any{
		"was_edited":         true,
		"suggestion_type":    string(t),
		"corrections":        corrections,
		"original_suggested": suggested,
	}
	return out
}

func normalizeForDiff(v any) string {
	if s, ok := v.(string); ok {
		return strings.ToLower(strings.TrimSpace(s))
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
