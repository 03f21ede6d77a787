package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrSuggestionNotFound    = errors.New("suggestion not found")
	ErrInvalidTransition     = errors.New("invalid suggestion state transition")
	ErrUndoWindowExpired     = errors.New("undo window expired")
	ErrUnknownSuggestionType = errors.New("unknown suggestion type")
	ErrInvalidRejectReason   = errors.New("invalid rejection reason")
)

// CommitError wraps a downstream entity-write failure. The suggestion stays
// pending, so a retry is safe.
type CommitError struct {
	Type SuggestionType
	Err  error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit %s suggestion: %v", e.Type, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// ReversalIncompleteError reports that undo reset the suggestion to pending but
// could not fully unwind the entities the original commit created. Blocking the
// status reset would strand the suggestion in an unreviewable state, so the reset
// happens regardless and this surfaces as a warning.
type ReversalIncompleteError struct {
	Err error
}

func (e *ReversalIncompleteError) Error() string {
	return fmt.Sprintf("undo reverted status but reversal incomplete: %v", e.Err)
}

func (e *ReversalIncompleteError) Unwrap() error { return e.Err }

// CooldownError is returned when a generation request is refused by the gate.
type CooldownError struct {
	AvailableAt time.Time
	Remaining   time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("generation on cooldown until %s", e.AvailableAt.Format(time.RFC3339))
}
