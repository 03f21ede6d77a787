package http

import (
	"strings"
	"time"

	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/domain"
	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/query"
)

type resolveRequest struct {
	Action       string         `json:"action" binding:"required"`
	FinalValue   map[string]any `json:"final_value,omitempty"`
	RejectReason string         `json:"reject_reason,omitempty"`
}

type batchRequest struct {
	SuggestionIDs []string `json:"suggestion_ids" binding:"required"`
	Action        string   `json:"action" binding:"required"`
	RejectReason  string   `json:"reject_reason,omitempty"`
}

type analyzeRequest struct {
	CharacterID string `json:"character_id,omitempty"`
	FullAudit   bool   `json:"full_audit,omitempty"`
}

type listResponse struct {
	Suggestions []domain.Suggestion `json:"suggestions,omitempty"`
	Groups      []query.Group       `json:"groups,omitempty"`
	Counts      domain.StatusCounts `json:"counts"`
}

// listQuery carries the filter knobs a review screen can set. Comma-separated
// multi-value params keep URLs short.
type listQuery struct {
	Status        string `form:"status"`
	CharacterID   string `form:"character_id"`
	SessionID     string `form:"session_id"`
	Types         string `form:"types"`
	Confidences   string `form:"confidences"`
	Search        string `form:"search"`
	CreatedAfter  string `form:"created_after"`
	CreatedBefore string `form:"created_before"`
	Group         string `form:"group"`
}

func (q listQuery) filter() (query.Filter, error) {
	f := query.Filter{
		SessionID: q.SessionID,
		Search:    q.Search,
	}
	if q.Types != "" {
		f.Types = make(map[domain.SuggestionType]bool)
		for _, t := range strings.Split(q.Types, ",") {
			f.Types[domain.SuggestionType(strings.TrimSpace(t))] = true
		}
	}
	if q.Confidences != "" {
		f.Confidences = make(map[domain.Confidence]bool)
		for _, cf := range strings.Split(q.Confidences, ",") {
			f.Confidences[domain.Confidence(strings.TrimSpace(cf))] = true
		}
	}
	if q.CreatedAfter != "" {
		t, err := time.Parse(time.RFC3339, q.CreatedAfter)
		if err != nil {
			return f, err
		}
		f.CreatedAfter = t
	}
	if q.CreatedBefore != "" {
		t, err := time.Parse(time.RFC3339, q.CreatedBefore)
		if err != nil {
			return f, err
		}
		f.CreatedBefore = t
	}
	return f, nil
}
