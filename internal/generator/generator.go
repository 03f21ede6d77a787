// Package generator talks to the analysis service that reads session notes and
// proposes suggestion drafts. The engine treats it as a black box: drafts come
// back with type, confidence and reasoning already assigned, and nothing here
// re-scores or re-ranks them.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Draft is one proposed change as produced by the analysis service. It becomes
// a pending suggestion verbatim once persisted.
type Draft struct {
	SessionID      string          `json:"session_id,omitempty"`
	SessionNumber  int             `json:"session_number,omitempty"`
	CharacterID    string          `json:"character_id,omitempty"`
	CharacterName  string          `json:"character_name,omitempty"`
	SuggestionType string          `json:"suggestion_type"`
	FieldName      string          `json:"field_name,omitempty"`
	Confidence     string          `json:"confidence"`
	CurrentValue   json.RawMessage `json:"current_value,omitempty"`
	SuggestedValue json.RawMessage `json:"suggested_value"`
	SourceExcerpt  string          `json:"source_excerpt,omitempty"`
	Reasoning      string          `json:"ai_reasoning,omitempty"`
}

// AnalyzeRequest scopes a generation run. SessionsAfter is the staleness
// cursor: only sessions created after it are analyzed, unless FullAudit asks
// for the whole campaign history.
type AnalyzeRequest struct {
	CampaignID    string    `json:"campaign_id"`
	CharacterID   string    `json:"character_id,omitempty"`
	SessionsAfter time.Time `json:"sessions_after,omitempty"`
	FullAudit     bool      `json:"full_audit,omitempty"`
}

type AnalyzeResponse struct {
	OK          bool    `json:"ok"`
	Suggestions []Draft `json:"suggestions"`
	Model       string  `json:"model,omitempty"`
}

// Generator is the upstream analysis boundary.
type Generator interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error)
}

// Client calls the analysis service over HTTP. A shared token-bucket limiter
// smooths bursts so a stampede of manual runs cannot flood the upstream.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	limiter *rate.Limiter
}

func NewClient(baseURL string, rps float64, burst int) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8099"
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 120 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (c *Client) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	b, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/analyze", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("analysis request: %w", err)
	}
	defer resp.Body.Close()

	var out AnalyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("analysis decode: %w", err)
	}
	if resp.StatusCode >= 400 || !out.OK {
		return nil, fmt.Errorf("analysis error (status %d)", resp.StatusCode)
	}
	return &out, nil
}
