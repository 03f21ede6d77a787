package service

import (
	"context"
	"log"
	"sync"

	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/domain"
)

// BatchService resolves a selection of suggestions in one call. Items run
// concurrently up to a fixed cap; each goes through the lifecycle service, so
// per-id linearization and the pending-only guard hold exactly as they do for
// single resolutions. One failing item never aborts the rest.
type BatchService struct {
	lifecycle   *LifecycleService
	repo        SuggestionStore
	concurrency int
}

func NewBatchService(lifecycle *LifecycleService, repo SuggestionStore, concurrency int) *BatchService {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &BatchService{lifecycle: lifecycle, repo: repo, concurrency: concurrency}
}

// ItemResult is the outcome for one id in a batch.
type ItemResult struct {
	SuggestionID string `json:"suggestion_id"`
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	Error        string `json:"error,omitempty"`
}

// BatchResult aggregates a batch run. Results preserve the input id order.
type BatchResult struct {
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Results   []ItemResult `json:"results"`
}

// ApplyToSelection resolves every id with the same action. Duplicated ids are
// collapsed; the per-id lock makes the duplicate a no-op loser anyway, but
// collapsing avoids reporting the same id twice.
func (s *BatchService) ApplyToSelection(ctx context.Context, ids []string, action domain.ResolveAction, rejectReason string) (*BatchResult, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}

	results := make([]ItemResult, len(unique))
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for i, id := range unique {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res, err := s.lifecycle.Resolve(ctx, id, action, nil, rejectReason)
			if err != nil {
				results[i] = ItemResult{SuggestionID: id, Error: err.Error()}
				return
			}
			results[i] = ItemResult{SuggestionID: id, Success: true, Message: res.Message}
		}(i, id)
	}
	wg.Wait()

	out := &BatchResult{Results: results}
	for _, r := range results {
		if r.Success {
			out.Succeeded++
		} else {
			out.Failed++
		}
	}
	log.Printf("[intel] batch %s done total=%d ok=%d failed=%d", action, len(unique), out.Succeeded, out.Failed)
	return out, nil
}
