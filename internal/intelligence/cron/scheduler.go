package cronjob

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/chroniclekeep/chronicle-backend/internal/intelligence/service"
)

// Scheduler runs the nightly retention purge: applied and rejected suggestions
// past the retention window are deleted. Pending ones are kept forever; they
// still need a human decision.
type Scheduler struct {
	repo          service.SuggestionStore
	retentionDays int
	cron          *cron.Cron
}

func NewScheduler(repo service.SuggestionStore, retentionDays int) *Scheduler {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	return &Scheduler{repo: repo, retentionDays: retentionDays}
}

// Start schedules the purge nightly at 12:00AM.
func (s *Scheduler) Start() {
	c := cron.New(cron.WithSeconds())

	_, err := c.AddFunc("0 0 0 * * *", func() {
		s.runPurge()
	})
	if err != nil {
		log.Printf("Failed to create cron job: %v", err)
		return
	}

	log.Println("Cron scheduler started (suggestion retention purge nightly at 12:00AM)")
	c.Start()
	s.cron = c
}

// Stop halts scheduling; a purge already running finishes.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Scheduler) runPurge() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	n, err := s.repo.PurgeResolvedBefore(ctx, cutoff)
	if err != nil {
		log.Printf("[intel] retention purge failed: %v", err)
		return
	}
	log.Printf("[intel] retention purge done removed=%d cutoff=%s", n, cutoff.Format(time.RFC3339))
}
