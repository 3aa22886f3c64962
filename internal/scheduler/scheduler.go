// Package scheduler runs periodic housekeeping jobs.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"

	"github.com/tilqural/levels/internal/store"
)

// Scheduler evicts finished and idle word rounds on an interval.
type Scheduler struct {
	scheduler *gocron.Scheduler
	rounds    store.Rounds
	ttl       time.Duration
	every     time.Duration
	now       func() time.Time
}

// New creates a scheduler that drops rounds idle for longer than ttl,
// checking every interval.
func New(rounds store.Rounds, ttl, every time.Duration) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		rounds:    rounds,
		ttl:       ttl,
		every:     every,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start schedules the sweep and runs the scheduler without blocking.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(s.every).Do(func() { s.Sweep() }); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	log.Info().Dur("every", s.every).Dur("ttl", s.ttl).Msg("round sweeper started")
	return nil
}

// Stop terminates all scheduled jobs.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// Sweep drops finished rounds and rounds idle longer than the ttl.
func (s *Scheduler) Sweep() int {
	n := s.rounds.Sweep(context.Background(), s.now().Add(-s.ttl))
	if n > 0 {
		log.Debug().Int("dropped", n).Int("remaining", s.rounds.Len()).Msg("rounds swept")
	}
	return n
}
