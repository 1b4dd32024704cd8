// Package scheduler drives the live session on fixed intervals. All jobs
// share one mutex: a tick that lands while any job is still running is
// skipped whole, so a cycle is never entered twice and never interrupted
// partway.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Job is one scheduled unit of work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs jobs on their intervals until its context is cancelled.
type Scheduler struct {
	jobs []Job
	busy sync.Mutex
	wg   sync.WaitGroup
}

// New builds a scheduler. Jobs with non-positive intervals are dropped.
func New(jobs ...Job) *Scheduler {
	s := &Scheduler{}
	for _, j := range jobs {
		if j.Interval <= 0 || j.Run == nil {
			log.Warn().Str("job", j.Name).Msg("job with no interval or body dropped")
			continue
		}
		s.jobs = append(s.jobs, j)
	}
	return s
}

// Start launches every job loop and blocks until ctx is cancelled and all
// in-flight runs finish.
func (s *Scheduler) Start(ctx context.Context) {
	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, job)
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	log.Info().Str("job", job.Name).Dur("interval", job.Interval).Msg("job scheduled")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, job)
		}
	}
}

// runOnce executes the job unless another job holds the session. A missed
// tick is dropped, not queued.
func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	if !s.busy.TryLock() {
		log.Debug().Str("job", job.Name).Msg("tick skipped, session busy")
		return
	}
	defer s.busy.Unlock()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Error().Err(err).Str("job", job.Name).Msg("job failed")
		return
	}
	log.Debug().Str("job", job.Name).Dur("took", time.Since(start)).Msg("job done")
}
