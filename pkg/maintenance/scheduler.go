package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// jobTimeout bounds a single run of any job
const jobTimeout = 5 * time.Minute

// Schedules holds cron expressions for each job. An empty expression
// disables that job.
type Schedules struct {
	LegacyVotes   string `yaml:"legacy_votes"`
	ExpiredTokens string `yaml:"expired_tokens"`
}

// DefaultSchedules returns the default job schedules
func DefaultSchedules() Schedules {
	return Schedules{
		LegacyVotes:   "*/15 * * * *",
		ExpiredTokens: "0 * * * *",
	}
}

// Scheduler runs the sweeper's jobs on their schedules
type Scheduler struct {
	cron    *cron.Cron
	sweeper *Sweeper
}

// NewScheduler validates schedules and registers the jobs. Nothing runs
// until Start.
func NewScheduler(sweeper *Sweeper, schedules Schedules) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		sweeper: sweeper,
	}

	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context) (int64, error)
	}{
		{"legacy_votes", schedules.LegacyVotes, func(ctx context.Context) (int64, error) {
			n, err := sweeper.NormalizeLegacyVotes(ctx)
			return int64(n), err
		}},
		{"expired_tokens", schedules.ExpiredTokens, sweeper.PurgeExpiredTokens},
	}

	for _, job := range jobs {
		if job.spec == "" {
			continue
		}
		if _, err := s.cron.AddFunc(job.spec, func() { s.runJob(job.name, job.run) }); err != nil {
			return nil, fmt.Errorf("invalid %s schedule %q: %w", job.name, job.spec, err)
		}
	}
	return s, nil
}

// Jobs returns how many jobs are scheduled
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Start begins running jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs to finish or ctx to end
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runJob(name string, run func(ctx context.Context) (int64, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	logger := s.sweeper.logger.WithField("job", name)
	start := time.Now()
	n, err := run(ctx)
	if err != nil {
		logger.WithError(err).Error("maintenance job failed")
		return
	}
	logger.WithFields(map[string]interface{}{
		"affected":    n,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("maintenance job finished")
}
