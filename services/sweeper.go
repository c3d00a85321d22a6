package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"secureshare/repository"
)

// ExpirySweeper is the part of FileService the scheduler needs.
type ExpirySweeper interface {
	ExpirySweep(ctx context.Context) (int64, error)
}

// ExpiryJob deactivates expired records. It needs the metadata store only,
// so one-shot sweeps can run without a blob store.
type ExpiryJob struct {
	repo   repository.FileRepository
	logger *logrus.Logger
	now    func() time.Time
}

func NewExpiryJob(repo repository.FileRepository, logger *logrus.Logger) *ExpiryJob {
	return &ExpiryJob{repo: repo, logger: logger, now: time.Now}
}

// ExpirySweep deactivates every record whose expiry has passed. Blobs are
// left in place for a separate collector.
func (j *ExpiryJob) ExpirySweep(ctx context.Context) (int64, error) {
	return j.sweepAt(ctx, j.now().UTC())
}

func (j *ExpiryJob) sweepAt(ctx context.Context, now time.Time) (int64, error) {
	start := time.Now()

	count, err := j.repo.SweepExpired(ctx, now)
	if err != nil {
		return 0, unavailable("sweep expired", err)
	}

	sweepRunsTotal.Inc()
	sweepDeactivatedTotal.Add(float64(count))
	sweepDurationSeconds.Observe(time.Since(start).Seconds())

	j.logger.WithField("deactivated", count).Info("Expiry sweep finished")
	return count, nil
}

// Sweeper runs expiry sweeps on a cron schedule.
type Sweeper struct {
	cron     *cron.Cron
	target   ExpirySweeper
	schedule string
	timeout  time.Duration
	logger   *logrus.Logger
}

// NewSweeper validates schedule (standard cron syntax or descriptors such
// as "@every 1h") and registers the sweep job.
func NewSweeper(target ExpirySweeper, schedule string, logger *logrus.Logger) (*Sweeper, error) {
	cronLogger := cron.PrintfLogger(logger)

	s := &Sweeper{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger),
			cron.SkipIfStillRunning(cronLogger),
		)),
		target:   target,
		schedule: schedule,
		timeout:  5 * time.Minute,
		logger:   logger,
	}

	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.WithError(err).Error("Scheduled expiry sweep failed")
	}
}

// RunOnce performs a single sweep immediately.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	return s.target.ExpirySweep(ctx)
}

func (s *Sweeper) Start() {
	s.cron.Start()
	s.logger.WithField("schedule", s.schedule).Info("Expiry sweeper started")
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Expiry sweeper stopped")
}
