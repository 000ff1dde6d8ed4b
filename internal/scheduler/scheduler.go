// Package scheduler runs the background jobs of the service.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// AwardRetrier applies point awards that are still pending.
type AwardRetrier interface {
	AwardPending(ctx context.Context) (int, error)
}

// Scheduler wraps a seconds-resolution cron.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		logger: logger,
	}
}

// AddAwardRetry registers the pending award job on spec.
func (s *Scheduler) AddAwardRetry(spec string, retrier AwardRetrier, timeout time.Duration) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		RunAwardRetry(ctx, retrier, s.logger)
	})
	if err != nil {
		return fmt.Errorf("add award retry job %q: %w", spec, err)
	}
	return nil
}

// RunAwardRetry runs one pass of the award job and logs the outcome.
func RunAwardRetry(ctx context.Context, retrier AwardRetrier, logger *zap.Logger) {
	applied, err := retrier.AwardPending(ctx)
	if err != nil {
		logger.Error("award retry failed", zap.Int("applied", applied), zap.Error(err))
		return
	}
	if applied > 0 {
		logger.Info("pending awards applied", zap.Int("applied", applied))
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
