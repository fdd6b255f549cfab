package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TrialExpirer flips overdue organization trials to expired.
type TrialExpirer interface {
	ExpireOverdue(ctx context.Context) (int64, error)
}

// TrialSweeper periodically persists the expired status of organization trials.
type TrialSweeper struct {
	expirer  TrialExpirer
	logger   zerolog.Logger
	interval time.Duration
}

// NewTrialSweeper returns a sweeper running every interval, defaulting to fifteen minutes.
func NewTrialSweeper(expirer TrialExpirer, logger zerolog.Logger, interval time.Duration) *TrialSweeper {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &TrialSweeper{expirer: expirer, logger: logger, interval: interval}
}

// Start sweeps once immediately and then on every tick. Blocks until ctx is cancelled.
func (s *TrialSweeper) Start(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("starting trial sweeper")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("trial sweeper shutting down")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep and returns how many trials expired.
func (s *TrialSweeper) RunOnce(ctx context.Context) int64 {
	n, err := s.expirer.ExpireOverdue(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("expire organization trials")
		return 0
	}
	if n > 0 {
		s.logger.Info().Int64("count", n).Msg("organization trials expired")
	}
	return n
}
