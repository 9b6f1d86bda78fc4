package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ExpiredSessionPurger deletes refresh sessions that expired before a cutoff.
type ExpiredSessionPurger interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// SessionSweeper periodically removes expired refresh sessions.
type SessionSweeper struct {
	sessions ExpiredSessionPurger
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewSessionSweeper builds a sweeper. A non-positive interval defaults to one hour.
func NewSessionSweeper(sessions ExpiredSessionPurger, interval time.Duration, logger *zap.Logger) *SessionSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionSweeper{
		sessions: sessions,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *SessionSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep deletes everything that expired before now.
func (s *SessionSweeper) Sweep(ctx context.Context) int64 {
	deleted, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("expired session sweep failed", zap.Error(err))
		}
		return 0
	}
	if deleted > 0 {
		s.logger.Info("expired sessions removed", zap.Int64("count", deleted))
	}
	return deleted
}
