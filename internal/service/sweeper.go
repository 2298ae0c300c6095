package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rrraaa1/hospital-bulk-processing/internal/observability"
	"github.com/rrraaa1/hospital-bulk-processing/internal/repository"
)

const (
	defaultSweepInterval = time.Hour
	defaultBatchMaxAge   = 24 * time.Hour
)

// Sweeper periodically discards batches older than the configured age.
type Sweeper struct {
	store    repository.BatchStore
	logger   *zap.Logger
	metrics  *observability.Metrics
	interval time.Duration
	maxAge   time.Duration
}

func NewSweeper(
	store repository.BatchStore,
	interval time.Duration,
	maxAge time.Duration,
	logger *zap.Logger,
) (*Sweeper, error) {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if maxAge <= 0 {
		maxAge = defaultBatchMaxAge
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Sweeper{
		store:    store,
		logger:   logger,
		interval: interval,
		maxAge:   maxAge,
	}, nil
}

func (s *Sweeper) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Start sweeps once immediately and then on every ticker edge until
// context cancellation.
func (s *Sweeper) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.sweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	removed := s.store.Sweep(s.maxAge)
	if removed == 0 {
		return
	}

	if s.metrics != nil {
		s.metrics.AddBatchesSwept(removed)
	}
	s.logger.Info("swept expired batches", zap.Int("removed", removed))
}
