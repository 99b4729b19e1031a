package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tradeflow/internal/domain"
)

type HoldSource interface {
	ListStaleHolds(ctx context.Context, cutoff time.Time, limit int) ([]domain.Reservation, error)
	Release(ctx context.Context, token string) error
}

// Reaper releases holds that outlived the cart hold TTL. The ledger never
// expires holds on its own.
type Reaper struct {
	holds     HoldSource
	holdTTL   time.Duration
	interval  time.Duration
	batchSize int
	logger    *zap.Logger
	now       func() time.Time
}

func NewReaper(holds HoldSource, holdTTL, interval time.Duration, batchSize int, logger *zap.Logger) *Reaper {
	return &Reaper{
		holds:     holds,
		holdTTL:   holdTTL,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run reaps on every tick until ctx is done.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("hold reaper started",
		zap.Duration("holdTTL", r.holdTTL), zap.Duration("interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("hold reaper stopped")
			return nil
		case <-ticker.C:
			if _, err := r.ReapOnce(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("reaping stale holds failed", zap.Error(err))
			}
		}
	}
}

// ReapOnce releases up to one batch of stale holds and reports how many were
// released.
func (r *Reaper) ReapOnce(ctx context.Context) (int, error) {
	cutoff := r.now().Add(-r.holdTTL)

	stale, err := r.holds.ListStaleHolds(ctx, cutoff, r.batchSize)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, hold := range stale {
		if err := r.holds.Release(ctx, hold.Token); err != nil {
			r.logger.Warn("releasing stale hold failed",
				zap.String("token", hold.Token), zap.Int("productId", hold.ProductID), zap.Error(err))
			continue
		}
		released++
	}

	if released > 0 {
		r.logger.Info("stale holds released", zap.Int("count", released), zap.Time("cutoff", cutoff))
	}
	return released, nil
}
