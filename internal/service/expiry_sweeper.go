package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/prajjwolcodes/KinBech/internal/datamodels/order"
	"github.com/prajjwolcodes/KinBech/internal/datamodels/payment"
	"github.com/prajjwolcodes/KinBech/internal/infra/mq"
)

// ExpirySweeper cancels PENDING orders past their expiry. It takes the same
// per-order lock as the orchestrator, so it can never fire in the middle of
// a checkout step, and it skips orders whose payment is PAID (reconciliation
// cases are for operators, not the sweeper).
type ExpirySweeper struct {
	db        *gorm.DB
	orderRepo order.Repository
	locker    OrderLocker
	events    EventPublisher
	interval  time.Duration
	monitor   *Monitor
}

// NewExpirySweeper creates the sweeper.
func NewExpirySweeper(db *gorm.DB, orderRepo order.Repository, locker OrderLocker, events EventPublisher, interval time.Duration) *ExpirySweeper {
	return &ExpirySweeper{
		db:        db,
		orderRepo: orderRepo,
		locker:    locker,
		events:    events,
		interval:  interval,
		monitor:   GetMonitor(),
	}
}

// Run sweeps on a ticker until the context is cancelled.
func (s *ExpirySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	zap.L().Info("expiry sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			zap.L().Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			if n, err := s.SweepOnce(ctx); err != nil {
				zap.L().Error("expiry sweep failed", zap.Error(err))
			} else if n > 0 {
				zap.L().Info("expired orders cancelled", zap.Int("count", n))
			}
		}
	}
}

// SweepOnce cancels every expired PENDING order it can lock and returns how
// many were cancelled.
func (s *ExpirySweeper) SweepOnce(ctx context.Context) (int, error) {
	expired, err := s.orderRepo.ListExpired(ctx, time.Now(), 100)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, o := range expired {
		ok, err := s.locker.Acquire(ctx, o.ID)
		if err != nil {
			return cancelled, err
		}
		if !ok {
			// A checkout step is running; the next sweep gets it.
			continue
		}
		done, err := s.expireOrder(ctx, o)
		_ = s.locker.Release(ctx, o.ID)
		if err != nil {
			zap.L().Error("failed to expire order", zap.Int64("order_id", o.ID), zap.Error(err))
			continue
		}
		if done {
			cancelled++
		}
	}
	return cancelled, nil
}

func (s *ExpirySweeper) expireOrder(ctx context.Context, o *order.Order) (bool, error) {
	cancelled := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Re-read under the lock; the order may have been confirmed or
		// cancelled since the listing.
		var cur order.Order
		if err := tx.First(&cur, o.ID).Error; err != nil {
			return err
		}
		if cur.Status != order.StatusPending || cur.ExpiresAt.After(time.Now()) {
			return nil
		}

		// A PAID attempt on a pending order means money was captured; leave
		// it to reconciliation.
		var paid int64
		if err := tx.Model(&payment.Payment{}).
			Where("order_id = ? AND status = ?", cur.ID, payment.StatusPaid).
			Count(&paid).Error; err != nil {
			return err
		}
		if paid > 0 {
			return nil
		}

		cur.Status = order.StatusCancelled
		if err := tx.Save(&cur).Error; err != nil {
			return err
		}
		cancelled = true
		s.monitor.OrdersExpired.Inc()
		if s.events != nil {
			_ = s.events.PublishOrderEvent(ctx, mq.EventOrderExpired, cur.ID, 0)
		}
		return nil
	})
	return cancelled, err
}
