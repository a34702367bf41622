// internal/usecase/sweeper.go
package usecase

import (
	"context"
	"time"

	"billing-service/internal/repository"

	"go.uber.org/zap"
)

// Sweeper periodically expires pending transactions whose charge window
// elapsed without a terminal webhook, and lapses subscriptions past their
// end date.
type Sweeper struct {
	transactions  repository.TransactionRepository
	subscriptions repository.SubscriptionRepository
	interval      time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

func NewSweeper(
	transactions repository.TransactionRepository,
	subscriptions repository.SubscriptionRepository,
	interval time.Duration,
	logger *zap.Logger,
) *Sweeper {
	return &Sweeper{
		transactions:  transactions,
		subscriptions: subscriptions,
		interval:      interval,
		logger:        logger,
		now:           time.Now,
	}
}

// Run blocks until ctx is cancelled. Intended to be launched as a goroutine
// from main.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	now := s.now()

	expired, err := s.transactions.MarkExpired(ctx, now)
	if err != nil {
		s.logger.Error("expiry sweep failed", zap.Error(err))
	} else if expired > 0 {
		s.logger.Info("expired stale transactions", zap.Int64("count", expired))
	}

	lapsed, err := s.subscriptions.ExpireLapsed(ctx, now)
	if err != nil {
		s.logger.Error("subscription lapse sweep failed", zap.Error(err))
	} else if lapsed > 0 {
		s.logger.Info("lapsed subscriptions", zap.Int64("count", lapsed))
	}
}
