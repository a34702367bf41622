// internal/usecase/sweeper_test.go
package usecase

import (
	"context"
	"testing"
	"time"

	"billing-service/internal/domain"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sweeperSubsRepo struct {
	lapsed int64
}

func (s *sweeperSubsRepo) GetActive(context.Context, string, time.Time) (*domain.Subscription, error) {
	return nil, nil
}

func (s *sweeperSubsRepo) Create(context.Context, *domain.Subscription) error { return nil }

func (s *sweeperSubsRepo) ExtendEnd(context.Context, int64, time.Time) error { return nil }

func (s *sweeperSubsRepo) ExpireLapsed(context.Context, time.Time) (int64, error) {
	s.lapsed++
	return 2, nil
}

func TestSweepExpiresStalePending(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	stale := pendingTx("stale")
	stale.ExpiresAt = now.Add(-time.Minute)
	fresh := pendingTx("fresh")
	fresh.ExpiresAt = now.Add(time.Hour)
	done := pendingTx("done")
	done.Status = domain.TxStatusCompleted
	done.ExpiresAt = now.Add(-time.Hour)

	repo := newFakeTxRepo(stale, fresh, done)
	subs := &sweeperSubsRepo{}

	s := NewSweeper(repo, subs, time.Minute, zap.NewNop())
	s.now = func() time.Time { return now }
	s.sweep(context.Background())

	tx, _ := repo.GetByReferenceID(context.Background(), "stale")
	require.Equal(t, domain.TxStatusExpired, tx.Status)

	tx, _ = repo.GetByReferenceID(context.Background(), "fresh")
	require.Equal(t, domain.TxStatusPending, tx.Status)

	// Terminal rows are never touched.
	tx, _ = repo.GetByReferenceID(context.Background(), "done")
	require.Equal(t, domain.TxStatusCompleted, tx.Status)

	require.Equal(t, int64(1), subs.lapsed)
}

func TestSweeperStopsOnContextCancel(t *testing.T) {
	repo := newFakeTxRepo()
	s := NewSweeper(repo, &sweeperSubsRepo{}, time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	doneCh := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(doneCh)
	}()

	cancel()
	select {
	case <-doneCh:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}
