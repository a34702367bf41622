// internal/usecase/entitlement_uc.go
package usecase

import (
	"context"
	"time"

	"billing-service/internal/domain"
	"billing-service/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EntitlementUsecase reacts to a transaction reaching COMPLETED: it writes
// the payment ledger row, extends or opens the subscription window and
// records referral-credit consumption. It is invoked at most once per
// transition; the transition CAS is the idempotency guard, the unique ledger
// key the backstop.
type EntitlementUsecase struct {
	ledger    repository.LedgerRepository
	subs      repository.SubscriptionRepository
	credits   CreditCalculator
	notifier  Notifier
	publisher EventPublisher

	planID  string
	period  time.Duration
	baseFee decimal.Decimal
	logger  *zap.Logger
	now     func() time.Time
}

func NewEntitlementUsecase(
	ledger repository.LedgerRepository,
	subs repository.SubscriptionRepository,
	credits CreditCalculator,
	notifier Notifier,
	publisher EventPublisher,
	planID string,
	periodDays int,
	baseFee decimal.Decimal,
	logger *zap.Logger,
) *EntitlementUsecase {
	return &EntitlementUsecase{
		ledger:    ledger,
		subs:      subs,
		credits:   credits,
		notifier:  notifier,
		publisher: publisher,
		planID:    planID,
		period:    time.Duration(periodDays) * 24 * time.Hour,
		baseFee:   baseFee,
		logger:    logger,
		now:       time.Now,
	}
}

// Apply grants the entitlement for a completed transaction. The ledger write
// failing does not block the subscription or credit steps; it is logged and
// the remaining steps proceed.
func (uc *EntitlementUsecase) Apply(ctx context.Context, tx *domain.Transaction) error {
	now := uc.now()

	method := "unknown"
	if tx.PaymentMethod != nil {
		method = *tx.PaymentMethod
	}

	if err := uc.ledger.RecordPayment(ctx, &domain.PaymentRecord{
		UserID:        tx.UserID,
		ReferenceID:   tx.ReferenceID,
		Amount:        tx.Amount,
		PaymentMethod: method,
		PaidAt:        now,
	}); err != nil {
		uc.logger.Error("failed to record payment ledger row",
			zap.String("reference_id", tx.ReferenceID),
			zap.Error(err))
	}

	if err := uc.applySubscription(ctx, tx, now); err != nil {
		return err
	}

	uc.applyCreditConsumption(ctx, tx, now)

	if err := uc.notifier.Send(ctx, tx.UserID, "payment_confirmed"); err != nil {
		uc.logger.Warn("failed to send payment notification",
			zap.String("user_id", tx.UserID),
			zap.Error(err))
	}

	if uc.publisher != nil {
		event := &PaymentEvent{
			EventType:   "payment_completed",
			UserID:      tx.UserID,
			ReferenceID: tx.ReferenceID,
			Provider:    tx.Provider,
			Amount:      tx.Amount,
			Status:      string(domain.TxStatusCompleted),
			Timestamp:   now,
		}
		if err := uc.publisher.PublishPaymentEvent(ctx, event); err != nil {
			uc.logger.Warn("failed to publish payment event",
				zap.String("reference_id", tx.ReferenceID),
				zap.Error(err))
		}
	}

	return nil
}

// applySubscription extends the current active window by one billing period,
// or opens a fresh [now, now+period) window when none exists. Extending keeps
// at most one active row per user.
func (uc *EntitlementUsecase) applySubscription(ctx context.Context, tx *domain.Transaction, now time.Time) error {
	active, err := uc.subs.GetActive(ctx, tx.UserID, now)
	if err != nil {
		return err
	}

	if active != nil {
		newEnd := active.EndDate.Add(uc.period)
		if err := uc.subs.ExtendEnd(ctx, active.ID, newEnd); err != nil {
			return err
		}
		uc.logger.Info("subscription extended",
			zap.String("user_id", tx.UserID),
			zap.String("reference_id", tx.ReferenceID),
			zap.Time("new_end", newEnd))
		return nil
	}

	sub := &domain.Subscription{
		UserID:    tx.UserID,
		PlanID:    uc.planID,
		StartDate: now,
		EndDate:   now.Add(uc.period),
		Status:    domain.SubscriptionActive,
	}
	if err := uc.subs.Create(ctx, sub); err != nil {
		return err
	}
	uc.logger.Info("subscription created",
		zap.String("user_id", tx.UserID),
		zap.String("reference_id", tx.ReferenceID),
		zap.Time("end", sub.EndDate))
	return nil
}

// applyCreditConsumption records usage of min(baseFee, available credit).
// The consumption can never exceed the fee nor go negative; errors here are
// logged, not propagated, since the credit balance is advisory.
func (uc *EntitlementUsecase) applyCreditConsumption(ctx context.Context, tx *domain.Transaction, now time.Time) {
	available, err := uc.credits.GetCredit(ctx, tx.UserID)
	if err != nil {
		uc.logger.Warn("failed to read referral credit",
			zap.String("user_id", tx.UserID),
			zap.Error(err))
		return
	}
	if !available.IsPositive() {
		return
	}

	used := decimalMin(uc.baseFee, available)
	if !used.IsPositive() {
		return
	}

	if err := uc.ledger.RecordCreditConsumption(ctx, &domain.CreditConsumption{
		UserID:      tx.UserID,
		ReferenceID: tx.ReferenceID,
		Amount:      used,
		ConsumedAt:  now,
	}); err != nil {
		uc.logger.Error("failed to record credit consumption",
			zap.String("user_id", tx.UserID),
			zap.String("reference_id", tx.ReferenceID),
			zap.Error(err))
	}
}
