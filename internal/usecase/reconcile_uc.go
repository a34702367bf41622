// internal/usecase/reconcile_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"billing-service/internal/domain"
	"billing-service/internal/provider/interbank"
	"billing-service/internal/provider/mercadopago"
	"billing-service/internal/provider/pagarme"
	"billing-service/internal/repository"

	"go.uber.org/zap"
)

type Outcome string

const (
	OutcomeApplied          Outcome = "applied"
	OutcomeIgnoredTopic     Outcome = "ignored_topic"
	OutcomeIgnoredStatus    Outcome = "ignored_status"
	OutcomeUnknownReference Outcome = "unknown_reference"
	OutcomeAlreadyFinal     Outcome = "already_final"
)

type HandlingResult struct {
	Outcome     Outcome
	ReferenceID string
	NewStatus   domain.TransactionStatus
}

// WebhookVerifier authenticates a raw webhook delivery.
type WebhookVerifier interface {
	Verify(provider domain.Provider, rawBody []byte, header http.Header, query url.Values) error
}

// EntitlementApplier is invoked exactly once per PENDING->COMPLETED
// transition.
type EntitlementApplier interface {
	Apply(ctx context.Context, tx *domain.Transaction) error
}

// ReconcileUsecase turns a verified provider delivery into at most one state
// transition. Providers redeliver freely and in any order; everything after
// signature verification must therefore be safe to run any number of times.
type ReconcileUsecase struct {
	verifier     WebhookVerifier
	transactions repository.TransactionRepository
	entitlements EntitlementApplier
	mpFetcher    PaymentFetcher
	logger       *zap.Logger
}

func NewReconcileUsecase(
	verifier WebhookVerifier,
	transactions repository.TransactionRepository,
	entitlements EntitlementApplier,
	mpFetcher PaymentFetcher,
	logger *zap.Logger,
) *ReconcileUsecase {
	return &ReconcileUsecase{
		verifier:     verifier,
		transactions: transactions,
		entitlements: entitlements,
		mpFetcher:    mpFetcher,
		logger:       logger,
	}
}

func (uc *ReconcileUsecase) HandleWebhook(ctx context.Context, prov domain.Provider, rawBody []byte, header http.Header, query url.Values) (*HandlingResult, error) {
	if err := uc.verifier.Verify(prov, rawBody, header, query); err != nil {
		uc.logger.Warn("webhook signature rejected",
			zap.String("provider", string(prov)),
			zap.Error(err))
		return nil, err
	}

	events, err := uc.decodeEvents(prov, rawBody)
	if err != nil {
		return nil, err
	}

	// One delivery can carry several settlements (the bank batches its pix
	// notifications). Every entry transitions independently; a failure aborts
	// with a retryable error and the redelivery re-resolves the entries that
	// already settled as terminal.
	result := &HandlingResult{Outcome: OutcomeIgnoredTopic}
	for _, event := range events {
		if event.Kind != domain.EventKindPayment {
			uc.logger.Info("non-payment webhook acknowledged",
				zap.String("provider", string(prov)),
				zap.String("kind", string(event.Kind)))
			continue
		}

		canonical, err := uc.resolveCanonical(ctx, event)
		if err != nil {
			return nil, err
		}

		newStatus, ok := domain.MapProviderStatus(canonical.Status)
		if !ok {
			uc.logger.Info("provider status causes no transition",
				zap.String("provider", string(prov)),
				zap.String("status", canonical.Status),
				zap.String("reference_id", canonical.ReferenceID))
			result = higherPrecedence(result, &HandlingResult{
				Outcome:     OutcomeIgnoredStatus,
				ReferenceID: canonical.ReferenceID,
			})
			continue
		}

		res, err := uc.transition(ctx, canonical, newStatus)
		if err != nil {
			return nil, err
		}
		result = higherPrecedence(result, res)
	}
	return result, nil
}

func (uc *ReconcileUsecase) decodeEvents(prov domain.Provider, rawBody []byte) ([]*domain.ProviderEvent, error) {
	switch prov {
	case domain.ProviderBankPix:
		return interbank.ParseWebhook(rawBody)
	case domain.ProviderMercadoPago:
		event, err := mercadopago.ParseWebhook(rawBody)
		if err != nil {
			return nil, err
		}
		return []*domain.ProviderEvent{event}, nil
	case domain.ProviderPagarme:
		event, err := pagarme.ParseWebhook(rawBody)
		if err != nil {
			return nil, err
		}
		return []*domain.ProviderEvent{event}, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrValidation, prov)
	}
}

var outcomeRank = map[Outcome]int{
	OutcomeIgnoredTopic:     0,
	OutcomeIgnoredStatus:    1,
	OutcomeUnknownReference: 2,
	OutcomeAlreadyFinal:     3,
	OutcomeApplied:          4,
}

// higherPrecedence keeps the most significant per-entry result as the
// delivery-level outcome.
func higherPrecedence(a, b *HandlingResult) *HandlingResult {
	if outcomeRank[b.Outcome] >= outcomeRank[a.Outcome] {
		return b
	}
	return a
}

// resolveCanonical replaces a bare-id event with the provider's canonical
// payment object. Fields of the inbound body never survive past this point
// for lookup-style providers.
func (uc *ReconcileUsecase) resolveCanonical(ctx context.Context, event *domain.ProviderEvent) (*domain.ProviderEvent, error) {
	if event.Provider != domain.ProviderMercadoPago {
		return event, nil
	}
	if event.PaymentID == "" {
		return nil, fmt.Errorf("%w: notification missing payment id", domain.ErrValidation)
	}
	return uc.mpFetcher.FetchPayment(ctx, event.PaymentID)
}

func (uc *ReconcileUsecase) transition(ctx context.Context, event *domain.ProviderEvent, newStatus domain.TransactionStatus) (*HandlingResult, error) {
	ref := event.ReferenceID

	applied, err := uc.transactions.Transition(ctx, ref, newStatus)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			// The provider must not retry forever for a reference that will
			// never resolve; acknowledge with a warning.
			uc.logger.Warn("webhook for unknown reference acknowledged",
				zap.String("provider", string(event.Provider)),
				zap.String("reference_id", ref),
				zap.String("provider_payment_id", event.PaymentID))
			return &HandlingResult{Outcome: OutcomeUnknownReference, ReferenceID: ref}, nil
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	if !applied {
		// Already terminal: redelivery or a racing duplicate. Success, not
		// error.
		uc.logger.Info("transition ignored, transaction already terminal",
			zap.String("reference_id", ref),
			zap.String("attempted_status", string(newStatus)))
		return &HandlingResult{Outcome: OutcomeAlreadyFinal, ReferenceID: ref}, nil
	}

	uc.logger.Info("transaction transitioned",
		zap.String("provider", string(event.Provider)),
		zap.String("reference_id", ref),
		zap.String("status", string(newStatus)))

	if newStatus == domain.TxStatusCompleted {
		tx, err := uc.transactions.GetByReferenceID(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
		if err := uc.entitlements.Apply(ctx, tx); err != nil {
			// The transition has already landed, so the redelivery this
			// error provokes resolves as already-terminal and does not
			// re-run Apply. The ledger row Apply writes before the
			// subscription step marks the transaction for offline repair.
			uc.logger.Error("entitlement application failed after transition",
				zap.String("reference_id", ref),
				zap.Error(err))
			return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
	}

	return &HandlingResult{Outcome: OutcomeApplied, ReferenceID: ref, NewStatus: newStatus}, nil
}
