// internal/usecase/interfaces.go
package usecase

import (
	"context"

	"billing-service/internal/domain"

	"github.com/shopspring/decimal"
)

// CreditCalculator is the referral-credit collaborator: a pure balance lookup
// whose formula lives outside this service.
type CreditCalculator interface {
	GetCredit(ctx context.Context, userID string) (decimal.Decimal, error)
}

// Notifier sends user-facing notifications; failures are logged, never
// propagated.
type Notifier interface {
	Send(ctx context.Context, userID, eventKind string) error
}

// PaymentFetcher resolves a provider payment object over the provider's
// authenticated API, for providers whose webhooks carry only an id.
type PaymentFetcher interface {
	FetchPayment(ctx context.Context, paymentID string) (*domain.ProviderEvent, error)
}

// EventPublisher broadcasts completed-payment events to interested services.
type EventPublisher interface {
	PublishPaymentEvent(ctx context.Context, event *PaymentEvent) error
}
