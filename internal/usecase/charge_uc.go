// internal/usecase/charge_uc.go
package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"billing-service/internal/domain"
	"billing-service/internal/provider"
	"billing-service/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ChargeUsecase creates provider charges and persists the pending
// transaction they will later reconcile against.
type ChargeUsecase struct {
	transactions repository.TransactionRepository
	providers    map[domain.Provider]provider.Client
	credits      CreditCalculator

	baseFee      decimal.Decimal
	chargeExpiry time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

func NewChargeUsecase(
	transactions repository.TransactionRepository,
	providers map[domain.Provider]provider.Client,
	credits CreditCalculator,
	baseFee decimal.Decimal,
	chargeExpiry time.Duration,
	logger *zap.Logger,
) *ChargeUsecase {
	return &ChargeUsecase{
		transactions: transactions,
		providers:    providers,
		credits:      credits,
		baseFee:      baseFee,
		chargeExpiry: chargeExpiry,
		logger:       logger,
		now:          time.Now,
	}
}

// Quote computes what the user owes for the next period after referral
// credit. amountToPay never goes negative and creditsUsed never exceeds the
// base fee.
func (uc *ChargeUsecase) Quote(ctx context.Context, userID string) (*domain.Quote, error) {
	available, err := uc.credits.GetCredit(ctx, userID)
	if err != nil {
		uc.logger.Warn("referral credit lookup failed, quoting full fee",
			zap.String("user_id", userID),
			zap.Error(err))
		available = decimal.Zero
	}

	used := decimalMin(uc.baseFee, available)
	return &domain.Quote{
		BaseFee:         uc.baseFee,
		AvailableCredit: available,
		CreditsUsed:     used,
		AmountToPay:     uc.baseFee.Sub(used),
	}, nil
}

type ChargeResponse struct {
	ReferenceID   string          `json:"reference_id"`
	Amount        decimal.Decimal `json:"amount"`
	Provider      domain.Provider `json:"provider"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	QRCode        string          `json:"qr_code,omitempty"`
	QRCodeBase64  string          `json:"qr_code_base64,omitempty"`
	TicketURL     string          `json:"ticket_url,omitempty"`
	ExpiresAt     time.Time       `json:"expires_at"`
}

// CreateChargeInput selects the provider and how the user pays. Method
// defaults to pix; credit card requires the tokenized card from the checkout
// form.
type CreateChargeInput struct {
	Provider domain.Provider
	Method   string
	Card     *provider.Card
	Customer provider.Customer
}

// CreateCharge quotes the user, creates the charge provider-side and
// persists the PENDING row. No reference id is returned unless the provider
// confirmed the charge.
func (uc *ChargeUsecase) CreateCharge(ctx context.Context, userID string, in CreateChargeInput) (*ChargeResponse, error) {
	prov := in.Provider
	client, ok := uc.providers[prov]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported provider %q", domain.ErrValidation, prov)
	}

	method := in.Method
	if method == "" {
		method = provider.MethodPix
	}
	if method != provider.MethodPix && method != provider.MethodCreditCard {
		return nil, fmt.Errorf("%w: unsupported payment method %q", domain.ErrValidation, method)
	}

	quote, err := uc.Quote(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !quote.AmountToPay.IsPositive() {
		return nil, fmt.Errorf("%w: no amount due", domain.ErrValidation)
	}

	referenceID := newReferenceID(prov)
	expiresAt := uc.now().Add(uc.chargeExpiry)

	result, err := client.CreateCharge(ctx, &provider.ChargeRequest{
		ReferenceID: referenceID,
		UserID:      userID,
		Amount:      quote.AmountToPay,
		Description: "Subscription renewal",
		ExpiresIn:   uc.chargeExpiry,
		Method:      method,
		Customer:    in.Customer,
		Card:        in.Card,
	})
	if err != nil {
		uc.logger.Error("provider charge creation failed",
			zap.String("provider", string(prov)),
			zap.String("user_id", userID),
			zap.String("method", method),
			zap.Error(err))
		return nil, err
	}

	if result.PaymentMethod != "" {
		method = result.PaymentMethod
	}
	tx := &domain.Transaction{
		ReferenceID:       referenceID,
		UserID:            userID,
		Amount:            quote.AmountToPay,
		Provider:          prov,
		Status:            domain.TxStatusPending,
		ProviderPaymentID: &result.ProviderPaymentID,
		PaymentMethod:     &method,
		ExpiresAt:         expiresAt,
	}
	if err := uc.transactions.Create(ctx, tx); err != nil {
		// The provider-side charge exists but we cannot track it; surface a
		// retryable failure without handing out the reference.
		uc.logger.Error("failed to persist pending transaction",
			zap.String("provider", string(prov)),
			zap.String("reference_id", referenceID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	uc.logger.Info("charge created",
		zap.String("provider", string(prov)),
		zap.String("reference_id", referenceID),
		zap.String("user_id", userID),
		zap.String("amount", quote.AmountToPay.StringFixed(2)))

	return &ChargeResponse{
		ReferenceID:   referenceID,
		Amount:        quote.AmountToPay,
		Provider:      prov,
		Status:        string(domain.TxStatusPending),
		PaymentMethod: method,
		QRCode:        result.QRCode,
		QRCodeBase64:  result.QRCodeBase64,
		TicketURL:     result.TicketURL,
		ExpiresAt:     expiresAt,
	}, nil
}

// GetStatus is the polling endpoint behind the payer's waiting screen.
func (uc *ChargeUsecase) GetStatus(ctx context.Context, referenceID string) (domain.TransactionStatus, error) {
	tx, err := uc.transactions.GetByReferenceID(ctx, referenceID)
	if err != nil {
		return "", err
	}
	return tx.Status, nil
}

// newReferenceID mints the externally visible reference. The PIX bank uses
// it as a txid, which forbids hyphens, so that provider gets the compact
// form.
func newReferenceID(prov domain.Provider) string {
	id := uuid.NewString()
	if prov == domain.ProviderBankPix {
		return strings.ReplaceAll(id, "-", "")
	}
	return id
}

func decimalMin(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
