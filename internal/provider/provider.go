// internal/provider/provider.go
package provider

import (
	"context"
	"time"

	"billing-service/internal/domain"

	"github.com/shopspring/decimal"
)

// Payment methods a charge can be created with. The PIX bank accepts pix
// only; the two gateways also take tokenized cards.
const (
	MethodPix        = "pix"
	MethodCreditCard = "credit_card"
)

// ChargeRequest is what the charge flow hands a provider client. ReferenceID
// is assigned by us before the provider call so the eventual webhook can be
// correlated regardless of provider. Method defaults to pix when empty.
type ChargeRequest struct {
	ReferenceID string
	UserID      string
	Amount      decimal.Decimal
	Description string
	ExpiresIn   time.Duration
	Method      string
	Customer    Customer
	Card        *Card
}

type Customer struct {
	Name     string
	Email    string
	Document string
}

// Card is the tokenized card data produced by the checkout form. The raw PAN
// never reaches this service.
type Card struct {
	Token        string
	Brand        string
	Installments int
}

// ChargeResult carries the provider-side payment id plus whatever the payer
// needs to complete the payment (PIX copy/paste code, QR image, checkout url).
type ChargeResult struct {
	ProviderPaymentID string
	QRCode            string
	QRCodeBase64      string
	TicketURL         string
	PaymentMethod     string
}

// Client is the outbound side of one payment provider.
type Client interface {
	Provider() domain.Provider
	CreateCharge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error)
}
