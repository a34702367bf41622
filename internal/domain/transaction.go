// internal/domain/transaction.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Provider string
type TransactionStatus string

const (
	ProviderBankPix     Provider = "bank_pix"
	ProviderMercadoPago Provider = "mercadopago"
	ProviderPagarme     Provider = "pagarme"
)

const (
	TxStatusPending   TransactionStatus = "PENDING"
	TxStatusCompleted TransactionStatus = "COMPLETED"
	TxStatusFailed    TransactionStatus = "FAILED"
	TxStatusExpired   TransactionStatus = "EXPIRED"
)

// IsTerminal reports whether no further transition is permitted from s.
func (s TransactionStatus) IsTerminal() bool {
	return s == TxStatusCompleted || s == TxStatusFailed || s == TxStatusExpired
}

func (p Provider) Valid() bool {
	switch p {
	case ProviderBankPix, ProviderMercadoPago, ProviderPagarme:
		return true
	}
	return false
}

// Transaction represents one payment attempt. ReferenceID is the externally
// visible id correlating our charge with the provider's payment object; it is
// unique across providers and immutable, as is Amount. Rows are never deleted,
// only transitioned.
type Transaction struct {
	ID                int64             `json:"id"`
	ReferenceID       string            `json:"reference_id"`
	UserID            string            `json:"user_id"`
	Amount            decimal.Decimal   `json:"amount"`
	Provider          Provider          `json:"provider"`
	Status            TransactionStatus `json:"status"`
	ProviderPaymentID *string           `json:"provider_payment_id,omitempty"`
	PaymentMethod     *string           `json:"payment_method,omitempty"`
	Description       *string           `json:"description,omitempty"`
	ExpiresAt         time.Time         `json:"expires_at"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
}

// PaymentRecord is the ledger row written once per completed transaction.
type PaymentRecord struct {
	ID            int64           `json:"id"`
	UserID        string          `json:"user_id"`
	ReferenceID   string          `json:"reference_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	PaidAt        time.Time       `json:"paid_at"`
}
