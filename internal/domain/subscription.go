// internal/domain/subscription.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type SubscriptionStatus string

const (
	SubscriptionActive  SubscriptionStatus = "active"
	SubscriptionExpired SubscriptionStatus = "expired"
)

// Subscription is the entitlement window granted by a completed transaction.
// At most one active window may exist per user; a new completed payment
// extends the current window rather than opening an overlapping one.
type Subscription struct {
	ID        int64              `json:"id"`
	UserID    string             `json:"user_id"`
	PlanID    string             `json:"plan_id"`
	StartDate time.Time          `json:"start_date"`
	EndDate   time.Time          `json:"end_date"`
	Status    SubscriptionStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// CreditConsumption records referral credit applied against a transaction.
// The balance itself is owned by the referral service; we only read it and
// record usage here.
type CreditConsumption struct {
	ID          int64           `json:"id"`
	UserID      string          `json:"user_id"`
	ReferenceID string          `json:"reference_id"`
	Amount      decimal.Decimal `json:"amount"`
	ConsumedAt  time.Time       `json:"consumed_at"`
}

// Quote is what a user owes for the next billing period after credit.
type Quote struct {
	BaseFee         decimal.Decimal `json:"base_fee"`
	AvailableCredit decimal.Decimal `json:"available_credit"`
	CreditsUsed     decimal.Decimal `json:"credits_used"`
	AmountToPay     decimal.Decimal `json:"amount_to_pay"`
}
