// internal/domain/event.go
package domain

import "github.com/shopspring/decimal"

type EventKind string

const (
	EventKindPayment EventKind = "payment"
	EventKindOther   EventKind = "other"
)

// ProviderEvent is the tagged, provider-neutral form of an inbound webhook
// after decoding. Only fields filled by a verified body or an authenticated
// fetch may drive state transitions.
type ProviderEvent struct {
	Provider Provider
	Kind     EventKind

	// PaymentID is the provider-side payment object id. For providers that
	// notify with an opaque id only, it is the lookup key for the
	// authenticated fetch that yields the rest of the event.
	PaymentID string

	// ReferenceID is our external reference, when the payload carries it.
	ReferenceID string

	// Status is the provider's own vocabulary; MapProviderStatus translates.
	Status string

	Amount        decimal.Decimal
	PaymentMethod string
}

// MapProviderStatus maps provider status vocabulary onto the internal state
// machine. The second return is false for statuses that are acknowledged but
// cause no transition (in-flight or unrecognized).
func MapProviderStatus(status string) (TransactionStatus, bool) {
	switch status {
	case "approved", "paid", "CONCLUIDA":
		return TxStatusCompleted, true
	case "rejected", "cancelled", "canceled", "failed", "refused", "charged_back", "DEVOLVIDA":
		return TxStatusFailed, true
	default:
		return "", false
	}
}
