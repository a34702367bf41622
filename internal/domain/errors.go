// internal/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("invalid request")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// ProviderError wraps a transport or auth failure from an upstream payment
// provider. Callers must not assume a charge exists unless a reference id was
// returned.
type ProviderError struct {
	Provider Provider
	Cause    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Cause)
}

func (e *ProviderError) Unwrap() error { return ErrProviderUnavailable }

func NewProviderError(p Provider, cause error) error {
	return &ProviderError{Provider: p, Cause: cause}
}
