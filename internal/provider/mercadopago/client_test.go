// internal/provider/mercadopago/client_test.go
package mercadopago

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"billing-service/config"
	"billing-service/internal/domain"
	"billing-service/internal/provider"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParseWebhookPaymentTopic(t *testing.T) {
	body := []byte(`{"type":"payment","data":{"id":12345}}`)

	event, err := ParseWebhook(body)
	require.NoError(t, err)
	require.Equal(t, domain.EventKindPayment, event.Kind)
	require.Equal(t, "12345", event.PaymentID)
	// Nothing beyond the id is extracted from the body.
	require.Empty(t, event.ReferenceID)
	require.Empty(t, event.Status)
}

func TestParseWebhookOtherTopic(t *testing.T) {
	event, err := ParseWebhook([]byte(`{"type":"plan","data":{"id":"p-1"}}`))
	require.NoError(t, err)
	require.Equal(t, domain.EventKindOther, event.Kind)
}

func TestCreateChargeDefaultsToPix(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payments", r.URL.Path)
		require.Equal(t, "ref-1", r.Header.Get("X-Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":                12345,
			"status":            "pending",
			"payment_method_id": "pix",
		})
	}))
	defer srv.Close()

	client := NewClient(config.MercadoPagoConfig{BaseURL: srv.URL, AccessToken: "t"})

	result, err := client.CreateCharge(context.Background(), &provider.ChargeRequest{
		ReferenceID: "ref-1",
		Amount:      decimal.RequireFromString("25.00"),
	})
	require.NoError(t, err)
	require.Equal(t, "12345", result.ProviderPaymentID)
	require.Equal(t, "pix", got["payment_method_id"])
	require.NotContains(t, got, "token")
	require.NotContains(t, got, "installments")
}

func TestCreateChargeCreditCard(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":                12345,
			"status":            "approved",
			"payment_method_id": "visa",
		})
	}))
	defer srv.Close()

	client := NewClient(config.MercadoPagoConfig{BaseURL: srv.URL, AccessToken: "t"})

	result, err := client.CreateCharge(context.Background(), &provider.ChargeRequest{
		ReferenceID: "ref-1",
		Amount:      decimal.RequireFromString("35.00"),
		Method:      provider.MethodCreditCard,
		Card:        &provider.Card{Token: "tok_abc", Brand: "visa", Installments: 3},
	})
	require.NoError(t, err)
	require.Equal(t, "visa", result.PaymentMethod)
	require.Equal(t, "tok_abc", got["token"])
	require.Equal(t, "visa", got["payment_method_id"])
	require.Equal(t, float64(3), got["installments"])
}

func TestCreateChargeCreditCardRequiresToken(t *testing.T) {
	client := NewClient(config.MercadoPagoConfig{BaseURL: "http://unused", AccessToken: "t"})

	_, err := client.CreateCharge(context.Background(), &provider.ChargeRequest{
		ReferenceID: "ref-1",
		Amount:      decimal.RequireFromString("35.00"),
		Method:      provider.MethodCreditCard,
	})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestFetchPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payments/12345", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":                 12345,
			"status":             "approved",
			"external_reference": "ref-1",
			"transaction_amount": 25.00,
		})
	}))
	defer srv.Close()

	client := NewClient(config.MercadoPagoConfig{
		BaseURL:     srv.URL,
		AccessToken: "test-token",
	})

	event, err := client.FetchPayment(context.Background(), "12345")
	require.NoError(t, err)
	require.Equal(t, "ref-1", event.ReferenceID)
	require.Equal(t, "approved", event.Status)
	require.True(t, event.Amount.Equal(decimal.RequireFromString("25")))
}

func TestFetchPaymentUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(config.MercadoPagoConfig{BaseURL: srv.URL, AccessToken: "t"})

	_, err := client.FetchPayment(context.Background(), "12345")
	require.ErrorIs(t, err, domain.ErrProviderUnavailable)
}
