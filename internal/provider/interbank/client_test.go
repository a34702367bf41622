// internal/provider/interbank/client_test.go
package interbank

import (
	"context"
	"testing"

	"billing-service/config"
	"billing-service/internal/domain"
	"billing-service/internal/provider"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestCreateChargeRejectsCardMethod(t *testing.T) {
	c := NewClient(config.InterbankConfig{}, provider.NewMemoryTokenCache())

	_, err := c.CreateCharge(context.Background(), &provider.ChargeRequest{
		ReferenceID: "abc123",
		Amount:      decimal.RequireFromString("25.00"),
		Method:      provider.MethodCreditCard,
		Card:        &provider.Card{Token: "tok_abc"},
	})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestParseWebhookSettledPix(t *testing.T) {
	body := []byte(`{"pix":[{"txid":"abc123","endToEndId":"E00416968202406011200abc","valor":"25.00"}]}`)

	events, err := ParseWebhook(body)
	require.NoError(t, err)
	require.Len(t, events, 1)

	event := events[0]
	require.Equal(t, domain.EventKindPayment, event.Kind)
	require.Equal(t, "abc123", event.ReferenceID)
	require.Equal(t, "E00416968202406011200abc", event.PaymentID)
	require.Equal(t, "CONCLUIDA", event.Status)
	require.True(t, event.Amount.Equal(decimal.RequireFromString("25.00")))
}

func TestParseWebhookBatchedSettlements(t *testing.T) {
	body := []byte(`{"pix":[
		{"txid":"tx1","endToEndId":"E1","valor":"25.00"},
		{"txid":"tx2","endToEndId":"E2","valor":"35.00"},
		{"txid":"tx3","endToEndId":"E3","valor":"10.00","devolucoes":[{"id":"D1"}]}
	]}`)

	events, err := ParseWebhook(body)
	require.NoError(t, err)
	require.Len(t, events, 3)

	require.Equal(t, "tx1", events[0].ReferenceID)
	require.Equal(t, "CONCLUIDA", events[0].Status)
	require.Equal(t, "tx2", events[1].ReferenceID)
	require.Equal(t, "CONCLUIDA", events[1].Status)
	require.True(t, events[1].Amount.Equal(decimal.RequireFromString("35.00")))
	require.Equal(t, "tx3", events[2].ReferenceID)
	require.Equal(t, "DEVOLVIDA", events[2].Status)
}

func TestParseWebhookReturnedPix(t *testing.T) {
	body := []byte(`{"pix":[{"txid":"abc123","endToEndId":"E1","valor":"25.00","devolucoes":[{"id":"D1"}]}]}`)

	events, err := ParseWebhook(body)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "DEVOLVIDA", events[0].Status)
}

func TestParseWebhookEmptyPixList(t *testing.T) {
	events, err := ParseWebhook([]byte(`{"pix":[]}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, domain.EventKindOther, events[0].Kind)
}

func TestParseWebhookMalformed(t *testing.T) {
	_, err := ParseWebhook([]byte(`not json`))
	require.ErrorIs(t, err, domain.ErrValidation)
}
