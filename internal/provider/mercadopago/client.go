// internal/provider/mercadopago/client.go
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"billing-service/config"
	"billing-service/internal/domain"
	"billing-service/internal/provider"

	"github.com/shopspring/decimal"
)

type Client struct {
	cfg        config.MercadoPagoConfig
	httpClient *http.Client
}

func NewClient(cfg config.MercadoPagoConfig) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Provider() domain.Provider { return domain.ProviderMercadoPago }

type paymentRequest struct {
	TransactionAmount float64      `json:"transaction_amount"`
	Description       string       `json:"description"`
	PaymentMethodID   string       `json:"payment_method_id"`
	Token             string       `json:"token,omitempty"`
	Installments      int          `json:"installments,omitempty"`
	Payer             paymentPayer `json:"payer"`
	ExternalReference string       `json:"external_reference"`
}

type paymentPayer struct {
	Email          string              `json:"email"`
	FirstName      string              `json:"first_name,omitempty"`
	Identification paymentPayerDocument `json:"identification"`
}

type paymentPayerDocument struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

// Payment is the gateway's canonical payment object. Webhooks carry only its
// id; every field here comes from the authenticated fetch.
type Payment struct {
	ID                 json.Number `json:"id"`
	Status             string      `json:"status"`
	TransactionAmount  float64     `json:"transaction_amount"`
	ExternalReference  string      `json:"external_reference"`
	PaymentMethodID    string      `json:"payment_method_id"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
			TicketURL    string `json:"ticket_url"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

// CreateCharge creates a payment carrying our reference id as
// external_reference. PIX is the default; credit card rides on the token and
// brand the checkout form produced. The reference doubles as the idempotency
// key so a retried create cannot double-charge.
func (c *Client) CreateCharge(ctx context.Context, req *provider.ChargeRequest) (*provider.ChargeResult, error) {
	amount, _ := req.Amount.Round(2).Float64()
	body := paymentRequest{
		TransactionAmount: amount,
		Description:       req.Description,
		Payer: paymentPayer{
			Email:     req.Customer.Email,
			FirstName: req.Customer.Name,
			Identification: paymentPayerDocument{
				Type:   "CPF",
				Number: req.Customer.Document,
			},
		},
		ExternalReference: req.ReferenceID,
	}

	switch req.Method {
	case "", provider.MethodPix:
		body.PaymentMethodID = "pix"
	case provider.MethodCreditCard:
		if req.Card == nil || req.Card.Token == "" {
			return nil, fmt.Errorf("%w: credit card charge requires a card token", domain.ErrValidation)
		}
		body.PaymentMethodID = req.Card.Brand
		body.Token = req.Card.Token
		body.Installments = req.Card.Installments
		if body.Installments <= 0 {
			body.Installments = 1
		}
	default:
		return nil, fmt.Errorf("%w: unsupported payment method %q", domain.ErrValidation, req.Method)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/payments", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Idempotency-Key", req.ReferenceID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.NewProviderError(domain.ProviderMercadoPago, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, domain.NewProviderError(domain.ProviderMercadoPago,
			fmt.Errorf("create payment returned %d: %s", resp.StatusCode, string(respBody)))
	}

	var payment Payment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return nil, domain.NewProviderError(domain.ProviderMercadoPago, err)
	}

	return &provider.ChargeResult{
		ProviderPaymentID: payment.ID.String(),
		QRCode:            payment.PointOfInteraction.TransactionData.QRCode,
		QRCodeBase64:      payment.PointOfInteraction.TransactionData.QRCodeBase64,
		TicketURL:         payment.PointOfInteraction.TransactionData.TicketURL,
		PaymentMethod:     payment.PaymentMethodID,
	}, nil
}

// FetchPayment retrieves the canonical payment object by id over the
// authenticated API. This is the trust anchor for the gateway's webhooks,
// which are otherwise just an id drop.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*domain.ProviderEvent, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+"/v1/payments/"+paymentID, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.NewProviderError(domain.ProviderMercadoPago, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, domain.NewProviderError(domain.ProviderMercadoPago,
			fmt.Errorf("fetch payment %s returned %d: %s", paymentID, resp.StatusCode, string(respBody)))
	}

	var payment Payment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return nil, domain.NewProviderError(domain.ProviderMercadoPago, err)
	}

	return &domain.ProviderEvent{
		Provider:      domain.ProviderMercadoPago,
		Kind:          domain.EventKindPayment,
		PaymentID:     payment.ID.String(),
		ReferenceID:   payment.ExternalReference,
		Status:        payment.Status,
		Amount:        decimal.NewFromFloat(payment.TransactionAmount),
		PaymentMethod: payment.PaymentMethodID,
	}, nil
}

type notification struct {
	Type string `json:"type"`
	Data struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

// ParseWebhook extracts the topic and payment id from the notification. The
// body is unauthenticated beyond its signature over id/request-id/ts, so only
// the id travels further; the engine re-fetches everything else.
func ParseWebhook(rawBody []byte) (*domain.ProviderEvent, error) {
	var n notification
	if err := json.Unmarshal(rawBody, &n); err != nil {
		return nil, fmt.Errorf("%w: malformed webhook body", domain.ErrValidation)
	}

	event := &domain.ProviderEvent{
		Provider:  domain.ProviderMercadoPago,
		Kind:      domain.EventKindOther,
		PaymentID: n.Data.ID.String(),
	}
	if n.Type == "payment" {
		event.Kind = domain.EventKindPayment
	}
	return event, nil
}
