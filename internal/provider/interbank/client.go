// internal/provider/interbank/client.go
package interbank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"billing-service/config"
	"billing-service/internal/domain"
	"billing-service/internal/provider"

	"github.com/shopspring/decimal"
)

// tokenSafetyMargin is subtracted from the provider-declared expiry so a
// cached token is never presented right at its deadline.
const tokenSafetyMargin = 60 * time.Second

type Client struct {
	cfg        config.InterbankConfig
	httpClient *http.Client
	tokens     provider.TokenCache
}

func NewClient(cfg config.InterbankConfig, tokens provider.TokenCache) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		tokens:     tokens,
	}
}

func (c *Client) Provider() domain.Provider { return domain.ProviderBankPix }

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) getToken(ctx context.Context) (string, error) {
	if token, ok := c.tokens.Get(ctx, string(domain.ProviderBankPix)); ok {
		return token, nil
	}
	return c.refreshToken(ctx)
}

func (c *Client) refreshToken(ctx context.Context) (string, error) {
	form := url.Values{
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"grant_type":    {"client_credentials"},
		"scope":         {"cob.write cob.read"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/oauth/v2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token request returned %d: %s", resp.StatusCode, string(body))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	ttl := time.Duration(tok.ExpiresIn)*time.Second - tokenSafetyMargin
	c.tokens.Set(ctx, string(domain.ProviderBankPix), tok.AccessToken, ttl)

	return tok.AccessToken, nil
}

type cobRequest struct {
	Calendario cobCalendar `json:"calendario"`
	Valor      cobValue    `json:"valor"`
	Chave      string      `json:"chave"`
	Info       string      `json:"solicitacaoPagador,omitempty"`
}

type cobCalendar struct {
	Expiracao int `json:"expiracao"`
}

type cobValue struct {
	Original string `json:"original"`
}

type cobResponse struct {
	Txid     string `json:"txid"`
	Status   string `json:"status"`
	Location string `json:"location"`
	PixCode  string `json:"pixCopiaECola"`
}

// CreateCharge registers an immediate PIX collection keyed by our reference
// id (the bank calls it a txid) and returns the copy/paste BR Code the payer
// scans.
func (c *Client) CreateCharge(ctx context.Context, req *provider.ChargeRequest) (*provider.ChargeResult, error) {
	if req.Method != "" && req.Method != provider.MethodPix {
		return nil, fmt.Errorf("%w: the bank supports pix charges only", domain.ErrValidation)
	}

	body := cobRequest{
		Calendario: cobCalendar{Expiracao: int(req.ExpiresIn.Seconds())},
		Valor:      cobValue{Original: req.Amount.StringFixed(2)},
		Chave:      c.cfg.PixKey,
		Info:       req.Description,
	}

	res, err := c.putCob(ctx, req.ReferenceID, body)
	if err != nil {
		return nil, domain.NewProviderError(domain.ProviderBankPix, err)
	}

	code := res.PixCode
	if code == "" {
		// Older API versions return only the payload location; build the BR
		// Code ourselves.
		code = BuildBRCode(c.cfg.PixKey, c.cfg.MerchantName, c.cfg.MerchantCity, req.Amount, req.ReferenceID)
	}

	return &provider.ChargeResult{
		ProviderPaymentID: res.Txid,
		QRCode:            code,
		PaymentMethod:     "pix",
	}, nil
}

func (c *Client) putCob(ctx context.Context, txid string, body cobRequest) (*cobResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	res, status, err := c.doCob(ctx, txid, payload, false)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		// Token likely expired between cache read and use; refresh once.
		res, status, err = c.doCob(ctx, txid, payload, true)
		if err != nil {
			return nil, err
		}
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("cob request returned %d", status)
	}
	return res, nil
}

func (c *Client) doCob(ctx context.Context, txid string, payload []byte, forceRefresh bool) (*cobResponse, int, error) {
	var (
		token string
		err   error
	)
	if forceRefresh {
		token, err = c.refreshToken(ctx)
	} else {
		token, err = c.getToken(ctx)
	}
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		c.cfg.BaseURL+"/pix/v2/cob/"+txid, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, nil
	}

	var res cobResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, resp.StatusCode, err
	}
	return &res, resp.StatusCode, nil
}

type webhookPayload struct {
	Pix []struct {
		Txid       string `json:"txid"`
		EndToEndID string `json:"endToEndId"`
		Valor      string `json:"valor"`
		Horario    string `json:"horario"`
		Devolucoes []struct {
			Status string `json:"status"`
		} `json:"devolucoes,omitempty"`
	} `json:"pix"`
}

// ParseWebhook decodes the bank's PIX notification. The bank batches
// settlements, so one delivery yields one event per pix entry; it only
// notifies on settled or returned payments, and the event status mirrors
// that.
func ParseWebhook(rawBody []byte) ([]*domain.ProviderEvent, error) {
	var payload webhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed webhook body", domain.ErrValidation)
	}
	if len(payload.Pix) == 0 {
		return []*domain.ProviderEvent{
			{Provider: domain.ProviderBankPix, Kind: domain.EventKindOther},
		}, nil
	}

	events := make([]*domain.ProviderEvent, 0, len(payload.Pix))
	for _, pix := range payload.Pix {
		status := "CONCLUIDA"
		if len(pix.Devolucoes) > 0 {
			status = "DEVOLVIDA"
		}

		event := &domain.ProviderEvent{
			Provider:      domain.ProviderBankPix,
			Kind:          domain.EventKindPayment,
			PaymentID:     pix.EndToEndID,
			ReferenceID:   pix.Txid,
			Status:        status,
			PaymentMethod: "pix",
		}
		if amt, err := decimal.NewFromString(pix.Valor); err == nil {
			event.Amount = amt
		}
		events = append(events, event)
	}
	return events, nil
}
