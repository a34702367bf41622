// internal/handler/payment_handler_test.go
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"billing-service/internal/domain"
	"billing-service/internal/provider"
	"billing-service/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubProviderClient struct{}

func (stubProviderClient) Provider() domain.Provider { return domain.ProviderPagarme }

func (stubProviderClient) CreateCharge(_ context.Context, req *provider.ChargeRequest) (*provider.ChargeResult, error) {
	method := req.Method
	if method == "" {
		method = provider.MethodPix
	}
	return &provider.ChargeResult{
		ProviderPaymentID: "or_1",
		QRCode:            "qr-data",
		PaymentMethod:     method,
	}, nil
}

type stubCredits struct {
	credit decimal.Decimal
}

func (s stubCredits) GetCredit(context.Context, string) (decimal.Decimal, error) {
	return s.credit, nil
}

func newPaymentServer(repo *memTxRepo, credit string) *chi.Mux {
	chargeUC := usecase.NewChargeUsecase(
		repo,
		map[domain.Provider]provider.Client{domain.ProviderPagarme: stubProviderClient{}},
		stubCredits{credit: decimal.RequireFromString(credit)},
		decimal.RequireFromString("35.00"),
		time.Hour,
		zap.NewNop(),
	)
	h := NewPaymentHandler(chargeUC, zap.NewNop())

	r := chi.NewRouter()
	r.Post("/api/v1/payments", h.HandleCreatePayment)
	r.Get("/api/v1/payments/quote", h.HandleQuote)
	r.Get("/api/v1/payments/{reference_id}", h.HandleGetPayment)
	return r
}

func TestCreatePaymentRequiresIdentity(t *testing.T) {
	srv := newPaymentServer(newMemTxRepo(), "0.00")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(`{"provider":"pagarme"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreatePaymentUnknownProvider(t *testing.T) {
	srv := newPaymentServer(newMemTxRepo(), "0.00")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(`{"provider":"stripe"}`))
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePaymentHappyPath(t *testing.T) {
	repo := newMemTxRepo()
	srv := newPaymentServer(repo, "10.00")

	body := `{"provider":"pagarme","customer":{"name":"Ana","email":"ana@example.com","document":"12345678900"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body))
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			ReferenceID string `json:"reference_id"`
			Amount      string `json:"amount"`
			Status      string `json:"status"`
			QRCode      string `json:"qr_code"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Data.ReferenceID)
	require.Equal(t, "25.00", resp.Data.Amount)
	require.Equal(t, "PENDING", resp.Data.Status)
	require.Equal(t, "qr-data", resp.Data.QRCode)

	tx, err := repo.GetByReferenceID(context.Background(), resp.Data.ReferenceID)
	require.NoError(t, err)
	require.Equal(t, domain.TxStatusPending, tx.Status)
}

func TestCreatePaymentCreditCard(t *testing.T) {
	srv := newPaymentServer(newMemTxRepo(), "10.00")

	body := `{"provider":"pagarme","payment_method":"credit_card","card":{"token":"tok_abc","brand":"visa","installments":2},"customer":{"name":"Ana","email":"ana@example.com","document":"12345678900"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body))
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data struct {
			PaymentMethod string `json:"payment_method"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, provider.MethodCreditCard, resp.Data.PaymentMethod)
}

func TestCreatePaymentFullyCoveredByCredit(t *testing.T) {
	srv := newPaymentServer(newMemTxRepo(), "40.00")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(`{"provider":"pagarme"}`))
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuoteEndpoint(t *testing.T) {
	srv := newPaymentServer(newMemTxRepo(), "10.00")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/quote", nil)
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data domain.Quote `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Data.AmountToPay.Equal(decimal.RequireFromString("25.00")))
	require.True(t, resp.Data.CreditsUsed.Equal(decimal.RequireFromString("10.00")))
}

func TestGetPaymentNotFound(t *testing.T) {
	srv := newPaymentServer(newMemTxRepo(), "0.00")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/missing-ref", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPaymentStatus(t *testing.T) {
	repo := newMemTxRepo(pendingTx("ref-1"))
	srv := newPaymentServer(repo, "0.00")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/ref-1", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "PENDING")
}
