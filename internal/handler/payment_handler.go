// internal/handler/payment_handler.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"billing-service/internal/domain"
	"billing-service/internal/provider"
	"billing-service/internal/usecase"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	chargeUC *usecase.ChargeUsecase
	logger   *zap.Logger
}

func NewPaymentHandler(chargeUC *usecase.ChargeUsecase, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		chargeUC: chargeUC,
		logger:   logger,
	}
}

type createPaymentRequest struct {
	Provider      string `json:"provider"`
	PaymentMethod string `json:"payment_method"`
	Card          struct {
		Token        string `json:"token"`
		Brand        string `json:"brand"`
		Installments int    `json:"installments"`
	} `json:"card"`
	Customer struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Document string `json:"document"`
	} `json:"customer"`
}

// HandleCreatePayment creates a charge for the authenticated user.
func (h *PaymentHandler) HandleCreatePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.sendError(w, http.StatusUnauthorized, "missing user identity", nil)
		return
	}

	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode payment request", zap.Error(err))
		h.sendError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	prov := domain.Provider(req.Provider)
	if !prov.Valid() {
		h.sendError(w, http.StatusBadRequest, "unknown provider", nil)
		return
	}

	input := usecase.CreateChargeInput{
		Provider: prov,
		Method:   req.PaymentMethod,
		Customer: provider.Customer{
			Name:     req.Customer.Name,
			Email:    req.Customer.Email,
			Document: req.Customer.Document,
		},
	}
	if req.Card.Token != "" {
		input.Card = &provider.Card{
			Token:        req.Card.Token,
			Brand:        req.Card.Brand,
			Installments: req.Card.Installments,
		}
	}

	resp, err := h.chargeUC.CreateCharge(ctx, userID, input)
	if err != nil {
		h.logger.Error("failed to create payment",
			zap.String("user_id", userID),
			zap.String("provider", req.Provider),
			zap.String("payment_method", req.PaymentMethod),
			zap.Error(err))
		h.sendError(w, statusForError(err), "failed to create payment", err)
		return
	}

	h.sendSuccess(w, http.StatusCreated, "payment created", resp)
}

// HandleGetPayment returns the current status of a transaction. Drives the
// payer's polling screen while the webhook is in flight.
func (h *PaymentHandler) HandleGetPayment(w http.ResponseWriter, r *http.Request) {
	referenceID := chi.URLParam(r, "reference_id")

	status, err := h.chargeUC.GetStatus(r.Context(), referenceID)
	if err != nil {
		h.sendError(w, statusForError(err), "failed to fetch payment", err)
		return
	}

	h.sendSuccess(w, http.StatusOK, "payment status", map[string]interface{}{
		"reference_id": referenceID,
		"status":       status,
	})
}

// HandleQuote returns the amount the user owes after referral credit.
func (h *PaymentHandler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.sendError(w, http.StatusUnauthorized, "missing user identity", nil)
		return
	}

	quote, err := h.chargeUC.Quote(r.Context(), userID)
	if err != nil {
		h.sendError(w, statusForError(err), "failed to compute quote", err)
		return
	}

	h.sendSuccess(w, http.StatusOK, "quote", quote)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrStoreUnavailable),
		errors.Is(err, domain.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Response helpers
func (h *PaymentHandler) sendSuccess(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	writeJSON(w, statusCode, map[string]interface{}{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func (h *PaymentHandler) sendError(w http.ResponseWriter, statusCode int, message string, err error) {
	response := map[string]interface{}{
		"success": false,
		"message": message,
	}
	if err != nil {
		response["error"] = err.Error()
	}
	writeJSON(w, statusCode, response)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}
