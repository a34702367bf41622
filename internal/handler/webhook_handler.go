// internal/handler/webhook_handler.go
package handler

import (
	"errors"
	"io"
	"net/http"

	"billing-service/internal/domain"
	"billing-service/internal/usecase"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type WebhookHandler struct {
	reconcileUC *usecase.ReconcileUsecase
	logger      *zap.Logger
}

func NewWebhookHandler(reconcileUC *usecase.ReconcileUsecase, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		reconcileUC: reconcileUC,
		logger:      logger,
	}
}

// HandleProviderWebhook receives notifications from a payment provider. The
// raw body is captured before any decoding because signatures are computed
// over the exact bytes on the wire.
func (h *WebhookHandler) HandleProviderWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	prov := domain.Provider(chi.URLParam(r, "provider"))
	if !prov.Valid() {
		h.sendError(w, http.StatusNotFound, "unknown provider", nil)
		return
	}

	h.logger.Info("received provider webhook",
		zap.String("provider", string(prov)),
		zap.String("remote_addr", r.RemoteAddr),
		zap.String("user_agent", r.UserAgent()))

	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read webhook body",
			zap.String("provider", string(prov)),
			zap.Error(err))
		h.sendError(w, http.StatusBadRequest, "failed to read request body", err)
		return
	}

	result, err := h.reconcileUC.HandleWebhook(ctx, prov, rawBody, r.Header, r.URL.Query())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnauthorized):
			h.logger.Warn("webhook signature rejected",
				zap.String("provider", string(prov)),
				zap.String("remote_addr", r.RemoteAddr))
			h.sendError(w, http.StatusUnauthorized, "signature verification failed", nil)
		case errors.Is(err, domain.ErrValidation):
			h.sendError(w, http.StatusBadRequest, "malformed webhook payload", err)
		case errors.Is(err, domain.ErrStoreUnavailable),
			errors.Is(err, domain.ErrProviderUnavailable):
			// Respond non-2xx so the provider redelivers.
			h.logger.Error("webhook processing failed, requesting redelivery",
				zap.String("provider", string(prov)),
				zap.Error(err))
			h.sendError(w, http.StatusServiceUnavailable, "temporarily unable to process", nil)
		default:
			h.logger.Error("webhook processing failed",
				zap.String("provider", string(prov)),
				zap.Error(err))
			h.sendError(w, http.StatusInternalServerError, "failed to process webhook", nil)
		}
		return
	}

	h.logger.Info("webhook handled",
		zap.String("provider", string(prov)),
		zap.String("outcome", string(result.Outcome)),
		zap.String("reference_id", result.ReferenceID))

	h.sendSuccess(w, http.StatusOK, "webhook processed", map[string]interface{}{
		"outcome":      result.Outcome,
		"reference_id": result.ReferenceID,
	})
}

func (h *WebhookHandler) sendSuccess(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	writeJSON(w, statusCode, map[string]interface{}{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func (h *WebhookHandler) sendError(w http.ResponseWriter, statusCode int, message string, err error) {
	response := map[string]interface{}{
		"success": false,
		"message": message,
	}
	if err != nil {
		response["error"] = err.Error()
	}
	writeJSON(w, statusCode, response)
}
