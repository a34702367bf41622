// internal/router/router_test.go
package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"billing-service/internal/handler"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHealthEndpoint(t *testing.T) {
	h := SetupRoutes(
		handler.NewPaymentHandler(nil, zap.NewNop()),
		handler.NewWebhookHandler(nil, zap.NewNop()),
		zap.NewNop(),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", rec.Body.String())
}
