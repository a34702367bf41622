// pkg/client/notifier.go
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"billing-service/config"

	"go.uber.org/zap"
)

// NotifierClient delivers user-facing notifications. Sends are fire and
// forget: failures are logged by callers, never propagated into the payment
// flow.
type NotifierClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewNotifierClient(cfg config.NotifierConfig, logger *zap.Logger) *NotifierClient {
	return &NotifierClient{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

type notificationRequest struct {
	UserID    string `json:"user_id"`
	EventKind string `json:"event_kind"`
	Timestamp int64  `json:"timestamp"`
}

func (c *NotifierClient) Send(ctx context.Context, userID, eventKind string) error {
	payload, err := json.Marshal(notificationRequest{
		UserID:    userID,
		EventKind: eventKind,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/notifications", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("notification service returned %d: %s", resp.StatusCode, string(body))
	}

	c.logger.Debug("notification sent",
		zap.String("user_id", userID),
		zap.String("event_kind", eventKind))
	return nil
}
