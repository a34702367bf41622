// pkg/client/referral.go
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"billing-service/config"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReferralClient reads the externally computed referral credit balance. The
// balance formula is owned by the referral service; we only consume the
// number.
type ReferralClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewReferralClient(cfg config.ReferralConfig, logger *zap.Logger) *ReferralClient {
	return &ReferralClient{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

type creditResponse struct {
	UserID string          `json:"user_id"`
	Credit decimal.Decimal `json:"credit"`
}

func (c *ReferralClient) GetCredit(ctx context.Context, userID string) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/api/v1/referrals/%s/credit", c.baseURL, userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("failed to fetch referral credit",
			zap.String("user_id", userID),
			zap.Error(err))
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return decimal.Zero, fmt.Errorf("referral service returned %d: %s", resp.StatusCode, string(body))
	}

	var res creditResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return decimal.Zero, err
	}
	if res.Credit.IsNegative() {
		return decimal.Zero, fmt.Errorf("referral service returned negative credit %s", res.Credit)
	}

	return res.Credit, nil
}
