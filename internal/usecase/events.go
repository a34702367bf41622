// internal/usecase/events.go
package usecase

import (
	"context"
	"encoding/json"
	"time"

	"billing-service/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const PaymentEventsChannel = "payment_events"

// PaymentEvent mirrors a settled transaction onto the pub/sub channel other
// services subscribe to.
type PaymentEvent struct {
	EventType   string          `json:"event_type"`
	UserID      string          `json:"user_id"`
	ReferenceID string          `json:"reference_id"`
	Provider    domain.Provider `json:"provider"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	Timestamp   time.Time       `json:"timestamp"`
}

type redisEventPublisher struct {
	rdb *redis.Client
}

func NewRedisEventPublisher(rdb *redis.Client) EventPublisher {
	return &redisEventPublisher{rdb: rdb}
}

func (p *redisEventPublisher) PublishPaymentEvent(ctx context.Context, event *PaymentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, PaymentEventsChannel, payload).Err()
}
