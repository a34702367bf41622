// internal/repository/subscription_repo.go
package repository

import (
	"context"
	"errors"
	"time"

	"billing-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SubscriptionRepository interface {
	// GetActive returns the user's current active window, or nil when none
	// exists.
	GetActive(ctx context.Context, userID string, now time.Time) (*domain.Subscription, error)
	Create(ctx context.Context, sub *domain.Subscription) error
	ExtendEnd(ctx context.Context, id int64, newEnd time.Time) error
	ExpireLapsed(ctx context.Context, now time.Time) (int64, error)
}

type subscriptionRepo struct {
	db *pgxpool.Pool
}

func NewSubscriptionRepository(db *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepo{db: db}
}

func (r *subscriptionRepo) GetActive(ctx context.Context, userID string, now time.Time) (*domain.Subscription, error) {
	query := `
		SELECT id, user_id, plan_id, start_date, end_date, status, created_at, updated_at
		FROM subscriptions
		WHERE user_id = $1 AND status = 'active' AND end_date > $2
		ORDER BY end_date DESC
		LIMIT 1
	`

	var sub domain.Subscription
	err := r.db.QueryRow(ctx, query, userID, now).Scan(
		&sub.ID,
		&sub.UserID,
		&sub.PlanID,
		&sub.StartDate,
		&sub.EndDate,
		&sub.Status,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepo) Create(ctx context.Context, sub *domain.Subscription) error {
	query := `
		INSERT INTO subscriptions (user_id, plan_id, start_date, end_date, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		sub.UserID, sub.PlanID, sub.StartDate, sub.EndDate, sub.Status,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
}

func (r *subscriptionRepo) ExtendEnd(ctx context.Context, id int64, newEnd time.Time) error {
	query := `
		UPDATE subscriptions
		SET end_date = $1, updated_at = NOW()
		WHERE id = $2
	`
	_, err := r.db.Exec(ctx, query, newEnd, id)
	return err
}

func (r *subscriptionRepo) ExpireLapsed(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE subscriptions
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'active' AND end_date < $1
	`
	tag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
