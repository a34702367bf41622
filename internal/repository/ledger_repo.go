// internal/repository/ledger_repo.go
package repository

import (
	"context"
	"errors"

	"billing-service/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type LedgerRepository interface {
	// RecordPayment inserts the ledger row for a completed transaction.
	// Redelivery of the same reference is not an error.
	RecordPayment(ctx context.Context, rec *domain.PaymentRecord) error
	RecordCreditConsumption(ctx context.Context, c *domain.CreditConsumption) error
}

type ledgerRepo struct {
	db *pgxpool.Pool
}

func NewLedgerRepository(db *pgxpool.Pool) LedgerRepository {
	return &ledgerRepo{db: db}
}

func (r *ledgerRepo) RecordPayment(ctx context.Context, rec *domain.PaymentRecord) error {
	query := `
		INSERT INTO payments (user_id, reference_id, amount, payment_method, paid_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		rec.UserID, rec.ReferenceID, rec.Amount, rec.PaymentMethod, rec.PaidAt,
	).Scan(&rec.ID)
	if isUniqueViolation(err) {
		return nil
	}
	return err
}

func (r *ledgerRepo) RecordCreditConsumption(ctx context.Context, c *domain.CreditConsumption) error {
	query := `
		INSERT INTO credit_consumptions (user_id, reference_id, amount, consumed_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		c.UserID, c.ReferenceID, c.Amount, c.ConsumedAt,
	).Scan(&c.ID)
	if isUniqueViolation(err) {
		return nil
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
