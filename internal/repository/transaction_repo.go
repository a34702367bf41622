// internal/repository/transaction_repo.go
package repository

import (
	"context"
	"errors"
	"time"

	"billing-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	GetByReferenceID(ctx context.Context, referenceID string) (*domain.Transaction, error)
	// Transition performs the PENDING -> terminal compare-and-set. applied is
	// false when the row is already in a terminal state, which callers must
	// treat as success.
	Transition(ctx context.Context, referenceID string, newStatus domain.TransactionStatus) (applied bool, err error)
	SetProviderPaymentID(ctx context.Context, referenceID, providerPaymentID string) error
	MarkExpired(ctx context.Context, now time.Time) (int64, error)
}

type transactionRepo struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) TransactionRepository {
	return &transactionRepo{db: db}
}

func (r *transactionRepo) Create(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (
			reference_id, user_id, amount, provider, status,
			provider_payment_id, payment_method, description, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	return r.db.QueryRow(ctx, query,
		tx.ReferenceID,
		tx.UserID,
		tx.Amount,
		tx.Provider,
		tx.Status,
		tx.ProviderPaymentID,
		tx.PaymentMethod,
		tx.Description,
		tx.ExpiresAt,
	).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
}

func (r *transactionRepo) GetByReferenceID(ctx context.Context, referenceID string) (*domain.Transaction, error) {
	query := `
		SELECT
			id, reference_id, user_id, amount, provider, status,
			provider_payment_id, payment_method, description,
			expires_at, created_at, updated_at, completed_at
		FROM transactions
		WHERE reference_id = $1
	`

	var tx domain.Transaction
	err := r.db.QueryRow(ctx, query, referenceID).Scan(
		&tx.ID,
		&tx.ReferenceID,
		&tx.UserID,
		&tx.Amount,
		&tx.Provider,
		&tx.Status,
		&tx.ProviderPaymentID,
		&tx.PaymentMethod,
		&tx.Description,
		&tx.ExpiresAt,
		&tx.CreatedAt,
		&tx.UpdatedAt,
		&tx.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}

	return &tx, nil
}

// Transition is the unit of mutual exclusion for a reference: the conditional
// UPDATE ensures two concurrent deliveries for the same reference cannot both
// observe applied=true.
func (r *transactionRepo) Transition(ctx context.Context, referenceID string, newStatus domain.TransactionStatus) (bool, error) {
	query := `
		UPDATE transactions
		SET
			status = $1,
			completed_at = CASE WHEN $1 = 'COMPLETED' THEN NOW() ELSE completed_at END,
			updated_at = NOW()
		WHERE reference_id = $2 AND status = 'PENDING'
	`

	tag, err := r.db.Exec(ctx, query, newStatus, referenceID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	// No row moved: either the reference is unknown or already terminal.
	var status domain.TransactionStatus
	err = r.db.QueryRow(ctx, `SELECT status FROM transactions WHERE reference_id = $1`, referenceID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, domain.ErrTransactionNotFound
		}
		return false, err
	}
	return false, nil
}

func (r *transactionRepo) SetProviderPaymentID(ctx context.Context, referenceID, providerPaymentID string) error {
	query := `
		UPDATE transactions
		SET provider_payment_id = $1, updated_at = NOW()
		WHERE reference_id = $2
	`
	_, err := r.db.Exec(ctx, query, providerPaymentID, referenceID)
	return err
}

// MarkExpired is the out-of-band sweep: charges that never received a webhook
// move PENDING -> EXPIRED once past their due date.
func (r *transactionRepo) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE transactions
		SET status = 'EXPIRED', updated_at = NOW()
		WHERE status = 'PENDING' AND expires_at < $1
	`
	tag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
