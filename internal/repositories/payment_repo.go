package repositories

import (
	"context"
	"errors"

	"lumiscan/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PaymentRepository interface {
	Create(ctx context.Context, transaction *models.PaymentTransaction) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.PaymentTransaction, error)
	GetByExternalPaymentID(ctx context.Context, externalPaymentID string) (*models.PaymentTransaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus, errorCode, errorDescription *string) error
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.PaymentTransaction, error)
	ListAll(ctx context.Context, limit, offset int) ([]*models.PaymentTransaction, error)
	ListPending(ctx context.Context, limit int) ([]*models.PaymentTransaction, error)
}

type paymentRepo struct {
	db Database
}

func NewPaymentRepo(db Database) PaymentRepository {
	return &paymentRepo{db: db}
}

const paymentColumns = `id, user_id, subscription_id, external_payment_id, external_order_id, signature, amount, currency, status, error_code, error_description, created_at, updated_at`

func scanPayment(row pgx.Row) (*models.PaymentTransaction, error) {
	t := &models.PaymentTransaction{}
	err := row.Scan(&t.ID, &t.UserID, &t.SubscriptionID, &t.ExternalPaymentID, &t.ExternalOrderID, &t.Signature, &t.Amount, &t.Currency, &t.Status, &t.ErrorCode, &t.ErrorDescription, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *paymentRepo) Create(ctx context.Context, transaction *models.PaymentTransaction) error {
	query := `
		INSERT INTO payment_transactions (id, user_id, subscription_id, external_payment_id, external_order_id, signature, amount, currency, status, error_code, error_description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, transaction.ID, transaction.UserID, transaction.SubscriptionID, transaction.ExternalPaymentID, transaction.ExternalOrderID, transaction.Signature, transaction.Amount, transaction.Currency, transaction.Status, transaction.ErrorCode, transaction.ErrorDescription)
	return err
}

func (r *paymentRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.PaymentTransaction, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payment_transactions
		WHERE user_id = $1 AND id = $2
	`
	t, err := scanPayment(r.db.QueryRow(ctx, query, userID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

// GetByExternalPaymentID is unscoped; webhook retries use it for idempotency.
func (r *paymentRepo) GetByExternalPaymentID(ctx context.Context, externalPaymentID string) (*models.PaymentTransaction, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payment_transactions
		WHERE external_payment_id = $1
	`
	t, err := scanPayment(r.db.QueryRow(ctx, query, externalPaymentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

func (r *paymentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus, errorCode, errorDescription *string) error {
	query := `
		UPDATE payment_transactions
		SET status = $1, error_code = $2, error_description = $3, updated_at = NOW()
		WHERE id = $4
	`
	tag, err := r.db.Exec(ctx, query, status, errorCode, errorDescription, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *paymentRepo) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.PaymentTransaction, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payment_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPayments(rows)
}

func (r *paymentRepo) ListAll(ctx context.Context, limit, offset int) ([]*models.PaymentTransaction, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payment_transactions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPayments(rows)
}

// ListPending feeds the reconciliation job.
func (r *paymentRepo) ListPending(ctx context.Context, limit int) ([]*models.PaymentTransaction, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payment_transactions
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPayments(rows)
}

func collectPayments(rows pgx.Rows) ([]*models.PaymentTransaction, error) {
	var transactions []*models.PaymentTransaction
	for rows.Next() {
		t, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}
