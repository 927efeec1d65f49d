package repositories

import (
	"context"

	"lumiscan/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UsageRepository is read-only: usage rows are appended exclusively inside
// SubscriptionRepository.ConsumeUsage so the event and the counter increment
// share one transaction.
type UsageRepository interface {
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.UsageRecord, error)
	ListAll(ctx context.Context, limit, offset int) ([]*models.UsageRecord, error)
	CountForSubscription(ctx context.Context, subscriptionID uuid.UUID) (int, error)
}

type usageRepo struct {
	db Database
}

func NewUsageRepo(db Database) UsageRepository {
	return &usageRepo{db: db}
}

const usageColumns = `id, user_id, subscription_id, analysis_id, analysis_type, used_at, created_at`

func (r *usageRepo) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.UsageRecord, error) {
	query := `
		SELECT ` + usageColumns + `
		FROM usage_tracking
		WHERE user_id = $1
		ORDER BY used_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectUsage(rows)
}

func (r *usageRepo) ListAll(ctx context.Context, limit, offset int) ([]*models.UsageRecord, error) {
	query := `
		SELECT ` + usageColumns + `
		FROM usage_tracking
		ORDER BY used_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectUsage(rows)
}

// CountForSubscription supports audit reconciliation of the usage counter
// against the event log.
func (r *usageRepo) CountForSubscription(ctx context.Context, subscriptionID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM usage_tracking WHERE subscription_id = $1`
	var count int
	if err := r.db.QueryRow(ctx, query, subscriptionID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func collectUsage(rows pgx.Rows) ([]*models.UsageRecord, error) {
	var records []*models.UsageRecord
	for rows.Next() {
		rec := &models.UsageRecord{}
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.SubscriptionID, &rec.AnalysisID, &rec.AnalysisType, &rec.UsedAt, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
