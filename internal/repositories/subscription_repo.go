package repositories

import (
	"context"
	"errors"
	"time"

	"lumiscan/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, subscription *models.UserSubscription) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.UserSubscription, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.UserSubscription, error)
	GetActiveWithPlan(ctx context.Context, userID uuid.UUID) (*models.UserSubscription, *models.SubscriptionPlan, error)
	ConsumeUsage(ctx context.Context, userID uuid.UUID, analysisID *uuid.UUID, analysisType string) (int, error)
	Update(ctx context.Context, subscription *models.UserSubscription) error
	UpdateStatus(ctx context.Context, userID, id uuid.UUID, status models.SubscriptionStatus) error
	AdvanceCycle(ctx context.Context, externalID string, periodStart, periodEnd time.Time) error
	ResetExpiredCycles(ctx context.Context) (int64, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.UserSubscription, error)
	ListAll(ctx context.Context, limit, offset int) ([]*models.UserSubscription, error)
	CountLiveForPlan(ctx context.Context, planID uuid.UUID) (int, error)
}

type subscriptionRepo struct {
	db Database
}

func NewSubscriptionRepo(db Database) SubscriptionRepository {
	return &subscriptionRepo{db: db}
}

const subscriptionColumns = `id, user_id, plan_id, status, external_subscription_id, current_period_start, current_period_end, usage_count, auto_renew, cancelled_at, paused_at, resumes_at, created_at, updated_at`

func scanSubscription(row pgx.Row) (*models.UserSubscription, error) {
	s := &models.UserSubscription{}
	err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.Status, &s.ExternalSubscriptionID, &s.CurrentPeriodStart, &s.CurrentPeriodEnd, &s.UsageCount, &s.AutoRenew, &s.CancelledAt, &s.PausedAt, &s.ResumesAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *subscriptionRepo) Create(ctx context.Context, subscription *models.UserSubscription) error {
	query := `
		INSERT INTO user_subscriptions (id, user_id, plan_id, status, external_subscription_id, current_period_start, current_period_end, usage_count, auto_renew, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, subscription.ID, subscription.UserID, subscription.PlanID, subscription.Status, subscription.ExternalSubscriptionID, subscription.CurrentPeriodStart, subscription.CurrentPeriodEnd, subscription.UsageCount, subscription.AutoRenew)
	if IsUniqueViolation(err) {
		return ErrDuplicateActiveSubscription
	}
	return err
}

func (r *subscriptionRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.UserSubscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM user_subscriptions
		WHERE user_id = $1 AND id = $2
	`
	s, err := scanSubscription(r.db.QueryRow(ctx, query, userID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// GetByExternalID is unscoped: it serves the billing webhook, which carries
// the provider's subscription reference instead of a caller identity.
func (r *subscriptionRepo) GetByExternalID(ctx context.Context, externalID string) (*models.UserSubscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM user_subscriptions
		WHERE external_subscription_id = $1
	`
	s, err := scanSubscription(r.db.QueryRow(ctx, query, externalID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// GetActiveWithPlan returns the user's active, unexpired subscription joined
// with its plan. Newest-first tolerates legacy duplicates that predate the
// partial unique index.
func (r *subscriptionRepo) GetActiveWithPlan(ctx context.Context, userID uuid.UUID) (*models.UserSubscription, *models.SubscriptionPlan, error) {
	query := `
		SELECT s.id, s.user_id, s.plan_id, s.status, s.external_subscription_id, s.current_period_start, s.current_period_end, s.usage_count, s.auto_renew, s.cancelled_at, s.paused_at, s.resumes_at, s.created_at, s.updated_at,
		       p.id, p.plan_name, p.price, p.monthly_limit, p.external_plan_id, p.features, p.is_active, p.created_at, p.updated_at
		FROM user_subscriptions s
		JOIN subscription_plans p ON p.id = s.plan_id
		WHERE s.user_id = $1 AND s.status = 'active' AND s.current_period_end > NOW()
		ORDER BY s.created_at DESC
		LIMIT 1
	`
	s := &models.UserSubscription{}
	p := &models.SubscriptionPlan{}
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&s.ID, &s.UserID, &s.PlanID, &s.Status, &s.ExternalSubscriptionID, &s.CurrentPeriodStart, &s.CurrentPeriodEnd, &s.UsageCount, &s.AutoRenew, &s.CancelledAt, &s.PausedAt, &s.ResumesAt, &s.CreatedAt, &s.UpdatedAt,
		&p.ID, &p.PlanName, &p.Price, &p.MonthlyLimit, &p.ExternalPlanID, &p.Features, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNoActiveSubscription
		}
		return nil, nil, err
	}
	return s, p, nil
}

// ConsumeUsage atomically spends one quota unit: it locks the active
// subscription row, rejects when there is none or the monthly limit is
// reached, then increments the counter and appends the usage event in the
// same transaction. The row lock serializes concurrent increments so N
// callers produce exactly N increments and N events.
func (r *subscriptionRepo) ConsumeUsage(ctx context.Context, userID uuid.UUID, analysisID *uuid.UUID, analysisType string) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	lockQuery := `
		SELECT s.id, s.usage_count, p.monthly_limit
		FROM user_subscriptions s
		JOIN subscription_plans p ON p.id = s.plan_id
		WHERE s.user_id = $1 AND s.status = 'active' AND s.current_period_end > NOW()
		ORDER BY s.created_at DESC
		LIMIT 1
		FOR UPDATE OF s
	`
	var subscriptionID uuid.UUID
	var usageCount, monthlyLimit int
	err = tx.QueryRow(ctx, lockQuery, userID).Scan(&subscriptionID, &usageCount, &monthlyLimit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNoActiveSubscription
		}
		return 0, err
	}

	if usageCount >= monthlyLimit {
		return 0, ErrQuotaExhausted
	}

	updateQuery := `
		UPDATE user_subscriptions
		SET usage_count = usage_count + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING usage_count
	`
	var newCount int
	if err := tx.QueryRow(ctx, updateQuery, subscriptionID).Scan(&newCount); err != nil {
		return 0, err
	}

	insertQuery := `
		INSERT INTO usage_tracking (id, user_id, subscription_id, analysis_id, analysis_type, used_at, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`
	if _, err := tx.Exec(ctx, insertQuery, uuid.New(), userID, subscriptionID, analysisID, analysisType); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return newCount, nil
}

func (r *subscriptionRepo) Update(ctx context.Context, subscription *models.UserSubscription) error {
	query := `
		UPDATE user_subscriptions
		SET plan_id = $1, status = $2, external_subscription_id = $3, current_period_start = $4, current_period_end = $5, usage_count = $6, auto_renew = $7, cancelled_at = $8, paused_at = $9, resumes_at = $10, updated_at = NOW()
		WHERE user_id = $11 AND id = $12
	`
	tag, err := r.db.Exec(ctx, query, subscription.PlanID, subscription.Status, subscription.ExternalSubscriptionID, subscription.CurrentPeriodStart, subscription.CurrentPeriodEnd, subscription.UsageCount, subscription.AutoRenew, subscription.CancelledAt, subscription.PausedAt, subscription.ResumesAt, subscription.UserID, subscription.ID)
	if IsUniqueViolation(err) {
		return ErrDuplicateActiveSubscription
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *subscriptionRepo) UpdateStatus(ctx context.Context, userID, id uuid.UUID, status models.SubscriptionStatus) error {
	query := `
		UPDATE user_subscriptions
		SET status = $1, updated_at = NOW()
		WHERE user_id = $2 AND id = $3
	`
	tag, err := r.db.Exec(ctx, query, status, userID, id)
	if IsUniqueViolation(err) {
		return ErrDuplicateActiveSubscription
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AdvanceCycle moves the billing window forward after a successful charge
// and zeroes the counter for the fresh cycle. Driven by the billing webhook,
// never by the reset sweep.
func (r *subscriptionRepo) AdvanceCycle(ctx context.Context, externalID string, periodStart, periodEnd time.Time) error {
	query := `
		UPDATE user_subscriptions
		SET status = 'active', current_period_start = $1, current_period_end = $2, usage_count = 0, updated_at = NOW()
		WHERE external_subscription_id = $3
	`
	tag, err := r.db.Exec(ctx, query, periodStart, periodEnd, externalID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetExpiredCycles zeroes counters for active subscriptions whose cycle
// closed within the last 7 days. Eligibility is recomputed from NOW() on
// every run, so a partially applied or repeated sweep converges to the same
// state.
func (r *subscriptionRepo) ResetExpiredCycles(ctx context.Context) (int64, error) {
	query := `
		UPDATE user_subscriptions
		SET usage_count = 0, updated_at = NOW()
		WHERE status = 'active'
		  AND current_period_end <= NOW()
		  AND current_period_end > NOW() - INTERVAL '7 days'
		  AND usage_count <> 0
	`
	tag, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *subscriptionRepo) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.UserSubscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM user_subscriptions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSubscriptions(rows)
}

// ListAll is the operator surface; it carries no identity predicate.
func (r *subscriptionRepo) ListAll(ctx context.Context, limit, offset int) ([]*models.UserSubscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM user_subscriptions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSubscriptions(rows)
}

func collectSubscriptions(rows pgx.Rows) ([]*models.UserSubscription, error) {
	var subscriptions []*models.UserSubscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subscriptions = append(subscriptions, s)
	}
	return subscriptions, rows.Err()
}

// CountLiveForPlan counts subscriptions on a plan that are not in a terminal
// state; plans with live subscribers cannot be deleted.
func (r *subscriptionRepo) CountLiveForPlan(ctx context.Context, planID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM user_subscriptions
		WHERE plan_id = $1 AND status NOT IN ('cancelled', 'expired')
	`
	var count int
	if err := r.db.QueryRow(ctx, query, planID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
