package repositories

import (
	"context"
	"errors"

	"lumiscan/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PlanRepository interface {
	Create(ctx context.Context, plan *models.SubscriptionPlan) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error)
	GetByName(ctx context.Context, planName string) (*models.SubscriptionPlan, error)
	ListActive(ctx context.Context) ([]*models.SubscriptionPlan, error)
	List(ctx context.Context, limit, offset int) ([]*models.SubscriptionPlan, error)
	Update(ctx context.Context, plan *models.SubscriptionPlan) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type planRepo struct {
	db Database
}

func NewPlanRepo(db Database) PlanRepository {
	return &planRepo{db: db}
}

const planColumns = `id, plan_name, price, monthly_limit, external_plan_id, features, is_active, created_at, updated_at`

func (r *planRepo) Create(ctx context.Context, plan *models.SubscriptionPlan) error {
	query := `
		INSERT INTO subscription_plans (id, plan_name, price, monthly_limit, external_plan_id, features, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, plan.ID, plan.PlanName, plan.Price, plan.MonthlyLimit, plan.ExternalPlanID, plan.Features, plan.IsActive)
	if IsUniqueViolation(err) {
		return ErrDuplicatePlanName
	}
	return err
}

func (r *planRepo) scanPlan(row pgx.Row) (*models.SubscriptionPlan, error) {
	plan := &models.SubscriptionPlan{}
	err := row.Scan(&plan.ID, &plan.PlanName, &plan.Price, &plan.MonthlyLimit, &plan.ExternalPlanID, &plan.Features, &plan.IsActive, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return plan, nil
}

func (r *planRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans WHERE id = $1`
	return r.scanPlan(r.db.QueryRow(ctx, query, id))
}

func (r *planRepo) GetByName(ctx context.Context, planName string) (*models.SubscriptionPlan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans WHERE plan_name = $1`
	return r.scanPlan(r.db.QueryRow(ctx, query, planName))
}

// ListActive returns the world-readable plan catalog.
func (r *planRepo) ListActive(ctx context.Context) ([]*models.SubscriptionPlan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM subscription_plans
		WHERE is_active = TRUE
		ORDER BY price ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collectPlans(rows)
}

func (r *planRepo) List(ctx context.Context, limit, offset int) ([]*models.SubscriptionPlan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM subscription_plans
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collectPlans(rows)
}

func (r *planRepo) collectPlans(rows pgx.Rows) ([]*models.SubscriptionPlan, error) {
	var plans []*models.SubscriptionPlan
	for rows.Next() {
		plan := &models.SubscriptionPlan{}
		if err := rows.Scan(&plan.ID, &plan.PlanName, &plan.Price, &plan.MonthlyLimit, &plan.ExternalPlanID, &plan.Features, &plan.IsActive, &plan.CreatedAt, &plan.UpdatedAt); err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

func (r *planRepo) Update(ctx context.Context, plan *models.SubscriptionPlan) error {
	query := `
		UPDATE subscription_plans
		SET plan_name = $1, price = $2, monthly_limit = $3, external_plan_id = $4, features = $5, is_active = $6, updated_at = NOW()
		WHERE id = $7
	`
	tag, err := r.db.Exec(ctx, query, plan.PlanName, plan.Price, plan.MonthlyLimit, plan.ExternalPlanID, plan.Features, plan.IsActive, plan.ID)
	if IsUniqueViolation(err) {
		return ErrDuplicatePlanName
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *planRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM subscription_plans WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
