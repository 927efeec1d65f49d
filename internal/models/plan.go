package models

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionPlan is a catalog row for one subscription tier. Plans are
// operator-managed; end users only ever read active ones.
type SubscriptionPlan struct {
	ID             uuid.UUID `json:"id" db:"id"`
	PlanName       string    `json:"plan_name" db:"plan_name"`
	Price          float64   `json:"price" db:"price"`
	MonthlyLimit   int       `json:"monthly_limit" db:"monthly_limit"`
	ExternalPlanID *string   `json:"external_plan_id" db:"external_plan_id"`
	Features       []string  `json:"features" db:"features"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
