package models

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusPastDue   SubscriptionStatus = "past_due"
	SubscriptionStatusPaused    SubscriptionStatus = "paused"
)

// ValidSubscriptionStatus reports whether status is one of the known
// subscription lifecycle states.
func ValidSubscriptionStatus(status string) bool {
	switch SubscriptionStatus(status) {
	case SubscriptionStatusPending, SubscriptionStatusActive, SubscriptionStatusCancelled,
		SubscriptionStatusExpired, SubscriptionStatusPastDue, SubscriptionStatusPaused:
		return true
	}
	return false
}

type UserSubscription struct {
	ID                     uuid.UUID          `json:"id" db:"id"`
	UserID                 uuid.UUID          `json:"user_id" db:"user_id"`
	PlanID                 uuid.UUID          `json:"plan_id" db:"plan_id"`
	Status                 SubscriptionStatus `json:"status" db:"status"`
	ExternalSubscriptionID *string            `json:"external_subscription_id" db:"external_subscription_id"`
	CurrentPeriodStart     time.Time          `json:"current_period_start" db:"current_period_start"`
	CurrentPeriodEnd       time.Time          `json:"current_period_end" db:"current_period_end"`
	UsageCount             int                `json:"usage_count" db:"usage_count"`
	AutoRenew              bool               `json:"auto_renew" db:"auto_renew"`
	CancelledAt            *time.Time         `json:"cancelled_at" db:"cancelled_at"`
	PausedAt               *time.Time         `json:"paused_at" db:"paused_at"`
	ResumesAt              *time.Time         `json:"resumes_at" db:"resumes_at"`
	CreatedAt              time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time          `json:"updated_at" db:"updated_at"`
}

// Entitlement is the answer to "may this user run one more analysis right
// now". Absence of a subscription is a normal negative answer, never an
// error.
type Entitlement struct {
	CanAnalyze bool   `json:"can_analyze"`
	Remaining  int    `json:"remaining"`
	Status     string `json:"status"`
	PlanName   string `json:"plan_name"`
}

// SubscriptionDetails is the denormalized view of a user's active
// subscription joined with its plan.
type SubscriptionDetails struct {
	SubscriptionID     uuid.UUID          `json:"subscription_id"`
	Status             SubscriptionStatus `json:"status"`
	PlanName           string             `json:"plan_name"`
	MonthlyLimit       int                `json:"monthly_limit"`
	UsageCount         int                `json:"usage_count"`
	Remaining          int                `json:"remaining"`
	CurrentPeriodStart time.Time          `json:"current_period_start"`
	CurrentPeriodEnd   time.Time          `json:"current_period_end"`
	AutoRenew          bool               `json:"auto_renew"`
}
