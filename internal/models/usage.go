package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageRecord is one append-only quota-consuming event, written in the same
// transaction as the counter increment it accounts for.
type UsageRecord struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	UserID         uuid.UUID  `json:"user_id" db:"user_id"`
	SubscriptionID *uuid.UUID `json:"subscription_id" db:"subscription_id"`
	AnalysisID     *uuid.UUID `json:"analysis_id" db:"analysis_id"`
	AnalysisType   string     `json:"analysis_type" db:"analysis_type"`
	UsedAt         time.Time  `json:"used_at" db:"used_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}
