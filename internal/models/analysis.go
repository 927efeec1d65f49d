package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Analysis is a user-owned analysis result. The payload is opaque to the
// backend; only the score and image reference are surfaced separately.
type Analysis struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	UserID    uuid.UUID       `json:"user_id" db:"user_id"`
	Result    json.RawMessage `json:"result" db:"result"`
	Score     *float64        `json:"score" db:"score"`
	ImageURL  *string         `json:"image_url" db:"image_url"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
