package models

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusAuthorized PaymentStatus = "authorized"
	PaymentStatusCaptured   PaymentStatus = "captured"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// PaymentTransaction is an immutable record of one payment attempt against a
// subscription. Status is the only field that moves after insert.
type PaymentTransaction struct {
	ID                uuid.UUID     `json:"id" db:"id"`
	UserID            uuid.UUID     `json:"user_id" db:"user_id"`
	SubscriptionID    *uuid.UUID    `json:"subscription_id" db:"subscription_id"`
	ExternalPaymentID *string       `json:"external_payment_id" db:"external_payment_id"`
	ExternalOrderID   *string       `json:"external_order_id" db:"external_order_id"`
	Signature         *string       `json:"-" db:"signature"`
	Amount            float64       `json:"amount" db:"amount"`
	Currency          string        `json:"currency" db:"currency"`
	Status            PaymentStatus `json:"status" db:"status"`
	ErrorCode         *string       `json:"error_code" db:"error_code"`
	ErrorDescription  *string       `json:"error_description" db:"error_description"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at" db:"updated_at"`
}
