package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"lumiscan/internal/models"
	"lumiscan/internal/repositories"

	"github.com/google/uuid"
)

// WebhookEvent is the parsed billing provider event envelope.
type WebhookEvent struct {
	ID      string                 `json:"id"`
	Event   string                 `json:"event"`
	Data    map[string]interface{} `json:"data"`
	Created int64                  `json:"created"`
}

// PaymentService records payment attempts and applies billing webhook events
// to subscriptions.
type PaymentService interface {
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.PaymentTransaction, error)
	GetByID(ctx context.Context, userID, transactionID uuid.UUID) (*models.PaymentTransaction, error)
	ProcessWebhookEvent(ctx context.Context, event *WebhookEvent) error
}

type paymentService struct {
	paymentRepo      repositories.PaymentRepository
	subscriptionRepo repositories.SubscriptionRepository
}

// NewPaymentService creates a new PaymentService instance
func NewPaymentService(
	paymentRepo repositories.PaymentRepository,
	subscriptionRepo repositories.SubscriptionRepository,
) PaymentService {
	return &paymentService{
		paymentRepo:      paymentRepo,
		subscriptionRepo: subscriptionRepo,
	}
}

// List lists the user's payment transactions
func (s *paymentService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.PaymentTransaction, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	return s.paymentRepo.List(ctx, userID, limit, offset)
}

// GetByID gets one of the user's payment transactions
func (s *paymentService) GetByID(ctx context.Context, userID, transactionID uuid.UUID) (*models.PaymentTransaction, error) {
	return s.paymentRepo.GetByID(ctx, userID, transactionID)
}

// ProcessWebhookEvent applies a verified billing event: it records the
// payment attempt and moves the referenced subscription through its
// lifecycle. Unknown events are logged and acknowledged.
func (s *paymentService) ProcessWebhookEvent(ctx context.Context, event *WebhookEvent) error {
	switch event.Event {
	case "subscription.charged":
		return s.handleCharged(ctx, event)
	case "subscription.activated":
		return s.applyStatus(ctx, event, models.SubscriptionStatusActive)
	case "subscription.cancelled":
		return s.applyStatus(ctx, event, models.SubscriptionStatusCancelled)
	case "subscription.paused":
		return s.applyStatus(ctx, event, models.SubscriptionStatusPaused)
	case "subscription.resumed":
		return s.applyStatus(ctx, event, models.SubscriptionStatusActive)
	case "subscription.halted":
		return s.applyStatus(ctx, event, models.SubscriptionStatusPastDue)
	case "subscription.expired":
		return s.applyStatus(ctx, event, models.SubscriptionStatusExpired)
	case "payment.failed":
		return s.handlePaymentFailed(ctx, event)
	default:
		log.Printf("Ignoring unknown webhook event %q", event.Event)
		return nil
	}
}

// handleCharged records the captured payment and advances the billing cycle:
// new window, counter back to zero.
func (s *paymentService) handleCharged(ctx context.Context, event *WebhookEvent) error {
	externalSubID, ok := event.Data["subscription_id"].(string)
	if !ok || externalSubID == "" {
		return nil // nothing to apply
	}

	subscription, err := s.subscriptionRepo.GetByExternalID(ctx, externalSubID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			log.Printf("Webhook references unknown subscription %q", externalSubID)
			return nil
		}
		return fmt.Errorf("failed to load subscription for webhook: %v", err)
	}

	if err := s.recordPayment(ctx, event, subscription, models.PaymentStatusCaptured); err != nil {
		return err
	}

	periodStart := time.Now()
	periodEnd := periodStart.AddDate(0, 1, 0)
	if startUnix, ok := event.Data["period_start"].(float64); ok {
		periodStart = time.Unix(int64(startUnix), 0)
	}
	if endUnix, ok := event.Data["period_end"].(float64); ok {
		periodEnd = time.Unix(int64(endUnix), 0)
	}

	if err := s.subscriptionRepo.AdvanceCycle(ctx, externalSubID, periodStart, periodEnd); err != nil {
		return fmt.Errorf("failed to advance billing cycle: %v", err)
	}
	return nil
}

func (s *paymentService) handlePaymentFailed(ctx context.Context, event *WebhookEvent) error {
	externalSubID, ok := event.Data["subscription_id"].(string)
	if !ok || externalSubID == "" {
		return nil
	}

	subscription, err := s.subscriptionRepo.GetByExternalID(ctx, externalSubID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load subscription for webhook: %v", err)
	}

	if err := s.recordPayment(ctx, event, subscription, models.PaymentStatusFailed); err != nil {
		return err
	}

	return s.subscriptionRepo.UpdateStatus(ctx, subscription.UserID, subscription.ID, models.SubscriptionStatusPastDue)
}

func (s *paymentService) applyStatus(ctx context.Context, event *WebhookEvent, status models.SubscriptionStatus) error {
	externalSubID, ok := event.Data["subscription_id"].(string)
	if !ok || externalSubID == "" {
		return nil
	}

	subscription, err := s.subscriptionRepo.GetByExternalID(ctx, externalSubID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			log.Printf("Webhook references unknown subscription %q", externalSubID)
			return nil
		}
		return fmt.Errorf("failed to load subscription for webhook: %v", err)
	}

	return s.subscriptionRepo.UpdateStatus(ctx, subscription.UserID, subscription.ID, status)
}

// recordPayment appends the transaction, skipping duplicates on webhook
// retries (the external payment reference is unique).
func (s *paymentService) recordPayment(ctx context.Context, event *WebhookEvent, subscription *models.UserSubscription, status models.PaymentStatus) error {
	externalPaymentID, _ := event.Data["payment_id"].(string)
	if externalPaymentID != "" {
		if _, err := s.paymentRepo.GetByExternalPaymentID(ctx, externalPaymentID); err == nil {
			return nil // already recorded, webhook retry
		}
	}

	amount, _ := event.Data["amount"].(float64)
	currency, _ := event.Data["currency"].(string)
	if currency == "" {
		currency = "INR"
	}

	transaction := &models.PaymentTransaction{
		ID:             uuid.New(),
		UserID:         subscription.UserID,
		SubscriptionID: &subscription.ID,
		Amount:         amount,
		Currency:       currency,
		Status:         status,
	}
	if externalPaymentID != "" {
		transaction.ExternalPaymentID = &externalPaymentID
	}
	if orderID, ok := event.Data["order_id"].(string); ok && orderID != "" {
		transaction.ExternalOrderID = &orderID
	}
	if errCode, ok := event.Data["error_code"].(string); ok && errCode != "" {
		transaction.ErrorCode = &errCode
	}
	if errDesc, ok := event.Data["error_description"].(string); ok && errDesc != "" {
		transaction.ErrorDescription = &errDesc
	}

	if err := s.paymentRepo.Create(ctx, transaction); err != nil {
		if repositories.IsUniqueViolation(err) {
			return nil // concurrent retry already inserted it
		}
		return fmt.Errorf("failed to record payment: %v", err)
	}
	return nil
}
