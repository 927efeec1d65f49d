package services

import (
	"context"
	"fmt"
	"time"

	"lumiscan/internal/models"
	"lumiscan/internal/repositories"

	"github.com/google/uuid"
)

// SubscriptionService handles subscription lifecycle business logic
type SubscriptionService interface {
	Create(ctx context.Context, userID uuid.UUID, planName string) (*models.UserSubscription, error)
	GetByID(ctx context.Context, userID, subscriptionID uuid.UUID) (*models.UserSubscription, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.UserSubscription, error)
	Activate(ctx context.Context, userID, subscriptionID uuid.UUID) error
	Cancel(ctx context.Context, userID, subscriptionID uuid.UUID) error
	Pause(ctx context.Context, userID, subscriptionID uuid.UUID, resumesAt *time.Time) error
	Resume(ctx context.Context, userID, subscriptionID uuid.UUID) error
	ChangePlan(ctx context.Context, userID, subscriptionID uuid.UUID, newPlanName string) error
}

type subscriptionService struct {
	subscriptionRepo repositories.SubscriptionRepository
	planRepo         repositories.PlanRepository
}

// NewSubscriptionService creates a new SubscriptionService instance
func NewSubscriptionService(
	subscriptionRepo repositories.SubscriptionRepository,
	planRepo repositories.PlanRepository,
) SubscriptionService {
	return &subscriptionService{
		subscriptionRepo: subscriptionRepo,
		planRepo:         planRepo,
	}
}

// Create records a pending subscription for the chosen plan. Activation is
// driven by the billing webhook once payment clears.
func (s *subscriptionService) Create(ctx context.Context, userID uuid.UUID, planName string) (*models.UserSubscription, error) {
	plan, err := s.planRepo.GetByName(ctx, planName)
	if err != nil {
		return nil, fmt.Errorf("invalid plan %q: %v", planName, err)
	}
	if !plan.IsActive {
		return nil, fmt.Errorf("plan %q is not available", planName)
	}

	now := time.Now()
	subscription := &models.UserSubscription{
		ID:                 uuid.New(),
		UserID:             userID,
		PlanID:             plan.ID,
		Status:             models.SubscriptionStatusPending,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.AddDate(0, 1, 0),
		UsageCount:         0,
		AutoRenew:          true,
	}

	if err := s.subscriptionRepo.Create(ctx, subscription); err != nil {
		return nil, fmt.Errorf("failed to create subscription: %v", err)
	}

	return subscription, nil
}

// GetByID gets a subscription owned by the user
func (s *subscriptionService) GetByID(ctx context.Context, userID, subscriptionID uuid.UUID) (*models.UserSubscription, error) {
	return s.subscriptionRepo.GetByID(ctx, userID, subscriptionID)
}

// List lists the user's subscriptions, newest first
func (s *subscriptionService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.UserSubscription, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	return s.subscriptionRepo.List(ctx, userID, limit, offset)
}

// Activate flips a subscription to active. The store's single-active
// constraint rejects the write when another active subscription exists; that
// rejection surfaces to the caller unchanged.
func (s *subscriptionService) Activate(ctx context.Context, userID, subscriptionID uuid.UUID) error {
	subscription, err := s.subscriptionRepo.GetByID(ctx, userID, subscriptionID)
	if err != nil {
		return err
	}

	if subscription.Status == models.SubscriptionStatusActive {
		return nil
	}

	return s.subscriptionRepo.UpdateStatus(ctx, userID, subscriptionID, models.SubscriptionStatusActive)
}

// Cancel cancels a subscription
func (s *subscriptionService) Cancel(ctx context.Context, userID, subscriptionID uuid.UUID) error {
	subscription, err := s.subscriptionRepo.GetByID(ctx, userID, subscriptionID)
	if err != nil {
		return err
	}

	now := time.Now()
	subscription.Status = models.SubscriptionStatusCancelled
	subscription.CancelledAt = &now
	subscription.AutoRenew = false
	return s.subscriptionRepo.Update(ctx, subscription)
}

// Pause pauses a subscription, optionally until resumesAt
func (s *subscriptionService) Pause(ctx context.Context, userID, subscriptionID uuid.UUID, resumesAt *time.Time) error {
	subscription, err := s.subscriptionRepo.GetByID(ctx, userID, subscriptionID)
	if err != nil {
		return err
	}

	if subscription.Status != models.SubscriptionStatusActive {
		return fmt.Errorf("only active subscriptions can be paused, current status: %s", subscription.Status)
	}

	now := time.Now()
	subscription.Status = models.SubscriptionStatusPaused
	subscription.PausedAt = &now
	subscription.ResumesAt = resumesAt
	return s.subscriptionRepo.Update(ctx, subscription)
}

// Resume resumes a paused subscription
func (s *subscriptionService) Resume(ctx context.Context, userID, subscriptionID uuid.UUID) error {
	subscription, err := s.subscriptionRepo.GetByID(ctx, userID, subscriptionID)
	if err != nil {
		return err
	}

	if subscription.Status != models.SubscriptionStatusPaused {
		return fmt.Errorf("only paused subscriptions can be resumed, current status: %s", subscription.Status)
	}

	subscription.Status = models.SubscriptionStatusActive
	subscription.PausedAt = nil
	subscription.ResumesAt = nil
	return s.subscriptionRepo.Update(ctx, subscription)
}

// ChangePlan moves the subscription to a different plan
func (s *subscriptionService) ChangePlan(ctx context.Context, userID, subscriptionID uuid.UUID, newPlanName string) error {
	plan, err := s.planRepo.GetByName(ctx, newPlanName)
	if err != nil {
		return fmt.Errorf("invalid plan %q: %v", newPlanName, err)
	}
	if !plan.IsActive {
		return fmt.Errorf("plan %q is not available", newPlanName)
	}

	subscription, err := s.subscriptionRepo.GetByID(ctx, userID, subscriptionID)
	if err != nil {
		return err
	}

	subscription.PlanID = plan.ID
	return s.subscriptionRepo.Update(ctx, subscription)
}
