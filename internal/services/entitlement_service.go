package services

import (
	"context"
	"errors"
	"fmt"

	"lumiscan/internal/models"
	"lumiscan/internal/repositories"

	"github.com/google/uuid"
)

// EntitlementService answers whether a user may run one more metered
// analysis, and spends quota units atomically.
type EntitlementService interface {
	Check(ctx context.Context, userID uuid.UUID) (*models.Entitlement, error)
	Consume(ctx context.Context, userID uuid.UUID, analysisID *uuid.UUID, analysisType string) (int, error)
	Details(ctx context.Context, userID uuid.UUID) (*models.SubscriptionDetails, error)
}

type entitlementService struct {
	subscriptionRepo repositories.SubscriptionRepository
}

// NewEntitlementService creates a new EntitlementService instance
func NewEntitlementService(subscriptionRepo repositories.SubscriptionRepository) EntitlementService {
	return &entitlementService{subscriptionRepo: subscriptionRepo}
}

// Check reports whether the user may consume one quota unit right now.
// Having no active subscription is a normal negative result, not an error.
func (s *entitlementService) Check(ctx context.Context, userID uuid.UUID) (*models.Entitlement, error) {
	subscription, plan, err := s.subscriptionRepo.GetActiveWithPlan(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNoActiveSubscription) {
			return &models.Entitlement{
				CanAnalyze: false,
				Remaining:  0,
				Status:     "none",
				PlanName:   "none",
			}, nil
		}
		return nil, fmt.Errorf("failed to check entitlement: %v", err)
	}

	remaining := plan.MonthlyLimit - subscription.UsageCount
	if remaining < 0 {
		remaining = 0
	}

	return &models.Entitlement{
		CanAnalyze: subscription.UsageCount < plan.MonthlyLimit,
		Remaining:  remaining,
		Status:     string(subscription.Status),
		PlanName:   plan.PlanName,
	}, nil
}

// Consume spends one quota unit and records the usage event; both happen in
// one transaction inside the repository. Returns the post-increment counter.
func (s *entitlementService) Consume(ctx context.Context, userID uuid.UUID, analysisID *uuid.UUID, analysisType string) (int, error) {
	if analysisType == "" {
		analysisType = "skin_analysis"
	}
	return s.subscriptionRepo.ConsumeUsage(ctx, userID, analysisID, analysisType)
}

// Details is the read-only projection of the active subscription joined with
// its plan.
func (s *entitlementService) Details(ctx context.Context, userID uuid.UUID) (*models.SubscriptionDetails, error) {
	subscription, plan, err := s.subscriptionRepo.GetActiveWithPlan(ctx, userID)
	if err != nil {
		return nil, err
	}

	remaining := plan.MonthlyLimit - subscription.UsageCount
	if remaining < 0 {
		remaining = 0
	}

	return &models.SubscriptionDetails{
		SubscriptionID:     subscription.ID,
		Status:             subscription.Status,
		PlanName:           plan.PlanName,
		MonthlyLimit:       plan.MonthlyLimit,
		UsageCount:         subscription.UsageCount,
		Remaining:          remaining,
		CurrentPeriodStart: subscription.CurrentPeriodStart,
		CurrentPeriodEnd:   subscription.CurrentPeriodEnd,
		AutoRenew:          subscription.AutoRenew,
	}, nil
}
