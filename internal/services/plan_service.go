package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"lumiscan/internal/caching"
	"lumiscan/internal/models"
	"lumiscan/internal/repositories"

	"github.com/google/uuid"
)

// ErrPlanHasSubscribers is returned when an operator tries to delete a plan
// that still has live subscriptions.
var ErrPlanHasSubscribers = errors.New("plan has live subscriptions")

const planCacheTTL = 10 * time.Minute

// PlanService handles plan catalog business logic
type PlanService interface {
	ListActive(ctx context.Context) ([]*models.SubscriptionPlan, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error)
	Create(ctx context.Context, plan *models.SubscriptionPlan) error
	Update(ctx context.Context, plan *models.SubscriptionPlan) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type planService struct {
	planRepo         repositories.PlanRepository
	subscriptionRepo repositories.SubscriptionRepository
	cacheSvc         caching.CacheService
}

// NewPlanService creates a new PlanService instance
func NewPlanService(
	planRepo repositories.PlanRepository,
	subscriptionRepo repositories.SubscriptionRepository,
	cacheSvc caching.CacheService,
) PlanService {
	return &planService{
		planRepo:         planRepo,
		subscriptionRepo: subscriptionRepo,
		cacheSvc:         cacheSvc,
	}
}

// ListActive returns the world-readable catalog of active plans,
// cache-first.
func (s *planService) ListActive(ctx context.Context) ([]*models.SubscriptionPlan, error) {
	if cached, err := s.cacheSvc.GetActivePlans(ctx); err == nil && cached != nil {
		return cached, nil
	} else if err != nil {
		log.Printf("WARN: plan cache read failed: %v", err)
	}

	plans, err := s.planRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %v", err)
	}

	if err := s.cacheSvc.SetActivePlans(ctx, plans, planCacheTTL); err != nil {
		log.Printf("WARN: plan cache write failed: %v", err)
	}

	return plans, nil
}

// GetByID gets a plan by ID
func (s *planService) GetByID(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error) {
	return s.planRepo.GetByID(ctx, id)
}

// Create adds a plan to the catalog (operator only)
func (s *planService) Create(ctx context.Context, plan *models.SubscriptionPlan) error {
	if plan.PlanName == "" {
		return fmt.Errorf("plan name is required")
	}
	if plan.MonthlyLimit < 0 {
		return fmt.Errorf("monthly limit cannot be negative")
	}

	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}

	if err := s.planRepo.Create(ctx, plan); err != nil {
		if errors.Is(err, repositories.ErrDuplicatePlanName) {
			return err
		}
		return fmt.Errorf("failed to create plan: %v", err)
	}

	s.invalidateCache(ctx)
	return nil
}

// Update modifies a catalog plan (operator only)
func (s *planService) Update(ctx context.Context, plan *models.SubscriptionPlan) error {
	if plan.MonthlyLimit < 0 {
		return fmt.Errorf("monthly limit cannot be negative")
	}

	if err := s.planRepo.Update(ctx, plan); err != nil {
		return err
	}

	s.invalidateCache(ctx)
	return nil
}

// Delete removes a plan. Plans with live subscriptions are protected; the
// caller must migrate or cancel subscribers first.
func (s *planService) Delete(ctx context.Context, id uuid.UUID) error {
	live, err := s.subscriptionRepo.CountLiveForPlan(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count plan subscribers: %v", err)
	}
	if live > 0 {
		return ErrPlanHasSubscribers
	}

	if err := s.planRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidateCache(ctx)
	return nil
}

func (s *planService) invalidateCache(ctx context.Context) {
	if err := s.cacheSvc.InvalidatePlans(ctx); err != nil {
		log.Printf("WARN: plan cache invalidation failed: %v", err)
	}
}
