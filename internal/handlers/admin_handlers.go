package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"lumiscan/internal/common"
	"lumiscan/internal/models"
	"lumiscan/internal/repositories"
	"lumiscan/internal/services"

	"github.com/labstack/echo/v4"
)

// AdminHandlers is the operator bypass surface: subscription, payment and
// usage tables without the caller-identity predicate, plan catalog
// management, and the reset sweep trigger. Routes are guarded by the
// operator-key middleware.
type AdminHandlers struct {
	subscriptionRepo repositories.SubscriptionRepository
	paymentRepo      repositories.PaymentRepository
	usageRepo        repositories.UsageRepository
	planService      services.PlanService
}

// NewAdminHandlers creates a new admin handlers instance
func NewAdminHandlers(
	subscriptionRepo repositories.SubscriptionRepository,
	paymentRepo repositories.PaymentRepository,
	usageRepo repositories.UsageRepository,
	planService services.PlanService,
) *AdminHandlers {
	return &AdminHandlers{
		subscriptionRepo: subscriptionRepo,
		paymentRepo:      paymentRepo,
		usageRepo:        usageRepo,
		planService:      planService,
	}
}

func paginationParams(c echo.Context) (int, int) {
	limit := 50
	offset := 0
	if limitParam := c.QueryParam("limit"); limitParam != "" {
		if l, err := strconv.Atoi(limitParam); err == nil && l > 0 {
			limit = l
		}
	}
	if offsetParam := c.QueryParam("offset"); offsetParam != "" {
		if o, err := strconv.Atoi(offsetParam); err == nil && o >= 0 {
			offset = o
		}
	}
	limit, offset, _ = common.ValidatePaginationParams(limit, offset)
	return limit, offset
}

// ListAllSubscriptions handles GET /admin/subscriptions
func (h *AdminHandlers) ListAllSubscriptions(c echo.Context) error {
	limit, offset := paginationParams(c)

	subscriptions, err := h.subscriptionRepo.ListAll(c.Request().Context(), limit, offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list subscriptions")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"subscriptions": subscriptions,
		"limit":         limit,
		"offset":        offset,
	})
}

// GetUserSubscriptions handles GET /admin/users/:id/subscriptions
func (h *AdminHandlers) GetUserSubscriptions(c echo.Context) error {
	userID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	limit, offset := paginationParams(c)

	subscriptions, err := h.subscriptionRepo.List(c.Request().Context(), userID, limit, offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list subscriptions")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"subscriptions": subscriptions,
	})
}

// ListAllTransactions handles GET /admin/payments
func (h *AdminHandlers) ListAllTransactions(c echo.Context) error {
	limit, offset := paginationParams(c)

	transactions, err := h.paymentRepo.ListAll(c.Request().Context(), limit, offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list transactions")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"limit":        limit,
		"offset":       offset,
	})
}

// ListAllUsage handles GET /admin/usage
func (h *AdminHandlers) ListAllUsage(c echo.Context) error {
	limit, offset := paginationParams(c)

	records, err := h.usageRepo.ListAll(c.Request().Context(), limit, offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list usage records")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"usage":  records,
		"limit":  limit,
		"offset": offset,
	})
}

// TriggerUsageReset handles POST /admin/usage/reset. It runs the same sweep
// the scheduler runs, for operators who need it now.
func (h *AdminHandlers) TriggerUsageReset(c echo.Context) error {
	affected, err := h.subscriptionRepo.ResetExpiredCycles(c.Request().Context())
	if err != nil {
		return common.SendServerError(c, "Failed to run usage reset")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":             "Usage reset completed",
		"subscriptions_reset": affected,
	})
}

// CreatePlan handles POST /admin/plans
func (h *AdminHandlers) CreatePlan(c echo.Context) error {
	var req struct {
		PlanName       string   `json:"plan_name" validate:"required"`
		Price          float64  `json:"price"`
		MonthlyLimit   int      `json:"monthly_limit" validate:"gte=0"`
		ExternalPlanID *string  `json:"external_plan_id"`
		Features       []string `json:"features"`
		IsActive       bool     `json:"is_active"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if err := validate.Struct(&req); err != nil {
		return common.SendValidationError(c, "plan", err.Error())
	}

	plan := &models.SubscriptionPlan{
		PlanName:       req.PlanName,
		Price:          req.Price,
		MonthlyLimit:   req.MonthlyLimit,
		ExternalPlanID: req.ExternalPlanID,
		Features:       req.Features,
		IsActive:       req.IsActive,
	}

	if err := h.planService.Create(c.Request().Context(), plan); err != nil {
		if errors.Is(err, repositories.ErrDuplicatePlanName) {
			return common.SendConflictError(c, "A plan with that name already exists")
		}
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusCreated, plan)
}

// UpdatePlan handles PUT /admin/plans/:id
func (h *AdminHandlers) UpdatePlan(c echo.Context) error {
	planID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	plan, err := h.planService.GetByID(c.Request().Context(), planID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return common.SendNotFoundError(c, "Plan")
		}
		return common.SendServerError(c, "Failed to load plan")
	}

	var req struct {
		PlanName       *string   `json:"plan_name"`
		Price          *float64  `json:"price"`
		MonthlyLimit   *int      `json:"monthly_limit"`
		ExternalPlanID *string   `json:"external_plan_id"`
		Features       *[]string `json:"features"`
		IsActive       *bool     `json:"is_active"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	if req.PlanName != nil {
		plan.PlanName = *req.PlanName
	}
	if req.Price != nil {
		plan.Price = *req.Price
	}
	if req.MonthlyLimit != nil {
		plan.MonthlyLimit = *req.MonthlyLimit
	}
	if req.ExternalPlanID != nil {
		plan.ExternalPlanID = req.ExternalPlanID
	}
	if req.Features != nil {
		plan.Features = *req.Features
	}
	if req.IsActive != nil {
		plan.IsActive = *req.IsActive
	}

	if err := h.planService.Update(c.Request().Context(), plan); err != nil {
		if errors.Is(err, repositories.ErrDuplicatePlanName) {
			return common.SendConflictError(c, "A plan with that name already exists")
		}
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusOK, plan)
}

// DeletePlan handles DELETE /admin/plans/:id. Plans with live subscriptions
// cannot be deleted.
func (h *AdminHandlers) DeletePlan(c echo.Context) error {
	planID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	if err := h.planService.Delete(c.Request().Context(), planID); err != nil {
		if errors.Is(err, services.ErrPlanHasSubscribers) {
			return common.SendConflictError(c, "Plan has live subscriptions and cannot be deleted")
		}
		if errors.Is(err, repositories.ErrNotFound) {
			return common.SendNotFoundError(c, "Plan")
		}
		return common.SendServerError(c, "Failed to delete plan")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Plan deleted successfully",
	})
}
