package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"lumiscan/internal/common"
	"lumiscan/internal/repositories"
	"lumiscan/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

// SubscriptionHandlers handles HTTP requests for subscriptions
type SubscriptionHandlers struct {
	subscriptionService services.SubscriptionService
	entitlementService  services.EntitlementService
}

// NewSubscriptionHandlers creates a new subscription handlers instance
func NewSubscriptionHandlers(
	subscriptionService services.SubscriptionService,
	entitlementService services.EntitlementService,
) *SubscriptionHandlers {
	return &SubscriptionHandlers{
		subscriptionService: subscriptionService,
		entitlementService:  entitlementService,
	}
}

// validateUUID validates UUID string
func (h *SubscriptionHandlers) validateUUID(idStr string) (uuid.UUID, error) {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid UUID format")
	}
	return id, nil
}

// CreateSubscription handles POST /subscriptions
func (h *SubscriptionHandlers) CreateSubscription(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req struct {
		PlanName string `json:"plan_name" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := validate.Struct(&req); err != nil {
		return common.SendValidationError(c, "plan_name", "Plan name is required")
	}

	subscription, err := h.subscriptionService.Create(ctx, userID, req.PlanName)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message":      "Subscription created successfully",
		"subscription": subscription,
	})
}

// GetMySubscription handles GET /subscriptions/current: the denormalized
// active-subscription projection.
func (h *SubscriptionHandlers) GetMySubscription(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	details, err := h.entitlementService.Details(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNoActiveSubscription) {
			return common.SendNotFoundError(c, "Active subscription")
		}
		return common.SendServerError(c, "Failed to load subscription")
	}

	return c.JSON(http.StatusOK, details)
}

// ListSubscriptions handles GET /subscriptions
func (h *SubscriptionHandlers) ListSubscriptions(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	limit := 10
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

	subscriptions, err := h.subscriptionService.List(ctx, userID, limit, offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list subscriptions")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"subscriptions": subscriptions,
		"limit":         limit,
		"offset":        offset,
	})
}

// GetSubscriptionByID handles GET /subscriptions/:id
func (h *SubscriptionHandlers) GetSubscriptionByID(c echo.Context) error {
	ctx := c.Request().Context()

	subscriptionID, err := h.validateUUID(c.Param("id"))
	if err != nil {
		return err
	}

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	subscription, err := h.subscriptionService.GetByID(ctx, userID, subscriptionID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return common.SendNotFoundError(c, "Subscription")
		}
		return common.SendServerError(c, "Failed to load subscription")
	}

	return c.JSON(http.StatusOK, subscription)
}

// ActivateSubscription handles PUT /subscriptions/:id/activate. A second
// active subscription is rejected by the store's uniqueness constraint.
func (h *SubscriptionHandlers) ActivateSubscription(c echo.Context) error {
	ctx := c.Request().Context()

	subscriptionID, err := h.validateUUID(c.Param("id"))
	if err != nil {
		return err
	}

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	if err := h.subscriptionService.Activate(ctx, userID, subscriptionID); err != nil {
		if errors.Is(err, repositories.ErrDuplicateActiveSubscription) {
			return common.SendConflictError(c, "An active subscription already exists")
		}
		if errors.Is(err, repositories.ErrNotFound) {
			return common.SendNotFoundError(c, "Subscription")
		}
		return common.SendServerError(c, "Failed to activate subscription")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Subscription activated successfully",
	})
}

// CancelSubscription handles DELETE /subscriptions/:id/cancel
func (h *SubscriptionHandlers) CancelSubscription(c echo.Context) error {
	ctx := c.Request().Context()

	subscriptionID, err := h.validateUUID(c.Param("id"))
	if err != nil {
		return err
	}

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	if err := h.subscriptionService.Cancel(ctx, userID, subscriptionID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return common.SendNotFoundError(c, "Subscription")
		}
		return common.SendServerError(c, "Failed to cancel subscription")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Subscription cancelled successfully",
	})
}

// PauseSubscription handles PUT /subscriptions/:id/pause
func (h *SubscriptionHandlers) PauseSubscription(c echo.Context) error {
	ctx := c.Request().Context()

	subscriptionID, err := h.validateUUID(c.Param("id"))
	if err != nil {
		return err
	}

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req struct {
		ResumesAt *time.Time `json:"resumes_at"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := h.subscriptionService.Pause(ctx, userID, subscriptionID, req.ResumesAt); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return common.SendNotFoundError(c, "Subscription")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Subscription paused successfully",
	})
}

// ResumeSubscription handles PUT /subscriptions/:id/resume
func (h *SubscriptionHandlers) ResumeSubscription(c echo.Context) error {
	ctx := c.Request().Context()

	subscriptionID, err := h.validateUUID(c.Param("id"))
	if err != nil {
		return err
	}

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	if err := h.subscriptionService.Resume(ctx, userID, subscriptionID); err != nil {
		if errors.Is(err, repositories.ErrDuplicateActiveSubscription) {
			return common.SendConflictError(c, "An active subscription already exists")
		}
		if errors.Is(err, repositories.ErrNotFound) {
			return common.SendNotFoundError(c, "Subscription")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Subscription resumed successfully",
	})
}

// ChangePlan handles PUT /subscriptions/:id/plan
func (h *SubscriptionHandlers) ChangePlan(c echo.Context) error {
	ctx := c.Request().Context()

	subscriptionID, err := h.validateUUID(c.Param("id"))
	if err != nil {
		return err
	}

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req struct {
		PlanName string `json:"plan_name" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := validate.Struct(&req); err != nil {
		return common.SendValidationError(c, "plan_name", "Plan name is required")
	}

	if err := h.subscriptionService.ChangePlan(ctx, userID, subscriptionID, req.PlanName); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return common.SendNotFoundError(c, "Subscription")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Subscription plan updated successfully",
	})
}
