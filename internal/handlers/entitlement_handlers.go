package handlers

import (
	"net/http"

	"lumiscan/internal/common"
	"lumiscan/internal/services"

	"github.com/labstack/echo/v4"
)

// EntitlementHandlers exposes the quota check to the app frontend
type EntitlementHandlers struct {
	entitlementService services.EntitlementService
}

// NewEntitlementHandlers creates a new entitlement handlers instance
func NewEntitlementHandlers(entitlementService services.EntitlementService) *EntitlementHandlers {
	return &EntitlementHandlers{entitlementService: entitlementService}
}

// CheckEntitlement handles GET /entitlement. Having no subscription is a
// 200 with can_analyze=false, never an error.
func (h *EntitlementHandlers) CheckEntitlement(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	entitlement, err := h.entitlementService.Check(ctx, userID)
	if err != nil {
		return common.SendServerError(c, "Failed to check entitlement")
	}

	return c.JSON(http.StatusOK, entitlement)
}
