package handlers

import (
	"net/http"

	"lumiscan/internal/services"

	"github.com/labstack/echo/v4"
)

// PlanHandlers serves the world-readable plan catalog
type PlanHandlers struct {
	planService services.PlanService
}

// NewPlanHandlers creates a new plan handlers instance
func NewPlanHandlers(planService services.PlanService) *PlanHandlers {
	return &PlanHandlers{planService: planService}
}

// ListPlans handles GET /plans (no auth; only active plans are visible)
func (h *PlanHandlers) ListPlans(c echo.Context) error {
	plans, err := h.planService.ListActive(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list plans")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"plans": plans,
	})
}
