package handlers

import (
	"errors"
	"net/http"

	"lumiscan/internal/common"
	"lumiscan/internal/repositories"
	"lumiscan/internal/services"

	"github.com/labstack/echo/v4"
)

// ProfileHandlers handles HTTP requests for the caller's own profile
type ProfileHandlers struct {
	profileService services.ProfileService
}

// NewProfileHandlers creates a new profile handlers instance
func NewProfileHandlers(profileService services.ProfileService) *ProfileHandlers {
	return &ProfileHandlers{profileService: profileService}
}

// GetMe handles GET /me; creates the profile row on first call.
func (h *ProfileHandlers) GetMe(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	email, _ := common.GetEmailFromContext(ctx)

	profile, err := h.profileService.Ensure(ctx, userID, email)
	if err != nil {
		return common.SendServerError(c, "Failed to load profile")
	}

	return c.JSON(http.StatusOK, profile)
}

// UpdateMe handles PUT /me
func (h *ProfileHandlers) UpdateMe(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req struct {
		FullName  *string `json:"full_name"`
		AvatarURL *string `json:"avatar_url"`
		Username  *string `json:"username"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	if err := common.ValidateOptionalString(req.FullName, "full_name", 200); err != nil {
		return common.SendValidationError(c, "full_name", err.Error())
	}
	if err := common.ValidateOptionalString(req.Username, "username", 50); err != nil {
		return common.SendValidationError(c, "username", err.Error())
	}

	profile, err := h.profileService.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return common.SendNotFoundError(c, "Profile")
		}
		return common.SendServerError(c, "Failed to load profile")
	}

	if req.FullName != nil {
		profile.FullName = req.FullName
	}
	if req.AvatarURL != nil {
		profile.AvatarURL = req.AvatarURL
	}
	if req.Username != nil {
		profile.Username = req.Username
	}

	if err := h.profileService.Update(ctx, profile); err != nil {
		return common.SendClientError(c, err.Error())
	}

	return c.JSON(http.StatusOK, profile)
}

// DeleteMe handles DELETE /me; dependent subscriptions, transactions, usage
// events and analyses are removed by cascade.
func (h *ProfileHandlers) DeleteMe(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	if err := h.profileService.Delete(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return common.SendNotFoundError(c, "Profile")
		}
		return common.SendServerError(c, "Failed to delete profile")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Profile deleted successfully",
	})
}
