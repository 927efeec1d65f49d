package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"lumiscan/internal/caching"
	"lumiscan/internal/common"
	"lumiscan/internal/repositories"
	"lumiscan/internal/services"

	"github.com/labstack/echo/v4"
)

const (
	analyzeRateLimit  = 30
	analyzeRateWindow = time.Minute
	maxImageSize      = 10 << 20 // 10 MiB
)

// AnalysisHandlers handles the metered analyze flow and analysis history
type AnalysisHandlers struct {
	analysisService services.AnalysisService
	cacheSvc        caching.CacheService
}

// NewAnalysisHandlers creates a new analysis handlers instance
func NewAnalysisHandlers(analysisService services.AnalysisService, cacheSvc caching.CacheService) *AnalysisHandlers {
	return &AnalysisHandlers{
		analysisService: analysisService,
		cacheSvc:        cacheSvc,
	}
}

// CreateAnalysis handles POST /analyses (multipart: result, score, optional
// image). One successful call consumes exactly one quota unit.
func (h *AnalysisHandlers) CreateAnalysis(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	limited, err := h.cacheSvc.IsRateLimited(ctx, "analyze:"+userID.String(), analyzeRateLimit, analyzeRateWindow)
	if err == nil && limited {
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many analysis requests")
	}

	input := &services.SaveAnalysisInput{
		AnalysisType: c.FormValue("analysis_type"),
	}

	if resultStr := c.FormValue("result"); resultStr != "" {
		if !json.Valid([]byte(resultStr)) {
			return common.SendValidationError(c, "result", "result must be valid JSON")
		}
		input.Result = json.RawMessage(resultStr)
	}

	if scoreStr := c.FormValue("score"); scoreStr != "" {
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			return common.SendValidationError(c, "score", "score must be a number")
		}
		input.Score = &score
	}

	if fileHeader, err := c.FormFile("image"); err == nil {
		if fileHeader.Size > maxImageSize {
			return common.SendValidationError(c, "image", "image exceeds the 10MB limit")
		}
		file, err := fileHeader.Open()
		if err != nil {
			return common.SendClientError(c, "Failed to read image")
		}
		defer file.Close()
		input.Image = file
		input.ImageSize = fileHeader.Size
		input.ContentType = fileHeader.Header.Get("Content-Type")
	}

	analysis, usageCount, err := h.analysisService.Save(ctx, userID, input)
	if err != nil {
		if errors.Is(err, repositories.ErrNoActiveSubscription) {
			return c.JSON(http.StatusForbidden, common.CreateErrorResponse("NO_ACTIVE_SUBSCRIPTION", "No active subscription", nil))
		}
		if errors.Is(err, repositories.ErrQuotaExhausted) {
			return c.JSON(http.StatusForbidden, common.CreateErrorResponse("QUOTA_EXHAUSTED", "Monthly analysis quota exhausted", nil))
		}
		return common.SendServerError(c, "Failed to save analysis")
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"analysis":    analysis,
		"usage_count": usageCount,
	})
}

// ListAnalyses handles GET /analyses
func (h *AnalysisHandlers) ListAnalyses(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	limit := 20
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

	analyses, err := h.analysisService.List(ctx, userID, limit, offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list analyses")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"analyses": analyses,
		"limit":    limit,
		"offset":   offset,
	})
}

// GetAnalysis handles GET /analyses/:id
func (h *AnalysisHandlers) GetAnalysis(c echo.Context) error {
	ctx := c.Request().Context()

	analysisID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	analysis, err := h.analysisService.GetByID(ctx, userID, analysisID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return common.SendNotFoundError(c, "Analysis")
		}
		return common.SendServerError(c, "Failed to load analysis")
	}

	return c.JSON(http.StatusOK, analysis)
}

// DeleteAnalysis handles DELETE /analyses/:id
func (h *AnalysisHandlers) DeleteAnalysis(c echo.Context) error {
	ctx := c.Request().Context()

	analysisID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	if err := h.analysisService.Delete(ctx, userID, analysisID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return common.SendNotFoundError(c, "Analysis")
		}
		return common.SendServerError(c, "Failed to delete analysis")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Analysis deleted successfully",
	})
}
