package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"lumiscan/internal/common"
	"lumiscan/internal/repositories"
	"lumiscan/internal/services"

	"github.com/labstack/echo/v4"
)

// PaymentHandlers serves the user's own payment history
type PaymentHandlers struct {
	paymentService services.PaymentService
}

// NewPaymentHandlers creates a new payment handlers instance
func NewPaymentHandlers(paymentService services.PaymentService) *PaymentHandlers {
	return &PaymentHandlers{paymentService: paymentService}
}

// ListTransactions handles GET /payments
func (h *PaymentHandlers) ListTransactions(c echo.Context) error {
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

	transactions, err := h.paymentService.List(ctx, userID, limit, offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list transactions")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"limit":        limit,
		"offset":       offset,
	})
}

// GetTransaction handles GET /payments/:id
func (h *PaymentHandlers) GetTransaction(c echo.Context) error {
	ctx := c.Request().Context()

	transactionID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	transaction, err := h.paymentService.GetByID(ctx, userID, transactionID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return common.SendNotFoundError(c, "Transaction")
		}
		return common.SendServerError(c, "Failed to load transaction")
	}

	return c.JSON(http.StatusOK, transaction)
}
