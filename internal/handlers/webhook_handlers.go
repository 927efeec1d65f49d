package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"lumiscan/internal/services"

	"github.com/labstack/echo/v4"
)

// WebhookHandlers handles billing provider webhooks
type WebhookHandlers struct {
	paymentService services.PaymentService
	webhookSecret  string
}

// NewWebhookHandlers creates a new webhook handlers instance
func NewWebhookHandlers(paymentService services.PaymentService, webhookSecret string) *WebhookHandlers {
	return &WebhookHandlers{
		paymentService: paymentService,
		webhookSecret:  webhookSecret,
	}
}

// verifySignature checks the webhook HMAC-SHA256 signature
func (h *WebhookHandlers) verifySignature(signature string, body []byte) bool {
	hash := hmac.New(sha256.New, []byte(h.webhookSecret))
	hash.Write(body)
	expectedSignature := hex.EncodeToString(hash.Sum(nil))

	// Constant time comparison to prevent timing attacks
	return hmac.Equal([]byte(signature), []byte(expectedSignature))
}

// BillingWebhook handles POST /webhooks/billing
func (h *WebhookHandlers) BillingWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read request body")
	}

	signature := c.Request().Header.Get("X-Webhook-Signature")
	if signature == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing webhook signature")
	}

	if !h.verifySignature(signature, body) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid webhook signature")
	}

	var event services.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid webhook payload")
	}

	if err := h.paymentService.ProcessWebhookEvent(c.Request().Context(), &event); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "success",
		"event":  event.Event,
	})
}
