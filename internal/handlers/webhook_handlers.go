package handlers

import (
	"io"
	"net/http"

	"sakan/internal/services"

	"github.com/labstack/echo/v4"
)

// WebhookHandlers receives payment-provider event notifications.
type WebhookHandlers struct {
	billingService services.BillingService
}

func NewWebhookHandlers(billingService services.BillingService) *WebhookHandlers {
	return &WebhookHandlers{billingService: billingService}
}

// StripeWebhook handles POST /webhooks/stripe. The response is 200 in nearly
// all cases (including internal processing errors) so the provider does not
// retry forever; only signature and configuration problems are rejected.
func (h *WebhookHandlers) StripeWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read request body")
	}

	signature := c.Request().Header.Get("Stripe-Signature")
	result := h.billingService.HandleBillingEvent(c.Request().Context(), body, signature)
	return c.JSON(result.StatusCode, result)
}
