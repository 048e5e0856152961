package handlers

import (
	"errors"
	"net/http"

	"sakan/internal/common"
	"sakan/internal/models"
	"sakan/internal/services"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
)

// SubscriptionHandlers is the read side of billing used by the dashboard.
type SubscriptionHandlers struct {
	billingService services.BillingService
}

func NewSubscriptionHandlers(billingService services.BillingService) *SubscriptionHandlers {
	return &SubscriptionHandlers{billingService: billingService}
}

// GetPlans handles GET /v1/billing/plans.
func (h *SubscriptionHandlers) GetPlans(c echo.Context) error {
	return common.SendSuccess(c, h.billingService.GetAvailablePlans())
}

type subscriptionResponse struct {
	*models.SubscriptionRecord
	DaysRemaining int `json:"days_remaining"`
}

// GetMySubscription handles GET /v1/billing/subscription.
func (h *SubscriptionHandlers) GetMySubscription(c echo.Context) error {
	userID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	record, err := h.billingService.GetSubscriptionForUser(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.SendError(c, http.StatusNotFound, "No subscription on file")
		}
		return common.SendServerError(c, "Failed to load subscription")
	}
	if record == nil {
		return common.SendError(c, http.StatusNotFound, "No subscription on file")
	}
	return common.SendSuccess(c, subscriptionResponse{
		SubscriptionRecord: record,
		DaysRemaining:      record.DaysRemaining(),
	})
}
