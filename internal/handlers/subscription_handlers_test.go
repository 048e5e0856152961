package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sakan/internal/common"
	"sakan/internal/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func authenticatedContext(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder, userID uuid.UUID) echo.Context {
	ctx := context.WithValue(req.Context(), common.UserIDKey, userID)
	return e.NewContext(req.WithContext(ctx), rec)
}

func TestGetMySubscription_IncludesDaysRemaining(t *testing.T) {
	mockBilling := &MockBillingService{}
	mockBilling.Test(t)
	h := NewSubscriptionHandlers(mockBilling)

	userID := uuid.New()
	expires := time.Now().Add(10*24*time.Hour + time.Hour)
	mockBilling.On("GetSubscriptionForUser", mock.Anything, userID).
		Return(&models.SubscriptionRecord{
			UserID:      userID,
			PlanActive:  true,
			PlanName:    "Essential",
			PlanExpires: &expires,
		}, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/billing/subscription", nil)
	rec := httptest.NewRecorder()
	c := authenticatedContext(e, req, rec, userID)

	err := h.GetMySubscription(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			PlanName      string `json:"plan_name"`
			DaysRemaining int    `json:"days_remaining"`
		} `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.Equal(t, "Essential", envelope.Data.PlanName)
	assert.Equal(t, 10, envelope.Data.DaysRemaining)
	mockBilling.AssertExpectations(t)
}

func TestGetMySubscription_RequiresAuthentication(t *testing.T) {
	mockBilling := &MockBillingService{}
	mockBilling.Test(t)
	h := NewSubscriptionHandlers(mockBilling)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/billing/subscription", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.GetMySubscription(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, mockBilling.Calls)
}
