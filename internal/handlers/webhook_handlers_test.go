package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sakan/internal/models"
	"sakan/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockBillingService struct {
	mock.Mock
}

func (m *MockBillingService) HandleBillingEvent(ctx context.Context, payload []byte, signature string) *services.WebhookResult {
	args := m.Called(ctx, payload, signature)
	return args.Get(0).(*services.WebhookResult)
}

func (m *MockBillingService) GetSubscriptionForUser(ctx context.Context, userID uuid.UUID) (*models.SubscriptionRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SubscriptionRecord), args.Error(1)
}

func (m *MockBillingService) GetAvailablePlans() map[string]services.PlanConfig {
	args := m.Called()
	return args.Get(0).(map[string]services.PlanConfig)
}

func TestStripeWebhook_PassesBodyAndSignatureThrough(t *testing.T) {
	mockBilling := &MockBillingService{}
	mockBilling.Test(t)
	h := NewWebhookHandlers(mockBilling)

	body := `{"id":"evt_1","type":"invoice.paid"}`
	mockBilling.On("HandleBillingEvent", mock.Anything, []byte(body), "t=1,v1=abc").
		Return(&services.WebhookResult{StatusCode: http.StatusOK, Message: "received"})

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(body))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.StripeWebhook(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"statusCode":200,"message":"received"}`, rec.Body.String())
	mockBilling.AssertExpectations(t)
}

func TestStripeWebhook_SurfacesSignatureRejection(t *testing.T) {
	mockBilling := &MockBillingService{}
	mockBilling.Test(t)
	h := NewWebhookHandlers(mockBilling)

	mockBilling.On("HandleBillingEvent", mock.Anything, mock.Anything, "").
		Return(&services.WebhookResult{StatusCode: http.StatusBadRequest, Message: "invalid signature"})

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.StripeWebhook(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	mockBilling.AssertExpectations(t)
}
