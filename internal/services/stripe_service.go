package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// StripeService wraps the subset of the Stripe API the reconciliation engine
// needs: webhook signature verification, event parsing, and re-fetching
// subscription and customer detail.
type StripeService interface {
	VerifyWebhookSignature(payload []byte, signature string) bool
	ParseEvent(payload []byte) (*WebhookEvent, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*StripeSubscription, error)
	GetCustomer(ctx context.Context, customerID string) (*StripeCustomer, error)
}

// WebhookEvent is the provider's event envelope. Data.Object carries the
// event-specific payload and is decoded per event kind.
type WebhookEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// CheckoutSession is the data.object of checkout.session.completed.
type CheckoutSession struct {
	ID           string            `json:"id"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

// StripeSubscription is a subscription object, either embedded in an event or
// fetched from the API. Timestamps are Unix seconds.
type StripeSubscription struct {
	ID                 string            `json:"id"`
	Customer           string            `json:"customer"`
	Status             string            `json:"status"`
	Created            int64             `json:"created"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
	CanceledAt         int64             `json:"canceled_at"`
	Metadata           map[string]string `json:"metadata"`
	Items              struct {
		Data []struct {
			Price struct {
				ID         string `json:"id"`
				UnitAmount int64  `json:"unit_amount"`
				Currency   string `json:"currency"`
				Recurring  struct {
					Interval string `json:"interval"`
				} `json:"recurring"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// PriceID returns the price of the first subscription item.
func (s *StripeSubscription) PriceID() string {
	if len(s.Items.Data) == 0 {
		return ""
	}
	return s.Items.Data[0].Price.ID
}

// Amount returns the subscription amount in major currency units.
func (s *StripeSubscription) Amount() float64 {
	if len(s.Items.Data) == 0 {
		return 0
	}
	return float64(s.Items.Data[0].Price.UnitAmount) / 100.0
}

func (s *StripeSubscription) Currency() string {
	if len(s.Items.Data) == 0 {
		return ""
	}
	return s.Items.Data[0].Price.Currency
}

func (s *StripeSubscription) Interval() string {
	if len(s.Items.Data) == 0 {
		return ""
	}
	return s.Items.Data[0].Price.Recurring.Interval
}

// StripeInvoice is the data.object of invoice.* events.
type StripeInvoice struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
	Paid         bool   `json:"paid"`
}

// StripeCustomer carries the customer metadata used as the last resort of the
// account-resolution fallback chain.
type StripeCustomer struct {
	ID       string            `json:"id"`
	Email    string            `json:"email"`
	Metadata map[string]string `json:"metadata"`
}

type stripeService struct {
	apiKey        string
	webhookSecret string
	baseURL       string
	http          *http.Client
}

// NewStripeService creates a Stripe API client. apiKey authenticates outbound
// calls; webhookSecret verifies inbound event signatures.
func NewStripeService(apiKey, webhookSecret string) StripeService {
	return &stripeService{
		apiKey:        apiKey,
		webhookSecret: webhookSecret,
		baseURL:       "https://api.stripe.com/v1",
		http:          &http.Client{Timeout: 30 * time.Second},
	}
}

// VerifyWebhookSignature checks the hex HMAC-SHA256 of the raw body against
// the pre-shared webhook secret using a constant time comparison.
func (s *stripeService) VerifyWebhookSignature(payload []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

func (s *stripeService) ParseEvent(payload []byte) (*WebhookEvent, error) {
	event := &WebhookEvent{}
	if err := json.Unmarshal(payload, event); err != nil {
		return nil, fmt.Errorf("failed to parse webhook event: %w", err)
	}
	if event.Type == "" {
		return nil, fmt.Errorf("webhook event has no type")
	}
	return event, nil
}

func (s *stripeService) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("stripe request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stripe returned %d for %s: %s", resp.StatusCode, path, string(body))
	}
	return json.Unmarshal(body, out)
}

func (s *stripeService) GetSubscription(ctx context.Context, subscriptionID string) (*StripeSubscription, error) {
	subscription := &StripeSubscription{}
	if err := s.get(ctx, "/subscriptions/"+subscriptionID, subscription); err != nil {
		return nil, err
	}
	return subscription, nil
}

func (s *stripeService) GetCustomer(ctx context.Context, customerID string) (*StripeCustomer, error) {
	customer := &StripeCustomer{}
	if err := s.get(ctx, "/customers/"+customerID, customer); err != nil {
		return nil, err
	}
	return customer, nil
}
