package models

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionRecord mirrors the payment provider's subscription state for a
// paying syndic account. One row per Stripe customer (upsert key); webhook
// events keep it eventually consistent.
type SubscriptionRecord struct {
	ID                   uuid.UUID  `json:"id" db:"id"`
	UserID               uuid.UUID  `json:"user_id" db:"user_id"`
	StripeCustomerID     string     `json:"stripe_customer_id" db:"stripe_customer_id"`
	StripeSubscriptionID *string    `json:"stripe_subscription_id" db:"stripe_subscription_id"`
	PlanActive           bool       `json:"plan_active" db:"plan_active"`
	PlanExpires          *time.Time `json:"plan_expires" db:"plan_expires"`
	PlanName             string     `json:"plan_name" db:"plan_name"`
	PriceID              string     `json:"price_id" db:"price_id"`
	Amount               float64    `json:"amount" db:"amount"`
	Currency             string     `json:"currency" db:"currency"`
	Interval             string     `json:"interval" db:"interval"`
	SubscriptionStatus   string     `json:"subscription_status" db:"subscription_status"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" db:"updated_at"`
}

// Well-known Stripe subscription states.
const (
	SubscriptionStatusActive     = "active"
	SubscriptionStatusTrialing   = "trialing"
	SubscriptionStatusPastDue    = "past_due"
	SubscriptionStatusIncomplete = "incomplete"
	SubscriptionStatusCanceled   = "canceled"
)

// DaysRemaining returns the number of whole days until the plan expires,
// or 0 when no expiration is set or the plan already lapsed.
func (s *SubscriptionRecord) DaysRemaining() int {
	if s.PlanExpires == nil {
		return 0
	}
	d := time.Until(*s.PlanExpires)
	if d <= 0 {
		return 0
	}
	return int(d.Hours() / 24)
}
