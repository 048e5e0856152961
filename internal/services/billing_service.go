package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"sakan/internal/caching"
	"sakan/internal/models"
	"sakan/internal/repositories"

	"github.com/google/uuid"
)

// Webhook event kinds the reconciliation engine recognizes.
const (
	EventCheckoutCompleted       = "checkout.session.completed"
	EventSubscriptionCreated     = "customer.subscription.created"
	EventSubscriptionUpdated     = "customer.subscription.updated"
	EventSubscriptionDeleted     = "customer.subscription.deleted"
	EventInvoicePaymentSucceeded = "invoice.payment_succeeded"
	EventInvoicePaid             = "invoice.paid"
	EventInvoicePaymentFailed    = "invoice.payment_failed"
	EventChargeRefunded          = "charge.refunded"
)

// UpdateKind classifies a customer.subscription.updated event.
type UpdateKind string

const (
	UpdateNewSubscription UpdateKind = "new_subscription"
	UpdateRenewal         UpdateKind = "renewal"
	UpdateCancellation    UpdateKind = "cancellation"
)

// PlanConfig maps a Stripe price id to a named plan.
type PlanConfig struct {
	PriceID  string  `json:"price_id"`
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Interval string  `json:"interval"`
}

// Plans offered to syndics, keyed by Stripe price id.
var availablePlans = map[string]PlanConfig{
	"price_sakan_essential_monthly": {
		PriceID:  "price_sakan_essential_monthly",
		Name:     "Essential",
		Amount:   199.0,
		Currency: "mad",
		Interval: "month",
	},
	"price_sakan_essential_yearly": {
		PriceID:  "price_sakan_essential_yearly",
		Name:     "Essential",
		Amount:   1990.0,
		Currency: "mad",
		Interval: "year",
	},
	"price_sakan_premium_monthly": {
		PriceID:  "price_sakan_premium_monthly",
		Name:     "Premium",
		Amount:   399.0,
		Currency: "mad",
		Interval: "month",
	},
	"price_sakan_premium_yearly": {
		PriceID:  "price_sakan_premium_yearly",
		Name:     "Premium",
		Amount:   3990.0,
		Currency: "mad",
		Interval: "year",
	},
}

// WebhookResult is the response surfaced to the payment provider.
type WebhookResult struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// BillingService maintains SubscriptionRecord as a derived projection of the
// payment provider's subscription state.
type BillingService interface {
	HandleBillingEvent(ctx context.Context, payload []byte, signature string) *WebhookResult
	GetSubscriptionForUser(ctx context.Context, userID uuid.UUID) (*models.SubscriptionRecord, error)
	GetAvailablePlans() map[string]PlanConfig
}

type billingService struct {
	stripeSvc        StripeService
	subscriptionRepo repositories.SubscriptionRepository
	profileRepo      repositories.ProfileRepository
	cacheSvc         caching.CacheService
	archive          StorageService
	webhookSecret    string
}

// NewBillingService creates the reconciliation engine. archive and cacheSvc
// may be nil; both are best-effort side channels. profileRepo backs the last
// resort of the account-resolution fallback chain and may also be nil.
func NewBillingService(
	stripeSvc StripeService,
	subscriptionRepo repositories.SubscriptionRepository,
	profileRepo repositories.ProfileRepository,
	cacheSvc caching.CacheService,
	archive StorageService,
	webhookSecret string,
) BillingService {
	return &billingService{
		stripeSvc:        stripeSvc,
		subscriptionRepo: subscriptionRepo,
		profileRepo:      profileRepo,
		cacheSvc:         cacheSvc,
		archive:          archive,
		webhookSecret:    webhookSecret,
	}
}

// HandleBillingEvent verifies, parses and dispatches one provider event.
// Per-event processing failures are logged and still answered with 200 so the
// provider does not redeliver forever; the record stays stale until the next
// event. Only a missing secret or a bad signature is rejected.
func (s *billingService) HandleBillingEvent(ctx context.Context, payload []byte, signature string) *WebhookResult {
	if s.webhookSecret == "" {
		log.Printf("[billing] webhook secret not configured, refusing event")
		return &WebhookResult{StatusCode: http.StatusInternalServerError, Message: "webhook not configured"}
	}
	if signature == "" || !s.stripeSvc.VerifyWebhookSignature(payload, signature) {
		return &WebhookResult{StatusCode: http.StatusBadRequest, Message: "invalid signature"}
	}

	event, err := s.stripeSvc.ParseEvent(payload)
	if err != nil {
		log.Printf("[billing] unparseable event: %v", err)
		return &WebhookResult{StatusCode: http.StatusOK, Message: "ignored"}
	}

	s.archiveEvent(ctx, event.ID, payload)

	switch event.Type {
	case EventCheckoutCompleted:
		err = s.handleCheckoutCompleted(ctx, event)
	case EventSubscriptionCreated:
		err = s.handleSubscriptionCreated(ctx, event)
	case EventSubscriptionUpdated:
		err = s.handleSubscriptionUpdated(ctx, event)
	case EventSubscriptionDeleted:
		err = s.handleSubscriptionDeleted(ctx, event)
	case EventInvoicePaymentSucceeded, EventInvoicePaid:
		err = s.handleInvoicePaid(ctx, event)
	case EventInvoicePaymentFailed:
		// The provider's dunning schedule is trusted; deactivation waits for
		// the eventual customer.subscription.deleted.
		log.Printf("[billing] invoice payment failed, event %s", event.ID)
	case EventChargeRefunded:
		// Refunds do not imply cancellation.
		log.Printf("[billing] charge refunded, event %s", event.ID)
	default:
		log.Printf("[billing] unhandled event type %s", event.Type)
	}

	if err != nil {
		log.Printf("[billing] event %s (%s) failed: %v", event.ID, event.Type, err)
	}
	return &WebhookResult{StatusCode: http.StatusOK, Message: "received"}
}

func (s *billingService) archiveEvent(ctx context.Context, eventID string, payload []byte) {
	if s.archive == nil {
		return
	}
	if err := s.archive.ArchiveEvent(ctx, eventID, payload); err != nil {
		log.Printf("[billing] failed to archive event %s: %v", eventID, err)
	}
}

func (s *billingService) invalidateCache(ctx context.Context, userID uuid.UUID) {
	if s.cacheSvc == nil {
		return
	}
	if err := s.cacheSvc.DeleteSubscription(ctx, userID); err != nil {
		log.Printf("[billing] failed to invalidate subscription cache for %s: %v", userID, err)
	}
}

// writeRecord upserts keyed on customer id and falls back to a plain insert
// when the upsert fails.
func (s *billingService) writeRecord(ctx context.Context, record *models.SubscriptionRecord) error {
	if err := s.subscriptionRepo.Upsert(ctx, record); err != nil {
		log.Printf("[billing] upsert failed for customer %s, retrying as insert: %v", record.StripeCustomerID, err)
		if insErr := s.subscriptionRepo.Insert(ctx, record); insErr != nil {
			return insErr
		}
	}
	s.invalidateCache(ctx, record.UserID)
	return nil
}

func (s *billingService) recordFromSubscription(userID uuid.UUID, sub *StripeSubscription) *models.SubscriptionRecord {
	subID := sub.ID
	expires := s.expirationFor(sub)
	plan, known := availablePlans[sub.PriceID()]
	planName := plan.Name
	if !known {
		planName = "unknown"
	}
	status := sub.Status
	return &models.SubscriptionRecord{
		ID:                   uuid.New(),
		UserID:               userID,
		StripeCustomerID:     sub.Customer,
		StripeSubscriptionID: &subID,
		PlanActive:           status == models.SubscriptionStatusActive || status == models.SubscriptionStatusTrialing,
		PlanExpires:          &expires,
		PlanName:             planName,
		PriceID:              sub.PriceID(),
		Amount:               sub.Amount(),
		Currency:             sub.Currency(),
		Interval:             sub.Interval(),
		SubscriptionStatus:   status,
	}
}

func (s *billingService) expirationFor(sub *StripeSubscription) time.Time {
	if sub.CurrentPeriodEnd > 0 {
		return time.Unix(sub.CurrentPeriodEnd, 0)
	}
	return CalculatePlanExpiresFromInterval(sub.Interval(), time.Now())
}

func (s *billingService) handleCheckoutCompleted(ctx context.Context, event *WebhookEvent) error {
	session := &CheckoutSession{}
	if err := unmarshalObject(event, session); err != nil {
		return err
	}

	userIDStr := session.Metadata["user_id"]
	if userIDStr == "" || session.Customer == "" || session.Subscription == "" {
		// Incomplete checkout payloads are dropped rather than errored so the
		// provider does not retry indefinitely.
		log.Printf("[billing] checkout session %s missing user/customer/subscription, skipping", session.ID)
		return nil
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		log.Printf("[billing] checkout session %s has malformed user_id %q, skipping", session.ID, userIDStr)
		return nil
	}

	sub, err := s.stripeSvc.GetSubscription(ctx, session.Subscription)
	if err != nil {
		return err
	}
	return s.writeRecord(ctx, s.recordFromSubscription(userID, sub))
}

// handleSubscriptionCreated resolves the owning account via metadata, then
// the existing record for the customer, then the provider's customer
// metadata, then a profile lookup by the customer's email. Unresolvable
// events are dropped; checkout.session.completed is expected to complete the
// record later.
func (s *billingService) handleSubscriptionCreated(ctx context.Context, event *WebhookEvent) error {
	sub := &StripeSubscription{}
	if err := unmarshalObject(event, sub); err != nil {
		return err
	}

	userID, ok := s.resolveUserID(ctx, sub)
	if !ok {
		log.Printf("[billing] no account resolved for subscription %s, dropping (awaiting checkout completion)", sub.ID)
		return nil
	}
	return s.writeRecord(ctx, s.recordFromSubscription(userID, sub))
}

func (s *billingService) resolveUserID(ctx context.Context, sub *StripeSubscription) (uuid.UUID, bool) {
	if raw := sub.Metadata["user_id"]; raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			return id, true
		}
	}
	if existing, err := s.subscriptionRepo.GetByCustomerID(ctx, sub.Customer); err == nil && existing != nil {
		return existing.UserID, true
	}
	customer, err := s.stripeSvc.GetCustomer(ctx, sub.Customer)
	if err == nil && customer != nil {
		if raw := customer.Metadata["user_id"]; raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				return id, true
			}
		}
		if customer.Email != "" && s.profileRepo != nil {
			if profile, err := s.profileRepo.GetByEmail(ctx, customer.Email); err == nil && profile != nil {
				return profile.ID, true
			}
		}
	}
	return uuid.Nil, false
}

// ClassifySubscriptionUpdate applies the three-way classification precedence:
// cancellation when cancel_at_period_end and canceled_at are both set, then
// new_subscription when created equals current_period_start, else renewal.
func ClassifySubscriptionUpdate(sub *StripeSubscription) UpdateKind {
	if sub.CancelAtPeriodEnd && sub.CanceledAt != 0 {
		return UpdateCancellation
	}
	if sub.Created == sub.CurrentPeriodStart {
		return UpdateNewSubscription
	}
	return UpdateRenewal
}

func (s *billingService) handleSubscriptionUpdated(ctx context.Context, event *WebhookEvent) error {
	sub := &StripeSubscription{}
	if err := unmarshalObject(event, sub); err != nil {
		return err
	}

	existing, err := s.subscriptionRepo.GetBySubscriptionID(ctx, sub.ID)
	if err != nil || existing == nil {
		log.Printf("[billing] no record for subscription %s, treating update as create", sub.ID)
		return s.handleSubscriptionCreated(ctx, event)
	}

	subID := sub.ID
	expires := s.expirationFor(sub)
	record := &models.SubscriptionRecord{
		UserID:               existing.UserID,
		StripeCustomerID:     existing.StripeCustomerID,
		StripeSubscriptionID: &subID,
		PlanExpires:          &expires,
		PriceID:              sub.PriceID(),
		Amount:               sub.Amount(),
		Currency:             sub.Currency(),
		Interval:             sub.Interval(),
		SubscriptionStatus:   sub.Status,
	}

	plan, known := availablePlans[sub.PriceID()]
	if known {
		record.PlanName = plan.Name
	} else {
		record.PlanName = existing.PlanName
	}

	switch ClassifySubscriptionUpdate(sub) {
	case UpdateCancellation:
		// Scheduled end-of-period cancellation keeps access until the period
		// lapses; an already-canceled status loses it immediately.
		record.PlanActive = sub.CancelAtPeriodEnd && sub.Status != models.SubscriptionStatusCanceled
	case UpdateNewSubscription, UpdateRenewal:
		record.PlanActive = sub.Status == models.SubscriptionStatusActive || sub.Status == models.SubscriptionStatusTrialing
	}

	if err := s.subscriptionRepo.UpdateBySubscriptionID(ctx, record); err != nil {
		return err
	}
	s.invalidateCache(ctx, existing.UserID)
	return nil
}

func (s *billingService) handleSubscriptionDeleted(ctx context.Context, event *WebhookEvent) error {
	sub := &StripeSubscription{}
	if err := unmarshalObject(event, sub); err != nil {
		return err
	}
	existing, _ := s.subscriptionRepo.GetBySubscriptionID(ctx, sub.ID)
	if err := s.subscriptionRepo.Deactivate(ctx, sub.ID); err != nil {
		return err
	}
	if existing != nil {
		s.invalidateCache(ctx, existing.UserID)
	}
	return nil
}

// handleInvoicePaid is the authoritative payment-cleared signal: it re-fetches
// the subscription and force-activates the record, overriding any prior
// incomplete or past-due status. Replays converge on the same state.
func (s *billingService) handleInvoicePaid(ctx context.Context, event *WebhookEvent) error {
	invoice := &StripeInvoice{}
	if err := unmarshalObject(event, invoice); err != nil {
		return err
	}
	if !invoice.Paid || invoice.Subscription == "" {
		log.Printf("[billing] invoice %s not tied to a paid subscription, skipping", invoice.ID)
		return nil
	}

	sub, err := s.stripeSvc.GetSubscription(ctx, invoice.Subscription)
	if err != nil {
		return err
	}

	userID, ok := s.resolveUserID(ctx, sub)
	if !ok {
		log.Printf("[billing] no account resolved for paid invoice %s, skipping", invoice.ID)
		return nil
	}

	record := s.recordFromSubscription(userID, sub)
	record.SubscriptionStatus = models.SubscriptionStatusActive
	record.PlanActive = true
	return s.writeRecord(ctx, record)
}

func (s *billingService) GetSubscriptionForUser(ctx context.Context, userID uuid.UUID) (*models.SubscriptionRecord, error) {
	if s.cacheSvc != nil {
		if cached, err := s.cacheSvc.GetSubscription(ctx, userID); err == nil && cached != nil {
			return cached, nil
		}
	}
	record, err := s.subscriptionRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.cacheSvc != nil {
		if err := s.cacheSvc.SetSubscription(ctx, record, 5*time.Minute); err != nil {
			log.Printf("[billing] failed to cache subscription for %s: %v", userID, err)
		}
	}
	return record, nil
}

func (s *billingService) GetAvailablePlans() map[string]PlanConfig {
	result := make(map[string]PlanConfig, len(availablePlans))
	for k, v := range availablePlans {
		result[k] = v
	}
	return result
}

// CalculatePlanExpiresFromInterval computes the fallback expiration when the
// provider omits current_period_end. "month" adds one calendar month with the
// day-of-month clamped to the last valid day of the target month, "year" adds
// one year with Feb 29 clamped, anything else adds 30 days.
func CalculatePlanExpiresFromInterval(interval string, now time.Time) time.Time {
	switch interval {
	case "month":
		year, month, day := now.Date()
		month++
		if month > time.December {
			month = time.January
			year++
		}
		if last := daysInMonth(year, month); day > last {
			day = last
		}
		return time.Date(year, month, day, now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), now.Location())
	case "year":
		year, month, day := now.Date()
		year++
		if last := daysInMonth(year, month); day > last {
			day = last
		}
		return time.Date(year, month, day, now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), now.Location())
	default:
		return now.Add(30 * 24 * time.Hour)
	}
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func unmarshalObject(event *WebhookEvent, out any) error {
	if err := json.Unmarshal(event.Data.Object, out); err != nil {
		return fmt.Errorf("failed to decode %s object: %w", event.Type, err)
	}
	return nil
}
