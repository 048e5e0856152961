package jobs

import (
	"context"
	"log"
	"time"

	"sakan/internal/repositories"
	"sakan/internal/services"

	"github.com/google/uuid"
)

// Subscriptions expiring within this window trigger an alert email.
const DefaultExpiryWindow = 7 * 24 * time.Hour

// PlanExpiryAlertService finds accounts whose plan runs out soon and notifies
// the owning manager so the residence does not silently lose dashboard access.
type PlanExpiryAlertService struct {
	subscriptionRepo repositories.SubscriptionRepository
	profileRepo      repositories.ProfileRepository
	notifier         services.NotificationService
}

// PlanExpiryAlert is one subscription approaching its expiry date.
type PlanExpiryAlert struct {
	UserID   uuid.UUID
	Email    string
	PlanName string
	Expires  time.Time
}

func NewPlanExpiryAlertService(
	subscriptionRepo repositories.SubscriptionRepository,
	profileRepo repositories.ProfileRepository,
	notifier services.NotificationService,
) *PlanExpiryAlertService {
	return &PlanExpiryAlertService{
		subscriptionRepo: subscriptionRepo,
		profileRepo:      profileRepo,
		notifier:         notifier,
	}
}

// CheckExpiringPlans collects active subscriptions whose plan_expires falls
// within the window. Profiles that cannot be resolved are skipped with a log
// line rather than aborting the sweep.
func (a *PlanExpiryAlertService) CheckExpiringPlans(ctx context.Context, window time.Duration) ([]PlanExpiryAlert, error) {
	if window <= 0 {
		window = DefaultExpiryWindow
	}

	records, err := a.subscriptionRepo.ListExpiringWithin(ctx, window)
	if err != nil {
		log.Printf("[jobs] failed to list expiring subscriptions: %v", err)
		return nil, err
	}

	var alerts []PlanExpiryAlert
	for _, rec := range records {
		if rec.PlanExpires == nil {
			continue
		}
		profile, err := a.profileRepo.GetByID(ctx, rec.UserID)
		if err != nil || profile == nil {
			log.Printf("[jobs] no profile for subscription owner %s: %v", rec.UserID, err)
			continue
		}
		alerts = append(alerts, PlanExpiryAlert{
			UserID:   rec.UserID,
			Email:    profile.Email,
			PlanName: rec.PlanName,
			Expires:  *rec.PlanExpires,
		})
	}
	return alerts, nil
}

// SendAlerts delivers each alert, continuing past individual failures.
func (a *PlanExpiryAlertService) SendAlerts(ctx context.Context, alerts []PlanExpiryAlert) {
	if len(alerts) == 0 {
		log.Println("[jobs] no plan expiry alerts to send")
		return
	}
	for _, alert := range alerts {
		if err := a.notifier.SendPlanExpiryAlert(ctx, alert.Email, alert.PlanName, alert.Expires); err != nil {
			log.Printf("[jobs] failed to send expiry alert to %s: %v", alert.Email, err)
		}
	}
	log.Printf("[jobs] sent %d plan expiry alerts", len(alerts))
}

// ScheduledExpiryCheck is the scheduler entry point.
func (a *PlanExpiryAlertService) ScheduledExpiryCheck(ctx context.Context) error {
	log.Println("[jobs] starting plan expiry sweep")

	alerts, err := a.CheckExpiringPlans(ctx, DefaultExpiryWindow)
	if err != nil {
		log.Printf("[jobs] plan expiry sweep failed: %v", err)
		return err
	}
	a.SendAlerts(ctx, alerts)

	log.Println("[jobs] plan expiry sweep completed")
	return nil
}
