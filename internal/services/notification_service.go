package services

import (
	"context"
	"log"
	"time"
)

// NotificationService is the outbound email seam. The hosted deployment
// plugs a real mailer in; the default implementation logs.
type NotificationService interface {
	SendAccessCode(ctx context.Context, email, code, actionType string) error
	SendPlanExpiryAlert(ctx context.Context, email, planName string, expires time.Time) error
}

type logNotificationService struct{}

func NewLogNotificationService() NotificationService {
	return &logNotificationService{}
}

func (s *logNotificationService) SendAccessCode(_ context.Context, email, code, actionType string) error {
	log.Printf("[notify] access code %s (%s) for %s", code, actionType, email)
	return nil
}

func (s *logNotificationService) SendPlanExpiryAlert(_ context.Context, email, planName string, expires time.Time) error {
	log.Printf("[notify] plan %s for %s expires %s", planName, email, expires.Format(time.RFC3339))
	return nil
}
