package repositories

import (
	"context"
	"time"

	"sakan/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type SubscriptionRepository interface {
	Insert(ctx context.Context, record *models.SubscriptionRecord) error
	Upsert(ctx context.Context, record *models.SubscriptionRecord) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.SubscriptionRecord, error)
	GetByCustomerID(ctx context.Context, customerID string) (*models.SubscriptionRecord, error)
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.SubscriptionRecord, error)
	UpdateBySubscriptionID(ctx context.Context, record *models.SubscriptionRecord) error
	Deactivate(ctx context.Context, subscriptionID string) error
	ListExpiringWithin(ctx context.Context, window time.Duration) ([]*models.SubscriptionRecord, error)
}

type subscriptionRepo struct {
	db Database
}

func NewSubscriptionRepo(db Database) SubscriptionRepository {
	return &subscriptionRepo{db: db}
}

const subscriptionColumns = `id, user_id, stripe_customer_id, stripe_subscription_id, plan_active, plan_expires, plan_name, price_id, amount, currency, billing_interval, subscription_status, created_at, updated_at`

func (r *subscriptionRepo) Insert(ctx context.Context, record *models.SubscriptionRecord) error {
	query := `
		INSERT INTO subscriptions (id, user_id, stripe_customer_id, stripe_subscription_id, plan_active, plan_expires, plan_name, price_id, amount, currency, billing_interval, subscription_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, record.ID, record.UserID, record.StripeCustomerID, record.StripeSubscriptionID, record.PlanActive, record.PlanExpires, record.PlanName, record.PriceID, record.Amount, record.Currency, record.Interval, record.SubscriptionStatus)
	return err
}

// Upsert writes the record keyed on stripe_customer_id. Concurrent webhook
// deliveries for the same subscription resolve last-write-wins; the provider
// delivers near-in-order and no sequence column exists.
func (r *subscriptionRepo) Upsert(ctx context.Context, record *models.SubscriptionRecord) error {
	query := `
		INSERT INTO subscriptions (id, user_id, stripe_customer_id, stripe_subscription_id, plan_active, plan_expires, plan_name, price_id, amount, currency, billing_interval, subscription_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		ON CONFLICT (stripe_customer_id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			stripe_subscription_id = EXCLUDED.stripe_subscription_id,
			plan_active = EXCLUDED.plan_active,
			plan_expires = EXCLUDED.plan_expires,
			plan_name = EXCLUDED.plan_name,
			price_id = EXCLUDED.price_id,
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			billing_interval = EXCLUDED.billing_interval,
			subscription_status = EXCLUDED.subscription_status,
			updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, record.ID, record.UserID, record.StripeCustomerID, record.StripeSubscriptionID, record.PlanActive, record.PlanExpires, record.PlanName, record.PriceID, record.Amount, record.Currency, record.Interval, record.SubscriptionStatus)
	return err
}

func (r *subscriptionRepo) scanOne(row pgx.Row) (*models.SubscriptionRecord, error) {
	record := &models.SubscriptionRecord{}
	err := row.Scan(&record.ID, &record.UserID, &record.StripeCustomerID, &record.StripeSubscriptionID, &record.PlanActive, &record.PlanExpires, &record.PlanName, &record.PriceID, &record.Amount, &record.Currency, &record.Interval, &record.SubscriptionStatus, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *subscriptionRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.SubscriptionRecord, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, userID))
}

func (r *subscriptionRepo) GetByCustomerID(ctx context.Context, customerID string) (*models.SubscriptionRecord, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE stripe_customer_id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, customerID))
}

func (r *subscriptionRepo) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.SubscriptionRecord, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE stripe_subscription_id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, subscriptionID))
}

func (r *subscriptionRepo) UpdateBySubscriptionID(ctx context.Context, record *models.SubscriptionRecord) error {
	query := `
		UPDATE subscriptions
		SET plan_active = $1, plan_expires = $2, plan_name = $3, price_id = $4, amount = $5, currency = $6, billing_interval = $7, subscription_status = $8, updated_at = NOW()
		WHERE stripe_subscription_id = $9
	`
	_, err := r.db.Exec(ctx, query, record.PlanActive, record.PlanExpires, record.PlanName, record.PriceID, record.Amount, record.Currency, record.Interval, record.SubscriptionStatus, record.StripeSubscriptionID)
	return err
}

// Deactivate hard-deactivates on definitive cancellation: fields are nulled,
// the row is kept.
func (r *subscriptionRepo) Deactivate(ctx context.Context, subscriptionID string) error {
	query := `
		UPDATE subscriptions
		SET plan_active = FALSE, stripe_subscription_id = NULL, plan_expires = NULL, subscription_status = 'canceled', updated_at = NOW()
		WHERE stripe_subscription_id = $1
	`
	_, err := r.db.Exec(ctx, query, subscriptionID)
	return err
}

func (r *subscriptionRepo) ListExpiringWithin(ctx context.Context, window time.Duration) ([]*models.SubscriptionRecord, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE plan_active = TRUE AND plan_expires IS NOT NULL AND plan_expires BETWEEN NOW() AND $1
		ORDER BY plan_expires ASC
	`
	rows, err := r.db.Query(ctx, query, time.Now().Add(window))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.SubscriptionRecord
	for rows.Next() {
		record := &models.SubscriptionRecord{}
		if err := rows.Scan(&record.ID, &record.UserID, &record.StripeCustomerID, &record.StripeSubscriptionID, &record.PlanActive, &record.PlanExpires, &record.PlanName, &record.PriceID, &record.Amount, &record.Currency, &record.Interval, &record.SubscriptionStatus, &record.CreatedAt, &record.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
