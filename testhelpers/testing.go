package testhelpers

import (
	"context"
	"os"
	"testing"
	"time"

	"sakan/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TestDB holds the database connection for integration tests.
type TestDB struct {
	Pool    *pgxpool.Pool
	Cleanup func() error
}

// SetupTestDB creates a pooled connection for testing.
func SetupTestDB(t *testing.T, connString string) *TestDB {
	t.Helper()

	if connString == "" {
		connString = os.Getenv("TEST_DATABASE_URL")
		if connString == "" {
			connString = "host=localhost port=5432 user=postgres password=postgres dbname=sakan_test sslmode=disable"
		}
	}

	pool, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	return &TestDB{
		Pool: pool,
		Cleanup: func() error {
			pool.Close()
			return nil
		},
	}
}

// SetupTestProfile inserts a profile row with the given role.
func SetupTestProfile(t *testing.T, db *TestDB, role string, residenceID *uuid.UUID) *models.Profile {
	t.Helper()

	profile := &models.Profile{
		ID:          uuid.New(),
		Email:       uuid.NewString() + "@example.test",
		Role:        role,
		ResidenceID: residenceID,
		Verified:    true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	query := `
		INSERT INTO profiles (id, email, role, residence_id, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := db.Pool.Exec(context.Background(), query,
		profile.ID, profile.Email, profile.Role, profile.ResidenceID, profile.Verified,
		profile.CreatedAt, profile.UpdatedAt)
	if err != nil {
		t.Fatalf("Failed to create test profile: %v", err)
	}

	return profile
}

// SetupTestResidence inserts a residence managed by the given syndic.
func SetupTestResidence(t *testing.T, db *TestDB, syndicID uuid.UUID) uuid.UUID {
	t.Helper()

	residenceID := uuid.New()
	query := `
		INSERT INTO residences (id, name, syndic_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := db.Pool.Exec(context.Background(), query, residenceID, "Test Residence", syndicID, time.Now(), time.Now())
	if err != nil {
		t.Fatalf("Failed to create test residence: %v", err)
	}

	return residenceID
}

// SetupTestSubscription inserts an active subscription for the given account.
func SetupTestSubscription(t *testing.T, db *TestDB, userID uuid.UUID) *models.SubscriptionRecord {
	t.Helper()

	expires := time.Now().Add(30 * 24 * time.Hour)
	subID := "sub_test_" + uuid.NewString()[:8]
	record := &models.SubscriptionRecord{
		ID:                   uuid.New(),
		UserID:               userID,
		StripeCustomerID:     "cus_test_" + uuid.NewString()[:8],
		StripeSubscriptionID: &subID,
		PlanActive:           true,
		PlanExpires:          &expires,
		PlanName:             "Essential",
		PriceID:              "price_sakan_essential_monthly",
		Amount:               199,
		Currency:             "mad",
		Interval:             "month",
		SubscriptionStatus:   models.SubscriptionStatusActive,
		CreatedAt:            time.Now(),
		UpdatedAt:            time.Now(),
	}

	query := `
		INSERT INTO subscriptions (id, user_id, stripe_customer_id, stripe_subscription_id,
			plan_active, plan_expires, plan_name, price_id, amount, currency, billing_interval,
			subscription_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := db.Pool.Exec(context.Background(), query,
		record.ID, record.UserID, record.StripeCustomerID, record.StripeSubscriptionID,
		record.PlanActive, record.PlanExpires, record.PlanName, record.PriceID,
		record.Amount, record.Currency, record.Interval, record.SubscriptionStatus,
		record.CreatedAt, record.UpdatedAt)
	if err != nil {
		t.Fatalf("Failed to create test subscription: %v", err)
	}

	return record
}
