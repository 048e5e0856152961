package repositories

import (
	"context"
	"testing"
	"time"

	"sakan/internal/models"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type SubscriptionRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    SubscriptionRepository
	userID  uuid.UUID
	context context.Context
}

func (suite *SubscriptionRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewSubscriptionRepo(mock)
	suite.userID = uuid.New()
	suite.context = context.Background()
}

func (suite *SubscriptionRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestSubscriptionRepoTestSuite(t *testing.T) {
	suite.Run(t, new(SubscriptionRepoTestSuite))
}

func (suite *SubscriptionRepoTestSuite) sampleRecord() *models.SubscriptionRecord {
	subID := "sub_123"
	expires := time.Now().Add(30 * 24 * time.Hour)
	return &models.SubscriptionRecord{
		ID:                   uuid.New(),
		UserID:               suite.userID,
		StripeCustomerID:     "cus_123",
		StripeSubscriptionID: &subID,
		PlanActive:           true,
		PlanExpires:          &expires,
		PlanName:             "Essential",
		PriceID:              "price_sakan_essential_monthly",
		Amount:               199,
		Currency:             "mad",
		Interval:             "month",
		SubscriptionStatus:   models.SubscriptionStatusActive,
	}
}

func (suite *SubscriptionRepoTestSuite) subscriptionRows(record *models.SubscriptionRecord) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "user_id", "stripe_customer_id", "stripe_subscription_id", "plan_active",
		"plan_expires", "plan_name", "price_id", "amount", "currency", "billing_interval",
		"subscription_status", "created_at", "updated_at",
	}).AddRow(
		record.ID, record.UserID, record.StripeCustomerID, record.StripeSubscriptionID,
		record.PlanActive, record.PlanExpires, record.PlanName, record.PriceID,
		record.Amount, record.Currency, record.Interval, record.SubscriptionStatus,
		time.Now(), time.Now(),
	)
}

func (suite *SubscriptionRepoTestSuite) TestUpsert_ConflictsOnCustomerID() {
	record := suite.sampleRecord()

	suite.mock.ExpectExec(`INSERT INTO subscriptions .+ ON CONFLICT \(stripe_customer_id\) DO UPDATE SET`).
		WithArgs(record.ID, record.UserID, record.StripeCustomerID, record.StripeSubscriptionID,
			record.PlanActive, record.PlanExpires, record.PlanName, record.PriceID,
			record.Amount, record.Currency, record.Interval, record.SubscriptionStatus).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := suite.repo.Upsert(suite.context, record)
	assert.NoError(suite.T(), err)
}

func (suite *SubscriptionRepoTestSuite) TestGetByUserID_Found() {
	record := suite.sampleRecord()

	suite.mock.ExpectQuery(`SELECT .+ FROM subscriptions WHERE user_id = \$1`).
		WithArgs(suite.userID).
		WillReturnRows(suite.subscriptionRows(record))

	got, err := suite.repo.GetByUserID(suite.context, suite.userID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), record.StripeCustomerID, got.StripeCustomerID)
	assert.True(suite.T(), got.PlanActive)
}

func (suite *SubscriptionRepoTestSuite) TestGetBySubscriptionID_NotFound() {
	suite.mock.ExpectQuery(`SELECT .+ FROM subscriptions WHERE stripe_subscription_id = \$1`).
		WithArgs("sub_missing").
		WillReturnError(pgx.ErrNoRows)

	got, err := suite.repo.GetBySubscriptionID(suite.context, "sub_missing")
	assert.Error(suite.T(), err)
	assert.Nil(suite.T(), got)
}

func (suite *SubscriptionRepoTestSuite) TestUpdateBySubscriptionID() {
	record := suite.sampleRecord()

	suite.mock.ExpectExec(`UPDATE subscriptions\s+SET plan_active = \$1`).
		WithArgs(record.PlanActive, record.PlanExpires, record.PlanName, record.PriceID,
			record.Amount, record.Currency, record.Interval, record.SubscriptionStatus,
			record.StripeSubscriptionID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.UpdateBySubscriptionID(suite.context, record)
	assert.NoError(suite.T(), err)
}

func (suite *SubscriptionRepoTestSuite) TestDeactivate_NullsProviderFields() {
	suite.mock.ExpectExec(`UPDATE subscriptions\s+SET plan_active = FALSE, stripe_subscription_id = NULL, plan_expires = NULL, subscription_status = 'canceled'`).
		WithArgs("sub_123").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.Deactivate(suite.context, "sub_123")
	assert.NoError(suite.T(), err)
}

func (suite *SubscriptionRepoTestSuite) TestListExpiringWithin() {
	record := suite.sampleRecord()

	suite.mock.ExpectQuery(`SELECT .+ FROM subscriptions\s+WHERE plan_active = TRUE AND plan_expires IS NOT NULL`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(suite.subscriptionRows(record))

	records, err := suite.repo.ListExpiringWithin(suite.context, 7*24*time.Hour)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), records, 1)
	assert.Equal(suite.T(), suite.userID, records[0].UserID)
}
