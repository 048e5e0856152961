package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"sakan/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) Insert(ctx context.Context, record *models.SubscriptionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) Upsert(ctx context.Context, record *models.SubscriptionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.SubscriptionRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SubscriptionRecord), args.Error(1)
}

func (m *MockSubscriptionRepository) GetByCustomerID(ctx context.Context, customerID string) (*models.SubscriptionRecord, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SubscriptionRecord), args.Error(1)
}

func (m *MockSubscriptionRepository) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.SubscriptionRecord, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SubscriptionRecord), args.Error(1)
}

func (m *MockSubscriptionRepository) UpdateBySubscriptionID(ctx context.Context, record *models.SubscriptionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) Deactivate(ctx context.Context, subscriptionID string) error {
	args := m.Called(ctx, subscriptionID)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) ListExpiringWithin(ctx context.Context, window time.Duration) ([]*models.SubscriptionRecord, error) {
	args := m.Called(ctx, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SubscriptionRecord), args.Error(1)
}

type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockProfileRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockProfileRepository) UpdateRole(ctx context.Context, id uuid.UUID, role string) error {
	args := m.Called(ctx, id, role)
	return args.Error(0)
}

func (m *MockProfileRepository) SetVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	args := m.Called(ctx, id, verified)
	return args.Error(0)
}

func (m *MockProfileRepository) ResidentsOfResidence(ctx context.Context, residenceID uuid.UUID) ([]*models.Profile, error) {
	args := m.Called(ctx, residenceID)
	return args.Get(0).([]*models.Profile), args.Error(1)
}

func (m *MockProfileRepository) EnsureResidentLink(ctx context.Context, residenceID, profileID uuid.UUID) error {
	args := m.Called(ctx, residenceID, profileID)
	return args.Error(0)
}

func (m *MockProfileRepository) RemoveResidentLink(ctx context.Context, residenceID, profileID uuid.UUID) error {
	args := m.Called(ctx, residenceID, profileID)
	return args.Error(0)
}

func (m *MockProfileRepository) RemoveResidenceLinks(ctx context.Context, residenceID uuid.UUID) error {
	args := m.Called(ctx, residenceID)
	return args.Error(0)
}

func (m *MockProfileRepository) UpdateResidenceSyndic(ctx context.Context, residenceID, newSyndicID uuid.UUID) error {
	args := m.Called(ctx, residenceID, newSyndicID)
	return args.Error(0)
}

func (m *MockProfileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) SendAccessCode(ctx context.Context, email, code, actionType string) error {
	args := m.Called(ctx, email, code, actionType)
	return args.Error(0)
}

func (m *MockNotificationService) SendPlanExpiryAlert(ctx context.Context, email, planName string, expires time.Time) error {
	args := m.Called(ctx, email, planName, expires)
	return args.Error(0)
}

type PlanExpiryAlertTestSuite struct {
	suite.Suite
	mockSubs     *MockSubscriptionRepository
	mockProfiles *MockProfileRepository
	mockNotifier *MockNotificationService
	service      *PlanExpiryAlertService
	ctx          context.Context
}

func (suite *PlanExpiryAlertTestSuite) SetupTest() {
	suite.mockSubs = &MockSubscriptionRepository{}
	suite.mockProfiles = &MockProfileRepository{}
	suite.mockNotifier = &MockNotificationService{}
	suite.service = NewPlanExpiryAlertService(suite.mockSubs, suite.mockProfiles, suite.mockNotifier)
	suite.ctx = context.Background()

	suite.mockSubs.Test(suite.T())
	suite.mockProfiles.Test(suite.T())
	suite.mockNotifier.Test(suite.T())
}

func (suite *PlanExpiryAlertTestSuite) TearDownTest() {
	suite.mockSubs.AssertExpectations(suite.T())
	suite.mockProfiles.AssertExpectations(suite.T())
	suite.mockNotifier.AssertExpectations(suite.T())
}

func TestPlanExpiryAlertTestSuite(t *testing.T) {
	suite.Run(t, new(PlanExpiryAlertTestSuite))
}

func (suite *PlanExpiryAlertTestSuite) expiringRecord(userID uuid.UUID) *models.SubscriptionRecord {
	expires := time.Now().Add(3 * 24 * time.Hour)
	return &models.SubscriptionRecord{
		UserID:      userID,
		PlanActive:  true,
		PlanName:    "Essential",
		PlanExpires: &expires,
	}
}

func (suite *PlanExpiryAlertTestSuite) TestCheckExpiringPlans_ResolvesOwnerEmails() {
	userID := uuid.New()
	record := suite.expiringRecord(userID)

	suite.mockSubs.On("ListExpiringWithin", suite.ctx, DefaultExpiryWindow).
		Return([]*models.SubscriptionRecord{record}, nil)
	suite.mockProfiles.On("GetByID", suite.ctx, userID).
		Return(&models.Profile{ID: userID, Email: "syndic@example.test"}, nil)

	alerts, err := suite.service.CheckExpiringPlans(suite.ctx, 0)

	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), alerts, 1)
	assert.Equal(suite.T(), "syndic@example.test", alerts[0].Email)
	assert.Equal(suite.T(), "Essential", alerts[0].PlanName)
}

func (suite *PlanExpiryAlertTestSuite) TestCheckExpiringPlans_SkipsUnresolvableProfiles() {
	userID := uuid.New()
	record := suite.expiringRecord(userID)

	suite.mockSubs.On("ListExpiringWithin", suite.ctx, DefaultExpiryWindow).
		Return([]*models.SubscriptionRecord{record}, nil)
	suite.mockProfiles.On("GetByID", suite.ctx, userID).Return(nil, errors.New("no rows"))

	alerts, err := suite.service.CheckExpiringPlans(suite.ctx, DefaultExpiryWindow)

	assert.NoError(suite.T(), err)
	assert.Empty(suite.T(), alerts)
}

func (suite *PlanExpiryAlertTestSuite) TestSendAlerts_ContinuesPastFailures() {
	expires := time.Now().Add(24 * time.Hour)
	alerts := []PlanExpiryAlert{
		{Email: "first@example.test", PlanName: "Essential", Expires: expires},
		{Email: "second@example.test", PlanName: "Premium", Expires: expires},
	}

	suite.mockNotifier.On("SendPlanExpiryAlert", suite.ctx, "first@example.test", "Essential", expires).
		Return(errors.New("smtp down"))
	suite.mockNotifier.On("SendPlanExpiryAlert", suite.ctx, "second@example.test", "Premium", expires).
		Return(nil)

	suite.service.SendAlerts(suite.ctx, alerts)
}

func (suite *PlanExpiryAlertTestSuite) TestScheduledExpiryCheck_PropagatesListError() {
	suite.mockSubs.On("ListExpiringWithin", suite.ctx, DefaultExpiryWindow).
		Return(nil, errors.New("db down"))

	err := suite.service.ScheduledExpiryCheck(suite.ctx)

	assert.Error(suite.T(), err)
}
