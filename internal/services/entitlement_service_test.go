package services

import (
	"context"
	"testing"
	"time"

	"lumiscan/internal/models"
	"lumiscan/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type EntitlementServiceTestSuite struct {
	suite.Suite
	mockRepo *MockSubscriptionRepository
	service  EntitlementService
	userID   uuid.UUID
	context  context.Context
}

func (suite *EntitlementServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockSubscriptionRepository)
	suite.service = NewEntitlementService(suite.mockRepo)
	suite.userID = uuid.New()
	suite.context = context.Background()
}

func TestEntitlementServiceTestSuite(t *testing.T) {
	suite.Run(t, new(EntitlementServiceTestSuite))
}

func activeSubscription(userID uuid.UUID, usageCount int) *models.UserSubscription {
	now := time.Now()
	return &models.UserSubscription{
		ID:                 uuid.New(),
		UserID:             userID,
		PlanID:             uuid.New(),
		Status:             models.SubscriptionStatusActive,
		CurrentPeriodStart: now.AddDate(0, -1, 0),
		CurrentPeriodEnd:   now.AddDate(0, 0, 10),
		UsageCount:         usageCount,
		AutoRenew:          true,
	}
}

func basicPlan() *models.SubscriptionPlan {
	return &models.SubscriptionPlan{
		ID:           uuid.New(),
		PlanName:     "Basic",
		Price:        499,
		MonthlyLimit: 5,
		IsActive:     true,
	}
}

func (suite *EntitlementServiceTestSuite) TestCheck_NoSubscription() {
	suite.mockRepo.On("GetActiveWithPlan", suite.context, suite.userID).
		Return(nil, nil, repositories.ErrNoActiveSubscription)

	entitlement, err := suite.service.Check(suite.context, suite.userID)

	assert.NoError(suite.T(), err)
	assert.False(suite.T(), entitlement.CanAnalyze)
	assert.Equal(suite.T(), 0, entitlement.Remaining)
	assert.Equal(suite.T(), "none", entitlement.Status)
	assert.Equal(suite.T(), "none", entitlement.PlanName)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *EntitlementServiceTestSuite) TestCheck_UnderLimit() {
	suite.mockRepo.On("GetActiveWithPlan", suite.context, suite.userID).
		Return(activeSubscription(suite.userID, 3), basicPlan(), nil)

	entitlement, err := suite.service.Check(suite.context, suite.userID)

	assert.NoError(suite.T(), err)
	assert.True(suite.T(), entitlement.CanAnalyze)
	assert.Equal(suite.T(), 2, entitlement.Remaining)
	assert.Equal(suite.T(), "active", entitlement.Status)
	assert.Equal(suite.T(), "Basic", entitlement.PlanName)
}

func (suite *EntitlementServiceTestSuite) TestCheck_AtLimit() {
	suite.mockRepo.On("GetActiveWithPlan", suite.context, suite.userID).
		Return(activeSubscription(suite.userID, 5), basicPlan(), nil)

	entitlement, err := suite.service.Check(suite.context, suite.userID)

	assert.NoError(suite.T(), err)
	assert.False(suite.T(), entitlement.CanAnalyze)
	assert.Equal(suite.T(), 0, entitlement.Remaining)
	assert.Equal(suite.T(), "active", entitlement.Status)
	assert.Equal(suite.T(), "Basic", entitlement.PlanName)
}

func (suite *EntitlementServiceTestSuite) TestCheck_AfterReset() {
	// Counter back to zero at the start of a fresh cycle restores the full
	// allowance.
	suite.mockRepo.On("GetActiveWithPlan", suite.context, suite.userID).
		Return(activeSubscription(suite.userID, 0), basicPlan(), nil)

	entitlement, err := suite.service.Check(suite.context, suite.userID)

	assert.NoError(suite.T(), err)
	assert.True(suite.T(), entitlement.CanAnalyze)
	assert.Equal(suite.T(), 5, entitlement.Remaining)
}

func (suite *EntitlementServiceTestSuite) TestCheck_OverLimitClampsToZero() {
	// A limit lowered mid-cycle can leave the counter above it; remaining
	// never goes negative.
	suite.mockRepo.On("GetActiveWithPlan", suite.context, suite.userID).
		Return(activeSubscription(suite.userID, 8), basicPlan(), nil)

	entitlement, err := suite.service.Check(suite.context, suite.userID)

	assert.NoError(suite.T(), err)
	assert.False(suite.T(), entitlement.CanAnalyze)
	assert.Equal(suite.T(), 0, entitlement.Remaining)
}

func (suite *EntitlementServiceTestSuite) TestConsume_DefaultsAnalysisType() {
	suite.mockRepo.On("ConsumeUsage", suite.context, suite.userID, (*uuid.UUID)(nil), "skin_analysis").
		Return(4, nil)

	newCount, err := suite.service.Consume(suite.context, suite.userID, nil, "")

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 4, newCount)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *EntitlementServiceTestSuite) TestConsume_QuotaExhausted() {
	suite.mockRepo.On("ConsumeUsage", suite.context, suite.userID, (*uuid.UUID)(nil), "skin_analysis").
		Return(0, repositories.ErrQuotaExhausted)

	_, err := suite.service.Consume(suite.context, suite.userID, nil, "skin_analysis")

	assert.ErrorIs(suite.T(), err, repositories.ErrQuotaExhausted)
}

func (suite *EntitlementServiceTestSuite) TestDetails() {
	subscription := activeSubscription(suite.userID, 3)
	suite.mockRepo.On("GetActiveWithPlan", suite.context, suite.userID).
		Return(subscription, basicPlan(), nil)

	details, err := suite.service.Details(suite.context, suite.userID)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), subscription.ID, details.SubscriptionID)
	assert.Equal(suite.T(), models.SubscriptionStatusActive, details.Status)
	assert.Equal(suite.T(), "Basic", details.PlanName)
	assert.Equal(suite.T(), 5, details.MonthlyLimit)
	assert.Equal(suite.T(), 3, details.UsageCount)
	assert.Equal(suite.T(), 2, details.Remaining)
	assert.True(suite.T(), details.AutoRenew)
}

func (suite *EntitlementServiceTestSuite) TestDetails_NoSubscription() {
	suite.mockRepo.On("GetActiveWithPlan", suite.context, suite.userID).
		Return(nil, nil, repositories.ErrNoActiveSubscription)

	details, err := suite.service.Details(suite.context, suite.userID)

	assert.ErrorIs(suite.T(), err, repositories.ErrNoActiveSubscription)
	assert.Nil(suite.T(), details)
}
