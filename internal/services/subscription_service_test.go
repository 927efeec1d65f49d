package services

import (
	"context"
	"testing"
	"time"

	"lumiscan/internal/models"
	"lumiscan/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type SubscriptionServiceTestSuite struct {
	suite.Suite
	mockSubRepo  *MockSubscriptionRepository
	mockPlanRepo *MockPlanRepository
	service      SubscriptionService
	userID       uuid.UUID
	context      context.Context
}

func (suite *SubscriptionServiceTestSuite) SetupTest() {
	suite.mockSubRepo = new(MockSubscriptionRepository)
	suite.mockPlanRepo = new(MockPlanRepository)
	suite.service = NewSubscriptionService(suite.mockSubRepo, suite.mockPlanRepo)
	suite.userID = uuid.New()
	suite.context = context.Background()
}

func TestSubscriptionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SubscriptionServiceTestSuite))
}

func (suite *SubscriptionServiceTestSuite) TestCreate_StartsPending() {
	plan := basicPlan()
	suite.mockPlanRepo.On("GetByName", suite.context, "Basic").Return(plan, nil)
	suite.mockSubRepo.On("Create", suite.context, mock.AnythingOfType("*models.UserSubscription")).Return(nil)

	subscription, err := suite.service.Create(suite.context, suite.userID, "Basic")

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.SubscriptionStatusPending, subscription.Status)
	assert.Equal(suite.T(), suite.userID, subscription.UserID)
	assert.Equal(suite.T(), plan.ID, subscription.PlanID)
	assert.Equal(suite.T(), 0, subscription.UsageCount)
	assert.True(suite.T(), subscription.AutoRenew)
	assert.True(suite.T(), subscription.CurrentPeriodEnd.After(subscription.CurrentPeriodStart))
}

func (suite *SubscriptionServiceTestSuite) TestCreate_RejectsInactivePlan() {
	plan := basicPlan()
	plan.IsActive = false
	suite.mockPlanRepo.On("GetByName", suite.context, "Basic").Return(plan, nil)

	_, err := suite.service.Create(suite.context, suite.userID, "Basic")

	assert.Error(suite.T(), err)
	suite.mockSubRepo.AssertNotCalled(suite.T(), "Create")
}

func (suite *SubscriptionServiceTestSuite) TestActivate_AlreadyActiveIsNoOp() {
	subscription := activeSubscription(suite.userID, 0)
	suite.mockSubRepo.On("GetByID", suite.context, suite.userID, subscription.ID).Return(subscription, nil)

	err := suite.service.Activate(suite.context, suite.userID, subscription.ID)

	assert.NoError(suite.T(), err)
	suite.mockSubRepo.AssertNotCalled(suite.T(), "UpdateStatus")
}

func (suite *SubscriptionServiceTestSuite) TestActivate_SecondActiveRejected() {
	// The store's single-active constraint fires; the error surfaces as-is.
	subscription := activeSubscription(suite.userID, 0)
	subscription.Status = models.SubscriptionStatusPending
	suite.mockSubRepo.On("GetByID", suite.context, suite.userID, subscription.ID).Return(subscription, nil)
	suite.mockSubRepo.On("UpdateStatus", suite.context, suite.userID, subscription.ID, models.SubscriptionStatusActive).
		Return(repositories.ErrDuplicateActiveSubscription)

	err := suite.service.Activate(suite.context, suite.userID, subscription.ID)

	assert.ErrorIs(suite.T(), err, repositories.ErrDuplicateActiveSubscription)
}

func (suite *SubscriptionServiceTestSuite) TestCancel() {
	subscription := activeSubscription(suite.userID, 2)
	suite.mockSubRepo.On("GetByID", suite.context, suite.userID, subscription.ID).Return(subscription, nil)
	suite.mockSubRepo.On("Update", suite.context, subscription).Return(nil)

	err := suite.service.Cancel(suite.context, suite.userID, subscription.ID)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.SubscriptionStatusCancelled, subscription.Status)
	assert.NotNil(suite.T(), subscription.CancelledAt)
	assert.False(suite.T(), subscription.AutoRenew)
}

func (suite *SubscriptionServiceTestSuite) TestPause_OnlyActive() {
	subscription := activeSubscription(suite.userID, 2)
	subscription.Status = models.SubscriptionStatusCancelled
	suite.mockSubRepo.On("GetByID", suite.context, suite.userID, subscription.ID).Return(subscription, nil)

	err := suite.service.Pause(suite.context, suite.userID, subscription.ID, nil)

	assert.Error(suite.T(), err)
	suite.mockSubRepo.AssertNotCalled(suite.T(), "Update")
}

func (suite *SubscriptionServiceTestSuite) TestPauseAndResume() {
	subscription := activeSubscription(suite.userID, 2)
	resumesAt := time.Now().AddDate(0, 0, 14)
	suite.mockSubRepo.On("GetByID", suite.context, suite.userID, subscription.ID).Return(subscription, nil)
	suite.mockSubRepo.On("Update", suite.context, subscription).Return(nil)

	err := suite.service.Pause(suite.context, suite.userID, subscription.ID, &resumesAt)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.SubscriptionStatusPaused, subscription.Status)
	assert.NotNil(suite.T(), subscription.PausedAt)
	assert.Equal(suite.T(), &resumesAt, subscription.ResumesAt)

	err = suite.service.Resume(suite.context, suite.userID, subscription.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.SubscriptionStatusActive, subscription.Status)
	assert.Nil(suite.T(), subscription.PausedAt)
	assert.Nil(suite.T(), subscription.ResumesAt)
}

func (suite *SubscriptionServiceTestSuite) TestChangePlan() {
	subscription := activeSubscription(suite.userID, 2)
	newPlan := basicPlan()
	newPlan.PlanName = "Pro"
	suite.mockPlanRepo.On("GetByName", suite.context, "Pro").Return(newPlan, nil)
	suite.mockSubRepo.On("GetByID", suite.context, suite.userID, subscription.ID).Return(subscription, nil)
	suite.mockSubRepo.On("Update", suite.context, subscription).Return(nil)

	err := suite.service.ChangePlan(suite.context, suite.userID, subscription.ID, "Pro")

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), newPlan.ID, subscription.PlanID)
}
