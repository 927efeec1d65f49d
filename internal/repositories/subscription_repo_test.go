package repositories

import (
	"context"
	"testing"
	"time"

	"lumiscan/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type SubscriptionRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    SubscriptionRepository
	userID  uuid.UUID
	subID   uuid.UUID
	planID  uuid.UUID
	context context.Context
}

func (suite *SubscriptionRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewSubscriptionRepo(mock)
	suite.userID = uuid.New()
	suite.subID = uuid.New()
	suite.planID = uuid.New()
	suite.context = context.Background()
}

func (suite *SubscriptionRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestSubscriptionRepoTestSuite(t *testing.T) {
	suite.Run(t, new(SubscriptionRepoTestSuite))
}

func (suite *SubscriptionRepoTestSuite) activeRow() *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows([]string{
		"id", "user_id", "plan_id", "status", "external_subscription_id",
		"current_period_start", "current_period_end", "usage_count", "auto_renew",
		"cancelled_at", "paused_at", "resumes_at", "created_at", "updated_at",
		"p_id", "plan_name", "price", "monthly_limit", "external_plan_id",
		"features", "is_active", "p_created_at", "p_updated_at",
	}).AddRow(
		suite.subID, suite.userID, suite.planID, models.SubscriptionStatusActive, (*string)(nil),
		now.AddDate(0, -1, 0), now.AddDate(0, 0, 10), 3, true,
		(*time.Time)(nil), (*time.Time)(nil), (*time.Time)(nil), now, now,
		suite.planID, "Basic", 499.0, 5, (*string)(nil),
		[]string{"5 analyses per month"}, true, now, now,
	)
}

func (suite *SubscriptionRepoTestSuite) TestGetActiveWithPlan_Success() {
	suite.mock.ExpectQuery(`SELECT s.id, s.user_id, s.plan_id, s.status`).
		WithArgs(suite.userID).
		WillReturnRows(suite.activeRow())

	sub, plan, err := suite.repo.GetActiveWithPlan(suite.context, suite.userID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.subID, sub.ID)
	assert.Equal(suite.T(), models.SubscriptionStatusActive, sub.Status)
	assert.Equal(suite.T(), 3, sub.UsageCount)
	assert.Equal(suite.T(), "Basic", plan.PlanName)
	assert.Equal(suite.T(), 5, plan.MonthlyLimit)
}

func (suite *SubscriptionRepoTestSuite) TestGetActiveWithPlan_None() {
	suite.mock.ExpectQuery(`SELECT s.id, s.user_id, s.plan_id, s.status`).
		WithArgs(suite.userID).
		WillReturnError(pgx.ErrNoRows)

	sub, plan, err := suite.repo.GetActiveWithPlan(suite.context, suite.userID)
	assert.ErrorIs(suite.T(), err, ErrNoActiveSubscription)
	assert.Nil(suite.T(), sub)
	assert.Nil(suite.T(), plan)
}

// The lock-check-increment-append statement order is what serializes
// concurrent spends; pgxmock verifies the order, Postgres FOR UPDATE supplies
// the mutual exclusion.
func (suite *SubscriptionRepoTestSuite) TestConsumeUsage_Success() {
	analysisID := uuid.New()

	suite.mock.ExpectBegin()
	suite.mock.ExpectQuery(`SELECT s.id, s.usage_count, p.monthly_limit`).
		WithArgs(suite.userID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "usage_count", "monthly_limit"}).
			AddRow(suite.subID, 3, 5))
	suite.mock.ExpectQuery(`UPDATE user_subscriptions`).
		WithArgs(suite.subID).
		WillReturnRows(pgxmock.NewRows([]string{"usage_count"}).AddRow(4))
	suite.mock.ExpectExec(`INSERT INTO usage_tracking`).
		WithArgs(pgxmock.AnyArg(), suite.userID, suite.subID, &analysisID, "skin_analysis").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectCommit()

	newCount, err := suite.repo.ConsumeUsage(suite.context, suite.userID, &analysisID, "skin_analysis")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 4, newCount)
}

func (suite *SubscriptionRepoTestSuite) TestConsumeUsage_NoActiveSubscription() {
	suite.mock.ExpectBegin()
	suite.mock.ExpectQuery(`SELECT s.id, s.usage_count, p.monthly_limit`).
		WithArgs(suite.userID).
		WillReturnError(pgx.ErrNoRows)
	suite.mock.ExpectRollback()

	newCount, err := suite.repo.ConsumeUsage(suite.context, suite.userID, nil, "skin_analysis")
	assert.ErrorIs(suite.T(), err, ErrNoActiveSubscription)
	assert.Equal(suite.T(), 0, newCount)
}

func (suite *SubscriptionRepoTestSuite) TestConsumeUsage_QuotaExhausted() {
	// Counter at the limit: no update, no event, transaction rolled back.
	suite.mock.ExpectBegin()
	suite.mock.ExpectQuery(`SELECT s.id, s.usage_count, p.monthly_limit`).
		WithArgs(suite.userID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "usage_count", "monthly_limit"}).
			AddRow(suite.subID, 5, 5))
	suite.mock.ExpectRollback()

	newCount, err := suite.repo.ConsumeUsage(suite.context, suite.userID, nil, "skin_analysis")
	assert.ErrorIs(suite.T(), err, ErrQuotaExhausted)
	assert.Equal(suite.T(), 0, newCount)
}

func (suite *SubscriptionRepoTestSuite) TestUpdateStatus_DuplicateActiveRejected() {
	suite.mock.ExpectExec(`UPDATE user_subscriptions`).
		WithArgs(models.SubscriptionStatusActive, suite.userID, suite.subID).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "one_active_subscription_per_user"})

	err := suite.repo.UpdateStatus(suite.context, suite.userID, suite.subID, models.SubscriptionStatusActive)
	assert.ErrorIs(suite.T(), err, ErrDuplicateActiveSubscription)
}

func (suite *SubscriptionRepoTestSuite) TestResetExpiredCycles() {
	suite.mock.ExpectExec(`UPDATE user_subscriptions`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	affected, err := suite.repo.ResetExpiredCycles(suite.context)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(3), affected)
}

func (suite *SubscriptionRepoTestSuite) TestResetExpiredCycles_SecondRunIsNoOp() {
	// Counters already zero or cycle ends outside the window: nothing
	// matches the predicate on a repeat run.
	suite.mock.ExpectExec(`UPDATE user_subscriptions`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	affected, err := suite.repo.ResetExpiredCycles(suite.context)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(0), affected)
}

func (suite *SubscriptionRepoTestSuite) TestAdvanceCycle() {
	externalID := "sub_ext_123"
	periodStart := time.Now()
	periodEnd := periodStart.AddDate(0, 1, 0)

	suite.mock.ExpectExec(`UPDATE user_subscriptions`).
		WithArgs(periodStart, periodEnd, externalID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.AdvanceCycle(suite.context, externalID, periodStart, periodEnd)
	assert.NoError(suite.T(), err)
}

func (suite *SubscriptionRepoTestSuite) TestAdvanceCycle_UnknownExternalID() {
	periodStart := time.Now()

	suite.mock.ExpectExec(`UPDATE user_subscriptions`).
		WithArgs(periodStart, periodStart.AddDate(0, 1, 0), "sub_missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := suite.repo.AdvanceCycle(suite.context, "sub_missing", periodStart, periodStart.AddDate(0, 1, 0))
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *SubscriptionRepoTestSuite) TestCreate_DuplicateActiveRejected() {
	sub := &models.UserSubscription{
		ID:                 uuid.New(),
		UserID:             suite.userID,
		PlanID:             suite.planID,
		Status:             models.SubscriptionStatusActive,
		CurrentPeriodStart: time.Now(),
		CurrentPeriodEnd:   time.Now().AddDate(0, 1, 0),
	}

	suite.mock.ExpectExec(`INSERT INTO user_subscriptions`).
		WithArgs(sub.ID, sub.UserID, sub.PlanID, sub.Status, sub.ExternalSubscriptionID, sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.UsageCount, sub.AutoRenew).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "one_active_subscription_per_user"})

	err := suite.repo.Create(suite.context, sub)
	assert.ErrorIs(suite.T(), err, ErrDuplicateActiveSubscription)
}

func (suite *SubscriptionRepoTestSuite) TestCountLiveForPlan() {
	suite.mock.ExpectQuery(`SELECT COUNT`).
		WithArgs(suite.planID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

	count, err := suite.repo.CountLiveForPlan(suite.context, suite.planID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 2, count)
}
