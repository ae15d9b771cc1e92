package services_test

import (
	"context"
	"testing"

	"github.com/TaskRupee/task_rupee_app/internal/apperrors"
	"github.com/TaskRupee/task_rupee_app/internal/core/domain"
	portssvc "github.com/TaskRupee/task_rupee_app/internal/core/ports/services"
	"github.com/TaskRupee/task_rupee_app/internal/core/services"
	"github.com/TaskRupee/task_rupee_app/internal/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type LedgerServiceTestSuite struct {
	suite.Suite
	mockLedgerRepo  *MockLedgerRepository
	mockAccountRepo *MockAccountRepository
	mockQuotaSvc    *MockQuotaService
	notifier        *RecordingNotifier
	service         portssvc.LedgerSvcFacade

	accountID string
	account   *domain.Account
}

func (suite *LedgerServiceTestSuite) SetupTest() {
	suite.mockLedgerRepo = new(MockLedgerRepository)
	suite.mockAccountRepo = new(MockAccountRepository)
	suite.mockQuotaSvc = new(MockQuotaService)
	suite.notifier = new(RecordingNotifier)
	suite.service = services.NewLedgerService(suite.mockLedgerRepo, suite.mockAccountRepo, suite.mockQuotaSvc, suite.notifier)

	suite.accountID = uuid.NewString()
	suite.account = &domain.Account{
		AccountID:     suite.accountID,
		Tier:          domain.Tier1,
		WalletBalance: decimal.NewFromInt(500),
		IsActive:      true,
	}
}

func (suite *LedgerServiceTestSuite) TestGetBalance_DerivedFromLedger() {
	ctx := context.Background()

	suite.mockAccountRepo.On("FindAccountByID", ctx, suite.accountID).Return(suite.account, nil).Once()
	suite.mockLedgerRepo.On("SumEntriesByAccount", ctx, suite.accountID).Return(decimal.NewFromInt(800), decimal.NewFromInt(300), nil).Once()

	summary, err := suite.service.GetBalance(ctx, suite.accountID)

	suite.Require().NoError(err)
	suite.True(summary.Balance.Equal(decimal.NewFromInt(500)))
	suite.True(summary.TotalEarned.Equal(decimal.NewFromInt(800)))
	suite.True(summary.TotalSpent.Equal(decimal.NewFromInt(300)))
}

func (suite *LedgerServiceTestSuite) TestGetBalance_NegativeClampedToZero() {
	ctx := context.Background()
	suite.account.WalletBalance = decimal.Zero

	suite.mockAccountRepo.On("FindAccountByID", ctx, suite.accountID).Return(suite.account, nil).Once()
	suite.mockLedgerRepo.On("SumEntriesByAccount", ctx, suite.accountID).Return(decimal.NewFromInt(100), decimal.NewFromInt(150), nil).Once()

	summary, err := suite.service.GetBalance(ctx, suite.accountID)

	suite.Require().NoError(err)
	suite.True(summary.Balance.IsZero())
}

func (suite *LedgerServiceTestSuite) TestGetBalance_DivergentCacheReportsGreater() {
	ctx := context.Background()
	suite.account.WalletBalance = decimal.NewFromInt(600)

	suite.mockAccountRepo.On("FindAccountByID", ctx, suite.accountID).Return(suite.account, nil).Once()
	suite.mockLedgerRepo.On("SumEntriesByAccount", ctx, suite.accountID).Return(decimal.NewFromInt(500), decimal.Zero, nil).Once()

	summary, err := suite.service.GetBalance(ctx, suite.accountID)

	suite.Require().NoError(err)
	suite.True(summary.Balance.Equal(decimal.NewFromInt(600)))
}

func (suite *LedgerServiceTestSuite) TestRecordTaskReward_Success() {
	ctx := context.Background()
	req := dto.CompleteTaskRequest{TaskReference: "task-42"}

	suite.mockAccountRepo.On("FindAccountByID", ctx, suite.accountID).Return(suite.account, nil).Once()
	suite.mockQuotaSvc.On("DailyTaskCount", ctx, suite.accountID, mock.Anything).Return(0, nil).Once()
	suite.mockLedgerRepo.On("Begin", ctx).Return(nil, nil).Once()
	suite.mockLedgerRepo.On("Rollback", ctx, mock.Anything).Return(nil).Maybe()
	suite.mockLedgerRepo.On("AppendEntryInTx", ctx, mock.Anything, mock.MatchedBy(func(e domain.LedgerEntry) bool {
		// Tier1: 60 total over 5 tasks = 12 per task
		return e.Amount.Equal(decimal.NewFromInt(12)) &&
			e.Category == domain.EntryTaskReward &&
			e.Reference == "task-42"
	})).Return(nil).Once()
	suite.mockAccountRepo.On("AdjustCachedBalanceInTx", ctx, mock.Anything, suite.accountID, mock.Anything, suite.accountID, mock.Anything).Return(nil).Once()
	suite.mockLedgerRepo.On("Commit", ctx, mock.Anything).Return(nil).Once()

	entry, err := suite.service.RecordTaskReward(ctx, suite.accountID, req)

	suite.Require().NoError(err)
	suite.True(entry.Amount.Equal(decimal.NewFromInt(12)))
	suite.True(suite.notifier.SentTo(suite.accountID, domain.NotifyTaskRewarded))
	suite.mockLedgerRepo.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestRecordTaskReward_DailyLimitReached() {
	ctx := context.Background()
	req := dto.CompleteTaskRequest{TaskReference: "task-6"}

	suite.mockAccountRepo.On("FindAccountByID", ctx, suite.accountID).Return(suite.account, nil).Once()
	suite.mockQuotaSvc.On("DailyTaskCount", ctx, suite.accountID, mock.Anything).Return(5, nil).Once()

	_, err := suite.service.RecordTaskReward(ctx, suite.accountID, req)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrQuotaExceeded)
	suite.mockLedgerRepo.AssertNotCalled(suite.T(), "Begin", mock.Anything)
}

func (suite *LedgerServiceTestSuite) TestRecordTaskReward_NoActiveTier() {
	ctx := context.Background()
	suite.account.Tier = domain.TierNone

	suite.mockAccountRepo.On("FindAccountByID", ctx, suite.accountID).Return(suite.account, nil).Once()

	_, err := suite.service.RecordTaskReward(ctx, suite.accountID, dto.CompleteTaskRequest{TaskReference: "task-1"})

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrTierRequired)
}

func (suite *LedgerServiceTestSuite) TestRecordTaskReward_DuplicateReference() {
	ctx := context.Background()
	req := dto.CompleteTaskRequest{TaskReference: "task-42"}

	suite.mockAccountRepo.On("FindAccountByID", ctx, suite.accountID).Return(suite.account, nil).Once()
	suite.mockQuotaSvc.On("DailyTaskCount", ctx, suite.accountID, mock.Anything).Return(1, nil).Once()
	suite.mockLedgerRepo.On("Begin", ctx).Return(nil, nil).Once()
	suite.mockLedgerRepo.On("Rollback", ctx, mock.Anything).Return(nil).Maybe()
	suite.mockLedgerRepo.On("AppendEntryInTx", ctx, mock.Anything, mock.Anything).Return(apperrors.ErrDuplicateEntry).Once()

	_, err := suite.service.RecordTaskReward(ctx, suite.accountID, req)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrDuplicateEntry)
	suite.mockLedgerRepo.AssertNotCalled(suite.T(), "Commit", mock.Anything, mock.Anything)
}

func (suite *LedgerServiceTestSuite) TestListEntries_LimitNormalized() {
	ctx := context.Background()

	suite.mockAccountRepo.On("FindAccountByID", ctx, suite.accountID).Return(suite.account, nil).Twice()
	suite.mockLedgerRepo.On("ListEntriesByAccount", ctx, suite.accountID, 20, (*string)(nil)).Return([]domain.LedgerEntry{}, nil, nil).Once()
	suite.mockLedgerRepo.On("ListEntriesByAccount", ctx, suite.accountID, 100, (*string)(nil)).Return([]domain.LedgerEntry{}, nil, nil).Once()

	_, err := suite.service.ListEntries(ctx, suite.accountID, dto.ListEntriesParams{Limit: 0})
	suite.Require().NoError(err)

	_, err = suite.service.ListEntries(ctx, suite.accountID, dto.ListEntriesParams{Limit: 5000})
	suite.Require().NoError(err)

	suite.mockLedgerRepo.AssertExpectations(suite.T())
}

func TestLedgerService(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}
