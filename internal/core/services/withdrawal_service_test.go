package services_test

import (
	"context"
	"testing"

	"github.com/TaskRupee/task_rupee_app/internal/apperrors"
	"github.com/TaskRupee/task_rupee_app/internal/core/domain"
	"github.com/TaskRupee/task_rupee_app/internal/core/services"
	"github.com/TaskRupee/task_rupee_app/internal/dto"
	"github.com/TaskRupee/task_rupee_app/internal/jobs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type WithdrawalServiceTestSuite struct {
	suite.Suite
	mockWithdrawalRepo *MockWithdrawalRepository
	mockAccountRepo    *MockAccountRepository
	mockLedgerRepo     *MockLedgerRepository
	mockReviewerRepo   *MockReviewerRepository
	mockQuotaSvc       *MockQuotaService
	notifier           *RecordingNotifier
	service            *services.WithdrawalService

	accountID  string
	reviewerID string
	account    *domain.Account
	reviewer   domain.Reviewer
	upiMethod  dto.PaymentMethodRequest
}

func (suite *WithdrawalServiceTestSuite) SetupTest() {
	suite.mockWithdrawalRepo = new(MockWithdrawalRepository)
	suite.mockAccountRepo = new(MockAccountRepository)
	suite.mockLedgerRepo = new(MockLedgerRepository)
	suite.mockReviewerRepo = new(MockReviewerRepository)
	suite.mockQuotaSvc = new(MockQuotaService)
	suite.notifier = new(RecordingNotifier)
	suite.service = services.NewWithdrawalService(
		suite.mockWithdrawalRepo,
		suite.mockAccountRepo,
		suite.mockLedgerRepo,
		suite.mockReviewerRepo,
		suite.mockQuotaSvc,
		suite.notifier,
	)

	suite.accountID = uuid.NewString()
	suite.reviewerID = uuid.NewString()
	suite.account = &domain.Account{
		AccountID:     suite.accountID,
		Tier:          domain.Tier2,
		WalletBalance: decimal.NewFromInt(500),
		IsActive:      true,
	}
	suite.reviewer = domain.Reviewer{
		ReviewerID:   suite.reviewerID,
		IsActive:     true,
		Capabilities: []domain.Capability{domain.CapApproveWithdrawals, domain.CapProcessPayouts},
		MaxCapacity:  10,
	}
	suite.upiMethod = dto.PaymentMethodRequest{
		Kind:  domain.PaymentUPI,
		UPIID: "member@upi",
	}
}

func (suite *WithdrawalServiceTestSuite) expectSubmitTx() {
	ctx := context.Background()
	suite.mockWithdrawalRepo.On("Begin", ctx).Return(nil, nil).Once()
	suite.mockWithdrawalRepo.On("Rollback", ctx, mock.Anything).Return(nil).Maybe()
	suite.mockAccountRepo.On("FindAccountByIDForUpdate", ctx, mock.Anything, suite.accountID).Return(suite.account, nil).Once()
}

func (suite *WithdrawalServiceTestSuite) TestSubmit_Success() {
	ctx := context.Background()
	req := dto.SubmitWithdrawalRequest{
		Amount:        decimal.NewFromInt(400),
		PaymentMethod: suite.upiMethod,
	}

	suite.expectSubmitTx()
	suite.mockLedgerRepo.On("SumEntriesByAccount", ctx, suite.accountID).Return(decimal.NewFromInt(500), decimal.Zero, nil).Once()
	suite.mockQuotaSvc.On("CheckWithdrawalQuotas", ctx, suite.accountID, req.Amount, mock.Anything).Return(nil).Once()
	suite.mockReviewerRepo.On("ListActiveReviewers", ctx).Return([]domain.Reviewer{suite.reviewer}, nil).Once()
	suite.mockWithdrawalRepo.On("SaveRequestInTx", ctx, mock.Anything, mock.AnythingOfType("domain.WithdrawalRequest")).Return(nil).Once()
	suite.mockWithdrawalRepo.On("Commit", ctx, mock.Anything).Return(nil).Once()
	suite.mockReviewerRepo.On("AppendRequestAssignment", ctx, suite.reviewerID, mock.AnythingOfType("string")).Return(nil).Once()

	request, err := suite.service.Submit(ctx, suite.accountID, req)

	suite.Require().NoError(err)
	suite.Require().NotNil(request)
	suite.Equal(domain.WithdrawalPending, request.State)
	suite.True(request.TaxAmount.Equal(decimal.NewFromInt(40)), "tax should be 10%% of gross, got %s", request.TaxAmount)
	suite.True(request.NetAmount.Equal(decimal.NewFromInt(360)), "net should be gross minus tax, got %s", request.NetAmount)
	suite.Require().NotNil(request.ReviewerID)
	suite.Equal(suite.reviewerID, *request.ReviewerID)
	suite.Equal(int64(1), request.Version)
	suite.True(suite.notifier.SentTo(suite.accountID, domain.NotifyWithdrawalSubmitted))
	suite.True(suite.notifier.SentTo(suite.reviewerID, domain.NotifyWithdrawalAssigned))
	suite.mockWithdrawalRepo.AssertExpectations(suite.T())
	suite.mockReviewerRepo.AssertExpectations(suite.T())
}

func (suite *WithdrawalServiceTestSuite) TestSubmit_BelowMinimumAmount() {
	ctx := context.Background()
	req := dto.SubmitWithdrawalRequest{
		Amount:        decimal.NewFromInt(300),
		PaymentMethod: suite.upiMethod,
	}

	_, err := suite.service.Submit(ctx, suite.accountID, req)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockWithdrawalRepo.AssertNotCalled(suite.T(), "Begin", mock.Anything)
}

func (suite *WithdrawalServiceTestSuite) TestSubmit_IncompletePaymentMethod() {
	ctx := context.Background()
	req := dto.SubmitWithdrawalRequest{
		Amount:        decimal.NewFromInt(400),
		PaymentMethod: dto.PaymentMethodRequest{Kind: domain.PaymentBankTransfer, AccountHolder: "A Member"},
	}

	_, err := suite.service.Submit(ctx, suite.accountID, req)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *WithdrawalServiceTestSuite) TestSubmit_InsufficientBalance() {
	ctx := context.Background()
	req := dto.SubmitWithdrawalRequest{
		Amount:        decimal.NewFromInt(400),
		PaymentMethod: suite.upiMethod,
	}

	suite.expectSubmitTx()
	// earned 500, spent 200: derived balance 300 < requested 400
	suite.mockLedgerRepo.On("SumEntriesByAccount", ctx, suite.accountID).Return(decimal.NewFromInt(500), decimal.NewFromInt(200), nil).Once()

	_, err := suite.service.Submit(ctx, suite.accountID, req)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInsufficientBalance)
	suite.mockWithdrawalRepo.AssertNotCalled(suite.T(), "SaveRequestInTx", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *WithdrawalServiceTestSuite) TestSubmit_TierRequired() {
	ctx := context.Background()
	req := dto.SubmitWithdrawalRequest{
		Amount:        decimal.NewFromInt(400),
		PaymentMethod: suite.upiMethod,
	}
	suite.account.Tier = domain.TierNone

	suite.expectSubmitTx()

	_, err := suite.service.Submit(ctx, suite.accountID, req)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrTierRequired)
}

func (suite *WithdrawalServiceTestSuite) TestSubmit_QuotaExceeded() {
	ctx := context.Background()
	req := dto.SubmitWithdrawalRequest{
		Amount:        decimal.NewFromInt(400),
		PaymentMethod: suite.upiMethod,
	}

	suite.expectSubmitTx()
	suite.mockLedgerRepo.On("SumEntriesByAccount", ctx, suite.accountID).Return(decimal.NewFromInt(5000), decimal.Zero, nil).Once()
	suite.mockQuotaSvc.On("CheckWithdrawalQuotas", ctx, suite.accountID, req.Amount, mock.Anything).Return(apperrors.ErrQuotaExceeded).Once()

	_, err := suite.service.Submit(ctx, suite.accountID, req)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrQuotaExceeded)
}

func (suite *WithdrawalServiceTestSuite) TestSubmit_NoReviewerCapacity() {
	ctx := context.Background()
	req := dto.SubmitWithdrawalRequest{
		Amount:        decimal.NewFromInt(400),
		PaymentMethod: suite.upiMethod,
	}
	fullReviewer := suite.reviewer
	fullReviewer.AssignedAccountCount = fullReviewer.MaxCapacity

	suite.expectSubmitTx()
	suite.mockLedgerRepo.On("SumEntriesByAccount", ctx, suite.accountID).Return(decimal.NewFromInt(500), decimal.Zero, nil).Once()
	suite.mockQuotaSvc.On("CheckWithdrawalQuotas", ctx, suite.accountID, req.Amount, mock.Anything).Return(nil).Once()
	suite.mockReviewerRepo.On("ListActiveReviewers", ctx).Return([]domain.Reviewer{fullReviewer}, nil).Once()

	_, err := suite.service.Submit(ctx, suite.accountID, req)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrNoCapacity)
}

func (suite *WithdrawalServiceTestSuite) TestSubmit_ClientReferenceReplay() {
	ctx := context.Background()
	existing := &domain.WithdrawalRequest{
		RequestID:       uuid.NewString(),
		AccountID:       suite.accountID,
		Amount:          decimal.NewFromInt(400),
		State:           domain.WithdrawalPending,
		ClientReference: "retry-token-1",
	}
	req := dto.SubmitWithdrawalRequest{
		Amount:          decimal.NewFromInt(400),
		PaymentMethod:   suite.upiMethod,
		ClientReference: "retry-token-1",
	}

	suite.mockWithdrawalRepo.On("FindRequestByClientReference", ctx, suite.accountID, "retry-token-1").Return(existing, nil).Once()

	request, err := suite.service.Submit(ctx, suite.accountID, req)

	suite.Require().NoError(err)
	suite.Equal(existing.RequestID, request.RequestID)
	suite.mockWithdrawalRepo.AssertNotCalled(suite.T(), "Begin", mock.Anything)
	suite.mockWithdrawalRepo.AssertNotCalled(suite.T(), "SaveRequestInTx", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *WithdrawalServiceTestSuite) pendingRequest() *domain.WithdrawalRequest {
	return &domain.WithdrawalRequest{
		RequestID:  uuid.NewString(),
		AccountID:  suite.accountID,
		Amount:     decimal.NewFromInt(400),
		TaxAmount:  decimal.NewFromInt(40),
		NetAmount:  decimal.NewFromInt(360),
		State:      domain.WithdrawalPending,
		ReviewerID: &suite.reviewerID,
		Version:    1,
	}
}

func (suite *WithdrawalServiceTestSuite) TestReview_Approve_Success() {
	ctx := context.Background()
	request := suite.pendingRequest()

	suite.mockWithdrawalRepo.On("FindRequestByID", ctx, request.RequestID).Return(request, nil).Once()
	suite.mockReviewerRepo.On("FindReviewerByID", ctx, suite.reviewerID).Return(&suite.reviewer, nil).Once()
	suite.mockWithdrawalRepo.On("UpdateRequestState", ctx, mock.AnythingOfType("domain.WithdrawalRequest"), int64(1)).Return(nil).Once()

	updated, err := suite.service.Review(ctx, request.RequestID, suite.reviewerID, dto.ReviewWithdrawalRequest{Action: dto.ReviewApprove, Notes: "ok"})

	suite.Require().NoError(err)
	suite.Equal(domain.WithdrawalApproved, updated.State)
	suite.Equal(int64(2), updated.Version)
	suite.NotNil(updated.ReviewedAt)
	suite.True(suite.notifier.SentTo(suite.accountID, domain.NotifyWithdrawalApproved))
	suite.mockWithdrawalRepo.AssertExpectations(suite.T())
}

func (suite *WithdrawalServiceTestSuite) TestReview_Approve_NotAssignedReviewer() {
	ctx := context.Background()
	request := suite.pendingRequest()
	stranger := domain.Reviewer{
		ReviewerID:   uuid.NewString(),
		IsActive:     true,
		Capabilities: []domain.Capability{domain.CapApproveWithdrawals},
	}

	suite.mockWithdrawalRepo.On("FindRequestByID", ctx, request.RequestID).Return(request, nil).Once()
	suite.mockReviewerRepo.On("FindReviewerByID", ctx, stranger.ReviewerID).Return(&stranger, nil).Once()

	_, err := suite.service.Review(ctx, request.RequestID, stranger.ReviewerID, dto.ReviewWithdrawalRequest{Action: dto.ReviewApprove})

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrForbidden)
	suite.mockWithdrawalRepo.AssertNotCalled(suite.T(), "UpdateRequestState", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *WithdrawalServiceTestSuite) TestReview_Approve_AdminOverrideBypassesAssignment() {
	ctx := context.Background()
	request := suite.pendingRequest()
	admin := domain.Reviewer{
		ReviewerID:   uuid.NewString(),
		IsActive:     true,
		Capabilities: []domain.Capability{domain.CapAdminOverride},
	}

	suite.mockWithdrawalRepo.On("FindRequestByID", ctx, request.RequestID).Return(request, nil).Once()
	suite.mockReviewerRepo.On("FindReviewerByID", ctx, admin.ReviewerID).Return(&admin, nil).Once()
	suite.mockWithdrawalRepo.On("UpdateRequestState", ctx, mock.AnythingOfType("domain.WithdrawalRequest"), int64(1)).Return(nil).Once()

	updated, err := suite.service.Review(ctx, request.RequestID, admin.ReviewerID, dto.ReviewWithdrawalRequest{Action: dto.ReviewApprove})

	suite.Require().NoError(err)
	suite.Equal(domain.WithdrawalApproved, updated.State)
}

func (suite *WithdrawalServiceTestSuite) TestReview_Reject_RequiresReason() {
	ctx := context.Background()
	request := suite.pendingRequest()

	suite.mockWithdrawalRepo.On("FindRequestByID", ctx, request.RequestID).Return(request, nil).Once()
	suite.mockReviewerRepo.On("FindReviewerByID", ctx, suite.reviewerID).Return(&suite.reviewer, nil).Once()

	_, err := suite.service.Review(ctx, request.RequestID, suite.reviewerID, dto.ReviewWithdrawalRequest{Action: dto.ReviewReject})

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *WithdrawalServiceTestSuite) TestReview_VersionConflict() {
	ctx := context.Background()
	request := suite.pendingRequest()

	suite.mockWithdrawalRepo.On("FindRequestByID", ctx, request.RequestID).Return(request, nil).Once()
	suite.mockReviewerRepo.On("FindReviewerByID", ctx, suite.reviewerID).Return(&suite.reviewer, nil).Once()
	suite.mockWithdrawalRepo.On("UpdateRequestState", ctx, mock.AnythingOfType("domain.WithdrawalRequest"), int64(1)).Return(apperrors.ErrInvalidTransition).Once()

	_, err := suite.service.Review(ctx, request.RequestID, suite.reviewerID, dto.ReviewWithdrawalRequest{Action: dto.ReviewApprove})

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInvalidTransition)
}

func (suite *WithdrawalServiceTestSuite) TestReview_Process_EnqueuesSettlementInTx() {
	ctx := context.Background()
	request := suite.pendingRequest()
	request.State = domain.WithdrawalApproved
	request.Version = 2

	var enqueued []jobs.SettlementArgs
	suite.service.BindSettlementEnqueuer(func(ctx context.Context, tx pgx.Tx, args jobs.SettlementArgs) error {
		enqueued = append(enqueued, args)
		return nil
	})

	suite.mockWithdrawalRepo.On("FindRequestByID", ctx, request.RequestID).Return(request, nil).Once()
	suite.mockReviewerRepo.On("FindReviewerByID", ctx, suite.reviewerID).Return(&suite.reviewer, nil).Once()
	suite.mockWithdrawalRepo.On("Begin", ctx).Return(nil, nil).Once()
	suite.mockWithdrawalRepo.On("Rollback", ctx, mock.Anything).Return(nil).Maybe()
	suite.mockWithdrawalRepo.On("UpdateRequestStateInTx", ctx, mock.Anything, mock.AnythingOfType("domain.WithdrawalRequest"), int64(2)).Return(nil).Once()
	suite.mockWithdrawalRepo.On("Commit", ctx, mock.Anything).Return(nil).Once()

	updated, err := suite.service.Review(ctx, request.RequestID, suite.reviewerID, dto.ReviewWithdrawalRequest{Action: dto.ReviewProcess})

	suite.Require().NoError(err)
	suite.Equal(domain.WithdrawalProcessing, updated.State)
	suite.NotNil(updated.ProcessedAt)
	suite.Require().Len(enqueued, 1)
	suite.Equal(request.RequestID, enqueued[0].RequestID)
	suite.mockWithdrawalRepo.AssertExpectations(suite.T())
}

func (suite *WithdrawalServiceTestSuite) TestReview_Process_QueueUnbound() {
	ctx := context.Background()
	request := suite.pendingRequest()
	request.State = domain.WithdrawalApproved

	suite.mockWithdrawalRepo.On("FindRequestByID", ctx, request.RequestID).Return(request, nil).Once()
	suite.mockReviewerRepo.On("FindReviewerByID", ctx, suite.reviewerID).Return(&suite.reviewer, nil).Once()

	_, err := suite.service.Review(ctx, request.RequestID, suite.reviewerID, dto.ReviewWithdrawalRequest{Action: dto.ReviewProcess})

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInternal)
	suite.mockWithdrawalRepo.AssertNotCalled(suite.T(), "Begin", mock.Anything)
}

func (suite *WithdrawalServiceTestSuite) TestReview_Process_FromPendingIllegal() {
	ctx := context.Background()
	request := suite.pendingRequest()

	suite.service.BindSettlementEnqueuer(func(ctx context.Context, tx pgx.Tx, args jobs.SettlementArgs) error { return nil })
	suite.mockWithdrawalRepo.On("FindRequestByID", ctx, request.RequestID).Return(request, nil).Once()
	suite.mockReviewerRepo.On("FindReviewerByID", ctx, suite.reviewerID).Return(&suite.reviewer, nil).Once()

	_, err := suite.service.Review(ctx, request.RequestID, suite.reviewerID, dto.ReviewWithdrawalRequest{Action: dto.ReviewProcess})

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInvalidTransition)
}

func (suite *WithdrawalServiceTestSuite) TestCancel_Success() {
	ctx := context.Background()
	request := suite.pendingRequest()

	suite.mockWithdrawalRepo.On("FindRequestByID", ctx, request.RequestID).Return(request, nil).Once()
	suite.mockWithdrawalRepo.On("UpdateRequestState", ctx, mock.AnythingOfType("domain.WithdrawalRequest"), int64(1)).Return(nil).Once()

	updated, err := suite.service.Cancel(ctx, request.RequestID, suite.accountID)

	suite.Require().NoError(err)
	suite.Equal(domain.WithdrawalCancelled, updated.State)
	suite.True(suite.notifier.SentTo(suite.accountID, domain.NotifyWithdrawalCancelled))
	suite.True(suite.notifier.SentTo(suite.reviewerID, domain.NotifyWithdrawalCancelled))
}

func (suite *WithdrawalServiceTestSuite) TestCancel_NotOwner() {
	ctx := context.Background()
	request := suite.pendingRequest()

	suite.mockWithdrawalRepo.On("FindRequestByID", ctx, request.RequestID).Return(request, nil).Once()

	_, err := suite.service.Cancel(ctx, request.RequestID, uuid.NewString())

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrForbidden)
}

func (suite *WithdrawalServiceTestSuite) TestCancel_AfterApprovalIllegal() {
	ctx := context.Background()
	request := suite.pendingRequest()
	request.State = domain.WithdrawalApproved

	suite.mockWithdrawalRepo.On("FindRequestByID", ctx, request.RequestID).Return(request, nil).Once()

	_, err := suite.service.Cancel(ctx, request.RequestID, suite.accountID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInvalidTransition)
	suite.mockWithdrawalRepo.AssertNotCalled(suite.T(), "UpdateRequestState", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *WithdrawalServiceTestSuite) TestHold_RequiresAdminOverride() {
	ctx := context.Background()
	request := suite.pendingRequest()

	suite.mockWithdrawalRepo.On("FindRequestByID", ctx, request.RequestID).Return(request, nil).Once()
	suite.mockReviewerRepo.On("FindReviewerByID", ctx, suite.reviewerID).Return(&suite.reviewer, nil).Once()

	_, err := suite.service.Hold(ctx, request.RequestID, suite.reviewerID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrForbidden)
}

func (suite *WithdrawalServiceTestSuite) TestHold_Success() {
	ctx := context.Background()
	request := suite.pendingRequest()
	admin := domain.Reviewer{
		ReviewerID:   uuid.NewString(),
		IsActive:     true,
		Capabilities: []domain.Capability{domain.CapAdminOverride},
	}

	suite.mockWithdrawalRepo.On("FindRequestByID", ctx, request.RequestID).Return(request, nil).Once()
	suite.mockReviewerRepo.On("FindReviewerByID", ctx, admin.ReviewerID).Return(&admin, nil).Once()
	suite.mockWithdrawalRepo.On("UpdateRequestState", ctx, mock.AnythingOfType("domain.WithdrawalRequest"), int64(1)).Return(nil).Once()

	updated, err := suite.service.Hold(ctx, request.RequestID, admin.ReviewerID)

	suite.Require().NoError(err)
	suite.Equal(domain.WithdrawalUnderReview, updated.State)
	suite.True(suite.notifier.SentTo(suite.accountID, domain.NotifyWithdrawalUnderHold))
}

func (suite *WithdrawalServiceTestSuite) TestSettle_Success() {
	ctx := context.Background()
	request := suite.pendingRequest()
	request.State = domain.WithdrawalProcessing
	request.Version = 3

	suite.mockWithdrawalRepo.On("FindRequestByID", ctx, request.RequestID).Return(request, nil).Once()
	suite.mockWithdrawalRepo.On("Begin", ctx).Return(nil, nil).Once()
	suite.mockWithdrawalRepo.On("Rollback", ctx, mock.Anything).Return(nil).Maybe()
	suite.mockLedgerRepo.On("AppendEntryInTx", ctx, mock.Anything, mock.MatchedBy(func(e domain.LedgerEntry) bool {
		return e.Amount.Equal(decimal.NewFromInt(-400)) &&
			e.Category == domain.EntryWithdrawal &&
			e.Reference == request.RequestID
	})).Return(nil).Once()
	suite.mockWithdrawalRepo.On("UpdateRequestStateInTx", ctx, mock.Anything, mock.MatchedBy(func(r domain.WithdrawalRequest) bool {
		return r.State == domain.WithdrawalCompleted && r.CompletedAt != nil
	}), int64(3)).Return(nil).Once()
	suite.mockAccountRepo.On("AdjustCachedBalanceInTx", ctx, mock.Anything, suite.accountID, decimal.NewFromInt(-400), "SYSTEM", mock.Anything).Return(nil).Once()
	suite.mockReviewerRepo.On("IncrementProcessedInTx", ctx, mock.Anything, suite.reviewerID, decimal.NewFromInt(400), mock.Anything).Return(nil).Once()
	suite.mockWithdrawalRepo.On("Commit", ctx, mock.Anything).Return(nil).Once()

	err := suite.service.SettleWithdrawal(ctx, request.RequestID)

	suite.Require().NoError(err)
	suite.True(suite.notifier.SentTo(suite.accountID, domain.NotifyWithdrawalCompleted))
	suite.mockWithdrawalRepo.AssertExpectations(suite.T())
	suite.mockLedgerRepo.AssertExpectations(suite.T())
	suite.mockReviewerRepo.AssertExpectations(suite.T())
}

func (suite *WithdrawalServiceTestSuite) TestSettle_DuplicateEntryTolerated() {
	ctx := context.Background()
	request := suite.pendingRequest()
	request.State = domain.WithdrawalProcessing
	request.Version = 3

	suite.mockWithdrawalRepo.On("FindRequestByID", ctx, request.RequestID).Return(request, nil).Once()
	suite.mockWithdrawalRepo.On("Begin", ctx).Return(nil, nil).Once()
	suite.mockWithdrawalRepo.On("Rollback", ctx, mock.Anything).Return(nil).Maybe()
	// a prior attempt already booked the debit; the transition must still finish
	suite.mockLedgerRepo.On("AppendEntryInTx", ctx, mock.Anything, mock.Anything).Return(apperrors.ErrDuplicateEntry).Once()
	suite.mockWithdrawalRepo.On("UpdateRequestStateInTx", ctx, mock.Anything, mock.Anything, int64(3)).Return(nil).Once()
	suite.mockAccountRepo.On("AdjustCachedBalanceInTx", ctx, mock.Anything, suite.accountID, decimal.NewFromInt(-400), "SYSTEM", mock.Anything).Return(nil).Once()
	suite.mockReviewerRepo.On("IncrementProcessedInTx", ctx, mock.Anything, suite.reviewerID, decimal.NewFromInt(400), mock.Anything).Return(nil).Once()
	suite.mockWithdrawalRepo.On("Commit", ctx, mock.Anything).Return(nil).Once()

	err := suite.service.SettleWithdrawal(ctx, request.RequestID)

	suite.Require().NoError(err)
	suite.mockWithdrawalRepo.AssertExpectations(suite.T())
}

func (suite *WithdrawalServiceTestSuite) TestSettle_CompletedReplayIsNoop() {
	ctx := context.Background()
	request := suite.pendingRequest()
	request.State = domain.WithdrawalCompleted

	suite.mockWithdrawalRepo.On("FindRequestByID", ctx, request.RequestID).Return(request, nil).Once()

	err := suite.service.SettleWithdrawal(ctx, request.RequestID)

	suite.Require().NoError(err)
	suite.mockWithdrawalRepo.AssertNotCalled(suite.T(), "Begin", mock.Anything)
	suite.mockLedgerRepo.AssertNotCalled(suite.T(), "AppendEntryInTx", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *WithdrawalServiceTestSuite) TestSettle_RequiresProcessingState() {
	ctx := context.Background()
	request := suite.pendingRequest()

	suite.mockWithdrawalRepo.On("FindRequestByID", ctx, request.RequestID).Return(request, nil).Once()

	err := suite.service.SettleWithdrawal(ctx, request.RequestID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInvalidTransition)
}

func (suite *WithdrawalServiceTestSuite) TestGetRequest_StrangerForbidden() {
	ctx := context.Background()
	request := suite.pendingRequest()
	strangerID := uuid.NewString()

	suite.mockWithdrawalRepo.On("FindRequestByID", ctx, request.RequestID).Return(request, nil).Once()
	suite.mockReviewerRepo.On("FindReviewerByID", ctx, strangerID).Return(nil, apperrors.ErrNotFound).Once()

	_, err := suite.service.GetRequest(ctx, request.RequestID, strangerID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrForbidden)
}

func (suite *WithdrawalServiceTestSuite) TestGetRequest_OwnerAndReviewerAllowed() {
	ctx := context.Background()
	request := suite.pendingRequest()

	suite.mockWithdrawalRepo.On("FindRequestByID", ctx, request.RequestID).Return(request, nil).Twice()

	got, err := suite.service.GetRequest(ctx, request.RequestID, suite.accountID)
	suite.Require().NoError(err)
	suite.Equal(request.RequestID, got.RequestID)

	got, err = suite.service.GetRequest(ctx, request.RequestID, suite.reviewerID)
	suite.Require().NoError(err)
	suite.Equal(request.RequestID, got.RequestID)
}

func TestWithdrawalService(t *testing.T) {
	suite.Run(t, new(WithdrawalServiceTestSuite))
}
