package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/TaskRupee/task_rupee_app/internal/apperrors"
	"github.com/TaskRupee/task_rupee_app/internal/core/domain"
	portsrepo "github.com/TaskRupee/task_rupee_app/internal/core/ports/repositories"
	portssvc "github.com/TaskRupee/task_rupee_app/internal/core/ports/services"
	"github.com/TaskRupee/task_rupee_app/internal/dto"
	"github.com/TaskRupee/task_rupee_app/internal/jobs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EnqueueSettlementTxFunc inserts a settlement job transactionally with the
// PROCESSING transition. Bound late in main once the job client exists.
type EnqueueSettlementTxFunc func(ctx context.Context, tx pgx.Tx, args jobs.SettlementArgs) error

// WithdrawalService drives the withdrawal lifecycle state machine. Submission
// is the only place balance and quotas are checked; lifecycle steps after it
// rely on optimistic version guards instead.
//
// The settlement enqueuer is bound late in main: the job client needs this
// service as its worker dependency, so the closure cannot exist at
// construction time.
type WithdrawalService struct {
	BaseService
	withdrawalRepo portsrepo.WithdrawalRepositoryWithTx
	accountRepo    portsrepo.AccountRepositoryWithTx
	ledgerRepo     portsrepo.LedgerRepositoryWithTx
	reviewerRepo   portsrepo.ReviewerRepositoryWithTx
	quotaSvc       portssvc.QuotaSvcFacade
	notifier       portssvc.Notifier

	mu                sync.RWMutex
	enqueueSettlement EnqueueSettlementTxFunc
}

// NewWithdrawalService creates a new WithdrawalService.
func NewWithdrawalService(
	withdrawalRepo portsrepo.WithdrawalRepositoryWithTx,
	accountRepo portsrepo.AccountRepositoryWithTx,
	ledgerRepo portsrepo.LedgerRepositoryWithTx,
	reviewerRepo portsrepo.ReviewerRepositoryWithTx,
	quotaSvc portssvc.QuotaSvcFacade,
	notifier portssvc.Notifier,
) *WithdrawalService {
	return &WithdrawalService{
		withdrawalRepo: withdrawalRepo,
		accountRepo:    accountRepo,
		ledgerRepo:     ledgerRepo,
		reviewerRepo:   reviewerRepo,
		quotaSvc:       quotaSvc,
		notifier:       notifier,
	}
}

var _ portssvc.WithdrawalSvcFacade = (*WithdrawalService)(nil)

// BindSettlementEnqueuer injects the transactional job-insert closure.
func (s *WithdrawalService) BindSettlementEnqueuer(fn EnqueueSettlementTxFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enqueueSettlement = fn
}

func (s *WithdrawalService) enqueuer() EnqueueSettlementTxFunc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enqueueSettlement
}

// GetRequest enforces that only the owning account, the assigned reviewer,
// or an admin override holder may read a request.
func (s *WithdrawalService) GetRequest(ctx context.Context, requestID, callerID string) (*domain.WithdrawalRequest, error) {
	request, err := s.withdrawalRepo.FindRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if request.AccountID == callerID {
		return request, nil
	}
	if request.ReviewerID != nil && *request.ReviewerID == callerID {
		return request, nil
	}
	if reviewer, rErr := s.reviewerRepo.FindReviewerByID(ctx, callerID); rErr == nil && reviewer.HasCapability(domain.CapAdminOverride) {
		return request, nil
	}
	return nil, fmt.Errorf("%w: caller %s may not view request %s", apperrors.ErrForbidden, callerID, requestID)
}

func normalizeListParams(params dto.ListWithdrawalsParams) (int, *string) {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return limit, params.NextToken
}

func (s *WithdrawalService) ListByAccount(ctx context.Context, accountID string, params dto.ListWithdrawalsParams) (*dto.ListWithdrawalsResponse, error) {
	limit, nextToken := normalizeListParams(params)
	requests, outToken, err := s.withdrawalRepo.ListRequestsByAccount(ctx, accountID, limit, nextToken)
	if err != nil {
		return nil, err
	}
	return &dto.ListWithdrawalsResponse{
		Withdrawals: dto.ToWithdrawalResponses(requests),
		NextToken:   outToken,
	}, nil
}

func (s *WithdrawalService) ListByReviewer(ctx context.Context, reviewerID string, params dto.ListWithdrawalsParams) (*dto.ListWithdrawalsResponse, error) {
	limit, nextToken := normalizeListParams(params)
	var state *domain.WithdrawalState
	if params.State != nil && *params.State != "" {
		st := domain.WithdrawalState(*params.State)
		state = &st
	}
	requests, outToken, err := s.withdrawalRepo.ListRequestsByReviewer(ctx, reviewerID, state, limit, nextToken)
	if err != nil {
		return nil, err
	}
	return &dto.ListWithdrawalsResponse{
		Withdrawals: dto.ToWithdrawalResponses(requests),
		NextToken:   outToken,
	}, nil
}

// selectReviewer picks the active reviewer with the given capability, spare
// capacity and the lowest current load. Ties break by input order.
func selectReviewer(reviewers []domain.Reviewer, capability domain.Capability) *domain.Reviewer {
	var chosen *domain.Reviewer
	for i := range reviewers {
		r := &reviewers[i]
		if !r.IsActive || !r.HasCapability(capability) || !r.HasSpareCapacity() {
			continue
		}
		if chosen == nil || r.AssignedAccountCount < chosen.AssignedAccountCount {
			chosen = r
		}
	}
	return chosen
}

// Submit runs the full submission gauntlet. The account row is locked for
// the duration so two concurrent submissions cannot both pass the balance
// check against the same pre-debit balance.
func (s *WithdrawalService) Submit(ctx context.Context, accountID string, req dto.SubmitWithdrawalRequest) (*domain.WithdrawalRequest, error) {
	now := time.Now()

	if req.Amount.LessThan(domain.MinWithdrawalAmount) {
		return nil, fmt.Errorf("%w: minimum withdrawal amount is %s", apperrors.ErrValidation, domain.MinWithdrawalAmount.String())
	}
	method := req.PaymentMethod.ToDomain()
	if !method.Complete() {
		return nil, fmt.Errorf("%w: payment method fields incomplete for kind %s", apperrors.ErrValidation, method.Kind)
	}

	// Idempotent replay: a client retrying with the same reference gets the
	// original request back instead of a second one.
	if req.ClientReference != "" {
		existing, err := s.withdrawalRepo.FindRequestByClientReference(ctx, accountID, req.ClientReference)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}

	tx, err := s.withdrawalRepo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.withdrawalRepo.Rollback(ctx, tx) }()

	account, err := s.accountRepo.FindAccountByIDForUpdate(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, fmt.Errorf("%w: account %s is inactive", apperrors.ErrValidation, accountID)
	}
	if !account.HasActiveTier(now) {
		return nil, fmt.Errorf("%w: withdrawals require an active tier", apperrors.ErrTierRequired)
	}

	earned, spent, err := s.ledgerRepo.SumEntriesByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	summary := domain.NewBalanceSummary(accountID, earned, spent)
	if req.Amount.GreaterThan(summary.Balance) {
		return nil, fmt.Errorf("%w: requested %s, available %s", apperrors.ErrInsufficientBalance, req.Amount.String(), summary.Balance.String())
	}

	if err := s.quotaSvc.CheckWithdrawalQuotas(ctx, accountID, req.Amount, now); err != nil {
		return nil, err
	}

	reviewers, err := s.reviewerRepo.ListActiveReviewers(ctx)
	if err != nil {
		return nil, err
	}
	reviewer := selectReviewer(reviewers, domain.CapApproveWithdrawals)
	if reviewer == nil {
		return nil, fmt.Errorf("%w: no reviewer available to take the request", apperrors.ErrNoCapacity)
	}

	tax, net := domain.ComputeWithdrawalTax(req.Amount)
	request := domain.WithdrawalRequest{
		RequestID:       uuid.NewString(),
		AccountID:       accountID,
		Amount:          req.Amount,
		TaxAmount:       tax,
		NetAmount:       net,
		State:           domain.WithdrawalPending,
		ReviewerID:      &reviewer.ReviewerID,
		PaymentMethod:   method,
		ClientReference: req.ClientReference,
		SubmittedAt:     now,
		Version:         1,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     accountID,
			LastUpdatedAt: now,
			LastUpdatedBy: accountID,
		},
	}

	if err := s.withdrawalRepo.SaveRequestInTx(ctx, tx, request); err != nil {
		return nil, err
	}
	if err := s.withdrawalRepo.Commit(ctx, tx); err != nil {
		return nil, err
	}

	// Outside the transaction: assignment bookkeeping and notifications must
	// not roll back an already-persisted request.
	if err := s.reviewerRepo.AppendRequestAssignment(ctx, reviewer.ReviewerID, request.RequestID); err != nil {
		s.LogError(ctx, err, "Failed to record request assignment",
			slog.String("request_id", request.RequestID),
			slog.String("reviewer_id", reviewer.ReviewerID))
	}

	s.LogInfo(ctx, "Withdrawal submitted",
		slog.String("request_id", request.RequestID),
		slog.String("account_id", accountID),
		slog.String("amount", req.Amount.String()),
		slog.String("reviewer_id", reviewer.ReviewerID))

	s.notifier.Notify(ctx, accountID, domain.NotifyWithdrawalSubmitted,
		"Withdrawal submitted",
		fmt.Sprintf("Your withdrawal of %s is pending review", req.Amount.StringFixed(2)),
		map[string]any{"requestID": request.RequestID, "netAmount": net})
	s.notifier.Notify(ctx, reviewer.ReviewerID, domain.NotifyWithdrawalAssigned,
		"Withdrawal assigned",
		fmt.Sprintf("Request %s awaits your review", request.RequestID),
		map[string]any{"requestID": request.RequestID, "accountID": accountID})

	return &request, nil
}

// authorizeReview returns nil when the acting reviewer is the assigned one
// holding the needed capability, or holds the admin override.
func (s *WithdrawalService) authorizeReview(request *domain.WithdrawalRequest, reviewer *domain.Reviewer, capability domain.Capability) error {
	if reviewer.HasCapability(domain.CapAdminOverride) {
		return nil
	}
	if request.ReviewerID == nil || *request.ReviewerID != reviewer.ReviewerID {
		return fmt.Errorf("%w: reviewer %s is not assigned to request %s", apperrors.ErrForbidden, reviewer.ReviewerID, request.RequestID)
	}
	if !reviewer.HasCapability(capability) {
		return fmt.Errorf("%w: reviewer %s lacks %s", apperrors.ErrForbidden, reviewer.ReviewerID, capability)
	}
	return nil
}

func (s *WithdrawalService) Review(ctx context.Context, requestID, reviewerID string, req dto.ReviewWithdrawalRequest) (*domain.WithdrawalRequest, error) {
	now := time.Now()

	request, err := s.withdrawalRepo.FindRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	reviewer, err := s.reviewerRepo.FindReviewerByID(ctx, reviewerID)
	if err != nil {
		return nil, err
	}

	switch req.Action {
	case dto.ReviewApprove:
		return s.approve(ctx, request, reviewer, req.Notes, now)
	case dto.ReviewReject:
		return s.reject(ctx, request, reviewer, req.Notes, req.RejectionReason, now)
	case dto.ReviewProcess:
		return s.process(ctx, request, reviewer, now)
	default:
		return nil, fmt.Errorf("%w: unknown review action %q", apperrors.ErrValidation, req.Action)
	}
}

func (s *WithdrawalService) applyTransition(ctx context.Context, request *domain.WithdrawalRequest, target domain.WithdrawalState, actorID string, now time.Time) error {
	if !request.State.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidTransition, request.State, target)
	}
	expectedVersion := request.Version
	request.State = target
	request.LastUpdatedAt = now
	request.LastUpdatedBy = actorID
	if err := s.withdrawalRepo.UpdateRequestState(ctx, *request, expectedVersion); err != nil {
		return err
	}
	request.Version = expectedVersion + 1
	return nil
}

func (s *WithdrawalService) approve(ctx context.Context, request *domain.WithdrawalRequest, reviewer *domain.Reviewer, notes string, now time.Time) (*domain.WithdrawalRequest, error) {
	if err := s.authorizeReview(request, reviewer, domain.CapApproveWithdrawals); err != nil {
		return nil, err
	}

	request.ReviewerNotes = notes
	request.ReviewedAt = &now
	if err := s.applyTransition(ctx, request, domain.WithdrawalApproved, reviewer.ReviewerID, now); err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Withdrawal approved",
		slog.String("request_id", request.RequestID),
		slog.String("reviewer_id", reviewer.ReviewerID))
	s.notifier.Notify(ctx, request.AccountID, domain.NotifyWithdrawalApproved,
		"Withdrawal approved",
		fmt.Sprintf("Your withdrawal of %s was approved", request.Amount.StringFixed(2)),
		map[string]any{"requestID": request.RequestID})

	return request, nil
}

func (s *WithdrawalService) reject(ctx context.Context, request *domain.WithdrawalRequest, reviewer *domain.Reviewer, notes, rejectionReason string, now time.Time) (*domain.WithdrawalRequest, error) {
	if err := s.authorizeReview(request, reviewer, domain.CapApproveWithdrawals); err != nil {
		return nil, err
	}
	if rejectionReason == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", apperrors.ErrValidation)
	}

	request.ReviewerNotes = notes
	request.RejectionReason = rejectionReason
	request.ReviewedAt = &now
	if err := s.applyTransition(ctx, request, domain.WithdrawalRejected, reviewer.ReviewerID, now); err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Withdrawal rejected",
		slog.String("request_id", request.RequestID),
		slog.String("reviewer_id", reviewer.ReviewerID),
		slog.String("reason", rejectionReason))
	s.notifier.Notify(ctx, request.AccountID, domain.NotifyWithdrawalRejected,
		"Withdrawal rejected",
		fmt.Sprintf("Your withdrawal of %s was rejected: %s", request.Amount.StringFixed(2), rejectionReason),
		map[string]any{"requestID": request.RequestID, "reason": rejectionReason})

	return request, nil
}

// process moves APPROVED to PROCESSING and inserts the settlement job in the
// same database transaction, so the job exists iff the transition committed.
func (s *WithdrawalService) process(ctx context.Context, request *domain.WithdrawalRequest, reviewer *domain.Reviewer, now time.Time) (*domain.WithdrawalRequest, error) {
	if err := s.authorizeReview(request, reviewer, domain.CapProcessPayouts); err != nil {
		return nil, err
	}
	if !request.State.CanTransitionTo(domain.WithdrawalProcessing) {
		return nil, fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidTransition, request.State, domain.WithdrawalProcessing)
	}
	enqueue := s.enqueuer()
	if enqueue == nil {
		return nil, fmt.Errorf("%w: settlement queue is not available", apperrors.ErrInternal)
	}

	expectedVersion := request.Version
	request.State = domain.WithdrawalProcessing
	request.ProcessedAt = &now
	request.LastUpdatedAt = now
	request.LastUpdatedBy = reviewer.ReviewerID

	tx, err := s.withdrawalRepo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.withdrawalRepo.Rollback(ctx, tx) }()

	if err := s.withdrawalRepo.UpdateRequestStateInTx(ctx, tx, *request, expectedVersion); err != nil {
		return nil, err
	}
	if err := enqueue(ctx, tx, jobs.SettlementArgs{RequestID: request.RequestID}); err != nil {
		return nil, fmt.Errorf("failed to enqueue settlement for request %s: %w", request.RequestID, err)
	}
	if err := s.withdrawalRepo.Commit(ctx, tx); err != nil {
		return nil, err
	}
	request.Version = expectedVersion + 1

	s.LogInfo(ctx, "Withdrawal processing scheduled",
		slog.String("request_id", request.RequestID),
		slog.String("reviewer_id", reviewer.ReviewerID))
	s.notifier.Notify(ctx, request.AccountID, domain.NotifyWithdrawalProcessed,
		"Withdrawal processing",
		fmt.Sprintf("Your withdrawal of %s is being paid out", request.Amount.StringFixed(2)),
		map[string]any{"requestID": request.RequestID})

	return request, nil
}

func (s *WithdrawalService) Cancel(ctx context.Context, requestID, accountID string) (*domain.WithdrawalRequest, error) {
	now := time.Now()

	request, err := s.withdrawalRepo.FindRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.AccountID != accountID {
		return nil, fmt.Errorf("%w: only the owning account may cancel", apperrors.ErrForbidden)
	}
	if request.State != domain.WithdrawalPending {
		return nil, fmt.Errorf("%w: cancel requires PENDING, got %s", apperrors.ErrInvalidTransition, request.State)
	}

	if err := s.applyTransition(ctx, request, domain.WithdrawalCancelled, accountID, now); err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Withdrawal cancelled",
		slog.String("request_id", request.RequestID),
		slog.String("account_id", accountID))
	s.notifier.Notify(ctx, accountID, domain.NotifyWithdrawalCancelled,
		"Withdrawal cancelled",
		fmt.Sprintf("Your withdrawal of %s was cancelled", request.Amount.StringFixed(2)),
		map[string]any{"requestID": request.RequestID})
	if request.ReviewerID != nil {
		s.notifier.Notify(ctx, *request.ReviewerID, domain.NotifyWithdrawalCancelled,
			"Withdrawal cancelled",
			fmt.Sprintf("Request %s was cancelled by the account", request.RequestID),
			map[string]any{"requestID": request.RequestID})
	}

	return request, nil
}

// Hold moves a PENDING request to UNDER_REVIEW. Admin override only; the
// request returns to the normal flow via approve or reject.
func (s *WithdrawalService) Hold(ctx context.Context, requestID, reviewerID string) (*domain.WithdrawalRequest, error) {
	now := time.Now()

	request, err := s.withdrawalRepo.FindRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	reviewer, err := s.reviewerRepo.FindReviewerByID(ctx, reviewerID)
	if err != nil {
		return nil, err
	}
	if !reviewer.HasCapability(domain.CapAdminOverride) {
		return nil, fmt.Errorf("%w: placing a request under review requires %s", apperrors.ErrForbidden, domain.CapAdminOverride)
	}

	if err := s.applyTransition(ctx, request, domain.WithdrawalUnderReview, reviewerID, now); err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Withdrawal placed under review",
		slog.String("request_id", request.RequestID),
		slog.String("reviewer_id", reviewerID))
	s.notifier.Notify(ctx, request.AccountID, domain.NotifyWithdrawalUnderHold,
		"Withdrawal under review",
		fmt.Sprintf("Your withdrawal of %s needs additional review", request.Amount.StringFixed(2)),
		map[string]any{"requestID": request.RequestID})

	return request, nil
}

// SettleWithdrawal finishes a PROCESSING request: books the negative ledger
// entry and completes the request atomically. Idempotent on the request id,
// so a retried job after a partial failure converges instead of double
// booking.
func (s *WithdrawalService) SettleWithdrawal(ctx context.Context, requestID string) error {
	now := time.Now()

	request, err := s.withdrawalRepo.FindRequestByID(ctx, requestID)
	if err != nil {
		return err
	}
	if request.State == domain.WithdrawalCompleted {
		s.LogInfo(ctx, "Settlement replay on completed request ignored",
			slog.String("request_id", requestID))
		return nil
	}
	if request.State != domain.WithdrawalProcessing {
		return fmt.Errorf("%w: settlement requires PROCESSING, got %s", apperrors.ErrInvalidTransition, request.State)
	}

	entry := domain.LedgerEntry{
		EntryID:     uuid.NewString(),
		AccountID:   request.AccountID,
		Amount:      request.Amount.Neg(),
		Category:    domain.EntryWithdrawal,
		Description: fmt.Sprintf("Withdrawal payout (net %s, tax %s)", request.NetAmount.StringFixed(2), request.TaxAmount.StringFixed(2)),
		Reference:   request.LedgerReference(),
		CreatedAt:   now,
		CreatedBy:   "SYSTEM",
	}

	expectedVersion := request.Version
	request.State = domain.WithdrawalCompleted
	request.CompletedAt = &now
	request.LastUpdatedAt = now
	request.LastUpdatedBy = "SYSTEM"

	tx, err := s.withdrawalRepo.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = s.withdrawalRepo.Rollback(ctx, tx) }()

	if err := s.ledgerRepo.AppendEntryInTx(ctx, tx, entry); err != nil {
		// A duplicate means a prior attempt booked the debit before dying;
		// carry on and finish the transition.
		if !errors.Is(err, apperrors.ErrDuplicateEntry) {
			return err
		}
		s.LogWarn(ctx, "Settlement ledger entry already booked",
			slog.String("request_id", requestID))
	}
	if err := s.withdrawalRepo.UpdateRequestStateInTx(ctx, tx, *request, expectedVersion); err != nil {
		return err
	}
	if err := s.accountRepo.AdjustCachedBalanceInTx(ctx, tx, request.AccountID, request.Amount.Neg(), "SYSTEM", now); err != nil {
		return err
	}
	if request.ReviewerID != nil {
		if err := s.reviewerRepo.IncrementProcessedInTx(ctx, tx, *request.ReviewerID, request.Amount, now); err != nil {
			return err
		}
	}
	if err := s.withdrawalRepo.Commit(ctx, tx); err != nil {
		return err
	}

	s.LogInfo(ctx, "Withdrawal settled",
		slog.String("request_id", requestID),
		slog.String("account_id", request.AccountID),
		slog.String("net_amount", request.NetAmount.String()))
	s.notifier.Notify(ctx, request.AccountID, domain.NotifyWithdrawalCompleted,
		"Withdrawal completed",
		fmt.Sprintf("Your withdrawal of %s has been paid out (net %s)", request.Amount.StringFixed(2), request.NetAmount.StringFixed(2)),
		map[string]any{"requestID": requestID, "netAmount": request.NetAmount})

	return nil
}
