package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/TaskRupee/task_rupee_app/internal/apperrors"
	"github.com/TaskRupee/task_rupee_app/internal/core/domain"
	portsrepo "github.com/TaskRupee/task_rupee_app/internal/core/ports/repositories"
	portssvc "github.com/TaskRupee/task_rupee_app/internal/core/ports/services"
	"github.com/TaskRupee/task_rupee_app/internal/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// assignmentService balances accounts across the reviewer pool.
type assignmentService struct {
	BaseService
	reviewerRepo portsrepo.ReviewerRepositoryWithTx
	accountRepo  portsrepo.AccountRepositoryWithTx
	notifier     portssvc.Notifier
}

// NewAssignmentService creates a new AssignmentService.
func NewAssignmentService(reviewerRepo portsrepo.ReviewerRepositoryWithTx, accountRepo portsrepo.AccountRepositoryWithTx, notifier portssvc.Notifier) portssvc.AssignmentSvcFacade {
	return &assignmentService{
		reviewerRepo: reviewerRepo,
		accountRepo:  accountRepo,
		notifier:     notifier,
	}
}

var _ portssvc.AssignmentSvcFacade = (*assignmentService)(nil)

// AutoAssign greedily assigns every unassigned tier-holding account to the
// least-loaded reviewer with spare capacity. The in-batch load counter is
// bumped immediately so the next account in the batch sees the updated load;
// a single reviewer's free slot can never be promised to the whole batch.
func (s *assignmentService) AutoAssign(ctx context.Context, actorID string) (*dto.AutoAssignResult, error) {
	now := time.Now()

	accounts, err := s.accountRepo.ListUnassignedTieredAccounts(ctx, now)
	if err != nil {
		return nil, err
	}
	reviewers, err := s.reviewerRepo.ListActiveReviewers(ctx)
	if err != nil {
		return nil, err
	}

	eligible := make([]*domain.Reviewer, 0, len(reviewers))
	for i := range reviewers {
		if reviewers[i].HasCapability(domain.CapManageAssignments) {
			eligible = append(eligible, &reviewers[i])
		}
	}

	result := &dto.AutoAssignResult{}
	for i := range accounts {
		var chosen *domain.Reviewer
		for _, r := range eligible {
			if !r.HasSpareCapacity() {
				continue
			}
			if chosen == nil || r.AssignedAccountCount < chosen.AssignedAccountCount {
				chosen = r
			}
		}
		if chosen == nil {
			// pool is full; everything remaining stays unassigned
			result.Unassigned = len(accounts) - i
			break
		}

		if err := s.reviewerRepo.AssignAccount(ctx, accounts[i].AccountID, chosen.ReviewerID, nil); err != nil {
			s.LogError(ctx, err, "Auto-assignment failed for account",
				slog.String("account_id", accounts[i].AccountID),
				slog.String("reviewer_id", chosen.ReviewerID))
			result.Unassigned++
			continue
		}
		chosen.AssignedAccountCount++
		result.Assigned++
	}

	s.LogInfo(ctx, "Auto-assignment completed",
		slog.Int("assigned", result.Assigned),
		slog.Int("unassigned", result.Unassigned),
		slog.String("actor", actorID))
	return result, nil
}

// ManualAssign pins an account to a specific reviewer. The release of the old
// assignment and the new one happen in one database transaction, so the
// account is never counted against two reviewers at once.
func (s *assignmentService) ManualAssign(ctx context.Context, accountID, reviewerID, actorID string) error {
	now := time.Now()

	reviewer, err := s.reviewerRepo.FindReviewerByID(ctx, reviewerID)
	if err != nil {
		return err
	}
	if !reviewer.IsActive {
		return fmt.Errorf("%w: reviewer %s is not active", apperrors.ErrValidation, reviewerID)
	}
	if !reviewer.HasSpareCapacity() {
		return fmt.Errorf("%w: reviewer %s is at capacity", apperrors.ErrNoCapacity, reviewerID)
	}

	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !account.HasActiveTier(now) {
		return fmt.Errorf("%w: account %s holds no active tier", apperrors.ErrTierRequired, accountID)
	}
	if account.ReviewerID != nil && *account.ReviewerID == reviewerID {
		return nil // already pinned here
	}

	if err := s.reviewerRepo.AssignAccount(ctx, accountID, reviewerID, account.ReviewerID); err != nil {
		return err
	}

	s.LogInfo(ctx, "Manual assignment completed",
		slog.String("account_id", accountID),
		slog.String("reviewer_id", reviewerID),
		slog.String("actor", actorID))
	s.notifier.Notify(ctx, reviewerID, domain.NotifyAssignmentChanged,
		"Account assigned",
		fmt.Sprintf("Account %s was assigned to you", accountID),
		map[string]any{"accountID": accountID})
	return nil
}

// Redistribute clears every assignment and round-robins the eligible accounts
// over active reviewers sorted by id. Manual pinning is destroyed by design;
// the operation targets reviewer-pool membership changes, not incremental
// rebalancing.
func (s *assignmentService) Redistribute(ctx context.Context, actorID string) (*dto.RedistributeResult, error) {
	now := time.Now()

	accountIDs, err := s.accountRepo.ListTieredAccountIDs(ctx, now)
	if err != nil {
		return nil, err
	}
	reviewers, err := s.reviewerRepo.ListActiveReviewers(ctx)
	if err != nil {
		return nil, err
	}
	if len(reviewers) == 0 {
		return nil, fmt.Errorf("%w: no active reviewers to redistribute over", apperrors.ErrNoCapacity)
	}

	sort.Slice(reviewers, func(i, j int) bool { return reviewers[i].ReviewerID < reviewers[j].ReviewerID })

	targetLoad := (len(accountIDs) + len(reviewers) - 1) / len(reviewers)

	pairs := make([]portsrepo.AssignmentPair, 0, len(accountIDs))
	for i, accountID := range accountIDs {
		pairs = append(pairs, portsrepo.AssignmentPair{
			AccountID:  accountID,
			ReviewerID: reviewers[i%len(reviewers)].ReviewerID,
		})
	}

	if err := s.reviewerRepo.ReplaceAllAssignments(ctx, pairs, actorID, now); err != nil {
		return nil, err
	}

	result := &dto.RedistributeResult{
		Accounts:   len(accountIDs),
		Reviewers:  len(reviewers),
		TargetLoad: targetLoad,
	}
	s.LogInfo(ctx, "Redistribution completed",
		slog.Int("accounts", result.Accounts),
		slog.Int("reviewers", result.Reviewers),
		slog.Int("target_load", result.TargetLoad),
		slog.String("actor", actorID))
	return result, nil
}

// CreateReviewer registers a new reviewer.
func (s *assignmentService) CreateReviewer(ctx context.Context, req dto.CreateReviewerRequest, actorID string) (*domain.Reviewer, error) {
	now := time.Now()

	for _, c := range req.Capabilities {
		switch c {
		case domain.CapManageAssignments, domain.CapApproveWithdrawals, domain.CapProcessPayouts, domain.CapAdminOverride:
		default:
			return nil, fmt.Errorf("%w: unknown capability %s", apperrors.ErrValidation, c)
		}
	}

	reviewer := domain.Reviewer{
		ReviewerID:      uuid.NewString(),
		DisplayName:     req.DisplayName,
		IsActive:        true,
		Capabilities:    req.Capabilities,
		MaxCapacity:     req.MaxCapacity,
		ProcessedAmount: decimal.Zero,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actorID,
			LastUpdatedAt: now,
			LastUpdatedBy: actorID,
		},
	}

	if err := s.reviewerRepo.SaveReviewer(ctx, reviewer); err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Reviewer created",
		slog.String("reviewer_id", reviewer.ReviewerID),
		slog.Int("max_capacity", reviewer.MaxCapacity))
	return &reviewer, nil
}

// GetReviewer retrieves one reviewer with assignment lists.
func (s *assignmentService) GetReviewer(ctx context.Context, reviewerID string) (*domain.Reviewer, error) {
	return s.reviewerRepo.FindReviewerByID(ctx, reviewerID)
}

// ListReviewers returns all reviewers.
func (s *assignmentService) ListReviewers(ctx context.Context) ([]domain.Reviewer, error) {
	return s.reviewerRepo.ListReviewers(ctx)
}

// DeactivateReviewer retires a reviewer. Refused while assignments remain
// unless reassign is set, which releases the accounts and sweeps them back
// into the pool via auto-assignment.
func (s *assignmentService) DeactivateReviewer(ctx context.Context, reviewerID string, reassign bool, actorID string) error {
	now := time.Now()

	reviewer, err := s.reviewerRepo.FindReviewerByID(ctx, reviewerID)
	if err != nil {
		return err
	}

	if reviewer.AssignedAccountCount > 0 {
		if !reassign {
			return fmt.Errorf("%w: reviewer %s still has %d assigned accounts", apperrors.ErrConflict, reviewerID, reviewer.AssignedAccountCount)
		}
		released, err := s.reviewerRepo.ReleaseReviewerAccounts(ctx, reviewerID, actorID, now)
		if err != nil {
			return err
		}
		s.LogInfo(ctx, "Released accounts from retiring reviewer",
			slog.String("reviewer_id", reviewerID),
			slog.Int("released", len(released)))
	}

	if err := s.reviewerRepo.DeactivateReviewer(ctx, reviewerID, actorID, now); err != nil {
		return err
	}

	if reassign {
		if _, err := s.AutoAssign(ctx, actorID); err != nil {
			s.LogError(ctx, err, "Reassignment sweep after deactivation failed",
				slog.String("reviewer_id", reviewerID))
		}
	}

	s.LogInfo(ctx, "Reviewer deactivated",
		slog.String("reviewer_id", reviewerID),
		slog.String("actor", actorID))
	return nil
}
