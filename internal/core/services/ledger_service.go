package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/TaskRupee/task_rupee_app/internal/apperrors"
	"github.com/TaskRupee/task_rupee_app/internal/core/domain"
	portsrepo "github.com/TaskRupee/task_rupee_app/internal/core/ports/repositories"
	portssvc "github.com/TaskRupee/task_rupee_app/internal/core/ports/services"
	"github.com/TaskRupee/task_rupee_app/internal/dto"
	"github.com/google/uuid"
)

const defaultPageLimit = 20
const maxPageLimit = 100

// ledgerService folds the append-only entry log into derived balances and
// books task rewards against the tier quota.
type ledgerService struct {
	BaseService
	ledgerRepo  portsrepo.LedgerRepositoryWithTx
	accountRepo portsrepo.AccountRepositoryWithTx
	quotaSvc    portssvc.QuotaSvcFacade
	notifier    portssvc.Notifier
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(ledgerRepo portsrepo.LedgerRepositoryWithTx, accountRepo portsrepo.AccountRepositoryWithTx, quotaSvc portssvc.QuotaSvcFacade, notifier portssvc.Notifier) portssvc.LedgerSvcFacade {
	return &ledgerService{
		ledgerRepo:  ledgerRepo,
		accountRepo: accountRepo,
		quotaSvc:    quotaSvc,
		notifier:    notifier,
	}
}

var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

// GetBalance folds the account's entries into the derived balance summary.
// The ledger fold is authoritative; the cached wallet balance is only a
// cross-check and the greater of the two is reported on divergence.
func (s *ledgerService) GetBalance(ctx context.Context, accountID string) (*domain.BalanceSummary, error) {
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	earned, spent, err := s.ledgerRepo.SumEntriesByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	summary := domain.NewBalanceSummary(accountID, earned, spent)
	if summary.Clamped {
		s.LogWarn(ctx, "Derived balance was negative and clamped to zero",
			slog.String("account_id", accountID),
			slog.String("earned", earned.String()),
			slog.String("spent", spent.String()))
	}

	if !account.WalletBalance.Equal(summary.Balance) {
		s.LogWarn(ctx, "Cached wallet balance diverges from ledger fold",
			slog.String("account_id", accountID),
			slog.String("cached", account.WalletBalance.String()),
			slog.String("derived", summary.Balance.String()))
		if account.WalletBalance.GreaterThan(summary.Balance) {
			summary.Balance = account.WalletBalance
		}
	}

	return &summary, nil
}

// ListEntries retrieves a token-paginated page of the account's ledger history.
func (s *ledgerService) ListEntries(ctx context.Context, accountID string, params dto.ListEntriesParams) (*dto.ListEntriesResponse, error) {
	if _, err := s.accountRepo.FindAccountByID(ctx, accountID); err != nil {
		return nil, err
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	entries, nextToken, err := s.ledgerRepo.ListEntriesByAccount(ctx, accountID, limit, params.NextToken)
	if err != nil {
		return nil, err
	}

	return &dto.ListEntriesResponse{
		Entries:   dto.ToLedgerEntryResponses(entries),
		NextToken: nextToken,
	}, nil
}

// RecordTaskReward books the tier-derived reward for one completed task.
// The task reference is the idempotency key: replaying it cannot create a
// second entry or change the derived balance.
func (s *ledgerService) RecordTaskReward(ctx context.Context, accountID string, req dto.CompleteTaskRequest) (*domain.LedgerEntry, error) {
	now := time.Now()

	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, fmt.Errorf("%w: account %s is inactive", apperrors.ErrValidation, accountID)
	}
	if !account.HasActiveTier(now) {
		return nil, fmt.Errorf("%w: account %s holds no active tier", apperrors.ErrTierRequired, accountID)
	}

	benefits := account.Tier.Benefits()
	taskCount, err := s.quotaSvc.DailyTaskCount(ctx, accountID, now)
	if err != nil {
		return nil, err
	}
	if taskCount >= benefits.DailyTaskLimit {
		return nil, fmt.Errorf("%w: daily task limit of %d reached", apperrors.ErrQuotaExceeded, benefits.DailyTaskLimit)
	}

	reward := account.Tier.RewardPerTask()
	entry := domain.LedgerEntry{
		EntryID:     uuid.NewString(),
		AccountID:   accountID,
		Amount:      reward,
		Category:    domain.EntryTaskReward,
		Description: req.Description,
		Reference:   req.TaskReference,
		CreatedAt:   now,
		CreatedBy:   accountID,
	}

	tx, err := s.ledgerRepo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.ledgerRepo.Rollback(ctx, tx) }()

	if err := s.ledgerRepo.AppendEntryInTx(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := s.accountRepo.AdjustCachedBalanceInTx(ctx, tx, accountID, reward, accountID, now); err != nil {
		return nil, err
	}
	if err := s.ledgerRepo.Commit(ctx, tx); err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Task reward booked",
		slog.String("account_id", accountID),
		slog.String("task_reference", req.TaskReference),
		slog.String("amount", reward.String()))

	s.notifier.Notify(ctx, accountID, domain.NotifyTaskRewarded,
		"Task reward credited",
		fmt.Sprintf("Reward of %s credited for task %s", reward.StringFixed(2), req.TaskReference),
		map[string]any{"entryID": entry.EntryID, "amount": reward})

	return &entry, nil
}
