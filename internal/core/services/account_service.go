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
	"github.com/shopspring/decimal"
)

// accountService manages member accounts and the subscription boundary.
// Payment verification happens outside this system; this service only books
// purchases the external payment authority has already verified.
type accountService struct {
	BaseService
	accountRepo portsrepo.AccountRepositoryWithTx
	ledgerRepo  portsrepo.LedgerRepositoryWithTx
	notifier    portssvc.Notifier
}

// NewAccountService creates a new AccountService.
func NewAccountService(accountRepo portsrepo.AccountRepositoryWithTx, ledgerRepo portsrepo.LedgerRepositoryWithTx, notifier portssvc.Notifier) portssvc.AccountSvcFacade {
	return &accountService{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		notifier:    notifier,
	}
}

var _ portssvc.AccountSvcFacade = (*accountService)(nil)

// GetAccount retrieves an account by id.
func (s *accountService) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.accountRepo.FindAccountByID(ctx, accountID)
}

// CreateAccount registers a new member account with no tier.
func (s *accountService) CreateAccount(ctx context.Context, req dto.CreateAccountRequest, creatorID string) (*domain.Account, error) {
	now := time.Now()
	account := domain.Account{
		AccountID:     uuid.NewString(),
		DisplayName:   req.DisplayName,
		Tier:          domain.TierNone,
		WalletBalance: decimal.Zero,
		IsActive:      true,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorID,
		},
	}

	if err := s.accountRepo.SaveAccount(ctx, account); err != nil {
		s.LogError(ctx, err, "Failed to create account", slog.String("display_name", req.DisplayName))
		return nil, err
	}

	s.LogInfo(ctx, "Account created", slog.String("account_id", account.AccountID))
	return &account, nil
}

// ApplyVerifiedPurchase books an externally verified subscription purchase:
// one SUBSCRIPTION_PAYMENT ledger entry plus the tier update, in a single
// transaction. The external transaction id is the idempotency key, so a
// replayed confirmation cannot book twice.
func (s *accountService) ApplyVerifiedPurchase(ctx context.Context, req dto.ConfirmSubscriptionRequest, actorID string) (*domain.Account, error) {
	now := time.Now()

	if !req.Tier.Valid() {
		return nil, fmt.Errorf("%w: unknown tier %s", apperrors.ErrValidation, req.Tier)
	}
	if !req.AmountPaid.IsPositive() {
		return nil, fmt.Errorf("%w: amount paid must be positive", apperrors.ErrValidation)
	}

	account, err := s.accountRepo.FindAccountByID(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, fmt.Errorf("%w: account %s is inactive", apperrors.ErrValidation, req.AccountID)
	}

	entry := domain.LedgerEntry{
		EntryID:     uuid.NewString(),
		AccountID:   req.AccountID,
		Amount:      req.AmountPaid.Neg(),
		Category:    domain.EntrySubscriptionPayment,
		Description: fmt.Sprintf("Subscription purchase: %s", req.Tier),
		Reference:   req.ExternalTransactionID,
		CreatedAt:   now,
		CreatedBy:   actorID,
	}
	expiresAt := now.Add(req.Tier.Benefits().Duration)

	tx, err := s.accountRepo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.accountRepo.Rollback(ctx, tx) }()

	if err := s.ledgerRepo.AppendEntryInTx(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := s.accountRepo.UpdateTierInTx(ctx, tx, req.AccountID, req.Tier, &expiresAt, actorID, now); err != nil {
		return nil, err
	}
	if err := s.accountRepo.AdjustCachedBalanceInTx(ctx, tx, req.AccountID, req.AmountPaid.Neg(), actorID, now); err != nil {
		return nil, err
	}
	if err := s.accountRepo.Commit(ctx, tx); err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Subscription purchase applied",
		slog.String("account_id", req.AccountID),
		slog.String("tier", string(req.Tier)),
		slog.String("external_txn_id", req.ExternalTransactionID))

	s.notifier.Notify(ctx, req.AccountID, domain.NotifySubscriptionActive,
		"Subscription activated",
		fmt.Sprintf("Your %s subscription is active until %s", req.Tier, expiresAt.Format(time.RFC3339)),
		map[string]any{"tier": req.Tier, "expiresAt": expiresAt})

	account.Tier = req.Tier
	account.TierExpiresAt = &expiresAt
	account.LastUpdatedAt = now
	account.LastUpdatedBy = actorID
	return account, nil
}

// ExpireTiers sweeps accounts whose tier validity has lapsed.
func (s *accountService) ExpireTiers(ctx context.Context, now time.Time) (int, error) {
	swept, err := s.accountRepo.ExpireTiers(ctx, now)
	if err != nil {
		s.LogError(ctx, err, "Tier expiry sweep failed")
		return 0, err
	}
	if swept > 0 {
		s.LogInfo(ctx, "Tier expiry sweep completed", slog.Int("accounts_downgraded", swept))
	}
	return swept, nil
}
