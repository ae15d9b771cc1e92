package services_test

import (
	"context"
	"sync"
	"time"

	"github.com/TaskRupee/task_rupee_app/internal/core/domain"
	portsrepo "github.com/TaskRupee/task_rupee_app/internal/core/ports/repositories"
	portssvc "github.com/TaskRupee/task_rupee_app/internal/core/ports/services"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// --- Mock AccountRepository ---

type MockAccountRepository struct {
	mock.Mock
}

var _ portsrepo.AccountRepositoryWithTx = (*MockAccountRepository)(nil)

func (m *MockAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAccountByIDForUpdate(ctx context.Context, tx pgx.Tx, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, tx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ListUnassignedTieredAccounts(ctx context.Context, now time.Time) ([]domain.Account, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ListTieredAccountIDs(ctx context.Context, now time.Time) ([]string, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateTierInTx(ctx context.Context, tx pgx.Tx, accountID string, tier domain.Tier, expiresAt *time.Time, updatedBy string, now time.Time) error {
	args := m.Called(ctx, tx, accountID, tier, expiresAt, updatedBy, now)
	return args.Error(0)
}

func (m *MockAccountRepository) AdjustCachedBalanceInTx(ctx context.Context, tx pgx.Tx, accountID string, delta decimal.Decimal, updatedBy string, now time.Time) error {
	args := m.Called(ctx, tx, accountID, delta, updatedBy, now)
	return args.Error(0)
}

func (m *MockAccountRepository) ExpireTiers(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

func (m *MockAccountRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Tx), args.Error(1)
}

func (m *MockAccountRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockAccountRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

// --- Mock LedgerRepository ---

type MockLedgerRepository struct {
	mock.Mock
}

var _ portsrepo.LedgerRepositoryWithTx = (*MockLedgerRepository)(nil)

func (m *MockLedgerRepository) AppendEntry(ctx context.Context, entry domain.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) AppendEntryInTx(ctx context.Context, tx pgx.Tx, entry domain.LedgerEntry) error {
	args := m.Called(ctx, tx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) SumEntriesByAccount(ctx context.Context, accountID string) (decimal.Decimal, decimal.Decimal, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(decimal.Decimal), args.Get(1).(decimal.Decimal), args.Error(2)
}

func (m *MockLedgerRepository) CountEntriesSince(ctx context.Context, accountID string, category domain.EntryCategory, since time.Time) (int, error) {
	args := m.Called(ctx, accountID, category, since)
	return args.Int(0), args.Error(1)
}

func (m *MockLedgerRepository) ListEntriesByAccount(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.LedgerEntry, *string, error) {
	args := m.Called(ctx, accountID, limit, nextToken)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var returnedNextToken *string
	if args.Get(1) != nil {
		tokenVal := args.Get(1).(string)
		returnedNextToken = &tokenVal
	}
	return args.Get(0).([]domain.LedgerEntry), returnedNextToken, args.Error(2)
}

func (m *MockLedgerRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Tx), args.Error(1)
}

func (m *MockLedgerRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockLedgerRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

// --- Mock WithdrawalRepository ---

type MockWithdrawalRepository struct {
	mock.Mock
}

var _ portsrepo.WithdrawalRepositoryWithTx = (*MockWithdrawalRepository)(nil)

func (m *MockWithdrawalRepository) FindRequestByID(ctx context.Context, requestID string) (*domain.WithdrawalRequest, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WithdrawalRequest), args.Error(1)
}

func (m *MockWithdrawalRepository) FindRequestByClientReference(ctx context.Context, accountID, clientReference string) (*domain.WithdrawalRequest, error) {
	args := m.Called(ctx, accountID, clientReference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WithdrawalRequest), args.Error(1)
}

func (m *MockWithdrawalRepository) ListRequestsByAccount(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.WithdrawalRequest, *string, error) {
	args := m.Called(ctx, accountID, limit, nextToken)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var returnedNextToken *string
	if args.Get(1) != nil {
		tokenVal := args.Get(1).(string)
		returnedNextToken = &tokenVal
	}
	return args.Get(0).([]domain.WithdrawalRequest), returnedNextToken, args.Error(2)
}

func (m *MockWithdrawalRepository) ListRequestsByReviewer(ctx context.Context, reviewerID string, state *domain.WithdrawalState, limit int, nextToken *string) ([]domain.WithdrawalRequest, *string, error) {
	args := m.Called(ctx, reviewerID, state, limit, nextToken)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var returnedNextToken *string
	if args.Get(1) != nil {
		tokenVal := args.Get(1).(string)
		returnedNextToken = &tokenVal
	}
	return args.Get(0).([]domain.WithdrawalRequest), returnedNextToken, args.Error(2)
}

func (m *MockWithdrawalRepository) SumGrossSince(ctx context.Context, accountID string, since time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID, since)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockWithdrawalRepository) SaveRequest(ctx context.Context, request domain.WithdrawalRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockWithdrawalRepository) SaveRequestInTx(ctx context.Context, tx pgx.Tx, request domain.WithdrawalRequest) error {
	args := m.Called(ctx, tx, request)
	return args.Error(0)
}

func (m *MockWithdrawalRepository) UpdateRequestState(ctx context.Context, request domain.WithdrawalRequest, expectedVersion int64) error {
	args := m.Called(ctx, request, expectedVersion)
	return args.Error(0)
}

func (m *MockWithdrawalRepository) UpdateRequestStateInTx(ctx context.Context, tx pgx.Tx, request domain.WithdrawalRequest, expectedVersion int64) error {
	args := m.Called(ctx, tx, request, expectedVersion)
	return args.Error(0)
}

func (m *MockWithdrawalRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Tx), args.Error(1)
}

func (m *MockWithdrawalRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockWithdrawalRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

// --- Mock ReviewerRepository ---

type MockReviewerRepository struct {
	mock.Mock
}

var _ portsrepo.ReviewerRepositoryWithTx = (*MockReviewerRepository)(nil)

func (m *MockReviewerRepository) FindReviewerByID(ctx context.Context, reviewerID string) (*domain.Reviewer, error) {
	args := m.Called(ctx, reviewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reviewer), args.Error(1)
}

func (m *MockReviewerRepository) ListActiveReviewers(ctx context.Context) ([]domain.Reviewer, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Reviewer), args.Error(1)
}

func (m *MockReviewerRepository) ListReviewers(ctx context.Context) ([]domain.Reviewer, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Reviewer), args.Error(1)
}

func (m *MockReviewerRepository) SaveReviewer(ctx context.Context, reviewer domain.Reviewer) error {
	args := m.Called(ctx, reviewer)
	return args.Error(0)
}

func (m *MockReviewerRepository) AssignAccount(ctx context.Context, accountID, toReviewerID string, fromReviewerID *string) error {
	args := m.Called(ctx, accountID, toReviewerID, fromReviewerID)
	return args.Error(0)
}

func (m *MockReviewerRepository) AppendRequestAssignment(ctx context.Context, reviewerID, requestID string) error {
	args := m.Called(ctx, reviewerID, requestID)
	return args.Error(0)
}

func (m *MockReviewerRepository) ReplaceAllAssignments(ctx context.Context, pairs []portsrepo.AssignmentPair, updatedBy string, now time.Time) error {
	args := m.Called(ctx, pairs, updatedBy, now)
	return args.Error(0)
}

func (m *MockReviewerRepository) ReleaseReviewerAccounts(ctx context.Context, reviewerID string, updatedBy string, now time.Time) ([]string, error) {
	args := m.Called(ctx, reviewerID, updatedBy, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockReviewerRepository) DeactivateReviewer(ctx context.Context, reviewerID string, updatedBy string, now time.Time) error {
	args := m.Called(ctx, reviewerID, updatedBy, now)
	return args.Error(0)
}

func (m *MockReviewerRepository) IncrementProcessedInTx(ctx context.Context, tx pgx.Tx, reviewerID string, amount decimal.Decimal, now time.Time) error {
	args := m.Called(ctx, tx, reviewerID, amount, now)
	return args.Error(0)
}

func (m *MockReviewerRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Tx), args.Error(1)
}

func (m *MockReviewerRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockReviewerRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

// --- Mock QuotaService ---

type MockQuotaService struct {
	mock.Mock
}

var _ portssvc.QuotaSvcFacade = (*MockQuotaService)(nil)

func (m *MockQuotaService) DailyTaskCount(ctx context.Context, accountID string, asOf time.Time) (int, error) {
	args := m.Called(ctx, accountID, asOf)
	return args.Int(0), args.Error(1)
}

func (m *MockQuotaService) WithdrawalWindowTotal(ctx context.Context, accountID string, windowStart time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID, windowStart)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockQuotaService) CheckWithdrawalQuotas(ctx context.Context, accountID string, amount decimal.Decimal, now time.Time) error {
	args := m.Called(ctx, accountID, amount, now)
	return args.Error(0)
}

// --- Recording Notifier ---

// recordedNotification captures one emitted notification for assertions.
type recordedNotification struct {
	TargetID string
	Category domain.NotificationCategory
}

// RecordingNotifier collects notifications instead of publishing them.
type RecordingNotifier struct {
	mu       sync.Mutex
	notified []recordedNotification
}

var _ portssvc.Notifier = (*RecordingNotifier)(nil)

func (n *RecordingNotifier) Notify(ctx context.Context, targetID string, category domain.NotificationCategory, title, message string, payload map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notified = append(n.notified, recordedNotification{TargetID: targetID, Category: category})
}

// Categories returns the emitted categories in order.
func (n *RecordingNotifier) Categories() []domain.NotificationCategory {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.NotificationCategory, len(n.notified))
	for i, r := range n.notified {
		out[i] = r.Category
	}
	return out
}

// SentTo reports whether any notification targeted the given id with the category.
func (n *RecordingNotifier) SentTo(targetID string, category domain.NotificationCategory) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, r := range n.notified {
		if r.TargetID == targetID && r.Category == category {
			return true
		}
	}
	return false
}
