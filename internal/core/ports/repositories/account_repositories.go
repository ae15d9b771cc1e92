package repositories

import (
	"context"
	"time"

	"github.com/TaskRupee/task_rupee_app/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// AccountReader defines read operations for account data
type AccountReader interface {
	// FindAccountByID retrieves an account by its unique identifier.
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// FindAccountByIDForUpdate locks the account row within tx and returns it.
	// Used to serialize withdrawal submissions per account.
	FindAccountByIDForUpdate(ctx context.Context, tx pgx.Tx, accountID string) (*domain.Account, error)

	// ListUnassignedTieredAccounts returns active accounts holding a live tier
	// with no assigned reviewer, in stable creation order.
	ListUnassignedTieredAccounts(ctx context.Context, now time.Time) ([]domain.Account, error)

	// ListTieredAccountIDs returns the ids of all active accounts holding a
	// live tier, in stable creation order.
	ListTieredAccountIDs(ctx context.Context, now time.Time) ([]string, error)
}

// AccountWriter defines write operations for account data
type AccountWriter interface {
	// SaveAccount persists a new account.
	SaveAccount(ctx context.Context, account domain.Account) error

	// UpdateTierInTx sets the account's tier and expiry inside an existing transaction.
	UpdateTierInTx(ctx context.Context, tx pgx.Tx, accountID string, tier domain.Tier, expiresAt *time.Time, updatedBy string, now time.Time) error

	// AdjustCachedBalanceInTx applies a signed delta to the cached wallet
	// balance inside the same transaction as the ledger append that caused it.
	AdjustCachedBalanceInTx(ctx context.Context, tx pgx.Tx, accountID string, delta decimal.Decimal, updatedBy string, now time.Time) error

	// ExpireTiers clears the tier on accounts whose expiry has passed,
	// returning how many were swept.
	ExpireTiers(ctx context.Context, now time.Time) (int, error)
}

// AccountRepositoryFacade combines all account repository interfaces.
type AccountRepositoryFacade interface {
	AccountReader
	AccountWriter
}

// AccountRepositoryWithTx extends AccountRepositoryFacade with transaction capabilities.
type AccountRepositoryWithTx interface {
	AccountRepositoryFacade
	TransactionManager
}
