package pgsql

import (
	"context"
	"errors"
	"time"

	"github.com/TaskRupee/task_rupee_app/internal/apperrors"
	"github.com/TaskRupee/task_rupee_app/internal/core/domain"
	portsrepo "github.com/TaskRupee/task_rupee_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PgxAccountRepository struct {
	BaseRepository
}

func newPgxAccountRepository(pool *pgxpool.Pool) portsrepo.AccountRepositoryWithTx {
	return &PgxAccountRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.AccountRepositoryWithTx = (*PgxAccountRepository)(nil)

const accountColumns = `account_id, display_name, tier, tier_expires_at, reviewer_id, wallet_balance, is_active, created_at, created_by, last_updated_at, last_updated_by`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.AccountID,
		&a.DisplayName,
		&a.Tier,
		&a.TierExpiresAt,
		&a.ReviewerID,
		&a.WalletBalance,
		&a.IsActive,
		&a.CreatedAt,
		&a.CreatedBy,
		&a.LastUpdatedAt,
		&a.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to scan account row", err)
	}
	return &a, nil
}

// SaveAccount inserts a new account.
func (r *PgxAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	_, err := r.Pool.Exec(ctx, query,
		account.AccountID,
		account.DisplayName,
		account.Tier,
		account.TierExpiresAt,
		account.ReviewerID,
		account.WalletBalance,
		account.IsActive,
		account.CreatedAt,
		account.CreatedBy,
		account.LastUpdatedAt,
		account.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrDuplicate
		}
		return apperrors.NewAppError(500, "failed to save account "+account.AccountID, err)
	}
	return nil
}

// FindAccountByID retrieves an account by its ID.
func (r *PgxAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1;`
	return scanAccount(r.Pool.QueryRow(ctx, query, accountID))
}

// FindAccountByIDForUpdate locks the account row within tx. Withdrawal
// submission uses this to serialize per-account balance checks.
func (r *PgxAccountRepository) FindAccountByIDForUpdate(ctx context.Context, tx pgx.Tx, accountID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1 FOR UPDATE;`
	return scanAccount(tx.QueryRow(ctx, query, accountID))
}

// ListUnassignedTieredAccounts returns active accounts with a live tier and
// no reviewer, in creation order so assignment tie-breaks are stable.
func (r *PgxAccountRepository) ListUnassignedTieredAccounts(ctx context.Context, now time.Time) ([]domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE is_active AND reviewer_id IS NULL
		  AND tier <> 'NONE'
		  AND (tier_expires_at IS NULL OR tier_expires_at > $1)
		ORDER BY created_at, account_id;
	`
	rows, err := r.Pool.Query(ctx, query, now)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query unassigned accounts", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating unassigned account rows", err)
	}
	return accounts, nil
}

// ListTieredAccountIDs returns ids of all active accounts with a live tier.
func (r *PgxAccountRepository) ListTieredAccountIDs(ctx context.Context, now time.Time) ([]string, error) {
	query := `
		SELECT account_id
		FROM accounts
		WHERE is_active
		  AND tier <> 'NONE'
		  AND (tier_expires_at IS NULL OR tier_expires_at > $1)
		ORDER BY created_at, account_id;
	`
	rows, err := r.Pool.Query(ctx, query, now)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query tiered account ids", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan account id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating account id rows", err)
	}
	return ids, nil
}

// UpdateTierInTx sets the tier and its expiry inside an existing transaction.
func (r *PgxAccountRepository) UpdateTierInTx(ctx context.Context, tx pgx.Tx, accountID string, tier domain.Tier, expiresAt *time.Time, updatedBy string, now time.Time) error {
	query := `
		UPDATE accounts
		SET tier = $2, tier_expires_at = $3, last_updated_at = $4, last_updated_by = $5
		WHERE account_id = $1;
	`
	cmdTag, err := tx.Exec(ctx, query, accountID, tier, expiresAt, now, updatedBy)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update tier for account "+accountID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("account " + accountID + " not found for tier update")
	}
	return nil
}

// AdjustCachedBalanceInTx applies a signed delta to the cached wallet balance.
// The cache is write-through only; reads always fall back to the ledger fold.
func (r *PgxAccountRepository) AdjustCachedBalanceInTx(ctx context.Context, tx pgx.Tx, accountID string, delta decimal.Decimal, updatedBy string, now time.Time) error {
	query := `
		UPDATE accounts
		SET wallet_balance = GREATEST(wallet_balance + $2, 0), last_updated_at = $3, last_updated_by = $4
		WHERE account_id = $1;
	`
	cmdTag, err := tx.Exec(ctx, query, accountID, delta, now, updatedBy)
	if err != nil {
		return apperrors.NewAppError(500, "failed to adjust cached balance for account "+accountID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("account " + accountID + " not found for balance adjustment")
	}
	return nil
}

// ExpireTiers downgrades accounts whose tier validity has lapsed.
func (r *PgxAccountRepository) ExpireTiers(ctx context.Context, now time.Time) (int, error) {
	query := `
		UPDATE accounts
		SET tier = 'NONE', tier_expires_at = NULL, last_updated_at = $1, last_updated_by = 'SYSTEM'
		WHERE tier <> 'NONE' AND tier_expires_at IS NOT NULL AND tier_expires_at <= $1;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, now)
	if err != nil {
		return 0, apperrors.NewAppError(500, "failed to expire tiers", err)
	}
	return int(cmdTag.RowsAffected()), nil
}
