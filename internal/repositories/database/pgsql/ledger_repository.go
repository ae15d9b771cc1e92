package pgsql

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/TaskRupee/task_rupee_app/internal/apperrors"
	"github.com/TaskRupee/task_rupee_app/internal/core/domain"
	portsrepo "github.com/TaskRupee/task_rupee_app/internal/core/ports/repositories"
	"github.com/TaskRupee/task_rupee_app/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PgxLedgerRepository persists the append-only ledger. There are deliberately
// no UPDATE or DELETE statements in this file.
type PgxLedgerRepository struct {
	BaseRepository
}

func newPgxLedgerRepository(pool *pgxpool.Pool) portsrepo.LedgerRepositoryWithTx {
	return &PgxLedgerRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.LedgerRepositoryWithTx = (*PgxLedgerRepository)(nil)

const appendEntryQuery = `
	INSERT INTO ledger_entries (entry_id, account_id, amount, category, description, reference, created_at, created_by)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`

// AppendEntry persists an immutable entry. Idempotency is enforced by the
// unique index on (account_id, category, reference) rather than a
// check-then-insert, so concurrent duplicates collapse to one row.
func (r *PgxLedgerRepository) AppendEntry(ctx context.Context, entry domain.LedgerEntry) error {
	_, err := r.Pool.Exec(ctx, appendEntryQuery,
		entry.EntryID,
		entry.AccountID,
		entry.Amount,
		entry.Category,
		entry.Description,
		entry.Reference,
		entry.CreatedAt,
		entry.CreatedBy,
	)
	return mapAppendError(err, entry)
}

// AppendEntryInTx is AppendEntry inside an existing transaction.
func (r *PgxLedgerRepository) AppendEntryInTx(ctx context.Context, tx pgx.Tx, entry domain.LedgerEntry) error {
	_, err := tx.Exec(ctx, appendEntryQuery,
		entry.EntryID,
		entry.AccountID,
		entry.Amount,
		entry.Category,
		entry.Description,
		entry.Reference,
		entry.CreatedAt,
		entry.CreatedBy,
	)
	return mapAppendError(err, entry)
}

func mapAppendError(err error, entry domain.LedgerEntry) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: (%s, %s, %s)", apperrors.ErrDuplicateEntry, entry.AccountID, entry.Category, entry.Reference)
	}
	return fmt.Errorf("%w: failed to append entry for account %s: %v", apperrors.ErrLedgerUnavailable, entry.AccountID, err)
}

// SumEntriesByAccount aggregates in SQL; the sums are order-independent by
// construction, matching the pure fold over the entry multiset.
func (r *PgxLedgerRepository) SumEntriesByAccount(ctx context.Context, accountID string) (decimal.Decimal, decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount) FILTER (WHERE amount > 0), 0),
		       COALESCE(SUM(-amount) FILTER (WHERE amount < 0), 0)
		FROM ledger_entries
		WHERE account_id = $1;
	`
	var earned, spent decimal.Decimal
	if err := r.Pool.QueryRow(ctx, query, accountID).Scan(&earned, &spent); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: failed to sum entries for account %s: %v", apperrors.ErrLedgerUnavailable, accountID, err)
	}
	return earned, spent, nil
}

// CountEntriesSince counts entries of a category created on/after since.
func (r *PgxLedgerRepository) CountEntriesSince(ctx context.Context, accountID string, category domain.EntryCategory, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM ledger_entries
		WHERE account_id = $1 AND category = $2 AND created_at >= $3;
	`
	var count int
	if err := r.Pool.QueryRow(ctx, query, accountID, category, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: failed to count %s entries for account %s: %v", apperrors.ErrLedgerUnavailable, category, accountID, err)
	}
	return count, nil
}

// ListEntriesByAccount retrieves a keyset-paginated page of entries, newest first.
func (r *PgxLedgerRepository) ListEntriesByAccount(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.LedgerEntry, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	fetchLimit := limit + 1

	baseQuery := `
		SELECT entry_id, account_id, amount, category, description, reference, created_at, created_by
		FROM ledger_entries
		WHERE account_id = $1
	`
	orderByClause := `ORDER BY created_at DESC, entry_id DESC`

	args := []interface{}{accountID}
	query := baseQuery
	if nextToken != nil && *nextToken != "" {
		lastCreatedAt, lastID, decodeErr := pagination.DecodeCursor(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", decodeErr)
		}
		query += ` AND (created_at, entry_id) < ($2, $3)`
		args = append(args, lastCreatedAt, lastID)
	}
	query += " " + orderByClause + " LIMIT $" + strconv.Itoa(len(args)+1) + ";"
	args = append(args, fetchLimit)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to query entries for account %s: %v", apperrors.ErrLedgerUnavailable, accountID, err)
	}
	defer rows.Close()

	entries := make([]domain.LedgerEntry, 0, fetchLimit)
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(
			&e.EntryID,
			&e.AccountID,
			&e.Amount,
			&e.Category,
			&e.Description,
			&e.Reference,
			&e.CreatedAt,
			&e.CreatedBy,
		); err != nil {
			return nil, nil, fmt.Errorf("%w: failed to scan entry row for account %s: %v", apperrors.ErrLedgerUnavailable, accountID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: error iterating entry rows for account %s: %v", apperrors.ErrLedgerUnavailable, accountID, err)
	}

	var nextTokenVal *string
	if len(entries) > limit {
		last := entries[limit-1]
		token := pagination.EncodeCursor(last.CreatedAt, last.EntryID)
		nextTokenVal = &token
		entries = entries[:limit]
	}
	return entries, nextTokenVal, nil
}
