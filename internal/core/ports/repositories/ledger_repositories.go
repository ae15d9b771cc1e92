package repositories

import (
	"context"
	"time"

	"github.com/TaskRupee/task_rupee_app/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// LedgerWriter defines append operations for ledger entries. There are no
// update or delete operations: the ledger is append-only.
type LedgerWriter interface {
	// AppendEntry persists an immutable entry. Returns apperrors.ErrDuplicateEntry
	// when (account, category, reference) already exists.
	AppendEntry(ctx context.Context, entry domain.LedgerEntry) error

	// AppendEntryInTx is AppendEntry running inside an existing transaction.
	AppendEntryInTx(ctx context.Context, tx pgx.Tx, entry domain.LedgerEntry) error
}

// LedgerReader defines read operations over the append-only ledger.
type LedgerReader interface {
	// SumEntriesByAccount aggregates the account's entries into total earned
	// (sum of positive amounts) and total spent (absolute sum of negatives).
	SumEntriesByAccount(ctx context.Context, accountID string) (earned, spent decimal.Decimal, err error)

	// CountEntriesSince counts entries of a category created on/after since.
	CountEntriesSince(ctx context.Context, accountID string, category domain.EntryCategory, since time.Time) (int, error)

	// ListEntriesByAccount retrieves a token-paginated page of entries, newest first.
	ListEntriesByAccount(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.LedgerEntry, *string, error)
}

// LedgerRepositoryFacade combines all ledger repository interfaces.
type LedgerRepositoryFacade interface {
	LedgerWriter
	LedgerReader
}

// LedgerRepositoryWithTx extends LedgerRepositoryFacade with transaction capabilities.
type LedgerRepositoryWithTx interface {
	LedgerRepositoryFacade
	TransactionManager
}
