package repositories

import (
	"context"
	"time"

	"github.com/TaskRupee/task_rupee_app/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WithdrawalReader defines read operations for withdrawal requests.
type WithdrawalReader interface {
	// FindRequestByID retrieves a withdrawal request by its identifier.
	FindRequestByID(ctx context.Context, requestID string) (*domain.WithdrawalRequest, error)

	// FindRequestByClientReference retrieves the request an account submitted
	// with the given client idempotency token, if any.
	FindRequestByClientReference(ctx context.Context, accountID, clientReference string) (*domain.WithdrawalRequest, error)

	// ListRequestsByAccount returns the account's requests, newest first.
	ListRequestsByAccount(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.WithdrawalRequest, *string, error)

	// ListRequestsByReviewer returns the requests assigned to a reviewer,
	// optionally filtered by state.
	ListRequestsByReviewer(ctx context.Context, reviewerID string, state *domain.WithdrawalState, limit int, nextToken *string) ([]domain.WithdrawalRequest, *string, error)

	// SumGrossSince sums the gross amount of quota-counting requests
	// (every state except REJECTED and CANCELLED) submitted on/after since.
	SumGrossSince(ctx context.Context, accountID string, since time.Time) (decimal.Decimal, error)
}

// WithdrawalWriter defines write operations for withdrawal requests.
type WithdrawalWriter interface {
	// SaveRequest persists a new request in PENDING state.
	SaveRequest(ctx context.Context, request domain.WithdrawalRequest) error

	// SaveRequestInTx is SaveRequest running inside an existing transaction.
	SaveRequestInTx(ctx context.Context, tx pgx.Tx, request domain.WithdrawalRequest) error

	// UpdateRequestState persists a state transition guarded by the request's
	// optimistic version. Returns apperrors.ErrInvalidTransition when the row
	// was concurrently modified (version mismatch).
	UpdateRequestState(ctx context.Context, request domain.WithdrawalRequest, expectedVersion int64) error

	// UpdateRequestStateInTx is UpdateRequestState inside an existing transaction,
	// so a transition can be committed atomically with a job insert or ledger append.
	UpdateRequestStateInTx(ctx context.Context, tx pgx.Tx, request domain.WithdrawalRequest, expectedVersion int64) error
}

// WithdrawalRepositoryFacade combines all withdrawal repository interfaces.
type WithdrawalRepositoryFacade interface {
	WithdrawalReader
	WithdrawalWriter
}

// WithdrawalRepositoryWithTx extends WithdrawalRepositoryFacade with transaction capabilities.
type WithdrawalRepositoryWithTx interface {
	WithdrawalRepositoryFacade
	TransactionManager
}
