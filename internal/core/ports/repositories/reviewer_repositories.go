package repositories

import (
	"context"
	"time"

	"github.com/TaskRupee/task_rupee_app/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// AssignmentPair binds one account to one reviewer during redistribution.
type AssignmentPair struct {
	AccountID  string
	ReviewerID string
}

// ReviewerReader defines read operations for reviewer data.
type ReviewerReader interface {
	// FindReviewerByID retrieves a reviewer with its assignment lists populated.
	FindReviewerByID(ctx context.Context, reviewerID string) (*domain.Reviewer, error)

	// ListActiveReviewers returns active reviewers in stable creation order,
	// assignment counts populated, lists omitted.
	ListActiveReviewers(ctx context.Context) ([]domain.Reviewer, error)

	// ListReviewers returns all reviewers, active or not.
	ListReviewers(ctx context.Context) ([]domain.Reviewer, error)
}

// ReviewerWriter defines write operations for reviewer data and the
// assignment relations it owns. Every mutation of an assignment pairs the
// join-row change with the counter change in one database transaction, so an
// account is never counted against two reviewers at once.
type ReviewerWriter interface {
	// SaveReviewer persists a new reviewer.
	SaveReviewer(ctx context.Context, reviewer domain.Reviewer) error

	// AssignAccount moves an account to a reviewer. When fromReviewerID is
	// non-nil the old assignment is removed in the same transaction.
	// Capacity is re-checked under lock; apperrors.ErrNoCapacity on overflow.
	AssignAccount(ctx context.Context, accountID, toReviewerID string, fromReviewerID *string) error

	// AppendRequestAssignment records a withdrawal request against its reviewer.
	AppendRequestAssignment(ctx context.Context, reviewerID, requestID string) error

	// ReplaceAllAssignments clears every assignment of active reviewers and
	// applies the given pairs in one transaction (redistribution).
	ReplaceAllAssignments(ctx context.Context, pairs []AssignmentPair, updatedBy string, now time.Time) error

	// ReleaseReviewerAccounts removes all account assignments from a reviewer
	// and returns the released account ids.
	ReleaseReviewerAccounts(ctx context.Context, reviewerID string, updatedBy string, now time.Time) ([]string, error)

	// DeactivateReviewer flips the active flag. Fails with apperrors.ErrConflict
	// while assignments are outstanding.
	DeactivateReviewer(ctx context.Context, reviewerID string, updatedBy string, now time.Time) error

	// IncrementProcessedInTx bumps the reviewer's processed counters inside an
	// existing transaction (settlement bookkeeping).
	IncrementProcessedInTx(ctx context.Context, tx pgx.Tx, reviewerID string, amount decimal.Decimal, now time.Time) error
}

// ReviewerRepositoryFacade combines all reviewer repository interfaces.
type ReviewerRepositoryFacade interface {
	ReviewerReader
	ReviewerWriter
}

// ReviewerRepositoryWithTx extends ReviewerRepositoryFacade with transaction capabilities.
type ReviewerRepositoryWithTx interface {
	ReviewerRepositoryFacade
	TransactionManager
}
