package services

import (
	"context"

	"github.com/TaskRupee/task_rupee_app/internal/core/domain"
	"github.com/TaskRupee/task_rupee_app/internal/dto"
)

// AssignmentSvcFacade distributes accounts across the reviewer pool.
// All three balancing operations are idempotent with respect to accounts
// that are already assigned.
type AssignmentSvcFacade interface {
	// AutoAssign greedily assigns every unassigned tier-holding account to
	// the least-loaded reviewer with capacity, reporting how many were
	// assigned and how many remain.
	AutoAssign(ctx context.Context, actorID string) (*dto.AutoAssignResult, error)

	// ManualAssign pins an account to a specific reviewer, atomically
	// releasing any previous assignment.
	ManualAssign(ctx context.Context, accountID, reviewerID, actorID string) error

	// Redistribute clears all assignments and round-robins every eligible
	// account over the active reviewers. Destroys manual pinning by design.
	Redistribute(ctx context.Context, actorID string) (*dto.RedistributeResult, error)

	// CreateReviewer registers a new reviewer.
	CreateReviewer(ctx context.Context, req dto.CreateReviewerRequest, actorID string) (*domain.Reviewer, error)

	// GetReviewer retrieves one reviewer with assignment lists.
	GetReviewer(ctx context.Context, reviewerID string) (*domain.Reviewer, error)

	// ListReviewers returns all reviewers.
	ListReviewers(ctx context.Context) ([]domain.Reviewer, error)

	// DeactivateReviewer retires a reviewer. Refused while assignments are
	// outstanding unless reassign is set, which sweeps the accounts back
	// into the pool first.
	DeactivateReviewer(ctx context.Context, reviewerID string, reassign bool, actorID string) error
}
