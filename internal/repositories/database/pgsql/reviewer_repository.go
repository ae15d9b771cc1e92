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

type PgxReviewerRepository struct {
	BaseRepository
}

func newPgxReviewerRepository(pool *pgxpool.Pool) portsrepo.ReviewerRepositoryWithTx {
	return &PgxReviewerRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.ReviewerRepositoryWithTx = (*PgxReviewerRepository)(nil)

const reviewerColumns = `reviewer_id, display_name, is_active, capabilities, max_capacity,
	assigned_account_count, processed_count, processed_amount,
	created_at, created_by, last_updated_at, last_updated_by`

func scanReviewer(row pgx.Row) (*domain.Reviewer, error) {
	var r domain.Reviewer
	var capabilities []string
	err := row.Scan(
		&r.ReviewerID,
		&r.DisplayName,
		&r.IsActive,
		&capabilities,
		&r.MaxCapacity,
		&r.AssignedAccountCount,
		&r.ProcessedCount,
		&r.ProcessedAmount,
		&r.CreatedAt,
		&r.CreatedBy,
		&r.LastUpdatedAt,
		&r.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to scan reviewer row", err)
	}
	r.Capabilities = make([]domain.Capability, 0, len(capabilities))
	for _, c := range capabilities {
		r.Capabilities = append(r.Capabilities, domain.Capability(c))
	}
	return &r, nil
}

// FindReviewerByID retrieves a reviewer with its assignment lists populated.
func (r *PgxReviewerRepository) FindReviewerByID(ctx context.Context, reviewerID string) (*domain.Reviewer, error) {
	query := `SELECT ` + reviewerColumns + ` FROM reviewers WHERE reviewer_id = $1;`
	reviewer, err := scanReviewer(r.Pool.QueryRow(ctx, query, reviewerID))
	if err != nil {
		return nil, err
	}

	accountIDs, err := r.listJoinIDs(ctx, `SELECT account_id FROM reviewer_accounts WHERE reviewer_id = $1 ORDER BY account_id;`, reviewerID)
	if err != nil {
		return nil, err
	}
	requestIDs, err := r.listJoinIDs(ctx, `SELECT request_id FROM reviewer_requests WHERE reviewer_id = $1 ORDER BY assigned_at, request_id;`, reviewerID)
	if err != nil {
		return nil, err
	}
	reviewer.AssignedAccountIDs = accountIDs
	reviewer.AssignedRequestIDs = requestIDs
	return reviewer, nil
}

func (r *PgxReviewerRepository) listJoinIDs(ctx context.Context, query, reviewerID string) ([]string, error) {
	rows, err := r.Pool.Query(ctx, query, reviewerID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query reviewer assignments", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan assignment id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating assignment rows", err)
	}
	return ids, nil
}

func (r *PgxReviewerRepository) listReviewers(ctx context.Context, query string) ([]domain.Reviewer, error) {
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query reviewers", err)
	}
	defer rows.Close()

	var reviewers []domain.Reviewer
	for rows.Next() {
		rev, err := scanReviewer(rows)
		if err != nil {
			return nil, err
		}
		reviewers = append(reviewers, *rev)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating reviewer rows", err)
	}
	return reviewers, nil
}

// ListActiveReviewers returns active reviewers in stable creation order.
func (r *PgxReviewerRepository) ListActiveReviewers(ctx context.Context) ([]domain.Reviewer, error) {
	return r.listReviewers(ctx, `SELECT `+reviewerColumns+` FROM reviewers WHERE is_active ORDER BY created_at, reviewer_id;`)
}

// ListReviewers returns all reviewers, active or not.
func (r *PgxReviewerRepository) ListReviewers(ctx context.Context) ([]domain.Reviewer, error) {
	return r.listReviewers(ctx, `SELECT `+reviewerColumns+` FROM reviewers ORDER BY created_at, reviewer_id;`)
}

// SaveReviewer persists a new reviewer.
func (r *PgxReviewerRepository) SaveReviewer(ctx context.Context, reviewer domain.Reviewer) error {
	query := `
		INSERT INTO reviewers (` + reviewerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	capabilities := make([]string, 0, len(reviewer.Capabilities))
	for _, c := range reviewer.Capabilities {
		capabilities = append(capabilities, string(c))
	}
	_, err := r.Pool.Exec(ctx, query,
		reviewer.ReviewerID,
		reviewer.DisplayName,
		reviewer.IsActive,
		capabilities,
		reviewer.MaxCapacity,
		reviewer.AssignedAccountCount,
		reviewer.ProcessedCount,
		reviewer.ProcessedAmount,
		reviewer.CreatedAt,
		reviewer.CreatedBy,
		reviewer.LastUpdatedAt,
		reviewer.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrDuplicate
		}
		return apperrors.NewAppError(500, "failed to save reviewer "+reviewer.ReviewerID, err)
	}
	return nil
}

// AssignAccount moves an account to a reviewer, re-checking capacity under a
// row lock so two concurrent assignments cannot both land on the last slot.
func (r *PgxReviewerRepository) AssignAccount(ctx context.Context, accountID, toReviewerID string, fromReviewerID *string) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = r.Rollback(ctx, tx) }()

	var assignedCount, maxCapacity int
	var isActive bool
	err = tx.QueryRow(ctx,
		`SELECT assigned_account_count, max_capacity, is_active FROM reviewers WHERE reviewer_id = $1 FOR UPDATE;`,
		toReviewerID,
	).Scan(&assignedCount, &maxCapacity, &isActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFoundError("reviewer " + toReviewerID + " not found")
		}
		return apperrors.NewAppError(500, "failed to lock reviewer "+toReviewerID, err)
	}
	if !isActive {
		return apperrors.ErrValidation
	}
	if assignedCount >= maxCapacity {
		return apperrors.ErrNoCapacity
	}

	if fromReviewerID != nil {
		cmdTag, err := tx.Exec(ctx,
			`DELETE FROM reviewer_accounts WHERE reviewer_id = $1 AND account_id = $2;`,
			*fromReviewerID, accountID,
		)
		if err != nil {
			return apperrors.NewAppError(500, "failed to release account "+accountID, err)
		}
		if cmdTag.RowsAffected() > 0 {
			if _, err := tx.Exec(ctx,
				`UPDATE reviewers SET assigned_account_count = assigned_account_count - 1 WHERE reviewer_id = $1;`,
				*fromReviewerID,
			); err != nil {
				return apperrors.NewAppError(500, "failed to decrement reviewer "+*fromReviewerID, err)
			}
		}
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO reviewer_accounts (reviewer_id, account_id) VALUES ($1, $2);`,
		toReviewerID, accountID,
	); err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrDuplicate
		}
		return apperrors.NewAppError(500, "failed to assign account "+accountID, err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE reviewers SET assigned_account_count = assigned_account_count + 1 WHERE reviewer_id = $1;`,
		toReviewerID,
	); err != nil {
		return apperrors.NewAppError(500, "failed to increment reviewer "+toReviewerID, err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE accounts SET reviewer_id = $2 WHERE account_id = $1;`,
		accountID, toReviewerID,
	); err != nil {
		return apperrors.NewAppError(500, "failed to stamp reviewer on account "+accountID, err)
	}

	return r.Commit(ctx, tx)
}

// AppendRequestAssignment records a withdrawal request against its reviewer.
func (r *PgxReviewerRepository) AppendRequestAssignment(ctx context.Context, reviewerID, requestID string) error {
	_, err := r.Pool.Exec(ctx,
		`INSERT INTO reviewer_requests (reviewer_id, request_id, assigned_at) VALUES ($1, $2, now()) ON CONFLICT DO NOTHING;`,
		reviewerID, requestID,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to record request assignment", err)
	}
	return nil
}

// ReplaceAllAssignments rewrites the account distribution of active reviewers
// in a single transaction.
func (r *PgxReviewerRepository) ReplaceAllAssignments(ctx context.Context, pairs []portsrepo.AssignmentPair, updatedBy string, now time.Time) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = r.Rollback(ctx, tx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM reviewer_accounts WHERE reviewer_id IN (SELECT reviewer_id FROM reviewers WHERE is_active);`,
	); err != nil {
		return apperrors.NewAppError(500, "failed to clear existing assignments", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE accounts SET reviewer_id = NULL, last_updated_at = $1, last_updated_by = $2
		 WHERE reviewer_id IN (SELECT reviewer_id FROM reviewers WHERE is_active);`,
		now, updatedBy,
	); err != nil {
		return apperrors.NewAppError(500, "failed to clear account reviewer stamps", err)
	}

	for _, p := range pairs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO reviewer_accounts (reviewer_id, account_id) VALUES ($1, $2);`,
			p.ReviewerID, p.AccountID,
		); err != nil {
			return apperrors.NewAppError(500, "failed to assign account "+p.AccountID, err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE accounts SET reviewer_id = $2, last_updated_at = $3, last_updated_by = $4 WHERE account_id = $1;`,
			p.AccountID, p.ReviewerID, now, updatedBy,
		); err != nil {
			return apperrors.NewAppError(500, "failed to stamp reviewer on account "+p.AccountID, err)
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE reviewers r
		 SET assigned_account_count = (SELECT COUNT(*) FROM reviewer_accounts ra WHERE ra.reviewer_id = r.reviewer_id),
		     last_updated_at = $1, last_updated_by = $2
		 WHERE r.is_active;`,
		now, updatedBy,
	); err != nil {
		return apperrors.NewAppError(500, "failed to refresh reviewer counts", err)
	}

	return r.Commit(ctx, tx)
}

// ReleaseReviewerAccounts removes all account assignments from a reviewer and
// returns the released account ids.
func (r *PgxReviewerRepository) ReleaseReviewerAccounts(ctx context.Context, reviewerID string, updatedBy string, now time.Time) ([]string, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Rollback(ctx, tx) }()

	rows, err := tx.Query(ctx,
		`DELETE FROM reviewer_accounts WHERE reviewer_id = $1 RETURNING account_id;`,
		reviewerID,
	)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to release accounts for reviewer "+reviewerID, err)
	}
	var released []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, apperrors.NewAppError(500, "failed to scan released account id", err)
		}
		released = append(released, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating released account rows", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE accounts SET reviewer_id = NULL, last_updated_at = $2, last_updated_by = $3 WHERE reviewer_id = $1;`,
		reviewerID, now, updatedBy,
	); err != nil {
		return nil, apperrors.NewAppError(500, "failed to clear account reviewer stamps", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE reviewers SET assigned_account_count = 0, last_updated_at = $2, last_updated_by = $3 WHERE reviewer_id = $1;`,
		reviewerID, now, updatedBy,
	); err != nil {
		return nil, apperrors.NewAppError(500, "failed to reset reviewer count", err)
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, err
	}
	return released, nil
}

// DeactivateReviewer flips the active flag once no assignments are outstanding.
func (r *PgxReviewerRepository) DeactivateReviewer(ctx context.Context, reviewerID string, updatedBy string, now time.Time) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = r.Rollback(ctx, tx) }()

	var assignedCount int
	err = tx.QueryRow(ctx,
		`SELECT assigned_account_count FROM reviewers WHERE reviewer_id = $1 FOR UPDATE;`,
		reviewerID,
	).Scan(&assignedCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFoundError("reviewer " + reviewerID + " not found")
		}
		return apperrors.NewAppError(500, "failed to lock reviewer "+reviewerID, err)
	}
	if assignedCount > 0 {
		return apperrors.ErrConflict
	}

	if _, err := tx.Exec(ctx,
		`UPDATE reviewers SET is_active = FALSE, last_updated_at = $2, last_updated_by = $3 WHERE reviewer_id = $1;`,
		reviewerID, now, updatedBy,
	); err != nil {
		return apperrors.NewAppError(500, "failed to deactivate reviewer "+reviewerID, err)
	}

	return r.Commit(ctx, tx)
}

// IncrementProcessedInTx bumps the reviewer's processed counters inside an
// existing transaction.
func (r *PgxReviewerRepository) IncrementProcessedInTx(ctx context.Context, tx pgx.Tx, reviewerID string, amount decimal.Decimal, now time.Time) error {
	cmdTag, err := tx.Exec(ctx,
		`UPDATE reviewers
		 SET processed_count = processed_count + 1, processed_amount = processed_amount + $2, last_updated_at = $3
		 WHERE reviewer_id = $1;`,
		reviewerID, amount, now,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to increment processed counters for reviewer "+reviewerID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("reviewer " + reviewerID + " not found")
	}
	return nil
}
