package pgsql

import (
	"context"
	"errors"
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

type PgxWithdrawalRepository struct {
	BaseRepository
}

func newPgxWithdrawalRepository(pool *pgxpool.Pool) portsrepo.WithdrawalRepositoryWithTx {
	return &PgxWithdrawalRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.WithdrawalRepositoryWithTx = (*PgxWithdrawalRepository)(nil)

const withdrawalColumns = `request_id, account_id, amount, tax_amount, net_amount, state, reviewer_id,
	payment_kind, upi_id, bank_account_holder, bank_account_number, bank_ifsc, bank_name,
	reviewer_notes, rejection_reason, client_reference,
	submitted_at, reviewed_at, processed_at, completed_at, version,
	created_at, created_by, last_updated_at, last_updated_by`

func scanWithdrawal(row pgx.Row) (*domain.WithdrawalRequest, error) {
	var w domain.WithdrawalRequest
	err := row.Scan(
		&w.RequestID,
		&w.AccountID,
		&w.Amount,
		&w.TaxAmount,
		&w.NetAmount,
		&w.State,
		&w.ReviewerID,
		&w.PaymentMethod.Kind,
		&w.PaymentMethod.UPIID,
		&w.PaymentMethod.AccountHolder,
		&w.PaymentMethod.AccountNumber,
		&w.PaymentMethod.IFSC,
		&w.PaymentMethod.BankName,
		&w.ReviewerNotes,
		&w.RejectionReason,
		&w.ClientReference,
		&w.SubmittedAt,
		&w.ReviewedAt,
		&w.ProcessedAt,
		&w.CompletedAt,
		&w.Version,
		&w.CreatedAt,
		&w.CreatedBy,
		&w.LastUpdatedAt,
		&w.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to scan withdrawal request row", err)
	}
	return &w, nil
}

// FindRequestByID retrieves a withdrawal request by its identifier.
func (r *PgxWithdrawalRepository) FindRequestByID(ctx context.Context, requestID string) (*domain.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE request_id = $1;`
	return scanWithdrawal(r.Pool.QueryRow(ctx, query, requestID))
}

// FindRequestByClientReference looks up the request an account submitted with
// the given idempotency token.
func (r *PgxWithdrawalRepository) FindRequestByClientReference(ctx context.Context, accountID, clientReference string) (*domain.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE account_id = $1 AND client_reference = $2;`
	return scanWithdrawal(r.Pool.QueryRow(ctx, query, accountID, clientReference))
}

func (r *PgxWithdrawalRepository) listRequests(ctx context.Context, baseQuery string, args []any, limit int, nextToken *string) ([]domain.WithdrawalRequest, *string, error) {
	fetchLimit := limit + 1

	if nextToken != nil && *nextToken != "" {
		cursorTime, cursorID, err := pagination.DecodeCursor(*nextToken)
		if err != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid pagination token", err)
		}
		baseQuery += ` AND (submitted_at, request_id) < ($` + strconv.Itoa(len(args)+1) + `, $` + strconv.Itoa(len(args)+2) + `)`
		args = append(args, cursorTime, cursorID)
	}
	baseQuery += ` ORDER BY submitted_at DESC, request_id DESC LIMIT $` + strconv.Itoa(len(args)+1) + `;`
	args = append(args, fetchLimit)

	rows, err := r.Pool.Query(ctx, baseQuery, args...)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to query withdrawal requests", err)
	}
	defer rows.Close()

	var requests []domain.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, nil, err
		}
		requests = append(requests, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.NewAppError(500, "error iterating withdrawal request rows", err)
	}

	var outToken *string
	if len(requests) > limit {
		requests = requests[:limit]
		last := requests[len(requests)-1]
		token := pagination.EncodeCursor(last.SubmittedAt, last.RequestID)
		outToken = &token
	}
	return requests, outToken, nil
}

// ListRequestsByAccount returns the account's requests, newest first.
func (r *PgxWithdrawalRepository) ListRequestsByAccount(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.WithdrawalRequest, *string, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE account_id = $1`
	return r.listRequests(ctx, query, []any{accountID}, limit, nextToken)
}

// ListRequestsByReviewer returns the requests assigned to a reviewer,
// optionally filtered by state.
func (r *PgxWithdrawalRepository) ListRequestsByReviewer(ctx context.Context, reviewerID string, state *domain.WithdrawalState, limit int, nextToken *string) ([]domain.WithdrawalRequest, *string, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE reviewer_id = $1`
	args := []any{reviewerID}
	if state != nil {
		query += ` AND state = $2`
		args = append(args, *state)
	}
	return r.listRequests(ctx, query, args, limit, nextToken)
}

// SumGrossSince sums gross amounts of quota-counting requests submitted on or
// after since. Rejected and cancelled requests release their quota.
func (r *PgxWithdrawalRepository) SumGrossSince(ctx context.Context, accountID string, since time.Time) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM withdrawal_requests
		WHERE account_id = $1
		  AND submitted_at >= $2
		  AND state NOT IN ('REJECTED', 'CANCELLED');
	`
	var total decimal.Decimal
	if err := r.Pool.QueryRow(ctx, query, accountID, since).Scan(&total); err != nil {
		return decimal.Zero, apperrors.NewAppError(500, "failed to sum withdrawal amounts for account "+accountID, err)
	}
	return total, nil
}

const saveWithdrawalQuery = `
	INSERT INTO withdrawal_requests (` + withdrawalColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25);
`

func saveWithdrawalArgs(w domain.WithdrawalRequest) []any {
	return []any{
		w.RequestID,
		w.AccountID,
		w.Amount,
		w.TaxAmount,
		w.NetAmount,
		w.State,
		w.ReviewerID,
		w.PaymentMethod.Kind,
		w.PaymentMethod.UPIID,
		w.PaymentMethod.AccountHolder,
		w.PaymentMethod.AccountNumber,
		w.PaymentMethod.IFSC,
		w.PaymentMethod.BankName,
		w.ReviewerNotes,
		w.RejectionReason,
		w.ClientReference,
		w.SubmittedAt,
		w.ReviewedAt,
		w.ProcessedAt,
		w.CompletedAt,
		w.Version,
		w.CreatedAt,
		w.CreatedBy,
		w.LastUpdatedAt,
		w.LastUpdatedBy,
	}
}

func mapSaveWithdrawalError(err error, requestID string) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return apperrors.ErrDuplicate
	}
	return apperrors.NewAppError(500, "failed to save withdrawal request "+requestID, err)
}

// SaveRequest persists a new request.
func (r *PgxWithdrawalRepository) SaveRequest(ctx context.Context, request domain.WithdrawalRequest) error {
	_, err := r.Pool.Exec(ctx, saveWithdrawalQuery, saveWithdrawalArgs(request)...)
	return mapSaveWithdrawalError(err, request.RequestID)
}

// SaveRequestInTx is SaveRequest running inside an existing transaction.
func (r *PgxWithdrawalRepository) SaveRequestInTx(ctx context.Context, tx pgx.Tx, request domain.WithdrawalRequest) error {
	_, err := tx.Exec(ctx, saveWithdrawalQuery, saveWithdrawalArgs(request)...)
	return mapSaveWithdrawalError(err, request.RequestID)
}

// updateWithdrawalQuery bumps the version and is guarded by the expected one,
// so two concurrent transitions on the same request cannot both win.
const updateWithdrawalQuery = `
	UPDATE withdrawal_requests
	SET state = $2, reviewer_id = $3, reviewer_notes = $4, rejection_reason = $5,
	    reviewed_at = $6, processed_at = $7, completed_at = $8,
	    version = version + 1, last_updated_at = $9, last_updated_by = $10
	WHERE request_id = $1 AND version = $11;
`

func updateWithdrawalArgs(w domain.WithdrawalRequest, expectedVersion int64) []any {
	return []any{
		w.RequestID,
		w.State,
		w.ReviewerID,
		w.ReviewerNotes,
		w.RejectionReason,
		w.ReviewedAt,
		w.ProcessedAt,
		w.CompletedAt,
		w.LastUpdatedAt,
		w.LastUpdatedBy,
		expectedVersion,
	}
}

func (r *PgxWithdrawalRepository) mapTransitionResult(ctx context.Context, rowsAffected int64, err error, requestID string) error {
	if err != nil {
		return apperrors.NewAppError(500, "failed to update withdrawal request "+requestID, err)
	}
	if rowsAffected == 0 {
		// Distinguish a missing row from a version mismatch.
		var exists bool
		checkErr := r.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM withdrawal_requests WHERE request_id = $1);`, requestID).Scan(&exists)
		if checkErr == nil && !exists {
			return apperrors.NewNotFoundError("withdrawal request " + requestID + " not found")
		}
		return apperrors.ErrInvalidTransition
	}
	return nil
}

// UpdateRequestState persists a state transition guarded by the optimistic version.
func (r *PgxWithdrawalRepository) UpdateRequestState(ctx context.Context, request domain.WithdrawalRequest, expectedVersion int64) error {
	cmdTag, err := r.Pool.Exec(ctx, updateWithdrawalQuery, updateWithdrawalArgs(request, expectedVersion)...)
	var affected int64
	if err == nil {
		affected = cmdTag.RowsAffected()
	}
	return r.mapTransitionResult(ctx, affected, err, request.RequestID)
}

// UpdateRequestStateInTx is UpdateRequestState inside an existing transaction.
func (r *PgxWithdrawalRepository) UpdateRequestStateInTx(ctx context.Context, tx pgx.Tx, request domain.WithdrawalRequest, expectedVersion int64) error {
	cmdTag, err := tx.Exec(ctx, updateWithdrawalQuery, updateWithdrawalArgs(request, expectedVersion)...)
	var affected int64
	if err == nil {
		affected = cmdTag.RowsAffected()
	}
	return r.mapTransitionResult(ctx, affected, err, request.RequestID)
}
