package services

import (
	"context"

	"github.com/TaskRupee/task_rupee_app/internal/core/domain"
	"github.com/TaskRupee/task_rupee_app/internal/dto"
)

// WithdrawalReaderSvc defines read operations for withdrawal requests.
type WithdrawalReaderSvc interface {
	// GetRequest retrieves a request. Non-owning, non-reviewing callers get ErrForbidden.
	GetRequest(ctx context.Context, requestID string, callerID string) (*domain.WithdrawalRequest, error)

	// ListByAccount returns the account's own requests, newest first.
	ListByAccount(ctx context.Context, accountID string, params dto.ListWithdrawalsParams) (*dto.ListWithdrawalsResponse, error)

	// ListByReviewer returns the requests assigned to a reviewer.
	ListByReviewer(ctx context.Context, reviewerID string, params dto.ListWithdrawalsParams) (*dto.ListWithdrawalsResponse, error)
}

// WithdrawalWriterSvc drives the withdrawal lifecycle state machine.
type WithdrawalWriterSvc interface {
	// Submit runs the full submission gauntlet: amount floor, payment-method
	// completeness, tier, balance, quotas, reviewer selection; then persists
	// the request in PENDING and notifies account and reviewer.
	Submit(ctx context.Context, accountID string, req dto.SubmitWithdrawalRequest) (*domain.WithdrawalRequest, error)

	// Review applies approve/reject/process. Only the assigned reviewer with
	// the requisite capability, or an ADMIN_OVERRIDE holder, may act.
	Review(ctx context.Context, requestID, reviewerID string, req dto.ReviewWithdrawalRequest) (*domain.WithdrawalRequest, error)

	// Cancel is owner-only and legal from PENDING only.
	Cancel(ctx context.Context, requestID, accountID string) (*domain.WithdrawalRequest, error)

	// Hold moves a PENDING request to UNDER_REVIEW. Admin override only.
	Hold(ctx context.Context, requestID, reviewerID string) (*domain.WithdrawalRequest, error)
}

// WithdrawalSettlerSvc is the deferred-settlement entry point consumed by the
// background worker: it books the debit ledger entry and completes the request.
type WithdrawalSettlerSvc interface {
	SettleWithdrawal(ctx context.Context, requestID string) error
}

// WithdrawalSvcFacade combines all withdrawal service interfaces.
type WithdrawalSvcFacade interface {
	WithdrawalReaderSvc
	WithdrawalWriterSvc
	WithdrawalSettlerSvc
}
