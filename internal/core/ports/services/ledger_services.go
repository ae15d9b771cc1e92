package services

import (
	"context"

	"github.com/TaskRupee/task_rupee_app/internal/core/domain"
	"github.com/TaskRupee/task_rupee_app/internal/dto"
)

// LedgerReaderSvc defines read operations over the derived ledger model.
type LedgerReaderSvc interface {
	// GetBalance folds the account's entries into the derived balance summary.
	GetBalance(ctx context.Context, accountID string) (*domain.BalanceSummary, error)

	// ListEntries retrieves a paginated page of the account's ledger history.
	ListEntries(ctx context.Context, accountID string, params dto.ListEntriesParams) (*dto.ListEntriesResponse, error)
}

// LedgerWriterSvc defines the operations that append ledger facts.
type LedgerWriterSvc interface {
	// RecordTaskReward books the tier-derived reward for one completed task.
	// The task reference is the idempotency key.
	RecordTaskReward(ctx context.Context, accountID string, req dto.CompleteTaskRequest) (*domain.LedgerEntry, error)
}

// LedgerSvcFacade combines all ledger service interfaces.
type LedgerSvcFacade interface {
	LedgerReaderSvc
	LedgerWriterSvc
}
