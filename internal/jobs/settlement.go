package jobs

import (
	"context"
	"fmt"

	"github.com/riverqueue/river"
)

// SettlementArgs carries the id of an approved withdrawal that must be paid
// out and booked to the ledger.
type SettlementArgs struct {
	RequestID string `json:"request_id"`
}

func (SettlementArgs) Kind() string { return "settle_withdrawal" }

// Settler is the contract the worker needs to finish a withdrawal. The
// settlement itself is idempotent on the request id, so river retries are safe.
type Settler interface {
	SettleWithdrawal(ctx context.Context, requestID string) error
}

type SettlementWorker struct {
	river.WorkerDefaults[SettlementArgs]
	settler Settler
}

func NewSettlementWorker(settler Settler) *SettlementWorker {
	return &SettlementWorker{settler: settler}
}

func (w *SettlementWorker) Work(ctx context.Context, job *river.Job[SettlementArgs]) error {
	if err := w.settler.SettleWithdrawal(ctx, job.Args.RequestID); err != nil {
		return fmt.Errorf("failed to settle withdrawal %s: %w", job.Args.RequestID, err)
	}
	return nil
}
