package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// QuotaSvcFacade computes rolling window totals from ledger and withdrawal
// history to enforce caps. All checks happen at submission time only.
type QuotaSvcFacade interface {
	// DailyTaskCount counts task-reward entries booked during the UTC day of asOf.
	DailyTaskCount(ctx context.Context, accountID string, asOf time.Time) (int, error)

	// WithdrawalWindowTotal sums the gross of quota-counting requests
	// submitted on/after windowStart.
	WithdrawalWindowTotal(ctx context.Context, accountID string, windowStart time.Time) (decimal.Decimal, error)

	// CheckWithdrawalQuotas verifies the daily, weekly and monthly caps
	// additively against a prospective amount. Returns a wrapped
	// apperrors.ErrQuotaExceeded naming the violated window.
	CheckWithdrawalQuotas(ctx context.Context, accountID string, amount decimal.Decimal, now time.Time) error
}
