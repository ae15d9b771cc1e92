package services

import (
	"context"
	"fmt"
	"time"

	"github.com/TaskRupee/task_rupee_app/internal/apperrors"
	"github.com/TaskRupee/task_rupee_app/internal/core/domain"
	portsrepo "github.com/TaskRupee/task_rupee_app/internal/core/ports/repositories"
	portssvc "github.com/TaskRupee/task_rupee_app/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

// quotaService computes rolling window totals for cap enforcement. Windows
// are calendar-aligned in UTC: day start, ISO week start (Monday) and month
// start.
type quotaService struct {
	BaseService
	ledgerRepo     portsrepo.LedgerRepositoryWithTx
	withdrawalRepo portsrepo.WithdrawalRepositoryWithTx
}

// NewQuotaService creates a new QuotaService.
func NewQuotaService(ledgerRepo portsrepo.LedgerRepositoryWithTx, withdrawalRepo portsrepo.WithdrawalRepositoryWithTx) portssvc.QuotaSvcFacade {
	return &quotaService{
		ledgerRepo:     ledgerRepo,
		withdrawalRepo: withdrawalRepo,
	}
}

var _ portssvc.QuotaSvcFacade = (*quotaService)(nil)

// startOfDay truncates t to the beginning of its UTC day.
func startOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// startOfWeek truncates t to the beginning of its UTC ISO week (Monday).
func startOfWeek(t time.Time) time.Time {
	day := startOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// startOfMonth truncates t to the beginning of its UTC month.
func startOfMonth(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// DailyTaskCount counts task-reward entries booked during the UTC day of asOf.
func (s *quotaService) DailyTaskCount(ctx context.Context, accountID string, asOf time.Time) (int, error) {
	return s.ledgerRepo.CountEntriesSince(ctx, accountID, domain.EntryTaskReward, startOfDay(asOf))
}

// WithdrawalWindowTotal sums the gross of quota-counting requests submitted
// on/after windowStart.
func (s *quotaService) WithdrawalWindowTotal(ctx context.Context, accountID string, windowStart time.Time) (decimal.Decimal, error) {
	return s.withdrawalRepo.SumGrossSince(ctx, accountID, windowStart)
}

// CheckWithdrawalQuotas verifies the daily, weekly and monthly caps
// additively: the prospective amount plus the window's existing quota-counting
// total must stay within each cap independently.
func (s *quotaService) CheckWithdrawalQuotas(ctx context.Context, accountID string, amount decimal.Decimal, now time.Time) error {
	windows := []struct {
		name  string
		start time.Time
		cap   decimal.Decimal
	}{
		{"daily", startOfDay(now), domain.DailyWithdrawalCap},
		{"weekly", startOfWeek(now), domain.WeeklyWithdrawalCap},
		{"monthly", startOfMonth(now), domain.MonthlyWithdrawalCap},
	}

	for _, w := range windows {
		total, err := s.withdrawalRepo.SumGrossSince(ctx, accountID, w.start)
		if err != nil {
			return err
		}
		if total.Add(amount).GreaterThan(w.cap) {
			return fmt.Errorf("%w: %s cap of %s exceeded (window total %s, requested %s)",
				apperrors.ErrQuotaExceeded, w.name, w.cap.String(), total.String(), amount.String())
		}
	}
	return nil
}
