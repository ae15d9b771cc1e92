package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryCategory classifies a ledger entry by the event that produced it.
type EntryCategory string

const (
	EntryTaskReward          EntryCategory = "TASK_REWARD"
	EntryWithdrawal          EntryCategory = "WITHDRAWAL"
	EntrySubscriptionPayment EntryCategory = "SUBSCRIPTION_PAYMENT"
)

// LedgerEntry is an immutable signed monetary fact attributed to one account.
// Entries are append-only: they are never updated or deleted after creation.
type LedgerEntry struct {
	EntryID     string          `json:"entryID"`     // Primary Key (UUID)
	AccountID   string          `json:"accountID"`   // FK -> accounts.account_id
	Amount      decimal.Decimal `json:"amount"`      // Signed; positive earns, negative spends
	Category    EntryCategory   `json:"category"`    // TASK_REWARD, WITHDRAWAL, SUBSCRIPTION_PAYMENT
	Description string          `json:"description"` // Free text
	Reference   string          `json:"reference"`   // Idempotency key, unique per (account, category)
	CreatedAt   time.Time       `json:"createdAt"`
	CreatedBy   string          `json:"createdBy"`
}

// BalanceSummary is the derived read model folded from an account's entries.
type BalanceSummary struct {
	AccountID   string          `json:"accountID"`
	Balance     decimal.Decimal `json:"balance"`
	TotalEarned decimal.Decimal `json:"totalEarned"`
	TotalSpent  decimal.Decimal `json:"totalSpent"`
	Clamped     bool            `json:"-"` // true when earned-spent was negative and clamped to zero
}

// SummarizeEntries folds a multiset of entries into a balance summary.
// The fold is commutative: the result depends only on the entries present,
// never on their order, so it is safe to run against any snapshot.
func SummarizeEntries(accountID string, entries []LedgerEntry) BalanceSummary {
	earned := decimal.Zero
	spent := decimal.Zero
	for _, e := range entries {
		if e.Amount.IsPositive() {
			earned = earned.Add(e.Amount)
		} else {
			spent = spent.Add(e.Amount.Abs())
		}
	}
	return NewBalanceSummary(accountID, earned, spent)
}

// NewBalanceSummary builds the summary from pre-aggregated totals,
// clamping a negative net balance to zero.
func NewBalanceSummary(accountID string, totalEarned, totalSpent decimal.Decimal) BalanceSummary {
	balance := totalEarned.Sub(totalSpent)
	clamped := false
	if balance.IsNegative() {
		balance = decimal.Zero
		clamped = true
	}
	return BalanceSummary{
		AccountID:   accountID,
		Balance:     balance,
		TotalEarned: totalEarned,
		TotalSpent:  totalSpent,
		Clamped:     clamped,
	}
}
