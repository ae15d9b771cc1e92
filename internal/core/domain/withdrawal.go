package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WithdrawalState indicates where a withdrawal request is in its lifecycle.
type WithdrawalState string

const (
	WithdrawalPending     WithdrawalState = "PENDING"
	WithdrawalUnderReview WithdrawalState = "UNDER_REVIEW" // administrative hold only
	WithdrawalApproved    WithdrawalState = "APPROVED"
	WithdrawalProcessing  WithdrawalState = "PROCESSING"
	WithdrawalCompleted   WithdrawalState = "COMPLETED"
	WithdrawalRejected    WithdrawalState = "REJECTED"
	WithdrawalCancelled   WithdrawalState = "CANCELLED"
)

// legalTransitions is the complete transition table. No other transitions are legal.
var legalTransitions = map[WithdrawalState][]WithdrawalState{
	WithdrawalPending:     {WithdrawalApproved, WithdrawalRejected, WithdrawalCancelled, WithdrawalUnderReview},
	WithdrawalUnderReview: {WithdrawalApproved, WithdrawalRejected},
	WithdrawalApproved:    {WithdrawalProcessing},
	WithdrawalProcessing:  {WithdrawalCompleted},
}

// CanTransitionTo reports whether moving from s to target is legal.
func (s WithdrawalState) CanTransitionTo(target WithdrawalState) bool {
	for _, t := range legalTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the state ends the lifecycle.
func (s WithdrawalState) IsTerminal() bool {
	return s == WithdrawalCompleted || s == WithdrawalRejected || s == WithdrawalCancelled
}

// CountsTowardQuota reports whether a request in this state consumes
// withdrawal-window quota. Everything except the terminal-negative states does.
func (s WithdrawalState) CountsTowardQuota() bool {
	return s != WithdrawalRejected && s != WithdrawalCancelled
}

// PaymentMethodKind discriminates the payout destination variants.
type PaymentMethodKind string

const (
	PaymentUPI          PaymentMethodKind = "UPI"
	PaymentBankTransfer PaymentMethodKind = "BANK_TRANSFER"
)

// PaymentMethod describes where a completed withdrawal is paid out.
type PaymentMethod struct {
	Kind PaymentMethodKind `json:"kind"`

	UPIID string `json:"upiID,omitempty"`

	AccountHolder string `json:"accountHolder,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`
	IFSC          string `json:"ifsc,omitempty"`
	BankName      string `json:"bankName,omitempty"`
}

// Complete reports whether all fields required for the method's kind are present.
func (m PaymentMethod) Complete() bool {
	switch m.Kind {
	case PaymentUPI:
		return m.UPIID != ""
	case PaymentBankTransfer:
		return m.AccountHolder != "" && m.AccountNumber != "" && m.IFSC != "" && m.BankName != ""
	default:
		return false
	}
}

// WithdrawalTaxRate is the flat tax deducted from every withdrawal.
var WithdrawalTaxRate = decimal.NewFromFloat(0.10)

// MinWithdrawalAmount is the smallest gross amount a member may request.
var MinWithdrawalAmount = decimal.NewFromInt(350)

// Withdrawal window caps, checked additively and independently at submission.
var (
	DailyWithdrawalCap   = decimal.NewFromInt(5000)
	WeeklyWithdrawalCap  = decimal.NewFromInt(20000)
	MonthlyWithdrawalCap = decimal.NewFromInt(50000)
)

// ComputeWithdrawalTax returns (tax, net) for a gross amount. Both are fixed
// at submission time and never recomputed.
func ComputeWithdrawalTax(amount decimal.Decimal) (tax, net decimal.Decimal) {
	tax = amount.Mul(WithdrawalTaxRate)
	net = amount.Sub(tax)
	return tax, net
}

// WithdrawalRequest represents one withdrawal lifecycle instance.
type WithdrawalRequest struct {
	RequestID       string          `json:"requestID"` // Primary Key (UUID)
	AccountID       string          `json:"accountID"`
	Amount          decimal.Decimal `json:"amount"`    // requested gross
	TaxAmount       decimal.Decimal `json:"taxAmount"` // 10% of gross, computed once at submission
	NetAmount       decimal.Decimal `json:"netAmount"` // gross - tax
	State           WithdrawalState `json:"state"`
	ReviewerID      *string         `json:"reviewerID"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	ReviewerNotes   string          `json:"reviewerNotes,omitempty"`
	RejectionReason string          `json:"rejectionReason,omitempty"`
	ClientReference string          `json:"clientReference,omitempty"` // optional client idempotency token
	SubmittedAt     time.Time       `json:"submittedAt"`
	ReviewedAt      *time.Time      `json:"reviewedAt,omitempty"`
	ProcessedAt     *time.Time      `json:"processedAt,omitempty"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
	Version         int64           `json:"-"` // optimistic concurrency guard
	AuditFields
}

// LedgerReference is the idempotency key under which this request's debit entry
// is booked. Retried settlements reuse it, so exactly one entry ever persists.
func (w WithdrawalRequest) LedgerReference() string {
	return w.RequestID
}
