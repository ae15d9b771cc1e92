package dto

import (
	"time"

	"github.com/TaskRupee/task_rupee_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// PaymentMethodRequest is the payout destination supplied at submission.
type PaymentMethodRequest struct {
	Kind          domain.PaymentMethodKind `json:"kind" binding:"required,oneof=UPI BANK_TRANSFER"`
	UPIID         string                   `json:"upiID"`
	AccountHolder string                   `json:"accountHolder"`
	AccountNumber string                   `json:"accountNumber"`
	IFSC          string                   `json:"ifsc"`
	BankName      string                   `json:"bankName"`
}

// ToDomain converts the request payment method to its domain form.
func (r PaymentMethodRequest) ToDomain() domain.PaymentMethod {
	return domain.PaymentMethod{
		Kind:          r.Kind,
		UPIID:         r.UPIID,
		AccountHolder: r.AccountHolder,
		AccountNumber: r.AccountNumber,
		IFSC:          r.IFSC,
		BankName:      r.BankName,
	}
}

// SubmitWithdrawalRequest defines the data needed to submit a withdrawal.
// ClientReference is an optional idempotency token: retrying a submission
// with the same token cannot create a second request.
type SubmitWithdrawalRequest struct {
	Amount          decimal.Decimal      `json:"amount" binding:"required"`
	PaymentMethod   PaymentMethodRequest `json:"paymentMethod" binding:"required"`
	ClientReference string               `json:"clientReference"`
}

// ReviewAction is the verb a reviewer applies to a request.
type ReviewAction string

const (
	ReviewApprove ReviewAction = "approve"
	ReviewReject  ReviewAction = "reject"
	ReviewProcess ReviewAction = "process"
)

// ReviewWithdrawalRequest defines a reviewer's decision on a request.
type ReviewWithdrawalRequest struct {
	Action          ReviewAction `json:"action" binding:"required,oneof=approve reject process"`
	Notes           string       `json:"notes"`
	RejectionReason string       `json:"rejectionReason"`
}

// WithdrawalResponse defines the data returned for a withdrawal request.
type WithdrawalResponse struct {
	RequestID       string                 `json:"requestID"`
	AccountID       string                 `json:"accountID"`
	Amount          decimal.Decimal        `json:"amount"`
	TaxAmount       decimal.Decimal        `json:"taxAmount"`
	NetAmount       decimal.Decimal        `json:"netAmount"`
	State           domain.WithdrawalState `json:"state"`
	ReviewerID      *string                `json:"reviewerID,omitempty"`
	PaymentMethod   domain.PaymentMethod   `json:"paymentMethod"`
	ReviewerNotes   string                 `json:"reviewerNotes,omitempty"`
	RejectionReason string                 `json:"rejectionReason,omitempty"`
	SubmittedAt     time.Time              `json:"submittedAt"`
	ReviewedAt      *time.Time             `json:"reviewedAt,omitempty"`
	ProcessedAt     *time.Time             `json:"processedAt,omitempty"`
	CompletedAt     *time.Time             `json:"completedAt,omitempty"`
}

// ToWithdrawalResponse converts a domain request to its response DTO.
func ToWithdrawalResponse(w *domain.WithdrawalRequest) WithdrawalResponse {
	return WithdrawalResponse{
		RequestID:       w.RequestID,
		AccountID:       w.AccountID,
		Amount:          w.Amount,
		TaxAmount:       w.TaxAmount,
		NetAmount:       w.NetAmount,
		State:           w.State,
		ReviewerID:      w.ReviewerID,
		PaymentMethod:   w.PaymentMethod,
		ReviewerNotes:   w.ReviewerNotes,
		RejectionReason: w.RejectionReason,
		SubmittedAt:     w.SubmittedAt,
		ReviewedAt:      w.ReviewedAt,
		ProcessedAt:     w.ProcessedAt,
		CompletedAt:     w.CompletedAt,
	}
}

// ToWithdrawalResponses converts a slice of domain requests.
func ToWithdrawalResponses(requests []domain.WithdrawalRequest) []WithdrawalResponse {
	out := make([]WithdrawalResponse, len(requests))
	for i := range requests {
		out[i] = ToWithdrawalResponse(&requests[i])
	}
	return out
}

// ListWithdrawalsParams holds pagination parameters for withdrawal listings.
type ListWithdrawalsParams struct {
	Limit     int     `form:"limit"`
	NextToken *string `form:"nextToken"`
	State     *string `form:"state"`
}

// ListWithdrawalsResponse is a token-paginated page of withdrawal requests.
type ListWithdrawalsResponse struct {
	Withdrawals []WithdrawalResponse `json:"withdrawals"`
	NextToken   *string              `json:"nextToken,omitempty"`
}
