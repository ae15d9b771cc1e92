package dto

import (
	"time"

	"github.com/TaskRupee/task_rupee_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateAccountRequest defines the data needed to register a member account.
type CreateAccountRequest struct {
	DisplayName string `json:"displayName" binding:"required"`
}

// AccountResponse defines the data returned for an account.
// Mirrors domain.Account.
type AccountResponse struct {
	AccountID     string      `json:"accountID"`
	DisplayName   string      `json:"displayName"`
	Tier          domain.Tier `json:"tier"`
	TierExpiresAt *time.Time  `json:"tierExpiresAt,omitempty"`
	ReviewerID    *string     `json:"reviewerID,omitempty"`
	IsActive      bool        `json:"isActive"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// ToAccountResponse converts a domain account to its response DTO.
func ToAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:     a.AccountID,
		DisplayName:   a.DisplayName,
		Tier:          a.Tier,
		TierExpiresAt: a.TierExpiresAt,
		ReviewerID:    a.ReviewerID,
		IsActive:      a.IsActive,
		CreatedAt:     a.CreatedAt,
	}
}

// ConfirmSubscriptionRequest is the verified-purchase tuple handed over once
// the external payment authority has confirmed a subscription purchase.
type ConfirmSubscriptionRequest struct {
	AccountID             string          `json:"accountID" binding:"required"`
	Tier                  domain.Tier     `json:"tier" binding:"required,oneof=TIER_1 TIER_2 TIER_3"`
	AmountPaid            decimal.Decimal `json:"amountPaid" binding:"required"`
	ExternalTransactionID string          `json:"externalTransactionID" binding:"required"`
}

// BalanceResponse is the derived balance read model.
type BalanceResponse struct {
	AccountID   string          `json:"accountID"`
	Balance     decimal.Decimal `json:"balance"`
	TotalEarned decimal.Decimal `json:"totalEarned"`
	TotalSpent  decimal.Decimal `json:"totalSpent"`
}

// ToBalanceResponse converts a balance summary to its response DTO.
func ToBalanceResponse(s *domain.BalanceSummary) BalanceResponse {
	return BalanceResponse{
		AccountID:   s.AccountID,
		Balance:     s.Balance,
		TotalEarned: s.TotalEarned,
		TotalSpent:  s.TotalSpent,
	}
}
