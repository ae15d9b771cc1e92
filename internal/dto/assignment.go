package dto

import (
	"time"

	"github.com/TaskRupee/task_rupee_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateReviewerRequest defines the data needed to register a reviewer.
type CreateReviewerRequest struct {
	DisplayName  string              `json:"displayName" binding:"required"`
	MaxCapacity  int                 `json:"maxCapacity" binding:"required,gt=0"`
	Capabilities []domain.Capability `json:"capabilities" binding:"required,min=1"`
}

// ReviewerResponse defines the data returned for a reviewer.
type ReviewerResponse struct {
	ReviewerID           string              `json:"reviewerID"`
	DisplayName          string              `json:"displayName"`
	IsActive             bool                `json:"isActive"`
	Capabilities         []domain.Capability `json:"capabilities"`
	MaxCapacity          int                 `json:"maxCapacity"`
	AssignedAccountCount int                 `json:"assignedAccountCount"`
	ProcessedCount       int64               `json:"processedCount"`
	ProcessedAmount      decimal.Decimal     `json:"processedAmount"`
	CreatedAt            time.Time           `json:"createdAt"`
}

// ToReviewerResponse converts a domain reviewer to its response DTO.
func ToReviewerResponse(r *domain.Reviewer) ReviewerResponse {
	return ReviewerResponse{
		ReviewerID:           r.ReviewerID,
		DisplayName:          r.DisplayName,
		IsActive:             r.IsActive,
		Capabilities:         r.Capabilities,
		MaxCapacity:          r.MaxCapacity,
		AssignedAccountCount: r.AssignedAccountCount,
		ProcessedCount:       r.ProcessedCount,
		ProcessedAmount:      r.ProcessedAmount,
		CreatedAt:            r.CreatedAt,
	}
}

// ToReviewerResponses converts a slice of domain reviewers.
func ToReviewerResponses(reviewers []domain.Reviewer) []ReviewerResponse {
	out := make([]ReviewerResponse, len(reviewers))
	for i := range reviewers {
		out[i] = ToReviewerResponse(&reviewers[i])
	}
	return out
}

// ManualAssignRequest pins one account to one reviewer.
type ManualAssignRequest struct {
	AccountID  string `json:"accountID" binding:"required"`
	ReviewerID string `json:"reviewerID" binding:"required"`
}

// DeactivateReviewerRequest controls reviewer retirement. When Reassign is
// true the reviewer's accounts are released and auto-assigned to the pool.
type DeactivateReviewerRequest struct {
	Reassign bool `json:"reassign"`
}

// AutoAssignResult reports the outcome of an auto-assignment batch.
type AutoAssignResult struct {
	Assigned   int `json:"assigned"`
	Unassigned int `json:"unassigned"`
}

// RedistributeResult reports the outcome of a full redistribution.
type RedistributeResult struct {
	Accounts   int `json:"accounts"`
	Reviewers  int `json:"reviewers"`
	TargetLoad int `json:"targetLoad"`
}
