package dto

import (
	"time"

	"github.com/TaskRupee/task_rupee_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CompleteTaskRequest books the reward for one completed task.
// TaskReference is the idempotency key; resubmitting it is rejected.
type CompleteTaskRequest struct {
	TaskReference string `json:"taskReference" binding:"required"`
	Description   string `json:"description"`
}

// LedgerEntryResponse defines the data returned for one ledger entry.
type LedgerEntryResponse struct {
	EntryID     string               `json:"entryID"`
	AccountID   string               `json:"accountID"`
	Amount      decimal.Decimal      `json:"amount"`
	Category    domain.EntryCategory `json:"category"`
	Description string               `json:"description"`
	Reference   string               `json:"reference"`
	CreatedAt   time.Time            `json:"createdAt"`
}

// ToLedgerEntryResponse converts a domain entry to its response DTO.
func ToLedgerEntryResponse(e *domain.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		EntryID:     e.EntryID,
		AccountID:   e.AccountID,
		Amount:      e.Amount,
		Category:    e.Category,
		Description: e.Description,
		Reference:   e.Reference,
		CreatedAt:   e.CreatedAt,
	}
}

// ToLedgerEntryResponses converts a slice of domain entries.
func ToLedgerEntryResponses(entries []domain.LedgerEntry) []LedgerEntryResponse {
	out := make([]LedgerEntryResponse, len(entries))
	for i := range entries {
		out[i] = ToLedgerEntryResponse(&entries[i])
	}
	return out
}

// ListEntriesParams holds pagination parameters for ledger history.
type ListEntriesParams struct {
	Limit     int     `form:"limit"`
	NextToken *string `form:"nextToken"`
}

// ListEntriesResponse is a token-paginated page of ledger entries.
type ListEntriesResponse struct {
	Entries   []LedgerEntryResponse `json:"entries"`
	NextToken *string               `json:"nextToken,omitempty"`
}
