package domain

import "github.com/shopspring/decimal"

// Capability names a workflow action a reviewer may perform.
type Capability string

const (
	CapManageAssignments  Capability = "MANAGE_ASSIGNMENTS"
	CapApproveWithdrawals Capability = "APPROVE_WITHDRAWALS"
	CapProcessPayouts     Capability = "PROCESS_PAYOUTS"
	CapAdminOverride      Capability = "ADMIN_OVERRIDE"
)

// Reviewer is a capacity-bounded human actor responsible for approving and
// rejecting withdrawal requests for its assigned accounts.
type Reviewer struct {
	ReviewerID           string          `json:"reviewerID"` // Primary Key (UUID)
	DisplayName          string          `json:"displayName"`
	IsActive             bool            `json:"isActive"`
	Capabilities         []Capability    `json:"capabilities"`
	MaxCapacity          int             `json:"maxCapacity"`
	AssignedAccountCount int             `json:"assignedAccountCount"` // must equal len(AssignedAccountIDs)
	AssignedAccountIDs   []string        `json:"assignedAccountIDs,omitempty"`
	AssignedRequestIDs   []string        `json:"assignedRequestIDs,omitempty"`
	ProcessedCount       int64           `json:"processedCount"`
	ProcessedAmount      decimal.Decimal `json:"processedAmount"`
	AuditFields
}

// HasCapability reports whether the reviewer may perform the given action.
func (r Reviewer) HasCapability(c Capability) bool {
	for _, have := range r.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// HasSpareCapacity reports whether the reviewer can accept another account.
func (r Reviewer) HasSpareCapacity() bool {
	return r.AssignedAccountCount < r.MaxCapacity
}
