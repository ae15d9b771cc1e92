package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents a platform member within the core domain.
// This is the primary representation used by services.
type Account struct {
	AccountID     string          `json:"accountID"`     // Primary Key (UUID)
	DisplayName   string          `json:"displayName"`   // User-visible name
	Tier          Tier            `json:"tier"`          // NONE until a subscription is purchased
	TierExpiresAt *time.Time      `json:"tierExpiresAt"` // Nullable; set with the tier
	ReviewerID    *string         `json:"reviewerID"`    // Weak reference, set by the assignment balancer
	WalletBalance decimal.Decimal `json:"walletBalance"` // Cached cross-check only; the ledger is authoritative
	IsActive      bool            `json:"isActive"`
	AuditFields
}

// HasActiveTier reports whether the account holds a tier that has not expired as of now.
func (a Account) HasActiveTier(now time.Time) bool {
	if a.Tier == TierNone || !a.Tier.Valid() {
		return false
	}
	return a.TierExpiresAt == nil || a.TierExpiresAt.After(now)
}
