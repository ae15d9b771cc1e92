package services

import (
	"context"
	"time"

	"github.com/TaskRupee/task_rupee_app/internal/core/domain"
	"github.com/TaskRupee/task_rupee_app/internal/dto"
)

// AccountReaderSvc defines read operations for member accounts.
type AccountReaderSvc interface {
	// GetAccount retrieves an account by id.
	GetAccount(ctx context.Context, accountID string) (*domain.Account, error)
}

// AccountWriterSvc defines write operations for member accounts.
type AccountWriterSvc interface {
	// CreateAccount registers a new member account.
	CreateAccount(ctx context.Context, req dto.CreateAccountRequest, creatorID string) (*domain.Account, error)

	// ApplyVerifiedPurchase books an externally verified subscription
	// purchase: a SUBSCRIPTION_PAYMENT ledger entry plus the tier update,
	// atomically and idempotently on the external transaction id.
	ApplyVerifiedPurchase(ctx context.Context, req dto.ConfirmSubscriptionRequest, actorID string) (*domain.Account, error)

	// ExpireTiers sweeps accounts whose tier expiry has passed, returning
	// the number of accounts downgraded.
	ExpireTiers(ctx context.Context, now time.Time) (int, error)
}

// AccountSvcFacade combines all account service interfaces.
type AccountSvcFacade interface {
	AccountReaderSvc
	AccountWriterSvc
}
