package services

import (
	portsrepo "github.com/TaskRupee/task_rupee_app/internal/core/ports/repositories"
	portssvc "github.com/TaskRupee/task_rupee_app/internal/core/ports/services"
)

// NewServiceContainer creates a new service container with properly initialized
// dependencies. The withdrawal service is also returned directly so main can
// bind the settlement enqueuer once the job client exists.
func NewServiceContainer(repos portsrepo.RepositoryProvider, notifier portssvc.Notifier) (*portssvc.ServiceContainer, *WithdrawalService) {
	container := &portssvc.ServiceContainer{}

	// Quota service first since ledger and withdrawal both depend on it
	container.Quota = NewQuotaService(repos.LedgerRepo, repos.WithdrawalRepo)

	container.Account = NewAccountService(repos.AccountRepo, repos.LedgerRepo, notifier)
	container.Ledger = NewLedgerService(repos.LedgerRepo, repos.AccountRepo, container.Quota, notifier)

	withdrawalSvc := NewWithdrawalService(
		repos.WithdrawalRepo,
		repos.AccountRepo,
		repos.LedgerRepo,
		repos.ReviewerRepo,
		container.Quota,
		notifier,
	)
	container.Withdrawal = withdrawalSvc

	container.Assignment = NewAssignmentService(repos.ReviewerRepo, repos.AccountRepo, notifier)

	return container, withdrawalSvc
}
