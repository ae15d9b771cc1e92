package pgsql

import (
	portsrepo "github.com/TaskRupee/task_rupee_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider wires every pgx-backed repository over one shared pool.
func NewRepositoryProvider(pool *pgxpool.Pool) *portsrepo.RepositoryProvider {
	return &portsrepo.RepositoryProvider{
		AccountRepo:    newPgxAccountRepository(pool),
		LedgerRepo:     newPgxLedgerRepository(pool),
		WithdrawalRepo: newPgxWithdrawalRepository(pool),
		ReviewerRepo:   newPgxReviewerRepository(pool),
	}
}
