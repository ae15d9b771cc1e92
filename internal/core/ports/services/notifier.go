package services

import (
	"context"

	"github.com/TaskRupee/task_rupee_app/internal/core/domain"
)

// Notifier is the outbound notification boundary. Implementations are
// fire-and-forget: a failure to notify must never roll back the ledger or
// state change that triggered it, so Notify returns nothing.
type Notifier interface {
	Notify(ctx context.Context, targetID string, category domain.NotificationCategory, title, message string, payload map[string]any)
}

// NopNotifier discards all notifications. Used in tests and as the fallback
// when the broker is unavailable at startup.
type NopNotifier struct{}

func (NopNotifier) Notify(ctx context.Context, targetID string, category domain.NotificationCategory, title, message string, payload map[string]any) {
}
