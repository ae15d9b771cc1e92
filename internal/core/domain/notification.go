package domain

// NotificationCategory classifies outbound notifications for routing.
type NotificationCategory string

const (
	NotifyWithdrawalSubmitted NotificationCategory = "withdrawal.submitted"
	NotifyWithdrawalAssigned  NotificationCategory = "withdrawal.assigned"
	NotifyWithdrawalApproved  NotificationCategory = "withdrawal.approved"
	NotifyWithdrawalRejected  NotificationCategory = "withdrawal.rejected"
	NotifyWithdrawalUnderHold NotificationCategory = "withdrawal.under_review"
	NotifyWithdrawalProcessed NotificationCategory = "withdrawal.processing"
	NotifyWithdrawalCompleted NotificationCategory = "withdrawal.completed"
	NotifyWithdrawalCancelled NotificationCategory = "withdrawal.cancelled"
	NotifyTaskRewarded        NotificationCategory = "task.rewarded"
	NotifySubscriptionActive  NotificationCategory = "subscription.activated"
	NotifyAssignmentChanged   NotificationCategory = "assignment.changed"
)
