package metrics

import "github.com/civicpulse/civicpulse/internal/domain"

// TransitionCommitted records a committed lifecycle operation.
func TransitionCommitted(operation string) {
	ComplaintTransitions.WithLabelValues(operation).Inc()
}

// TransitionFailed records a lifecycle operation that did not commit.
func TransitionFailed(operation string, err error) {
	ComplaintTransitionErrors.WithLabelValues(operation, domain.ErrorCode(err)).Inc()
}

// NotificationsWritten records committed in-app notifications.
func NotificationsWritten(notes []domain.Notification) {
	for _, n := range notes {
		NotificationsCreated.WithLabelValues(n.Type.String()).Inc()
	}
}
