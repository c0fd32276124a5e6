package automation

import "context"

// The engine touches the rest of the application only through these narrow
// interfaces. Implementations live in internal/services; every call must
// honor the supplied context's deadline.

// RuleStore hands out immutable snapshots of active rules. Implementations
// must return a stable order (creation order) so that priority ties stay
// deterministic.
type RuleStore interface {
	ActiveRulesForTrigger(ctx context.Context, trigger TriggerKind) ([]Rule, error)
}

// AssignmentGateway performs assignment writes and exposes the open-item
// counts the workload balancer reads.
type AssignmentGateway interface {
	Assign(ctx context.Context, entityType, entityID, userID string) error
	OpenItemCountsByRole(ctx context.Context, role string) (map[string]int, error)
}

// NotificationGateway creates an in-app notification for a user.
type NotificationGateway interface {
	Notify(ctx context.Context, userID, title, message string, data map[string]interface{}) error
}

// EmailGateway renders and sends a templated email. The wire format is the
// collaborator's concern.
type EmailGateway interface {
	Send(ctx context.Context, template string, recipients []string, variables map[string]interface{}) error
}

// StatusGateway transitions a domain entity's status.
type StatusGateway interface {
	UpdateStatus(ctx context.Context, entityType, entityID, status string) error
}

// WebhookGateway posts a payload to an external URL. The timeout comes in
// through ctx; transport failures classify as transient.
type WebhookGateway interface {
	Post(ctx context.Context, url, method string, headers map[string]string, body []byte) error
}

// DeadlineGateway creates a tracked deadline for a domain entity.
type DeadlineGateway interface {
	CreateDeadline(ctx context.Context, entityType, entityID string, daysFromNow, warningDays int) error
}
