package automation

import "context"

// Executor runs one kind of action. Implementations perform their side
// effect through a gateway and return a classified error on failure.
type Executor interface {
	// Kind returns the action kind this executor is registered under.
	Kind() ActionKind
	// Execute performs the action against the event's target entity.
	Execute(ctx context.Context, action Action, event Event) error
}

// ActionOutcome records one action's result within a dispatched rule.
type ActionOutcome struct {
	Action    Action    `json:"action"`
	Succeeded bool      `json:"succeeded"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// entityRef extracts the target entity reference for an action. The type
// may be overridden per action via the entityType param; the id always
// comes from the event payload.
func entityRef(action Action, event Event) (entityType, entityID string) {
	if t, ok := action.StringParam("entityType"); ok {
		entityType = t
	} else if v, ok := event.Payload.Resolve("entity.type"); ok {
		entityType, _ = v.AsString()
	}
	if v, ok := event.Payload.Resolve("entity.id"); ok {
		entityID, _ = v.AsString()
	}
	return entityType, entityID
}
