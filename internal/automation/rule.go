package automation

import "fmt"

// ActionKind identifies the side effect an action performs.
type ActionKind string

const (
	ActionAssignToUser       ActionKind = "assign_to_user"
	ActionAssignToRole       ActionKind = "assign_to_role"
	ActionSendEmail          ActionKind = "send_email"
	ActionCreateNotification ActionKind = "create_notification"
	ActionUpdateStatus       ActionKind = "update_status"
	ActionCreateDeadline     ActionKind = "create_deadline"
	ActionEscalate           ActionKind = "escalate"
	ActionCreateTask         ActionKind = "create_task"
	ActionTriggerWebhook     ActionKind = "trigger_webhook"
)

// requiredParams lists the parameter keys each action kind must carry.
// Optional keys are documented on the executors.
var requiredParams = map[ActionKind][]string{
	ActionAssignToUser:       {"userId"},
	ActionAssignToRole:       {"role", "entityType"},
	ActionSendEmail:          {"template", "recipients"},
	ActionCreateNotification: {"userId", "title", "message"},
	ActionUpdateStatus:       {"entityType", "status"},
	ActionCreateDeadline:     {"entityType", "daysFromNow"},
	ActionEscalate:           {"title"},
	ActionCreateTask:         {"title"},
	ActionTriggerWebhook:     {"url"},
}

func (k ActionKind) Valid() bool {
	_, ok := requiredParams[k]
	return ok
}

// Action is a single side-effecting operation in a rule's ordered list.
type Action struct {
	Type   ActionKind       `json:"type"`
	Params map[string]Value `json:"params"`
}

// StringParam returns a string-coercible parameter.
func (a Action) StringParam(key string) (string, bool) {
	v, ok := a.Params[key]
	if !ok || v.IsNull() {
		return "", false
	}
	return v.AsString()
}

// BoolParam returns a boolean parameter, false when absent.
func (a Action) BoolParam(key string) bool {
	v, ok := a.Params[key]
	if !ok {
		return false
	}
	b, _ := v.AsBool()
	return b
}

// IntParam returns a numeric parameter truncated to int.
func (a Action) IntParam(key string) (int, bool) {
	v, ok := a.Params[key]
	if !ok {
		return 0, false
	}
	n, ok := v.AsNumber()
	return int(n), ok
}

// ValidateParams checks the declared required keys for the action kind.
func (a Action) ValidateParams() error {
	required, ok := requiredParams[a.Type]
	if !ok {
		return fmt.Errorf("unknown action type %q", a.Type)
	}
	for _, key := range required {
		if v, ok := a.Params[key]; !ok || v.IsNull() {
			return fmt.Errorf("action %s: missing required param %q", a.Type, key)
		}
	}
	return nil
}

// Rule is a named trigger plus condition chain plus ordered action list.
// Rules are externally authored; the engine only reads immutable snapshots
// handed out by the rule store.
type Rule struct {
	ID          uint        `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Trigger     TriggerKind `json:"trigger"`
	Priority    int         `json:"priority"` // 0..999, lower evaluates first
	IsActive    bool        `json:"is_active"`
	Conditions  []Condition `json:"conditions"`
	Actions     []Action    `json:"actions"`
}

// Validate checks a rule as submitted by an author. Matching never calls
// this; the store is trusted to hold validated rules.
func (r Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule name is required")
	}
	if !r.Trigger.Valid() {
		return fmt.Errorf("unknown trigger %q", r.Trigger)
	}
	if r.Priority < 0 || r.Priority > 999 {
		return fmt.Errorf("priority %d out of range [0,999]", r.Priority)
	}
	for i, c := range r.Conditions {
		if c.Field == "" {
			return fmt.Errorf("condition %d: field is required", i)
		}
		if !c.Op.Valid() {
			return fmt.Errorf("condition %d: unknown operator %q", i, c.Op)
		}
		if c.Logic != "" && c.Logic != LogicAnd && c.Logic != LogicOr {
			return fmt.Errorf("condition %d: unknown logic %q", i, c.Logic)
		}
	}
	for i, a := range r.Actions {
		if err := a.ValidateParams(); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}
	return nil
}
