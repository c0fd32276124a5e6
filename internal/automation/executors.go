package automation

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// Gateways bundles the external collaborators the executors write through.
type Gateways struct {
	Rules         RuleStore
	Assignments   AssignmentGateway
	Notifications NotificationGateway
	Email         EmailGateway
	Status        StatusGateway
	Webhooks      WebhookGateway
	Deadlines     DeadlineGateway
}

// DefaultRegistry builds a registry with one executor per action kind.
// webhookTimeout bounds each outbound webhook call.
func DefaultRegistry(gw Gateways, webhookTimeout time.Duration) *Registry {
	balancer := NewBalancer(gw.Assignments)
	r := NewRegistry()
	r.Register(&assignToUserExecutor{assignments: gw.Assignments})
	r.Register(&assignToRoleExecutor{assignments: gw.Assignments, balancer: balancer})
	r.Register(&sendEmailExecutor{email: gw.Email})
	r.Register(&createNotificationExecutor{notifications: gw.Notifications})
	r.Register(&updateStatusExecutor{status: gw.Status})
	r.Register(&createDeadlineExecutor{deadlines: gw.Deadlines})
	r.Register(&escalateExecutor{notifications: gw.Notifications, assignments: gw.Assignments, defaultRole: "manager"})
	r.Register(&createTaskExecutor{notifications: gw.Notifications})
	r.Register(&triggerWebhookExecutor{webhooks: gw.Webhooks, timeout: webhookTimeout})
	return r
}

// SetEscalationRole overrides the role escalate actions fall back to when
// the rule names none. No-op for an empty role.
func (r *Registry) SetEscalationRole(role string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if role == "" {
		return
	}
	if e, ok := r.executors[ActionEscalate].(*escalateExecutor); ok {
		e.defaultRole = role
	}
}

type assignToUserExecutor struct {
	assignments AssignmentGateway
}

func (e *assignToUserExecutor) Kind() ActionKind { return ActionAssignToUser }

func (e *assignToUserExecutor) Execute(ctx context.Context, action Action, event Event) error {
	userID, ok := action.StringParam("userId")
	if !ok {
		return Permanentf("assign_to_user: userId param required")
	}
	entityType, entityID := entityRef(action, event)
	if entityID == "" {
		return Permanentf("assign_to_user: event %s carries no entity.id", event.Type)
	}
	return e.assignments.Assign(ctx, entityType, entityID, userID)
}

type assignToRoleExecutor struct {
	assignments AssignmentGateway
	balancer    *Balancer
}

func (e *assignToRoleExecutor) Kind() ActionKind { return ActionAssignToRole }

// Execute picks a concrete user for the role and delegates to the
// assignment gateway. With balanceWorkload the least-loaded holder wins;
// without it the pick is the lexicographically smallest holder, which keeps
// round-tripping a rule deterministic either way.
func (e *assignToRoleExecutor) Execute(ctx context.Context, action Action, event Event) error {
	role, ok := action.StringParam("role")
	if !ok {
		return Permanentf("assign_to_role: role param required")
	}
	entityType, entityID := entityRef(action, event)
	if entityID == "" {
		return Permanentf("assign_to_role: event %s carries no entity.id", event.Type)
	}

	var userID string
	var err error
	if action.BoolParam("balanceWorkload") {
		userID, err = e.balancer.PickAssignee(ctx, role, entityType)
	} else {
		userID, err = firstHolder(ctx, e.assignments, role)
	}
	if err != nil {
		return err
	}
	return e.assignments.Assign(ctx, entityType, entityID, userID)
}

func firstHolder(ctx context.Context, assignments AssignmentGateway, role string) (string, error) {
	counts, err := assignments.OpenItemCountsByRole(ctx, role)
	if err != nil {
		return "", err
	}
	if len(counts) == 0 {
		return "", NoEligibleUser(role)
	}
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids[0], nil
}

type sendEmailExecutor struct {
	email EmailGateway
}

func (e *sendEmailExecutor) Kind() ActionKind { return ActionSendEmail }

func (e *sendEmailExecutor) Execute(ctx context.Context, action Action, event Event) error {
	template, ok := action.StringParam("template")
	if !ok {
		return Permanentf("send_email: template param required")
	}
	recipients := stringListParam(action, "recipients")
	if len(recipients) == 0 {
		return Permanentf("send_email: recipients param required")
	}
	variables := map[string]interface{}{}
	if v, ok := action.Params["variables"]; ok {
		if m, ok := v.AsMap(); ok {
			for k, e := range m {
				variables[k] = e.Interface()
			}
		}
	}
	for k, v := range event.Payload {
		if _, taken := variables[k]; !taken {
			variables[k] = v.Interface()
		}
	}
	return e.email.Send(ctx, template, recipients, variables)
}

// stringListParam accepts a list value or a comma-separated string.
func stringListParam(action Action, key string) []string {
	v, ok := action.Params[key]
	if !ok {
		return nil
	}
	if list, ok := v.AsList(); ok {
		out := make([]string, 0, len(list))
		for _, e := range list {
			if s, ok := e.AsString(); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	s, ok := v.AsString()
	if !ok || s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

type createNotificationExecutor struct {
	notifications NotificationGateway
}

func (e *createNotificationExecutor) Kind() ActionKind { return ActionCreateNotification }

func (e *createNotificationExecutor) Execute(ctx context.Context, action Action, event Event) error {
	userID, ok := action.StringParam("userId")
	if !ok {
		return Permanentf("create_notification: userId param required")
	}
	title, _ := action.StringParam("title")
	message, _ := action.StringParam("message")
	if title == "" || message == "" {
		return Permanentf("create_notification: title and message params required")
	}
	return e.notifications.Notify(ctx, userID, title, message, notificationData(action, event))
}

func notificationData(action Action, event Event) map[string]interface{} {
	data := map[string]interface{}{
		"eventId":   event.ID,
		"eventType": string(event.Type),
	}
	if v, ok := action.Params["data"]; ok {
		if m, ok := v.AsMap(); ok {
			for k, e := range m {
				data[k] = e.Interface()
			}
		}
	}
	if entityType, entityID := entityRef(action, event); entityID != "" {
		data["entityType"] = entityType
		data["entityId"] = entityID
	}
	return data
}

type updateStatusExecutor struct {
	status StatusGateway
}

func (e *updateStatusExecutor) Kind() ActionKind { return ActionUpdateStatus }

func (e *updateStatusExecutor) Execute(ctx context.Context, action Action, event Event) error {
	status, ok := action.StringParam("status")
	if !ok {
		return Permanentf("update_status: status param required")
	}
	entityType, entityID := entityRef(action, event)
	if entityType == "" || entityID == "" {
		return Permanentf("update_status: no target entity for event %s", event.Type)
	}
	return e.status.UpdateStatus(ctx, entityType, entityID, status)
}

type createDeadlineExecutor struct {
	deadlines DeadlineGateway
}

func (e *createDeadlineExecutor) Kind() ActionKind { return ActionCreateDeadline }

func (e *createDeadlineExecutor) Execute(ctx context.Context, action Action, event Event) error {
	days, ok := action.IntParam("daysFromNow")
	if !ok || days <= 0 {
		return Permanentf("create_deadline: daysFromNow param must be a positive number")
	}
	warningDays, _ := action.IntParam("warningDays")
	entityType, entityID := entityRef(action, event)
	if entityType == "" || entityID == "" {
		return Permanentf("create_deadline: no target entity for event %s", event.Type)
	}
	return e.deadlines.CreateDeadline(ctx, entityType, entityID, days, warningDays)
}

// escalateExecutor notifies every active holder of the escalation role.
// Default role is "manager"; recipients are notified in ascending user id
// order so outcomes stay reproducible.
type escalateExecutor struct {
	notifications NotificationGateway
	assignments   AssignmentGateway
	defaultRole   string
}

func (e *escalateExecutor) Kind() ActionKind { return ActionEscalate }

func (e *escalateExecutor) Execute(ctx context.Context, action Action, event Event) error {
	title, ok := action.StringParam("title")
	if !ok {
		return Permanentf("escalate: title param required")
	}
	role, ok := action.StringParam("role")
	if !ok {
		role = e.defaultRole
	}
	if role == "" {
		role = "manager"
	}
	counts, err := e.assignments.OpenItemCountsByRole(ctx, role)
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		return NoEligibleUser(role)
	}
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	message, _ := action.StringParam("message")
	if message == "" {
		message = "Escalated by automation rule"
	}
	for _, userID := range ids {
		if err := e.notifications.Notify(ctx, userID, title, message, notificationData(action, event)); err != nil {
			return err
		}
	}
	return nil
}

// createTaskExecutor delivers a task through the notification gateway with
// task metadata attached; there is no dedicated task collaborator in the
// external interface set.
type createTaskExecutor struct {
	notifications NotificationGateway
}

func (e *createTaskExecutor) Kind() ActionKind { return ActionCreateTask }

func (e *createTaskExecutor) Execute(ctx context.Context, action Action, event Event) error {
	title, ok := action.StringParam("title")
	if !ok {
		return Permanentf("create_task: title param required")
	}
	userID, ok := action.StringParam("userId")
	if !ok {
		if v, ok2 := event.Payload.Resolve("assignedTo.id"); ok2 {
			userID, _ = v.AsString()
		}
	}
	if userID == "" {
		return Permanentf("create_task: no assignee (userId param or assignedTo.id payload field)")
	}
	description, _ := action.StringParam("description")
	data := notificationData(action, event)
	data["kind"] = "task"
	if description != "" {
		data["description"] = description
	}
	message := description
	if message == "" {
		message = "Task created by automation rule"
	}
	return e.notifications.Notify(ctx, userID, title, message, data)
}

type triggerWebhookExecutor struct {
	webhooks WebhookGateway
	timeout  time.Duration
}

func (e *triggerWebhookExecutor) Kind() ActionKind { return ActionTriggerWebhook }

func (e *triggerWebhookExecutor) Execute(ctx context.Context, action Action, event Event) error {
	url, ok := action.StringParam("url")
	if !ok {
		return Permanentf("trigger_webhook: url param required")
	}
	method, ok := action.StringParam("method")
	if !ok {
		method = "POST"
	}
	headers := map[string]string{"Content-Type": "application/json"}
	if v, ok := action.Params["headers"]; ok {
		if m, ok := v.AsMap(); ok {
			for k, e := range m {
				if s, ok := e.AsString(); ok {
					headers[k] = s
				}
			}
		}
	}

	body := map[string]interface{}{
		"eventId":    event.ID,
		"eventType":  string(event.Type),
		"occurredAt": event.OccurredAt.Format(time.RFC3339),
		"payload":    Map(map[string]Value(event.Payload)).Interface(),
	}
	if v, ok := action.Params["body"]; ok {
		if m, ok := v.AsMap(); ok {
			for k, e := range m {
				body[k] = e.Interface()
			}
		}
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return Permanentf("trigger_webhook: encode body: %v", err)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	if err := e.webhooks.Post(ctx, url, method, headers, encoded); err != nil {
		if KindOf(err) == ErrKindPermanent {
			return err
		}
		return Transient(err)
	}
	return nil
}
