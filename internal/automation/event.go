package automation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TriggerKind identifies the kind of domain occurrence a rule reacts to.
type TriggerKind string

const (
	InquiryCreated         TriggerKind = "inquiry_created"
	InquiryStatusChanged   TriggerKind = "inquiry_status_changed"
	ItemAssigned           TriggerKind = "item_assigned"
	CostCalculated         TriggerKind = "cost_calculated"
	ApprovalRequired       TriggerKind = "approval_required"
	QuoteCreated           TriggerKind = "quote_created"
	DeadlineApproaching    TriggerKind = "deadline_approaching"
	WorkloadThreshold      TriggerKind = "workload_threshold"
	ProductionOrderCreated TriggerKind = "production_order_created"
)

// TriggerKinds lists all supported kinds in declaration order.
func TriggerKinds() []TriggerKind {
	return []TriggerKind{
		InquiryCreated, InquiryStatusChanged, ItemAssigned, CostCalculated,
		ApprovalRequired, QuoteCreated, DeadlineApproaching, WorkloadThreshold,
		ProductionOrderCreated,
	}
}

func (k TriggerKind) Valid() bool {
	switch k {
	case InquiryCreated, InquiryStatusChanged, ItemAssigned, CostCalculated,
		ApprovalRequired, QuoteCreated, DeadlineApproaching, WorkloadThreshold,
		ProductionOrderCreated:
		return true
	}
	return false
}

// guaranteedPaths lists the payload paths each trigger kind promises to carry.
// Used by rule validation to warn about conditions over absent fields; never
// enforced at evaluation time.
var guaranteedPaths = map[TriggerKind][]string{
	InquiryCreated:         {"entity.type", "entity.id", "inquiry.priority", "inquiry.status", "customer.name"},
	InquiryStatusChanged:   {"entity.type", "entity.id", "inquiry.status", "inquiry.previousStatus"},
	ItemAssigned:           {"entity.type", "entity.id", "item.name", "assignedTo.id", "assignedTo.role", "inquiry.priority"},
	CostCalculated:         {"entity.type", "entity.id", "cost.total", "cost.currency"},
	ApprovalRequired:       {"entity.type", "entity.id", "approval.level", "cost.total"},
	QuoteCreated:           {"entity.type", "entity.id", "quote.number", "quote.total"},
	DeadlineApproaching:    {"entity.type", "entity.id", "deadline.dueAt", "deadline.daysLeft"},
	WorkloadThreshold:      {"entity.type", "entity.id", "workload.role", "workload.openItems"},
	ProductionOrderCreated: {"entity.type", "entity.id", "order.number", "order.dueAt"},
}

// GuaranteedPaths returns the payload paths declared for the trigger kind.
func (k TriggerKind) GuaranteedPaths() []string {
	return guaranteedPaths[k]
}

// Payload holds the structured data describing what happened. Keys may be
// plain dotted paths (the common flat form) or nested maps; Resolve accepts
// either.
type Payload map[string]Value

// Resolve looks up a dotted path. A flat key wins over tree descent so that
// callers emitting "inquiry.priority" directly do not need nesting.
func (p Payload) Resolve(path string) (Value, bool) {
	if v, ok := p[path]; ok {
		return v, true
	}
	parts := strings.Split(path, ".")
	v, ok := p[parts[0]]
	if !ok {
		return Value{}, false
	}
	for _, part := range parts[1:] {
		m, ok := v.AsMap()
		if !ok {
			return Value{}, false
		}
		v, ok = m[part]
		if !ok {
			return Value{}, false
		}
	}
	return v, true
}

// Event is the canonical, immutable representation of a domain occurrence.
type Event struct {
	ID         string
	Type       TriggerKind
	OccurredAt time.Time
	Payload    Payload
}

// NewEvent stamps an id and timestamp onto a payload.
func NewEvent(kind TriggerKind, payload Payload) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       kind,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// ValidatePayload reports the declared paths missing from the event payload.
// Advisory only; evaluation treats missing paths as non-matching.
func (e Event) ValidatePayload() error {
	var missing []string
	for _, path := range e.Type.GuaranteedPaths() {
		if _, ok := e.Payload.Resolve(path); !ok {
			missing = append(missing, path)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("event %s missing declared payload paths: %s", e.Type, strings.Join(missing, ", "))
	}
	return nil
}
