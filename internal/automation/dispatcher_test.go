package automation

import (
	"context"
	"reflect"
	"testing"
	"time"
)

func testEvent() Event {
	return NewEvent(ItemAssigned, Payload{
		"entity.type":      String("inquiry_item"),
		"entity.id":        String("42"),
		"item.name":        String("Widget"),
		"assignedTo.id":    String("7"),
		"assignedTo.role":  String("engineer"),
		"inquiry.priority": String("URGENT"),
	})
}

func newTestDispatcher(gw *stubGateways) *Dispatcher {
	return NewDispatcher(DefaultRegistry(gw.gateways(), 5*time.Second), nil)
}

func TestDispatchExecutesInOrder(t *testing.T) {
	gw := newStubGateways()
	gw.counts["engineer"] = map[string]int{"9": 0}
	d := newTestDispatcher(gw)

	rule := Rule{
		Name: "assign then update",
		Actions: []Action{
			{Type: ActionAssignToRole, Params: map[string]Value{
				"role": String("engineer"), "entityType": String("inquiry_item"), "balanceWorkload": Bool(true),
			}},
			{Type: ActionUpdateStatus, Params: map[string]Value{
				"entityType": String("inquiry_item"), "status": String("assigned"),
			}},
		},
	}

	outcomes := d.Dispatch(context.Background(), rule, testEvent())
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	for i, o := range outcomes {
		if !o.Succeeded {
			t.Fatalf("outcome %d failed: %s", i, o.Message)
		}
	}
	if len(gw.assigned) != 1 || gw.assigned[0] != "inquiry_item/42->9" {
		t.Fatalf("assignment not recorded: %v", gw.assigned)
	}
	if len(gw.statusUpdates) != 1 || gw.statusUpdates[0] != "inquiry_item/42=assigned" {
		t.Fatalf("status update not recorded: %v", gw.statusUpdates)
	}
}

func TestDispatchPartialFailureIsolation(t *testing.T) {
	gw := newStubGateways()
	gw.emailErr = errStub
	d := newTestDispatcher(gw)

	rule := Rule{
		Name: "email then notify",
		Actions: []Action{
			{Type: ActionSendEmail, Params: map[string]Value{
				"template": String("welcome"), "recipients": String("ops@example.com"),
			}},
			{Type: ActionCreateNotification, Params: map[string]Value{
				"userId": String("7"), "title": String("hello"), "message": String("world"),
			}},
		},
	}

	outcomes := d.Dispatch(context.Background(), rule, testEvent())
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Succeeded {
		t.Fatal("first action should have failed")
	}
	if !outcomes[1].Succeeded {
		t.Fatalf("second action must still run after a failure, got: %s", outcomes[1].Message)
	}
	if len(gw.notified) != 1 {
		t.Fatalf("notification gateway not invoked: %v", gw.notified)
	}
}

func TestDispatchIdempotentOutcomes(t *testing.T) {
	gw := newStubGateways()
	d := newTestDispatcher(gw)

	rule := Rule{
		Name: "notify twice the same",
		Actions: []Action{
			{Type: ActionCreateNotification, Params: map[string]Value{
				"userId": String("7"), "title": String("t"), "message": String("m"),
			}},
			{Type: ActionUpdateStatus, Params: map[string]Value{
				"entityType": String("inquiry_item"), "status": String("seen"),
			}},
		},
	}

	evt := testEvent()
	first := d.Dispatch(context.Background(), rule, evt)
	second := d.Dispatch(context.Background(), rule, evt)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated dispatch produced different outcomes:\n%v\n%v", first, second)
	}
}

func TestDispatchUnknownActionKind(t *testing.T) {
	gw := newStubGateways()
	d := newTestDispatcher(gw)

	rule := Rule{
		Name:    "bogus",
		Actions: []Action{{Type: ActionKind("explode"), Params: map[string]Value{}}},
	}

	outcomes := d.Dispatch(context.Background(), rule, testEvent())
	if len(outcomes) != 1 || outcomes[0].Succeeded {
		t.Fatalf("expected one failed outcome, got %v", outcomes)
	}
	if outcomes[0].ErrorKind != ErrKindPermanent {
		t.Fatalf("unknown action kind should be permanent, got %s", outcomes[0].ErrorKind)
	}
}
