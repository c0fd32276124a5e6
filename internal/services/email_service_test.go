package services

import (
	"context"
	"testing"

	"flowdesk/internal/automation"

	"github.com/sirupsen/logrus"
)

func TestEmailService_SendQueuesOutboxRow(t *testing.T) {
	db := newTestDB(t)
	svc := NewEmailService(db, logrus.New())

	err := svc.Send(context.Background(), "quote_created", []string{"sales@example.com", "manager@example.com"}, map[string]interface{}{
		"quoteNumber": "Q-42",
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	rows, err := svc.ListOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListOutbox failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 outbox row, got %d", len(rows))
	}
	row := rows[0]
	if row.Template != "quote_created" || row.Status != "queued" {
		t.Fatalf("unexpected row: %+v", row)
	}
	if row.Recipients != "sales@example.com,manager@example.com" {
		t.Fatalf("unexpected recipients: %s", row.Recipients)
	}
}

func TestEmailService_SendValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewEmailService(db, logrus.New())

	err := svc.Send(context.Background(), "", []string{"a@example.com"}, nil)
	if err == nil || automation.KindOf(err) != automation.ErrKindPermanent {
		t.Fatalf("expected permanent error for missing template, got %v", err)
	}

	err = svc.Send(context.Background(), "welcome", nil, nil)
	if err == nil || automation.KindOf(err) != automation.ErrKindPermanent {
		t.Fatalf("expected permanent error for empty recipients, got %v", err)
	}
}
