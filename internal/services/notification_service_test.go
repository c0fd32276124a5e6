package services

import (
	"context"
	"testing"

	"flowdesk/internal/automation"

	"github.com/sirupsen/logrus"
)

func TestNotificationService_NotifyPersistsRow(t *testing.T) {
	db := newTestDB(t)
	svc := NewNotificationService(db, logrus.New(), nil)

	user := seedUser(t, db, "alice", "engineer")

	err := svc.Notify(context.Background(), formatID(user.ID), "Item assigned", "bracket is yours", map[string]interface{}{
		"entityType": "inquiry_item",
		"entityId":   "7",
	})
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	list, err := svc.ListForUser(context.Background(), user.ID, false)
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(list))
	}
	if list[0].Title != "Item assigned" || list[0].ReadAt != nil {
		t.Fatalf("unexpected notification: %+v", list[0])
	}
}

func TestNotificationService_NotifyUnknownUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewNotificationService(db, logrus.New(), nil)

	err := svc.Notify(context.Background(), "9999", "t", "m", nil)
	if err == nil || automation.KindOf(err) != automation.ErrKindPermanent {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestNotificationService_MarkRead(t *testing.T) {
	db := newTestDB(t)
	svc := NewNotificationService(db, logrus.New(), nil)

	user := seedUser(t, db, "bob", "sales")
	if err := svc.Notify(context.Background(), formatID(user.ID), "t", "m", nil); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	list, err := svc.ListForUser(context.Background(), user.ID, true)
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 unread, got %d", len(list))
	}

	if err := svc.MarkRead(context.Background(), list[0].ID); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}

	unread, err := svc.ListForUser(context.Background(), user.ID, true)
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	if len(unread) != 0 {
		t.Fatalf("expected no unread notifications, got %d", len(unread))
	}
}
