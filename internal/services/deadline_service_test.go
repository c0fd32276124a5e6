package services

import (
	"context"
	"testing"
	"time"

	"flowdesk/internal/automation"
	"flowdesk/internal/models"

	"github.com/sirupsen/logrus"
)

func TestDeadlineService_CreateDeadline(t *testing.T) {
	db := newTestDB(t)
	svc := NewDeadlineService(db, logrus.New())

	if err := svc.CreateDeadline(context.Background(), "inquiry", "1", 14, 3); err != nil {
		t.Fatalf("CreateDeadline failed: %v", err)
	}

	var deadline models.Deadline
	if err := db.First(&deadline).Error; err != nil {
		t.Fatalf("failed to load deadline: %v", err)
	}
	if deadline.EntityType != "inquiry" || deadline.EntityID != 1 {
		t.Fatalf("unexpected entity ref: %+v", deadline)
	}
	if deadline.WarningAt == nil {
		t.Fatal("expected warning threshold to be set")
	}
	gap := deadline.DueAt.Sub(*deadline.WarningAt)
	if gap != 72*time.Hour {
		t.Fatalf("expected warning 3 days before due, got %s", gap)
	}
}

func TestDeadlineService_CreateDeadlineInvalidInput(t *testing.T) {
	db := newTestDB(t)
	svc := NewDeadlineService(db, logrus.New())

	err := svc.CreateDeadline(context.Background(), "inquiry", "abc", 5, 1)
	if err == nil || automation.KindOf(err) != automation.ErrKindPermanent {
		t.Fatalf("expected permanent error for bad id, got %v", err)
	}

	err = svc.CreateDeadline(context.Background(), "inquiry", "1", 0, 1)
	if err == nil || automation.KindOf(err) != automation.ErrKindPermanent {
		t.Fatalf("expected permanent error for zero days, got %v", err)
	}
}

func TestDeadlineService_DueForWarningAndMarkWarned(t *testing.T) {
	db := newTestDB(t)
	svc := NewDeadlineService(db, logrus.New())

	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(48 * time.Hour)
	rows := []models.Deadline{
		{EntityType: "inquiry", EntityID: 1, DueAt: now.Add(24 * time.Hour), WarningAt: &past},
		{EntityType: "inquiry", EntityID: 2, DueAt: now.Add(72 * time.Hour), WarningAt: &future},
		{EntityType: "inquiry", EntityID: 3, DueAt: now.Add(24 * time.Hour), WarningAt: &past, Warned: true},
	}
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("failed to seed deadline: %v", err)
		}
	}

	due, err := svc.DueForWarning(context.Background(), now)
	if err != nil {
		t.Fatalf("DueForWarning failed: %v", err)
	}
	if len(due) != 1 || due[0].EntityID != 1 {
		t.Fatalf("expected only the unwarned past-threshold deadline, got %+v", due)
	}

	if err := svc.MarkWarned(context.Background(), due[0].ID); err != nil {
		t.Fatalf("MarkWarned failed: %v", err)
	}
	again, err := svc.DueForWarning(context.Background(), now)
	if err != nil {
		t.Fatalf("DueForWarning failed: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected no deadlines after warning, got %d", len(again))
	}
}

func TestDeadlineService_Complete(t *testing.T) {
	db := newTestDB(t)
	svc := NewDeadlineService(db, logrus.New())

	row := &models.Deadline{EntityType: "quote", EntityID: 5, DueAt: time.Now().UTC().Add(time.Hour)}
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("failed to seed deadline: %v", err)
	}

	if err := svc.Complete(context.Background(), row.ID); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	var got models.Deadline
	if err := db.First(&got, row.ID).Error; err != nil {
		t.Fatalf("failed to reload deadline: %v", err)
	}
	if !got.Completed || got.CompletedAt == nil {
		t.Fatalf("expected completed deadline, got %+v", got)
	}
}
