package services

import (
	"context"
	"testing"
	"time"

	"flowdesk/internal/automation"
	"flowdesk/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// newAutomationStack wires the full pipeline over one test database:
// rule store, real gateways, registry, dispatcher and orchestrator.
func newAutomationStack(t *testing.T, db *gorm.DB) (*InquiryService, *RuleService) {
	t.Helper()
	logger := logrus.New()
	rules := NewRuleService(db, logger)
	gw := automation.Gateways{
		Rules:         rules,
		Assignments:   NewAssignmentService(db, logger),
		Notifications: NewNotificationService(db, logger, nil),
		Email:         NewEmailService(db, logger),
		Status:        NewStatusService(db, logger),
		Webhooks:      NewWebhookService(db, logger, nil),
		Deadlines:     NewDeadlineService(db, logger),
	}
	registry := automation.DefaultRegistry(gw, 5*time.Second)
	dispatcher := automation.NewDispatcher(registry, logger)
	orchestrator := automation.NewOrchestrator(rules, dispatcher, logger, 1)
	return NewInquiryService(db, logger, orchestrator, rules), rules
}

func TestInquiryService_CreateInquiryTriggersAutomation(t *testing.T) {
	db := newTestDB(t)
	svc, rules := newAutomationStack(t, db)

	manager := seedUser(t, db, "mallory", "manager")

	_, err := rules.CreateRule(context.Background(), &RuleRequest{
		Name:    "notify manager on urgent inquiry",
		Trigger: "inquiry_created",
		Conditions: []automation.Condition{
			{Field: "inquiry.priority", Op: automation.OpEquals, Value: automation.String("URGENT")},
		},
		Actions: []automation.Action{
			{Type: automation.ActionCreateNotification, Params: map[string]automation.Value{
				"userId":  automation.String(formatID(manager.ID)),
				"title":   automation.String("Urgent inquiry"),
				"message": automation.String("A new urgent inquiry arrived"),
			}},
		},
	})
	if err != nil {
		t.Fatalf("CreateRule failed: %v", err)
	}

	inquiry, err := svc.CreateInquiry(context.Background(), &InquiryRequest{
		Number:       "INQ-100",
		CustomerName: "Acme",
		Priority:     "URGENT",
	})
	if err != nil {
		t.Fatalf("CreateInquiry failed: %v", err)
	}
	if inquiry.ID == 0 {
		t.Fatal("expected persisted inquiry")
	}

	var notifications []models.Notification
	if err := db.Where("user_id = ?", manager.ID).Find(&notifications).Error; err != nil {
		t.Fatalf("failed to load notifications: %v", err)
	}
	if len(notifications) != 1 || notifications[0].Title != "Urgent inquiry" {
		t.Fatalf("expected 1 manager notification, got %+v", notifications)
	}

	runs, err := rules.ListRuns(context.Background(), nil, 10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != "success" {
		t.Fatalf("expected one successful run, got %+v", runs)
	}
}

func TestInquiryService_CreateInquirySurvivesAutomationFailure(t *testing.T) {
	db := newTestDB(t)
	svc, rules := newAutomationStack(t, db)

	// rule notifies a user that does not exist; action fails permanently
	_, err := rules.CreateRule(context.Background(), &RuleRequest{
		Name:    "notify ghost",
		Trigger: "inquiry_created",
		Actions: []automation.Action{
			{Type: automation.ActionCreateNotification, Params: map[string]automation.Value{
				"userId":  automation.String("9999"),
				"title":   automation.String("t"),
				"message": automation.String("m"),
			}},
		},
	})
	if err != nil {
		t.Fatalf("CreateRule failed: %v", err)
	}

	inquiry, err := svc.CreateInquiry(context.Background(), &InquiryRequest{
		Number:       "INQ-101",
		CustomerName: "Acme",
	})
	if err != nil {
		t.Fatalf("domain operation must not fail on automation errors: %v", err)
	}
	if inquiry.ID == 0 {
		t.Fatal("expected persisted inquiry")
	}

	runs, err := rules.ListRuns(context.Background(), nil, 10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != "failed" {
		t.Fatalf("expected one failed run, got %+v", runs)
	}
}

func TestInquiryService_AssignItemBalancesWorkload(t *testing.T) {
	db := newTestDB(t)
	svc, rules := newAutomationStack(t, db)

	busy := seedUser(t, db, "busy", "engineer")
	idle := seedUser(t, db, "idle", "engineer")

	inquiry, err := svc.CreateInquiry(context.Background(), &InquiryRequest{
		Number:       "INQ-102",
		CustomerName: "Acme",
		Items:        []InquiryItemRequest{{Name: "bracket"}, {Name: "plate"}, {Name: "bolt"}},
	})
	if err != nil {
		t.Fatalf("CreateInquiry failed: %v", err)
	}

	// load up the first engineer manually
	for _, item := range inquiry.Items[:2] {
		if err := db.Model(&models.InquiryItem{}).Where("id = ?", item.ID).
			Updates(map[string]interface{}{"assignee_id": busy.ID, "status": "assigned"}).Error; err != nil {
			t.Fatalf("failed to preload items: %v", err)
		}
	}

	// on status change, balance the remaining item across engineers
	_, err = rules.CreateRule(context.Background(), &RuleRequest{
		Name:    "balance engineer load",
		Trigger: "inquiry_status_changed",
		Conditions: []automation.Condition{
			{Field: "inquiry.status", Op: automation.OpEquals, Value: automation.String("in_progress")},
		},
		Actions: []automation.Action{
			{Type: automation.ActionAssignToRole, Params: map[string]automation.Value{
				"role":            automation.String("engineer"),
				"entityType":      automation.String("inquiry"),
				"balanceWorkload": automation.Bool(true),
			}},
		},
	})
	if err != nil {
		t.Fatalf("CreateRule failed: %v", err)
	}

	if err := svc.ChangeStatus(context.Background(), inquiry.ID, "in_progress"); err != nil {
		t.Fatalf("ChangeStatus failed: %v", err)
	}

	var got models.Inquiry
	if err := db.First(&got, inquiry.ID).Error; err != nil {
		t.Fatalf("failed to reload inquiry: %v", err)
	}
	if got.AssigneeID == nil || *got.AssigneeID != idle.ID {
		t.Fatalf("expected least-loaded engineer %d, got %v", idle.ID, got.AssigneeID)
	}
}

func TestInquiryService_RecordCostEmitsApprovalAboveThreshold(t *testing.T) {
	db := newTestDB(t)
	svc, rules := newAutomationStack(t, db)

	approver := seedUser(t, db, "vera", "vp")

	_, err := rules.CreateRule(context.Background(), &RuleRequest{
		Name:    "notify vp on approval",
		Trigger: "approval_required",
		Actions: []automation.Action{
			{Type: automation.ActionCreateNotification, Params: map[string]automation.Value{
				"userId":  automation.String(formatID(approver.ID)),
				"title":   automation.String("Approval needed"),
				"message": automation.String("A cost crossed the approval threshold"),
			}},
		},
	})
	if err != nil {
		t.Fatalf("CreateRule failed: %v", err)
	}

	inquiry, err := svc.CreateInquiry(context.Background(), &InquiryRequest{
		Number:       "INQ-103",
		CustomerName: "Acme",
		Items:        []InquiryItemRequest{{Name: "casting"}},
	})
	if err != nil {
		t.Fatalf("CreateInquiry failed: %v", err)
	}
	item := inquiry.Items[0]

	// below threshold: no approval event
	if err := svc.RecordCost(context.Background(), item.ID, 500, "EUR", 1000); err != nil {
		t.Fatalf("RecordCost failed: %v", err)
	}
	var count int64
	if err := db.Model(&models.Notification{}).Where("user_id = ?", approver.ID).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no approval notification below threshold, got %d", count)
	}

	// above threshold
	if err := svc.RecordCost(context.Background(), item.ID, 5000, "EUR", 1000); err != nil {
		t.Fatalf("RecordCost failed: %v", err)
	}
	if err := db.Model(&models.Notification{}).Where("user_id = ?", approver.ID).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 approval notification, got %d", count)
	}
}

func TestInquiryService_ChangeStatusNoopOnSameStatus(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newAutomationStack(t, db)

	inquiry, err := svc.CreateInquiry(context.Background(), &InquiryRequest{
		Number:       "INQ-104",
		CustomerName: "Acme",
	})
	if err != nil {
		t.Fatalf("CreateInquiry failed: %v", err)
	}

	if err := svc.ChangeStatus(context.Background(), inquiry.ID, "open"); err != nil {
		t.Fatalf("ChangeStatus failed: %v", err)
	}
	var count int64
	if err := db.Model(&models.StatusHistory{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no history for no-op transition, got %d", count)
	}
}
