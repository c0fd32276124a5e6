package handlers

import (
	"strings"
	"testing"
	"time"

	"flowdesk/internal/automation"
	"flowdesk/internal/models"
	"flowdesk/internal/services"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	db           *gorm.DB
	rules        *services.RuleService
	inquiries    *services.InquiryService
	notify       *services.NotificationService
	status       *services.StatusService
	webhooks     *services.WebhookService
	orchestrator *automation.Orchestrator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := "file:handlers_" + name + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&models.User{},
		&models.Inquiry{},
		&models.InquiryItem{},
		&models.Quote{},
		&models.ProductionOrder{},
		&models.StatusHistory{},
		&models.Notification{},
		&models.Deadline{},
		&models.WebhookDelivery{},
		&models.EmailOutbox{},
		&models.AutomationRule{},
		&models.AutomationRun{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	rules := services.NewRuleService(db, logger)
	notify := services.NewNotificationService(db, logger, nil)
	status := services.NewStatusService(db, logger)
	webhooks := services.NewWebhookService(db, logger, nil)
	gw := automation.Gateways{
		Rules:         rules,
		Assignments:   services.NewAssignmentService(db, logger),
		Notifications: notify,
		Email:         services.NewEmailService(db, logger),
		Status:        status,
		Webhooks:      webhooks,
		Deadlines:     services.NewDeadlineService(db, logger),
	}
	dispatcher := automation.NewDispatcher(automation.DefaultRegistry(gw, 5*time.Second), logger)
	orchestrator := automation.NewOrchestrator(rules, dispatcher, logger, 1)

	return &testEnv{
		db:           db,
		rules:        rules,
		inquiries:    services.NewInquiryService(db, logger, orchestrator, rules),
		notify:       notify,
		status:       status,
		webhooks:     webhooks,
		orchestrator: orchestrator,
	}
}

func (env *testEnv) seedUser(t *testing.T, username, role string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
		Status:   "active",
	}
	if err := env.db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}
