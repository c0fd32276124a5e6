package services

import (
	"testing"

	"flowdesk/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
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
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username, role string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Name:     username,
		Role:     role,
		Status:   "active",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user %s: %v", username, err)
	}
	return user
}
