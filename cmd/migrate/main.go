package main

import (
	"fmt"
	"log"
	"os"

	"flowdesk/internal/config"
	"flowdesk/internal/models"

	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()

	cfg := config.Load()

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		cfg.Database.Host, cfg.Database.User, cfg.Database.Password, cfg.Database.Name, cfg.Database.Port)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Starting database migration...")

	err = db.AutoMigrate(
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
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Println("Database migration completed successfully!")

	log.Println("Creating additional indexes...")

	db.Exec("CREATE INDEX IF NOT EXISTS idx_inquiries_status_created ON inquiries(status, created_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_inquiry_items_assignee_status ON inquiry_items(assignee_id, status)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_notifications_user_read ON notifications(user_id, read_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_deadlines_warning ON deadlines(completed, warned, warning_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_status_history_entity ON status_histories(entity_type, entity_id, created_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_automation_runs_rule_created ON automation_runs(rule_id, created_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_webhook_deliveries_url_created ON webhook_deliveries(url, created_at)")

	log.Println("Additional indexes created successfully!")

	if len(os.Args) > 1 && os.Args[1] == "--seed" {
		log.Println("Seeding default data...")
		seedDefaultData(db)
		log.Println("Default data seeded successfully!")
	}

	log.Println("Migration process completed!")
}

func seedDefaultData(db *gorm.DB) {
	defaults := []models.User{
		{Username: "admin", Email: "admin@flowdesk.local", Name: "Administrator", Role: "admin", Status: "active"},
		{Username: "sales1", Email: "sales1@flowdesk.local", Name: "Sales One", Role: "sales", Status: "active"},
		{Username: "engineer1", Email: "engineer1@flowdesk.local", Name: "Engineer One", Role: "engineer", Status: "active"},
		{Username: "engineer2", Email: "engineer2@flowdesk.local", Name: "Engineer Two", Role: "engineer", Status: "active"},
		{Username: "manager1", Email: "manager1@flowdesk.local", Name: "Manager One", Role: "manager", Status: "active"},
		{Username: "vp1", Email: "vp1@flowdesk.local", Name: "VP One", Role: "vp", Status: "active"},
	}
	for _, u := range defaults {
		var existing models.User
		if err := db.Where("username = ?", u.Username).First(&existing).Error; err != nil {
			user := u
			db.Create(&user)
			log.Printf("Created default user %s (%s)", user.Username, user.Role)
		}
	}
}
