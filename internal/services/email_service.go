package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"flowdesk/internal/automation"
	"flowdesk/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// EmailService implements automation.EmailGateway by queueing rendered
// send requests in the outbox table. A separate relay drains the outbox;
// queueing counts as success for automation purposes.
type EmailService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewEmailService(db *gorm.DB, logger *logrus.Logger) *EmailService {
	if logger == nil {
		logger = logrus.New()
	}
	return &EmailService{db: db, logger: logger}
}

func (s *EmailService) Send(ctx context.Context, template string, recipients []string, variables map[string]interface{}) error {
	if template == "" {
		return automation.Permanentf("email template is required")
	}
	if len(recipients) == 0 {
		return automation.Permanentf("email requires at least one recipient")
	}

	vars, err := json.Marshal(variables)
	if err != nil {
		return automation.Permanentf("marshal email variables: %v", err)
	}

	row := &models.EmailOutbox{
		Template:   template,
		Recipients: strings.Join(recipients, ","),
		Variables:  string(vars),
		Status:     "queued",
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("queue email: %w", err)
	}
	s.logger.Infof("queued email template=%s recipients=%d", template, len(recipients))
	return nil
}

// ListOutbox returns queued and recently processed outbox rows, newest first.
func (s *EmailService) ListOutbox(ctx context.Context, limit int) ([]models.EmailOutbox, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []models.EmailOutbox
	err := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
