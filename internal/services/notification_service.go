package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"flowdesk/internal/automation"
	"flowdesk/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// NotificationService persists in-app notifications and pushes them to
// connected clients. It implements automation.NotificationGateway.
type NotificationService struct {
	db     *gorm.DB
	logger *logrus.Logger
	hub    *WebSocketHub
}

// NewNotificationService wires the service; hub may be nil (persist only).
func NewNotificationService(db *gorm.DB, logger *logrus.Logger, hub *WebSocketHub) *NotificationService {
	if logger == nil {
		logger = logrus.New()
	}
	return &NotificationService{db: db, logger: logger, hub: hub}
}

// Notify stores the notification row and pushes it to the user's open
// connections. The push is best effort; the row is the source of truth.
func (s *NotificationService) Notify(ctx context.Context, userID, title, message string, data map[string]interface{}) error {
	uid, err := parseID(userID)
	if err != nil {
		return automation.Permanentf("invalid user id %q", userID)
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return automation.Permanentf("unknown user %d", uid)
		}
		return err
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return automation.Permanentf("encode notification data: %v", err)
	}

	notification := &models.Notification{
		UserID:  uid,
		Title:   title,
		Message: message,
		Data:    string(encoded),
	}
	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		return err
	}

	if s.hub != nil {
		s.hub.SendToUser(userID, WebSocketMessage{
			Type:      "notification",
			Data:      notification,
			Timestamp: time.Now().UTC(),
		})
	}
	return nil
}

// ListForUser returns a user's notifications, newest first.
func (s *NotificationService) ListForUser(ctx context.Context, userID uint, unreadOnly bool) ([]models.Notification, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id DESC")
	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}
	var notifications []models.Notification
	if err := q.Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkRead stamps a notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, id uint) error {
	now := time.Now().UTC()
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND read_at IS NULL", id).
		Update("read_at", now)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("notification not found or already read")
	}
	return nil
}
