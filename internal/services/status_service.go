package services

import (
	"context"
	"errors"

	"flowdesk/internal/automation"
	"flowdesk/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// StatusService transitions domain entity statuses and records the
// transition history. It implements automation.StatusGateway.
type StatusService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewStatusService(db *gorm.DB, logger *logrus.Logger) *StatusService {
	if logger == nil {
		logger = logrus.New()
	}
	return &StatusService{db: db, logger: logger}
}

// UpdateStatus sets the entity's status and appends a history row.
// Unknown entity types and ids are permanent failures.
func (s *StatusService) UpdateStatus(ctx context.Context, entityType, entityID, status string) error {
	eid, err := parseID(entityID)
	if err != nil {
		return automation.Permanentf("invalid entity id %q", entityID)
	}

	var model interface{}
	switch entityType {
	case "inquiry":
		model = &models.Inquiry{}
	case "inquiry_item":
		model = &models.InquiryItem{}
	case "quote":
		model = &models.Quote{}
	case "production_order":
		model = &models.ProductionOrder{}
	default:
		return automation.Permanentf("unknown entity type %q", entityType)
	}

	previous, err := s.currentStatus(ctx, model, eid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return automation.Permanentf("%s %d not found", entityType, eid)
		}
		return err
	}

	if err := s.db.WithContext(ctx).Model(model).
		Where("id = ?", eid).
		Update("status", status).Error; err != nil {
		return err
	}

	history := &models.StatusHistory{
		EntityType: entityType,
		EntityID:   eid,
		FromStatus: previous,
		ToStatus:   status,
	}
	if err := s.db.WithContext(ctx).Create(history).Error; err != nil {
		// History is advisory; the transition itself already landed.
		s.logger.Warnf("record status history for %s %d failed: %v", entityType, eid, err)
	}

	s.logger.Infof("status of %s %d: %s -> %s", entityType, eid, previous, status)
	return nil
}

func (s *StatusService) currentStatus(ctx context.Context, model interface{}, id uint) (string, error) {
	var row struct{ Status string }
	err := s.db.WithContext(ctx).Model(model).
		Select("status").
		Where("id = ?", id).
		Take(&row).Error
	return row.Status, err
}

// History returns the recorded transitions of one entity, oldest first.
func (s *StatusService) History(ctx context.Context, entityType string, entityID uint) ([]models.StatusHistory, error) {
	var history []models.StatusHistory
	err := s.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("id ASC").
		Find(&history).Error
	return history, err
}
