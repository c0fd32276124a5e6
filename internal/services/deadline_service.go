package services

import (
	"context"
	"time"

	"flowdesk/internal/automation"
	"flowdesk/internal/models"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// DeadlineService tracks entity deadlines with early-warning thresholds.
// It implements automation.DeadlineGateway and feeds the deadline scanner
// that emits DeadlineApproaching events.
type DeadlineService struct {
	db     *gorm.DB
	logger *logrus.Logger
	tracer trace.Tracer
}

func NewDeadlineService(db *gorm.DB, logger *logrus.Logger) *DeadlineService {
	if logger == nil {
		logger = logrus.New()
	}
	return &DeadlineService{
		db:     db,
		logger: logger,
		tracer: otel.Tracer("flowdesk.deadline"),
	}
}

// CreateDeadline registers a deadline daysFromNow days out. warningDays
// sets how many days before the due date the approach warning fires;
// zero disables the warning.
func (s *DeadlineService) CreateDeadline(ctx context.Context, entityType, entityID string, daysFromNow, warningDays int) error {
	ctx, span := s.tracer.Start(ctx, "deadline.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("deadline.entity_type", entityType),
		attribute.String("deadline.entity_id", entityID),
		attribute.Int("deadline.days_from_now", daysFromNow),
	)

	eid, err := parseID(entityID)
	if err != nil {
		return automation.Permanentf("invalid entity id %q", entityID)
	}
	if daysFromNow <= 0 {
		return automation.Permanentf("daysFromNow must be positive, got %d", daysFromNow)
	}

	dueAt := time.Now().UTC().AddDate(0, 0, daysFromNow)
	deadline := &models.Deadline{
		EntityType: entityType,
		EntityID:   eid,
		DueAt:      dueAt,
	}
	if warningDays > 0 && warningDays < daysFromNow {
		warningAt := dueAt.AddDate(0, 0, -warningDays)
		deadline.WarningAt = &warningAt
	}

	if err := s.db.WithContext(ctx).Create(deadline).Error; err != nil {
		return err
	}
	s.logger.Infof("deadline for %s %d due %s", entityType, eid, dueAt.Format("2006-01-02"))
	return nil
}

// DueForWarning returns uncompleted deadlines whose warning threshold has
// passed and that have not warned yet.
func (s *DeadlineService) DueForWarning(ctx context.Context, now time.Time) ([]models.Deadline, error) {
	var deadlines []models.Deadline
	err := s.db.WithContext(ctx).
		Where("completed = false AND warned = false AND warning_at IS NOT NULL AND warning_at <= ?", now).
		Order("due_at ASC").
		Find(&deadlines).Error
	return deadlines, err
}

// MarkWarned flags a deadline so its approach warning fires once.
func (s *DeadlineService) MarkWarned(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Model(&models.Deadline{}).
		Where("id = ?", id).
		Update("warned", true).Error
}

// Complete closes a deadline.
func (s *DeadlineService) Complete(ctx context.Context, id uint) error {
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Model(&models.Deadline{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"completed": true, "completed_at": now}).Error
}
