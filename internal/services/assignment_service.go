package services

import (
	"context"
	"errors"
	"strconv"

	"flowdesk/internal/automation"
	"flowdesk/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AssignmentService writes assignments and exposes per-role open-item
// counts for the workload balancer. It implements
// automation.AssignmentGateway.
type AssignmentService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewAssignmentService(db *gorm.DB, logger *logrus.Logger) *AssignmentService {
	if logger == nil {
		logger = logrus.New()
	}
	return &AssignmentService{db: db, logger: logger}
}

// Assign sets the assignee on an inquiry or inquiry item. Unknown users
// and entities are permanent failures; retrying cannot make them exist.
func (s *AssignmentService) Assign(ctx context.Context, entityType, entityID, userID string) error {
	uid, err := parseID(userID)
	if err != nil {
		return automation.Permanentf("invalid user id %q", userID)
	}
	eid, err := parseID(entityID)
	if err != nil {
		return automation.Permanentf("invalid entity id %q", entityID)
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("status = 'active'").First(&user, uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return automation.Permanentf("no active user %d", uid)
		}
		return err
	}

	var result *gorm.DB
	switch entityType {
	case "inquiry":
		result = s.db.WithContext(ctx).Model(&models.Inquiry{}).
			Where("id = ?", eid).
			Update("assignee_id", uid)
	case "inquiry_item":
		result = s.db.WithContext(ctx).Model(&models.InquiryItem{}).
			Where("id = ?", eid).
			Updates(map[string]interface{}{"assignee_id": uid, "status": "assigned"})
	default:
		return automation.Permanentf("entity type %q is not assignable", entityType)
	}
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return automation.Permanentf("%s %d not found", entityType, eid)
	}

	s.logger.Infof("assigned %s %d to user %d", entityType, eid, uid)
	return nil
}

// OpenItemCountsByRole returns open-item counts for every active user
// holding role, including users with zero open items. The counts are read
// fresh on every call; the balancer documents the read/write race.
func (s *AssignmentService) OpenItemCountsByRole(ctx context.Context, role string) (map[string]int, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).
		Where("role = ? AND status = 'active'", role).
		Find(&users).Error; err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return map[string]int{}, nil
	}

	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}

	type countRow struct {
		AssigneeID uint
		Count      int
	}
	var rows []countRow
	if err := s.db.WithContext(ctx).Model(&models.InquiryItem{}).
		Select("assignee_id, COUNT(*) as count").
		Where("assignee_id IN ? AND status NOT IN ?", ids, []string{"done"}).
		Group("assignee_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(users))
	for _, u := range users {
		counts[formatID(u.ID)] = 0
	}
	for _, row := range rows {
		counts[formatID(row.AssigneeID)] = row.Count
	}
	return counts, nil
}

func parseID(s string) (uint, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	return uint(n), err
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
