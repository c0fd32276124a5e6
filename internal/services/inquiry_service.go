package services

import (
	"context"
	"fmt"
	"time"

	"flowdesk/internal/automation"
	"flowdesk/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// OutcomeRecorder persists the result of processing one event. Satisfied by
// RuleService.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, outcome automation.EventOutcome)
}

// InquiryService owns the inquiry lifecycle and emits automation events for
// each domain transition. Automation failures are logged and recorded but
// never fail the domain operation itself.
type InquiryService struct {
	db           *gorm.DB
	logger       *logrus.Logger
	orchestrator *automation.Orchestrator
	recorder     OutcomeRecorder
}

func NewInquiryService(db *gorm.DB, logger *logrus.Logger, orchestrator *automation.Orchestrator, recorder OutcomeRecorder) *InquiryService {
	if logger == nil {
		logger = logrus.New()
	}
	return &InquiryService{
		db:           db,
		logger:       logger,
		orchestrator: orchestrator,
		recorder:     recorder,
	}
}

type InquiryItemRequest struct {
	Name     string `json:"name" binding:"required"`
	Quantity int    `json:"quantity"`
}

type InquiryRequest struct {
	Number       string               `json:"number" binding:"required"`
	CustomerName string               `json:"customer_name" binding:"required"`
	Description  string               `json:"description"`
	Priority     string               `json:"priority"`
	DueDate      *time.Time           `json:"due_date"`
	Items        []InquiryItemRequest `json:"items"`
}

func (s *InquiryService) CreateInquiry(ctx context.Context, req *InquiryRequest) (*models.Inquiry, error) {
	inquiry := &models.Inquiry{
		Number:       req.Number,
		CustomerName: req.CustomerName,
		Description:  req.Description,
		Priority:     req.Priority,
		DueDate:      req.DueDate,
	}
	if inquiry.Priority == "" {
		inquiry.Priority = "NORMAL"
	}
	for _, item := range req.Items {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		inquiry.Items = append(inquiry.Items, models.InquiryItem{Name: item.Name, Quantity: qty})
	}

	if err := s.db.WithContext(ctx).Create(inquiry).Error; err != nil {
		return nil, fmt.Errorf("create inquiry: %w", err)
	}
	s.logger.Infof("created inquiry %s (%d items)", inquiry.Number, len(inquiry.Items))

	s.emit(ctx, automation.NewEvent(automation.InquiryCreated, automation.Payload{
		"entity.type":      automation.String("inquiry"),
		"entity.id":        automation.String(formatID(inquiry.ID)),
		"inquiry.number":   automation.String(inquiry.Number),
		"inquiry.priority": automation.String(inquiry.Priority),
		"inquiry.status":   automation.String(inquiry.Status),
		"customer.name":    automation.String(inquiry.CustomerName),
	}))
	return inquiry, nil
}

func (s *InquiryService) GetInquiry(ctx context.Context, id uint) (*models.Inquiry, error) {
	var inquiry models.Inquiry
	if err := s.db.WithContext(ctx).Preload("Items").Preload("Assignee").First(&inquiry, id).Error; err != nil {
		return nil, fmt.Errorf("inquiry %d: %w", id, err)
	}
	return &inquiry, nil
}

func (s *InquiryService) ListInquiries(ctx context.Context, status string, limit int) ([]models.Inquiry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := s.db.WithContext(ctx).Preload("Items").Order("id DESC").Limit(limit)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var inquiries []models.Inquiry
	err := q.Find(&inquiries).Error
	return inquiries, err
}

// AssignItem sets the item assignee and emits ItemAssigned.
func (s *InquiryService) AssignItem(ctx context.Context, itemID, userID uint) error {
	var item models.InquiryItem
	if err := s.db.WithContext(ctx).First(&item, itemID).Error; err != nil {
		return fmt.Errorf("inquiry item %d: %w", itemID, err)
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return fmt.Errorf("user %d: %w", userID, err)
	}
	var inquiry models.Inquiry
	if err := s.db.WithContext(ctx).First(&inquiry, item.InquiryID).Error; err != nil {
		return fmt.Errorf("inquiry %d: %w", item.InquiryID, err)
	}

	updates := map[string]interface{}{"assignee_id": userID, "status": "assigned"}
	if err := s.db.WithContext(ctx).Model(&item).Updates(updates).Error; err != nil {
		return fmt.Errorf("assign item %d: %w", itemID, err)
	}
	s.logger.Infof("assigned item %d to user %d", itemID, userID)

	s.emit(ctx, automation.NewEvent(automation.ItemAssigned, automation.Payload{
		"entity.type":      automation.String("inquiry_item"),
		"entity.id":        automation.String(formatID(item.ID)),
		"item.name":        automation.String(item.Name),
		"assignedTo.id":    automation.String(formatID(user.ID)),
		"assignedTo.role":  automation.String(user.Role),
		"inquiry.priority": automation.String(inquiry.Priority),
	}))
	return nil
}

// ChangeStatus transitions the inquiry and emits InquiryStatusChanged.
func (s *InquiryService) ChangeStatus(ctx context.Context, id uint, status string) error {
	var inquiry models.Inquiry
	if err := s.db.WithContext(ctx).First(&inquiry, id).Error; err != nil {
		return fmt.Errorf("inquiry %d: %w", id, err)
	}
	previous := inquiry.Status
	if previous == status {
		return nil
	}

	if err := s.db.WithContext(ctx).Model(&inquiry).Update("status", status).Error; err != nil {
		return fmt.Errorf("update inquiry %d status: %w", id, err)
	}
	history := &models.StatusHistory{
		EntityType: "inquiry",
		EntityID:   id,
		FromStatus: previous,
		ToStatus:   status,
		ChangedBy:  "user",
	}
	if err := s.db.WithContext(ctx).Create(history).Error; err != nil {
		s.logger.Warnf("record status history for inquiry %d: %v", id, err)
	}
	s.logger.Infof("inquiry %d status %s -> %s", id, previous, status)

	s.emit(ctx, automation.NewEvent(automation.InquiryStatusChanged, automation.Payload{
		"entity.type":            automation.String("inquiry"),
		"entity.id":              automation.String(formatID(id)),
		"inquiry.status":         automation.String(status),
		"inquiry.previousStatus": automation.String(previous),
		"inquiry.priority":       automation.String(inquiry.Priority),
	}))
	return nil
}

// RecordCost stores the calculated cost on an item and emits CostCalculated,
// plus ApprovalRequired when the total crosses the approval threshold.
func (s *InquiryService) RecordCost(ctx context.Context, itemID uint, total float64, currency string, approvalThreshold float64) error {
	var item models.InquiryItem
	if err := s.db.WithContext(ctx).First(&item, itemID).Error; err != nil {
		return fmt.Errorf("inquiry item %d: %w", itemID, err)
	}
	if currency == "" {
		currency = "EUR"
	}

	updates := map[string]interface{}{"cost_total": total, "status": "costed"}
	if err := s.db.WithContext(ctx).Model(&item).Updates(updates).Error; err != nil {
		return fmt.Errorf("record cost for item %d: %w", itemID, err)
	}
	s.logger.Infof("item %d costed at %.2f %s", itemID, total, currency)

	s.emit(ctx, automation.NewEvent(automation.CostCalculated, automation.Payload{
		"entity.type":   automation.String("inquiry_item"),
		"entity.id":     automation.String(formatID(item.ID)),
		"cost.total":    automation.Number(total),
		"cost.currency": automation.String(currency),
	}))

	if approvalThreshold > 0 && total > approvalThreshold {
		level := 1
		if total > approvalThreshold*10 {
			level = 2
		}
		s.emit(ctx, automation.NewEvent(automation.ApprovalRequired, automation.Payload{
			"entity.type":    automation.String("inquiry_item"),
			"entity.id":      automation.String(formatID(item.ID)),
			"approval.level": automation.Number(float64(level)),
			"cost.total":     automation.Number(total),
		}))
	}
	return nil
}

// CreateQuote prices an inquiry and emits QuoteCreated.
func (s *InquiryService) CreateQuote(ctx context.Context, inquiryID uint, number string, total float64) (*models.Quote, error) {
	var inquiry models.Inquiry
	if err := s.db.WithContext(ctx).First(&inquiry, inquiryID).Error; err != nil {
		return nil, fmt.Errorf("inquiry %d: %w", inquiryID, err)
	}

	quote := &models.Quote{InquiryID: inquiryID, Number: number, Total: total}
	if err := s.db.WithContext(ctx).Create(quote).Error; err != nil {
		return nil, fmt.Errorf("create quote: %w", err)
	}
	s.logger.Infof("created quote %s for inquiry %d", number, inquiryID)

	s.emit(ctx, automation.NewEvent(automation.QuoteCreated, automation.Payload{
		"entity.type":  automation.String("quote"),
		"entity.id":    automation.String(formatID(quote.ID)),
		"quote.number": automation.String(quote.Number),
		"quote.total":  automation.Number(quote.Total),
	}))
	return quote, nil
}

// CreateProductionOrder opens manufacturing for an accepted quote and emits
// ProductionOrderCreated.
func (s *InquiryService) CreateProductionOrder(ctx context.Context, quoteID uint, number string, dueDate *time.Time) (*models.ProductionOrder, error) {
	var quote models.Quote
	if err := s.db.WithContext(ctx).First(&quote, quoteID).Error; err != nil {
		return nil, fmt.Errorf("quote %d: %w", quoteID, err)
	}

	order := &models.ProductionOrder{QuoteID: quoteID, Number: number, DueDate: dueDate}
	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, fmt.Errorf("create production order: %w", err)
	}
	s.logger.Infof("created production order %s for quote %d", number, quoteID)

	payload := automation.Payload{
		"entity.type":  automation.String("production_order"),
		"entity.id":    automation.String(formatID(order.ID)),
		"order.number": automation.String(order.Number),
	}
	if dueDate != nil {
		payload["order.dueAt"] = automation.Time(*dueDate)
	} else {
		payload["order.dueAt"] = automation.Null()
	}
	s.emit(ctx, automation.NewEvent(automation.ProductionOrderCreated, payload))
	return order, nil
}

// emit runs the automation pipeline for one event. The domain operation has
// already committed; outcome failures surface through the run audit trail.
func (s *InquiryService) emit(ctx context.Context, event automation.Event) {
	if s.orchestrator == nil {
		return
	}
	outcome := s.orchestrator.ProcessEvent(ctx, event)
	if s.recorder != nil {
		s.recorder.RecordOutcome(ctx, outcome)
	}
	if outcome.Failed() {
		s.logger.Warnf("automation for %s event %s failed: %s", event.Type, event.ID, outcome.Message)
	}
}
