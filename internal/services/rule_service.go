package services

import (
	"context"
	"encoding/json"
	"fmt"

	"flowdesk/internal/automation"
	"flowdesk/internal/metrics"
	"flowdesk/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RuleService manages automation rule rows and hands immutable rule
// snapshots to the engine. It implements automation.RuleStore.
type RuleService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewRuleService(db *gorm.DB, logger *logrus.Logger) *RuleService {
	if logger == nil {
		logger = logrus.New()
	}
	return &RuleService{db: db, logger: logger}
}

// RuleRequest is the authoring payload for creating or updating a rule.
type RuleRequest struct {
	Name        string                 `json:"name" binding:"required"`
	Description string                 `json:"description"`
	Trigger     string                 `json:"trigger" binding:"required"`
	Priority    *int                   `json:"priority"`
	Active      *bool                  `json:"active"`
	Conditions  []automation.Condition `json:"conditions"`
	Actions     []automation.Action    `json:"actions"`
}

// ActiveRulesForTrigger returns the active rules for a trigger ordered by
// priority ascending, creation order on ties. The result is decoded fresh
// per call; the engine never sees shared mutable state.
func (s *RuleService) ActiveRulesForTrigger(ctx context.Context, trigger automation.TriggerKind) ([]automation.Rule, error) {
	var rows []models.AutomationRule
	if err := s.db.WithContext(ctx).
		Where("trigger = ? AND active = true", string(trigger)).
		Order("priority ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load rules for %s: %w", trigger, err)
	}

	rules := make([]automation.Rule, 0, len(rows))
	for _, row := range rows {
		rule, err := decodeRule(row)
		if err != nil {
			// A malformed row is skipped rather than taking down every
			// event of this trigger; the author sees it in the logs.
			s.logger.Warnf("automation: rule %q has invalid JSON, skipping: %v", row.Name, err)
			continue
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func decodeRule(row models.AutomationRule) (automation.Rule, error) {
	rule := automation.Rule{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		Trigger:     automation.TriggerKind(row.Trigger),
		Priority:    row.Priority,
		IsActive:    row.Active,
	}
	if row.Conditions != "" {
		if err := json.Unmarshal([]byte(row.Conditions), &rule.Conditions); err != nil {
			return automation.Rule{}, fmt.Errorf("conditions: %w", err)
		}
	}
	if row.Actions != "" {
		if err := json.Unmarshal([]byte(row.Actions), &rule.Actions); err != nil {
			return automation.Rule{}, fmt.Errorf("actions: %w", err)
		}
	}
	return rule, nil
}

// ListRules returns all rules, newest first.
func (s *RuleService) ListRules(ctx context.Context) ([]models.AutomationRule, error) {
	var rules []models.AutomationRule
	if err := s.db.WithContext(ctx).Order("id DESC").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// GetRule returns one rule row by id.
func (s *RuleService) GetRule(ctx context.Context, id uint) (*models.AutomationRule, error) {
	var rule models.AutomationRule
	if err := s.db.WithContext(ctx).First(&rule, id).Error; err != nil {
		return nil, fmt.Errorf("rule not found: %w", err)
	}
	return &rule, nil
}

// CreateRule validates and persists a new rule.
func (s *RuleService) CreateRule(ctx context.Context, req *RuleRequest) (*models.AutomationRule, error) {
	if req == nil {
		return nil, fmt.Errorf("request required")
	}
	row, err := s.rowFromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// UpdateRule replaces an existing rule's definition.
func (s *RuleService) UpdateRule(ctx context.Context, id uint, req *RuleRequest) (*models.AutomationRule, error) {
	existing, err := s.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}
	row, err := s.rowFromRequest(req)
	if err != nil {
		return nil, err
	}
	row.ID = existing.ID
	row.CreatedAt = existing.CreatedAt
	if err := s.db.WithContext(ctx).Save(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// DeleteRule removes a rule by id.
func (s *RuleService) DeleteRule(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.AutomationRule{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("rule not found")
	}
	return nil
}

func (s *RuleService) rowFromRequest(req *RuleRequest) (*models.AutomationRule, error) {
	priority := 100
	if req.Priority != nil {
		priority = *req.Priority
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	rule := automation.Rule{
		Name:        req.Name,
		Description: req.Description,
		Trigger:     automation.TriggerKind(req.Trigger),
		Priority:    priority,
		IsActive:    active,
		Conditions:  req.Conditions,
		Actions:     req.Actions,
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	condJSON, err := json.Marshal(req.Conditions)
	if err != nil {
		return nil, fmt.Errorf("invalid conditions: %w", err)
	}
	actJSON, err := json.Marshal(req.Actions)
	if err != nil {
		return nil, fmt.Errorf("invalid actions: %w", err)
	}

	return &models.AutomationRule{
		Name:        req.Name,
		Description: req.Description,
		Trigger:     req.Trigger,
		Priority:    priority,
		Active:      active,
		Conditions:  string(condJSON),
		Actions:     string(actJSON),
	}, nil
}

// RecordOutcome writes one audit row per dispatched rule and feeds the
// automation counters. Recording failures are logged, never propagated.
func (s *RuleService) RecordOutcome(ctx context.Context, outcome automation.EventOutcome) {
	metrics.RecordEvent(len(outcome.RuleOutcomes), outcome.Failed())
	for _, ro := range outcome.RuleOutcomes {
		status := "success"
		var message string
		if ro.Skipped {
			status = "skipped"
			message = "skipped due to cancellation"
		} else {
			failed := 0
			for _, ao := range ro.ActionOutcomes {
				metrics.RecordAction(string(ao.Action.Type), ao.Succeeded)
				if !ao.Succeeded {
					failed++
					if message == "" {
						message = fmt.Sprintf("%s: %s", ao.Action.Type, ao.Message)
					}
				}
			}
			switch {
			case failed == len(ro.ActionOutcomes) && failed > 0:
				status = "failed"
			case failed > 0:
				status = "partial"
			}
		}

		run := &models.AutomationRun{
			RuleID:    ro.Rule.ID,
			EventID:   outcome.Event.ID,
			EventType: string(outcome.Event.Type),
			Status:    status,
			Message:   message,
		}
		if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
			s.logger.Warnf("automation: record run failed: %v", err)
		}
	}
}

// ListRuns returns recent audit rows, optionally filtered by rule.
func (s *RuleService) ListRuns(ctx context.Context, ruleID *uint, limit int) ([]models.AutomationRun, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := s.db.WithContext(ctx).Order("id DESC").Limit(limit)
	if ruleID != nil {
		q = q.Where("rule_id = ?", *ruleID)
	}
	var runs []models.AutomationRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
