package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"flowdesk/internal/automation"
	"flowdesk/internal/metrics"
	"flowdesk/internal/services"

	"github.com/gin-gonic/gin"
)

// AutomationHandler exposes rule authoring, the run audit trail and engine
// counters. Conditions and actions come in as JSON and are validated before
// a rule row is written.
type AutomationHandler struct {
	rules   *services.RuleService
	webhook *services.WebhookService
}

func NewAutomationHandler(rules *services.RuleService, webhook *services.WebhookService) *AutomationHandler {
	return &AutomationHandler{rules: rules, webhook: webhook}
}

func (h *AutomationHandler) ListRules(c *gin.Context) {
	rules, err := h.rules.ListRules(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list rules", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, rules)
}

func (h *AutomationHandler) GetRule(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	rule, err := h.rules.GetRule(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Rule not found", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (h *AutomationHandler) CreateRule(c *gin.Context) {
	var req services.RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	rule, err := h.rules.CreateRule(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to create rule", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, rule)
}

func (h *AutomationHandler) UpdateRule(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req services.RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	rule, err := h.rules.UpdateRule(c.Request.Context(), id, &req)
	if err != nil {
		status := http.StatusBadRequest
		if isNotFound(err) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to update rule", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (h *AutomationHandler) DeleteRule(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.rules.DeleteRule(c.Request.Context(), id); err != nil {
		status := http.StatusInternalServerError
		if isNotFound(err) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to delete rule", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

// ListRuns returns the run audit trail, optionally scoped to one rule.
func (h *AutomationHandler) ListRuns(c *gin.Context) {
	var ruleID *uint
	if raw := c.Query("rule_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid rule_id", Message: err.Error()})
			return
		}
		v := uint(id)
		ruleID = &v
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	runs, err := h.rules.ListRuns(c.Request.Context(), ruleID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list runs", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, runs)
}

// GetStats reports engine counters plus the webhook breaker state.
func (h *AutomationHandler) GetStats(c *gin.Context) {
	stats := gin.H{"automation": metrics.Snapshot()}
	if h.webhook != nil {
		stats["webhook_breaker"] = h.webhook.BreakerStats()
	}
	c.JSON(http.StatusOK, stats)
}

// GetVocabulary lists the trigger kinds, operators and action kinds the
// engine understands, for rule authoring UIs.
func (h *AutomationHandler) GetVocabulary(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"triggers": automation.TriggerKinds(),
		"operators": []automation.Operator{
			automation.OpEquals, automation.OpNotEquals, automation.OpContains,
			automation.OpGreaterThan, automation.OpLessThan, automation.OpIn, automation.OpNotIn,
		},
		"actions": []automation.ActionKind{
			automation.ActionAssignToUser, automation.ActionAssignToRole,
			automation.ActionSendEmail, automation.ActionCreateNotification,
			automation.ActionUpdateStatus, automation.ActionCreateDeadline,
			automation.ActionEscalate, automation.ActionCreateTask,
			automation.ActionTriggerWebhook,
		},
	})
}

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid id", Message: err.Error()})
		return 0, false
	}
	return uint(id), true
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not found")
}

// RegisterAutomationRoutes wires the rule admin API.
func RegisterAutomationRoutes(r *gin.RouterGroup, handler *AutomationHandler) {
	rules := r.Group("/automation")
	{
		rules.GET("/rules", handler.ListRules)
		rules.POST("/rules", handler.CreateRule)
		rules.GET("/rules/:id", handler.GetRule)
		rules.PUT("/rules/:id", handler.UpdateRule)
		rules.DELETE("/rules/:id", handler.DeleteRule)
		rules.GET("/runs", handler.ListRuns)
		rules.GET("/stats", handler.GetStats)
		rules.GET("/vocabulary", handler.GetVocabulary)
	}
}
