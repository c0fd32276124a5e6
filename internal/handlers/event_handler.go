package handlers

import (
	"net/http"

	"flowdesk/internal/automation"
	"flowdesk/internal/services"

	"github.com/gin-gonic/gin"
)

// EventHandler ingests external domain events and runs them through the
// engine synchronously, returning the per-rule outcome. Integrations use
// this to trigger rules for occurrences the server does not own.
type EventHandler struct {
	orchestrator *automation.Orchestrator
	recorder     services.OutcomeRecorder
}

func NewEventHandler(orchestrator *automation.Orchestrator, recorder services.OutcomeRecorder) *EventHandler {
	return &EventHandler{orchestrator: orchestrator, recorder: recorder}
}

type eventRequest struct {
	Type    string                 `json:"type" binding:"required"`
	Payload map[string]interface{} `json:"payload"`
}

type eventResponse struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	ErrorKind string            `json:"error_kind,omitempty"`
	Message   string            `json:"message,omitempty"`
	Rules     []eventRuleResult `json:"rules"`
	Warnings  []string          `json:"warnings,omitempty"`
}

type eventRuleResult struct {
	RuleID   uint                `json:"rule_id"`
	RuleName string              `json:"rule_name"`
	Skipped  bool                `json:"skipped"`
	Actions  []eventActionResult `json:"actions"`
}

type eventActionResult struct {
	Type      string `json:"type"`
	Succeeded bool   `json:"succeeded"`
	ErrorKind string `json:"error_kind,omitempty"`
	Message   string `json:"message,omitempty"`
}

func (h *EventHandler) IngestEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	kind := automation.TriggerKind(req.Type)
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Unknown event type", Message: req.Type})
		return
	}

	payload := automation.Payload{}
	for k, v := range req.Payload {
		payload[k] = automation.ValueOf(v)
	}
	event := automation.NewEvent(kind, payload)

	var warnings []string
	if err := event.ValidatePayload(); err != nil {
		warnings = append(warnings, err.Error())
	}

	outcome := h.orchestrator.ProcessEvent(c.Request.Context(), event)
	if h.recorder != nil {
		h.recorder.RecordOutcome(c.Request.Context(), outcome)
	}

	resp := eventResponse{
		EventID:   event.ID,
		EventType: string(event.Type),
		ErrorKind: string(outcome.ErrorKind),
		Message:   outcome.Message,
		Warnings:  warnings,
		Rules:     make([]eventRuleResult, 0, len(outcome.RuleOutcomes)),
	}
	for _, ro := range outcome.RuleOutcomes {
		result := eventRuleResult{
			RuleID:   ro.Rule.ID,
			RuleName: ro.Rule.Name,
			Skipped:  ro.Skipped,
		}
		for _, ao := range ro.ActionOutcomes {
			result.Actions = append(result.Actions, eventActionResult{
				Type:      string(ao.Action.Type),
				Succeeded: ao.Succeeded,
				ErrorKind: string(ao.ErrorKind),
				Message:   ao.Message,
			})
		}
		resp.Rules = append(resp.Rules, result)
	}

	status := http.StatusOK
	if outcome.Failed() {
		status = http.StatusBadGateway
	}
	c.JSON(status, resp)
}

// RegisterEventRoutes wires the ingest endpoint.
func RegisterEventRoutes(r *gin.RouterGroup, handler *EventHandler) {
	r.POST("/events", handler.IngestEvent)
}
