package handlers

import (
	"net/http"
	"strconv"
	"time"

	"flowdesk/internal/services"

	"github.com/gin-gonic/gin"
)

// InquiryHandler drives the inquiry lifecycle. Every mutating endpoint
// feeds the automation engine through the service layer.
type InquiryHandler struct {
	inquiries     *services.InquiryService
	notifications *services.NotificationService
	status        *services.StatusService

	// cost totals above this require approval
	approvalThreshold float64
}

func NewInquiryHandler(inquiries *services.InquiryService, notifications *services.NotificationService, status *services.StatusService, approvalThreshold float64) *InquiryHandler {
	return &InquiryHandler{
		inquiries:         inquiries,
		notifications:     notifications,
		status:            status,
		approvalThreshold: approvalThreshold,
	}
}

func (h *InquiryHandler) CreateInquiry(c *gin.Context) {
	var req services.InquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	inquiry, err := h.inquiries.CreateInquiry(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to create inquiry", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, inquiry)
}

func (h *InquiryHandler) GetInquiry(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	inquiry, err := h.inquiries.GetInquiry(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Inquiry not found", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, inquiry)
}

func (h *InquiryHandler) ListInquiries(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	inquiries, err := h.inquiries.ListInquiries(c.Request.Context(), c.Query("status"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list inquiries", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, inquiries)
}

type assignItemRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

func (h *InquiryHandler) AssignItem(c *gin.Context) {
	itemID, ok := parseUintParam(c, "itemId")
	if !ok {
		return
	}
	var req assignItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	if err := h.inquiries.AssignItem(c.Request.Context(), itemID, req.UserID); err != nil {
		status := http.StatusBadRequest
		if isNotFound(err) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to assign item", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "assigned"})
}

type changeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *InquiryHandler) ChangeStatus(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	if err := h.inquiries.ChangeStatus(c.Request.Context(), id, req.Status); err != nil {
		status := http.StatusBadRequest
		if isNotFound(err) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to change status", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "status changed"})
}

type recordCostRequest struct {
	Total    float64 `json:"total" binding:"required"`
	Currency string  `json:"currency"`
}

func (h *InquiryHandler) RecordCost(c *gin.Context) {
	itemID, ok := parseUintParam(c, "itemId")
	if !ok {
		return
	}
	var req recordCostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	if err := h.inquiries.RecordCost(c.Request.Context(), itemID, req.Total, req.Currency, h.approvalThreshold); err != nil {
		status := http.StatusBadRequest
		if isNotFound(err) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to record cost", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "cost recorded"})
}

type createQuoteRequest struct {
	Number string  `json:"number" binding:"required"`
	Total  float64 `json:"total" binding:"required"`
}

func (h *InquiryHandler) CreateQuote(c *gin.Context) {
	inquiryID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req createQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	quote, err := h.inquiries.CreateQuote(c.Request.Context(), inquiryID, req.Number, req.Total)
	if err != nil {
		status := http.StatusBadRequest
		if isNotFound(err) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to create quote", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, quote)
}

type createOrderRequest struct {
	Number  string     `json:"number" binding:"required"`
	DueDate *time.Time `json:"due_date"`
}

func (h *InquiryHandler) CreateProductionOrder(c *gin.Context) {
	quoteID, ok := parseUintParam(c, "quoteId")
	if !ok {
		return
	}
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	order, err := h.inquiries.CreateProductionOrder(c.Request.Context(), quoteID, req.Number, req.DueDate)
	if err != nil {
		status := http.StatusBadRequest
		if isNotFound(err) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to create production order", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, order)
}

// ListNotifications returns a user's in-app notifications.
func (h *InquiryHandler) ListNotifications(c *gin.Context) {
	userID, ok := parseUintParam(c, "userId")
	if !ok {
		return
	}
	unreadOnly := c.Query("unread") == "true"
	notifications, err := h.notifications.ListForUser(c.Request.Context(), userID, unreadOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list notifications", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, notifications)
}

func (h *InquiryHandler) MarkNotificationRead(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Failed to mark read", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "read"})
}

// GetStatusHistory returns the transition log of one entity.
func (h *InquiryHandler) GetStatusHistory(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	history, err := h.status.History(c.Request.Context(), c.Param("entityType"), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load history", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, history)
}

// RegisterInquiryRoutes wires the domain API.
func RegisterInquiryRoutes(r *gin.RouterGroup, handler *InquiryHandler) {
	inquiries := r.Group("/inquiries")
	{
		inquiries.GET("", handler.ListInquiries)
		inquiries.POST("", handler.CreateInquiry)
		inquiries.GET("/:id", handler.GetInquiry)
		inquiries.POST("/:id/status", handler.ChangeStatus)
		inquiries.POST("/:id/quotes", handler.CreateQuote)
	}
	items := r.Group("/items")
	{
		items.POST("/:itemId/assign", handler.AssignItem)
		items.POST("/:itemId/cost", handler.RecordCost)
	}
	r.POST("/quotes/:quoteId/orders", handler.CreateProductionOrder)
	r.GET("/users/:userId/notifications", handler.ListNotifications)
	r.POST("/notifications/:id/read", handler.MarkNotificationRead)
	r.GET("/history/:entityType/:id", handler.GetStatusHistory)
}
