package models

import (
	"time"

	"gorm.io/gorm"
)

// User is an account that can author inquiries, hold a role and receive
// assignments.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"unique;not null" json:"username"`
	Email     string         `gorm:"unique;not null" json:"email"`
	Name      string         `json:"name"`
	Role      string         `gorm:"default:'sales';index" json:"role"` // sales, engineer, manager, vp, admin
	Status    string         `gorm:"default:'active'" json:"status"`    // active, inactive
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Inquiry is a customer request for quotation.
type Inquiry struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Number       string         `gorm:"unique;not null" json:"number"`
	CustomerName string         `gorm:"not null" json:"customer_name"`
	Description  string         `gorm:"type:text" json:"description"`
	Priority     string         `gorm:"default:'NORMAL'" json:"priority"` // LOW, NORMAL, HIGH, URGENT
	Status       string         `gorm:"default:'open'" json:"status"`     // open, in_progress, quoted, won, lost
	AssigneeID   *uint          `gorm:"index" json:"assignee_id"`
	DueDate      *time.Time     `json:"due_date"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	Assignee *User         `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	Items    []InquiryItem `gorm:"foreignKey:InquiryID" json:"items,omitempty"`
}

// InquiryItem is a single position inside an inquiry; items are costed and
// assigned individually.
type InquiryItem struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	InquiryID  uint       `gorm:"index" json:"inquiry_id"`
	Name       string     `gorm:"not null" json:"name"`
	Quantity   int        `gorm:"default:1" json:"quantity"`
	Status     string     `gorm:"default:'open'" json:"status"` // open, assigned, costed, done
	AssigneeID *uint      `gorm:"index" json:"assignee_id"`
	CostTotal  *float64   `json:"cost_total"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	Assignee *User `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
}

// Quote is a priced offer generated from an inquiry.
type Quote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	InquiryID uint      `gorm:"index" json:"inquiry_id"`
	Number    string    `gorm:"unique;not null" json:"number"`
	Total     float64   `json:"total"`
	Currency  string    `gorm:"default:'EUR'" json:"currency"`
	Status    string    `gorm:"default:'draft'" json:"status"` // draft, sent, accepted, rejected
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductionOrder tracks manufacturing of an accepted quote.
type ProductionOrder struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	QuoteID   uint       `gorm:"index" json:"quote_id"`
	Number    string     `gorm:"unique;not null" json:"number"`
	Status    string     `gorm:"default:'created'" json:"status"` // created, running, done
	DueDate   *time.Time `json:"due_date"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// StatusHistory records entity status transitions, including those made by
// automation rules.
type StatusHistory struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	EntityType string    `gorm:"index:idx_status_entity" json:"entity_type"`
	EntityID   uint      `gorm:"index:idx_status_entity" json:"entity_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ChangedBy  string    `gorm:"default:'automation'" json:"changed_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// Notification is an in-app message delivered to a user.
type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index" json:"user_id"`
	Title     string     `gorm:"not null" json:"title"`
	Message   string     `gorm:"type:text" json:"message"`
	Data      string     `gorm:"type:text" json:"data"` // JSON blob with entity refs
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// Deadline is a tracked due date with an early-warning threshold.
type Deadline struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	EntityType  string     `gorm:"index:idx_deadline_entity" json:"entity_type"`
	EntityID    uint       `gorm:"index:idx_deadline_entity" json:"entity_id"`
	DueAt       time.Time  `gorm:"index" json:"due_at"`
	WarningAt   *time.Time `json:"warning_at"`
	Warned      bool       `gorm:"default:false" json:"warned"`
	Completed   bool       `gorm:"default:false" json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// WebhookDelivery audits outbound webhook calls.
type WebhookDelivery struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DeliveryID string    `gorm:"unique;not null" json:"delivery_id"`
	URL        string    `gorm:"not null" json:"url"`
	Method     string    `gorm:"default:'POST'" json:"method"`
	StatusCode int       `json:"status_code"`
	Success    bool      `json:"success"`
	Error      string    `gorm:"type:text" json:"error"`
	CreatedAt  time.Time `json:"created_at"`
}

// EmailOutbox holds rendered-send requests handed to the mail collaborator.
type EmailOutbox struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Template   string    `gorm:"not null" json:"template"`
	Recipients string    `gorm:"type:text;not null" json:"recipients"` // comma separated
	Variables  string    `gorm:"type:text" json:"variables"`           // JSON blob
	Status     string    `gorm:"default:'queued'" json:"status"`       // queued, sent, failed
	CreatedAt  time.Time `json:"created_at"`
}
