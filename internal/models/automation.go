package models

import "time"

// AutomationRule is the persisted form of a rule; conditions and actions
// are stored as JSON blobs authored through the rule admin API.
type AutomationRule struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"unique;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Trigger     string    `gorm:"not null;index" json:"trigger"`
	Priority    int       `gorm:"default:100;index" json:"priority"` // 0..999, lower fires first
	Active      bool      `gorm:"default:true" json:"active"`
	Conditions  string    `gorm:"type:text" json:"conditions"` // JSON: [{field,operator,value,logic}]
	Actions     string    `gorm:"type:text" json:"actions"`    // JSON: [{type,params}]
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AutomationRun is an audit record of one rule firing for one event.
type AutomationRun struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	RuleID    uint           `gorm:"index" json:"rule_id"`
	EventID   string         `gorm:"index" json:"event_id"`
	EventType string         `gorm:"index" json:"event_type"`
	Status    string         `gorm:"index" json:"status"` // success, partial, failed, skipped
	Message   string         `gorm:"type:text" json:"message"`
	CreatedAt time.Time      `json:"created_at"`
	Rule      AutomationRule `gorm:"foreignKey:RuleID" json:"rule,omitempty"`
}
