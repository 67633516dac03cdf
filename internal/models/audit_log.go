package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLog records an admin action taken on a security code
type AuditLog struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AdminSubject string    `gorm:"type:varchar(255);not null;index" json:"admin_subject"`
	Action       string    `gorm:"type:varchar(100);not null;index" json:"action"` // e.g. "resend_security_code"
	TargetType   string    `gorm:"type:varchar(50);not null" json:"target_type"`
	TargetID     int64     `gorm:"not null" json:"target_id"`
	Details      string    `gorm:"type:text" json:"details,omitempty"` // JSON
	IPAddress    string    `gorm:"type:varchar(45)" json:"ip_address,omitempty"`
	UserAgent    string    `gorm:"type:text" json:"user_agent,omitempty"`
	CreatedAt    time.Time `gorm:"not null;index" json:"created_at"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
