package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit event kinds.
const (
	AuditUndo  = "undo"
	AuditReset = "reset"
)

// AuditEvent records the destructive exceptions to the additive data
// model: meal undo and day reset.
type AuditEvent struct {
	ID        uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID    string    `gorm:"size:64;not null;index" json:"user_id"`
	Day       string    `gorm:"size:10;not null" json:"day"`
	Kind      string    `gorm:"size:20;not null" json:"kind"`
	Detail    string    `gorm:"type:text" json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
