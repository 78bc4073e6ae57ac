package models

import (
	"time"
)

// FactsConfig is the per-user daily-fact delivery configuration.
// Singleton per user; LastSentDay is the idempotence guard that keeps
// repeated hourly ticks from sending twice in one day.
type FactsConfig struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	UserID      string    `gorm:"size:64;not null;uniqueIndex" json:"user_id"`
	Enabled     bool      `json:"enabled"`
	Hour        int       `gorm:"not null;check:hour >= 0 AND hour <= 23" json:"hour"`
	Destination string    `gorm:"size:64" json:"destination"` // e.g. "whatsapp:+1555..."
	LastSentDay string    `gorm:"size:10" json:"last_sent_day"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (FactsConfig) TableName() string {
	return "facts_config"
}

// Fact is one entry in the user's fact pool.
type Fact struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    string    `gorm:"size:64;not null;index" json:"user_id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	Tags      string    `gorm:"size:255" json:"tags"` // comma separated
	CreatedAt time.Time `json:"created_at"`
}

func (Fact) TableName() string {
	return "facts"
}
