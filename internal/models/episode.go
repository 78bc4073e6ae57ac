package models

import (
	"time"
)

// Episode kinds.
const (
	EpisodeMigraine = "migraine"
	EpisodeFast     = "fast"
)

// Episode is a bounded start/end interval (a migraine attack or a fast).
// At most one open episode may exist per user per kind; the tracker
// enforces this through its Start/End calls, not a DB constraint.
type Episode struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	EpisodeID string    `gorm:"size:64;not null;uniqueIndex" json:"episode_id"`
	UserID    string    `gorm:"size:64;not null;index:idx_episode_open" json:"user_id"`
	Kind      string    `gorm:"size:20;not null;index:idx_episode_open" json:"kind"`
	Day       string    `gorm:"size:10;not null;index" json:"day"`
	StartMs   int64     `gorm:"not null" json:"start_ms"`
	EndMs     int64     `json:"end_ms"` // 0 while open
	Category  string    `gorm:"size:20" json:"category"` // migraine only: aura, non-aura
	Notes     string    `gorm:"type:text" json:"notes"`
	IsOpen    bool      `gorm:"not null;index:idx_episode_open" json:"is_open"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Episode) TableName() string {
	return "episodes"
}
