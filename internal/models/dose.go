package models

import (
	"time"
)

// MedDose is one logged medication intake. The table is append-only:
// repeat doses are valid and are never deduplicated.
type MedDose struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	UserID      string    `gorm:"size:64;not null;index:idx_dose_user_day" json:"user_id"`
	Day         string    `gorm:"size:10;not null;index:idx_dose_user_day" json:"day"`
	TsMs        int64     `gorm:"not null;index" json:"ts_ms"`
	Category    string    `gorm:"size:32;not null" json:"category"`
	MatchedName string    `gorm:"size:64" json:"matched_name"`
	DoseText    string    `gorm:"size:32" json:"dose_text"` // e.g. "50mg", empty if not stated
	EpisodeID   string    `gorm:"size:64" json:"episode_id"` // soft link to an open migraine, may be empty
	RawText     string    `gorm:"type:text" json:"raw_text"`
	CreatedAt   time.Time `json:"created_at"`
}

func (MedDose) TableName() string {
	return "med_doses"
}
