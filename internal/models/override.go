package models

import (
	"time"
)

// FoodOverride maps a user-defined alias to fixed macros, bypassing the
// external nutrition lookup. Alias is stored normalized (trimmed,
// lowercased, whitespace collapsed) and may contain spaces.
type FoodOverride struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    string    `gorm:"size:64;not null;index:idx_override_key,unique" json:"user_id"`
	Alias     string    `gorm:"size:128;not null;index:idx_override_key,unique" json:"alias"`
	Calories  int       `json:"kcal"`
	ProteinG  int       `json:"protein_g"`
	CarbsG    int       `json:"carbs_g"`
	FatG      int       `json:"fat_g"`
	Note      string    `gorm:"size:255" json:"note"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (FoodOverride) TableName() string {
	return "food_overrides"
}
