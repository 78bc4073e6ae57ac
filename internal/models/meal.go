package models

import (
	"time"
)

// Meal is a single logged meal. MealID is a stable hash of
// (user, day, normalized text, timestamp), so redelivery of the same
// inbound message maps onto the same row.
type Meal struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	UserID         string    `gorm:"size:64;not null;index:idx_meal_key,unique" json:"user_id"`
	Day            string    `gorm:"size:10;not null;index:idx_meal_key,unique;index:idx_meal_day" json:"day"`
	MealID         string    `gorm:"size:64;not null;index:idx_meal_key,unique" json:"meal_id"`
	RawText        string    `gorm:"type:text;not null" json:"raw_text"`
	NormalizedText string    `gorm:"type:text;not null" json:"normalized_text"`
	Channel        string    `gorm:"size:20" json:"channel"` // sms, whatsapp, cli
	Calories       int       `json:"kcal"`
	ProteinG       int       `json:"protein_g"`
	CarbsG         int       `json:"carbs_g"`
	FatG           int       `json:"fat_g"`
	CreatedMs      int64     `gorm:"not null" json:"created_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Meal) TableName() string {
	return "meals"
}

// DailyTotal is the running additive counter for one user-day. Rows are
// mutated only through signed deltas, except for the explicit reset path.
type DailyTotal struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	UserID       string    `gorm:"size:64;not null;index:idx_total_key,unique" json:"user_id"`
	Day          string    `gorm:"size:10;not null;index:idx_total_key,unique" json:"day"`
	Calories     int       `json:"kcal"`
	ProteinG     int       `json:"protein_g"`
	CarbsG       int       `json:"carbs_g"`
	FatG         int       `json:"fat_g"`
	LastUpdateAt time.Time `json:"last_update_at"`
}

func (DailyTotal) TableName() string {
	return "daily_totals"
}
