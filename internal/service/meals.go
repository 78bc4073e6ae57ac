package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tmacree/healthtext/internal/model"
	"github.com/tmacree/healthtext/internal/models"
)

// MealService owns meal records and the daily totals counter.
type MealService struct {
	db       *gorm.DB
	resolver INutritionResolver
}

// NewMealService creates a new MealService instance
func NewMealService(db *gorm.DB, resolver INutritionResolver) *MealService {
	return &MealService{db: db, resolver: resolver}
}

// MealHash derives the stable meal identity from the inbound event, so
// at-least-once redelivery maps onto the same row. The anchor is the
// transport's delivery identifier (e.g. Twilio's MessageSid), which
// stays stable across redelivery where a receive timestamp would not;
// transports without one fall back to the message timestamp.
func MealHash(userID, day, normalizedText, anchor string, tsMs int64) string {
	if anchor == "" {
		anchor = fmt.Sprintf("%d", tsMs)
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%s", userID, day, normalizedText, anchor)))
	return hex.EncodeToString(sum[:16])
}

// MealResult is what LogMeal hands back for reply formatting.
type MealResult struct {
	Applied   model.Macros
	Items     []model.FoodItem
	Totals    model.Macros
	Duplicate bool
	Preview   bool
}

// LogMeal resolves macros for the text and records the meal. Duplicate
// delivery of the same event is treated as success without reapplying
// the delta. With simulate set it returns a preview and writes nothing.
func (s *MealService) LogMeal(ctx context.Context, userID, day string, tsMs int64, anchor, channel, text string, simulate bool) (*MealResult, error) {
	macros, items, err := s.resolver.Resolve(ctx, userID, text)
	if err != nil {
		return nil, err
	}

	if simulate {
		current, err := s.GetTotals(ctx, userID, day)
		if err != nil {
			return nil, err
		}
		return &MealResult{Applied: macros, Items: items, Totals: current.Add(macros), Preview: true}, nil
	}

	normalized := NormalizeAlias(text)
	meal := models.Meal{
		UserID:         userID,
		Day:            day,
		MealID:         MealHash(userID, day, normalized, anchor, tsMs),
		RawText:        text,
		NormalizedText: normalized,
		Channel:        channel,
		Calories:       macros.Calories,
		ProteinG:       macros.ProteinG,
		CarbsG:         macros.CarbsG,
		FatG:           macros.FatG,
		CreatedMs:      tsMs,
	}

	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "day"}, {Name: "meal_id"}},
		DoNothing: true,
	}).Create(&meal)
	if res.Error != nil {
		return nil, res.Error
	}

	if res.RowsAffected == 0 {
		// Same event delivered again; the delta is already applied.
		log.Printf("[Meals] duplicate meal %s for %s/%s, skipping delta", meal.MealID, userID, day)
		totals, err := s.GetTotals(ctx, userID, day)
		if err != nil {
			return nil, err
		}
		return &MealResult{Applied: macros, Items: items, Totals: totals, Duplicate: true}, nil
	}

	if err := s.applyDelta(ctx, userID, day, macros); err != nil {
		return nil, err
	}
	totals, err := s.GetTotals(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	return &MealResult{Applied: macros, Items: items, Totals: totals}, nil
}

// UndoResult describes the meal removed by UndoLast.
type UndoResult struct {
	Removed model.Macros
	Text    string
	Totals  model.Macros
	Preview bool
}

// UndoLast removes the most recently created meal for the day (by
// creation timestamp, not insertion order) and applies the negative
// delta. Returns ErrNothingToUndo when the day has no meals.
func (s *MealService) UndoLast(ctx context.Context, userID, day string, simulate bool) (*UndoResult, error) {
	var meal models.Meal
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND day = ?", userID, day).
		Order("created_ms DESC").
		First(&meal).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNothingToUndo
		}
		return nil, err
	}

	removed := model.Macros{Calories: meal.Calories, ProteinG: meal.ProteinG, CarbsG: meal.CarbsG, FatG: meal.FatG}

	if simulate {
		current, err := s.GetTotals(ctx, userID, day)
		if err != nil {
			return nil, err
		}
		return &UndoResult{Removed: removed, Text: meal.RawText, Totals: current.Add(removed.Neg()), Preview: true}, nil
	}

	if err := s.applyDelta(ctx, userID, day, removed.Neg()); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Delete(&meal).Error; err != nil {
		return nil, err
	}
	s.audit(ctx, userID, day, models.AuditUndo, fmt.Sprintf("removed %q (%s)", meal.RawText, removed.String()))

	totals, err := s.GetTotals(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	return &UndoResult{Removed: removed, Text: meal.RawText, Totals: totals}, nil
}

// ResetDay zeroes the daily totals absolutely. This is the one
// sanctioned exception to delta-only mutation and is always audited.
func (s *MealService) ResetDay(ctx context.Context, userID, day string, simulate bool) error {
	if simulate {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "day"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"calories":       0,
			"protein_g":      0,
			"carbs_g":        0,
			"fat_g":          0,
			"last_update_at": time.Now(),
		}),
	}).Create(&models.DailyTotal{UserID: userID, Day: day, LastUpdateAt: time.Now()}).Error
	if err != nil {
		return err
	}
	s.audit(ctx, userID, day, models.AuditReset, "daily totals reset to zero")
	return nil
}

// GetTotals returns the day's totals, zero when no row exists.
func (s *MealService) GetTotals(ctx context.Context, userID, day string) (model.Macros, error) {
	var row models.DailyTotal
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND day = ?", userID, day).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return model.Macros{}, nil
		}
		return model.Macros{}, err
	}
	return model.Macros{Calories: row.Calories, ProteinG: row.ProteinG, CarbsG: row.CarbsG, FatG: row.FatG}, nil
}

// MealsForDay lists the day's meals, oldest first.
func (s *MealService) MealsForDay(ctx context.Context, userID, day string) ([]models.Meal, error) {
	var meals []models.Meal
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND day = ?", userID, day).
		Order("created_ms ASC").
		Find(&meals).Error
	return meals, err
}

// applyDelta adds signed macros onto the day's totals row, creating it
// on first touch. Additive and commutative, so any interleaving of
// concurrent deliveries converges to the same sum.
func (s *MealService) applyDelta(ctx context.Context, userID, day string, delta model.Macros) error {
	now := time.Now()
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "day"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"calories":       gorm.Expr("daily_totals.calories + ?", delta.Calories),
			"protein_g":      gorm.Expr("daily_totals.protein_g + ?", delta.ProteinG),
			"carbs_g":        gorm.Expr("daily_totals.carbs_g + ?", delta.CarbsG),
			"fat_g":          gorm.Expr("daily_totals.fat_g + ?", delta.FatG),
			"last_update_at": now,
		}),
	}).Create(&models.DailyTotal{
		UserID:       userID,
		Day:          day,
		Calories:     delta.Calories,
		ProteinG:     delta.ProteinG,
		CarbsG:       delta.CarbsG,
		FatG:         delta.FatG,
		LastUpdateAt: now,
	}).Error
}

func (s *MealService) audit(ctx context.Context, userID, day, kind, detail string) {
	ev := models.AuditEvent{ID: uuid.New(), UserID: userID, Day: day, Kind: kind, Detail: detail}
	if err := s.db.WithContext(ctx).Create(&ev).Error; err != nil {
		log.Printf("[Meals] failed to record %s audit event: %v", kind, err)
	}
}
