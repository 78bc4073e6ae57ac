package service

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tmacree/healthtext/internal/model"
	"github.com/tmacree/healthtext/internal/models"
)

// listLimit bounds /food list output; aliases beyond it are still
// resolvable, just not listed.
const listLimit = 50

var (
	qtyPrefixRe = regexp.MustCompile(`^(\d+)x\s+(.+)$`)
	qtySuffixRe = regexp.MustCompile(`^(.+?)\s+x(\d+)$`)
	spaceRe     = regexp.MustCompile(`\s+`)
)

// OverrideService manages user-defined alias -> fixed macro mappings.
type OverrideService struct {
	db *gorm.DB
}

// NewOverrideService creates a new OverrideService instance
func NewOverrideService(db *gorm.DB) *OverrideService {
	return &OverrideService{db: db}
}

// NormalizeAlias trims, lowercases and collapses whitespace. Multi-word
// aliases stay multi-word.
func NormalizeAlias(s string) string {
	return spaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

// Set upserts an override keyed by the normalized alias.
func (s *OverrideService) Set(ctx context.Context, userID, alias string, macros model.Macros, note string) (*models.FoodOverride, error) {
	norm := NormalizeAlias(alias)
	if norm == "" {
		return nil, ErrValidation
	}

	row := models.FoodOverride{
		UserID:   userID,
		Alias:    norm,
		Calories: macros.Calories,
		ProteinG: macros.ProteinG,
		CarbsG:   macros.CarbsG,
		FatG:     macros.FatG,
		Note:     note,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "alias"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"calories":   macros.Calories,
			"protein_g":  macros.ProteinG,
			"carbs_g":    macros.CarbsG,
			"fat_g":      macros.FatG,
			"note":       note,
			"updated_at": time.Now(),
		}),
	}).Create(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Delete removes an override by alias.
func (s *OverrideService) Delete(ctx context.Context, userID, alias string) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND alias = ?", userID, NormalizeAlias(alias)).
		Delete(&models.FoodOverride{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOverrideNotFound
	}
	return nil
}

// List returns the most recently updated overrides, newest first.
func (s *OverrideService) List(ctx context.Context, userID string) ([]models.FoodOverride, error) {
	var rows []models.FoodOverride
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Limit(listLimit).
		Find(&rows).Error
	return rows, err
}

// OverrideMatch is a successful alias resolution.
type OverrideMatch struct {
	Alias  string
	Qty    int
	Macros model.Macros
}

// Resolve matches normalized text against the user's aliases: the whole
// phrase, "<qty>x <alias>" or "<alias> x<qty>". Qty defaults to 1 and is
// clamped to >= 1. Returns nil when no alias matches.
func (s *OverrideService) Resolve(ctx context.Context, userID, text string) (*OverrideMatch, error) {
	norm := NormalizeAlias(text)
	if norm == "" {
		return nil, nil
	}

	candidate, qty := norm, 1
	if m := qtyPrefixRe.FindStringSubmatch(norm); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 {
			candidate, qty = m[2], n
		}
	} else if m := qtySuffixRe.FindStringSubmatch(norm); m != nil {
		if n, err := strconv.Atoi(m[2]); err == nil && n >= 1 {
			candidate, qty = m[1], n
		}
	}

	var row models.FoodOverride
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND alias = ?", userID, candidate).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			// Fall back to the full phrase when the qty form missed,
			// e.g. an alias that itself ends in "x2".
			if candidate != norm {
				err = s.db.WithContext(ctx).
					Where("user_id = ? AND alias = ?", userID, norm).
					First(&row).Error
				if err == gorm.ErrRecordNotFound {
					return nil, nil
				}
				if err != nil {
					return nil, err
				}
				qty = 1
			} else {
				return nil, nil
			}
		} else {
			return nil, err
		}
	}

	base := model.Macros{Calories: row.Calories, ProteinG: row.ProteinG, CarbsG: row.CarbsG, FatG: row.FatG}
	return &OverrideMatch{Alias: row.Alias, Qty: qty, Macros: base.Scale(qty)}, nil
}
