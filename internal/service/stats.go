package service

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tmacree/healthtext/internal/model"
	"github.com/tmacree/healthtext/internal/models"
)

const dayLayout = "2006-01-02"

// Goals are the configured calorie ceiling and protein floor.
type Goals struct {
	CaloriesMax int
	ProteinMin  int
}

// StatsService answers range summaries over daily totals.
type StatsService struct {
	db       *gorm.DB
	resolver INutritionResolver
	goals    Goals
	loc      *time.Location
}

// NewStatsService creates a new StatsService instance
func NewStatsService(db *gorm.DB, resolver INutritionResolver, goals Goals, loc *time.Location) *StatsService {
	return &StatsService{db: db, resolver: resolver, goals: goals, loc: loc}
}

// MacroAverages holds per-day arithmetic means.
type MacroAverages struct {
	Calories float64 `json:"kcal"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

// RangeSummary is an inclusive day-range aggregation. Days with no
// totals row count as zero in the averages.
type RangeSummary struct {
	Start string        `json:"start"`
	End   string        `json:"end"`
	Days  int           `json:"days"`
	Sum   model.Macros  `json:"sum"`
	Avg   MacroAverages `json:"avg"`
	Goals Goals         `json:"goals"`
}

// SumRange sums daily totals for days in [dayStart, dayEnd] inclusive
// and computes per-metric means over the inclusive day count.
func (s *StatsService) SumRange(ctx context.Context, userID, dayStart, dayEnd string) (*RangeSummary, error) {
	d0, err := time.ParseInLocation(dayLayout, dayStart, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: bad start day %q", ErrValidation, dayStart)
	}
	d1, err := time.ParseInLocation(dayLayout, dayEnd, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: bad end day %q", ErrValidation, dayEnd)
	}
	if d1.Before(d0) {
		return nil, fmt.Errorf("%w: range end before start", ErrValidation)
	}
	days := int(d1.Sub(d0).Hours()/24) + 1

	var rows []models.DailyTotal
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND day BETWEEN ? AND ?", userID, dayStart, dayEnd).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	var sum model.Macros
	for _, r := range rows {
		sum = sum.Add(model.Macros{Calories: r.Calories, ProteinG: r.ProteinG, CarbsG: r.CarbsG, FatG: r.FatG})
	}

	n := float64(days)
	return &RangeSummary{
		Start: dayStart,
		End:   dayEnd,
		Days:  days,
		Sum:   sum,
		Avg: MacroAverages{
			Calories: float64(sum.Calories) / n,
			ProteinG: float64(sum.ProteinG) / n,
			CarbsG:   float64(sum.CarbsG) / n,
			FatG:     float64(sum.FatG) / n,
		},
		Goals: s.goals,
	}, nil
}

// TodaySummary is the single-day range for now's local date.
func (s *StatsService) TodaySummary(ctx context.Context, userID string, now time.Time) (*RangeSummary, error) {
	day := now.In(s.loc).Format(dayLayout)
	return s.SumRange(ctx, userID, day, day)
}

// WeekSummary covers the trailing 7 days ending today.
func (s *StatsService) WeekSummary(ctx context.Context, userID string, now time.Time) (*RangeSummary, error) {
	end := now.In(s.loc)
	start := end.AddDate(0, 0, -6)
	return s.SumRange(ctx, userID, start.Format(dayLayout), end.Format(dayLayout))
}

// MonthSummary covers the first of the current month through today.
func (s *StatsService) MonthSummary(ctx context.Context, userID string, now time.Time) (*RangeSummary, error) {
	end := now.In(s.loc)
	start := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, s.loc)
	return s.SumRange(ctx, userID, start.Format(dayLayout), end.Format(dayLayout))
}

// LookupPreview is a hypothetical: current totals plus the would-be
// macros for the text, compared against goals. Writes nothing.
type LookupPreview struct {
	Item    model.Macros
	Items   []model.FoodItem
	Current model.Macros
	WouldBe model.Macros
	Goals   Goals
	OverCal bool
	MetPro  bool
}

// Preview resolves the text and projects today's totals with it added.
func (s *StatsService) Preview(ctx context.Context, userID, day, text string) (*LookupPreview, error) {
	macros, items, err := s.resolver.Resolve(ctx, userID, text)
	if err != nil {
		return nil, err
	}

	var row models.DailyTotal
	current := model.Macros{}
	err = s.db.WithContext(ctx).Where("user_id = ? AND day = ?", userID, day).First(&row).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	if err == nil {
		current = model.Macros{Calories: row.Calories, ProteinG: row.ProteinG, CarbsG: row.CarbsG, FatG: row.FatG}
	}

	would := current.Add(macros)
	return &LookupPreview{
		Item:    macros,
		Items:   items,
		Current: current,
		WouldBe: would,
		Goals:   s.goals,
		OverCal: would.Calories > s.goals.CaloriesMax,
		MetPro:  would.ProteinG >= s.goals.ProteinMin,
	}, nil
}
