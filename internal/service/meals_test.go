package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tmacree/healthtext/internal/model"
	"github.com/tmacree/healthtext/internal/models"
	"github.com/tmacree/healthtext/internal/testdb"
)

// fixedResolver returns the same macros for any text.
type fixedResolver struct {
	macros model.Macros
	err    error
}

func (f *fixedResolver) Resolve(_ context.Context, _, text string) (model.Macros, []model.FoodItem, error) {
	if f.err != nil {
		return model.Macros{}, nil, f.err
	}
	return f.macros, []model.FoodItem{{Name: text, Qty: 1, Unit: "serving", Macros: f.macros}}, nil
}

func newMealFixture(t *testing.T, macros model.Macros) (*MealService, *gorm.DB) {
	db := testdb.New(t)
	return NewMealService(db, &fixedResolver{macros: macros}), db
}

func TestLogMealUpdatesTotals(t *testing.T) {
	svc, _ := newMealFixture(t, model.Macros{Calories: 500, ProteinG: 40, CarbsG: 30, FatG: 20})
	ctx := context.Background()

	res, err := svc.LogMeal(ctx, "me", "2026-09-01", 1000, "", "sms", "chicken and rice", false)
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, 500, res.Totals.Calories)

	res, err = svc.LogMeal(ctx, "me", "2026-09-01", 2000, "", "sms", "chicken and rice", false)
	require.NoError(t, err)
	assert.Equal(t, 1000, res.Totals.Calories)
	assert.Equal(t, 80, res.Totals.ProteinG)
}

func TestLogMealDuplicateDeliveryIsIdempotent(t *testing.T) {
	svc, db := newMealFixture(t, model.Macros{Calories: 500, ProteinG: 40})
	ctx := context.Background()

	first, err := svc.LogMeal(ctx, "me", "2026-09-01", 1000, "", "sms", "chicken and rice", false)
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	// Same text, same timestamp: a gateway retry of the same event.
	second, err := svc.LogMeal(ctx, "me", "2026-09-01", 1000, "", "sms", "chicken and rice", false)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, 500, second.Totals.Calories, "duplicate must not reapply the delta")

	var count int64
	require.NoError(t, db.Model(&models.Meal{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestLogMealSimulateWritesNothing(t *testing.T) {
	svc, db := newMealFixture(t, model.Macros{Calories: 500})
	ctx := context.Background()

	res, err := svc.LogMeal(ctx, "me", "2026-09-01", 1000, "", "sms", "chicken and rice", true)
	require.NoError(t, err)
	assert.True(t, res.Preview)
	assert.Equal(t, 500, res.Totals.Calories)

	var count int64
	require.NoError(t, db.Model(&models.Meal{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)

	totals, err := svc.GetTotals(ctx, "me", "2026-09-01")
	require.NoError(t, err)
	assert.True(t, totals.IsZero())
}

func TestLogMealResolutionFailureWritesNothing(t *testing.T) {
	db := testdb.New(t)
	svc := NewMealService(db, &fixedResolver{err: ErrResolution})

	_, err := svc.LogMeal(context.Background(), "me", "2026-09-01", 1000, "", "sms", "asdfgh", false)
	assert.ErrorIs(t, err, ErrResolution)

	var count int64
	require.NoError(t, db.Model(&models.Meal{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestUndoLastRemovesMostRecentByCreation(t *testing.T) {
	svc, _ := newMealFixture(t, model.Macros{Calories: 300, ProteinG: 20})
	ctx := context.Background()

	_, err := svc.LogMeal(ctx, "me", "2026-09-01", 1000, "", "sms", "breakfast", false)
	require.NoError(t, err)
	_, err = svc.LogMeal(ctx, "me", "2026-09-01", 2000, "", "sms", "lunch", false)
	require.NoError(t, err)

	res, err := svc.UndoLast(ctx, "me", "2026-09-01", false)
	require.NoError(t, err)
	assert.Equal(t, "lunch", res.Text)
	assert.Equal(t, 300, res.Totals.Calories)

	meals, err := svc.MealsForDay(ctx, "me", "2026-09-01")
	require.NoError(t, err)
	require.Len(t, meals, 1)
	assert.Equal(t, "breakfast", meals[0].RawText)
}

func TestUndoLastEmptyDay(t *testing.T) {
	svc, _ := newMealFixture(t, model.Macros{Calories: 300})

	_, err := svc.UndoLast(context.Background(), "me", "2026-09-01", false)
	assert.ErrorIs(t, err, ErrNothingToUndo)
}

func TestUndoThenRelogConverges(t *testing.T) {
	svc, _ := newMealFixture(t, model.Macros{Calories: 300, ProteinG: 20})
	ctx := context.Background()

	_, err := svc.LogMeal(ctx, "me", "2026-09-01", 1000, "", "sms", "snack", false)
	require.NoError(t, err)
	_, err = svc.UndoLast(ctx, "me", "2026-09-01", false)
	require.NoError(t, err)

	totals, err := svc.GetTotals(ctx, "me", "2026-09-01")
	require.NoError(t, err)
	assert.True(t, totals.IsZero())

	res, err := svc.LogMeal(ctx, "me", "2026-09-01", 3000, "", "sms", "snack", false)
	require.NoError(t, err)
	assert.Equal(t, 300, res.Totals.Calories)
}

func TestResetDayZeroesTotalsAndKeepsMeals(t *testing.T) {
	svc, db := newMealFixture(t, model.Macros{Calories: 400, ProteinG: 30})
	ctx := context.Background()

	_, err := svc.LogMeal(ctx, "me", "2026-09-01", 1000, "", "sms", "lunch", false)
	require.NoError(t, err)

	require.NoError(t, svc.ResetDay(ctx, "me", "2026-09-01", false))

	totals, err := svc.GetTotals(ctx, "me", "2026-09-01")
	require.NoError(t, err)
	assert.True(t, totals.IsZero())

	// The meal log is history, not a counter; reset leaves it alone.
	meals, err := svc.MealsForDay(ctx, "me", "2026-09-01")
	require.NoError(t, err)
	assert.Len(t, meals, 1)

	var audits int64
	require.NoError(t, db.Model(&models.AuditEvent{}).Where("kind = ?", models.AuditReset).Count(&audits).Error)
	assert.EqualValues(t, 1, audits)
}

func TestTotalsAreScopedPerDay(t *testing.T) {
	svc, _ := newMealFixture(t, model.Macros{Calories: 250})
	ctx := context.Background()

	_, err := svc.LogMeal(ctx, "me", "2026-09-01", 1000, "", "sms", "dinner", false)
	require.NoError(t, err)
	_, err = svc.LogMeal(ctx, "me", "2026-09-02", 2000, "", "sms", "breakfast", false)
	require.NoError(t, err)

	day1, err := svc.GetTotals(ctx, "me", "2026-09-01")
	require.NoError(t, err)
	day2, err := svc.GetTotals(ctx, "me", "2026-09-02")
	require.NoError(t, err)
	assert.Equal(t, 250, day1.Calories)
	assert.Equal(t, 250, day2.Calories)
}

func TestMealHashStable(t *testing.T) {
	h1 := MealHash("me", "2026-09-01", "chicken and rice", "", 1000)
	h2 := MealHash("me", "2026-09-01", "chicken and rice", "", 1000)
	h3 := MealHash("me", "2026-09-01", "chicken and rice", "", 1001)
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 32)

	// A delivery key pins the hash even when the gateway restamps the time.
	a1 := MealHash("me", "2026-09-01", "chicken and rice", "SM1", 1000)
	a2 := MealHash("me", "2026-09-01", "chicken and rice", "SM1", 5000)
	assert.Equal(t, a1, a2)
}
