package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmacree/healthtext/internal/model"
	"github.com/tmacree/healthtext/internal/testdb"
)

// fakeLookup is a canned NutritionLookup for tests.
type fakeLookup struct {
	items   []model.FoodItem
	totals  model.Macros
	item    *model.FoodItem
	err     error
	queries []string
}

func (f *fakeLookup) Resolve(_ context.Context, query string) ([]model.FoodItem, model.Macros, error) {
	f.queries = append(f.queries, query)
	return f.items, f.totals, f.err
}

func (f *fakeLookup) LookupBarcode(_ context.Context, _ string) (*model.FoodItem, error) {
	return f.item, f.err
}

func TestResolverPrefersOverrides(t *testing.T) {
	db := testdb.New(t)
	overrides := NewOverrideService(db)
	ctx := context.Background()

	_, err := overrides.Set(ctx, "me", "shake", model.Macros{Calories: 200, ProteinG: 40}, "")
	require.NoError(t, err)

	lookup := &fakeLookup{totals: model.Macros{Calories: 999}}
	resolver := NewNutritionResolver(overrides, lookup)

	macros, items, err := resolver.Resolve(ctx, "me", "shake")
	require.NoError(t, err)
	assert.Equal(t, 200, macros.Calories)
	require.Len(t, items, 1)
	assert.Equal(t, "shake", items[0].Name)
	assert.Empty(t, lookup.queries, "external lookup must not run when an override matches")
}

func TestResolverFallsBackToExternal(t *testing.T) {
	db := testdb.New(t)
	lookup := &fakeLookup{
		items:  []model.FoodItem{{Name: "grilled chicken", Qty: 1, Unit: "breast", Macros: model.Macros{Calories: 280, ProteinG: 52}}},
		totals: model.Macros{Calories: 280, ProteinG: 52},
	}
	resolver := NewNutritionResolver(NewOverrideService(db), lookup)

	macros, items, err := resolver.Resolve(context.Background(), "me", "grilled chicken")
	require.NoError(t, err)
	assert.Equal(t, 280, macros.Calories)
	assert.Len(t, items, 1)
}

func TestResolverLookupFailure(t *testing.T) {
	db := testdb.New(t)
	lookup := &fakeLookup{err: errors.New("upstream 500")}
	resolver := NewNutritionResolver(NewOverrideService(db), lookup)

	_, _, err := resolver.Resolve(context.Background(), "me", "mystery stew")
	assert.ErrorIs(t, err, ErrResolution)
}

func TestResolverZeroMatches(t *testing.T) {
	db := testdb.New(t)
	lookup := &fakeLookup{} // no items, no error
	resolver := NewNutritionResolver(NewOverrideService(db), lookup)

	_, _, err := resolver.Resolve(context.Background(), "me", "asdfgh")
	assert.ErrorIs(t, err, ErrResolution)
}

func TestResolveBarcode(t *testing.T) {
	db := testdb.New(t)
	lookup := &fakeLookup{item: &model.FoodItem{Name: "protein bar", Qty: 1, Unit: "bar", Macros: model.Macros{Calories: 210}}}
	resolver := NewNutritionResolver(NewOverrideService(db), lookup)

	item, err := resolver.ResolveBarcode(context.Background(), "012345678905")
	require.NoError(t, err)
	assert.Equal(t, "protein bar", item.Name)

	lookup.item = nil
	_, err = resolver.ResolveBarcode(context.Background(), "000000000000")
	assert.ErrorIs(t, err, ErrResolution)
}
