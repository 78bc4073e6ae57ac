package service

import (
	"context"
	"fmt"
	"log"

	"github.com/tmacree/healthtext/internal/model"
)

// NutritionResolver turns free-text meal descriptions into macro
// totals: user overrides first, then the external lookup collaborator.
type NutritionResolver struct {
	overrides *OverrideService
	lookup    NutritionLookup
}

var _ INutritionResolver = (*NutritionResolver)(nil)

// NewNutritionResolver creates a new NutritionResolver instance
func NewNutritionResolver(overrides *OverrideService, lookup NutritionLookup) *NutritionResolver {
	return &NutritionResolver{overrides: overrides, lookup: lookup}
}

// Resolve returns macro totals for the text. A failed or empty external
// lookup yields ErrResolution; callers must not write any state after
// that.
func (r *NutritionResolver) Resolve(ctx context.Context, userID, text string) (model.Macros, []model.FoodItem, error) {
	match, err := r.overrides.Resolve(ctx, userID, text)
	if err != nil {
		return model.Macros{}, nil, fmt.Errorf("override lookup: %w", err)
	}
	if match != nil {
		item := model.FoodItem{Name: match.Alias, Qty: float64(match.Qty), Unit: "serving", Macros: match.Macros}
		return match.Macros, []model.FoodItem{item}, nil
	}

	items, totals, err := r.lookup.Resolve(ctx, text)
	if err != nil {
		log.Printf("[Nutrition] external lookup failed for %q: %v", text, err)
		return model.Macros{}, nil, fmt.Errorf("%w: %v", ErrResolution, err)
	}
	if len(items) == 0 {
		return model.Macros{}, nil, fmt.Errorf("%w: no matches for %q", ErrResolution, text)
	}
	return totals, items, nil
}

// ResolveBarcode resolves a single item by UPC through the external
// collaborator. Overrides do not apply to barcodes.
func (r *NutritionResolver) ResolveBarcode(ctx context.Context, upc string) (*model.FoodItem, error) {
	item, err := r.lookup.LookupBarcode(ctx, upc)
	if err != nil {
		log.Printf("[Nutrition] barcode lookup failed for %q: %v", upc, err)
		return nil, fmt.Errorf("%w: %v", ErrResolution, err)
	}
	if item == nil {
		return nil, fmt.Errorf("%w: no item for barcode %q", ErrResolution, upc)
	}
	return item, nil
}
