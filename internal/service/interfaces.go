package service

import (
	"context"

	"github.com/tmacree/healthtext/internal/model"
)

// NutritionLookup is the external nutrition-analysis collaborator.
// Implementations must apply a bounded timeout and surface failure
// rather than hang.
type NutritionLookup interface {
	// Resolve analyzes free text and returns the matched food items and
	// their summed macros. Zero matches is reported as an error by the
	// caller, not here.
	Resolve(ctx context.Context, query string) ([]model.FoodItem, model.Macros, error)

	// LookupBarcode resolves a single item by UPC.
	LookupBarcode(ctx context.Context, upc string) (*model.FoodItem, error)
}

// MessageGateway sends a reply body to an address. Failures are logged
// by callers and never unwind a completed state mutation.
type MessageGateway interface {
	Send(ctx context.Context, to, body string) error
}

// INutritionResolver is what meal ingestion and previews consume: the
// override-aware resolver in front of the external lookup.
type INutritionResolver interface {
	Resolve(ctx context.Context, userID, text string) (model.Macros, []model.FoodItem, error)
}
