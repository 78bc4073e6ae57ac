package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/tmacree/healthtext/internal/model"
)

// NutritionixClient implements NutritionLookup against the Nutritionix
// natural-language nutrients API.
type NutritionixClient struct {
	appID   string
	appKey  string
	baseURL string
	client  *http.Client
}

var _ NutritionLookup = (*NutritionixClient)(nil)

// NewNutritionixClient creates a new NutritionixClient instance
func NewNutritionixClient(appID, appKey, baseURL string, timeout time.Duration) *NutritionixClient {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &NutritionixClient{
		appID:   appID,
		appKey:  appKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type nutritionixFood struct {
	FoodName     string  `json:"food_name"`
	ServingQty   float64 `json:"serving_qty"`
	ServingUnit  string  `json:"serving_unit"`
	Calories     float64 `json:"nf_calories"`
	Protein      float64 `json:"nf_protein"`
	Carbohydrate float64 `json:"nf_total_carbohydrate"`
	Fat          float64 `json:"nf_total_fat"`
}

type nutrientsResponse struct {
	Foods []nutritionixFood `json:"foods"`
}

// Resolve analyzes free text and sums macros across the matched foods.
func (c *NutritionixClient) Resolve(ctx context.Context, query string) ([]model.FoodItem, model.Macros, error) {
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, model.Macros{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/natural/nutrients", bytes.NewReader(body))
	if err != nil {
		return nil, model.Macros{}, err
	}
	c.setHeaders(req)

	var parsed nutrientsResponse
	if err := c.do(req, &parsed); err != nil {
		return nil, model.Macros{}, err
	}

	items := make([]model.FoodItem, 0, len(parsed.Foods))
	var totals model.Macros
	for _, f := range parsed.Foods {
		item := foodToItem(f)
		items = append(items, item)
		totals = totals.Add(item.Macros)
	}
	return items, totals, nil
}

// LookupBarcode resolves a single item by UPC.
func (c *NutritionixClient) LookupBarcode(ctx context.Context, upc string) (*model.FoodItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/search/item?upc="+url.QueryEscape(upc), nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	var parsed nutrientsResponse
	if err := c.do(req, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Foods) == 0 {
		return nil, nil
	}
	item := foodToItem(parsed.Foods[0])
	return &item, nil
}

func (c *NutritionixClient) setHeaders(req *http.Request) {
	req.Header.Set("x-app-id", c.appID)
	req.Header.Set("x-app-key", c.appKey)
	req.Header.Set("Content-Type", "application/json")
}

func (c *NutritionixClient) do(req *http.Request, out interface{}) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("nutritionix request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read nutritionix response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("nutritionix HTTP %d: %s", resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse nutritionix response: %w", err)
	}
	return nil
}

func foodToItem(f nutritionixFood) model.FoodItem {
	return model.FoodItem{
		Name: f.FoodName,
		Qty:  f.ServingQty,
		Unit: f.ServingUnit,
		Macros: model.Macros{
			Calories: roundInt(f.Calories),
			ProteinG: roundInt(f.Protein),
			CarbsG:   roundInt(f.Carbohydrate),
			FatG:     roundInt(f.Fat),
		},
	}
}

func roundInt(f float64) int {
	return int(math.Round(f))
}
