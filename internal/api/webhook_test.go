package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmacree/healthtext/internal/model"
	"github.com/tmacree/healthtext/internal/router"
	"github.com/tmacree/healthtext/internal/service"
	"github.com/tmacree/healthtext/internal/testdb"
)

type stubLookup struct{}

func (stubLookup) Resolve(_ context.Context, query string) ([]model.FoodItem, model.Macros, error) {
	m := model.Macros{Calories: 350, ProteinG: 30, CarbsG: 10, FatG: 15}
	return []model.FoodItem{{Name: query, Qty: 1, Unit: "serving", Macros: m}}, m, nil
}

func (stubLookup) LookupBarcode(_ context.Context, _ string) (*model.FoodItem, error) {
	return nil, nil
}

type nullGateway struct{}

func (nullGateway) Send(_ context.Context, _, _ string) error { return nil }

func newTestEngine(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	db := testdb.New(t)

	overrides := service.NewOverrideService(db)
	resolver := service.NewNutritionResolver(overrides, stubLookup{})
	meals := service.NewMealService(db, resolver)
	stats := service.NewStatsService(db, resolver, service.Goals{CaloriesMax: 1800, ProteinMin: 190}, time.UTC)
	episodes := service.NewEpisodeService(db, time.UTC, 16)
	meds := service.NewMedService(db, episodes, service.MedConfig{
		MonthlyLimits:     map[string]int{service.CatTriptan: 9},
		NearLimitFrac:     0.75,
		InteractionWindow: 24 * time.Hour,
		FuzzyThreshold:    0.85,
	}, time.UTC)
	facts := service.NewFactsService(db, nullGateway{}, time.UTC, 9)

	cmdRouter := router.New(meals, stats, episodes, meds, overrides, facts, resolver, "me", time.UTC)

	engine := gin.New()
	v1 := engine.Group("/api/v1")
	NewWebhookHandler(cmdRouter).RegisterRoutes(v1)
	NewStatsHandler(stats, meals, meds, episodes, "me", time.UTC).RegisterRoutes(v1)
	return engine
}

func postForm(engine *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestTwilioWebhookRepliesWithTwiML(t *testing.T) {
	engine := newTestEngine(t)

	w := postForm(engine, "/api/v1/webhook/twilio", url.Values{
		"Body":       {"meal: chicken salad"},
		"From":       {"+15551234567"},
		"MessageSid": {"SM123"},
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "<Response>")
	assert.Contains(t, body, "<Message>")
	assert.Contains(t, body, "Logged: chicken salad")
}

func TestTwilioWebhookRejectsMissingFields(t *testing.T) {
	engine := newTestEngine(t)

	w := postForm(engine, "/api/v1/webhook/twilio", url.Values{"Body": {"hi"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJSONMessageEndpoint(t *testing.T) {
	engine := newTestEngine(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages",
		strings.NewReader(`{"text": "/help", "sender": "tester"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Commands:")
}

func TestJSONMessageRequiresText(t *testing.T) {
	engine := newTestEngine(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatsEndpoints(t *testing.T) {
	engine := newTestEngine(t)

	// Log a meal through the webhook, then read it back.
	postForm(engine, "/api/v1/webhook/twilio", url.Values{
		"Body":       {"meal: chicken salad"},
		"From":       {"+15551234567"},
		"MessageSid": {"SM1"},
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stats/today", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"kcal":350`)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/meals", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "chicken salad")

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/meals?day=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
