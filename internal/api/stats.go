package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tmacree/healthtext/internal/models"
	"github.com/tmacree/healthtext/internal/service"
)

// StatsHandler exposes read-only aggregates over the logged data.
type StatsHandler struct {
	stats    *service.StatsService
	meals    *service.MealService
	meds     *service.MedService
	episodes *service.EpisodeService
	userID   string
	loc      *time.Location
}

// NewStatsHandler creates a new StatsHandler
func NewStatsHandler(
	stats *service.StatsService,
	meals *service.MealService,
	meds *service.MedService,
	episodes *service.EpisodeService,
	userID string,
	loc *time.Location,
) *StatsHandler {
	return &StatsHandler{
		stats:    stats,
		meals:    meals,
		meds:     meds,
		episodes: episodes,
		userID:   userID,
		loc:      loc,
	}
}

// RegisterRoutes registers the stats routes
func (h *StatsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	stats := rg.Group("/stats")
	{
		stats.GET("/today", h.Today)
		stats.GET("/week", h.Week)
		stats.GET("/month", h.Month)
	}
	rg.GET("/meals", h.Meals)
	rg.GET("/meds/month", h.MedsMonth)
	rg.GET("/migraines/month", h.MigrainesMonth)
}

func (h *StatsHandler) Today(c *gin.Context) {
	sum, err := h.stats.TodaySummary(c.Request.Context(), h.userID, time.Now().In(h.loc))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute summary"})
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *StatsHandler) Week(c *gin.Context) {
	sum, err := h.stats.WeekSummary(c.Request.Context(), h.userID, time.Now().In(h.loc))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute summary"})
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *StatsHandler) Month(c *gin.Context) {
	sum, err := h.stats.MonthSummary(c.Request.Context(), h.userID, time.Now().In(h.loc))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute summary"})
		return
	}
	c.JSON(http.StatusOK, sum)
}

// Meals lists meals for a day; ?day=YYYY-MM-DD, default today.
func (h *StatsHandler) Meals(c *gin.Context) {
	day := c.Query("day")
	if day == "" {
		day = time.Now().In(h.loc).Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", day); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "day must be YYYY-MM-DD"})
		return
	}

	meals, err := h.meals.MealsForDay(c.Request.Context(), h.userID, day)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list meals"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"day": day, "meals": meals})
}

func (h *StatsHandler) MedsMonth(c *gin.Context) {
	doses, counts, err := h.meds.MonthToDate(c.Request.Context(), h.userID, time.Now().In(h.loc))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list doses"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"doses":  doses,
		"counts": counts,
		"limits": h.meds.Limits(),
	})
}

func (h *StatsHandler) MigrainesMonth(c *gin.Context) {
	now := time.Now().In(h.loc)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, h.loc).Format("2006-01-02")
	today := now.Format("2006-01-02")

	eps, err := h.episodes.EpisodesInRange(c.Request.Context(), h.userID, models.EpisodeMigraine, first, today)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list episodes"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"episodes": eps})
}
