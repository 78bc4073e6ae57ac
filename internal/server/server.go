package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/tmacree/healthtext/config"
	"github.com/tmacree/healthtext/internal/api"
	"github.com/tmacree/healthtext/internal/middleware"
	"github.com/tmacree/healthtext/internal/router"
	"github.com/tmacree/healthtext/internal/service"
)

// Server wires the HTTP layer and the facts scheduler around the
// domain services.
type Server struct {
	engine *gin.Engine
	http   *http.Server
	cron   *cron.Cron
	facts  *service.FactsService
	cfg    *config.Config
}

// NewServer builds the router, services, and scheduler from config.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, gateway service.MessageGateway) (*Server, error) {
	loc := cfg.Location()

	// Services
	overrideService := service.NewOverrideService(db)
	nutritionix := service.NewNutritionixClient(cfg.NutritionixAppID, cfg.NutritionixAppKey, cfg.NutritionixURL, cfg.NutritionTimeout)
	resolver := service.NewNutritionResolver(overrideService, nutritionix)
	mealService := service.NewMealService(db, resolver)
	statsService := service.NewStatsService(db, resolver, service.Goals{
		CaloriesMax: cfg.CaloriesMax,
		ProteinMin:  cfg.ProteinMin,
	}, loc)
	episodeService := service.NewEpisodeService(db, loc, cfg.FastGoalHours)
	medService := service.NewMedService(db, episodeService, service.MedConfig{
		MonthlyLimits:     cfg.MedMonthlyLimits,
		NearLimitFrac:     cfg.MedNearLimitFrac,
		InteractionWindow: time.Duration(cfg.MedInteractionHrs) * time.Hour,
		FuzzyThreshold:    cfg.MedFuzzyThreshold,
	}, loc)
	factsService := service.NewFactsService(db, gateway, loc, cfg.FactsDefaultHour)

	cmdRouter := router.New(
		mealService, statsService, episodeService, medService,
		overrideService, factsService, resolver, cfg.UserID, loc,
	)

	// HTTP engine
	engine := gin.Default()
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Accept", "Origin"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/api/v1")
	if redisClient != nil {
		limiter := middleware.NewRateLimiter(redisClient, middleware.RateLimitConfig{
			Window:    time.Minute,
			Limit:     cfg.RateLimitPerMinute,
			KeyPrefix: "healthtext:rl",
		})
		v1.Use(limiter.RateLimitMiddleware())
	}

	api.NewWebhookHandler(cmdRouter).RegisterRoutes(v1)
	api.NewStatsHandler(statsService, mealService, medService, episodeService, cfg.UserID, loc).RegisterRoutes(v1)

	// Facts scheduler: tick hourly on the hour; the service's own
	// guard decides whether anything is sent.
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc("0 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		res, err := factsService.Tick(ctx, cfg.UserID, time.Now())
		if err != nil {
			log.Printf("[Server] facts tick failed: %v", err)
			return
		}
		if res.Sent {
			log.Printf("[Server] facts tick sent fact %d", res.FactID)
		}
	}); err != nil {
		return nil, err
	}

	return &Server{
		engine: engine,
		cron:   c,
		facts:  factsService,
		cfg:    cfg,
	}, nil
}

// Engine exposes the gin engine for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start runs the scheduler and the HTTP server. It blocks until the
// listener stops.
func (s *Server) Start() error {
	s.cron.Start()
	s.http = &http.Server{
		Addr:    ":" + s.cfg.ServerPort,
		Handler: s.engine,
	}
	log.Printf("[Server] listening on :%s", s.cfg.ServerPort)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the scheduler and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
	}
	if s.http != nil {
		return s.http.Shutdown(ctx)
	}
	return nil
}
