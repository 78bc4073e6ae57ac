package service

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"gorm.io/gorm"

	"github.com/tmacree/healthtext/internal/models"
)

// Tick skip reasons.
const (
	SkipDisabled      = "disabled"
	SkipNoDestination = "no destination"
	SkipAlreadySent   = "already sent today"
	SkipWrongHour     = "wrong hour"
	SkipNoFacts       = "no facts available"
)

// FactsService delivers one random fact per day at the configured hour.
type FactsService struct {
	db          *gorm.DB
	gateway     MessageGateway
	loc         *time.Location
	defaultHour int
}

// NewFactsService creates a new FactsService instance
func NewFactsService(db *gorm.DB, gateway MessageGateway, loc *time.Location, defaultHour int) *FactsService {
	return &FactsService{db: db, gateway: gateway, loc: loc, defaultHour: defaultHour}
}

// GetConfig returns the user's facts config, creating the disabled
// default row on first touch.
func (s *FactsService) GetConfig(ctx context.Context, userID string) (*models.FactsConfig, error) {
	var cfg models.FactsConfig
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&cfg).Error
	if err == gorm.ErrRecordNotFound {
		cfg = models.FactsConfig{UserID: userID, Enabled: false, Hour: s.defaultHour}
		if err := s.db.WithContext(ctx).Create(&cfg).Error; err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// UpdateConfig applies the given changes to the user's facts config.
func (s *FactsService) UpdateConfig(ctx context.Context, userID string, changes map[string]interface{}) (*models.FactsConfig, error) {
	cfg, err := s.GetConfig(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(cfg).Updates(changes).Error; err != nil {
		return nil, err
	}
	return s.GetConfig(ctx, userID)
}

// AddFact appends a fact to the user's pool.
func (s *FactsService) AddFact(ctx context.Context, userID, text, tags string) (*models.Fact, error) {
	if text == "" {
		return nil, ErrValidation
	}
	fact := models.Fact{UserID: userID, Text: text, Tags: tags}
	if err := s.db.WithContext(ctx).Create(&fact).Error; err != nil {
		return nil, err
	}
	return &fact, nil
}

// RandomFact picks a random fact from the pool, nil when empty.
func (s *FactsService) RandomFact(ctx context.Context, userID string) (*models.Fact, error) {
	var facts []models.Fact
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&facts).Error; err != nil {
		return nil, err
	}
	if len(facts) == 0 {
		return nil, nil
	}
	return &facts[rand.Intn(len(facts))], nil
}

// TickResult reports what a scheduler tick did, or why it did nothing.
type TickResult struct {
	Sent   bool
	Reason string
	FactID uint
}

// Tick is the per-day-once delivery guard. It runs on every scheduler
// tick and sends at most one fact per calendar day: disabled, missing
// destination, an hour mismatch, or last_sent_day == today all
// short-circuit with a reason code.
func (s *FactsService) Tick(ctx context.Context, userID string, now time.Time) (*TickResult, error) {
	cfg, err := s.GetConfig(ctx, userID)
	if err != nil {
		return nil, err
	}

	local := now.In(s.loc)
	today := local.Format(dayLayout)

	if !cfg.Enabled {
		return &TickResult{Reason: SkipDisabled}, nil
	}
	if cfg.Destination == "" {
		return &TickResult{Reason: SkipNoDestination}, nil
	}
	if cfg.LastSentDay == today {
		return &TickResult{Reason: SkipAlreadySent}, nil
	}
	if local.Hour() != cfg.Hour {
		return &TickResult{Reason: SkipWrongHour}, nil
	}

	fact, err := s.RandomFact(ctx, userID)
	if err != nil {
		return nil, err
	}
	if fact == nil {
		return &TickResult{Reason: SkipNoFacts}, nil
	}

	body := fmt.Sprintf("Daily fact:\n%s", fact.Text)
	if err := s.gateway.Send(ctx, cfg.Destination, body); err != nil {
		// A failed send must not burn today's slot.
		log.Printf("[Facts] send to %s failed: %v", cfg.Destination, err)
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(cfg).Update("last_sent_day", today).Error; err != nil {
		return nil, err
	}
	return &TickResult{Sent: true, FactID: fact.ID}, nil
}

// SendNow delivers a random fact immediately, outside the daily guard.
func (s *FactsService) SendNow(ctx context.Context, userID string) (*models.Fact, error) {
	fact, err := s.RandomFact(ctx, userID)
	if err != nil {
		return nil, err
	}
	if fact == nil {
		return nil, nil
	}
	return fact, nil
}
