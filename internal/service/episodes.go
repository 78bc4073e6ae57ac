package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tmacree/healthtext/internal/models"
)

// EpisodeService is the open/close state machine for migraines and
// fasts. At most one episode per (user, kind) may be open; starting a
// new one never auto-closes the previous - ending is always explicit.
type EpisodeService struct {
	db            *gorm.DB
	loc           *time.Location
	fastGoalHours int
}

// NewEpisodeService creates a new EpisodeService instance
func NewEpisodeService(db *gorm.DB, loc *time.Location, fastGoalHours int) *EpisodeService {
	return &EpisodeService{db: db, loc: loc, fastGoalHours: fastGoalHours}
}

// episodeKey derives the deterministic identity used for idempotent
// redelivery of the same start command.
func episodeKey(userID, kind string, startMs int64) string {
	return fmt.Sprintf("%s#%s#%d", kind, userID, startMs)
}

// Start opens an episode at when. Redelivery with the identical derived
// key is an idempotent no-op, reported via created=false, and so is a
// start while one is already open - the open episode is returned
// instead of a second is_open row.
func (s *EpisodeService) Start(ctx context.Context, userID, kind string, when time.Time, category string, simulate bool) (ep *models.Episode, created bool, err error) {
	open, err := s.OpenEpisode(ctx, userID, kind)
	if err != nil {
		return nil, false, err
	}
	if open != nil {
		return open, false, nil
	}

	day := when.In(s.loc).Format(dayLayout)
	row := models.Episode{
		EpisodeID: episodeKey(userID, kind, when.UnixMilli()),
		UserID:    userID,
		Kind:      kind,
		Day:       day,
		StartMs:   when.UnixMilli(),
		Category:  category,
		IsOpen:    true,
	}

	if simulate {
		return &row, false, nil
	}

	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "episode_id"}},
		DoNothing: true,
	}).Create(&row)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		// Same start delivered again.
		var existing models.Episode
		if err := s.db.WithContext(ctx).Where("episode_id = ?", row.EpisodeID).First(&existing).Error; err != nil {
			return nil, false, err
		}
		return &existing, false, nil
	}
	return &row, true, nil
}

// EndResult carries the closed episode and its elapsed duration.
type EndResult struct {
	Episode *models.Episode
	Elapsed time.Duration
	Preview bool
}

// End closes the single open episode for (user, kind) at when,
// appending note to any existing notes. Returns ErrNothingOpen when no
// episode is open and ErrDataIntegrity when the store holds more than
// one - that fault is surfaced, never silently resolved.
func (s *EpisodeService) End(ctx context.Context, userID, kind string, when time.Time, note string, simulate bool) (*EndResult, error) {
	ep, err := s.OpenEpisode(ctx, userID, kind)
	if err != nil {
		return nil, err
	}
	if ep == nil {
		return nil, ErrNothingOpen
	}

	elapsed := when.Sub(time.UnixMilli(ep.StartMs))
	if elapsed < 0 {
		elapsed = 0
	}

	if simulate {
		return &EndResult{Episode: ep, Elapsed: elapsed, Preview: true}, nil
	}

	notes := ep.Notes
	if note != "" {
		notes = strings.TrimSpace(notes + " " + note)
	}
	err = s.db.WithContext(ctx).Model(ep).Updates(map[string]interface{}{
		"end_ms":  when.UnixMilli(),
		"is_open": false,
		"notes":   notes,
	}).Error
	if err != nil {
		return nil, err
	}
	ep.EndMs = when.UnixMilli()
	ep.IsOpen = false
	ep.Notes = notes
	return &EndResult{Episode: ep, Elapsed: elapsed}, nil
}

// OpenEpisode returns the open episode for (user, kind), nil when none.
// More than one open row is an ErrDataIntegrity.
func (s *EpisodeService) OpenEpisode(ctx context.Context, userID, kind string) (*models.Episode, error) {
	var open []models.Episode
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND kind = ? AND is_open = ?", userID, kind, true).
		Order("start_ms DESC").
		Limit(5).
		Find(&open).Error
	if err != nil {
		return nil, err
	}
	switch len(open) {
	case 0:
		return nil, nil
	case 1:
		return &open[0], nil
	default:
		return nil, fmt.Errorf("%w: %d open %s episodes for %s", ErrDataIntegrity, len(open), kind, userID)
	}
}

// StatusResult describes the current episode state for a kind.
type StatusResult struct {
	Open          bool
	Episode       *models.Episode
	Elapsed       time.Duration
	GoalHours     int     // fasting only
	PercentOfGoal float64 // fasting only
	MetGoal       bool    // fasting only
}

// Status reports the open episode and its elapsed time; for fasts it
// also computes percent-of-goal against the configured goal hours.
func (s *EpisodeService) Status(ctx context.Context, userID, kind string, now time.Time) (*StatusResult, error) {
	ep, err := s.OpenEpisode(ctx, userID, kind)
	if err != nil {
		return nil, err
	}
	if ep == nil {
		return &StatusResult{Open: false}, nil
	}

	elapsed := now.Sub(time.UnixMilli(ep.StartMs))
	if elapsed < 0 {
		elapsed = 0
	}
	st := &StatusResult{Open: true, Episode: ep, Elapsed: elapsed}
	if kind == models.EpisodeFast {
		st.GoalHours = s.fastGoalHours
		goal := time.Duration(s.fastGoalHours) * time.Hour
		st.PercentOfGoal = 100 * float64(elapsed) / float64(goal)
		st.MetGoal = elapsed >= goal
	}
	return st, nil
}

// EpisodesInRange lists episodes whose day falls in [d0, d1] inclusive,
// for the stats API.
func (s *EpisodeService) EpisodesInRange(ctx context.Context, userID, kind, d0, d1 string) ([]models.Episode, error) {
	var rows []models.Episode
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND kind = ? AND day BETWEEN ? AND ?", userID, kind, d0, d1).
		Order("start_ms ASC").
		Find(&rows).Error
	return rows, err
}
