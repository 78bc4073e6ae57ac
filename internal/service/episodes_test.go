package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tmacree/healthtext/internal/models"
	"github.com/tmacree/healthtext/internal/testdb"
)

func newEpisodeFixture(t *testing.T) (*EpisodeService, *gorm.DB) {
	db := testdb.New(t)
	return NewEpisodeService(db, time.UTC, 16), db
}

func TestMigraineStartEndCycle(t *testing.T) {
	svc, _ := newEpisodeFixture(t)
	ctx := context.Background()
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	ep, created, err := svc.Start(ctx, "me", models.EpisodeMigraine, start, "aura", false)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, ep.IsOpen)
	assert.Equal(t, "aura", ep.Category)

	res, err := svc.End(ctx, "me", models.EpisodeMigraine, start.Add(90*time.Minute), "felt rough", false)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, res.Elapsed)
	assert.False(t, res.Episode.IsOpen)
	assert.Equal(t, "felt rough", res.Episode.Notes)
}

func TestStartRedeliveryIsIdempotent(t *testing.T) {
	svc, db := newEpisodeFixture(t)
	ctx := context.Background()
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	_, created, err := svc.Start(ctx, "me", models.EpisodeMigraine, start, "", false)
	require.NoError(t, err)
	assert.True(t, created)

	ep, created, err := svc.Start(ctx, "me", models.EpisodeMigraine, start, "", false)
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, ep.IsOpen)

	var count int64
	require.NoError(t, db.Model(&models.Episode{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestStartWhileOpenReturnsExisting(t *testing.T) {
	svc, db := newEpisodeFixture(t)
	ctx := context.Background()
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	first, created, err := svc.Start(ctx, "me", models.EpisodeMigraine, start, "aura", false)
	require.NoError(t, err)
	assert.True(t, created)

	// A second start an hour later must not open a second episode.
	ep, created, err := svc.Start(ctx, "me", models.EpisodeMigraine, start.Add(time.Hour), "", false)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.EpisodeID, ep.EpisodeID)
	assert.Equal(t, first.StartMs, ep.StartMs)

	var count int64
	require.NoError(t, db.Model(&models.Episode{}).Where("is_open = ?", true).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	res, err := svc.End(ctx, "me", models.EpisodeMigraine, start.Add(2*time.Hour), "", false)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, res.Elapsed)
}

func TestEndWithNothingOpen(t *testing.T) {
	svc, _ := newEpisodeFixture(t)

	_, err := svc.End(context.Background(), "me", models.EpisodeMigraine, time.Now(), "", false)
	assert.ErrorIs(t, err, ErrNothingOpen)
}

func TestEndBeforeStartClampsToZero(t *testing.T) {
	svc, _ := newEpisodeFixture(t)
	ctx := context.Background()
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	_, _, err := svc.Start(ctx, "me", models.EpisodeFast, start, "", false)
	require.NoError(t, err)

	res, err := svc.End(ctx, "me", models.EpisodeFast, start.Add(-time.Hour), "", false)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), res.Elapsed)
}

func TestMultipleOpenEpisodesSurfaceIntegrityFault(t *testing.T) {
	svc, db := newEpisodeFixture(t)
	ctx := context.Background()

	// Two open rows written directly, bypassing Start's key guard.
	for i, ms := range []int64{1000, 2000} {
		row := models.Episode{
			EpisodeID: episodeKey("me", models.EpisodeMigraine, ms),
			UserID:    "me",
			Kind:      models.EpisodeMigraine,
			Day:       "2026-09-01",
			StartMs:   ms,
			IsOpen:    true,
		}
		require.NoError(t, db.Create(&row).Error, "row %d", i)
	}

	_, err := svc.OpenEpisode(ctx, "me", models.EpisodeMigraine)
	assert.ErrorIs(t, err, ErrDataIntegrity)

	_, err = svc.End(ctx, "me", models.EpisodeMigraine, time.Now(), "", false)
	assert.ErrorIs(t, err, ErrDataIntegrity)
}

func TestKindsTrackedIndependently(t *testing.T) {
	svc, _ := newEpisodeFixture(t)
	ctx := context.Background()
	start := time.Date(2026, 9, 1, 20, 0, 0, 0, time.UTC)

	_, _, err := svc.Start(ctx, "me", models.EpisodeFast, start, "", false)
	require.NoError(t, err)

	// Ending a migraine must not touch the open fast.
	_, err = svc.End(ctx, "me", models.EpisodeMigraine, start.Add(time.Hour), "", false)
	assert.ErrorIs(t, err, ErrNothingOpen)

	st, err := svc.Status(ctx, "me", models.EpisodeFast, start.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, st.Open)
}

func TestFastStatusGoalProgress(t *testing.T) {
	svc, _ := newEpisodeFixture(t)
	ctx := context.Background()
	start := time.Date(2026, 9, 1, 20, 0, 0, 0, time.UTC)

	_, _, err := svc.Start(ctx, "me", models.EpisodeFast, start, "", false)
	require.NoError(t, err)

	st, err := svc.Status(ctx, "me", models.EpisodeFast, start.Add(8*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 16, st.GoalHours)
	assert.InDelta(t, 50.0, st.PercentOfGoal, 0.001)
	assert.False(t, st.MetGoal)

	st, err = svc.Status(ctx, "me", models.EpisodeFast, start.Add(16*time.Hour))
	require.NoError(t, err)
	assert.True(t, st.MetGoal)
}

func TestStartSimulateWritesNothing(t *testing.T) {
	svc, db := newEpisodeFixture(t)

	_, created, err := svc.Start(context.Background(), "me", models.EpisodeMigraine, time.Now(), "", true)
	require.NoError(t, err)
	assert.False(t, created)

	var count int64
	require.NoError(t, db.Model(&models.Episode{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}
