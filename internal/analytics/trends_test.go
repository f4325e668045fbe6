package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/itabot/pkg/models"
)

func historyItem(daysAgo, correct, total int) models.TestHistoryItem {
	return models.TestHistoryItem{
		ID:             "t",
		Timestamp:      testNow.AddDate(0, 0, -daysAgo),
		TotalWords:     total,
		CorrectWords:   correct,
		IncorrectWords: total - correct,
	}
}

func TestProjectInsufficientData(t *testing.T) {
	p := NewProjector(fixedEngine())
	snap := Snapshot{History: []models.TestHistoryItem{
		historyItem(1, 5, 10),
		historyItem(2, 5, 10),
		historyItem(3, 5, 10),
	}}

	got := p.Project(snap)
	assert.True(t, got.Insufficient)
	assert.Contains(t, got.Reason, "5")
	assert.Empty(t, got.Acceleration)
}

func TestProjectWeeklyTrend(t *testing.T) {
	p := NewProjector(fixedEngine())

	// Three weak tests 8-10 days ago, three strong ones in the last
	// week.
	snap := Snapshot{History: []models.TestHistoryItem{
		historyItem(10, 4, 10),
		historyItem(9, 5, 10),
		historyItem(8, 4, 10),
		historyItem(3, 9, 10),
		historyItem(2, 8, 10),
		historyItem(1, 9, 10),
	}}

	got := p.Project(snap)
	require.False(t, got.Insufficient)
	assert.Equal(t, TrendImproving, got.Weekly.Direction)
	assert.Greater(t, got.Weekly.ChangePct, 5.0)
	assert.NotEmpty(t, got.Weekly.Rationale)
}

func TestProjectDecliningTrend(t *testing.T) {
	p := NewProjector(fixedEngine())
	snap := Snapshot{History: []models.TestHistoryItem{
		historyItem(10, 9, 10),
		historyItem(9, 9, 10),
		historyItem(8, 10, 10),
		historyItem(3, 5, 10),
		historyItem(2, 4, 10),
		historyItem(1, 5, 10),
	}}

	got := p.Project(snap)
	require.False(t, got.Insufficient)
	assert.Equal(t, TrendDeclining, got.Weekly.Direction)
}

func TestProjectMasteryTimeline(t *testing.T) {
	p := NewProjector(fixedEngine())

	mastered := perf("CCCCC", 1000)
	mastered.WordID = "w1"
	working := perf("CCIC", 2000)
	working.WordID = "w2"

	snap := Snapshot{
		Performances: []models.WordPerformance{mastered, working},
		History: []models.TestHistoryItem{
			historyItem(14, 5, 10), historyItem(10, 6, 10), historyItem(7, 7, 10),
			historyItem(3, 8, 10), historyItem(1, 9, 10),
		},
	}

	got := p.Project(snap)
	require.False(t, got.Insufficient)
	assert.Equal(t, 1, got.Mastery.MasteredWords)
	assert.Equal(t, 2, got.Mastery.TrackedWords)
	assert.Equal(t, 50, got.Mastery.MasteryPercentage)
	assert.Greater(t, got.Mastery.WordsPerWeek, 0.0)
	assert.Greater(t, got.Mastery.WeeksToFullMastery, 0)
	assert.NotEmpty(t, got.Mastery.Rationale)
}

func TestProjectAccelerationExcludesMastered(t *testing.T) {
	p := NewProjector(fixedEngine())

	mastered := perf("CCCCC", 1000)
	mastered.WordID = "w1"
	mastered.English = "done"
	near := perf("CCCIC", 5000)
	near.WordID = "w2"
	near.English = "almost"
	far := perf("IIIIII", 5000)
	far.WordID = "w3"
	far.English = "hard"

	snap := Snapshot{
		Performances: []models.WordPerformance{mastered, near, far},
		History: []models.TestHistoryItem{
			historyItem(5, 5, 10), historyItem(4, 5, 10), historyItem(3, 5, 10),
			historyItem(2, 5, 10), historyItem(1, 5, 10),
		},
	}

	got := p.Project(snap)
	require.False(t, got.Insufficient)
	require.Len(t, got.Acceleration, 2)
	// Nearest to mastery comes first.
	assert.Equal(t, "almost", got.Acceleration[0].English)
	assert.Equal(t, "hard", got.Acceleration[1].English)
	for _, opp := range got.Acceleration {
		assert.NotEmpty(t, opp.Rationale)
	}
}

func TestProjectorCachesUntilInvalidated(t *testing.T) {
	clock := testNow
	engine := NewEngineWithClock(func() time.Time { return clock })
	p := NewProjectorWithTTL(engine, time.Minute)

	small := Snapshot{History: []models.TestHistoryItem{historyItem(1, 5, 10)}}
	full := Snapshot{History: []models.TestHistoryItem{
		historyItem(5, 5, 10), historyItem(4, 5, 10), historyItem(3, 5, 10),
		historyItem(2, 5, 10), historyItem(1, 5, 10),
	}}

	first := p.Project(small)
	assert.True(t, first.Insufficient)

	// Fresh cache: the new snapshot is ignored until TTL or an
	// explicit invalidation.
	cached := p.Project(full)
	assert.True(t, cached.Insufficient)

	p.Invalidate()
	recomputed := p.Project(full)
	assert.False(t, recomputed.Insufficient)

	// TTL expiry also drops the cache.
	clock = clock.Add(2 * time.Minute)
	expired := p.Project(small)
	assert.True(t, expired.Insufficient)
}

func TestProjectScheduleAlwaysHasRationale(t *testing.T) {
	p := NewProjector(fixedEngine())
	snap := Snapshot{History: []models.TestHistoryItem{
		historyItem(5, 5, 10), historyItem(4, 5, 10), historyItem(3, 5, 10),
		historyItem(2, 5, 10), historyItem(1, 5, 10),
	}}

	got := p.Project(snap)
	require.False(t, got.Insufficient)
	assert.Greater(t, got.Schedule.SessionsPerWeek, 0)
	assert.NotEmpty(t, got.Schedule.Rationale)
}
