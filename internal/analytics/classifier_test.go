package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/itabot/pkg/models"
)

// attempts builds a chronological history from a pattern of 'C'
// (correct) and 'I' (incorrect), one attempt per minute, all with the
// same response time.
func attempts(pattern string, timeMs int) []models.Attempt {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	out := make([]models.Attempt, 0, len(pattern))
	for i, c := range pattern {
		out = append(out, models.Attempt{
			Correct:     c == 'C',
			TimeSpentMs: timeMs,
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
		})
	}
	return out
}

func perf(pattern string, timeMs int) models.WordPerformance {
	return models.WordPerformance{
		WordID:   "w1",
		English:  "house",
		Italian:  "casa",
		Attempts: attempts(pattern, timeMs),
	}
}

func TestClassifyStatusRules(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		timeMs  int
		want    WordStatus
	}{
		{"no attempts", "", 0, StatusNew},
		{"one attempt is always promising", "I", 1000, StatusPromising},
		{"two attempts are always promising", "II", 1000, StatusPromising},
		{"all correct and fast", "CCCCC", 1000, StatusConsolidated},
		{"all correct but slow", "IICCCCC", 4000, StatusImproving},
		{"last three incorrect", "III", 1000, StatusCritical},
		{"low accuracy", "ICCIIIIII", 1000, StatusCritical},
		{"below sixty percent", "CICICI", 5000, StatusStruggling},
		{"alternating around half", "CCICICCICI", 5000, StatusInconsistent},
		{"decent but unremarkable", "CCCIC", 5000, StatusPromising},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(perf(tt.pattern, tt.timeMs))
			assert.Equal(t, tt.want, got.Status)
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	p := perf("CCICICCICI", 2500)
	first := Classify(p)
	second := Classify(p)
	assert.Equal(t, first, second)
}

func TestClassifyEmptyHistory(t *testing.T) {
	got := Classify(models.WordPerformance{WordID: "w1"})
	assert.Equal(t, StatusNew, got.Status)
	assert.Zero(t, got.Accuracy)
	assert.Zero(t, got.AvgResponseTimeMs)
	assert.Zero(t, got.CurrentStreak)
	assert.Equal(t, TrendStable, got.AccuracyTrend)
	assert.Equal(t, TrendStable, got.SpeedTrend)
}

func TestClassifyMetrics(t *testing.T) {
	p := perf("CCIC", 2000)
	p.Attempts[1].UsedHint = true
	p.Attempts[1].HintsCount = 2

	got := Classify(p)
	assert.Equal(t, 4, got.TotalAttempts)
	assert.Equal(t, 3, got.CorrectAttempts)
	assert.Equal(t, 75, got.Accuracy)
	assert.Equal(t, 2000, got.AvgResponseTimeMs)
	assert.Equal(t, 2, got.AvgTimeSeconds)
	assert.Equal(t, 1, got.HintsUsed)
	assert.Equal(t, 25, got.HintsPercentage)
	assert.Equal(t, 1, got.CurrentStreak)
	assert.False(t, got.NeedsWork)
	assert.False(t, got.Mastered)
}

func TestClassifyAccuracyBounds(t *testing.T) {
	patterns := []string{"C", "I", "CI", "CCCCCCCCCC", "IIIIIIIIII", "CICICICICI"}
	for _, pattern := range patterns {
		got := Classify(perf(pattern, 1500))
		require.GreaterOrEqual(t, got.Accuracy, 0, pattern)
		require.LessOrEqual(t, got.Accuracy, 100, pattern)
		correct := 0
		for _, c := range pattern {
			if c == 'C' {
				correct++
			}
		}
		require.Equal(t, models.RoundPercentage(correct, len(pattern)), got.Accuracy, pattern)
	}
}

func TestClassifyCurrentStreak(t *testing.T) {
	tests := []struct {
		pattern string
		want    int
	}{
		{"CCCCC", 5},
		{"IICCC", 3},
		{"CCCCI", 0},
		{"", 0},
	}
	for _, tt := range tests {
		got := Classify(perf(tt.pattern, 1000))
		assert.Equal(t, tt.want, got.CurrentStreak, tt.pattern)
	}
}

func TestAccuracyTrend(t *testing.T) {
	improving := Classify(perf("IIIICCCC", 1000))
	assert.Equal(t, TrendImproving, improving.AccuracyTrend)

	declining := Classify(perf("CCCCIIII", 1000))
	assert.Equal(t, TrendDeclining, declining.AccuracyTrend)

	stable := Classify(perf("CICICICI", 1000))
	assert.Equal(t, TrendStable, stable.AccuracyTrend)

	tooShort := Classify(perf("CCC", 1000))
	assert.Equal(t, TrendStable, tooShort.AccuracyTrend)
}

func TestSpeedTrendFasterIsImproving(t *testing.T) {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	fastLater := models.WordPerformance{WordID: "w1"}
	slowLater := models.WordPerformance{WordID: "w2"}
	for i := 0; i < 8; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		fast := 4000
		slow := 1000
		if i >= 4 {
			fast, slow = 1000, 4000
		}
		fastLater.Attempts = append(fastLater.Attempts, models.Attempt{Correct: true, TimeSpentMs: fast, Timestamp: ts})
		slowLater.Attempts = append(slowLater.Attempts, models.Attempt{Correct: true, TimeSpentMs: slow, Timestamp: ts})
	}

	assert.Equal(t, TrendImproving, Classify(fastLater).SpeedTrend)
	assert.Equal(t, TrendDeclining, Classify(slowLater).SpeedTrend)
}

func TestClassifySkipsMalformedAttempts(t *testing.T) {
	p := perf("CCC", 1000)
	p.Attempts = append(p.Attempts, models.Attempt{Correct: false, TimeSpentMs: -50, Timestamp: p.Attempts[2].Timestamp.Add(time.Minute)})
	p.Attempts = append(p.Attempts, models.Attempt{Correct: false, TimeSpentMs: 100}) // zero timestamp

	got := Classify(p)
	assert.Equal(t, 2, got.SkippedAttempts)
	assert.Equal(t, 3, got.TotalAttempts)
	assert.Equal(t, 100, got.Accuracy)
}

func TestClassifyOrdersAttemptsByTimestamp(t *testing.T) {
	// Same attempts delivered out of order must classify identically.
	p := perf("IICCC", 1000)
	shuffled := models.WordPerformance{WordID: p.WordID, Attempts: []models.Attempt{
		p.Attempts[3], p.Attempts[0], p.Attempts[4], p.Attempts[1], p.Attempts[2],
	}}

	assert.Equal(t, Classify(p).Status, Classify(shuffled).Status)
	assert.Equal(t, Classify(p).CurrentStreak, Classify(shuffled).CurrentStreak)
}
