package analytics

import (
	"sort"

	"github.com/example/itabot/pkg/models"
)

// Classification thresholds. Accuracies are percentages, times are
// milliseconds.
const (
	consolidatedAccuracy = 90
	consolidatedAvgTime  = 3000
	improvingAccuracy    = 70
	improvingRun         = 5
	criticalAccuracy     = 40
	criticalRun          = 3
	strugglingAccuracy   = 60
	inconsistentWindow   = 10
	inconsistentMinimum  = 5
	inconsistentRatio    = 0.3

	needsWorkAccuracy = 70
	masteredAccuracy  = 90

	// trendMinAttempts is the least history needed before a trend is
	// reported; below it both halves are too small to compare.
	trendMinAttempts = 4
	// trendThreshold is the relative change that separates "stable"
	// from a real move (5%).
	trendThreshold = 0.05
)

// WordAnalysis is one fully classified, metric-annotated record for a
// tracked word. Every field is a pure function of the word's attempt
// history.
type WordAnalysis struct {
	WordID  string `json:"word_id"`
	English string `json:"english"`
	Italian string `json:"italian"`
	Chapter string `json:"chapter,omitempty"`

	Status WordStatus `json:"status"`

	TotalAttempts     int `json:"total_attempts"`
	CorrectAttempts   int `json:"correct_attempts"`
	Accuracy          int `json:"accuracy"`
	AvgResponseTimeMs int `json:"avg_response_time_ms"`
	AvgTimeSeconds    int `json:"avg_time_seconds"`
	HintsUsed         int `json:"hints_used"`
	HintsPercentage   int `json:"hints_percentage"`
	CurrentStreak     int `json:"current_streak"`

	AccuracyTrend TrendDirection `json:"accuracy_trend"`
	SpeedTrend    TrendDirection `json:"speed_trend"`

	NeedsWork bool `json:"needs_work"`
	Mastered  bool `json:"mastered"`

	// SkippedAttempts counts malformed attempt records that were
	// ignored rather than aborting the classification.
	SkippedAttempts int `json:"skipped_attempts,omitempty"`
}

// Classify derives the status and all scalar metrics for one word.
// It never fails: a word with no attempts yields StatusNew and
// zero-valued metrics.
func Classify(perf models.WordPerformance) WordAnalysis {
	analysis := WordAnalysis{
		WordID:  perf.WordID,
		English: perf.English,
		Italian: perf.Italian,
		Chapter: perf.Chapter,
	}

	attempts, skipped := sanitizeAttempts(perf.Attempts)
	analysis.SkippedAttempts = skipped
	analysis.Status = classifyAttempts(attempts)
	analysis.TotalAttempts = len(attempts)

	if len(attempts) == 0 {
		analysis.AccuracyTrend = TrendStable
		analysis.SpeedTrend = TrendStable
		return analysis
	}

	totalTime := 0
	for _, a := range attempts {
		if a.Correct {
			analysis.CorrectAttempts++
		}
		if a.UsedHint {
			analysis.HintsUsed++
		}
		totalTime += a.TimeSpentMs
	}

	analysis.Accuracy = models.RoundPercentage(analysis.CorrectAttempts, len(attempts))
	analysis.HintsPercentage = models.RoundPercentage(analysis.HintsUsed, len(attempts))
	analysis.AvgResponseTimeMs = totalTime / len(attempts)
	analysis.AvgTimeSeconds = (analysis.AvgResponseTimeMs + 500) / 1000
	analysis.CurrentStreak = currentStreak(attempts)
	analysis.AccuracyTrend = accuracyTrend(attempts)
	analysis.SpeedTrend = speedTrend(attempts)
	analysis.NeedsWork = analysis.Accuracy < needsWorkAccuracy
	analysis.Mastered = analysis.Accuracy >= masteredAccuracy

	return analysis
}

// classifyAttempts applies the status rules in strict priority order;
// the first matching rule wins.
func classifyAttempts(attempts []models.Attempt) WordStatus {
	if len(attempts) == 0 {
		return StatusNew
	}
	if len(attempts) < 3 {
		return StatusPromising
	}

	correct := 0
	totalTime := 0
	for _, a := range attempts {
		if a.Correct {
			correct++
		}
		totalTime += a.TimeSpentMs
	}
	accuracy := float64(correct) / float64(len(attempts)) * 100
	avgTime := totalTime / len(attempts)

	if accuracy >= consolidatedAccuracy && avgTime <= consolidatedAvgTime {
		return StatusConsolidated
	}
	if accuracy >= improvingAccuracy && allCorrect(lastN(attempts, improvingRun), improvingRun) {
		return StatusImproving
	}
	if accuracy < criticalAccuracy || allIncorrect(lastN(attempts, criticalRun), criticalRun) {
		return StatusCritical
	}
	if accuracy < strugglingAccuracy {
		return StatusStruggling
	}

	window := lastUpTo(attempts, inconsistentWindow)
	if n := len(window); n >= inconsistentMinimum {
		windowCorrect := 0
		for _, a := range window {
			if a.Correct {
				windowCorrect++
			}
		}
		ratio := abs(float64(windowCorrect)-float64(n)/2) / float64(n)
		if ratio < inconsistentRatio {
			return StatusInconsistent
		}
	}

	return StatusPromising
}

// sanitizeAttempts drops malformed records and returns the remainder in
// chronological order.
func sanitizeAttempts(attempts []models.Attempt) ([]models.Attempt, int) {
	clean := make([]models.Attempt, 0, len(attempts))
	skipped := 0
	for _, a := range attempts {
		if !a.Valid() {
			skipped++
			continue
		}
		clean = append(clean, a)
	}
	sort.SliceStable(clean, func(i, j int) bool {
		return clean[i].Timestamp.Before(clean[j].Timestamp)
	})
	return clean, skipped
}

// currentStreak counts consecutive correct attempts ending at the most
// recent one.
func currentStreak(attempts []models.Attempt) int {
	streak := 0
	for i := len(attempts) - 1; i >= 0; i-- {
		if !attempts[i].Correct {
			break
		}
		streak++
	}
	return streak
}

// accuracyTrend compares the accuracy of the older half against the
// recent half. Higher accuracy in the recent half means improving.
func accuracyTrend(attempts []models.Attempt) TrendDirection {
	if len(attempts) < trendMinAttempts {
		return TrendStable
	}
	half := len(attempts) / 2
	first := ratioCorrect(attempts[:half])
	second := ratioCorrect(attempts[half:])
	return compareTrend(first, second, false)
}

// speedTrend compares mean response times between the halves. A LOWER
// time in the recent half means improving (faster answers).
func speedTrend(attempts []models.Attempt) TrendDirection {
	if len(attempts) < trendMinAttempts {
		return TrendStable
	}
	half := len(attempts) / 2
	first := meanTime(attempts[:half])
	second := meanTime(attempts[half:])
	return compareTrend(first, second, true)
}

// compareTrend classifies the move from first to second. When
// lowerIsBetter is set the favorable direction is inverted.
func compareTrend(first, second float64, lowerIsBetter bool) TrendDirection {
	if first == 0 {
		if second == 0 {
			return TrendStable
		}
		if lowerIsBetter {
			return TrendDeclining
		}
		return TrendImproving
	}
	change := (second - first) / first
	if lowerIsBetter {
		change = -change
	}
	if change > trendThreshold {
		return TrendImproving
	}
	if change < -trendThreshold {
		return TrendDeclining
	}
	return TrendStable
}

func ratioCorrect(attempts []models.Attempt) float64 {
	if len(attempts) == 0 {
		return 0
	}
	correct := 0
	for _, a := range attempts {
		if a.Correct {
			correct++
		}
	}
	return float64(correct) / float64(len(attempts))
}

func meanTime(attempts []models.Attempt) float64 {
	if len(attempts) == 0 {
		return 0
	}
	total := 0
	for _, a := range attempts {
		total += a.TimeSpentMs
	}
	return float64(total) / float64(len(attempts))
}

// lastN returns the trailing n attempts, or nil when fewer are
// available. Rules that require exactly n recent attempts use it
// together with the want check in allCorrect/allIncorrect.
func lastN(attempts []models.Attempt, n int) []models.Attempt {
	if len(attempts) < n {
		return nil
	}
	return attempts[len(attempts)-n:]
}

// lastUpTo returns the trailing n attempts, or all of them when fewer
// are available.
func lastUpTo(attempts []models.Attempt, n int) []models.Attempt {
	if len(attempts) <= n {
		return attempts
	}
	return attempts[len(attempts)-n:]
}

func allCorrect(attempts []models.Attempt, want int) bool {
	if len(attempts) != want {
		return false
	}
	for _, a := range attempts {
		if !a.Correct {
			return false
		}
	}
	return true
}

func allIncorrect(attempts []models.Attempt, want int) bool {
	if len(attempts) != want {
		return false
	}
	for _, a := range attempts {
		if a.Correct {
			return false
		}
	}
	return true
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
