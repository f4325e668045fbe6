package analytics

import (
	"sort"
	"time"

	"github.com/example/itabot/pkg/models"
)

const (
	// streakScanCap bounds the backward walk when computing the study
	// streak.
	streakScanCap = 365

	// dateKeyLayout is the daily bucket key format (local calendar
	// date).
	dateKeyLayout = "2006-01-02"
	// monthKeyLayout is the monthly bucket key format.
	monthKeyLayout = "2006-01"
)

// Fallback percentiles used when there is no timing sample at all, so
// dashboards always have something to render.
const (
	defaultP25 = 2000
	defaultP50 = 3000
	defaultP75 = 4000
	defaultP90 = 5000
)

// Engine folds attempt history, word performance and the running
// counters into the views consumed by dashboards. Every call is a full
// recomputation over the snapshot it is given: the engine keeps no
// state between calls, so concurrent writers only ever affect which
// snapshot the caller passes in.
type Engine struct {
	now func() time.Time
}

// NewEngine returns an engine using the wall clock.
func NewEngine() *Engine {
	return NewEngineWithClock(time.Now)
}

// NewEngineWithClock returns an engine with an injected clock. Streak
// and weekly bucketing depend on "today", so tests pin it.
func NewEngineWithClock(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// Snapshot is the input to one aggregation call: plain, already
// deserialized data as handed over by the persistence layer.
type Snapshot struct {
	Words        []models.Word
	Performances []models.WordPerformance
	History      []models.TestHistoryItem
	Stats        *models.Statistics
}

// DayActivity is one zero-filled bucket of the weekly view.
type DayActivity struct {
	Date     string `json:"date"`
	Tests    int    `json:"tests"`
	Correct  int    `json:"correct"`
	Total    int    `json:"total"`
	Accuracy int    `json:"accuracy"`
}

// ChapterProgress is the rollup for one chapter across all attempts.
type ChapterProgress struct {
	Correct    int `json:"correct"`
	Total      int `json:"total"`
	Hints      int `json:"hints"`
	Percentage int `json:"percentage"`
}

// TimePercentiles is the response-time distribution in milliseconds.
type TimePercentiles struct {
	P25 int `json:"p25"`
	P50 int `json:"p50"`
	P75 int `json:"p75"`
	P90 int `json:"p90"`
}

// AggregatedStatistics is the full dashboard-ready rollup. All
// percentages are rounded here, at the exposure point, never during
// accumulation.
type AggregatedStatistics struct {
	TotalWords     int `json:"total_words"`
	TrackedWords   int `json:"tracked_words"`
	TestsCompleted int `json:"tests_completed"`
	AverageScore   int `json:"average_score"`

	TotalAttempts   int `json:"total_attempts"`
	CorrectAttempts int `json:"correct_attempts"`
	OverallAccuracy int `json:"overall_accuracy"`
	HintsUsed       int `json:"hints_used"`
	TimeSpentMs     int `json:"time_spent_ms"`

	StreakDays int           `json:"streak_days"`
	Weekly     []DayActivity `json:"weekly"`

	Monthly  map[string]models.MonthlyStats `json:"monthly"`
	Chapters map[string]ChapterProgress     `json:"chapters"`

	StatusDistribution map[WordStatus]int `json:"status_distribution"`
	WordsNeedingWork   int                `json:"words_needing_work"`
	MasteredWords      int                `json:"mastered_words"`

	TimePercentiles TimePercentiles `json:"time_percentiles"`

	// SkippedRecords counts malformed records that were ignored during
	// aggregation instead of failing it.
	SkippedRecords int `json:"skipped_records,omitempty"`

	// Analyses carries the per-word classification the distribution
	// was tallied from, for callers that need both.
	Analyses []WordAnalysis `json:"analyses,omitempty"`
}

// Aggregate computes the full rollup for a snapshot. It never fails:
// missing or partial data degrades to zeroed fields, and malformed
// records are skipped and counted.
func (e *Engine) Aggregate(snap Snapshot) AggregatedStatistics {
	agg := AggregatedStatistics{
		TotalWords:         len(snap.Words),
		Monthly:            make(map[string]models.MonthlyStats),
		Chapters:           make(map[string]ChapterProgress),
		StatusDistribution: make(map[WordStatus]int, len(AllStatuses)),
	}
	for _, s := range AllStatuses {
		agg.StatusDistribution[s] = 0
	}

	var times []int
	for _, perf := range snap.Performances {
		if perf.WordID == "" {
			agg.SkippedRecords++
			continue
		}
		agg.TrackedWords++

		analysis := Classify(perf)
		agg.SkippedRecords += analysis.SkippedAttempts
		agg.Analyses = append(agg.Analyses, analysis)
		agg.StatusDistribution[analysis.Status]++
		if analysis.Mastered {
			agg.MasteredWords++
		}

		agg.TotalAttempts += analysis.TotalAttempts
		agg.CorrectAttempts += analysis.CorrectAttempts
		agg.HintsUsed += analysis.HintsUsed

		chapter := perf.Chapter
		if chapter == "" {
			chapter = "uncategorized"
		}
		progress := agg.Chapters[chapter]
		for _, a := range perf.Attempts {
			if !a.Valid() {
				continue
			}
			progress.Total++
			if a.Correct {
				progress.Correct++
			}
			if a.UsedHint {
				progress.Hints++
			}
			agg.TimeSpentMs += a.TimeSpentMs
			times = append(times, a.TimeSpentMs)
		}
		agg.Chapters[chapter] = progress
	}

	agg.WordsNeedingWork = agg.StatusDistribution[StatusStruggling] +
		agg.StatusDistribution[StatusCritical] +
		agg.StatusDistribution[StatusInconsistent]
	agg.OverallAccuracy = models.RoundPercentage(agg.CorrectAttempts, agg.TotalAttempts)
	for chapter, progress := range agg.Chapters {
		progress.Percentage = models.RoundPercentage(progress.Correct, progress.Total)
		agg.Chapters[chapter] = progress
	}

	agg.TimePercentiles = Percentiles(times)

	for _, item := range snap.History {
		if item.TotalWords <= 0 || item.Timestamp.IsZero() {
			agg.SkippedRecords++
			continue
		}
		agg.TestsCompleted++
		month := item.Timestamp.Format(monthKeyLayout)
		stats := agg.Monthly[month]
		stats.Tests++
		stats.Correct += item.CorrectWords
		stats.Total += item.TotalWords
		agg.Monthly[month] = stats
	}

	if snap.Stats != nil {
		agg.AverageScore = int(snap.Stats.AverageScore + 0.5)
		agg.StreakDays = e.ComputeStreak(snap.Stats.DailyProgress)
		agg.Weekly = e.weeklyActivity(snap.Stats.DailyProgress)
	} else {
		agg.Weekly = e.weeklyActivity(nil)
	}

	return agg
}

// ApplyTestResult folds one completed test into the running
// accumulator. It must be called exactly once per test, before the
// history item is considered part of any snapshot; the running average
// uses the counters as they were before this test.
func (e *Engine) ApplyTestResult(stats *models.Statistics, item models.TestHistoryItem) {
	accuracy := float64(models.RoundPercentage(item.CorrectWords, item.TotalWords))

	// Running weighted mean over all prior test accuracies. The old
	// TestsCompleted counter is the weight, so the order of these two
	// lines matters.
	stats.AverageScore = (stats.AverageScore*float64(stats.TestsCompleted) + accuracy) /
		float64(stats.TestsCompleted+1)
	stats.TestsCompleted++

	stats.TotalWords += item.TotalWords
	stats.CorrectAnswers += item.CorrectWords
	stats.IncorrectAnswers += item.IncorrectWords
	stats.HintsUsed += item.HintsUsed
	stats.TimeSpent += item.TotalTime

	switch item.Difficulty {
	case DifficultyEasy:
		stats.DifficultyStats.Easy++
	case DifficultyHard:
		stats.DifficultyStats.Hard++
	default:
		stats.DifficultyStats.Medium++
	}

	day := item.Timestamp.Format(dateKeyLayout)
	if stats.DailyProgress == nil {
		stats.DailyProgress = models.DailyProgressMap{}
	}
	daily := stats.DailyProgress[day]
	daily.Tests++
	daily.Correct += item.CorrectWords
	daily.Total += item.TotalWords
	daily.Hints += item.HintsUsed
	daily.TimeSpent += item.TotalTime
	stats.DailyProgress[day] = daily

	month := item.Timestamp.Format(monthKeyLayout)
	if stats.MonthlyStats == nil {
		stats.MonthlyStats = models.MonthlyStatsMap{}
	}
	monthly := stats.MonthlyStats[month]
	monthly.Tests++
	monthly.Correct += item.CorrectWords
	monthly.Total += item.TotalWords
	stats.MonthlyStats[month] = monthly

	if stats.CategoriesProgress == nil {
		stats.CategoriesProgress = models.CategoryProgressMap{}
	}
	for chapter, cs := range item.ChapterStats {
		progress := stats.CategoriesProgress[chapter]
		progress.Correct += cs.CorrectWords
		progress.Total += cs.TotalWords
		progress.Hints += cs.HintsUsed
		stats.CategoriesProgress[chapter] = progress
	}

	stats.LastStudyDate = day
	stats.StreakDays = e.ComputeStreak(stats.DailyProgress)
}

// ComputeStreak walks backward from today counting days with at least
// one completed test. Today with no activity yet is skipped over
// rather than breaking the streak; any other empty day ends it. The
// walk is capped at a year.
func (e *Engine) ComputeStreak(daily models.DailyProgressMap) int {
	if len(daily) == 0 {
		return 0
	}

	today := e.now()
	streak := 0
	for offset := 0; offset < streakScanCap; offset++ {
		key := today.AddDate(0, 0, -offset).Format(dateKeyLayout)
		if daily[key].Tests > 0 {
			streak++
			continue
		}
		if offset == 0 {
			// No activity recorded yet today; the streak may still be
			// alive from yesterday.
			continue
		}
		// First real gap ends the streak.
		break
	}
	return streak
}

// weeklyActivity returns the last 7 calendar days, oldest first, with
// zero-filled buckets for days without activity.
func (e *Engine) weeklyActivity(daily models.DailyProgressMap) []DayActivity {
	today := e.now()
	week := make([]DayActivity, 0, 7)
	for offset := 6; offset >= 0; offset-- {
		key := today.AddDate(0, 0, -offset).Format(dateKeyLayout)
		bucket := daily[key]
		week = append(week, DayActivity{
			Date:     key,
			Tests:    bucket.Tests,
			Correct:  bucket.Correct,
			Total:    bucket.Total,
			Accuracy: models.RoundPercentage(bucket.Correct, bucket.Total),
		})
	}
	return week
}

// Percentiles computes the p25/p50/p75/p90 of a sample of response
// times. An empty sample yields fixed fallback defaults instead of
// failing.
func Percentiles(sample []int) TimePercentiles {
	if len(sample) == 0 {
		return TimePercentiles{P25: defaultP25, P50: defaultP50, P75: defaultP75, P90: defaultP90}
	}
	sorted := make([]int, len(sample))
	copy(sorted, sample)
	sort.Ints(sorted)

	at := func(p float64) int {
		idx := int(float64(len(sorted)) * p)
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		return sorted[idx]
	}
	return TimePercentiles{
		P25: at(0.25),
		P50: at(0.50),
		P75: at(0.75),
		P90: at(0.90),
	}
}
