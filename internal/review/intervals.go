package review

import (
	"fmt"
	"sort"
	"time"

	"github.com/example/itabot/internal/analytics"
	"github.com/example/itabot/pkg/models"
)

// Interval policy. Words in trouble come back quickly, settled words
// stretch out. A live correct streak lengthens the interval, capped so
// nothing ever disappears from rotation for more than two months.
const (
	MaxIntervalDays = 60
	// streakBonus is the fraction of the base interval added per
	// consecutive correct answer.
	streakBonus = 0.2
)

var baseIntervals = map[analytics.WordStatus]int{
	analytics.StatusCritical:     1,
	analytics.StatusStruggling:   1,
	analytics.StatusInconsistent: 2,
	analytics.StatusNew:          1,
	analytics.StatusPromising:    3,
	analytics.StatusImproving:    7,
	analytics.StatusConsolidated: 14,
}

// Recommendation is the suggested next practice for one word.
type Recommendation struct {
	WordID       string               `json:"word_id"`
	English      string               `json:"english"`
	Status       analytics.WordStatus `json:"status"`
	IntervalDays int                  `json:"interval_days"`
	DueAt        time.Time            `json:"due_at"`
	Reason       string               `json:"reason"`
}

// IntervalDays returns the suggested days until the next practice of a
// word given its status and current correct streak.
func IntervalDays(status analytics.WordStatus, streak int) int {
	base, ok := baseIntervals[status]
	if !ok {
		base = 1
	}
	interval := base + int(float64(base)*streakBonus*float64(streak))
	if interval > MaxIntervalDays {
		interval = MaxIntervalDays
	}
	if interval < 1 {
		interval = 1
	}
	return interval
}

// Recommend classifies every tracked word and returns its suggested
// next review, most urgent first. Words with no attempts yet are due
// immediately.
func Recommend(performances []models.WordPerformance, now time.Time) []Recommendation {
	recs := make([]Recommendation, 0, len(performances))
	for _, perf := range performances {
		if perf.WordID == "" {
			continue
		}
		analysis := analytics.Classify(perf)
		days := IntervalDays(analysis.Status, analysis.CurrentStreak)

		since := perf.LastAttemptAt
		if since.IsZero() {
			since = now.AddDate(0, 0, -days) // never practiced: due now
		}
		recs = append(recs, Recommendation{
			WordID:       perf.WordID,
			English:      perf.English,
			Status:       analysis.Status,
			IntervalDays: days,
			DueAt:        since.AddDate(0, 0, days),
			Reason:       intervalReason(analysis.Status, analysis.CurrentStreak, days),
		})
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].DueAt.Equal(recs[j].DueAt) {
			return recs[i].DueAt.Before(recs[j].DueAt)
		}
		return recs[i].English < recs[j].English
	})
	return recs
}

// Due filters recommendations down to the ones already due, limited to
// at most limit entries (0 means no limit).
func Due(recs []Recommendation, now time.Time, limit int) []Recommendation {
	due := make([]Recommendation, 0, len(recs))
	for _, r := range recs {
		if r.DueAt.After(now) {
			continue
		}
		due = append(due, r)
		if limit > 0 && len(due) == limit {
			break
		}
	}
	return due
}

func intervalReason(status analytics.WordStatus, streak, days int) string {
	if streak > 0 {
		return fmt.Sprintf("%s word with a streak of %d: next review in %d day(s)", status, streak, days)
	}
	return fmt.Sprintf("%s word: next review in %d day(s)", status, days)
}
