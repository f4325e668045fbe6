package analytics

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/itabot/pkg/models"
)

const (
	// MinimumTests is how much history a projection needs. Below it the
	// projector reports insufficient data instead of guessing.
	MinimumTests = 5

	// defaultCacheTTL is how long a projection stays fresh. Projections
	// are expensive relative to how fast they go stale, so callers get
	// the cached result until the TTL passes or they invalidate.
	defaultCacheTTL = 5 * time.Minute

	// accelerationLimit caps how many opportunities are reported.
	accelerationLimit = 5
)

// TrendReport is a direction plus magnitude for one time window, with
// a plain-language rationale.
type TrendReport struct {
	Direction TrendDirection `json:"direction"`
	ChangePct float64        `json:"change_pct"`
	Rationale string         `json:"rationale"`
}

// MasteryTimeline extrapolates when the tracked vocabulary could be
// fully mastered at the current pace.
type MasteryTimeline struct {
	MasteredWords      int     `json:"mastered_words"`
	TrackedWords       int     `json:"tracked_words"`
	MasteryPercentage  int     `json:"mastery_percentage"`
	WordsPerWeek       float64 `json:"words_per_week"`
	WeeksToFullMastery int     `json:"weeks_to_full_mastery"`
	Rationale          string  `json:"rationale"`
}

// StudySchedule is the recommended practice cadence.
type StudySchedule struct {
	SessionsPerWeek int    `json:"sessions_per_week"`
	Rationale       string `json:"rationale"`
}

// AccelerationOpportunity is a word whose status flip would raise the
// mastery percentage the soonest.
type AccelerationOpportunity struct {
	WordID        string     `json:"word_id"`
	English       string     `json:"english"`
	Status        WordStatus `json:"status"`
	Accuracy      int        `json:"accuracy"`
	CurrentStreak int        `json:"current_streak"`
	Rationale     string     `json:"rationale"`
}

// TrendsAnalysis is the long-horizon projection built on top of the
// aggregation rollup. When Insufficient is set only Reason is
// meaningful; callers render an empty state instead of treating it as
// an error.
type TrendsAnalysis struct {
	Insufficient bool      `json:"insufficient"`
	Reason       string    `json:"reason,omitempty"`
	GeneratedAt  time.Time `json:"generated_at"`

	Weekly       TrendReport               `json:"weekly"`
	Monthly      TrendReport               `json:"monthly"`
	Mastery      MasteryTimeline           `json:"mastery"`
	Schedule     StudySchedule             `json:"schedule"`
	Acceleration []AccelerationOpportunity `json:"acceleration"`
}

// Projector computes trend projections with a small TTL cache. The
// cache is never invalidated by observation: callers own invalidation
// and must call Invalidate after any write that changes attempts or
// history.
type Projector struct {
	engine *Engine
	ttl    time.Duration
	now    func() time.Time

	mu       sync.Mutex
	cached   *TrendsAnalysis
	cachedAt time.Time
}

// NewProjector returns a projector over the given engine with the
// default TTL.
func NewProjector(engine *Engine) *Projector {
	return &Projector{engine: engine, ttl: defaultCacheTTL, now: engine.now}
}

// NewProjectorWithTTL returns a projector with a custom cache TTL.
func NewProjectorWithTTL(engine *Engine, ttl time.Duration) *Projector {
	return &Projector{engine: engine, ttl: ttl, now: engine.now}
}

// Project returns the cached projection when fresh, otherwise a full
// recomputation over the snapshot.
func (p *Projector) Project(snap Snapshot) TrendsAnalysis {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil && p.now().Sub(p.cachedAt) < p.ttl {
		return *p.cached
	}

	analysis := p.compute(snap)
	p.cached = &analysis
	p.cachedAt = p.now()
	return analysis
}

// Invalidate drops the cached projection so the next Project call
// recomputes.
func (p *Projector) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached = nil
}

func (p *Projector) compute(snap Snapshot) TrendsAnalysis {
	analysis := TrendsAnalysis{GeneratedAt: p.now()}

	valid := make([]models.TestHistoryItem, 0, len(snap.History))
	for _, item := range snap.History {
		if item.TotalWords > 0 && !item.Timestamp.IsZero() {
			valid = append(valid, item)
		}
	}
	if len(valid) < MinimumTests {
		analysis.Insufficient = true
		analysis.Reason = fmt.Sprintf("need at least %d completed tests for projections, have %d", MinimumTests, len(valid))
		return analysis
	}
	sort.Slice(valid, func(i, j int) bool {
		return valid[i].Timestamp.Before(valid[j].Timestamp)
	})

	agg := p.engine.Aggregate(snap)

	analysis.Weekly = p.windowTrend(valid, 7, "week")
	analysis.Monthly = p.windowTrend(valid, 30, "month")
	analysis.Mastery = p.masteryTimeline(valid, agg)
	analysis.Schedule = p.studySchedule(agg)
	analysis.Acceleration = accelerationOpportunities(agg)

	return analysis
}

// windowTrend compares test accuracy in the most recent window of days
// against the window before it.
func (p *Projector) windowTrend(history []models.TestHistoryItem, days int, label string) TrendReport {
	now := p.now()
	recentFrom := now.AddDate(0, 0, -days)
	previousFrom := now.AddDate(0, 0, -2*days)

	var recent, previous []models.TestHistoryItem
	for _, item := range history {
		switch {
		case !item.Timestamp.Before(recentFrom):
			recent = append(recent, item)
		case !item.Timestamp.Before(previousFrom):
			previous = append(previous, item)
		}
	}

	if len(recent) == 0 || len(previous) == 0 {
		return TrendReport{
			Direction: TrendStable,
			Rationale: fmt.Sprintf("not enough tests in consecutive %ss to compare", label),
		}
	}

	recentAcc := meanAccuracy(recent)
	previousAcc := meanAccuracy(previous)
	change := recentAcc - previousAcc

	report := TrendReport{ChangePct: change}
	switch {
	case change > 5:
		report.Direction = TrendImproving
		report.Rationale = fmt.Sprintf("accuracy rose from %.0f%% to %.0f%% over the last %s", previousAcc, recentAcc, label)
	case change < -5:
		report.Direction = TrendDeclining
		report.Rationale = fmt.Sprintf("accuracy fell from %.0f%% to %.0f%% over the last %s", previousAcc, recentAcc, label)
	default:
		report.Direction = TrendStable
		report.Rationale = fmt.Sprintf("accuracy held around %.0f%% over the last %s", recentAcc, label)
	}
	return report
}

func (p *Projector) masteryTimeline(history []models.TestHistoryItem, agg AggregatedStatistics) MasteryTimeline {
	timeline := MasteryTimeline{
		MasteredWords:     agg.MasteredWords,
		TrackedWords:      agg.TrackedWords,
		MasteryPercentage: models.RoundPercentage(agg.MasteredWords, agg.TrackedWords),
	}

	first := history[0].Timestamp
	weeks := p.now().Sub(first).Hours() / (24 * 7)
	if weeks < 1 {
		weeks = 1
	}
	timeline.WordsPerWeek = float64(agg.MasteredWords) / weeks

	remaining := agg.TrackedWords - agg.MasteredWords
	switch {
	case remaining <= 0:
		timeline.Rationale = "every tracked word is already mastered"
	case timeline.WordsPerWeek <= 0:
		timeline.Rationale = "no words mastered yet, so no timeline can be extrapolated"
	default:
		timeline.WeeksToFullMastery = int(float64(remaining)/timeline.WordsPerWeek + 0.5)
		timeline.Rationale = fmt.Sprintf("at %.1f words mastered per week, the remaining %d words take about %d weeks",
			timeline.WordsPerWeek, remaining, timeline.WeeksToFullMastery)
	}
	return timeline
}

// studySchedule derives a session cadence from the streak and how much
// of the vocabulary still needs work.
func (p *Projector) studySchedule(agg AggregatedStatistics) StudySchedule {
	needsWorkPct := models.RoundPercentage(agg.WordsNeedingWork, agg.TrackedWords)

	schedule := StudySchedule{}
	switch {
	case needsWorkPct >= 40:
		schedule.SessionsPerWeek = 7
		schedule.Rationale = fmt.Sprintf("%d%% of words need work; a short session every day recovers them fastest", needsWorkPct)
	case needsWorkPct >= 15:
		schedule.SessionsPerWeek = 5
		schedule.Rationale = fmt.Sprintf("%d%% of words need work; five sessions a week keeps them moving", needsWorkPct)
	case agg.StreakDays >= 7:
		schedule.SessionsPerWeek = 3
		schedule.Rationale = fmt.Sprintf("vocabulary is in good shape and the %d-day streak shows a steady habit; three sessions a week maintain it", agg.StreakDays)
	default:
		schedule.SessionsPerWeek = 4
		schedule.Rationale = "vocabulary is in good shape; four sessions a week build a steadier habit"
	}
	return schedule
}

// accelerationOpportunities picks the non-mastered words closest to a
// status flip: each flip raises the mastery percentage by one word's
// share, so the nearest ones are the cheapest gains.
func accelerationOpportunities(agg AggregatedStatistics) []AccelerationOpportunity {
	candidates := make([]WordAnalysis, 0, len(agg.Analyses))
	for _, a := range agg.Analyses {
		if a.Mastered || a.TotalAttempts == 0 {
			continue
		}
		candidates = append(candidates, a)
	}
	// Closest to mastery first; a live streak is almost-banked progress.
	sort.Slice(candidates, func(i, j int) bool {
		si := candidates[i].Accuracy + 5*candidates[i].CurrentStreak
		sj := candidates[j].Accuracy + 5*candidates[j].CurrentStreak
		if si != sj {
			return si > sj
		}
		return candidates[i].English < candidates[j].English
	})
	if len(candidates) > accelerationLimit {
		candidates = candidates[:accelerationLimit]
	}

	share := 0.0
	if agg.TrackedWords > 0 {
		share = 100.0 / float64(agg.TrackedWords)
	}
	opportunities := make([]AccelerationOpportunity, 0, len(candidates))
	for _, c := range candidates {
		opportunities = append(opportunities, AccelerationOpportunity{
			WordID:        c.WordID,
			English:       c.English,
			Status:        c.Status,
			Accuracy:      c.Accuracy,
			CurrentStreak: c.CurrentStreak,
			Rationale: fmt.Sprintf("at %d%% accuracy with a streak of %d, mastering %q adds %.1f%% to overall mastery",
				c.Accuracy, c.CurrentStreak, c.English, share),
		})
	}
	return opportunities
}

func meanAccuracy(history []models.TestHistoryItem) float64 {
	if len(history) == 0 {
		return 0
	}
	total := 0.0
	for _, item := range history {
		total += float64(models.RoundPercentage(item.CorrectWords, item.TotalWords))
	}
	return total / float64(len(history))
}
