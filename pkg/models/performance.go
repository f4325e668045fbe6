package models

import "time"

// WordPerformance holds the full attempt history for one word together
// with cached derived counters. The attempts slice is the only
// authoritative source: Recompute derives the cached fields from it and
// must be called whenever attempts change.
type WordPerformance struct {
	WordID   string    `json:"word_id" db:"word_id"`
	English  string    `json:"english" db:"english"`
	Italian  string    `json:"italian" db:"italian"`
	Chapter  string    `json:"chapter,omitempty" db:"chapter"`
	Attempts []Attempt `json:"attempts"`

	// Derived fields, always a pure function of Attempts.
	TotalAttempts       int       `json:"total_attempts" db:"total_attempts"`
	CorrectAttempts     int       `json:"correct_attempts" db:"correct_attempts"`
	Accuracy            int       `json:"accuracy" db:"accuracy"`
	AverageResponseTime int       `json:"average_response_time" db:"average_response_time"`
	LastAttemptAt       time.Time `json:"last_attempt_at" db:"last_attempt_at"`
}

// Recompute rebuilds every derived field from the attempts slice.
// Counters are recomputed from scratch rather than incrementally
// patched so the cached values can never drift from the attempt log.
func (p *WordPerformance) Recompute() {
	p.TotalAttempts = len(p.Attempts)
	p.CorrectAttempts = 0
	p.Accuracy = 0
	p.AverageResponseTime = 0
	p.LastAttemptAt = time.Time{}

	if len(p.Attempts) == 0 {
		return
	}

	totalTime := 0
	for _, a := range p.Attempts {
		if a.Correct {
			p.CorrectAttempts++
		}
		totalTime += a.TimeSpentMs
		if a.Timestamp.After(p.LastAttemptAt) {
			p.LastAttemptAt = a.Timestamp
		}
	}

	p.Accuracy = RoundPercentage(p.CorrectAttempts, p.TotalAttempts)
	p.AverageResponseTime = totalTime / len(p.Attempts)
}

// RoundPercentage returns round(part/total*100), or 0 when total is
// zero. Every percentage exposed by the application goes through this
// helper so division by zero can never produce NaN or Inf.
func RoundPercentage(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(float64(part)/float64(total)*100 + 0.5)
}
