package models

import "time"

// Attempt is one recorded answer event for one word. Attempts are
// append-only facts: they are never mutated or deleted individually,
// only whole performance records are reset.
type Attempt struct {
	Correct     bool      `json:"correct" db:"correct"`
	TimeSpentMs int       `json:"time_spent_ms" db:"time_spent_ms"`
	UsedHint    bool      `json:"used_hint" db:"used_hint"`
	HintsCount  int       `json:"hints_count" db:"hints_count"`
	Timestamp   time.Time `json:"timestamp" db:"timestamp"`
}

// Valid reports whether the attempt is a well-formed record. Malformed
// attempts are skipped (and counted) during aggregation rather than
// aborting it.
func (a Attempt) Valid() bool {
	return a.TimeSpentMs >= 0 && a.HintsCount >= 0 && !a.Timestamp.IsZero()
}
