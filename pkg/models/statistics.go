package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// CategoryProgress accumulates per-chapter answer counters.
type CategoryProgress struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
	Hints   int `json:"hints"`
}

// DailyProgress accumulates activity for one calendar day.
type DailyProgress struct {
	Tests     int `json:"tests"`
	Correct   int `json:"correct"`
	Total     int `json:"total"`
	Hints     int `json:"hints"`
	TimeSpent int `json:"time_spent"`
}

// MonthlyStats accumulates activity for one year-month.
type MonthlyStats struct {
	Tests   int `json:"tests"`
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// DifficultyStats counts completed tests per difficulty label.
type DifficultyStats struct {
	Easy   int `json:"easy"`
	Medium int `json:"medium"`
	Hard   int `json:"hard"`
}

// Value implements driver.Valuer.
func (d DifficultyStats) Value() (driver.Value, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal difficulty stats: %v", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (d *DifficultyStats) Scan(src interface{}) error { return scanJSON(src, d) }

// Statistics is the single running accumulator record. It is mutated
// exactly once per completed test, in the same transaction as the
// corresponding TestHistoryItem and WordPerformance updates.
//
// AverageScore is maintained as a running weighted mean:
// (prevAvg*prevCount + newAccuracy) / (prevCount+1). It is never
// recomputed from history, so it stays correct even when the test
// history is pruned independently.
type Statistics struct {
	TotalWords       int     `json:"total_words" db:"total_words"`
	CorrectAnswers   int     `json:"correct_answers" db:"correct_answers"`
	IncorrectAnswers int     `json:"incorrect_answers" db:"incorrect_answers"`
	HintsUsed        int     `json:"hints_used" db:"hints_used"`
	TimeSpent        int     `json:"time_spent" db:"time_spent"`
	TestsCompleted   int     `json:"tests_completed" db:"tests_completed"`
	AverageScore     float64 `json:"average_score" db:"average_score"`

	CategoriesProgress CategoryProgressMap `json:"categories_progress" db:"categories_progress"`
	DailyProgress      DailyProgressMap    `json:"daily_progress" db:"daily_progress"`
	MonthlyStats       MonthlyStatsMap     `json:"monthly_stats" db:"monthly_stats"`
	DifficultyStats    DifficultyStats     `json:"difficulty_stats" db:"difficulty_stats"`

	StreakDays    int    `json:"streak_days" db:"streak_days"`
	LastStudyDate string `json:"last_study_date" db:"last_study_date"`
}

// NewStatistics returns an empty accumulator with all maps allocated.
func NewStatistics() *Statistics {
	return &Statistics{
		CategoriesProgress: CategoryProgressMap{},
		DailyProgress:      DailyProgressMap{},
		MonthlyStats:       MonthlyStatsMap{},
	}
}

// CategoryProgressMap stores per-chapter progress as a JSON text column.
type CategoryProgressMap map[string]CategoryProgress

// Value implements driver.Valuer.
func (m CategoryProgressMap) Value() (driver.Value, error) { return mapValue(m) }

// Scan implements sql.Scanner.
func (m *CategoryProgressMap) Scan(src interface{}) error { return scanJSON(src, m) }

// DailyProgressMap stores per-day progress keyed by ISO date (YYYY-MM-DD).
type DailyProgressMap map[string]DailyProgress

// Value implements driver.Valuer.
func (m DailyProgressMap) Value() (driver.Value, error) { return mapValue(m) }

// Scan implements sql.Scanner.
func (m *DailyProgressMap) Scan(src interface{}) error { return scanJSON(src, m) }

// MonthlyStatsMap stores per-month progress keyed by YYYY-MM.
type MonthlyStatsMap map[string]MonthlyStats

// Value implements driver.Valuer.
func (m MonthlyStatsMap) Value() (driver.Value, error) { return mapValue(m) }

// Scan implements sql.Scanner.
func (m *MonthlyStatsMap) Scan(src interface{}) error { return scanJSON(src, m) }

func mapValue(m interface{}) (driver.Value, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal map column: %v", err)
	}
	if string(data) == "null" {
		return "{}", nil
	}
	return string(data), nil
}
