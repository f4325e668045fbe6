package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ChapterTestStats is the per-chapter slice of one completed test.
type ChapterTestStats struct {
	TotalWords     int `json:"total_words"`
	CorrectWords   int `json:"correct_words"`
	IncorrectWords int `json:"incorrect_words"`
	HintsUsed      int `json:"hints_used"`
	Percentage     int `json:"percentage"`
}

// TestParameters records how a test was configured when it ran.
type TestParameters struct {
	Mode         string   `json:"mode"`
	Chapters     []string `json:"chapters,omitempty"`
	WordCount    int      `json:"word_count"`
	HintsAllowed bool     `json:"hints_allowed"`
}

// TestHistoryItem is one completed test. Items are immutable once
// created; the stored difficulty is never retroactively recalculated
// when word statuses later change.
type TestHistoryItem struct {
	ID             string          `json:"id" db:"id"`
	Timestamp      time.Time       `json:"timestamp" db:"timestamp"`
	TotalWords     int             `json:"total_words" db:"total_words"`
	CorrectWords   int             `json:"correct_words" db:"correct_words"`
	IncorrectWords int             `json:"incorrect_words" db:"incorrect_words"`
	HintsUsed      int             `json:"hints_used" db:"hints_used"`
	TotalTime      int             `json:"total_time" db:"total_time"`
	AvgTimePerWord int             `json:"avg_time_per_word" db:"avg_time_per_word"`
	Percentage     int             `json:"percentage" db:"percentage"`
	WrongWords     StringList      `json:"wrong_words" db:"wrong_words"`
	ChapterStats   ChapterStatsMap `json:"chapter_stats" db:"chapter_stats"`
	Difficulty     string          `json:"difficulty" db:"difficulty"`
	TestParameters TestParameters  `json:"test_parameters" db:"test_parameters"`
}

// ChapterStatsMap stores per-chapter test stats as a JSON text column.
type ChapterStatsMap map[string]ChapterTestStats

// Value implements driver.Valuer.
func (m ChapterStatsMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chapter stats: %v", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (m *ChapterStatsMap) Scan(src interface{}) error {
	return scanJSON(src, m)
}

// Value implements driver.Valuer.
func (p TestParameters) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal test parameters: %v", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (p *TestParameters) Scan(src interface{}) error {
	return scanJSON(src, p)
}

// StringList stores a list of strings as a JSON text column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal string list: %v", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

// scanJSON decodes a TEXT or BLOB column into dst.
func scanJSON(src, dst interface{}) error {
	if src == nil {
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported column type %T", src)
	}
}
