package models

import "time"

// Word represents one English/Italian pair to be learned
type Word struct {
	ID        string    `json:"id" db:"id"`
	English   string    `json:"english" db:"english"`
	Italian   string    `json:"italian" db:"italian"`
	Chapter   string    `json:"chapter,omitempty" db:"chapter"`
	Group     string    `json:"group,omitempty" db:"word_group"`
	Notes     string    `json:"notes,omitempty" db:"notes"`
	Sentences string    `json:"sentences,omitempty" db:"sentences"`
	Learned   bool      `json:"learned" db:"learned"`
	Difficult bool      `json:"difficult" db:"difficult"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
