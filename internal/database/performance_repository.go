package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/example/itabot/pkg/models"
)

// attemptRow is the attempts table shape. The exported Attempt model
// carries no row identity, so the storage-only columns live here.
type attemptRow struct {
	ID          string    `db:"id"`
	WordID      string    `db:"word_id"`
	Correct     bool      `db:"correct"`
	TimeSpentMs int       `db:"time_spent_ms"`
	UsedHint    bool      `db:"used_hint"`
	HintsCount  int       `db:"hints_count"`
	Timestamp   time.Time `db:"timestamp"`
}

func (r attemptRow) attempt() models.Attempt {
	return models.Attempt{
		Correct:     r.Correct,
		TimeSpentMs: r.TimeSpentMs,
		UsedHint:    r.UsedHint,
		HintsCount:  r.HintsCount,
		Timestamp:   r.Timestamp,
	}
}

// PerformanceRepository builds per-word performance records from the
// attempt log. Performance is never stored as its own table: the
// derived counters are recomputed from attempts on every load, so the
// attempt log stays the single source of truth.
type PerformanceRepository struct{}

// GetAll returns a performance record for every word, including words
// with no attempts yet
func (r *PerformanceRepository) GetAll(ctx context.Context) ([]models.WordPerformance, error) {
	var words []models.Word
	if err := DB.SelectContext(ctx, &words, `SELECT * FROM words ORDER BY chapter, english`); err != nil {
		return nil, fmt.Errorf("failed to get words: %v", err)
	}

	var rows []attemptRow
	if err := DB.SelectContext(ctx, &rows, `SELECT * FROM attempts ORDER BY timestamp`); err != nil {
		return nil, fmt.Errorf("failed to get attempts: %v", err)
	}

	byWord := make(map[string][]models.Attempt)
	for _, row := range rows {
		byWord[row.WordID] = append(byWord[row.WordID], row.attempt())
	}

	performances := make([]models.WordPerformance, 0, len(words))
	for _, word := range words {
		perf := models.WordPerformance{
			WordID:   word.ID,
			English:  word.English,
			Italian:  word.Italian,
			Chapter:  word.Chapter,
			Attempts: byWord[word.ID],
		}
		perf.Recompute()
		performances = append(performances, perf)
	}
	return performances, nil
}

// GetByWordID returns the performance record for one word
func (r *PerformanceRepository) GetByWordID(ctx context.Context, wordID string) (*models.WordPerformance, error) {
	wordRepo := &WordRepository{}
	word, err := wordRepo.GetByID(ctx, wordID)
	if err != nil {
		return nil, err
	}

	var rows []attemptRow
	query := rebind(`SELECT * FROM attempts WHERE word_id = ? ORDER BY timestamp`)
	if err := DB.SelectContext(ctx, &rows, query, wordID); err != nil {
		return nil, fmt.Errorf("failed to get attempts: %v", err)
	}

	perf := &models.WordPerformance{
		WordID:  word.ID,
		English: word.English,
		Italian: word.Italian,
		Chapter: word.Chapter,
	}
	for _, row := range rows {
		perf.Attempts = append(perf.Attempts, row.attempt())
	}
	perf.Recompute()
	return perf, nil
}

// AddAttempt appends one attempt for a word inside an existing
// transaction
func (r *PerformanceRepository) AddAttempt(ctx context.Context, tx *sqlx.Tx, wordID string, attempt models.Attempt) error {
	row := attemptRow{
		ID:          uuid.NewString(),
		WordID:      wordID,
		Correct:     attempt.Correct,
		TimeSpentMs: attempt.TimeSpentMs,
		UsedHint:    attempt.UsedHint,
		HintsCount:  attempt.HintsCount,
		Timestamp:   attempt.Timestamp,
	}
	query := `INSERT INTO attempts (id, word_id, correct, time_spent_ms, used_hint, hints_count, timestamp)
		VALUES (:id, :word_id, :correct, :time_spent_ms, :used_hint, :hints_count, :timestamp)`
	if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to add attempt: %v", err)
	}
	return nil
}

// ResetWord deletes all attempts for one word
func (r *PerformanceRepository) ResetWord(ctx context.Context, wordID string) error {
	query := rebind(`DELETE FROM attempts WHERE word_id = ?`)
	if _, err := DB.ExecContext(ctx, query, wordID); err != nil {
		return fmt.Errorf("failed to reset attempts: %v", err)
	}
	return nil
}

// DeleteAll removes every attempt
func (r *PerformanceRepository) DeleteAll(ctx context.Context) error {
	if _, err := DB.ExecContext(ctx, `DELETE FROM attempts`); err != nil {
		return fmt.Errorf("failed to delete attempts: %v", err)
	}
	return nil
}
