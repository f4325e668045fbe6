package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/example/itabot/pkg/models"
)

// TestHistoryRepository handles completed-test persistence
type TestHistoryRepository struct{}

// GetAll returns the full test history, newest first
func (r *TestHistoryRepository) GetAll(ctx context.Context) ([]models.TestHistoryItem, error) {
	var items []models.TestHistoryItem
	query := `SELECT * FROM test_history ORDER BY timestamp DESC`
	if err := DB.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("failed to get test history: %v", err)
	}
	return items, nil
}

// GetRecent returns the most recent tests up to limit, newest first
func (r *TestHistoryRepository) GetRecent(ctx context.Context, limit int) ([]models.TestHistoryItem, error) {
	var items []models.TestHistoryItem
	query := rebind(`SELECT * FROM test_history ORDER BY timestamp DESC LIMIT ?`)
	if err := DB.SelectContext(ctx, &items, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get recent tests: %v", err)
	}
	return items, nil
}

// Create inserts a completed test inside an existing transaction
func (r *TestHistoryRepository) Create(ctx context.Context, tx *sqlx.Tx, item *models.TestHistoryItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	query := `INSERT INTO test_history (id, timestamp, total_words, correct_words, incorrect_words,
		hints_used, total_time, avg_time_per_word, percentage, wrong_words, chapter_stats, difficulty, test_parameters)
		VALUES (:id, :timestamp, :total_words, :correct_words, :incorrect_words,
		:hints_used, :total_time, :avg_time_per_word, :percentage, :wrong_words, :chapter_stats, :difficulty, :test_parameters)`
	if _, err := tx.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("failed to save test: %v", err)
	}
	return nil
}

// DeleteAll removes the entire test history
func (r *TestHistoryRepository) DeleteAll(ctx context.Context) error {
	if _, err := DB.ExecContext(ctx, `DELETE FROM test_history`); err != nil {
		return fmt.Errorf("failed to delete test history: %v", err)
	}
	return nil
}
