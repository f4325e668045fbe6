package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/itabot/pkg/models"
)

// statisticsRowID is the fixed id of the single statistics row.
const statisticsRowID = 1

// StatisticsRepository handles the lifetime statistics accumulator.
// There is exactly one row; it is created on first read.
type StatisticsRepository struct{}

// Get returns the statistics accumulator, creating the row with zero
// values if it doesn't exist yet
func (r *StatisticsRepository) Get(ctx context.Context) (*models.Statistics, error) {
	var row statisticsRow
	query := rebind(`SELECT * FROM statistics WHERE id = ?`)
	err := DB.GetContext(ctx, &row, query, statisticsRowID)
	if err == sql.ErrNoRows {
		stats := models.NewStatistics()
		if err := r.save(ctx, DB, stats); err != nil {
			return nil, err
		}
		return stats, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get statistics: %v", err)
	}
	return row.statistics(), nil
}

// Save persists the statistics accumulator
func (r *StatisticsRepository) Save(ctx context.Context, stats *models.Statistics) error {
	return r.save(ctx, DB, stats)
}

// SaveTx persists the statistics accumulator inside an existing
// transaction
func (r *StatisticsRepository) SaveTx(ctx context.Context, tx *sqlx.Tx, stats *models.Statistics) error {
	return r.save(ctx, tx, stats)
}

// Reset replaces the accumulator with zero values
func (r *StatisticsRepository) Reset(ctx context.Context) error {
	return r.save(ctx, DB, models.NewStatistics())
}

type namedExecer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

func (r *StatisticsRepository) save(ctx context.Context, db namedExecer, stats *models.Statistics) error {
	row := newStatisticsRow(stats)

	// Delete-then-insert keeps the upsert portable across drivers.
	delQuery := rebind(`DELETE FROM statistics WHERE id = ?`)
	if _, err := db.ExecContext(ctx, delQuery, statisticsRowID); err != nil {
		return fmt.Errorf("failed to save statistics: %v", err)
	}
	query := `INSERT INTO statistics (id, total_words, correct_answers, incorrect_answers, hints_used,
		time_spent, tests_completed, average_score, categories_progress, daily_progress,
		monthly_stats, difficulty_stats, streak_days, last_study_date)
		VALUES (:id, :total_words, :correct_answers, :incorrect_answers, :hints_used,
		:time_spent, :tests_completed, :average_score, :categories_progress, :daily_progress,
		:monthly_stats, :difficulty_stats, :streak_days, :last_study_date)`
	if _, err := db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to save statistics: %v", err)
	}
	return nil
}

// statisticsRow adds the fixed row id on top of the statistics model.
type statisticsRow struct {
	ID int `db:"id"`
	models.Statistics
}

func newStatisticsRow(stats *models.Statistics) statisticsRow {
	return statisticsRow{ID: statisticsRowID, Statistics: *stats}
}

func (r statisticsRow) statistics() *models.Statistics {
	stats := r.Statistics
	if stats.CategoriesProgress == nil {
		stats.CategoriesProgress = make(models.CategoryProgressMap)
	}
	if stats.DailyProgress == nil {
		stats.DailyProgress = make(models.DailyProgressMap)
	}
	if stats.MonthlyStats == nil {
		stats.MonthlyStats = make(models.MonthlyStatsMap)
	}
	return &stats
}
