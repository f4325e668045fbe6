package database

import (
	"context"
	"fmt"

	"github.com/example/itabot/internal/export"
	"github.com/example/itabot/pkg/models"
)

// Store ties the repositories together for the multi-table operations:
// recording a finished test, loading full state for export, and
// replacing state on import.
type Store struct {
	Words       WordRepository
	Performance PerformanceRepository
	History     TestHistoryRepository
	Statistics  StatisticsRepository
}

// NewStore returns a Store over the global connection
func NewStore() *Store {
	return &Store{}
}

// RecordTest persists one finished test atomically: the history item,
// every attempt and the updated statistics accumulator commit together
// or not at all.
func (s *Store) RecordTest(ctx context.Context, item *models.TestHistoryItem, attempts map[string][]models.Attempt, stats *models.Statistics) error {
	tx, err := DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	if err := s.History.Create(ctx, tx, item); err != nil {
		return err
	}
	for wordID, wordAttempts := range attempts {
		for _, attempt := range wordAttempts {
			if err := s.Performance.AddAttempt(ctx, tx, wordID, attempt); err != nil {
				return err
			}
		}
	}
	if err := s.Statistics.SaveTx(ctx, tx, stats); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit test: %v", err)
	}
	return nil
}

// LoadState reads the complete application state for export or
// aggregation
func (s *Store) LoadState(ctx context.Context) (export.State, error) {
	words, err := s.Words.GetAll(ctx)
	if err != nil {
		return export.State{}, err
	}
	performances, err := s.Performance.GetAll(ctx)
	if err != nil {
		return export.State{}, err
	}
	history, err := s.History.GetAll(ctx)
	if err != nil {
		return export.State{}, err
	}
	stats, err := s.Statistics.Get(ctx)
	if err != nil {
		return export.State{}, err
	}

	perfByWord := make(map[string]models.WordPerformance, len(performances))
	for _, perf := range performances {
		perfByWord[perf.WordID] = perf
	}

	return export.State{
		Words:           words,
		Statistics:      stats,
		TestHistory:     history,
		WordPerformance: perfByWord,
	}, nil
}

// ReplaceAll swaps the entire database content for the given state in
// one transaction. Used by overwrite and merge imports, which compute
// the final state in memory first.
func (s *Store) ReplaceAll(ctx context.Context, state export.State) error {
	tx, err := DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"attempts", "test_history", "words", "statistics"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %v", table, err)
		}
	}

	wordQuery := `INSERT INTO words (id, english, italian, chapter, word_group, notes, sentences, learned, difficult, created_at, updated_at)
		VALUES (:id, :english, :italian, :chapter, :word_group, :notes, :sentences, :learned, :difficult, :created_at, :updated_at)`
	for i := range state.Words {
		if _, err := tx.NamedExecContext(ctx, wordQuery, &state.Words[i]); err != nil {
			return fmt.Errorf("failed to restore word: %v", err)
		}
	}

	for wordID, perf := range state.WordPerformance {
		for _, attempt := range perf.Attempts {
			if err := s.Performance.AddAttempt(ctx, tx, wordID, attempt); err != nil {
				return err
			}
		}
	}

	for i := range state.TestHistory {
		if err := s.History.Create(ctx, tx, &state.TestHistory[i]); err != nil {
			return err
		}
	}

	stats := state.Statistics
	if stats == nil {
		stats = models.NewStatistics()
	}
	if err := s.Statistics.SaveTx(ctx, tx, stats); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %v", err)
	}
	return nil
}
