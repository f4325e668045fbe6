package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/itabot/pkg/models"
)

// WordRepository handles word-related database operations
type WordRepository struct{}

// GetAll returns all words ordered by chapter and english
func (r *WordRepository) GetAll(ctx context.Context) ([]models.Word, error) {
	var words []models.Word
	query := `SELECT * FROM words ORDER BY chapter, english`
	if err := DB.SelectContext(ctx, &words, query); err != nil {
		return nil, fmt.Errorf("failed to get words: %v", err)
	}
	return words, nil
}

// GetByID returns a single word by its id
func (r *WordRepository) GetByID(ctx context.Context, id string) (*models.Word, error) {
	var word models.Word
	query := rebind(`SELECT * FROM words WHERE id = ?`)
	if err := DB.GetContext(ctx, &word, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("word not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get word: %v", err)
	}
	return &word, nil
}

// GetByChapter returns all words belonging to one chapter
func (r *WordRepository) GetByChapter(ctx context.Context, chapter string) ([]models.Word, error) {
	var words []models.Word
	query := rebind(`SELECT * FROM words WHERE chapter = ? ORDER BY english`)
	if err := DB.SelectContext(ctx, &words, query, chapter); err != nil {
		return nil, fmt.Errorf("failed to get words by chapter: %v", err)
	}
	return words, nil
}

// Chapters returns the distinct non-empty chapter names
func (r *WordRepository) Chapters(ctx context.Context) ([]string, error) {
	var chapters []string
	query := `SELECT DISTINCT chapter FROM words WHERE chapter != '' ORDER BY chapter`
	if err := DB.SelectContext(ctx, &chapters, query); err != nil {
		return nil, fmt.Errorf("failed to get chapters: %v", err)
	}
	return chapters, nil
}

// Create inserts a new word, assigning an id and timestamps
func (r *WordRepository) Create(ctx context.Context, word *models.Word) error {
	if word.ID == "" {
		word.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if word.CreatedAt.IsZero() {
		word.CreatedAt = now
	}
	word.UpdatedAt = now

	query := `INSERT INTO words (id, english, italian, chapter, word_group, notes, sentences, learned, difficult, created_at, updated_at)
		VALUES (:id, :english, :italian, :chapter, :word_group, :notes, :sentences, :learned, :difficult, :created_at, :updated_at)`
	if _, err := DB.NamedExecContext(ctx, query, word); err != nil {
		return fmt.Errorf("failed to create word: %v", err)
	}
	return nil
}

// Update saves changes to an existing word
func (r *WordRepository) Update(ctx context.Context, word *models.Word) error {
	word.UpdatedAt = time.Now().UTC()

	query := `UPDATE words SET english = :english, italian = :italian, chapter = :chapter,
		word_group = :word_group, notes = :notes, sentences = :sentences,
		learned = :learned, difficult = :difficult, updated_at = :updated_at
		WHERE id = :id`
	result, err := DB.NamedExecContext(ctx, query, word)
	if err != nil {
		return fmt.Errorf("failed to update word: %v", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %v", err)
	}
	if rows == 0 {
		return fmt.Errorf("word not found: %s", word.ID)
	}
	return nil
}

// Delete removes a word. Its attempts are removed by the foreign key
// cascade.
func (r *WordRepository) Delete(ctx context.Context, id string) error {
	query := rebind(`DELETE FROM words WHERE id = ?`)
	if _, err := DB.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete word: %v", err)
	}
	return nil
}

// Search finds words matching the query in either language
func (r *WordRepository) Search(ctx context.Context, text string) ([]models.Word, error) {
	var words []models.Word
	pattern := "%" + strings.ToLower(text) + "%"
	query := rebind(`SELECT * FROM words
		WHERE LOWER(english) LIKE ? OR LOWER(italian) LIKE ?
		ORDER BY english LIMIT 50`)
	if err := DB.SelectContext(ctx, &words, query, pattern, pattern); err != nil {
		return nil, fmt.Errorf("failed to search words: %v", err)
	}
	return words, nil
}

// FindByEnglish returns the word whose english form matches
// case-insensitively, or nil when none exists.
func (r *WordRepository) FindByEnglish(ctx context.Context, english string) (*models.Word, error) {
	var word models.Word
	query := rebind(`SELECT * FROM words WHERE LOWER(english) = ? LIMIT 1`)
	if err := DB.GetContext(ctx, &word, query, strings.ToLower(strings.TrimSpace(english))); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find word: %v", err)
	}
	return &word, nil
}

// Count returns the total number of words
func (r *WordRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM words`); err != nil {
		return 0, fmt.Errorf("failed to count words: %v", err)
	}
	return count, nil
}

// DeleteAll removes every word and, via cascade, every attempt
func (r *WordRepository) DeleteAll(ctx context.Context) error {
	if _, err := DB.ExecContext(ctx, `DELETE FROM words`); err != nil {
		return fmt.Errorf("failed to delete words: %v", err)
	}
	return nil
}
