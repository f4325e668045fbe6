package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// DB is the global database connection
var DB *sqlx.DB

// Connect establishes a connection to the database. A DATABASE_URL
// environment variable selects PostgreSQL; otherwise a local SQLite
// file under data/ is used.
func Connect() error {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		db, err := sqlx.Connect("postgres", url)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %v", err)
		}
		DB = db
		return initializeSchema()
	}

	// Create data directory if it doesn't exist
	dataDir := "data"
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %v", err)
	}

	dbPath := filepath.Join(dataDir, "itabot.db")
	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %v", err)
	}

	// SQLite doesn't support multiple writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	DB = db
	return initializeSchema()
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

// rebind converts ?-placeholders to the connected driver's bindvar
// style, so every repository can write queries once.
func rebind(query string) string {
	return DB.Rebind(query)
}

// initializeSchema creates necessary tables if they don't exist. All
// identifiers are opaque TEXT ids and nested aggregates are JSON text
// columns, so the same DDL works on SQLite and PostgreSQL.
func initializeSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS words (
			id TEXT PRIMARY KEY,
			english TEXT NOT NULL,
			italian TEXT NOT NULL,
			chapter TEXT NOT NULL DEFAULT '',
			word_group TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			sentences TEXT NOT NULL DEFAULT '',
			learned BOOLEAN NOT NULL DEFAULT false,
			difficult BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS attempts (
			id TEXT PRIMARY KEY,
			word_id TEXT NOT NULL REFERENCES words(id) ON DELETE CASCADE,
			correct BOOLEAN NOT NULL,
			time_spent_ms INTEGER NOT NULL,
			used_hint BOOLEAN NOT NULL DEFAULT false,
			hints_count INTEGER NOT NULL DEFAULT 0,
			timestamp TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_word_id ON attempts(word_id)`,
		`CREATE TABLE IF NOT EXISTS test_history (
			id TEXT PRIMARY KEY,
			timestamp TIMESTAMP NOT NULL,
			total_words INTEGER NOT NULL,
			correct_words INTEGER NOT NULL,
			incorrect_words INTEGER NOT NULL,
			hints_used INTEGER NOT NULL DEFAULT 0,
			total_time INTEGER NOT NULL DEFAULT 0,
			avg_time_per_word INTEGER NOT NULL DEFAULT 0,
			percentage INTEGER NOT NULL DEFAULT 0,
			wrong_words TEXT NOT NULL DEFAULT '[]',
			chapter_stats TEXT NOT NULL DEFAULT '{}',
			difficulty TEXT NOT NULL DEFAULT 'medium',
			test_parameters TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE TABLE IF NOT EXISTS statistics (
			id INTEGER PRIMARY KEY,
			total_words INTEGER NOT NULL DEFAULT 0,
			correct_answers INTEGER NOT NULL DEFAULT 0,
			incorrect_answers INTEGER NOT NULL DEFAULT 0,
			hints_used INTEGER NOT NULL DEFAULT 0,
			time_spent INTEGER NOT NULL DEFAULT 0,
			tests_completed INTEGER NOT NULL DEFAULT 0,
			average_score REAL NOT NULL DEFAULT 0,
			categories_progress TEXT NOT NULL DEFAULT '{}',
			daily_progress TEXT NOT NULL DEFAULT '{}',
			monthly_stats TEXT NOT NULL DEFAULT '{}',
			difficulty_stats TEXT NOT NULL DEFAULT '{}',
			streak_days INTEGER NOT NULL DEFAULT 0,
			last_study_date TEXT NOT NULL DEFAULT ''
		)`,
	}
	for _, stmt := range statements {
		if _, err := DB.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %v", err)
		}
	}
	return nil
}
