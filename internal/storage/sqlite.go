package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Journal is the SQLite backed audit journal.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
	dbPath string
}

// NewJournal opens (creating if needed) the journal database at dbPath.
// Call Migrate before use.
func NewJournal(dbPath string, logger *slog.Logger) (*Journal, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer at a time; also keeps ":memory:" on a single database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Journal{db: db, logger: logger, dbPath: dbPath}, nil
}

// Open is NewJournal followed by Migrate.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Journal, error) {
	j, err := NewJournal(dbPath, logger)
	if err != nil {
		return nil, err
	}
	if err := j.Migrate(ctx); err != nil {
		_ = j.Close()
		return nil, err
	}
	return j, nil
}

// Path returns the database file path.
func (j *Journal) Path() string {
	return j.dbPath
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}
