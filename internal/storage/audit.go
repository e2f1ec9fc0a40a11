package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/spice-split/internal/common"
)

// Entry is one processed message as seen by the audit journal.
// It never represents a confirmed transaction.
type Entry struct {
	CreatedAt   time.Time
	ID          string
	Message     string
	CurrentUser string
	Stage       string
	Action      string
	Model       string
	Response    json.RawMessage
	Attempts    int
	Latency     time.Duration
}

// Record stores e, assigning an ID and timestamp when they are unset.
func (j *Journal) Record(ctx context.Context, e *Entry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEntry(e); err != nil {
		return err
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = e.CreatedAt.UTC()
	if len(e.Response) == 0 {
		e.Response = json.RawMessage("null")
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO audit_entries
			(id, message, user_name, stage, action, model, response, attempts, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Message, e.CurrentUser, e.Stage, e.Action, e.Model,
		string(e.Response), e.Attempts, e.Latency.Milliseconds(), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, message, user_name, stage, action, model, response, attempts, latency_ms, created_at
		FROM audit_entries
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit entries: %w", err)
	}
	return entries, nil
}

// Get returns the entry with the given id or common.ErrNotFound.
func (j *Journal) Get(ctx context.Context, id string) (Entry, error) {
	if err := validateContext(ctx); err != nil {
		return Entry{}, err
	}
	if err := validateString(id, "id"); err != nil {
		return Entry{}, err
	}

	row := j.db.QueryRowContext(ctx, `
		SELECT id, message, user_name, stage, action, model, response, attempts, latency_ms, created_at
		FROM audit_entries
		WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("audit entry %s: %w", id, common.ErrNotFound)
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e         Entry
		user      sql.NullString
		model     sql.NullString
		response  string
		latencyMS int64
	)
	err := s.Scan(&e.ID, &e.Message, &user, &e.Stage, &e.Action, &model,
		&response, &e.Attempts, &latencyMS, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, err
	}
	if err != nil {
		return Entry{}, fmt.Errorf("failed to scan audit entry: %w", err)
	}
	e.CurrentUser = user.String
	e.Model = model.String
	e.Response = json.RawMessage(response)
	e.Latency = time.Duration(latencyMS) * time.Millisecond
	return e, nil
}
