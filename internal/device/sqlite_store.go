package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed store.
// The db parameter should be an open SQLite connection with the
// devices table migrated.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get retrieves the record for a device ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Record, error) {
	query := `
		SELECT id, name, subscribe_topic, publish_topic
		FROM devices
		WHERE id = ?`

	var rec Record
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&rec.Name,
		&rec.SubscribeTopic,
		&rec.PublishTopic,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrDeviceNotFound
		}
		return Record{}, fmt.Errorf("querying device by id: %w", err)
	}
	return rec, nil
}

// Put inserts or replaces the record for a device ID.
func (s *SQLiteStore) Put(ctx context.Context, rec Record) error {
	now := time.Now().UTC().Format(time.RFC3339)

	query := `
		INSERT INTO devices (id, name, subscribe_topic, publish_topic, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.Name,
		rec.SubscribeTopic,
		rec.PublishTopic,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("upserting device: %w", err)
	}
	return nil
}

// Delete removes the record for a device ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// ListAll retrieves every persisted record, ordered by name.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]Record, error) {
	query := `
		SELECT id, name, subscribe_topic, publish_topic
		FROM devices
		ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only rows close

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.SubscribeTopic, &rec.PublishTopic); err != nil {
			return nil, fmt.Errorf("scanning device row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}

	return records, nil
}
