package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/samrat-shrestha/toptracks/internal/shared"
)

// SessionRepository persists session payloads in the sessions table.
type SessionRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db, now: time.Now}
}

// WithClock replaces the repository's time source.
func (r *SessionRepository) WithClock(now func() time.Time) *SessionRepository {
	r.now = now
	return r
}

// Get returns the payload stored for id, excluding expired rows
func (r *SessionRepository) Get(ctx context.Context, id string) (string, error) {
	query := `
		SELECT data, expires_at
		FROM sessions
		WHERE id = ?
	`

	var (
		data      string
		expiresAt int64
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(&data, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query session: %w", err)
	}

	if expiresAt > 0 && expiresAt <= r.now().Unix() {
		return "", fmt.Errorf("%w: %s expired", shared.ErrSessionNotFound, id)
	}

	return data, nil
}

// Set inserts or replaces the payload for id. A non-positive ttl stores the row without expiry.
func (r *SessionRepository) Set(ctx context.Context, id, data string, ttl time.Duration) error {
	now := r.now()

	var expiresAt int64
	if ttl > 0 {
		expiresAt = now.Add(ttl).Unix()
	}

	query := `
		INSERT INTO sessions (id, data, expires_at, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, expires_at = excluded.expires_at, updated_at = excluded.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, id, data, expiresAt, now.Unix(), now.Unix()); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// Delete removes the session. Deleting a missing session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes every expired row and returns how many were removed.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at > 0 AND expires_at <= ?", r.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows, nil
}

// Count returns the number of stored sessions, expired rows included.
func (r *SessionRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}
