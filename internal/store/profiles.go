// Package store handles PostgreSQL lookups for user profiles and daily
// challenge activity.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/spideydev/fantavacanze-notifier/internal/push"
)

// Store reads profiles and challenge activity from PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a store on top of an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Resolve returns the recipients among the given profile IDs that have a
// usable FCM token. Duplicate IDs collapse to one recipient each; profiles
// without a token are silently filtered out.
func (s *Store) Resolve(ctx context.Context, ids []string) ([]push.Recipient, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT DISTINCT id, COALESCE(name, ''), fcm_token
		FROM profiles
		WHERE id = ANY($1)
		  AND fcm_token IS NOT NULL
		  AND fcm_token <> ''
	`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanRecipients(rows)
}

// ListWithTokens returns every profile holding an FCM token. Used by the
// reminder path, which has no event-supplied target set.
func (s *Store) ListWithTokens(ctx context.Context) ([]push.Recipient, error) {
	query := `
		SELECT id, COALESCE(name, ''), fcm_token
		FROM profiles
		WHERE fcm_token IS NOT NULL
		  AND fcm_token <> ''
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanRecipients(rows)
}

// HasActivitySince reports whether the user has any daily challenge created
// at or after the given instant.
func (s *Store) HasActivitySince(ctx context.Context, userID string, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM user_daily_challenges
			WHERE user_id = $1
			  AND created_at >= $2
		)
	`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, userID, since).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check challenge activity: %w", err)
	}
	return exists, nil
}

func scanRecipients(rows *sql.Rows) ([]push.Recipient, error) {
	var recipients []push.Recipient
	for rows.Next() {
		var r push.Recipient
		if err := rows.Scan(&r.ID, &r.Name, &r.Token); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		recipients = append(recipients, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read profiles: %w", err)
	}
	return recipients, nil
}
