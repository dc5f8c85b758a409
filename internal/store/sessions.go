package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RevokeSession marks a signed-out session as revoked until its token
// would have expired anyway.
func RevokeSession(ctx context.Context, db *sql.DB, sessionID string, expiresAt time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO revoked_sessions (session_id, expires_at) VALUES (?, ?)
		 ON CONFLICT (session_id) DO NOTHING`,
		sessionID, expiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}

	if _, err := PurgeRevokedSessions(ctx, db, time.Now()); err != nil {
		return err
	}
	return nil
}

// IsSessionRevoked reports whether the session was signed out.
func IsSessionRevoked(ctx context.Context, db *sql.DB, sessionID string) (bool, error) {
	var revoked bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_sessions WHERE session_id = ?)`, sessionID,
	).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("checking session revocation: %w", err)
	}
	return revoked, nil
}

// PurgeRevokedSessions drops revocations whose tokens expired before now.
func PurgeRevokedSessions(ctx context.Context, db *sql.DB, now time.Time) (int64, error) {
	res, err := db.ExecContext(ctx,
		`DELETE FROM revoked_sessions WHERE expires_at < ?`, now.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("purging revoked sessions: %w", err)
	}
	return res.RowsAffected()
}
