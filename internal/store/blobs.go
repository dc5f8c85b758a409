package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrBlobExists is returned when a key is already taken. Stored blobs are
// never overwritten.
var ErrBlobExists = errors.New("blob already exists")

// PutBlob stores binary data under a new key.
func PutBlob(ctx context.Context, db *sql.DB, key, groupID string, data []byte, contentType string) error {
	res, err := db.ExecContext(ctx,
		`INSERT INTO blobs (key, group_id, data, content_type) VALUES (?, ?, ?, ?)
		 ON CONFLICT (key) DO NOTHING`,
		key, groupID, data, contentType,
	)
	if err != nil {
		return fmt.Errorf("storing blob: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storing blob: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("storing blob %s: %w", key, ErrBlobExists)
	}
	return nil
}

// GetBlob returns the data, content type and owning group of a blob.
// A missing blob returns nil data and no error.
func GetBlob(ctx context.Context, db *sql.DB, key string) ([]byte, string, string, error) {
	var data []byte
	var contentType, groupID string
	err := db.QueryRowContext(ctx,
		`SELECT data, content_type, group_id FROM blobs WHERE key = ?`, key,
	).Scan(&data, &contentType, &groupID)
	if err == sql.ErrNoRows {
		return nil, "", "", nil
	}
	if err != nil {
		return nil, "", "", fmt.Errorf("getting blob: %w", err)
	}
	return data, contentType, groupID, nil
}

// DeleteBlob removes a blob. Deleting a missing blob is not an error.
func DeleteBlob(ctx context.Context, db *sql.DB, key string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM blobs WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("deleting blob: %w", err)
	}
	return nil
}

// CountBlobs returns the number of blobs stored for a group.
func CountBlobs(ctx context.Context, db *sql.DB, groupID string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM blobs WHERE group_id = ?`, groupID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting blobs: %w", err)
	}
	return n, nil
}
