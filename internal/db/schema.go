package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
//
// items.created_at holds Unix nanoseconds so ordering is exact. Names are
// deliberately not unique per group: uniqueness is checked by clients
// against their live view.
const schema = `
CREATE TABLE IF NOT EXISTS groups (
    id              TEXT PRIMARY KEY,
    passphrase_hash TEXT,
    created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS items (
    id          TEXT PRIMARY KEY,
    group_id    TEXT NOT NULL,
    name        TEXT NOT NULL,
    quantity    INTEGER NOT NULL CHECK (quantity > 0),
    description TEXT NOT NULL,
    image       TEXT,
    created_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_items_group_created
    ON items(group_id, created_at DESC);

CREATE TABLE IF NOT EXISTS blobs (
    key          TEXT PRIMARY KEY,
    group_id     TEXT NOT NULL,
    data         BLOB NOT NULL,
    content_type TEXT NOT NULL,
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_sessions (
    session_id TEXT PRIMARY KEY,
    expires_at INTEGER NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
