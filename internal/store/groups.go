package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/shramba/internal/model"
)

// CreateGroup creates a group. It reports false if the group already exists.
func CreateGroup(ctx context.Context, db *sql.DB, id, passphraseHash string) (bool, error) {
	result, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO groups (id, passphrase_hash) VALUES (?, ?)`,
		id, nullString(passphraseHash),
	)
	if err != nil {
		return false, fmt.Errorf("creating group: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking created group: %w", err)
	}
	return n > 0, nil
}

// GetGroup returns a group by ID, or nil if it does not exist.
func GetGroup(ctx context.Context, db *sql.DB, id string) (*model.Group, error) {
	group := &model.Group{}
	var hash sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, passphrase_hash, created_at FROM groups WHERE id = ?`, id,
	).Scan(&group.ID, &hash, &group.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting group: %w", err)
	}
	group.PassphraseHash = hash.String
	return group, nil
}
