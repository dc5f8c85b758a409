package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/shramba/internal/model"
)

const itemColumns = `id, name, quantity, description, image, created_at`

// CreateItem inserts a new item document into a group's collection.
func CreateItem(ctx context.Context, db *sql.DB, groupID, id string, fields model.ItemFields, createdAt time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO items (id, group_id, name, quantity, description, image, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, groupID, fields.Name, fields.Quantity, fields.Description, nullString(fields.Image), createdAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("creating item: %w", err)
	}
	return nil
}

// GetItem returns an item of a group by ID, or nil if it does not exist.
func GetItem(ctx context.Context, db *sql.DB, groupID, id string) (*model.Item, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE group_id = ? AND id = ?`, groupID, id,
	)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns all items of a group, newest first.
func ListItems(ctx context.Context, db *sql.DB, groupID string) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE group_id = ?
		 ORDER BY created_at DESC, rowid DESC`, groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateItem applies a partial update to an item. It reports whether the
// item existed.
func UpdateItem(ctx context.Context, db *sql.DB, groupID, id string, patch model.ItemPatch, now time.Time) (bool, error) {
	var sets []string
	var args []any

	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Quantity != nil {
		sets = append(sets, "quantity = ?")
		args = append(args, *patch.Quantity)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Image != nil {
		sets = append(sets, "image = ?")
		args = append(args, nullString(*patch.Image))
	}
	if patch.RefreshCreatedAt {
		sets = append(sets, "created_at = ?")
		args = append(args, now.UnixNano())
	}

	if len(sets) == 0 {
		item, err := GetItem(ctx, db, groupID, id)
		if err != nil {
			return false, err
		}
		return item != nil, nil
	}

	args = append(args, groupID, id)
	result, err := db.ExecContext(ctx,
		`UPDATE items SET `+strings.Join(sets, ", ")+` WHERE group_id = ? AND id = ?`,
		args...,
	)
	if err != nil {
		return false, fmt.Errorf("updating item: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking updated rows: %w", err)
	}
	return n > 0, nil
}

// DeleteItem removes an item. Deleting a missing item is not an error.
func DeleteItem(ctx context.Context, db *sql.DB, groupID, id string) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM items WHERE group_id = ? AND id = ?`, groupID, id,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*model.Item, error) {
	var item model.Item
	var image sql.NullString
	var createdAt int64
	if err := s.Scan(&item.ID, &item.Name, &item.Quantity, &item.Description, &image, &createdAt); err != nil {
		return nil, err
	}
	item.Image = image.String
	item.CreatedAt = time.Unix(0, createdAt).UTC()
	return &item, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
