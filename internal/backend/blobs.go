package backend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/shramba/internal/store"
)

// DefaultBlobPrefix is the reference prefix under which the API serves blobs.
const DefaultBlobPrefix = "/api/blobs/"

// Blobs stores binary objects and returns references of the form
// prefix + key.
type Blobs struct {
	db     *sql.DB
	prefix string
}

// NewBlobs returns a blob store. An empty prefix uses DefaultBlobPrefix.
func NewBlobs(db *sql.DB, prefix string) *Blobs {
	if prefix == "" {
		prefix = DefaultBlobPrefix
	}
	return &Blobs{db: db, prefix: prefix}
}

// Upload stores data under a new key and returns its download reference.
// A taken key fails with store.ErrBlobExists.
func (b *Blobs) Upload(ctx context.Context, groupID, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("uploading blob: empty key")
	}
	if err := store.PutBlob(ctx, b.db, key, groupID, data, contentType); err != nil {
		return "", fmt.Errorf("uploading blob: %w", err)
	}
	return b.prefix + key, nil
}

// Delete removes the blob a reference points to.
func (b *Blobs) Delete(ctx context.Context, ref string) error {
	key, err := b.Key(ref)
	if err != nil {
		return err
	}
	return store.DeleteBlob(ctx, b.db, key)
}

// Key extracts the storage key from a reference.
func (b *Blobs) Key(ref string) (string, error) {
	key, ok := strings.CutPrefix(ref, b.prefix)
	if !ok || key == "" {
		return "", fmt.Errorf("blob reference %q is not served by this store", ref)
	}
	return key, nil
}

// Object is a stored blob.
type Object struct {
	Data        []byte
	ContentType string
	GroupID     string
}

// Open returns the blob stored under key.
func (b *Blobs) Open(ctx context.Context, key string) (*Object, error) {
	data, contentType, groupID, err := store.GetBlob(ctx, b.db, key)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("blob %s: %w", key, ErrNotFound)
	}
	return &Object{Data: data, ContentType: contentType, GroupID: groupID}, nil
}
