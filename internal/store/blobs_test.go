package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/shramba/internal/db"
)

func TestPutAndGetBlob(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if err := PutBlob(ctx, database, "inventory-images/g/1_rice.jpg", "g", []byte("fake image data"), "image/jpeg"); err != nil {
		t.Fatalf("PutBlob: %v", err)
	}

	data, contentType, groupID, err := GetBlob(ctx, database, "inventory-images/g/1_rice.jpg")
	if err != nil {
		t.Fatalf("GetBlob: %v", err)
	}
	if string(data) != "fake image data" {
		t.Errorf("expected blob data, got %q", string(data))
	}
	if contentType != "image/jpeg" {
		t.Errorf("expected content type 'image/jpeg', got %q", contentType)
	}
	if groupID != "g" {
		t.Errorf("expected group 'g', got %q", groupID)
	}
}

func TestGetMissingBlob(t *testing.T) {
	database := db.NewTestDB(t)

	data, _, _, err := GetBlob(context.Background(), database, "nope")
	if err != nil {
		t.Fatalf("GetBlob: %v", err)
	}
	if data != nil {
		t.Error("expected nil data for missing blob")
	}
}

func TestDeleteBlob(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	PutBlob(ctx, database, "k", "g", []byte("x"), "image/jpeg")

	n, _ := CountBlobs(ctx, database, "g")
	if n != 1 {
		t.Fatalf("expected 1 blob, got %d", n)
	}

	if err := DeleteBlob(ctx, database, "k"); err != nil {
		t.Fatalf("DeleteBlob: %v", err)
	}
	if err := DeleteBlob(ctx, database, "k"); err != nil {
		t.Fatalf("second DeleteBlob: %v", err)
	}

	n, _ = CountBlobs(ctx, database, "g")
	if n != 0 {
		t.Errorf("expected 0 blobs after delete, got %d", n)
	}
}

func TestPutBlobRejectsExistingKey(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if err := PutBlob(ctx, database, "k", "g", []byte("first"), "image/jpeg"); err != nil {
		t.Fatalf("PutBlob: %v", err)
	}
	err := PutBlob(ctx, database, "k", "g", []byte("second"), "image/jpeg")
	if !errors.Is(err, ErrBlobExists) {
		t.Fatalf("expected ErrBlobExists, got %v", err)
	}

	data, _, _, err := GetBlob(ctx, database, "k")
	if err != nil {
		t.Fatalf("GetBlob: %v", err)
	}
	if string(data) != "first" {
		t.Errorf("expected the first upload to survive, got %q", string(data))
	}
}
