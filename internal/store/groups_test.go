package store

import (
	"context"
	"testing"

	"github.com/erazemk/shramba/internal/db"
)

func TestCreateAndGetGroup(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	created, err := CreateGroup(ctx, database, "kitchen42", "")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if !created {
		t.Error("expected group to be created")
	}

	group, err := GetGroup(ctx, database, "kitchen42")
	if err != nil {
		t.Fatalf("GetGroup: %v", err)
	}
	if group == nil {
		t.Fatal("expected group, got nil")
	}
	if group.Protected() {
		t.Error("group without passphrase should not be protected")
	}
}

func TestCreateGroupTwice(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateGroup(ctx, database, "kitchen42", "hash")

	created, err := CreateGroup(ctx, database, "kitchen42", "")
	if err != nil {
		t.Fatalf("second CreateGroup: %v", err)
	}
	if created {
		t.Error("expected existing group not to be recreated")
	}

	group, _ := GetGroup(ctx, database, "kitchen42")
	if group.PassphraseHash != "hash" {
		t.Errorf("existing passphrase must be kept, got %q", group.PassphraseHash)
	}
}

func TestGetMissingGroup(t *testing.T) {
	database := db.NewTestDB(t)

	group, err := GetGroup(context.Background(), database, "nobody")
	if err != nil {
		t.Fatalf("GetGroup: %v", err)
	}
	if group != nil {
		t.Error("expected nil for missing group")
	}
}
