package model

import (
	"fmt"
	"strings"
	"time"
)

// Group is a shared pantry. Its ID doubles as the session display name and
// the partition key of the group's items and images.
type Group struct {
	ID             string    `json:"id"`
	PassphraseHash string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// Protected reports whether joining the group requires a passphrase.
func (g Group) Protected() bool {
	return g.PassphraseHash != ""
}

// Session is the signed-in state handed to the inventory engine.
type Session struct {
	ID       string `json:"-"`
	GroupID  string `json:"group_id"`
	SignedIn bool   `json:"signed_in"`
}

// MaxGroupIDLength is the maximum length of a group ID.
const MaxGroupIDLength = 64

// NormalizeGroupID trims whitespace and checks the group ID is usable.
func NormalizeGroupID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("group id is required")
	}
	if len(id) > MaxGroupIDLength {
		return "", fmt.Errorf("group id must be at most %d characters", MaxGroupIDLength)
	}
	if strings.ContainsAny(id, "/\\") {
		return "", fmt.Errorf("group id must not contain slashes")
	}
	return id, nil
}
