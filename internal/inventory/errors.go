package inventory

import (
	"errors"
	"fmt"
)

// ErrNotSignedIn is returned when an engine is built from a session that is
// not signed in to a group.
var ErrNotSignedIn = errors.New("not signed in to a group")

// ErrItemNotFound is returned when an item is not in the local list.
var ErrItemNotFound = errors.New("item not found")

// ValidationError reports malformed input. No remote call was made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// CollisionError reports that a live item already uses the name.
type CollisionError struct {
	Name string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("an item with the name %q already exists", e.Name)
}

// RemoteOperationError wraps a failed backend call.
type RemoteOperationError struct {
	Op  string
	Err error
}

func (e *RemoteOperationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteOperationError) Unwrap() error { return e.Err }

// SubscriptionError reports that the live subscription failed. It is not
// re-established automatically.
type SubscriptionError struct {
	Err error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("inventory subscription: %v", e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }

func remote(op string, err error) error {
	return &RemoteOperationError{Op: op, Err: err}
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
