package model

import "time"

// Item is one pantry entry in a group's inventory.
type Item struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Quantity    int       `json:"quantity"`
	Description string    `json:"description"`
	Image       string    `json:"image,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// HasImage reports whether the item references a stored image.
func (i Item) HasImage() bool {
	return i.Image != ""
}

// ItemFields are the caller-supplied fields of a new document.
// CreatedAt is always assigned by the backend.
type ItemFields struct {
	Name        string
	Quantity    int
	Description string
	Image       string
}

// ItemPatch is a partial update. Nil fields are left unchanged.
type ItemPatch struct {
	Name        *string
	Quantity    *int
	Description *string
	Image       *string

	// RefreshCreatedAt sets created_at to the backend's current time.
	RefreshCreatedAt bool
}

// Apply returns a copy of item with the patch applied locally.
// RefreshCreatedAt uses now, since the server value is not known yet.
func (p ItemPatch) Apply(item Item, now time.Time) Item {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Image != nil {
		item.Image = *p.Image
	}
	if p.RefreshCreatedAt {
		item.CreatedAt = now
	}
	return item
}
