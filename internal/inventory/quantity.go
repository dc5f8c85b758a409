package inventory

import (
	"strconv"
	"strings"

	"github.com/erazemk/shramba/internal/model"
)

// IntentKind says what a quantity change turns into.
type IntentKind int

const (
	IntentUpdate IntentKind = iota
	IntentDelete
)

// Intent is the write a quantity change resolves to.
type Intent struct {
	Kind     IntentKind
	Item     model.Item
	Quantity int
}

// ApplyQuantity resolves setting item's quantity to quantity. Anything below
// one becomes a delete; a non-positive quantity is never written.
func ApplyQuantity(item model.Item, quantity int) Intent {
	if quantity < 1 {
		return Intent{Kind: IntentDelete, Item: item}
	}
	return Intent{Kind: IntentUpdate, Item: item, Quantity: quantity}
}

// Outcome is the result of an update or decrement.
type Outcome int

const (
	OutcomeUpdated Outcome = iota
	OutcomeDeleted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUpdated:
		return "updated"
	case OutcomeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// ParseQuantity parses a quantity typed by a user.
func ParseQuantity(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, invalid("quantity", "quantity is required")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, invalid("quantity", "quantity must be a whole number")
	}
	return n, nil
}
