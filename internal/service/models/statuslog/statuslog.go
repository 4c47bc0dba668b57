package statuslog

import (
	"time"

	"github.com/corray333/backend-labs/kitchen/internal/service/models/kitchenstatus"
)

// Change is one order item status write as seen by the store.
type Change struct {
	OrderItemID string               `json:"order_item_id"`
	OrderID     string               `json:"order_id"`
	From        kitchenstatus.Status `json:"from_status"`
	To          kitchenstatus.Status `json:"to_status"`
}

// Changed reports whether the write moved the item.
func (c Change) Changed() bool {
	return c.From != c.To
}

// Entry is an append-only audit record of a status transition.
type Entry struct {
	ID          int64                `json:"id"`
	OrderItemID string               `json:"order_item_id"`
	OrderID     string               `json:"order_id"`
	FromStatus  kitchenstatus.Status `json:"from_status"`
	ToStatus    kitchenstatus.Status `json:"to_status"`
	Actor       string               `json:"actor"`
	ChangedAt   time.Time            `json:"changed_at"`
}

// Event is the message published for a batch of status transitions.
type Event struct {
	Entries []Entry `json:"entries"`
}

// OrderIDs returns the distinct order ids touched by changes, in first-seen order.
func OrderIDs(changes []Change) []string {
	seen := make(map[string]struct{}, len(changes))
	ids := make([]string, 0, len(changes))
	for _, c := range changes {
		if _, ok := seen[c.OrderID]; ok {
			continue
		}
		seen[c.OrderID] = struct{}{}
		ids = append(ids, c.OrderID)
	}

	return ids
}

// NewEvent builds an event from the changes that moved an item.
func NewEvent(changes []Change, actor string, at time.Time) Event {
	entries := make([]Entry, 0, len(changes))
	for _, c := range changes {
		if !c.Changed() {
			continue
		}
		entries = append(entries, Entry{
			OrderItemID: c.OrderItemID,
			OrderID:     c.OrderID,
			FromStatus:  c.From,
			ToStatus:    c.To,
			Actor:       actor,
			ChangedAt:   at,
		})
	}

	return Event{Entries: entries}
}

// EntryOrderIDs returns the distinct order ids of entries, in first-seen order.
func EntryOrderIDs(entries []Entry) []string {
	changes := make([]Change, len(entries))
	for i, e := range entries {
		changes[i] = Change{OrderItemID: e.OrderItemID, OrderID: e.OrderID, From: e.FromStatus, To: e.ToStatus}
	}

	return OrderIDs(changes)
}
