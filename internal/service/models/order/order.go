package order

import (
	"errors"
	"time"

	"github.com/corray333/backend-labs/kitchen/internal/service/models/kitchenstatus"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/timing"
)

var ErrNotFound = errors.New("order not found")

// Order represents a POS order mirrored into local storage.
type Order struct {
	ID              string          `json:"id"`
	Created         time.Time       `json:"created"`
	Note            string          `json:"note"`
	TableName       string          `json:"table_name"`
	DeliveryService DeliveryService `json:"delivery_service"`
	DeliveryNote    string          `json:"delivery_note"`
	LastUpdated     time.Time       `json:"last_updated"`
}

// WithItems is an order together with the items selected by a listing.
type WithItems struct {
	Order
	Items  []orderitem.OrderItem `json:"items"`
	Timing *timing.OrderTiming   `json:"timing,omitempty"`
}

// AllCompleted reports whether every listed item is completed.
func (o *WithItems) AllCompleted() bool {
	return o.all(kitchenstatus.Completed)
}

// AllInProgress reports whether every listed item is in progress.
func (o *WithItems) AllInProgress() bool {
	return o.all(kitchenstatus.InProgress)
}

func (o *WithItems) all(status kitchenstatus.Status) bool {
	if len(o.Items) == 0 {
		return false
	}
	for _, item := range o.Items {
		if item.KitchenStatus != status {
			return false
		}
	}

	return true
}

// ItemIDs returns the ids of the listed items.
func (o *WithItems) ItemIDs() []string {
	ids := make([]string, len(o.Items))
	for i, item := range o.Items {
		ids[i] = item.ID
	}

	return ids
}

// KitchenLines merges items by name, note and display status.
func (o *WithItems) KitchenLines() []orderitem.Line {
	return orderitem.MergeLines(o.Items, true)
}

// BarLines merges items by name and note.
func (o *WithItems) BarLines() []orderitem.Line {
	return orderitem.MergeLines(o.Items, false)
}
