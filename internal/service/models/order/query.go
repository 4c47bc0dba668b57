package order

import (
	"time"

	"github.com/corray333/backend-labs/kitchen/internal/service/models/kitchenstatus"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/orderitem"
)

// ListQuery selects orders through the status of their items.
type ListQuery struct {
	Statuses   []kitchenstatus.Status
	From       time.Time
	To         time.Time
	OrderIDs   []string
	WithTiming bool
}

// ItemRow is an order item joined with its order.
type ItemRow struct {
	Order Order
	Item  orderitem.OrderItem
}
