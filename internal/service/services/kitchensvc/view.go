package kitchensvc

import (
	"github.com/corray333/backend-labs/kitchen/internal/service/models/order"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/orderitem"
)

// OrderView is an order as rendered on a board: merged lines plus the action predicates.
type OrderView struct {
	order.WithItems
	Lines         []orderitem.Line `json:"lines"`
	AllCompleted  bool             `json:"all_completed"`
	AllInProgress bool             `json:"all_in_progress"`
}

// KitchenBoard is the kitchen screen snapshot.
type KitchenBoard struct {
	Active    []OrderView `json:"active"`
	Completed []OrderView `json:"completed"`
}

// BarBoard is the bar screen snapshot.
type BarBoard struct {
	Completed []OrderView `json:"completed"`
}

func kitchenViews(orders []order.WithItems) []OrderView {
	views := make([]OrderView, len(orders))
	for i := range orders {
		views[i] = OrderView{
			WithItems:     orders[i],
			Lines:         orders[i].KitchenLines(),
			AllCompleted:  orders[i].AllCompleted(),
			AllInProgress: orders[i].AllInProgress(),
		}
	}

	return views
}

func barViews(orders []order.WithItems) []OrderView {
	views := make([]OrderView, len(orders))
	for i := range orders {
		views[i] = OrderView{
			WithItems:     orders[i],
			Lines:         orders[i].BarLines(),
			AllCompleted:  orders[i].AllCompleted(),
			AllInProgress: orders[i].AllInProgress(),
		}
	}

	return views
}
