package iorderitemrepo

import (
	"context"

	"github.com/corray333/backend-labs/kitchen/internal/service/models/kitchenstatus"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/order"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/statuslog"
)

// IOrderItemRepository is an interface for order item postgres repository.
type IOrderItemRepository interface {
	// StatusesByIDs returns the stored kitchen status of the items that exist.
	StatusesByIDs(ctx context.Context, ids []string) (map[string]kitchenstatus.Status, error)
	Upsert(ctx context.Context, items []orderitem.OrderItem) error
	ReplaceSubitems(ctx context.Context, itemID string, subitems []orderitem.Subitem) error
	SubitemsByItemIDs(ctx context.Context, ids []string) (map[string][]orderitem.Subitem, error)
	// Query returns matching items joined to their orders, oldest order first.
	Query(ctx context.Context, filter *orderitem.QueryOrderItemsModel) ([]order.ItemRow, error)
	CountByOrder(ctx context.Context, orderID string) (int, error)
	// UpdateStatus writes the status and reports the previous one per touched row.
	UpdateStatus(ctx context.Context, model orderitem.UpdateStatusModel) ([]statuslog.Change, error)
}
