package ordersvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/corray333/backend-labs/kitchen/internal/service/models/kitchenstatus"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/order"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/statuslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// ErrMissingOrderID is returned when an upstream order has no id.
var ErrMissingOrderID = errors.New("order without id")

// Ingest upserts an upstream order with its items in one transaction and returns
// the number of items stored. Locally completed or passed items keep their status.
func (s *OrderService) Ingest(ctx context.Context, o order.Order, upstream []orderitem.Upstream) (int, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.Ingest")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", o.ID), attribute.Int("items", len(upstream)))

	if o.ID == "" {
		return 0, ErrMissingOrderID
	}

	now := s.now()
	o.LastUpdated = now
	upstream = dedupeUpstream(o.ID, upstream)

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := work.Rollback(ctx); err != nil {
			slog.Error("Failed to rollback ingest", "order_id", o.ID, "error", err)
		}
	}()

	if err := work.OrderRepository().Upsert(ctx, o); err != nil {
		return 0, err
	}

	ids := make([]string, len(upstream))
	for i, u := range upstream {
		ids[i] = u.ID
	}

	local, err := work.OrderItemRepository().StatusesByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}

	items := make([]orderitem.OrderItem, len(upstream))
	var changes []statuslog.Change
	for i, u := range upstream {
		var current *kitchenstatus.Status
		if st, ok := local[u.ID]; ok {
			current = &st
		}

		status := kitchenstatus.Resolve(current, u.KitchenStatus)
		if current != nil && *current != status {
			changes = append(changes, statuslog.Change{
				OrderItemID: u.ID,
				OrderID:     o.ID,
				From:        *current,
				To:          status,
			})
		}

		items[i] = orderitem.OrderItem{
			ID:            u.ID,
			OrderID:       o.ID,
			ProductID:     u.ProductID,
			Name:          u.Name,
			Quantity:      u.Quantity,
			KitchenStatus: status,
			Note:          u.Note,
			LastUpdated:   now,
		}
	}

	if err := work.OrderItemRepository().Upsert(ctx, items); err != nil {
		return 0, err
	}

	for _, u := range upstream {
		if len(u.Subitems) == 0 {
			continue
		}
		if err := work.OrderItemRepository().ReplaceSubitems(ctx, u.ID, u.Subitems); err != nil {
			return 0, err
		}
	}

	if err := s.enqueueEvent(ctx, work, changes, ActorSync, now); err != nil {
		return 0, err
	}

	if err := work.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit ingest of %s: %w", o.ID, err)
	}

	return len(items), nil
}

// dedupeUpstream drops items without id or with a non-positive quantity and keeps
// the last occurrence of a repeated id.
func dedupeUpstream(orderID string, upstream []orderitem.Upstream) []orderitem.Upstream {
	index := make(map[string]int, len(upstream))
	out := make([]orderitem.Upstream, 0, len(upstream))
	for _, u := range upstream {
		if u.ID == "" || u.Quantity <= 0 {
			slog.Warn("Skipping invalid upstream item", "order_id", orderID, "item_id", u.ID, "quantity", u.Quantity)

			continue
		}
		if i, ok := index[u.ID]; ok {
			out[i] = u

			continue
		}
		index[u.ID] = len(out)
		out = append(out, u)
	}

	return out
}
