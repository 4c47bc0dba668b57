package ordersvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/corray333/backend-labs/kitchen/internal/service/models/kitchenstatus"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/order"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/orderitem"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Preset names a standard listing.
type Preset string

const (
	PresetActive           Preset = "active"
	PresetKitchenCompleted Preset = "kitchen-completed"
	PresetBarCompleted     Preset = "bar-completed"
)

// ErrUnknownPreset is returned for a preset name that is not defined.
var ErrUnknownPreset = errors.New("unknown listing preset")

// Windows are the last_updated look-back windows of the completed listings.
type Windows struct {
	KitchenCompleted time.Duration
	BarCompleted     time.Duration
}

// DefaultWindows returns 30 minutes for the kitchen and 2 hours for the bar.
func DefaultWindows() Windows {
	return Windows{
		KitchenCompleted: 30 * time.Minute,
		BarCompleted:     2 * time.Hour,
	}
}

// ListByStatus returns orders with the items matching q, oldest order first.
// Items of excluded products are dropped and orders left without items are omitted.
func (s *OrderService) ListByStatus(ctx context.Context, q order.ListQuery) ([]order.WithItems, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.ListByStatus")
	defer span.End()
	span.SetAttributes(attribute.StringSlice("statuses", kitchenstatus.Strings(q.Statuses)))

	work := s.newUOW()

	rows, err := work.OrderItemRepository().Query(ctx, &orderitem.QueryOrderItemsModel{
		OrderIds:    q.OrderIDs,
		Statuses:    q.Statuses,
		UpdatedFrom: q.From,
		UpdatedTo:   q.To,
	})
	if err != nil {
		return nil, err
	}

	excluded, err := s.exclusions.ListExcluded(ctx)
	if err != nil {
		return nil, err
	}

	orders := make([]order.WithItems, 0)
	index := make(map[string]int)
	var itemIDs []string
	for _, row := range rows {
		if excluded.Contains(row.Item.ProductID) {
			continue
		}

		i, ok := index[row.Order.ID]
		if !ok {
			i = len(orders)
			index[row.Order.ID] = i
			orders = append(orders, order.WithItems{Order: row.Order})
		}
		orders[i].Items = append(orders[i].Items, row.Item)
		itemIDs = append(itemIDs, row.Item.ID)
	}

	if len(orders) == 0 {
		return orders, nil
	}

	subitems, err := work.OrderItemRepository().SubitemsByItemIDs(ctx, itemIDs)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		for j := range orders[i].Items {
			orders[i].Items[j].Subitems = subitems[orders[i].Items[j].ID]
		}
	}

	if q.WithTiming && s.timings != nil {
		ids := make([]string, len(orders))
		for i, o := range orders {
			ids[i] = o.ID
		}

		timings, err := s.timings.TimingsFor(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i := range orders {
			if t, ok := timings[orders[i].ID]; ok {
				orders[i].Timing = &t
			}
		}
	}

	return orders, nil
}

// ListActive returns orders with unfinished items and their timing.
func (s *OrderService) ListActive(ctx context.Context) ([]order.WithItems, error) {
	return s.ListPreset(ctx, PresetActive)
}

// ListKitchenCompleted returns items completed within the kitchen window.
func (s *OrderService) ListKitchenCompleted(ctx context.Context) ([]order.WithItems, error) {
	return s.ListPreset(ctx, PresetKitchenCompleted)
}

// ListBarCompleted returns items completed within the bar window.
func (s *OrderService) ListBarCompleted(ctx context.Context) ([]order.WithItems, error) {
	return s.ListPreset(ctx, PresetBarCompleted)
}

// ListPreset runs a named listing.
func (s *OrderService) ListPreset(ctx context.Context, preset Preset) ([]order.WithItems, error) {
	q, err := s.PresetQuery(preset)
	if err != nil {
		return nil, err
	}

	return s.ListByStatus(ctx, q)
}

// PresetQuery resolves a preset into a query relative to now.
func (s *OrderService) PresetQuery(preset Preset) (order.ListQuery, error) {
	now := s.now()

	switch preset {
	case PresetActive:
		return order.ListQuery{Statuses: kitchenstatus.Active, WithTiming: true}, nil
	case PresetKitchenCompleted:
		return order.ListQuery{
			Statuses: []kitchenstatus.Status{kitchenstatus.Completed},
			From:     now.Add(-s.windows.KitchenCompleted),
		}, nil
	case PresetBarCompleted:
		return order.ListQuery{
			Statuses: []kitchenstatus.Status{kitchenstatus.Completed},
			From:     now.Add(-s.windows.BarCompleted),
		}, nil
	default:
		return order.ListQuery{}, fmt.Errorf("%w: %q", ErrUnknownPreset, preset)
	}
}

// GetOrder returns an order with all of its items regardless of status.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*order.WithItems, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.GetOrder")
	defer span.End()

	work := s.newUOW()

	o, err := work.OrderRepository().Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	rows, err := work.OrderItemRepository().Query(ctx, &orderitem.QueryOrderItemsModel{OrderIds: []string{orderID}})
	if err != nil {
		return nil, err
	}

	result := &order.WithItems{Order: *o, Items: make([]orderitem.OrderItem, 0, len(rows))}
	for _, row := range rows {
		result.Items = append(result.Items, row.Item)
	}

	return result, nil
}
