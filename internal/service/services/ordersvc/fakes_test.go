package ordersvc

import (
	"context"
	"sort"
	"time"

	"github.com/corray333/backend-labs/kitchen/internal/dal/interfaces/iorderitemrepo"
	"github.com/corray333/backend-labs/kitchen/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/kitchen/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/kitchenstatus"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/order"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/outbox"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/product"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/statuslog"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/timing"
)

// memStore is an in-memory stand-in for the Postgres tables behind a unit of work.
type memStore struct {
	orders   map[string]order.Order
	items    map[string]orderitem.OrderItem
	subitems map[string][]orderitem.Subitem
	outbox   []outbox.OutboxMessage
}

func newMemStore() *memStore {
	return &memStore{
		orders:   map[string]order.Order{},
		items:    map[string]orderitem.OrderItem{},
		subitems: map[string][]orderitem.Subitem{},
	}
}

type memUOW struct {
	store *memStore
}

func (u *memUOW) Begin(context.Context) error    { return nil }
func (u *memUOW) Commit(context.Context) error   { return nil }
func (u *memUOW) Rollback(context.Context) error { return nil }

func (u *memUOW) OrderRepository() iorderrepo.IOrderRepository {
	return memOrders{u.store}
}

func (u *memUOW) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return memItems{u.store}
}

func (u *memUOW) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return memOutbox{u.store}
}

type memOrders struct {
	s *memStore
}

func (r memOrders) Upsert(_ context.Context, o order.Order) error {
	if prev, ok := r.s.orders[o.ID]; ok {
		if prev.Note == o.Note && prev.TableName == o.TableName &&
			prev.DeliveryService == o.DeliveryService && prev.DeliveryNote == o.DeliveryNote {
			o.LastUpdated = prev.LastUpdated
		}
		o.Created = prev.Created
	}
	r.s.orders[o.ID] = o

	return nil
}

func (r memOrders) Get(_ context.Context, id string) (*order.Order, error) {
	o, ok := r.s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}

	return &o, nil
}

type memItems struct {
	s *memStore
}

func (r memItems) StatusesByIDs(_ context.Context, ids []string) (map[string]kitchenstatus.Status, error) {
	out := map[string]kitchenstatus.Status{}
	for _, id := range ids {
		if item, ok := r.s.items[id]; ok {
			out[id] = item.KitchenStatus
		}
	}

	return out, nil
}

func (r memItems) Upsert(_ context.Context, items []orderitem.OrderItem) error {
	for _, item := range items {
		if prev, ok := r.s.items[item.ID]; ok {
			item.Shown = prev.Shown
			if prev.OrderID == item.OrderID && strPtrEq(prev.ProductID, item.ProductID) &&
				prev.Name == item.Name && prev.Quantity == item.Quantity &&
				prev.KitchenStatus == item.KitchenStatus && prev.Note == item.Note {
				item.LastUpdated = prev.LastUpdated
			}
		}
		item.Subitems = nil
		r.s.items[item.ID] = item
	}

	return nil
}

func (r memItems) ReplaceSubitems(_ context.Context, itemID string, subitems []orderitem.Subitem) error {
	out := make([]orderitem.Subitem, len(subitems))
	for i, sub := range subitems {
		sub.OrderItemID = itemID
		out[i] = sub
	}
	r.s.subitems[itemID] = out

	return nil
}

func (r memItems) SubitemsByItemIDs(_ context.Context, ids []string) (map[string][]orderitem.Subitem, error) {
	out := map[string][]orderitem.Subitem{}
	for _, id := range ids {
		if subs, ok := r.s.subitems[id]; ok {
			out[id] = subs
		}
	}

	return out, nil
}

func (r memItems) CountByOrder(_ context.Context, orderID string) (int, error) {
	n := 0
	for _, item := range r.s.items {
		if item.OrderID == orderID {
			n++
		}
	}

	return n, nil
}

func (r memItems) Query(_ context.Context, f *orderitem.QueryOrderItemsModel) ([]order.ItemRow, error) {
	var rows []order.ItemRow
	for _, item := range r.s.items {
		if len(f.Ids) > 0 && !contains(f.Ids, item.ID) {
			continue
		}
		if len(f.OrderIds) > 0 && !contains(f.OrderIds, item.OrderID) {
			continue
		}
		if len(f.ProductIds) > 0 && (item.ProductID == nil || !contains(f.ProductIds, *item.ProductID)) {
			continue
		}
		if len(f.Statuses) > 0 && !kitchenstatus.In(item.KitchenStatus, f.Statuses) {
			continue
		}
		if !f.UpdatedFrom.IsZero() && item.LastUpdated.Before(f.UpdatedFrom) {
			continue
		}
		if !f.UpdatedTo.IsZero() && item.LastUpdated.After(f.UpdatedTo) {
			continue
		}
		rows = append(rows, order.ItemRow{Order: r.s.orders[item.OrderID], Item: item})
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.Order.Created.Equal(b.Order.Created) {
			return a.Order.Created.Before(b.Order.Created)
		}
		if a.Order.ID != b.Order.ID {
			return a.Order.ID < b.Order.ID
		}

		return a.Item.ID < b.Item.ID
	})

	return rows, nil
}

func (r memItems) UpdateStatus(_ context.Context, m orderitem.UpdateStatusModel) ([]statuslog.Change, error) {
	if m.Empty() {
		return nil, nil
	}

	ids := make([]string, 0, len(r.s.items))
	for id := range r.s.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var changes []statuslog.Change
	for _, id := range ids {
		item := r.s.items[id]
		if len(m.Ids) > 0 && !contains(m.Ids, item.ID) {
			continue
		}
		if len(m.OrderIds) > 0 && !contains(m.OrderIds, item.OrderID) {
			continue
		}
		if len(m.ProductIds) > 0 && (item.ProductID == nil || !contains(m.ProductIds, *item.ProductID)) {
			continue
		}
		if len(m.FromStatuses) > 0 && !kitchenstatus.In(item.KitchenStatus, m.FromStatuses) {
			continue
		}

		changes = append(changes, statuslog.Change{
			OrderItemID: item.ID,
			OrderID:     item.OrderID,
			From:        item.KitchenStatus,
			To:          m.To,
		})
		item.KitchenStatus = m.To
		item.LastUpdated = m.At
		r.s.items[id] = item
	}

	return changes, nil
}

type memOutbox struct {
	s *memStore
}

func (r memOutbox) Insert(_ context.Context, msg outbox.OutboxMessage) error {
	msg.ID = int64(len(r.s.outbox) + 1)
	r.s.outbox = append(r.s.outbox, msg)

	return nil
}

func (r memOutbox) FetchDue(context.Context, int) ([]outbox.OutboxMessage, error) {
	return r.s.outbox, nil
}

func (r memOutbox) MarkDelivered(context.Context, int64) error {
	return nil
}

func (r memOutbox) Reschedule(context.Context, int64, int, string, time.Time) error {
	return nil
}

type staticExclusions struct {
	ids []string
}

func (e *staticExclusions) ListExcluded(context.Context) (product.IDSet, error) {
	return product.NewIDSet(e.ids...), nil
}

type staticTimings map[string]timing.OrderTiming

func (t staticTimings) TimingsFor(_ context.Context, ids []string) (map[string]timing.OrderTiming, error) {
	out := map[string]timing.OrderTiming{}
	for _, id := range ids {
		if v, ok := t[id]; ok {
			out[id] = v
		}
	}

	return out, nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}

	return false
}

func strPtrEq(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}
