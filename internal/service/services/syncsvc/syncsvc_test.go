package syncsvc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/corray333/backend-labs/kitchen/internal/dal/pos"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/order"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/product"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePOS struct {
	orders      []pos.Order
	items       map[string][]pos.OrderItem
	products    []pos.Product
	tables      map[string]string
	ordersErr   error
	itemsErr    map[string]error
	productsErr error
	from, to    time.Time
}

func (f *fakePOS) ListOrders(_ context.Context, from, to time.Time) ([]pos.Order, error) {
	f.from, f.to = from, to

	return f.orders, f.ordersErr
}

func (f *fakePOS) ListOrderItems(_ context.Context, orderID string) ([]pos.OrderItem, error) {
	if err := f.itemsErr[orderID]; err != nil {
		return nil, err
	}

	return f.items[orderID], nil
}

func (f *fakePOS) ListProducts(context.Context) ([]pos.Product, error) {
	return f.products, f.productsErr
}

func (f *fakePOS) TableName(_ context.Context, tableID string) string {
	return f.tables[tableID]
}

type ingested struct {
	order order.Order
	items []orderitem.Upstream
}

type fakeIngester struct {
	got []ingested
	err map[string]error
}

func (f *fakeIngester) Ingest(_ context.Context, o order.Order, upstream []orderitem.Upstream) (int, error) {
	if err := f.err[o.ID]; err != nil {
		return 0, err
	}
	f.got = append(f.got, ingested{order: o, items: upstream})

	return len(upstream), nil
}

type fakeProducts struct {
	stored []product.Product
	err    error
}

func (f *fakeProducts) Upsert(_ context.Context, products []product.Product) error {
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, products...)

	return nil
}

func (f *fakeProducts) List(context.Context) ([]product.Product, error) {
	return f.stored, nil
}

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newService(p *fakePOS, i *fakeIngester, pr *fakeProducts) *SyncService {
	return MustNewSyncService(
		WithPOSClient(p),
		WithOrderIngester(i),
		WithProductRepository(pr),
		WithClock(func() time.Time { return now }),
	)
}

func TestSyncOrdersMapsUpstream(t *testing.T) {
	p := &fakePOS{
		orders: []pos.Order{
			{ID: "1", Created: now.Add(-time.Hour), Note: "Wolt #55", TableID: "t1"},
		},
		items: map[string][]pos.OrderItem{
			"1": {
				{
					ID: "10", OrderID: "1", ProductID: "p1", Name: "Burger", Quantity: 2,
					KitchenStatus: "in-progress", Note: "no onion",
					Customizations: []pos.Customization{{Name: "Cheese", Quantity: 1}, {Name: " "}},
				},
				{ID: "11", OrderID: "1", Name: "Fries", Quantity: 0.6},
			},
		},
		tables: map[string]string{"t1": "Terrace 4"},
	}
	ing := &fakeIngester{}

	res := newService(p, ing, &fakeProducts{}).SyncOrders(context.Background())

	assert.Equal(t, Result{Success: true, OrdersProcessed: 1, ItemsProcessed: 2}, res)
	assert.Equal(t, now.Add(-7*24*time.Hour), p.from)
	assert.Equal(t, now.Add(24*time.Hour), p.to)

	require.Len(t, ing.got, 1)
	o := ing.got[0].order
	assert.Equal(t, "1", o.ID)
	assert.Equal(t, "Terrace 4", o.TableName)
	assert.Equal(t, order.DeliveryWolt, o.DeliveryService)
	assert.Equal(t, "Wolt #55", o.DeliveryNote)

	items := ing.got[0].items
	require.Len(t, items, 2)
	require.NotNil(t, items[0].ProductID)
	assert.Equal(t, "p1", *items[0].ProductID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "in-progress", items[0].KitchenStatus)
	require.Len(t, items[0].Subitems, 1)
	assert.Equal(t, orderitem.Subitem{OrderItemID: "10", Name: "Cheese", Quantity: 1}, items[0].Subitems[0])
	assert.Nil(t, items[1].ProductID)
	assert.Equal(t, 1, items[1].Quantity)
}

func TestSyncOrdersCountsFailuresWithoutAborting(t *testing.T) {
	p := &fakePOS{
		orders: []pos.Order{{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: ""}},
		items: map[string][]pos.OrderItem{
			"1": {{ID: "a", Quantity: 1}},
			"3": {{ID: "c", Quantity: 1}, {ID: "d", Quantity: 1}},
		},
		itemsErr: map[string]error{"2": errors.New("timeout")},
	}
	ing := &fakeIngester{err: map[string]error{"3": errors.New("deadlock")}}

	res := newService(p, ing, &fakeProducts{}).SyncOrders(context.Background())

	assert.True(t, res.Success)
	assert.Equal(t, 1, res.OrdersProcessed)
	assert.Equal(t, 1, res.ItemsProcessed)
	assert.Equal(t, 3, res.OrdersFailed)
}

func TestSyncOrdersUpstreamFailure(t *testing.T) {
	p := &fakePOS{ordersErr: pos.ErrUnauthorized}

	res := newService(p, &fakeIngester{}, &fakeProducts{}).SyncOrders(context.Background())

	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
	assert.Zero(t, res.OrdersProcessed)
	assert.Zero(t, res.ItemsProcessed)
}

func TestSyncOrdersSkipsTableLookupWithoutTable(t *testing.T) {
	p := &fakePOS{
		orders: []pos.Order{{ID: "1"}},
		tables: map[string]string{"": "should not be used"},
	}
	ing := &fakeIngester{}

	newService(p, ing, &fakeProducts{}).SyncOrders(context.Background())

	require.Len(t, ing.got, 1)
	assert.Empty(t, ing.got[0].order.TableName)
}

func TestSyncProducts(t *testing.T) {
	p := &fakePOS{products: []pos.Product{
		{ID: "p1", Name: "Burger", CategoryID: "mains"},
		{ID: "p1", Name: "Burger again"},
		{ID: "", Name: "Ghost"},
		{ID: "p2", Name: "Latte", CategoryID: "42"},
	}}
	repo := &fakeProducts{}

	res := newService(p, &fakeIngester{}, repo).SyncProducts(context.Background())

	assert.Equal(t, ProductsResult{Success: true, ProductsProcessed: 2}, res)
	require.Len(t, repo.stored, 2)
	assert.Equal(t, product.Product{ID: "p1", Name: "Burger", Category: "mains", LastUpdated: now}, repo.stored[0])
	assert.Equal(t, "42", repo.stored[1].Category)
}

func TestSyncProductsFailures(t *testing.T) {
	res := newService(&fakePOS{productsErr: errors.New("down")}, &fakeIngester{}, &fakeProducts{}).
		SyncProducts(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, "down", res.Error)

	res = newService(&fakePOS{products: []pos.Product{{ID: "p1"}}}, &fakeIngester{}, &fakeProducts{err: errors.New("db")}).
		SyncProducts(context.Background())
	assert.False(t, res.Success)
	assert.Zero(t, res.ProductsProcessed)
}
