package kitchensvc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/corray333/backend-labs/kitchen/internal/service/models/kitchenstatus"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/order"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/statuslog"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/timing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrders struct {
	mu          sync.Mutex
	orders      map[string]*order.WithItems
	autoRemoved int
	autoErr     error
}

func newFakeOrders(orders ...order.WithItems) *fakeOrders {
	f := &fakeOrders{orders: map[string]*order.WithItems{}}
	for i := range orders {
		o := orders[i]
		f.orders[o.ID] = &o
	}

	return f
}

func (f *fakeOrders) AutoRemoveExcluded(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.autoRemoved++

	return 0, f.autoErr
}

func (f *fakeOrders) list(match func(s kitchenstatus.Status) bool) []order.WithItems {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []order.WithItems
	for _, o := range f.orders {
		var items []orderitem.OrderItem
		for _, item := range o.Items {
			if match(item.KitchenStatus) {
				items = append(items, item)
			}
		}
		if len(items) > 0 {
			out = append(out, order.WithItems{Order: o.Order, Items: items})
		}
	}

	return out
}

func (f *fakeOrders) ListActive(context.Context) ([]order.WithItems, error) {
	return f.list(kitchenstatus.Status.IsActive), nil
}

func (f *fakeOrders) ListKitchenCompleted(context.Context) ([]order.WithItems, error) {
	return f.list(func(s kitchenstatus.Status) bool { return s == kitchenstatus.Completed }), nil
}

func (f *fakeOrders) ListBarCompleted(context.Context) ([]order.WithItems, error) {
	return f.list(func(s kitchenstatus.Status) bool { return s == kitchenstatus.Completed }), nil
}

func (f *fakeOrders) GetOrder(_ context.Context, orderID string) (*order.WithItems, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	o, ok := f.orders[orderID]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	cp.Items = append([]orderitem.OrderItem(nil), o.Items...)

	return &cp, nil
}

func (f *fakeOrders) SetStatus(
	_ context.Context,
	itemIDs []string,
	status kitchenstatus.Status,
	_ string,
) ([]statuslog.Change, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var changes []statuslog.Change
	for _, o := range f.orders {
		for i := range o.Items {
			for _, id := range itemIDs {
				if o.Items[i].ID == id {
					changes = append(changes, statuslog.Change{
						OrderItemID: id, OrderID: o.ID, From: o.Items[i].KitchenStatus, To: status,
					})
					o.Items[i].KitchenStatus = status
				}
			}
		}
	}

	return changes, nil
}

func (f *fakeOrders) SetOrderStatus(
	_ context.Context,
	orderID string,
	from []kitchenstatus.Status,
	status kitchenstatus.Status,
	_ string,
) ([]statuslog.Change, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	o, ok := f.orders[orderID]
	if !ok {
		return nil, nil
	}
	var changes []statuslog.Change
	for i := range o.Items {
		if len(from) > 0 && !kitchenstatus.In(o.Items[i].KitchenStatus, from) {
			continue
		}
		changes = append(changes, statuslog.Change{
			OrderItemID: o.Items[i].ID, OrderID: orderID, From: o.Items[i].KitchenStatus, To: status,
		})
		o.Items[i].KitchenStatus = status
	}

	return changes, nil
}

func (f *fakeOrders) status(orderID, itemID string) kitchenstatus.Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, item := range f.orders[orderID].Items {
		if item.ID == itemID {
			return item.KitchenStatus
		}
	}

	return ""
}

type fakeTimings struct {
	calls      []string
	resolveErr error
}

func (f *fakeTimings) StartPreparation(_ context.Context, orderID string) error {
	f.calls = append(f.calls, "start:"+orderID)

	return nil
}

func (f *fakeTimings) CompleteOrder(_ context.Context, orderID string) error {
	f.calls = append(f.calls, "complete:"+orderID)

	return nil
}

func (f *fakeTimings) MarkPassed(_ context.Context, orderID string) error {
	f.calls = append(f.calls, "passed:"+orderID)

	return nil
}

func (f *fakeTimings) ResolveWarning(_ context.Context, orderID, reason string) (*timing.OrderTiming, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	f.calls = append(f.calls, "resolve:"+orderID)

	return &timing.OrderTiming{OrderID: orderID, Status: timing.StatusArchived, WarningReason: reason}, nil
}

func (f *fakeTimings) ReopenWarning(_ context.Context, orderID string) (*timing.OrderTiming, error) {
	f.calls = append(f.calls, "reopen:"+orderID)

	return &timing.OrderTiming{OrderID: orderID, Status: timing.StatusActive}, nil
}

type recordingNotifier struct {
	sent []Notification
}

func (n *recordingNotifier) Notify(note Notification) {
	n.sent = append(n.sent, note)
}

type delayedCall struct {
	delay time.Duration
	f     func()
}

type manualScheduler struct {
	pending []delayedCall
}

func (s *manualScheduler) schedule(d time.Duration, f func()) {
	s.pending = append(s.pending, delayedCall{delay: d, f: f})
}

func (s *manualScheduler) runAll() {
	for _, c := range s.pending {
		c.f()
	}
	s.pending = nil
}

func item(id string, status kitchenstatus.Status) orderitem.OrderItem {
	return orderitem.OrderItem{ID: id, Name: "Item " + id, Quantity: 1, KitchenStatus: status}
}

func sample() order.WithItems {
	return order.WithItems{
		Order: order.Order{ID: "o1", Created: time.Now()},
		Items: []orderitem.OrderItem{
			item("i1", kitchenstatus.New),
			item("i2", kitchenstatus.Reordered),
			item("i3", kitchenstatus.Passed),
		},
	}
}

type env struct {
	svc       *KitchenService
	orders    *fakeOrders
	timings   *fakeTimings
	notifier  *recordingNotifier
	scheduler *manualScheduler
}

func newEnv(orders ...order.WithItems) *env {
	e := &env{
		orders:    newFakeOrders(orders...),
		timings:   &fakeTimings{},
		notifier:  &recordingNotifier{},
		scheduler: &manualScheduler{},
	}
	e.svc = MustNewKitchenService(
		WithOrderService(e.orders),
		WithTimingService(e.timings),
		WithNotifier(e.notifier),
		WithScheduler(e.scheduler.schedule),
	)

	return e
}

func TestMustNewKitchenServicePanicsWithoutDependencies(t *testing.T) {
	assert.Panics(t, func() { MustNewKitchenService() })
}

func TestPrepareOrderStartsActiveItems(t *testing.T) {
	e := newEnv(sample())

	changes, err := e.svc.PrepareOrder(context.Background(), "o1", "kitchen")
	require.NoError(t, err)
	assert.Len(t, changes, 2)
	assert.Equal(t, kitchenstatus.InProgress, e.orders.status("o1", "i1"))
	assert.Equal(t, kitchenstatus.InProgress, e.orders.status("o1", "i2"))
	assert.Equal(t, kitchenstatus.Passed, e.orders.status("o1", "i3"))
	assert.Equal(t, []string{"start:o1"}, e.timings.calls)
	require.Len(t, e.notifier.sent, 1)
	assert.Equal(t, Notification{Type: "prepare", OrderIDs: []string{"o1"}}, e.notifier.sent[0])
}

func TestPrepareUnknownOrder(t *testing.T) {
	e := newEnv()

	_, err := e.svc.PrepareOrder(context.Background(), "missing", "kitchen")
	require.ErrorIs(t, err, order.ErrNotFound)
	assert.Empty(t, e.timings.calls)
	assert.Empty(t, e.notifier.sent)
}

func TestCompleteOrderSchedulesPass(t *testing.T) {
	e := newEnv(sample())

	_, err := e.svc.CompleteOrder(context.Background(), "o1", "kitchen")
	require.NoError(t, err)
	assert.Equal(t, kitchenstatus.Completed, e.orders.status("o1", "i1"))
	assert.Equal(t, []string{"complete:o1"}, e.timings.calls)

	require.Len(t, e.scheduler.pending, 1)
	assert.Equal(t, defaultPassDelay, e.scheduler.pending[0].delay)

	e.scheduler.runAll()
	assert.Equal(t, kitchenstatus.Passed, e.orders.status("o1", "i1"))
	assert.Equal(t, kitchenstatus.Passed, e.orders.status("o1", "i2"))
	assert.Equal(t, []string{"complete:o1", "passed:o1"}, e.timings.calls)
}

func TestDelayedPassSkipsReturnedItems(t *testing.T) {
	e := newEnv(sample())
	ctx := context.Background()

	_, err := e.svc.CompleteOrder(ctx, "o1", "kitchen")
	require.NoError(t, err)
	_, err = e.svc.ReturnOrder(ctx, "o1", "kitchen")
	require.NoError(t, err)

	e.scheduler.runAll()
	assert.Equal(t, kitchenstatus.InProgress, e.orders.status("o1", "i1"))
	assert.Equal(t, kitchenstatus.InProgress, e.orders.status("o1", "i3"))
	assert.NotContains(t, e.timings.calls, "passed:o1")
}

func TestSetItemsStatusFollowsTiming(t *testing.T) {
	e := newEnv(sample())
	ctx := context.Background()

	_, err := e.svc.SetItemsStatus(ctx, []string{"i1"}, kitchenstatus.InProgress, "kitchen")
	require.NoError(t, err)
	assert.Equal(t, []string{"start:o1"}, e.timings.calls)

	_, err = e.svc.SetItemsStatus(ctx, []string{"i1"}, kitchenstatus.Completed, "kitchen")
	require.NoError(t, err)
	assert.Equal(t, []string{"start:o1"}, e.timings.calls, "i2 still active")

	_, err = e.svc.SetItemsStatus(ctx, []string{"i2"}, kitchenstatus.Completed, "kitchen")
	require.NoError(t, err)
	assert.Equal(t, []string{"start:o1", "complete:o1"}, e.timings.calls)
	assert.Len(t, e.notifier.sent, 3)
}

func TestResolveWarningPassesAllItems(t *testing.T) {
	e := newEnv(sample())

	got, err := e.svc.ResolveWarning(context.Background(), "o1", "customer left", "admin")
	require.NoError(t, err)
	assert.Equal(t, timing.StatusArchived, got.Status)
	for _, id := range []string{"i1", "i2", "i3"} {
		assert.Equal(t, kitchenstatus.Passed, e.orders.status("o1", id))
	}
}

func TestResolveWarningErrorLeavesItems(t *testing.T) {
	e := newEnv(sample())
	e.timings.resolveErr = timing.ErrNotInWarning

	_, err := e.svc.ResolveWarning(context.Background(), "o1", "", "admin")
	require.ErrorIs(t, err, timing.ErrNotInWarning)
	assert.Equal(t, kitchenstatus.New, e.orders.status("o1", "i1"))
}

func TestKitchenBoardToleratesAutoRemoveFailure(t *testing.T) {
	o := sample()
	o.Items = append(o.Items, item("i4", kitchenstatus.Completed))
	e := newEnv(o)
	e.orders.autoErr = errors.New("boom")

	board, err := e.svc.KitchenBoard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, e.orders.autoRemoved)
	require.Len(t, board.Active, 1)
	assert.Len(t, board.Active[0].Items, 2)
	require.Len(t, board.Completed, 1)
	assert.True(t, board.Completed[0].AllCompleted)
}

func TestBarBoardUsesBarLines(t *testing.T) {
	o := order.WithItems{
		Order: order.Order{ID: "o2"},
		Items: []orderitem.OrderItem{
			{ID: "a", Name: "Latte", Quantity: 1, KitchenStatus: kitchenstatus.Completed},
			{ID: "b", Name: "Latte", Quantity: 2, KitchenStatus: kitchenstatus.Completed},
		},
	}
	e := newEnv(o)

	board, err := e.svc.BarBoard(context.Background())
	require.NoError(t, err)
	require.Len(t, board.Completed, 1)
	require.Len(t, board.Completed[0].Lines, 1)
	assert.Equal(t, 3, board.Completed[0].Lines[0].Quantity)
}
