package kitchensvc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/kitchen/internal/service/models/kitchenstatus"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/order"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/statuslog"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/timing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPassDelay = 5 * time.Second

	ActorAutoPass = "auto-pass"
)

// Notification tells connected boards which orders changed.
type Notification struct {
	Type     string   `json:"type"`
	OrderIDs []string `json:"order_ids"`
}

type orders interface {
	AutoRemoveExcluded(ctx context.Context) (int, error)
	ListActive(ctx context.Context) ([]order.WithItems, error)
	ListKitchenCompleted(ctx context.Context) ([]order.WithItems, error)
	ListBarCompleted(ctx context.Context) ([]order.WithItems, error)
	GetOrder(ctx context.Context, orderID string) (*order.WithItems, error)
	SetStatus(ctx context.Context, itemIDs []string, status kitchenstatus.Status, actor string) ([]statuslog.Change, error)
	SetOrderStatus(
		ctx context.Context,
		orderID string,
		from []kitchenstatus.Status,
		status kitchenstatus.Status,
		actor string,
	) ([]statuslog.Change, error)
}

type timings interface {
	StartPreparation(ctx context.Context, orderID string) error
	CompleteOrder(ctx context.Context, orderID string) error
	MarkPassed(ctx context.Context, orderID string) error
	ResolveWarning(ctx context.Context, orderID, reason string) (*timing.OrderTiming, error)
	ReopenWarning(ctx context.Context, orderID string) (*timing.OrderTiming, error)
}

type notifier interface {
	Notify(n Notification)
}

// KitchenService implements the kitchen, bar and warning board workflows on top of
// the order and timing services.
type KitchenService struct {
	orders    orders
	timings   timings
	notifier  notifier
	passDelay time.Duration
	schedule  func(d time.Duration, f func())
}

// option is a function that configures the KitchenService.
type option func(*KitchenService)

// MustNewKitchenService creates a new KitchenService.
func MustNewKitchenService(opts ...option) *KitchenService {
	s := &KitchenService{
		passDelay: defaultPassDelay,
		schedule: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.orders == nil || s.timings == nil {
		panic("kitchensvc: order and timing services are required")
	}

	return s
}

// WithOrderService sets the order service.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderService(o orders) option {
	return func(s *KitchenService) {
		s.orders = o
	}
}

// WithTimingService sets the timing service.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithTimingService(t timings) option {
	return func(s *KitchenService) {
		s.timings = t
	}
}

// WithNotifier sets where change notifications are pushed.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithNotifier(n notifier) option {
	return func(s *KitchenService) {
		s.notifier = n
	}
}

// WithPassDelay sets how long after completion an order is passed automatically.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPassDelay(d time.Duration) option {
	return func(s *KitchenService) {
		if d > 0 {
			s.passDelay = d
		}
	}
}

// WithScheduler replaces time.AfterFunc for delayed actions.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithScheduler(schedule func(d time.Duration, f func())) option {
	return func(s *KitchenService) {
		s.schedule = schedule
	}
}

// KitchenBoard passes excluded items and loads the active and recently completed orders.
func (s *KitchenService) KitchenBoard(ctx context.Context) (*KitchenBoard, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "KitchenService.KitchenBoard")
	defer span.End()

	if _, err := s.orders.AutoRemoveExcluded(ctx); err != nil {
		slog.Warn("Auto removal of excluded items failed", "error", err)
	}

	var active, completed []order.WithItems
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		active, err = s.orders.ListActive(gctx)

		return err
	})
	g.Go(func() error {
		var err error
		completed, err = s.orders.ListKitchenCompleted(gctx)

		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load kitchen board: %w", err)
	}

	return &KitchenBoard{
		Active:    kitchenViews(active),
		Completed: kitchenViews(completed),
	}, nil
}

// BarBoard loads orders completed within the bar window.
func (s *KitchenService) BarBoard(ctx context.Context) (*BarBoard, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "KitchenService.BarBoard")
	defer span.End()

	completed, err := s.orders.ListBarCompleted(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load bar board: %w", err)
	}

	return &BarBoard{Completed: barViews(completed)}, nil
}

// PrepareOrder starts every active item of the order and stamps preparation start.
func (s *KitchenService) PrepareOrder(ctx context.Context, orderID, actor string) ([]statuslog.Change, error) {
	return s.orderAction(ctx, "prepare", orderID, func(ctx context.Context) ([]statuslog.Change, error) {
		changes, err := s.orders.SetOrderStatus(ctx, orderID, kitchenstatus.Active, kitchenstatus.InProgress, actor)
		if err != nil {
			return nil, err
		}

		return changes, s.timings.StartPreparation(ctx, orderID)
	})
}

// CompleteOrder completes every unfinished item, records completion time and
// passes the order after the pass delay.
func (s *KitchenService) CompleteOrder(ctx context.Context, orderID, actor string) ([]statuslog.Change, error) {
	changes, err := s.orderAction(ctx, "complete", orderID, func(ctx context.Context) ([]statuslog.Change, error) {
		changes, err := s.orders.SetOrderStatus(ctx, orderID, kitchenstatus.Active, kitchenstatus.Completed, actor)
		if err != nil {
			return nil, err
		}

		return changes, s.timings.CompleteOrder(ctx, orderID)
	})
	if err != nil {
		return nil, err
	}

	// The delayed pass may find the order returned to the kitchen meanwhile;
	// it only moves items that are still completed.
	s.schedule(s.passDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if _, err := s.PassOrder(ctx, orderID, ActorAutoPass); err != nil {
			slog.Error("Delayed pass failed", "order_id", orderID, "error", err)
		}
	})

	return changes, nil
}

// ReturnOrder sends completed or passed items of the order back to preparation.
// Timing is left as recorded.
func (s *KitchenService) ReturnOrder(ctx context.Context, orderID, actor string) ([]statuslog.Change, error) {
	return s.orderAction(ctx, "return", orderID, func(ctx context.Context) ([]statuslog.Change, error) {
		return s.orders.SetOrderStatus(ctx, orderID, kitchenstatus.Returnable, kitchenstatus.InProgress, actor)
	})
}

// PassOrder hands completed items of the order over and stamps passed_at.
func (s *KitchenService) PassOrder(ctx context.Context, orderID, actor string) ([]statuslog.Change, error) {
	return s.orderAction(ctx, "pass", orderID, func(ctx context.Context) ([]statuslog.Change, error) {
		changes, err := s.orders.SetOrderStatus(
			ctx,
			orderID,
			[]kitchenstatus.Status{kitchenstatus.Completed},
			kitchenstatus.Passed,
			actor,
		)
		if err != nil {
			return nil, err
		}
		if len(changes) == 0 {
			return nil, nil
		}

		return changes, s.timings.MarkPassed(ctx, orderID)
	})
}

// SetItemsStatus writes status to individual items. Items entering preparation start
// their order's timing; an order left without active items is completed.
func (s *KitchenService) SetItemsStatus(
	ctx context.Context,
	itemIDs []string,
	status kitchenstatus.Status,
	actor string,
) ([]statuslog.Change, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "KitchenService.SetItemsStatus")
	defer span.End()

	changes, err := s.orders.SetStatus(ctx, itemIDs, status, actor)
	if err != nil {
		return nil, err
	}

	orderIDs := statuslog.OrderIDs(changes)
	for _, orderID := range orderIDs {
		if err := s.followTiming(ctx, orderID, status); err != nil {
			slog.Warn("Failed to update order timing", "order_id", orderID, "error", err)
		}
	}

	s.notify("items", orderIDs...)

	return changes, nil
}

func (s *KitchenService) followTiming(ctx context.Context, orderID string, status kitchenstatus.Status) error {
	switch status {
	case kitchenstatus.InProgress:
		return s.timings.StartPreparation(ctx, orderID)
	case kitchenstatus.Completed, kitchenstatus.Passed:
		o, err := s.orders.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		for _, item := range o.Items {
			if item.KitchenStatus.IsActive() {
				return nil
			}
		}

		return s.timings.CompleteOrder(ctx, orderID)
	default:
		return nil
	}
}

// ResolveWarning archives the warning and passes every item of the order.
func (s *KitchenService) ResolveWarning(
	ctx context.Context,
	orderID, reason, actor string,
) (*timing.OrderTiming, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "KitchenService.ResolveWarning")
	defer span.End()

	t, err := s.timings.ResolveWarning(ctx, orderID, reason)
	if err != nil {
		return nil, err
	}

	if _, err := s.orders.SetOrderStatus(ctx, orderID, nil, kitchenstatus.Passed, actor); err != nil {
		return nil, err
	}

	s.notify("warning_resolved", orderID)

	return t, nil
}

// ReopenWarning returns the warning to active.
func (s *KitchenService) ReopenWarning(ctx context.Context, orderID string) (*timing.OrderTiming, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "KitchenService.ReopenWarning")
	defer span.End()

	t, err := s.timings.ReopenWarning(ctx, orderID)
	if err != nil {
		return nil, err
	}

	s.notify("warning_reopened", orderID)

	return t, nil
}

// orderAction checks that the order exists, runs the action and notifies boards.
func (s *KitchenService) orderAction(
	ctx context.Context,
	name, orderID string,
	action func(ctx context.Context) ([]statuslog.Change, error),
) ([]statuslog.Change, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "KitchenService."+name)
	defer span.End()
	span.SetAttributes(attribute.String("order_id", orderID))

	if _, err := s.orders.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}

	changes, err := action(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to %s order %s: %w", name, orderID, err)
	}

	slog.Info("Order action applied", "action", name, "order_id", orderID, "items", len(changes))
	s.notify(name, orderID)

	return changes, nil
}

func (s *KitchenService) notify(kind string, orderIDs ...string) {
	if s.notifier == nil || len(orderIDs) == 0 {
		return
	}

	s.notifier.Notify(Notification{Type: kind, OrderIDs: orderIDs})
}
