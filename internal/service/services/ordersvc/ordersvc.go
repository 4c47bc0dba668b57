package ordersvc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/kitchen/internal/dal/interfaces/iorderitemrepo"
	"github.com/corray333/backend-labs/kitchen/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/kitchen/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/kitchen/internal/dal/postgres"
	"github.com/corray333/backend-labs/kitchen/internal/dal/uow"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/kitchenstatus"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/outbox"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/product"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/statuslog"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/timing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	ActorSync      = "sync"
	ActorExclusion = "auto-exclusion"

	defaultStatusQueue = "kitchen.item.status_changed"
	defaultMaxRetries  = 5
)

// OrderService owns order ingestion, kitchen status writes and order listings.
type OrderService struct {
	newUOW      func() unitOfWork
	exclusions  exclusions
	timings     timings
	now         func() time.Time
	statusQueue string
	maxRetries  int
	windows     Windows
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() iorderrepo.IOrderRepository
	OrderItemRepository() iorderitemrepo.IOrderItemRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
}

type exclusions interface {
	ListExcluded(ctx context.Context) (product.IDSet, error)
}

type timings interface {
	TimingsFor(ctx context.Context, orderIDs []string) (map[string]timing.OrderTiming, error)
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{
		now:         time.Now,
		statusQueue: defaultStatusQueue,
		maxRetries:  defaultMaxRetries,
		windows:     DefaultWindows(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.newUOW == nil {
		panic("ordersvc: postgres client or unit of work factory is required")
	}
	if s.exclusions == nil {
		panic("ordersvc: exclusion service is required")
	}

	return s
}

// WithPostgresClient sets the Postgres client for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *OrderService) {
		s.newUOW = func() unitOfWork {
			return uow.NewUnitOfWork(pgClient)
		}
	}
}

// WithUnitOfWorkFactory sets how units of work are created.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWorkFactory(factory func() unitOfWork) option {
	return func(s *OrderService) {
		s.newUOW = factory
	}
}

// WithExclusions sets the source of the excluded product set.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithExclusions(e exclusions) option {
	return func(s *OrderService) {
		s.exclusions = e
	}
}

// WithTimings sets the source of order timings attached to active listings.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithTimings(t timings) option {
	return func(s *OrderService) {
		s.timings = t
	}
}

// WithStatusQueue sets the queue status-change events are addressed to.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithStatusQueue(queue string, maxRetries int) option {
	return func(s *OrderService) {
		if queue != "" {
			s.statusQueue = queue
		}
		if maxRetries > 0 {
			s.maxRetries = maxRetries
		}
	}
}

// WithWindows overrides the completed listing windows.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithWindows(w Windows) option {
	return func(s *OrderService) {
		if w.KitchenCompleted > 0 {
			s.windows.KitchenCompleted = w.KitchenCompleted
		}
		if w.BarCompleted > 0 {
			s.windows.BarCompleted = w.BarCompleted
		}
	}
}

// WithClock overrides the time source.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *OrderService) {
		s.now = now
	}
}

// SetStatus moves the given items to status unconditionally. Last write wins.
func (s *OrderService) SetStatus(
	ctx context.Context,
	itemIDs []string,
	status kitchenstatus.Status,
	actor string,
) ([]statuslog.Change, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.SetStatus")
	defer span.End()
	span.SetAttributes(attribute.Int("items", len(itemIDs)), attribute.String("status", status.String()))

	if _, err := kitchenstatus.Parse(status.String()); err != nil {
		return nil, err
	}
	if len(itemIDs) == 0 {
		return nil, nil
	}

	return s.updateStatus(ctx, orderitem.UpdateStatusModel{
		Ids: itemIDs,
		To:  status,
	}, actor)
}

// SetOrderStatus moves the items of an order currently in one of from to status.
// An empty from moves every item of the order.
func (s *OrderService) SetOrderStatus(
	ctx context.Context,
	orderID string,
	from []kitchenstatus.Status,
	status kitchenstatus.Status,
	actor string,
) ([]statuslog.Change, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.SetOrderStatus")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", orderID), attribute.String("status", status.String()))

	if _, err := kitchenstatus.Parse(status.String()); err != nil {
		return nil, err
	}

	return s.updateStatus(ctx, orderitem.UpdateStatusModel{
		OrderIds:     []string{orderID},
		FromStatuses: from,
		To:           status,
	}, actor)
}

// AutoRemoveExcluded passes every unfinished item of an excluded product. It is one-way:
// removing a product from the set does not bring its items back.
func (s *OrderService) AutoRemoveExcluded(ctx context.Context) (int, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.AutoRemoveExcluded")
	defer span.End()

	excluded, err := s.exclusions.ListExcluded(ctx)
	if err != nil {
		return 0, err
	}
	if len(excluded) == 0 {
		return 0, nil
	}

	changes, err := s.updateStatus(ctx, orderitem.UpdateStatusModel{
		ProductIds:   excluded.Slice(),
		FromStatuses: kitchenstatus.Excludable,
		To:           kitchenstatus.Passed,
	}, ActorExclusion)
	if err != nil {
		return 0, err
	}

	if len(changes) > 0 {
		slog.Info("Excluded items passed", "count", len(changes))
	}

	return len(changes), nil
}

// updateStatus writes the status and queues a status-change event in the same transaction.
func (s *OrderService) updateStatus(
	ctx context.Context,
	model orderitem.UpdateStatusModel,
	actor string,
) ([]statuslog.Change, error) {
	model.At = s.now()

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := work.Rollback(ctx); err != nil {
			slog.Error("Failed to rollback status update", "error", err)
		}
	}()

	changes, err := work.OrderItemRepository().UpdateStatus(ctx, model)
	if err != nil {
		return nil, err
	}

	if err := s.enqueueEvent(ctx, work, changes, actor, model.At); err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit status update: %w", err)
	}

	return changes, nil
}

func (s *OrderService) enqueueEvent(
	ctx context.Context,
	work unitOfWork,
	changes []statuslog.Change,
	actor string,
	at time.Time,
) error {
	event := statuslog.NewEvent(changes, actor, at)
	if len(event.Entries) == 0 {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal status event: %w", err)
	}

	if err := work.OutboxRepository().Insert(ctx, outbox.New(s.statusQueue, payload, s.maxRetries, at)); err != nil {
		return fmt.Errorf("failed to enqueue status event: %w", err)
	}

	return nil
}
