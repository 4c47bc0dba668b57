package syncsvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/corray333/backend-labs/kitchen/internal/dal/interfaces/iproductrepo"
	"github.com/corray333/backend-labs/kitchen/internal/dal/pos"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/order"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/product"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	lookBack  = 7 * 24 * time.Hour
	lookAhead = 24 * time.Hour
)

var errMissingID = errors.New("upstream order without id")

// Result reports an order synchronization run.
type Result struct {
	Success         bool   `json:"success"`
	Error           string `json:"error,omitempty"`
	OrdersProcessed int    `json:"ordersProcessed"`
	ItemsProcessed  int    `json:"itemsProcessed"`
	OrdersFailed    int    `json:"ordersFailed"`
}

// ProductsResult reports a catalogue synchronization run.
type ProductsResult struct {
	Success           bool   `json:"success"`
	Error             string `json:"error,omitempty"`
	ProductsProcessed int    `json:"productsProcessed"`
}

type posClient interface {
	ListOrders(ctx context.Context, from, to time.Time) ([]pos.Order, error)
	ListOrderItems(ctx context.Context, orderID string) ([]pos.OrderItem, error)
	ListProducts(ctx context.Context) ([]pos.Product, error)
	TableName(ctx context.Context, tableID string) string
}

type ingester interface {
	Ingest(ctx context.Context, o order.Order, upstream []orderitem.Upstream) (int, error)
}

// SyncService pulls orders and products from the POS into local storage.
type SyncService struct {
	mu       sync.Mutex
	pos      posClient
	orders   ingester
	products iproductrepo.IProductRepository
	now      func() time.Time
}

// option is a function that configures the SyncService.
type option func(*SyncService)

// MustNewSyncService creates a new SyncService.
func MustNewSyncService(opts ...option) *SyncService {
	s := &SyncService{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if s.pos == nil || s.orders == nil || s.products == nil {
		panic("syncsvc: pos client, order ingester and product repository are required")
	}

	return s
}

// WithPOSClient sets the upstream POS client.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPOSClient(c posClient) option {
	return func(s *SyncService) {
		s.pos = c
	}
}

// WithOrderIngester sets the order ingester.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderIngester(i ingester) option {
	return func(s *SyncService) {
		s.orders = i
	}
}

// WithProductRepository sets the product catalogue repository.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithProductRepository(repo iproductrepo.IProductRepository) option {
	return func(s *SyncService) {
		s.products = repo
	}
}

// WithClock overrides the time source.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *SyncService) {
		s.now = now
	}
}

// SyncOrders mirrors orders created in the last week, and up to a day ahead to
// absorb clock skew, together with their items. A failing order is counted and
// skipped; a failing listing fails the run.
func (s *SyncService) SyncOrders(ctx context.Context) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := otel.Tracer("service").Start(ctx, "SyncService.SyncOrders")
	defer span.End()

	now := s.now()
	upstream, err := s.pos.ListOrders(ctx, now.Add(-lookBack), now.Add(lookAhead))
	if err != nil {
		slog.Error("Failed to list upstream orders", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return Result{Error: err.Error()}
	}

	res := Result{Success: true}
	for _, po := range upstream {
		if err := ctx.Err(); err != nil {
			return Result{Error: err.Error()}
		}

		items, err := s.syncOrder(ctx, po)
		if err != nil {
			slog.Error("Failed to sync order", "order_id", po.ID.String(), "error", err)
			res.OrdersFailed++

			continue
		}
		res.OrdersProcessed++
		res.ItemsProcessed += items
	}

	span.SetAttributes(
		attribute.Int("orders_processed", res.OrdersProcessed),
		attribute.Int("items_processed", res.ItemsProcessed),
		attribute.Int("orders_failed", res.OrdersFailed),
	)
	slog.Info("Orders synchronized",
		"orders", res.OrdersProcessed,
		"items", res.ItemsProcessed,
		"failed", res.OrdersFailed,
	)

	return res
}

func (s *SyncService) syncOrder(ctx context.Context, po pos.Order) (int, error) {
	orderID := po.ID.String()
	if orderID == "" {
		return 0, errMissingID
	}

	items, err := s.pos.ListOrderItems(ctx, orderID)
	if err != nil {
		return 0, fmt.Errorf("failed to list items: %w", err)
	}

	var tableName string
	if po.TableID != "" {
		tableName = s.pos.TableName(ctx, po.TableID.String())
	}

	o := order.Order{
		ID:              orderID,
		Created:         po.Created,
		Note:            po.Note,
		TableName:       tableName,
		DeliveryService: order.DeriveDeliveryService(po.Note),
		DeliveryNote:    po.Note,
	}

	return s.orders.Ingest(ctx, o, toUpstream(items))
}

func toUpstream(items []pos.OrderItem) []orderitem.Upstream {
	out := make([]orderitem.Upstream, 0, len(items))
	for _, it := range items {
		id := it.ID.String()
		u := orderitem.Upstream{
			ID:            id,
			ProductID:     it.ProductID.Ptr(),
			Name:          it.Name,
			Quantity:      pos.Quantity(it.Quantity),
			KitchenStatus: it.KitchenStatus.String(),
			Note:          it.Note,
		}
		for _, c := range it.Customizations {
			if strings.TrimSpace(c.Name) == "" {
				continue
			}
			u.Subitems = append(u.Subitems, orderitem.Subitem{
				OrderItemID: id,
				Name:        c.Name,
				Quantity:    max(pos.Quantity(c.Quantity), 1),
			})
		}
		out = append(out, u)
	}

	return out
}

// SyncProducts refreshes the local product catalogue.
func (s *SyncService) SyncProducts(ctx context.Context) ProductsResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := otel.Tracer("service").Start(ctx, "SyncService.SyncProducts")
	defer span.End()

	upstream, err := s.pos.ListProducts(ctx)
	if err != nil {
		slog.Error("Failed to list upstream products", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return ProductsResult{Error: err.Error()}
	}

	now := s.now()
	products := make([]product.Product, 0, len(upstream))
	seen := make(map[string]struct{}, len(upstream))
	for _, p := range upstream {
		id := p.ID.String()
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		products = append(products, product.Product{
			ID:          id,
			Name:        p.Name,
			Category:    p.CategoryID.String(),
			LastUpdated: now,
		})
	}

	if err := s.products.Upsert(ctx, products); err != nil {
		slog.Error("Failed to store products", "error", err)

		return ProductsResult{Error: err.Error()}
	}

	slog.Info("Products synchronized", "products", len(products))

	return ProductsResult{Success: true, ProductsProcessed: len(products)}
}
