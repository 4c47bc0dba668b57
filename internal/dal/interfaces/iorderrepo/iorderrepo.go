package iorderrepo

import (
	"context"

	"github.com/corray333/backend-labs/kitchen/internal/service/models/order"
)

// IOrderRepository is an interface for order postgres repository.
type IOrderRepository interface {
	Upsert(ctx context.Context, o order.Order) error
	Get(ctx context.Context, id string) (*order.Order, error)
}
