package iproductrepo

import (
	"context"

	"github.com/corray333/backend-labs/kitchen/internal/service/models/product"
)

// IProductRepository is an interface for product catalogue repository.
type IProductRepository interface {
	Upsert(ctx context.Context, products []product.Product) error
	List(ctx context.Context) ([]product.Product, error)
}
