package exclusionsvc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/corray333/backend-labs/kitchen/internal/dal/interfaces/iexcludedrepo"
	"github.com/corray333/backend-labs/kitchen/internal/dal/interfaces/iproductrepo"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/product"
	"go.opentelemetry.io/otel"
)

// ExclusionService manages the set of products hidden from kitchen views.
type ExclusionService struct {
	repo     iexcludedrepo.IExcludedRepository
	products iproductrepo.IProductRepository
}

// option is a function that configures the ExclusionService.
type option func(*ExclusionService)

// MustNewExclusionService creates a new ExclusionService.
func MustNewExclusionService(opts ...option) *ExclusionService {
	s := &ExclusionService{}
	for _, opt := range opts {
		opt(s)
	}

	if s.repo == nil {
		panic("exclusionsvc: excluded products repository is required")
	}

	return s
}

// WithExcludedRepository sets the excluded products repository.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithExcludedRepository(repo iexcludedrepo.IExcludedRepository) option {
	return func(s *ExclusionService) {
		s.repo = repo
	}
}

// WithProductRepository sets the catalogue the admin picks exclusions from.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithProductRepository(repo iproductrepo.IProductRepository) option {
	return func(s *ExclusionService) {
		s.products = repo
	}
}

// ListExcluded returns the current exclusion set.
func (s *ExclusionService) ListExcluded(ctx context.Context) (product.IDSet, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "ExclusionService.ListExcluded")
	defer span.End()

	ids, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list excluded products: %w", err)
	}

	return product.NewIDSet(ids...), nil
}

// ReplaceExcluded atomically replaces the whole set. Existing order items are not touched.
func (s *ExclusionService) ReplaceExcluded(ctx context.Context, ids []string) (product.IDSet, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "ExclusionService.ReplaceExcluded")
	defer span.End()

	set := product.NewIDSet(ids...)
	if err := s.repo.Replace(ctx, set.Slice()); err != nil {
		return nil, fmt.Errorf("failed to replace excluded products: %w", err)
	}

	slog.Info("Excluded products replaced", "count", len(set))

	return set, nil
}

// IsExcluded reports whether productID is excluded. Items without a product id never are.
func (s *ExclusionService) IsExcluded(ctx context.Context, productID *string) (bool, error) {
	if productID == nil || *productID == "" {
		return false, nil
	}

	set, err := s.ListExcluded(ctx)
	if err != nil {
		return false, err
	}

	return set.Contains(productID), nil
}

// CatalogueEntry is a product with its exclusion flag.
type CatalogueEntry struct {
	product.Product
	Excluded bool `json:"excluded"`
}

// ListProducts returns the synchronized catalogue marked with the current exclusions.
func (s *ExclusionService) ListProducts(ctx context.Context) ([]CatalogueEntry, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "ExclusionService.ListProducts")
	defer span.End()

	if s.products == nil {
		return nil, nil
	}

	products, err := s.products.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	set, err := s.ListExcluded(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]CatalogueEntry, len(products))
	for i, p := range products {
		id := p.ID
		entries[i] = CatalogueEntry{Product: p, Excluded: set.Contains(&id)}
	}

	return entries, nil
}
