package iexcludedrepo

import (
	"context"
)

// IExcludedRepository stores the set of product ids hidden from kitchen views.
type IExcludedRepository interface {
	List(ctx context.Context) ([]string, error)
	// Replace swaps the whole set.
	Replace(ctx context.Context, ids []string) error
}
