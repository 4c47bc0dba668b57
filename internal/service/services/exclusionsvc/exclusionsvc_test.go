package exclusionsvc

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/corray333/backend-labs/kitchen/internal/service/models/product"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExcludedRepository struct {
	ids     []string
	err     error
	replace int
}

func (f *fakeExcludedRepository) List(context.Context) ([]string, error) {
	return f.ids, f.err
}

func (f *fakeExcludedRepository) Replace(_ context.Context, ids []string) error {
	if f.err != nil {
		return f.err
	}
	f.replace++
	f.ids = ids

	return nil
}

func ptr(s string) *string {
	return &s
}

func TestReplaceExcludedNormalizes(t *testing.T) {
	repo := &fakeExcludedRepository{ids: []string{"old"}}
	svc := MustNewExclusionService(WithExcludedRepository(repo))

	set, err := svc.ReplaceExcluded(context.Background(), []string{" p1 ", "p2", "p1", ""})
	require.NoError(t, err)
	assert.Len(t, set, 2)

	stored := append([]string(nil), repo.ids...)
	sort.Strings(stored)
	assert.Equal(t, []string{"p1", "p2"}, stored)
}

func TestIsExcluded(t *testing.T) {
	repo := &fakeExcludedRepository{ids: []string{"p1"}}
	svc := MustNewExclusionService(WithExcludedRepository(repo))
	ctx := context.Background()

	excluded, err := svc.IsExcluded(ctx, ptr("p1"))
	require.NoError(t, err)
	assert.True(t, excluded)

	excluded, err = svc.IsExcluded(ctx, ptr("p2"))
	require.NoError(t, err)
	assert.False(t, excluded)

	repo.err = errors.New("must not be called")
	excluded, err = svc.IsExcluded(ctx, nil)
	require.NoError(t, err)
	assert.False(t, excluded)

	excluded, err = svc.IsExcluded(ctx, ptr(""))
	require.NoError(t, err)
	assert.False(t, excluded)
}

func TestReplaceExcludedPropagatesErrors(t *testing.T) {
	repo := &fakeExcludedRepository{err: errors.New("db down")}
	svc := MustNewExclusionService(WithExcludedRepository(repo))

	_, err := svc.ReplaceExcluded(context.Background(), []string{"p1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

type fakeProductRepository struct {
	products []product.Product
}

func (f *fakeProductRepository) Upsert(_ context.Context, products []product.Product) error {
	f.products = products

	return nil
}

func (f *fakeProductRepository) List(context.Context) ([]product.Product, error) {
	return f.products, nil
}

func TestListProductsMarksExcluded(t *testing.T) {
	svc := MustNewExclusionService(
		WithExcludedRepository(&fakeExcludedRepository{ids: []string{"p2"}}),
		WithProductRepository(&fakeProductRepository{products: []product.Product{
			{ID: "p1", Name: "Burger"},
			{ID: "p2", Name: "Cola"},
		}}),
	)

	entries, err := svc.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.False(t, entries[0].Excluded)
	assert.True(t, entries[1].Excluded)
	assert.Equal(t, "Cola", entries[1].Name)
}
