package syncpos

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/corray333/backend-labs/kitchen/internal/service/services/syncsvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	orders   syncsvc.Result
	products syncsvc.ProductsResult
}

func (f fakeService) SyncOrders(context.Context) syncsvc.Result {
	return f.orders
}

func (f fakeService) SyncProducts(context.Context) syncsvc.ProductsResult {
	return f.products
}

func TestOrders(t *testing.T) {
	svc := fakeService{orders: syncsvc.Result{Success: true, OrdersProcessed: 3, ItemsProcessed: 7}}

	rec := httptest.NewRecorder()
	Orders(rec, httptest.NewRequest(http.MethodPost, "/api/sync/orders", nil), svc)

	require.Equal(t, http.StatusOK, rec.Code)
	var got syncsvc.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, svc.orders, got)
	assert.Contains(t, rec.Body.String(), `"ordersProcessed":3`)
}

func TestFailedSyncIsReportedAsBadGateway(t *testing.T) {
	svc := fakeService{products: syncsvc.ProductsResult{Error: "pos: unauthorized"}}

	rec := httptest.NewRecorder()
	Products(rec, httptest.NewRequest(http.MethodPost, "/api/sync/products", nil), svc)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "pos: unauthorized")
}
