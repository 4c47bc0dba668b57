package syncpos

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/kitchen/internal/service/services/syncsvc"
	"github.com/corray333/backend-labs/kitchen/internal/transport/http/respond"
)

type service interface {
	SyncOrders(ctx context.Context) syncsvc.Result
	SyncProducts(ctx context.Context) syncsvc.ProductsResult
}

// Orders handles POST /api/sync/orders. A failed run is reported in the body with 502.
func Orders(w http.ResponseWriter, r *http.Request, service service) {
	res := service.SyncOrders(r.Context())

	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadGateway
	}
	respond.JSON(w, r, status, res)
}

// Products handles POST /api/sync/products.
func Products(w http.ResponseWriter, r *http.Request, service service) {
	res := service.SyncProducts(r.Context())

	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadGateway
	}
	respond.JSON(w, r, status, res)
}
