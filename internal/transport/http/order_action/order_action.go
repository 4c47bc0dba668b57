package orderaction

import (
	"context"
	"fmt"
	"net/http"

	"github.com/corray333/backend-labs/kitchen/internal/service/models/statuslog"
	"github.com/corray333/backend-labs/kitchen/internal/transport/http/respond"
	"github.com/corray333/backend-labs/kitchen/pkg/http/middleware/auth"
	"github.com/go-chi/chi/v5"
)

const defaultActor = "kitchen"

type service interface {
	PrepareOrder(ctx context.Context, orderID, actor string) ([]statuslog.Change, error)
	CompleteOrder(ctx context.Context, orderID, actor string) ([]statuslog.Change, error)
	ReturnOrder(ctx context.Context, orderID, actor string) ([]statuslog.Change, error)
	PassOrder(ctx context.Context, orderID, actor string) ([]statuslog.Change, error)
}

type actionFunc func(ctx context.Context, orderID, actor string) ([]statuslog.Change, error)

type actionResponse struct {
	OrderID string             `json:"order_id"`
	Action  string             `json:"action"`
	Changes []statuslog.Change `json:"changes"`
}

func resolve(service service, action string) (actionFunc, bool) {
	switch action {
	case "prepare":
		return service.PrepareOrder, true
	case "complete":
		return service.CompleteOrder, true
	case "return":
		return service.ReturnOrder, true
	case "pass":
		return service.PassOrder, true
	default:
		return nil, false
	}
}

// Apply handles POST /api/orders/{id}/{action}.
func Apply(w http.ResponseWriter, r *http.Request, service service) {
	orderID := chi.URLParam(r, "id")
	action := chi.URLParam(r, "action")

	fn, ok := resolve(service, action)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown action %q", action), http.StatusNotFound)

		return
	}

	changes, err := fn(r.Context(), orderID, auth.Actor(r.Context(), defaultActor))
	if err != nil {
		respond.Error(w, r, err, "Error applying order action")

		return
	}

	if changes == nil {
		changes = []statuslog.Change{}
	}
	respond.JSON(w, r, http.StatusOK, actionResponse{OrderID: orderID, Action: action, Changes: changes})
}
