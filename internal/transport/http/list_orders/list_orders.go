package listorders

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"time"

	"github.com/corray333/backend-labs/kitchen/internal/service/models/kitchenstatus"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/order"
	"github.com/corray333/backend-labs/kitchen/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/kitchen/internal/transport/http/respond"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"
)

type service interface {
	ListPreset(ctx context.Context, preset ordersvc.Preset) ([]order.WithItems, error)
	ListByStatus(ctx context.Context, q order.ListQuery) ([]order.WithItems, error)
	GetOrder(ctx context.Context, orderID string) (*order.WithItems, error)
}

var errNoFilter = errors.New("either preset or statuses is required")

var decoder = newDecoder()

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	d.RegisterConverter(time.Time{}, func(s string) reflect.Value {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return reflect.Value{}
		}

		return reflect.ValueOf(t)
	})

	return d
}

type queryOrdersRequest struct {
	Preset     string    `schema:"preset"`
	Statuses   []string  `schema:"statuses"`
	From       time.Time `schema:"from"`
	To         time.Time `schema:"to"`
	OrderIDs   []string  `schema:"order_ids"`
	WithTiming bool      `schema:"with_timing"`
}

func (q *queryOrdersRequest) ToModel() (order.ListQuery, error) {
	statuses := make([]kitchenstatus.Status, 0, len(q.Statuses))
	for _, s := range q.Statuses {
		status, err := kitchenstatus.Parse(s)
		if err != nil {
			return order.ListQuery{}, err
		}
		statuses = append(statuses, status)
	}

	return order.ListQuery{
		Statuses:   statuses,
		From:       q.From,
		To:         q.To,
		OrderIDs:   q.OrderIDs,
		WithTiming: q.WithTiming,
	}, nil
}

// ListOrders serves a preset listing or an ad-hoc status filter.
func ListOrders(w http.ResponseWriter, r *http.Request, service service) {
	query := &queryOrdersRequest{}
	if err := decoder.Decode(query, r.URL.Query()); err != nil {
		respond.BadRequest(w, r, err, "Error decoding request")

		return
	}

	var (
		orders []order.WithItems
		err    error
	)
	switch {
	case query.Preset != "":
		orders, err = service.ListPreset(r.Context(), ordersvc.Preset(query.Preset))
	case len(query.Statuses) > 0:
		var model order.ListQuery
		model, err = query.ToModel()
		if err != nil {
			respond.BadRequest(w, r, err, "Error decoding statuses")

			return
		}
		orders, err = service.ListByStatus(r.Context(), model)
	default:
		respond.BadRequest(w, r, errNoFilter, "Error decoding request")

		return
	}
	if err != nil {
		respond.Error(w, r, err, "Error getting orders")

		return
	}

	if orders == nil {
		orders = []order.WithItems{}
	}
	respond.JSON(w, r, http.StatusOK, orders)
}

// GetOrder serves one order with all its items.
func GetOrder(w http.ResponseWriter, r *http.Request, service service) {
	o, err := service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err, "Error getting order")

		return
	}

	respond.JSON(w, r, http.StatusOK, o)
}
