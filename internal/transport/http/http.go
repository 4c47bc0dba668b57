package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/kitchen/internal/service/services/exclusionsvc"
	"github.com/corray333/backend-labs/kitchen/internal/service/services/kitchensvc"
	"github.com/corray333/backend-labs/kitchen/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/kitchen/internal/service/services/syncsvc"
	"github.com/corray333/backend-labs/kitchen/internal/service/services/timingsvc"
	"github.com/corray333/backend-labs/kitchen/internal/transport/http/admin"
	"github.com/corray333/backend-labs/kitchen/internal/transport/http/board"
	itemstatus "github.com/corray333/backend-labs/kitchen/internal/transport/http/item_status"
	listorders "github.com/corray333/backend-labs/kitchen/internal/transport/http/list_orders"
	orderaction "github.com/corray333/backend-labs/kitchen/internal/transport/http/order_action"
	syncpos "github.com/corray333/backend-labs/kitchen/internal/transport/http/sync_pos"
	"github.com/corray333/backend-labs/kitchen/internal/transport/ws"
	"github.com/corray333/backend-labs/kitchen/pkg/http/middleware/auth"
	"github.com/corray333/backend-labs/kitchen/pkg/http/middleware/trace"
	"github.com/corray333/backend-labs/kitchen/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
)

// Services are the handlers' dependencies.
type Services struct {
	Orders     *ordersvc.OrderService
	Kitchen    *kitchensvc.KitchenService
	Timings    *timingsvc.TimingService
	Exclusions *exclusionsvc.ExclusionService
	Sync       *syncsvc.SyncService
	Hub        *ws.Hub
}

type HTTPTransport struct {
	server   *http.Server
	router   *chi.Mux
	services Services
	creds    admin.Credentials
}

func NewHTTPTransport(services Services, creds admin.Credentials) *HTTPTransport {
	router := newRouter()
	server := newServer(router)

	return &HTTPTransport{
		server:   server,
		router:   router,
		services: services,
		creds:    creds,
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (h *HTTPTransport) Handler() http.Handler {
	return h.router
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	h.router.Route("/api", func(r chi.Router) {
		r.Get("/kitchen/board", h.kitchenBoard)
		r.Get("/bar/board", h.barBoard)

		r.Get("/orders", h.listOrders)
		r.Get("/orders/{id}", h.getOrder)
		r.Post("/orders/{id}/{action}", h.orderAction)
		r.Post("/items/status", h.setItemsStatus)

		r.Post("/sync/orders", h.syncOrders)
		r.Post("/sync/products", h.syncProducts)

		if h.services.Hub != nil {
			r.Get("/ws", h.services.Hub.ServeWS)
		}

		r.Post("/admin/token", h.issueToken)
		r.Group(func(r chi.Router) {
			r.Use(auth.NewAuthMiddleware(h.creds.Secret, auth.RoleAdmin))

			r.Get("/admin/excluded", h.listExcluded)
			r.Put("/admin/excluded", h.replaceExcluded)
			r.Get("/admin/products", h.listProducts)
			r.Get("/admin/warnings", h.listWarnings)
			r.Post("/admin/warnings/{id}/resolve", h.resolveWarning)
			r.Post("/admin/warnings/{id}/reopen", h.reopenWarning)
			r.Get("/admin/stats", h.stats)
		})
	})
}

func (h *HTTPTransport) kitchenBoard(w http.ResponseWriter, r *http.Request) {
	board.Kitchen(w, r, h.services.Kitchen)
}

func (h *HTTPTransport) barBoard(w http.ResponseWriter, r *http.Request) {
	board.Bar(w, r, h.services.Kitchen)
}

func (h *HTTPTransport) listOrders(w http.ResponseWriter, r *http.Request) {
	listorders.ListOrders(w, r, h.services.Orders)
}

func (h *HTTPTransport) getOrder(w http.ResponseWriter, r *http.Request) {
	listorders.GetOrder(w, r, h.services.Orders)
}

func (h *HTTPTransport) orderAction(w http.ResponseWriter, r *http.Request) {
	orderaction.Apply(w, r, h.services.Kitchen)
}

func (h *HTTPTransport) setItemsStatus(w http.ResponseWriter, r *http.Request) {
	itemstatus.SetStatus(w, r, h.services.Kitchen)
}

func (h *HTTPTransport) syncOrders(w http.ResponseWriter, r *http.Request) {
	syncpos.Orders(w, r, h.services.Sync)
}

func (h *HTTPTransport) syncProducts(w http.ResponseWriter, r *http.Request) {
	syncpos.Products(w, r, h.services.Sync)
}

func (h *HTTPTransport) issueToken(w http.ResponseWriter, r *http.Request) {
	admin.IssueToken(w, r, h.creds)
}

func (h *HTTPTransport) listExcluded(w http.ResponseWriter, r *http.Request) {
	admin.ListExcluded(w, r, h.services.Exclusions)
}

func (h *HTTPTransport) replaceExcluded(w http.ResponseWriter, r *http.Request) {
	admin.ReplaceExcluded(w, r, h.services.Exclusions)
}

func (h *HTTPTransport) listProducts(w http.ResponseWriter, r *http.Request) {
	admin.ListProducts(w, r, h.services.Exclusions)
}

func (h *HTTPTransport) listWarnings(w http.ResponseWriter, r *http.Request) {
	admin.ListWarnings(w, r, h.services.Timings)
}

func (h *HTTPTransport) resolveWarning(w http.ResponseWriter, r *http.Request) {
	admin.ResolveWarning(w, r, h.services.Kitchen)
}

func (h *HTTPTransport) reopenWarning(w http.ResponseWriter, r *http.Request) {
	admin.ReopenWarning(w, r, h.services.Kitchen)
}

func (h *HTTPTransport) stats(w http.ResponseWriter, r *http.Request) {
	admin.Stats(w, r, h.services.Timings)
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(trace.NewTraceMiddleware)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:              "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
