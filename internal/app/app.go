package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corray333/backend-labs/kitchen/internal/dal/interfaces/iexcludedrepo"
	"github.com/corray333/backend-labs/kitchen/internal/dal/pos"
	"github.com/corray333/backend-labs/kitchen/internal/dal/postgres"
	"github.com/corray333/backend-labs/kitchen/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/kitchen/internal/dal/redis"
	excludedpg "github.com/corray333/backend-labs/kitchen/internal/dal/repositories/excluded/postgres"
	excludedredis "github.com/corray333/backend-labs/kitchen/internal/dal/repositories/excluded/redis"
	orderrepo "github.com/corray333/backend-labs/kitchen/internal/dal/repositories/order/postgres"
	orderitemrepo "github.com/corray333/backend-labs/kitchen/internal/dal/repositories/orderitem/postgres"
	outboxrepo "github.com/corray333/backend-labs/kitchen/internal/dal/repositories/outbox/postgres"
	productrepo "github.com/corray333/backend-labs/kitchen/internal/dal/repositories/product/postgres"
	"github.com/corray333/backend-labs/kitchen/internal/dal/repositories/statusevent"
	timingrepo "github.com/corray333/backend-labs/kitchen/internal/dal/repositories/timing/postgres"
	"github.com/corray333/backend-labs/kitchen/internal/otel"
	"github.com/corray333/backend-labs/kitchen/internal/service/services/exclusionsvc"
	"github.com/corray333/backend-labs/kitchen/internal/service/services/kitchensvc"
	"github.com/corray333/backend-labs/kitchen/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/kitchen/internal/service/services/syncsvc"
	"github.com/corray333/backend-labs/kitchen/internal/service/services/timingsvc"
	grpctransport "github.com/corray333/backend-labs/kitchen/internal/transport/grpc"
	httptransport "github.com/corray333/backend-labs/kitchen/internal/transport/http"
	"github.com/corray333/backend-labs/kitchen/internal/transport/http/admin"
	"github.com/corray333/backend-labs/kitchen/internal/transport/ws"
	"github.com/corray333/backend-labs/kitchen/internal/worker/escalation"
	outboxworker "github.com/corray333/backend-labs/kitchen/internal/worker/outbox"
	"github.com/corray333/backend-labs/kitchen/internal/worker/possync"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// App represents the kitchen monitor application.
type App struct {
	httpTransport    *httptransport.HTTPTransport
	grpcTransport    *grpctransport.GRPCTransport
	hub              *ws.Hub
	outboxWorker     *outboxworker.Worker
	syncWorker       *possync.Worker
	escalationWorker *escalation.Worker
	postgresClient   *postgres.Client
	redisClient      *goredis.Client
	rabbitMqClient   *rabbitmq.Client
	otelController   *otel.OtelController
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	otelController := otel.MustInitOtel("kitchen-svc")
	postgresClient := postgres.MustNewClient()
	redisClient := redis.MustNewClient()
	rabbitMqClient := rabbitmq.MustNewClient()
	posClient := pos.MustNewClient()
	pool := postgresClient.Pool()

	productRepository := productrepo.NewPostgresProductRepository(pool)

	var excludedRepository iexcludedrepo.IExcludedRepository = excludedpg.NewPostgresExcludedRepository(postgresClient)
	if redisClient != nil {
		excludedRepository = excludedredis.NewCachedExcludedRepository(
			excludedRepository,
			redisClient,
			seconds("redis.excluded_ttl_seconds", 60),
		)
	}

	exclusionSvc := exclusionsvc.MustNewExclusionService(
		exclusionsvc.WithExcludedRepository(excludedRepository),
		exclusionsvc.WithProductRepository(productRepository),
	)

	timingSvc := timingsvc.MustNewTimingService(
		timingsvc.WithTimingRepository(timingrepo.NewPostgresTimingRepository(pool)),
		timingsvc.WithOrderRepository(orderrepo.NewPostgresOrderRepository(pool)),
		timingsvc.WithItemCounter(orderitemrepo.NewPostgresOrderItemRepository(pool)),
		timingsvc.WithWarningAfter(minutes("timing.warning_after_minutes", 30)),
	)

	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithPostgresClient(postgresClient),
		ordersvc.WithExclusions(exclusionSvc),
		ordersvc.WithTimings(timingSvc),
		ordersvc.WithStatusQueue(rabbitmq.StatusQueue(), viper.GetInt("rabbitmq.outbox.max_retries")),
		ordersvc.WithWindows(ordersvc.Windows{
			KitchenCompleted: minutes("orders.kitchen_completed_window_minutes", 30),
			BarCompleted:     minutes("orders.bar_completed_window_minutes", 120),
		}),
	)

	hub := ws.NewHub()

	kitchenSvc := kitchensvc.MustNewKitchenService(
		kitchensvc.WithOrderService(orderSvc),
		kitchensvc.WithTimingService(timingSvc),
		kitchensvc.WithNotifier(hub),
		kitchensvc.WithPassDelay(seconds("kitchen.pass_delay_seconds", 5)),
	)

	syncSvc := syncsvc.MustNewSyncService(
		syncsvc.WithPOSClient(posClient),
		syncsvc.WithOrderIngester(orderSvc),
		syncsvc.WithProductRepository(productRepository),
	)

	httpTransport := httptransport.NewHTTPTransport(
		httptransport.Services{
			Orders:     orderSvc,
			Kitchen:    kitchenSvc,
			Timings:    timingSvc,
			Exclusions: exclusionSvc,
			Sync:       syncSvc,
			Hub:        hub,
		},
		mustAdminCredentials(),
	)
	httpTransport.RegisterRoutes()

	grpcTransport := grpctransport.NewGRPCTransport(grpctransport.NewKitchenServer(syncSvc, orderSvc))

	return &App{
		httpTransport: httpTransport,
		grpcTransport: grpcTransport,
		hub:           hub,
		outboxWorker: outboxworker.NewWorker(
			outboxrepo.NewOutboxRepository(pool),
			statusevent.NewRabbitMQPublisher(rabbitMqClient),
		),
		syncWorker:       possync.NewWorker(syncSvc),
		escalationWorker: escalation.NewWorker(timingSvc, hub),
		postgresClient:   postgresClient,
		redisClient:      redisClient,
		rabbitMqClient:   rabbitMqClient,
		otelController:   otelController,
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go a.hub.Run(ctx)

	go func() {
		slog.Info("Starting HTTP server")
		if err := a.httpTransport.Run(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	go func() {
		if err := a.grpcTransport.Run(); err != nil {
			slog.Error("gRPC server error", "error", err)
		}
	}()

	go a.outboxWorker.Start(ctx)
	go a.syncWorker.Start(ctx)
	go a.escalationWorker.Start(ctx)

	<-stop
	slog.Info("Shutdown signal received")
	cancel()

	a.gracefulShutdown()
}

// gracefulShutdown stops workers, transports and then closes connections.
func (a *App) gracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a.syncWorker.Stop()
	a.escalationWorker.Stop()
	a.outboxWorker.Stop()
	slog.Info("Workers stopped")

	if err := a.httpTransport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	if err := a.grpcTransport.Shutdown(ctx); err != nil {
		slog.Error("gRPC server shutdown error", "error", err)
	} else {
		slog.Info("gRPC server stopped gracefully")
	}

	if err := a.rabbitMqClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	} else {
		slog.Info("RabbitMQ connection closed gracefully")
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			slog.Error("Redis connection close error", "error", err)
		}
	}

	a.postgresClient.Close()
	slog.Info("Database connection closed")

	if err := a.otelController.Shutdown(ctx); err != nil {
		slog.Error("Otel trace provider shutdown error", "error", err)
	}

	slog.Info("Application shutdown complete")
}

func mustAdminCredentials() admin.Credentials {
	secret := os.Getenv("KITCHEN_ADMIN_JWT_SECRET")
	if secret == "" {
		panic("KITCHEN_ADMIN_JWT_SECRET must be set")
	}

	username := os.Getenv("KITCHEN_ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}

	return admin.Credentials{
		Username: username,
		Password: os.Getenv("KITCHEN_ADMIN_PASSWORD"),
		Secret:   []byte(secret),
		TTL:      time.Duration(max(viper.GetInt("auth.token_ttl_hours"), 1)) * time.Hour,
	}
}

func seconds(key string, fallback int) time.Duration {
	if v := viper.GetInt(key); v > 0 {
		return time.Duration(v) * time.Second
	}

	return time.Duration(fallback) * time.Second
}

func minutes(key string, fallback int) time.Duration {
	if v := viper.GetInt(key); v > 0 {
		return time.Duration(v) * time.Minute
	}

	return time.Duration(fallback) * time.Minute
}
