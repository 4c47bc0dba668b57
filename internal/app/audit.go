package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corray333/backend-labs/kitchen/internal/dal/postgres"
	"github.com/corray333/backend-labs/kitchen/internal/dal/rabbitmq"
	statuslogrepo "github.com/corray333/backend-labs/kitchen/internal/dal/repositories/statuslog/postgres"
	"github.com/corray333/backend-labs/kitchen/internal/otel"
	"github.com/corray333/backend-labs/kitchen/internal/service/services/auditsvc"
	"github.com/corray333/backend-labs/kitchen/internal/transport/consumer"
)

// AuditApp consumes status-change events into the audit trail.
type AuditApp struct {
	consumer       *consumer.Consumer
	rabbitMqClient *rabbitmq.Client
	postgresClient *postgres.Client
	otelController *otel.OtelController
}

// MustNewAuditApp creates the audit consumer application.
func MustNewAuditApp() *AuditApp {
	otelController := otel.MustInitOtel("kitchen-audit")
	rabbitMqClient := rabbitmq.MustNewClient()
	postgresClient := postgres.MustNewClient()

	auditSvc := auditsvc.MustNewAuditService(
		auditsvc.WithStatusLogRepository(statuslogrepo.NewStatusLogRepository(postgresClient)),
	)

	return &AuditApp{
		consumer:       consumer.NewConsumer(rabbitMqClient, auditSvc),
		rabbitMqClient: rabbitMqClient,
		postgresClient: postgresClient,
		otelController: otelController,
	}
}

// Run consumes until an interrupt signal arrives.
func (a *AuditApp) Run() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		slog.Info("Starting consumer")
		if err := a.consumer.Run(ctx); err != nil {
			slog.Error("Consumer error", "error", err)
		}
	}()

	<-stop
	slog.Info("Shutdown signal received")
	cancel()

	a.gracefulShutdown()
}

// gracefulShutdown stops the consumer first so in-flight events are acked before
// the connections close.
func (a *AuditApp) gracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.consumer.Shutdown(); err != nil {
		slog.Error("Consumer shutdown error", "error", err)
	}

	if err := a.rabbitMqClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	} else {
		slog.Info("RabbitMQ connection closed gracefully")
	}

	a.postgresClient.Close()

	if err := a.otelController.Shutdown(ctx); err != nil {
		slog.Error("Otel trace provider shutdown error", "error", err)
	}

	slog.Info("Application shutdown complete")
}
