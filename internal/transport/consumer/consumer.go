package consumer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/kitchen/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/kitchen/internal/service/services/auditsvc"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// service represents the service layer interface.
type service interface {
	ProcessMessage(ctx context.Context, body []byte) error
}

// Consumer reads status-change events from RabbitMQ into the audit trail.
type Consumer struct {
	client      *rabbitmq.Client
	service     service
	queue       amqp.Queue
	concurrency int
	stop        chan struct{}
	done        chan struct{}
}

// NewConsumer declares the durable status queue and creates a Consumer.
func NewConsumer(client *rabbitmq.Client, service service) *Consumer {
	queue, err := client.DeclareQueue(rabbitmq.DeclareQueueConfig{
		Name:       rabbitmq.StatusQueue(),
		Durable:    true,
		AutoDelete: false,
		Exclusive:  false,
		NoWait:     false,
	})
	if err != nil {
		panic(err)
	}

	concurrency := viper.GetInt("rabbitmq.consumer.concurrency")
	if concurrency <= 0 {
		concurrency = 50
	}

	return &Consumer{
		client:      client,
		service:     service,
		queue:       queue,
		concurrency: concurrency,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Run consumes messages until Shutdown is called or the delivery channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	consumerTag := viper.GetString("rabbitmq.consumer.tag")
	if consumerTag == "" {
		consumerTag = "kitchen-audit"
	}

	msgs, err := c.client.Consume(rabbitmq.ConsumeConfig{
		Queue:    c.queue.Name,
		Consumer: consumerTag,
	})
	if err != nil {
		return err
	}

	slog.Info("Consumer started", "queue", c.queue.Name, "consumer_tag", consumerTag)

	return c.dispatch(ctx, msgs)
}

func (c *Consumer) dispatch(ctx context.Context, msgs <-chan amqp.Delivery) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

loop:
	for {
		select {
		case <-c.stop:
			slog.Info("Stopping consumer")

			break loop
		case msg, ok := <-msgs:
			if !ok {
				slog.Info("Message channel closed")

				break loop
			}

			g.Go(func() error {
				c.processMessage(gctx, msg)

				return nil
			})
		}
	}

	err := g.Wait()
	close(c.done)

	return err
}

// processMessage stores one event. Undecodable messages are dropped, failed
// writes are requeued.
func (c *Consumer) processMessage(ctx context.Context, msg amqp.Delivery) {
	ctx, span := otel.Tracer("consumer").Start(ctx, "Consumer.processMessage")
	defer span.End()
	span.SetAttributes(attribute.String("message_id", msg.MessageId))

	if err := c.service.ProcessMessage(ctx, msg.Body); err != nil {
		requeue := !errors.Is(err, auditsvc.ErrMalformedEvent)
		slog.Error("Failed to process status event",
			"message_id", msg.MessageId,
			"requeue", requeue,
			"error", err,
		)
		if err := msg.Nack(false, requeue); err != nil {
			slog.Error("Failed to nack message", "error", err)
		}

		return
	}

	if err := msg.Ack(false); err != nil {
		slog.Error("Failed to ack message", "error", err)

		return
	}

	slog.Debug("Message processed successfully", "message_id", msg.MessageId)
}

// Shutdown stops reading new messages and waits for in-flight ones.
func (c *Consumer) Shutdown() error {
	slog.Info("Shutting down consumer")
	close(c.stop)

	select {
	case <-c.done:
		slog.Info("Consumer stopped successfully")
	case <-time.After(10 * time.Second):
		slog.Warn("Consumer shutdown timeout")
	}

	return nil
}
