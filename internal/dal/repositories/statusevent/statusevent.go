package statusevent

import (
	"context"
	"strconv"

	"github.com/corray333/backend-labs/kitchen/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/kitchen/internal/service/models/outbox"
	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
)

// RabbitMQPublisher delivers outbox messages carrying status-change events.
type RabbitMQPublisher struct {
	client *rabbitmq.Client
	queue  amqp.Queue
}

// NewRabbitMQPublisher declares the durable status queue and returns a publisher for it.
func NewRabbitMQPublisher(client *rabbitmq.Client) *RabbitMQPublisher {
	queue, err := client.DeclareQueue(rabbitmq.DeclareQueueConfig{
		Name:       rabbitmq.StatusQueue(),
		Durable:    true,
		Exclusive:  false,
		AutoDelete: false,
	})
	if err != nil {
		panic(err)
	}

	return &RabbitMQPublisher{
		client: client,
		queue:  queue,
	}
}

// Publish sends msg as a persistent message. An empty routing key falls back to the status queue.
func (p *RabbitMQPublisher) Publish(ctx context.Context, msg outbox.OutboxMessage) error {
	_, span := otel.Tracer("rabbitmq").Start(ctx, "RabbitMQPublisher.Publish")
	defer span.End()

	routingKey := msg.RoutingKey
	if routingKey == "" {
		routingKey = p.queue.Name
	}

	return p.client.Channel().Publish(
		msg.ExchangeName,
		routingKey,
		false,
		false,
		amqp.Publishing{
			MessageId:    strconv.FormatInt(msg.ID, 10),
			Timestamp:    msg.CreatedAt,
			ContentType:  msg.ContentType,
			DeliveryMode: amqp.Persistent,
			Body:         msg.Payload,
		},
	)
}
