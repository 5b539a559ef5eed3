package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"crm-channel-bridge/config"
)

type rabbitPublisher struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, string, any) {}
func (noopPublisher) Close() error                                 { return nil }

// NewPublisher connects to RabbitMQ and declares the topic exchange UI
// events are routed through. When RABBITMQ_URL is unset, publishing is
// disabled and a no-op publisher is returned.
func NewPublisher(cfg *config.Config) (Publisher, error) {
	if cfg.RabbitURL == "" {
		log.Info().Msg("RABBITMQ_URL is not set. Event publishing disabled.")
		return noopPublisher{}, nil
	}

	conn, err := amqp091.Dial(cfg.RabbitURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(cfg.RabbitExchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}

	log.Info().Str("exchange", cfg.RabbitExchange).Msg("RabbitMQ connection established")

	return &rabbitPublisher{conn: conn, channel: ch, exchange: cfg.RabbitExchange}, nil
}

// Publish routes the envelope by event type. Failures are logged and
// swallowed: losing a UI event must never fail the request that caused it.
func (p *rabbitPublisher) Publish(ctx context.Context, eventType, correlationID string, data any) {
	envelope := Envelope{
		Meta: Meta{
			ID:            uuid.NewString(),
			Type:          eventType,
			Time:          time.Now().UTC(),
			CorrelationID: correlationID,
		},
		Data: data,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		log.Error().Err(err).Str("eventType", eventType).Msg("Failed to marshal event envelope")
		return
	}

	err = p.channel.PublishWithContext(
		ctx, p.exchange, eventType, false, false,
		amqp091.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp091.Persistent,
			MessageId:     envelope.Meta.ID,
			CorrelationId: correlationID,
			Timestamp:     envelope.Meta.Time,
			Body:          body,
		},
	)
	if err != nil {
		log.Error().Err(err).Str("eventType", eventType).Msg("Could not publish event to RabbitMQ")
		return
	}
	log.Debug().Str("eventType", eventType).Str("eventID", envelope.Meta.ID).Msg("Published event")
}

func (p *rabbitPublisher) Close() error {
	return p.conn.Close()
}
