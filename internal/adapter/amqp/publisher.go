package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pix-transfer-gateway/internal/core/ports"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Routing keys on the transfer events exchange.
const (
	routingKeyCommitted         = "transfer.committed"
	routingKeyPartialSettlement = "transfer.partial_settlement"
)

const dialTimeout = 10 * time.Second

// Publisher implements ports.EventPublisher on a durable RabbitMQ topic
// exchange. Publishing is best-effort; a settled transfer never fails
// because its event could not be delivered.
type Publisher struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	log      zerolog.Logger
}

// NewPublisher connects to RabbitMQ and declares the exchange.
func NewPublisher(url, exchange string, log zerolog.Logger) (*Publisher, error) {
	conn, err := amqp091.DialConfig(url, amqp091.Config{Dial: amqp091.DefaultDial(dialTimeout)})
	if err != nil {
		return nil, fmt.Errorf("dialing rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declaring exchange %s: %w", exchange, err)
	}

	log.Info().Str("exchange", exchange).Msg("RabbitMQ publisher ready")

	return &Publisher{conn: conn, channel: ch, exchange: exchange, log: log}, nil
}

// PublishTransferCommitted publishes a fully settled transfer.
func (p *Publisher) PublishTransferCommitted(ctx context.Context, event ports.TransferCommittedEvent) error {
	return p.publish(ctx, routingKeyCommitted, event)
}

// PublishPartialSettlement publishes a debit that landed without its credit.
func (p *Publisher) PublishPartialSettlement(ctx context.Context, event ports.PartialSettlementEvent) error {
	return p.publish(ctx, routingKeyPartialSettlement, event)
}

func (p *Publisher) publish(ctx context.Context, routingKey string, body any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange, routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        jsonBody,
		},
	)
	if err != nil {
		// One-shot retry on a fresh channel; broker restarts kill channels.
		ch, chErr := p.conn.Channel()
		if chErr != nil {
			return fmt.Errorf("publishing %s: %w", routingKey, err)
		}
		p.channel = ch
		if err := p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp091.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        jsonBody,
		}); err != nil {
			return fmt.Errorf("publishing %s: %w", routingKey, err)
		}
	}
	return nil
}

// Close shuts down the channel and connection.
func (p *Publisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// NoopPublisher is used when no broker is configured. Events are logged and
// dropped, keeping transfers fully functional without RabbitMQ.
type NoopPublisher struct {
	log zerolog.Logger
}

// NewNoopPublisher creates a publisher that drops all events.
func NewNoopPublisher(log zerolog.Logger) *NoopPublisher {
	return &NoopPublisher{log: log}
}

func (p *NoopPublisher) PublishTransferCommitted(_ context.Context, event ports.TransferCommittedEvent) error {
	p.log.Debug().Str("flow_id", event.FlowID.String()).Msg("event publishing disabled, committed event dropped")
	return nil
}

func (p *NoopPublisher) PublishPartialSettlement(_ context.Context, event ports.PartialSettlementEvent) error {
	// Partial settlements matter even without a broker.
	p.log.Warn().
		Str("flow_id", event.FlowID.String()).
		Str("payer", event.PayerAccountNumber).
		Int64("amount_debited", event.AmountDebited).
		Msg("event publishing disabled, partial settlement event dropped")
	return nil
}

func (p *NoopPublisher) Close() {}
