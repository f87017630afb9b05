// Package events carries order lifecycle events between the API service and
// the notification gateways over the orders fanout exchange.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"blossom-cafe/internal/connections/rabbitmq"
	"blossom-cafe/internal/domain"
)

const publishTimeout = 5 * time.Second

// Publisher emits events after each successful mutation. Publishing is
// best-effort from the caller's point of view: a failed publish is logged
// and the mutation still stands (dashboards catch up via polling).
type Publisher struct {
	mq *rabbitmq.Client
	lg zerolog.Logger
}

func NewPublisher(mq *rabbitmq.Client, lg zerolog.Logger) *Publisher {
	return &Publisher{mq: mq, lg: lg}
}

// Publish marshals payload into an envelope and sends it to the fanout
// exchange with broker confirm.
func (p *Publisher) Publish(ctx context.Context, eventType string, payload any) error {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", eventType, err)
		}
		data = b
	}
	ev := domain.Event{ID: uuid.NewString(), Type: eventType, Data: data}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", eventType, err)
	}

	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.mq.Publish(pctx, rabbitmq.ExchangeOrders, "", body); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	p.lg.Debug().Str("action", "event_published").Str("event", eventType).Str("event_id", ev.ID).Msg("event published")
	return nil
}

// OrderCreated, OrderUpdated and StatusChanged wrap Publish with the wire
// event names; failures are logged, never propagated to the operator.
func (p *Publisher) OrderCreated(ctx context.Context, o *domain.Order) {
	p.fire(ctx, domain.EventOrderCreated, o)
}

func (p *Publisher) OrderUpdated(ctx context.Context, o *domain.Order) {
	p.fire(ctx, domain.EventOrderUpdated, o)
}

func (p *Publisher) StatusChanged(ctx context.Context, o *domain.Order) {
	p.fire(ctx, domain.EventOrderStatusChanged, domain.StatusChange{OrderID: o.ID, Status: o.Status})
	p.fire(ctx, domain.EventOrderUpdated, o)
}

func (p *Publisher) fire(ctx context.Context, eventType string, payload any) {
	if err := p.Publish(ctx, eventType, payload); err != nil {
		p.lg.Error().Str("action", "event_publish_failed").Str("event", eventType).Err(err).Msg("dropping event")
	}
}

// Handler receives each event delivered to this consumer.
type Handler func(ev domain.Event)

// Consumer relays fanout deliveries to a handler. Each consumer gets its
// own exclusive queue, so every gateway instance sees every event.
type Consumer struct {
	mq   *rabbitmq.Client
	name string
	lg   zerolog.Logger
}

func NewConsumer(mq *rabbitmq.Client, name string, lg zerolog.Logger) *Consumer {
	return &Consumer{mq: mq, name: name, lg: lg}
}

// Run consumes until ctx is canceled or the delivery channel closes.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	deliveries, err := c.mq.SubscribeFanout(c.name)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			var ev domain.Event
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				c.lg.Warn().Str("action", "event_decode_failed").Err(err).Msg("discarding malformed event")
				_ = d.Nack(false, false)
				continue
			}
			handle(ev)
			_ = d.Ack(false)
		}
	}
}
