package queue

import (
	"context"

	"go.uber.org/zap"
)

const EventsExchange = "pos.events"

// EventPublisher satisfies the payment and fiscal publisher interfaces.
// A nil *EventPublisher is valid and publishes nothing, mirroring how the
// service runs when no broker is configured.
type EventPublisher struct {
	client     *Client
	terminalID string
	logger     *zap.Logger
}

func NewEventPublisher(client *Client, terminalID string, logger *zap.Logger) *EventPublisher {
	if client == nil {
		return nil
	}
	return &EventPublisher{client: client, terminalID: terminalID, logger: logger}
}

// Publish is fire-and-forget: event loss is acceptable, fiscal records are
// not, so failures are only logged.
func (p *EventPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	if p == nil {
		return nil
	}
	body := map[string]any{
		"terminal": p.terminalID,
		"event":    routingKey,
		"payload":  payload,
	}
	if err := p.client.PublishJSON(ctx, EventsExchange, routingKey, body); err != nil {
		if p.logger != nil {
			p.logger.Warn("event publish failed", zap.String("routingKey", routingKey), zap.Error(err))
		}
		return err
	}
	return nil
}
