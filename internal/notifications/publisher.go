package notifications

import (
	"context"
	"encoding/json"

	"foodgram/internal/middleware"
	"foodgram/internal/observability"
)

// Event is the JSON frame written to websocket clients.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Publisher delivers events to users. With a Redis notifier configured every
// instance receives the event through StartWiring; otherwise it goes straight
// to the local hub.
type Publisher struct {
	hub      *Hub
	notifier *Notifier
}

func NewPublisher(hub *Hub, notifier *Notifier) *Publisher {
	return &Publisher{hub: hub, notifier: notifier}
}

// PublishToUsers is fire-and-forget; failures are logged.
func (p *Publisher) PublishToUsers(ctx context.Context, userIDs []uint, eventType string, payload interface{}) {
	if p == nil || len(userIDs) == 0 {
		return
	}
	data, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to encode event", "event_type", eventType, "error", err)
		return
	}
	observability.WebSocketEventsTotal.WithLabelValues(eventType).Inc()

	msg := string(data)
	for _, id := range userIDs {
		if p.notifier.Enabled() {
			if err := p.notifier.PublishUser(ctx, id, msg); err != nil {
				middleware.Logger.WarnContext(ctx, "failed to publish event",
					"event_type", eventType, "user_id", id, "error", err)
				if p.hub != nil {
					p.hub.Broadcast(id, msg)
				}
			}
			continue
		}
		if p.hub != nil {
			p.hub.Broadcast(id, msg)
		}
	}
}
