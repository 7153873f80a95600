// Package events publishes order lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	TypeOrderPlaced        = "order.placed"
	TypeOrderStatusChanged = "order.status_changed"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type OrderPlaced struct {
	OrderID      string `json:"order_id"`
	CustomerID   string `json:"customer_id"`
	RestaurantID string `json:"restaurant_id"`
	TotalCents   int64  `json:"total_cents"`
	ItemCount    int    `json:"item_count"`
}

type OrderStatusChanged struct {
	OrderID      string `json:"order_id"`
	RestaurantID string `json:"restaurant_id"`
	From         string `json:"from"`
	To           string `json:"to"`
	ActorID      string `json:"actor_id"`
	ActorRole    string `json:"actor_role"`
	Version      int64  `json:"version"`
}

func NewEnvelope(eventType, producer, correlationID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}

// Publisher delivers envelopes keyed by aggregate id. Implementations must
// not block the caller on broker I/O.
type Publisher interface {
	Publish(ctx context.Context, key string, env Envelope) error
	Close() error
}

// Nop discards every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, Envelope) error { return nil }
func (Nop) Close() error                                    { return nil }

type correlationKey struct{}

// WithCorrelationID attaches the request id that produced an event.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
