package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"telecall_backend/platform/logger"
	"telecall_backend/platform/queue"
)

// Envelope is the message body the relay writes to the broker.
type Envelope struct {
	Name       string    `json:"name"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    Event     `json:"payload"`
}

// Relay forwards raw lead events to a message broker so the wider CRM can
// react to conversions and uploads. Broker failures are logged and
// returned to the bus; they never reach the request that published.
type Relay struct {
	pub queue.Publisher
	log *logger.Logger
}

// NewRelay creates a relay publishing through pub.
func NewRelay(pub queue.Publisher, log *logger.Logger) *Relay {
	return &Relay{pub: pub, log: log}
}

// RelayedEvents lists the event names the relay subscribes to.
func RelayedEvents() []string {
	return []string{
		RawLeadsIngested{}.EventName(),
		RawLeadsAssigned{}.EventName(),
		RawLeadConverted{}.EventName(),
		RawLeadConversionContended{}.EventName(),
		RawLeadsRemoved{}.EventName(),
	}
}

// Register subscribes the relay to every raw lead event.
func (r *Relay) Register(bus Bus) {
	for _, name := range RelayedEvents() {
		bus.Subscribe(name, r)
	}
}

// Handle implements Handler.
func (r *Relay) Handle(ctx context.Context, event Event) error {
	body, err := json.Marshal(Envelope{
		Name:       event.EventName(),
		OccurredAt: event.OccurredAt(),
		Payload:    event,
	})
	if err != nil {
		return fmt.Errorf("encode %s: %w", event.EventName(), err)
	}

	if err := r.pub.Publish(ctx, event.EventName(), body); err != nil {
		r.log.WithContext(ctx).Warn("event relay failed", "event", event.EventName(), "error", err)
		return err
	}
	return nil
}
