package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Fuchsoria/couponslots/internal/layout"
)

const (
	EventSlotAssigned    = "slot.assigned"
	EventSlotEvicted     = "slot.evicted"
	EventSlotCleared     = "slot.cleared"
	EventImportCompleted = "import.completed"
)

// Publisher ships domain events to a broker; the amqp producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, []byte) error {
	return nil
}

type SlotEvent struct {
	Context  string    `json:"context"`
	ID       string    `json:"id"`
	Position *int      `json:"position"`
	Date     time.Time `json:"date"`
}

type ImportEvent struct {
	Entity   string    `json:"entity"`
	Total    int       `json:"total"`
	Inserted int       `json:"inserted"`
	Dropped  int       `json:"dropped"`
	Date     time.Time `json:"date"`
}

// slotChanged announces the outcome of a slot move, including the record it
// pushed out.
func (a *App) slotChanged(ctx context.Context, id string, res layout.Result) {
	now := time.Now().UTC()

	if res.Evicted != nil {
		a.publish(ctx, EventSlotEvicted, SlotEvent{Context: res.Context, ID: res.Evicted.ID, Date: now})
	}

	if res.Position == nil {
		a.publish(ctx, EventSlotCleared, SlotEvent{Context: res.Context, ID: id, Date: now})

		return
	}

	a.publish(ctx, EventSlotAssigned, SlotEvent{Context: res.Context, ID: id, Position: res.Position, Date: now})
}

// publish never fails the caller: events are informational.
func (a *App) publish(ctx context.Context, routingKey string, event interface{}) {
	body, err := json.Marshal(event)
	if err != nil {
		a.logger.Error("cannot encode event", "key", routingKey, "error", err.Error())

		return
	}

	if err := a.publisher.Publish(ctx, routingKey, body); err != nil {
		a.logger.Warn("cannot publish event", "key", routingKey, "error", err.Error())
	}
}
