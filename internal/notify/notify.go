// Package notify publishes change events after successful commits. Delivery is
// synchronous and best effort: a failing subscriber never reaches the caller
// that committed the change.
package notify

import (
	"fmt"
	"time"

	EventBus "github.com/asaskevich/EventBus"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Kind string

const (
	MedicineChanged Kind = "medicineChanged"
	SaleRecorded    Kind = "saleRecorded"
	OrderChanged    Kind = "orderChanged"
	CatalogChanged  Kind = "catalogChanged"
)

type Event struct {
	ID       uuid.UUID `json:"id"`
	Kind     Kind      `json:"kind"`
	EntityID int64     `json:"entity_id"`
	At       time.Time `json:"at"`
}

// NewEvent builds an event stamped with the time the change was written.
func NewEvent(kind Kind, entityID int64, at time.Time) Event {
	return Event{ID: uuid.New(), Kind: kind, EntityID: entityID, At: at}
}

// Publisher is what the core depends on to announce changes.
type Publisher interface {
	Publish(ev Event)
}

// Discard drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}

// Bus fans events out to subscribers by kind. Subscribers must not publish or
// subscribe from inside a handler.
type Bus struct {
	bus EventBus.Bus
	log *zap.Logger
}

func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{bus: EventBus.New(), log: log}
}

// Subscribe registers fn for events of the given kind.
func (b *Bus) Subscribe(kind Kind, fn func(Event)) error {
	if fn == nil {
		return fmt.Errorf("nil handler for %s", kind)
	}
	return b.bus.Subscribe(string(kind), b.guard(fn))
}

func (b *Bus) Publish(ev Event) {
	b.bus.Publish(string(ev.Kind), ev)
}

func (b *Bus) guard(fn func(Event)) func(Event) {
	return func(ev Event) {
		defer func() {
			if r := recover(); r != nil {
				b.log.Error("event handler panicked",
					zap.String("kind", string(ev.Kind)),
					zap.Int64("entity_id", ev.EntityID),
					zap.Any("panic", r))
			}
		}()
		fn(ev)
	}
}
