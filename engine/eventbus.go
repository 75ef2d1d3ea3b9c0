package engine

import (
	"sync"
	"time"
)

type EventType int

type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   any
}

type subscriber struct {
	types map[EventType]bool // nil receives everything
	fn    func(Event)
}

// EventBus fans events out to subscribers synchronously, in subscription
// order, on the emitting goroutine.
type EventBus struct {
	mu   sync.RWMutex
	subs []subscriber
}

func NewEventBus() *EventBus {
	return &EventBus{}
}

func (b *EventBus) Subscribe(fn func(Event)) {
	b.mu.Lock()
	b.subs = append(b.subs, subscriber{fn: fn})
	b.mu.Unlock()
}

// SubscribeTypes registers fn for the listed event types only.
func (b *EventBus) SubscribeTypes(fn func(Event), types ...EventType) {
	set := make(map[EventType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	b.mu.Lock()
	b.subs = append(b.subs, subscriber{types: set, fn: fn})
	b.mu.Unlock()
}

func (b *EventBus) Emit(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()
	for _, s := range subs {
		if s.types == nil || s.types[evt.Type] {
			s.fn(evt)
		}
	}
}
