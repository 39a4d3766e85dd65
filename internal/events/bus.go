package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventCycleStarted   EventType = "CYCLE_STARTED"
	EventCycleCompleted EventType = "CYCLE_COMPLETED"
	EventDecisionMade   EventType = "DECISION_MADE"
	EventTradeExecuted  EventType = "TRADE_EXECUTED"
	EventOrderRejected  EventType = "ORDER_REJECTED"
	EventStopLossHit    EventType = "STOP_LOSS_HIT"
	EventTakeProfitHit  EventType = "TAKE_PROFIT_HIT"
	EventTickerSkipped  EventType = "TICKER_SKIPPED"
	EventError          EventType = "ERROR"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// NewEvent builds an event stamped with the current time.
func NewEvent(t EventType, data map[string]interface{}) Event {
	return Event{Type: t, Timestamp: time.Now().UTC(), Data: data}
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// EventBus manages event publishing and subscriptions
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
		allSubs:     make([]Subscriber, 0),
	}
}

// Subscribe registers a subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.allSubs = append(eb.allSubs, subscriber)
}

// Publish delivers an event to all matching subscribers. Delivery is
// synchronous: subscribers must not block.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	subs := append([]Subscriber(nil), eb.subscribers[event.Type]...)
	subs = append(subs, eb.allSubs...)
	eb.mu.RUnlock()

	for _, sub := range subs {
		sub(event)
	}
}
