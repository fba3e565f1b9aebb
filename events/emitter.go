// Package events delivers ledger notifications to in-process subscribers.
package events

import (
	"log"
	"sync"
)

// EventType labels what happened.
type EventType string

const (
	EventTxExecuted    EventType = "tx_executed"
	EventInitialized   EventType = "initialized"
	EventDeposit       EventType = "deposit"
	EventGameCreated   EventType = "game_created"
	EventPayout        EventType = "payout"
	EventWithdrawal    EventType = "withdrawal"
	EventConfigUpdated EventType = "config_updated"
)

// Event carries a typed payload emitted after a committed state change.
type Event struct {
	Type     EventType      `json:"type"`
	TxID     string         `json:"tx_id"`
	Sequence int64          `json:"sequence"`
	Data     map[string]any `json:"data"`
}

// Handler is a callback invoked for matching events.
type Handler func(Event)

// Emitter is a simple pub/sub broker. Subscribe before Emit.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	all      []Handler
}

// NewEmitter creates an Emitter with no subscribers.
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[EventType][]Handler)}
}

// Subscribe registers h to be called whenever typ is emitted.
func (e *Emitter) Subscribe(typ EventType, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[typ] = append(e.handlers[typ], h)
}

// SubscribeAll registers h for every event type.
func (e *Emitter) SubscribeAll(h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.all = append(e.all, h)
}

// Emit delivers ev synchronously, typed subscribers first. A panicking
// handler is recovered and logged so it cannot stop the ledger.
func (e *Emitter) Emit(ev Event) {
	e.mu.RLock()
	handlers := make([]Handler, 0, len(e.handlers[ev.Type])+len(e.all))
	handlers = append(handlers, e.handlers[ev.Type]...)
	handlers = append(handlers, e.all...)
	e.mu.RUnlock()
	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[events] handler panicked for %s: %v", ev.Type, r)
				}
			}()
			h(ev)
		}()
	}
}
