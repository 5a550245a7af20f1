package events

import (
	"log"
	"sync"
	"time"
)

// Type defines the types of events that can be emitted
type Type string

const (
	// Change review events
	ChangesProposed Type = "change:proposed"
	ChangeApplied   Type = "change:applied"
	ChangeRejected  Type = "change:rejected"
	AllEditsApplied Type = "change:all_applied"
	PendingUpdated  Type = "change:pending_updated"

	// File events
	FileContent         Type = "file:content"
	FileChangesDetected Type = "file:changes_detected"
	FileReloaded        Type = "file:reloaded"
	PreviewOpenRequest  Type = "file:preview_open"

	// System events
	SystemError  Type = "system:error"
	SystemNotice Type = "system:notice"
)

// Event represents an event in the system
type Event struct {
	Type      Type        `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// Handler is a function that handles events
type Handler func(event Event)

// Subscription is a registered handler with a scoped lifetime. Cancel
// releases it; releasing twice is harmless.
type Subscription struct {
	bus       *Bus
	eventType Type
	id        int
	once      sync.Once
}

// Cancel removes the subscription from its bus.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.bus.remove(s.eventType, s.id)
	})
}

// Bus provides event-driven communication between components.
//
// Delivery is synchronous in the emitter's goroutine so that events stay
// in emission order; the backend router relies on this to keep per-path
// ordering. Handlers that need to block must hand off to their own
// goroutine.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type]map[int]Handler
	nextID   int
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[Type]map[int]Handler),
	}
}

// Subscribe adds an event handler for a specific event type and returns
// the subscription that owns its registration.
func (b *Bus) Subscribe(eventType Type, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[int]Handler)
	}
	b.nextID++
	id := b.nextID
	b.handlers[eventType][id] = handler
	return &Subscription{bus: b, eventType: eventType, id: id}
}

func (b *Bus) remove(eventType Type, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers[eventType], id)
}

// Emit publishes an event to all registered handlers. Handler order
// within one emission is unspecified; successive emissions are delivered
// in order.
func (b *Bus) Emit(eventType Type, data interface{}) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[eventType]))
	for _, h := range b.handlers[eventType] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	event := Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}

	for _, handler := range handlers {
		func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("event handler panic for %s: %v", eventType, r)
				}
			}()
			h(event)
		}(handler)
	}
}

// EmitError emits a system error event
func (b *Bus) EmitError(err error) {
	b.Emit(SystemError, map[string]string{
		"error": err.Error(),
	})
}
