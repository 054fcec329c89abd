// Package events provides a publish-subscribe event bus for worker
// lifecycle notifications within the sun daemon.
package events

import (
	"log/slog"
	"sync"
	"time"
)

// EventType identifies a specific event category.
type EventType string

// Worker lifecycle events.
const (
	WorkerStarted EventType = "WORKER_STARTED"
	WorkerStopped EventType = "WORKER_STOPPED"
	ModuleFault   EventType = "MODULE_FAULT"
)

// Configuration events.
const (
	ConfigReloaded     EventType = "CONFIG_RELOADED"
	ConfigReloadFailed EventType = "CONFIG_RELOAD_FAILED"
)

// Monitoring events.
const (
	UeventReceived    EventType = "UEVENT_RECEIVED"
	NotificationShown EventType = "NOTIFICATION_SHOWN"
)

// Periodic tick event.
const Tick EventType = "TICK"

// Event carries data from a published event.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      map[string]string
}

// HandlerFunc processes an event.
type HandlerFunc func(Event)

type subscription struct {
	id      uint64
	handler HandlerFunc
}

// Bus is the central event dispatcher. It is safe for concurrent use.
// When no subscribers exist, Publish is a no-op with zero allocations.
type Bus struct {
	mu     sync.RWMutex
	subs   map[EventType][]subscription
	nextID uint64
	logger *slog.Logger
}

// NewBus creates a new event bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[EventType][]subscription),
		logger: logger,
	}
}

// Subscribe registers a handler for the given event type.
func (b *Bus) Subscribe(eventType EventType, handler HandlerFunc) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[eventType] = append(b.subs[eventType], subscription{
		id:      id,
		handler: handler,
	})
	return id
}

// Publish dispatches an event to all subscribers of the event type.
// Handlers are called synchronously in registration order. A panicking
// handler is recovered and logged; remaining handlers still execute.
func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	subs := b.subs[event.Type]
	if len(subs) == 0 {
		b.mu.RUnlock()
		return
	}
	// Copy the slice so we can release the lock before calling handlers.
	handlers := make([]subscription, len(subs))
	copy(handlers, subs)
	b.mu.RUnlock()

	for _, s := range handlers {
		b.safeCall(s.handler, event)
	}
}

func (b *Bus) safeCall(handler HandlerFunc, event Event) {
	defer func() {
		if r := recover(); r != nil {
			if b.logger != nil {
				b.logger.Error("event handler panicked",
					"event", string(event.Type),
					"panic", r,
				)
			}
		}
	}()
	handler(event)
}

// SubscriberCount returns the number of subscribers for an event type.
func (b *Bus) SubscriberCount(eventType EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[eventType])
}

// Ticker emits a periodic TICK event every five seconds. Call Stop to shut
// it down.
type Ticker struct {
	bus    *Bus
	stopCh chan struct{}
	done   chan struct{}
}

// NewTicker starts emitting TICK events.
func NewTicker(bus *Bus) *Ticker {
	t := &Ticker{
		bus:    bus,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *Ticker) run() {
	defer close(t.done)

	tick := time.NewTicker(5 * time.Second)
	defer tick.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case now := <-tick.C:
			t.bus.Publish(Event{Type: Tick, Timestamp: now})
		}
	}
}

// Stop terminates the ticker goroutine and waits for it to finish.
func (t *Ticker) Stop() {
	close(t.stopCh)
	<-t.done
}
