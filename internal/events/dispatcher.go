// Package events carries change notifications from the stores and the
// catalog to whoever renders them.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Event is one notification. Data holds one of the payloads in messages.go.
type Event struct {
	Type    string
	Data    any
	At      time.Time
	Context context.Context
}

// Observer receives dispatched events.
type Observer interface {
	OnEvent(event Event) error

	// GetName identifies the observer in logs.
	GetName() string

	// ShouldHandle filters by event type before OnEvent is called.
	ShouldHandle(eventType string) bool
}

// EventDispatcher delivers events synchronously, in registration order.
// It is safe for concurrent use.
type EventDispatcher struct {
	mu        sync.RWMutex
	observers []Observer
	logger    *slog.Logger
}

// NewEventDispatcher creates an EventDispatcher. A nil logger uses
// slog.Default().
func NewEventDispatcher(logger *slog.Logger) *EventDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventDispatcher{logger: logger}
}

// Register adds observer and returns a func that removes it again.
func (d *EventDispatcher) Register(observer Observer) func() {
	d.mu.Lock()
	d.observers = append(d.observers, observer)
	d.mu.Unlock()

	d.logger.Debug("observer registered", "observer", observer.GetName())
	return func() { d.Unregister(observer) }
}

// Unregister removes observer. Unknown observers are ignored.
func (d *EventDispatcher) Unregister(observer Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if i := slices.Index(d.observers, observer); i >= 0 {
		d.observers = slices.Delete(d.observers, i, i+1)
		d.logger.Debug("observer unregistered", "observer", observer.GetName())
	}
}

// Dispatch delivers event to every interested observer. A failing or
// panicking observer is logged and does not stop delivery to the rest.
func (d *EventDispatcher) Dispatch(event Event) {
	if event.Context == nil {
		event.Context = context.Background()
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}

	d.mu.RLock()
	observers := slices.Clone(d.observers)
	d.mu.RUnlock()

	for _, observer := range observers {
		if !observer.ShouldHandle(event.Type) {
			continue
		}
		if err := d.deliver(observer, event); err != nil {
			d.logger.Warn("observer failed",
				"observer", observer.GetName(),
				"event", event.Type,
				"error", err)
		}
	}
}

func (d *EventDispatcher) deliver(observer Observer, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return observer.OnEvent(event)
}

// ObserverCount returns the number of registered observers.
func (d *EventDispatcher) ObserverCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.observers)
}

// NewTypedEvent creates an Event of eventType carrying data.
func NewTypedEvent[T any](ctx context.Context, eventType string, data T) Event {
	return Event{Type: eventType, Data: data, At: time.Now(), Context: ctx}
}

// GetTypedData returns the event payload as T, or false when it is some
// other type.
func GetTypedData[T any](event Event) (T, bool) {
	typed, ok := event.Data.(T)
	return typed, ok
}
