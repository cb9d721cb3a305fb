package websocket

import (
	"github.com/ramonehamilton/cardfinder/internal/events"
)

// Observer forwards dispatcher events to the hub. Topic filtering happens
// per client, so every event type is accepted here.
type Observer struct {
	hub *Hub
}

// NewObserver creates an Observer for hub.
func NewObserver(hub *Hub) *Observer {
	return &Observer{hub: hub}
}

// OnEvent broadcasts event. A stopped or missing hub drops it.
func (o *Observer) OnEvent(event events.Event) error {
	if o.hub != nil {
		o.hub.BroadcastEvent(Event{Type: event.Type, Data: event.Data})
	}
	return nil
}

func (o *Observer) GetName() string { return "websocket" }

func (o *Observer) ShouldHandle(string) bool { return true }

var _ events.Observer = (*Observer)(nil)
