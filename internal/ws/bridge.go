package ws

import (
	"log"

	"solar_router/internal/controller"
)

// Bridge implements controller.Callback and broadcasts notifications to the
// WebSocket hub.
type Bridge struct {
	hub *Hub
}

func NewBridge(hub *Hub) *Bridge {
	return &Bridge{hub: hub}
}

func (b *Bridge) OnComputed(c controller.Computed) {
	msg, err := NewEnvelope(TypeComputed, c)
	if err != nil {
		log.Printf("marshaling computed values: %v", err)
		return
	}
	b.hub.Broadcast(msg)
}

func (b *Bridge) OnHeatingStarted(ev controller.HeatingEvent) {
	b.broadcastHeating("started", ev)
}

func (b *Bridge) OnHeatingStopped(ev controller.HeatingEvent) {
	b.broadcastHeating("stopped", ev)
}

func (b *Bridge) broadcastHeating(event string, ev controller.HeatingEvent) {
	msg, err := NewEnvelope(TypeHeating, HeatingPayload{
		Event:    event,
		Rule:     ev.Rule,
		TankTemp: ev.TankTemp,
	})
	if err != nil {
		log.Printf("marshaling heating event: %v", err)
		return
	}
	b.hub.Broadcast(msg)
}

func (b *Bridge) OnRuleTriggered(ev controller.RuleEvent) {
	msg, err := NewEnvelope(TypeRuleFired, ev)
	if err != nil {
		log.Printf("marshaling rule event: %v", err)
		return
	}
	b.hub.Broadcast(msg)
}
