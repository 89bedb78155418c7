package ws

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"solar_router/internal/controller"
	"solar_router/internal/rules"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler manages WebSocket connections and routes commands to the
// controller it was built with. There is no registry lookup; the handler
// holds the one controller it targets.
type Handler struct {
	hub        *Hub
	controller *controller.Controller
}

func NewHandler(hub *Hub, ctrl *controller.Controller) *Handler {
	return &Handler{hub: hub, controller: ctrl}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:  h.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.hub.Register(client)
	go client.writePump()

	// Bring the new client up to date.
	h.sendComputed(client)
	h.sendRules(client)

	h.readPump(client)
}

func (h *Handler) readPump(c *Client) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}

		h.handleMessage(c, msg)
	}
}

func (h *Handler) handleMessage(c *Client, msg []byte) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		log.Printf("invalid message: %v", err)
		return
	}

	switch env.Type {
	case TypeHeaterForce:
		var p ForceHeatingPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			log.Printf("invalid heater:force payload: %v", err)
			return
		}
		if err := h.controller.ForceHeating(p.Minutes); err != nil {
			log.Printf("heater:force: %v", err)
		}

	case TypeHeaterStop:
		h.controller.StopHeating()

	case TypeTankSetTemp:
		var p SetTempPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			log.Printf("invalid tank:set_temp payload: %v", err)
			return
		}
		if err := h.controller.SetTankTemperature(p.Temperature); err != nil {
			log.Printf("tank:set_temp: %v", err)
		}

	case TypeTankUsage:
		var p UsagePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			log.Printf("invalid tank:usage payload: %v", err)
			return
		}
		if !h.controller.ApplyUsageEvent(p.Event) {
			log.Printf("tank:usage: unknown event %q", p.Event)
		}

	case TypeStatsReset:
		h.controller.ResetDailyStats()

	case TypeRuleSet:
		var p rules.Rule
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			log.Printf("invalid rule:set payload: %v", err)
			return
		}
		if err := h.controller.SetRule(p); err != nil {
			log.Printf("rule:set: %v", err)
			return
		}
		h.broadcastRules()

	case TypeRuleRemove:
		h.ruleByName(env.Payload, env.Type, h.controller.RemoveRule)

	case TypeRuleEnable:
		h.ruleByName(env.Payload, env.Type, h.controller.EnableRule)

	case TypeRuleDisable:
		h.ruleByName(env.Payload, env.Type, h.controller.DisableRule)

	case TypeModeAuto:
		var p TogglePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			log.Printf("invalid mode:auto payload: %v", err)
			return
		}
		h.controller.SetAutoMode(p.Enabled)

	case TypeModeOffpeak:
		var p TogglePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			log.Printf("invalid mode:offpeak_fallback payload: %v", err)
			return
		}
		h.controller.SetOffpeakFallback(p.Enabled)

	case TypeForecastGet:
		var p ForecastRequestPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			log.Printf("invalid forecast:get payload: %v", err)
			return
		}
		hours := p.Hours
		if hours <= 0 || hours > 72 {
			hours = 24
		}
		h.sendForecast(c, hours)

	default:
		log.Printf("unknown message type: %s", env.Type)
	}
}

func (h *Handler) ruleByName(payload json.RawMessage, msgType string, op func(string) bool) {
	var p RuleNamePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		log.Printf("invalid %s payload: %v", msgType, err)
		return
	}
	if !op(p.Name) {
		log.Printf("%s: rule not found: %s", msgType, p.Name)
		return
	}
	h.broadcastRules()
}

func (h *Handler) broadcastRules() {
	msg, err := NewEnvelope(TypeRules, RulesPayload{Rules: h.controller.Rules()})
	if err != nil {
		log.Printf("marshaling rules: %v", err)
		return
	}
	h.hub.Broadcast(msg)
}

func (h *Handler) sendComputed(c *Client) {
	msg, err := NewEnvelope(TypeComputed, h.controller.Computed())
	if err != nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (h *Handler) sendRules(c *Client) {
	msg, err := NewEnvelope(TypeRules, RulesPayload{Rules: h.controller.Rules()})
	if err != nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (h *Handler) sendForecast(c *Client, hours int) {
	msg, err := NewEnvelope(TypeForecast, ForecastPayload{Points: h.controller.Forecast(hours)})
	if err != nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}
