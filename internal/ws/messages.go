package ws

import (
	"encoding/json"

	"solar_router/internal/rules"
	"solar_router/internal/tank"
)

// Envelope wraps all WebSocket messages with a type discriminator.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope marshals a payload into a typed envelope.
func NewEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

// Message type constants
const (
	// Client -> Server
	TypeHeaterForce = "heater:force"
	TypeHeaterStop  = "heater:stop"
	TypeTankSetTemp = "tank:set_temp"
	TypeTankUsage   = "tank:usage"
	TypeStatsReset  = "stats:reset"
	TypeRuleSet     = "rule:set"
	TypeRuleRemove  = "rule:remove"
	TypeRuleEnable  = "rule:enable"
	TypeRuleDisable = "rule:disable"
	TypeModeAuto    = "mode:auto"
	TypeModeOffpeak = "mode:offpeak_fallback"
	TypeForecastGet = "forecast:get"

	// Server -> Client
	TypeComputed  = "router:computed"
	TypeHeating   = "router:heating"
	TypeRuleFired = "router:rule"
	TypeRules     = "router:rules"
	TypeForecast  = "router:forecast"
)

// Client -> Server payloads

type ForceHeatingPayload struct {
	Minutes int `json:"minutes"`
}

type SetTempPayload struct {
	Temperature float64 `json:"temperature"`
}

type UsagePayload struct {
	Event string `json:"event"`
}

type RuleNamePayload struct {
	Name string `json:"name"`
}

type TogglePayload struct {
	Enabled bool `json:"enabled"`
}

type ForecastRequestPayload struct {
	Hours int `json:"hours"`
}

// Server -> Client payloads

// HeatingPayload announces a heater state transition.
type HeatingPayload struct {
	Event    string  `json:"event"` // "started" or "stopped"
	Rule     string  `json:"rule,omitempty"`
	TankTemp float64 `json:"tank_temp"`
}

type RulesPayload struct {
	Rules []rules.Rule `json:"rules"`
}

type ForecastPayload struct {
	Points []tank.ForecastPoint `json:"points"`
}
