package rules

// ActionKind is the closed set of actions a rule may request.
type ActionKind string

const (
	TurnOnHeater   ActionKind = "turn_on_heater"
	TurnOffHeater  ActionKind = "turn_off_heater"
	SetHeatingMode ActionKind = "set_heating_mode"
)

// Action is a single action carried by a rule.
type Action struct {
	Kind  ActionKind `json:"kind"`
	Value string     `json:"value,omitempty"`
}

// Rule is a named, prioritized predicate-action pair. All conditions must
// hold for the rule to match; an empty condition list always matches while
// the rule is enabled. Higher priority rules are evaluated first.
type Rule struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Conditions  []Condition `json:"conditions"`
	Actions     []Action    `json:"actions"`
	Enabled     bool        `json:"enabled"`
	Priority    int         `json:"priority"` // 0-100
}

// Matches reports whether the rule is enabled and every condition holds.
func (r Rule) Matches(ctx Context) bool {
	if !r.Enabled {
		return false
	}
	for _, c := range r.Conditions {
		if !c.Eval(ctx) {
			return false
		}
	}
	return true
}
