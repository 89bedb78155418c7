// Package rules turns a telemetry context into a heating decision through a
// prioritized, first-match-wins rule set.
package rules

import (
	"log"
	"sort"
)

// Engine owns an ordered rule collection. It is not safe for concurrent
// use; callers serialize access (the controller funnels every evaluation
// and mutation through one mutex).
type Engine struct {
	rules         []Rule
	lastTriggered string // empty when the last evaluation matched nothing
}

// New creates an engine with the given initial rule set.
func New(initial []Rule) *Engine {
	e := &Engine{rules: append([]Rule(nil), initial...)}
	e.sortRules()
	return e
}

// sortRules orders by descending priority. The sort is stable so rules with
// equal priority keep their insertion order.
func (e *Engine) sortRules() {
	sort.SliceStable(e.rules, func(i, j int) bool {
		return e.rules[i].Priority > e.rules[j].Priority
	})
}

// AddRule inserts a rule, replacing any existing rule with the same name.
func (e *Engine) AddRule(r Rule) {
	for i := range e.rules {
		if e.rules[i].Name == r.Name {
			e.rules = append(e.rules[:i], e.rules[i+1:]...)
			break
		}
	}
	e.rules = append(e.rules, r)
	e.sortRules()
}

// RemoveRule deletes a rule by name. Returns false when no such rule exists.
func (e *Engine) RemoveRule(name string) bool {
	for i := range e.rules {
		if e.rules[i].Name == name {
			e.rules = append(e.rules[:i], e.rules[i+1:]...)
			return true
		}
	}
	return false
}

// EnableRule enables a rule by name.
func (e *Engine) EnableRule(name string) bool {
	return e.setEnabled(name, true)
}

// DisableRule disables a rule by name.
func (e *Engine) DisableRule(name string) bool {
	return e.setEnabled(name, false)
}

func (e *Engine) setEnabled(name string, enabled bool) bool {
	for i := range e.rules {
		if e.rules[i].Name == name {
			e.rules[i].Enabled = enabled
			return true
		}
	}
	return false
}

// GetRule looks up a rule by name.
func (e *Engine) GetRule(name string) (Rule, bool) {
	for _, r := range e.rules {
		if r.Name == name {
			return r, true
		}
	}
	return Rule{}, false
}

// Rules returns a copy of the rule collection in evaluation order.
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// SetRules replaces the whole collection, used when restoring a snapshot.
func (e *Engine) SetRules(rs []Rule) {
	e.rules = append([]Rule(nil), rs...)
	e.sortRules()
}

// LastTriggered returns the name of the rule matched by the most recent
// evaluation, or empty when nothing matched.
func (e *Engine) LastTriggered() string { return e.lastTriggered }

// Evaluate scans rules in descending priority order and returns the first
// matching rule's actions together with its name. Lower-priority matches
// are deliberately discarded; downstream rules are authored assuming
// first-match-wins, not aggregation.
func (e *Engine) Evaluate(ctx Context) ([]Action, []string) {
	e.sortRules()

	for _, r := range e.rules {
		if r.Matches(ctx) {
			log.Printf("rule %q triggered", r.Name)
			e.lastTriggered = r.Name
			return append([]Action(nil), r.Actions...), []string{r.Name}
		}
	}

	e.lastTriggered = ""
	return nil, nil
}

// ShouldHeat derives a binary heating decision from Evaluate. When no rule
// matches, the heater defaults to off; absence of an opinion is treated as
// the safe state, not "leave unchanged".
func (e *Engine) ShouldHeat(ctx Context) (bool, string) {
	actions, triggered := e.Evaluate(ctx)

	name := ""
	if len(triggered) > 0 {
		name = triggered[0]
	}

	for _, a := range actions {
		switch a.Kind {
		case TurnOnHeater:
			return true, name
		case TurnOffHeater:
			return false, name
		}
	}

	return false, ""
}
