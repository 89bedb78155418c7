package controller

import (
	"fmt"
	"log"
	"time"

	"solar_router/internal/rules"
)

// Externally-triggered mutations. Every command takes the controller mutex,
// so it is serialized against ticks and the daily boundary, persists the
// snapshot, and where a mode change affects the current decision re-runs
// the evaluation cycle immediately.

// ForceHeating turns the heater on for the given number of minutes,
// overriding the rules until the window expires.
func (c *Controller) ForceHeating(minutes int) error {
	if minutes < minForceMinutes || minutes > maxForceMinutes {
		return fmt.Errorf("force duration must be between %d and %d minutes, got %d",
			minForceMinutes, maxForceMinutes, minutes)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.mode = ModeForced
	c.forcedUntil = now.Add(time.Duration(minutes) * time.Minute)
	if !c.heaterOn {
		c.commandHeater(true, "")
	}

	log.Printf("forced heating for %d minutes", minutes)
	if err := c.save(); err != nil {
		log.Printf("saving snapshot: %v", err)
	}
	return nil
}

// StopHeating turns the heater off immediately and leaves forced mode.
func (c *Controller) StopHeating() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.heaterOn {
		c.commandHeater(false, "")
	}
	if c.autoMode {
		c.mode = ModeAuto
	} else {
		c.mode = ModeOff
	}
	c.forcedUntil = time.Time{}

	if err := c.save(); err != nil {
		log.Printf("saving snapshot: %v", err)
	}
}

// SetTankTemperature overrides the temperature estimate for calibration.
func (c *Controller) SetTankTemperature(temp float64) error {
	if temp < minSetTemp || temp > maxSetTemp {
		return fmt.Errorf("temperature must be between %g and %g°C, got %g",
			minSetTemp, maxSetTemp, temp)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.tank.SetTemperature(temp, time.Now())
	log.Printf("tank temperature calibrated to %.1f°C", c.tank.State().EstimatedTemp)
	if err := c.save(); err != nil {
		log.Printf("saving snapshot: %v", err)
	}
	return nil
}

// ApplyUsageEvent applies a named hot-water draw. Returns false for an
// unknown event name.
func (c *Controller) ApplyUsageEvent(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.tank.ApplyUsageEvent(name)
	if !ok {
		return false
	}
	if err := c.save(); err != nil {
		log.Printf("saving snapshot: %v", err)
	}
	return true
}

// ResetDailyStats zeroes the daily counters on demand.
func (c *Controller) ResetDailyStats() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tank.ResetDailyStats()
	if err := c.save(); err != nil {
		log.Printf("saving snapshot: %v", err)
	}
}

// SetRule upserts a rule definition.
func (c *Controller) SetRule(r rules.Rule) error {
	if r.Name == "" {
		return fmt.Errorf("rule name must not be empty")
	}
	if r.Priority < 0 || r.Priority > 100 {
		return fmt.Errorf("rule priority must be between 0 and 100, got %d", r.Priority)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.engine.AddRule(r)
	log.Printf("rule %q added or updated", r.Name)
	if err := c.save(); err != nil {
		log.Printf("saving snapshot: %v", err)
	}
	return nil
}

// RemoveRule deletes a rule by name. Returns false when not found.
func (c *Controller) RemoveRule(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.engine.RemoveRule(name) {
		return false
	}
	if err := c.save(); err != nil {
		log.Printf("saving snapshot: %v", err)
	}
	return true
}

// EnableRule enables a rule by name. Returns false when not found.
func (c *Controller) EnableRule(name string) bool {
	return c.setRuleEnabled(name, true)
}

// DisableRule disables a rule by name. Returns false when not found.
func (c *Controller) DisableRule(name string) bool {
	return c.setRuleEnabled(name, false)
}

func (c *Controller) setRuleEnabled(name string, enabled bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	var ok bool
	if enabled {
		ok = c.engine.EnableRule(name)
	} else {
		ok = c.engine.DisableRule(name)
	}
	if !ok {
		return false
	}
	if err := c.save(); err != nil {
		log.Printf("saving snapshot: %v", err)
	}
	return true
}

// SetAutoMode toggles rule-driven control and re-evaluates immediately.
func (c *Controller) SetAutoMode(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.autoMode = enabled
	if c.mode != ModeForced {
		if enabled {
			c.mode = ModeAuto
		} else {
			c.mode = ModeOff
		}
	}
	if err := c.save(); err != nil {
		log.Printf("saving snapshot: %v", err)
	}
	if err := c.tick(time.Now()); err != nil {
		log.Printf("re-evaluation after auto mode change failed: %v", err)
	}
}

// SetOffpeakFallback toggles the off-peak fallback rule and re-evaluates.
func (c *Controller) SetOffpeakFallback(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.offpeakFallback = enabled
	if enabled {
		c.engine.EnableRule("offpeak_fallback")
	} else {
		c.engine.DisableRule("offpeak_fallback")
	}
	if err := c.save(); err != nil {
		log.Printf("saving snapshot: %v", err)
	}
	if err := c.tick(time.Now()); err != nil {
		log.Printf("re-evaluation after off-peak fallback change failed: %v", err)
	}
}
