// Package controller drives the decision cycle: advance the tank model,
// evaluate the rules against fresh telemetry, and command the heater only
// when the decision changes.
package controller

import (
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"solar_router/internal/actuator"
	"solar_router/internal/rules"
	"solar_router/internal/store"
	"solar_router/internal/tank"
	"solar_router/internal/telemetry"
)

// HeatingMode is the router's operating mode. Only auto, forced and off are
// driven by the current logic; solar_only and offpeak are reserved.
type HeatingMode string

const (
	ModeOff       HeatingMode = "off"
	ModeAuto      HeatingMode = "auto"
	ModeSolarOnly HeatingMode = "solar_only"
	ModeForced    HeatingMode = "forced"
	ModeOffpeak   HeatingMode = "offpeak"
)

// persistInterval is how much elapsed tick time accumulates before the
// snapshot is written again.
const persistInterval = 5 * time.Minute

// Limits for externally supplied commands.
const (
	minForceMinutes = 1
	maxForceMinutes = 480
	minSetTemp      = 10.0
	maxSetTemp      = 80.0
)

// HeatingEvent is emitted when the heater changes state.
type HeatingEvent struct {
	Rule     string  `json:"rule,omitempty"`
	TankTemp float64 `json:"tank_temp"`
}

// RuleEvent is emitted when a rule drives an actuator change.
type RuleEvent struct {
	Rule   string `json:"rule"`
	Action string `json:"action"`
}

// Computed is the derived value set exposed after every cycle.
type Computed struct {
	TankTemp               float64  `json:"tank_temp_estimate"`
	DailyHeatingMinutes    float64  `json:"daily_heating_minutes"`
	DailyHeatingEnergyKWh  float64  `json:"daily_heating_energy_kwh"`
	HeatingSessionsToday   int      `json:"heating_sessions_today"`
	EnergyContentKWh       float64  `json:"energy_content_kwh"`
	EstimatedShowers       float64  `json:"estimated_showers"`
	TimeToTargetMinutes    *float64 `json:"time_to_target_minutes"` // nil when unreachable
	TimeToColdHours        float64  `json:"time_to_cold_hours"`
	HeatingMode            string   `json:"heating_mode"`
	AutoModeEnabled        bool     `json:"auto_mode_enabled"`
	OffpeakFallbackEnabled bool     `json:"offpeak_fallback_enabled"`
	CurrentRule            string   `json:"current_rule,omitempty"`
	IsHeating              bool     `json:"is_heating"`
}

// Callback receives controller notifications.
type Callback interface {
	OnComputed(Computed)
	OnHeatingStarted(HeatingEvent)
	OnHeatingStopped(HeatingEvent)
	OnRuleTriggered(RuleEvent)
}

// Store persists router snapshots.
type Store interface {
	Load() (store.Snapshot, bool, error)
	Save(store.Snapshot) error
}

// Config holds the controller's own settings.
type Config struct {
	OffpeakStart string
	OffpeakEnd   string
}

// Deps are the collaborators a controller drives. Callback and Metrics may
// be nil.
type Deps struct {
	Tank     *tank.Model
	Rules    *rules.Engine
	Source   telemetry.Source
	Heater   actuator.Switch
	Store    Store
	Callback Callback
	Metrics  *Metrics
}

// Controller owns one tank model and one rule engine. A single mutex
// serializes ticks, the daily boundary and every mutating command, so the
// advance-evaluate-decide sequence is never interleaved.
type Controller struct {
	mu sync.Mutex

	tank    *tank.Model
	engine  *rules.Engine
	source  telemetry.Source
	heater  actuator.Switch
	store   Store
	cb      Callback
	metrics *Metrics

	offpeakStart string
	offpeakEnd   string

	mode            HeatingMode
	autoMode        bool
	offpeakFallback bool
	forcedUntil     time.Time
	heaterOn        bool
	lastTick        time.Time
	sincePersist    time.Duration

	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// New wires a controller. Nil Callback or Metrics disable the respective
// output without further checks in the cycle.
func New(d Deps, cfg Config) *Controller {
	cb := d.Callback
	if cb == nil {
		cb = nopCallback{}
	}
	return &Controller{
		tank:            d.Tank,
		engine:          d.Rules,
		source:          d.Source,
		heater:          d.Heater,
		store:           d.Store,
		cb:              cb,
		metrics:         d.Metrics,
		offpeakStart:    cfg.OffpeakStart,
		offpeakEnd:      cfg.OffpeakEnd,
		mode:            ModeAuto,
		autoMode:        true,
		offpeakFallback: true,
	}
}

type nopCallback struct{}

func (nopCallback) OnComputed(Computed)           {}
func (nopCallback) OnHeatingStarted(HeatingEvent) {}
func (nopCallback) OnHeatingStopped(HeatingEvent) {}
func (nopCallback) OnRuleTriggered(RuleEvent)     {}

// RestoreFromStore loads the persisted snapshot, if any.
func (c *Controller) RestoreFromStore() error {
	snap, ok, err := c.store.Load()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.tank.Restore(snap.Tank)
	if len(snap.Rules) > 0 {
		c.engine.SetRules(snap.Rules)
	}
	if snap.HeatingMode != "" {
		c.mode = HeatingMode(snap.HeatingMode)
	}
	c.autoMode = snap.AutoModeEnabled
	c.offpeakFallback = snap.OffpeakFallbackEnabled
	return nil
}

// Tick runs one decision cycle at the given time.
func (c *Controller) Tick(now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tick(now)
}

// tick is the unlocked cycle body, shared with the midnight reset and the
// command re-evaluations. Telemetry is read before any state mutation so a
// failed cycle leaves the tank and rules untouched.
func (c *Controller) tick(now time.Time) error {
	snap, err := c.source.Snapshot()
	if err != nil {
		if c.metrics != nil {
			c.metrics.TickErrorsTotal.Inc()
		}
		return fmt.Errorf("reading telemetry: %w", err)
	}

	elapsed := 0.0
	if !c.lastTick.IsZero() {
		elapsed = now.Sub(c.lastTick).Seconds()
		if elapsed < 0 {
			elapsed = 0
		}
	}

	heaterOn := c.heaterOn
	if snap.HeaterOn != nil {
		heaterOn = *snap.HeaterOn
	}

	c.tank.Advance(heaterOn, elapsed, now)
	c.heaterOn = heaterOn

	ctx := c.buildContext(snap, now)

	switch {
	case c.mode == ModeForced && now.Before(c.forcedUntil):
		if !heaterOn {
			c.commandHeater(true, "")
		}

	default:
		if c.mode == ModeForced {
			// Forced window expired.
			if c.autoMode {
				c.mode = ModeAuto
			} else {
				c.mode = ModeOff
			}
		}

		if c.autoMode {
			should, rule := c.engine.ShouldHeat(ctx)
			if should != heaterOn {
				c.commandHeater(should, rule)
			}
		}
		// Auto mode disabled: no opinion, actuator left untouched.
	}

	computed := c.computed()
	c.cb.OnComputed(computed)
	if c.metrics != nil {
		c.metrics.TankTemp.Set(computed.TankTemp)
		c.metrics.HeaterOn.Set(boolToGauge(c.heaterOn))
	}

	c.lastTick = now
	c.sincePersist += time.Duration(elapsed * float64(time.Second))
	if c.sincePersist >= persistInterval {
		if err := c.save(); err != nil {
			log.Printf("saving snapshot: %v", err)
		}
		c.sincePersist = 0
	}

	return nil
}

// commandHeater issues the actuator command and emits notifications. A
// failed command is logged and counted; the previous state stands so the
// next tick retries.
func (c *Controller) commandHeater(on bool, rule string) {
	if err := c.heater.Set(on); err != nil {
		log.Printf("heater command failed: %v", err)
		if c.metrics != nil {
			c.metrics.TickErrorsTotal.Inc()
		}
		return
	}

	c.heaterOn = on
	ev := HeatingEvent{Rule: rule, TankTemp: c.tank.State().EstimatedTemp}
	if on {
		log.Printf("heating started (rule %q, tank %.1f°C)", rule, ev.TankTemp)
		c.cb.OnHeatingStarted(ev)
		if c.metrics != nil {
			c.metrics.HeatingStartsTotal.Inc()
		}
	} else {
		log.Printf("heating stopped (rule %q, tank %.1f°C)", rule, ev.TankTemp)
		c.cb.OnHeatingStopped(ev)
		if c.metrics != nil {
			c.metrics.HeatingStopsTotal.Inc()
		}
	}

	if rule != "" {
		action := "turn_off"
		if on {
			action = "turn_on"
		}
		c.cb.OnRuleTriggered(RuleEvent{Rule: rule, Action: action})
		if c.metrics != nil {
			c.metrics.RuleTriggeredTotal.WithLabelValues(rule).Inc()
		}
	}
}

// buildContext assembles the immutable rule context for this cycle.
func (c *Controller) buildContext(snap telemetry.Snapshot, now time.Time) rules.Context {
	state := c.tank.State()
	temp := state.EstimatedTemp
	return rules.Context{
		BatterySoC:          snap.BatterySoC,
		SolarPower:          snap.SolarPower,
		GridPower:           snap.GridPower,
		BatteryPower:        snap.BatteryPower,
		HeaterPower:         snap.HeaterPower,
		TankTemp:            &temp,
		DailyHeatingMinutes: state.TotalHeatingToday.Minutes(),
		OffpeakStart:        c.offpeakStart,
		OffpeakEnd:          c.offpeakEnd,
		Now:                 now,
	}
}

// MidnightReset zeroes the daily counters, persists, and runs a fresh
// evaluation cycle. Called once at the local daily boundary.
func (c *Controller) MidnightReset(now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	log.Printf("resetting daily statistics")
	c.tank.ResetDailyStats()
	if err := c.save(); err != nil {
		log.Printf("saving snapshot: %v", err)
	}
	c.sincePersist = 0

	return c.tick(now)
}

// computed collects the derived values. Caller holds the mutex.
func (c *Controller) computed() Computed {
	state := c.tank.State()

	var ttt *float64
	if d, ok := c.tank.TimeToTarget(); ok {
		minutes := roundTo(d.Minutes(), 0)
		ttt = &minutes
	}

	return Computed{
		TankTemp:               roundTo(state.EstimatedTemp, 1),
		DailyHeatingMinutes:    roundTo(state.TotalHeatingToday.Minutes(), 1),
		DailyHeatingEnergyKWh:  roundTo(state.TotalEnergyTodayKWh, 2),
		HeatingSessionsToday:   state.HeatingSessionsToday,
		EnergyContentKWh:       roundTo(c.tank.EnergyContent(), 2),
		EstimatedShowers:       c.tank.EstimatedShowers(),
		TimeToTargetMinutes:    ttt,
		TimeToColdHours:        roundTo(c.tank.TimeToCold().Hours(), 1),
		HeatingMode:            string(c.mode),
		AutoModeEnabled:        c.autoMode,
		OffpeakFallbackEnabled: c.offpeakFallback,
		CurrentRule:            c.engine.LastTriggered(),
		IsHeating:              state.IsHeating,
	}
}

// Computed returns the latest derived values.
func (c *Controller) Computed() Computed {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.computed()
}

// Forecast returns the temperature projection for the next hours.
func (c *Controller) Forecast(hours int) []tank.ForecastPoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tank.Forecast(hours, time.Now())
}

// Rules returns the current rule collection.
func (c *Controller) Rules() []rules.Rule {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.Rules()
}

// LastTick returns the time of the last completed cycle.
func (c *Controller) LastTick() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastTick
}

// save writes the snapshot. Caller holds the mutex.
func (c *Controller) save() error {
	if c.store == nil {
		return nil
	}
	err := c.store.Save(store.Snapshot{
		Tank:                   c.tank.Snapshot(),
		Rules:                  c.engine.Rules(),
		HeatingMode:            string(c.mode),
		AutoModeEnabled:        c.autoMode,
		OffpeakFallbackEnabled: c.offpeakFallback,
	})
	if err == nil && c.metrics != nil {
		c.metrics.SnapshotSavesTotal.Inc()
	}
	return err
}

func roundTo(v float64, decimals int) float64 {
	scale := 1.0
	for i := 0; i < decimals; i++ {
		scale *= 10
	}
	return math.Round(v*scale) / scale
}

func boolToGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
