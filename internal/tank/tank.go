// Package tank estimates the temperature of a hot-water tank that has no
// physical sensor. Temperature is integrated over time from heater on/off
// status and depleted by discrete usage events.
package tank

import (
	"log"
	"math"
	"time"
)

// Physical constants for stored water.
const (
	waterSpecificHeat = 4186.0 // J/(kg·°C)
	waterDensity      = 1.0    // kg/L
)

// overshootMargin is how far above target a manual calibration may push the
// estimate (°C).
const overshootMargin = 10.0

// UsageEvent describes a discrete hot-water draw such as a shower.
type UsageEvent struct {
	Name             string  `json:"name"`
	DurationMinutes  float64 `json:"duration_minutes"`
	FlowRateLPM      float64 `json:"flow_rate_lpm"`
	HotWaterFraction float64 `json:"hot_water_fraction"`
}

// VolumeLiters returns the hot-water volume drawn by the event.
func (e UsageEvent) VolumeLiters() float64 {
	return e.DurationMinutes * e.FlowRateLPM * e.HotWaterFraction
}

// DefaultUsageEvents returns the standard household draw profile.
func DefaultUsageEvents() map[string]UsageEvent {
	return map[string]UsageEvent{
		"shower": {Name: "Shower", DurationMinutes: 10, FlowRateLPM: 10, HotWaterFraction: 0.7},
		"dishes": {Name: "Dishes", DurationMinutes: 10, FlowRateLPM: 6, HotWaterFraction: 0.7},
	}
}

// Config holds the tank's physical parameters. Immutable after construction.
type Config struct {
	VolumeLiters  float64
	HeaterWattage float64
	HeatLossRate  float64 // °C per hour at reference ΔT
	ColdWaterTemp float64
	TargetTemp    float64
	MinTemp       float64 // minimum usable temperature
	AmbientTemp   float64
}

// State is the mutable tank state. Daily counters reset only at the daily
// boundary; everything round-trips through Snapshot.
type State struct {
	EstimatedTemp        float64
	LastUpdate           time.Time
	LastHeatingStart     *time.Time
	LastHeatingEnd       *time.Time
	TotalHeatingToday    time.Duration
	TotalEnergyTodayKWh  float64
	HeatingSessionsToday int
	IsHeating            bool
}

// ForecastPoint is one hour of the projected temperature curve.
type ForecastPoint struct {
	Time        time.Time `json:"time"`
	Temperature float64   `json:"temperature"`
	Hour        int       `json:"hour"`
}

// Model simulates the stored water temperature.
type Model struct {
	cfg    Config
	events map[string]UsageEvent
	state  State
}

// New creates a model starting at target temperature. Passing nil events
// installs the default draw profile.
func New(cfg Config, events map[string]UsageEvent) *Model {
	if events == nil {
		events = DefaultUsageEvents()
	}
	return &Model{
		cfg:    cfg,
		events: events,
		state:  State{EstimatedTemp: cfg.TargetTemp},
	}
}

// Config returns the immutable tank parameters.
func (m *Model) Config() Config { return m.cfg }

// State returns a copy of the current tank state.
func (m *Model) State() State { return m.state }

// UsageEvents returns the configured draw profile.
func (m *Model) UsageEvents() map[string]UsageEvent {
	out := make(map[string]UsageEvent, len(m.events))
	for k, v := range m.events {
		out[k] = v
	}
	return out
}

// ThermalMass returns the heat capacity of the stored water (J/°C).
func (m *Model) ThermalMass() float64 {
	return m.cfg.VolumeLiters * waterDensity * waterSpecificHeat
}

// HeatingRate returns the temperature rise per second while heating (°C/s).
func (m *Model) HeatingRate() float64 {
	return m.cfg.HeaterWattage / m.ThermalMass()
}

// HeatingRatePerHour returns the temperature rise per hour while heating.
func (m *Model) HeatingRatePerHour() float64 {
	return m.HeatingRate() * 3600
}

// heatLoss returns the temperature drop from standing losses over the given
// number of hours. Loss scales with the distance to ambient; a tank at or
// below ambient loses nothing.
func (m *Model) heatLoss(hours float64) float64 {
	tempDiff := m.state.EstimatedTemp - m.cfg.AmbientTemp
	if tempDiff <= 0 {
		return 0
	}
	ref := m.cfg.TargetTemp - m.cfg.AmbientTemp
	if ref <= 0 {
		ref = 1
	}
	return m.cfg.HeatLossRate * hours * (tempDiff / ref)
}

// clampTemp keeps the estimate inside [cold water, target+overshoot].
func (m *Model) clampTemp() {
	if m.state.EstimatedTemp < m.cfg.ColdWaterTemp {
		m.state.EstimatedTemp = m.cfg.ColdWaterTemp
	}
	if max := m.cfg.TargetTemp + overshootMargin; m.state.EstimatedTemp > max {
		m.state.EstimatedTemp = max
	}
}

// Advance integrates the temperature over elapsedSeconds of wall-clock time
// with the heater in the given state. It returns the new estimate.
//
// While heating the temperature rises at the heating rate, loses heat as
// usual, and is capped at target (thermostat effect). Heating time, energy
// and session counters accumulate only while heating. A zero elapsed time
// still updates timestamps and the heating flag.
func (m *Model) Advance(isHeating bool, elapsedSeconds float64, now time.Time) float64 {
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}
	hours := elapsedSeconds / 3600

	if isHeating {
		rise := m.HeatingRate() * elapsedSeconds
		newTemp := m.state.EstimatedTemp + rise - m.heatLoss(hours)
		if newTemp > m.cfg.TargetTemp {
			newTemp = m.cfg.TargetTemp
		}

		if !m.state.IsHeating {
			start := now
			m.state.LastHeatingStart = &start
			m.state.HeatingSessionsToday++
		}
		m.state.TotalHeatingToday += time.Duration(elapsedSeconds * float64(time.Second))
		m.state.TotalEnergyTodayKWh += m.cfg.HeaterWattage * elapsedSeconds / 3.6e6

		m.state.EstimatedTemp = newTemp
	} else {
		newTemp := m.state.EstimatedTemp - m.heatLoss(hours)
		if newTemp < m.cfg.ColdWaterTemp {
			newTemp = m.cfg.ColdWaterTemp
		}

		if m.state.IsHeating {
			end := now
			m.state.LastHeatingEnd = &end
		}

		m.state.EstimatedTemp = newTemp
	}

	m.clampTemp()
	m.state.IsHeating = isHeating
	m.state.LastUpdate = now

	return m.state.EstimatedTemp
}

// usageDrop returns the temperature drop caused by one usage event, using a
// volume-weighted mix of remaining hot water and incoming cold water.
func (m *Model) usageDrop(e UsageEvent) float64 {
	used := e.VolumeLiters()
	if used >= m.cfg.VolumeLiters {
		// Tank content fully replaced.
		return m.state.EstimatedTemp - m.cfg.ColdWaterTemp
	}
	remaining := m.cfg.VolumeLiters - used
	newTemp := (remaining*m.state.EstimatedTemp + used*m.cfg.ColdWaterTemp) / m.cfg.VolumeLiters
	return m.state.EstimatedTemp - newTemp
}

// ApplyUsageEvent applies a named draw and returns the new temperature.
// An unknown name leaves the state untouched and returns false.
func (m *Model) ApplyUsageEvent(name string) (float64, bool) {
	event, ok := m.events[name]
	if !ok {
		log.Printf("unknown usage event: %s", name)
		return m.state.EstimatedTemp, false
	}

	drop := m.usageDrop(event)
	m.state.EstimatedTemp -= drop
	m.clampTemp()

	log.Printf("applied %s event: temperature dropped by %.1f°C to %.1f°C",
		name, drop, m.state.EstimatedTemp)

	return m.state.EstimatedTemp, true
}

// TimeToTarget estimates how long heating would take to reach target. The
// second return value is false when the target is unreachable because heat
// loss outpaces the element. The net rate deliberately uses half the loss
// rate as a fixed approximation of losses during heating.
func (m *Model) TimeToTarget() (time.Duration, bool) {
	if m.state.EstimatedTemp >= m.cfg.TargetTemp {
		return 0, true
	}

	netRate := m.HeatingRatePerHour() - m.cfg.HeatLossRate/2
	if netRate <= 0 {
		return 0, false
	}

	hours := (m.cfg.TargetTemp - m.state.EstimatedTemp) / netRate
	return time.Duration(hours * float64(time.Hour)), true
}

// TimeToCold estimates how long until the tank drops to the minimum usable
// temperature with the heater off.
func (m *Model) TimeToCold() time.Duration {
	if m.state.EstimatedTemp <= m.cfg.MinTemp {
		return 0
	}
	hours := (m.state.EstimatedTemp - m.cfg.MinTemp) / m.cfg.HeatLossRate
	return time.Duration(hours * float64(time.Hour))
}

// EstimatedShowers simulates consecutive showers from the current
// temperature until the tank would fall below the minimum usable
// temperature. The final shower is fractional. Rounded to one decimal.
func (m *Model) EstimatedShowers() float64 {
	if m.state.EstimatedTemp <= m.cfg.MinTemp {
		return 0
	}
	shower, ok := m.events["shower"]
	if !ok {
		return 0
	}

	used := shower.VolumeLiters()
	current := m.state.EstimatedTemp
	showers := 0.0

	for current > m.cfg.MinTemp {
		var newTemp float64
		if used >= m.cfg.VolumeLiters {
			newTemp = m.cfg.ColdWaterTemp
		} else {
			remaining := m.cfg.VolumeLiters - used
			newTemp = (remaining*current + used*m.cfg.ColdWaterTemp) / m.cfg.VolumeLiters
		}

		if newTemp >= current {
			// A shower that does not cool the tank would loop forever.
			return 0
		}

		if newTemp < m.cfg.MinTemp {
			showers += (current - m.cfg.MinTemp) / (current - newTemp)
			break
		}

		current = newTemp
		showers++
	}

	return math.Round(showers*10) / 10
}

// EnergyContent returns the stored energy above cold-water temperature (kWh).
func (m *Model) EnergyContent() float64 {
	tempDiff := m.state.EstimatedTemp - m.cfg.ColdWaterTemp
	if tempDiff <= 0 {
		return 0
	}
	return m.ThermalMass() * tempDiff / 3.6e6
}

// Forecast projects the temperature for the next hoursAhead hours assuming
// no heating, with a morning shower at 07:00 and evening dishes at 19:00.
// It is a pure projection and does not mutate state. The usage drops are
// fixed amounts computed from the current temperature.
func (m *Model) Forecast(hoursAhead int, now time.Time) []ForecastPoint {
	showerDrop := 0.0
	if e, ok := m.events["shower"]; ok {
		showerDrop = m.usageDrop(e)
	}
	dishesDrop := 0.0
	if e, ok := m.events["dishes"]; ok {
		dishesDrop = m.usageDrop(e)
	}

	points := make([]ForecastPoint, 0, hoursAhead+1)
	for hour := 0; hour <= hoursAhead; hour++ {
		temp := m.state.EstimatedTemp - m.cfg.HeatLossRate*float64(hour)

		at := now.Add(time.Duration(hour) * time.Hour)
		switch at.Hour() {
		case 7:
			temp -= showerDrop
		case 19:
			temp -= dishesDrop
		}

		if temp < m.cfg.ColdWaterTemp {
			temp = m.cfg.ColdWaterTemp
		}

		points = append(points, ForecastPoint{
			Time:        at,
			Temperature: math.Round(temp*10) / 10,
			Hour:        hour,
		})
	}
	return points
}

// ResetDailyStats zeroes the daily counters. The temperature estimate is
// untouched.
func (m *Model) ResetDailyStats() {
	m.state.TotalHeatingToday = 0
	m.state.TotalEnergyTodayKWh = 0
	m.state.HeatingSessionsToday = 0
}

// SetTemperature overrides the estimate for manual calibration, clamped to
// the valid range.
func (m *Model) SetTemperature(temp float64, now time.Time) {
	m.state.EstimatedTemp = temp
	m.clampTemp()
	m.state.LastUpdate = now
}
