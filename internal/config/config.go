// Package config loads the router configuration from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"solar_router/internal/rules"
	"solar_router/internal/tank"
	"solar_router/internal/telemetry"
)

// Topics maps telemetry fields and the heater command to MQTT topics.
type Topics struct {
	BatterySoC    string `yaml:"battery_soc"`
	SolarPower    string `yaml:"solar_power"`
	GridPower     string `yaml:"grid_power"`
	BatteryPower  string `yaml:"battery_power"`
	HeaterPower   string `yaml:"heater_power"`
	HeaterState   string `yaml:"heater_state"`
	HeaterCommand string `yaml:"heater_command"`
}

// MQTT holds broker connection settings.
type MQTT struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topics   Topics `yaml:"topics"`
}

// Tank holds the physical tank parameters.
type Tank struct {
	VolumeLiters  float64 `yaml:"volume_liters"`
	HeaterWattage float64 `yaml:"heater_wattage"`
	HeatLossRate  float64 `yaml:"heat_loss_rate"`
	ColdWaterTemp float64 `yaml:"cold_water_temp"`
	TargetTemp    float64 `yaml:"target_temp"`
	MinTemp       float64 `yaml:"min_temp"`
	AmbientTemp   float64 `yaml:"ambient_temp"`
}

// UsageEvent configures one named hot-water draw.
type UsageEvent struct {
	DurationMinutes  float64 `yaml:"duration_minutes"`
	FlowRateLPM      float64 `yaml:"flow_rate_lpm"`
	HotWaterFraction float64 `yaml:"hot_water_fraction"`
}

// Window is a time-of-day range in "HH:MM" strings.
type Window struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Thresholds parameterize the default rule set.
type Thresholds struct {
	MinBatterySoC          float64 `yaml:"min_battery_soc"`
	MinSolarPower          float64 `yaml:"min_solar_power"`
	MinDailyHeatingMinutes float64 `yaml:"min_daily_heating_minutes"`
}

// Config is the root configuration document.
type Config struct {
	MQTT                 MQTT                  `yaml:"mqtt"`
	Tank                 Tank                  `yaml:"tank"`
	UsageEvents          map[string]UsageEvent `yaml:"usage_events"`
	Thresholds           Thresholds            `yaml:"thresholds"`
	Offpeak              Window                `yaml:"offpeak"`
	SolarWindow          Window                `yaml:"solar_window"`
	CheckIntervalSeconds int                   `yaml:"check_interval_seconds"`
	StateFile            string                `yaml:"state_file"`
}

// Default returns the stock installation values.
func Default() Config {
	return Config{
		MQTT: MQTT{
			Broker:   "tcp://localhost:1883",
			ClientID: "solar-router",
		},
		Tank: Tank{
			VolumeLiters:  200,
			HeaterWattage: 2400,
			HeatLossRate:  0.5,
			ColdWaterTemp: 15,
			TargetTemp:    55,
			MinTemp:       40,
			AmbientTemp:   20,
		},
		UsageEvents: map[string]UsageEvent{
			"shower": {DurationMinutes: 10, FlowRateLPM: 10, HotWaterFraction: 0.7},
			"dishes": {DurationMinutes: 10, FlowRateLPM: 6, HotWaterFraction: 0.7},
		},
		Thresholds: Thresholds{
			MinBatterySoC:          70,
			MinSolarPower:          2500,
			MinDailyHeatingMinutes: 60,
		},
		Offpeak:              Window{Start: "22:00", End: "06:00"},
		SolarWindow:          Window{Start: "10:00", End: "17:00"},
		CheckIntervalSeconds: 60,
		StateFile:            "solar_router_state.json",
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the physical parameters and time windows.
func (c Config) Validate() error {
	if c.Tank.VolumeLiters <= 0 {
		return fmt.Errorf("tank volume must be positive, got %g", c.Tank.VolumeLiters)
	}
	if c.Tank.HeaterWattage <= 0 {
		return fmt.Errorf("heater wattage must be positive, got %g", c.Tank.HeaterWattage)
	}
	if c.Tank.HeatLossRate <= 0 {
		return fmt.Errorf("heat loss rate must be positive, got %g", c.Tank.HeatLossRate)
	}
	if c.Tank.TargetTemp <= c.Tank.ColdWaterTemp {
		return fmt.Errorf("target temperature %g must be above cold water temperature %g",
			c.Tank.TargetTemp, c.Tank.ColdWaterTemp)
	}
	if c.CheckIntervalSeconds <= 0 {
		return fmt.Errorf("check interval must be positive, got %d", c.CheckIntervalSeconds)
	}

	for _, w := range []struct {
		name string
		win  Window
	}{
		{"offpeak", c.Offpeak},
		{"solar_window", c.SolarWindow},
	} {
		if _, err := rules.ParseClock(w.win.Start); err != nil {
			return fmt.Errorf("%s start: %w", w.name, err)
		}
		if _, err := rules.ParseClock(w.win.End); err != nil {
			return fmt.Errorf("%s end: %w", w.name, err)
		}
	}

	for name, e := range c.UsageEvents {
		if e.DurationMinutes <= 0 || e.FlowRateLPM <= 0 {
			return fmt.Errorf("usage event %q: duration and flow rate must be positive", name)
		}
		if e.HotWaterFraction <= 0 || e.HotWaterFraction > 1 {
			return fmt.Errorf("usage event %q: hot water fraction must be in (0,1]", name)
		}
	}

	return nil
}

// TankConfig converts to the tank model's parameter struct.
func (c Config) TankConfig() tank.Config {
	return tank.Config{
		VolumeLiters:  c.Tank.VolumeLiters,
		HeaterWattage: c.Tank.HeaterWattage,
		HeatLossRate:  c.Tank.HeatLossRate,
		ColdWaterTemp: c.Tank.ColdWaterTemp,
		TargetTemp:    c.Tank.TargetTemp,
		MinTemp:       c.Tank.MinTemp,
		AmbientTemp:   c.Tank.AmbientTemp,
	}
}

// TankUsageEvents converts the configured draws for the tank model.
func (c Config) TankUsageEvents() map[string]tank.UsageEvent {
	out := make(map[string]tank.UsageEvent, len(c.UsageEvents))
	for name, e := range c.UsageEvents {
		out[name] = tank.UsageEvent{
			Name:             name,
			DurationMinutes:  e.DurationMinutes,
			FlowRateLPM:      e.FlowRateLPM,
			HotWaterFraction: e.HotWaterFraction,
		}
	}
	return out
}

// RuleThresholds converts to the rule engine's threshold struct.
func (c Config) RuleThresholds() rules.Thresholds {
	return rules.Thresholds{
		MinBatterySoC:          c.Thresholds.MinBatterySoC,
		MinSolarPower:          c.Thresholds.MinSolarPower,
		MinDailyHeatingMinutes: c.Thresholds.MinDailyHeatingMinutes,
		TargetTemp:             c.Tank.TargetTemp,
		SolarStart:             c.SolarWindow.Start,
		SolarEnd:               c.SolarWindow.End,
	}
}

// TelemetryTopics converts to the telemetry subscriber's topic map.
func (c Config) TelemetryTopics() telemetry.Topics {
	return telemetry.Topics{
		BatterySoC:   c.MQTT.Topics.BatterySoC,
		SolarPower:   c.MQTT.Topics.SolarPower,
		GridPower:    c.MQTT.Topics.GridPower,
		BatteryPower: c.MQTT.Topics.BatteryPower,
		HeaterPower:  c.MQTT.Topics.HeaterPower,
		HeaterState:  c.MQTT.Topics.HeaterState,
	}
}
