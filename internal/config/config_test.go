package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
mqtt:
  broker: tcp://broker.lan:1883
  topics:
    battery_soc: site/battery/soc
    heater_command: site/heater/set
tank:
  volume_liters: 300
  target_temp: 60
check_interval_seconds: 30
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tcp://broker.lan:1883", cfg.MQTT.Broker)
	assert.Equal(t, "site/battery/soc", cfg.MQTT.Topics.BatterySoC)
	assert.Equal(t, "site/heater/set", cfg.MQTT.Topics.HeaterCommand)
	assert.Equal(t, 300.0, cfg.Tank.VolumeLiters)
	assert.Equal(t, 60.0, cfg.Tank.TargetTemp)
	assert.Equal(t, 30, cfg.CheckIntervalSeconds)

	// Untouched fields keep their defaults.
	assert.Equal(t, 2400.0, cfg.Tank.HeaterWattage)
	assert.Equal(t, "solar-router", cfg.MQTT.ClientID)
	assert.Equal(t, "22:00", cfg.Offpeak.Start)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "tank: [not a map")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero volume", func(c *Config) { c.Tank.VolumeLiters = 0 }},
		{"zero wattage", func(c *Config) { c.Tank.HeaterWattage = 0 }},
		{"zero heat loss", func(c *Config) { c.Tank.HeatLossRate = 0 }},
		{"target below cold", func(c *Config) { c.Tank.TargetTemp = 10 }},
		{"zero interval", func(c *Config) { c.CheckIntervalSeconds = 0 }},
		{"bad offpeak start", func(c *Config) { c.Offpeak.Start = "25:00" }},
		{"bad solar window end", func(c *Config) { c.SolarWindow.End = "noon" }},
		{"zero duration event", func(c *Config) {
			c.UsageEvents["shower"] = UsageEvent{DurationMinutes: 0, FlowRateLPM: 10, HotWaterFraction: 0.7}
		}},
		{"fraction above one", func(c *Config) {
			c.UsageEvents["shower"] = UsageEvent{DurationMinutes: 10, FlowRateLPM: 10, HotWaterFraction: 1.5}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConverters(t *testing.T) {
	cfg := Default()

	tc := cfg.TankConfig()
	assert.Equal(t, 200.0, tc.VolumeLiters)
	assert.Equal(t, 55.0, tc.TargetTemp)
	assert.Equal(t, 40.0, tc.MinTemp)

	events := cfg.TankUsageEvents()
	require.Contains(t, events, "shower")
	assert.Equal(t, 70.0, events["shower"].VolumeLiters())

	th := cfg.RuleThresholds()
	assert.Equal(t, 70.0, th.MinBatterySoC)
	assert.Equal(t, 55.0, th.TargetTemp)
	assert.Equal(t, "10:00", th.SolarStart)

	topics := cfg.TelemetryTopics()
	assert.Equal(t, cfg.MQTT.Topics.BatterySoC, topics.BatterySoC)
}
