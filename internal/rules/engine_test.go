package rules

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func onRule(name string, priority int, conds ...Condition) Rule {
	return Rule{
		Name:       name,
		Conditions: conds,
		Actions:    []Action{{Kind: TurnOnHeater}},
		Enabled:    true,
		Priority:   priority,
	}
}

func offRule(name string, priority int, conds ...Condition) Rule {
	return Rule{
		Name:       name,
		Conditions: conds,
		Actions:    []Action{{Kind: TurnOffHeater}},
		Enabled:    true,
		Priority:   priority,
	}
}

func TestEngine_FirstMatchWins(t *testing.T) {
	e := New([]Rule{
		onRule("low_priority", 60),
		offRule("high_priority", 90),
	})

	should, name := e.ShouldHeat(Context{Now: at(12, 0)})

	// Both rules match (no conditions); only the higher priority one counts.
	assert.False(t, should)
	assert.Equal(t, "high_priority", name)
	assert.Equal(t, "high_priority", e.LastTriggered())
}

func TestEngine_StableTieBreak(t *testing.T) {
	e := New([]Rule{
		onRule("first", 80),
		offRule("second", 80),
	})

	_, name := e.ShouldHeat(Context{Now: at(12, 0)})

	assert.Equal(t, "first", name)
}

func TestEngine_NoMatchDefaultsOff(t *testing.T) {
	e := New([]Rule{
		onRule("needs_solar", 80, Condition{Kind: SolarPowerAbove, Value: "2500"}),
	})

	should, name := e.ShouldHeat(Context{SolarPower: ptr(100), Now: at(12, 0)})

	assert.False(t, should)
	assert.Equal(t, "", name)
	assert.Equal(t, "", e.LastTriggered())
}

func TestEngine_DisabledRuleSkipped(t *testing.T) {
	e := New([]Rule{onRule("only", 80)})

	require.True(t, e.DisableRule("only"))
	should, name := e.ShouldHeat(Context{Now: at(12, 0)})
	assert.False(t, should)
	assert.Equal(t, "", name)

	require.True(t, e.EnableRule("only"))
	should, name = e.ShouldHeat(Context{Now: at(12, 0)})
	assert.True(t, should)
	assert.Equal(t, "only", name)
}

func TestEngine_AddRuleUpserts(t *testing.T) {
	e := New([]Rule{onRule("solar", 80)})

	updated := offRule("solar", 85)
	e.AddRule(updated)

	require.Len(t, e.Rules(), 1)
	got, ok := e.GetRule("solar")
	require.True(t, ok)
	assert.Equal(t, 85, got.Priority)
	assert.Equal(t, TurnOffHeater, got.Actions[0].Kind)
}

func TestEngine_RemoveRule(t *testing.T) {
	e := New([]Rule{onRule("a", 80), onRule("b", 70)})

	assert.True(t, e.RemoveRule("a"))
	assert.False(t, e.RemoveRule("a"))
	assert.Len(t, e.Rules(), 1)
}

func TestEngine_MutateUnknownRule(t *testing.T) {
	e := New(nil)

	assert.False(t, e.RemoveRule("ghost"))
	assert.False(t, e.EnableRule("ghost"))
	assert.False(t, e.DisableRule("ghost"))
	_, ok := e.GetRule("ghost")
	assert.False(t, ok)
}

func TestEngine_RulesReturnsCopy(t *testing.T) {
	e := New([]Rule{onRule("a", 80)})

	rs := e.Rules()
	rs[0].Name = "mutated"

	got, ok := e.GetRule("a")
	assert.True(t, ok)
	assert.Equal(t, "a", got.Name)
}

func TestEngine_EvaluateReturnsActionCopy(t *testing.T) {
	e := New([]Rule{onRule("a", 80)})

	actions, triggered := e.Evaluate(Context{Now: at(12, 0)})
	require.Len(t, actions, 1)
	require.Equal(t, []string{"a"}, triggered)

	actions[0].Kind = TurnOffHeater
	should, _ := e.ShouldHeat(Context{Now: at(12, 0)})
	assert.True(t, should)
}

func TestDefaultRules_SolarExcess(t *testing.T) {
	e := New(DefaultRules(DefaultThresholds()))

	// Sunny afternoon, charged battery, tank below target.
	should, name := e.ShouldHeat(Context{
		BatterySoC: ptr(85),
		SolarPower: ptr(3000),
		GridPower:  ptr(-200),
		TankTemp:   ptr(48),
		Now:        at(12, 0),
	})

	assert.True(t, should)
	assert.Equal(t, "solar_excess", name)
}

func TestDefaultRules_EmergencyBeatsBatteryProtection(t *testing.T) {
	e := New(DefaultRules(DefaultThresholds()))

	// Tank critically cold while the battery is low: emergency wins.
	should, name := e.ShouldHeat(Context{
		BatterySoC: ptr(20),
		SolarPower: ptr(0),
		TankTemp:   ptr(30),
		Now:        at(3, 0),
	})

	assert.True(t, should)
	assert.Equal(t, "emergency_heating", name)
}

func TestDefaultRules_BatteryProtection(t *testing.T) {
	e := New(DefaultRules(DefaultThresholds()))

	should, name := e.ShouldHeat(Context{
		BatterySoC: ptr(30),
		SolarPower: ptr(100),
		TankTemp:   ptr(45),
		Now:        at(12, 0),
	})

	assert.False(t, should)
	assert.Equal(t, "battery_protection", name)
}

func TestDefaultRules_TankFull(t *testing.T) {
	e := New(DefaultRules(DefaultThresholds()))

	should, name := e.ShouldHeat(Context{
		BatterySoC: ptr(90),
		SolarPower: ptr(4000),
		TankTemp:   ptr(55),
		Now:        at(12, 0),
	})

	assert.False(t, should)
	assert.Equal(t, "tank_full", name)
}

func TestDefaultRules_GridExportDivert(t *testing.T) {
	e := New(DefaultRules(DefaultThresholds()))

	// Outside the solar window but exporting heavily.
	should, name := e.ShouldHeat(Context{
		BatterySoC: ptr(60),
		SolarPower: ptr(2000),
		GridPower:  ptr(-1500),
		TankTemp:   ptr(45),
		Now:        at(18, 0),
	})

	assert.True(t, should)
	assert.Equal(t, "grid_export_divert", name)
}

func TestDefaultRules_OffpeakFallback(t *testing.T) {
	e := New(DefaultRules(DefaultThresholds()))

	ctx := Context{
		BatterySoC:          ptr(60),
		SolarPower:          ptr(0),
		TankTemp:            ptr(45),
		DailyHeatingMinutes: 20,
		OffpeakStart:        "22:00",
		OffpeakEnd:          "06:00",
		Now:                 at(23, 0),
	}

	should, name := e.ShouldHeat(ctx)
	assert.True(t, should)
	assert.Equal(t, "offpeak_fallback", name)

	// Daily minimum already met: nothing fires, heater defaults off.
	ctx.DailyHeatingMinutes = 90
	should, name = e.ShouldHeat(ctx)
	assert.False(t, should)
	assert.Equal(t, "", name)
}

func TestDefaultRules_MissingTelemetryIsSafe(t *testing.T) {
	e := New(DefaultRules(DefaultThresholds()))

	// No telemetry at all: nothing should fire except via tank temperature.
	should, name := e.ShouldHeat(Context{TankTemp: ptr(45), Now: at(12, 0)})

	assert.False(t, should)
	assert.Equal(t, "", name)
}

func TestRule_JSONRoundTrip(t *testing.T) {
	original := DefaultRules(DefaultThresholds())

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded []Rule
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)
}

func TestEngine_SetRules(t *testing.T) {
	e := New(DefaultRules(DefaultThresholds()))

	e.SetRules([]Rule{onRule("custom", 50)})

	rs := e.Rules()
	require.Len(t, rs, 1)
	assert.Equal(t, "custom", rs[0].Name)
}
