package tank

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		VolumeLiters:  200,
		HeaterWattage: 2400,
		HeatLossRate:  0.5,
		ColdWaterTemp: 15,
		TargetTemp:    55,
		MinTemp:       40,
		AmbientTemp:   20,
	}
}

func TestNew_StartsAtTarget(t *testing.T) {
	m := New(testConfig(), nil)

	assert.Equal(t, 55.0, m.State().EstimatedTemp)
	assert.False(t, m.State().IsHeating)
	// Nil events install the default draw profile.
	assert.Contains(t, m.UsageEvents(), "shower")
	assert.Contains(t, m.UsageEvents(), "dishes")
}

func TestThermalMass(t *testing.T) {
	m := New(testConfig(), nil)

	// 200 L * 1 kg/L * 4186 J/(kg·°C)
	assert.Equal(t, 837200.0, m.ThermalMass())
	assert.InDelta(t, 10.32, m.HeatingRatePerHour(), 0.01)
}

func TestAdvance_HeatingOneHour(t *testing.T) {
	m := New(testConfig(), nil)
	m.SetTemperature(50, testStart)

	temp := m.Advance(true, 3600, testStart.Add(time.Hour))

	// 50 + 10.32 rise - small loss would overshoot; thermostat caps at target.
	assert.Equal(t, 55.0, temp)

	state := m.State()
	assert.Equal(t, time.Hour, state.TotalHeatingToday)
	assert.InDelta(t, 2.4, state.TotalEnergyTodayKWh, 1e-9)
	assert.Equal(t, 1, state.HeatingSessionsToday)
	assert.True(t, state.IsHeating)
	require.NotNil(t, state.LastHeatingStart)
}

func TestAdvance_HeatingBelowTarget(t *testing.T) {
	m := New(testConfig(), nil)
	m.SetTemperature(20, testStart)

	// Half an hour from 20°C: rise 5.16, loss 0 (at ambient).
	temp := m.Advance(true, 1800, testStart.Add(30*time.Minute))

	assert.InDelta(t, 25.16, temp, 0.01)
	assert.Less(t, temp, 55.0)
}

func TestAdvance_CoolingScalesWithAmbientDistance(t *testing.T) {
	m := New(testConfig(), nil)

	// At target the full loss rate applies: 0.5 °C/h for 2 h.
	temp := m.Advance(false, 2*3600, testStart.Add(2*time.Hour))
	assert.InDelta(t, 54.0, temp, 1e-9)

	// At ambient or below there is no loss at all.
	m.SetTemperature(15, testStart)
	temp = m.Advance(false, 3600, testStart.Add(time.Hour))
	assert.Equal(t, 15.0, temp)
}

func TestAdvance_ZeroElapsed(t *testing.T) {
	m := New(testConfig(), nil)
	now := testStart.Add(time.Minute)

	temp := m.Advance(false, 0, now)

	assert.Equal(t, 55.0, temp)
	assert.Equal(t, now, m.State().LastUpdate)
}

func TestAdvance_CoolingFloorsAtColdWater(t *testing.T) {
	m := New(testConfig(), nil)

	temp := m.Advance(false, 365*24*3600, testStart)

	assert.Equal(t, 15.0, temp)
}

func TestAdvance_SessionCounting(t *testing.T) {
	m := New(testConfig(), nil)
	m.SetTemperature(45, testStart)

	m.Advance(true, 60, testStart.Add(time.Minute))
	m.Advance(true, 60, testStart.Add(2*time.Minute))
	m.Advance(false, 60, testStart.Add(3*time.Minute))
	m.Advance(true, 60, testStart.Add(4*time.Minute))

	state := m.State()
	assert.Equal(t, 2, state.HeatingSessionsToday)
	assert.Equal(t, 3*time.Minute, state.TotalHeatingToday)
	require.NotNil(t, state.LastHeatingEnd)
	assert.Equal(t, testStart.Add(3*time.Minute), *state.LastHeatingEnd)
}

func TestApplyUsageEvent_Shower(t *testing.T) {
	m := New(testConfig(), nil)

	// Shower draws 70 L; mixing 130 L at 55°C with 70 L at 15°C gives 41°C.
	temp, ok := m.ApplyUsageEvent("shower")

	require.True(t, ok)
	assert.InDelta(t, 41.0, temp, 1e-9)
}

func TestApplyUsageEvent_Unknown(t *testing.T) {
	m := New(testConfig(), nil)

	temp, ok := m.ApplyUsageEvent("bath")

	assert.False(t, ok)
	assert.Equal(t, 55.0, temp)
}

func TestApplyUsageEvent_DrawLargerThanTank(t *testing.T) {
	events := map[string]UsageEvent{
		"fill_pool": {Name: "Fill pool", DurationMinutes: 60, FlowRateLPM: 10, HotWaterFraction: 1},
	}
	m := New(testConfig(), events)

	temp, ok := m.ApplyUsageEvent("fill_pool")

	require.True(t, ok)
	assert.Equal(t, 15.0, temp)
}

func TestEstimatedShowers(t *testing.T) {
	m := New(testConfig(), nil)

	// First shower lands at 41°C, the second would fall to 31.9°C, so a
	// fraction of it remains above the 40°C minimum.
	assert.Equal(t, 1.1, m.EstimatedShowers())

	m.SetTemperature(40, testStart)
	assert.Equal(t, 0.0, m.EstimatedShowers())
}

func TestEnergyContent(t *testing.T) {
	m := New(testConfig(), nil)

	assert.InDelta(t, 9.30, m.EnergyContent(), 0.01)

	m.SetTemperature(15, testStart)
	assert.Equal(t, 0.0, m.EnergyContent())
}

func TestTimeToTarget(t *testing.T) {
	m := New(testConfig(), nil)

	d, ok := m.TimeToTarget()
	require.True(t, ok)
	assert.Equal(t, time.Duration(0), d)

	m.SetTemperature(45, testStart)
	d, ok = m.TimeToTarget()
	require.True(t, ok)
	assert.InDelta(t, 59.6, d.Minutes(), 0.1)
}

func TestTimeToTarget_Unreachable(t *testing.T) {
	cfg := testConfig()
	cfg.HeaterWattage = 100
	cfg.HeatLossRate = 25
	m := New(cfg, nil)
	m.SetTemperature(45, testStart)

	_, ok := m.TimeToTarget()

	assert.False(t, ok)
}

func TestTimeToCold(t *testing.T) {
	m := New(testConfig(), nil)

	assert.Equal(t, 30*time.Hour, m.TimeToCold())

	m.SetTemperature(40, testStart)
	assert.Equal(t, time.Duration(0), m.TimeToCold())
}

func TestForecast(t *testing.T) {
	m := New(testConfig(), nil)
	now := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)

	points := m.Forecast(24, now)

	require.Len(t, points, 25)
	assert.Equal(t, 55.0, points[0].Temperature)
	assert.Equal(t, 0, points[0].Hour)

	// Hour 1 lands on 07:00: linear loss plus the 14°C shower drop.
	assert.Equal(t, now.Add(time.Hour), points[1].Time)
	assert.InDelta(t, 40.5, points[1].Temperature, 1e-9)

	// Hour 13 lands on 19:00: 6.5°C of loss plus the 8.4°C dishes drop.
	assert.InDelta(t, 40.1, points[13].Temperature, 1e-9)

	// Projection never goes below cold water temperature.
	for _, p := range points {
		assert.GreaterOrEqual(t, p.Temperature, 15.0)
	}
}

func TestForecast_DoesNotMutateState(t *testing.T) {
	m := New(testConfig(), nil)
	before := m.State()

	m.Forecast(48, testStart)

	assert.Equal(t, before, m.State())
}

func TestResetDailyStats(t *testing.T) {
	m := New(testConfig(), nil)
	m.SetTemperature(45, testStart)
	m.Advance(true, 3600, testStart.Add(time.Hour))

	m.ResetDailyStats()

	state := m.State()
	assert.Equal(t, time.Duration(0), state.TotalHeatingToday)
	assert.Equal(t, 0.0, state.TotalEnergyTodayKWh)
	assert.Equal(t, 0, state.HeatingSessionsToday)
	assert.Greater(t, state.EstimatedTemp, 45.0)
}

func TestSetTemperature_Clamps(t *testing.T) {
	m := New(testConfig(), nil)

	m.SetTemperature(100, testStart)
	assert.Equal(t, 65.0, m.State().EstimatedTemp)

	m.SetTemperature(5, testStart)
	assert.Equal(t, 15.0, m.State().EstimatedTemp)
}

func TestSnapshotRoundTrip(t *testing.T) {
	m := New(testConfig(), nil)
	m.SetTemperature(45, testStart)
	m.Advance(true, 1800, testStart.Add(30*time.Minute))
	m.Advance(false, 600, testStart.Add(40*time.Minute))

	snap := m.Snapshot()

	restored := New(testConfig(), nil)
	restored.Restore(snap)

	assert.Equal(t, m.State().EstimatedTemp, restored.State().EstimatedTemp)
	assert.Equal(t, m.State().TotalHeatingToday, restored.State().TotalHeatingToday)
	assert.Equal(t, m.State().TotalEnergyTodayKWh, restored.State().TotalEnergyTodayKWh)
	assert.Equal(t, m.State().HeatingSessionsToday, restored.State().HeatingSessionsToday)
	assert.Equal(t, m.State().IsHeating, restored.State().IsHeating)
	require.NotNil(t, restored.State().LastHeatingStart)
	assert.True(t, m.State().LastHeatingStart.Equal(*restored.State().LastHeatingStart))
}

func TestRestore_ClampsTemperature(t *testing.T) {
	m := New(testConfig(), nil)

	m.Restore(Snapshot{EstimatedTemp: 90})
	assert.Equal(t, 65.0, m.State().EstimatedTemp)

	m.Restore(Snapshot{EstimatedTemp: -10})
	assert.Equal(t, 15.0, m.State().EstimatedTemp)
}

func TestRestore_IgnoresMalformedTimestamp(t *testing.T) {
	m := New(testConfig(), nil)

	m.Restore(Snapshot{EstimatedTemp: 50, LastHeatingStart: "not-a-time"})

	assert.Nil(t, m.State().LastHeatingStart)
	assert.Equal(t, 50.0, m.State().EstimatedTemp)
}
