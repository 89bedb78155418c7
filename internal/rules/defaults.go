package rules

import "strconv"

// Thresholds parameterizes the default rule set.
type Thresholds struct {
	MinBatterySoC          float64
	MinSolarPower          float64
	MinDailyHeatingMinutes float64
	TargetTemp             float64
	SolarStart             string // "HH:MM"
	SolarEnd               string
}

// DefaultThresholds mirrors the stock installation values.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinBatterySoC:          70,
		MinSolarPower:          2500,
		MinDailyHeatingMinutes: 60,
		TargetTemp:             55,
		SolarStart:             "10:00",
		SolarEnd:               "17:00",
	}
}

// DefaultRules builds the stock policy. Priorities encode the intended
// precedence: emergency heating beats every protection, protections beat
// the opportunistic solar and grid-export rules, off-peak fallback comes
// last.
func DefaultRules(t Thresholds) []Rule {
	return []Rule{
		{
			Name:        "emergency_heating",
			Description: "Emergency heating when tank is too cold",
			Conditions: []Condition{
				{Kind: TankTempBelow, Value: "35"},
			},
			Actions:  []Action{{Kind: TurnOnHeater}},
			Enabled:  true,
			Priority: 100,
		},
		{
			Name:        "battery_protection",
			Description: "Stop heating when battery is low",
			Conditions: []Condition{
				{Kind: BatterySoCBelow, Value: "40"},
				{Kind: SolarPowerBelow, Value: "500"},
			},
			Actions:  []Action{{Kind: TurnOffHeater}},
			Enabled:  true,
			Priority: 95,
		},
		{
			Name:        "tank_full",
			Description: "Stop heating when tank reaches target",
			Conditions: []Condition{
				{Kind: TankTempAbove, Value: fmtFloat(t.TargetTemp)},
			},
			Actions:  []Action{{Kind: TurnOffHeater}},
			Enabled:  true,
			Priority: 90,
		},
		{
			Name:        "solar_excess",
			Description: "Route solar excess to water heater when battery is charged",
			Conditions: []Condition{
				{Kind: BatterySoCAbove, Value: fmtFloat(t.MinBatterySoC)},
				{Kind: SolarPowerAbove, Value: fmtFloat(t.MinSolarPower)},
				{Kind: TimeBetween, Value: t.SolarStart, Value2: t.SolarEnd},
				{Kind: TankTempBelow, Value: fmtFloat(t.TargetTemp)},
			},
			Actions:  []Action{{Kind: TurnOnHeater}},
			Enabled:  true,
			Priority: 80,
		},
		{
			Name:        "grid_export_divert",
			Description: "Divert grid export to water heater",
			Conditions: []Condition{
				{Kind: GridExportAbove, Value: "1000"},
				{Kind: BatterySoCAbove, Value: "50"},
				{Kind: TankTempBelow, Value: fmtFloat(t.TargetTemp)},
			},
			Actions:  []Action{{Kind: TurnOnHeater}},
			Enabled:  true,
			Priority: 70,
		},
		{
			Name:        "offpeak_fallback",
			Description: "Heat during off-peak if daily minimum not met",
			Conditions: []Condition{
				{Kind: OffpeakHours, Value: "true"},
				{Kind: DailyHeatingBelow, Value: fmtFloat(t.MinDailyHeatingMinutes)},
				{Kind: TankTempBelow, Value: "50"},
			},
			Actions:  []Action{{Kind: TurnOnHeater}},
			Enabled:  true,
			Priority: 60,
		},
	}
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
