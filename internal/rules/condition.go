package rules

import (
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"
)

// ConditionKind is the closed set of condition types a rule may use.
type ConditionKind string

const (
	BatterySoCAbove   ConditionKind = "battery_soc_above"
	BatterySoCBelow   ConditionKind = "battery_soc_below"
	SolarPowerAbove   ConditionKind = "solar_power_above"
	SolarPowerBelow   ConditionKind = "solar_power_below"
	GridExportAbove   ConditionKind = "grid_export_above"
	GridImportAbove   ConditionKind = "grid_import_above"
	TankTempAbove     ConditionKind = "tank_temp_above"
	TankTempBelow     ConditionKind = "tank_temp_below"
	TimeBetween       ConditionKind = "time_between"
	DailyHeatingBelow ConditionKind = "daily_heating_below"
	DailyHeatingAbove ConditionKind = "daily_heating_above"
	OffpeakHours      ConditionKind = "offpeak_hours"
)

// Context is the read-only snapshot a condition is evaluated against. It is
// built once per tick and passed by value; conditions cannot mutate it.
// Optional telemetry is represented as pointers so each condition can apply
// its own default for a missing value.
type Context struct {
	BatterySoC   *float64
	SolarPower   *float64
	GridPower    *float64 // signed: positive = import, negative = export
	BatteryPower *float64
	HeaterPower  *float64
	TankTemp     *float64

	DailyHeatingMinutes float64

	OffpeakStart string // "HH:MM"
	OffpeakEnd   string

	Now time.Time
}

// Condition is a single predicate. Value (and Value2 for range kinds) are
// strings so numeric thresholds and "HH:MM" clock values share one
// representation; parsing happens per kind at evaluation time.
type Condition struct {
	Kind   ConditionKind `json:"kind"`
	Value  string        `json:"value"`
	Value2 string        `json:"value2,omitempty"`
}

// Eval reports whether the condition holds for the given context. Unknown
// kinds and malformed values are logged and evaluate to false; they never
// abort an evaluation cycle.
func (c Condition) Eval(ctx Context) bool {
	switch c.Kind {
	case BatterySoCAbove:
		v, ok := c.number()
		return ok && orDefault(ctx.BatterySoC, 0) >= v

	case BatterySoCBelow:
		v, ok := c.number()
		return ok && orDefault(ctx.BatterySoC, 100) <= v

	case SolarPowerAbove:
		v, ok := c.number()
		return ok && orDefault(ctx.SolarPower, 0) >= v

	case SolarPowerBelow:
		v, ok := c.number()
		return ok && orDefault(ctx.SolarPower, math.Inf(1)) <= v

	case GridExportAbove:
		v, ok := c.number()
		grid := orDefault(ctx.GridPower, 0)
		return ok && grid < 0 && math.Abs(grid) >= v

	case GridImportAbove:
		v, ok := c.number()
		grid := orDefault(ctx.GridPower, 0)
		return ok && grid > 0 && grid >= v

	case TankTempAbove:
		v, ok := c.number()
		return ok && orDefault(ctx.TankTemp, 0) >= v

	case TankTempBelow:
		v, ok := c.number()
		return ok && orDefault(ctx.TankTemp, 100) <= v

	case TimeBetween:
		start, err := ParseClock(c.Value)
		if err != nil {
			log.Printf("condition %s: %v", c.Kind, err)
			return false
		}
		end, err := ParseClock(c.Value2)
		if err != nil {
			log.Printf("condition %s: %v", c.Kind, err)
			return false
		}
		return clockInRange(minuteOfDay(ctx.Now), start, end)

	case DailyHeatingBelow:
		v, ok := c.number()
		return ok && ctx.DailyHeatingMinutes < v

	case DailyHeatingAbove:
		v, ok := c.number()
		return ok && ctx.DailyHeatingMinutes >= v

	case OffpeakHours:
		start, err := ParseClock(ctx.OffpeakStart)
		if err != nil {
			log.Printf("condition %s: %v", c.Kind, err)
			return false
		}
		end, err := ParseClock(ctx.OffpeakEnd)
		if err != nil {
			log.Printf("condition %s: %v", c.Kind, err)
			return false
		}
		return clockInRange(minuteOfDay(ctx.Now), start, end)

	default:
		log.Printf("unknown condition kind: %s", c.Kind)
		return false
	}
}

// number parses the condition value as a float. Parse failures are logged
// and reported as not-ok so the condition evaluates to false.
func (c Condition) number() (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64)
	if err != nil {
		log.Printf("condition %s: malformed value %q", c.Kind, c.Value)
		return 0, false
	}
	return v, true
}

func orDefault(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// ParseClock parses an "HH:MM" string into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed clock value %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("malformed clock value %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("malformed clock value %q", s)
	}
	return h*60 + m, nil
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// clockInRange checks minute-of-day membership in [start, end]. A start
// after the end means the range wraps past midnight, e.g. 22:00–06:00.
func clockInRange(now, start, end int) bool {
	if start <= end {
		return start <= now && now <= end
	}
	return now >= start || now <= end
}
