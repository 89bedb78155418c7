// Package telemetry exposes the latest power and battery readings as a
// point-in-time snapshot for the decision cycle.
package telemetry

// Snapshot is one cycle's view of the plant. Fields are nil when no reading
// has arrived yet; rule conditions apply their own defaults for missing
// values.
type Snapshot struct {
	BatterySoC   *float64 // %
	SolarPower   *float64 // W
	GridPower    *float64 // W, positive = import, negative = export
	BatteryPower *float64 // W
	HeaterPower  *float64 // W
	HeaterOn     *bool
}

// Source delivers the current snapshot. An error marks the whole cycle as a
// transient failure; the caller retries on the next tick.
type Source interface {
	Snapshot() (Snapshot, error)
}
