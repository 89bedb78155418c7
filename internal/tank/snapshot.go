package tank

import (
	"log"
	"time"
)

// Snapshot is the serializable form of State. Durations are stored as
// elapsed seconds and timestamps as RFC 3339 strings so the snapshot file
// stays readable.
type Snapshot struct {
	EstimatedTemp            float64 `json:"estimated_temp"`
	LastUpdate               string  `json:"last_update,omitempty"`
	LastHeatingStart         string  `json:"last_heating_start,omitempty"`
	LastHeatingEnd           string  `json:"last_heating_end,omitempty"`
	TotalHeatingTodaySeconds float64 `json:"total_heating_today_seconds"`
	TotalEnergyTodayKWh      float64 `json:"total_energy_today_kwh"`
	HeatingSessionsToday     int     `json:"heating_sessions_today"`
	IsHeating                bool    `json:"is_heating"`
}

// Snapshot captures the current state for persistence.
func (m *Model) Snapshot() Snapshot {
	s := Snapshot{
		EstimatedTemp:            m.state.EstimatedTemp,
		TotalHeatingTodaySeconds: m.state.TotalHeatingToday.Seconds(),
		TotalEnergyTodayKWh:      m.state.TotalEnergyTodayKWh,
		HeatingSessionsToday:     m.state.HeatingSessionsToday,
		IsHeating:                m.state.IsHeating,
	}
	if !m.state.LastUpdate.IsZero() {
		s.LastUpdate = m.state.LastUpdate.Format(time.RFC3339Nano)
	}
	if m.state.LastHeatingStart != nil {
		s.LastHeatingStart = m.state.LastHeatingStart.Format(time.RFC3339Nano)
	}
	if m.state.LastHeatingEnd != nil {
		s.LastHeatingEnd = m.state.LastHeatingEnd.Format(time.RFC3339Nano)
	}
	return s
}

// Restore replaces the current state with a persisted snapshot. The
// temperature is clamped so a stale or hand-edited file cannot violate the
// model invariant.
func (m *Model) Restore(s Snapshot) {
	m.state = State{
		EstimatedTemp:        s.EstimatedTemp,
		TotalHeatingToday:    time.Duration(s.TotalHeatingTodaySeconds * float64(time.Second)),
		TotalEnergyTodayKWh:  s.TotalEnergyTodayKWh,
		HeatingSessionsToday: s.HeatingSessionsToday,
		IsHeating:            s.IsHeating,
	}
	if t, ok := parseSnapshotTime(s.LastUpdate); ok {
		m.state.LastUpdate = t
	}
	if t, ok := parseSnapshotTime(s.LastHeatingStart); ok {
		m.state.LastHeatingStart = &t
	}
	if t, ok := parseSnapshotTime(s.LastHeatingEnd); ok {
		m.state.LastHeatingEnd = &t
	}
	m.clampTemp()
}

func parseSnapshotTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		log.Printf("ignoring malformed snapshot timestamp %q: %v", s, err)
		return time.Time{}, false
	}
	return t, true
}
