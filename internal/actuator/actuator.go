// Package actuator controls the water-heater switch.
package actuator

// Switch sets the heater element on or off. Set blocks until the command is
// acknowledged so the next cycle's state comparison is accurate.
type Switch interface {
	Set(on bool) error
	State() bool
}
