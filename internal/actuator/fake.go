package actuator

// Fake records switch commands for test assertions.
type Fake struct {
	// Calls contains every commanded state in order.
	Calls []bool

	// Err, if set, is returned by Set and the state is left unchanged.
	Err error

	on bool
}

// NewFake creates a Fake starting in the off state.
func NewFake() *Fake {
	return &Fake{}
}

// Set records the command.
func (f *Fake) Set(on bool) error {
	if f.Err != nil {
		return f.Err
	}
	f.Calls = append(f.Calls, on)
	f.on = on
	return nil
}

// State returns the last commanded state.
func (f *Fake) State() bool {
	return f.on
}

// Reset clears recorded commands.
func (f *Fake) Reset() {
	f.Calls = nil
	f.Err = nil
	f.on = false
}
