package emu

// Config contains emulation settings. Machine stores it (after Defaults)
// but does not read any of its fields: no instruction log is written, no
// throttling is applied, and StepFrame always runs exactly one frame.
type Config struct {
	Trace           bool    // CPU instruction logging flag; not read by Machine
	LimitFPS        bool    // ~60 Hz throttle flag; not read by Machine
	SpeedMultiplier float64 // frame-speed multiplier; <=0 becomes 1 in Defaults; not read by Machine
	// Later: debugger flags, etc.
}

// Defaults returns a Config with sane defaults for interactive play.
func (c Config) Defaults() Config {
	if c.SpeedMultiplier <= 0 {
		c.SpeedMultiplier = 1
	}
	return c
}
