package isp

import "github.com/moffa90/go-avrisp/timing"

// Config holds the dispatcher configuration.
type Config struct {
	// Logger is used for logging operations (optional)
	Logger Logger

	// Indicator receives busy and error updates (optional)
	Indicator Indicator

	// Clock supplies ticks for the programming delays
	Clock timing.Clock

	// HWVersion, SWMajor and SWMinor are reported by Get Parameter
	HWVersion byte
	SWMajor   byte
	SWMinor   byte

	// Rearm returns the session to Idle right after Leave Programming Mode,
	// so the next host can enter programming mode without a restart
	Rearm bool
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		HWVersion: 2,
		SWMajor:   1,
		SWMinor:   18,
	}
}

// Option is a functional option for configuring the Dispatcher.
type Option func(*Config)

// WithLogger sets a logger for dispatcher operations.
//
// Example:
//
//	d := isp.New(port, bus, lines, isp.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithIndicator sets the status display.
func WithIndicator(ind Indicator) Option {
	return func(c *Config) {
		c.Indicator = ind
	}
}

// WithClock sets the tick source used for reset and write delays.
// Default is a timing.SystemClock.
func WithClock(clock timing.Clock) Option {
	return func(c *Config) {
		if clock != nil {
			c.Clock = clock
		}
	}
}

// WithVersion sets the versions reported by Get Parameter.
func WithVersion(hw, major, minor byte) Option {
	return func(c *Config) {
		c.HWVersion = hw
		c.SWMajor = major
		c.SWMinor = minor
	}
}

// WithRearm enables or disables re-arming after Leave Programming Mode.
// Default is false.
func WithRearm(rearm bool) Option {
	return func(c *Config) {
		c.Rearm = rearm
	}
}
