package client

import "time"

// Config holds the programmer configuration.
type Config struct {
	// ProgressCallback is called during programming to report progress (optional)
	ProgressCallback ProgressCallback

	// Logger is used for logging operations (optional)
	Logger Logger

	// ReadTimeout bounds the wait for each reply
	ReadTimeout time.Duration

	// Retries is the number of extra Get Sync attempts when connecting
	Retries int

	// VerifyAfterProgram reads flash back and compares it after writing
	VerifyAfterProgram bool

	// EraseBeforeProgram issues a chip erase before writing flash
	EraseBeforeProgram bool
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		ReadTimeout:        2 * time.Second,
		Retries:            5,
		VerifyAfterProgram: true,
		EraseBeforeProgram: true,
	}
}

// Option is a functional option for configuring the Programmer.
type Option func(*Config)

// WithProgressCallback sets a callback function to track programming progress.
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets a logger for the programmer operations.
//
// Example:
//
//	prog := client.New(port, client.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithReadTimeout sets the reply timeout.
//
// Example:
//
//	prog := client.New(port, client.WithReadTimeout(5*time.Second))
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.ReadTimeout = timeout
		}
	}
}

// WithRetries sets the number of extra Get Sync attempts.
func WithRetries(retries int) Option {
	return func(c *Config) {
		if retries >= 0 {
			c.Retries = retries
		}
	}
}

// WithVerifyAfterProgram enables or disables flash read-back verification.
// Default is true.
func WithVerifyAfterProgram(verify bool) Option {
	return func(c *Config) {
		c.VerifyAfterProgram = verify
	}
}

// WithEraseBeforeProgram enables or disables the chip erase before
// programming. Flash programming can only clear bits, so disable this
// only for blank parts. Default is true.
func WithEraseBeforeProgram(erase bool) Option {
	return func(c *Config) {
		c.EraseBeforeProgram = erase
	}
}
