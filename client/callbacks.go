package client

import "time"

// Programming phases reported through Progress.
const (
	PhaseConnecting  = "connecting"
	PhaseErasing     = "erasing"
	PhaseProgramming = "programming"
	PhaseVerifying   = "verifying"
	PhaseExiting     = "exiting"
	PhaseComplete    = "complete"
)

// Progress contains information about the programming progress.
// Passed to ProgressCallback during programming operations.
type Progress struct {
	// Phase is one of the Phase constants
	Phase string

	// CurrentPage is the number of pages handled in this phase
	CurrentPage int

	// TotalPages is the number of pages in the image
	TotalPages int

	// Percentage is the completion percentage (0.0 to 100.0)
	Percentage float64

	// BytesWritten is the total number of flash bytes written so far
	BytesWritten int

	// ElapsedTime is the time elapsed since programming started
	ElapsedTime time.Duration
}

// ProgressCallback is called periodically during programming to report progress.
// Implementations should return quickly to avoid blocking the programming operation.
//
// Example:
//
//	prog := client.New(port,
//	    client.WithProgressCallback(func(p client.Progress) {
//	        fmt.Printf("[%s] %.1f%% - Page %d/%d\n",
//	            p.Phase, p.Percentage, p.CurrentPage, p.TotalPages)
//	    }),
//	)
type ProgressCallback func(Progress)

// Logger is an optional logging interface that can be provided to the programmer.
// This allows integration with any logging framework.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}
