// Package timing provides the monotonic tick counter used for the
// programming delays.
//
// Ticks run at HZ. All delays are busy-waits against a Counter: a Delay
// does not return before the counter has advanced by the requested number
// of ticks.
package timing

import (
	"runtime"
	"sync"
	"time"
)

// HZ is the tick rate: one tick per CPU clock of a 16 MHz board.
const HZ = 16000000

const ticksPerMicro = HZ / 1000000

// MicrosToTicks converts microseconds to ticks.
func MicrosToTicks(us uint64) uint64 {
	return us * ticksPerMicro
}

// MillisToTicks converts milliseconds to ticks.
func MillisToTicks(ms uint64) uint64 {
	return MicrosToTicks(ms * 1000)
}

// TicksToDuration converts ticks to a time.Duration.
func TicksToDuration(ticks uint64) time.Duration {
	return time.Duration(ticks/ticksPerMicro)*time.Microsecond +
		time.Duration(ticks%ticksPerMicro)*time.Microsecond/ticksPerMicro
}

// Counter is a monotonically increasing tick source.
// Ticks must never return a value smaller than a previous call.
type Counter interface {
	Ticks() uint64
}

// Clock is a Counter with a blocking delay.
type Clock interface {
	Counter

	// Delay returns once at least ticks have elapsed.
	Delay(ticks uint64)
}

// Spin busy-waits on c until ticks have elapsed. Other goroutines are
// allowed to run while waiting.
func Spin(c Counter, ticks uint64) {
	t0 := c.Ticks()
	for c.Ticks()-t0 < ticks {
		runtime.Gosched()
	}
}

// Extender widens a free-running 16-bit hardware counter into a 64-bit
// tick count.
//
// Each snapshot adds the counter's advance since the previous snapshot
// (modulo 2^16), so Ticks must be called at least once per wrap of the
// hardware counter. Snapshots are serialized: a caller never observes a
// torn total across a wrap.
type Extender struct {
	mu    sync.Mutex
	read  func() uint16
	total uint64
	last  uint16
}

// NewExtender returns an Extender over the hardware counter read by fn.
// The current hardware value is taken as tick zero.
func NewExtender(fn func() uint16) *Extender {
	return &Extender{read: fn, last: fn()}
}

// Ticks returns the extended counter value.
func (e *Extender) Ticks() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.read()
	e.total += uint64(now - e.last)
	e.last = now
	return e.total
}

// Delay busy-waits for ticks.
func (e *Extender) Delay(ticks uint64) {
	Spin(e, ticks)
}

// SystemClock derives ticks from the host's monotonic clock.
type SystemClock struct {
	start time.Time
}

// NewSystemClock returns a SystemClock starting at tick zero.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// Ticks returns the ticks elapsed since the clock was created.
func (c *SystemClock) Ticks() uint64 {
	ns := uint64(time.Since(c.start))
	return ns * ticksPerMicro / 1000
}

// Delay busy-waits for ticks.
func (c *SystemClock) Delay(ticks uint64) {
	Spin(c, ticks)
}
