package isp

import "github.com/moffa90/go-avrisp/timing"

// Reset sequencing delays, see the "Serial Programming Algorithm" section
// of the AVR datasheets.
var (
	// sckDischarge holds SCK low before the reset pulse
	sckDischarge = timing.MillisToTicks(20)

	// resetPulse must span two target clocks; 100us covers targets down to 20 kHz
	resetPulse = timing.MicrosToTicks(100)

	// enableSettle must exceed 20ms before the enable instruction
	enableSettle = timing.MillisToTicks(50)
)

// resetTarget drives the reset line to its asserted or released level for
// the negotiated polarity.
func (d *Dispatcher) resetTarget(assert bool) {
	level := assert == d.s.ResetActiveHigh
	if err := d.lines.Reset.Out(level); err != nil {
		d.logError("drive reset", "assert", assert, "error", err)
	}
}

// startProgramming runs the entry sequence and sends Programming Enable.
// The reply to the enable instruction is not checked.
func (d *Dispatcher) startProgramming() {
	// Reset goes to its asserted level before the bus drives SCK or MOSI.
	d.resetTarget(true)
	if err := d.bus.Begin(); err != nil {
		d.logError("begin bus", "error", err)
	}

	if err := d.lines.Clock.Out(false); err != nil {
		d.logError("drive clock low", "error", err)
	}
	d.delay(sckDischarge)

	d.resetTarget(false)
	d.delay(resetPulse)
	d.resetTarget(true)

	d.delay(enableSettle)
	echo := d.transaction(instrEnable, instrEnableArg, 0x00, 0x00)
	d.s.Mode = Programming

	d.logInfo("entered programming mode",
		"reset_active_high", d.s.ResetActiveHigh,
		"last_byte", echo,
	)
}

// endProgramming releases the bus and lets the target run.
func (d *Dispatcher) endProgramming() {
	if err := d.bus.End(); err != nil {
		d.logError("end bus", "error", err)
	}

	// MOSI and SCK float before reset is released so they cannot fight
	// the target's own drivers.
	if err := d.lines.DataOut.Release(); err != nil {
		d.logError("release data out", "error", err)
	}
	if err := d.lines.Clock.Release(); err != nil {
		d.logError("release clock", "error", err)
	}
	d.resetTarget(false)
	if err := d.lines.Reset.Release(); err != nil {
		d.logError("release reset", "error", err)
	}

	d.s.Mode = Ended
	d.logInfo("left programming mode")
}

func (d *Dispatcher) delay(ticks uint64) {
	d.config.Clock.Delay(ticks)
}
