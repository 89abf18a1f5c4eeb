package isp

import "fmt"

// Bus is the synchronous peripheral bus connected to the target.
type Bus interface {
	// Begin claims the bus and configures it for transfers
	Begin() error

	// End releases the bus
	End() error

	// Tx clocks w out while clocking len(w) bytes into r
	Tx(w, r []byte) error
}

// Line is a single digital line with settable direction.
type Line interface {
	// Out drives the line high or low
	Out(high bool) error

	// Release turns the line into a high-impedance input
	Release() error
}

// Lines are the target control lines owned during programming.
type Lines struct {
	// Reset is the target reset line
	Reset Line

	// Clock is the bus clock line (SCK)
	Clock Line

	// DataOut is the programmer-to-target data line (MOSI)
	DataOut Line
}

// AVR serial programming instructions (first byte of a transaction).
const (
	instrEnable      = 0xAC // AC 53 00 00
	instrEnableArg   = 0x53
	instrLoadLow     = 0x40 // 40 hi lo data
	instrLoadHigh    = 0x48 // 48 hi lo data
	instrWritePage   = 0x4C // 4C hi lo 00
	instrReadLow     = 0x20 // 20 hi lo 00
	instrReadHigh    = 0x28 // 28 hi lo 00
	instrWriteEEPROM = 0xC0 // C0 hi lo data
	instrReadEEPROM  = 0xA0 // A0 hi lo 00
	instrReadSig     = 0x30 // 30 00 idx 00
)

// transaction clocks the four bytes out on the bus and returns the last
// byte clocked in. Bus errors are logged and read as zero; this layer
// does not verify the target's response.
func (d *Dispatcher) transaction(a, b, c, data byte) byte {
	w := [4]byte{a, b, c, data}
	var r [4]byte
	if err := d.bus.Tx(w[:], r[:]); err != nil {
		d.logError("bus transaction failed", "tx", fmt.Sprintf("% X", w[:]), "error", err)
		return 0
	}
	return r[3]
}
