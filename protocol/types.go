package protocol

import "fmt"

// Parameters is the device parameter block sent with CmdSetDevice.
// It describes the target's memories and programming capabilities.
type Parameters struct {
	// DeviceCode identifies the target family (AVR device codes are below 0xE0)
	DeviceCode byte

	// Revision is the device revision
	Revision byte

	// ProgType selects the programming interfaces supported (0 = both, 1 = serial only)
	ProgType byte

	// ParMode is the parallel programming mode (pseudo or full)
	ParMode byte

	// Polling indicates whether the device supports polling
	Polling byte

	// SelfTimed indicates whether the device uses self-timed programming
	SelfTimed byte

	// LockBytes is the number of lock bytes
	LockBytes byte

	// FuseBytes is the number of fuse bytes
	FuseBytes byte

	// FlashPoll is the flash polling value
	FlashPoll byte

	// EEPROMPoll is the EEPROM polling value
	EEPROMPoll uint16

	// PageSize is the flash page size in bytes
	PageSize uint16

	// EEPROMSize is the EEPROM size in bytes
	EEPROMSize uint16

	// FlashSize is the flash size in bytes
	FlashSize uint32
}

// ResetActiveHigh reports whether the target uses an active-high reset line.
// AVR devices have an active-low reset, AT89Sx devices (codes 0xE0 and up)
// are active high.
func (p Parameters) ResetActiveHigh() bool {
	return p.DeviceCode >= 0xE0
}

// Signature is the 3-byte device signature read with CmdReadSign.
type Signature [SignatureSize]byte

func (s Signature) String() string {
	return fmt.Sprintf("%02X %02X %02X", s[0], s[1], s[2])
}
