package isp

import (
	"fmt"

	"github.com/moffa90/go-avrisp/protocol"
)

// Session limits.
const (
	// BufferSize is the capacity of the page buffer
	BufferSize = 256

	// EEChunk is the largest EEPROM block buffered and written at once
	EEChunk = 32
)

// Mode is the ownership state of the programming bus.
type Mode uint8

const (
	// Idle: the target is not held in reset by the programmer
	Idle Mode = iota

	// Programming: the bus and reset line are owned by the programmer
	Programming

	// Ended: the bus was released by Leave Programming Mode
	Ended
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Programming:
		return "programming"
	case Ended:
		return "ended"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// Session is the state shared by all commands of one programming session.
type Session struct {
	// Buffer holds the payload of the command being executed
	Buffer [BufferSize]byte

	// Params is the parameter block from the last Set Device
	Params protocol.Parameters

	// Address is the word address cursor set by Load Address
	Address uint16

	// Errors counts framing and validation failures since the last sign-on
	Errors uint32

	// Mode is the bus ownership state
	Mode Mode

	// ResetActiveHigh is the reset polarity derived from Params
	ResetActiveHigh bool

	// progress drives the busy indicator
	progress uint8
}

// Status is a snapshot of the observable session fields.
type Status struct {
	Mode            Mode
	Address         uint16
	Errors          uint32
	Params          protocol.Parameters
	ResetActiveHigh bool
}
