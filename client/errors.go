package client

import (
	"errors"
	"fmt"

	"github.com/moffa90/go-avrisp/protocol"
)

// ErrTimeout is returned when no reply byte arrives within the read timeout.
var ErrTimeout = errors.New("timed out waiting for programmer")

// SignatureMismatchError indicates that the target is not the expected part.
type SignatureMismatchError struct {
	Part     string
	Expected protocol.Signature
	Actual   protocol.Signature
}

func (e *SignatureMismatchError) Error() string {
	return fmt.Sprintf("device mismatch: %s has signature %s, target reports %s",
		e.Part, e.Expected, e.Actual)
}

// VerifyError indicates that flash read back differs from the image.
type VerifyError struct {
	// Address is the byte address of the first differing byte
	Address  uint32
	Expected byte
	Actual   byte
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("verification failed at 0x%05X: expected 0x%02X, got 0x%02X",
		e.Address, e.Expected, e.Actual)
}

// UnknownPartError indicates a part name missing from the part table.
type UnknownPartError struct {
	Name string
}

func (e *UnknownPartError) Error() string {
	return fmt.Sprintf("unknown part %q", e.Name)
}
