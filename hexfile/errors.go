package hexfile

import (
	"errors"
	"fmt"
)

// ErrEmptyImage is returned when an image holds no data records.
var ErrEmptyImage = errors.New("image contains no data")

// AddressRangeError indicates that image data does not fit the device.
type AddressRangeError struct {
	End   uint32
	Limit uint32
}

func (e *AddressRangeError) Error() string {
	return fmt.Sprintf("image ends at 0x%05X, device memory ends at 0x%05X", e.End, e.Limit)
}

// PageSizeError indicates an unusable page size.
type PageSizeError struct {
	Size int
}

func (e *PageSizeError) Error() string {
	return fmt.Sprintf("invalid page size %d: must be a positive even number", e.Size)
}
