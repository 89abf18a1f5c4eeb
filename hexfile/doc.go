// Package hexfile loads and writes Intel HEX images for AVR flash and
// EEPROM.
//
// # Loading
//
//	img, err := hexfile.Parse("firmware.hex")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := img.Check(32768); err != nil {
//	    log.Fatal(err) // does not fit an ATmega328P
//	}
//
// # Paging
//
// Flash is written one page at a time. Pages splits the image on page
// boundaries and pads partial pages with the erased value:
//
//	pages, err := img.Pages(128, 0xFF)
//
// # Dumping
//
// WriteHex emits read-back memory as 16-byte data records followed by an
// end-of-file record.
//
// # Error Handling
//
//   - ErrEmptyImage: the file holds no data records
//   - AddressRangeError: the image does not fit the device
//   - PageSizeError: Pages was called with an unusable page size
//
// Malformed records are reported by the underlying gohex parser, wrapped
// with the operation that failed.
package hexfile
