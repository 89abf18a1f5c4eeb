package hexfile

import (
	"fmt"
	"io"
	"os"

	"github.com/marcinbor85/gohex"
)

// LineLength is the number of data bytes per record written by WriteHex.
const LineLength = 16

// Parse parses an Intel HEX file from the given path.
//
// Example:
//
//	img, err := hexfile.Parse("blink.hex")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d bytes up to 0x%05X\n", img.Size(), img.End())
func Parse(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseReader(f)
}

// ParseReader parses Intel HEX records from any io.Reader.
func ParseReader(r io.Reader) (*Image, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, fmt.Errorf("parse intel hex: %w", err)
	}

	segments := mem.GetDataSegments()
	if len(segments) == 0 {
		return nil, ErrEmptyImage
	}

	img := &Image{Segments: make([]Segment, 0, len(segments))}
	for _, s := range segments {
		img.Segments = append(img.Segments, Segment{
			Address: s.Address,
			Data:    append([]byte(nil), s.Data...),
		})
	}
	return img, nil
}

// FromBinary returns an image holding data at address addr.
func FromBinary(addr uint32, data []byte) *Image {
	return &Image{Segments: []Segment{{Address: addr, Data: append([]byte(nil), data...)}}}
}

// WriteHex writes data as Intel HEX records starting at address addr.
//
// Example:
//
//	flash, _ := prog.ReadFlash(ctx, 0, part.Params.FlashSize)
//	err := hexfile.WriteHex(os.Stdout, 0, flash)
func WriteHex(w io.Writer, addr uint32, data []byte) error {
	mem := gohex.NewMemory()
	if err := mem.AddBinary(addr, data); err != nil {
		return fmt.Errorf("add binary: %w", err)
	}
	if err := mem.DumpIntelHex(w, LineLength); err != nil {
		return fmt.Errorf("dump intel hex: %w", err)
	}
	return nil
}
