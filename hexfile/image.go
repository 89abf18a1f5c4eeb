package hexfile

import "sort"

// Image is a memory image assembled from Intel HEX data records.
type Image struct {
	// Segments are the contiguous data runs in ascending address order
	Segments []Segment
}

// Segment is a contiguous run of bytes starting at a byte address.
type Segment struct {
	Address uint32
	Data    []byte
}

// Page is one fully populated flash page.
type Page struct {
	// Address is the byte address of the first byte of the page
	Address uint32

	// Data holds exactly one page of bytes
	Data []byte
}

// WordAddress returns the page address in 16-bit words, as loaded with
// Load Address before a flash write.
func (p Page) WordAddress() uint16 {
	return uint16(p.Address / 2)
}

// Size returns the number of data bytes in the image.
func (img *Image) Size() int {
	n := 0
	for _, s := range img.Segments {
		n += len(s.Data)
	}
	return n
}

// End returns the address one past the highest data byte.
func (img *Image) End() uint32 {
	var end uint32
	for _, s := range img.Segments {
		if e := s.Address + uint32(len(s.Data)); e > end {
			end = e
		}
	}
	return end
}

// Check returns an error if any data lies at or above limit.
func (img *Image) Check(limit uint32) error {
	if len(img.Segments) == 0 {
		return ErrEmptyImage
	}
	if end := img.End(); end > limit {
		return &AddressRangeError{End: end, Limit: limit}
	}
	return nil
}

// Pages splits the image into pages of pageSize bytes. Only pages holding
// image data are returned, in ascending order; bytes of a page not covered
// by the image are set to fill.
//
// Example:
//
//	pages, err := img.Pages(128, 0xFF)
//	for _, pg := range pages {
//	    err = prog.LoadAddress(ctx, pg.WordAddress())
//	    err = prog.ProgramPage(ctx, protocol.MemFlash, pg.Data)
//	}
func (img *Image) Pages(pageSize int, fill byte) ([]Page, error) {
	if pageSize <= 0 || pageSize%2 != 0 {
		return nil, &PageSizeError{Size: pageSize}
	}

	pages := make(map[uint32][]byte)
	for _, s := range img.Segments {
		for i, b := range s.Data {
			addr := s.Address + uint32(i)
			base := addr - addr%uint32(pageSize)

			page, ok := pages[base]
			if !ok {
				page = make([]byte, pageSize)
				for j := range page {
					page[j] = fill
				}
				pages[base] = page
			}
			page[addr-base] = b
		}
	}

	out := make([]Page, 0, len(pages))
	for base, data := range pages {
		out = append(out, Page{Address: base, Data: data})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}
