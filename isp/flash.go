package isp

import (
	"github.com/moffa90/go-avrisp/protocol"
	"github.com/moffa90/go-avrisp/timing"
)

// pageMasks maps a flash page size in bytes to the mask selecting the
// page's first word address.
var pageMasks = map[uint16]uint16{
	32:  0xFFF0,
	64:  0xFFE0,
	128: 0xFFC0,
	256: 0xFF80,
}

// pageCommitDelay is the settle time after a Write Program Memory Page.
var pageCommitDelay = timing.MillisToTicks(20)

// CurrentPage returns the word address of the page containing the word
// address addr. pageSize is in bytes; sizes other than 32, 64, 128 and 256
// disable paging and every address is its own page.
func CurrentPage(addr uint16, pageSize uint16) uint16 {
	mask, ok := pageMasks[pageSize]
	if !ok {
		return addr
	}
	return addr & mask
}

// writeFlash buffers a flash block and programs it after the framing check.
func (d *Dispatcher) writeFlash(length int) error {
	if length > BufferSize {
		d.logError("flash block exceeds buffer", "length", length, "buffer", BufferSize)
		if err := d.drain(length); err != nil {
			return err
		}
		return d.failedReply()
	}

	if err := d.fill(length); err != nil {
		return err
	}

	eop, err := d.getch()
	if err != nil {
		return err
	}
	if eop != protocol.CRCEOP {
		d.noSync()
		return nil
	}

	d.reply(protocol.RespInSync, d.writeFlashPages(length))
	return nil
}

// writeFlashPages programs length buffered bytes as words starting at the
// session address. A page is committed when the next word falls into a
// different page, and the last page is committed once at the end.
func (d *Dispatcher) writeFlashPages(length int) byte {
	page := d.currentPage()

	for x := 0; x < length; x += 2 {
		if p := d.currentPage(); p != page {
			d.commit(page)
			page = p
		}

		low := d.s.Buffer[x]
		high := byte(0xFF)
		if x+1 < length {
			high = d.s.Buffer[x+1]
		}
		d.flash(instrLoadLow, d.s.Address, low)
		d.flash(instrLoadHigh, d.s.Address, high)
		d.s.Address++
	}

	d.commit(page)
	return protocol.RespOK
}

func (d *Dispatcher) currentPage() uint16 {
	return CurrentPage(d.s.Address, d.s.Params.PageSize)
}

// flash loads one byte of the word at addr into the target's page buffer.
func (d *Dispatcher) flash(instr byte, addr uint16, data byte) {
	d.transaction(instr, byte(addr>>8), byte(addr), data)
}

// commit writes the target's page buffer to the page at addr.
func (d *Dispatcher) commit(addr uint16) {
	d.progLamp(false)
	d.transaction(instrWritePage, byte(addr>>8), byte(addr), 0)
	d.delay(pageCommitDelay)
	d.progLamp(true)

	d.logDebug("page committed", "page", addr)
}

// progLamp advances the busy indicator when on is set.
func (d *Dispatcher) progLamp(on bool) {
	if !on {
		return
	}
	if d.config.Indicator != nil {
		d.config.Indicator.Activity(d.s.progress)
	}
	d.s.progress++
}
